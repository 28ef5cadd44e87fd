// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package tempfile creates uniquely-named scratch files and
// directories that are deleted when the caller is done with them,
// used anywhere the repository needs a write-then-rename staging area.
package tempfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// suffix returns six characters derived from a random UUID, standing
// in for the OS mkstemp/mkdtemp "XXXXXX" placeholder.
func suffix() string {
	id := uuid.New()
	return id.String()[:6]
}

// File is a scratch file created alongside an existing sibling path.
// Close (from the embedded *os.File) only closes the descriptor;
// Remove closes it and deletes the file from disk. Callers that want
// to keep the contents close it and rename it away (e.g. via
// os.Rename) before calling Remove.
type File struct {
	*os.File
	Path string
}

// NewFile creates a uniquely-named file inside dir with the given
// prefix and optional suffix appended after the random component
// (e.g. NewFile(dir, "config.tmp-", "") or NewFile(dir, "x", ".tmp")).
func NewFile(dir, prefix, fileSuffix string) (*File, error) {
	for attempt := 0; attempt < 10; attempt++ {
		name := fmt.Sprintf("%s%s%s", prefix, suffix(), fileSuffix)
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
		if err == nil {
			return &File{File: f, Path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("tempfile: create %s: %w", path, err)
		}
	}
	return nil, fmt.Errorf("tempfile: could not allocate a unique name in %s", dir)
}

// Remove closes and deletes the temp file. Safe to call after a
// successful rename (Remove then returns nil on the already-gone
// path).
func (f *File) Remove() error {
	if f == nil {
		return nil
	}
	_ = f.Close()
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("tempfile: remove %s: %w", f.Path, err)
	}
	return nil
}

// Dir is a uniquely-named scratch directory.
type Dir struct {
	Path string
}

// NewDir creates a uniquely-named directory inside dir with the given
// prefix.
func NewDir(dir, prefix string) (*Dir, error) {
	for attempt := 0; attempt < 10; attempt++ {
		name := prefix + suffix()
		path := filepath.Join(dir, name)
		if err := os.Mkdir(path, 0o755); err == nil {
			return &Dir{Path: path}, nil
		} else if !os.IsExist(err) {
			return nil, fmt.Errorf("tempfile: mkdir %s: %w", path, err)
		}
	}
	return nil, fmt.Errorf("tempfile: could not allocate a unique directory in %s", dir)
}

// Remove recursively deletes the temp directory.
func (d *Dir) Remove() error {
	if d == nil {
		return nil
	}
	if err := os.RemoveAll(d.Path); err != nil {
		return fmt.Errorf("tempfile: remove %s: %w", d.Path, err)
	}
	return nil
}
