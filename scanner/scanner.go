// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package scanner implements the deterministic directory traversal
// that the snapshot runner consumes: a sorted, single-pass walk that
// classifies every entry as a file, directory, or symlink before
// descending, and never follows symlinks.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/krico/krico-backup/pathutil"
)

// ErrUnsupportedEntry is returned for directory entries that are
// neither files, directories, nor symlinks (sockets, device nodes,
// and similar).
var ErrUnsupportedEntry = errors.New("scanner: unsupported directory entry")

// Kind discriminates the three entry classes the scanner produces.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Entry is one filesystem object surfaced by Walk.
type Entry struct {
	AbsolutePath string
	RelativePath string
	Kind         Kind

	// Symlink-only fields.
	Target         string // as read from the link, unmodified
	RelativeTarget string // lexically relative when inside the scan root, else equal to Target
	IsTargetDir    bool
}

// Walk traverses root in ascending-filename order, calling fn once for
// every file, directory, and symlink encountered (a directory is
// reported before its children are visited). Symlinks are classified
// before file/directory checks and are never followed. fn may return
// an error to abort the walk early; Walk itself fails with a wrapped
// *fs.PathError on iteration errors and with ErrUnsupportedEntry for
// entry kinds it cannot classify.
func Walk(root string, fn func(Entry) error) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("scanner: resolve root %s: %w", root, err)
	}
	return walkDir(absRoot, absRoot, "", fn)
}

func walkDir(absRoot, absDir, relDir string, fn func(Entry) error) error {
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return fmt.Errorf("scanner: read dir %s: %w", relDir, err)
	}

	for _, de := range entries {
		name := de.Name()
		childAbs := filepath.Join(absDir, name)
		childRel := filepath.Join(relDir, name)

		info, err := os.Lstat(childAbs)
		if err != nil {
			return fmt.Errorf("scanner: lstat %s: %w", childRel, err)
		}

		entry := Entry{AbsolutePath: childAbs, RelativePath: childRel}

		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			target, err := os.Readlink(childAbs)
			if err != nil {
				return fmt.Errorf("scanner: readlink %s: %w", childRel, err)
			}
			entry.Kind = KindSymlink
			entry.Target = target
			entry.RelativeTarget = pathutil.RelativeSymlinkTarget(childAbs, target, absRoot)
			if ti, err := os.Stat(childAbs); err == nil {
				entry.IsTargetDir = ti.IsDir()
			}
			if err := fn(entry); err != nil {
				return err
			}

		case info.IsDir():
			entry.Kind = KindDirectory
			if err := fn(entry); err != nil {
				return err
			}
			if err := walkDir(absRoot, childAbs, childRel, fn); err != nil {
				return err
			}

		case info.Mode().IsRegular():
			entry.Kind = KindFile
			if err := fn(entry); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: %s", ErrUnsupportedEntry, childRel)
		}
	}
	return nil
}
