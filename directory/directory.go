// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package directory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrAlreadyConfigured is returned by Configure on a subject whose
// metadata files already exist.
var ErrAlreadyConfigured = errors.New("directory: already configured")

// ErrNotConfigured is returned by SourceDir before Configure has run.
var ErrNotConfigured = errors.New("directory: not configured")

const (
	targetFileName = "target"
	sourceFileName = "source"
)

// Directory is a backup subject: its identity, the user-visible
// mirror directory inside the repository, and its metadata folder.
type Directory struct {
	ID         ID
	Dir        string // user-visible directory, repoRoot/id.RelativePath()
	MetaDir    string // metadata directory, dirsRoot/id.IDPath()
	Configured bool
	Source     string // absolute source directory, once configured
}

// New constructs a non-configured subject for id.
func New(repoRoot, dirsRoot string, id ID) *Directory {
	return &Directory{ID: id, Dir: id.UserDir(repoRoot), MetaDir: id.MetaDir(dirsRoot)}
}

// Configure creates the subject's metadata folder, writes its target
// and source pointer files, and creates the user-visible directory.
func (d *Directory) Configure(source string) error {
	if d.Configured {
		return ErrAlreadyConfigured
	}
	target := filepath.Join(d.MetaDir, targetFileName)
	if _, err := os.Stat(target); err == nil {
		return ErrAlreadyConfigured
	}
	if err := os.MkdirAll(d.MetaDir, 0o755); err != nil {
		return fmt.Errorf("directory: mkdir %s: %w", d.MetaDir, err)
	}
	if err := os.WriteFile(target, []byte(d.ID.RelativePath()+"\n"), 0o644); err != nil {
		return fmt.Errorf("directory: write %s: %w", target, err)
	}
	if err := os.WriteFile(filepath.Join(d.MetaDir, sourceFileName), []byte(source+"\n"), 0o644); err != nil {
		return fmt.Errorf("directory: write source: %w", err)
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("directory: mkdir %s: %w", d.Dir, err)
	}
	d.Source = source
	d.Configured = true
	return nil
}

// SourceDir returns the subject's source directory, failing
// ErrNotConfigured if Configure has not run.
func (d *Directory) SourceDir() (string, error) {
	if !d.Configured {
		return "", ErrNotConfigured
	}
	return d.Source, nil
}

// Load reconstructs a configured subject from its on-disk metadata
// folder dirsRoot/idPath.
func Load(repoRoot, dirsRoot, idPath string) (*Directory, error) {
	metaDir := filepath.Join(dirsRoot, idPath)
	targetBytes, err := os.ReadFile(filepath.Join(metaDir, targetFileName))
	if err != nil {
		return nil, fmt.Errorf("directory: read target in %s: %w", metaDir, err)
	}
	sourceBytes, err := os.ReadFile(filepath.Join(metaDir, sourceFileName))
	if err != nil {
		return nil, fmt.Errorf("directory: read source in %s: %w", metaDir, err)
	}
	id := NewID(strings.TrimSpace(string(targetBytes)))
	d := New(repoRoot, dirsRoot, id)
	d.Source = strings.TrimSpace(string(sourceBytes))
	d.Configured = true
	return d, nil
}
