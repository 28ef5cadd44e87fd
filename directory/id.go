// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package directory implements the backup subject identity and the
// per-subject metadata folder it maps to inside a repository.
package directory

import (
	"path/filepath"

	"github.com/krico/krico-backup/digest"
	"github.com/krico/krico-backup/pathutil"
)

// ID is a lexically normalized relative path string identifying a
// backup subject, plus its derived attributes.
type ID struct {
	str          string
	relativePath string
	idPath       string // hex(SHA1(str)), used as the metadata folder name
}

// NewID normalizes s lexically (never touching the filesystem) and
// derives the subject's metadata folder name.
func NewID(s string) ID {
	norm := pathutil.Normalize(s)
	return ID{
		str:          norm,
		relativePath: norm,
		idPath:       digest.Sha1Sum(norm),
	}
}

// String returns the subject id's normalized string form.
func (id ID) String() string { return id.str }

// RelativePath returns the subject's path relative to the repository
// root.
func (id ID) RelativePath() string { return id.relativePath }

// IDPath returns hex(SHA1(str)), the subject's metadata folder name
// under dirs/.
func (id ID) IDPath() string { return id.idPath }

// Equal compares two ids by their idPath.
func (id ID) Equal(other ID) bool { return id.idPath == other.idPath }

// MetaDir returns the subject's metadata directory given the
// repository's dirs/ root.
func (id ID) MetaDir(dirsRoot string) string {
	return filepath.Join(dirsRoot, id.idPath)
}

// UserDir returns the subject's user-visible directory given the
// repository root.
func (id ID) UserDir(repoRoot string) string {
	return filepath.Join(repoRoot, id.relativePath)
}
