// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package pathutil holds the lexical (filesystem-independent) path
// helpers shared by the scanner, the subject registry, and the pool:
// normalization, sub-path containment, and relative symlink target
// rewriting.
package pathutil

import (
	"path/filepath"
	"strings"
)

// Normalize lexically cleans p: it removes "." components and
// resolves ".." purely textually, never by consulting the filesystem.
func Normalize(p string) string {
	return filepath.Clean(p)
}

// IsLexicalSubPath reports whether p, once normalized relative to
// base, does not escape base via a leading "..".
func IsLexicalSubPath(p, base string) bool {
	rel, err := filepath.Rel(Normalize(base), Normalize(p))
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}

// RelativeSymlinkTarget rewrites target (as read from a symlink at
// link) to be lexically relative to link's parent directory, when
// target is an absolute path lexically inside base. Relative targets,
// and absolute targets outside base, are returned unchanged.
func RelativeSymlinkTarget(link, target, base string) string {
	if !filepath.IsAbs(target) {
		return target
	}
	if !IsLexicalSubPath(target, base) {
		return target
	}
	linkDir := filepath.Dir(Normalize(link))
	rel, err := filepath.Rel(linkDir, Normalize(target))
	if err != nil {
		return target
	}
	return rel
}
