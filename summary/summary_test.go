// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package summary

import (
	"path/filepath"
	"testing"

	"github.com/krico/krico-backup/digest"
)

func TestBuildAndRead(t *testing.T) {
	dir := t.TempDir()
	finalPath := filepath.Join(dir, "2025", "110300.summary")
	b, err := NewBuilder(finalPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.AddDir("sub"); err != nil {
		t.Fatal(err)
	}
	fd := digest.Sum(digest.SHA256, []byte("hello"))
	if err := b.AddCopiedFile("sub/file.txt", fd); err != nil {
		t.Fatal(err)
	}
	if err := b.AddSymlink("link", "sub/file.txt"); err != nil {
		t.Fatal(err)
	}
	s, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if s.NumDirectories != 1 || s.NumCopiedFiles != 1 || s.NumSymlinks != 1 {
		t.Fatalf("got %+v", s)
	}

	lines, err := Read(finalPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}
	if lines[0].Kind != 'D' || lines[0].Path != "sub" {
		t.Fatalf("got %+v", lines[0])
	}
	if lines[3].Kind != 'S' || lines[3].Digest != s.Checksum.Hex() {
		t.Fatalf("got %+v, want checksum %s", lines[3], s.Checksum.Hex())
	}
}

func TestChecksumDeterministic(t *testing.T) {
	dir := t.TempDir()
	build := func() digest.Result {
		p := filepath.Join(dir, "x.summary")
		b, err := NewBuilder(p)
		if err != nil {
			t.Fatal(err)
		}
		_ = b.AddDir("a")
		_ = b.AddHardLinkedFile("a/b", digest.Sum(digest.SHA256, []byte("x")))
		s, err := b.Build()
		if err != nil {
			t.Fatal(err)
		}
		return s.Checksum
	}
	c1 := build()
	c2 := build()
	if !c1.Equal(c2) {
		t.Fatal("checksum must be deterministic for the same entry sequence")
	}
}
