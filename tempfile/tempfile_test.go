// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package tempfile

import (
	"os"
	"testing"
)

func TestNewFileUniqueAndRemovable(t *testing.T) {
	dir := t.TempDir()
	f1, err := NewFile(dir, "config.tmp-", "")
	if err != nil {
		t.Fatal(err)
	}
	f2, err := NewFile(dir, "config.tmp-", "")
	if err != nil {
		t.Fatal(err)
	}
	if f1.Path == f2.Path {
		t.Fatalf("expected unique paths, got %s twice", f1.Path)
	}
	if err := f1.Remove(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(f1.Path); !os.IsNotExist(err) {
		t.Fatal("expected file to be removed")
	}
	_ = f2.Remove()
}

func TestNewDirRemovable(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDir(dir, "scratch-")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(d.Path+"/nested.txt", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := d.Remove(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(d.Path); !os.IsNotExist(err) {
		t.Fatal("expected directory to be removed")
	}
}
