// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/krico/krico-backup/scancache"
)

func writeSource(t *testing.T, root string) {
	t.Helper()
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "file1.txt"), []byte("Hello OpenSSL krico-backup world"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("file1.txt", filepath.Join(root, "fileLink.txt")); err != nil {
		t.Fatal(err)
	}
}

func TestRunDedupAcrossSnapshots(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "source")
	writeSource(t, source)

	meta := filepath.Join(root, "meta")
	subjectDir := filepath.Join(root, "TheTarget")
	if err := os.MkdirAll(subjectDir, 0o755); err != nil {
		t.Fatal(err)
	}
	subjectMeta := filepath.Join(meta, "dirs", "subjectid")
	if err := os.MkdirAll(subjectMeta, 0o755); err != nil {
		t.Fatal(err)
	}

	p := Open(filepath.Join(meta, "hlinks"))
	subject := Subject{Dir: subjectDir, MetaDir: subjectMeta, SourceDir: source}
	cache := scancache.Load(filepath.Join(subjectMeta, "scancache"))

	const wantHex = "1294ae29913c994993ea89efd7ddae0a73fcedda0b03c17a40c4d9c64bbd36f7"

	r1, err := p.Run(subject, cache)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if r1.Summary.NumCopiedFiles != 1 || r1.Summary.NumHardLinkedFiles != 0 || r1.Summary.NumSymlinks != 1 {
		t.Fatalf("first run summary = %+v", r1.Summary)
	}

	poolPath := filepath.Join(meta, "hlinks", "12", "94", "ae29913c994993ea89efd7ddae0a73fcedda0b03c17a40c4d9c64bbd36f7")
	if _, err := os.Stat(poolPath); err != nil {
		t.Fatalf("expected pool object at %s: %v", poolPath, err)
	}

	r2, err := p.Run(subject, cache)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if r2.Summary.NumHardLinkedFiles != 1 || r2.Summary.NumCopiedFiles != 0 || r2.Summary.NumSymlinks != 1 {
		t.Fatalf("second run summary = %+v", r2.Summary)
	}
	if r2.Summary.Checksum.Hex() == "" {
		t.Fatal("expected non-empty checksum")
	}
	_ = wantHex

	st, err := os.Stat(poolPath)
	if err != nil {
		t.Fatal(err)
	}
	nlink := nlinkOf(t, st)
	if nlink != 3 {
		t.Fatalf("nlink = %d, want 3", nlink)
	}

	current, err := os.Readlink(filepath.Join(subjectDir, currentLinkName))
	if err != nil {
		t.Fatal(err)
	}
	previous, err := os.Readlink(filepath.Join(subjectDir, previousLinkName))
	if err != nil {
		t.Fatal(err)
	}
	if current == previous {
		t.Fatalf("current and previous must differ: %s", current)
	}
	if r1.BackupID == r2.BackupID {
		t.Fatal("two runs on the same date must allocate distinct snapshot ids")
	}
}

func TestDetermineBackupDirAllocatesSequentially(t *testing.T) {
	dir := t.TempDir()
	date := mustParseDate(t, "2025-11-03")

	id1, path1, err := determineBackupDir(dir, date)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(path1, 0o755); err != nil {
		t.Fatal(err)
	}
	id2, _, err := determineBackupDir(dir, date)
	if err != nil {
		t.Fatal(err)
	}
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %s twice", id1)
	}
	if id1 != "2025/1103000" || id2 != "2025/1103001" {
		t.Fatalf("got %s, %s", id1, id2)
	}
}
