// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"testing"
	"time"

	"github.com/krico/krico-backup/digest"
)

func TestInitRoundTrip(t *testing.T) {
	rec := &Init{Hdr: Header{
		Type:   TypeInit,
		Prev:   digest.SHA1Zero,
		Time:   time.Unix(0, 1700000000000000000).UTC(),
		Author: "alice",
	}}
	buf, err := Encode(rec)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	gi, ok := got.(*Init)
	if !ok {
		t.Fatalf("got %T", got)
	}
	if gi.Hdr.Author != "alice" || !gi.Hdr.Prev.Equal(digest.SHA1Zero) {
		t.Fatalf("got %+v", gi.Hdr)
	}
}

func TestAddDirectoryRoundTrip(t *testing.T) {
	rec := &AddDirectory{
		Hdr:         Header{Type: TypeAddDirectory, Prev: digest.SHA1Zero, Time: time.Now().UTC(), Author: "bob"},
		DirectoryID: "TheTarget",
		SourceDir:   "/home/bob/src",
	}
	buf, err := Encode(rec)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	gad := got.(*AddDirectory)
	if gad.DirectoryID != rec.DirectoryID || gad.SourceDir != rec.SourceDir {
		t.Fatalf("got %+v", gad)
	}
}

func TestRunBackupRoundTrip(t *testing.T) {
	rec := &RunBackup{
		Hdr:                Header{Type: TypeRunBackup, Prev: digest.SHA1Zero, Time: time.Now().UTC(), Author: "carol"},
		DirectoryID:        "TheTarget",
		Date:               time.Date(2025, time.November, 3, 0, 0, 0, 0, time.UTC),
		BackupID:           "2025/110300",
		StartTime:          time.Now().UTC(),
		EndTime:            time.Now().UTC(),
		NumDirectories:     3,
		NumCopiedFiles:     1,
		NumHardLinkedFiles: 1,
		NumSymlinks:        1,
		PreviousTarget:     "2025/110200",
		CurrentTarget:      "2025/110300",
		Checksum:           digest.Sum(digest.SHA1, []byte("checksum-input")),
	}
	buf, err := Encode(rec)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	grb := got.(*RunBackup)
	if grb.NumDirectories != 3 || grb.NumCopiedFiles != 1 || grb.BackupID != rec.BackupID {
		t.Fatalf("got %+v", grb)
	}
	if !grb.Checksum.Equal(rec.Checksum) {
		t.Fatalf("checksum mismatch: %x vs %x", grb.Checksum.Bytes, rec.Checksum.Bytes)
	}
	if grb.Date.Year() != 2025 || grb.Date.Month() != time.November || grb.Date.Day() != 3 {
		t.Fatalf("date mismatch: %v", grb.Date)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	if _, err := Decode([]byte{0xFF}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestContentHashDeterministic(t *testing.T) {
	rec := &Init{Hdr: Header{Type: TypeInit, Prev: digest.SHA1Zero, Time: time.Unix(0, 42).UTC(), Author: "dave"}}
	h1, err := ContentHash(rec)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := ContentHash(rec)
	if err != nil {
		t.Fatal(err)
	}
	if !h1.Equal(h2) {
		t.Fatal("ContentHash must be deterministic")
	}
}
