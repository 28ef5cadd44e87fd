// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package backuplog

import (
	"time"

	"github.com/krico/krico-backup/digest"
	"github.com/krico/krico-backup/record"
)

// PutInit appends an Init record authored by author.
func (l *Log) PutInit(author string) (digest.Result, error) {
	return l.PutRecord(&record.Init{Hdr: record.Header{Type: record.TypeInit, Author: author}})
}

// PutAddDirectory appends an AddDirectory record for a newly
// registered subject.
func (l *Log) PutAddDirectory(author, directoryID, sourceDir string) (digest.Result, error) {
	return l.PutRecord(&record.AddDirectory{
		Hdr:         record.Header{Type: record.TypeAddDirectory, Author: author},
		DirectoryID: directoryID,
		SourceDir:   sourceDir,
	})
}

// RunBackupFields carries the caller-supplied fields of a RunBackup
// record; Hdr.Type/Author are filled in by PutRunBackup.
type RunBackupFields struct {
	DirectoryID        string
	Date               time.Time
	BackupID           string
	StartTime, EndTime time.Time
	NumDirectories     uint32
	NumCopiedFiles     uint32
	NumHardLinkedFiles uint32
	NumSymlinks        uint32
	PreviousTarget     string
	CurrentTarget      string
	Checksum           digest.Result
}

// PutRunBackup appends a RunBackup record summarizing one snapshot run.
func (l *Log) PutRunBackup(author string, f RunBackupFields) (digest.Result, error) {
	return l.PutRecord(&record.RunBackup{
		Hdr:                record.Header{Type: record.TypeRunBackup, Author: author},
		DirectoryID:        f.DirectoryID,
		Date:               f.Date,
		BackupID:           f.BackupID,
		StartTime:          f.StartTime,
		EndTime:            f.EndTime,
		NumDirectories:     f.NumDirectories,
		NumCopiedFiles:     f.NumCopiedFiles,
		NumHardLinkedFiles: f.NumHardLinkedFiles,
		NumSymlinks:        f.NumSymlinks,
		PreviousTarget:     f.PreviousTarget,
		CurrentTarget:      f.CurrentTarget,
		Checksum:           f.Checksum,
	})
}
