// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"time"

	"github.com/krico/krico-backup/digest"
	"github.com/krico/krico-backup/wire"
)

// RunBackup records the outcome of one snapshot run against a subject.
type RunBackup struct {
	Hdr                Header
	DirectoryID        string
	Date               time.Time // packed YYYYMMDD
	BackupID           string    // relative path under the subject's metadata dir, e.g. "2025/1103000"
	StartTime, EndTime time.Time
	NumDirectories     uint32
	NumCopiedFiles     uint32
	NumHardLinkedFiles uint32
	NumSymlinks        uint32
	PreviousTarget     string
	CurrentTarget      string
	Checksum           digest.Result // SHA-1, 20 bytes
}

// Header implements Record.
func (r *RunBackup) Header() *Header { return &r.Hdr }

// Encode implements Record.
func (r *RunBackup) Encode(w *wire.Writer) error {
	if err := r.Hdr.encode(w); err != nil {
		return err
	}
	if err := w.PutString(r.DirectoryID); err != nil {
		return err
	}
	w.PutDate(r.Date)
	if err := w.PutString(r.BackupID); err != nil {
		return err
	}
	w.PutTimestamp(r.StartTime)
	w.PutTimestamp(r.EndTime)
	w.PutUint32LE(r.NumDirectories)
	w.PutUint32LE(r.NumCopiedFiles)
	w.PutUint32LE(r.NumHardLinkedFiles)
	w.PutUint32LE(r.NumSymlinks)
	if err := w.PutString(r.PreviousTarget); err != nil {
		return err
	}
	if err := w.PutString(r.CurrentTarget); err != nil {
		return err
	}
	checksum := r.Checksum
	if len(checksum.Bytes) == 0 {
		checksum = digest.SHA1Zero
	}
	w.PutBytes(checksum.Bytes)
	return nil
}

func decodeRunBackup(buf []byte) (*RunBackup, error) {
	reader := wire.NewReader(buf)
	hdr, err := decodeHeader(reader)
	if err != nil {
		return nil, err
	}
	rb := &RunBackup{Hdr: hdr}
	if rb.DirectoryID, err = reader.GetString(); err != nil {
		return nil, err
	}
	if rb.Date, err = reader.GetDate(); err != nil {
		return nil, err
	}
	if rb.BackupID, err = reader.GetString(); err != nil {
		return nil, err
	}
	if rb.StartTime, err = reader.GetTimestamp(); err != nil {
		return nil, err
	}
	if rb.EndTime, err = reader.GetTimestamp(); err != nil {
		return nil, err
	}
	if rb.NumDirectories, err = reader.GetUint32LE(); err != nil {
		return nil, err
	}
	if rb.NumCopiedFiles, err = reader.GetUint32LE(); err != nil {
		return nil, err
	}
	if rb.NumHardLinkedFiles, err = reader.GetUint32LE(); err != nil {
		return nil, err
	}
	if rb.NumSymlinks, err = reader.GetUint32LE(); err != nil {
		return nil, err
	}
	if rb.PreviousTarget, err = reader.GetString(); err != nil {
		return nil, err
	}
	if rb.CurrentTarget, err = reader.GetString(); err != nil {
		return nil, err
	}
	sum, err := reader.GetBytes(digest.SHA1.Length())
	if err != nil {
		return nil, err
	}
	checksum := make([]byte, len(sum))
	copy(checksum, sum)
	rb.Checksum = digest.Result{Algo: digest.SHA1, Bytes: checksum}
	return rb, nil
}
