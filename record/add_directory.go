// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package record

import "github.com/krico/krico-backup/wire"

// AddDirectory records the registration of a new backup subject.
type AddDirectory struct {
	Hdr         Header
	DirectoryID string
	SourceDir   string
}

// Header implements Record.
func (r *AddDirectory) Header() *Header { return &r.Hdr }

// Encode implements Record.
func (r *AddDirectory) Encode(w *wire.Writer) error {
	if err := r.Hdr.encode(w); err != nil {
		return err
	}
	if err := w.PutString(r.DirectoryID); err != nil {
		return err
	}
	return w.PutString(r.SourceDir)
}

func decodeAddDirectory(buf []byte) (*AddDirectory, error) {
	reader := wire.NewReader(buf)
	hdr, err := decodeHeader(reader)
	if err != nil {
		return nil, err
	}
	dirID, err := reader.GetString()
	if err != nil {
		return nil, err
	}
	sourceDir, err := reader.GetString()
	if err != nil {
		return nil, err
	}
	return &AddDirectory{Hdr: hdr, DirectoryID: dirID, SourceDir: sourceDir}, nil
}
