// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package record

import "github.com/krico/krico-backup/wire"

// Init is the first record ever appended to a repository's log. It
// carries no fields beyond the common header.
type Init struct {
	Hdr Header
}

// Header implements Record.
func (r *Init) Header() *Header { return &r.Hdr }

// Encode implements Record.
func (r *Init) Encode(w *wire.Writer) error {
	return r.Hdr.encode(w)
}

func decodeInit(buf []byte) (*Init, error) {
	hdr, err := decodeHeader(wire.NewReader(buf))
	if err != nil {
		return nil, err
	}
	return &Init{Hdr: hdr}, nil
}
