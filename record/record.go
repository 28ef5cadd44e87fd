// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package record implements the log's common record header and its
// three variants (Init, AddDirectory, RunBackup), matching the binary
// layout: type byte, 20-byte previous hash, 8-byte timestamp, and a
// length-prefixed author string, followed by variant-specific fields.
package record

import (
	"fmt"
	"time"

	"github.com/krico/krico-backup/digest"
	"github.com/krico/krico-backup/wire"
)

// Type discriminates the record variants. The numeric values are part
// of the wire format and must not change.
type Type byte

const (
	TypeNone         Type = 0
	TypeInit         Type = 1
	TypeAddDirectory Type = 2
	TypeRunBackup    Type = 3
)

func (t Type) String() string {
	switch t {
	case TypeInit:
		return "init"
	case TypeAddDirectory:
		return "add"
	case TypeRunBackup:
		return "run"
	default:
		return "none"
	}
}

// Header is embedded by every record variant.
type Header struct {
	Type   Type
	Prev   digest.Result // SHA-1, 20 bytes
	Time   time.Time
	Author string
}

func (h *Header) encode(w *wire.Writer) error {
	w.PutByte(byte(h.Type))
	prev := h.Prev
	if len(prev.Bytes) == 0 {
		prev = digest.SHA1Zero
	}
	w.PutBytes(prev.Bytes)
	w.PutTimestamp(h.Time)
	return w.PutString(h.Author)
}

func decodeHeader(r *wire.Reader) (Header, error) {
	typByte, err := r.GetByte()
	if err != nil {
		return Header{}, err
	}
	prevBytes, err := r.GetBytes(digest.SHA1.Length())
	if err != nil {
		return Header{}, err
	}
	ts, err := r.GetTimestamp()
	if err != nil {
		return Header{}, err
	}
	author, err := r.GetString()
	if err != nil {
		return Header{}, err
	}
	prev := make([]byte, len(prevBytes))
	copy(prev, prevBytes)
	return Header{
		Type:   Type(typByte),
		Prev:   digest.Result{Algo: digest.SHA1, Bytes: prev},
		Time:   ts,
		Author: author,
	}, nil
}

// Record is implemented by every record variant.
type Record interface {
	// Header returns the record's common header, by reference so
	// callers (the log) can stamp Prev/Time before encoding.
	Header() *Header
	// Encode appends the record's full wire representation (header +
	// variant tail) to w.
	Encode(w *wire.Writer) error
}

// Encode serializes rec into a standalone buffer.
func Encode(rec Record) ([]byte, error) {
	w := wire.NewWriter()
	if err := rec.Encode(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// ErrUnknownType is returned by Decode when the leading type byte does
// not match one of the known variants.
var ErrUnknownType = fmt.Errorf("record: unknown type byte")

// Decode dispatches on the leading type byte and parses buf into the
// matching variant.
func Decode(buf []byte) (Record, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("record: empty buffer")
	}
	switch Type(buf[0]) {
	case TypeInit:
		return decodeInit(buf)
	case TypeAddDirectory:
		return decodeAddDirectory(buf)
	case TypeRunBackup:
		return decodeRunBackup(buf)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, buf[0])
	}
}

// ContentHash returns the SHA-1 digest of rec's encoded bytes, which is
// both the record's content address and the value stamped into the
// next record's Prev field.
func ContentHash(rec Record) (digest.Result, error) {
	buf, err := Encode(rec)
	if err != nil {
		return digest.Result{}, err
	}
	return digest.Sum(digest.SHA1, buf), nil
}
