// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package wire

import "time"

// Codec binds an encode/decode pair for a single Go type to the
// Writer/Reader primitives above. It is the generic analogue of the
// record field<T> template: one Codec implementation per wire shape,
// reusable across every record variant that has a field of that type.
type Codec[T any] interface {
	Encode(w *Writer, v T) error
	Decode(r *Reader) (T, error)
}

// Field binds a Codec to a value. A layout written as an ordered list
// of Fields is decoded by calling Decode on each field in turn with
// the same Reader, so offsets never need to be stored explicitly —
// each field's position is "wherever the previous field finished."
// The record variants in package record do not use Field; they call
// the Writer/Reader methods directly in the same order.
type Field[T any] struct {
	codec Codec[T]
	value T
}

// NewField constructs a Field bound to codec with an initial value.
func NewField[T any](codec Codec[T], v T) *Field[T] {
	return &Field[T]{codec: codec, value: v}
}

// Get returns the field's current value.
func (f *Field[T]) Get() T { return f.value }

// Set replaces the field's value.
func (f *Field[T]) Set(v T) { f.value = v }

// Encode appends the field's value to w.
func (f *Field[T]) Encode(w *Writer) error { return f.codec.Encode(w, f.value) }

// Decode reads the field's value from r, advancing r's offset, and
// stores it.
func (f *Field[T]) Decode(r *Reader) error {
	v, err := f.codec.Decode(r)
	if err != nil {
		return err
	}
	f.value = v
	return nil
}

// Concrete codecs for the wire shapes named in the record layout.

type byteCodec struct{}

func (byteCodec) Encode(w *Writer, v byte) error { w.PutByte(v); return nil }
func (byteCodec) Decode(r *Reader) (byte, error) { return r.GetByte() }

// ByteCodec encodes a single raw byte (used for the record type tag
// and for single-byte enums).
var ByteCodec Codec[byte] = byteCodec{}

type uint32Codec struct{}

func (uint32Codec) Encode(w *Writer, v uint32) error { w.PutUint32LE(v); return nil }
func (uint32Codec) Decode(r *Reader) (uint32, error) { return r.GetUint32LE() }

// Uint32Codec encodes a fixed-width little-endian uint32 (counts,
// packed dates).
var Uint32Codec Codec[uint32] = uint32Codec{}

type uint64Codec struct{}

func (uint64Codec) Encode(w *Writer, v uint64) error { w.PutUint64LE(v); return nil }
func (uint64Codec) Decode(r *Reader) (uint64, error) { return r.GetUint64LE() }

// Uint64Codec encodes a fixed-width little-endian uint64.
var Uint64Codec Codec[uint64] = uint64Codec{}

type stringCodec struct{}

func (stringCodec) Encode(w *Writer, v string) error { return w.PutString(v) }
func (stringCodec) Decode(r *Reader) (string, error) { return r.GetString() }

// StringCodec encodes a dynamic-int length-prefixed string; also used
// for paths, which travel on the wire as their native string form.
var StringCodec Codec[string] = stringCodec{}

type dateCodec struct{}

func (dateCodec) Encode(w *Writer, v time.Time) error { w.PutDate(v); return nil }
func (dateCodec) Decode(r *Reader) (time.Time, error) { return r.GetDate() }

// DateCodec encodes a YYYYMMDD-packed date.
var DateCodec Codec[time.Time] = dateCodec{}

type timestampCodec struct{}

func (timestampCodec) Encode(w *Writer, v time.Time) error { w.PutTimestamp(v); return nil }
func (timestampCodec) Decode(r *Reader) (time.Time, error) { return r.GetTimestamp() }

// TimestampCodec encodes nanoseconds-since-epoch as a fixed uint64.
var TimestampCodec Codec[time.Time] = timestampCodec{}

// digestCodec encodes a fixed-length raw byte digest (its length is
// algorithm-defined, so each instance is parameterized by n).
type digestCodec struct{ n int }

func (d digestCodec) Encode(w *Writer, v []byte) error {
	if len(v) != d.n {
		v = append(make([]byte, 0, d.n), v...)
		for len(v) < d.n {
			v = append(v, 0)
		}
	}
	w.PutBytes(v)
	return nil
}

func (d digestCodec) Decode(r *Reader) ([]byte, error) {
	b, err := r.GetBytes(d.n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, d.n)
	copy(out, b)
	return out, nil
}

// DigestCodec encodes a raw digest of exactly n bytes.
func DigestCodec(n int) Codec[[]byte] { return digestCodec{n: n} }
