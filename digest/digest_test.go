// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package digest

import "testing"

func TestSha1AndMd5Vectors(t *testing.T) {
	const input = "Hello OpenSSL krico-backup world"
	if got, want := Sha1Sum(input), "da8eab09d9a8dd6b450cb2184b9d1135cc5260c9"; got != want {
		t.Fatalf("Sha1Sum() = %s, want %s", got, want)
	}
	if got, want := Md5Sum(input), "956c693dd8533233810472f64715964c"; got != want {
		t.Fatalf("Md5Sum() = %s, want %s", got, want)
	}
}

func TestZeroValues(t *testing.T) {
	if !SHA1Zero.IsZero() || !SHA256Zero.IsZero() || !MD5Zero.IsZero() {
		t.Fatal("zero values must be zero")
	}
	if SHA1Zero.Equal(SHA256Zero) {
		t.Fatal("zero values of different algorithms must not be equal")
	}
}

func TestDigestStability(t *testing.T) {
	d := New(SHA256)
	_, _ = d.Write([]byte("abc"))
	first := d.Sum()
	d.Reset()
	_, _ = d.Write([]byte("abc"))
	second := d.Sum()
	if !first.Equal(second) {
		t.Fatal("hashing the same bytes twice must produce the same result")
	}
}

func TestPathShape(t *testing.T) {
	r := Sum(SHA1, []byte("x"))
	for dirs := 0; dirs <= len(r.Bytes); dirs++ {
		p := r.Path(dirs)
		wantLen := dirs*3 + (2*(len(r.Bytes)-dirs))
		if len(p) != wantLen {
			t.Fatalf("Path(%d) = %q (len %d), want len %d", dirs, p, len(p), wantLen)
		}
	}
}

func TestParseRejectsOddLength(t *testing.T) {
	if _, err := Parse(SHA1, "abc"); err == nil {
		t.Fatal("expected error for odd-length hex")
	}
	if _, err := Parse(SHA1, "ab"); err == nil {
		t.Fatal("expected error for short hex")
	}
}
