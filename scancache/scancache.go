// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package scancache implements an optional quick-rescan index that
// lets a snapshot run skip re-hashing files whose (size, mtime) is
// unchanged since the subject's last run. It is purely a performance
// optimization, not a correctness mechanism: a missing or corrupt
// cache file degrades to "hash everything", and any cache miss gets a
// freshly computed SHA-256 pool digest. A cache hit, however, trusts
// the (size, mtime) match and returns the previously recorded digest
// without re-reading the file's content, so a file whose bytes change
// while its size and modification time coincidentally stay identical
// (clock rollback, a low-resolution filesystem timestamp, a
// touch-preserving edit) is not detected and its stale digest is
// reused.
package scancache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"

	"github.com/krico/krico-backup/digest"
	"github.com/krico/krico-backup/tempfile"
)

// entry is the on-disk record for one previously-hashed file.
type entry struct {
	Path      string `msgpack:"path"`
	Size      int64  `msgpack:"size"`
	ModTimeNs int64  `msgpack:"mtime_ns"`
	Digest    []byte `msgpack:"digest"` // SHA-256 pool digest
}

// Cache is a subject-scoped index, keyed by the BLAKE3 fingerprint of
// each file's relative path.
type Cache struct {
	path string

	mu      sync.Mutex
	entries map[string]entry
	dirty   bool
}

func fingerprint(relPath string) string {
	sum := blake3.Sum256([]byte(relPath))
	return fmt.Sprintf("%x", sum)
}

// Load reads path (a subject's "scancache" file), returning an empty,
// bindable Cache if the file does not exist or fails to parse.
func Load(path string) *Cache {
	c := &Cache{path: path, entries: make(map[string]entry)}
	b, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	var list []entry
	if err := msgpack.Unmarshal(b, &list); err != nil {
		return c
	}
	for _, e := range list {
		c.entries[fingerprint(e.Path)] = e
	}
	return c
}

// Lookup returns the cached SHA-256 digest for relPath if its size
// and modification time match what was recorded, and whether the
// calling loop may skip re-hashing.
func (c *Cache) Lookup(relPath string, size int64, modTime time.Time) (digest.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fingerprint(relPath)]
	if !ok || e.Size != size || e.ModTimeNs != modTime.UnixNano() {
		return digest.Result{}, false
	}
	return digest.Result{Algo: digest.SHA256, Bytes: e.Digest}, true
}

// Update records the digest computed for relPath at the given size
// and modification time.
func (c *Cache) Update(relPath string, size int64, modTime time.Time, d digest.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint(relPath)] = entry{
		Path:      relPath,
		Size:      size,
		ModTimeNs: modTime.UnixNano(),
		Digest:    append([]byte(nil), d.Bytes...),
	}
	c.dirty = true
}

// Save persists the cache via write-then-rename, if anything changed
// since Load, and returns any encode or write error to the caller.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	list := make([]entry, 0, len(c.entries))
	for _, e := range c.entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Path < list[j].Path })

	buf := &bytes.Buffer{}
	enc := msgpack.NewEncoder(buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(list); err != nil {
		return fmt.Errorf("scancache: encode: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("scancache: mkdir %s: %w", dir, err)
	}
	tmp, err := tempfile.NewFile(dir, filepath.Base(c.path)+".tmp-", "")
	if err != nil {
		return err
	}
	defer tmp.Remove()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("scancache: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("scancache: close: %w", err)
	}
	if err := os.Rename(tmp.Path, c.path); err != nil {
		return fmt.Errorf("scancache: rename: %w", err)
	}
	c.dirty = false
	return nil
}
