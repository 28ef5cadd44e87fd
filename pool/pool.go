// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package pool implements the content-addressed hard-link store and
// the snapshot runner that materializes a subject's source tree into
// a dated, deduplicated snapshot directory.
package pool

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/krico/krico-backup/digest"
	"github.com/krico/krico-backup/scancache"
)

var log = logrus.WithField("component", "pool")

// ErrTooManyBackups is returned when 1000 snapshots already exist for
// a subject on the same date.
var ErrTooManyBackups = errors.New("pool: too many backups for this date (max 1000)")

// Pool is the shared content-addressed store under a repository's
// meta/hlinks directory.
type Pool struct {
	dir string
}

// Open returns a Pool rooted at dir (the repository's hlinks directory).
func Open(dir string) *Pool {
	return &Pool{dir: dir}
}

// Dir returns the pool's root directory.
func (p *Pool) Dir() string { return p.dir }

// put ensures a pool object exists for the content digest, copying
// src into place on first sighting. It reports whether the object was
// newly created (Copied) as opposed to already present (HardLinked).
func (p *Pool) put(src string, d digest.Result) (poolPath string, created bool, err error) {
	poolPath = filepath.Join(p.dir, filepath.FromSlash(d.Path(2)))
	if _, err := os.Stat(poolPath); err == nil {
		log.Debugf("hard-link %s (pool object exists)", poolPath)
		return poolPath, false, nil
	} else if !os.IsNotExist(err) {
		return "", false, fmt.Errorf("pool: stat %s: %w", poolPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(poolPath), 0o755); err != nil {
		return "", false, fmt.Errorf("pool: mkdir %s: %w", filepath.Dir(poolPath), err)
	}
	tmp := poolPath + ".tmp"
	if err := copyFile(src, tmp); err != nil {
		return "", false, err
	}
	if err := os.Rename(tmp, poolPath); err != nil {
		_ = os.Remove(tmp)
		return "", false, fmt.Errorf("pool: rename %s to %s: %w", tmp, poolPath, err)
	}
	log.Debugf("copy %s (new pool object)", poolPath)
	return poolPath, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("pool: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("pool: create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("pool: copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("pool: close %s: %w", dst, err)
	}
	return nil
}

// hashFile streams src through a fresh SHA-256 digest in 8KiB chunks,
// matching the runner's original reusable-buffer read loop.
func hashFile(src string) (digest.Result, error) {
	f, err := os.Open(src)
	if err != nil {
		return digest.Result{}, fmt.Errorf("pool: open %s: %w", src, err)
	}
	defer f.Close()

	d := digest.New(digest.SHA256)
	buf := make([]byte, 8192)
	// Hide f's WriteTo so CopyBuffer reads through buf.
	if _, err := io.CopyBuffer(d, struct{ io.Reader }{f}, buf); err != nil {
		return digest.Result{}, fmt.Errorf("pool: read %s: %w", src, err)
	}
	return d.Sum(), nil
}

// fileInfoForCache reports the (size, modTime) pair scancache keys on.
func fileInfoForCache(path string) (int64, time.Time, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("pool: stat %s: %w", path, err)
	}
	return st.Size(), st.ModTime(), nil
}

// digestFile returns the SHA-256 content digest of src, consulting
// cache (if non-nil) to skip re-hashing unchanged files and updating
// it with any freshly computed digest. A cache hit is trusted as-is:
// it is not re-verified against src's actual content, so it is only
// as reliable as the (size, mtime) match scancache.Cache.Lookup made.
func digestFile(src, relPath string, cache *scancache.Cache) (digest.Result, error) {
	size, modTime, err := fileInfoForCache(src)
	if err != nil {
		return digest.Result{}, err
	}
	if cache != nil {
		if d, ok := cache.Lookup(relPath, size, modTime); ok {
			return d, nil
		}
	}
	d, err := hashFile(src)
	if err != nil {
		return digest.Result{}, err
	}
	if cache != nil {
		cache.Update(relPath, size, modTime, d)
	}
	return d, nil
}
