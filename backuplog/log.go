// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package backuplog implements the hash-chained, content-addressed
// append-only record log: HEAD pointer, put/get by digest, and prefix
// search.
package backuplog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/krico/krico-backup/digest"
	"github.com/krico/krico-backup/record"
	"github.com/krico/krico-backup/tempfile"
)

var log = logrus.WithField("component", "backuplog")

// ErrCorrupt is returned when a log record file is missing, truncated,
// or carries an unknown type byte, or HEAD fails to parse.
var ErrCorrupt = errors.New("backuplog: corrupt")

const headFileName = "HEAD"

const splitDirs = 1 // one directory split: aa/bbbbbb...

// Log is the append-only record stream rooted at dir (a repository's
// meta/log directory).
type Log struct {
	dir  string
	head digest.Result
}

// Open binds a Log to dir, reading its current HEAD (the algorithm's
// zero value if the file is absent).
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("backuplog: mkdir %s: %w", dir, err)
	}
	l := &Log{dir: dir, head: digest.SHA1Zero}
	headPath := filepath.Join(dir, headFileName)
	b, err := os.ReadFile(headPath)
	switch {
	case err == nil:
		hex := strings.TrimSpace(string(b))
		h, err := digest.Parse(digest.SHA1, hex)
		if err != nil {
			return nil, fmt.Errorf("%w: HEAD %q: %v", ErrCorrupt, hex, err)
		}
		l.head = h
	case os.IsNotExist(err):
		// head stays at the zero value
	default:
		return nil, fmt.Errorf("backuplog: read HEAD: %w", err)
	}
	return l, nil
}

// Head returns the digest of the most recently appended record.
func (l *Log) Head() digest.Result { return l.head }

// PutRecord stamps rec's Prev/Time fields, serializes it, writes it
// under its content-addressed path, and rotates HEAD to point at it.
func (l *Log) PutRecord(rec record.Record) (digest.Result, error) {
	hdr := rec.Header()
	hdr.Prev = l.head
	hdr.Time = time.Now().UTC()

	buf, err := record.Encode(rec)
	if err != nil {
		return digest.Result{}, fmt.Errorf("backuplog: encode: %w", err)
	}
	h := digest.Sum(digest.SHA1, buf)

	recPath := filepath.Join(l.dir, h.Path(splitDirs))
	if err := os.MkdirAll(filepath.Dir(recPath), 0o755); err != nil {
		return digest.Result{}, fmt.Errorf("backuplog: mkdir: %w", err)
	}
	if err := os.WriteFile(recPath, buf, 0o644); err != nil {
		return digest.Result{}, fmt.Errorf("backuplog: write %s: %w", recPath, err)
	}

	if err := l.writeHead(h); err != nil {
		return digest.Result{}, err
	}
	l.head = h
	log.Debugf("appended %s record %s", hdr.Type, h.Hex())
	return h, nil
}

func (l *Log) writeHead(h digest.Result) error {
	tmp, err := tempfile.NewFile(l.dir, "HEAD.tmp-", "")
	if err != nil {
		return fmt.Errorf("backuplog: HEAD tmp: %w", err)
	}
	defer tmp.Remove()
	if _, err := tmp.WriteString(h.Hex()); err != nil {
		return fmt.Errorf("backuplog: write HEAD tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("backuplog: close HEAD tmp: %w", err)
	}
	if err := os.Rename(tmp.Path, filepath.Join(l.dir, headFileName)); err != nil {
		return fmt.Errorf("backuplog: rename HEAD: %w", err)
	}
	return nil
}

// GetRecord reads and decodes the record at digest h.
func (l *Log) GetRecord(h digest.Result) (record.Record, error) {
	path := filepath.Join(l.dir, h.Path(splitDirs))
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: record %s not found", ErrCorrupt, h.Hex())
		}
		return nil, fmt.Errorf("backuplog: read %s: %w", path, err)
	}
	rec, err := record.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return rec, nil
}

// FindHash resolves a (possibly partial) hex prefix to the set of
// matching record digests, per the rules: empty prefix matches
// nothing; a full 40-char hex matches itself iff the file exists; a
// single leading hex char scans every two-char sub-directory sharing
// it; two or more leading chars scan only the matching sub-directory.
func (l *Log) FindHash(prefix string) ([]string, error) {
	prefix = strings.ToLower(prefix)
	switch {
	case prefix == "":
		return nil, nil
	case len(prefix) >= 40:
		path := filepath.Join(l.dir, prefix[:2], prefix[2:])
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("backuplog: stat %s: %w", path, err)
		}
		return []string{prefix}, nil
	case len(prefix) == 1:
		return l.findBySingleChar(prefix[0])
	default:
		return l.findByDir(prefix[:2], prefix[2:])
	}
}

func (l *Log) findBySingleChar(c byte) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("backuplog: read %s: %w", l.dir, err)
	}
	var out []string
	for _, de := range entries {
		name := de.Name()
		if !de.IsDir() || len(name) != 2 || name[0] != c {
			continue
		}
		matches, err := l.findByDir(name, "")
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	sort.Strings(out)
	return out, nil
}

func (l *Log) findByDir(subdir, remainder string) ([]string, error) {
	dirPath := filepath.Join(l.dir, subdir)
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("backuplog: read %s: %w", dirPath, err)
	}
	var out []string
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if strings.HasPrefix(name, remainder) {
			out = append(out, subdir+name)
		}
	}
	sort.Strings(out)
	return out, nil
}
