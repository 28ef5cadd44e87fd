// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package repository implements the facade that owns a repository's
// lock, config, log, and subject registry, and coordinates the
// add-directory and run-backup operations.
package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/krico/krico-backup/backuplog"
	"github.com/krico/krico-backup/config"
	"github.com/krico/krico-backup/digest"
	"github.com/krico/krico-backup/directory"
	"github.com/krico/krico-backup/filelock"
	"github.com/krico/krico-backup/pathutil"
	"github.com/krico/krico-backup/pool"
	"github.com/krico/krico-backup/scancache"
)

const (
	metaDirName   = ".krico-backup"
	lockFileName  = "krico-backup.lock"
	configName    = "config"
	logDirName    = "log"
	dirsDirName   = "dirs"
	hlinksDirName = "hlinks"
)

// ErrNotInitialized is returned by Open when root has no metadata tree.
var ErrNotInitialized = errors.New("repository: not initialized")

// ErrAlreadyInitialized is returned by Initialize when root already
// has a metadata tree.
var ErrAlreadyInitialized = errors.New("repository: already initialized")

// ErrNotLocked is returned by any operation that requires the
// repository lock after Unlock has been called.
var ErrNotLocked = errors.New("repository: not locked")

// ErrInvalidPath is returned by AddDirectory for a user directory or
// source directory that violates the placement invariants.
var ErrInvalidPath = errors.New("repository: invalid path")

// ErrDuplicate is returned by AddDirectory for a subject id that is
// already registered.
var ErrDuplicate = errors.New("repository: duplicate subject")

// Repository is an opened, locked repository rooted at Root.
type Repository struct {
	Root    string
	MetaDir string

	lock *filelock.Lock
	cfg  *config.Store
	log  *backuplog.Log
}

func metaDir(root string) string   { return filepath.Join(root, metaDirName) }
func dirsDir(meta string) string   { return filepath.Join(meta, dirsDirName) }
func hlinksDir(meta string) string { return filepath.Join(meta, hlinksDirName) }

func nowRFC3339Nano() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// Initialize creates the metadata tree at root and returns it opened
// and locked. root must already exist and must not already carry a
// metadata directory.
func Initialize(root string, author string) (*Repository, error) {
	st, err := os.Stat(root)
	if err != nil || !st.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, root)
	}
	meta := metaDir(root)
	if _, err := os.Stat(meta); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInitialized, root)
	}
	if err := os.MkdirAll(meta, 0o755); err != nil {
		return nil, fmt.Errorf("repository: mkdir %s: %w", meta, err)
	}

	r, err := open(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dirsDir(r.MetaDir), 0o755); err != nil {
		return nil, fmt.Errorf("repository: mkdir %s: %w", dirsDir(r.MetaDir), err)
	}
	if _, err := r.log.PutInit(author); err != nil {
		return nil, err
	}
	if err := r.cfg.Set("metadata", "", "init-ts", nowRFC3339Nano()); err != nil {
		return nil, err
	}
	return r, nil
}

// Open opens an existing repository at root, acquiring its exclusive
// lock.
func Open(root string) (*Repository, error) {
	meta := metaDir(root)
	if st, err := os.Stat(meta); err != nil || !st.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, root)
	}
	return open(root)
}

func open(root string) (*Repository, error) {
	meta := metaDir(root)
	lockPath := filepath.Join(meta, lockFileName)
	lock, err := filelock.Acquire(lockPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(filepath.Join(meta, configName))
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	l, err := backuplog.Open(filepath.Join(meta, logDirName))
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return &Repository{Root: root, MetaDir: meta, lock: lock, cfg: cfg, log: l}, nil
}

// Config returns the repository's config store, failing ErrNotLocked
// if Unlock has already been called.
func (r *Repository) Config() (*config.Store, error) {
	if !r.lock.Locked() {
		return nil, ErrNotLocked
	}
	return r.cfg, nil
}

// Log returns the repository's append-only record log, failing
// ErrNotLocked if Unlock has already been called.
func (r *Repository) Log() (*backuplog.Log, error) {
	if !r.lock.Locked() {
		return nil, ErrNotLocked
	}
	return r.log, nil
}

// Unlock releases the repository lock; a repeated call returns
// ErrNotLocked.
func (r *Repository) Unlock() error {
	err := r.lock.Unlock()
	if errors.Is(err, filelock.ErrNotLocked) {
		return ErrNotLocked
	}
	return err
}

// AddDirectory registers a new subject: userDir (relative to Root)
// must be a lexical sub-path of Root but not of MetaDir and must not
// already exist on disk; sourceDir must be an existing directory.
func (r *Repository) AddDirectory(userDir, sourceDir, author string) (*directory.Directory, error) {
	if !r.lock.Locked() {
		return nil, ErrNotLocked
	}

	id := directory.NewID(userDir)
	absUserDir := id.UserDir(r.Root)
	if !pathutil.IsLexicalSubPath(absUserDir, r.Root) {
		return nil, fmt.Errorf("%w: %s is outside the repository", ErrInvalidPath, userDir)
	}
	if pathutil.IsLexicalSubPath(absUserDir, r.MetaDir) {
		return nil, fmt.Errorf("%w: %s is inside the metadata directory", ErrInvalidPath, userDir)
	}
	d := directory.New(r.Root, dirsDir(r.MetaDir), id)
	if _, err := os.Stat(filepath.Join(d.MetaDir, "target")); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, userDir)
	}
	if _, err := os.Lstat(absUserDir); err == nil {
		return nil, fmt.Errorf("%w: %s already exists", ErrInvalidPath, userDir)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("repository: lstat %s: %w", absUserDir, err)
	}

	st, err := os.Lstat(sourceDir)
	if err != nil || st.Mode()&os.ModeSymlink != 0 || !st.IsDir() {
		return nil, fmt.Errorf("%w: source %s must be an existing directory, not a symlink or file", ErrInvalidPath, sourceDir)
	}
	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("repository: resolve %s: %w", sourceDir, err)
	}

	if err := d.Configure(absSource); err != nil {
		return nil, err
	}
	if _, err := r.log.PutAddDirectory(author, id.IDPath(), absSource); err != nil {
		return nil, err
	}
	return d, nil
}

// ListDirectories returns every registered subject, sorted by id
// string (the normalized subject path), not by on-disk metadata
// folder name.
func (r *Repository) ListDirectories() ([]*directory.Directory, error) {
	if !r.lock.Locked() {
		return nil, ErrNotLocked
	}
	entries, err := os.ReadDir(dirsDir(r.MetaDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("repository: read %s: %w", dirsDir(r.MetaDir), err)
	}
	var out []*directory.Directory
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		d, err := directory.Load(r.Root, dirsDir(r.MetaDir), e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// GetDirectory loads the subject registered for userDir, if any.
func (r *Repository) GetDirectory(userDir string) (*directory.Directory, bool, error) {
	if !r.lock.Locked() {
		return nil, false, ErrNotLocked
	}
	id := directory.NewID(userDir)
	d, err := directory.Load(r.Root, dirsDir(r.MetaDir), id.IDPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return d, true, nil
}

// RunBackup performs one end-to-end snapshot run against d: scan,
// dedup-copy-or-link, symlink materialization, pointer rotation,
// summary finalization, then appends a RunBackup log record.
func (r *Repository) RunBackup(d *directory.Directory, author string) (*pool.Result, error) {
	if !r.lock.Locked() {
		return nil, ErrNotLocked
	}
	source, err := d.SourceDir()
	if err != nil {
		return nil, err
	}

	p := pool.Open(hlinksDir(r.MetaDir))
	cache := scancache.Load(filepath.Join(d.MetaDir, "scancache"))
	subject := pool.Subject{Dir: d.Dir, MetaDir: d.MetaDir, SourceDir: source}

	result, err := p.Run(subject, cache)
	if err != nil {
		return nil, err
	}
	if err := cache.Save(); err != nil {
		return nil, fmt.Errorf("repository: save scancache: %w", err)
	}

	checksum := result.Summary.Checksum
	if checksum.Bytes == nil {
		checksum = digest.SHA1Zero
	}
	_, err = r.log.PutRunBackup(author, backuplog.RunBackupFields{
		DirectoryID:        d.ID.IDPath(),
		Date:               result.Date,
		BackupID:           result.BackupID,
		StartTime:          result.StartTime,
		EndTime:            result.EndTime,
		NumDirectories:     result.Summary.NumDirectories,
		NumCopiedFiles:     result.Summary.NumCopiedFiles,
		NumHardLinkedFiles: result.Summary.NumHardLinkedFiles,
		NumSymlinks:        result.Summary.NumSymlinks,
		PreviousTarget:     result.PreviousTarget,
		CurrentTarget:      result.CurrentTarget,
		Checksum:           checksum,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
