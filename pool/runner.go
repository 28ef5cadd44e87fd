// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/krico/krico-backup/scancache"
	"github.com/krico/krico-backup/scanner"
	"github.com/krico/krico-backup/summary"
)

const (
	previousLinkName = "previous"
	currentLinkName  = "current"
)

// Subject carries the inputs the runner needs from a backup subject,
// decoupled from the directory package to keep pool dependency-free of
// the repository layer.
type Subject struct {
	Dir       string // user-visible mirror directory
	MetaDir   string // metadata directory (snapshots + summaries live here)
	SourceDir string // absolute source tree to back up
}

// Result is everything the repository facade needs to append a
// RunBackup log record once a run completes successfully.
type Result struct {
	BackupID       string // relative path under MetaDir, e.g. "2025/1103000"
	Date           time.Time
	StartTime      time.Time
	EndTime        time.Time
	PreviousTarget string
	CurrentTarget  string
	Summary        *summary.Summary
}

// Run materializes one dated snapshot of subject.SourceDir into a
// freshly allocated snapshot directory, deduplicating file contents
// through the pool, then rotates the subject's previous/current
// pointer symlinks. cache may be nil; it is only a rescan
// optimization.
func (p *Pool) Run(subject Subject, cache *scancache.Cache) (*Result, error) {
	startTime := time.Now().UTC()
	date := startTime.Truncate(24 * time.Hour)

	backupID, backupDir, err := determineBackupDir(subject.MetaDir, date)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(backupDir); err == nil {
		return nil, fmt.Errorf("pool: backup directory already exists %q", backupDir)
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("pool: mkdir %s: %w", backupDir, err)
	}

	builder, err := summary.NewBuilder(filepath.Join(subject.MetaDir, backupID+".summary"))
	if err != nil {
		return nil, err
	}

	walkErr := scanner.Walk(subject.SourceDir, func(e scanner.Entry) error {
		toPath := filepath.Join(backupDir, e.RelativePath)
		switch e.Kind {
		case scanner.KindDirectory:
			return p.backupDir(toPath, e.RelativePath, builder)
		case scanner.KindFile:
			return p.backupFile(e, toPath, cache, builder)
		case scanner.KindSymlink:
			return p.backupSymlink(e, toPath, builder)
		default:
			return fmt.Errorf("pool: unsupported entry %q", e.RelativePath)
		}
	})
	if walkErr != nil {
		_ = builder.Abort()
		return nil, walkErr
	}

	finishedSummary, err := builder.Build()
	if err != nil {
		return nil, err
	}

	previousTarget, currentTarget, err := rotatePointers(subject.Dir, backupDir)
	if err != nil {
		return nil, err
	}

	return &Result{
		BackupID:       backupID,
		Date:           date,
		StartTime:      startTime,
		EndTime:        time.Now().UTC(),
		PreviousTarget: previousTarget,
		CurrentTarget:  currentTarget,
		Summary:        finishedSummary,
	}, nil
}

// determineBackupDir scans metaDir/YYYY/MMDDNNN for the first counter
// (000..999) that does not yet exist.
func determineBackupDir(metaDir string, date time.Time) (backupID, backupDir string, err error) {
	yearDir := date.Format("2006")
	dayPrefix := date.Format("0102")
	for n := 0; n < 1000; n++ {
		id := fmt.Sprintf("%s/%s%03d", yearDir, dayPrefix, n)
		dir := filepath.Join(metaDir, filepath.FromSlash(id))
		if _, err := os.Lstat(dir); os.IsNotExist(err) {
			return id, dir, nil
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrTooManyBackups, date.Format("2006-01-02"))
}

func (p *Pool) backupDir(toPath, relPath string, builder *summary.Builder) error {
	if st, err := os.Lstat(toPath); err == nil {
		if !st.IsDir() {
			return fmt.Errorf("pool: expected dir but got file %q", toPath)
		}
	} else if os.IsNotExist(err) {
		if err := os.Mkdir(toPath, 0o755); err != nil {
			return fmt.Errorf("pool: mkdir %s: %w", toPath, err)
		}
	} else {
		return fmt.Errorf("pool: stat %s: %w", toPath, err)
	}
	return builder.AddDir(relPath)
}

func (p *Pool) backupFile(e scanner.Entry, toPath string, cache *scancache.Cache, builder *summary.Builder) error {
	d, err := digestFile(e.AbsolutePath, e.RelativePath, cache)
	if err != nil {
		return err
	}
	poolPath, created, err := p.put(e.AbsolutePath, d)
	if err != nil {
		return err
	}
	if err := os.Link(poolPath, toPath); err != nil {
		return fmt.Errorf("pool: link %s to %s: %w", poolPath, toPath, err)
	}
	if created {
		return builder.AddCopiedFile(e.RelativePath, d)
	}
	return builder.AddHardLinkedFile(e.RelativePath, d)
}

func (p *Pool) backupSymlink(e scanner.Entry, toPath string, builder *summary.Builder) error {
	if err := os.Symlink(e.RelativeTarget, toPath); err != nil {
		return fmt.Errorf("pool: symlink %s -> %s: %w", toPath, e.RelativeTarget, err)
	}
	return builder.AddSymlink(e.RelativePath, e.RelativeTarget)
}

// rotatePointers removes a previous symlink (if one exists), promotes
// current to previous, then points current at the new backupDir,
// failing if either pointer exists as something other than a symlink.
func rotatePointers(subjectDir, backupDir string) (previousTarget, currentTarget string, err error) {
	previous := filepath.Join(subjectDir, previousLinkName)
	current := filepath.Join(subjectDir, currentLinkName)

	if st, err := os.Lstat(previous); err == nil {
		if st.Mode()&os.ModeSymlink == 0 {
			return "", "", fmt.Errorf("pool: previous %q is not a symlink", previous)
		}
		if err := os.Remove(previous); err != nil {
			return "", "", fmt.Errorf("pool: remove %s: %w", previous, err)
		}
	} else if !os.IsNotExist(err) {
		return "", "", fmt.Errorf("pool: lstat %s: %w", previous, err)
	}

	if st, err := os.Lstat(current); err == nil {
		if st.Mode()&os.ModeSymlink == 0 {
			return "", "", fmt.Errorf("pool: current %q is not a symlink", current)
		}
		oldCurrentTarget, err := os.Readlink(current)
		if err != nil {
			return "", "", fmt.Errorf("pool: readlink %s: %w", current, err)
		}
		if err := os.Rename(current, previous); err != nil {
			return "", "", fmt.Errorf("pool: rename %s to %s: %w", current, previous, err)
		}
		previousTarget = oldCurrentTarget
	} else if !os.IsNotExist(err) {
		return "", "", fmt.Errorf("pool: lstat %s: %w", current, err)
	}

	newTarget, err := filepath.Rel(subjectDir, backupDir)
	if err != nil {
		return "", "", fmt.Errorf("pool: relativize %s against %s: %w", backupDir, subjectDir, err)
	}
	if err := os.Symlink(newTarget, current); err != nil {
		return "", "", fmt.Errorf("pool: symlink %s -> %s: %w", current, newTarget, err)
	}
	return previousTarget, newTarget, nil
}
