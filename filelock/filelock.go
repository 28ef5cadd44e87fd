// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package filelock implements an advisory, non-blocking, exclusive
// whole-file lock tied to an open file descriptor, used to guarantee
// that only one process operates on a repository's metadata tree at a
// time.
package filelock

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "filelock")

// ErrLocked is returned when another process already holds the lock.
var ErrLocked = errors.New("filelock: locked by another process")

// ErrNotLocked is returned by Unlock on a lock that has already been
// released.
var ErrNotLocked = errors.New("filelock: not locked")

// Lock is a move-only handle on an acquired advisory lock. The zero
// value is not a valid Lock; obtain one via Acquire or TryAcquire.
type Lock struct {
	path string
	f    *os.File
}

// Acquire opens (creating if necessary) the file at path and attempts
// to acquire a non-blocking exclusive flock on it. It fails with
// ErrLocked if another process holds the lock.
func Acquire(path string) (*Lock, error) {
	l, ok, err := TryAcquire(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return l, nil
}

// TryAcquire behaves like Acquire but returns (nil, false, nil) instead
// of an error when the lock is already held.
func TryAcquire(path string) (*Lock, bool, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("filelock: open %s: %w", path, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			log.Debugf("contended %s", path)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("filelock: flock %s: %w", path, err)
	}
	log.Debugf("acquired %s", path)
	return &Lock{path: path, f: f}, true, nil
}

// Unlock releases the lock and closes the underlying descriptor. A
// second call returns ErrNotLocked.
func (l *Lock) Unlock() error {
	if l == nil || l.f == nil {
		return ErrNotLocked
	}
	f := l.f
	l.f = nil
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		_ = f.Close()
		return fmt.Errorf("filelock: unlock %s: %w", l.path, err)
	}
	log.Debugf("released %s", l.path)
	return f.Close()
}

// Locked reports whether the handle still owns its lock.
func (l *Lock) Locked() bool {
	return l != nil && l.f != nil
}
