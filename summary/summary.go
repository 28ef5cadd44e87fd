// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package summary implements the per-snapshot manifest: a builder that
// appends D/C/H/L lines as the pool runner produces entries, tracks a
// running SHA-1 over the entry stream, and finalizes the file with a
// trailing checksum line via write-then-rename.
package summary

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/krico/krico-backup/digest"
	"github.com/krico/krico-backup/tempfile"
)

// Summary is the result of a finalized Builder: counts and the final
// checksum, plus the path it was written to.
type Summary struct {
	Path               string
	NumDirectories     uint32
	NumCopiedFiles     uint32
	NumHardLinkedFiles uint32
	NumSymlinks        uint32
	Checksum           digest.Result
}

// Builder accumulates a summary's lines and running checksum as a
// snapshot run progresses.
type Builder struct {
	finalPath string
	tmp       *tempfile.File
	w         *bufio.Writer
	running   *digest.Digest

	numDirectories     uint32
	numCopiedFiles     uint32
	numHardLinkedFiles uint32
	numSymlinks        uint32
}

// NewBuilder stages a temp file alongside finalPath (the
// "backup_id.summary" file inside the subject's metadata dir).
func NewBuilder(finalPath string) (*Builder, error) {
	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("summary: mkdir %s: %w", dir, err)
	}
	tmp, err := tempfile.NewFile(dir, filepath.Base(finalPath)+".tmp-", "")
	if err != nil {
		return nil, err
	}
	return &Builder{
		finalPath: finalPath,
		tmp:       tmp,
		w:         bufio.NewWriter(tmp.File),
		running:   digest.New(digest.SHA1),
	}, nil
}

// AddDir records a directory entry: "D path". The running checksum is
// updated with SHA1-ZERO followed by the path bytes.
func (b *Builder) AddDir(path string) error {
	if _, err := fmt.Fprintf(b.w, "D %s\n", path); err != nil {
		return err
	}
	_, _ = b.running.Write(digest.SHA1Zero.Bytes)
	_, _ = b.running.Write([]byte(path))
	b.numDirectories++
	return nil
}

// AddCopiedFile records a copied file entry: "C path digest". The
// running checksum is updated with the file digest followed by the
// path bytes.
func (b *Builder) AddCopiedFile(path string, fileDigest digest.Result) error {
	if _, err := fmt.Fprintf(b.w, "C %s %s\n", path, fileDigest.Hex()); err != nil {
		return err
	}
	_, _ = b.running.Write(fileDigest.Bytes)
	_, _ = b.running.Write([]byte(path))
	b.numCopiedFiles++
	return nil
}

// AddHardLinkedFile records a hard-linked file entry: "H path digest".
func (b *Builder) AddHardLinkedFile(path string, fileDigest digest.Result) error {
	if _, err := fmt.Fprintf(b.w, "H %s %s\n", path, fileDigest.Hex()); err != nil {
		return err
	}
	_, _ = b.running.Write(fileDigest.Bytes)
	_, _ = b.running.Write([]byte(path))
	b.numHardLinkedFiles++
	return nil
}

// AddSymlink records a symlink entry: "L path target". The running
// checksum is updated with the path bytes followed by the target
// bytes (no digest, unlike D/C/H).
func (b *Builder) AddSymlink(path, target string) error {
	if _, err := fmt.Fprintf(b.w, "L %s %s\n", path, target); err != nil {
		return err
	}
	_, _ = b.running.Write([]byte(path))
	_, _ = b.running.Write([]byte(target))
	b.numSymlinks++
	return nil
}

// Build appends the final "S checksum" line, renames the temp file
// into place, and returns the finalized Summary.
func (b *Builder) Build() (*Summary, error) {
	checksum := b.running.Sum()
	if _, err := fmt.Fprintf(b.w, "S %s\n", checksum.Hex()); err != nil {
		return nil, err
	}
	if err := b.w.Flush(); err != nil {
		return nil, fmt.Errorf("summary: flush: %w", err)
	}
	if err := b.tmp.Close(); err != nil {
		return nil, fmt.Errorf("summary: close: %w", err)
	}
	if err := os.Rename(b.tmp.Path, b.finalPath); err != nil {
		return nil, fmt.Errorf("summary: rename %s to %s: %w", b.tmp.Path, b.finalPath, err)
	}
	return &Summary{
		Path:               b.finalPath,
		NumDirectories:     b.numDirectories,
		NumCopiedFiles:     b.numCopiedFiles,
		NumHardLinkedFiles: b.numHardLinkedFiles,
		NumSymlinks:        b.numSymlinks,
		Checksum:           checksum,
	}, nil
}

// Abort discards the staged temp file without finalizing the summary,
// used when a run fails partway through.
func (b *Builder) Abort() error {
	return b.tmp.Remove()
}

// Line is one parsed manifest entry, used for read-only inspection
// (e.g. the CLI's "log --file-list").
type Line struct {
	Kind   byte // 'D', 'C', 'H', 'L', or 'S'
	Path   string
	Digest string // hex, for C/H
	Target string // for L
}

// Read parses a finalized summary file back into its lines.
func Read(path string) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("summary: open %s: %w", path, err)
	}
	defer f.Close()

	var lines []Line
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}
		parts := strings.SplitN(text, " ", 3)
		l := Line{Kind: text[0]}
		switch l.Kind {
		case 'D':
			if len(parts) >= 2 {
				l.Path = parts[1]
			}
		case 'C', 'H':
			if len(parts) >= 3 {
				l.Path, l.Digest = parts[1], parts[2]
			}
		case 'L':
			if len(parts) >= 3 {
				l.Path, l.Target = parts[1], parts[2]
			}
		case 'S':
			if len(parts) >= 2 {
				l.Digest = parts[1]
			}
		}
		lines = append(lines, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("summary: scan %s: %w", path, err)
	}
	return lines, nil
}
