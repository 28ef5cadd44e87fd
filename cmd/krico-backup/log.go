// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/krico/krico-backup/digest"
	"github.com/krico/krico-backup/record"
	"github.com/krico/krico-backup/repository"
	"github.com/krico/krico-backup/summary"
)

func runLog(root string, args []string) error {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	n := fs.Int("n", 0, "show at most N records (0 = no limit)")
	skip := fs.Int("s", 0, "skip the first N records")
	one := fs.Bool("1", false, "show only the single most recent record")
	full := fs.Bool("f", false, "show full record details")
	fileList := fs.Bool("file-list", false, "for RunBackup records, also print the summary's file list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *one {
		*n = 1
	}

	r, err := repository.Open(root)
	if err != nil {
		return err
	}
	defer r.Unlock()
	l, err := r.Log()
	if err != nil {
		return err
	}

	start := l.Head()
	if rest := fs.Args(); len(rest) > 0 {
		matches, err := l.FindHash(rest[0])
		if err != nil {
			return err
		}
		switch len(matches) {
		case 0:
			return fmt.Errorf("log: no record matches %q", rest[0])
		case 1:
			start, err = digest.Parse(digest.SHA1, matches[0])
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("log: %q is ambiguous (%d matches)", rest[0], len(matches))
		}
	}

	if start.IsZero() {
		return nil
	}
	cur := start
	shown := 0
	skipped := 0
	for {
		rec, err := l.GetRecord(cur)
		if err != nil {
			return err
		}
		if skipped < *skip {
			skipped++
		} else {
			if *n > 0 && shown >= *n {
				break
			}
			printRecord(cur, rec, *full, *fileList, root)
			shown++
		}
		prev := rec.Header().Prev
		if prev.IsZero() {
			break
		}
		cur = prev
	}
	return nil
}

func printRecord(hash digest.Result, rec record.Record, full, fileList bool, root string) {
	hdr := rec.Header()
	fmt.Printf("%s %s %s %s\n", hash.Hex(), hdr.Type, hdr.Time.Format("2006-01-02T15:04:05Z07:00"), hdr.Author)
	if !full {
		return
	}
	switch r := rec.(type) {
	case *record.AddDirectory:
		fmt.Printf("  directory=%s source=%s\n", r.DirectoryID, r.SourceDir)
	case *record.RunBackup:
		fmt.Printf("  directory=%s backup=%s dirs=%d copied=%d hardlinked=%d symlinks=%d checksum=%s\n",
			r.DirectoryID, r.BackupID, r.NumDirectories, r.NumCopiedFiles, r.NumHardLinkedFiles, r.NumSymlinks, r.Checksum.Hex())
		fmt.Printf("  previous=%s current=%s\n", r.PreviousTarget, r.CurrentTarget)
		if fileList {
			summaryPath := filepath.Join(root, ".krico-backup", "dirs", r.DirectoryID, r.BackupID+".summary")
			lines, err := summary.Read(summaryPath)
			if err != nil {
				fmt.Printf("  (file list unavailable: %v)\n", err)
				return
			}
			for _, ln := range lines {
				switch ln.Kind {
				case 'D':
					fmt.Printf("    D %s\n", ln.Path)
				case 'C', 'H':
					fmt.Printf("    %c %s %s\n", ln.Kind, ln.Path, ln.Digest)
				case 'L':
					fmt.Printf("    L %s -> %s\n", ln.Path, ln.Target)
				}
			}
		}
	}
}
