// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"

	"github.com/krico/krico-backup/repository"
)

func currentAuthor() string {
	if a := os.Getenv("KRICO_BACKUP_AUTHOR"); a != "" {
		return a
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

func runInit(root string) error {
	r, err := repository.Initialize(root, currentAuthor())
	if err != nil {
		return err
	}
	defer r.Unlock()
	fmt.Printf("initialized repository at %s\n", root)
	return nil
}

func runConfig(root string, args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	list := fs.Bool("l", false, "list all settings")
	get := fs.String("g", "", "get the named setting")
	set := fs.Bool("s", false, "set NAME VALUE")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, err := repository.Open(root)
	if err != nil {
		return err
	}
	defer r.Unlock()
	cfg, err := r.Config()
	if err != nil {
		return err
	}

	switch {
	case *set:
		rest := fs.Args()
		if len(rest) != 2 {
			return fmt.Errorf("config -s requires NAME VALUE")
		}
		return cfg.SetKey(rest[0], rest[1])
	case *get != "":
		v, ok := cfg.GetKey(*get)
		if !ok {
			return fmt.Errorf("config: %s is not set", *get)
		}
		fmt.Println(v)
		return nil
	case *list:
		fallthrough
	default:
		for _, kv := range cfg.SortedList() {
			fmt.Printf("%s = %s\n", kv.Key, kv.Value)
		}
		return nil
	}
}

func runAdd(root string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("add requires DIR SOURCEDIR")
	}
	r, err := repository.Open(root)
	if err != nil {
		return err
	}
	defer r.Unlock()

	d, err := r.AddDirectory(args[0], args[1], currentAuthor())
	if err != nil {
		return err
	}
	fmt.Printf("added %s -> %s\n", d.ID.RelativePath(), d.Source)
	return nil
}

func runList(root string) error {
	r, err := repository.Open(root)
	if err != nil {
		return err
	}
	defer r.Unlock()

	dirs, err := r.ListDirectories()
	if err != nil {
		return err
	}
	for _, d := range dirs {
		fmt.Printf("%s\t%s\n", d.ID.RelativePath(), d.Source)
	}
	return nil
}

func runRun(root string) error {
	r, err := repository.Open(root)
	if err != nil {
		return err
	}
	defer r.Unlock()

	dirs, err := r.ListDirectories()
	if err != nil {
		return err
	}
	author := currentAuthor()
	for _, d := range dirs {
		result, err := r.RunBackup(d, author)
		if err != nil {
			return fmt.Errorf("%s: %w", d.ID.RelativePath(), err)
		}
		fmt.Printf("%s: backup %s (dirs=%d copied=%d hardlinked=%d symlinks=%d)\n",
			d.ID.RelativePath(), result.BackupID, result.Summary.NumDirectories,
			result.Summary.NumCopiedFiles, result.Summary.NumHardLinkedFiles, result.Summary.NumSymlinks)
	}
	return nil
}
