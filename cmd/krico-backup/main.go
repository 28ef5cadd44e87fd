// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Command krico-backup is the CLI front end for the krico-backup
// engine: repository initialization, subject registration, snapshot
// runs, and log/config inspection.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load(".env")

	globalFlags := flag.NewFlagSet("krico-backup", flag.ExitOnError)
	root := globalFlags.String("C", ".", "repository root directory")
	verbose := globalFlags.Bool("v", false, "enable debug logging")
	showVersion := globalFlags.Bool("version", false, "print the version and exit")
	_ = globalFlags.Parse(os.Args[1:])

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}

	if *showVersion {
		fmt.Println("krico-backup", version)
		return
	}

	args := globalFlags.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "init":
		err = runInit(*root)
	case "config":
		err = runConfig(*root, rest)
	case "add":
		err = runAdd(*root, rest)
	case "list":
		err = runList(*root)
	case "run":
		err = runRun(*root)
	case "log":
		err = runLog(*root, rest)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "krico-backup: unknown command %q\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "krico-backup: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: krico-backup [-C path] [-v] <command> [args]

commands:
  init                              initialize a repository
  config [-l | -g NAME | -s NAME VALUE]
                                     list/get/set config
  add DIR SOURCEDIR                 register a subject
  list                              print subjects
  run                                run backups for every subject
  log [-n N] [-s N] [-1] [-f] [--file-list] [HASH]
                                     walk the log
  help                               print this message
  --version                          print the version

global flags:
  -C path    repository root (default ".")
  -v         enable debug logging`)
}
