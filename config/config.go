// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package config implements the git-config-style sectioned store used
// for repository metadata: "[section]" or "[section \"sub\"]" headers,
// indented "key = value" lines, "#"/";" line comments, dotted-key
// access, and atomic rewrite-via-rename updates.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/krico/krico-backup/tempfile"
)

var log = logrus.WithField("component", "config")

// ErrInvalid is the sentinel for config syntax and validation errors;
// the wrapped message carries the offending line number where one
// applies.
var ErrInvalid = errors.New("config: invalid")

type value struct {
	line  int
	value string
}

type subSection struct {
	headerLine int
	name       string
	values     map[string]*value
	order      []string // variable names, in first-seen order
}

type section struct {
	name string
	subs map[string]*subSection
	// order of sub-section names as first encountered, "" (no
	// sub-section) included if present.
	order []string
}

// Store is an in-memory, line-indexed view of one config file.
type Store struct {
	path     string
	sections map[string]*section
	list     map[string]string
}

// Load opens (creating if necessary) the config file at path and
// parses it.
func Load(path string) (*Store, error) {
	if err := ensureFile(path); err != nil {
		return nil, err
	}
	s := &Store{path: path}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func ensureFile(path string) error {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("config: create %s: %w", path, err)
		}
		defer f.Close()
		_, err = fmt.Fprintf(f, "# Created %s\n", time.Now().UTC().Format(time.RFC3339))
		return err
	case err != nil:
		return fmt.Errorf("config: stat %s: %w", path, err)
	case !info.Mode().IsRegular():
		return fmt.Errorf("%w: %s is not a regular file", ErrInvalid, path)
	default:
		return nil
	}
}

func (s *Store) reload() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", s.path, err)
	}
	defer f.Close()
	sections, list, err := parse(bufio.NewScanner(f))
	if err != nil {
		return err
	}
	s.sections = sections
	s.list = list
	return nil
}

// File returns the path of the backing config file.
func (s *Store) File() string { return s.path }

func key(sect, sub, variable string) string {
	var b strings.Builder
	if sect != "" {
		b.WriteString(sect)
		b.WriteByte('.')
	}
	if sub != "" {
		b.WriteString(sub)
		b.WriteByte('.')
	}
	b.WriteString(variable)
	return b.String()
}

// Get returns the value for (section, subSection, variable), or false
// if it is not set. Section is matched case-insensitively.
func (s *Store) Get(sect, sub, variable string) (string, bool) {
	return s.GetKey(key(strings.ToLower(sect), sub, variable))
}

// GetKey returns the value for a dotted key ("section.variable" or
// "section.sub.variable").
func (s *Store) GetKey(k string) (string, bool) {
	v, ok := s.list[k]
	return v, ok
}

// List returns every known key-value pair as a dotted-key map. The
// returned map is a copy; mutating it does not affect the store.
func (s *Store) List() map[string]string {
	out := make(map[string]string, len(s.list))
	for k, v := range s.list {
		out[k] = v
	}
	return out
}

// Set validates section/sub/variable per the store's charset rules,
// then rewrites the backing file via a sibling temp file followed by
// an atomic rename. Existing untouched lines keep their position.
func (s *Store) Set(sect, sub, variable, val string) error {
	sectionName := strings.ToLower(sect)
	if err := validateSection(sectionName); err != nil {
		return err
	}
	if err := validateSubSection(sub); err != nil {
		return err
	}
	if err := validateVariable(variable); err != nil {
		return err
	}

	sectionLine, valueLine := s.locate(sectionName, sub, variable)
	if err := s.rewrite(sectionName, sub, variable, val, sectionLine, valueLine); err != nil {
		return err
	}
	return s.reload()
}

// SetKey sets a value addressed by a dotted key, per the rule: the
// first dot separates the section; the text between the first and
// last dot (if any) is the sub-section; the final component is the
// variable name.
func (s *Store) SetKey(k, val string) error {
	firstDot := strings.IndexByte(k, '.')
	if firstDot <= 0 || firstDot == len(k)-1 {
		return fmt.Errorf("%w: key %q must be section.varname or section.subsection.varname", ErrInvalid, k)
	}
	lastDot := strings.LastIndexByte(k, '.')
	sect := k[:firstDot]
	var sub string
	if firstDot != lastDot {
		sub = k[firstDot+1 : lastDot]
	}
	variable := k[lastDot+1:]
	return s.Set(sect, sub, variable, val)
}

func (s *Store) locate(sectionName, sub, variable string) (sectionLine, valueLine int) {
	sc, ok := s.sections[sectionName]
	if !ok {
		return 0, 0
	}
	ss, ok := sc.subs[sub]
	if !ok {
		return 0, 0
	}
	sectionLine = ss.headerLine
	if v, ok := ss.values[variable]; ok {
		valueLine = v.line
	}
	return sectionLine, valueLine
}

func validateSection(s string) error {
	for _, c := range s {
		if !isAlnum(byte(c)) && c != '-' {
			return fmt.Errorf("%w: section %q (only alphanumeric and '-')", ErrInvalid, s)
		}
	}
	if s == "" {
		return fmt.Errorf("%w: section cannot be empty", ErrInvalid)
	}
	return nil
}

func validateSubSection(s string) error {
	for _, c := range s {
		if c == '\n' || c == 0 || c == '"' || c == '\\' {
			return fmt.Errorf("%w: sub-section %q cannot contain new-line, null byte, '\"' or '\\'", ErrInvalid, s)
		}
	}
	return nil
}

func validateVariable(v string) error {
	if v == "" {
		return fmt.Errorf("%w: variable cannot be empty", ErrInvalid)
	}
	if !isAlpha(v[0]) {
		return fmt.Errorf("%w: variable %q must start with an alphabetic character", ErrInvalid, v)
	}
	for i := 0; i < len(v); i++ {
		if !isAlnum(v[i]) && v[i] != '-' {
			return fmt.Errorf("%w: variable %q must be alphanumeric or '-' after the first character", ErrInvalid, v)
		}
	}
	return nil
}

func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isAlnum(b byte) bool { return isAlpha(b) || (b >= '0' && b <= '9') }

func (s *Store) rewrite(sectionName, sub, variable, val string, sectionLine, valueLine int) error {
	in, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", s.path, err)
	}
	defer in.Close()

	tmp, err := tempfile.NewFile(dirOf(s.path), baseOf(s.path)+".tmp-", "")
	if err != nil {
		return err
	}
	defer tmp.Remove()

	w := bufio.NewWriter(tmp.File)
	scanner := bufio.NewScanner(in)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if sectionLine != 0 {
			if valueLine == 0 {
				if sectionLine == lineNo {
					fmt.Fprintln(w, line)
					fmt.Fprintf(w, "\t%s = %s\n", variable, val)
					continue
				}
			} else if valueLine == lineNo {
				fmt.Fprintf(w, "\t%s = %s\n", variable, val)
				continue
			}
		}
		fmt.Fprintln(w, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("config: read %s: %w", s.path, err)
	}
	if sectionLine == 0 {
		if sub != "" {
			fmt.Fprintf(w, "[%s \"%s\"]\n", sectionName, sub)
		} else {
			fmt.Fprintf(w, "[%s]\n", sectionName)
		}
		fmt.Fprintf(w, "\t%s = %s\n", variable, val)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("config: write %s: %w", tmp.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close %s: %w", tmp.Path, err)
	}
	if err := os.Rename(tmp.Path, s.path); err != nil {
		return fmt.Errorf("config: rename %s to %s: %w", tmp.Path, s.path, err)
	}
	log.Debugf("rewrote %s (%s.%s.%s)", s.path, sectionName, sub, variable)
	return nil
}

func dirOf(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "."
	}
	return p[:i]
}

func baseOf(p string) string {
	i := strings.LastIndexByte(p, '/')
	return p[i+1:]
}

// sortedKeys returns m's keys in lexical order; SortedList uses it to
// give List() output a stable order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedList returns List()'s keys sorted lexically, paired with
// their values, for deterministic display.
func (s *Store) SortedList() []struct{ Key, Value string } {
	list := s.List()
	keys := sortedKeys(list)
	out := make([]struct{ Key, Value string }, 0, len(keys))
	for _, k := range keys {
		out = append(out, struct{ Key, Value string }{Key: k, Value: list[k]})
	}
	return out
}
