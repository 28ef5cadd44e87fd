// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package pathutil

import "testing"

func TestIsLexicalSubPath(t *testing.T) {
	if !IsLexicalSubPath("/repo/a/b", "/repo") {
		t.Fatal("expected /repo/a/b to be a sub-path of /repo")
	}
	if IsLexicalSubPath("/repo/../etc", "/repo") {
		t.Fatal("expected /repo/../etc to escape /repo")
	}
	if !IsLexicalSubPath("/repo", "/repo") {
		t.Fatal("a directory is its own sub-path")
	}
}

func TestRelativeSymlinkTarget(t *testing.T) {
	got := RelativeSymlinkTarget("/repo/a/link", "/repo/a/b/file.txt", "/repo")
	if got != "b/file.txt" {
		t.Fatalf("got %q", got)
	}
}

func TestRelativeSymlinkTargetOutsideBaseUnchanged(t *testing.T) {
	target := "/outside/file.txt"
	got := RelativeSymlinkTarget("/repo/a/link", target, "/repo")
	if got != target {
		t.Fatalf("got %q, want unchanged %q", got, target)
	}
}

func TestRelativeSymlinkTargetRelativeUnchanged(t *testing.T) {
	target := "../sibling/file.txt"
	got := RelativeSymlinkTarget("/repo/a/link", target, "/repo")
	if got != target {
		t.Fatalf("got %q, want unchanged %q", got, target)
	}
}
