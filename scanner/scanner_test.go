// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestWalkOrderAndClassification(t *testing.T) {
	root := t.TempDir()
	must(t, os.Mkdir(filepath.Join(root, "b"), 0o755))
	must(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hi"), 0o644))
	must(t, os.WriteFile(filepath.Join(root, "b", "c.txt"), []byte("hi"), 0o644))
	must(t, os.Symlink("a.txt", filepath.Join(root, "link-to-a")))
	must(t, os.Symlink(filepath.Join(root, "b"), filepath.Join(root, "link-to-b")))

	var rels []string
	kinds := map[string]Kind{}
	err := Walk(root, func(e Entry) error {
		rels = append(rels, e.RelativePath)
		kinds[e.RelativePath] = e.Kind
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if kinds["a.txt"] != KindFile {
		t.Fatalf("a.txt classified as %v", kinds["a.txt"])
	}
	if kinds["b"] != KindDirectory {
		t.Fatalf("b classified as %v", kinds["b"])
	}
	if kinds["link-to-a"] != KindSymlink {
		t.Fatalf("link-to-a classified as %v", kinds["link-to-a"])
	}
	if kinds["link-to-b"] != KindSymlink {
		t.Fatalf("link-to-b must be classified as symlink, not directory: got %v", kinds["link-to-b"])
	}

	sorted := append([]string(nil), rels...)
	sort.Strings(sorted)
	top := topLevel(rels)
	topSorted := append([]string(nil), top...)
	sort.Strings(topSorted)
	if !equalSlices(top, topSorted) {
		t.Fatalf("top-level entries not in sorted order: %v", top)
	}
}

func TestWalkDoesNotFollowSymlinkedDirectory(t *testing.T) {
	root := t.TempDir()
	must(t, os.Mkdir(filepath.Join(root, "target"), 0o755))
	must(t, os.WriteFile(filepath.Join(root, "target", "inside.txt"), []byte("x"), 0o644))
	must(t, os.Symlink(filepath.Join(root, "target"), filepath.Join(root, "link")))

	var visited []string
	err := Walk(root, func(e Entry) error {
		visited = append(visited, e.RelativePath)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range visited {
		if v == filepath.Join("link", "inside.txt") {
			t.Fatal("scanner must not descend into a symlinked directory")
		}
	}
}

func TestWalkRelativeTarget(t *testing.T) {
	root := t.TempDir()
	must(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	must(t, os.WriteFile(filepath.Join(root, "sub", "file.txt"), []byte("x"), 0o644))
	abs := filepath.Join(root, "sub", "file.txt")
	must(t, os.Symlink(abs, filepath.Join(root, "link")))

	var got Entry
	err := Walk(root, func(e Entry) error {
		if e.RelativePath == "link" {
			got = e
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.RelativeTarget != filepath.Join("sub", "file.txt") {
		t.Fatalf("got %q", got.RelativeTarget)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func topLevel(rels []string) []string {
	var out []string
	for _, r := range rels {
		if !containsSep(r) {
			out = append(out, r)
		}
	}
	return out
}

func containsSep(p string) bool {
	return filepath.Dir(p) != "."
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
