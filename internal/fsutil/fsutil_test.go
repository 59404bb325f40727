package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWithin(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testCases := []struct {
		name      string
		candidate string
		want      bool
	}{
		{name: "missing child", candidate: filepath.Join(root, "scripts", "reward.js"), want: true},
		{name: "root itself", candidate: root, want: true},
		{name: "parent traversal", candidate: filepath.Join(root, "..", "escaped.js"), want: false},
		{name: "sibling prefix", candidate: root + "-other", want: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if got := Within(root, testCase.candidate); got != testCase.want {
				t.Fatalf("Within(%q) = %t, want %t", testCase.candidate, got, testCase.want)
			}
		})
	}
}

func TestWithinRejectsSymlinkEscape(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(root, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatalf("create symlink: %v", err)
	}

	if candidate := filepath.Join(link, "escaped.rc"); Within(root, candidate) {
		t.Fatalf("expected %q to resolve outside %q", candidate, root)
	}
}

func TestPruneEmptyDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	leaf := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(leaf, 0o755); err != nil {
		t.Fatalf("create leaf: %v", err)
	}
	kept := filepath.Join(root, "keep")
	if err := os.MkdirAll(kept, 0o755); err != nil {
		t.Fatalf("create sibling: %v", err)
	}
	if err := os.WriteFile(filepath.Join(kept, "x.rc"), []byte("{}"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := PruneEmptyDirs(leaf, root); err != nil {
		t.Fatalf("PruneEmptyDirs returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "a")); !os.IsNotExist(err) {
		t.Fatalf("expected empty parents to be removed, got err=%v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("expected root to survive: %v", err)
	}

	if err := PruneEmptyDirs(kept, root); err != nil {
		t.Fatalf("PruneEmptyDirs on non-empty dir returned error: %v", err)
	}
	if _, err := os.Stat(kept); err != nil {
		t.Fatalf("expected non-empty dir to survive: %v", err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "contexts.yaml")

	if err := WriteFileAtomic(path, []byte("first"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic returned error: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic returned error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	if string(content) != "second" {
		t.Fatalf("unexpected content %q", content)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temporary files to be cleaned up, got %d entries", len(entries))
	}
}
