// Package fsutil holds the filesystem helpers behind fetch write-back and the
// context catalog.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Within reports whether candidate stays inside root once existing symlinks
// are resolved. Missing trailing components are kept as written so paths
// that do not exist yet can be checked before they are created.
func Within(root string, candidate string) bool {
	resolvedRoot, err := resolveExisting(root)
	if err != nil {
		return false
	}
	resolvedCandidate, err := resolveExisting(candidate)
	if err != nil {
		return false
	}

	relative, err := filepath.Rel(resolvedRoot, resolvedCandidate)
	if err != nil {
		return false
	}
	return relative != ".." && !strings.HasPrefix(relative, ".."+string(filepath.Separator))
}

// PruneEmptyDirs removes dir and its parents while they are empty, stopping
// at root, which is never removed.
func PruneEmptyDirs(dir string, root string) error {
	current := filepath.Clean(dir)
	stop := filepath.Clean(root)

	for current != stop && current != "." && current != string(filepath.Separator) {
		if !Within(stop, current) {
			return nil
		}
		err := os.Remove(current)
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist):
			return nil
		case errors.Is(err, syscall.ENOTEMPTY), errors.Is(err, syscall.EEXIST):
			return nil
		default:
			return err
		}
		current = filepath.Dir(current)
	}
	return nil
}

func resolveExisting(path string) (string, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	existing := absolute
	var missing []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return absolute, nil
		}
		missing = append([]string{filepath.Base(existing)}, missing...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{resolved}, missing...)...), nil
}

// WriteFileAtomic replaces path with data through a temporary sibling file,
// creating parent directories as needed. Readers see either the old content
// or the new one.
func WriteFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".liveops-*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	tempPath := tempFile.Name()
	discard := func(cause error) error {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return cause
	}

	if _, err := tempFile.Write(data); err != nil {
		return discard(fmt.Errorf("write %q: %w", path, err))
	}
	if err := tempFile.Chmod(perm); err != nil {
		return discard(fmt.Errorf("set permissions of %q: %w", path, err))
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("finalize %q: %w", path, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("replace %q: %w", path, err)
	}
	return nil
}
