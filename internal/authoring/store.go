package authoring

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/internal/fsutil"
	"github.com/crmarques/liveops/resource"
)

const defaultLoadConcurrency = 8

// LoadedFile is the decoded content of one file, or the reason it could not
// be decoded.
type LoadedFile struct {
	Path    string
	Entries []resource.Entry
	Err     error
}

// FileChange is the new content of one file. A change with no entries removes
// the file.
type FileChange struct {
	Path    string
	Entries []resource.Entry
}

// FileStore reads and writes the local files of one backend.
type FileStore struct {
	codec       Codec
	entryType   string
	concurrency int
}

func NewFileStore(codec Codec, entryType string) *FileStore {
	return &FileStore{
		codec:       codec,
		entryType:   entryType,
		concurrency: defaultLoadConcurrency,
	}
}

// Load decodes paths concurrently. The returned slice keeps the order of
// paths; a failure on one file never affects its siblings.
func (s *FileStore) Load(ctx context.Context, paths []string) []LoadedFile {
	loaded := make([]LoadedFile, len(paths))

	var group errgroup.Group
	group.SetLimit(s.concurrency)
	for idx, path := range paths {
		group.Go(func() error {
			loaded[idx] = s.loadFile(ctx, path)
			return nil
		})
	}
	_ = group.Wait()

	return loaded
}

func (s *FileStore) loadFile(ctx context.Context, path string) LoadedFile {
	if err := ctx.Err(); err != nil {
		return LoadedFile{Path: path, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return LoadedFile{Path: path, Err: fmt.Errorf("failed to read file: %w", err)}
	}

	entries, err := s.codec.Decode(path, data)
	if err != nil {
		return LoadedFile{Path: path, Err: err}
	}

	for idx := range entries {
		entries[idx].Path = path
		if entries[idx].Type == "" {
			entries[idx].Type = s.entryType
		}
		if entries[idx].Name == "" {
			entries[idx].Name = entries[idx].Key
		}
	}
	return LoadedFile{Path: path, Entries: entries}
}

// Commit writes every change in order and returns the error of each file that
// could not be written. Files not reached before cancellation report the
// context error. Directories left empty by a removal are pruned up to root.
func (s *FileStore) Commit(ctx context.Context, root string, changes []FileChange) map[string]error {
	failures := map[string]error{}
	for _, change := range changes {
		if err := ctx.Err(); err != nil {
			failures[change.Path] = err
			continue
		}
		if err := s.commitFile(root, change); err != nil {
			failures[change.Path] = err
		}
	}
	return failures
}

func (s *FileStore) commitFile(root string, change FileChange) error {
	if len(change.Entries) == 0 {
		if err := os.Remove(change.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return faults.NewTypedError(faults.InternalError, fmt.Sprintf("failed to remove %q", change.Path), err)
		}
		if root != "" {
			_ = fsutil.PruneEmptyDirs(filepath.Dir(change.Path), root)
		}
		return nil
	}

	encoded, err := s.codec.Encode(change.Path, change.Entries)
	if err != nil {
		return err
	}
	return writeFileAtomic(change.Path, encoded)
}

func writeFileAtomic(path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := fsutil.WriteFileAtomic(path, data, mode); err != nil {
		return faults.NewTypedError(faults.InternalError, fmt.Sprintf("failed to write %q", path), err)
	}
	return nil
}
