package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/crmarques/liveops/faults"
)

const IgnoreFileName = ".deployignore"

var defaultIgnoreLines = []string{
	".DS_Store",
	"Thumbs.db",
	"*.swp",
	"*.tmp",
	"node_modules/",
}

// Lister enumerates deployable files below a set of input paths.
type Lister struct {
	ignoreFileName string
	defaults       *gitignore.GitIgnore
}

func NewLister() *Lister {
	return &Lister{
		ignoreFileName: IgnoreFileName,
		defaults:       gitignore.CompileIgnoreLines(defaultIgnoreLines...),
	}
}

type ignoreScope struct {
	dir     string
	matcher *gitignore.GitIgnore
}

// ListFiles returns every file with one of the given extensions. File inputs
// are returned as-is when their extension matches; directory inputs are
// walked recursively, skipping hidden directories and paths matched by
// ignore files. Results keep walk order and contain no duplicates.
func (l *Lister) ListFiles(ctx context.Context, paths []string, extensions []string) ([]string, error) {
	seen := mapset.NewThreadUnsafeSet[string]()
	files := make([]string, 0)

	for _, input := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cleaned := filepath.Clean(input)
		info, err := os.Stat(cleaned)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("path %q does not exist", input), nil)
			}
			return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("failed to inspect path %q", input), err)
		}

		if !info.IsDir() {
			if HasExtension(cleaned, extensions) && seen.Add(cleaned) {
				files = append(files, cleaned)
			}
			continue
		}

		walked, err := l.walk(ctx, cleaned, extensions)
		if err != nil {
			return nil, err
		}
		for _, file := range walked {
			if seen.Add(file) {
				files = append(files, file)
			}
		}
	}

	return files, nil
}

func (l *Lister) walk(ctx context.Context, root string, extensions []string) ([]string, error) {
	files := make([]string, 0)
	scopes := make([]ignoreScope, 0, 1)
	if l.defaults != nil {
		scopes = append(scopes, ignoreScope{dir: root, matcher: l.defaults})
	}

	err := filepath.WalkDir(root, func(current string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if entry.IsDir() {
			if current != root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			scopes = trimScopes(scopes, current)
			if ignored(scopes, current+string(filepath.Separator)) {
				return filepath.SkipDir
			}
			ignoreFile := filepath.Join(current, l.ignoreFileName)
			if _, err := os.Stat(ignoreFile); err == nil {
				matcher, err := gitignore.CompileIgnoreFile(ignoreFile)
				if err != nil {
					return faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid ignore file %q", ignoreFile), err)
				}
				scopes = append(scopes, ignoreScope{dir: current, matcher: matcher})
			}
			return nil
		}

		if !HasExtension(current, extensions) {
			return nil
		}
		if ignored(trimScopes(scopes, filepath.Dir(current)), current) {
			return nil
		}
		files = append(files, current)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var typedErr *faults.TypedError
		if errors.As(err, &typedErr) {
			return nil, err
		}
		return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("failed to walk %q", root), err)
	}

	return files, nil
}

func ignored(scopes []ignoreScope, current string) bool {
	for _, scope := range scopes {
		relative, err := filepath.Rel(scope.dir, current)
		if err != nil || relative == "." {
			continue
		}
		relative = filepath.ToSlash(relative)
		if strings.HasSuffix(current, string(filepath.Separator)) {
			relative += "/"
		}
		if scope.matcher.MatchesPath(relative) {
			return true
		}
	}
	return false
}

// trimScopes drops ignore scopes that are not ancestors of dir.
func trimScopes(scopes []ignoreScope, dir string) []ignoreScope {
	kept := scopes[:0:0]
	for _, scope := range scopes {
		if IsWithin(scope.dir, dir) {
			kept = append(kept, scope)
		}
	}
	return kept
}

// HasExtension reports whether path ends with one of extensions, ignoring
// case.
func HasExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	for _, candidate := range extensions {
		if strings.EqualFold(ext, candidate) {
			return true
		}
	}
	return false
}

// IsWithin reports whether target equals dir or lives below it.
func IsWithin(dir string, target string) bool {
	relative, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return relative == "." || (relative != ".." && !strings.HasPrefix(relative, ".."+string(filepath.Separator)))
}
