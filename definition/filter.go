package definition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.yaml.in/yaml/v3"

	"github.com/crmarques/liveops/faults"
)

// Filter expands input paths into per-extension file sets, applying the
// definitions found below directory inputs.
type Filter struct {
	lister   FileLister
	readFile func(string) ([]byte, error)
}

func NewFilter(lister FileLister) *Filter {
	return &Filter{
		lister:   lister,
		readFile: os.ReadFile,
	}
}

type candidate struct {
	path     string
	explicit bool
}

// Filter walks inputs through the lister and resolves definition claims.
// File inputs bypass claims and exclusions. Conflicting definitions fail the
// whole call with an empty Group.
func (f *Filter) Filter(ctx context.Context, inputs []string, extensions []string) (Group, error) {
	if f == nil || f.lister == nil {
		return NewGroup(), faults.NewTypedError(faults.InternalError, "definition filter requires a file lister", nil)
	}

	wanted := make([]string, 0, len(extensions)+1)
	for _, extension := range extensions {
		wanted = append(wanted, strings.ToLower(extension))
	}
	listed := append(append([]string{}, wanted...), Extension)

	candidates := make([]candidate, 0)
	seen := map[string]bool{}
	for _, input := range inputs {
		files, err := f.lister.ListFiles(ctx, []string{input}, listed)
		if err != nil {
			return NewGroup(), err
		}
		explicit := len(files) == 1 && filepath.Clean(files[0]) == filepath.Clean(input)
		for _, file := range files {
			if seen[file] {
				continue
			}
			seen[file] = true
			candidates = append(candidates, candidate{path: file, explicit: explicit})
		}
	}

	definitionPaths := make([]string, 0)
	for _, item := range candidates {
		if !item.explicit && isDefinitionFile(item.path) {
			definitionPaths = append(definitionPaths, item.path)
		}
	}

	if err := checkMultiplicity(definitionPaths); err != nil {
		return NewGroup(), err
	}

	definitions := make([]Definition, 0, len(definitionPaths))
	for _, definitionPath := range definitionPaths {
		definition, err := f.load(definitionPath)
		if err != nil {
			return NewGroup(), err
		}
		definitions = append(definitions, definition)
	}

	group := NewGroup()
	group.Definitions = definitions
	intersections := make([]Intersection, 0)

	for _, item := range candidates {
		if isDefinitionFile(item.path) {
			continue
		}
		extension := strings.ToLower(filepath.Ext(item.path))
		if item.explicit {
			group.FilesByExtension[extension] = append(group.FilesByExtension[extension], item.path)
			continue
		}

		claimants := make([]string, 0, 1)
		excluded := false
		for _, definition := range definitions {
			relative, ok := relativeTo(definition.Dir(), item.path)
			if !ok {
				continue
			}
			if matchesAny(definition.ExcludePaths, relative) {
				group.Excluded[definition.Path] = append(group.Excluded[definition.Path], item.path)
				excluded = true
				continue
			}
			claimants = append(claimants, definition.Path)
		}

		switch {
		case len(claimants) > 1:
			intersections = append(intersections, Intersection{File: item.path, Definitions: claimants})
		case len(claimants) == 1:
			group.Claimed[item.path] = claimants[0]
			group.FilesByExtension[extension] = append(group.FilesByExtension[extension], item.path)
		case !excluded:
			group.FilesByExtension[extension] = append(group.FilesByExtension[extension], item.path)
		}
	}

	if len(intersections) > 0 {
		conflict := &IntersectionError{Intersections: intersections}
		return NewGroup(), faults.NewTypedError(faults.ConflictError, "", conflict)
	}

	return group, nil
}

func (f *Filter) load(path string) (Definition, error) {
	data, err := f.readFile(path)
	if err != nil {
		return Definition{}, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("failed to read deployment definition %q", path), err)
	}

	var decoded struct {
		Name         string   `yaml:"name"`
		ExcludePaths []string `yaml:"excludePaths"`
	}
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		return Definition{}, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid deployment definition %q", path), err)
	}

	name := strings.TrimSpace(decoded.Name)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	patterns := make([]string, 0, len(decoded.ExcludePaths))
	for _, pattern := range decoded.ExcludePaths {
		trimmed := strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(pattern)), "./")
		if trimmed == "" {
			continue
		}
		if !doublestar.ValidatePattern(trimmed) {
			return Definition{}, faults.NewTypedError(
				faults.ValidationError,
				fmt.Sprintf("deployment definition %q has invalid exclude pattern %q", path, pattern),
				nil,
			)
		}
		patterns = append(patterns, strings.TrimSuffix(trimmed, "/"))
	}

	return Definition{Path: path, Name: name, ExcludePaths: patterns}, nil
}

func checkMultiplicity(definitionPaths []string) error {
	byDirectory := map[string][]string{}
	order := make([]string, 0)
	for _, definitionPath := range definitionPaths {
		dir := filepath.Dir(definitionPath)
		if _, found := byDirectory[dir]; !found {
			order = append(order, dir)
		}
		byDirectory[dir] = append(byDirectory[dir], definitionPath)
	}

	conflict := &MultipleDefinitionsError{}
	for _, dir := range order {
		if len(byDirectory[dir]) > 1 {
			conflict.add(dir, byDirectory[dir])
		}
	}
	if len(conflict.order) == 0 {
		return nil
	}
	return faults.NewTypedError(faults.ConflictError, "", conflict)
}

func isDefinitionFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}

// relativeTo returns target relative to dir in slash form when target lives
// below dir.
func relativeTo(dir string, target string) (string, bool) {
	relative, err := filepath.Rel(dir, target)
	if err != nil || relative == "." || relative == ".." || strings.HasPrefix(relative, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(relative), true
}

// matchesAny matches relative and each of its parent directories, so a
// pattern naming a directory excludes its whole subtree.
func matchesAny(patterns []string, relative string) bool {
	if len(patterns) == 0 {
		return false
	}

	candidates := []string{relative}
	for current := relative; ; {
		parent := pathDir(current)
		if parent == "" {
			break
		}
		candidates = append(candidates, parent)
		current = parent
	}

	for _, pattern := range patterns {
		for _, item := range candidates {
			if matched, err := doublestar.Match(pattern, item); err == nil && matched {
				return true
			}
		}
	}
	return false
}

func pathDir(value string) string {
	idx := strings.LastIndex(value, "/")
	if idx <= 0 {
		return ""
	}
	return value[:idx]
}
