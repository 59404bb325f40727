package definition

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Extension is the file extension of deployment definition files.
const Extension = ".ddef"

// Definition groups every deployable file below its directory, minus the
// files matched by its exclude patterns.
type Definition struct {
	Path         string   `json:"path" yaml:"path"`
	Name         string   `json:"name" yaml:"name"`
	ExcludePaths []string `json:"excludePaths,omitempty" yaml:"excludePaths,omitempty"`
}

func (d Definition) Dir() string {
	return filepath.Dir(d.Path)
}

type FileLister interface {
	ListFiles(ctx context.Context, paths []string, extensions []string) ([]string, error)
}

// Group is the outcome of filtering input paths through the definitions found
// in them.
type Group struct {
	Definitions      []Definition        `json:"definitions,omitempty" yaml:"definitions,omitempty"`
	FilesByExtension map[string][]string `json:"filesByExtension" yaml:"filesByExtension"`
	// Claimed maps a file to the definition path that claimed it.
	Claimed map[string]string `json:"claimed,omitempty" yaml:"claimed,omitempty"`
	// Excluded maps a definition path to the files its patterns excluded.
	Excluded map[string][]string `json:"excluded,omitempty" yaml:"excluded,omitempty"`
}

func NewGroup() Group {
	return Group{
		FilesByExtension: map[string][]string{},
		Claimed:          map[string]string{},
		Excluded:         map[string][]string{},
	}
}

// Files returns the files recognised for extension, matched case-insensitively.
func (g Group) Files(extension string) []string {
	return g.FilesByExtension[strings.ToLower(extension)]
}

func (g Group) HasExclusions() bool {
	for _, files := range g.Excluded {
		if len(files) > 0 {
			return true
		}
	}
	return false
}

// ExclusionsMessage lists excluded files per definition, sorted by definition
// path.
func (g Group) ExclusionsMessage() string {
	if !g.HasExclusions() {
		return ""
	}

	definitions := make([]string, 0, len(g.Excluded))
	for definitionPath, files := range g.Excluded {
		if len(files) > 0 {
			definitions = append(definitions, definitionPath)
		}
	}
	sort.Strings(definitions)

	var builder strings.Builder
	builder.WriteString("The following files were excluded by deployment definitions:")
	for _, definitionPath := range definitions {
		fmt.Fprintf(&builder, "\n    %s:", definitionPath)
		for _, file := range g.Excluded[definitionPath] {
			fmt.Fprintf(&builder, "\n        %s", file)
		}
	}
	return builder.String()
}
