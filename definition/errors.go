package definition

import (
	"fmt"
	"strings"
)

// MultipleDefinitionsError reports directories holding more than one
// definition file.
type MultipleDefinitionsError struct {
	// Directories maps a directory to the definition files found in it.
	Directories map[string][]string
	order       []string
}

func (e *MultipleDefinitionsError) add(dir string, definitions []string) {
	if e.Directories == nil {
		e.Directories = map[string][]string{}
	}
	e.Directories[dir] = definitions
	e.order = append(e.order, dir)
}

func (e *MultipleDefinitionsError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var builder strings.Builder
	builder.WriteString("multiple deployment definitions were found in the same directory:")
	for _, dir := range e.order {
		fmt.Fprintf(&builder, "\n    %s: %s", dir, strings.Join(e.Directories[dir], ", "))
	}
	return builder.String()
}

// Intersection is one file claimed by more than one definition.
type Intersection struct {
	File        string
	Definitions []string
}

// IntersectionError reports files claimed by more than one definition.
type IntersectionError struct {
	Intersections []Intersection
}

func (e *IntersectionError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var builder strings.Builder
	builder.WriteString("deployment definitions intersect; exclude nested definition directories to resolve:")
	for _, intersection := range e.Intersections {
		fmt.Fprintf(&builder, "\n    %s: %s", intersection.File, strings.Join(intersection.Definitions, ", "))
	}
	return builder.String()
}
