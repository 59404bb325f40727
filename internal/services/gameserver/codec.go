package gameserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/internal/payload"
	"github.com/crmarques/liveops/internal/yamlutil"
	"github.com/crmarques/liveops/resource"
)

const defaultFile = "game-server-hosting" + Extension

const (
	KindBuilds              = "builds"
	KindBuildConfigurations = "build-configurations"
	KindFleets              = "fleets"
)

// kinds lists resource kinds in dependency order: a fleet references build
// configurations, which reference a build.
var kinds = []string{KindBuilds, KindBuildConfigurations, KindFleets}

func kindRank(kind string) int {
	for idx, candidate := range kinds {
		if candidate == kind {
			return idx
		}
	}
	return len(kinds)
}

type document struct {
	Builds              map[string]map[string]any `yaml:"builds,omitempty"`
	BuildConfigurations map[string]map[string]any `yaml:"buildConfigurations,omitempty"`
	Fleets              map[string]map[string]any `yaml:"fleets,omitempty"`
}

func (d *document) section(kind string) map[string]map[string]any {
	switch kind {
	case KindBuilds:
		return d.Builds
	case KindBuildConfigurations:
		return d.BuildConfigurations
	case KindFleets:
		return d.Fleets
	}
	return nil
}

func (d *document) set(kind string, name string, body map[string]any) {
	switch kind {
	case KindBuilds:
		if d.Builds == nil {
			d.Builds = map[string]map[string]any{}
		}
		d.Builds[name] = body
	case KindBuildConfigurations:
		if d.BuildConfigurations == nil {
			d.BuildConfigurations = map[string]map[string]any{}
		}
		d.BuildConfigurations[name] = body
	case KindFleets:
		if d.Fleets == nil {
			d.Fleets = map[string]map[string]any{}
		}
		d.Fleets[name] = body
	}
}

// EntryKey is the key of the named resource of a kind.
func EntryKey(kind string, name string) string {
	return kind + "/" + name
}

func splitKey(key string) (string, string, error) {
	kind, name, found := strings.Cut(key, "/")
	if !found || kindRank(kind) == len(kinds) || name == "" {
		return "", "", faults.NewTypedError(faults.InternalError, fmt.Sprintf("invalid game server hosting key %q", key), nil)
	}
	return kind, name, nil
}

type codec struct{}

func (codec) Decode(path string, data []byte) ([]resource.Entry, error) {
	var doc document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid game server hosting file %q", filepath.Base(path)), err)
	}

	entries := make([]resource.Entry, 0)
	for _, kind := range kinds {
		section := doc.section(kind)
		names := make([]string, 0, len(section))
		for name := range section {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if strings.TrimSpace(name) == "" || strings.Contains(name, "/") {
				return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid %s name %q", kind, name), nil)
			}
			body, err := payload.Normalize(emptyIfNil(section[name]))
			if err != nil {
				return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid %s %q", kind, name), err)
			}
			if err := validateResource(kind, name, body.(map[string]any)); err != nil {
				return nil, err
			}
			entries = append(entries, resource.Entry{
				Key:     EntryKey(kind, name),
				Name:    name,
				Payload: body,
			})
		}
	}
	return entries, nil
}

func (codec) Encode(path string, entries []resource.Entry) ([]byte, error) {
	var doc document
	for _, entry := range entries {
		kind, name, err := splitKey(entry.Key)
		if err != nil {
			return nil, err
		}
		body, ok := entry.Payload.(map[string]any)
		if !ok {
			return nil, faults.NewTypedError(faults.InternalError, fmt.Sprintf("payload of %q is not an object", entry.Key), nil)
		}
		doc.set(kind, name, body)
	}

	encoded, err := yamlutil.Marshal(doc)
	if err != nil {
		return nil, faults.NewTypedError(faults.InternalError, fmt.Sprintf("failed to encode %q", filepath.Base(path)), err)
	}
	return encoded, nil
}

func (codec) DefaultPath(dir string, _ resource.Entry) string {
	return filepath.Join(dir, defaultFile)
}

func validateResource(kind string, name string, body map[string]any) error {
	switch kind {
	case KindBuildConfigurations:
		if build, _ := body["build"].(string); strings.TrimSpace(build) == "" {
			return faults.NewTypedError(faults.ValidationError, fmt.Sprintf("build configuration %q must reference a build", name), nil)
		}
	case KindFleets:
		references, _ := body["buildConfigurations"].([]any)
		if len(references) == 0 {
			return faults.NewTypedError(faults.ValidationError, fmt.Sprintf("fleet %q must list at least one build configuration", name), nil)
		}
		for _, reference := range references {
			if value, ok := reference.(string); !ok || strings.TrimSpace(value) == "" {
				return faults.NewTypedError(faults.ValidationError, fmt.Sprintf("fleet %q lists an invalid build configuration", name), nil)
			}
		}
	}
	return nil
}

func emptyIfNil(body map[string]any) map[string]any {
	if body == nil {
		return map[string]any{}
	}
	return body
}
