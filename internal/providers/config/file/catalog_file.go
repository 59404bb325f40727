package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/crmarques/liveops/config"
	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/internal/fsutil"
	"github.com/crmarques/liveops/internal/yamlutil"
)

const catalogFileMode = 0o600

func loadCatalogFile(path string) (config.ContextCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.ContextCatalog{}, err
		}
		return config.ContextCatalog{}, internalError(fmt.Sprintf("failed to read context catalog %q", path), err)
	}
	return decodeCatalog(data)
}

// decodeCatalog rejects unknown keys so that typos in hand-edited catalogs
// surface instead of being ignored.
func decodeCatalog(data []byte) (config.ContextCatalog, error) {
	var catalog config.ContextCatalog

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&catalog); err != nil {
		return config.ContextCatalog{}, validationError("invalid context catalog yaml", err)
	}
	return catalog, nil
}

func storeCatalogFile(path string, catalog config.ContextCatalog) error {
	encoded, err := yamlutil.Marshal(catalog)
	if err != nil {
		return internalError("failed to encode context catalog", err)
	}
	if err := fsutil.WriteFileAtomic(path, encoded, catalogFileMode); err != nil {
		return internalError("failed to write context catalog", err)
	}
	return nil
}

// restrictPermissions tightens a catalog that was created or edited with a
// more permissive mode. Catalogs may hold backend credentials.
func restrictPermissions(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return internalError("failed to inspect context catalog permissions", err)
	}
	if info.Mode().Perm() == catalogFileMode {
		return nil
	}
	if err := os.Chmod(path, catalogFileMode); err != nil {
		return internalError("failed to update context catalog permissions", err)
	}
	return nil
}

// resolveCatalogPath expands the catalog location: explicit path, then
// LIVEOPS_CONTEXTS_FILE, then the default under the home directory. Relative
// paths are taken from the home directory.
func resolveCatalogPath(explicitPath string) (string, error) {
	path := strings.TrimSpace(explicitPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(config.ContextFileEnvVar))
	}
	if path == "" {
		path = config.DefaultContextCatalogPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", internalError("failed to resolve user home directory", err)
	}

	switch {
	case path == "~":
		return "", validationError("context catalog path is invalid", errors.New("resolved to the home directory"))
	case strings.HasPrefix(path, "~/"):
		path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
	case !filepath.IsAbs(path):
		path = filepath.Join(home, path)
	}

	cleaned := filepath.Clean(path)
	if cleaned == filepath.Clean(home) {
		return "", validationError("context catalog path is invalid", errors.New("resolved to the home directory"))
	}
	return cleaned, nil
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

func notFoundError(message string) error {
	return faults.NewTypedError(faults.NotFoundError, message, nil)
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}

func unknownOverrideError(key string) error {
	return validationError(fmt.Sprintf("unknown override key %q", key), nil)
}
