package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/crmarques/liveops/config"
)

var _ config.ContextService = (*Catalog)(nil)

// Catalog stores contexts in one YAML file. Every mutation rewrites the whole
// file atomically with owner-only permissions.
type Catalog struct {
	path string
	mu   sync.Mutex
}

// NewCatalog returns a catalog stored at path. An empty path falls back to
// LIVEOPS_CONTEXTS_FILE and then to ~/.liveops/contexts.yaml.
func NewCatalog(path string) *Catalog {
	return &Catalog{path: path}
}

func (c *Catalog) Create(_ context.Context, cfg config.Context) error {
	cfg = normalizeConfig(cfg)
	if err := validateConfig(cfg); err != nil {
		return err
	}

	return c.update(func(catalog *config.ContextCatalog) error {
		if indexOf(catalog.Contexts, cfg.Name) >= 0 {
			return validationError(fmt.Sprintf("context %q already exists", cfg.Name), nil)
		}
		catalog.Contexts = append(catalog.Contexts, cfg)
		if catalog.CurrentCtx == "" {
			catalog.CurrentCtx = cfg.Name
		}
		return nil
	})
}

func (c *Catalog) Update(_ context.Context, cfg config.Context) error {
	cfg = normalizeConfig(cfg)
	if err := validateConfig(cfg); err != nil {
		return err
	}

	return c.update(func(catalog *config.ContextCatalog) error {
		idx, err := requireContext(catalog.Contexts, cfg.Name)
		if err != nil {
			return err
		}
		catalog.Contexts[idx] = cfg
		return nil
	})
}

// Delete removes a context. Deleting the current context promotes the first
// remaining one.
func (c *Catalog) Delete(_ context.Context, name string) error {
	return c.update(func(catalog *config.ContextCatalog) error {
		idx, err := requireContext(catalog.Contexts, name)
		if err != nil {
			return err
		}
		catalog.Contexts = slices.Delete(catalog.Contexts, idx, idx+1)

		if catalog.CurrentCtx == name {
			catalog.CurrentCtx = ""
			if len(catalog.Contexts) > 0 {
				catalog.CurrentCtx = catalog.Contexts[0].Name
			}
		}
		return nil
	})
}

func (c *Catalog) Rename(_ context.Context, fromName string, toName string) error {
	if toName == "" {
		return validationError("context name must not be empty", nil)
	}

	return c.update(func(catalog *config.ContextCatalog) error {
		idx, err := requireContext(catalog.Contexts, fromName)
		if err != nil {
			return err
		}
		if indexOf(catalog.Contexts, toName) >= 0 {
			return validationError(fmt.Sprintf("context %q already exists", toName), nil)
		}

		catalog.Contexts[idx].Name = toName
		if catalog.CurrentCtx == fromName {
			catalog.CurrentCtx = toName
		}
		return nil
	})
}

func (c *Catalog) SetCurrent(_ context.Context, name string) error {
	return c.update(func(catalog *config.ContextCatalog) error {
		if _, err := requireContext(catalog.Contexts, name); err != nil {
			return err
		}
		catalog.CurrentCtx = name
		return nil
	})
}

func (c *Catalog) List(_ context.Context) ([]config.Context, error) {
	catalog, err := c.read()
	if err != nil {
		return nil, err
	}
	return slices.Clone(catalog.Contexts), nil
}

func (c *Catalog) GetCurrent(_ context.Context) (config.Context, error) {
	catalog, err := c.read()
	if err != nil {
		return config.Context{}, err
	}
	return lookupContext(catalog, "")
}

// ResolveContext returns the selected context, or the current one, with
// LIVEOPS_* environment variables and then selection overrides applied.
func (c *Catalog) ResolveContext(_ context.Context, selection config.ContextSelection) (config.Context, error) {
	catalog, err := c.read()
	if err != nil {
		return config.Context{}, err
	}

	selected, err := lookupContext(catalog, selection.Name)
	if err != nil {
		return config.Context{}, err
	}

	overrides := mergeOverrides(environmentOverrides(), selection.Overrides)
	resolved, err := applyOverrides(normalizeConfig(selected), overrides)
	if err != nil {
		return config.Context{}, err
	}
	if err := validateConfig(resolved); err != nil {
		return config.Context{}, err
	}
	return resolved, nil
}

func (c *Catalog) Validate(_ context.Context, cfg config.Context) error {
	return validateConfig(normalizeConfig(cfg))
}

// read loads and validates the catalog. A missing file is an empty catalog.
func (c *Catalog) read() (config.ContextCatalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readLocked()
}

func (c *Catalog) readLocked() (config.ContextCatalog, error) {
	path, err := resolveCatalogPath(c.path)
	if err != nil {
		return config.ContextCatalog{}, err
	}

	catalog, err := loadCatalogFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.ContextCatalog{}, nil
	}
	if err != nil {
		return config.ContextCatalog{}, err
	}
	if err := restrictPermissions(path); err != nil {
		return config.ContextCatalog{}, err
	}
	if err := validateCatalog(catalog); err != nil {
		return config.ContextCatalog{}, err
	}
	return catalog, nil
}

// update applies mutate to the current catalog and persists the result when
// mutate succeeds.
func (c *Catalog) update(mutate func(*config.ContextCatalog) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	catalog, err := c.readLocked()
	if err != nil {
		return err
	}
	if err := mutate(&catalog); err != nil {
		return err
	}

	compacted := compactCatalog(catalog)
	if err := validateCatalog(compacted); err != nil {
		return err
	}

	path, err := resolveCatalogPath(c.path)
	if err != nil {
		return err
	}
	return storeCatalogFile(path, compacted)
}

func lookupContext(catalog config.ContextCatalog, name string) (config.Context, error) {
	if name == "" {
		name = catalog.CurrentCtx
	}
	if name == "" {
		return config.Context{}, notFoundError("current context not set")
	}

	idx, err := requireContext(catalog.Contexts, name)
	if err != nil {
		return config.Context{}, err
	}
	return catalog.Contexts[idx], nil
}

func requireContext(contexts []config.Context, name string) (int, error) {
	idx := indexOf(contexts, name)
	if idx < 0 {
		return -1, notFoundError(fmt.Sprintf("context %q not found", name))
	}
	return idx, nil
}

func indexOf(contexts []config.Context, name string) int {
	return slices.IndexFunc(contexts, func(item config.Context) bool {
		return item.Name == name
	})
}

func compactCatalog(catalog config.ContextCatalog) config.ContextCatalog {
	compacted := catalog
	compacted.Contexts = make([]config.Context, 0, len(catalog.Contexts))
	for _, item := range catalog.Contexts {
		compacted.Contexts = append(compacted.Contexts, compactConfigForPersistence(item))
	}
	return compacted
}
