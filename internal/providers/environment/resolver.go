// Package environment turns the configured environment id or name into the
// id every backend call is scoped by.
package environment

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/crmarques/liveops/faults"
)

// Lister reads a paginated collection; the backend HTTP gateway implements it.
type Lister interface {
	ListAll(ctx context.Context, requestPath string, query map[string]string) ([]any, error)
}

// Environment is one entry of the project's environment listing.
type Environment struct {
	ID   string
	Name string
}

type Resolver struct {
	projectID       string
	environmentID   string
	environmentName string
	lister          Lister

	mu       sync.Mutex
	resolved string
}

func NewResolver(projectID string, environmentID string, environmentName string, lister Lister) *Resolver {
	return &Resolver{
		projectID:       strings.TrimSpace(projectID),
		environmentID:   strings.TrimSpace(environmentID),
		environmentName: strings.TrimSpace(environmentName),
		lister:          lister,
	}
}

// FetchIdentifier returns the configured environment id, or looks the
// configured name up on the backend. Successful lookups are cached.
func (r *Resolver) FetchIdentifier(ctx context.Context) (string, error) {
	if r.environmentID != "" {
		return r.environmentID, nil
	}
	if r.environmentName == "" {
		return "", faults.NewTypedError(faults.ValidationError, "environment is not set", nil)
	}
	if r.projectID == "" {
		return "", faults.NewTypedError(faults.ValidationError, "project is not set", nil)
	}
	if r.lister == nil {
		return "", faults.NewTypedError(faults.InternalError, "environment lookup is not configured", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved != "" {
		return r.resolved, nil
	}

	environments, err := r.List(ctx)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(environments))
	for _, item := range environments {
		if item.Name == r.environmentName {
			logr.FromContextOrDiscard(ctx).V(1).Info("environment resolved", "name", item.Name, "id", item.ID)
			r.resolved = item.ID
			return item.ID, nil
		}
		names = append(names, item.Name)
	}
	sort.Strings(names)

	return "", faults.NewTypedError(
		faults.NotFoundError,
		fmt.Sprintf("environment %q not found in project %q (available: %s)", r.environmentName, r.projectID, strings.Join(names, ", ")),
		nil,
	)
}

// List returns every environment of the project.
func (r *Resolver) List(ctx context.Context) ([]Environment, error) {
	if r.projectID == "" {
		return nil, faults.NewTypedError(faults.ValidationError, "project is not set", nil)
	}

	items, err := r.lister.ListAll(ctx, EnvironmentsPath(r.projectID), nil)
	if err != nil {
		return nil, faults.NewTypedError(faults.CategoryOf(err, faults.TransportError), "failed to list environments", err)
	}

	environments := make([]Environment, 0, len(items))
	for _, item := range items {
		object, ok := item.(map[string]any)
		if !ok {
			return nil, faults.NewTypedError(faults.ValidationError, "environment listing entry is not an object", nil)
		}
		id, _ := object["id"].(string)
		name, _ := object["name"].(string)
		if id == "" {
			continue
		}
		environments = append(environments, Environment{ID: id, Name: name})
	}
	return environments, nil
}

// EnvironmentsPath is the listing path relative to the backend base URL.
func EnvironmentsPath(projectID string) string {
	return "/unity/v1/projects/" + url.PathEscape(projectID) + "/environments"
}
