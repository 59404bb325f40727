package service

import (
	"fmt"
	"strings"

	"github.com/crmarques/liveops/faults"
)

// Registry keeps services in registration order, which is also the order
// results are merged in.
type Registry struct {
	services []Service
	byName   map[string]int
}

func NewRegistry(services ...Service) (*Registry, error) {
	registry := &Registry{byName: make(map[string]int, len(services))}
	for _, svc := range services {
		if err := registry.Register(svc); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (r *Registry) Register(svc Service) error {
	if svc == nil {
		return faults.NewTypedError(faults.InternalError, "service must not be nil", nil)
	}
	name := strings.TrimSpace(svc.Name())
	if name == "" {
		return faults.NewTypedError(faults.InternalError, "service name must not be empty", nil)
	}
	if _, exists := r.byName[name]; exists {
		return faults.NewTypedError(faults.InternalError, fmt.Sprintf("service %q registered twice", name), nil)
	}
	r.byName[name] = len(r.services)
	r.services = append(r.services, svc)
	return nil
}

func (r *Registry) All() []Service {
	if r == nil {
		return nil
	}
	return append([]Service(nil), r.services...)
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.services))
	for _, svc := range r.services {
		names = append(names, svc.Name())
	}
	return names
}

func (r *Registry) Extensions() []string {
	if r == nil {
		return nil
	}
	extensions := make([]string, 0, len(r.services))
	for _, svc := range r.services {
		extensions = append(extensions, svc.Extension())
	}
	return extensions
}

func (r *Registry) Lookup(name string) (Service, bool) {
	if r == nil {
		return nil, false
	}
	idx, found := r.byName[strings.TrimSpace(name)]
	if !found {
		return nil, false
	}
	return r.services[idx], true
}

// Select returns the named services in registry order and the names that
// matched no service. An empty selection selects every service.
func (r *Registry) Select(names []string) ([]Service, []string) {
	if len(names) == 0 {
		return r.All(), nil
	}

	wanted := make(map[string]bool, len(names))
	unknown := make([]string, 0)
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if _, found := r.Lookup(trimmed); !found {
			unknown = append(unknown, trimmed)
			continue
		}
		wanted[trimmed] = true
	}

	selected := make([]Service, 0, len(wanted))
	for _, svc := range r.All() {
		if wanted[svc.Name()] {
			selected = append(selected, svc)
		}
	}
	return selected, unknown
}
