package core

import (
	"context"

	"github.com/crmarques/liveops/config"
	configfile "github.com/crmarques/liveops/internal/providers/config/file"
)

func NewContextService(opts BootstrapConfig) config.ContextService {
	return configfile.NewCatalog(opts.ContextCatalogPath)
}

// NewLiveopsContext resolves the selected context and wires the bundled
// services and the orchestrator for it.
func NewLiveopsContext(ctx context.Context, opts BootstrapConfig, selection config.ContextSelection) (LiveopsContext, error) {
	contextService := NewContextService(opts)
	resolvedContext, err := contextService.ResolveContext(ctx, selection)
	if err != nil {
		return LiveopsContext{}, err
	}

	registry, err := buildRegistry(resolvedContext, opts)
	if err != nil {
		return LiveopsContext{}, err
	}
	defaultOrchestrator, err := buildOrchestrator(resolvedContext, registry, opts)
	if err != nil {
		return LiveopsContext{}, err
	}

	return LiveopsContext{
		Contexts:     contextService,
		Context:      resolvedContext,
		Registry:     registry,
		Orchestrator: defaultOrchestrator,
	}, nil
}
