package core

import (
	"github.com/crmarques/liveops/config"
	"github.com/crmarques/liveops/orchestrator"
	"github.com/crmarques/liveops/service"
)

type LiveopsContext struct {
	Contexts     config.ContextService
	Context      config.Context
	Registry     *service.Registry
	Orchestrator *orchestrator.DefaultOrchestrator
}

type BootstrapConfig struct {
	ContextCatalogPath string
	// UserAgent is sent on every backend request.
	UserAgent string
	// Observer receives backend request timings and service outcomes; nil
	// disables both.
	Observer Observer
}
