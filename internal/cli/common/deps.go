package common

import (
	"context"
	"time"

	"github.com/crmarques/liveops/config"
	"github.com/crmarques/liveops/orchestrator"
	"github.com/crmarques/liveops/service"
)

// Observer receives service outcomes and backend request timings;
// observability.Metrics implements it.
type Observer interface {
	orchestrator.Recorder
	ObserveRequest(purpose string, method string, status int, elapsed time.Duration)
}

// Session is a resolved context with the orchestrator wired for it.
type Session struct {
	Context      config.Context
	Orchestrator orchestrator.Orchestrator
}

// Bootstrapper resolves a context and wires the orchestrator for it. A nil
// observer disables metrics.
type Bootstrapper func(ctx context.Context, selection config.ContextSelection, observer Observer) (Session, error)

type CommandDependencies struct {
	Contexts config.ContextService
	// Services lists every bundled service, with or without a context.
	Services  []service.Info
	Bootstrap Bootstrapper
}

func RequireContexts(deps CommandDependencies) (config.ContextService, error) {
	if deps.Contexts == nil {
		return nil, ValidationError("context service is not configured", nil)
	}
	return deps.Contexts, nil
}

func RequireBootstrap(deps CommandDependencies) (Bootstrapper, error) {
	if deps.Bootstrap == nil {
		return nil, ValidationError("orchestrator is not configured", nil)
	}
	return deps.Bootstrap, nil
}
