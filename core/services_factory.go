package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/crmarques/liveops/config"
	"github.com/crmarques/liveops/definition"
	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/internal/authoring"
	"github.com/crmarques/liveops/internal/payload"
	backendhttp "github.com/crmarques/liveops/internal/providers/backend/http"
	"github.com/crmarques/liveops/internal/providers/environment"
	"github.com/crmarques/liveops/internal/providers/files"
	"github.com/crmarques/liveops/internal/services"
	"github.com/crmarques/liveops/internal/services/access"
	"github.com/crmarques/liveops/internal/services/cloudcode"
	"github.com/crmarques/liveops/internal/services/gameserver"
	"github.com/crmarques/liveops/internal/services/remoteconfig"
	"github.com/crmarques/liveops/orchestrator"
	"github.com/crmarques/liveops/service"
)

var _ services.Gateway = (*backendhttp.Gateway)(nil)

// Observer receives service outcomes and backend request timings.
type Observer interface {
	orchestrator.Recorder
	backendhttp.RequestObserver
}

type bundledService struct {
	info  service.Info
	build func(services.Options) (*authoring.Service, error)
}

// bundled lists the services in registry order, which is also the order
// their results are reported in.
var bundled = []bundledService{
	{
		info:  service.Info{Name: cloudcode.Name, DisplayName: cloudcode.DisplayName, Extension: cloudcode.Extension},
		build: cloudcode.New,
	},
	{
		info:  service.Info{Name: remoteconfig.Name, DisplayName: remoteconfig.DisplayName, Extension: remoteconfig.Extension},
		build: remoteconfig.New,
	},
	{
		info:  service.Info{Name: gameserver.Name, DisplayName: gameserver.DisplayName, Extension: gameserver.Extension},
		build: gameserver.New,
	},
	{
		info:  service.Info{Name: access.Name, DisplayName: access.DisplayName, Extension: access.Extension},
		build: access.New,
	},
}

// AvailableServices describes every bundled service, including the ones a
// context disables.
func AvailableServices() []service.Info {
	infos := make([]service.Info, 0, len(bundled))
	for _, item := range bundled {
		infos = append(infos, item.info)
	}
	return infos
}

func buildRegistry(resolvedContext config.Context, opts BootstrapConfig) (*service.Registry, error) {
	if resolvedContext.Backend == nil {
		return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("context %q has no backend", resolvedContext.Name), nil)
	}
	if err := validateServiceSettings(resolvedContext.Services); err != nil {
		return nil, err
	}

	registry, err := service.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, item := range bundled {
		settings := resolvedContext.Service(item.info.Name)
		if settings.Disabled {
			continue
		}

		projection, err := payload.CompileProjection(settings.CompareJQ)
		if err != nil {
			return nil, faults.NewTypedError(
				faults.ValidationError,
				fmt.Sprintf("context %q: services.%s.compare-jq is invalid", resolvedContext.Name, item.info.Name),
				err,
			)
		}

		svc, err := item.build(services.Options{
			NewGateway: gatewayFactory(*resolvedContext.Backend, settings.BaseURL, opts),
			Compare:    projection,
		})
		if err != nil {
			return nil, err
		}
		if err := registry.Register(svc); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// validateServiceSettings rejects settings for services that do not exist.
func validateServiceSettings(settings map[string]config.ServiceSettings) error {
	known := make(map[string]bool, len(bundled))
	names := make([]string, 0, len(bundled))
	for _, item := range bundled {
		known[item.info.Name] = true
		names = append(names, item.info.Name)
	}

	unknown := make([]string, 0)
	for name := range settings {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return faults.NewTypedError(
		faults.ValidationError,
		fmt.Sprintf("unknown services in context settings: %s (valid: %s)", strings.Join(unknown, ", "), strings.Join(names, ", ")),
		nil,
	)
}

// gatewayFactory builds a fresh gateway per call so every Execute gets its own
// token cache and rate limiter.
func gatewayFactory(backend config.Backend, baseURL string, opts BootstrapConfig) func() (services.Gateway, error) {
	return func() (services.Gateway, error) {
		gateway, err := newGateway(backend, baseURL, opts)
		if err != nil {
			return nil, err
		}
		return gateway, nil
	}
}

func newGateway(backend config.Backend, baseURL string, opts BootstrapConfig) (*backendhttp.Gateway, error) {
	gatewayOptions := []backendhttp.GatewayOption{
		backendhttp.WithBaseURL(baseURL),
		backendhttp.WithUserAgent(opts.UserAgent),
	}
	if opts.Observer != nil {
		gatewayOptions = append(gatewayOptions, backendhttp.WithRequestObserver(opts.Observer))
	}
	return backendhttp.NewGateway(backend, gatewayOptions...)
}

func buildOrchestrator(
	resolvedContext config.Context,
	registry *service.Registry,
	opts BootstrapConfig,
) (*orchestrator.DefaultOrchestrator, error) {
	if registry == nil {
		return nil, faults.NewTypedError(faults.InternalError, "service registry must not be nil", nil)
	}

	lookupGateway, err := newGateway(*resolvedContext.Backend, "", opts)
	if err != nil {
		return nil, err
	}

	defaultOrchestrator := &orchestrator.DefaultOrchestrator{
		Registry: registry,
		Filter:   definition.NewFilter(files.NewLister()),
		Resolver: environment.NewResolver(
			resolvedContext.ProjectID,
			resolvedContext.EnvironmentID,
			resolvedContext.EnvironmentName,
			lookupGateway,
		),
	}
	if opts.Observer != nil {
		defaultOrchestrator.Recorder = opts.Observer
	}
	return defaultOrchestrator, nil
}
