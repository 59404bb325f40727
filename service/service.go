package service

import (
	"context"

	"github.com/crmarques/liveops/resource"
)

// Invocation carries the per-run inputs shared by every selected service.
type Invocation struct {
	Operation     resource.Operation
	ProjectID     string
	EnvironmentID string
	DryRun        bool
	Reconcile     bool
	// TargetDir is the fetch destination; unused by deploy.
	TargetDir    string
	InvocationID string
}

// Service deploys or fetches the files of one backend. Execute returns an
// error only when the service as a whole could not run; per-entry problems
// are reported as Failed entries in the result.
type Service interface {
	Name() string
	DisplayName() string
	Extension() string
	Execute(ctx context.Context, invocation Invocation, files []string) (resource.Result, error)
}

// Info is the listing form of a service.
type Info struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"type" yaml:"type"`
	Extension   string `json:"extension" yaml:"extension"`
}

func Describe(svc Service) Info {
	return Info{
		Name:        svc.Name(),
		DisplayName: svc.DisplayName(),
		Extension:   svc.Extension(),
	}
}
