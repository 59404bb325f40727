package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crmarques/liveops/definition"
	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/resource"
)

// Orchestrator runs one deploy or fetch across the selected services.
type Orchestrator interface {
	Run(ctx context.Context, request Request) (Report, error)
}

// IdentifierResolver yields the environment id every service call is scoped
// by.
type IdentifierResolver interface {
	FetchIdentifier(ctx context.Context) (string, error)
}

// DefinitionFilter expands input paths into per-extension file sets.
type DefinitionFilter interface {
	Filter(ctx context.Context, inputs []string, extensions []string) (definition.Group, error)
}

// Recorder observes service executions; observability.Metrics implements it.
type Recorder interface {
	ObserveService(service string, operation resource.Operation, result resource.Result, elapsed time.Duration, err error)
}

type Request struct {
	Operation resource.Operation
	// Paths are the deploy inputs. Fetch reads TargetDir instead.
	Paths     []string
	TargetDir string
	// Services selects services by name; empty selects all of them.
	Services  []string
	Reconcile bool
	DryRun    bool
	ProjectID string
}

func (r Request) inputs() []string {
	if r.Operation == resource.OperationFetch {
		return []string{r.TargetDir}
	}
	return r.Paths
}

// Report is everything one Run produced, including the work of services that
// succeeded when others faulted.
type Report struct {
	InvocationID  string             `json:"invocationId" yaml:"invocationId"`
	EnvironmentID string             `json:"environmentId,omitempty" yaml:"environmentId,omitempty"`
	Aggregate     resource.Aggregate `json:"result" yaml:"result"`
	Results       []resource.Result  `json:"services" yaml:"services"`
	Group         definition.Group   `json:"-" yaml:"-"`
	// Faults holds the service faults in registry order.
	Faults []error `json:"-" yaml:"-"`
}

// ErrReconcileRequiresServices rejects a reconcile with no explicit
// selection, which would otherwise delete remote content of every service.
var ErrReconcileRequiresServices = faults.NewTypedError(
	faults.ValidationError,
	"reconcile requires at least one service to be selected with --services",
	nil,
)

// UnknownServicesError lists the selected names that match no service.
type UnknownServicesError struct {
	Unknown []string
	Valid   []string
}

func (e *UnknownServicesError) Error() string {
	if e == nil {
		return "<nil>"
	}
	noun := "service"
	if len(e.Unknown) > 1 {
		noun = "services"
	}
	return fmt.Sprintf(
		"unknown %s %s; valid services are: %s",
		noun,
		strings.Join(e.Unknown, ", "),
		strings.Join(e.Valid, ", "),
	)
}

func IsUnknownServices(err error) bool {
	var unknown *UnknownServicesError
	return errors.As(err, &unknown)
}
