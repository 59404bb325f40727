package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/resource"
	"github.com/crmarques/liveops/service"
)

const tracerName = "github.com/crmarques/liveops/orchestrator"

var _ Orchestrator = (*DefaultOrchestrator)(nil)

// DefaultOrchestrator runs one operation over every selected service at once
// and merges what they report.
type DefaultOrchestrator struct {
	Registry *service.Registry
	Filter   DefinitionFilter
	Resolver IdentifierResolver
	Recorder Recorder

	// NewInvocationID defaults to a random UUID.
	NewInvocationID func() string
}

type serviceOutcome struct {
	result resource.Result
	err    error
}

func (o *DefaultOrchestrator) Run(ctx context.Context, request Request) (Report, error) {
	report := Report{
		InvocationID: o.invocationID(),
		Aggregate:    resource.Merge(request.Operation, request.DryRun),
	}

	if err := o.validate(request); err != nil {
		return report, err
	}

	requested := uniqueNames(request.Services)
	selected, unknown := o.Registry.Select(requested)
	if len(unknown) > 0 {
		return report, faults.NewTypedError(
			faults.ValidationError,
			"",
			&UnknownServicesError{Unknown: unknown, Valid: o.Registry.Names()},
		)
	}
	if request.Reconcile && len(requested) == 0 {
		return report, ErrReconcileRequiresServices
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "liveops."+string(request.Operation), trace.WithAttributes(
		attribute.String("liveops.invocation_id", report.InvocationID),
		attribute.Bool("liveops.dry_run", request.DryRun),
		attribute.Bool("liveops.reconcile", request.Reconcile),
	))
	defer span.End()

	logger := logr.FromContextOrDiscard(ctx).WithValues("invocationId", report.InvocationID)
	ctx = logr.NewContext(ctx, logger)

	environmentID, err := o.Resolver.FetchIdentifier(ctx)
	if err != nil {
		return report, fail(span, err)
	}
	report.EnvironmentID = environmentID

	extensions := make([]string, 0, len(selected))
	for _, svc := range selected {
		extensions = append(extensions, svc.Extension())
	}
	group, err := o.Filter.Filter(ctx, request.inputs(), extensions)
	report.Group = group
	if err != nil {
		return report, fail(span, err)
	}
	if group.HasExclusions() {
		logger.Info(group.ExclusionsMessage())
	}

	invocation := service.Invocation{
		Operation:     request.Operation,
		ProjectID:     request.ProjectID,
		EnvironmentID: environmentID,
		DryRun:        request.DryRun,
		Reconcile:     request.Reconcile,
		TargetDir:     request.TargetDir,
		InvocationID:  report.InvocationID,
	}

	names := make([]string, 0, len(selected))
	for _, svc := range selected {
		names = append(names, svc.Name())
	}
	logger.Info("running services", "operation", request.Operation, "services", strings.Join(names, ", "), "dryRun", request.DryRun)

	// Each goroutine writes only its own slot; no service cancels another.
	outcomes := make([]serviceOutcome, len(selected))
	var workers errgroup.Group
	for idx, svc := range selected {
		files := group.Files(svc.Extension())
		workers.Go(func() error {
			outcomes[idx] = o.execute(ctx, svc, invocation, files)
			return nil
		})
	}
	_ = workers.Wait()

	succeeded := make([]resource.Result, 0, len(selected))
	for idx, outcome := range outcomes {
		report.Results = append(report.Results, outcome.result)
		if outcome.err != nil {
			report.Faults = append(report.Faults, &faults.ServiceFault{Service: selected[idx].Name(), Err: outcome.err})
			continue
		}
		succeeded = append(succeeded, outcome.result)
	}
	report.Aggregate = resource.Merge(request.Operation, request.DryRun, succeeded...)

	if err := ctx.Err(); err != nil {
		canceled := faults.NewTypedError(faults.CanceledError, "operation canceled", err)
		if len(report.Faults) > 0 {
			// Cancellation stays first so it decides the category.
			return report, fail(span, errors.Join(canceled, faults.NewAggregateFault(report.Faults...)))
		}
		return report, fail(span, canceled)
	}
	if len(report.Faults) > 0 {
		return report, fail(span, faults.NewAggregateFault(report.Faults...))
	}
	if count := len(report.Aggregate.Failed); count > 0 {
		span.SetAttributes(attribute.Int("liveops.failed_entries", count))
		return report, &faults.FailuresError{Operation: string(request.Operation), Count: count}
	}
	return report, nil
}

func (o *DefaultOrchestrator) validate(request Request) error {
	switch {
	case o == nil || o.Registry == nil:
		return faults.NewTypedError(faults.InternalError, "service registry is not configured", nil)
	case o.Filter == nil:
		return faults.NewTypedError(faults.InternalError, "definition filter is not configured", nil)
	case o.Resolver == nil:
		return faults.NewTypedError(faults.InternalError, "environment resolver is not configured", nil)
	}

	switch request.Operation {
	case resource.OperationDeploy:
		if len(request.Paths) == 0 {
			return faults.NewTypedError(faults.ValidationError, "deploy requires at least one path", nil)
		}
	case resource.OperationFetch:
		if strings.TrimSpace(request.TargetDir) == "" {
			return faults.NewTypedError(faults.ValidationError, "fetch requires a target directory", nil)
		}
	default:
		return faults.NewTypedError(faults.ValidationError, fmt.Sprintf("unsupported operation %q", request.Operation), nil)
	}
	return nil
}

// execute runs one service and turns a panic into a fault of that service.
func (o *DefaultOrchestrator) execute(ctx context.Context, svc service.Service, invocation service.Invocation, files []string) (outcome serviceOutcome) {
	started := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "service.execute", trace.WithAttributes(
		attribute.String("liveops.service", svc.Name()),
		attribute.Int("liveops.files", len(files)),
	))
	logger := logr.FromContextOrDiscard(ctx).WithValues("service", svc.Name())

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.V(1).Info("service panicked", "stack", string(debug.Stack()))
			outcome = serviceOutcome{
				result: resource.NewResult(svc.Name(), invocation.Operation, invocation.DryRun),
				err:    faults.NewTypedError(faults.InternalError, fmt.Sprintf("service panicked: %v", recovered), nil),
			}
		}

		elapsed := time.Since(started)
		span.SetAttributes(
			attribute.Int("liveops.created", len(outcome.result.Created)),
			attribute.Int("liveops.updated", len(outcome.result.Updated)),
			attribute.Int("liveops.deleted", len(outcome.result.Deleted)),
			attribute.Int("liveops.unchanged", len(outcome.result.Unchanged)),
			attribute.Int("liveops.failed", len(outcome.result.Failed)),
		)
		if outcome.err != nil {
			span.RecordError(outcome.err)
			span.SetStatus(codes.Error, outcome.err.Error())
		}
		span.End()

		logger.V(1).Info("service finished", "elapsed", elapsed.String(), "entries", outcome.result.Total(), "error", outcome.err)
		if o.Recorder != nil {
			o.Recorder.ObserveService(svc.Name(), invocation.Operation, outcome.result, elapsed, outcome.err)
		}
	}()

	result, err := svc.Execute(ctx, invocation, files)
	if result.Service == "" {
		result.Service = svc.Name()
	}
	if err == nil {
		err = result.Validate()
	}
	return serviceOutcome{result: result, err: err}
}

func (o *DefaultOrchestrator) invocationID() string {
	if o != nil && o.NewInvocationID != nil {
		return o.NewInvocationID()
	}
	return uuid.NewString()
}

// uniqueNames trims names and drops blanks and repeats, keeping first
// occurrences in order.
func uniqueNames(names []string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	unique := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" || !seen.Add(trimmed) {
			continue
		}
		unique = append(unique, trimmed)
	}
	return unique
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
