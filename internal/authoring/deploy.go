package authoring

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/crmarques/liveops/reconciler"
	"github.com/crmarques/liveops/resource"
	"github.com/crmarques/liveops/service"
)

func (s *Service) deploy(ctx context.Context, invocation service.Invocation, files []string) (resource.Result, error) {
	logger := logr.FromContextOrDiscard(ctx)
	result := resource.NewResult(s.backend.Name, resource.OperationDeploy, invocation.DryRun)

	local, failed, _, claimed := s.splitLocal(s.store.Load(ctx, files))
	result.Failed = append(result.Failed, failed...)

	if err := ctx.Err(); err != nil {
		result.Failed = append(result.Failed, markFailed(local, err)...)
		return result, nil
	}

	client, remote, err := s.connect(ctx, invocation)
	if err != nil {
		if ctx.Err() != nil {
			result.Failed = append(result.Failed, markFailed(local, err)...)
			return result, nil
		}
		return result, err
	}

	// Keys of failed local definitions are left untouched on the remote.
	plan := reconciler.Diff(local, s.unclaimed(remote, claimed), invocation.Reconcile, s.backend.Comparer)
	logger.V(1).Info(
		"deploy plan computed",
		"create", len(plan.Create),
		"update", len(plan.Update),
		"delete", len(plan.Delete),
		"unchanged", len(plan.Unchanged),
		"dryRun", invocation.DryRun,
	)

	var outcome Outcome
	if !invocation.DryRun && plan.HasChanges() {
		outcome, err = client.Apply(ctx, plan)
		if err != nil {
			if ctx.Err() != nil {
				result.Failed = append(result.Failed, markFailed(plan.Create, err)...)
				result.Failed = append(result.Failed, markFailed(plan.Update, err)...)
				result.Failed = append(result.Failed, markFailed(plan.Delete, err)...)
				result.Unchanged = tag(plan.Unchanged, resource.StatusUpToDate)
				return result, nil
			}
			return result, err
		}
	}

	result.Created, result.Failed = classify(plan.Create, WriteCreate, resource.StatusCreated, outcome, result.Failed)
	result.Updated, result.Failed = classify(plan.Update, WriteUpdate, resource.StatusUpdated, outcome, result.Failed)
	result.Deleted, result.Failed = classify(plan.Delete, WriteDelete, resource.StatusDeletedRemote, outcome, result.Failed)
	result.Unchanged = tag(plan.Unchanged, resource.StatusUpToDate)

	return result, nil
}

// classify splits entries into those the outcome reports as written and
// those it reports an error for.
func classify(entries []resource.Entry, write Write, status resource.Status, outcome Outcome, failed []resource.Entry) ([]resource.Entry, []resource.Entry) {
	succeeded := make([]resource.Entry, 0, len(entries))
	for _, entry := range entries {
		if err := outcome.Err(write, entry.Key); err != nil {
			failed = append(failed, entry.WithStatus(resource.StatusFailed, failureDetail(err)))
			continue
		}
		succeeded = append(succeeded, entry.WithStatus(status, ""))
	}
	return succeeded, failed
}
