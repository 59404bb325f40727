package authoring

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/internal/fsutil"
	"github.com/crmarques/liveops/reconciler"
	"github.com/crmarques/liveops/resource"
	"github.com/crmarques/liveops/service"
)

// fetch mirrors deploy: the remote listing is the source and the files below
// the target directory are the target.
func (s *Service) fetch(ctx context.Context, invocation service.Invocation, files []string) (resource.Result, error) {
	logger := logr.FromContextOrDiscard(ctx)
	result := resource.NewResult(s.backend.Name, resource.OperationFetch, invocation.DryRun)

	loaded := s.store.Load(ctx, files)
	local, failed, broken, claimed := s.splitLocal(loaded)
	result.Failed = append(result.Failed, failed...)

	if err := ctx.Err(); err != nil {
		result.Failed = append(result.Failed, markFailed(local, err)...)
		return result, nil
	}

	_, remote, err := s.connect(ctx, invocation)
	if err != nil {
		if ctx.Err() != nil {
			result.Failed = append(result.Failed, markFailed(local, err)...)
			return result, nil
		}
		return result, err
	}

	// Keys of failed local definitions are left untouched on both sides.
	source := s.unclaimed(remote, claimed)

	plan := reconciler.Diff(source, local, invocation.Reconcile, s.backend.Comparer)
	logger.V(1).Info(
		"fetch plan computed",
		"create", len(plan.Create),
		"update", len(plan.Update),
		"delete", len(plan.Delete),
		"unchanged", len(plan.Unchanged),
		"dryRun", invocation.DryRun,
	)

	created := make([]resource.Entry, 0, len(plan.Create))
	for _, entry := range plan.Create {
		entry.Path = s.backend.Codec.DefaultPath(invocation.TargetDir, entry)
		if !fsutil.Within(invocation.TargetDir, entry.Path) {
			escapeErr := faults.NewTypedError(
				faults.ValidationError,
				fmt.Sprintf("%q resolves outside the target directory", entry.Path),
				nil,
			)
			result.Failed = append(result.Failed, entry.WithStatus(resource.StatusFailed, failureDetail(escapeErr)))
			continue
		}
		created = append(created, entry)
	}
	updated := s.withLocalPaths(plan, plan.Update)
	unchanged := s.withLocalPaths(plan, plan.Unchanged)
	deleted := plan.Delete

	writeFailures := map[string]error{}
	if !invocation.DryRun {
		workspace := newWorkspace(loaded, s.key)
		for _, entry := range created {
			if broken[entry.Path] {
				writeFailures[entry.Path] = fmt.Errorf("cannot write into %q because it could not be decoded", entry.Path)
				continue
			}
			workspace.upsert(entry)
		}
		for _, entry := range updated {
			workspace.upsert(entry)
		}
		for _, entry := range deleted {
			workspace.remove(entry)
		}
		for path, err := range s.store.Commit(ctx, invocation.TargetDir, workspace.changes()) {
			writeFailures[path] = err
		}
	}

	result.Created, result.Failed = classifyWrites(created, resource.StatusCreated, writeFailures, result.Failed)
	result.Updated, result.Failed = classifyWrites(updated, resource.StatusUpdated, writeFailures, result.Failed)
	result.Deleted, result.Failed = classifyWrites(deleted, resource.StatusDeleted, writeFailures, result.Failed)
	result.Unchanged = tag(unchanged, resource.StatusFetched)

	return result, nil
}

// withLocalPaths reports remote entries under the path of their local
// counterpart.
func (s *Service) withLocalPaths(plan reconciler.Plan, entries []resource.Entry) []resource.Entry {
	located := make([]resource.Entry, 0, len(entries))
	for _, entry := range entries {
		if counterpart, found := plan.Counterpart(s.key(entry)); found {
			entry.Path = counterpart.Path
		}
		located = append(located, entry)
	}
	return located
}

func classifyWrites(entries []resource.Entry, status resource.Status, failures map[string]error, failed []resource.Entry) ([]resource.Entry, []resource.Entry) {
	succeeded := make([]resource.Entry, 0, len(entries))
	for _, entry := range entries {
		if err := failures[entry.Path]; err != nil {
			failed = append(failed, entry.WithStatus(resource.StatusFailed, failureDetail(err)))
			continue
		}
		succeeded = append(succeeded, entry.WithStatus(status, ""))
	}
	return succeeded, failed
}

// workspace is the in-memory content of the files a fetch touches.
type workspace struct {
	key     func(resource.Entry) string
	entries map[string][]resource.Entry
	order   []string
	touched map[string]bool
}

func newWorkspace(loaded []LoadedFile, key func(resource.Entry) string) *workspace {
	w := &workspace{
		key:     key,
		entries: map[string][]resource.Entry{},
		touched: map[string]bool{},
	}
	for _, file := range loaded {
		if file.Err != nil {
			continue
		}
		w.entries[file.Path] = append([]resource.Entry(nil), file.Entries...)
	}
	return w
}

func (w *workspace) touch(path string) {
	if !w.touched[path] {
		w.touched[path] = true
		w.order = append(w.order, path)
	}
}

func (w *workspace) upsert(entry resource.Entry) {
	w.touch(entry.Path)
	current := w.entries[entry.Path]
	for idx, existing := range current {
		if w.key(existing) == w.key(entry) {
			current[idx] = entry
			return
		}
	}
	w.entries[entry.Path] = append(current, entry)
}

func (w *workspace) remove(entry resource.Entry) {
	w.touch(entry.Path)
	current := w.entries[entry.Path]
	kept := current[:0:0]
	for _, existing := range current {
		if w.key(existing) != w.key(entry) {
			kept = append(kept, existing)
		}
	}
	w.entries[entry.Path] = kept
}

func (w *workspace) changes() []FileChange {
	changes := make([]FileChange, 0, len(w.order))
	for _, path := range w.order {
		changes = append(changes, FileChange{Path: path, Entries: w.entries[path]})
	}
	return changes
}
