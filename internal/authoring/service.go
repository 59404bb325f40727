package authoring

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-logr/logr"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/reconciler"
	"github.com/crmarques/liveops/resource"
	"github.com/crmarques/liveops/service"
)

var _ service.Service = (*Service)(nil)

// Service runs deploy and fetch for one backend.
type Service struct {
	backend Backend
	store   *FileStore
}

func New(backend Backend) (*Service, error) {
	if err := backend.validate(); err != nil {
		return nil, err
	}
	return &Service{
		backend: backend,
		store:   NewFileStore(backend.Codec, backend.DisplayName),
	}, nil
}

func (s *Service) Name() string        { return s.backend.Name }
func (s *Service) DisplayName() string { return s.backend.DisplayName }
func (s *Service) Extension() string   { return s.backend.Extension }

func (s *Service) Execute(ctx context.Context, invocation service.Invocation, files []string) (resource.Result, error) {
	logger := logr.FromContextOrDiscard(ctx).WithValues("service", s.backend.Name)
	ctx = logr.NewContext(ctx, logger)

	switch invocation.Operation {
	case resource.OperationDeploy:
		return s.deploy(ctx, invocation, files)
	case resource.OperationFetch:
		return s.fetch(ctx, invocation, files)
	default:
		return resource.NewResult(s.backend.Name, invocation.Operation, invocation.DryRun), faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("unsupported operation %q", invocation.Operation),
			nil,
		)
	}
}

// splitLocal separates decoded entries from failures. Files that failed to
// decode and entries whose key is defined more than once come back as Failed
// entries; broken holds the paths of files that could not be decoded. Claimed
// holds the keys the remote side must not be reconciled against: duplicated
// keys and the keys of broken files whose codec knows them from the path.
func (s *Service) splitLocal(loaded []LoadedFile) (valid []resource.Entry, failed []resource.Entry, broken map[string]bool, claimed map[string]bool) {
	broken = map[string]bool{}
	claimed = map[string]bool{}
	keyer, _ := s.backend.Codec.(PathKeyer)

	all := make([]resource.Entry, 0, len(loaded))
	for _, file := range loaded {
		if file.Err != nil {
			broken[file.Path] = true
			failed = append(failed, resource.Failed(s.backend.DisplayName, file.Path, filepath.Base(file.Path), failureDetail(file.Err)))
			if keyer != nil {
				if key, ok := keyer.KeyForPath(file.Path); ok {
					claimed[s.key(resource.Entry{Key: key, Name: key, Path: file.Path})] = true
				}
			}
			continue
		}
		all = append(all, file.Entries...)
	}

	duplicates := reconciler.DuplicateKeys(all, s.backend.Comparer)
	for _, entry := range all {
		key := s.key(entry)
		switch {
		case duplicates[key]:
			failed = append(failed, entry.WithStatus(resource.StatusFailed, fmt.Sprintf("%q is defined more than once", entry.Key)))
		case claimed[key]:
			failed = append(failed, entry.WithStatus(resource.StatusFailed, fmt.Sprintf("%q is also defined by a file that could not be decoded", entry.Key)))
		default:
			valid = append(valid, entry)
		}
	}
	for key := range duplicates {
		claimed[key] = true
	}
	return valid, failed, broken, claimed
}

// unclaimed drops the entries whose key is claimed by a failed local file or
// definition, so they are neither written nor deleted.
func (s *Service) unclaimed(entries []resource.Entry, claimed map[string]bool) []resource.Entry {
	if len(claimed) == 0 {
		return entries
	}
	kept := make([]resource.Entry, 0, len(entries))
	for _, entry := range entries {
		if !claimed[s.key(entry)] {
			kept = append(kept, entry)
		}
	}
	return kept
}

func (s *Service) key(entry resource.Entry) string {
	if s.backend.Comparer.Key != nil {
		return s.backend.Comparer.Key(entry)
	}
	return entry.Key
}

// connect builds a client and lists the remote entries.
func (s *Service) connect(ctx context.Context, invocation service.Invocation) (RemoteClient, []resource.Entry, error) {
	client, err := s.backend.NewClient()
	if err != nil {
		return nil, nil, err
	}
	if err := client.Initialize(ctx, invocation.ProjectID, invocation.EnvironmentID); err != nil {
		return nil, nil, err
	}
	remote, err := client.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return client, remote, nil
}

func markFailed(entries []resource.Entry, err error) []resource.Entry {
	failed := make([]resource.Entry, 0, len(entries))
	for _, entry := range entries {
		failed = append(failed, entry.WithStatus(resource.StatusFailed, failureDetail(err)))
	}
	return failed
}

func tag(entries []resource.Entry, status resource.Status) []resource.Entry {
	tagged := make([]resource.Entry, 0, len(entries))
	for _, entry := range entries {
		tagged = append(tagged, entry.WithStatus(status, ""))
	}
	return tagged
}
