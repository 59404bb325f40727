package resource

import (
	"fmt"

	"github.com/crmarques/liveops/faults"
)

// Result holds the outcome of one service for one invocation. Every entry the
// service considered is in exactly one of the five sequences.
type Result struct {
	Service   string    `json:"service,omitempty" yaml:"service,omitempty"`
	Operation Operation `json:"operation" yaml:"operation"`
	Created   []Entry   `json:"created" yaml:"created"`
	Updated   []Entry   `json:"updated" yaml:"updated"`
	Deleted   []Entry   `json:"deleted" yaml:"deleted"`
	Unchanged []Entry   `json:"unchanged" yaml:"unchanged"`
	Failed    []Entry   `json:"failed" yaml:"failed"`
	DryRun    bool      `json:"dryRun" yaml:"dryRun"`
}

func NewResult(service string, operation Operation, dryRun bool) Result {
	return Result{
		Service:   service,
		Operation: operation,
		DryRun:    dryRun,
	}
}

func (r Result) Total() int {
	return len(r.Created) + len(r.Updated) + len(r.Deleted) + len(r.Unchanged) + len(r.Failed)
}

func (r Result) HasFailures() bool {
	return len(r.Failed) > 0
}

// UnchangedLabel is the report heading of the unchanged sequence.
func (r Result) UnchangedLabel() string {
	if r.Operation == OperationFetch {
		return "Fetched"
	}
	return "Deployed"
}

// Validate reports an entry that appears in more than one sequence.
func (r Result) Validate() error {
	seen := make(map[string]string, r.Total())
	sequences := []struct {
		name    string
		entries []Entry
	}{
		{name: "created", entries: r.Created},
		{name: "updated", entries: r.Updated},
		{name: "deleted", entries: r.Deleted},
		{name: "unchanged", entries: r.Unchanged},
		{name: "failed", entries: r.Failed},
	}

	for _, sequence := range sequences {
		for _, entry := range sequence.entries {
			identity := entry.identity()
			if previous, found := seen[identity]; found {
				return faults.NewTypedError(
					faults.InternalError,
					fmt.Sprintf("entry %q reported as both %s and %s", entry.Key, previous, sequence.name),
					nil,
				)
			}
			seen[identity] = sequence.name
		}
	}
	return nil
}

// Aggregate is the per-sequence union of every service result of one
// invocation.
type Aggregate struct {
	Result   `yaml:",inline"`
	Services []string `json:"services" yaml:"services"`
}

// Merge concatenates results in the given order. The dry-run flag is an input
// of the invocation and is not derived from the results.
func Merge(operation Operation, dryRun bool, results ...Result) Aggregate {
	aggregate := Aggregate{
		Result: Result{
			Operation: operation,
			DryRun:    dryRun,
		},
		Services: make([]string, 0, len(results)),
	}

	for _, item := range results {
		if item.Service != "" {
			aggregate.Services = append(aggregate.Services, item.Service)
		}
		aggregate.Created = append(aggregate.Created, item.Created...)
		aggregate.Updated = append(aggregate.Updated, item.Updated...)
		aggregate.Deleted = append(aggregate.Deleted, item.Deleted...)
		aggregate.Unchanged = append(aggregate.Unchanged, item.Unchanged...)
		aggregate.Failed = append(aggregate.Failed, item.Failed...)
	}

	return aggregate
}
