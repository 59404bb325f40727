package authoring

import (
	"context"
	"errors"
	"strings"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/reconciler"
	"github.com/crmarques/liveops/resource"
)

// Codec converts between file content and entries of one backend.
type Codec interface {
	Decode(path string, data []byte) ([]resource.Entry, error)
	Encode(path string, entries []resource.Entry) ([]byte, error)
	// DefaultPath is where a fetched entry with no local counterpart is
	// written.
	DefaultPath(dir string, entry resource.Entry) string
}

// PathKeyer is implemented by codecs whose entry key follows from the file
// path alone. A file that fails to decode still claims that key.
type PathKeyer interface {
	KeyForPath(path string) (string, bool)
}

// Write is the kind of remote call made for an entry.
type Write string

const (
	WriteCreate Write = "create"
	WriteUpdate Write = "update"
	WriteDelete Write = "delete"
)

type outcomeKey struct {
	write Write
	key   string
}

// Outcome records the error each remote write returned, by write kind and
// entry key. Writes without an error succeeded. A remote duplicate deleted
// under a key that is also updated keeps a separate record.
type Outcome map[outcomeKey]error

func (o Outcome) Set(write Write, key string, err error) {
	o[outcomeKey{write: write, key: key}] = err
}

func (o Outcome) Err(write Write, key string) error {
	if o == nil {
		return nil
	}
	return o[outcomeKey{write: write, key: key}]
}

// RemoteClient talks to one backend for the duration of one Execute call.
// Errors returned by Initialize, List or Apply fail the service as a whole;
// per-entry problems belong in the Outcome.
type RemoteClient interface {
	Initialize(ctx context.Context, projectID string, environmentID string) error
	List(ctx context.Context) ([]resource.Entry, error)
	Apply(ctx context.Context, plan reconciler.Plan) (Outcome, error)
}

type Backend struct {
	Name        string
	DisplayName string
	Extension   string
	Codec       Codec
	Comparer    reconciler.Comparer
	// NewClient builds a fresh client per Execute call.
	NewClient func() (RemoteClient, error)
}

func (b Backend) validate() error {
	switch {
	case strings.TrimSpace(b.Name) == "":
		return faults.NewTypedError(faults.InternalError, "backend name must not be empty", nil)
	case !strings.HasPrefix(b.Extension, "."):
		return faults.NewTypedError(faults.InternalError, "backend extension must start with a dot", nil)
	case b.Codec == nil:
		return faults.NewTypedError(faults.InternalError, "backend codec must not be nil", nil)
	case b.NewClient == nil:
		return faults.NewTypedError(faults.InternalError, "backend client factory must not be nil", nil)
	}
	return nil
}

type EntryFunc func(ctx context.Context, entry resource.Entry) error

// EntryHandlers are the per-entry writes of a backend whose remote API has one
// call per entry. Nil handlers are treated as no-ops.
type EntryHandlers struct {
	Create EntryFunc
	Update EntryFunc
	Delete EntryFunc
}

// ApplyEach runs the handlers over the plan in create, update, delete order.
// Cancellation is checked before every entry; entries not attempted are
// recorded with the context error.
func ApplyEach(ctx context.Context, plan reconciler.Plan, handlers EntryHandlers) Outcome {
	outcome := Outcome{}

	run := func(write Write, entries []resource.Entry, handler EntryFunc) {
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				outcome.Set(write, entry.Key, err)
				continue
			}
			if handler == nil {
				continue
			}
			if err := handler(ctx, entry); err != nil {
				outcome.Set(write, entry.Key, err)
			}
		}
	}

	run(WriteCreate, plan.Create, handlers.Create)
	run(WriteUpdate, plan.Update, handlers.Update)
	run(WriteDelete, plan.Delete, handlers.Delete)
	return outcome
}

const canceledDetail = "operation canceled"

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func failureDetail(err error) string {
	if err == nil {
		return ""
	}
	if isCanceled(err) {
		return canceledDetail
	}
	return err.Error()
}
