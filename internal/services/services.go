// Package services holds what the bundled backends share: the gateway they
// talk through, their construction options and comparison helpers.
package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/internal/payload"
	"github.com/crmarques/liveops/reconciler"
)

// Gateway is the subset of the backend HTTP gateway the clients use. Paths
// are relative to the base URL and already escaped.
type Gateway interface {
	GetJSON(ctx context.Context, requestPath string, query map[string]string) (any, error)
	SendJSON(ctx context.Context, method string, requestPath string, body any) (any, error)
	Delete(ctx context.Context, requestPath string) error
	ListAll(ctx context.Context, requestPath string, query map[string]string) ([]any, error)
}

// Options configure one backend. NewGateway is called once per Execute.
type Options struct {
	NewGateway func() (Gateway, error)
	// Compare, when set, projects both payloads before they are compared.
	Compare *payload.Projection
}

func (o Options) Validate() error {
	if o.NewGateway == nil {
		return faults.NewTypedError(faults.InternalError, "service gateway factory must not be nil", nil)
	}
	return nil
}

// Comparer returns a comparer using projection when set and equal otherwise.
// A nil equal means normalized deep equality.
func Comparer(projection *payload.Projection, equal func(left any, right any) bool) reconciler.Comparer {
	comparer := reconciler.DefaultComparer()
	switch {
	case projection != nil:
		comparer.Equal = projection.Equal
	case equal != nil:
		comparer.Equal = equal
	}
	return comparer
}

// ScopedPath joins the environment-scoped prefix of an API with extra
// segments, escaping each of them.
func ScopedPath(api string, projectID string, environmentID string, segments ...string) string {
	parts := []string{
		strings.Trim(api, "/"),
		"projects", url.PathEscape(projectID),
		"environments", url.PathEscape(environmentID),
	}
	for _, segment := range segments {
		parts = append(parts, url.PathEscape(segment))
	}
	return "/" + strings.Join(parts, "/")
}

// RequireScope fails when a client is used before Initialize.
func RequireScope(projectID string, environmentID string) error {
	if strings.TrimSpace(projectID) == "" {
		return faults.NewTypedError(faults.ValidationError, "project is not set", nil)
	}
	if strings.TrimSpace(environmentID) == "" {
		return faults.NewTypedError(faults.ValidationError, "environment is not set", nil)
	}
	return nil
}

// StringField reads a string field of a decoded JSON object.
func StringField(object map[string]any, key string) string {
	value, _ := object[key].(string)
	return value
}

// WithoutFields returns a shallow copy of object without the given keys.
func WithoutFields(object map[string]any, keys ...string) map[string]any {
	copied := make(map[string]any, len(object))
	for key, value := range object {
		copied[key] = value
	}
	for _, key := range keys {
		delete(copied, key)
	}
	return copied
}
