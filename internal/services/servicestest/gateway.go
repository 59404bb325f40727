// Package servicestest provides an in-memory gateway for backend client tests.
package servicestest

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/internal/services"
)

// Call is one request the gateway received.
type Call struct {
	Method string
	Path   string
	Body   any
}

// Gateway answers GET and list requests from Objects and Lists and records
// every call. Errors keyed by "METHOD path" are returned instead of a reply.
type Gateway struct {
	mu      sync.Mutex
	Objects map[string]any
	Lists   map[string][]any
	Replies map[string]any
	Errors  map[string]error
	Calls   []Call
}

var _ services.Gateway = (*Gateway)(nil)

func NewGateway() *Gateway {
	return &Gateway{
		Objects: map[string]any{},
		Lists:   map[string][]any{},
		Replies: map[string]any{},
		Errors:  map[string]error{},
	}
}

// Factory returns a gateway factory for services.Options.
func (g *Gateway) Factory() func() (services.Gateway, error) {
	return func() (services.Gateway, error) {
		return g, nil
	}
}

func (g *Gateway) record(method string, requestPath string, body any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, Call{Method: method, Path: requestPath, Body: body})
	return g.Errors[method+" "+requestPath]
}

func (g *Gateway) GetJSON(ctx context.Context, requestPath string, _ map[string]string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := g.record(http.MethodGet, requestPath, nil); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	value, found := g.Objects[requestPath]
	if !found {
		return nil, faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("%s not found", requestPath), nil)
	}
	return value, nil
}

func (g *Gateway) SendJSON(ctx context.Context, method string, requestPath string, body any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := g.record(method, requestPath, body); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Replies[method+" "+requestPath], nil
}

func (g *Gateway) Delete(ctx context.Context, requestPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.record(http.MethodDelete, requestPath, nil)
}

func (g *Gateway) ListAll(ctx context.Context, requestPath string, _ map[string]string) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := g.record("LIST", requestPath, nil); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Lists[requestPath], nil
}

// Writes returns the calls that are not reads.
func (g *Gateway) Writes() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	writes := make([]Call, 0, len(g.Calls))
	for _, call := range g.Calls {
		if call.Method == http.MethodGet || call.Method == "LIST" {
			continue
		}
		writes = append(writes, call)
	}
	return writes
}
