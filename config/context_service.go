package config

import "context"

// ContextService manages the catalog of named contexts and resolves the one
// a command runs against.
type ContextService interface {
	Create(ctx context.Context, cfg Context) error
	Update(ctx context.Context, cfg Context) error
	Delete(ctx context.Context, name string) error
	Rename(ctx context.Context, fromName string, toName string) error
	SetCurrent(ctx context.Context, name string) error

	List(ctx context.Context) ([]Context, error)
	GetCurrent(ctx context.Context) (Context, error)

	// ResolveContext applies environment and selection overrides to the
	// named context, or to the current one when the selection has no name.
	ResolveContext(ctx context.Context, selection ContextSelection) (Context, error)
	Validate(ctx context.Context, cfg Context) error
}
