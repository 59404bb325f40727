package common

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/crmarques/liveops/internal/observability"
)

// WithLogger stores the command logger, built from the global flags, in the
// command context.
func WithLogger(command *cobra.Command, flags *GlobalFlags) {
	options := observability.LoggerOptions{}
	if flags != nil {
		options = observability.LoggerOptions{
			Debug:   flags.Debug,
			Verbose: flags.Verbose,
			NoColor: flags.NoColor,
		}
	}

	ctx := command.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.NewLogger(command.ErrOrStderr(), options)
	command.SetContext(logr.NewContext(ctx, logger))
}

// RunContext returns the command context bounded by --timeout.
func RunContext(command *cobra.Command, flags *GlobalFlags) (context.Context, context.CancelFunc) {
	ctx := command.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if flags == nil || flags.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, flags.Timeout)
}
