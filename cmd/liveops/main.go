package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/crmarques/liveops/config"
	"github.com/crmarques/liveops/core"
	"github.com/crmarques/liveops/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.Execute(ctx, newDependencies())
	stop()
	if err != nil {
		os.Exit(cli.ExitCodeForError(err))
	}
}

func newDependencies() cli.Dependencies {
	return cli.Dependencies{
		Contexts:  core.NewContextService(core.BootstrapConfig{}),
		Services:  core.AvailableServices(),
		Bootstrap: bootstrap,
	}
}

// bootstrap builds the orchestrator for one deploy or fetch run. Commands that
// never reach the backend do not call it.
func bootstrap(ctx context.Context, selection config.ContextSelection, observer cli.Observer) (cli.Session, error) {
	opts := core.BootstrapConfig{UserAgent: cli.UserAgent()}
	if observer != nil {
		opts.Observer = observer
	}

	liveopsContext, err := core.NewLiveopsContext(ctx, opts, selection)
	if err != nil {
		return cli.Session{}, err
	}
	return cli.Session{
		Context:      liveopsContext.Context,
		Orchestrator: liveopsContext.Orchestrator,
	}, nil
}
