// Package run holds the deploy and fetch commands.
package run

import (
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/crmarques/liveops/internal/cli/common"
	"github.com/crmarques/liveops/internal/observability"
	"github.com/crmarques/liveops/orchestrator"
	"github.com/crmarques/liveops/resource"
)

type runFlags struct {
	services  []string
	reconcile bool
	dryRun    bool
	jsonTable bool
}

func bindRunFlags(command *cobra.Command, flags *runFlags) {
	command.Flags().StringSliceVarP(&flags.services, "services", "s", nil, "services to run (repeat or comma-separate; default all)")
	command.Flags().BoolVar(&flags.reconcile, "reconcile", false, "delete content that exists only on the other side (requires --services)")
	command.Flags().BoolVar(&flags.dryRun, "dry-run", false, "report what would change without writing anything")
}

func NewDeployCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var flags runFlags

	command := &cobra.Command{
		Use:   "deploy [paths...]",
		Short: "Deploy local definition files to their services",
		Example: strings.Join([]string{
			"  liveops deploy .",
			"  liveops deploy ./configs ./scripts --dry-run",
			"  liveops deploy . -s remote-config --reconcile",
		}, "\n"),
		Args: cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				paths = []string{"."}
			}
			return execute(command, deps, globalFlags, flags, orchestrator.Request{
				Operation: resource.OperationDeploy,
				Paths:     paths,
				Services:  flags.services,
				Reconcile: flags.reconcile,
				DryRun:    flags.dryRun,
			})
		},
	}

	bindRunFlags(command, &flags)
	command.Flags().BoolVarP(&flags.jsonTable, "json-table", "j", false, "print one json row per entry")
	registerServicesFlagCompletion(command, deps)
	return command
}

func NewFetchCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var flags runFlags

	command := &cobra.Command{
		Use:   "fetch <path>",
		Short: "Write remote content into local definition files",
		Example: strings.Join([]string{
			"  liveops fetch .",
			"  liveops fetch ./configs -s remote-config --reconcile",
		}, "\n"),
		Args: cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			return execute(command, deps, globalFlags, flags, orchestrator.Request{
				Operation: resource.OperationFetch,
				TargetDir: args[0],
				Services:  flags.services,
				Reconcile: flags.reconcile,
				DryRun:    flags.dryRun,
			})
		},
	}

	bindRunFlags(command, &flags)
	registerServicesFlagCompletion(command, deps)
	return command
}

// execute runs the request and prints the report before returning the run
// error, so partial work is visible even when the command fails.
func execute(
	command *cobra.Command,
	deps common.CommandDependencies,
	globalFlags *common.GlobalFlags,
	flags runFlags,
	request orchestrator.Request,
) error {
	bootstrap, err := common.RequireBootstrap(deps)
	if err != nil {
		return err
	}

	ctx, cancel := common.RunContext(command, globalFlags)
	defer cancel()

	var metrics *observability.Metrics
	var observer common.Observer
	if globalFlags != nil && globalFlags.MetricsTextfile != "" {
		metrics = observability.NewMetrics()
		observer = metrics
	}

	session, err := bootstrap(ctx, common.Selection(globalFlags), observer)
	if err != nil {
		return err
	}
	request.ProjectID = session.Context.ProjectID

	logr.FromContextOrDiscard(ctx).V(1).Info("resolved context", "context", session.Context.Name, "projectId", session.Context.ProjectID)

	report, runErr := session.Orchestrator.Run(ctx, request)
	if runErr == nil || len(report.Results) > 0 {
		var renderErr error
		if flags.jsonTable {
			renderErr = writeJSONTable(command.OutOrStdout(), report)
		} else {
			renderErr = writeReport(command, globalFlags, report)
		}
		if renderErr != nil && runErr == nil {
			runErr = renderErr
		}
	}

	if metrics != nil {
		if err := metrics.WriteTextfile(globalFlags.MetricsTextfile); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func registerServicesFlagCompletion(command *cobra.Command, deps common.CommandDependencies) {
	_ = command.RegisterFlagCompletionFunc("services", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, 0, len(deps.Services))
		for _, info := range deps.Services {
			names = append(names, info.Name)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}
