package cli

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/crmarques/liveops/internal/cli/common"
	"github.com/crmarques/liveops/internal/cli/config"
	"github.com/crmarques/liveops/internal/cli/run"
	"github.com/crmarques/liveops/internal/cli/services"
	"github.com/crmarques/liveops/internal/cli/version"
)

const (
	groupBasic = "basic"
	groupOther = "other"
)

func NewRootCommand(deps Dependencies) *cobra.Command {
	commandDeps := deps.commandDependencies()
	var globalFlags common.GlobalFlags

	root := &cobra.Command{
		Use:   "liveops",
		Short: "Deploy and fetch live-ops service content",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			return command.Help()
		},
		PersistentPreRunE: func(command *cobra.Command, _ []string) error {
			if err := common.ValidateOutput(command.CommandPath(), globalFlags.Output); err != nil {
				return err
			}
			if globalFlags.Timeout < 0 {
				return common.ValidationError("flag --timeout must not be negative", nil)
			}

			common.WithLogger(command, &globalFlags)
			logr.FromContextOrDiscard(command.Context()).V(1).Info(
				"root flags",
				"command", command.CommandPath(),
				"context", globalFlags.Context,
				"output", globalFlags.Output,
				"timeout", globalFlags.Timeout,
			)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	common.BindGlobalFlags(root, &globalFlags)
	registerContextFlagCompletion(root, commandDeps)

	root.AddGroup(
		&cobra.Group{ID: groupBasic, Title: "Basic Commands:"},
		&cobra.Group{ID: groupOther, Title: "Other Commands:"},
	)
	addToGroup(root, groupBasic,
		run.NewDeployCommand(commandDeps, &globalFlags),
		run.NewFetchCommand(commandDeps, &globalFlags),
		services.NewCommand(commandDeps, &globalFlags),
		config.NewCommand(commandDeps, &globalFlags),
	)
	addToGroup(root, groupOther, version.NewCommand(&globalFlags))
	root.SetCompletionCommandGroupID(groupOther)

	printUsageOnArgumentErrors(root)
	return root
}

func addToGroup(root *cobra.Command, groupID string, commands ...*cobra.Command) {
	for _, command := range commands {
		command.GroupID = groupID
		root.AddCommand(command)
	}
}

func registerContextFlagCompletion(root *cobra.Command, deps common.CommandDependencies) {
	_ = root.RegisterFlagCompletionFunc("context", func(command *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		if deps.Contexts == nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		items, err := deps.Contexts.List(command.Context())
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		names := make([]string, 0, len(items))
		for _, item := range items {
			names = append(names, item.Name)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

// printUsageOnArgumentErrors prints the command usage to stderr when its
// positional arguments are rejected. Usage stays silent for every other error.
func printUsageOnArgumentErrors(command *cobra.Command) {
	if validate := command.Args; validate != nil {
		command.Args = func(command *cobra.Command, args []string) error {
			err := validate(command, args)
			if err != nil {
				_, _ = fmt.Fprintln(command.ErrOrStderr(), strings.TrimRight(command.UsageString(), "\n"))
			}
			return err
		}
	}
	for _, child := range command.Commands() {
		printUsageOnArgumentErrors(child)
	}
}
