package common

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/crmarques/liveops/config"
)

type GlobalFlags struct {
	Context         string
	Debug           bool
	Verbose         bool
	NoStatus        bool
	NoColor         bool
	Output          string
	ProjectID       string
	EnvironmentID   string
	EnvironmentName string
	Timeout         time.Duration
	MetricsTextfile string
}

func BindGlobalFlags(command *cobra.Command, flags *GlobalFlags) {
	command.PersistentFlags().StringVarP(&flags.Context, "context", "c", "", "context name")
	command.PersistentFlags().BoolVarP(&flags.Debug, "debug", "d", false, "enable debug output")
	command.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "show complementary command output")
	command.PersistentFlags().BoolVarP(&flags.NoStatus, "no-status", "n", false, "hide status output")
	command.PersistentFlags().BoolVar(&flags.NoColor, "no-color", false, "disable color output")
	command.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputAuto, "output format: auto|text|json|yaml")
	command.PersistentFlags().StringVarP(&flags.ProjectID, "project-id", "p", "", "project id (overrides the context)")
	command.PersistentFlags().StringVar(&flags.EnvironmentID, "environment-id", "", "environment id (overrides the context)")
	command.PersistentFlags().StringVarP(&flags.EnvironmentName, "environment-name", "e", "", "environment name (overrides the context)")
	command.PersistentFlags().DurationVar(&flags.Timeout, "timeout", 0, "abort the command after this duration (0 disables)")
	command.PersistentFlags().StringVar(&flags.MetricsTextfile, "metrics-textfile", "", "write prometheus metrics to this file when the command ends")
	RegisterOutputFlagCompletion(command)
}

func IsVerbose(flags *GlobalFlags) bool {
	return flags != nil && flags.Verbose
}

// Selection builds the context selection from --context and the override
// flags. Blank flags leave the catalog and environment values in place.
func Selection(flags *GlobalFlags) config.ContextSelection {
	if flags == nil {
		return config.ContextSelection{}
	}

	overrides := map[string]string{}
	for key, value := range map[string]string{
		config.OverrideProjectID:       flags.ProjectID,
		config.OverrideEnvironmentID:   flags.EnvironmentID,
		config.OverrideEnvironmentName: flags.EnvironmentName,
	} {
		if value != "" {
			overrides[key] = value
		}
	}
	if len(overrides) == 0 {
		overrides = nil
	}

	return config.ContextSelection{Name: flags.Context, Overrides: overrides}
}

func RegisterOutputFlagCompletion(command *cobra.Command) {
	_ = command.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{OutputAuto, OutputText, OutputJSON, OutputYAML}, cobra.ShellCompDirectiveNoFileComp
	})
}
