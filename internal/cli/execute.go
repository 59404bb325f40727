package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/crmarques/liveops/config"
	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/internal/cli/commandmeta"
	"github.com/crmarques/liveops/internal/cli/common"
	"github.com/crmarques/liveops/internal/cli/version"
	"github.com/crmarques/liveops/internal/observability"
	"github.com/crmarques/liveops/service"
)

type (
	Observer     = common.Observer
	Session      = common.Session
	Bootstrapper = common.Bootstrapper
)

type Dependencies struct {
	Contexts  config.ContextService
	Services  []service.Info
	Bootstrap Bootstrapper
}

func (d Dependencies) commandDependencies() common.CommandDependencies {
	return common.CommandDependencies{
		Contexts:  d.Contexts,
		Services:  d.Services,
		Bootstrap: d.Bootstrap,
	}
}

// Execute runs the command line in os.Args and prints the error, if any, to
// stderr. Tracing is exported only when OTEL_EXPORTER_OTLP_ENDPOINT is set.
func Execute(ctx context.Context, deps Dependencies) error {
	root := NewRootCommand(deps)

	shutdown, err := observability.SetupTracing(ctx, version.Version)
	if err != nil {
		_, _ = fmt.Fprintln(root.ErrOrStderr(), strings.TrimSpace(err.Error()))
	} else {
		defer func() {
			_ = shutdown(context.WithoutCancel(ctx))
		}()
	}

	command, err := root.ExecuteContextC(ctx)
	emitStatus := shouldEmitExecutionStatus(os.Args[1:], command)

	if err != nil {
		if emitStatus {
			writeExecutionErrorStatus(root.ErrOrStderr(), err)
		} else {
			_, _ = fmt.Fprintln(root.ErrOrStderr(), strings.TrimSpace(err.Error()))
		}
		return err
	}
	if emitStatus {
		writeExecutionOKStatus(root.ErrOrStderr())
	}
	return nil
}

// ExitCodeForError maps an error to the process exit code. Entry failures and
// service faults are checked before categories because an aggregate fault
// wraps the typed errors of its services.
func ExitCodeForError(err error) int {
	if err == nil {
		return 0
	}

	switch {
	case faults.IsCategory(err, faults.CanceledError),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return 130
	case faults.IsFailures(err):
		return 7
	case faults.IsAggregateFault(err):
		return 8
	}

	var typedErr *faults.TypedError
	if !errors.As(err, &typedErr) {
		return 1
	}

	switch typedErr.Category {
	case faults.ValidationError:
		return 2
	case faults.NotFoundError:
		return 3
	case faults.AuthError:
		return 4
	case faults.ConflictError:
		return 5
	case faults.TransportError:
		return 6
	default:
		return 1
	}
}

func writeExecutionOKStatus(w io.Writer) {
	_, _ = fmt.Fprintf(w, "%s command executed successfully.\n", formatStatusLabel(w, "OK"))
}

func writeExecutionErrorStatus(w io.Writer, err error) {
	description := "command execution failed"
	if err != nil {
		description = fmt.Sprintf("%s: %s", description, strings.TrimSpace(err.Error()))
	}
	_, _ = fmt.Fprintf(w, "%s %s.\n", formatStatusLabel(w, "ERROR"), description)
}

func formatStatusLabel(w io.Writer, status string) string {
	label := fmt.Sprintf("[%s]", strings.TrimSpace(status))
	if !supportsANSIStatus(w) {
		return label
	}

	var labelColor *color.Color
	switch strings.TrimSpace(status) {
	case "OK":
		labelColor = color.New(color.FgGreen, color.Bold)
	case "ERROR":
		labelColor = color.New(color.FgRed, color.Bold)
	default:
		return label
	}
	// The global color switch only looks at stdout.
	labelColor.EnableColor()
	return labelColor.Sprint(label)
}

func supportsANSIStatus(w io.Writer) bool {
	if shouldSuppressColor(os.Args[1:]) {
		return false
	}
	if !observability.IsTerminal(w) {
		return false
	}

	term := strings.TrimSpace(strings.ToLower(os.Getenv("TERM")))
	return term != "" && term != "dumb"
}

func shouldSuppressColor(args []string) bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return true
	}
	return hasNoColorArgToken(args)
}

func shouldEmitExecutionStatus(args []string, command *cobra.Command) bool {
	if shouldSuppressStatusMessage(args) {
		return false
	}
	if isHelpOrCompletionInvocation(args) {
		return false
	}
	return commandmeta.EmitsExecutionStatusPath(commandPath(command))
}

func commandPath(command *cobra.Command) string {
	if command == nil {
		return ""
	}
	return strings.TrimSpace(command.CommandPath())
}

func shouldSuppressStatusMessage(args []string) bool {
	flags := pflag.NewFlagSet("status", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.SetOutput(io.Discard)

	var noStatus bool
	flags.BoolVarP(&noStatus, "no-status", "n", false, "hide status output")
	if err := flags.Parse(args); err != nil {
		return hasNoStatusArgToken(args)
	}
	return noStatus
}

func isHelpOrCompletionInvocation(args []string) bool {
	if len(args) == 0 {
		return true
	}
	switch args[0] {
	case "help", "completion", "__complete", "__completeNoDesc":
		return true
	}

	for _, current := range args {
		if current == "--" {
			break
		}
		if current == "--help" || current == "-h" {
			return true
		}
	}
	return false
}

func hasNoStatusArgToken(args []string) bool {
	for _, current := range args {
		if current == "--no-status" || current == "-n" {
			return true
		}
		if strings.HasPrefix(current, "--no-status=") {
			return strings.TrimSpace(strings.TrimPrefix(current, "--no-status=")) != "false"
		}
	}
	return false
}

func hasNoColorArgToken(args []string) bool {
	for _, current := range args {
		if current == "--no-color" {
			return true
		}
		if strings.HasPrefix(current, "--no-color=") {
			return strings.TrimSpace(strings.TrimPrefix(current, "--no-color=")) != "false"
		}
	}
	return false
}

// UserAgent is the User-Agent sent to the backend by this build.
func UserAgent() string {
	return version.UserAgent()
}
