package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	configdomain "github.com/crmarques/liveops/config"
	"github.com/crmarques/liveops/internal/cli/common"
)

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return newCommandWithPrompter(deps, globalFlags, common.TerminalPrompter{})
}

func newCommandWithPrompter(
	deps common.CommandDependencies,
	globalFlags *common.GlobalFlags,
	prompter common.Prompter,
) *cobra.Command {
	command := &cobra.Command{
		Use:   "config",
		Short: "Manage contexts",
		Args:  cobra.NoArgs,
	}

	command.AddCommand(
		newAddCommand(deps, globalFlags, prompter),
		newDeleteCommand(deps, prompter),
		newListCommand(deps, globalFlags),
		newUseCommand(deps, prompter),
		newShowCommand(deps, globalFlags, prompter),
		newCurrentCommand(deps, globalFlags),
	)

	return command
}

type addFlags struct {
	file              string
	baseURL           string
	tokenURL          string
	clientID          string
	clientSecret      string
	scope             string
	bearerToken       string
	basicUsername     string
	basicPassword     string
	header            string
	headerToken       string
	requestsPerSecond float64
	burst             int
	timeout           time.Duration
	setCurrent        bool
}

// usesFlags reports whether the context is described on the command line
// rather than prompted for.
func (f addFlags) usesFlags() bool {
	return f.file != "" || f.baseURL != ""
}

func newAddCommand(
	deps common.CommandDependencies,
	globalFlags *common.GlobalFlags,
	prompter common.Prompter,
) *cobra.Command {
	var flags addFlags

	command := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a context from flags, a file, or interactive prompts",
		Example: strings.Join([]string{
			"  liveops config add dev --base-url https://services.example.com -p my-project -e production --bearer-token $TOKEN",
			"  liveops config add prod --base-url https://services.example.com -p my-project --environment-id 4a1c --client-id id --client-secret secret --token-url https://auth.example.com/token",
			"  liveops config add --file context.yaml --set-current",
			"  liveops config add",
		}, "\n"),
		Args: cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}

			name := ""
			if len(args) > 0 {
				name = strings.TrimSpace(args[0])
			}

			var cfg configdomain.Context
			switch {
			case flags.file != "":
				cfg, err = readContextFile(command, flags.file)
				if err == nil && name != "" {
					cfg.Name = name
				}
			case flags.usesFlags():
				cfg, err = contextFromFlags(name, flags, globalFlags)
			case prompter.IsInteractive(command):
				cfg, err = promptCreateContext(command, prompter, name, globalFlags)
			default:
				err = common.ValidationError("--base-url or --file is required without an interactive terminal", nil)
			}
			if err != nil {
				return err
			}

			if err := contexts.Create(command.Context(), cfg); err != nil {
				return err
			}
			if flags.setCurrent {
				return contexts.SetCurrent(command.Context(), cfg.Name)
			}
			return nil
		},
	}

	command.Flags().StringVarP(&flags.file, "file", "f", "", "context YAML file (use '-' to read stdin)")
	command.Flags().StringVar(&flags.baseURL, "base-url", "", "backend base URL")
	command.Flags().StringVar(&flags.tokenURL, "token-url", "", "oauth2 token URL")
	command.Flags().StringVar(&flags.clientID, "client-id", "", "oauth2 client id")
	command.Flags().StringVar(&flags.clientSecret, "client-secret", "", "oauth2 client secret")
	command.Flags().StringVar(&flags.scope, "scope", "", "oauth2 scope")
	command.Flags().StringVar(&flags.bearerToken, "bearer-token", "", "bearer token")
	command.Flags().StringVar(&flags.basicUsername, "basic-username", "", "basic auth username")
	command.Flags().StringVar(&flags.basicPassword, "basic-password", "", "basic auth password")
	command.Flags().StringVar(&flags.header, "header", "", "custom auth header name")
	command.Flags().StringVar(&flags.headerToken, "header-token", "", "custom auth header value")
	command.Flags().Float64Var(&flags.requestsPerSecond, "requests-per-second", 0, "backend rate limit (0 disables)")
	command.Flags().IntVar(&flags.burst, "burst", 0, "backend rate limit burst")
	command.Flags().DurationVar(&flags.timeout, "request-timeout", 0, "backend request timeout")
	command.Flags().BoolVar(&flags.setCurrent, "set-current", false, "make the new context current")
	return command
}

func contextFromFlags(name string, flags addFlags, globalFlags *common.GlobalFlags) (configdomain.Context, error) {
	if name == "" {
		return configdomain.Context{}, common.ValidationError("context name is required: liveops config add <name>", nil)
	}

	backend := &configdomain.Backend{
		BaseURL: strings.TrimSpace(flags.baseURL),
		Timeout: configdomain.Duration(flags.timeout),
	}
	if flags.requestsPerSecond > 0 {
		backend.RateLimit = &configdomain.RateLimit{RequestsPerSecond: flags.requestsPerSecond, Burst: flags.burst}
	}

	auth := &configdomain.HTTPAuth{}
	if flags.clientID != "" || flags.clientSecret != "" || flags.tokenURL != "" {
		auth.OAuth2 = &configdomain.OAuth2{
			TokenURL:     flags.tokenURL,
			GrantType:    configdomain.OAuthClientCreds,
			ClientID:     flags.clientID,
			ClientSecret: flags.clientSecret,
			Scope:        flags.scope,
		}
	}
	if flags.basicUsername != "" || flags.basicPassword != "" {
		auth.BasicAuth = &configdomain.BasicAuth{Username: flags.basicUsername, Password: flags.basicPassword}
	}
	if flags.bearerToken != "" {
		auth.BearerToken = &configdomain.BearerTokenAuth{Token: flags.bearerToken}
	}
	if flags.header != "" || flags.headerToken != "" {
		auth.CustomHeader = &configdomain.HeaderTokenAuth{Header: flags.header, Token: flags.headerToken}
	}
	if auth.OAuth2 != nil || auth.BasicAuth != nil || auth.BearerToken != nil || auth.CustomHeader != nil {
		backend.Auth = auth
	}

	cfg := configdomain.Context{Name: name, Backend: backend}
	if globalFlags != nil {
		cfg.ProjectID = strings.TrimSpace(globalFlags.ProjectID)
		cfg.EnvironmentID = strings.TrimSpace(globalFlags.EnvironmentID)
		cfg.EnvironmentName = strings.TrimSpace(globalFlags.EnvironmentName)
	}
	return cfg, nil
}

func newDeleteCommand(deps common.CommandDependencies, prompter common.Prompter) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a context (interactive when name is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}

			name := ""
			if len(args) > 0 {
				name = args[0]
			} else {
				selected, err := selectContextForAction(command, contexts, prompter, "delete")
				if err != nil {
					return err
				}
				confirmed, err := prompter.Confirm(command, fmt.Sprintf("Delete context %q?", selected), false)
				if err != nil {
					return err
				}
				if !confirmed {
					return common.WriteText(command, common.OutputText, "delete canceled")
				}
				name = selected
			}
			return contexts.Delete(command.Context(), name)
		},
	}
}

func newListCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List contexts",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}
			items, err := contexts.List(command.Context())
			if err != nil {
				return err
			}

			currentName := ""
			if current, err := contexts.GetCurrent(command.Context()); err == nil {
				currentName = current.Name
			}

			names := make([]string, 0, len(items))
			for _, item := range items {
				names = append(names, item.Name)
			}
			return common.WriteOutput(command, common.OutputFormat(globalFlags), names, func(w io.Writer, value []string) error {
				for _, name := range value {
					marker := " "
					if name == currentName {
						marker = "*"
					}
					if _, writeErr := fmt.Fprintf(w, "%s %s\n", marker, name); writeErr != nil {
						return writeErr
					}
				}
				return nil
			})
		},
	}
}

func newUseCommand(deps common.CommandDependencies, prompter common.Prompter) *cobra.Command {
	return &cobra.Command{
		Use:   "use [name]",
		Short: "Set current context (interactive when name is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}

			name := ""
			if len(args) > 0 {
				name = args[0]
			} else {
				name, err = selectContextForAction(command, contexts, prompter, "use")
				if err != nil {
					return err
				}
			}
			return contexts.SetCurrent(command.Context(), name)
		},
	}
}

func newShowCommand(
	deps common.CommandDependencies,
	globalFlags *common.GlobalFlags,
	prompter common.Prompter,
) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved context from --context, the current context, or a prompt",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}

			selection := common.Selection(globalFlags)
			if selection.Name == "" {
				if _, currentErr := contexts.GetCurrent(command.Context()); currentErr != nil {
					selection.Name, err = selectContextForAction(command, contexts, prompter, "show --context")
					if err != nil {
						return err
					}
				}
			}

			shown, err := contexts.ResolveContext(command.Context(), selection)
			if err != nil {
				return err
			}
			return common.WriteOutput(command, common.OutputYAML, shown, nil)
		},
	}
}

func newCurrentCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Get current context",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}
			current, err := contexts.GetCurrent(command.Context())
			if err != nil {
				return err
			}
			return common.WriteOutput(command, common.OutputFormat(globalFlags), current, func(w io.Writer, value configdomain.Context) error {
				_, writeErr := fmt.Fprintln(w, value.Name)
				return writeErr
			})
		},
	}
}

func selectContextForAction(
	command *cobra.Command,
	contexts configdomain.ContextService,
	prompter common.Prompter,
	actionLabel string,
) (string, error) {
	items, err := contexts.List(command.Context())
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", common.ValidationError("no contexts available", nil)
	}
	if !prompter.IsInteractive(command) {
		return "", common.ValidationError(fmt.Sprintf("context name is required: liveops config %s <name>", actionLabel), nil)
	}

	options := make([]string, 0, len(items))
	for _, item := range items {
		options = append(options, item.Name)
	}
	return prompter.Select(command, "Choose context", options)
}
