package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	configdomain "github.com/crmarques/liveops/config"
	"github.com/crmarques/liveops/internal/cli/common"
)

const (
	environmentByName = "environment name"
	environmentByID   = "environment id"
)

func promptCreateContext(
	command *cobra.Command,
	prompter common.Prompter,
	contextName string,
	globalFlags *common.GlobalFlags,
) (configdomain.Context, error) {
	name := strings.TrimSpace(contextName)
	if name == "" {
		var err error
		name, err = promptRequiredInput(command, prompter, "Context name: ", "context name")
		if err != nil {
			return configdomain.Context{}, err
		}
	}
	cfg := configdomain.Context{Name: name}

	if globalFlags != nil {
		cfg.ProjectID = strings.TrimSpace(globalFlags.ProjectID)
		cfg.EnvironmentID = strings.TrimSpace(globalFlags.EnvironmentID)
		cfg.EnvironmentName = strings.TrimSpace(globalFlags.EnvironmentName)
	}
	if cfg.ProjectID == "" {
		projectID, err := promptOptionalInput(command, prompter, "Project id (optional): ")
		if err != nil {
			return configdomain.Context{}, err
		}
		cfg.ProjectID = projectID
	}
	if cfg.EnvironmentID == "" && cfg.EnvironmentName == "" {
		if err := promptEnvironment(command, prompter, &cfg); err != nil {
			return configdomain.Context{}, err
		}
	}

	backend, err := promptBackend(command, prompter)
	if err != nil {
		return configdomain.Context{}, err
	}
	cfg.Backend = backend
	return cfg, nil
}

func promptEnvironment(command *cobra.Command, prompter common.Prompter, cfg *configdomain.Context) error {
	mode, err := prompter.Select(command, "Identify the environment by", []string{environmentByName, environmentByID})
	if err != nil {
		return err
	}
	value, err := promptOptionalInput(command, prompter, fmt.Sprintf("Environment %s (optional): ", strings.TrimPrefix(mode, "environment ")))
	if err != nil {
		return err
	}
	if mode == environmentByID {
		cfg.EnvironmentID = value
	} else {
		cfg.EnvironmentName = value
	}
	return nil
}

func promptBackend(command *cobra.Command, prompter common.Prompter) (*configdomain.Backend, error) {
	baseURL, err := promptRequiredInput(command, prompter, "Backend base-url: ", "backend base-url")
	if err != nil {
		return nil, err
	}
	backend := &configdomain.Backend{BaseURL: baseURL}

	auth, err := promptHTTPAuth(command, prompter)
	if err != nil {
		return nil, err
	}
	backend.Auth = auth

	limit, err := prompter.Confirm(command, "Configure a request rate limit?", false)
	if err != nil {
		return nil, err
	}
	if limit {
		rateLimit, limitErr := promptRateLimit(command, prompter)
		if limitErr != nil {
			return nil, limitErr
		}
		backend.RateLimit = rateLimit
	}
	return backend, nil
}

func promptHTTPAuth(command *cobra.Command, prompter common.Prompter) (*configdomain.HTTPAuth, error) {
	method, err := prompter.Select(
		command,
		"Select backend auth method",
		[]string{"oauth2", "basic-auth", "bearer-token", "custom-header"},
	)
	if err != nil {
		return nil, err
	}

	auth := &configdomain.HTTPAuth{}
	switch strings.TrimSpace(method) {
	case "oauth2":
		tokenURL, inputErr := promptRequiredInput(command, prompter, "OAuth2 token-url: ", "oauth2 token-url")
		if inputErr != nil {
			return nil, inputErr
		}
		clientID, inputErr := promptRequiredInput(command, prompter, "OAuth2 client-id: ", "oauth2 client-id")
		if inputErr != nil {
			return nil, inputErr
		}
		clientSecret, inputErr := prompter.Secret(command, "OAuth2 client-secret: ")
		if inputErr != nil {
			return nil, inputErr
		}
		scope, inputErr := promptOptionalInput(command, prompter, "OAuth2 scope (optional): ")
		if inputErr != nil {
			return nil, inputErr
		}
		auth.OAuth2 = &configdomain.OAuth2{
			TokenURL:     tokenURL,
			GrantType:    configdomain.OAuthClientCreds,
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scope:        scope,
		}
	case "basic-auth":
		username, inputErr := promptRequiredInput(command, prompter, "Basic auth username: ", "basic auth username")
		if inputErr != nil {
			return nil, inputErr
		}
		password, inputErr := prompter.Secret(command, "Basic auth password: ")
		if inputErr != nil {
			return nil, inputErr
		}
		auth.BasicAuth = &configdomain.BasicAuth{Username: username, Password: password}
	case "bearer-token":
		token, inputErr := prompter.Secret(command, "Bearer token: ")
		if inputErr != nil {
			return nil, inputErr
		}
		auth.BearerToken = &configdomain.BearerTokenAuth{Token: token}
	case "custom-header":
		header, inputErr := promptRequiredInput(command, prompter, "Custom auth header name: ", "custom auth header name")
		if inputErr != nil {
			return nil, inputErr
		}
		token, inputErr := prompter.Secret(command, "Custom auth token: ")
		if inputErr != nil {
			return nil, inputErr
		}
		auth.CustomHeader = &configdomain.HeaderTokenAuth{Header: header, Token: token}
	default:
		return nil, common.ValidationError("invalid backend auth method selected", nil)
	}

	return auth, nil
}

func promptRateLimit(command *cobra.Command, prompter common.Prompter) (*configdomain.RateLimit, error) {
	raw, err := promptRequiredInput(command, prompter, "Requests per second: ", "requests per second")
	if err != nil {
		return nil, err
	}
	rps, err := strconv.ParseFloat(raw, 64)
	if err != nil || rps <= 0 {
		return nil, common.ValidationError("requests per second must be a positive number", err)
	}

	burst, _, err := promptOptionalInt(command, prompter, "Burst (optional): ", "burst")
	if err != nil {
		return nil, err
	}
	return &configdomain.RateLimit{RequestsPerSecond: rps, Burst: burst}, nil
}

func promptRequiredInput(
	command *cobra.Command,
	prompter common.Prompter,
	prompt string,
	field string,
) (string, error) {
	value, err := prompter.Input(command, prompt, true)
	if err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", common.ValidationError(fmt.Sprintf("%s is required", field), nil)
	}
	return trimmed, nil
}

func promptOptionalInput(command *cobra.Command, prompter common.Prompter, prompt string) (string, error) {
	value, err := prompter.Input(command, prompt, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func promptOptionalInt(
	command *cobra.Command,
	prompter common.Prompter,
	prompt string,
	field string,
) (int, bool, error) {
	value, err := promptOptionalInput(command, prompter, prompt)
	if err != nil {
		return 0, false, err
	}
	if value == "" {
		return 0, false, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, common.ValidationError(fmt.Sprintf("invalid integer value for %s", field), err)
	}
	return parsed, true, nil
}
