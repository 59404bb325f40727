package file

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/crmarques/liveops/config"
)

func validateCatalog(contextCatalog config.ContextCatalog) error {
	if len(contextCatalog.Contexts) == 0 {
		if contextCatalog.CurrentCtx != "" {
			return validationError("current-ctx must be empty when contexts list is empty", nil)
		}
		return nil
	}

	seen := map[string]struct{}{}
	for _, item := range contextCatalog.Contexts {
		if item.Name == "" {
			return validationError("context name must not be empty", nil)
		}
		if _, exists := seen[item.Name]; exists {
			return validationError(fmt.Sprintf("duplicate context name %q", item.Name), nil)
		}
		seen[item.Name] = struct{}{}

		if err := validateConfig(item); err != nil {
			return err
		}
	}

	if contextCatalog.CurrentCtx == "" {
		return validationError("current-ctx must be set when contexts are defined", nil)
	}

	if _, exists := seen[contextCatalog.CurrentCtx]; !exists {
		return validationError(fmt.Sprintf("current-ctx %q does not match any context", contextCatalog.CurrentCtx), nil)
	}

	return nil
}

func validateConfig(cfg config.Context) error {
	cfg = normalizeConfig(cfg)

	if cfg.Name == "" {
		return validationError("context name must not be empty", nil)
	}

	if err := validateBackend(cfg.Backend); err != nil {
		return err
	}

	for _, name := range sortedServiceNames(cfg.Services) {
		settings := cfg.Services[name]
		if strings.TrimSpace(name) == "" {
			return validationError("services keys must not be empty", nil)
		}
		if settings.BaseURL != "" {
			if err := validateHTTPURL(settings.BaseURL); err != nil {
				return validationError(fmt.Sprintf("services.%s.base-url is invalid", name), err)
			}
		}
	}

	return nil
}

func normalizeConfig(cfg config.Context) config.Context {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	cfg.EnvironmentID = strings.TrimSpace(cfg.EnvironmentID)
	cfg.EnvironmentName = strings.TrimSpace(cfg.EnvironmentName)
	if cfg.Backend != nil {
		backend := *cfg.Backend
		backend.BaseURL = strings.TrimSpace(backend.BaseURL)
		cfg.Backend = &backend
	}
	return cfg
}

func compactConfigForPersistence(cfg config.Context) config.Context {
	if len(cfg.Services) == 0 {
		cfg.Services = nil
	}
	if cfg.Backend != nil && len(cfg.Backend.DefaultHeaders) == 0 {
		backend := *cfg.Backend
		backend.DefaultHeaders = nil
		cfg.Backend = &backend
	}
	return cfg
}

func validateBackend(backend *config.Backend) error {
	if backend == nil {
		return validationError("backend is required", nil)
	}
	if backend.BaseURL == "" {
		return validationError("backend.base-url is required", nil)
	}
	if err := validateHTTPURL(backend.BaseURL); err != nil {
		return validationError("backend.base-url is invalid", err)
	}
	if backend.Timeout < 0 {
		return validationError("backend.timeout must not be negative", nil)
	}

	if backend.RateLimit != nil {
		if backend.RateLimit.RequestsPerSecond <= 0 {
			return validationError("backend.rate-limit.requests-per-second must be greater than zero", nil)
		}
		if backend.RateLimit.Burst < 0 {
			return validationError("backend.rate-limit.burst must not be negative", nil)
		}
	}

	if backend.TLS != nil {
		tls := backend.TLS
		if (tls.ClientCertFile == "") != (tls.ClientKeyFile == "") {
			return validationError("backend.tls requires both client-cert-file and client-key-file", nil)
		}
	}

	if backend.Auth == nil {
		return validationError("backend.auth is required", nil)
	}

	auth := backend.Auth
	if countSet(auth.OAuth2 != nil, auth.BasicAuth != nil, auth.BearerToken != nil, auth.CustomHeader != nil) != 1 {
		return validationError("backend.auth must define exactly one of oauth2, basic-auth, bearer-token, custom-header", nil)
	}

	if auth.OAuth2 != nil {
		oauth := auth.OAuth2
		if oauth.TokenURL == "" || oauth.GrantType == "" || oauth.ClientID == "" || oauth.ClientSecret == "" {
			return validationError("backend.auth.oauth2 requires token-url, grant-type, client-id, client-secret", nil)
		}
		if oauth.GrantType != config.OAuthClientCreds {
			return validationError(fmt.Sprintf("backend.auth.oauth2.grant-type %q is not supported", oauth.GrantType), nil)
		}
		if err := validateHTTPURL(oauth.TokenURL); err != nil {
			return validationError("backend.auth.oauth2.token-url is invalid", err)
		}
	}

	if auth.BasicAuth != nil {
		basic := auth.BasicAuth
		if basic.Username == "" || basic.Password == "" {
			return validationError("backend.auth.basic-auth requires username and password", nil)
		}
	}

	if auth.BearerToken != nil && auth.BearerToken.Token == "" {
		return validationError("backend.auth.bearer-token.token is required", nil)
	}

	if auth.CustomHeader != nil {
		head := auth.CustomHeader
		if head.Header == "" || head.Token == "" {
			return validationError("backend.auth.custom-header requires header and token", nil)
		}
	}

	return nil
}

func validateHTTPURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func applyOverrides(cfg config.Context, overrides map[string]string) (config.Context, error) {
	for _, key := range sortedOverrideKeys(overrides) {
		value := strings.TrimSpace(overrides[key])
		switch key {
		case config.OverrideProjectID:
			cfg.ProjectID = value
		case config.OverrideEnvironmentID:
			cfg.EnvironmentID = value
		case config.OverrideEnvironmentName:
			cfg.EnvironmentName = value
		case config.OverrideBackendBaseURL:
			if cfg.Backend == nil {
				return config.Context{}, validationError("override backend.base-url requires backend to be configured", nil)
			}
			backend := *cfg.Backend
			backend.BaseURL = value
			cfg.Backend = &backend
		default:
			return config.Context{}, unknownOverrideError(key)
		}
	}

	// A name given at a higher level replaces an id stored in the catalog.
	if _, hasName := overrides[config.OverrideEnvironmentName]; hasName {
		if _, hasID := overrides[config.OverrideEnvironmentID]; !hasID {
			cfg.EnvironmentID = ""
		}
	}

	return cfg, nil
}

// environmentOverrides reads the LIVEOPS_* variables that sit between the
// catalog and command-line flags.
func environmentOverrides() map[string]string {
	overrides := map[string]string{}
	for key, envVar := range map[string]string{
		config.OverrideProjectID:       config.ProjectIDEnvVar,
		config.OverrideEnvironmentID:   config.EnvironmentIDEnvVar,
		config.OverrideEnvironmentName: config.EnvironmentNameEnvVar,
	} {
		if value := strings.TrimSpace(os.Getenv(envVar)); value != "" {
			overrides[key] = value
		}
	}
	return overrides
}

// mergeOverrides layers selection overrides over environment overrides. An
// environment chosen on the command line, by id or by name, replaces both
// environment keys coming from variables.
func mergeOverrides(fromEnv map[string]string, fromSelection map[string]string) map[string]string {
	merged := make(map[string]string, len(fromEnv)+len(fromSelection))
	_, selectsID := fromSelection[config.OverrideEnvironmentID]
	_, selectsName := fromSelection[config.OverrideEnvironmentName]
	for key, value := range fromEnv {
		if (selectsID || selectsName) && (key == config.OverrideEnvironmentID || key == config.OverrideEnvironmentName) {
			continue
		}
		merged[key] = value
	}
	for key, value := range fromSelection {
		merged[key] = value
	}
	return merged
}

func sortedOverrideKeys(overrides map[string]string) []string {
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedServiceNames(services map[string]config.ServiceSettings) []string {
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func countSet(values ...bool) int {
	count := 0
	for _, value := range values {
		if value {
			count++
		}
	}
	return count
}
