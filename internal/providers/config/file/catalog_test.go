package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/crmarques/liveops/config"
	"github.com/crmarques/liveops/faults"
)

func TestDecodeCatalogSuccess(t *testing.T) {
	t.Parallel()

	contextCatalog, err := decodeCatalog([]byte(validContextCatalogYAML))
	if err != nil {
		t.Fatalf("decodeCatalog returned error: %v", err)
	}
	if len(contextCatalog.Contexts) != 1 {
		t.Fatalf("expected 1 context, got %d", len(contextCatalog.Contexts))
	}
	if contextCatalog.CurrentCtx != "dev" {
		t.Fatalf("expected current-ctx dev, got %q", contextCatalog.CurrentCtx)
	}

	dev := contextCatalog.Contexts[0]
	if dev.Backend == nil || dev.Backend.Timeout.Std() != 30*time.Second {
		t.Fatalf("expected backend timeout 30s, got %#v", dev.Backend)
	}
	if dev.Backend.RateLimit == nil || dev.Backend.RateLimit.RequestsPerSecond != 10 || dev.Backend.RateLimit.Burst != 5 {
		t.Fatalf("unexpected rate limit %#v", dev.Backend.RateLimit)
	}
	if got := dev.Service("remote-config").CompareJQ; got != "del(.updatedAt)" {
		t.Fatalf("expected remote-config compare-jq, got %q", got)
	}
	if !dev.Service("access").Disabled {
		t.Fatal("expected access service to be disabled")
	}
	if dev.Service("missing") != (config.ServiceSettings{}) {
		t.Fatal("expected zero settings for unconfigured service")
	}
}

func TestDecodeCatalogRejectsUnknownField(t *testing.T) {
	t.Parallel()

	invalidYAML := `
contexts:
  - name: dev
    project-id: p1
    backend:
      base-url: https://services.example.com
      unknown-key: true
current-ctx: dev
`
	_, err := decodeCatalog([]byte(invalidYAML))
	if err == nil {
		t.Fatal("expected unknown field to fail decode")
	}
	assertTypedCategory(t, err, faults.ValidationError)
}

func TestDecodeCatalogRejectsInvalidTimeout(t *testing.T) {
	t.Parallel()

	invalidYAML := `
contexts:
  - name: dev
    backend:
      base-url: https://services.example.com
      timeout: soon
current-ctx: dev
`
	if _, err := decodeCatalog([]byte(invalidYAML)); err == nil {
		t.Fatal("expected invalid duration to fail decode")
	}
}

func TestValidateCatalogCurrentContextMissing(t *testing.T) {
	t.Parallel()

	contextCatalog := config.ContextCatalog{
		Contexts:   []config.Context{{Name: "dev", Backend: validBackend()}},
		CurrentCtx: "prod",
	}

	if err := validateCatalog(contextCatalog); err == nil {
		t.Fatal("expected current-ctx mismatch error")
	}
}

func TestValidateCatalogDuplicateContextNames(t *testing.T) {
	t.Parallel()

	contextCatalog := config.ContextCatalog{
		Contexts: []config.Context{
			{Name: "dev", Backend: validBackend()},
			{Name: "dev", Backend: validBackend()},
		},
		CurrentCtx: "dev",
	}

	if err := validateCatalog(contextCatalog); err == nil {
		t.Fatal("expected duplicate name validation error")
	}
}

func TestValidateConfigRules(t *testing.T) {
	t.Parallel()

	withBackend := func(mutate func(*config.Backend)) config.Context {
		backend := validBackend()
		mutate(backend)
		return config.Context{Name: "dev", Backend: backend}
	}

	tests := []struct {
		name    string
		cfg     config.Context
		message string
	}{
		{
			name:    "backend_missing",
			cfg:     config.Context{Name: "dev"},
			message: "backend is required",
		},
		{
			name:    "base_url_missing",
			cfg:     withBackend(func(b *config.Backend) { b.BaseURL = "" }),
			message: "backend.base-url is required",
		},
		{
			name:    "base_url_not_http",
			cfg:     withBackend(func(b *config.Backend) { b.BaseURL = "ftp://example.com" }),
			message: "backend.base-url is invalid",
		},
		{
			name:    "auth_missing",
			cfg:     withBackend(func(b *config.Backend) { b.Auth = nil }),
			message: "backend.auth is required",
		},
		{
			name: "auth_multiple_modes",
			cfg: withBackend(func(b *config.Backend) {
				b.Auth.BasicAuth = &config.BasicAuth{Username: "u", Password: "p"}
			}),
			message: "exactly one of",
		},
		{
			name: "oauth2_unsupported_grant",
			cfg: withBackend(func(b *config.Backend) {
				b.Auth = &config.HTTPAuth{OAuth2: &config.OAuth2{
					TokenURL:     "https://auth.example.com/token",
					GrantType:    "password",
					ClientID:     "id",
					ClientSecret: "secret",
				}}
			}),
			message: "is not supported",
		},
		{
			name: "custom_header_without_token",
			cfg: withBackend(func(b *config.Backend) {
				b.Auth = &config.HTTPAuth{CustomHeader: &config.HeaderTokenAuth{Header: "X-Api-Key"}}
			}),
			message: "custom-header requires header and token",
		},
		{
			name: "rate_limit_zero",
			cfg: withBackend(func(b *config.Backend) {
				b.RateLimit = &config.RateLimit{RequestsPerSecond: 0}
			}),
			message: "requests-per-second must be greater than zero",
		},
		{
			name: "tls_half_client_pair",
			cfg: withBackend(func(b *config.Backend) {
				b.TLS = &config.TLS{ClientCertFile: "/tmp/cert.pem"}
			}),
			message: "client-cert-file and client-key-file",
		},
		{
			name: "service_base_url_invalid",
			cfg: config.Context{
				Name:     "dev",
				Backend:  validBackend(),
				Services: map[string]config.ServiceSettings{"remote-config": {BaseURL: "not a url"}},
			},
			message: "services.remote-config.base-url is invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateConfig(tt.cfg)
			if err == nil {
				t.Fatalf("expected validation failure for %s", tt.name)
			}
			assertTypedCategory(t, err, faults.ValidationError)
			if !strings.Contains(err.Error(), tt.message) {
				t.Fatalf("expected error containing %q, got %v", tt.message, err)
			}
		})
	}
}

func TestValidateConfigAcceptsOAuth2ClientCredentials(t *testing.T) {
	t.Parallel()

	err := validateConfig(config.Context{
		Name: "dev",
		Backend: &config.Backend{
			BaseURL: "https://services.example.com",
			Auth: &config.HTTPAuth{OAuth2: &config.OAuth2{
				TokenURL:     "https://auth.example.com/token",
				GrantType:    config.OAuthClientCreds,
				ClientID:     "id",
				ClientSecret: "secret",
			}},
		},
	})
	if err != nil {
		t.Fatalf("expected oauth2 client credentials to validate, got %v", err)
	}
}

func TestResolveCatalogPathDefaultAndEnv(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to resolve home dir: %v", err)
	}

	resolvedDefault, err := resolveCatalogPath(config.DefaultContextCatalogPath)
	if err != nil {
		t.Fatalf("resolveCatalogPath default failed: %v", err)
	}

	expectedDefault := filepath.Join(home, ".liveops/contexts.yaml")
	if resolvedDefault != expectedDefault {
		t.Fatalf("expected %q, got %q", expectedDefault, resolvedDefault)
	}

	envPath := filepath.Join(t.TempDir(), "contexts.yaml")
	t.Setenv(config.ContextFileEnvVar, envPath)
	resolvedFromEnv, err := resolveCatalogPath("")
	if err != nil {
		t.Fatalf("resolveCatalogPath env failed: %v", err)
	}
	if resolvedFromEnv != envPath {
		t.Fatalf("expected env path %q, got %q", envPath, resolvedFromEnv)
	}
}

func TestResolveContextUnknownOverrideFails(t *testing.T) {
	t.Parallel()

	contextService := NewCatalog(writeCatalog(t, validContextCatalogYAML))
	_, err := contextService.ResolveContext(context.Background(), config.ContextSelection{
		Name:      "dev",
		Overrides: map[string]string{"unknown.key": "value"},
	})
	if err == nil {
		t.Fatal("expected unknown override error")
	}
	if !strings.Contains(err.Error(), "unknown override key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveContextSelectionAndPrecedence(t *testing.T) {
	t.Parallel()

	contextService := NewCatalog(writeCatalog(t, selectionContextCatalogYAML))

	t.Run("explicit_context_selected", func(t *testing.T) {
		t.Parallel()

		resolvedContext, err := contextService.ResolveContext(context.Background(), config.ContextSelection{Name: "prod"})
		if err != nil {
			t.Fatalf("ResolveContext returned error: %v", err)
		}
		if resolvedContext.Name != "prod" || resolvedContext.EnvironmentName != "production" {
			t.Fatalf("unexpected resolved context %#v", resolvedContext)
		}
	})

	t.Run("empty_name_uses_current_context", func(t *testing.T) {
		t.Parallel()

		resolvedContext, err := contextService.ResolveContext(context.Background(), config.ContextSelection{})
		if err != nil {
			t.Fatalf("ResolveContext returned error: %v", err)
		}
		if resolvedContext.Name != "dev" {
			t.Fatalf("expected current context dev, got %q", resolvedContext.Name)
		}
	})

	t.Run("unknown_context_returns_not_found", func(t *testing.T) {
		t.Parallel()

		_, err := contextService.ResolveContext(context.Background(), config.ContextSelection{Name: "missing"})
		assertTypedCategory(t, err, faults.NotFoundError)
		if !strings.Contains(err.Error(), "context \"missing\" not found") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("runtime_override_takes_precedence", func(t *testing.T) {
		t.Parallel()

		resolvedContext, err := contextService.ResolveContext(context.Background(), config.ContextSelection{
			Name: "dev",
			Overrides: map[string]string{
				config.OverrideProjectID:      "override-project",
				config.OverrideBackendBaseURL: "https://override.example.com",
			},
		})
		if err != nil {
			t.Fatalf("ResolveContext returned error: %v", err)
		}
		if resolvedContext.ProjectID != "override-project" {
			t.Fatalf("expected project override, got %q", resolvedContext.ProjectID)
		}
		if resolvedContext.Backend.BaseURL != "https://override.example.com" {
			t.Fatalf("expected base-url override, got %q", resolvedContext.Backend.BaseURL)
		}
	})

	t.Run("environment_name_override_clears_catalog_id", func(t *testing.T) {
		t.Parallel()

		resolvedContext, err := contextService.ResolveContext(context.Background(), config.ContextSelection{
			Name:      "dev",
			Overrides: map[string]string{config.OverrideEnvironmentName: "staging"},
		})
		if err != nil {
			t.Fatalf("ResolveContext returned error: %v", err)
		}
		if resolvedContext.EnvironmentID != "" || resolvedContext.EnvironmentName != "staging" {
			t.Fatalf("expected environment name staging without id, got id=%q name=%q", resolvedContext.EnvironmentID, resolvedContext.EnvironmentName)
		}
	})
}

func TestResolveContextEnvironmentVariablesSitBelowFlags(t *testing.T) {
	contextService := NewCatalog(writeCatalog(t, selectionContextCatalogYAML))

	t.Setenv(config.ProjectIDEnvVar, "env-project")
	t.Setenv(config.EnvironmentIDEnvVar, "env-environment-id")

	resolved, err := contextService.ResolveContext(context.Background(), config.ContextSelection{Name: "dev"})
	if err != nil {
		t.Fatalf("ResolveContext returned error: %v", err)
	}
	if resolved.ProjectID != "env-project" || resolved.EnvironmentID != "env-environment-id" {
		t.Fatalf("expected environment variables to override catalog, got %#v", resolved)
	}

	resolved, err = contextService.ResolveContext(context.Background(), config.ContextSelection{
		Name:      "dev",
		Overrides: map[string]string{config.OverrideEnvironmentName: "flag-environment"},
	})
	if err != nil {
		t.Fatalf("ResolveContext returned error: %v", err)
	}
	if resolved.ProjectID != "env-project" {
		t.Fatalf("expected project from environment variable, got %q", resolved.ProjectID)
	}
	if resolved.EnvironmentID != "" || resolved.EnvironmentName != "flag-environment" {
		t.Fatalf("expected flag environment name to win, got id=%q name=%q", resolved.EnvironmentID, resolved.EnvironmentName)
	}
}

func TestMergeOverrides(t *testing.T) {
	t.Parallel()

	merged := mergeOverrides(
		map[string]string{
			config.OverrideProjectID:       "env-project",
			config.OverrideEnvironmentName: "env-name",
		},
		map[string]string{config.OverrideEnvironmentID: "flag-id"},
	)

	if merged[config.OverrideProjectID] != "env-project" {
		t.Fatalf("expected env project to survive, got %#v", merged)
	}
	if _, found := merged[config.OverrideEnvironmentName]; found {
		t.Fatalf("expected env environment name to be dropped, got %#v", merged)
	}
	if merged[config.OverrideEnvironmentID] != "flag-id" {
		t.Fatalf("expected flag environment id, got %#v", merged)
	}
}

func TestCatalogCreateWritesUserOnlyPermissions(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("POSIX file mode semantics are not portable on Windows")
	}

	path := filepath.Join(t.TempDir(), "contexts.yaml")
	contextService := NewCatalog(path)

	if err := contextService.Create(context.Background(), config.Context{Name: "dev", Backend: validBackend()}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat catalog: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Fatalf("expected 0600 permissions, got %#o", got)
	}
}

func TestCatalogReadTightensPermissiveFileMode(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("POSIX file mode semantics are not portable on Windows")
	}

	path := filepath.Join(t.TempDir(), "contexts.yaml")
	if err := os.WriteFile(path, []byte(validContextCatalogYAML), 0o644); err != nil {
		t.Fatalf("failed to write test catalog: %v", err)
	}

	contextService := NewCatalog(path)
	if _, err := contextService.List(context.Background()); err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat catalog: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Fatalf("expected normalized 0600 permissions, got %#o", got)
	}
}

func TestContextServiceMissingCatalogBehaviors(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "contexts.yaml")
	contextService := NewCatalog(path)

	items, err := contextService.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty list, got %d items", len(items))
	}

	_, err = contextService.GetCurrent(context.Background())
	assertTypedCategory(t, err, faults.NotFoundError)
	if !strings.Contains(err.Error(), "current context not set") {
		t.Fatalf("unexpected get current error: %v", err)
	}

	_, err = contextService.ResolveContext(context.Background(), config.ContextSelection{})
	assertTypedCategory(t, err, faults.NotFoundError)
	if !strings.Contains(err.Error(), "current context not set") {
		t.Fatalf("unexpected resolve error: %v", err)
	}

	if err := contextService.SetCurrent(context.Background(), "missing"); err == nil {
		t.Fatal("expected SetCurrent on empty contextCatalog to fail")
	} else {
		assertTypedCategory(t, err, faults.NotFoundError)
	}
}

func TestContextServiceCRUDLifecycle(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "contexts.yaml")
	contextService := NewCatalog(path)

	if err := contextService.Create(context.Background(), config.Context{Name: "dev", ProjectID: "p-dev", Backend: validBackend()}); err != nil {
		t.Fatalf("Create(dev) returned error: %v", err)
	}
	if err := contextService.Create(context.Background(), config.Context{Name: "prod", ProjectID: "p-prod", Backend: validBackend()}); err != nil {
		t.Fatalf("Create(prod) returned error: %v", err)
	}

	err := contextService.Create(context.Background(), config.Context{Name: "dev", Backend: validBackend()})
	assertTypedCategory(t, err, faults.ValidationError)

	current, err := contextService.GetCurrent(context.Background())
	if err != nil {
		t.Fatalf("GetCurrent returned error: %v", err)
	}
	if current.Name != "dev" {
		t.Fatalf("expected current context dev, got %q", current.Name)
	}

	if err := contextService.SetCurrent(context.Background(), "prod"); err != nil {
		t.Fatalf("SetCurrent(prod) returned error: %v", err)
	}
	if err := contextService.Rename(context.Background(), "prod", "stage"); err != nil {
		t.Fatalf("Rename(prod->stage) returned error: %v", err)
	}

	current, err = contextService.GetCurrent(context.Background())
	if err != nil {
		t.Fatalf("GetCurrent after Rename returned error: %v", err)
	}
	if current.Name != "stage" {
		t.Fatalf("expected current context stage after rename, got %q", current.Name)
	}

	if err := contextService.Update(context.Background(), config.Context{
		Name:          "stage",
		ProjectID:     "p-stage",
		EnvironmentID: "env-stage",
		Backend:       validBackend(),
	}); err != nil {
		t.Fatalf("Update(stage) returned error: %v", err)
	}

	resolved, err := contextService.ResolveContext(context.Background(), config.ContextSelection{Name: "stage"})
	if err != nil {
		t.Fatalf("ResolveContext(stage) returned error: %v", err)
	}
	if resolved.ProjectID != "p-stage" || resolved.EnvironmentID != "env-stage" {
		t.Fatalf("expected updated identifiers, got %#v", resolved)
	}

	if err := contextService.Delete(context.Background(), "stage"); err != nil {
		t.Fatalf("Delete(stage) returned error: %v", err)
	}

	current, err = contextService.GetCurrent(context.Background())
	if err != nil {
		t.Fatalf("GetCurrent after deleting current context returned error: %v", err)
	}
	if current.Name != "dev" {
		t.Fatalf("expected fallback current context dev, got %q", current.Name)
	}

	if err := contextService.Delete(context.Background(), "dev"); err != nil {
		t.Fatalf("Delete(dev) returned error: %v", err)
	}

	items, err := contextService.List(context.Background())
	if err != nil {
		t.Fatalf("List after deleting all contexts returned error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty contextCatalog, got %#v", items)
	}
}

func TestSetCurrentPreservesContextOrder(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "contexts.yaml")
	contextService := NewCatalog(path)

	for _, name := range []string{"a", "b", "c"} {
		if err := contextService.Create(context.Background(), config.Context{Name: name, Backend: validBackend()}); err != nil {
			t.Fatalf("Create(%q) returned error: %v", name, err)
		}
	}

	if err := contextService.SetCurrent(context.Background(), "b"); err != nil {
		t.Fatalf("SetCurrent(b) returned error: %v", err)
	}

	items, err := contextService.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 contexts, got %d", len(items))
	}
	if items[0].Name != "a" || items[1].Name != "b" || items[2].Name != "c" {
		t.Fatalf("expected preserved order [a b c], got [%s %s %s]", items[0].Name, items[1].Name, items[2].Name)
	}
}

func TestEmptyServiceSettingsAreNotPersisted(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "contexts.yaml")
	contextService := NewCatalog(path)

	if err := contextService.Create(context.Background(), config.Context{
		Name:     "dev",
		Backend:  validBackend(),
		Services: map[string]config.ServiceSettings{},
	}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved context catalog: %v", err)
	}
	if strings.Contains(string(raw), "services:") {
		t.Fatalf("expected empty services block to be omitted, got:\n%s", string(raw))
	}
	if strings.Contains(string(raw), "timeout:") {
		t.Fatalf("expected zero timeout to be omitted, got:\n%s", string(raw))
	}
}

func TestResolveContextOverrideFailureIsDeterministic(t *testing.T) {
	t.Parallel()

	contextService := NewCatalog(writeCatalog(t, selectionContextCatalogYAML))
	_, err := contextService.ResolveContext(context.Background(), config.ContextSelection{
		Name: "dev",
		Overrides: map[string]string{
			config.OverrideProjectID: "p",
			"zzz.unknown":            "x",
			"aaa.unknown":            "x",
		},
	})
	if err == nil {
		t.Fatal("expected invalid overrides to fail")
	}
	if !strings.Contains(err.Error(), "unknown override key \"aaa.unknown\"") {
		t.Fatalf("expected deterministic failure on alphabetically first invalid key, got: %v", err)
	}
}

func TestMutationOnMissingCatalogReturnsNotFound(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "contexts.yaml")
	contextService := NewCatalog(path)

	tests := []struct {
		name string
		run  func() error
	}{
		{
			name: "update",
			run: func() error {
				return contextService.Update(context.Background(), config.Context{Name: "missing", Backend: validBackend()})
			},
		},
		{
			name: "delete",
			run: func() error {
				return contextService.Delete(context.Background(), "missing")
			},
		},
		{
			name: "rename",
			run: func() error {
				return contextService.Rename(context.Background(), "missing", "renamed")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			assertTypedCategory(t, err, faults.NotFoundError)
		})
	}
}

func assertTypedCategory(t *testing.T, err error, category faults.ErrorCategory) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %q error, got nil", category)
	}

	var typedErr *faults.TypedError
	if !errors.As(err, &typedErr) {
		t.Fatalf("expected typed error, got %T", err)
	}
	if typedErr.Category != category {
		t.Fatalf("expected %q category, got %q", category, typedErr.Category)
	}
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "contexts.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test contextCatalog: %v", err)
	}
	return path
}

func validBackend() *config.Backend {
	return &config.Backend{
		BaseURL: "https://services.example.com",
		Auth: &config.HTTPAuth{
			BearerToken: &config.BearerTokenAuth{Token: "secret-token"},
		},
	}
}

const validContextCatalogYAML = `
contexts:
  - name: dev
    project-id: 4a6e0c49-1c2b-4d4e-9b1e-0f7b2f6f3a10
    environment-name: development
    backend:
      base-url: https://services.example.com
      timeout: 30s
      rate-limit:
        requests-per-second: 10
        burst: 5
      auth:
        oauth2:
          token-url: https://auth.example.com/oauth2/token
          grant-type: client_credentials
          client-id: liveops
          client-secret: change-me
    services:
      remote-config:
        compare-jq: del(.updatedAt)
      access:
        disabled: true
current-ctx: dev
`

const selectionContextCatalogYAML = `
contexts:
  - name: dev
    project-id: p-dev
    environment-id: env-dev
    backend:
      base-url: https://services.example.com
      auth:
        bearer-token:
          token: secret-token

  - name: prod
    project-id: p-prod
    environment-name: production
    backend:
      base-url: https://services.example.com
      auth:
        basic-auth:
          username: deployer
          password: secret

current-ctx: dev
`

func TestResolveCatalogPathRejectsHomeDirectory(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"~", "~/"} {
		_, err := resolveCatalogPath(path)
		assertTypedCategory(t, err, faults.ValidationError)
	}
}

func TestCatalogSerializesConcurrentCreates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "contexts.yaml")
	catalog := NewCatalog(path)

	names := []string{"a", "b", "c", "d", "e", "f"}
	errs := make(chan error, len(names))
	for _, name := range names {
		go func() {
			errs <- catalog.Create(context.Background(), config.Context{Name: name, Backend: validBackend()})
		}()
	}
	for range names {
		if err := <-errs; err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	items, err := catalog.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != len(names) {
		t.Fatalf("expected %d contexts, got %d", len(names), len(items))
	}
}
