package core

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crmarques/liveops/config"
	"github.com/crmarques/liveops/faults"
	configfile "github.com/crmarques/liveops/internal/providers/config/file"
	"github.com/crmarques/liveops/orchestrator"
	"github.com/crmarques/liveops/resource"
)

func TestNewLiveopsContext(t *testing.T) {
	t.Parallel()

	catalogPath := filepath.Join(t.TempDir(), "contexts.yaml")
	writeContextCatalog(t, catalogPath, "https://services.example.com", "")

	liveopsContext, err := NewLiveopsContext(
		context.Background(),
		BootstrapConfig{ContextCatalogPath: catalogPath},
		config.ContextSelection{Name: "dev"},
	)
	if err != nil {
		t.Fatalf("NewLiveopsContext returned error: %v", err)
	}

	if _, ok := liveopsContext.Contexts.(*configfile.Catalog); !ok {
		t.Fatalf("expected file catalog, got %T", liveopsContext.Contexts)
	}
	if liveopsContext.Orchestrator == nil {
		t.Fatal("expected non-nil orchestrator")
	}
	if liveopsContext.Context.Name != "dev" {
		t.Fatalf("expected dev context, got %q", liveopsContext.Context.Name)
	}

	expected := []string{"cloud-code-scripts", "remote-config", "game-server-hosting", "access"}
	names := liveopsContext.Registry.Names()
	if strings.Join(names, ",") != strings.Join(expected, ",") {
		t.Fatalf("expected services %v, got %v", expected, names)
	}
}

func TestNewLiveopsContextSkipsDisabledServices(t *testing.T) {
	t.Parallel()

	catalogPath := filepath.Join(t.TempDir(), "contexts.yaml")
	writeContextCatalog(t, catalogPath, "https://services.example.com", `
    services:
      access:
        disabled: true
      remote-config:
        compare-jq: 'del(.type)'
`)

	liveopsContext, err := NewLiveopsContext(
		context.Background(),
		BootstrapConfig{ContextCatalogPath: catalogPath},
		config.ContextSelection{Name: "dev"},
	)
	if err != nil {
		t.Fatalf("NewLiveopsContext returned error: %v", err)
	}
	if _, found := liveopsContext.Registry.Lookup("access"); found {
		t.Fatal("expected disabled access service to be skipped")
	}
	if _, found := liveopsContext.Registry.Lookup("remote-config"); !found {
		t.Fatal("expected remote-config to stay registered")
	}
}

func TestNewLiveopsContextRejectsInvalidServiceSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		services string
		message  string
	}{
		{
			name: "unknown_service",
			services: `
    services:
      leaderboards:
        disabled: true
`,
			message: "unknown services in context settings: leaderboards",
		},
		{
			name: "invalid_compare_jq",
			services: `
    services:
      cloud-code-scripts:
        compare-jq: '.code |'
`,
			message: "services.cloud-code-scripts.compare-jq is invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			catalogPath := filepath.Join(t.TempDir(), "contexts.yaml")
			writeContextCatalog(t, catalogPath, "https://services.example.com", tt.services)

			_, err := NewLiveopsContext(
				context.Background(),
				BootstrapConfig{ContextCatalogPath: catalogPath},
				config.ContextSelection{Name: "dev"},
			)
			if !faults.IsCategory(err, faults.ValidationError) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Fatalf("expected %q in error, got %v", tt.message, err)
			}
		})
	}
}

func TestNewLiveopsContextFailsFastWhenCurrentContextMissing(t *testing.T) {
	t.Parallel()

	catalogPath := filepath.Join(t.TempDir(), "contexts.yaml")
	if err := os.WriteFile(catalogPath, []byte("contexts: []\n"), 0o600); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	_, err := NewLiveopsContext(context.Background(), BootstrapConfig{ContextCatalogPath: catalogPath}, config.ContextSelection{})
	if err == nil {
		t.Fatal("expected error when no context is selected")
	}
}

func TestLiveopsContextDeploysRemoteConfig(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		body map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer dev-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		const configs = "/remote-config/v1/projects/project/environments/env-1/configs"
		switch {
		case r.Method == http.MethodGet && r.URL.Path == configs:
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"configs":[{"id":"cfg-1","type":"settings","value":[{"key":"old","type":"string","value":"x"}]}]}`)
		case r.Method == http.MethodPut && r.URL.Path == configs+"/cfg-1":
			mu.Lock()
			defer mu.Unlock()
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	tempDir := t.TempDir()
	catalogPath := filepath.Join(tempDir, "contexts.yaml")
	writeContextCatalog(t, catalogPath, server.URL, "")
	configPath := filepath.Join(tempDir, "game.rc")
	if err := os.WriteFile(configPath, []byte(`{"entries":{"max_players":16}}`), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	recorder := &recordingObserver{}
	liveopsContext, err := NewLiveopsContext(
		context.Background(),
		BootstrapConfig{ContextCatalogPath: catalogPath, UserAgent: "liveops-test", Observer: recorder},
		config.ContextSelection{Name: "dev"},
	)
	if err != nil {
		t.Fatalf("NewLiveopsContext returned error: %v", err)
	}

	report, err := liveopsContext.Orchestrator.Run(context.Background(), orchestrator.Request{
		Operation: resource.OperationDeploy,
		Paths:     []string{configPath},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.EnvironmentID != "env-1" {
		t.Fatalf("expected env-1, got %q", report.EnvironmentID)
	}
	if len(report.Aggregate.Created) != 1 || report.Aggregate.Created[0].Key != "max_players" {
		t.Fatalf("expected max_players created, got %#v", report.Aggregate.Created)
	}

	mu.Lock()
	values, _ := body["value"].([]any)
	mu.Unlock()
	if len(values) != 2 {
		t.Fatalf("expected remote document to keep the unplanned key, got %#v", body)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.requests < 2 {
		t.Fatalf("expected backend requests to be observed, got %d", recorder.requests)
	}
	if recorder.services["remote-config"] != 1 {
		t.Fatalf("expected remote-config outcome to be recorded, got %#v", recorder.services)
	}
}

func TestAvailableServicesListsEveryBundledService(t *testing.T) {
	t.Parallel()

	infos := AvailableServices()
	if len(infos) != 4 {
		t.Fatalf("expected 4 services, got %d", len(infos))
	}
	extensions := map[string]string{}
	for _, info := range infos {
		extensions[info.Name] = info.Extension
	}
	if extensions["remote-config"] != ".rc" || extensions["cloud-code-scripts"] != ".js" {
		t.Fatalf("unexpected extensions %#v", extensions)
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	requests int
	services map[string]int
}

func (r *recordingObserver) ObserveRequest(string, string, int, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests++
}

func (r *recordingObserver) ObserveService(service string, _ resource.Operation, _ resource.Result, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.services == nil {
		r.services = map[string]int{}
	}
	r.services[service]++
}

func writeContextCatalog(t *testing.T, path string, baseURL string, extra string) {
	t.Helper()

	contextCatalog := `
contexts:
  - name: dev
    project-id: project
    environment-id: env-1
    backend:
      base-url: ` + baseURL + `
      auth:
        bearer-token:
          token: dev-token
` + strings.TrimPrefix(extra, "\n") + `  - name: prod
    project-id: project
    environment-name: production
    backend:
      base-url: ` + baseURL + `
      auth:
        bearer-token:
          token: prod-token
current-ctx: dev
`
	if err := os.WriteFile(path, []byte(contextCatalog), 0o600); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
}
