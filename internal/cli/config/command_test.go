package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	configdomain "github.com/crmarques/liveops/config"
	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/internal/cli/common"
	clitestkit "github.com/crmarques/liveops/internal/cli/testkit"
)

type testContextService struct {
	contexts  []configdomain.Context
	current   string
	created   []configdomain.Context
	deleted   []string
	selection configdomain.ContextSelection
}

func (s *testContextService) Create(_ context.Context, cfg configdomain.Context) error {
	if cfg.Backend == nil || cfg.Backend.Auth == nil {
		return faults.NewTypedError(faults.ValidationError, "backend.auth is required", nil)
	}
	s.created = append(s.created, cfg)
	s.contexts = append(s.contexts, cfg)
	return nil
}

func (s *testContextService) Update(context.Context, configdomain.Context) error { return nil }

func (s *testContextService) Delete(_ context.Context, name string) error {
	s.deleted = append(s.deleted, name)
	return nil
}

func (s *testContextService) Rename(context.Context, string, string) error { return nil }

func (s *testContextService) SetCurrent(_ context.Context, name string) error {
	s.current = name
	return nil
}

func (s *testContextService) List(context.Context) ([]configdomain.Context, error) {
	return s.contexts, nil
}

func (s *testContextService) GetCurrent(context.Context) (configdomain.Context, error) {
	for _, item := range s.contexts {
		if item.Name == s.current {
			return item, nil
		}
	}
	return configdomain.Context{}, faults.NewTypedError(faults.NotFoundError, "current context is not set", nil)
}

func (s *testContextService) ResolveContext(_ context.Context, selection configdomain.ContextSelection) (configdomain.Context, error) {
	s.selection = selection
	name := selection.Name
	if name == "" {
		name = s.current
	}
	for _, item := range s.contexts {
		if item.Name == name {
			return item, nil
		}
	}
	return configdomain.Context{}, faults.NewTypedError(faults.NotFoundError, "context not found", nil)
}

func (s *testContextService) Validate(context.Context, configdomain.Context) error { return nil }

// scriptedPrompter answers prompts in order.
type scriptedPrompter struct {
	interactive bool
	answers     []string
	prompts     []string
}

func (p *scriptedPrompter) next(prompt string) string {
	p.prompts = append(p.prompts, prompt)
	if len(p.answers) == 0 {
		return ""
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer
}

func (p *scriptedPrompter) IsInteractive(*cobra.Command) bool { return p.interactive }

func (p *scriptedPrompter) Input(_ *cobra.Command, prompt string, _ bool) (string, error) {
	return p.next(prompt), nil
}

func (p *scriptedPrompter) Secret(_ *cobra.Command, prompt string) (string, error) {
	return p.next(prompt), nil
}

func (p *scriptedPrompter) Select(_ *cobra.Command, prompt string, _ []string) (string, error) {
	return p.next(prompt), nil
}

func (p *scriptedPrompter) Confirm(_ *cobra.Command, prompt string, _ bool) (bool, error) {
	return p.next(prompt) == "yes", nil
}

func executeConfigCommand(t *testing.T, service *testContextService, prompter common.Prompter, stdin string, args ...string) (string, error) {
	t.Helper()

	var globalFlags common.GlobalFlags
	root := &cobra.Command{Use: "liveops", SilenceErrors: true, SilenceUsage: true}
	common.BindGlobalFlags(root, &globalFlags)

	deps := common.CommandDependencies{}
	if service != nil {
		deps.Contexts = service
	}
	root.AddCommand(newCommandWithPrompter(deps, &globalFlags, prompter))
	return clitestkit.ExecuteCommandForTest(root, stdin, append([]string{"config"}, args...)...)
}

func TestAddFromFlags(t *testing.T) {
	t.Parallel()

	service := &testContextService{}
	_, err := executeConfigCommand(t, service, &scriptedPrompter{}, "",
		"add", "dev",
		"--base-url", "https://services.example.com",
		"-p", "project",
		"-e", "production",
		"--bearer-token", "token",
		"--requests-per-second", "5",
		"--set-current",
	)
	if err != nil {
		t.Fatalf("config add returned error: %v", err)
	}

	if len(service.created) != 1 {
		t.Fatalf("expected one created context, got %d", len(service.created))
	}
	created := service.created[0]
	if created.Name != "dev" || created.ProjectID != "project" || created.EnvironmentName != "production" {
		t.Fatalf("unexpected context %#v", created)
	}
	if created.Backend.Auth.BearerToken == nil || created.Backend.Auth.BearerToken.Token != "token" {
		t.Fatalf("expected bearer auth, got %#v", created.Backend.Auth)
	}
	if created.Backend.RateLimit == nil || created.Backend.RateLimit.RequestsPerSecond != 5 {
		t.Fatalf("expected rate limit, got %#v", created.Backend.RateLimit)
	}
	if service.current != "dev" {
		t.Fatalf("expected dev to become current, got %q", service.current)
	}
}

func TestAddFromFileRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "context.yaml")
	content := `
name: dev
backend:
  base-url: https://services.example.com
  auth:
    bearer-token:
      token: token
unknown: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write context file: %v", err)
	}

	service := &testContextService{}
	_, err := executeConfigCommand(t, service, &scriptedPrompter{}, "", "add", "--file", path)
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(service.created) != 0 {
		t.Fatal("expected create to be skipped on decode failure")
	}
}

func TestAddFromStdinRenamesContext(t *testing.T) {
	t.Parallel()

	stdin := `
name: template
project-id: project
backend:
  base-url: https://services.example.com
  auth:
    bearer-token:
      token: token
`
	service := &testContextService{}
	if _, err := executeConfigCommand(t, service, &scriptedPrompter{}, stdin, "add", "staging", "--file", "-"); err != nil {
		t.Fatalf("config add returned error: %v", err)
	}
	if service.created[0].Name != "staging" || service.created[0].ProjectID != "project" {
		t.Fatalf("unexpected context %#v", service.created[0])
	}
}

func TestAddInteractivePromptsForBackend(t *testing.T) {
	t.Parallel()

	prompter := &scriptedPrompter{
		interactive: true,
		answers: []string{
			"dev",                          // context name
			"project",                      // project id
			environmentByName,              // environment mode
			"production",                   // environment name
			"https://services.example.com", // base url
			"oauth2",                       // auth method
			"https://auth.example.com/token",
			"client",
			"secret",
			"", // scope
			"no",
		},
	}
	service := &testContextService{}
	if _, err := executeConfigCommand(t, service, prompter, "", "add"); err != nil {
		t.Fatalf("config add returned error: %v", err)
	}

	created := service.created[0]
	if created.Name != "dev" || created.EnvironmentName != "production" {
		t.Fatalf("unexpected context %#v", created)
	}
	oauth := created.Backend.Auth.OAuth2
	if oauth == nil || oauth.ClientSecret != "secret" || oauth.GrantType != configdomain.OAuthClientCreds {
		t.Fatalf("unexpected oauth2 settings %#v", oauth)
	}
}

func TestAddWithoutInputOrTerminalFails(t *testing.T) {
	t.Parallel()

	_, err := executeConfigCommand(t, &testContextService{}, &scriptedPrompter{}, "", "add", "dev")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListMarksCurrentContext(t *testing.T) {
	t.Parallel()

	service := &testContextService{
		contexts: []configdomain.Context{{Name: "dev"}, {Name: "prod"}},
		current:  "prod",
	}
	output, err := executeConfigCommand(t, service, &scriptedPrompter{}, "", "list")
	if err != nil {
		t.Fatalf("config list returned error: %v", err)
	}
	if output != "  dev\n* prod\n" {
		t.Fatalf("unexpected list output %q", output)
	}
}

func TestUseAndDeleteRequireNameWithoutTerminal(t *testing.T) {
	t.Parallel()

	service := &testContextService{contexts: []configdomain.Context{{Name: "dev"}}}
	for _, action := range []string{"use", "delete"} {
		_, err := executeConfigCommand(t, service, &scriptedPrompter{}, "", action)
		if err == nil || !strings.Contains(err.Error(), "context name is required") {
			t.Fatalf("%s: expected missing name error, got %v", action, err)
		}
	}

	if _, err := executeConfigCommand(t, service, &scriptedPrompter{}, "", "use", "dev"); err != nil {
		t.Fatalf("config use returned error: %v", err)
	}
	if service.current != "dev" {
		t.Fatalf("expected dev to become current, got %q", service.current)
	}
	if _, err := executeConfigCommand(t, service, &scriptedPrompter{}, "", "delete", "dev"); err != nil {
		t.Fatalf("config delete returned error: %v", err)
	}
	if strings.Join(service.deleted, ",") != "dev" {
		t.Fatalf("expected dev to be deleted, got %v", service.deleted)
	}
}

func TestShowPassesOverridesAndPrintsYAML(t *testing.T) {
	t.Parallel()

	service := &testContextService{
		contexts: []configdomain.Context{{Name: "dev", ProjectID: "project"}},
		current:  "dev",
	}
	output, err := executeConfigCommand(t, service, &scriptedPrompter{}, "", "show", "--environment-id", "env-1")
	if err != nil {
		t.Fatalf("config show returned error: %v", err)
	}
	if !strings.Contains(output, "name: dev") || !strings.Contains(output, "project-id: project") {
		t.Fatalf("expected yaml context, got %q", output)
	}
	if service.selection.Overrides[configdomain.OverrideEnvironmentID] != "env-1" {
		t.Fatalf("expected environment-id override, got %#v", service.selection)
	}
}

func TestCurrentRequiresContextService(t *testing.T) {
	t.Parallel()

	_, err := executeConfigCommand(t, nil, &scriptedPrompter{}, "", "current")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
