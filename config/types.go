package config

import "time"

type ContextSelection struct {
	Name      string
	Overrides map[string]string
}

const (
	ContextFileEnvVar         = "LIVEOPS_CONTEXTS_FILE"
	ProjectIDEnvVar           = "LIVEOPS_PROJECT_ID"
	EnvironmentIDEnvVar       = "LIVEOPS_ENVIRONMENT_ID"
	EnvironmentNameEnvVar     = "LIVEOPS_ENVIRONMENT_NAME"
	DefaultContextCatalogPath = "~/.liveops/contexts.yaml"
	OAuthClientCreds          = "client_credentials"
)

// Override keys accepted by ContextSelection.Overrides.
const (
	OverrideProjectID       = "project-id"
	OverrideEnvironmentID   = "environment-id"
	OverrideEnvironmentName = "environment-name"
	OverrideBackendBaseURL  = "backend.base-url"
)

type ContextCatalog struct {
	Contexts   []Context `yaml:"contexts"`
	CurrentCtx string    `yaml:"current-ctx"`
}

type Context struct {
	Name            string                     `yaml:"name"`
	ProjectID       string                     `yaml:"project-id,omitempty"`
	EnvironmentID   string                     `yaml:"environment-id,omitempty"`
	EnvironmentName string                     `yaml:"environment-name,omitempty"`
	Backend         *Backend                   `yaml:"backend,omitempty"`
	Services        map[string]ServiceSettings `yaml:"services,omitempty"`
}

// Service returns the per-service settings, or the zero value.
func (c Context) Service(name string) ServiceSettings {
	if c.Services == nil {
		return ServiceSettings{}
	}
	return c.Services[name]
}

type Backend struct {
	BaseURL        string            `yaml:"base-url"`
	DefaultHeaders map[string]string `yaml:"default-headers,omitempty"`
	Auth           *HTTPAuth         `yaml:"auth,omitempty"`
	TLS            *TLS              `yaml:"tls,omitempty"`
	RateLimit      *RateLimit        `yaml:"rate-limit,omitempty"`
	Timeout        Duration          `yaml:"timeout,omitempty"`
}

type ServiceSettings struct {
	BaseURL   string `yaml:"base-url,omitempty"`
	CompareJQ string `yaml:"compare-jq,omitempty"`
	Disabled  bool   `yaml:"disabled,omitempty"`
}

type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests-per-second"`
	Burst             int     `yaml:"burst,omitempty"`
}

type HTTPAuth struct {
	OAuth2       *OAuth2          `yaml:"oauth2,omitempty"`
	BasicAuth    *BasicAuth       `yaml:"basic-auth,omitempty"`
	BearerToken  *BearerTokenAuth `yaml:"bearer-token,omitempty"`
	CustomHeader *HeaderTokenAuth `yaml:"custom-header,omitempty"`
}

type OAuth2 struct {
	TokenURL     string `yaml:"token-url"`
	GrantType    string `yaml:"grant-type"`
	ClientID     string `yaml:"client-id"`
	ClientSecret string `yaml:"client-secret"`
	Scope        string `yaml:"scope,omitempty"`
	Audience     string `yaml:"audience,omitempty"`
}

type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type BearerTokenAuth struct {
	Token string `yaml:"token"`
}

type HeaderTokenAuth struct {
	Header string `yaml:"header"`
	Token  string `yaml:"token"`
}

type TLS struct {
	CACertFile         string `yaml:"ca-cert-file,omitempty"`
	ClientCertFile     string `yaml:"client-cert-file,omitempty"`
	ClientKeyFile      string `yaml:"client-key-file,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecure-skip-verify,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (any, error) {
	if d == 0 {
		return "", nil
	}
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	if raw == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
