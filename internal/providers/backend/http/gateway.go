package http

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/crmarques/liveops/config"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultMediaType   = "application/json"
	maxResponseBytes   = 8 << 20
)

// RequestObserver receives one call per completed HTTP exchange. Status is
// zero when the request never got a response.
type RequestObserver interface {
	ObserveRequest(purpose string, method string, status int, elapsed time.Duration)
}

// Gateway is a JSON client for one backend base URL. It is safe for
// concurrent use; each service builds its own so token caches and rate
// limiters are never shared across services.
type Gateway struct {
	baseURL        *url.URL
	defaultHeaders map[string]string
	auth           authConfig
	client         *http.Client
	limiter        *rate.Limiter
	tlsDebug       tlsDebugInfo
	observer       RequestObserver
	userAgent      string
	optionErr      error

	oauthMu          sync.Mutex
	oauthAccessToken string
	oauthExpiresAt   time.Time
}

type GatewayOption func(*Gateway)

// WithBaseURL replaces the backend base URL, used for per-service overrides.
// Blank values are ignored.
func WithBaseURL(raw string) GatewayOption {
	return func(g *Gateway) {
		if g == nil || strings.TrimSpace(raw) == "" {
			return
		}
		parsed, err := parseBaseURL(raw)
		if err != nil {
			g.optionErr = err
			return
		}
		g.baseURL = parsed
	}
}

func WithRequestObserver(observer RequestObserver) GatewayOption {
	return func(g *Gateway) {
		if g == nil {
			return
		}
		g.observer = observer
	}
}

func WithUserAgent(userAgent string) GatewayOption {
	return func(g *Gateway) {
		if g == nil {
			return
		}
		g.userAgent = strings.TrimSpace(userAgent)
	}
}

func NewGateway(cfg config.Backend, opts ...GatewayOption) (*Gateway, error) {
	baseURL, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	auth, err := buildAuthConfig(cfg.Auth)
	if err != nil {
		return nil, err
	}

	transport, err := buildTransport(cfg.TLS)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	gateway := &Gateway{
		baseURL:        baseURL,
		defaultHeaders: cloneStringMap(cfg.DefaultHeaders),
		auth:           auth,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		limiter:  buildLimiter(cfg.RateLimit),
		tlsDebug: newTLSDebugInfo(cfg.TLS),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(gateway)
	}
	if gateway.optionErr != nil {
		return nil, gateway.optionErr
	}
	return gateway, nil
}

// BaseURL returns the effective base URL.
func (g *Gateway) BaseURL() string {
	if g == nil || g.baseURL == nil {
		return ""
	}
	return g.baseURL.String()
}

func parseBaseURL(raw string) (*url.URL, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, validationError("backend.base-url is required", nil)
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return nil, validationError("backend.base-url is invalid", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, validationError("backend.base-url must use http or https", nil)
	}
	if parsed.Host == "" {
		return nil, validationError("backend.base-url host is required", nil)
	}

	if parsed.Path == "" {
		parsed.Path = "/"
	}

	return parsed, nil
}

func cloneStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}

	cloned := make(map[string]string, len(values))
	for key, value := range values {
		cloned[key] = value
	}
	return cloned
}
