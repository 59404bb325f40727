package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/crmarques/liveops/config"
)

type tlsDebugInfo struct {
	enabled            bool
	insecureSkipVerify bool
	caCertFile         string
	clientCertFile     string
	clientKeyFile      string
}

func newTLSDebugInfo(tlsSettings *config.TLS) tlsDebugInfo {
	if tlsSettings == nil {
		return tlsDebugInfo{}
	}

	return tlsDebugInfo{
		enabled:            true,
		insecureSkipVerify: tlsSettings.InsecureSkipVerify,
		caCertFile:         strings.TrimSpace(tlsSettings.CACertFile),
		clientCertFile:     strings.TrimSpace(tlsSettings.ClientCertFile),
		clientKeyFile:      strings.TrimSpace(tlsSettings.ClientKeyFile),
	}
}

func (info tlsDebugInfo) mTLSEnabled() bool {
	return info.clientCertFile != "" && info.clientKeyFile != ""
}

func (g *Gateway) traceRequest(ctx context.Context, purpose string, method string, rawURL string) {
	logger := logr.FromContextOrDiscard(ctx).V(1)
	if !logger.Enabled() {
		return
	}
	target := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		target = redactURLForDebug(parsed)
	}
	logger.Info(
		"http request",
		"purpose", purpose,
		"method", method,
		"url", target,
		"tlsEnabled", g.tlsDebug.enabled,
		"mtlsEnabled", g.tlsDebug.mTLSEnabled(),
		"tlsInsecureSkipVerify", g.tlsDebug.insecureSkipVerify,
		"tlsCACertFile", g.tlsDebug.caCertFile,
	)
}

func (g *Gateway) doRequest(ctx context.Context, purpose string, request *http.Request) (*http.Response, error) {
	logger := logr.FromContextOrDiscard(ctx).V(1)
	g.traceRequest(ctx, purpose, request.Method, request.URL.String())

	started := time.Now()
	response, err := g.client.Do(request)
	if err != nil {
		g.observe(purpose, request.Method, 0, started)
		logger.Info(
			"http request failed",
			"purpose", purpose,
			"method", request.Method,
			"url", redactURLForDebug(request.URL),
			"error", err.Error(),
		)
		return nil, err
	}

	g.observe(purpose, request.Method, response.StatusCode, started)
	logger.Info(
		"http response",
		"purpose", purpose,
		"method", request.Method,
		"url", redactURLForDebug(request.URL),
		"status", response.StatusCode,
		"elapsed", time.Since(started).String(),
	)
	return response, nil
}

func (g *Gateway) observe(purpose string, method string, status int, started time.Time) {
	if g.observer == nil {
		return
	}
	g.observer.ObserveRequest(purpose, method, status, time.Since(started))
}

func redactURLForDebug(value *url.URL) string {
	if value == nil {
		return ""
	}

	cloned := *value
	cloned.User = nil

	query := cloned.Query()
	if len(query) > 0 {
		for key, values := range query {
			redacted := make([]string, len(values))
			for idx := range values {
				redacted[idx] = "<redacted>"
			}
			query[key] = redacted
		}
		cloned.RawQuery = query.Encode()
	}

	return cloned.String()
}
