package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/crmarques/liveops/config"
)

type authMode int

const (
	authModeUnknown authMode = iota
	authModeOAuth2
	authModeBasic
	authModeBearer
	authModeCustomHeader
)

type authConfig struct {
	mode         authMode
	oauth2       clientcredentials.Config
	basicAuth    config.BasicAuth
	bearerToken  config.BearerTokenAuth
	customHeader config.HeaderTokenAuth
}

func buildAuthConfig(cfg *config.HTTPAuth) (authConfig, error) {
	if cfg == nil {
		return authConfig{}, validationError("backend.auth is required", nil)
	}

	setCount := 0
	for _, set := range []bool{cfg.OAuth2 != nil, cfg.BasicAuth != nil, cfg.BearerToken != nil, cfg.CustomHeader != nil} {
		if set {
			setCount++
		}
	}
	if setCount != 1 {
		return authConfig{}, validationError("backend.auth must define exactly one auth mode", nil)
	}

	switch {
	case cfg.OAuth2 != nil:
		oauth := *cfg.OAuth2
		if strings.TrimSpace(oauth.TokenURL) == "" ||
			strings.TrimSpace(oauth.GrantType) == "" ||
			strings.TrimSpace(oauth.ClientID) == "" ||
			strings.TrimSpace(oauth.ClientSecret) == "" {
			return authConfig{}, validationError("backend.auth.oauth2 requires token-url, grant-type, client-id, client-secret", nil)
		}
		if strings.TrimSpace(oauth.GrantType) != config.OAuthClientCreds {
			return authConfig{}, validationError("backend.auth.oauth2.grant-type supports only client_credentials", nil)
		}
		tokenURL, err := url.Parse(oauth.TokenURL)
		if err != nil || tokenURL.Scheme == "" || tokenURL.Host == "" {
			return authConfig{}, validationError("backend.auth.oauth2.token-url is invalid", err)
		}

		clientCredentials := clientcredentials.Config{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			TokenURL:     oauth.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		if scope := strings.TrimSpace(oauth.Scope); scope != "" {
			clientCredentials.Scopes = strings.Fields(scope)
		}
		if audience := strings.TrimSpace(oauth.Audience); audience != "" {
			clientCredentials.EndpointParams = url.Values{"audience": {audience}}
		}
		return authConfig{mode: authModeOAuth2, oauth2: clientCredentials}, nil
	case cfg.BasicAuth != nil:
		basic := *cfg.BasicAuth
		if basic.Username == "" || basic.Password == "" {
			return authConfig{}, validationError("backend.auth.basic-auth requires username and password", nil)
		}
		return authConfig{mode: authModeBasic, basicAuth: basic}, nil
	case cfg.BearerToken != nil:
		bearer := *cfg.BearerToken
		if bearer.Token == "" {
			return authConfig{}, validationError("backend.auth.bearer-token.token is required", nil)
		}
		return authConfig{mode: authModeBearer, bearerToken: bearer}, nil
	case cfg.CustomHeader != nil:
		custom := *cfg.CustomHeader
		if custom.Header == "" || custom.Token == "" {
			return authConfig{}, validationError("backend.auth.custom-header requires header and token", nil)
		}
		return authConfig{mode: authModeCustomHeader, customHeader: custom}, nil
	default:
		return authConfig{}, validationError("backend.auth is invalid", nil)
	}
}

func (g *Gateway) applyAuth(ctx context.Context, request *http.Request) error {
	switch g.auth.mode {
	case authModeOAuth2:
		token, err := g.oauthToken(ctx)
		if err != nil {
			return err
		}
		request.Header.Set("Authorization", "Bearer "+token)
	case authModeBasic:
		request.SetBasicAuth(g.auth.basicAuth.Username, g.auth.basicAuth.Password)
	case authModeBearer:
		request.Header.Set("Authorization", "Bearer "+g.auth.bearerToken.Token)
	case authModeCustomHeader:
		request.Header.Set(g.auth.customHeader.Header, g.auth.customHeader.Token)
	default:
		return validationError("backend.auth mode is not configured", nil)
	}
	return nil
}

// oauthToken returns a cached client credentials token, refreshing it 30
// seconds before it expires.
func (g *Gateway) oauthToken(ctx context.Context) (string, error) {
	g.oauthMu.Lock()
	if g.oauthAccessToken != "" && time.Now().Before(g.oauthExpiresAt.Add(-30*time.Second)) {
		token := g.oauthAccessToken
		g.oauthMu.Unlock()
		return token, nil
	}
	g.oauthMu.Unlock()

	if err := g.wait(ctx); err != nil {
		return "", err
	}

	started := time.Now()
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, g.client)
	g.traceRequest(ctx, "oauth2-token", http.MethodPost, g.auth.oauth2.TokenURL)
	token, err := g.auth.oauth2.Token(tokenCtx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			g.observe("oauth2-token", http.MethodPost, retrieveErr.Response.StatusCode, started)
			return "", authError("oauth2 token request failed: "+summarizeBody(retrieveErr.Body), nil)
		}
		g.observe("oauth2-token", http.MethodPost, 0, started)
		if ctx.Err() != nil {
			return "", canceledError("oauth2 token request canceled", ctx.Err())
		}
		return "", transportError("oauth2 token request failed", err)
	}
	g.observe("oauth2-token", http.MethodPost, http.StatusOK, started)

	if strings.TrimSpace(token.AccessToken) == "" {
		return "", authError("oauth2 token response does not include access_token", nil)
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(time.Hour)
	}

	g.oauthMu.Lock()
	g.oauthAccessToken = token.AccessToken
	g.oauthExpiresAt = expiresAt
	g.oauthMu.Unlock()

	return token.AccessToken, nil
}
