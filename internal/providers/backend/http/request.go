package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/crmarques/liveops/internal/payload"
)

// Request describes one call relative to the gateway base URL.
type Request struct {
	Method  string
	Path    string
	Query   map[string]string
	Headers map[string]string
	Body    any
}

// Response is a successful (status < 400) reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do sends the request and returns the raw response. Statuses of 400 and
// above come back as typed errors.
func (g *Gateway) Do(ctx context.Context, spec Request) (Response, error) {
	method := strings.ToUpper(strings.TrimSpace(spec.Method))
	if method == "" {
		return Response{}, validationError("request method is required", nil)
	}
	requestPath := normalizeRequestPath(spec.Path)
	if requestPath == "" {
		return Response{}, validationError("request path is required", nil)
	}

	targetURL, err := g.resolveRequestURL(requestPath, spec.Query)
	if err != nil {
		return Response{}, err
	}
	return g.execute(ctx, method, targetURL, spec.Headers, spec.Body)
}

// GetJSON fetches path and decodes its JSON body.
func (g *Gateway) GetJSON(ctx context.Context, requestPath string, query map[string]string) (any, error) {
	response, err := g.Do(ctx, Request{Method: http.MethodGet, Path: requestPath, Query: query})
	if err != nil {
		return nil, err
	}
	return decodeJSONResponse(response.Body)
}

// SendJSON writes body as JSON with method and decodes the reply, if any.
func (g *Gateway) SendJSON(ctx context.Context, method string, requestPath string, body any) (any, error) {
	response, err := g.Do(ctx, Request{Method: method, Path: requestPath, Body: body})
	if err != nil {
		return nil, err
	}
	return decodeJSONResponse(response.Body)
}

func (g *Gateway) Delete(ctx context.Context, requestPath string) error {
	_, err := g.Do(ctx, Request{Method: http.MethodDelete, Path: requestPath})
	return err
}

func (g *Gateway) execute(ctx context.Context, method string, targetURL string, headers map[string]string, body any) (Response, error) {
	if err := g.wait(ctx); err != nil {
		return Response{}, err
	}

	request, err := g.newRequest(ctx, method, targetURL, headers, body)
	if err != nil {
		return Response{}, err
	}

	response, err := g.doRequest(ctx, "backend", request)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, canceledError("backend request canceled", ctx.Err())
		}
		return Response{}, transportError("backend request failed", err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return Response{}, transportError("failed to read backend response body", err)
	}

	if response.StatusCode >= http.StatusBadRequest {
		return Response{}, classifyStatusError(response.StatusCode, responseBody)
	}

	return Response{
		StatusCode: response.StatusCode,
		Header:     response.Header.Clone(),
		Body:       responseBody,
	}, nil
}

// wait blocks on the rate limiter, if one is configured.
func (g *Gateway) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		// Wait fails early when the deadline would pass before a token frees up.
		if _, hasDeadline := ctx.Deadline(); hasDeadline || ctx.Err() != nil {
			return canceledError("backend request canceled", ctx.Err())
		}
		return transportError("rate limiter rejected request", err)
	}
	return nil
}

func (g *Gateway) newRequest(ctx context.Context, method string, targetURL string, headers map[string]string, body any) (*http.Request, error) {
	requestBody, err := encodeRequestBody(body)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if len(requestBody) > 0 {
		bodyReader = bytes.NewReader(requestBody)
	}

	request, err := http.NewRequestWithContext(ctx, method, targetURL, bodyReader)
	if err != nil {
		return nil, internalError("failed to create backend request", err)
	}

	request.Header.Set("Accept", defaultMediaType)
	if len(requestBody) > 0 {
		request.Header.Set("Content-Type", defaultMediaType)
	}
	if g.userAgent != "" {
		request.Header.Set("User-Agent", g.userAgent)
	}

	merged := mergeHeaders(g.defaultHeaders, headers)
	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		request.Header.Set(key, merged[key])
	}

	if err := g.applyAuth(ctx, request); err != nil {
		return nil, err
	}

	return request, nil
}

func (g *Gateway) resolveRequestURL(requestPath string, query map[string]string) (string, error) {
	if parsed, err := url.Parse(requestPath); err == nil && parsed.Scheme != "" {
		return "", validationError("request path must be relative to backend.base-url", nil)
	}

	// requestPath is already escaped; PathEscape builds its segments.
	joined := joinBaseAndRequestPath(g.baseURL.EscapedPath(), requestPath)
	unescaped, err := url.PathUnescape(joined)
	if err != nil {
		return "", validationError("request path is not a valid escaped path", err)
	}

	target := *g.baseURL
	target.Path = unescaped
	target.RawPath = joined

	values := target.Query()
	if len(query) > 0 {
		keys := make([]string, 0, len(query))
		for key := range query {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			values.Set(key, query[key])
		}
	}
	target.RawQuery = values.Encode()

	return target.String(), nil
}

func encodeRequestBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.([]byte); ok {
		return raw, nil
	}

	normalized, err := payload.Normalize(body)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return nil, validationError("failed to encode JSON request body", err)
	}
	return encoded, nil
}

func normalizeRequestPath(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	if trimmed != "/" {
		trimmed = strings.TrimSuffix(trimmed, "/")
	}
	return trimmed
}

func joinBaseAndRequestPath(basePath string, requestPath string) string {
	normalizedBase := normalizeRequestPath(basePath)
	if normalizedBase == "" {
		normalizedBase = "/"
	}

	normalizedRequest := normalizeRequestPath(requestPath)
	if normalizedRequest == "" || normalizedRequest == "/" {
		return normalizedBase
	}

	joined := path.Join(normalizedBase, strings.TrimPrefix(normalizedRequest, "/"))
	if !strings.HasPrefix(joined, "/") {
		return "/" + joined
	}
	return joined
}

func mergeHeaders(defaultHeaders map[string]string, requestHeaders map[string]string) map[string]string {
	if len(defaultHeaders) == 0 && len(requestHeaders) == 0 {
		return nil
	}

	merged := make(map[string]string, len(defaultHeaders)+len(requestHeaders))
	for key, value := range defaultHeaders {
		merged[key] = value
	}
	for key, value := range requestHeaders {
		merged[key] = value
	}
	return merged
}

// PathEscape escapes one path segment for use in Request.Path.
func PathEscape(segment string) string {
	return url.PathEscape(segment)
}
