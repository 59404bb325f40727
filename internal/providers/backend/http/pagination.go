package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

const maxPages = 1000

// ListAll reads a collection and follows its "next" links. A page is either a
// bare JSON array or an object carrying the items under "results" and the
// following page under "next" or "links.next". Next links may be absolute on
// the base URL host or relative to it.
func (g *Gateway) ListAll(ctx context.Context, requestPath string, query map[string]string) ([]any, error) {
	requestPath = normalizeRequestPath(requestPath)
	if requestPath == "" {
		return nil, validationError("request path is required", nil)
	}
	target, err := g.resolveRequestURL(requestPath, query)
	if err != nil {
		return nil, err
	}

	visited := mapset.NewThreadUnsafeSet[string]()
	var items []any
	for page := 0; target != ""; page++ {
		if page >= maxPages {
			return nil, transportError(fmt.Sprintf("pagination exceeded %d pages", maxPages), nil)
		}
		if !visited.Add(target) {
			return nil, transportError("pagination returned a link that was already visited", nil)
		}

		response, err := g.execute(ctx, http.MethodGet, target, nil, nil)
		if err != nil {
			return nil, err
		}
		decoded, err := decodeJSONResponse(response.Body)
		if err != nil {
			return nil, err
		}

		pageItems, next, err := splitPage(decoded)
		if err != nil {
			return nil, err
		}
		items = append(items, pageItems...)

		target, err = g.resolveNextLink(target, next)
		if err != nil {
			return nil, err
		}
	}

	if items == nil {
		items = []any{}
	}
	return items, nil
}

func splitPage(decoded any) ([]any, string, error) {
	switch typed := decoded.(type) {
	case nil:
		return nil, "", nil
	case []any:
		return typed, "", nil
	case map[string]any:
		var items []any
		if raw, found := typed["results"]; found && raw != nil {
			list, ok := raw.([]any)
			if !ok {
				return nil, "", validationError("list response \"results\" must be an array", nil)
			}
			items = list
		}
		return items, nextLink(typed), nil
	default:
		return nil, "", validationError("list response must be an array or an object", nil)
	}
}

func nextLink(page map[string]any) string {
	if next, ok := page["next"].(string); ok {
		return strings.TrimSpace(next)
	}
	if links, ok := page["links"].(map[string]any); ok {
		if next, ok := links["next"].(string); ok {
			return strings.TrimSpace(next)
		}
	}
	return ""
}

func (g *Gateway) resolveNextLink(current string, next string) (string, error) {
	if next == "" {
		return "", nil
	}

	currentURL, err := url.Parse(current)
	if err != nil {
		return "", internalError("failed to parse current page url", err)
	}
	nextURL, err := url.Parse(next)
	if err != nil {
		return "", validationError(fmt.Sprintf("pagination link %q is invalid", next), err)
	}

	resolved := currentURL.ResolveReference(nextURL)
	if resolved.Scheme != g.baseURL.Scheme || resolved.Host != g.baseURL.Host {
		return "", validationError(fmt.Sprintf("pagination link %q leaves the backend host", redactURLForDebug(resolved)), nil)
	}
	return resolved.String(), nil
}
