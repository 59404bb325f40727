package cloudcode

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/internal/authoring"
	"github.com/crmarques/liveops/internal/services"
	"github.com/crmarques/liveops/reconciler"
	"github.com/crmarques/liveops/resource"
)

const (
	scriptsAPI = "cloud-code/v1"
	scriptType = "API"
)

type client struct {
	gateway       services.Gateway
	projectID     string
	environmentID string
}

var _ authoring.RemoteClient = (*client)(nil)

func (c *client) Initialize(_ context.Context, projectID string, environmentID string) error {
	if err := services.RequireScope(projectID, environmentID); err != nil {
		return err
	}
	c.projectID = projectID
	c.environmentID = environmentID
	return nil
}

func (c *client) scriptsPath(segments ...string) string {
	return services.ScopedPath(scriptsAPI, c.projectID, c.environmentID, append([]string{"scripts"}, segments...)...)
}

// List reads the script index and then the published source of every script.
func (c *client) List(ctx context.Context) ([]resource.Entry, error) {
	if err := services.RequireScope(c.projectID, c.environmentID); err != nil {
		return nil, err
	}

	items, err := c.gateway.ListAll(ctx, c.scriptsPath(), nil)
	if err != nil {
		return nil, faults.NewTypedError(faults.CategoryOf(err, faults.TransportError), "failed to list scripts", err)
	}

	entries := make([]resource.Entry, 0, len(items))
	for _, item := range items {
		object, ok := item.(map[string]any)
		if !ok {
			return nil, faults.NewTypedError(faults.ValidationError, "script listing entry is not an object", nil)
		}
		name := services.StringField(object, "name")
		if name == "" {
			continue
		}

		detail, err := c.gateway.GetJSON(ctx, c.scriptsPath(name), nil)
		if err != nil {
			return nil, faults.NewTypedError(faults.CategoryOf(err, faults.TransportError), fmt.Sprintf("failed to read script %q", name), err)
		}
		entry, err := scriptEntry(name, detail)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("scripts listed", "count", len(entries))
	return entries, nil
}

// scriptEntry reads the published source, falling back to top-level fields.
func scriptEntry(name string, detail any) (resource.Entry, error) {
	object, ok := detail.(map[string]any)
	if !ok {
		return resource.Entry{}, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("script %q is not an object", name), nil)
	}

	source := object
	if active, ok := object["activeScript"].(map[string]any); ok {
		source = active
	}

	code := services.StringField(source, "code")
	var parameters []Parameter
	rawParams, _ := source["params"].([]any)
	if rawParams == nil {
		rawParams, _ = source["parameters"].([]any)
	}
	for _, raw := range rawParams {
		param, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		required, _ := param["required"].(bool)
		parameters = append(parameters, Parameter{
			Name:     services.StringField(param, "name"),
			Type:     services.StringField(param, "type"),
			Required: required,
		})
	}

	return resource.Entry{
		Key:     name,
		Name:    name,
		Type:    DisplayName,
		Payload: scriptPayload(code, services.StringField(object, "language"), parameters),
	}, nil
}

func (c *client) Apply(ctx context.Context, plan reconciler.Plan) (authoring.Outcome, error) {
	if err := services.RequireScope(c.projectID, c.environmentID); err != nil {
		return nil, err
	}
	return authoring.ApplyEach(ctx, plan, authoring.EntryHandlers{
		Create: c.create,
		Update: c.update,
		Delete: c.delete,
	}), nil
}

func (c *client) create(ctx context.Context, entry resource.Entry) error {
	body, err := requestBody(entry)
	if err != nil {
		return err
	}
	body["name"] = entry.Key
	body["type"] = scriptType
	if _, err := c.gateway.SendJSON(ctx, http.MethodPost, c.scriptsPath(), body); err != nil {
		return err
	}
	return c.publish(ctx, entry.Key)
}

func (c *client) update(ctx context.Context, entry resource.Entry) error {
	body, err := requestBody(entry)
	if err != nil {
		return err
	}
	if _, err := c.gateway.SendJSON(ctx, http.MethodPatch, c.scriptsPath(entry.Key), body); err != nil {
		return err
	}
	return c.publish(ctx, entry.Key)
}

func (c *client) publish(ctx context.Context, name string) error {
	_, err := c.gateway.SendJSON(ctx, http.MethodPost, c.scriptsPath(name, "publish"), map[string]any{})
	return err
}

func (c *client) delete(ctx context.Context, entry resource.Entry) error {
	return c.gateway.Delete(ctx, c.scriptsPath(entry.Key))
}

func requestBody(entry resource.Entry) (map[string]any, error) {
	code, parameters, err := payloadParts(entry.Payload)
	if err != nil {
		return nil, err
	}
	params := make([]any, 0, len(parameters))
	for _, parameter := range parameters {
		params = append(params, map[string]any{
			"name":     parameter.Name,
			"type":     parameter.Type,
			"required": parameter.Required,
		})
	}
	return map[string]any{
		"code":     code,
		"language": defaultLanguage,
		"params":   params,
	}, nil
}
