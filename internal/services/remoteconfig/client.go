package remoteconfig

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-logr/logr"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/internal/authoring"
	"github.com/crmarques/liveops/internal/payload"
	"github.com/crmarques/liveops/internal/services"
	"github.com/crmarques/liveops/reconciler"
	"github.com/crmarques/liveops/resource"
)

const (
	configsAPI   = "remote-config/v1"
	settingsType = "settings"
)

// client keeps every key in one settings document. Apply replaces the whole
// document, so a write either lands for every entry or for none.
type client struct {
	gateway       services.Gateway
	projectID     string
	environmentID string

	configID string
	current  map[string]resource.Entry
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

func (c *client) configsPath(segments ...string) string {
	return services.ScopedPath(configsAPI, c.projectID, c.environmentID, append([]string{"configs"}, segments...)...)
}

func (c *client) List(ctx context.Context) ([]resource.Entry, error) {
	if err := services.RequireScope(c.projectID, c.environmentID); err != nil {
		return nil, err
	}

	response, err := c.gateway.GetJSON(ctx, c.configsPath(), nil)
	if err != nil {
		return nil, faults.NewTypedError(faults.CategoryOf(err, faults.TransportError), "failed to read remote config", err)
	}

	document, err := settingsDocument(response)
	if err != nil {
		return nil, err
	}

	c.configID = ""
	c.current = map[string]resource.Entry{}
	if document == nil {
		return []resource.Entry{}, nil
	}
	c.configID = services.StringField(document, "id")

	values, _ := document["value"].([]any)
	entries := make([]resource.Entry, 0, len(values))
	for _, raw := range values {
		item, ok := raw.(map[string]any)
		if !ok {
			return nil, faults.NewTypedError(faults.ValidationError, "remote config value is not an object", nil)
		}
		key := services.StringField(item, "key")
		if key == "" {
			continue
		}
		value, err := payload.Normalize(item["value"])
		if err != nil {
			return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid remote value for %q", key), err)
		}
		valueType := services.StringField(item, "type")
		if valueType == "" {
			valueType, _ = inferType(value)
		}
		entry := resource.Entry{
			Key:     key,
			Name:    key,
			Type:    DisplayName,
			Payload: configPayload(value, valueType),
		}
		c.current[key] = entry
		entries = append(entries, entry)
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("remote config listed", "configId", c.configID, "count", len(entries))
	return entries, nil
}

// settingsDocument picks the settings config out of the configs listing. A
// project without one yields nil.
func settingsDocument(response any) (map[string]any, error) {
	object, ok := response.(map[string]any)
	if !ok {
		return nil, faults.NewTypedError(faults.ValidationError, "remote config response is not an object", nil)
	}
	configs, _ := object["configs"].([]any)
	for _, raw := range configs {
		config, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if services.StringField(config, "type") == settingsType {
			return config, nil
		}
	}
	return nil, nil
}

// Apply writes the remote document with the plan applied. Keys the plan does
// not mention are kept as they are.
func (c *client) Apply(ctx context.Context, plan reconciler.Plan) (authoring.Outcome, error) {
	if err := services.RequireScope(c.projectID, c.environmentID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	desired := make(map[string]resource.Entry, len(c.current)+len(plan.Create))
	for key, entry := range c.current {
		desired[key] = entry
	}
	for _, entry := range plan.Create {
		desired[entry.Key] = entry
	}
	for _, entry := range plan.Update {
		desired[entry.Key] = entry
	}
	for _, entry := range plan.Delete {
		delete(desired, entry.Key)
	}

	keys := make([]string, 0, len(desired))
	for key := range desired {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	values := make([]any, 0, len(keys))
	for _, key := range keys {
		value, valueType, err := payloadParts(desired[key].Payload)
		if err != nil {
			return nil, err
		}
		values = append(values, map[string]any{
			"key":   key,
			"type":  valueType,
			"value": value,
		})
	}
	body := map[string]any{
		"type":  settingsType,
		"value": values,
	}

	if c.configID == "" {
		response, err := c.gateway.SendJSON(ctx, http.MethodPost, c.configsPath(), body)
		if err != nil {
			return nil, faults.NewTypedError(faults.CategoryOf(err, faults.TransportError), "failed to create remote config", err)
		}
		if created, ok := response.(map[string]any); ok {
			c.configID = services.StringField(created, "id")
		}
	} else {
		if _, err := c.gateway.SendJSON(ctx, http.MethodPut, c.configsPath(c.configID), body); err != nil {
			return nil, faults.NewTypedError(faults.CategoryOf(err, faults.TransportError), "failed to update remote config", err)
		}
	}

	c.current = desired
	return authoring.Outcome{}, nil
}
