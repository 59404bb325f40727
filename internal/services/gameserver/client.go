package gameserver

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

const hostingAPI = "multiplay/v1"

// serverOwnedFields are set by the backend and never part of a definition.
var serverOwnedFields = []string{"id", "name", "createdAt", "updatedAt"}

type client struct {
	gateway       services.Gateway
	projectID     string
	environmentID string

	// ids maps entry keys to remote resource ids.
	ids map[string]string
}

var _ authoring.RemoteClient = (*client)(nil)

func (c *client) Initialize(_ context.Context, projectID string, environmentID string) error {
	if err := services.RequireScope(projectID, environmentID); err != nil {
		return err
	}
	c.projectID = projectID
	c.environmentID = environmentID
	c.ids = map[string]string{}
	return nil
}

func (c *client) kindPath(kind string, segments ...string) string {
	return services.ScopedPath(hostingAPI, c.projectID, c.environmentID, append([]string{kind}, segments...)...)
}

func (c *client) List(ctx context.Context) ([]resource.Entry, error) {
	if err := services.RequireScope(c.projectID, c.environmentID); err != nil {
		return nil, err
	}

	entries := make([]resource.Entry, 0)
	for _, kind := range kinds {
		items, err := c.gateway.ListAll(ctx, c.kindPath(kind), nil)
		if err != nil {
			return nil, faults.NewTypedError(faults.CategoryOf(err, faults.TransportError), fmt.Sprintf("failed to list %s", kind), err)
		}
		for _, item := range items {
			object, ok := item.(map[string]any)
			if !ok {
				return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("%s listing entry is not an object", kind), nil)
			}
			name := services.StringField(object, "name")
			if name == "" {
				continue
			}
			body, err := payload.Normalize(services.WithoutFields(object, serverOwnedFields...))
			if err != nil {
				return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid remote %s %q", kind, name), err)
			}

			key := EntryKey(kind, name)
			c.ids[key] = services.StringField(object, "id")
			entries = append(entries, resource.Entry{
				Key:     key,
				Name:    name,
				Type:    DisplayName,
				Payload: body,
			})
		}
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("game server hosting resources listed", "count", len(entries))
	return entries, nil
}

// Apply writes creates and updates in dependency order and deletes in the
// reverse order, so references never point at a missing resource.
func (c *client) Apply(ctx context.Context, plan reconciler.Plan) (authoring.Outcome, error) {
	if err := services.RequireScope(c.projectID, c.environmentID); err != nil {
		return nil, err
	}

	ordered := plan
	ordered.Create = byKind(plan.Create, false)
	ordered.Update = byKind(plan.Update, false)
	ordered.Delete = byKind(plan.Delete, true)

	return authoring.ApplyEach(ctx, ordered, authoring.EntryHandlers{
		Create: c.create,
		Update: c.update,
		Delete: c.delete,
	}), nil
}

func byKind(entries []resource.Entry, reverse bool) []resource.Entry {
	sorted := resource.CloneEntries(entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		left, _, _ := splitKey(sorted[i].Key)
		right, _, _ := splitKey(sorted[j].Key)
		if reverse {
			return kindRank(left) > kindRank(right)
		}
		return kindRank(left) < kindRank(right)
	})
	return sorted
}

func (c *client) create(ctx context.Context, entry resource.Entry) error {
	kind, name, body, err := requestBody(entry)
	if err != nil {
		return err
	}
	body["name"] = name

	response, err := c.gateway.SendJSON(ctx, http.MethodPost, c.kindPath(kind), body)
	if err != nil {
		return err
	}
	if created, ok := response.(map[string]any); ok {
		c.ids[entry.Key] = services.StringField(created, "id")
	}
	return nil
}

func (c *client) update(ctx context.Context, entry resource.Entry) error {
	kind, _, body, err := requestBody(entry)
	if err != nil {
		return err
	}
	id, err := c.remoteID(entry.Key)
	if err != nil {
		return err
	}
	_, err = c.gateway.SendJSON(ctx, http.MethodPatch, c.kindPath(kind, id), body)
	return err
}

func (c *client) delete(ctx context.Context, entry resource.Entry) error {
	kind, _, err := splitKey(entry.Key)
	if err != nil {
		return err
	}
	id, err := c.remoteID(entry.Key)
	if err != nil {
		return err
	}
	return c.gateway.Delete(ctx, c.kindPath(kind, id))
}

func (c *client) remoteID(key string) (string, error) {
	id := c.ids[key]
	if id == "" {
		return "", faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("remote id of %q is unknown", key), nil)
	}
	return id, nil
}

func requestBody(entry resource.Entry) (string, string, map[string]any, error) {
	kind, name, err := splitKey(entry.Key)
	if err != nil {
		return "", "", nil, err
	}
	object, ok := entry.Payload.(map[string]any)
	if !ok {
		return "", "", nil, faults.NewTypedError(faults.InternalError, fmt.Sprintf("payload of %q is not an object", entry.Key), nil)
	}
	return kind, name, services.WithoutFields(object), nil
}
