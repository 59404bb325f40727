package access

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
	accessAPI       = "access/v1"
	policyResource  = "resource-policy"
	deleteStatement = "resource-policy:delete-statements"
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

func (c *client) policyPath(segment string) string {
	return services.ScopedPath(accessAPI, c.projectID, c.environmentID, segment)
}

func (c *client) List(ctx context.Context) ([]resource.Entry, error) {
	if err := services.RequireScope(c.projectID, c.environmentID); err != nil {
		return nil, err
	}

	response, err := c.gateway.GetJSON(ctx, c.policyPath(policyResource), nil)
	if err != nil {
		if faults.IsCategory(err, faults.NotFoundError) {
			return []resource.Entry{}, nil
		}
		return nil, faults.NewTypedError(faults.CategoryOf(err, faults.TransportError), "failed to read project access policy", err)
	}

	object, ok := response.(map[string]any)
	if !ok {
		return nil, faults.NewTypedError(faults.ValidationError, "project access policy is not an object", nil)
	}
	items, _ := object["statements"].([]any)

	entries := make([]resource.Entry, 0, len(items))
	for _, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			return nil, faults.NewTypedError(faults.ValidationError, "policy statement is not an object", nil)
		}
		statement := remoteStatement(raw)
		if statement.Sid == "" {
			continue
		}
		entry := statementEntry(statement)
		entry.Type = DisplayName
		entries = append(entries, entry)
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("access statements listed", "count", len(entries))
	return entries, nil
}

func remoteStatement(raw map[string]any) Statement {
	statement := Statement{
		Sid:       services.StringField(raw, "sid"),
		Effect:    services.StringField(raw, "effect"),
		Principal: services.StringField(raw, "principal"),
		Resource:  services.StringField(raw, "resource"),
		ExpiresAt: services.StringField(raw, "expiresAt"),
		Version:   services.StringField(raw, "version"),
	}
	actions, _ := raw["action"].([]any)
	for _, action := range actions {
		statement.Action = append(statement.Action, stringOf(action))
	}
	return statement
}

func wireStatement(statement Statement) map[string]any {
	actions := make([]any, 0, len(statement.Action))
	for _, action := range statement.Action {
		actions = append(actions, action)
	}
	wire := map[string]any{
		"sid":       statement.Sid,
		"action":    actions,
		"effect":    statement.Effect,
		"principal": statement.Principal,
		"resource":  statement.Resource,
	}
	if statement.ExpiresAt != "" {
		wire["expiresAt"] = statement.ExpiresAt
	}
	if statement.Version != "" {
		wire["version"] = statement.Version
	}
	return wire
}

// Apply upserts created and updated statements in one call and removes
// deleted ones in a second call.
func (c *client) Apply(ctx context.Context, plan reconciler.Plan) (authoring.Outcome, error) {
	if err := services.RequireScope(c.projectID, c.environmentID); err != nil {
		return nil, err
	}

	upserts := make([]any, 0, len(plan.Create)+len(plan.Update))
	for _, entries := range [][]resource.Entry{plan.Create, plan.Update} {
		for _, entry := range entries {
			statement, err := statementFromPayload(entry.Payload)
			if err != nil {
				return nil, err
			}
			upserts = append(upserts, wireStatement(statement))
		}
	}

	if len(upserts) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body := map[string]any{"statements": upserts}
		if _, err := c.gateway.SendJSON(ctx, http.MethodPatch, c.policyPath(policyResource), body); err != nil {
			return nil, faults.NewTypedError(faults.CategoryOf(err, faults.TransportError), "failed to update project access policy", err)
		}
	}

	if len(plan.Delete) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids := make([]any, 0, len(plan.Delete))
		for _, entry := range plan.Delete {
			ids = append(ids, entry.Key)
		}
		body := map[string]any{"statementIDs": ids}
		if _, err := c.gateway.SendJSON(ctx, http.MethodPost, c.policyPath(deleteStatement), body); err != nil {
			return nil, faults.NewTypedError(
				faults.CategoryOf(err, faults.TransportError),
				fmt.Sprintf("failed to delete %d project access statements", len(ids)),
				err,
			)
		}
	}

	return authoring.Outcome{}, nil
}
