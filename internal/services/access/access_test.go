package access

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/internal/services"
	"github.com/crmarques/liveops/internal/services/servicestest"
	"github.com/crmarques/liveops/resource"
	"github.com/crmarques/liveops/service"
)

const policyPath = "/access/v1/projects/project/environments/env/resource-policy"

const statementsFile = `{
  "$schema": "` + schemaURL + `",
  "Statements": [
    {
      "Sid": "deny-economy-writes",
      "Action": ["Write"],
      "Effect": "Deny",
      "Principal": "Player",
      "Resource": "urn:ugs:economy:*",
      "ExpiresAt": "2030-01-01T02:00:00+02:00"
    },
    {
      "Sid": "allow-cloud-save",
      "Action": ["Read", "Write"],
      "Effect": "Allow",
      "Principal": "Player",
      "Resource": "urn:ugs:cloud-save:*"
    }
  ]
}`

func TestDecodeStatements(t *testing.T) {
	t.Parallel()

	entries, err := codec{}.Decode("project-statements.ac", []byte(statementsFile))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(entries) != 2 || entries[0].Key != "deny-economy-writes" || entries[1].Key != "allow-cloud-save" {
		t.Fatalf("unexpected entries %#v", entries)
	}
	expiry := entries[0].Payload.(map[string]any)["ExpiresAt"]
	if expiry != "2030-01-01T00:00:00Z" {
		t.Fatalf("expected expiry normalized to UTC, got %#v", expiry)
	}
}

func TestDecodeRejectsInvalidStatements(t *testing.T) {
	t.Parallel()

	valid := Statement{Sid: "s1", Action: []string{"*"}, Effect: "Allow", Principal: "Player", Resource: "urn:ugs:*"}
	tests := []struct {
		name    string
		mutate  func(*Statement)
		message string
	}{
		{name: "sid", mutate: func(s *Statement) { s.Sid = "bad sid" }, message: "statement id"},
		{name: "actions", mutate: func(s *Statement) { s.Action = nil }, message: "at least one action"},
		{name: "effect", mutate: func(s *Statement) { s.Effect = "Maybe" }, message: "expected Allow or Deny"},
		{name: "principal", mutate: func(s *Statement) { s.Principal = "Admin" }, message: "expected Player"},
		{name: "resource", mutate: func(s *Statement) { s.Resource = "arn:aws:*" }, message: "must start with"},
		{name: "expiry", mutate: func(s *Statement) { s.ExpiresAt = "tomorrow" }, message: "invalid expiry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			statement := valid
			statement.Action = append([]string(nil), valid.Action...)
			tt.mutate(&statement)
			err := statement.validate()
			if !faults.IsCategory(err, faults.ValidationError) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Fatalf("expected %q in error, got %v", tt.message, err)
			}
		})
	}

	if _, err := (codec{}).Decode("bad.ac", []byte(`{"Statements":[],"Extra":true}`)); !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected unknown field to be rejected, got %v", err)
	}
}

func TestDeployBatchesUpsertsAndDeletes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "project-statements.ac")
	if err := os.WriteFile(path, []byte(statementsFile), 0o644); err != nil {
		t.Fatalf("write statements: %v", err)
	}

	gateway := servicestest.NewGateway()
	gateway.Objects[policyPath] = map[string]any{
		"statements": []any{
			map[string]any{
				"sid": "allow-cloud-save", "action": []any{"Read", "Write"}, "effect": "Allow",
				"principal": "Player", "resource": "urn:ugs:cloud-save:*",
			},
			map[string]any{
				"sid": "legacy", "action": []any{"*"}, "effect": "Deny",
				"principal": "Player", "resource": "urn:ugs:*",
			},
		},
	}
	svc, err := New(services.Options{NewGateway: gateway.Factory()})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := svc.Execute(context.Background(), service.Invocation{
		Operation:     resource.OperationDeploy,
		ProjectID:     "project",
		EnvironmentID: "env",
		Reconcile:     true,
	}, []string{path})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(result.Created) != 1 || len(result.Unchanged) != 1 || len(result.Deleted) != 1 {
		t.Fatalf("unexpected classification %#v", result)
	}

	writes := gateway.Writes()
	if len(writes) != 2 {
		t.Fatalf("expected two batch calls, got %#v", writes)
	}
	if writes[0].Method != http.MethodPatch || writes[0].Path != policyPath {
		t.Fatalf("unexpected upsert call %s %s", writes[0].Method, writes[0].Path)
	}
	upserted := writes[0].Body.(map[string]any)["statements"].([]any)
	if len(upserted) != 1 || upserted[0].(map[string]any)["sid"] != "deny-economy-writes" {
		t.Fatalf("unexpected upsert body %#v", upserted)
	}
	if writes[1].Method != http.MethodPost || writes[1].Path != policyPath+":delete-statements" {
		t.Fatalf("unexpected delete call %s %s", writes[1].Method, writes[1].Path)
	}
	if ids := writes[1].Body.(map[string]any)["statementIDs"]; !reflect.DeepEqual(ids, []any{"legacy"}) {
		t.Fatalf("unexpected delete body %#v", ids)
	}
}

func TestDryRunMakesNoWrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "project-statements.ac")
	if err := os.WriteFile(path, []byte(statementsFile), 0o644); err != nil {
		t.Fatalf("write statements: %v", err)
	}

	gateway := servicestest.NewGateway()
	gateway.Errors[http.MethodGet+" "+policyPath] = faults.NewTypedError(faults.NotFoundError, "no policy", nil)
	svc, err := New(services.Options{NewGateway: gateway.Factory()})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := svc.Execute(context.Background(), service.Invocation{
		Operation:     resource.OperationDeploy,
		ProjectID:     "project",
		EnvironmentID: "env",
		DryRun:        true,
	}, []string{path})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(result.Created) != 2 || !result.DryRun {
		t.Fatalf("expected two planned creations, got %#v", result)
	}
	if writes := gateway.Writes(); len(writes) != 0 {
		t.Fatalf("expected no writes, got %#v", writes)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	entries, err := codec{}.Decode("in.ac", []byte(statementsFile))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	encoded, err := codec{}.Encode("out.ac", entries)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(string(encoded), `"$schema": "`+schemaURL+`"`) {
		t.Fatalf("expected schema in encoded file, got %s", encoded)
	}
	decoded, err := codec{}.Decode("out.ac", encoded)
	if err != nil {
		t.Fatalf("Decode of encoded file returned error: %v", err)
	}
	if !reflect.DeepEqual(entries, decoded) {
		t.Fatalf("entries changed across encode:\n%#v\n%#v", entries, decoded)
	}
}
