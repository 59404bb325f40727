package access

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/resource"
)

const (
	schemaURL   = "https://ugs-config-schemas.unity3d.com/v1/project-access-policy.schema.json"
	defaultFile = "project-statements" + Extension

	principalPlayer = "Player"
	resourcePrefix  = "urn:ugs:"
)

var sidPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,59}$`)

// Statement is one entry of a project access policy.
type Statement struct {
	Sid       string   `json:"Sid"`
	Action    []string `json:"Action"`
	Effect    string   `json:"Effect"`
	Principal string   `json:"Principal"`
	Resource  string   `json:"Resource"`
	ExpiresAt string   `json:"ExpiresAt,omitempty"`
	Version   string   `json:"Version,omitempty"`
}

type policyFile struct {
	Schema     string      `json:"$schema,omitempty"`
	Statements []Statement `json:"Statements"`
}

func (s Statement) validate() error {
	if !sidPattern.MatchString(s.Sid) {
		return faults.NewTypedError(faults.ValidationError, fmt.Sprintf("statement id %q is invalid", s.Sid), nil)
	}
	if len(s.Action) == 0 {
		return faults.NewTypedError(faults.ValidationError, fmt.Sprintf("statement %q must list at least one action", s.Sid), nil)
	}
	for _, action := range s.Action {
		if strings.TrimSpace(action) == "" {
			return faults.NewTypedError(faults.ValidationError, fmt.Sprintf("statement %q lists an empty action", s.Sid), nil)
		}
	}
	if s.Effect != "Allow" && s.Effect != "Deny" {
		return faults.NewTypedError(faults.ValidationError, fmt.Sprintf("statement %q has effect %q, expected Allow or Deny", s.Sid, s.Effect), nil)
	}
	if s.Principal != principalPlayer {
		return faults.NewTypedError(faults.ValidationError, fmt.Sprintf("statement %q has principal %q, expected %s", s.Sid, s.Principal, principalPlayer), nil)
	}
	if !strings.HasPrefix(s.Resource, resourcePrefix) {
		return faults.NewTypedError(faults.ValidationError, fmt.Sprintf("statement %q resource must start with %q", s.Sid, resourcePrefix), nil)
	}
	if s.ExpiresAt != "" {
		if _, err := time.Parse(time.RFC3339, s.ExpiresAt); err != nil {
			return faults.NewTypedError(faults.ValidationError, fmt.Sprintf("statement %q has invalid expiry %q", s.Sid, s.ExpiresAt), err)
		}
	}
	return nil
}

// payload renders the statement as a comparable tree. Expiry is normalized
// to UTC so equal instants compare equal.
func (s Statement) payload() map[string]any {
	actions := make([]any, 0, len(s.Action))
	for _, action := range s.Action {
		actions = append(actions, action)
	}
	object := map[string]any{
		"Sid":       s.Sid,
		"Action":    actions,
		"Effect":    s.Effect,
		"Principal": s.Principal,
		"Resource":  s.Resource,
	}
	if s.ExpiresAt != "" {
		if parsed, err := time.Parse(time.RFC3339, s.ExpiresAt); err == nil {
			object["ExpiresAt"] = parsed.UTC().Format(time.RFC3339)
		} else {
			object["ExpiresAt"] = s.ExpiresAt
		}
	}
	if s.Version != "" {
		object["Version"] = s.Version
	}
	return object
}

func statementFromPayload(value resource.Value) (Statement, error) {
	object, ok := value.(map[string]any)
	if !ok {
		return Statement{}, faults.NewTypedError(faults.InternalError, "statement payload is not an object", nil)
	}
	statement := Statement{
		Sid:       stringOf(object["Sid"]),
		Effect:    stringOf(object["Effect"]),
		Principal: stringOf(object["Principal"]),
		Resource:  stringOf(object["Resource"]),
		ExpiresAt: stringOf(object["ExpiresAt"]),
		Version:   stringOf(object["Version"]),
	}
	actions, _ := object["Action"].([]any)
	for _, action := range actions {
		statement.Action = append(statement.Action, stringOf(action))
	}
	return statement, nil
}

func stringOf(value any) string {
	text, _ := value.(string)
	return text
}

func statementEntry(statement Statement) resource.Entry {
	return resource.Entry{
		Key:     statement.Sid,
		Name:    statement.Sid,
		Payload: statement.payload(),
	}
}

type codec struct{}

func (codec) Decode(path string, data []byte) ([]resource.Entry, error) {
	var file policyFile
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid access policy file %q", filepath.Base(path)), err)
	}

	entries := make([]resource.Entry, 0, len(file.Statements))
	for _, statement := range file.Statements {
		if err := statement.validate(); err != nil {
			return nil, err
		}
		entries = append(entries, statementEntry(statement))
	}
	return entries, nil
}

func (codec) Encode(path string, entries []resource.Entry) ([]byte, error) {
	file := policyFile{
		Schema:     schemaURL,
		Statements: make([]Statement, 0, len(entries)),
	}
	for _, entry := range entries {
		statement, err := statementFromPayload(entry.Payload)
		if err != nil {
			return nil, err
		}
		file.Statements = append(file.Statements, statement)
	}

	encoded, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, faults.NewTypedError(faults.InternalError, fmt.Sprintf("failed to encode %q", filepath.Base(path)), err)
	}
	return append(encoded, '\n'), nil
}

func (codec) DefaultPath(dir string, _ resource.Entry) string {
	return filepath.Join(dir, defaultFile)
}
