package remoteconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/internal/payload"
	"github.com/crmarques/liveops/resource"
)

const (
	schemaURL   = "https://ugs-config-schemas.unity3d.com/v1/remote-config.schema.json"
	defaultFile = "remote-config" + Extension
)

const (
	typeString = "string"
	typeInt    = "int"
	typeLong   = "long"
	typeFloat  = "float"
	typeBool   = "bool"
	typeJSON   = "json"
)

var validTypes = map[string]bool{
	typeString: true,
	typeInt:    true,
	typeLong:   true,
	typeFloat:  true,
	typeBool:   true,
	typeJSON:   true,
}

type configFile struct {
	Schema  string                     `json:"$schema,omitempty"`
	Entries map[string]json.RawMessage `json:"entries"`
	Types   map[string]string          `json:"types,omitempty"`
}

type encodedFile struct {
	Schema  string            `json:"$schema"`
	Entries map[string]any    `json:"entries"`
	Types   map[string]string `json:"types,omitempty"`
}

// codec reads and writes .rc documents. Several keys share one file; entries
// come back sorted by key.
type codec struct{}

func (codec) Decode(path string, data []byte) ([]resource.Entry, error) {
	var file configFile
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	decoder.UseNumber()
	if err := decoder.Decode(&file); err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid remote config file %q", filepath.Base(path)), err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid remote config file %q: trailing content", filepath.Base(path)), nil)
	}

	for key := range file.Types {
		if _, found := file.Entries[key]; !found {
			return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("type declared for unknown key %q", key), nil)
		}
	}

	keys := make([]string, 0, len(file.Entries))
	for key := range file.Entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]resource.Entry, 0, len(keys))
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			return nil, faults.NewTypedError(faults.ValidationError, "remote config key must not be empty", nil)
		}
		value, valueType, err := decodeValue(key, file.Entries[key], file.Types[key])
		if err != nil {
			return nil, err
		}
		entries = append(entries, resource.Entry{
			Key:     key,
			Name:    key,
			Payload: configPayload(value, valueType),
		})
	}
	return entries, nil
}

func (codec) Encode(_ string, entries []resource.Entry) ([]byte, error) {
	file := encodedFile{
		Schema:  schemaURL,
		Entries: make(map[string]any, len(entries)),
		Types:   map[string]string{},
	}
	for _, entry := range entries {
		value, valueType, err := payloadParts(entry.Payload)
		if err != nil {
			return nil, err
		}
		file.Entries[entry.Key] = value
		if inferred, err := inferType(value); err != nil || inferred != valueType {
			file.Types[entry.Key] = valueType
		}
	}
	if len(file.Types) == 0 {
		file.Types = nil
	}

	encoded, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, faults.NewTypedError(faults.InternalError, "failed to encode remote config file", err)
	}
	return append(encoded, '\n'), nil
}

func (codec) DefaultPath(dir string, _ resource.Entry) string {
	return filepath.Join(dir, defaultFile)
}

// decodeValue infers the type of raw, or checks raw against the declared one.
func decodeValue(key string, raw json.RawMessage, declared string) (any, string, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var decoded any
	if err := decoder.Decode(&decoded); err != nil {
		return nil, "", faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid value for %q", key), err)
	}
	if decoded == nil {
		return nil, "", faults.NewTypedError(faults.ValidationError, fmt.Sprintf("value for %q must not be null", key), nil)
	}

	inferred, err := inferType(decoded)
	if err != nil {
		return nil, "", faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid value for %q", key), err)
	}

	valueType := inferred
	if declared != "" {
		if !validTypes[declared] {
			return nil, "", faults.NewTypedError(faults.ValidationError, fmt.Sprintf("%q has unsupported type %q", key, declared), nil)
		}
		if !compatible(declared, inferred) {
			return nil, "", faults.NewTypedError(faults.ValidationError, fmt.Sprintf("value for %q is not a %s", key, declared), nil)
		}
		valueType = declared
	}

	value, err := payload.Normalize(decoded)
	if err != nil {
		return nil, "", faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid value for %q", key), err)
	}
	return value, valueType, nil
}

// inferType maps a decoded value to a remote config type. Integers outside
// the 32-bit range are long.
func inferType(value any) (string, error) {
	switch typed := value.(type) {
	case string:
		return typeString, nil
	case bool:
		return typeBool, nil
	case json.Number:
		literal := typed.String()
		if strings.ContainsAny(literal, ".eE") {
			return typeFloat, nil
		}
		return integerType(typed.Int64())
	case int64:
		return integerType(typed, nil)
	case int:
		return integerType(int64(typed), nil)
	case float64:
		return typeFloat, nil
	case map[string]any, []any:
		return typeJSON, nil
	}
	return "", fmt.Errorf("unsupported value type %T", value)
}

func integerType(value int64, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if value < math.MinInt32 || value > math.MaxInt32 {
		return typeLong, nil
	}
	return typeInt, nil
}

func compatible(declared string, inferred string) bool {
	switch declared {
	case inferred:
		return true
	case typeLong:
		return inferred == typeInt
	case typeFloat:
		return inferred == typeInt || inferred == typeLong
	}
	return false
}

func configPayload(value any, valueType string) map[string]any {
	return map[string]any{
		"value": value,
		"type":  valueType,
	}
}

func payloadParts(value resource.Value) (any, string, error) {
	object, ok := value.(map[string]any)
	if !ok {
		return nil, "", faults.NewTypedError(faults.InternalError, "remote config payload is not an object", nil)
	}
	valueType, _ := object["type"].(string)
	return object["value"], valueType, nil
}
