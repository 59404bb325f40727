package payload

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/resource"
)

// Normalize converts a decoded payload into a canonical tree of
// map[string]any, []any, string, bool, int64 and float64 values. Integral
// floats collapse to int64 so JSON and YAML decodings of the same document
// compare equal.
func Normalize(value resource.Value) (resource.Value, error) {
	return normalize(value)
}

// Equal reports whether two payloads are equal after normalization. Payloads
// that cannot be normalized are compared with reflect.DeepEqual.
func Equal(left resource.Value, right resource.Value) bool {
	normalizedLeft, leftErr := Normalize(left)
	normalizedRight, rightErr := Normalize(right)
	if leftErr != nil || rightErr != nil {
		return reflect.DeepEqual(left, right)
	}
	return reflect.DeepEqual(normalizedLeft, normalizedRight)
}

func normalize(value any) (any, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case json.Number:
		return normalizeNumber(typed)
	case map[any]any:
		return normalizeLooseMap(typed)
	}

	current := reflect.ValueOf(value)
	switch current.Kind() {
	case reflect.Bool:
		return current.Bool(), nil
	case reflect.String:
		return current.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return current.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if current.Uint() > math.MaxInt64 {
			return nil, invalidPayload("payload contains integer out of range", nil)
		}
		return int64(current.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return normalizeFloat(current.Float())
	case reflect.Map:
		if current.Type().Key().Kind() != reflect.String {
			return nil, invalidPayload("payload map keys must be strings", nil)
		}
		normalized := make(map[string]any, current.Len())
		iterator := current.MapRange()
		for iterator.Next() {
			item, err := normalize(iterator.Value().Interface())
			if err != nil {
				return nil, err
			}
			normalized[iterator.Key().String()] = item
		}
		return normalized, nil
	case reflect.Slice, reflect.Array:
		if current.Kind() == reflect.Slice && current.IsNil() {
			return []any{}, nil
		}
		normalized := make([]any, current.Len())
		for idx := range current.Len() {
			item, err := normalize(current.Index(idx).Interface())
			if err != nil {
				return nil, err
			}
			normalized[idx] = item
		}
		return normalized, nil
	case reflect.Pointer, reflect.Interface:
		if current.IsNil() {
			return nil, nil
		}
		return normalize(current.Elem().Interface())
	}

	return nil, invalidPayload(fmt.Sprintf("unsupported payload type %T", value), nil)
}

func normalizeFloat(value float64) (any, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, invalidPayload("payload contains non-finite float", nil)
	}
	if value == math.Trunc(value) && value >= math.MinInt64 && value < math.MaxInt64 {
		return int64(value), nil
	}
	return value, nil
}

func normalizeNumber(value json.Number) (any, error) {
	if integer, err := value.Int64(); err == nil {
		return integer, nil
	}
	float, err := value.Float64()
	if err != nil {
		return nil, invalidPayload("payload contains invalid number", err)
	}
	if !strings.ContainsAny(value.String(), ".eE") {
		return nil, invalidPayload("payload contains integer out of range", nil)
	}
	return normalizeFloat(float)
}

// normalizeLooseMap accepts the map[any]any some YAML decoders produce as long
// as every key is a string.
func normalizeLooseMap(values map[any]any) (map[string]any, error) {
	normalized := make(map[string]any, len(values))
	for key, value := range values {
		name, ok := key.(string)
		if !ok {
			return nil, invalidPayload("payload map keys must be strings", nil)
		}
		item, err := normalize(value)
		if err != nil {
			return nil, err
		}
		normalized[name] = item
	}
	return normalized, nil
}

func invalidPayload(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}
