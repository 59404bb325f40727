package payload

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/resource"
)

var projectionCodeCache sync.Map

// Projection is a compiled jq expression applied to both sides of a payload
// comparison, so fields the backend owns (timestamps, versions) can be ignored.
type Projection struct {
	expression string
	code       *gojq.Code
}

func CompileProjection(expression string) (*Projection, error) {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return nil, nil
	}

	code, err := cachedProjectionCode(trimmed)
	if err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, "invalid compare jq expression", err)
	}
	return &Projection{expression: trimmed, code: code}, nil
}

func (p *Projection) Expression() string {
	if p == nil {
		return ""
	}
	return p.expression
}

// Apply runs the expression over a normalized copy of value. Multiple outputs
// are collected into a slice.
func (p *Projection) Apply(ctx context.Context, value resource.Value) (resource.Value, error) {
	if p == nil {
		return Normalize(value)
	}

	normalized, err := Normalize(value)
	if err != nil {
		return nil, err
	}

	runCtx := ctx
	if runCtx == nil {
		runCtx = context.Background()
	}
	iterator := p.code.RunWithContext(runCtx, toJQValue(normalized))
	results := make([]any, 0, 1)
	for {
		item, ok := iterator.Next()
		if !ok {
			break
		}
		if itemErr, isErr := item.(error); isErr {
			return nil, faults.NewTypedError(faults.ValidationError, "failed to evaluate compare jq expression", itemErr)
		}
		results = append(results, item)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return Normalize(results[0])
	default:
		return Normalize(results)
	}
}

// Equal compares the projections of both payloads. When either side fails to
// project the raw payloads are compared instead.
func (p *Projection) Equal(left resource.Value, right resource.Value) bool {
	if p == nil {
		return Equal(left, right)
	}

	projectedLeft, leftErr := p.Apply(context.Background(), left)
	projectedRight, rightErr := p.Apply(context.Background(), right)
	if leftErr != nil || rightErr != nil {
		return Equal(left, right)
	}
	return reflect.DeepEqual(projectedLeft, projectedRight)
}

func cachedProjectionCode(expression string) (*gojq.Code, error) {
	if cached, ok := projectionCodeCache.Load(expression); ok {
		if typed, ok := cached.(*gojq.Code); ok && typed != nil {
			return typed, nil
		}
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, err
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, err
	}

	actual, _ := projectionCodeCache.LoadOrStore(expression, code)
	typed, _ := actual.(*gojq.Code)
	if typed == nil {
		return code, nil
	}
	return typed, nil
}

// gojq only understands int, float64 and *big.Int numbers.
func toJQValue(value any) any {
	switch typed := value.(type) {
	case int64:
		return int(typed)
	case []any:
		converted := make([]any, len(typed))
		for idx, item := range typed {
			converted[idx] = toJQValue(item)
		}
		return converted
	case map[string]any:
		converted := make(map[string]any, len(typed))
		for key, item := range typed {
			converted[key] = toJQValue(item)
		}
		return converted
	default:
		return value
	}
}
