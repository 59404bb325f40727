package cloudcode

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/resource"
)

const defaultLanguage = "JS"

var paramLinePattern = regexp.MustCompile(`^//\s*@param\s+(\S+)\s+(\S+)(\s+required)?\s*$`)

var parameterTypes = map[string]string{
	"string":  "String",
	"boolean": "Boolean",
	"numeric": "Numeric",
	"json":    "JSON",
	"any":     "Any",
}

// Parameter is one declared script input.
type Parameter struct {
	Name     string
	Type     string
	Required bool
}

// codec maps one .js file to one script whose key is the file stem. Inputs are
// declared in the leading comment block:
//
//	// @param amount Numeric required
//	// @param reason String
type codec struct{}

func (codec) Decode(path string, data []byte) ([]resource.Entry, error) {
	name := scriptName(path)
	if name == "" {
		return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("%q has no script name", path), nil)
	}

	code := string(data)
	parameters, err := parseParameters(code)
	if err != nil {
		return nil, err
	}

	return []resource.Entry{{
		Key:     name,
		Name:    name,
		Payload: scriptPayload(code, defaultLanguage, parameters),
	}}, nil
}

func (codec) Encode(path string, entries []resource.Entry) ([]byte, error) {
	if len(entries) != 1 {
		return nil, faults.NewTypedError(faults.InternalError, fmt.Sprintf("%q must hold exactly one script, got %d", path, len(entries)), nil)
	}

	code, parameters, err := payloadParts(entries[0].Payload)
	if err != nil {
		return nil, err
	}

	declared, err := parseParameters(code)
	if err != nil {
		return nil, err
	}
	if len(declared) == 0 && len(parameters) > 0 {
		code = renderParameters(parameters) + code
	}
	return []byte(code), nil
}

func (codec) DefaultPath(dir string, entry resource.Entry) string {
	return filepath.Join(dir, entry.Key+Extension)
}

// KeyForPath lets an undecodable script still claim its name.
func (codec) KeyForPath(path string) (string, bool) {
	name := scriptName(path)
	return name, name != ""
}

func scriptName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseParameters reads @param lines from the comment block at the top of the
// script. Parsing stops at the first line that is not a line comment.
func parseParameters(code string) ([]Parameter, error) {
	var parameters []Parameter
	seen := map[string]bool{}
	for _, raw := range strings.Split(code, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "//") {
			break
		}
		if !strings.Contains(line, "@param") {
			continue
		}

		match := paramLinePattern.FindStringSubmatch(line)
		if match == nil {
			return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid parameter declaration %q", line), nil)
		}
		paramType, ok := parameterTypes[strings.ToLower(match[2])]
		if !ok {
			return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("parameter %q has unsupported type %q", match[1], match[2]), nil)
		}
		if seen[match[1]] {
			return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("parameter %q is declared more than once", match[1]), nil)
		}
		seen[match[1]] = true
		parameters = append(parameters, Parameter{Name: match[1], Type: paramType, Required: match[3] != ""})
	}
	return parameters, nil
}

// scriptBody drops the @param lines of the leading comment block and the blank
// lines directly after them.
func scriptBody(code string) string {
	lines := strings.Split(code, "\n")
	idx := 0
	for idx < len(lines) {
		line := strings.TrimSpace(lines[idx])
		if line != "" && !(strings.HasPrefix(line, "//") && strings.Contains(line, "@param")) {
			break
		}
		idx++
	}
	return strings.Join(lines[idx:], "\n")
}

func renderParameters(parameters []Parameter) string {
	var builder strings.Builder
	for _, parameter := range parameters {
		builder.WriteString("// @param " + parameter.Name + " " + parameter.Type)
		if parameter.Required {
			builder.WriteString(" required")
		}
		builder.WriteString("\n")
	}
	builder.WriteString("\n")
	return builder.String()
}

func scriptPayload(code string, language string, parameters []Parameter) map[string]any {
	params := make([]any, 0, len(parameters))
	for _, parameter := range parameters {
		params = append(params, map[string]any{
			"name":     parameter.Name,
			"type":     parameter.Type,
			"required": parameter.Required,
		})
	}
	if language == "" {
		language = defaultLanguage
	}
	return map[string]any{
		"code":       code,
		"language":   language,
		"parameters": params,
	}
}

func payloadParts(value resource.Value) (string, []Parameter, error) {
	object, ok := value.(map[string]any)
	if !ok {
		return "", nil, faults.NewTypedError(faults.InternalError, "script payload is not an object", nil)
	}
	code, _ := object["code"].(string)

	var parameters []Parameter
	rawParams, _ := object["parameters"].([]any)
	for _, raw := range rawParams {
		param, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := param["name"].(string)
		paramType, _ := param["type"].(string)
		required, _ := param["required"].(bool)
		if name == "" {
			continue
		}
		parameters = append(parameters, Parameter{Name: name, Type: paramType, Required: required})
	}
	return code, parameters, nil
}
