// Package yamlutil encodes YAML the way liveops writes it to disk and to the
// terminal: two-space indentation, one document.
package yamlutil

import (
	"bytes"

	"go.yaml.in/yaml/v3"
)

const Indent = 2

func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(Indent)
	if err := encoder.Encode(v); err != nil {
		_ = encoder.Close()
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
