package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	configdomain "github.com/crmarques/liveops/config"
	"github.com/crmarques/liveops/internal/cli/common"
)

const maxContextFileBytes = 1 << 20

// readContextFile decodes one context from path, or from stdin when path is
// "-". Unknown fields are rejected.
func readContextFile(command *cobra.Command, path string) (configdomain.Context, error) {
	var reader io.Reader
	if strings.TrimSpace(path) == "-" {
		reader = command.InOrStdin()
	} else {
		file, err := os.Open(path)
		if err != nil {
			return configdomain.Context{}, common.ValidationError("failed to open context file", err)
		}
		defer file.Close()
		reader = file
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxContextFileBytes+1))
	if err != nil {
		return configdomain.Context{}, common.ValidationError("failed to read context file", err)
	}
	if len(data) > maxContextFileBytes {
		return configdomain.Context{}, common.ValidationError("context file is too large", nil)
	}
	return decodeContext(data)
}

func decodeContext(data []byte) (configdomain.Context, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var cfg configdomain.Context
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return configdomain.Context{}, common.ValidationError("context file is empty", nil)
		}
		return configdomain.Context{}, common.ValidationError("invalid context file", err)
	}

	var extra any
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		return configdomain.Context{}, common.ValidationError("context file must hold a single document", nil)
	}
	return cfg, nil
}
