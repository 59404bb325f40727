package commandmeta

import (
	"strings"
)

type OutputPolicy uint8

const (
	OutputPolicyStructured OutputPolicy = iota
	OutputPolicyTextOnly
	OutputPolicyYAMLDefaultTextOrYAML
)

// EmitsExecutionStatusPath reports whether a command ends with an
// [OK]/[ERROR] status line. Deploy and fetch print their report instead.
func EmitsExecutionStatusPath(path string) bool {
	switch strings.TrimSpace(path) {
	case "liveops config add",
		"liveops config use",
		"liveops config delete":
		return true
	default:
		return false
	}
}

func OutputPolicyForPath(path string) OutputPolicy {
	normalized := strings.TrimSpace(path)
	switch {
	case normalized == "liveops config show":
		return OutputPolicyYAMLDefaultTextOrYAML
	case strings.HasPrefix(normalized, "liveops completion"):
		return OutputPolicyTextOnly
	default:
		return OutputPolicyStructured
	}
}
