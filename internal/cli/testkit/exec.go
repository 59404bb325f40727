// Package testkit runs cobra command trees against in-memory streams.
package testkit

import (
	"bytes"
	"strings"
	"sync"

	"github.com/spf13/cobra"
)

var executeCommandForTestMu sync.Mutex

func ExecuteCommandForTest(command *cobra.Command, stdin string, args ...string) (string, error) {
	output, _, err := ExecuteCommandForTestWithStreams(command, stdin, args...)
	return output, err
}

func ExecuteCommandForTestWithStreams(command *cobra.Command, stdin string, args ...string) (string, string, error) {
	// Cobra mutates shared annotation maps while serving help and completion.
	executeCommandForTestMu.Lock()
	defer executeCommandForTestMu.Unlock()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	command.SetOut(stdout)
	command.SetErr(stderr)
	command.SetIn(strings.NewReader(stdin))
	command.SetArgs(args)

	err := command.Execute()
	return stdout.String(), stderr.String(), err
}

// CommandPaths lists every runnable or grouping command below root as a
// space-joined path, skipping help and cobra's hidden completion commands.
func CommandPaths(root *cobra.Command) []string {
	paths := make([]string, 0)
	var walk func(*cobra.Command, string)
	walk = func(command *cobra.Command, prefix string) {
		for _, child := range command.Commands() {
			name := child.Name()
			if name == "help" || strings.HasPrefix(name, "__") {
				continue
			}
			current := strings.TrimSpace(prefix + " " + name)
			paths = append(paths, current)
			walk(child, current)
		}
	}
	walk(root, "")
	return paths
}
