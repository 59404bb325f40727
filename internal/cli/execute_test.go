package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/orchestrator"
)

func TestExitCodeForError(t *testing.T) {
	t.Parallel()

	serviceFault := &faults.ServiceFault{Service: "access", Err: faults.NewTypedError(faults.AuthError, "denied", nil)}

	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain", err: errors.New("boom"), want: 1},
		{name: "validation", err: orchestrator.ErrReconcileRequiresServices, want: 2},
		{name: "not found", err: faults.NewTypedError(faults.NotFoundError, "missing", nil), want: 3},
		{name: "auth", err: faults.NewTypedError(faults.AuthError, "denied", nil), want: 4},
		{name: "conflict", err: faults.NewTypedError(faults.ConflictError, "overlap", nil), want: 5},
		{name: "transport", err: faults.NewTypedError(faults.TransportError, "refused", nil), want: 6},
		{name: "failures", err: &faults.FailuresError{Operation: "deploy", Count: 2}, want: 7},
		{name: "aggregate fault", err: faults.NewAggregateFault(serviceFault), want: 8},
		{name: "canceled", err: faults.NewTypedError(faults.CanceledError, "operation canceled", context.Canceled), want: 130},
		{name: "deadline", err: fmt.Errorf("run: %w", context.DeadlineExceeded), want: 130},
		{
			name: "canceled with faults",
			err:  errors.Join(faults.NewTypedError(faults.CanceledError, "operation canceled", context.Canceled), faults.NewAggregateFault(serviceFault)),
			want: 130,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if got := ExitCodeForError(testCase.err); got != testCase.want {
				t.Fatalf("ExitCodeForError(%v) = %d, want %d", testCase.err, got, testCase.want)
			}
		})
	}
}

func TestShouldSuppressStatusMessage(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		args []string
		want bool
	}{
		{name: "default false", args: []string{"config", "use", "dev"}, want: false},
		{name: "long flag", args: []string{"--no-status", "config", "use", "dev"}, want: true},
		{name: "short flag", args: []string{"-n", "config", "use", "dev"}, want: true},
		{name: "flag after positionals", args: []string{"config", "use", "dev", "--no-status"}, want: true},
		{name: "explicit false", args: []string{"--no-status=false", "config", "use", "dev"}, want: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			if got := shouldSuppressStatusMessage(testCase.args); got != testCase.want {
				t.Fatalf("shouldSuppressStatusMessage(%v) = %t, want %t", testCase.args, got, testCase.want)
			}
		})
	}
}

func TestExecutionStatusWriters(t *testing.T) {
	t.Parallel()

	buffer := &bytes.Buffer{}
	writeExecutionOKStatus(buffer)
	if got, want := buffer.String(), "[OK] command executed successfully.\n"; got != want {
		t.Fatalf("writeExecutionOKStatus() = %q, want %q", got, want)
	}

	buffer.Reset()
	writeExecutionErrorStatus(buffer, errors.New("context not found"))
	if got, want := buffer.String(), "[ERROR] command execution failed: context not found.\n"; got != want {
		t.Fatalf("writeExecutionErrorStatus() = %q, want %q", got, want)
	}
}

func TestShouldEmitExecutionStatus(t *testing.T) {
	t.Parallel()

	buildCommandPath := func(names ...string) *cobra.Command {
		root := &cobra.Command{Use: "liveops"}
		current := root
		for _, name := range names {
			next := &cobra.Command{Use: name}
			current.AddCommand(next)
			current = next
		}
		return current
	}

	testCases := []struct {
		name    string
		args    []string
		command *cobra.Command
		want    bool
	}{
		{name: "context mutation", args: []string{"config", "use", "dev"}, command: buildCommandPath("config", "use"), want: true},
		{name: "context mutation no status", args: []string{"config", "use", "dev", "-n"}, command: buildCommandPath("config", "use"), want: false},
		{name: "help invocation", args: []string{"config", "use", "--help"}, command: buildCommandPath("config", "use"), want: false},
		{name: "deploy prints its report", args: []string{"deploy", "."}, command: buildCommandPath("deploy"), want: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if got := shouldEmitExecutionStatus(testCase.args, testCase.command); got != testCase.want {
				t.Fatalf("shouldEmitExecutionStatus(%v) = %t, want %t", testCase.args, got, testCase.want)
			}
		})
	}
}
