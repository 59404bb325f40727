package common

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

// Prompter asks the user for values. Commands take one so tests can script
// answers.
type Prompter interface {
	IsInteractive(command *cobra.Command) bool
	Input(command *cobra.Command, prompt string, required bool) (string, error)
	Secret(command *cobra.Command, prompt string) (string, error)
	Select(command *cobra.Command, prompt string, options []string) (string, error)
	Confirm(command *cobra.Command, prompt string, defaultYes bool) (bool, error)
}

// TerminalPrompter renders huh forms on the command streams.
type TerminalPrompter struct{}

var _ Prompter = TerminalPrompter{}

func (TerminalPrompter) IsInteractive(command *cobra.Command) bool {
	return IsInteractiveTerminal(command)
}

func (p TerminalPrompter) Input(command *cobra.Command, prompt string, required bool) (string, error) {
	return p.text(command, prompt, required, huh.EchoModeNormal)
}

// Secret reads a required value without echoing it.
func (p TerminalPrompter) Secret(command *cobra.Command, prompt string) (string, error) {
	return p.text(command, prompt, true, huh.EchoModePassword)
}

func (p TerminalPrompter) Select(command *cobra.Command, prompt string, options []string) (string, error) {
	if len(options) == 0 {
		return "", ValidationError("no options available", nil)
	}

	selected := options[0]
	field := huh.NewSelect[string]().
		Title(promptTitle(prompt)).
		Options(huh.NewOptions(options...)...).
		Value(&selected)
	if err := p.run(command, field); err != nil {
		return "", err
	}
	return selected, nil
}

func (p TerminalPrompter) Confirm(command *cobra.Command, prompt string, defaultYes bool) (bool, error) {
	confirmed := defaultYes
	field := huh.NewConfirm().
		Title(promptTitle(prompt)).
		Value(&confirmed)
	if err := p.run(command, field); err != nil {
		return false, err
	}
	return confirmed, nil
}

func (p TerminalPrompter) text(command *cobra.Command, prompt string, required bool, echo huh.EchoMode) (string, error) {
	value := ""
	field := huh.NewInput().
		Title(promptTitle(prompt)).
		EchoMode(echo).
		Value(&value)
	if required {
		field.Validate(huh.ValidateNotEmpty())
	}
	if err := p.run(command, field); err != nil {
		return "", err
	}

	value = strings.TrimSpace(value)
	if required && value == "" {
		return "", ValidationError("value is required", nil)
	}
	return value, nil
}

func (TerminalPrompter) run(command *cobra.Command, field huh.Field) error {
	if !IsInteractiveTerminal(command) {
		return ValidationError("interactive terminal is required", nil)
	}

	err := huh.NewForm(huh.NewGroup(field)).
		WithInput(command.InOrStdin()).
		WithOutput(command.OutOrStdout()).
		WithShowHelp(false).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ValidationError("interactive prompt interrupted", nil)
	}
	return err
}

// promptTitle turns a line prompt such as "Context name: " into a form title.
func promptTitle(prompt string) string {
	title := strings.TrimSuffix(strings.TrimSpace(prompt), ":")
	if title == "" {
		return "Input"
	}
	return title
}
