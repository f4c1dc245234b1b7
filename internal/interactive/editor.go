// Package interactive implements the survey-driven configuration editor.
package interactive

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cast"
	"golang.org/x/term"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/devconf"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
)

const (
	menuCommit  = "Done (commit and save)"
	menuDiscard = "Cancel (discard edits)"
	menuNewKey  = "(add new key)"
	menuBack    = "(back)"
)

// EditTarget is the slice of the manager the editor drives: staging edits
// and inspecting the staged tree.
type EditTarget interface {
	ApplyEdit(subsystem, key string, value any) error
	Working() (interfaces.Tree, error)
}

// Editor walks the user through subsystem, key and value selection until
// they commit or discard.
type Editor struct {
	numberSelect bool
}

// NewEditor creates an editor. numberSelect enables instant number key
// selection instead of survey's arrow menus.
func NewEditor(numberSelect bool) *Editor {
	return &Editor{numberSelect: numberSelect}
}

// Run drives the edit loop against an open session. It returns whether the
// staged edits should be committed and how many edits were staged.
func (e *Editor) Run(target EditTarget) (commit bool, edits int, err error) {
	for {
		working, err := target.Working()
		if err != nil {
			return false, edits, err
		}

		subsystem, err := e.selectSubsystem(working, edits)
		if err != nil {
			return false, edits, err
		}

		switch subsystem {
		case menuCommit:
			return true, edits, nil
		case menuDiscard:
			if edits == 0 {
				return false, edits, nil
			}
			discard, err := e.selectYesNo(
				fmt.Sprintf("Discard %d staged edit(s)?", edits),
				"Discarded edits never reach the configuration file",
				false,
			)
			if err != nil {
				return false, edits, err
			}
			if discard {
				return false, edits, nil
			}
			continue
		}

		staged, err := e.editSubsystem(target, subsystem, working[subsystem])
		if err != nil {
			return false, edits, err
		}
		edits += staged
	}
}

// selectSubsystem presents the subsystem menu.
func (e *Editor) selectSubsystem(working interfaces.Tree, edits int) (string, error) {
	options := append(working.Names(), menuCommit, menuDiscard)

	message := "Select a subsystem to edit:"
	if edits > 0 {
		message = fmt.Sprintf("Select a subsystem to edit (%d staged):", edits)
	}

	return e.selectOption(options, message, "Edits are staged until you commit")
}

// editSubsystem presents the key menu for one subsystem and stages a value.
func (e *Editor) editSubsystem(target EditTarget, subsystem string, section interfaces.SubsystemConfig) (int, error) {
	keys := make([]string, 0, len(section))
	for key := range section {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	options := append(keys, menuNewKey, menuBack)
	key, err := e.selectOption(options, fmt.Sprintf("Select a %s option:", subsystem), "")
	if err != nil {
		return 0, err
	}

	switch key {
	case menuBack:
		return 0, nil
	case menuNewKey:
		prompt := &survey.Input{
			Message: fmt.Sprintf("New option name for %s:", subsystem),
			Help:    "Unrecognized options are kept in the configuration file as-is",
		}
		if err := survey.AskOne(prompt, &key, survey.WithValidator(survey.Required)); err != nil {
			return 0, err
		}
		key = strings.TrimSpace(key)
	}

	message := fmt.Sprintf("Value for %s.%s:", subsystem, key)
	input := &survey.Input{Message: message}
	if current, ok := section[key]; ok {
		input.Default = cast.ToString(current)
		input.Help = "Booleans and numbers are detected from the literal"
	}

	var raw string
	if err := survey.AskOne(input, &raw); err != nil {
		return 0, err
	}

	if err := target.ApplyEdit(subsystem, key, devconf.ParseScalar(strings.TrimSpace(raw))); err != nil {
		return 0, err
	}
	return 1, nil
}

// selectOption handles option selection with optional number key support
func (e *Editor) selectOption(options []string, message, help string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("nothing to select")
	}

	if e.numberSelect {
		return e.selectOptionWithNumbers(options, message, help)
	}

	prompt := &survey.Select{
		Message: message,
		Options: options,
		Help:    help,
	}

	var selected string
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}

	return selected, nil
}

// selectOptionWithNumbers displays numbered options and allows instant
// selection by number key
func (e *Editor) selectOptionWithNumbers(options []string, message, help string) (string, error) {
	fmt.Printf("\n%s\n", message)
	if help != "" {
		fmt.Printf("  %s (Press number key for instant selection)\n", help)
	}
	fmt.Println()

	for i, option := range options {
		fmt.Printf("  %d. %s\n", i+1, option)
	}
	fmt.Println()

	// Check if we're in a terminal that supports raw mode
	if !term.IsTerminal(int(syscall.Stdin)) {
		return e.fallbackNumberSelection(options)
	}

	oldState, err := term.MakeRaw(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if raw mode fails
		return e.fallbackNumberSelection(options)
	}
	defer term.Restore(int(syscall.Stdin), oldState)

	fmt.Print("Select option: ")

	buffer := make([]byte, 1)
	for {
		_, err := os.Stdin.Read(buffer)
		if err != nil {
			return "", err
		}

		char := buffer[0]

		// Number keys 1-9
		if char >= '1' && char <= '9' {
			selectedIndex := int(char - '1')
			if selectedIndex < len(options) {
				fmt.Printf("%c\n", char)
				return options[selectedIndex], nil
			}
		}

		// Enter selects the first option
		if char == '\r' || char == '\n' {
			fmt.Println()
			return options[0], nil
		}

		// Escape or Ctrl+C
		if char == 27 || char == 3 {
			fmt.Println()
			return "", fmt.Errorf("selection cancelled")
		}

		// For any other key, continue waiting
	}
}

// fallbackNumberSelection provides a fallback when raw terminal mode is not
// available
func (e *Editor) fallbackNumberSelection(options []string) (string, error) {
	fmt.Printf("Enter number (1-%d) or press Enter for first option: ", len(options))

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return options[0], nil
	}

	selectedIndex, err := strconv.Atoi(input)
	if err != nil {
		return "", fmt.Errorf("invalid input: please enter a number between 1 and %d", len(options))
	}
	if selectedIndex < 1 || selectedIndex > len(options) {
		return "", fmt.Errorf("invalid selection: please enter a number between 1 and %d", len(options))
	}

	return options[selectedIndex-1], nil
}

// selectYesNo handles yes/no selection with optional number key support
func (e *Editor) selectYesNo(message, help string, defaultValue bool) (bool, error) {
	if e.numberSelect {
		return e.selectYesNoWithNumbers(message, help, defaultValue)
	}

	prompt := &survey.Confirm{
		Message: message,
		Help:    help,
		Default: defaultValue,
	}

	var result bool
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}

	return result, nil
}

// selectYesNoWithNumbers displays numbered yes/no options and allows
// instant selection
func (e *Editor) selectYesNoWithNumbers(message, help string, defaultValue bool) (bool, error) {
	fmt.Printf("\n%s\n", message)
	if help != "" {
		fmt.Printf("  %s (Press number key for instant selection)\n", help)
	}
	fmt.Println()

	if defaultValue {
		fmt.Println("  1. Yes (default)")
		fmt.Println("  2. No")
	} else {
		fmt.Println("  1. Yes")
		fmt.Println("  2. No (default)")
	}
	fmt.Println()

	if !term.IsTerminal(int(syscall.Stdin)) {
		return e.fallbackYesNoSelection(defaultValue)
	}

	oldState, err := term.MakeRaw(int(syscall.Stdin))
	if err != nil {
		return e.fallbackYesNoSelection(defaultValue)
	}
	defer term.Restore(int(syscall.Stdin), oldState)

	fmt.Print("Select option: ")

	buffer := make([]byte, 1)
	for {
		_, err := os.Stdin.Read(buffer)
		if err != nil {
			return false, err
		}

		char := buffer[0]

		if char == '1' {
			fmt.Printf("1\n")
			return true, nil
		}
		if char == '2' {
			fmt.Printf("2\n")
			return false, nil
		}

		// Enter uses the default
		if char == '\r' || char == '\n' {
			fmt.Println()
			return defaultValue, nil
		}

		// Escape or Ctrl+C
		if char == 27 || char == 3 {
			fmt.Println()
			return false, fmt.Errorf("selection cancelled")
		}
	}
}

// fallbackYesNoSelection provides a fallback when raw terminal mode is not
// available
func (e *Editor) fallbackYesNoSelection(defaultValue bool) (bool, error) {
	defaultText := "No"
	if defaultValue {
		defaultText = "Yes"
	}

	fmt.Printf("Enter 1 for Yes, 2 for No, or press Enter for default (%s): ", defaultText)

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue, nil
	}

	switch input {
	case "1":
		return true, nil
	case "2":
		return false, nil
	default:
		return false, fmt.Errorf("invalid input: please enter 1 for Yes or 2 for No")
	}
}

// ConfirmOverwrite asks whether an existing configuration file should be
// replaced. Used by the init command.
func (e *Editor) ConfirmOverwrite(filePath string) (bool, error) {
	return e.selectYesNo(
		fmt.Sprintf("Configuration file already exists: %s. Overwrite?", filePath),
		"The file is replaced with the documented defaults",
		false,
	)
}

// ConfirmBroadcast asks whether the committed configuration should be
// pushed to the registered subsystems.
func (e *Editor) ConfirmBroadcast() (bool, error) {
	return e.selectYesNo(
		"Apply the new configuration to the subsystems now?",
		"Each subsystem is re-initialized with its new configuration",
		true,
	)
}
