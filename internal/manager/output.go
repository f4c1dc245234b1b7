package manager

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
)

// OutputHandler implements the OutputHandler interface
type OutputHandler struct{}

// NewOutputHandler creates a new output handler
func NewOutputHandler() interfaces.OutputHandler {
	return &OutputHandler{}
}

// WriteToClipboard copies content to the system clipboard
func (h *OutputHandler) WriteToClipboard(content string) error {
	return clipboard.WriteAll(content)
}

// WriteToStdout writes content to standard output
func (h *OutputHandler) WriteToStdout(content string) error {
	_, err := fmt.Println(content)
	return err
}

// WriteToFile writes content to the specified file path
func (h *OutputHandler) WriteToFile(content string, path string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// OpenInEditor opens the file at path in the specified editor and waits
// for it to exit
func (h *OutputHandler) OpenInEditor(path string, editor string) error {
	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to launch editor %s: %w", editor, err)
	}

	return nil
}

// Deliver sends content to the requested target. A clipboard that is not
// available falls back to stdout with a warning instead of failing the
// whole command.
func Deliver(h interfaces.OutputHandler, content, target string) error {
	if target == "" {
		target = "stdout"
	}

	switch {
	case target == "clipboard":
		if err := h.WriteToClipboard(content); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: clipboard unavailable (%v), falling back to stdout:\n\n", err)
			return h.WriteToStdout(content)
		}
		fmt.Println("Copied to clipboard")

	case target == "stdout":
		return h.WriteToStdout(content)

	case strings.HasPrefix(target, "file:"):
		path := strings.TrimPrefix(target, "file:")
		if err := h.WriteToFile(content, path); err != nil {
			return err
		}
		fmt.Printf("Written to %s\n", path)

	default:
		return fmt.Errorf("unsupported output target: %s (must be 'clipboard', 'stdout', or 'file:/path')", target)
	}

	return nil
}
