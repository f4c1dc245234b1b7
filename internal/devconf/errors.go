package devconf

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for different categories of failures
var (
	ErrNotFound              = errors.New("configuration file not found")
	ErrParse                 = errors.New("configuration parse error")
	ErrWrite                 = errors.New("configuration write error")
	ErrUnknownSubsystem      = errors.New("unknown subsystem")
	ErrSessionAlreadyOpen    = errors.New("editing session already open")
	ErrNoSessionOpen         = errors.New("no editing session open")
	ErrSessionClosed         = errors.New("editing session closed")
	ErrDuplicateRegistration = errors.New("duplicate subsystem registration")
)

// ConfigError represents a structured error with actionable guidance
type ConfigError struct {
	Type     error
	Message  string
	Guidance string
	Cause    error
}

func (e *ConfigError) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s: %s\n\nSuggestion: %s", e.Type, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes both the sentinel and the cause so errors.Is matches either.
func (e *ConfigError) Unwrap() []error {
	errs := []error{e.Type}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Error constructors with actionable guidance

func NewNotFoundError(path string) *ConfigError {
	return &ConfigError{
		Type:    ErrNotFound,
		Message: fmt.Sprintf("no configuration file at '%s'", path),
		Guidance: fmt.Sprintf("Run 'hwctl init' to create '%s' with the default configuration, "+
			"or point at an existing file with --config.", path),
	}
}

func NewParseError(path string, detail string, cause error) *ConfigError {
	message := fmt.Sprintf("cannot load '%s': %s", path, detail)
	guidance := "Fix the file by hand or run 'hwctl init --force' to replace it with the defaults."

	if cause != nil {
		if strings.Contains(cause.Error(), "yaml") {
			guidance = fmt.Sprintf("Check the YAML syntax in '%s'. Indentation must be spaces and "+
				"every subsystem section must be a mapping.", path)
		} else if strings.Contains(cause.Error(), "invalid character") ||
			strings.Contains(cause.Error(), "unexpected end of JSON") {
			guidance = fmt.Sprintf("Check the JSON syntax in '%s'. Every subsystem section must be "+
				"an object of key/value pairs.", path)
		}
	}

	return &ConfigError{
		Type:     ErrParse,
		Message:  message,
		Guidance: guidance,
		Cause:    cause,
	}
}

func NewWriteError(path string, cause error) *ConfigError {
	message := fmt.Sprintf("cannot write '%s'", path)
	guidance := fmt.Sprintf("Check that the directory of '%s' exists and is writable. "+
		"The previous configuration file is left untouched.", path)

	if cause != nil && strings.Contains(cause.Error(), "permission") {
		guidance = fmt.Sprintf("Permission denied writing '%s'. Check ownership and permissions of "+
			"the file and its directory. The previous configuration file is left untouched.", path)
	}

	return &ConfigError{
		Type:     ErrWrite,
		Message:  message,
		Guidance: guidance,
		Cause:    cause,
	}
}

func NewUnknownSubsystemError(name string) *ConfigError {
	return &ConfigError{
		Type:    ErrUnknownSubsystem,
		Message: fmt.Sprintf("'%s' is not a managed subsystem", name),
		Guidance: "Managed subsystems are: gps, lora, rtlsdr, rtc, usb, logging. " +
			"Unrecognized sections in the configuration file are preserved but cannot be edited.",
	}
}

func NewSessionAlreadyOpenError(sessionID string) *ConfigError {
	return &ConfigError{
		Type:    ErrSessionAlreadyOpen,
		Message: fmt.Sprintf("editing session %s is still open", sessionID),
		Guidance: "Commit or cancel the open session before starting a new one. " +
			"Only one editing session may exist at a time.",
	}
}

func NewNoSessionOpenError() *ConfigError {
	return &ConfigError{
		Type:     ErrNoSessionOpen,
		Message:  "no editing session is open",
		Guidance: "Start a session with begin-edit before applying, committing or cancelling edits.",
	}
}

func NewSessionClosedError(sessionID string) *ConfigError {
	return &ConfigError{
		Type:     ErrSessionClosed,
		Message:  fmt.Sprintf("editing session %s has been committed or cancelled", sessionID),
		Guidance: "Begin a new editing session. A session cannot be reused after commit or cancel.",
	}
}

func NewDuplicateRegistrationError(subsystem string) *ConfigError {
	return &ConfigError{
		Type:    ErrDuplicateRegistration,
		Message: fmt.Sprintf("subsystem '%s' is already registered", subsystem),
		Guidance: fmt.Sprintf("Each subsystem registers exactly one handle. Unregister or rename the "+
			"existing '%s' handle before registering another.", subsystem),
	}
}
