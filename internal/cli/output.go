package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed (import produced nothing, migration wiped the store)
	ExitCommandError = 2 // Command error (bad config, unreadable file, unknown row, etc.)
)

// Error codes reported in CLI output.
const (
	ErrCodeGeneric   = "E001" // Generic/unknown error
	ErrCodeConfig    = "E002" // Configuration invalid
	ErrCodeOpen      = "E003" // Store could not be opened
	ErrCodeNotFound  = "E004" // Row not found
	ErrCodeInput     = "E005" // Bad argument or input file
	ErrCodeOperation = "E006" // Store operation failed
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
)

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Result outputs data as JSON, or calls text to render it for people.
func (f *OutputFormatter) Result(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return f.Success(data)
	}
	text(f.Writer)
	return nil
}

// Done prints a one-line confirmation in text mode, or data in JSON mode.
func (f *OutputFormatter) Done(data any, format string, args ...any) error {
	return f.Result(data, func(w io.Writer) {
		okColor.Fprint(w, "✓ ")
		fmt.Fprintf(w, format+"\n", args...)
	})
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	errColor.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Warn writes a highlighted notice to the diagnostic writer. It never
// touches JSON output.
func (f *OutputFormatter) Warn(format string, args ...any) {
	warnColor.Fprintf(f.GetErrWriter(), "warning: "+format+"\n", args...)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// fail reports an error and returns it with an exit code.
func (f *OutputFormatter) fail(exit int, code, message string, err error) error {
	_ = f.Error(code, message, errDetails(err))
	return WrapExitError(exit, message, err)
}

func errDetails(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}
