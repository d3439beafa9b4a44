package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/idle/internal/catalog"
	"github.com/roach88/idle/internal/lore"
	"github.com/roach88/idle/internal/prefs"
	"github.com/roach88/idle/internal/progress"
	"github.com/roach88/idle/internal/shop"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Refused action or failed scenario (insufficient funds, locked item, etc.)
	ExitCommandError = 2 // Command error (bad arguments, unreadable database or catalog, etc.)
)

// Error codes reported in CLIError.Code.
const (
	CodeCommand            = "E001" // bad arguments or environment
	CodeCatalog            = "E002" // catalog failed to compile
	CodeStorage            = "E003" // database could not be opened
	CodeInsufficientFunds  = "E101"
	CodeAlreadyOwned       = "E102"
	CodeMaxLevel           = "E103"
	CodeLocked             = "E104"
	CodeUnknown            = "E105"
	CodePurchaseInProgress = "E106"
	CodeScenarioFailed     = "E201"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
	Silent  bool   // Already reported through the OutputFormatter
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
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ErrorCode maps a game error to its CLIError code.
func ErrorCode(err error) string {
	var catErr *catalog.Error
	switch {
	case progress.IsInsufficientFunds(err):
		return CodeInsufficientFunds
	case errors.Is(err, shop.ErrAlreadyOwned), errors.Is(err, lore.ErrAlreadyUnlocked):
		return CodeAlreadyOwned
	case errors.Is(err, shop.ErrMaxLevel):
		return CodeMaxLevel
	case errors.Is(err, shop.ErrLocked), errors.Is(err, prefs.ErrLocked), errors.Is(err, ErrNoAgents):
		return CodeLocked
	case errors.Is(err, shop.ErrUnknownItem), errors.Is(err, lore.ErrUnknownLore), errors.Is(err, prefs.ErrUnknownTheme):
		return CodeUnknown
	case errors.Is(err, shop.ErrPurchaseInProgress):
		return CodePurchaseInProgress
	case errors.As(err, &catErr):
		return CodeCatalog
	}
	return CodeCommand
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
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E101", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
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

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
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
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Refused reports a game error and returns the ExitError the command
// should return. Refusals exit with ExitFailure; anything else is a
// command error.
func (f *OutputFormatter) Refused(err error, details interface{}) error {
	code := ErrorCode(err)
	if outErr := f.Error(code, err.Error(), details); outErr != nil {
		return WrapExitError(ExitCommandError, "failed to write output", outErr)
	}
	exit := ExitFailure
	if code == CodeCommand || code == CodeCatalog || code == CodeStorage {
		exit = ExitCommandError
	}
	return &ExitError{Code: exit, Message: "refused", Err: err, Silent: true}
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
