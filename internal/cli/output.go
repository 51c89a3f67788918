package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sommerlab/boardsync/internal/reconcile"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // run finished with zero apply errors
	ExitFailure      = 1 // run finished but one or more changes failed
	ExitCommandError = 2 // config/credential/fetch error, nothing applied
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// FatalExitCode maps a fatal reconciliation error to its exit code. Every
// coded fatal error is a command error: nothing was applied.
func FatalExitCode(err error) int {
	if reconcile.IsFatal(err) {
		return ExitCommandError
	}
	return ExitFailure
}

// CLIResponse is the standard JSON envelope for command output.
type CLIResponse struct {
	Status string               `json:"status"` // "ok" or "error"
	Error  *CLIErrorDetail      `json:"error,omitempty"`
	Result *reconcile.RunResult `json:"result,omitempty"`
}

// CLIErrorDetail is the error structure for JSON responses.
type CLIErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// printResult writes a finished run in the selected format. JSON output is
// a single CLIResponse document; text output is the plan (dry-run only)
// followed by the result summary.
func printResult(w io.Writer, format string, result *reconcile.RunResult, plan *reconcile.Plan) error {
	if format == "json" {
		status := "ok"
		if result.Failed() {
			status = "error"
		}
		return json.NewEncoder(w).Encode(CLIResponse{Status: status, Result: result})
	}

	if result.DryRun && plan != nil {
		reconcile.RenderPlan(w, plan)
	}
	reconcile.RenderResult(w, result)
	return nil
}

// printFatal writes a fatal (pre-apply) error in the selected format.
func printFatal(w io.Writer, format string, err error) {
	if format == "json" {
		json.NewEncoder(w).Encode(CLIResponse{
			Status: "error",
			Error: &CLIErrorDetail{
				Code:    string(reconcile.CodeOf(err)),
				Message: err.Error(),
			},
		})
		return
	}
	fmt.Fprintf(w, "Error [%s]: %v\n", reconcile.CodeOf(err), err)
}
