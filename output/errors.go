package output

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
)

// Exit codes. Scheduled runs branch on these, so they are stable.
const (
	ExitSuccess    = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitConfig     = 4
	ExitAuth       = 5
	ExitStorage    = 6
	ExitAPI        = 7
	ExitNoArticles = 8
)

// CLIError is an error with user-facing context and an exit code.
type CLIError struct {
	Summary    string
	Suggestion string
	ExitCode   int
	Err        error
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Summary, e.Err)
	}
	return e.Summary
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// Wrap attaches a summary, a suggestion and an exit code to err.
func Wrap(err error, code int, summary, suggestion string) *CLIError {
	return &CLIError{Summary: summary, Suggestion: suggestion, ExitCode: code, Err: err}
}

// ExitCodeOf returns the exit code carried by err, ExitGeneral for any
// other non-nil error and ExitSuccess for nil.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.ExitCode
	}
	return ExitGeneral
}

// FormatError prints err to stderr, with cause and suggestion when it is a
// CLIError.
func (p *Printer) FormatError(err error) {
	var cliErr *CLIError
	if !errors.As(err, &cliErr) {
		p.Error("%v", err)
		return
	}

	if p.useColors {
		color.New(color.FgRed, color.Bold).Fprintf(p.err, "Error: %s\n", cliErr.Summary)
	} else {
		fmt.Fprintf(p.err, "[ERROR] %s\n", cliErr.Summary)
	}
	if cliErr.Err != nil {
		fmt.Fprintf(p.err, "  Cause: %v\n", cliErr.Err)
	}
	if cliErr.Suggestion != "" {
		if p.useColors {
			color.New(color.FgCyan).Fprintf(p.err, "  Suggestion: %s\n", cliErr.Suggestion)
		} else {
			fmt.Fprintf(p.err, "  Suggestion: %s\n", cliErr.Suggestion)
		}
	}
}
