// Package errors provides enhanced error messages with suggestions.
package errors

import (
	"strings"
)

// SuggestiveError is an error that includes suggestions for fixing the problem.
type SuggestiveError struct {
	Message     string
	Suggestions []string
	HelpCommand string
	cause       error
}

func (e *SuggestiveError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nTo fix this:\n")
		for _, s := range e.Suggestions {
			b.WriteString("  ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}

	if e.HelpCommand != "" {
		b.WriteString("\nRun '")
		b.WriteString(e.HelpCommand)
		b.WriteString("' for more information.")
	}

	return b.String()
}

// Unwrap lets errors.Is/As see through to the underlying cause.
func (e *SuggestiveError) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying error for unwrapping.
func (e *SuggestiveError) WithCause(err error) *SuggestiveError {
	e.cause = err
	return e
}

// MissingCredentialsError creates an error for when no API credentials
// could be resolved from the config file or environment.
func MissingCredentialsError(cause error) error {
	err := &SuggestiveError{
		Message: "missing Datadog API credentials",
		Suggestions: []string{
			"ddlogs configure                        - interactive credential setup",
			"export DD_API_KEY=... DD_APP_KEY=...    - environment variables",
		},
		HelpCommand: "ddlogs configure --help",
	}
	return err.WithCause(cause)
}
