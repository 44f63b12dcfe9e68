package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestSuggestiveErrorFormatting(t *testing.T) {
	err := &SuggestiveError{
		Message:     "something failed",
		Suggestions: []string{"try this", "or this"},
		HelpCommand: "ddlogs --help",
	}

	msg := err.Error()
	for _, want := range []string{"something failed", "try this", "or this", "ddlogs --help"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, should contain %q", msg, want)
		}
	}
}

func TestSuggestiveErrorNoSuggestions(t *testing.T) {
	err := &SuggestiveError{Message: "plain failure"}
	if got := err.Error(); got != "plain failure" {
		t.Errorf("Error() = %q, want bare message", got)
	}
}

func TestMissingCredentialsErrorUnwraps(t *testing.T) {
	sentinel := errors.New("missing Datadog API credentials")
	err := MissingCredentialsError(sentinel)

	if !errors.Is(err, sentinel) {
		t.Error("MissingCredentialsError() should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "ddlogs configure") {
		t.Errorf("Error() = %q, should point at 'ddlogs configure'", err.Error())
	}
}
