// Package errors provides rich error types and display for the launcher CLI.
//
// Errors carry a stable code, an optional detail line and actionable
// suggestions. Display renders them in a bordered box for terminals and
// DisplaySimple renders plain text for pipes and logs.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"launcher/internal/domain"

	"github.com/charmbracelet/lipgloss"
)

// Code represents an error code for categorization.
type Code string

const (
	CodeUnknown        Code = "UNKNOWN"
	CodeConfigInvalid  Code = "CONFIG_INVALID"
	CodeRegistryFailed Code = "REGISTRY_FAILED"
	CodeCatalogInvalid Code = "CATALOG_INVALID"
	CodeNotLoaded      Code = "NOT_LOADED"
	CodeUnknownStream  Code = "UNKNOWN_STREAM"
	CodeInvalidRequest Code = "INVALID_REQUEST"
	CodeThrottled      Code = "THROTTLED"
	CodeAlreadyExists  Code = "ALREADY_EXISTS"
)

// Rich is an enhanced error with additional context for display.
type Rich struct {
	// Code is a unique error code for categorization
	Code Code
	// Message is the user-friendly error message
	Message string
	// Details provides additional technical information
	Details string
	// Suggestions are actionable items the user can try
	Suggestions []string
	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *Rich) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Rich) Unwrap() error {
	return e.Cause
}

// New creates a new Rich error.
func New(code Code, message string) *Rich {
	return &Rich{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code Code, message string) *Rich {
	return &Rich{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WithDetails adds technical details to the error.
func (e *Rich) WithDetails(details string) *Rich {
	e.Details = details
	return e
}

// WithSuggestions adds actionable suggestions.
func (e *Rich) WithSuggestions(suggestions ...string) *Rich {
	e.Suggestions = suggestions
	return e
}

// AsRich converts an error to a Rich error if possible.
func AsRich(err error) *Rich {
	var rich *Rich
	if errors.As(err, &rich) {
		return rich
	}
	return nil
}

// FromError classifies err into a Rich error. Errors that already are Rich
// are returned unchanged.
func FromError(err error) *Rich {
	if err == nil {
		return nil
	}
	if rich := AsRich(err); rich != nil {
		return rich
	}

	var unknownStream *domain.UnknownStreamError
	var invalidExt *domain.InvalidExtensionError

	switch {
	case errors.As(err, &unknownStream):
		return Wrap(err, CodeUnknownStream, fmt.Sprintf("Stream %q is not available", unknownStream.Key)).
			WithSuggestions("Run 'launcher catalog streams' to list the available streams")
	case errors.As(err, &invalidExt):
		r := Wrap(err, CodeInvalidRequest, fmt.Sprintf("Extension %q cannot be resolved", invalidExt.ID))
		if len(invalidExt.Candidates) > 1 {
			return r.WithDetails("Matches: " + strings.Join(invalidExt.Candidates, ", ")).
				WithSuggestions("Use the full groupId:artifactId of the extension")
		}
		return r.WithSuggestions("Run 'launcher catalog extensions' to list the extensions of the stream")
	case errors.Is(err, domain.ErrRefreshThrottled):
		return Wrap(err, CodeThrottled, "A refresh was triggered too recently").
			WithSuggestions("Wait for the configured refresh_rate_limit and try again")
	case domain.IsCallerError(err):
		return Wrap(err, CodeInvalidRequest, "The request is invalid")
	case errors.Is(err, domain.ErrNotLoaded):
		return Wrap(err, CodeNotLoaded, "No platform catalog has been loaded yet")
	case errors.Is(err, domain.ErrFetch):
		return Wrap(err, CodeRegistryFailed, "Failed to fetch catalogs from the registry").
			WithSuggestions(
				"Check platforms.registry_id and registry.url in your config",
				"Use registry.catalog_file to work offline",
			)
	case errors.Is(err, domain.ErrBuildInvariant), errors.Is(err, domain.ErrValidation):
		return Wrap(err, CodeCatalogInvalid, "The registry returned an unusable catalog")
	default:
		return Wrap(err, CodeUnknown, err.Error())
	}
}

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1).
			Width(72)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	suggestStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// Display formats the error for a terminal.
func Display(err error) string {
	rich := FromError(err)
	if rich == nil {
		return ""
	}

	var b strings.Builder

	b.WriteString(headerStyle.Render("✗ Error"))
	b.WriteString(" ")
	b.WriteString(codeStyle.Render(fmt.Sprintf("[%s]", rich.Code)))
	b.WriteString("\n\n")
	b.WriteString(rich.Message)
	b.WriteString("\n")

	if rich.Details != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(rich.Details))
		b.WriteString("\n")
	}

	if rich.Cause != nil && rich.Cause.Error() != rich.Message {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("Caused by: " + rich.Cause.Error()))
		b.WriteString("\n")
	}

	if len(rich.Suggestions) > 0 {
		b.WriteString("\n")
		b.WriteString(suggestStyle.Render("Suggestions:"))
		b.WriteString("\n")
		for _, s := range rich.Suggestions {
			b.WriteString("  • ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// DisplaySimple formats an error for non-terminal output.
func DisplaySimple(err error) string {
	rich := FromError(err)
	if rich == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Error [%s]: %s\n", rich.Code, rich.Message)

	if rich.Details != "" {
		fmt.Fprintf(&b, "  Details: %s\n", rich.Details)
	}
	if rich.Cause != nil && rich.Cause.Error() != rich.Message {
		fmt.Fprintf(&b, "  Caused by: %v\n", rich.Cause)
	}
	if len(rich.Suggestions) > 0 {
		b.WriteString("  Suggestions:\n")
		for _, s := range rich.Suggestions {
			fmt.Fprintf(&b, "    - %s\n", s)
		}
	}

	return b.String()
}

// ConfigInvalid returns a config validation error.
func ConfigInvalid(path string, cause error) *Rich {
	r := Wrap(cause, CodeConfigInvalid, "Configuration is invalid").
		WithSuggestions(
			"Check the configuration file syntax",
			"Run 'launcher config init --force' to regenerate a default configuration",
		)
	if path != "" {
		r.WithDetails(fmt.Sprintf("File: %s", path))
	}
	return r
}
