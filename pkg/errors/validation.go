package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
// Asset loader URLs end up in generated script tags, so nothing else is accepted.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	for _, r := range rawURL {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '"' || r == '\'' || r == '<' || r == '>' {
			return New(ErrCodeInvalidInput, "URL contains invalid characters")
		}
	}

	return nil
}

// jsIdentifierRegex matches plain JavaScript identifiers (ASCII subset).
var jsIdentifierRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// ValidateGlobalName validates the name of a global object defined by an
// external script library. The name is spliced into generated code.
func ValidateGlobalName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "global name cannot be empty")
	}
	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "global name too long (max 128 characters)")
	}
	if !jsIdentifierRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid global name: %q", name)
	}
	return nil
}

// ValidateEnvironment validates the display name of the hosting
// environment used in nested-rendering diagnostics.
func ValidateEnvironment(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidConfig, "environment name cannot be empty")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidConfig, "environment name contains invalid control characters")
		}
	}
	return nil
}
