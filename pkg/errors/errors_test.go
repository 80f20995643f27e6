package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidOptions, "invalid options: %s", "width")

	if err.Code != ErrCodeInvalidOptions {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidOptions)
	}

	if err.Message != "invalid options: width" {
		t.Errorf("Message = %v, want %v", err.Message, "invalid options: width")
	}

	expected := "INVALID_OPTIONS: invalid options: width"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("name 'x' is not defined")
	err := Wrap(ErrCodeKernel, cause, "evaluate form")

	if err.Code != ErrCodeKernel {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeKernel)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeNestedRender, "test"),
			code:     ErrCodeNestedRender,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeNestedRender, "test"),
			code:     ErrCodeKernel,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeCallable, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeCallable,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeUnknownKind, "test"), ErrCodeUnknownKind},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsPolicy(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"invalid options", New(ErrCodeInvalidOptions, "x"), true},
		{"nested render", New(ErrCodeNestedRender, "x"), true},
		{"depth exceeded", New(ErrCodeDepthExceeded, "x"), true},
		{"invalid value", New(ErrCodeInvalidValue, "x"), true},
		{"kernel failure", New(ErrCodeKernel, "x"), false},
		{"policy wrapped by callable failure", Wrap(ErrCodeCallable, New(ErrCodeInvalidValue, "x"), "call"), false},
		{"plain error", errors.New("x"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPolicy(tt.err); got != tt.expected {
				t.Errorf("IsPolicy() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "collaborator error keeps cause",
			err:      Wrap(ErrCodeKernel, errors.New("syntax error"), "evaluate form"),
			expected: "evaluate form: syntax error",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}
