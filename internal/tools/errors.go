package tools

import (
	"errors"
	"fmt"

	"candybowl/internal/apperr"
)

type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "tool.not_found"
	ErrCodeInvalidInput ErrorCode = "tool.input_invalid"
	ErrCodeNotAllowed   ErrorCode = "tool.not_allowed"
	ErrCodeExecution    ErrorCode = "internal.error"
)

type ToolError struct {
	Code    ErrorCode
	Tool    string
	Message string
	Cause   error
}

func (e *ToolError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Tool, e.Message)
}

func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func wrapError(code ErrorCode, tool string, err error) error {
	if err == nil {
		return nil
	}
	return &ToolError{Code: code, Tool: tool, Message: apperr.Message(err), Cause: err}
}

func invalidInput(tool, format string, args ...any) error {
	return &ToolError{Code: ErrCodeInvalidInput, Tool: tool, Message: fmt.Sprintf(format, args...)}
}

// Flatten is the one place a failure becomes model-readable text.
func Flatten(err error) string {
	var te *ToolError
	if errors.As(err, &te) {
		return "Error: " + te.Message
	}
	return "Error: " + apperr.Message(err)
}
