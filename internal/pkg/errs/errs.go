package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"marketchat/internal/pkg/logx"
)

// CustomError is the error type shared by the HTTP API and the relay.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-facing description. Error frames carry it verbatim.
	Message string

	// Status is the HTTP status used when the error is returned by the API.
	Status int
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Is reports whether target carries the same code, so errors.Is works against NewError values.
func (e *CustomError) Is(target error) bool {
	var other *CustomError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewError builds a *CustomError from a registered code.
// For ErrUnknown and ErrMessageProcessing an error passed in details is logged and
// not exposed. For other codes, details format the message template when it has verbs.
// Unregistered codes fall back to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(details) == 0 {
		return &customErr
	}

	switch {
	case code == ErrUnknown || code == ErrMessageProcessing:
		if cause, ok := details[0].(error); ok {
			logx.Error(cause, "Internal error behind user-facing error", "code", code)
		}
	case strings.Contains(customErr.Message, "%"):
		customErr.Message = fmt.Sprintf(customErr.Message, details...)
	default:
		logx.Warn("Details provided for error, but message template has no formatting placeholders. Details ignored.",
			"code", code)
	}

	return &customErr
}
