package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewError_UsesTemplate(t *testing.T) {
	req := require.New(t)

	err := NewError(ErrNotAuthenticated)

	req.Equal(ErrNotAuthenticated, err.Code)
	req.Equal("Not authenticated", err.Message)
	req.Equal(http.StatusOK, err.Status)
}

func TestNewError_UnknownCodeFallsBack(t *testing.T) {
	req := require.New(t)

	err := NewError(424242)

	req.Equal(ErrUnknown, err.Code)
	req.Equal(http.StatusInternalServerError, err.Status)
}

func TestNewError_InternalCauseIsNotExposed(t *testing.T) {
	req := require.New(t)

	err := NewError(ErrMessageProcessing, errors.New("pq: connection reset"))

	req.Equal("Failed to process message", err.Message)
}

func TestCustomError_Is(t *testing.T) {
	req := require.New(t)

	wrapped := fmt.Errorf("handle frame: %w", NewError(ErrChatNotFound))

	req.ErrorIs(wrapped, NewError(ErrChatNotFound))
	req.NotErrorIs(wrapped, NewError(ErrNotAuthenticated))
	req.NotErrorIs(errors.New("plain"), NewError(ErrChatNotFound))
}
