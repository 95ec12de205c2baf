package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCodeThroughWrapping(t *testing.T) {
	err := NewConflict("ticket modified concurrently", nil)
	wrapped := fmt.Errorf("saving ticket: %w", err)

	assert.True(t, HasCode(wrapped, CodeConflict))
	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.False(t, HasCode(errors.New("plain"), CodeConflict))
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	de := ToDomainError(pgx.ErrNoRows)

	require.NotNil(t, de)
	assert.Equal(t, CodeNotFound, de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
}

func TestToDomainErrorPassesDomainErrorsThrough(t *testing.T) {
	original := NewAlreadyDecided("req-1")

	de := ToDomainError(fmt.Errorf("deciding: %w", original))
	require.NotNil(t, de)
	assert.Equal(t, CodeAlreadyDecided, de.Code)
	assert.Equal(t, "req-1", de.Details["request_id"])
}

func TestToDomainErrorWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("connection reset")
	de := ToDomainError(cause)

	require.NotNil(t, de)
	assert.Equal(t, CodeInternalError, de.Code)
	assert.ErrorIs(t, de, cause)
}

func TestDomainErrorMessageIncludesCause(t *testing.T) {
	err := NewExternalCallFailure("assistant", errors.New("timeout"))
	assert.Contains(t, err.Error(), "assistant call failed")
	assert.Contains(t, err.Error(), "timeout")
}

func TestConstructorsCarryStatusCodes(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("bad input", nil), CodeValidationFailed, http.StatusBadRequest},
		{NewNotFound("ticket", nil), CodeNotFound, http.StatusNotFound},
		{NewUnauthorized("no token"), CodeUnauthorized, http.StatusUnauthorized},
		{NewForbidden("not yours"), CodeForbidden, http.StatusForbidden},
		{NewConflict("raced", nil), CodeConflict, http.StatusConflict},
		{NewAlreadyDecided("req-1"), CodeAlreadyDecided, http.StatusConflict},
		{NewExternalCallFailure("redis", errors.New("down")), CodeExternalCallFailure, http.StatusBadGateway},
		{NewInternalError(errors.New("boom")), CodeInternalError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		var de *DomainError
		require.True(t, errors.As(tc.err, &de))
		assert.Equal(t, tc.code, de.Code)
		assert.Equal(t, tc.status, de.HTTPStatus)
	}
}
