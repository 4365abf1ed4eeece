package hostfuncs

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/reglet-dev/ledgerhost/domain/errors"
)

func TestErrorResponse_ToJSON(t *testing.T) {
	data := NewInternalError("boom").ToJSON()
	require.NotNil(t, data)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	errObj, ok := decoded["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "INTERNAL_ERROR", errObj["code"])
	assert.Equal(t, "boom", errObj["message"])
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("failed to unmarshal request")
	assert.Equal(t, "VALIDATION_ERROR", err.Error.Code)
	assert.Equal(t, "failed to unmarshal request", err.Error.Message)
	assert.Equal(t, "validation", err.Error.Type)
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("unknown_func")
	assert.Equal(t, "NOT_FOUND", err.Error.Code)
	assert.Equal(t, "unknown host function: unknown_func", err.Error.Message)
	assert.True(t, err.Error.IsNotFound)
}

func TestNewErrorResponse(t *testing.T) {
	err := NewErrorResponse(&domainerrors.OutOfGasError{Operation: "log", Required: 10, Available: 1})
	assert.Equal(t, string(domainerrors.CodeOutOfGas), err.Error.Code)
	assert.Equal(t, "gas", err.Error.Type)
}

func TestNewPanicError(t *testing.T) {
	tests := []struct {
		name       string
		panicValue any
		wantMsg    string
	}{
		{
			name:       "string panic",
			panicValue: "oops",
			wantMsg:    "panic: oops",
		},
		{
			name:       "error panic",
			panicValue: errors.New("unexpected end of JSON input"),
			wantMsg:    "panic: unexpected end of JSON input",
		},
		{
			name:       "other panic",
			panicValue: 42,
			wantMsg:    "panic: panic recovered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPanicError(tt.panicValue)
			assert.Equal(t, "INTERNAL_ERROR", err.Error.Code)
			assert.Equal(t, tt.wantMsg, err.Error.Message)
			assert.Equal(t, "panic", err.Error.Type)
		})
	}
}
