package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/ledgerhost/domain/entities"
)

func TestMalformedAddressError(t *testing.T) {
	baseErr := fmt.Errorf("invalid checksum")
	err := &MalformedAddressError{Text: "lh1xyz", Err: baseErr}

	assert.Equal(t, `malformed address "lh1xyz": invalid checksum`, err.Error())
	assert.True(t, errors.Is(err, baseErr))
	assert.Equal(t, CodeMalformedAddress, CodeOf(err))

	var addrErr *MalformedAddressError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &addrErr))
	assert.Equal(t, "lh1xyz", addrErr.Text)
}

func TestOutOfGasError(t *testing.T) {
	err := &OutOfGasError{Operation: "storage_store", Required: 500, Available: 20}

	assert.Equal(t, "out of gas: storage_store requires 500, 20 available", err.Error())
	assert.Equal(t, CodeOutOfGas, CodeOf(err))
	assert.True(t, IsSticky(err))

	detail := err.ToErrorDetail()
	assert.Equal(t, "gas", detail.Type)
	assert.Equal(t, "OUT_OF_GAS", detail.Code)
	assert.Equal(t, uint64(500), detail.Details["required"])
}

func TestGuestFaultError(t *testing.T) {
	tests := []struct {
		name string
		err  *GuestFaultError
		want string
	}{
		{"reason and cause", &GuestFaultError{Reason: "boom", Err: fmt.Errorf("bad")}, "guest fault: boom: bad"},
		{"cause only", &GuestFaultError{Err: fmt.Errorf("bad")}, "guest fault: bad"},
		{"reason only", &GuestFaultError{Reason: "boom"}, "guest fault: boom"},
		{"empty", &GuestFaultError{}, "guest fault"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.False(t, IsSticky(tt.err))
		})
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, ""},
		{"unknown contract", &UnknownContractError{Address: "lh1"}, CodeUnknownContract},
		{"decode", &DecodeError{Dialect: "native", Reason: "empty"}, CodeDecodeError},
		{"static", &StaticViolationError{Operation: "log"}, CodeStaticViolation},
		{"depth", &CallDepthExceededError{Depth: 1025, Limit: 1024}, CodeCallDepthExceeded},
		{"denied", &CallDeniedError{CalleeRole: "system/bank"}, CodeCallDenied},
		{"exists", &ContractExistsError{Address: "lh1"}, CodeContractExists},
		{"timeout", &TimeoutError{Operation: "call"}, CodeTimeout},
		{"context canceled", fmt.Errorf("run: %w", context.Canceled), CodeTimeout},
		{"deadline", context.DeadlineExceeded, CodeTimeout},
		{"detail", &entities.ErrorDetail{Code: string(CodeOutOfGas)}, CodeOutOfGas},
		{"plain", fmt.Errorf("something odd"), CodeGuestFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestToErrorDetail(t *testing.T) {
	assert.Nil(t, ToErrorDetail(nil))

	t.Run("passes detail through", func(t *testing.T) {
		d := entities.NewErrorDetail("gas", "spent").WithCode(string(CodeOutOfGas))
		assert.Same(t, d, ToErrorDetail(fmt.Errorf("wrap: %w", d)))
	})

	t.Run("context cancellation is a timeout", func(t *testing.T) {
		d := ToErrorDetail(context.Canceled)
		assert.Equal(t, string(CodeTimeout), d.Code)
		assert.True(t, d.IsTimeout)
	})

	t.Run("unknown contract is not found", func(t *testing.T) {
		d := ToErrorDetail(&UnknownContractError{Address: "lh1abc"})
		assert.True(t, d.IsNotFound)
		assert.Equal(t, "no contract at lh1abc", d.Message)
	})

	t.Run("plain error is guest fault", func(t *testing.T) {
		d := ToErrorDetail(fmt.Errorf("trap"))
		assert.Equal(t, "guest", d.Type)
		assert.Equal(t, string(CodeGuestFault), d.Code)
	})
}

func TestFromDetail(t *testing.T) {
	assert.Nil(t, FromDetail(nil))

	oog := FromDetail(&entities.ErrorDetail{
		Code:    string(CodeOutOfGas),
		Details: map[string]any{"required": float64(10), "available": float64(3)},
	})
	var gasErr *OutOfGasError
	require.True(t, errors.As(oog, &gasErr))
	assert.Equal(t, uint64(10), gasErr.Required)
	assert.Equal(t, uint64(3), gasErr.Available)

	assert.True(t, IsSticky(FromDetail(&entities.ErrorDetail{Code: string(CodeStaticViolation)})))
	assert.Equal(t, CodeDecodeError, CodeOf(FromDetail(&entities.ErrorDetail{Code: string(CodeDecodeError)})))
}

func TestCallDeniedError_NoCallerRole(t *testing.T) {
	err := &CallDeniedError{CalleeRole: "system/bank"}
	assert.Equal(t, "role <none> may not call role system/bank", err.Error())
}
