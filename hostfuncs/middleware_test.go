package hostfuncs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/reglet-dev/ledgerhost/domain/errors"
)

func TestPanicRecoveryMiddleware(t *testing.T) {
	panicHandler := func(ctx context.Context, payload []byte) ([]byte, error) {
		panic("test panic")
	}

	mw := PanicRecoveryMiddleware()
	wrapped := mw(panicHandler)

	// Should not panic, should return structured error
	resp, err := wrapped(context.Background(), []byte("{}"))
	require.NoError(t, err)
	require.NotNil(t, resp)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp, &errResp))
	require.NotNil(t, errResp.Error)
	assert.Equal(t, "INTERNAL_ERROR", errResp.Error.Code)
	assert.Contains(t, errResp.Error.Message, "panic")
	assert.Contains(t, errResp.Error.Message, "test panic")
}

func TestPanicRecoveryMiddleware_NoPanic(t *testing.T) {
	normalHandler := func(ctx context.Context, payload []byte) ([]byte, error) {
		return []byte(`{"result":"ok"}`), nil
	}

	mw := PanicRecoveryMiddleware()
	wrapped := mw(normalHandler)

	resp, err := wrapped(context.Background(), []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, `{"result":"ok"}`, string(resp))
}

func TestMiddlewareOrder_FIFO(t *testing.T) {
	var callOrder []string

	middleware1 := func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			callOrder = append(callOrder, "mw1-before")
			resp, err := next(ctx, payload)
			callOrder = append(callOrder, "mw1-after")
			return resp, err
		}
	}

	middleware2 := func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			callOrder = append(callOrder, "mw2-before")
			resp, err := next(ctx, payload)
			callOrder = append(callOrder, "mw2-after")
			return resp, err
		}
	}

	middleware3 := func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			callOrder = append(callOrder, "mw3-before")
			resp, err := next(ctx, payload)
			callOrder = append(callOrder, "mw3-after")
			return resp, err
		}
	}

	handler := func(ctx context.Context, payload []byte) ([]byte, error) {
		callOrder = append(callOrder, "handler")
		return nil, nil
	}

	reg, err := NewRegistry(
		WithMiddleware(middleware1, middleware2, middleware3),
		WithByteHandler("test", handler),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "test", nil)
	require.NoError(t, err)

	// FIFO: mw1 wraps mw2 wraps mw3 wraps handler (onion model)
	expected := []string{
		"mw1-before", "mw2-before", "mw3-before",
		"handler",
		"mw3-after", "mw2-after", "mw1-after",
	}
	assert.Equal(t, expected, callOrder)
}

func TestMiddleware_AppliesToAllHandlers(t *testing.T) {
	handlerCalls := make(map[string]bool)

	trackingMiddleware := func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			if hc, ok := ctx.(HostContext); ok {
				handlerCalls[hc.FunctionName()] = true
			}
			return next(ctx, payload)
		}
	}

	handler1 := func(ctx context.Context, payload []byte) ([]byte, error) {
		return nil, nil
	}
	handler2 := func(ctx context.Context, payload []byte) ([]byte, error) {
		return nil, nil
	}

	reg, err := NewRegistry(
		WithMiddleware(trackingMiddleware),
		WithByteHandler("handler1", handler1),
		WithByteHandler("handler2", handler2),
	)
	require.NoError(t, err)

	_, _ = reg.Invoke(context.Background(), "handler1", nil)
	_, _ = reg.Invoke(context.Background(), "handler2", nil)

	assert.True(t, handlerCalls["handler1"])
	assert.True(t, handlerCalls["handler2"])
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := func(ctx context.Context, payload []byte) ([]byte, error) {
		return []byte("ok"), nil
	}
	failing := func(ctx context.Context, payload []byte) ([]byte, error) {
		return nil, &domainerrors.GuestFaultError{Reason: "reverted"}
	}

	reg, err := NewRegistry(
		WithMiddleware(LoggingMiddleware(logger)),
		WithByteHandler("test", handler),
		WithByteHandler("failing", failing),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "test", nil)
	require.NoError(t, err)
	_, err = reg.Invoke(context.Background(), "failing", nil)
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "host function completed")
	assert.Contains(t, out, "function=test")
	assert.Contains(t, out, "host function failed")
	assert.Contains(t, out, "code=GUEST_FAULT")
}

func TestGasMiddleware(t *testing.T) {
	calls := 0
	handler := func(ctx context.Context, payload []byte) ([]byte, error) {
		calls++
		return []byte(`{}`), nil
	}

	reg, err := NewRegistry(
		WithMiddleware(GasMiddleware(400)),
		WithByteHandler("test", handler),
	)
	require.NoError(t, err)

	abi := newFakeABI()
	ctx := WithHostABI(context.Background(), abi)

	_, err = reg.Invoke(ctx, "test", nil)
	require.NoError(t, err)
	_, err = reg.Invoke(ctx, "test", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), abi.GasLeft())

	resp, err := reg.Invoke(ctx, "test", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "handler not reached once gas runs out")

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp, &errResp))
	assert.Equal(t, string(domainerrors.CodeOutOfGas), errResp.Error.Code)
	assert.True(t, domainerrors.IsSticky(abi.Fault()))
}

func TestGasMiddleware_NoFrame(t *testing.T) {
	wrapped := GasMiddleware(1)(func(ctx context.Context, payload []byte) ([]byte, error) {
		t.Fatal("handler must not run without a frame")
		return nil, nil
	})

	resp, err := wrapped(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, string(resp), "no executing frame")
}
