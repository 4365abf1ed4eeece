package hostfuncs

import (
	"context"
	"log/slog"
	"time"

	"github.com/reglet-dev/ledgerhost/domain/errors"
)

// Middleware is a function that wraps a ByteHandler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
type Middleware func(next ByteHandler) ByteHandler

// RegistryOption is a functional option for configuring a HandlerRegistry.
type RegistryOption func(*registryBuilder)

// PanicRecoveryMiddleware returns a middleware that catches panics and converts
// them to structured ErrorResponse JSON instead of crashing the host.
func PanicRecoveryMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp = NewPanicError(r).ToJSON()
					err = nil // Return JSON error, not Go error
				}
			}()
			return next(ctx, payload)
		}
	}
}

// GasMiddleware charges cost against the executing frame before every host
// function. A failed charge returns the OutOfGas error to the guest; the
// frame's fault is already set by the charge.
func GasMiddleware(cost uint64) Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			if cost == 0 {
				return next(ctx, payload)
			}
			abi, ok := HostABIFrom(ctx)
			if !ok {
				return NewInternalError("no executing frame").ToJSON(), nil
			}
			if err := abi.UseGas(cost); err != nil {
				return NewErrorResponse(err).ToJSON(), nil
			}
			return next(ctx, payload)
		}
	}
}

// LoggingMiddleware returns a middleware that logs host function invocations at debug level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			funcName := "unknown"
			if hc, ok := ctx.(HostContext); ok {
				funcName = hc.FunctionName()
			}
			start := time.Now()
			resp, err := next(ctx, payload)
			if err != nil {
				logger.DebugContext(ctx, "host function failed",
					"function", funcName, "code", errors.CodeOf(err), "error", err)
			} else {
				logger.DebugContext(ctx, "host function completed",
					"function", funcName, "request_bytes", len(payload), "duration", time.Since(start))
			}
			return resp, err
		}
	}
}
