package hostfuncs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/reglet-dev/ledgerhost/domain/errors"
)

func nopHandler(ctx context.Context, payload []byte) ([]byte, error) { return nil, nil }

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name    string
		opts    []RegistryOption
		names   []string
		wantErr string
	}{
		{name: "empty", names: []string{}},
		{
			name:  "names sorted",
			opts:  []RegistryOption{WithByteHandler("storage_store", nopHandler), WithByteHandler("call", nopHandler), WithByteHandler("log", nopHandler)},
			names: []string{"call", "log", "storage_store"},
		},
		{
			name:    "duplicate",
			opts:    []RegistryOption{WithByteHandler("log", nopHandler), WithByteHandler("log", nopHandler)},
			wantErr: "duplicate handler name",
		},
		{
			name:    "empty name",
			opts:    []RegistryOption{WithByteHandler("", nopHandler)},
			wantErr: "cannot be empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := NewRegistry(tt.opts...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.names, reg.Names())
			if len(tt.names) > 0 {
				assert.Equal(t, tt.names, reg.Names())
				assert.True(t, reg.Has(tt.names[0]))
			}
			assert.False(t, reg.Has("get_balance"))
		})
	}
}

func TestHandlerRegistry_Invoke(t *testing.T) {
	var seen string
	reg, err := NewRegistry(WithByteHandler("storage_load", func(ctx context.Context, payload []byte) ([]byte, error) {
		if hc, ok := ctx.(HostContext); ok {
			seen = hc.FunctionName()
		}
		return append([]byte("loaded:"), payload...), nil
	}))
	require.NoError(t, err)

	t.Run("registered", func(t *testing.T) {
		resp, err := reg.Invoke(context.Background(), "storage_load", []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, "loaded:k", string(resp))
		assert.Equal(t, "storage_load", seen)
	})

	t.Run("unregistered", func(t *testing.T) {
		resp, err := reg.Invoke(context.Background(), "self_destruct", nil)
		require.NoError(t, err)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(resp, &errResp))
		require.NotNil(t, errResp.Error)
		assert.Equal(t, "NOT_FOUND", errResp.Error.Code)
		assert.Contains(t, errResp.Error.Message, "self_destruct")
	})
}

func TestWithMiddleware_Order(t *testing.T) {
	var trail []string
	tag := func(name string) Middleware {
		return func(next ByteHandler) ByteHandler {
			return func(ctx context.Context, payload []byte) ([]byte, error) {
				trail = append(trail, name+">")
				resp, err := next(ctx, payload)
				trail = append(trail, "<"+name)
				return resp, err
			}
		}
	}

	reg, err := NewRegistry(
		WithMiddleware(tag("recover"), tag("gas")),
		WithByteHandler("log", func(ctx context.Context, payload []byte) ([]byte, error) {
			trail = append(trail, "log")
			return nil, nil
		}),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "log", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"recover>", "gas>", "log", "<gas", "<recover"}, trail)
}

func TestHandlerRegistry_Invoke_FaultedFrame(t *testing.T) {
	calls := 0
	reg, err := NewRegistry(WithByteHandler("test", func(ctx context.Context, payload []byte) ([]byte, error) {
		calls++
		return nil, nil
	}))
	require.NoError(t, err)

	abi := newFakeABI()
	abi.fault = &domainerrors.StaticViolationError{Operation: "storage_store"}

	_, err = reg.Invoke(WithHostABI(context.Background(), abi), "test", nil)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeStaticViolation, domainerrors.CodeOf(err))
	assert.Zero(t, calls)
}

func TestNewRegistry_ReportsEveryProblem(t *testing.T) {
	_, err := NewRegistry(
		WithByteHandler("a", nopHandler),
		WithByteHandler("a", nopHandler),
		WithByteHandler("", nopHandler),
		WithByteHandler("b", nil),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate handler name: "a"`)
	assert.Contains(t, err.Error(), "cannot be empty")
	assert.Contains(t, err.Error(), `handler "b" is nil`)
}
