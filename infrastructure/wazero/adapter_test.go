package wazero

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reglet-dev/ledgerhost/hostfuncs"
)

func TestDefaultAdapterConfig(t *testing.T) {
	cfg := defaultAdapterConfig()

	assert.Equal(t, DefaultModuleName, cfg.ModuleName)
	assert.Equal(t, uint32(hostfuncs.DefaultMaxRequestSize), cfg.MaxRequestSize)
}

func TestWithModuleName(t *testing.T) {
	cfg := defaultAdapterConfig()
	WithModuleName("custom_module")(&cfg)

	assert.Equal(t, "custom_module", cfg.ModuleName)
}

func TestWithMaxRequestSize(t *testing.T) {
	cfg := defaultAdapterConfig()
	WithMaxRequestSize(2048)(&cfg)

	assert.Equal(t, uint32(2048), cfg.MaxRequestSize)
}

func TestPackUnpackPtrLen(t *testing.T) {
	tests := []struct {
		ptr    uint32
		length uint32
	}{
		{0, 0},
		{1, 1},
		{0xFFFFFFFF, 0xFFFFFFFF},
		{0x12345678, 0x9ABCDEF0},
		{100, 50},
	}

	for _, tt := range tests {
		packed := packPtrLen(tt.ptr, tt.length)
		gotPtr, gotLen := unpackPtrLen(packed)

		assert.Equal(t, tt.ptr, gotPtr, "ptr of %x", packed)
		assert.Equal(t, tt.length, gotLen, "len of %x", packed)
	}
}

func TestWithCustomHandler(t *testing.T) {
	cfg := defaultAdapterConfig()
	WithCustomHandler(CustomHandler{Name: "test_handler"})(&cfg)

	if assert.Len(t, cfg.CustomHandlers, 1) {
		assert.Equal(t, "test_handler", cfg.CustomHandlers[0].Name)
	}
}

func TestContract(t *testing.T) {
	ctx := WithContract(t.Context(), "lh1abc")
	assert.Equal(t, "lh1abc", ContractFrom(ctx))
	assert.Empty(t, ContractFrom(t.Context()))
}

func TestTrapHolderKeepsFirstCause(t *testing.T) {
	ctx, holder := withTrap(t.Context())
	first := assert.AnError

	assert.PanicsWithValue(t, first, func() { trap(ctx, first) })
	assert.Panics(t, func() { trap(ctx, hostfuncs.NewInternalError("later").Error) })
	assert.Same(t, first, holder.cause())
}
