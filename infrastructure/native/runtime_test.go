package native

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/ledgerhost/calldata"
	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/domain/ports"
	"github.com/reglet-dev/ledgerhost/infrastructure/bech32"
)

type stubHost struct {
	// Operations the runtime under test never reaches.
	ports.HostABI

	storage map[string][]byte
	logs    int
	codec   *bech32.Codec
	called  []byte
	reply   entities.CallResult
}

func newStubHost() *stubHost {
	return &stubHost{storage: map[string][]byte{}, codec: bech32.New("lh")}
}

func (h *stubHost) StorageStore(key, value []byte) error {
	h.storage[string(key)] = value
	return nil
}

func (h *stubHost) StorageLoad(key []byte) ([]byte, error) { return h.storage[string(key)], nil }

func (h *stubHost) Call(_ uint64, _ entities.Address, _ *uint256.Int, data []byte) (entities.CallResult, error) {
	h.called = data
	return h.reply, nil
}

func (h *stubHost) CallStatic(uint64, entities.Address, []byte) (entities.CallResult, error) {
	return h.reply, nil
}

func (h *stubHost) Log([]byte, [][]byte) error {
	h.logs++
	return nil
}

func (h *stubHost) AddressDecode(text string) (entities.Address, error) { return h.codec.Decode(text) }

func (h *stubHost) AddressEncode(addr entities.Address) (string, error) { return h.codec.Encode(addr) }

func (h *stubHost) GetEnvironment() entities.Environment { return entities.Environment{} }

func (h *stubHost) GetCallData() []byte { return nil }

func (h *stubHost) UseGas(uint64) error { return nil }

func (h *stubHost) GasLeft() uint64 { return 0 }

func (h *stubHost) Fault() error { return nil }

func TestRuntime_Register(t *testing.T) {
	rt := NewRuntime(WithContract("counter", Counter()))

	require.NoError(t, rt.Register("storage", SimpleStorage()))
	assert.Error(t, rt.Register("storage", SimpleStorage()))
	assert.Error(t, rt.Register("", Counter()))
	assert.Equal(t, []string{"counter", "storage"}, rt.Names())

	assert.NoError(t, rt.Validate(t.Context(), []byte("counter")))
	assert.Equal(t, errors.CodeGuestFault, errors.CodeOf(rt.Validate(t.Context(), []byte("missing"))))
}

func TestRuntime_CancelledContext(t *testing.T) {
	rt := NewRuntime(WithContract("counter", Counter()))
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := rt.Main(ctx, newStubHost(), entities.Code{Bytes: []byte("counter")}, entities.Invocation{Method: "get"})
	assert.Equal(t, errors.CodeTimeout, errors.CodeOf(err))
}

func TestSimpleStorage_UntypedSelectors(t *testing.T) {
	rt := NewRuntime(WithContract("storage", SimpleStorage()))
	host := newStubHost()
	code := entities.Code{Bytes: []byte("storage")}
	sel, err := calldata.NewSelector("")
	require.NoError(t, err)

	raw, err := sel.EncodeCall(SigStore, uint256.NewInt(42))
	require.NoError(t, err)
	inv, err := sel.DecodeCall(raw)
	require.NoError(t, err)
	_, err = rt.Main(t.Context(), host, code, inv)
	require.NoError(t, err)

	raw, err = sel.EncodeCall(SigRetrieve)
	require.NoError(t, err)
	inv, err = sel.DecodeCall(raw)
	require.NoError(t, err)
	out, err := rt.Main(t.Context(), host, code, inv)
	require.NoError(t, err)

	want := uint256.NewInt(42).Bytes32()
	assert.Equal(t, want[:], out)
}

func TestSimpleStorage_TypedABI(t *testing.T) {
	rt := NewRuntime(WithContract("storage", SimpleStorage()))
	host := newStubHost()
	code := entities.Code{Bytes: []byte("storage")}
	sel, err := calldata.NewSelector(SimpleStorageABI)
	require.NoError(t, err)

	out, err := rt.Main(t.Context(), host, code, entities.Invocation{Method: "retrieve"})
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), out, "unset slot loads as zero word")

	raw, err := sel.EncodeCall("store", uint256.NewInt(7).ToBig())
	require.NoError(t, err)
	inv, err := sel.DecodeCall(raw)
	require.NoError(t, err)
	_, err = rt.Main(t.Context(), host, code, inv)
	require.NoError(t, err)

	out, err = rt.Main(t.Context(), host, code, entities.Invocation{Method: "retrieve"})
	require.NoError(t, err)
	decoded, err := sel.DecodeResult("retrieve", out)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, "7", decoded[0].(interface{ String() string }).String())
}

func TestForward_LastHopReturns(t *testing.T) {
	rt := NewRuntime(WithContract("z", Forward("z")))

	out, err := rt.Main(t.Context(), newStubHost(), entities.Code{Bytes: []byte("z")},
		entities.Invocation{Method: "forward", Args: []any{"start -> x -> y"}})
	require.NoError(t, err)
	assert.Equal(t, "start -> x -> y -> z", string(out))
}

func TestForward_PassesOn(t *testing.T) {
	rt := NewRuntime(WithContract("x", Forward("x")))
	host := newStubHost()
	host.reply = entities.Succeeded([]byte("done"), 10)
	next := host.codec.MustEncode(entities.MustAddress(make([]byte, 20)))
	last := host.codec.MustEncode(entities.MustAddress(make([]byte, 32)))

	out, err := rt.Main(t.Context(), host, entities.Code{Bytes: []byte("x")},
		entities.Invocation{Method: "forward", Args: []any{"start", next, last}})
	require.NoError(t, err)
	assert.Equal(t, "done", string(out))
	assert.JSONEq(t, `{"forward":["start -> x","`+last+`"]}`, string(host.called))
}

func TestForward_FailedHopReverts(t *testing.T) {
	rt := NewRuntime(WithContract("x", Forward("x")))
	host := newStubHost()
	host.reply = entities.Failed(errors.ToErrorDetail(&errors.OutOfGasError{Operation: "call"}), nil, 10)
	next := host.codec.MustEncode(entities.MustAddress(make([]byte, 20)))

	_, err := rt.Main(t.Context(), host, entities.Code{Bytes: []byte("x")},
		entities.Invocation{Method: "forward", Args: []any{"start", next}})
	var fault *errors.GuestFaultError
	require.ErrorAs(t, err, &fault)
	assert.Contains(t, fault.Reason, "out of gas")
}

func TestCounter(t *testing.T) {
	rt := NewRuntime(WithContract("counter", Counter()))
	host := newStubHost()
	code := entities.Code{Bytes: []byte("counter")}

	out, err := rt.Main(t.Context(), host, code, entities.Invocation{Method: "get"})
	require.NoError(t, err)
	assert.Equal(t, "0", string(out))

	for range 2 {
		_, err = rt.Main(t.Context(), host, code, entities.Invocation{Method: "increment"})
		require.NoError(t, err)
	}
	out, err = rt.Main(t.Context(), host, code, entities.Invocation{Method: "get"})
	require.NoError(t, err)
	assert.Equal(t, "2", string(out))
	assert.Equal(t, 2, host.logs)
}
