package hostfuncs

import (
	"bytes"
	"maps"
	"slices"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	sha256 "github.com/minio/sha256-simd"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/domain/ports"
	"github.com/reglet-dev/ledgerhost/infrastructure/bech32"
)

// fakeABI is an in-memory HostABI for handler tests.
type fakeABI struct {
	storage  map[string][]byte
	logs     []entities.LogEntry
	calls    []entities.Address
	created  []entities.CreateRequest
	roles    map[string]entities.Address
	codec    *bech32.Codec
	calldata []byte
	fault    error
	gas      uint64
	static   bool
}

func newFakeABI() *fakeABI {
	return &fakeABI{
		storage: map[string][]byte{},
		roles:   map[string]entities.Address{},
		codec:   bech32.New("lh"),
		gas:     1000,
	}
}

func (f *fakeABI) StorageStore(key, value []byte) error {
	if f.static {
		f.fault = &errors.StaticViolationError{Operation: "storage_store"}
		return f.fault
	}
	f.storage[string(key)] = value
	return nil
}

func (f *fakeABI) StorageLoad(key []byte) ([]byte, error) {
	return f.storage[string(key)], nil
}

func (f *fakeABI) StorageDelete(key []byte) error {
	if f.static {
		f.fault = &errors.StaticViolationError{Operation: "storage_delete"}
		return f.fault
	}
	delete(f.storage, string(key))
	return nil
}

func (f *fakeABI) StorageDeleteRange(start, end []byte) error {
	kvs, _ := f.StorageRange(start, end, false)
	for _, kv := range kvs {
		if err := f.StorageDelete(kv.Key); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeABI) StorageRange(start, end []byte, reverse bool) ([]ports.KV, error) {
	var out []ports.KV
	for _, k := range slices.Sorted(maps.Keys(f.storage)) {
		if bytes.Compare([]byte(k), start) < 0 || (len(end) > 0 && bytes.Compare([]byte(k), end) >= 0) {
			continue
		}
		out = append(out, ports.KV{Key: []byte(k), Value: f.storage[k]})
	}
	if reverse {
		slices.Reverse(out)
	}
	return out, nil
}

func (f *fakeABI) Create(gasLimit uint64, req entities.CreateRequest) (entities.Address, entities.CallResult, error) {
	if f.static {
		f.fault = &errors.StaticViolationError{Operation: "create"}
		return entities.Address{}, entities.CallResult{}, f.fault
	}
	f.created = append(f.created, req)
	if !req.Kind.Valid() {
		return entities.Address{}, entities.Failed(errors.ToErrorDetail(&errors.GuestFaultError{Reason: "bad kind"}), nil, 0), nil
	}
	return entities.MustAddress(bytes.Repeat([]byte{7}, 20)), entities.Succeeded([]byte("init"), 50), nil
}

func (f *fakeABI) Sha256(data []byte) ([]byte, error) {
	sum := sha256.Sum256(data)
	return sum[:], nil
}

func (f *fakeABI) Keccak256(data []byte) ([]byte, error) {
	return crypto.Keccak256(data), nil
}

func (f *fakeABI) AddressByRole(role string) (entities.Address, error) {
	return f.roles[role], nil
}

func (f *fakeABI) RoleOf(addr entities.Address) (string, error) {
	for role, a := range f.roles {
		if a.Equal(addr) {
			return role, nil
		}
	}
	return "", nil
}

func (f *fakeABI) Call(gasLimit uint64, callee entities.Address, value *uint256.Int, calldata []byte) (entities.CallResult, error) {
	if value != nil && !value.IsZero() {
		return entities.Failed(errors.ToErrorDetail(&errors.GuestFaultError{Reason: "value transfer unsupported"}), nil, 0), nil
	}
	f.calls = append(f.calls, callee)
	return entities.Succeeded(append([]byte("ok:"), calldata...), 5), nil
}

func (f *fakeABI) CallStatic(gasLimit uint64, callee entities.Address, calldata []byte) (entities.CallResult, error) {
	f.calls = append(f.calls, callee)
	return entities.Succeeded([]byte("static"), 3), nil
}

func (f *fakeABI) Log(data []byte, topics [][]byte) error {
	if f.static {
		f.fault = &errors.StaticViolationError{Operation: "log"}
		return f.fault
	}
	f.logs = append(f.logs, entities.LogEntry{Data: data, Topics: topics})
	return nil
}

func (f *fakeABI) AddressDecode(text string) (entities.Address, error) {
	return f.codec.Decode(text)
}

func (f *fakeABI) AddressEncode(addr entities.Address) (string, error) {
	return f.codec.Encode(addr)
}

func (f *fakeABI) GetEnvironment() entities.Environment {
	return entities.Environment{Contract: "lh1contract", Depth: 2, GasLeft: f.gas, Static: f.static}
}

func (f *fakeABI) GetCallData() []byte {
	return f.calldata
}

func (f *fakeABI) UseGas(n uint64) error {
	if n > f.gas {
		f.fault = &errors.OutOfGasError{Operation: "host call", Required: n, Available: f.gas}
		f.gas = 0
		return f.fault
	}
	f.gas -= n
	return nil
}

func (f *fakeABI) GasLeft() uint64 {
	return f.gas
}

func (f *fakeABI) Fault() error {
	return f.fault
}
