package ports

import (
	"github.com/holiman/uint256"

	"github.com/reglet-dev/ledgerhost/domain/entities"
)

// HostABI is the set of operations a guest may invoke. An implementation is
// bound to exactly one executing frame; the storage namespace it operates on
// is always that frame's callee.
type HostABI interface {
	// StorageStore writes value under key in the caller's namespace.
	// Fails with StaticViolation in a static frame and OutOfGas when the
	// write cost exceeds the remaining budget.
	StorageStore(key, value []byte) error

	// StorageLoad reads key from the caller's namespace. Unset keys load as nil.
	StorageLoad(key []byte) ([]byte, error)

	// StorageDelete clears key. It is charged and restricted like StorageStore.
	StorageDelete(key []byte) error

	// StorageDeleteRange clears every key in [start, end). Empty bounds are open.
	StorageDeleteRange(start, end []byte) error

	// StorageRange returns the keys in [start, end) with their values, in key
	// order or reversed. Empty bounds are open.
	StorageRange(start, end []byte, reverse bool) ([]KV, error)

	// Call synchronously invokes callee with at most gasLimit gas (zero means
	// all remaining). value is reserved and must be nil or zero.
	// Callee failures are reported in the CallResult; a non-nil error means
	// the calling frame itself has faulted and must stop.
	Call(gasLimit uint64, callee entities.Address, value *uint256.Int, calldata []byte) (entities.CallResult, error)

	// CallStatic is Call with the child subtree forbidden from mutating state.
	CallStatic(gasLimit uint64, callee entities.Address, calldata []byte) (entities.CallResult, error)

	// Create deploys a new contract from a running one and runs its
	// instantiate entry in a child frame with at most gasLimit gas. The record
	// is kept only if instantiate succeeds. Errors follow Call.
	Create(gasLimit uint64, req entities.CreateRequest) (entities.Address, entities.CallResult, error)

	// Log appends an event attributed to the executing contract.
	Log(data []byte, topics [][]byte) error

	Sha256(data []byte) ([]byte, error)
	Keccak256(data []byte) ([]byte, error)

	// AddressByRole returns the contract holding role, or the zero address.
	AddressByRole(role string) (entities.Address, error)

	// RoleOf returns the role of the contract at addr, empty for accounts and
	// role-less contracts.
	RoleOf(addr entities.Address) (string, error)

	AddressDecode(text string) (entities.Address, error)
	AddressEncode(addr entities.Address) (string, error)

	GetEnvironment() entities.Environment
	GetCallData() []byte

	// UseGas charges n against the frame budget.
	UseGas(n uint64) error

	// GasLeft returns the frame's remaining budget.
	GasLeft() uint64

	// Fault returns the frame's sticky fault, if any.
	Fault() error
}
