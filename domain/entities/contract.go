package entities

import "fmt"

// RuntimeKind tags which guest runtime executes a contract.
type RuntimeKind string

const (
	// KindSandboxed is the sandboxed-bytecode (WebAssembly) runtime.
	KindSandboxed RuntimeKind = "wasm"

	// KindABI is the ABI-compatible bytecode runtime.
	KindABI RuntimeKind = "abi"

	// KindScript is the scripting runtime.
	KindScript RuntimeKind = "script"
)

// Valid reports whether k is one of the known runtime kinds.
func (k RuntimeKind) Valid() bool {
	switch k {
	case KindSandboxed, KindABI, KindScript:
		return true
	}
	return false
}

// Dialect selects how calldata and results are encoded for a contract.
type Dialect string

const (
	// DialectNative is the self-describing keyed JSON form: {"method":[args...]}.
	DialectNative Dialect = "native"

	// DialectSelector is a 4-byte method selector followed by 32-byte words.
	DialectSelector Dialect = "selector"
)

// DefaultDialect returns the dialect a runtime kind uses when a record does
// not specify one.
func DefaultDialect(k RuntimeKind) Dialect {
	if k == KindABI {
		return DialectSelector
	}
	return DialectNative
}

// ContractRecord describes a deployed contract. It is immutable once
// deployed; only the storage namespace it owns changes.
type ContractRecord struct {
	// Address is both the contract identity and its storage namespace.
	Address Address `json:"-"`

	// Kind selects the guest runtime.
	Kind RuntimeKind `json:"kind"`

	// Dialect selects the calldata adapter.
	Dialect Dialect `json:"dialect"`

	// CodeHash references the stored code blob.
	CodeHash []byte `json:"code_hash"`

	// ABI is an optional JSON ABI for selector-dialect contracts.
	ABI string `json:"abi,omitempty"`

	// Role is an optional role path (e.g. "system/bank") used by call policies.
	Role string `json:"role,omitempty"`
}

// Validate checks the record for internal consistency.
func (r *ContractRecord) Validate() error {
	if r.Address.IsZero() {
		return fmt.Errorf("contract record has no address")
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("unknown runtime kind %q", r.Kind)
	}
	switch r.Dialect {
	case DialectNative, DialectSelector:
	default:
		return fmt.Errorf("unknown calldata dialect %q", r.Dialect)
	}
	if len(r.CodeHash) == 0 {
		return fmt.Errorf("contract record has no code reference")
	}
	return nil
}

// Code is a stored code blob together with its content hash.
type Code struct {
	Hash  []byte
	Bytes []byte
}
