// Package wireformat defines the JSON wire format structures exchanged between
// the ledger host and sandboxed guests through host functions. These types
// are the guest ABI and must remain stable and backward compatible.
//
// Binary fields ([]byte) travel as standard base64 strings.
package wireformat

import "github.com/reglet-dev/ledgerhost/domain/entities"

// ErrorDetail is the structured error carried in every response.
type ErrorDetail = entities.ErrorDetail

// StorageStoreRequest writes Value under Key in the caller's namespace.
type StorageStoreRequest struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// StorageStoreResponse acknowledges a storage write.
type StorageStoreResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
}

// StorageLoadRequest reads Key from the caller's namespace.
type StorageLoadRequest struct {
	Key []byte `json:"key"`
}

// StorageLoadResponse carries the loaded value. Unset keys load as empty.
type StorageLoadResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
	Value []byte       `json:"value,omitempty"`
}

// StorageDeleteRequest clears Key in the caller's namespace.
type StorageDeleteRequest struct {
	Key []byte `json:"key"`
}

// StorageDeleteResponse acknowledges a deletion.
type StorageDeleteResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
}

// StorageRangeRequest selects the keys in [StartKey, EndKey). Empty bounds
// are open.
type StorageRangeRequest struct {
	StartKey []byte `json:"start_key,omitempty"`
	EndKey   []byte `json:"end_key,omitempty"`
	Reverse  bool   `json:"reverse,omitempty"`
}

// StorageRangeResponse carries the values of a range in key order.
type StorageRangeResponse struct {
	Error  *ErrorDetail `json:"error,omitempty"`
	Values [][]byte     `json:"values"`
}

// StoragePair is one key and its value.
type StoragePair struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// StorageRangePairsResponse carries the pairs of a range in key order.
type StorageRangePairsResponse struct {
	Error  *ErrorDetail  `json:"error,omitempty"`
	Values []StoragePair `json:"values"`
}

// StorageDeleteRangeRequest clears the keys in [StartKey, EndKey).
type StorageDeleteRangeRequest struct {
	StartKey []byte `json:"start_key,omitempty"`
	EndKey   []byte `json:"end_key,omitempty"`
}

// CallRequest invokes another contract. Callee is in text form; Value is a
// decimal amount reserved for transfers and must be empty or "0".
type CallRequest struct {
	Callee   string `json:"callee"`
	Value    string `json:"value,omitempty"`
	CallData []byte `json:"calldata"`
	GasLimit uint64 `json:"gas_limit"`
}

// CallResultWire is the settled outcome of a nested call.
type CallResultWire struct {
	Error   *ErrorDetail `json:"error,omitempty"`
	Data    []byte       `json:"data,omitempty"`
	GasUsed uint64       `json:"gas_used"`
	Success bool         `json:"success"`
}

// CallResponse carries the callee's result. Error is set only when the call
// could not be made at all (malformed callee, caller fault).
type CallResponse struct {
	Error  *ErrorDetail   `json:"error,omitempty"`
	Result CallResultWire `json:"result"`
}

// CreateRequest deploys a contract from the calling one. Salt is required by
// create2_account and ignored by create_account.
type CreateRequest struct {
	Kind     string `json:"kind"`
	Dialect  string `json:"dialect,omitempty"`
	Code     []byte `json:"code"`
	ABI      string `json:"abi,omitempty"`
	InitArgs []byte `json:"init_args,omitempty"`
	Salt     []byte `json:"salt,omitempty"`
	GasLimit uint64 `json:"gas_limit"`
}

// CreateResponse carries the new address, set only when instantiate
// succeeded, and the instantiate result.
type CreateResponse struct {
	Error   *ErrorDetail   `json:"error,omitempty"`
	Address string         `json:"address,omitempty"`
	Result  CallResultWire `json:"result"`
}

// LogRequest emits an event attributed to the caller.
type LogRequest struct {
	Data   []byte   `json:"data,omitempty"`
	Topics [][]byte `json:"topics,omitempty"`
}

// LogResponse acknowledges an emission.
type LogResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
}

// AddressDecodeRequest converts text to a binary address.
type AddressDecodeRequest struct {
	Text string `json:"text"`
}

// AddressDecodeResponse carries the binary address.
type AddressDecodeResponse struct {
	Error   *ErrorDetail `json:"error,omitempty"`
	Address []byte       `json:"address,omitempty"`
}

// AddressEncodeRequest converts a binary address to text.
type AddressEncodeRequest struct {
	Address []byte `json:"address"`
}

// AddressEncodeResponse carries the text address.
type AddressEncodeResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
	Text  string       `json:"text,omitempty"`
}

// HashRequest hashes Data.
type HashRequest struct {
	Data []byte `json:"data"`
}

// HashResponse carries the digest.
type HashResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
	Hash  []byte       `json:"hash,omitempty"`
}

// AddressByRoleRequest looks up the contract holding Role.
type AddressByRoleRequest struct {
	Role string `json:"role"`
}

// AddressByRoleResponse carries the holder in text form, empty when the role
// is vacant.
type AddressByRoleResponse struct {
	Error   *ErrorDetail `json:"error,omitempty"`
	Address string       `json:"address,omitempty"`
}

// RoleByAddressRequest looks up the role of the contract at Address (text).
type RoleByAddressRequest struct {
	Address string `json:"address"`
}

// RoleByAddressResponse carries the role, empty when there is none.
type RoleByAddressResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
	Role  string       `json:"role,omitempty"`
}

// GetEnvRequest takes no parameters.
type GetEnvRequest struct{}

// GetEnvResponse carries the execution environment.
type GetEnvResponse struct {
	Error *ErrorDetail         `json:"error,omitempty"`
	Env   entities.Environment `json:"env"`
}

// GetCallDataRequest takes no parameters.
type GetCallDataRequest struct{}

// GetCallDataResponse carries the frame's raw calldata.
type GetCallDataResponse struct {
	Error    *ErrorDetail `json:"error,omitempty"`
	CallData []byte       `json:"calldata"`
}

// RevertRequest aborts the frame with optional revert data.
type RevertRequest struct {
	Reason string `json:"reason,omitempty"`
	Data   []byte `json:"data,omitempty"`
}

// RevertResponse is only observed when the revert itself was rejected.
type RevertResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
}

// FromCallResult converts a settled call into its wire form.
func FromCallResult(r entities.CallResult) CallResultWire {
	return CallResultWire{Error: r.Err, Data: r.Data, GasUsed: r.GasUsed, Success: r.Success}
}
