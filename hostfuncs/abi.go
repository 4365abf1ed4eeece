package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/domain/ports"
	"github.com/reglet-dev/ledgerhost/wireformat"
)

// Host function names exported to sandboxed guests.
const (
	FnStorageStore          = "storage_store"
	FnStorageLoad           = "storage_load"
	FnStorageDelete         = "storage_delete"
	FnStorageDeleteRange    = "storage_delete_range"
	FnStorageLoadRange      = "storage_load_range"
	FnStorageLoadRangePairs = "storage_load_range_pairs"
	FnCall                  = "call"
	FnCallStatic            = "call_static"
	FnCreateAccount         = "create_account"
	FnCreate2Account        = "create2_account"
	FnLog                   = "log"
	FnAddressDecode         = "address_decode"
	FnAddressEncode         = "address_encode"
	FnGetEnv                = "get_env"
	FnGetCallData           = "get_calldata"
	FnRevert                = "revert"
	FnSha256                = "sha256"
	FnKeccak256             = "keccak256"
	FnGetAddressByRole      = "get_address_by_role"
	FnGetRoleByAddress      = "get_role_by_address"
)

func frame(ctx context.Context) (ports.HostABI, *entities.ErrorDetail) {
	abi, ok := HostABIFrom(ctx)
	if !ok {
		return nil, NewInternalError("no executing frame").Error
	}
	return abi, nil
}

// PerformStorageStore writes to the executing contract's namespace.
func PerformStorageStore(ctx context.Context, req wireformat.StorageStoreRequest) wireformat.StorageStoreResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.StorageStoreResponse{Error: detail}
	}
	if err := abi.StorageStore(req.Key, req.Value); err != nil {
		return wireformat.StorageStoreResponse{Error: errors.ToErrorDetail(err)}
	}
	return wireformat.StorageStoreResponse{}
}

// PerformStorageLoad reads from the executing contract's namespace.
func PerformStorageLoad(ctx context.Context, req wireformat.StorageLoadRequest) wireformat.StorageLoadResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.StorageLoadResponse{Error: detail}
	}
	v, err := abi.StorageLoad(req.Key)
	if err != nil {
		return wireformat.StorageLoadResponse{Error: errors.ToErrorDetail(err)}
	}
	return wireformat.StorageLoadResponse{Value: v}
}

// PerformStorageDelete clears a key in the executing contract's namespace.
func PerformStorageDelete(ctx context.Context, req wireformat.StorageDeleteRequest) wireformat.StorageDeleteResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.StorageDeleteResponse{Error: detail}
	}
	if err := abi.StorageDelete(req.Key); err != nil {
		return wireformat.StorageDeleteResponse{Error: errors.ToErrorDetail(err)}
	}
	return wireformat.StorageDeleteResponse{}
}

// PerformStorageDeleteRange clears a key range.
func PerformStorageDeleteRange(ctx context.Context, req wireformat.StorageDeleteRangeRequest) wireformat.StorageDeleteResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.StorageDeleteResponse{Error: detail}
	}
	if err := abi.StorageDeleteRange(req.StartKey, req.EndKey); err != nil {
		return wireformat.StorageDeleteResponse{Error: errors.ToErrorDetail(err)}
	}
	return wireformat.StorageDeleteResponse{}
}

// PerformStorageLoadRange returns the values of a key range.
func PerformStorageLoadRange(ctx context.Context, req wireformat.StorageRangeRequest) wireformat.StorageRangeResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.StorageRangeResponse{Error: detail}
	}
	kvs, err := abi.StorageRange(req.StartKey, req.EndKey, req.Reverse)
	if err != nil {
		return wireformat.StorageRangeResponse{Error: errors.ToErrorDetail(err)}
	}
	values := make([][]byte, len(kvs))
	for i, kv := range kvs {
		values[i] = kv.Value
	}
	return wireformat.StorageRangeResponse{Values: values}
}

// PerformStorageLoadRangePairs returns the keys and values of a key range.
func PerformStorageLoadRangePairs(ctx context.Context, req wireformat.StorageRangeRequest) wireformat.StorageRangePairsResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.StorageRangePairsResponse{Error: detail}
	}
	kvs, err := abi.StorageRange(req.StartKey, req.EndKey, req.Reverse)
	if err != nil {
		return wireformat.StorageRangePairsResponse{Error: errors.ToErrorDetail(err)}
	}
	pairs := make([]wireformat.StoragePair, len(kvs))
	for i, kv := range kvs {
		pairs[i] = wireformat.StoragePair{Key: kv.Key, Value: kv.Value}
	}
	return wireformat.StorageRangePairsResponse{Values: pairs}
}

// ParseValue parses the reserved call value. Empty means zero.
func ParseValue(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid call value %q: %w", s, err)
	}
	return v, nil
}

func performCall(ctx context.Context, req wireformat.CallRequest, static bool) wireformat.CallResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.CallResponse{Error: detail}
	}
	callee, err := abi.AddressDecode(req.Callee)
	if err != nil {
		return wireformat.CallResponse{Error: errors.ToErrorDetail(err)}
	}

	var res entities.CallResult
	if static {
		if req.Value != "" && req.Value != "0" {
			return wireformat.CallResponse{Error: errors.ToErrorDetail(&errors.GuestFaultError{Reason: "value transfer unsupported"})}
		}
		res, err = abi.CallStatic(req.GasLimit, callee, req.CallData)
	} else {
		value, perr := ParseValue(req.Value)
		if perr != nil {
			return wireformat.CallResponse{Error: errors.ToErrorDetail(&errors.GuestFaultError{Err: perr})}
		}
		res, err = abi.Call(req.GasLimit, callee, value, req.CallData)
	}
	if err != nil {
		return wireformat.CallResponse{Error: errors.ToErrorDetail(err), Result: wireformat.FromCallResult(res)}
	}
	return wireformat.CallResponse{Result: wireformat.FromCallResult(res)}
}

// PerformCall invokes another contract.
func PerformCall(ctx context.Context, req wireformat.CallRequest) wireformat.CallResponse {
	return performCall(ctx, req, false)
}

// PerformCallStatic invokes another contract with mutation forbidden.
func PerformCallStatic(ctx context.Context, req wireformat.CallRequest) wireformat.CallResponse {
	return performCall(ctx, req, true)
}

func performCreate(ctx context.Context, req wireformat.CreateRequest, salted bool) wireformat.CreateResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.CreateResponse{Error: detail}
	}
	if salted && len(req.Salt) == 0 {
		return wireformat.CreateResponse{Error: errors.ToErrorDetail(&errors.GuestFaultError{Reason: "create2_account requires a salt"})}
	}
	create := entities.CreateRequest{
		Kind:     entities.RuntimeKind(req.Kind),
		Dialect:  entities.Dialect(req.Dialect),
		Code:     req.Code,
		ABI:      req.ABI,
		InitArgs: req.InitArgs,
	}
	if salted {
		create.Salt = req.Salt
	}
	addr, res, err := abi.Create(req.GasLimit, create)
	resp := wireformat.CreateResponse{Result: wireformat.FromCallResult(res)}
	if err != nil {
		resp.Error = errors.ToErrorDetail(err)
		return resp
	}
	if res.Success {
		text, err := abi.AddressEncode(addr)
		if err != nil {
			resp.Error = errors.ToErrorDetail(err)
			return resp
		}
		resp.Address = text
	}
	return resp
}

// PerformCreateAccount deploys a contract at an address derived from the
// caller and its creation count.
func PerformCreateAccount(ctx context.Context, req wireformat.CreateRequest) wireformat.CreateResponse {
	return performCreate(ctx, req, false)
}

// PerformCreate2Account deploys a contract at an address derived from the
// caller, the salt and the code.
func PerformCreate2Account(ctx context.Context, req wireformat.CreateRequest) wireformat.CreateResponse {
	return performCreate(ctx, req, true)
}

// PerformLog emits an event.
func PerformLog(ctx context.Context, req wireformat.LogRequest) wireformat.LogResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.LogResponse{Error: detail}
	}
	if err := abi.Log(req.Data, req.Topics); err != nil {
		return wireformat.LogResponse{Error: errors.ToErrorDetail(err)}
	}
	return wireformat.LogResponse{}
}

// PerformAddressDecode converts text to a binary address.
func PerformAddressDecode(ctx context.Context, req wireformat.AddressDecodeRequest) wireformat.AddressDecodeResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.AddressDecodeResponse{Error: detail}
	}
	addr, err := abi.AddressDecode(req.Text)
	if err != nil {
		return wireformat.AddressDecodeResponse{Error: errors.ToErrorDetail(err)}
	}
	return wireformat.AddressDecodeResponse{Address: addr.Bytes()}
}

// PerformAddressEncode converts a binary address to text.
func PerformAddressEncode(ctx context.Context, req wireformat.AddressEncodeRequest) wireformat.AddressEncodeResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.AddressEncodeResponse{Error: detail}
	}
	addr, err := entities.NewAddress(req.Address)
	if err != nil {
		return wireformat.AddressEncodeResponse{Error: errors.ToErrorDetail(&errors.MalformedAddressError{Err: err})}
	}
	text, err := abi.AddressEncode(addr)
	if err != nil {
		return wireformat.AddressEncodeResponse{Error: errors.ToErrorDetail(err)}
	}
	return wireformat.AddressEncodeResponse{Text: text}
}

func performHash(ctx context.Context, req wireformat.HashRequest, sum func(ports.HostABI, []byte) ([]byte, error)) wireformat.HashResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.HashResponse{Error: detail}
	}
	h, err := sum(abi, req.Data)
	if err != nil {
		return wireformat.HashResponse{Error: errors.ToErrorDetail(err)}
	}
	return wireformat.HashResponse{Hash: h}
}

// PerformSha256 hashes data with SHA-256.
func PerformSha256(ctx context.Context, req wireformat.HashRequest) wireformat.HashResponse {
	return performHash(ctx, req, ports.HostABI.Sha256)
}

// PerformKeccak256 hashes data with Keccak-256.
func PerformKeccak256(ctx context.Context, req wireformat.HashRequest) wireformat.HashResponse {
	return performHash(ctx, req, ports.HostABI.Keccak256)
}

// PerformGetAddressByRole returns the contract holding a role.
func PerformGetAddressByRole(ctx context.Context, req wireformat.AddressByRoleRequest) wireformat.AddressByRoleResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.AddressByRoleResponse{Error: detail}
	}
	addr, err := abi.AddressByRole(req.Role)
	if err != nil {
		return wireformat.AddressByRoleResponse{Error: errors.ToErrorDetail(err)}
	}
	if addr.IsZero() {
		return wireformat.AddressByRoleResponse{}
	}
	text, err := abi.AddressEncode(addr)
	if err != nil {
		return wireformat.AddressByRoleResponse{Error: errors.ToErrorDetail(err)}
	}
	return wireformat.AddressByRoleResponse{Address: text}
}

// PerformGetRoleByAddress returns the role of a contract.
func PerformGetRoleByAddress(ctx context.Context, req wireformat.RoleByAddressRequest) wireformat.RoleByAddressResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.RoleByAddressResponse{Error: detail}
	}
	addr, err := abi.AddressDecode(req.Address)
	if err != nil {
		return wireformat.RoleByAddressResponse{Error: errors.ToErrorDetail(err)}
	}
	role, err := abi.RoleOf(addr)
	if err != nil {
		return wireformat.RoleByAddressResponse{Error: errors.ToErrorDetail(err)}
	}
	return wireformat.RoleByAddressResponse{Role: role}
}

// PerformGetEnv returns the execution environment.
func PerformGetEnv(ctx context.Context, _ wireformat.GetEnvRequest) wireformat.GetEnvResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.GetEnvResponse{Error: detail}
	}
	return wireformat.GetEnvResponse{Env: abi.GetEnvironment()}
}

// PerformGetCallData returns the frame's raw calldata.
func PerformGetCallData(ctx context.Context, _ wireformat.GetCallDataRequest) wireformat.GetCallDataResponse {
	abi, detail := frame(ctx)
	if detail != nil {
		return wireformat.GetCallDataResponse{Error: detail}
	}
	return wireformat.GetCallDataResponse{CallData: abi.GetCallData()}
}

// RevertHandler aborts the calling guest. It always returns a GuestFaultError
// carrying the revert data, which runtime adapters turn into a trap.
func RevertHandler(_ context.Context, payload []byte) ([]byte, error) {
	var req wireformat.RevertRequest
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, &errors.GuestFaultError{Reason: "revert", Err: &errors.WireFormatError{Err: err, Operation: "unmarshal", Type: "RevertRequest"}}
		}
	}
	reason := req.Reason
	if reason == "" {
		reason = "reverted"
	}
	return nil, errors.Revert(reason, req.Data)
}
