package goja

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dop251/goja"

	"github.com/reglet-dev/ledgerhost/calldata"
	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/domain/ports"
	"github.com/reglet-dev/ledgerhost/hostfuncs"
)

// bridge binds one VM to one executing frame.
type bridge struct {
	ctx    context.Context
	vm     *goja.Runtime
	host   ports.HostABI
	logger *slog.Logger
	cause  error
}

func (b *bridge) install() error {
	h := b.vm.NewObject()
	fns := map[string]func(goja.FunctionCall) goja.Value{
		"storageStore":          b.storageStore,
		"storageLoad":           b.storageLoad,
		"storageDelete":         b.storageDelete,
		"storageDeleteRange":    b.storageDeleteRange,
		"storageLoadRange":      b.storageLoadRange,
		"storageLoadRangePairs": b.storageLoadRangePairs,
		"call":                  b.call,
		"callStatic":            b.callStatic,
		"createAccount":         b.createAccount,
		"create2Account":        b.create2Account,
		"log":                   b.log,
		"addressEncode":         b.addressEncode,
		"addressDecode":         b.addressDecode,
		"getEnvironment":        b.getEnvironment,
		"getCallData":           b.getCallData,
		"gasLeft":               b.gasLeft,
		"revert":                b.revert,
		"encodeCall":            b.encodeCall,
		"sha256":                b.sha256,
		"keccak256":             b.keccak256,
		"getAddressByRole":      b.getAddressByRole,
		"getRoleByAddress":      b.getRoleByAddress,
	}
	for name, fn := range fns {
		if err := h.Set(name, fn); err != nil {
			return fmt.Errorf("failed to bind host.%s: %w", name, err)
		}
	}
	if err := b.vm.Set("host", h); err != nil {
		return err
	}

	console := b.vm.NewObject()
	if err := console.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		b.logger.DebugContext(b.ctx, "script console", "message", strings.Join(parts, " "))
		return goja.Undefined()
	}); err != nil {
		return err
	}
	return b.vm.Set("console", console)
}

// abort stops the script uncatchably. The first cause wins.
func (b *bridge) abort(err error) goja.Value {
	if b.cause == nil {
		b.cause = err
	}
	b.vm.Interrupt(err)
	return goja.Undefined()
}

// fail reports err to the script as an exception, unless the frame has
// faulted, in which case the script is aborted.
func (b *bridge) fail(err error) goja.Value {
	if fault := b.host.Fault(); fault != nil {
		return b.abort(fault)
	}
	if errors.IsSticky(err) {
		return b.abort(err)
	}
	panic(b.vm.NewGoError(err))
}

func (b *bridge) invocation(inv entities.Invocation) goja.Value {
	args := make([]any, len(inv.Args))
	for i, a := range inv.Args {
		args[i] = jsValue(a)
	}
	obj := b.vm.NewObject()
	_ = obj.Set("method", inv.Method)
	_ = obj.Set("args", args)
	_ = obj.Set("calldata", string(inv.CallData))
	return obj
}

// bytesArg converts a script buffer (string, Uint8Array or ArrayBuffer).
func (b *bridge) bytesArg(v goja.Value) []byte {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	switch t := v.Export().(type) {
	case string:
		return []byte(t)
	case []byte:
		return append([]byte(nil), t...)
	case goja.ArrayBuffer:
		return append([]byte(nil), t.Bytes()...)
	}
	panic(b.vm.NewTypeError("expected a string or Uint8Array, got %s", v.String()))
}

func (b *bridge) resultBytes(v goja.Value) ([]byte, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	switch t := v.Export().(type) {
	case string:
		return []byte(t), nil
	case []byte:
		return append([]byte(nil), t...), nil
	case goja.ArrayBuffer:
		return append([]byte(nil), t.Bytes()...), nil
	default:
		out, err := json.Marshal(t)
		if err != nil {
			return nil, &errors.GuestFaultError{Reason: "result is not encodable", Err: err}
		}
		return out, nil
	}
}

func (b *bridge) storageStore(call goja.FunctionCall) goja.Value {
	if err := b.host.StorageStore(b.bytesArg(call.Argument(0)), b.bytesArg(call.Argument(1))); err != nil {
		return b.fail(err)
	}
	return goja.Undefined()
}

func (b *bridge) storageLoad(call goja.FunctionCall) goja.Value {
	v, err := b.host.StorageLoad(b.bytesArg(call.Argument(0)))
	if err != nil {
		return b.fail(err)
	}
	return b.vm.ToValue(string(v))
}

func (b *bridge) storageDelete(call goja.FunctionCall) goja.Value {
	if err := b.host.StorageDelete(b.bytesArg(call.Argument(0))); err != nil {
		return b.fail(err)
	}
	return goja.Undefined()
}

// storageDeleteRange(start?, end?)
func (b *bridge) storageDeleteRange(call goja.FunctionCall) goja.Value {
	if err := b.host.StorageDeleteRange(b.bytesArg(call.Argument(0)), b.bytesArg(call.Argument(1))); err != nil {
		return b.fail(err)
	}
	return goja.Undefined()
}

func (b *bridge) storageRange(call goja.FunctionCall) []ports.KV {
	kvs, err := b.host.StorageRange(b.bytesArg(call.Argument(0)), b.bytesArg(call.Argument(1)), call.Argument(2).ToBoolean())
	if err != nil {
		b.fail(err)
		return nil
	}
	return kvs
}

// storageLoadRange(start?, end?, reverse?) returns the values in key order.
func (b *bridge) storageLoadRange(call goja.FunctionCall) goja.Value {
	kvs := b.storageRange(call)
	values := make([]any, len(kvs))
	for i, kv := range kvs {
		values[i] = string(kv.Value)
	}
	return b.vm.ToValue(values)
}

// storageLoadRangePairs(start?, end?, reverse?) returns [{key, value}].
func (b *bridge) storageLoadRangePairs(call goja.FunctionCall) goja.Value {
	kvs := b.storageRange(call)
	pairs := make([]any, len(kvs))
	for i, kv := range kvs {
		pairs[i] = map[string]any{"key": string(kv.Key), "value": string(kv.Value)}
	}
	return b.vm.ToValue(pairs)
}

// call(callee, calldata, gasLimit?, value?)
func (b *bridge) call(call goja.FunctionCall) goja.Value {
	callee, err := b.host.AddressDecode(call.Argument(0).String())
	if err != nil {
		return b.fail(err)
	}
	var value string
	if v := call.Argument(3); !goja.IsUndefined(v) && !goja.IsNull(v) {
		value = v.String()
	}
	amount, err := hostfuncs.ParseValue(value)
	if err != nil {
		return b.fail(&errors.GuestFaultError{Err: err})
	}
	res, err := b.host.Call(uint64(call.Argument(2).ToInteger()), callee, amount, b.bytesArg(call.Argument(1))) //nolint:gosec // negative limits clamp to all remaining
	if err != nil {
		return b.fail(err)
	}
	return b.callResult(res)
}

// callStatic(callee, calldata, gasLimit?)
func (b *bridge) callStatic(call goja.FunctionCall) goja.Value {
	callee, err := b.host.AddressDecode(call.Argument(0).String())
	if err != nil {
		return b.fail(err)
	}
	res, err := b.host.CallStatic(uint64(call.Argument(2).ToInteger()), callee, b.bytesArg(call.Argument(1))) //nolint:gosec // negative limits clamp to all remaining
	if err != nil {
		return b.fail(err)
	}
	return b.callResult(res)
}

func (b *bridge) createRequest(v goja.Value) entities.CreateRequest {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		panic(b.vm.NewTypeError("create requires a request object"))
	}
	obj := v.ToObject(b.vm)
	str := func(name string) string {
		if f := obj.Get(name); f != nil && !goja.IsUndefined(f) && !goja.IsNull(f) {
			return f.String()
		}
		return ""
	}
	return entities.CreateRequest{
		Kind:     entities.RuntimeKind(str("kind")),
		Dialect:  entities.Dialect(str("dialect")),
		Code:     b.bytesArg(obj.Get("code")),
		ABI:      str("abi"),
		InitArgs: b.bytesArg(obj.Get("initArgs")),
		Salt:     b.bytesArg(obj.Get("salt")),
	}
}

func (b *bridge) create(req entities.CreateRequest, gasLimit goja.Value) goja.Value {
	addr, res, err := b.host.Create(uint64(gasLimit.ToInteger()), req) //nolint:gosec // negative limits clamp to all remaining
	if err != nil {
		return b.fail(err)
	}
	obj := b.callResult(res).ToObject(b.vm)
	if res.Success {
		text, err := b.host.AddressEncode(addr)
		if err != nil {
			return b.fail(err)
		}
		_ = obj.Set("address", text)
	}
	return obj
}

// createAccount({kind, dialect?, code, abi?, initArgs?}, gasLimit?)
func (b *bridge) createAccount(call goja.FunctionCall) goja.Value {
	req := b.createRequest(call.Argument(0))
	req.Salt = nil
	return b.create(req, call.Argument(1))
}

// create2Account({kind, dialect?, code, abi?, initArgs?, salt}, gasLimit?)
func (b *bridge) create2Account(call goja.FunctionCall) goja.Value {
	req := b.createRequest(call.Argument(0))
	if len(req.Salt) == 0 {
		panic(b.vm.NewTypeError("create2Account requires a salt"))
	}
	return b.create(req, call.Argument(1))
}

func (b *bridge) callResult(res entities.CallResult) goja.Value {
	obj := b.vm.NewObject()
	_ = obj.Set("success", res.Success)
	_ = obj.Set("data", string(res.Data))
	_ = obj.Set("gasUsed", res.GasUsed)
	if res.Err != nil {
		_ = obj.Set("error", res.Err.Message)
		_ = obj.Set("code", res.Err.Code)
	}
	return obj
}

// log(data, topics?)
func (b *bridge) log(call goja.FunctionCall) goja.Value {
	var topics [][]byte
	if t := call.Argument(1); !goja.IsUndefined(t) && !goja.IsNull(t) {
		obj := t.ToObject(b.vm)
		for _, k := range obj.Keys() {
			topics = append(topics, b.bytesArg(obj.Get(k)))
		}
	}
	if err := b.host.Log(b.bytesArg(call.Argument(0)), topics); err != nil {
		return b.fail(err)
	}
	return goja.Undefined()
}

// addressEncode accepts a Uint8Array or a 0x-prefixed hex string.
func (b *bridge) addressEncode(call goja.FunctionCall) goja.Value {
	raw := b.bytesArg(call.Argument(0))
	if s := string(raw); strings.HasPrefix(s, "0x") {
		decoded, err := hex.DecodeString(s[2:])
		if err != nil {
			return b.fail(&errors.MalformedAddressError{Err: err, Text: s})
		}
		raw = decoded
	}
	addr, err := entities.NewAddress(raw)
	if err != nil {
		return b.fail(&errors.MalformedAddressError{Err: err})
	}
	text, err := b.host.AddressEncode(addr)
	if err != nil {
		return b.fail(err)
	}
	return b.vm.ToValue(text)
}

// addressDecode returns the 0x-prefixed hex form.
func (b *bridge) addressDecode(call goja.FunctionCall) goja.Value {
	addr, err := b.host.AddressDecode(call.Argument(0).String())
	if err != nil {
		return b.fail(err)
	}
	return b.vm.ToValue(addr.String())
}

func (b *bridge) getEnvironment(goja.FunctionCall) goja.Value {
	return b.vm.ToValue(b.host.GetEnvironment())
}

func (b *bridge) getCallData(goja.FunctionCall) goja.Value {
	return b.vm.ToValue(string(b.host.GetCallData()))
}

func (b *bridge) gasLeft(goja.FunctionCall) goja.Value {
	return b.vm.ToValue(b.host.GasLeft())
}

func (b *bridge) digest(call goja.FunctionCall, sum func([]byte) ([]byte, error)) goja.Value {
	h, err := sum(b.bytesArg(call.Argument(0)))
	if err != nil {
		return b.fail(err)
	}
	return b.vm.ToValue("0x" + hex.EncodeToString(h))
}

// sha256(data) returns the 0x-prefixed hex digest.
func (b *bridge) sha256(call goja.FunctionCall) goja.Value {
	return b.digest(call, b.host.Sha256)
}

// keccak256(data) returns the 0x-prefixed hex digest.
func (b *bridge) keccak256(call goja.FunctionCall) goja.Value {
	return b.digest(call, b.host.Keccak256)
}

// getAddressByRole(role) returns the holder's text address, or "".
func (b *bridge) getAddressByRole(call goja.FunctionCall) goja.Value {
	addr, err := b.host.AddressByRole(call.Argument(0).String())
	if err != nil {
		return b.fail(err)
	}
	if addr.IsZero() {
		return b.vm.ToValue("")
	}
	text, err := b.host.AddressEncode(addr)
	if err != nil {
		return b.fail(err)
	}
	return b.vm.ToValue(text)
}

// getRoleByAddress(address) returns the contract's role, or "".
func (b *bridge) getRoleByAddress(call goja.FunctionCall) goja.Value {
	addr, err := b.host.AddressDecode(call.Argument(0).String())
	if err != nil {
		return b.fail(err)
	}
	role, err := b.host.RoleOf(addr)
	if err != nil {
		return b.fail(err)
	}
	return b.vm.ToValue(role)
}

// revert(reason?, data?)
func (b *bridge) revert(call goja.FunctionCall) goja.Value {
	reason := "reverted"
	if r := call.Argument(0); !goja.IsUndefined(r) && !goja.IsNull(r) {
		reason = r.String()
	}
	return b.abort(errors.Revert(reason, b.bytesArg(call.Argument(1))))
}

// encodeCall(method, ...args) builds native-dialect calldata.
func (b *bridge) encodeCall(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) == 0 {
		panic(b.vm.NewTypeError("encodeCall requires a method name"))
	}
	args := make([]any, 0, len(call.Arguments)-1)
	for _, a := range call.Arguments[1:] {
		args = append(args, a.Export())
	}
	raw, err := calldata.Native{}.EncodeCall(call.Argument(0).String(), args...)
	if err != nil {
		panic(b.vm.NewGoError(err))
	}
	return b.vm.ToValue(string(raw))
}
