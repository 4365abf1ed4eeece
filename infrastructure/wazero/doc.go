// Package wazero runs sandboxed WebAssembly contracts and exposes the ledger
// host functions to them.
//
// A contract module must export "memory" and "allocate(size i32) i32", and
// "main(ptr, len i32) i64". "instantiate" has the same shape and is optional.
// Entry points receive the calldata location and return the result as a
// packed i64 (ptr<<32 | len).
//
// Host functions are imported from the "ledgerhost" module. Each takes one
// packed i64 locating a JSON request and returns a packed i64 locating the
// JSON response, written into memory obtained from the guest's allocate:
//
//	(import "ledgerhost" "storage_load" (func (param i64) (result i64)))
//
// Requests are dispatched through a hostfuncs.HandlerRegistry to the frame
// bound to the call's context. A frame fault, such as running out of gas or
// writing in a static frame, traps the guest so the rest of the module never
// runs.
//
//	rt, err := wazero.NewRuntime(ctx,
//	    wazero.WithHostCallCost(10),
//	    wazero.WithAdapterOptions(wazero.WithModuleName("ledgerhost")),
//	)
//	if err != nil {
//	    return err
//	}
//	defer rt.Close(ctx)
//	out, err := rt.Main(ctx, frame, code, inv)
package wazero
