package native

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/reglet-dev/ledgerhost/calldata"
	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/domain/ports"
)

// Signatures understood by SimpleStorage.
const (
	SigStore    = "store(uint256)"
	SigRetrieve = "retrieve()"
)

// SimpleStorageABI describes SimpleStorage for typed selector packing.
const SimpleStorageABI = `[
	{"type":"function","name":"store","inputs":[{"name":"num","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"retrieve","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

var (
	storeSelector    = calldata.SelectorOf(SigStore)
	retrieveSelector = calldata.SelectorOf(SigRetrieve)
	slotZero         = make([]byte, calldata.WordLen)
)

// SimpleStorage keeps one 256-bit word. It speaks the selector dialect with
// or without an ABI attached to its record.
func SimpleStorage() Contract {
	return Func(func(_ context.Context, host ports.HostABI, inv entities.Invocation) ([]byte, error) {
		switch inv.Method {
		case "store", calldata.SelectorHex(storeSelector[:]):
			v, err := calldata.Args(inv.Args).Word(0)
			if err != nil {
				return nil, &errors.GuestFaultError{Reason: "store", Err: err}
			}
			word := v.Bytes32()
			return nil, host.StorageStore(slotZero, word[:])
		case "retrieve", calldata.SelectorHex(retrieveSelector[:]):
			raw, err := host.StorageLoad(slotZero)
			if err != nil {
				return nil, err
			}
			word := new(uint256.Int).SetBytes(raw).Bytes32()
			return word[:], nil
		}
		return nil, errors.Revert("unknown method "+inv.Method, nil)
	})
}

// Forward appends " -> name" to its message and passes it on:
//
//	{"forward":["start", "lh1next...", "lh1last..."]}
//
// The first address receives {"forward":["start -> name", "lh1last..."]};
// the last contract in the chain returns the message. A failed hop reverts
// with the callee's error.
func Forward(name string) Contract {
	return Func(func(_ context.Context, host ports.HostABI, inv entities.Invocation) ([]byte, error) {
		if inv.Method != "forward" {
			return nil, errors.Revert("unknown method "+inv.Method, nil)
		}
		args := calldata.Args(inv.Args)
		msg, err := args.String(0)
		if err != nil {
			return nil, &errors.GuestFaultError{Reason: "forward", Err: err}
		}
		msg = fmt.Sprintf("%s -> %s", msg, name)
		if args.Len() == 1 {
			return []byte(msg), nil
		}

		next, err := args.String(1)
		if err != nil {
			return nil, &errors.GuestFaultError{Reason: "forward", Err: err}
		}
		callee, err := host.AddressDecode(next)
		if err != nil {
			return nil, err
		}
		rest := []any{msg}
		for i := 2; i < args.Len(); i++ {
			s, err := args.String(i)
			if err != nil {
				return nil, &errors.GuestFaultError{Reason: "forward", Err: err}
			}
			rest = append(rest, s)
		}
		data, err := calldata.Native{}.EncodeCall("forward", rest...)
		if err != nil {
			return nil, err
		}
		res, err := host.Call(0, callee, nil, data)
		if err != nil {
			return nil, err
		}
		if !res.Success {
			reason := "forward failed"
			if res.Err != nil {
				reason = res.Err.Message
			}
			return nil, errors.Revert(reason, res.Data)
		}
		return res.Data, nil
	})
}

// Counter keeps a decimal counter under "count". increment stores the new
// value, emits it as an "incremented" event and returns it.
func Counter() Contract {
	return Func(func(_ context.Context, host ports.HostABI, inv entities.Invocation) ([]byte, error) {
		switch inv.Method {
		case "get":
			v, err := host.StorageLoad([]byte("count"))
			if err != nil {
				return nil, err
			}
			if len(v) == 0 {
				return []byte("0"), nil
			}
			return v, nil
		case "increment":
			v, err := host.StorageLoad([]byte("count"))
			if err != nil {
				return nil, err
			}
			n := new(uint256.Int)
			if len(v) > 0 {
				if n, err = uint256.FromDecimal(string(v)); err != nil {
					return nil, &errors.GuestFaultError{Reason: "corrupt counter", Err: err}
				}
			}
			n.AddUint64(n, 1)
			out := []byte(n.Dec())
			if err := host.StorageStore([]byte("count"), out); err != nil {
				return nil, err
			}
			if err := host.Log(out, [][]byte{[]byte("incremented")}); err != nil {
				return nil, err
			}
			return out, nil
		}
		return nil, errors.Revert("unknown method "+inv.Method, nil)
	})
}
