// Package goja runs JavaScript contracts on the goja interpreter.
//
// A script defines main(inv) and optionally instantiate(inv), where inv is
// {method, args, calldata}. The global host object exposes the ledger ABI:
//
//	function main(inv) {
//	    if (inv.method === "store") {
//	        host.storageStore("value", inv.args[0]);
//	        return "";
//	    }
//	    return host.storageLoad("value");
//	}
//
// Buffers may be passed as strings or Uint8Arrays; buffers returned by the
// host are strings. A return value that is neither a string nor a byte array
// is JSON encoded.
package goja

import (
	"context"
	"encoding/hex"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/dop251/goja"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/domain/ports"
)

// Script entry points.
const (
	EntryInstantiate = "instantiate"
	EntryMain        = "main"
)

// DefaultCacheSize bounds the number of compiled programs kept in memory.
const DefaultCacheSize = 128

// Runtime executes script contracts. Every invocation gets a fresh VM;
// compiled programs are shared.
type Runtime struct {
	cfg      runtimeConfig
	programs *lru.Cache[string, *goja.Program]
}

var _ ports.Runtime = (*Runtime)(nil)

type runtimeConfig struct {
	logger     *slog.Logger
	invokeCost uint64
	cacheSize  int
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		logger:    slog.Default(),
		cacheSize: DefaultCacheSize,
	}
}

// Option configures a Runtime.
type Option func(*runtimeConfig)

// WithInvokeCost charges cost gas before every script invocation.
func WithInvokeCost(cost uint64) Option {
	return func(c *runtimeConfig) {
		c.invokeCost = cost
	}
}

// WithCacheSize sets how many compiled programs are cached.
func WithCacheSize(n int) Option {
	return func(c *runtimeConfig) {
		if n > 0 {
			c.cacheSize = n
		}
	}
}

// WithLogger sets the logger that receives console.log output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runtimeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewRuntime creates a script runtime.
func NewRuntime(opts ...Option) (*Runtime, error) {
	cfg := defaultRuntimeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	programs, err := lru.New[string, *goja.Program](cfg.cacheSize)
	if err != nil {
		return nil, err
	}
	return &Runtime{cfg: cfg, programs: programs}, nil
}

// Validate compiles code in strict mode.
func (r *Runtime) Validate(_ context.Context, code []byte) error {
	if _, err := goja.Compile("contract.js", string(code), true); err != nil {
		return &errors.GuestFaultError{Reason: "invalid script", Err: err}
	}
	return nil
}

// Instantiate runs instantiate(inv). Scripts without one succeed with an
// empty result.
func (r *Runtime) Instantiate(ctx context.Context, host ports.HostABI, code entities.Code, inv entities.Invocation) ([]byte, error) {
	return r.invoke(ctx, host, code, EntryInstantiate, inv, true)
}

// Main runs main(inv).
func (r *Runtime) Main(ctx context.Context, host ports.HostABI, code entities.Code, inv entities.Invocation) ([]byte, error) {
	return r.invoke(ctx, host, code, EntryMain, inv, false)
}

func (r *Runtime) program(code entities.Code) (*goja.Program, error) {
	key := hex.EncodeToString(code.Hash)
	if p, ok := r.programs.Get(key); ok && len(code.Hash) > 0 {
		return p, nil
	}
	p, err := goja.Compile("contract.js", string(code.Bytes), true)
	if err != nil {
		return nil, &errors.GuestFaultError{Reason: "invalid script", Err: err}
	}
	if len(code.Hash) > 0 {
		r.programs.Add(key, p)
	}
	return p, nil
}

func (r *Runtime) invoke(ctx context.Context, host ports.HostABI, code entities.Code, entry string, inv entities.Invocation, optional bool) ([]byte, error) {
	if r.cfg.invokeCost > 0 {
		if err := host.UseGas(r.cfg.invokeCost); err != nil {
			return nil, err
		}
	}
	prog, err := r.program(code)
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	b := &bridge{ctx: ctx, vm: vm, host: host, logger: r.cfg.logger}
	if err := b.install(); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(&errors.TimeoutError{Err: ctx.Err(), Operation: "script execution"})
	})
	defer stop()

	if _, err := vm.RunProgram(prog); err != nil {
		return nil, b.classify(err)
	}
	fn, ok := goja.AssertFunction(vm.Get(entry))
	if !ok {
		if optional {
			return nil, nil
		}
		return nil, &errors.GuestFaultError{Reason: fmt.Sprintf("script does not define %s", entry)}
	}

	res, err := fn(goja.Undefined(), b.invocation(inv))
	if err != nil {
		return nil, b.classify(err)
	}
	if fault := host.Fault(); fault != nil {
		return nil, fault
	}
	return b.resultBytes(res)
}

// classify recovers the typed cause of a failed script. Aborts raised by
// host operations win over cancellation and the frame's recorded fault.
func (b *bridge) classify(err error) error {
	if b.cause != nil {
		return b.cause
	}
	var interrupted *goja.InterruptedError
	if stdErrors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
		return &errors.TimeoutError{Err: b.ctx.Err(), Operation: "script execution"}
	}
	if fault := b.host.Fault(); fault != nil {
		return fault
	}
	var ex *goja.Exception
	if stdErrors.As(err, &ex) {
		var coded errors.Coder
		if stdErrors.As(err, &coded) {
			if inner, ok := coded.(error); ok {
				return inner
			}
		}
		return &errors.GuestFaultError{Reason: ex.Value().String(), Err: err}
	}
	return &errors.GuestFaultError{Err: err}
}

// jsValue converts decoded calldata arguments into values scripts can use.
func jsValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case *uint256.Int:
		return t.Dec()
	case *big.Int:
		return t.String()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = jsValue(e)
		}
		return out
	}
	return v
}
