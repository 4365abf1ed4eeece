package wazero

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/domain/ports"
	"github.com/reglet-dev/ledgerhost/hostfuncs"
)

// Guest exports.
const (
	ExportMemory      = "memory"
	ExportAllocate    = "allocate"
	ExportInstantiate = "instantiate"
	ExportMain        = "main"
)

// DefaultCacheSize bounds the number of compiled modules kept in memory.
const DefaultCacheSize = 64

// Runtime executes WebAssembly contracts. One wazero runtime hosts the
// "ledgerhost" module; every invocation gets a fresh module instance so no
// guest memory survives between frames.
type Runtime struct {
	runtime wazero.Runtime
	cache   *lru.Cache[string, wazero.CompiledModule]
	cfg     runtimeConfig
	seq     atomic.Uint64
}

var _ ports.Runtime = (*Runtime)(nil)

type runtimeConfig struct {
	logger           *slog.Logger
	registry         *hostfuncs.HandlerRegistry
	adapterOpts      []AdapterOption
	hostCallCost     uint64
	cacheSize        int
	memoryLimitPages uint32
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		logger:    slog.Default(),
		cacheSize: DefaultCacheSize,
	}
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*runtimeConfig)

// WithLogger sets the logger used by host function logging middleware.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(c *runtimeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHostCallCost charges cost gas for every host function call.
func WithHostCallCost(cost uint64) RuntimeOption {
	return func(c *runtimeConfig) {
		c.hostCallCost = cost
	}
}

// WithCacheSize sets how many compiled modules are cached.
func WithCacheSize(n int) RuntimeOption {
	return func(c *runtimeConfig) {
		if n > 0 {
			c.cacheSize = n
		}
	}
}

// WithMemoryLimitPages caps guest linear memory in 64KiB pages.
func WithMemoryLimitPages(pages uint32) RuntimeOption {
	return func(c *runtimeConfig) {
		c.memoryLimitPages = pages
	}
}

// WithRegistry replaces the default ABI handler registry.
func WithRegistry(registry *hostfuncs.HandlerRegistry) RuntimeOption {
	return func(c *runtimeConfig) {
		c.registry = registry
	}
}

// WithAdapterOptions passes options through to RegisterWithRuntime.
func WithAdapterOptions(opts ...AdapterOption) RuntimeOption {
	return func(c *runtimeConfig) {
		c.adapterOpts = append(c.adapterOpts, opts...)
	}
}

// NewRuntime creates a wazero runtime with the ledger host module registered.
func NewRuntime(ctx context.Context, opts ...RuntimeOption) (*Runtime, error) {
	cfg := defaultRuntimeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.registry == nil {
		reg, err := hostfuncs.NewRegistry(
			hostfuncs.WithMiddleware(
				hostfuncs.PanicRecoveryMiddleware(),
				hostfuncs.LoggingMiddleware(cfg.logger),
				hostfuncs.GasMiddleware(cfg.hostCallCost),
			),
			hostfuncs.WithBundle(hostfuncs.ABIBundle()),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create default registry: %w", err)
		}
		cfg.registry = reg
	}

	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.memoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.memoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rc)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate wasi: %w", err)
	}

	adapterOpts := append([]AdapterOption{WithCustomHandler(GasLeftHandler())}, cfg.adapterOpts...)
	if err := RegisterWithRuntime(ctx, rt, cfg.registry, adapterOpts...); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	cache, err := lru.NewWithEvict(cfg.cacheSize, func(_ string, m wazero.CompiledModule) {
		_ = m.Close(context.Background())
	})
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	return &Runtime{runtime: rt, cache: cache, cfg: cfg}, nil
}

// Close releases the wazero runtime and every cached module.
func (r *Runtime) Close(ctx context.Context) error {
	r.cache.Purge()
	return r.runtime.Close(ctx)
}

// Validate compiles code and checks the exports every contract needs.
func (r *Runtime) Validate(ctx context.Context, code []byte) error {
	compiled, err := r.runtime.CompileModule(ctx, code)
	if err != nil {
		return &errors.GuestFaultError{Reason: "invalid wasm module", Err: err}
	}
	defer compiled.Close(ctx)
	return checkExports(compiled)
}

func checkExports(compiled wazero.CompiledModule) error {
	if _, ok := compiled.ExportedMemories()[ExportMemory]; !ok {
		return &errors.GuestFaultError{Reason: "module does not export memory"}
	}
	fns := compiled.ExportedFunctions()
	for _, name := range []string{ExportAllocate, ExportMain} {
		if _, ok := fns[name]; !ok {
			return &errors.GuestFaultError{Reason: fmt.Sprintf("module does not export %s", name)}
		}
	}
	return nil
}

// Instantiate runs the instantiate export. Modules without one succeed with
// an empty result.
func (r *Runtime) Instantiate(ctx context.Context, host ports.HostABI, code entities.Code, inv entities.Invocation) ([]byte, error) {
	return r.invoke(ctx, host, code, ExportInstantiate, inv.CallData, true)
}

// Main runs the main export.
func (r *Runtime) Main(ctx context.Context, host ports.HostABI, code entities.Code, inv entities.Invocation) ([]byte, error) {
	return r.invoke(ctx, host, code, ExportMain, inv.CallData, false)
}

func (r *Runtime) compile(ctx context.Context, code entities.Code) (wazero.CompiledModule, error) {
	key := hex.EncodeToString(code.Hash)
	if m, ok := r.cache.Get(key); ok {
		return m, nil
	}
	m, err := r.runtime.CompileModule(ctx, code.Bytes)
	if err != nil {
		return nil, &errors.GuestFaultError{Reason: "invalid wasm module", Err: err}
	}
	if err := checkExports(m); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}
	if len(code.Hash) > 0 {
		r.cache.Add(key, m)
	}
	return m, nil
}

func (r *Runtime) invoke(ctx context.Context, host ports.HostABI, code entities.Code, entry string, input []byte, optional bool) ([]byte, error) {
	compiled, err := r.compile(ctx, code)
	if err != nil {
		return nil, err
	}
	if _, ok := compiled.ExportedFunctions()[entry]; !ok {
		if optional {
			return nil, nil
		}
		return nil, &errors.GuestFaultError{Reason: fmt.Sprintf("module does not export %s", entry)}
	}

	ctx = hostfuncs.WithHostABI(ctx, host)
	ctx, holder := withTrap(ctx)

	name := fmt.Sprintf("contract-%d", r.seq.Add(1))
	mod, err := r.runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(name).WithStartFunctions("_initialize"))
	if err != nil {
		return nil, classify(ctx, holder, host, err)
	}
	// ctx may already be done; the module must be released regardless.
	defer mod.Close(context.Background())

	var ptr uint32
	if len(input) > 0 {
		ptr, err = writeInput(ctx, mod, input)
		if err != nil {
			return nil, classify(ctx, holder, host, err)
		}
	}

	results, err := mod.ExportedFunction(entry).Call(ctx, uint64(ptr), uint64(len(input)))
	if err != nil {
		return nil, classify(ctx, holder, host, err)
	}
	if fault := host.Fault(); fault != nil {
		return nil, fault
	}
	if len(results) == 0 {
		return nil, nil
	}

	outPtr, outLen := unpackPtrLen(results[0])
	if outLen == 0 {
		return nil, nil
	}
	data, ok := mod.Memory().Read(outPtr, outLen)
	if !ok {
		return nil, &errors.MemoryError{Offset: outPtr, Length: outLen, Size: mod.Memory().Size()}
	}
	out := make([]byte, outLen)
	copy(out, data)
	return out, nil
}

func writeInput(ctx context.Context, mod api.Module, input []byte) (uint32, error) {
	res, err := mod.ExportedFunction(ExportAllocate).Call(ctx, uint64(len(input)))
	if err != nil {
		return 0, fmt.Errorf("failed to allocate in guest: %w", err)
	}
	if len(res) == 0 {
		return 0, fmt.Errorf("allocate returned no results")
	}
	ptr := uint32(res[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit
	if !mod.Memory().Write(ptr, input) {
		return 0, &errors.MemoryError{Offset: ptr, Length: uint32(len(input)), Size: mod.Memory().Size()} //nolint:gosec // G115: bounded by request size
	}
	return ptr, nil
}

// classify recovers the typed cause of a failed guest call. Host function
// traps win over cancellation, which wins over the frame's recorded fault.
func classify(ctx context.Context, holder *trapHolder, host ports.HostABI, err error) error {
	if cause := holder.cause(); cause != nil {
		return cause
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &errors.TimeoutError{Err: ctxErr, Operation: "wasm execution"}
	}
	if fault := host.Fault(); fault != nil {
		return fault
	}
	return &errors.GuestFaultError{Reason: "trap", Err: err}
}
