package host

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/reglet-dev/ledgerhost/config"
	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/domain/policy"
	"github.com/reglet-dev/ledgerhost/domain/ports"
	"github.com/reglet-dev/ledgerhost/eventlog"
	"github.com/reglet-dev/ledgerhost/host/registry"
	"github.com/reglet-dev/ledgerhost/infrastructure/bech32"
	"github.com/reglet-dev/ledgerhost/infrastructure/goja"
	"github.com/reglet-dev/ledgerhost/infrastructure/leveldb"
	"github.com/reglet-dev/ledgerhost/infrastructure/native"
	"github.com/reglet-dev/ledgerhost/infrastructure/wazero"
	"github.com/reglet-dev/ledgerhost/state"
)

const tracerName = "github.com/reglet-dev/ledgerhost/host"

// Executor runs transactions against the ledger. Deploy, Execute, Query and
// Genesis are serialized so commits are totally ordered.
type Executor struct {
	mu        sync.Mutex
	cfg       executorConfig
	ledger    ports.KVStore
	state     *state.Manager
	contracts *registry.Contracts
	codec     ports.AddressCodec
	policy    ports.CallPolicy
	runtimes  map[entities.RuntimeKind]ports.Runtime
	closers   []func(context.Context) error
	metrics   *metrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.params.Validate(); err != nil {
		return nil, err
	}

	e := &Executor{cfg: cfg, logger: cfg.logger, codec: cfg.codec, policy: cfg.policy}
	ok := false
	defer func() {
		if !ok {
			_ = e.Close(ctx)
		}
	}()

	e.ledger = cfg.ledger
	if e.ledger == nil {
		mem, err := leveldb.OpenMemory()
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger: %w", err)
		}
		e.ledger = mem
	}
	e.state = state.NewManager(e.ledger)

	contracts, err := registry.NewContracts(e.state)
	if err != nil {
		return nil, fmt.Errorf("failed to create contract registry: %w", err)
	}
	e.contracts = contracts

	if e.codec == nil {
		e.codec = bech32.New(cfg.params.AddressPrefix)
	}
	if e.policy == nil {
		rules := cfg.params.CallRules
		if len(rules) == 0 {
			rules = policy.SystemRules()
		}
		e.policy = policy.NewCallPolicy(policy.WithRules(rules...))
	}

	if e.runtimes, err = e.defaultRuntimes(ctx); err != nil {
		return nil, err
	}

	if e.metrics, err = newMetrics(cfg.registerer); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	tp := cfg.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	e.tracer = tp.Tracer(tracerName)

	ok = true
	return e, nil
}

func (e *Executor) defaultRuntimes(ctx context.Context) (map[entities.RuntimeKind]ports.Runtime, error) {
	p := e.cfg.params
	runtimes := make(map[entities.RuntimeKind]ports.Runtime, 3)
	for kind, rt := range e.cfg.runtimes {
		runtimes[kind] = rt
	}

	if _, ok := runtimes[entities.KindSandboxed]; !ok {
		rt, err := wazero.NewRuntime(ctx,
			wazero.WithLogger(e.logger),
			wazero.WithHostCallCost(p.Gas.HostCallCost),
			wazero.WithAdapterOptions(
				wazero.WithModuleName(p.ModuleName),
				wazero.WithMaxRequestSize(p.MaxRequestSize),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create wasm runtime: %w", err)
		}
		e.closers = append(e.closers, rt.Close)
		runtimes[entities.KindSandboxed] = rt
	}
	if _, ok := runtimes[entities.KindScript]; !ok {
		rt, err := goja.NewRuntime(goja.WithInvokeCost(p.Gas.ScriptInvokeCost), goja.WithLogger(e.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create script runtime: %w", err)
		}
		runtimes[entities.KindScript] = rt
	}
	if _, ok := runtimes[entities.KindABI]; !ok {
		nativeOpts := make([]native.Option, 0, len(e.cfg.natives))
		for name, c := range e.cfg.natives {
			nativeOpts = append(nativeOpts, native.WithContract(name, c))
		}
		runtimes[entities.KindABI] = native.NewRuntime(nativeOpts...)
	}
	return runtimes, nil
}

// Close releases the runtimes, the registry and the ledger.
func (e *Executor) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c(ctx))
	}
	e.closers = nil
	if e.contracts != nil {
		errs = append(errs, e.contracts.Close())
		e.contracts = nil
	}
	if e.ledger != nil {
		errs = append(errs, e.ledger.Close())
		e.ledger = nil
	}
	return stdErrors.Join(errs...)
}

// Params returns the executor's parameters.
func (e *Executor) Params() config.Params {
	return e.cfg.params
}

// Codec returns the text address codec.
func (e *Executor) Codec() ports.AddressCodec {
	return e.codec
}

// Load reads committed storage.
func (e *Executor) Load(owner entities.Address, key []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Load(owner, key)
}

// Contract returns the committed record at addr.
func (e *Executor) Contract(addr entities.Address) (*entities.ContractRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.contracts.Lookup(e.state, addr)
}

// Contracts lists every committed contract in address order.
func (e *Executor) Contracts() ([]*entities.ContractRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.contracts.List(e.ledger)
}

// Execute runs main of tx.To with tx.CallData and commits on success.
func (e *Executor) Execute(ctx context.Context, tx entities.Transaction) entities.Receipt {
	return e.transact(ctx, entryExecute, tx.Block, tx.Sender, tx.GasLimit, func(t *txn, budget uint64) (entities.CallResult, error) {
		return t.run(nil, callRequest{caller: tx.Sender, callee: tx.To, calldata: tx.CallData}, budget)
	})
}

// Query runs main of tx.To in a static root frame. Nothing is committed.
func (e *Executor) Query(ctx context.Context, tx entities.Transaction) entities.Receipt {
	return e.transact(ctx, entryQuery, tx.Block, tx.Sender, tx.GasLimit, func(t *txn, budget uint64) (entities.CallResult, error) {
		return t.run(nil, callRequest{caller: tx.Sender, callee: tx.To, calldata: tx.CallData, static: true}, budget)
	})
}

// Deploy stores code, creates the record and runs instantiate with the init
// arguments. Record and code are committed only if instantiate succeeds.
func (e *Executor) Deploy(ctx context.Context, req entities.DeployRequest) entities.Receipt {
	return e.transact(ctx, entryDeploy, req.Block, req.Sender, req.GasLimit, func(t *txn, budget uint64) (entities.CallResult, error) {
		if err := e.stageDeploy(t.ctx, t.scope, req); err != nil {
			return entities.Failed(errors.ToErrorDetail(err), nil, 0), err
		}
		return t.run(nil, callRequest{
			caller:      req.Sender,
			callee:      req.Address,
			calldata:    req.InitArgs,
			instantiate: true,
			upfront:     e.cfg.params.Gas.DeployByteCost * uint64(len(req.Code)),
		}, budget)
	})
}

// stageDeploy validates req and writes its record and code into scope.
func (e *Executor) stageDeploy(ctx context.Context, scope *state.Scope, req entities.DeployRequest) error {
	if !req.Kind.Valid() {
		return &errors.GuestFaultError{Reason: fmt.Sprintf("unknown runtime kind %q", req.Kind)}
	}
	if len(req.Code) > e.cfg.params.MaxCodeSize {
		return &errors.GuestFaultError{Reason: fmt.Sprintf("code size %d exceeds %d", len(req.Code), e.cfg.params.MaxCodeSize)}
	}
	rt, ok := e.runtimes[req.Kind]
	if !ok {
		return &errors.GuestFaultError{Reason: fmt.Sprintf("no runtime for kind %q", req.Kind)}
	}
	if err := rt.Validate(ctx, req.Code); err != nil {
		return err
	}
	dialect := req.Dialect
	if dialect == "" {
		dialect = entities.DefaultDialect(req.Kind)
	}
	rec := &entities.ContractRecord{
		Address: req.Address,
		Kind:    req.Kind,
		Dialect: dialect,
		ABI:     req.ABI,
		Role:    req.Role,
	}
	return e.contracts.Deploy(scope, rec, req.Code)
}

type rootFunc func(t *txn, budget uint64) (entities.CallResult, error)

func (e *Executor) transact(ctx context.Context, entry string, block entities.BlockInfo, sender entities.Address, gasLimit uint64, root rootFunc) entities.Receipt {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	if gasLimit == 0 {
		gasLimit = e.cfg.params.Gas.DefaultGasLimit
	}
	t := &txn{
		exec:    e,
		ctx:     ctx,
		block:   block,
		origin:  sender,
		scope:   e.state.Begin(),
		journal: eventlog.New(entry == entryQuery),
	}

	res, err := root(t, gasLimit)
	var receipt entities.Receipt
	if err == nil {
		receipt, err = t.settle(entry == entryQuery, res)
	}
	if err != nil {
		t.scope.Discard()
		t.journal.Discard()
		if res.Success {
			res = entities.Failed(errors.ToErrorDetail(err), nil, res.GasUsed)
		}
		receipt = entities.Reject(res)
		e.logger.InfoContext(ctx, "transaction rejected",
			fieldEntry, entry,
			fieldContract, t.text(t.rootCallee),
			fieldCode, errors.CodeOf(err),
			fieldError, receipt.Diagnostic,
		)
	}

	end := time.Now()
	receipt.Trace = t.trace.render()
	receipt.Metadata = entities.NewRunMetadata(start, end).WithFrames(t.frames, t.maxDepth)

	var code string
	if receipt.Result.Err != nil {
		code = receipt.Result.Err.Code
	}
	e.metrics.observeTx(entry, receipt.IsSuccess(), code, end.Sub(start).Seconds())
	e.logger.DebugContext(ctx, "transaction finished",
		fieldEntry, entry,
		fieldGasUsed, receipt.Result.GasUsed,
		fieldFrames, t.frames,
		fieldDuration, end.Sub(start),
	)
	return receipt
}

// settle commits a succeeded root. Queries are discarded.
func (t *txn) settle(discard bool, res entities.CallResult) (entities.Receipt, error) {
	if discard {
		t.scope.Discard()
		t.journal.Discard()
		return entities.Receipt{Result: res}, nil
	}
	log, err := t.journal.Seal()
	if err != nil {
		return entities.Receipt{}, err
	}
	if err := t.scope.Commit(); err != nil {
		return entities.Receipt{}, err
	}
	return entities.Receipt{Result: res, Logs: log.Entries()}, nil
}
