package host

import (
	"context"
	stdErrors "errors"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	sha256 "github.com/minio/sha256-simd"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/reglet-dev/ledgerhost/calldata"
	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/domain/ports"
	"github.com/reglet-dev/ledgerhost/eventlog"
	"github.com/reglet-dev/ledgerhost/state"
)

// txn is one top-level transaction: the root scope and journal plus the
// bookkeeping shared by every frame on its stack.
type txn struct {
	exec       *Executor
	ctx        context.Context
	scope      *state.Scope
	journal    *eventlog.Journal
	trace      *traceNode
	block      entities.BlockInfo
	origin     entities.Address
	rootCallee entities.Address
	frames     int
	maxDepth   int
}

// callRequest asks for a frame to be pushed.
type callRequest struct {
	caller      entities.Address
	callee      entities.Address
	calldata    []byte
	upfront     uint64
	static      bool
	instantiate bool
	// scope replaces the caller's scope as the frame's parent. Creations use
	// it to stage the new record.
	scope *state.Scope
}

// frame is one activation on the call stack. It implements ports.HostABI for
// the guest it runs; the storage namespace is always its callee.
type frame struct {
	entities.CallFrame

	tx       *txn
	parent   *frame
	ctx      context.Context
	record   *entities.ContractRecord
	gas      *gasMeter
	scope    *state.Scope
	journal  *eventlog.Journal
	node     *traceNode
	calldata []byte
	fault    error
}

var _ ports.HostABI = (*frame)(nil)

func (t *txn) text(addr entities.Address) string {
	if addr.IsZero() {
		return ""
	}
	s, err := t.exec.codec.Encode(addr)
	if err != nil {
		return addr.String()
	}
	return s
}

// run pushes a frame for req with the given budget and drives it to a final
// state. The returned error is the cause of failure, nil on success.
func (t *txn) run(parent *frame, req callRequest, budget uint64) (entities.CallResult, error) {
	f := &frame{
		CallFrame: entities.CallFrame{
			Caller: req.caller,
			Callee: req.callee,
			Budget: budget,
			Static: req.static,
			State:  entities.FramePending,
		},
		tx:       t,
		parent:   parent,
		ctx:      t.ctx,
		gas:      newGasMeter(budget),
		calldata: req.calldata,
	}
	calleeText := t.text(req.callee)
	if parent == nil {
		t.rootCallee = req.callee
		f.node = &traceNode{contract: calleeText}
		t.trace = f.node
	} else {
		f.Depth = parent.Depth + 1
		f.Static = f.Static || parent.Static
		f.ctx = parent.ctx
		f.node = parent.node.child(calleeText)
	}
	f.node.budget = budget
	f.node.static = f.Static

	t.frames++
	if f.Depth > t.maxDepth {
		t.maxDepth = f.Depth
	}

	var span trace.Span
	f.ctx, span = t.exec.tracer.Start(f.ctx, "ledgerhost.frame", trace.WithAttributes(
		attribute.String("contract", calleeText),
		attribute.Int("depth", f.Depth),
		attribute.Bool("static", f.Static),
		attribute.Bool("instantiate", req.instantiate),
	))
	defer span.End()

	out, err := f.execute(req)
	res := f.settle(out, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(attribute.Int64("gas_used", int64(res.GasUsed))) //nolint:gosec // bounded by the root budget
	return res, err
}

func (f *frame) execute(req callRequest) ([]byte, error) {
	exec := f.tx.exec
	params := exec.cfg.params

	if f.gas.left() == 0 {
		return nil, &errors.OutOfGasError{Operation: "call", Required: params.Gas.CallBaseCost}
	}
	if f.Depth > params.MaxCallDepth {
		return nil, &errors.CallDepthExceededError{Depth: f.Depth, Limit: params.MaxCallDepth}
	}

	reader := f.parentScope()
	if req.scope != nil {
		reader = req.scope
	}
	rec, err := exec.contracts.Lookup(reader, f.Callee)
	if err != nil {
		var unknown *errors.UnknownContractError
		if stdErrors.As(err, &unknown) {
			cost := params.Gas.UnknownContractCost
			if left := f.gas.left(); cost > left {
				cost = left
			}
			_ = f.gas.charge("unknown contract", cost)
		}
		return nil, err
	}
	f.record = rec
	f.node.kind = string(rec.Kind)

	if f.parent != nil && !exec.policy.AllowCall(f.parent.record.Role, rec.Role) {
		return nil, &errors.CallDeniedError{CallerRole: f.parent.record.Role, CalleeRole: rec.Role}
	}

	if err := f.gas.charge("call", params.Gas.CallBaseCost); err != nil {
		return nil, err
	}
	if req.upfront > 0 {
		if err := f.gas.charge("deploy", req.upfront); err != nil {
			return nil, err
		}
	}

	inv := entities.Invocation{CallData: f.calldata}
	if len(f.calldata) > 0 {
		adapter, err := calldata.For(rec)
		if err != nil {
			return nil, &errors.DecodeError{Err: err}
		}
		if inv, err = adapter.DecodeCall(f.calldata); err != nil {
			return nil, err
		}
	}
	f.node.method = inv.Method

	rt, ok := exec.runtimes[rec.Kind]
	if !ok {
		return nil, &errors.GuestFaultError{Reason: "no runtime for kind " + string(rec.Kind)}
	}

	f.scope = reader.Child()
	f.journal = f.parentJournal().Child(f.Static)
	code, err := exec.contracts.Code(f.scope, rec)
	if err != nil {
		return nil, err
	}

	f.State = entities.FrameRunning
	var out []byte
	if req.instantiate {
		out, err = rt.Instantiate(f.ctx, f, code, inv)
	} else {
		out, err = rt.Main(f.ctx, f, code, inv)
	}
	if f.fault != nil {
		return nil, f.fault
	}
	if err != nil {
		return nil, err
	}
	if ctxErr := f.ctx.Err(); ctxErr != nil {
		return nil, &errors.TimeoutError{Err: ctxErr, Operation: "call"}
	}
	return out, nil
}

func (f *frame) parentScope() *state.Scope {
	if f.parent != nil {
		return f.parent.scope
	}
	return f.tx.scope
}

func (f *frame) parentJournal() *eventlog.Journal {
	if f.parent != nil {
		return f.parent.journal
	}
	return f.tx.journal
}

// settle moves the frame to its final state, folding or dropping its effects.
func (f *frame) settle(out []byte, err error) entities.CallResult {
	if err == nil && f.scope != nil {
		if mergeErr := f.scope.Merge(); mergeErr != nil {
			err = mergeErr
		} else if mergeErr := f.journal.Merge(); mergeErr != nil {
			err = mergeErr
		}
	}

	var res entities.CallResult
	if err != nil {
		f.State = entities.FrameFailed
		if f.scope != nil {
			f.scope.Discard()
			f.journal.Discard()
		}
		var data []byte
		var gf *errors.GuestFaultError
		if stdErrors.As(err, &gf) {
			data = gf.Data
		}
		res = entities.Failed(errors.ToErrorDetail(err), data, f.gas.used)
	} else {
		f.State = entities.FrameSucceeded
		res = entities.Succeeded(out, f.gas.used)
	}

	n := f.node
	n.settled, n.success, n.gasUsed = true, res.Success, res.GasUsed
	var code string
	if res.Err != nil {
		code = res.Err.Code
	}
	n.code = code

	exec := f.tx.exec
	exec.metrics.observeFrame(n.kind, res.Success, code, res.GasUsed)
	exec.logger.DebugContext(f.ctx, "frame settled",
		fieldContract, n.contract,
		fieldCaller, f.tx.text(f.Caller),
		fieldKind, n.kind,
		fieldMethod, n.method,
		fieldDepth, f.Depth,
		fieldStatic, f.Static,
		fieldBudget, f.Budget,
		fieldGasUsed, res.GasUsed,
		fieldCode, code,
	)
	return res
}

// setFault records a sticky fault. The first one wins.
func (f *frame) setFault(err error) error {
	if f.fault == nil {
		f.fault = err
	}
	return f.fault
}

func (f *frame) charge(op string, n uint64) error {
	if f.fault != nil {
		return f.fault
	}
	if err := f.gas.charge(op, n); err != nil {
		return f.setFault(err)
	}
	return nil
}

func (f *frame) mutate(op string, cost uint64) error {
	if f.fault != nil {
		return f.fault
	}
	if f.Static {
		return f.setFault(&errors.StaticViolationError{Operation: op})
	}
	return f.charge(op, cost)
}

// StorageStore implements ports.HostABI.
func (f *frame) StorageStore(key, value []byte) error {
	g := f.tx.exec.cfg.params.Gas
	if err := f.mutate("storage store", g.StorageStoreCost+g.StorageByteCost*uint64(len(key)+len(value))); err != nil {
		return err
	}
	return f.scope.Store(f.Callee, key, value)
}

// StorageLoad implements ports.HostABI.
func (f *frame) StorageLoad(key []byte) ([]byte, error) {
	g := f.tx.exec.cfg.params.Gas
	if err := f.charge("storage load", g.StorageLoadCost+g.StorageByteCost*uint64(len(key))); err != nil {
		return nil, err
	}
	return f.scope.Load(f.Callee, key)
}

// StorageDelete implements ports.HostABI.
func (f *frame) StorageDelete(key []byte) error {
	g := f.tx.exec.cfg.params.Gas
	if err := f.mutate("storage delete", g.StorageStoreCost+g.StorageByteCost*uint64(len(key))); err != nil {
		return err
	}
	return f.scope.Delete(f.Callee, key)
}

// StorageDeleteRange implements ports.HostABI.
func (f *frame) StorageDeleteRange(start, end []byte) error {
	g := f.tx.exec.cfg.params.Gas
	if err := f.mutate("storage delete range", g.StorageLoadCost); err != nil {
		return err
	}
	kvs, err := f.scope.Range(f.Callee, start, end, false)
	if err != nil {
		return err
	}
	var cost uint64
	for _, kv := range kvs {
		cost += g.StorageStoreCost + g.StorageByteCost*uint64(len(kv.Key))
	}
	if err := f.charge("storage delete range", cost); err != nil {
		return err
	}
	for _, kv := range kvs {
		if err := f.scope.Delete(f.Callee, kv.Key); err != nil {
			return err
		}
	}
	return nil
}

// StorageRange implements ports.HostABI.
func (f *frame) StorageRange(start, end []byte, reverse bool) ([]ports.KV, error) {
	g := f.tx.exec.cfg.params.Gas
	if err := f.charge("storage range", g.StorageLoadCost); err != nil {
		return nil, err
	}
	kvs, err := f.scope.Range(f.Callee, start, end, reverse)
	if err != nil {
		return nil, err
	}
	var cost uint64
	for _, kv := range kvs {
		cost += g.StorageLoadCost + g.StorageByteCost*uint64(len(kv.Key)+len(kv.Value))
	}
	if err := f.charge("storage range", cost); err != nil {
		return nil, err
	}
	return kvs, nil
}

// Call implements ports.HostABI.
func (f *frame) Call(gasLimit uint64, callee entities.Address, value *uint256.Int, data []byte) (entities.CallResult, error) {
	if f.fault != nil {
		return entities.CallResult{}, f.fault
	}
	if value != nil && !value.IsZero() {
		detail := errors.ToErrorDetail(&errors.GuestFaultError{Reason: "value transfer unsupported"})
		return entities.Failed(detail, nil, 0), nil
	}
	return f.call(gasLimit, callee, data, false)
}

// CallStatic implements ports.HostABI.
func (f *frame) CallStatic(gasLimit uint64, callee entities.Address, data []byte) (entities.CallResult, error) {
	return f.call(gasLimit, callee, data, true)
}

func (f *frame) call(gasLimit uint64, callee entities.Address, data []byte, static bool) (entities.CallResult, error) {
	if f.fault != nil {
		return entities.CallResult{}, f.fault
	}
	if err := f.ctx.Err(); err != nil {
		return entities.CallResult{}, f.setFault(&errors.TimeoutError{Err: err, Operation: "call"})
	}

	budget, all := f.gas.reserve(gasLimit)
	res, err := f.tx.run(f, callRequest{
		caller:   f.Callee,
		callee:   callee,
		calldata: data,
		static:   static,
	}, budget)
	f.gas.refund(budget - res.GasUsed)
	return res, f.childFault(err, budget, all)
}

// childFault applies a failed child's effect on f. Exhaustion of everything f
// had left and timeouts propagate. A write anywhere below callStatic fails
// every static frame up to it.
func (f *frame) childFault(err error, budget uint64, all bool) error {
	switch errors.CodeOf(err) {
	case errors.CodeOutOfGas:
		if all {
			return f.setFault(&errors.OutOfGasError{Operation: "call", Required: budget, Available: f.gas.left()})
		}
	case errors.CodeTimeout:
		return f.setFault(err)
	case errors.CodeStaticViolation:
		if f.Static {
			return f.setFault(err)
		}
	}
	return nil
}

// Log implements ports.HostABI.
func (f *frame) Log(data []byte, topics [][]byte) error {
	g := f.tx.exec.cfg.params.Gas
	if err := f.mutate("log", eventlog.Cost(g.LogBaseCost, g.LogTopicCost, g.LogByteCost, data, topics)); err != nil {
		return err
	}
	if err := f.journal.Emit(f.Callee, data, topics); err != nil {
		if stdErrors.Is(err, eventlog.ErrStaticEmit) {
			return f.setFault(&errors.StaticViolationError{Operation: "log"})
		}
		return err
	}
	return nil
}

func (f *frame) hash(op string, data []byte, sum func([]byte) []byte) ([]byte, error) {
	g := f.tx.exec.cfg.params.Gas
	words := (uint64(len(data)) + 31) / 32
	if err := f.charge(op, g.HashBaseCost+g.HashWordCost*words); err != nil {
		return nil, err
	}
	return sum(data), nil
}

// Sha256 implements ports.HostABI.
func (f *frame) Sha256(data []byte) ([]byte, error) {
	return f.hash("sha256", data, func(b []byte) []byte {
		sum := sha256.Sum256(b)
		return sum[:]
	})
}

// Keccak256 implements ports.HostABI.
func (f *frame) Keccak256(data []byte) ([]byte, error) {
	return f.hash("keccak256", data, func(b []byte) []byte {
		return crypto.Keccak256(b)
	})
}

// AddressByRole implements ports.HostABI.
func (f *frame) AddressByRole(role string) (entities.Address, error) {
	if err := f.charge("role lookup", f.tx.exec.cfg.params.Gas.StorageLoadCost); err != nil {
		return entities.Address{}, err
	}
	addr, _, err := f.tx.exec.contracts.AddressByRole(f.scope, role)
	return addr, err
}

// RoleOf implements ports.HostABI.
func (f *frame) RoleOf(addr entities.Address) (string, error) {
	if err := f.charge("role lookup", f.tx.exec.cfg.params.Gas.StorageLoadCost); err != nil {
		return "", err
	}
	rec, err := f.tx.exec.contracts.Lookup(f.scope, addr)
	if err != nil {
		var unknown *errors.UnknownContractError
		if stdErrors.As(err, &unknown) {
			return "", nil
		}
		return "", err
	}
	return rec.Role, nil
}

// AddressDecode implements ports.HostABI.
func (f *frame) AddressDecode(text string) (entities.Address, error) {
	return f.tx.exec.codec.Decode(text)
}

// AddressEncode implements ports.HostABI.
func (f *frame) AddressEncode(addr entities.Address) (string, error) {
	return f.tx.exec.codec.Encode(addr)
}

// GetEnvironment implements ports.HostABI.
func (f *frame) GetEnvironment() entities.Environment {
	return entities.Environment{
		Block:    f.tx.block,
		Origin:   f.tx.text(f.tx.origin),
		Caller:   f.tx.text(f.Caller),
		Contract: f.tx.text(f.Callee),
		GasLeft:  f.gas.left(),
		Depth:    f.Depth,
		Static:   f.Static,
	}
}

// GetCallData implements ports.HostABI.
func (f *frame) GetCallData() []byte {
	return append([]byte(nil), f.calldata...)
}

// UseGas implements ports.HostABI.
func (f *frame) UseGas(n uint64) error {
	return f.charge("host", n)
}

// GasLeft implements ports.HostABI.
func (f *frame) GasLeft() uint64 {
	return f.gas.left()
}

// Fault implements ports.HostABI.
func (f *frame) Fault() error {
	return f.fault
}
