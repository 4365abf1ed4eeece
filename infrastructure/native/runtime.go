// Package native runs contracts implemented in Go.
//
// A native contract's code is its registered name. The runtime is the
// default for the abi kind; a real bytecode interpreter can replace it
// without changes to the dispatcher.
package native

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/domain/ports"
)

// Contract is a Go-implemented contract.
type Contract interface {
	Instantiate(ctx context.Context, host ports.HostABI, inv entities.Invocation) ([]byte, error)
	Main(ctx context.Context, host ports.HostABI, inv entities.Invocation) ([]byte, error)
}

// Func adapts a function to a Contract whose constructor does nothing.
type Func func(ctx context.Context, host ports.HostABI, inv entities.Invocation) ([]byte, error)

// Instantiate implements Contract.
func (Func) Instantiate(context.Context, ports.HostABI, entities.Invocation) ([]byte, error) {
	return nil, nil
}

// Main implements Contract.
func (f Func) Main(ctx context.Context, host ports.HostABI, inv entities.Invocation) ([]byte, error) {
	return f(ctx, host, inv)
}

// Runtime dispatches to registered contracts by code name.
type Runtime struct {
	mu        sync.RWMutex
	contracts map[string]Contract
}

var _ ports.Runtime = (*Runtime)(nil)

// Option configures a Runtime.
type Option func(*Runtime)

// WithContract registers c under name.
func WithContract(name string, c Contract) Option {
	return func(r *Runtime) {
		r.contracts[name] = c
	}
}

// NewRuntime creates a runtime with the given contracts.
func NewRuntime(opts ...Option) *Runtime {
	r := &Runtime{contracts: make(map[string]Contract)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds c under name. Names are unique.
func (r *Runtime) Register(name string, c Contract) error {
	if name == "" {
		return fmt.Errorf("native contract name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contracts[name]; ok {
		return fmt.Errorf("native contract %q already registered", name)
	}
	r.contracts[name] = c
	return nil
}

// Names returns the registered contract names in sorted order.
func (r *Runtime) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.contracts))
	for n := range r.contracts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Runtime) lookup(code []byte) (Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contracts[string(code)]
	if !ok {
		return nil, &errors.GuestFaultError{Reason: fmt.Sprintf("no native contract named %q", code)}
	}
	return c, nil
}

// Validate checks that code names a registered contract.
func (r *Runtime) Validate(_ context.Context, code []byte) error {
	_, err := r.lookup(code)
	return err
}

// Instantiate implements ports.Runtime.
func (r *Runtime) Instantiate(ctx context.Context, host ports.HostABI, code entities.Code, inv entities.Invocation) ([]byte, error) {
	c, err := r.lookup(code.Bytes)
	if err != nil {
		return nil, err
	}
	return c.Instantiate(ctx, host, inv)
}

// Main implements ports.Runtime.
func (r *Runtime) Main(ctx context.Context, host ports.HostABI, code entities.Code, inv entities.Invocation) ([]byte, error) {
	c, err := r.lookup(code.Bytes)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &errors.TimeoutError{Err: err, Operation: "native execution"}
	}
	return c.Main(ctx, host, inv)
}
