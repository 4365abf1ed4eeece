package wazero

import (
	"context"
	"sync"
)

// contextKey is a private type for context keys.
type contextKey struct {
	name string
}

var (
	contractKey = &contextKey{name: "contract"}
	trapKey     = &contextKey{name: "trap"}
)

// WithContract adds the executing contract's address text to the context.
// It only labels log records.
func WithContract(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, contractKey, addr)
}

// ContractFrom returns the executing contract set by WithContract, or "".
func ContractFrom(ctx context.Context) string {
	addr, _ := ctx.Value(contractKey).(string)
	return addr
}

// trapHolder records why a host function aborted the guest. wazero wraps
// panics raised inside host functions; the holder keeps the original error.
type trapHolder struct {
	mu  sync.Mutex
	err error
}

func (h *trapHolder) set(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err == nil {
		h.err = err
	}
}

func (h *trapHolder) cause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func withTrap(ctx context.Context) (context.Context, *trapHolder) {
	h := &trapHolder{}
	return context.WithValue(ctx, trapKey, h), h
}

// trap aborts the calling guest with err.
func trap(ctx context.Context, err error) {
	if h, ok := ctx.Value(trapKey).(*trapHolder); ok {
		h.set(err)
	}
	panic(err)
}
