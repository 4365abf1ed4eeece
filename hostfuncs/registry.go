package hostfuncs

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// HandlerRegistry maps host function names to their wrapped handlers. It is
// built once by NewRegistry and read concurrently by every guest instance.
type HandlerRegistry struct {
	handlers map[string]ByteHandler
	names    []string
}

type registryBuilder struct {
	handlers   map[string]ByteHandler
	middleware []Middleware
	errs       []error
}

// NewRegistry builds a registry. Every registration problem is reported, not
// just the first.
//
//	reg, err := hostfuncs.NewRegistry(
//	    hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware(), hostfuncs.GasMiddleware(10)),
//	    hostfuncs.WithBundle(hostfuncs.ABIBundle()),
//	)
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{handlers: make(map[string]ByteHandler)}
	for _, opt := range opts {
		opt(b)
	}
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}

	reg := &HandlerRegistry{
		handlers: make(map[string]ByteHandler, len(b.handlers)),
		names:    slices.Sorted(maps.Keys(b.handlers)),
	}
	for name, h := range b.handlers {
		// The first middleware is the outermost layer.
		for i := len(b.middleware) - 1; i >= 0; i-- {
			h = b.middleware[i](h)
		}
		reg.handlers[name] = h
	}
	return reg, nil
}

// Invoke runs the named host function for the frame bound to ctx. A frame
// that has already faulted gets its fault back without the handler running;
// the runtime aborts the guest on any returned error.
func (r *HandlerRegistry) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	h, ok := r.handlers[name]
	if !ok {
		return NewNotFoundError(name).ToJSON(), nil
	}
	if abi, bound := HostABIFrom(ctx); bound {
		if fault := abi.Fault(); fault != nil {
			return nil, fault
		}
	}
	return h(HostContextFrom(ctx, name), payload)
}

// Has reports whether name is registered.
func (r *HandlerRegistry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *HandlerRegistry) Names() []string {
	return slices.Clone(r.names)
}

func (b *registryBuilder) addHandler(name string, h ByteHandler) {
	switch {
	case name == "":
		b.errs = append(b.errs, fmt.Errorf("handler name cannot be empty"))
	case h == nil:
		b.errs = append(b.errs, fmt.Errorf("handler %q is nil", name))
	default:
		if _, dup := b.handlers[name]; dup {
			b.errs = append(b.errs, fmt.Errorf("duplicate handler name: %q", name))
			return
		}
		b.handlers[name] = h
	}
}

// WithByteHandler registers a raw handler under name.
func WithByteHandler(name string, h ByteHandler) RegistryOption {
	return func(b *registryBuilder) {
		b.addHandler(name, h)
	}
}

// WithMiddleware appends middleware. The first one added wraps outermost.
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
