package hostfuncs

// HostFuncBundle is a pre-configured set of related host functions.
// Bundles allow registering multiple handlers at once for common use cases.
type HostFuncBundle interface {
	// Handlers returns a map of handler names to ByteHandler functions.
	Handlers() map[string]ByteHandler
}

// staticBundle implements HostFuncBundle with a fixed set of handlers.
type staticBundle struct {
	handlers map[string]ByteHandler
}

func (b *staticBundle) Handlers() map[string]ByteHandler {
	return b.handlers
}

// StorageBundle returns the storage functions: single keys and key ranges.
func StorageBundle() HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			FnStorageStore:          NewJSONHandler(PerformStorageStore),
			FnStorageLoad:           NewJSONHandler(PerformStorageLoad),
			FnStorageDelete:         NewJSONHandler(PerformStorageDelete),
			FnStorageDeleteRange:    NewJSONHandler(PerformStorageDeleteRange),
			FnStorageLoadRange:      NewJSONHandler(PerformStorageLoadRange),
			FnStorageLoadRangePairs: NewJSONHandler(PerformStorageLoadRangePairs),
		},
	}
}

// CallBundle returns call, call_static, the create functions and revert.
func CallBundle() HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			FnCall:           NewJSONHandler(PerformCall),
			FnCallStatic:     NewJSONHandler(PerformCallStatic),
			FnCreateAccount:  NewJSONHandler(PerformCreateAccount),
			FnCreate2Account: NewJSONHandler(PerformCreate2Account),
			FnRevert:         RevertHandler,
		},
	}
}

// UtilBundle returns hashing and role lookups.
func UtilBundle() HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			FnSha256:           NewJSONHandler(PerformSha256),
			FnKeccak256:        NewJSONHandler(PerformKeccak256),
			FnGetAddressByRole: NewJSONHandler(PerformGetAddressByRole),
			FnGetRoleByAddress: NewJSONHandler(PerformGetRoleByAddress),
		},
	}
}

// EnvBundle returns log, address codec, environment and calldata accessors.
func EnvBundle() HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			FnLog:           NewJSONHandler(PerformLog),
			FnAddressDecode: NewJSONHandler(PerformAddressDecode),
			FnAddressEncode: NewJSONHandler(PerformAddressEncode),
			FnGetEnv:        NewJSONHandler(PerformGetEnv),
			FnGetCallData:   NewJSONHandler(PerformGetCallData),
		},
	}
}

// compositeBundle combines multiple bundles into one.
type compositeBundle struct {
	bundles []HostFuncBundle
}

func (b *compositeBundle) Handlers() map[string]ByteHandler {
	result := make(map[string]ByteHandler)
	for _, bundle := range b.bundles {
		for name, handler := range bundle.Handlers() {
			result[name] = handler
		}
	}
	return result
}

// ABIBundle returns every host function of the guest ABI.
func ABIBundle() HostFuncBundle {
	return &compositeBundle{
		bundles: []HostFuncBundle{
			StorageBundle(),
			CallBundle(),
			EnvBundle(),
			UtilBundle(),
		},
	}
}

// WithBundle registers all handlers from a bundle.
func WithBundle(bundle HostFuncBundle) RegistryOption {
	return func(b *registryBuilder) {
		for name, handler := range bundle.Handlers() {
			b.addHandler(name, handler)
		}
	}
}

// WithHandler registers a typed host function with automatic JSON handling.
// The handler will be wrapped with NewJSONHandler for JSON serialization.
func WithHandler[Req any, Resp any](name string, fn HostFunc[Req, Resp]) RegistryOption {
	return func(b *registryBuilder) {
		handler := NewJSONHandler(fn)
		b.addHandler(name, handler)
	}
}
