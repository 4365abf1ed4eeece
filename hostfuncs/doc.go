// Package hostfuncs exposes the ledger host ABI as named JSON byte handlers.
//
// Handlers are runtime independent: they resolve the executing frame's
// ports.HostABI from the context and translate wire requests into ABI
// operations. A WebAssembly adapter (see infrastructure/wazero) only has to
// move bytes in and out of guest memory.
package hostfuncs
