// Package calldata encodes and decodes invocation payloads in the two
// dialects the ledger understands.
//
// The native dialect is keyed JSON naming exactly one method with an ordered
// argument array, e.g. {"store":["42"]}. The selector dialect is a 4-byte
// Keccak-256 method selector followed by 32-byte big-endian words; when a
// contract carries a JSON ABI, typed packing is delegated to go-ethereum.
//
// Adapters are pure: they charge no gas and touch no storage.
package calldata

import (
	"fmt"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/ports"
)

// For returns the adapter for record's dialect.
func For(record *entities.ContractRecord) (ports.CalldataAdapter, error) {
	switch record.Dialect {
	case entities.DialectNative, "":
		return Native{}, nil
	case entities.DialectSelector:
		return NewSelector(record.ABI)
	default:
		return nil, fmt.Errorf("unknown calldata dialect %q", record.Dialect)
	}
}
