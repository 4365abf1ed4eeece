package ports

import (
	"context"

	"github.com/reglet-dev/ledgerhost/domain/entities"
)

// Runtime executes guest code of one runtime kind.
// Returned errors are classified with errors.CodeOf; anything untyped is a
// guest fault.
type Runtime interface {
	// Validate checks that code can be executed by this runtime.
	Validate(ctx context.Context, code []byte) error

	// Instantiate runs the contract's constructor entry.
	Instantiate(ctx context.Context, host HostABI, code entities.Code, inv entities.Invocation) ([]byte, error)

	// Main runs the contract's dispatch entry.
	Main(ctx context.Context, host HostABI, code entities.Code, inv entities.Invocation) ([]byte, error)
}
