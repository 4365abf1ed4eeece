package ports

import "github.com/reglet-dev/ledgerhost/domain/entities"

// AddressCodec converts between canonical binary addresses and their text form.
type AddressCodec interface {
	Encode(addr entities.Address) (string, error)
	Decode(text string) (entities.Address, error)
}

// CalldataAdapter encodes and decodes one calldata dialect. Adapters are pure.
type CalldataAdapter interface {
	Dialect() entities.Dialect

	// DecodeCall parses raw calldata, failing with a DecodeError.
	DecodeCall(raw []byte) (entities.Invocation, error)

	// EncodeCall builds calldata for method with args.
	EncodeCall(method string, args ...any) ([]byte, error)
}
