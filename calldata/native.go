package calldata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	domainerrors "github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/domain/ports"
)

// Native is the keyed JSON dialect.
type Native struct{}

var _ ports.CalldataAdapter = Native{}

// Dialect implements ports.CalldataAdapter.
func (Native) Dialect() entities.Dialect {
	return entities.DialectNative
}

func nativeErr(reason string, err error) error {
	return &domainerrors.DecodeError{Dialect: string(entities.DialectNative), Reason: reason, Err: err}
}

// DecodeCall implements ports.CalldataAdapter. The payload must be a JSON
// object with exactly one field whose value is an array.
func (Native) DecodeCall(raw []byte) (entities.Invocation, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return entities.Invocation{}, nativeErr("not a JSON object", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return entities.Invocation{}, nativeErr("not a JSON object", nil)
	}

	tok, err = dec.Token()
	if err != nil {
		return entities.Invocation{}, nativeErr("truncated payload", err)
	}
	method, ok := tok.(string)
	if !ok {
		return entities.Invocation{}, nativeErr("missing method field", nil)
	}
	if method == "" {
		return entities.Invocation{}, nativeErr("empty method name", nil)
	}

	var rawArgs json.RawMessage
	if err := dec.Decode(&rawArgs); err != nil {
		return entities.Invocation{}, nativeErr("truncated argument list", err)
	}

	if dec.More() {
		return entities.Invocation{}, nativeErr("more than one method field", nil)
	}
	if tok, err = dec.Token(); err != nil || tok != json.Delim('}') {
		return entities.Invocation{}, nativeErr("unterminated object", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return entities.Invocation{}, nativeErr("trailing data after object", nil)
	}

	trimmed := bytes.TrimLeft(rawArgs, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return entities.Invocation{}, nativeErr(fmt.Sprintf("arguments of %q are not an array", method), nil)
	}
	argDec := json.NewDecoder(bytes.NewReader(rawArgs))
	argDec.UseNumber()
	var args []any
	if err := argDec.Decode(&args); err != nil {
		return entities.Invocation{}, nativeErr("malformed argument list", err)
	}
	if args == nil {
		args = []any{}
	}

	return entities.Invocation{Method: method, Args: args, CallData: raw}, nil
}

// EncodeCall implements ports.CalldataAdapter.
func (Native) EncodeCall(method string, args ...any) ([]byte, error) {
	if method == "" {
		return nil, nativeErr("empty method name", nil)
	}
	if args == nil {
		args = []any{}
	}
	return json.Marshal(map[string][]any{method: args})
}

// MustEncode is EncodeCall for static inputs. Panics on error.
func MustEncode(method string, args ...any) []byte {
	b, err := Native{}.EncodeCall(method, args...)
	if err != nil {
		panic(err)
	}
	return b
}
