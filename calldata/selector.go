package calldata

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	domainerrors "github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/domain/ports"
)

const (
	// SelectorLen is the length of a method selector.
	SelectorLen = 4

	// WordLen is the length of one argument word.
	WordLen = 32
)

// SelectorOf returns the first four bytes of the Keccak-256 hash of a
// canonical method signature such as "store(uint256)".
func SelectorOf(signature string) [SelectorLen]byte {
	var sel [SelectorLen]byte
	copy(sel[:], crypto.Keccak256([]byte(signature)))
	return sel
}

// SelectorHex renders a selector the way untyped invocations name methods.
func SelectorHex(sel []byte) string {
	return "0x" + hex.EncodeToString(sel)
}

// Selector is the 4-byte selector dialect. With an ABI attached, methods are
// resolved and packed by name; without one, arguments are raw words.
type Selector struct {
	abi *abi.ABI
}

var _ ports.CalldataAdapter = (*Selector)(nil)

// NewSelector creates a Selector adapter. abiJSON may be empty.
func NewSelector(abiJSON string) (*Selector, error) {
	if strings.TrimSpace(abiJSON) == "" {
		return &Selector{}, nil
	}
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse contract ABI: %w", err)
	}
	return &Selector{abi: &parsed}, nil
}

// Dialect implements ports.CalldataAdapter.
func (s *Selector) Dialect() entities.Dialect {
	return entities.DialectSelector
}

// HasABI reports whether typed packing is available.
func (s *Selector) HasABI() bool {
	return s.abi != nil
}

func selectorErr(reason string, err error) error {
	return &domainerrors.DecodeError{Dialect: string(entities.DialectSelector), Reason: reason, Err: err}
}

// DecodeCall implements ports.CalldataAdapter.
func (s *Selector) DecodeCall(raw []byte) (entities.Invocation, error) {
	if len(raw) < SelectorLen {
		return entities.Invocation{}, selectorErr(fmt.Sprintf("calldata of %d bytes is shorter than a selector", len(raw)), nil)
	}
	body := raw[SelectorLen:]
	if len(body)%WordLen != 0 {
		return entities.Invocation{}, selectorErr(fmt.Sprintf("argument area of %d bytes is not a multiple of %d", len(body), WordLen), nil)
	}

	if s.abi != nil {
		method, err := s.abi.MethodById(raw[:SelectorLen])
		if err != nil {
			return entities.Invocation{}, selectorErr("unknown selector "+SelectorHex(raw[:SelectorLen]), err)
		}
		args, err := method.Inputs.Unpack(body)
		if err != nil {
			return entities.Invocation{}, selectorErr("arguments of "+method.Name, err)
		}
		return entities.Invocation{Method: method.Name, Args: args, CallData: raw}, nil
	}

	words := SplitWords(body)
	args := make([]any, len(words))
	for i, w := range words {
		args[i] = new(uint256.Int).SetBytes32(w)
	}
	return entities.Invocation{Method: SelectorHex(raw[:SelectorLen]), Args: args, CallData: raw}, nil
}

// EncodeCall implements ports.CalldataAdapter. With an ABI, method is the
// method name; without one it is the canonical signature and every argument
// is packed into one word (see Word).
func (s *Selector) EncodeCall(method string, args ...any) ([]byte, error) {
	if s.abi != nil {
		packed, err := s.abi.Pack(method, args...)
		if err != nil {
			return nil, selectorErr("pack "+method, err)
		}
		return packed, nil
	}
	sel := SelectorOf(method)
	out := make([]byte, 0, SelectorLen+WordLen*len(args))
	out = append(out, sel[:]...)
	for i, a := range args {
		w, err := Word(a)
		if err != nil {
			return nil, selectorErr(fmt.Sprintf("argument %d of %s", i, method), err)
		}
		out = append(out, w[:]...)
	}
	return out, nil
}

// DecodeResult unpacks a return buffer. With an ABI the method's outputs are
// unpacked; without one the buffer is split into words.
func (s *Selector) DecodeResult(method string, data []byte) ([]any, error) {
	if s.abi != nil {
		out, err := s.abi.Unpack(method, data)
		if err != nil {
			return nil, selectorErr("results of "+method, err)
		}
		return out, nil
	}
	if len(data)%WordLen != 0 {
		return nil, selectorErr(fmt.Sprintf("result of %d bytes is not a multiple of %d", len(data), WordLen), nil)
	}
	words := SplitWords(data)
	out := make([]any, len(words))
	for i, w := range words {
		out[i] = new(uint256.Int).SetBytes32(w)
	}
	return out, nil
}

// SplitWords splits b into 32-byte words. len(b) must be a multiple of WordLen.
func SplitWords(b []byte) [][]byte {
	words := make([][]byte, 0, len(b)/WordLen)
	for off := 0; off+WordLen <= len(b); off += WordLen {
		words = append(words, b[off:off+WordLen])
	}
	return words
}

// Word packs a scalar into a big-endian zero-padded 32-byte word.
func Word(v any) ([WordLen]byte, error) {
	var w [WordLen]byte
	switch x := v.(type) {
	case *uint256.Int:
		return x.Bytes32(), nil
	case uint256.Int:
		return x.Bytes32(), nil
	case *big.Int:
		u, overflow := uint256.FromBig(x)
		if overflow || x.Sign() < 0 {
			return w, fmt.Errorf("value %s does not fit an unsigned word", x)
		}
		return u.Bytes32(), nil
	case uint64:
		return uint256.NewInt(x).Bytes32(), nil
	case int:
		if x < 0 {
			return w, fmt.Errorf("negative value %d", x)
		}
		return uint256.NewInt(uint64(x)).Bytes32(), nil
	case bool:
		if x {
			w[WordLen-1] = 1
		}
		return w, nil
	case entities.Address:
		b := x.Bytes()
		copy(w[WordLen-len(b):], b)
		return w, nil
	case []byte:
		if len(x) > WordLen {
			return w, fmt.Errorf("%d bytes do not fit a word", len(x))
		}
		copy(w[WordLen-len(x):], x)
		return w, nil
	default:
		return w, fmt.Errorf("cannot pack %T into a word", v)
	}
}

// EncodeWords concatenates values packed as words. Used for untyped results.
func EncodeWords(values ...any) ([]byte, error) {
	var buf bytes.Buffer
	for i, v := range values {
		w, err := Word(v)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		buf.Write(w[:])
	}
	return buf.Bytes(), nil
}
