package calldata

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/holiman/uint256"
)

// Args wraps decoded invocation arguments with typed accessors.
type Args []any

// Len returns the number of arguments.
func (a Args) Len() int {
	return len(a)
}

func (a Args) at(i int) (any, error) {
	if i < 0 || i >= len(a) {
		return nil, fmt.Errorf("argument %d missing (have %d)", i, len(a))
	}
	return a[i], nil
}

// String returns argument i as a string. JSON numbers are returned in their
// literal form.
func (a Args) String(i int) (string, error) {
	v, err := a.at(i)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("argument %d is %T, not a string", i, v)
	}
}

// Strings returns argument i as a list of strings.
func (a Args) Strings(i int) ([]string, error) {
	v, err := a.at(i)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %d is %T, not a list", i, v)
	}
	out := make([]string, 0, len(list))
	for j := range list {
		s, err := Args(list).String(j)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Uint64 returns argument i as a uint64, accepting JSON numbers, numeric
// strings and 32-byte words that fit.
func (a Args) Uint64(i int) (uint64, error) {
	v, err := a.at(i)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case json.Number:
		return strconv.ParseUint(n.String(), 10, 64)
	case string:
		return strconv.ParseUint(n, 10, 64)
	case float64:
		if n < 0 || n != float64(uint64(n)) {
			return 0, fmt.Errorf("argument %d is not an unsigned integer", i)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("argument %d is negative", i)
		}
		return uint64(n), nil
	case *uint256.Int:
		if !n.IsUint64() {
			return 0, fmt.Errorf("argument %d overflows uint64", i)
		}
		return n.Uint64(), nil
	default:
		return 0, fmt.Errorf("argument %d is %T, not a number", i, v)
	}
}

// Bool returns argument i as a bool.
func (a Args) Bool(i int) (bool, error) {
	v, err := a.at(i)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("argument %d is %T, not a bool", i, v)
	}
	return b, nil
}

// Word returns argument i as a 256-bit word.
func (a Args) Word(i int) (*uint256.Int, error) {
	v, err := a.at(i)
	if err != nil {
		return nil, err
	}
	switch w := v.(type) {
	case *uint256.Int:
		return w, nil
	case *big.Int:
		u, overflow := uint256.FromBig(w)
		if overflow || w.Sign() < 0 {
			return nil, fmt.Errorf("argument %d does not fit an unsigned word", i)
		}
		return u, nil
	case json.Number:
		return uint256.FromDecimal(w.String())
	case string:
		return uint256.FromDecimal(w)
	default:
		return nil, fmt.Errorf("argument %d is %T, not a word", i, v)
	}
}

// Raw returns argument i re-encoded as JSON.
func (a Args) Raw(i int) (json.RawMessage, error) {
	v, err := a.at(i)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
