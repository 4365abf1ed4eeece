package entities

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

const (
	// MinAddressLen is the shortest canonical account identifier.
	MinAddressLen = 20

	// MaxAddressLen is the longest canonical account identifier.
	MaxAddressLen = 32
)

// Address is a canonical binary account identifier of 20 to 32 bytes.
// Its text form is produced by an AddressCodec, never by String.
type Address struct {
	raw string
}

// NewAddress copies b into an Address. It returns an error if the length is
// outside [MinAddressLen, MaxAddressLen].
func NewAddress(b []byte) (Address, error) {
	if len(b) < MinAddressLen || len(b) > MaxAddressLen {
		return Address{}, fmt.Errorf("address length %d outside [%d, %d]", len(b), MinAddressLen, MaxAddressLen)
	}
	return Address{raw: string(b)}, nil
}

// MustAddress is like NewAddress but panics on invalid input.
// Intended for tests and static tables.
func MustAddress(b []byte) Address {
	a, err := NewAddress(b)
	if err != nil {
		panic(err)
	}
	return a
}

// Bytes returns a copy of the raw identifier.
func (a Address) Bytes() []byte {
	return []byte(a.raw)
}

// Len returns the identifier length in bytes.
func (a Address) Len() int {
	return len(a.raw)
}

// IsZero reports whether a is the empty Address.
func (a Address) IsZero() bool {
	return a.raw == ""
}

// Equal reports whether both addresses hold the same bytes.
func (a Address) Equal(o Address) bool {
	return a.raw == o.raw
}

// Compare orders addresses bytewise.
func (a Address) Compare(o Address) int {
	return bytes.Compare([]byte(a.raw), []byte(o.raw))
}

// Hex returns the lowercase hex form, used only for diagnostics.
func (a Address) Hex() string {
	return hex.EncodeToString([]byte(a.raw))
}

// String implements fmt.Stringer with the hex form.
func (a Address) String() string {
	return "0x" + a.Hex()
}
