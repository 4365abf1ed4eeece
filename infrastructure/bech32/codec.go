// Package bech32 implements the ledger's text address codec on top of
// BIP-173 bech32 with a configurable human-readable prefix.
package bech32

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/domain/ports"
)

// DefaultPrefix is the human-readable part used when none is configured.
const DefaultPrefix = "lh"

// Codec converts addresses to and from bech32 text.
type Codec struct {
	prefix string
}

// New creates a Codec for prefix. An empty prefix selects DefaultPrefix.
func New(prefix string) *Codec {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Codec{prefix: strings.ToLower(prefix)}
}

// Prefix returns the configured human-readable part.
func (c *Codec) Prefix() string {
	return c.prefix
}

// Encode implements ports.AddressCodec.
func (c *Codec) Encode(addr entities.Address) (string, error) {
	if addr.Len() < entities.MinAddressLen || addr.Len() > entities.MaxAddressLen {
		return "", &errors.MalformedAddressError{Text: addr.Hex(), Err: fmt.Errorf("length %d out of range", addr.Len())}
	}
	conv, err := bech32.ConvertBits(addr.Bytes(), 8, 5, true)
	if err != nil {
		return "", &errors.MalformedAddressError{Text: addr.Hex(), Err: err}
	}
	encoded, err := bech32.Encode(c.prefix, conv)
	if err != nil {
		return "", &errors.MalformedAddressError{Text: addr.Hex(), Err: err}
	}
	return encoded, nil
}

// Decode implements ports.AddressCodec. Only the canonical lowercase form
// with the configured prefix is accepted.
func (c *Codec) Decode(text string) (entities.Address, error) {
	if text != strings.ToLower(text) {
		return entities.Address{}, &errors.MalformedAddressError{Text: text, Err: fmt.Errorf("not in canonical lowercase form")}
	}
	prefix, decoded, err := bech32.Decode(text)
	if err != nil {
		return entities.Address{}, &errors.MalformedAddressError{Text: text, Err: err}
	}
	if prefix != c.prefix {
		return entities.Address{}, &errors.MalformedAddressError{Text: text, Err: fmt.Errorf("prefix %q, want %q", prefix, c.prefix)}
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return entities.Address{}, &errors.MalformedAddressError{Text: text, Err: err}
	}
	addr, err := entities.NewAddress(conv)
	if err != nil {
		return entities.Address{}, &errors.MalformedAddressError{Text: text, Err: err}
	}
	return addr, nil
}

// MustEncode is Encode for addresses known to be valid. Panics otherwise.
func (c *Codec) MustEncode(addr entities.Address) string {
	s, err := c.Encode(addr)
	if err != nil {
		panic(err)
	}
	return s
}

var _ ports.AddressCodec = (*Codec)(nil)
