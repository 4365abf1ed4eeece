package registry

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/domain/ports"
)

// Ledger key prefixes for contract metadata.
const (
	RecordPrefix = "c/"
	CodePrefix   = "k/"
	RolePrefix   = "r/"
)

// RecordKey returns the ledger key of addr's contract record.
func RecordKey(addr entities.Address) []byte {
	return append([]byte(RecordPrefix), addr.Bytes()...)
}

// CodeKey returns the ledger key of a code blob.
func CodeKey(hash []byte) []byte {
	return append([]byte(CodePrefix), hash...)
}

// RoleKey returns the ledger key naming the holder of role.
func RoleKey(role string) []byte {
	return append([]byte(RolePrefix), role...)
}

// HashCode returns the content hash code is stored under.
func HashCode(code []byte) []byte {
	sum := blake3.Sum256(code)
	return sum[:]
}

// RawReader reads ledger keys, either committed or through a pending scope.
type RawReader interface {
	GetRaw(key []byte) ([]byte, error)
}

// RawWriter records tentative ledger writes.
type RawWriter interface {
	RawReader
	PutRaw(key, value []byte) error
}

type contractsConfig struct {
	cacheSize int
}

func defaultContractsConfig() contractsConfig {
	return contractsConfig{cacheSize: 1024}
}

// ContractsOption configures a Contracts registry.
type ContractsOption func(*contractsConfig)

// WithCacheSize sets the number of committed records and code blobs cached.
func WithCacheSize(n int) ContractsOption {
	return func(c *contractsConfig) {
		if n > 0 {
			c.cacheSize = n
		}
	}
}

// Contracts stores contract records and code in the ledger. Records are JSON
// under "c/"+address; code is zstd-compressed under "k/"+blake3(code).
// Only committed entries are cached, so a rolled-back deploy never leaks
// into later transactions.
type Contracts struct {
	committed RawReader
	records   *lru.Cache[string, *entities.ContractRecord]
	code      *lru.Cache[string, []byte]
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
}

// NewContracts creates a registry. committed reads the committed ledger and
// decides what may be cached.
func NewContracts(committed RawReader, opts ...ContractsOption) (*Contracts, error) {
	cfg := defaultContractsConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	records, err := lru.New[string, *entities.ContractRecord](cfg.cacheSize)
	if err != nil {
		return nil, err
	}
	code, err := lru.New[string, []byte](cfg.cacheSize)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("registry: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("registry: zstd decoder: %w", err)
	}
	return &Contracts{committed: committed, records: records, code: code, encoder: enc, decoder: dec}, nil
}

// Close releases the codec resources.
func (c *Contracts) Close() error {
	c.decoder.Close()
	return c.encoder.Close()
}

func (c *Contracts) isCommitted(key []byte) bool {
	v, err := c.committed.GetRaw(key)
	return err == nil && len(v) > 0
}

// Lookup returns the record deployed at addr as seen by r.
func (c *Contracts) Lookup(r RawReader, addr entities.Address) (*entities.ContractRecord, error) {
	cacheKey := string(addr.Bytes())
	if rec, ok := c.records.Get(cacheKey); ok {
		return rec, nil
	}
	key := RecordKey(addr)
	raw, err := r.GetRaw(key)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, &errors.UnknownContractError{Address: addr.String()}
	}
	rec, err := decodeRecord(addr, raw)
	if err != nil {
		return nil, err
	}
	if c.isCommitted(key) {
		c.records.Add(cacheKey, rec)
	}
	return rec, nil
}

// Exists reports whether a record is deployed at addr.
func (c *Contracts) Exists(r RawReader, addr entities.Address) (bool, error) {
	if c.records.Contains(string(addr.Bytes())) {
		return true, nil
	}
	raw, err := r.GetRaw(RecordKey(addr))
	if err != nil {
		return false, err
	}
	return len(raw) > 0, nil
}

// Code loads the code blob referenced by rec.
func (c *Contracts) Code(r RawReader, rec *entities.ContractRecord) (entities.Code, error) {
	cacheKey := hex.EncodeToString(rec.CodeHash)
	if b, ok := c.code.Get(cacheKey); ok {
		return entities.Code{Hash: rec.CodeHash, Bytes: b}, nil
	}
	key := CodeKey(rec.CodeHash)
	raw, err := r.GetRaw(key)
	if err != nil {
		return entities.Code{}, err
	}
	if len(raw) == 0 {
		return entities.Code{}, fmt.Errorf("registry: code %s missing for %s", cacheKey, rec.Address)
	}
	b, err := c.decoder.DecodeAll(raw, nil)
	if err != nil {
		return entities.Code{}, fmt.Errorf("registry: decompress code %s: %w", cacheKey, err)
	}
	if c.isCommitted(key) {
		c.code.Add(cacheKey, b)
	}
	return entities.Code{Hash: rec.CodeHash, Bytes: b}, nil
}

// AddressByRole returns the contract holding role. ok is false when no
// contract does.
func (c *Contracts) AddressByRole(r RawReader, role string) (addr entities.Address, ok bool, err error) {
	if role == "" {
		return entities.Address{}, false, nil
	}
	raw, err := r.GetRaw(RoleKey(role))
	if err != nil || len(raw) == 0 {
		return entities.Address{}, false, err
	}
	addr, err = entities.NewAddress(raw)
	if err != nil {
		return entities.Address{}, false, fmt.Errorf("registry: corrupt holder of role %s: %w", role, err)
	}
	return addr, true, nil
}

// Deploy tentatively writes rec and code through w. It sets rec.CodeHash.
// Identical code is stored once. A role can be held by one contract only.
func (c *Contracts) Deploy(w RawWriter, rec *entities.ContractRecord, code []byte) error {
	if len(code) == 0 {
		return fmt.Errorf("registry: empty code for %s", rec.Address)
	}
	exists, err := c.Exists(w, rec.Address)
	if err != nil {
		return err
	}
	if exists {
		return &errors.ContractExistsError{Address: rec.Address.String()}
	}

	rec.CodeHash = HashCode(code)
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if rec.Role != "" {
		holder, taken, err := c.AddressByRole(w, rec.Role)
		if err != nil {
			return err
		}
		if taken {
			return &errors.ContractExistsError{Address: holder.String(), Role: rec.Role}
		}
		if err := w.PutRaw(RoleKey(rec.Role), rec.Address.Bytes()); err != nil {
			return err
		}
	}

	codeKey := CodeKey(rec.CodeHash)
	stored, err := w.GetRaw(codeKey)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		if err := w.PutRaw(codeKey, c.encoder.EncodeAll(code, nil)); err != nil {
			return err
		}
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("registry: encode record: %w", err)
	}
	return w.PutRaw(RecordKey(rec.Address), raw)
}

// List returns every committed record in address order.
func (c *Contracts) List(ledger ports.KVStore) ([]*entities.ContractRecord, error) {
	var (
		out     []*entities.ContractRecord
		iterErr error
	)
	err := ledger.Iterate([]byte(RecordPrefix), func(key, value []byte) bool {
		addr, err := entities.NewAddress(key[len(RecordPrefix):])
		if err != nil {
			iterErr = fmt.Errorf("registry: corrupt record key %x: %w", key, err)
			return false
		}
		rec, err := decodeRecord(addr, value)
		if err != nil {
			iterErr = err
			return false
		}
		out = append(out, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, iterErr
}

func decodeRecord(addr entities.Address, raw []byte) (*entities.ContractRecord, error) {
	var rec entities.ContractRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("registry: decode record %s: %w", addr, err)
	}
	rec.Address = addr
	return &rec, nil
}
