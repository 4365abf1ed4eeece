package ports

// KV is one ledger write. A nil or empty Value deletes the key.
type KV struct {
	Key   []byte
	Value []byte
}

// KVStore is the committed ledger.
type KVStore interface {
	// Get returns the value for key, or nil if it is unset.
	Get(key []byte) ([]byte, error)

	// WriteBatch applies all writes atomically and in order.
	WriteBatch(writes []KV) error

	// Iterate calls fn for every key with the given prefix in key order
	// until fn returns false.
	Iterate(prefix []byte, fn func(key, value []byte) bool) error

	Close() error
}
