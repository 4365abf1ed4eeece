package state

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/btree"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/ports"
)

// ErrScopeClosed is returned when a merged, discarded or committed scope is used.
var ErrScopeClosed = errors.New("state: scope closed")

// write is one pending ledger write. A nil value is a deletion.
type write struct {
	key   []byte
	value []byte
}

func writeLess(a, b write) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// Manager owns the committed ledger and opens transaction scopes.
type Manager struct {
	ledger ports.KVStore
}

// NewManager creates a Manager over ledger.
func NewManager(ledger ports.KVStore) *Manager {
	return &Manager{ledger: ledger}
}

// Begin opens a root scope for one transaction.
func (m *Manager) Begin() *Scope {
	return &Scope{mgr: m, writes: btree.NewG(32, writeLess)}
}

// Load reads committed storage, ignoring any open scope.
func (m *Manager) Load(owner entities.Address, key []byte) ([]byte, error) {
	return m.GetRaw(StorageKey(owner, key))
}

// GetRaw reads a committed ledger key.
func (m *Manager) GetRaw(key []byte) ([]byte, error) {
	v, err := m.ledger.Get(key)
	if err != nil {
		return nil, fmt.Errorf("state: ledger read: %w", err)
	}
	if len(v) == 0 {
		return nil, nil
	}
	return v, nil
}

// Ledger returns the committed store.
func (m *Manager) Ledger() ports.KVStore {
	return m.ledger
}

// Scope is a pending-effect set for one call frame.
type Scope struct {
	mgr    *Manager
	parent *Scope
	writes *btree.BTreeG[write]
	closed bool
}

// Child opens a nested scope whose reads fall through to s.
func (s *Scope) Child() *Scope {
	return &Scope{mgr: s.mgr, parent: s, writes: btree.NewG(32, writeLess)}
}

// Parent returns the enclosing scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Depth returns the number of enclosing scopes.
func (s *Scope) Depth() int {
	d := 0
	for p := s.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// Len returns the number of pending writes held by this scope alone.
func (s *Scope) Len() int {
	return s.writes.Len()
}

// Store writes value under key in owner's namespace. An empty value clears the key.
func (s *Scope) Store(owner entities.Address, key, value []byte) error {
	return s.PutRaw(StorageKey(owner, key), value)
}

// Load reads key from owner's namespace. Unset keys load as nil.
func (s *Scope) Load(owner entities.Address, key []byte) ([]byte, error) {
	return s.GetRaw(StorageKey(owner, key))
}

// PutRaw records a pending write of an arbitrary ledger key.
func (s *Scope) PutRaw(key, value []byte) error {
	if s.closed {
		return ErrScopeClosed
	}
	w := write{key: bytes.Clone(key)}
	if len(value) > 0 {
		w.value = bytes.Clone(value)
	}
	s.writes.ReplaceOrInsert(w)
	return nil
}

// GetRaw reads an arbitrary ledger key through the scope chain.
func (s *Scope) GetRaw(key []byte) ([]byte, error) {
	if s.closed {
		return nil, ErrScopeClosed
	}
	lookup := write{key: key}
	for cur := s; cur != nil; cur = cur.parent {
		if w, ok := cur.writes.Get(lookup); ok {
			return bytes.Clone(w.value), nil
		}
	}
	return s.mgr.GetRaw(key)
}

// Merge folds s into its parent and closes s.
func (s *Scope) Merge() error {
	if s.closed {
		return ErrScopeClosed
	}
	if s.parent == nil {
		return errors.New("state: cannot merge root scope")
	}
	if s.parent.closed {
		return ErrScopeClosed
	}
	s.writes.Ascend(func(w write) bool {
		s.parent.writes.ReplaceOrInsert(w)
		return true
	})
	s.close()
	return nil
}

// Discard drops every pending write of s and closes it.
func (s *Scope) Discard() {
	s.close()
}

// Commit writes a root scope to the ledger as one ordered batch and closes it.
func (s *Scope) Commit() error {
	if s.closed {
		return ErrScopeClosed
	}
	if s.parent != nil {
		return errors.New("state: only the root scope can commit")
	}
	batch := make([]ports.KV, 0, s.writes.Len())
	s.writes.Ascend(func(w write) bool {
		batch = append(batch, ports.KV{Key: w.key, Value: w.value})
		return true
	})
	if err := s.mgr.ledger.WriteBatch(batch); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	s.close()
	return nil
}

func (s *Scope) close() {
	s.closed = true
	s.writes.Clear(false)
}
