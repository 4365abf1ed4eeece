package state

import (
	"bytes"

	"github.com/google/btree"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/ports"
)

// keyRange bounds ledger keys inside one namespace. hi is nil when the range
// runs to the end of the namespace.
type keyRange struct {
	ns, lo, hi []byte
}

func newKeyRange(owner entities.Address, start, end []byte) keyRange {
	r := keyRange{ns: NamespacePrefix(owner)}
	r.lo = StorageKey(owner, start)
	if len(end) > 0 {
		r.hi = StorageKey(owner, end)
	}
	return r
}

// past reports whether key lies beyond the range, given keys arrive in
// ascending order from lo.
func (r keyRange) past(key []byte) bool {
	if !bytes.HasPrefix(key, r.ns) {
		return true
	}
	return r.hi != nil && bytes.Compare(key, r.hi) >= 0
}

// Delete clears key in owner's namespace.
func (s *Scope) Delete(owner entities.Address, key []byte) error {
	return s.PutRaw(StorageKey(owner, key), nil)
}

// Range returns owner's live keys in [start, end) as seen through the scope
// chain. An empty bound is open. Keys are returned without the namespace
// prefix, ascending or, if reverse is set, descending.
func (s *Scope) Range(owner entities.Address, start, end []byte, reverse bool) ([]ports.KV, error) {
	if s.closed {
		return nil, ErrScopeClosed
	}
	r := newKeyRange(owner, start, end)
	view := btree.NewG(32, writeLess)

	err := s.mgr.ledger.Iterate(r.ns, func(key, value []byte) bool {
		if bytes.Compare(key, r.lo) < 0 {
			return true
		}
		if r.past(key) {
			return false
		}
		view.ReplaceOrInsert(write{key: bytes.Clone(key), value: bytes.Clone(value)})
		return true
	})
	if err != nil {
		return nil, err
	}

	// Outermost scope first so inner writes win.
	var chain []*Scope
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		chain[i].writes.AscendGreaterOrEqual(write{key: r.lo}, func(w write) bool {
			if r.past(w.key) {
				return false
			}
			view.ReplaceOrInsert(w)
			return true
		})
	}

	out := make([]ports.KV, 0, view.Len())
	collect := func(w write) bool {
		if len(w.value) > 0 {
			out = append(out, ports.KV{Key: bytes.Clone(w.key[len(r.ns):]), Value: bytes.Clone(w.value)})
		}
		return true
	}
	if reverse {
		view.Descend(collect)
	} else {
		view.Ascend(collect)
	}
	return out, nil
}
