package state_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/ports"
	"github.com/reglet-dev/ledgerhost/infrastructure/leveldb"
	"github.com/reglet-dev/ledgerhost/state"
)

func addr(b byte) entities.Address {
	return entities.MustAddress(bytes.Repeat([]byte{b}, 20))
}

func newManager(t testing.TB) *state.Manager {
	t.Helper()
	db, err := leveldb.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return state.NewManager(db)
}

func TestStorageKey_NamespacesDoNotOverlap(t *testing.T) {
	// A 21-byte owner whose last byte looks like the start of a key must
	// still not collide with a 20-byte owner.
	short := entities.MustAddress(bytes.Repeat([]byte{1}, 20))
	long := entities.MustAddress(append(bytes.Repeat([]byte{1}, 20), 'k'))

	assert.NotEqual(t, state.StorageKey(short, []byte("key")), state.StorageKey(long, []byte("ey")))
}

func TestScope_UnsetKeyLoadsEmpty(t *testing.T) {
	root := newManager(t).Begin()
	v, err := root.Load(addr(1), []byte("nothing"))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestScope_MergeAndCommit(t *testing.T) {
	m := newManager(t)
	root := m.Begin()
	a := addr(1)

	require.NoError(t, root.Store(a, []byte("k"), []byte("root")))

	child := root.Child()
	require.NoError(t, child.Store(a, []byte("k"), []byte("child")))

	v, _ := root.Load(a, []byte("k"))
	assert.Equal(t, []byte("root"), v, "child writes invisible to parent before merge")

	require.NoError(t, child.Merge())
	v, _ = root.Load(a, []byte("k"))
	assert.Equal(t, []byte("child"), v)

	committed, _ := m.Load(a, []byte("k"))
	assert.Nil(t, committed, "nothing committed before root commit")

	require.NoError(t, root.Commit())
	committed, _ = m.Load(a, []byte("k"))
	assert.Equal(t, []byte("child"), committed)

	assert.ErrorIs(t, root.Store(a, []byte("x"), []byte("y")), state.ErrScopeClosed)
}

func TestScope_DiscardDropsGrandchildren(t *testing.T) {
	m := newManager(t)
	root := m.Begin()
	a, b := addr(1), addr(2)

	child := root.Child()
	grandchild := child.Child()
	require.NoError(t, grandchild.Store(b, []byte("k"), []byte("deep")))
	require.NoError(t, grandchild.Merge())
	require.NoError(t, child.Store(a, []byte("k"), []byte("mid")))
	child.Discard()

	for _, owner := range []entities.Address{a, b} {
		v, err := root.Load(owner, []byte("k"))
		require.NoError(t, err)
		assert.Nil(t, v)
	}
	require.NoError(t, root.Commit())
	v, _ := m.Load(b, []byte("k"))
	assert.Nil(t, v)
}

func TestScope_SiblingVisibility(t *testing.T) {
	root := newManager(t).Begin()
	a := addr(7)

	failed := root.Child()
	require.NoError(t, failed.Store(a, []byte("k"), []byte("lost")))
	failed.Discard()

	ok := root.Child()
	require.NoError(t, ok.Store(a, []byte("j"), []byte("kept")))
	require.NoError(t, ok.Merge())

	later := root.Child()
	v, _ := later.Load(a, []byte("k"))
	assert.Nil(t, v, "rolled back sibling writes are not visible")
	v, _ = later.Load(a, []byte("j"))
	assert.Equal(t, []byte("kept"), v, "merged sibling writes are visible")
}

func TestScope_EmptyValueClears(t *testing.T) {
	m := newManager(t)
	a := addr(3)

	root := m.Begin()
	require.NoError(t, root.Store(a, []byte("k"), []byte("v")))
	require.NoError(t, root.Commit())

	root = m.Begin()
	require.NoError(t, root.Store(a, []byte("k"), nil))
	v, _ := root.Load(a, []byte("k"))
	assert.Nil(t, v)
	require.NoError(t, root.Commit())

	v, _ = m.Load(a, []byte("k"))
	assert.Nil(t, v)
}

func TestScope_MisuseErrors(t *testing.T) {
	root := newManager(t).Begin()
	assert.Error(t, root.Merge())

	child := root.Child()
	assert.Error(t, child.Commit())
	assert.Equal(t, 1, child.Depth())
}

// TestScope_IsolationProperty checks that random nested store sequences
// produce exactly the state of a model that applies merged scopes and drops
// discarded ones, and that owners never see each other's keys.
func TestScope_IsolationProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		db, err := leveldb.OpenMemory()
		if err != nil {
			rt.Fatalf("open: %v", err)
		}
		defer db.Close()
		m := state.NewManager(db)

		owners := []entities.Address{addr(1), addr(2), addr(3)}
		model := map[string]string{}
		root := m.Begin()

		var apply func(s *state.Scope, depth int) map[string]string
		apply = func(s *state.Scope, depth int) map[string]string {
			local := map[string]string{}
			n := rapid.IntRange(0, 5).Draw(rt, fmt.Sprintf("ops%d", depth))
			for i := 0; i < n; i++ {
				o := rapid.IntRange(0, len(owners)-1).Draw(rt, "owner")
				k := rapid.SampledFrom([]string{"a", "b", "c"}).Draw(rt, "key")
				v := rapid.StringN(1, 4, -1).Draw(rt, "value")
				if err := s.Store(owners[o], []byte(k), []byte(v)); err != nil {
					rt.Fatalf("store: %v", err)
				}
				local[fmt.Sprintf("%d/%s", o, k)] = v
			}
			if depth < 3 && rapid.Bool().Draw(rt, "nest") {
				child := s.Child()
				childWrites := apply(child, depth+1)
				if rapid.Bool().Draw(rt, "merge") {
					if err := child.Merge(); err != nil {
						rt.Fatalf("merge: %v", err)
					}
					for k, v := range childWrites {
						local[k] = v
					}
				} else {
					child.Discard()
				}
			}
			return local
		}

		for k, v := range apply(root, 0) {
			model[k] = v
		}
		if err := root.Commit(); err != nil {
			rt.Fatalf("commit: %v", err)
		}

		for o := range owners {
			for _, k := range []string{"a", "b", "c"} {
				got, err := m.Load(owners[o], []byte(k))
				if err != nil {
					rt.Fatalf("load: %v", err)
				}
				want, ok := model[fmt.Sprintf("%d/%s", o, k)]
				if !ok && got != nil {
					rt.Fatalf("owner %d key %s: unexpected %q", o, k, got)
				}
				if ok && string(got) != want {
					rt.Fatalf("owner %d key %s: got %q want %q", o, k, got, want)
				}
			}
		}
	})
}

func TestScope_Range(t *testing.T) {
	m := newManager(t)
	a, b := addr(1), addr(2)

	seed := m.Begin()
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, seed.Store(a, []byte(k), []byte("committed-"+k)))
	}
	require.NoError(t, seed.Store(b, []byte("b"), []byte("other")))
	require.NoError(t, seed.Commit())

	root := m.Begin()
	require.NoError(t, root.Store(a, []byte("bb"), []byte("root")))
	child := root.Child()
	require.NoError(t, child.Delete(a, []byte("c")))
	require.NoError(t, child.Store(a, []byte("b"), []byte("child")))

	keys := func(kvs []ports.KV) []string {
		out := make([]string, len(kvs))
		for i, kv := range kvs {
			out[i] = string(kv.Key)
		}
		return out
	}

	tests := []struct {
		name       string
		start, end string
		reverse    bool
		want       []string
	}{
		{name: "open", want: []string{"a", "b", "bb", "d"}},
		{name: "bounded", start: "b", end: "d", want: []string{"b", "bb"}},
		{name: "from", start: "bb", want: []string{"bb", "d"}},
		{name: "reverse", end: "d", reverse: true, want: []string{"bb", "b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := child.Range(a, []byte(tt.start), []byte(tt.end), tt.reverse)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys(got))
		})
	}

	got, err := child.Range(a, []byte("b"), []byte("c"), false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "child", string(got[0].Value))
	assert.Equal(t, "root", string(got[1].Value))

	// The parent does not see the child's delete.
	got, err = root.Range(a, []byte("c"), []byte("d"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, keys(got))

	child.Discard()
	_, err = child.Range(a, nil, nil, false)
	assert.ErrorIs(t, err, state.ErrScopeClosed)
}
