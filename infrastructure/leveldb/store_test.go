package leveldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/ledgerhost/domain/ports"
)

func TestStore_Memory(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get([]byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.WriteBatch([]ports.KV{
		{Key: []byte("s/a"), Value: []byte("1")},
		{Key: []byte("s/b"), Value: []byte("2")},
		{Key: []byte("c/x"), Value: []byte("3")},
	}))

	v, err = s.Get([]byte("s/a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	var keys []string
	require.NoError(t, s.Iterate([]byte("s/"), func(k, _ []byte) bool {
		keys = append(keys, string(k))
		return true
	}))
	assert.Equal(t, []string{"s/a", "s/b"}, keys)
}

func TestStore_EmptyValueDeletes(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteBatch([]ports.KV{{Key: []byte("k"), Value: []byte("v")}}))
	require.NoError(t, s.WriteBatch([]ports.KV{{Key: []byte("k")}}))

	v, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestStore_FilePersists(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.WriteBatch([]ports.KV{{Key: []byte("k"), Value: []byte("v")}}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestStore_IterateStops(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteBatch([]ports.KV{
		{Key: []byte("p1"), Value: []byte("x")},
		{Key: []byte("p2"), Value: []byte("x")},
	}))

	n := 0
	require.NoError(t, s.Iterate([]byte("p"), func(_, _ []byte) bool {
		n++
		return false
	}))
	assert.Equal(t, 1, n)
}
