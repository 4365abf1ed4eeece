package eventlog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/ledgerhost/domain/entities"
)

func addr(b byte) entities.Address {
	return entities.MustAddress(bytes.Repeat([]byte{b}, 20))
}

func TestJournal_OrderAcrossMergedChildren(t *testing.T) {
	root := New(false)
	require.NoError(t, root.Emit(addr(1), []byte("first"), nil))

	child := root.Child(false)
	require.NoError(t, child.Emit(addr(2), []byte("second"), [][]byte{[]byte("t")}))
	require.NoError(t, child.Merge())

	failed := root.Child(false)
	require.NoError(t, failed.Emit(addr(3), []byte("lost"), nil))
	failed.Discard()

	require.NoError(t, root.Emit(addr(1), []byte("third"), nil))

	log, err := root.Seal()
	require.NoError(t, err)
	entries := log.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "first", string(entries[0].Data))
	assert.Equal(t, "second", string(entries[1].Data))
	assert.Equal(t, "third", string(entries[2].Data))
	for i, e := range entries {
		assert.Equal(t, i, e.Index)
	}
	assert.Len(t, log.ByEmitter(addr(1)), 2)
	assert.Empty(t, log.ByEmitter(addr(3)))
}

func TestJournal_StaticRefuses(t *testing.T) {
	root := New(false)
	static := root.Child(true)
	assert.ErrorIs(t, static.Emit(addr(1), nil, nil), ErrStaticEmit)

	inherited := static.Child(false)
	assert.True(t, inherited.Static())
	assert.ErrorIs(t, inherited.Emit(addr(1), nil, nil), ErrStaticEmit)
}

func TestJournal_ClosedErrors(t *testing.T) {
	root := New(false)
	child := root.Child(false)
	require.NoError(t, child.Merge())
	assert.ErrorIs(t, child.Emit(addr(1), nil, nil), ErrJournalClosed)
	assert.ErrorIs(t, child.Merge(), ErrJournalClosed)

	_, err := child.Seal()
	assert.ErrorIs(t, err, ErrJournalClosed)
}

func TestJournal_EmitCopiesBuffers(t *testing.T) {
	root := New(false)
	data := []byte("abc")
	require.NoError(t, root.Emit(addr(1), data, nil))
	data[0] = 'x'

	log, err := root.Seal()
	require.NoError(t, err)
	assert.Equal(t, "abc", string(log.Entries()[0].Data))
}

func TestCost(t *testing.T) {
	assert.Equal(t, uint64(375+2*375+8*4), Cost(375, 375, 8, []byte("abcd"), [][]byte{{1}, {2}}))
}
