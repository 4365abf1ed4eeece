// Package eventlog records the events contracts emit during a transaction.
// Journals nest like state scopes: a frame's entries join its parent's only
// when the frame succeeds.
package eventlog

import (
	"bytes"
	"errors"

	"github.com/reglet-dev/ledgerhost/domain/entities"
)

var (
	// ErrStaticEmit is returned when a static frame tries to emit.
	ErrStaticEmit = errors.New("eventlog: emit in static frame")

	// ErrJournalClosed is returned when a settled journal is used.
	ErrJournalClosed = errors.New("eventlog: journal closed")
)

// Journal holds the pending entries of one frame.
type Journal struct {
	parent  *Journal
	entries []entities.LogEntry
	static  bool
	closed  bool
}

// New opens a root journal.
func New(static bool) *Journal {
	return &Journal{static: static}
}

// Child opens a journal for a nested frame. A static parent forces a static child.
func (j *Journal) Child(static bool) *Journal {
	return &Journal{parent: j, static: static || j.static}
}

// Static reports whether emission is forbidden.
func (j *Journal) Static() bool {
	return j.static
}

// Len returns the number of entries pending in this journal alone.
func (j *Journal) Len() int {
	return len(j.entries)
}

// Emit appends an entry attributed to owner.
func (j *Journal) Emit(owner entities.Address, data []byte, topics [][]byte) error {
	if j.closed {
		return ErrJournalClosed
	}
	if j.static {
		return ErrStaticEmit
	}
	e := entities.LogEntry{Emitter: owner, Data: bytes.Clone(data)}
	if len(topics) > 0 {
		e.Topics = make([][]byte, len(topics))
		for i, t := range topics {
			e.Topics[i] = bytes.Clone(t)
		}
	}
	j.entries = append(j.entries, e)
	return nil
}

// Merge appends j's entries to its parent in emission order and closes j.
func (j *Journal) Merge() error {
	if j.closed || j.parent == nil || j.parent.closed {
		return ErrJournalClosed
	}
	j.parent.entries = append(j.parent.entries, j.entries...)
	j.entries = nil
	j.closed = true
	return nil
}

// Discard drops j's entries and closes it.
func (j *Journal) Discard() {
	j.entries = nil
	j.closed = true
}

// Seal closes a root journal and returns its entries with their final indexes.
func (j *Journal) Seal() (Log, error) {
	if j.closed || j.parent != nil {
		return Log{}, ErrJournalClosed
	}
	out := make([]entities.LogEntry, len(j.entries))
	copy(out, j.entries)
	for i := range out {
		out[i].Index = i
	}
	j.entries = nil
	j.closed = true
	return Log{entries: out}, nil
}

// Log is a sealed, read-only, emission-ordered list of entries.
type Log struct {
	entries []entities.LogEntry
}

// Len returns the number of entries.
func (l Log) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entries.
func (l Log) Entries() []entities.LogEntry {
	out := make([]entities.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// ByEmitter returns the entries emitted by addr.
func (l Log) ByEmitter(addr entities.Address) []entities.LogEntry {
	var out []entities.LogEntry
	for _, e := range l.entries {
		if e.Emitter.Equal(addr) {
			out = append(out, e)
		}
	}
	return out
}

// Cost returns the gas charged for emitting data with topics.
func Cost(base, perTopic, perByte uint64, data []byte, topics [][]byte) uint64 {
	return base + perTopic*uint64(len(topics)) + perByte*uint64(len(data))
}
