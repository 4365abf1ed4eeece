package entities

// LogEntry is one event emitted by a contract.
type LogEntry struct {
	Emitter Address  `json:"-"`
	Data    []byte   `json:"data,omitempty"`
	Topics  [][]byte `json:"topics,omitempty"`

	// Index is the emission order within the transaction, assigned at settlement.
	Index int `json:"index"`
}
