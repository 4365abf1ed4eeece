package entities

// BlockInfo is the block context a transaction executes in.
type BlockInfo struct {
	Height    uint64 `json:"height"`
	Timestamp int64  `json:"timestamp"`
	ChainID   string `json:"chain_id"`
}

// Environment is the envelope returned by the getEnvironment host operation.
// Addresses are rendered in their text form by the host.
type Environment struct {
	Block    BlockInfo `json:"block"`
	Origin   string    `json:"origin"`
	Caller   string    `json:"caller"`
	Contract string    `json:"contract"`
	GasLeft  uint64    `json:"gas_left"`
	Depth    int       `json:"depth"`
	Static   bool      `json:"static"`
}
