package entities

// Transaction is a top-level invocation of a deployed contract.
type Transaction struct {
	// Block describes where the transaction executes.
	Block BlockInfo

	// Sender is the external account initiating the transaction.
	Sender Address

	// To is the contract receiving the root call.
	To Address

	// CallData is passed verbatim to the root frame.
	CallData []byte

	// GasLimit is the root frame budget. Zero means the configured default.
	GasLimit uint64
}

// DeployRequest creates a contract at Address and runs its instantiate entry.
type DeployRequest struct {
	Block    BlockInfo
	Sender   Address
	Address  Address
	Kind     RuntimeKind
	Dialect  Dialect
	Code     []byte
	ABI      string
	Role     string
	InitArgs []byte
	GasLimit uint64
}

// CreateRequest is a contract creation issued by a running contract. The new
// address is derived from the creator and its creation count, or from the
// creator, Salt and code hash when Salt is set.
type CreateRequest struct {
	Kind     RuntimeKind `json:"kind"`
	Dialect  Dialect     `json:"dialect,omitempty"`
	Code     []byte      `json:"code"`
	ABI      string      `json:"abi,omitempty"`
	InitArgs []byte      `json:"init_args,omitempty"`
	Salt     []byte      `json:"salt,omitempty"`
}

// Receipt is the outcome of a top-level transaction.
type Receipt struct {
	// Metadata carries timing and frame statistics.
	Metadata *RunMetadata `json:"metadata,omitempty"`

	// Diagnostic is the rejection text when Rejected is true.
	Diagnostic string `json:"diagnostic,omitempty"`

	// Trace is the rendered call tree.
	Trace string `json:"trace,omitempty"`

	// Logs are the committed log entries in emission order.
	Logs []LogEntry `json:"logs,omitempty"`

	// Result is the settled root frame.
	Result CallResult `json:"result"`

	// Rejected reports that the root frame failed and nothing was committed.
	Rejected bool `json:"rejected"`
}

// IsSuccess reports whether the transaction committed.
func (r Receipt) IsSuccess() bool {
	return !r.Rejected && r.Result.Success
}

// Reject builds a rejected Receipt from a failed root result.
func Reject(res CallResult) Receipt {
	diag := "rejected"
	if res.Err != nil {
		diag = res.Err.Error()
	}
	return Receipt{Result: res, Rejected: true, Diagnostic: diag}
}
