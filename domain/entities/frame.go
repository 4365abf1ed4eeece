package entities

// FrameState is the lifecycle state of a call frame.
type FrameState int

const (
	FramePending FrameState = iota
	FrameRunning
	FrameSucceeded
	FrameFailed
)

func (s FrameState) String() string {
	switch s {
	case FramePending:
		return "pending"
	case FrameRunning:
		return "running"
	case FrameSucceeded:
		return "succeeded"
	case FrameFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CallFrame is one activation record on the call stack.
type CallFrame struct {
	Caller Address
	Callee Address
	Budget uint64
	Static bool
	Depth  int
	State  FrameState
}

// CallResult is the settled outcome of a call frame. It is produced once per
// frame and never mutated afterwards.
type CallResult struct {
	// Err describes the failure when Success is false.
	Err *ErrorDetail `json:"error,omitempty"`

	// Data is the guest's return buffer, or revert data on failure.
	Data []byte `json:"data,omitempty"`

	// GasUsed is the gas charged to the caller for this frame.
	GasUsed uint64 `json:"gas_used"`

	// Success reports whether the frame reached the Succeeded state.
	Success bool `json:"success"`
}

// Failed builds a failure CallResult.
func Failed(err *ErrorDetail, data []byte, gasUsed uint64) CallResult {
	return CallResult{Err: err, Data: data, GasUsed: gasUsed}
}

// Succeeded builds a success CallResult.
func Succeeded(data []byte, gasUsed uint64) CallResult {
	return CallResult{Success: true, Data: data, GasUsed: gasUsed}
}
