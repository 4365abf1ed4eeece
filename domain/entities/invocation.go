package entities

// Invocation is decoded calldata handed to a guest runtime.
type Invocation struct {
	// Method is the method name, or the hex selector when no ABI is attached.
	Method string

	// Args holds the decoded arguments. Their Go types depend on the dialect:
	// native yields JSON values (string, json.Number, bool, []any, map[string]any),
	// selector yields *uint256.Int words or ABI-typed values.
	Args []any

	// CallData is the raw, undecoded buffer.
	CallData []byte
}
