package ports

// CallPolicy decides whether a contract with callerRole may call a contract
// with calleeRole. Empty roles mean the contract has none.
type CallPolicy interface {
	AllowCall(callerRole, calleeRole string) bool
}
