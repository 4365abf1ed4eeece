package ports

// DenialHandler is called when a call policy denies a call.
// Implementations can log, collect metrics, or take other actions.
type DenialHandler interface {
	// OnDenial is called with the roles of the denied caller and callee
	// and a human-readable reason.
	OnDenial(callerRole, calleeRole, reason string)
}
