// Package host is the ledger's execution environment.
//
// An Executor owns the committed ledger, the contract registry and one guest
// runtime per contract kind. Every transaction runs as a stack of call frames:
// each frame gets a gas budget reserved from its caller, a nested storage scope
// and event journal, and a HostABI bound to it. A frame that succeeds folds its
// effects into its caller; one that fails discards them and reports a failed
// CallResult. Only the root frame's outcome reaches the ledger.
//
// Contracts of different kinds call each other through the same convention:
//
//	exec, _ := host.NewExecutor(ctx)
//	receipt := exec.Execute(ctx, entities.Transaction{To: addr, CallData: data})
//	if receipt.Rejected {
//	    log.Print(receipt.Diagnostic)
//	}
package host
