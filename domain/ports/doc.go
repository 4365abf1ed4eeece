// Package ports defines the interfaces between the dispatcher and its
// collaborators: guest runtimes, the committed ledger, the address codec,
// calldata adapters and the genesis manifest pipeline.
package ports
