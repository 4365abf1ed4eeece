// Package entities provides the core domain types of the ledger host:
// addresses, contract records, call frames and results, log entries and the
// environment envelope handed to guests.
package entities
