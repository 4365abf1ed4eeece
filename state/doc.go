// Package state implements storage namespaces with stack-relative pending
// effects.
//
// Every call frame owns a Scope. Writes land in the scope's ordered write set
// and are visible to the frame and its descendants. When the frame succeeds
// its scope is merged into the parent; when it fails the scope is discarded
// together with everything its children merged into it. Only the root scope
// reaches the committed ledger, as one batch.
package state
