package state

import "github.com/reglet-dev/ledgerhost/domain/entities"

// StoragePrefix marks contract storage keys in the ledger.
const StoragePrefix = "s/"

// StorageKey returns the ledger key for key in owner's namespace. The owner
// is length-prefixed so no two namespaces can produce the same ledger key.
func StorageKey(owner entities.Address, key []byte) []byte {
	raw := owner.Bytes()
	out := make([]byte, 0, len(StoragePrefix)+1+len(raw)+len(key))
	out = append(out, StoragePrefix...)
	out = append(out, byte(len(raw)))
	out = append(out, raw...)
	out = append(out, key...)
	return out
}

// NamespacePrefix returns the ledger prefix shared by all of owner's keys.
func NamespacePrefix(owner entities.Address) []byte {
	return StorageKey(owner, nil)
}
