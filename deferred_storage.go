// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package txset

// DeferredInfo describes a stored deferred set without its transactions.
type DeferredInfo struct {
	Ledger LedgerHash `json:"ledger"`
	Salt   LedgerHash `json:"salt"`
	Mode   Mode       `json:"-"`
	Count  int64      `json:"count"`
}

// DeferredStorage is an interface for storing the sets of transactions deferred past
// each ledger so a restarted node can pick them back up.
type DeferredStorage interface {
	// Store saves the set deferred past the given ledger, replacing any previous one.
	Store(ledger LedgerHash, set *CanonicalTxSet) error

	// Load returns a new set holding the stored transactions or nil if there's none.
	Load(ledger LedgerHash) (*CanonicalTxSet, error)

	// GetInfo returns a description of the stored set or nil if there's none.
	GetInfo(ledger LedgerHash) (*DeferredInfo, error)

	// Delete removes the set stored for the given ledger.
	Delete(ledger LedgerHash) error

	// Ledgers returns the ledger hashes sets are stored for.
	Ledgers() ([]LedgerHash, error)
}
