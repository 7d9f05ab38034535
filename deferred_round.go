// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package txset

import (
	"log"
	"sync"

	"github.com/seiflotfy/cuckoofilter"
)

// DeferredRound holds the transactions deferred while trying to close a ledger.
// It owns a single CanonicalTxSet salted with the hash of the ledger being built on and
// serializes all access to it.
type DeferredRound struct {
	ledger  LedgerHash
	set     *CanonicalTxSet
	seen    *cuckoo.Filter // relay suppression only. never consulted for ordering
	storage DeferredStorage
	lock    sync.Mutex
}

// NewDeferredRound returns a new, empty round building on the given ledger.
// storage may be nil if the round isn't persisted.
func NewDeferredRound(ledger LedgerHash, mode Mode, storage DeferredStorage) *DeferredRound {
	return &DeferredRound{
		ledger:  ledger,
		set:     NewCanonicalTxSet(ledger, mode),
		seen:    cuckoo.NewFilter(RELAY_FILTER_CAPACITY),
		storage: storage,
	}
}

// LoadDeferredRound restores the round stored for the given ledger.
// It returns nil if nothing was stored.
func LoadDeferredRound(ledger LedgerHash, storage DeferredStorage) (*DeferredRound, error) {
	set, err := storage.Load(ledger)
	if err != nil || set == nil {
		return nil, err
	}
	r := &DeferredRound{
		ledger:  ledger,
		set:     set,
		seen:    cuckoo.NewFilter(RELAY_FILTER_CAPACITY),
		storage: storage,
	}
	set.Ascend(func(key Key, _ CanonicalTx) bool {
		id := key.TxID()
		r.seen.InsertUnique(id[:])
		return true
	})
	log.Printf("Restored %d deferred transaction(s) for ledger %s\n", set.Len(), ledger)
	return r, nil
}

// Add defers a transaction to the round. Returns true if the transaction was added
// on this call.
func (r *DeferredRound) Add(tx *DeferredTransaction) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	id := tx.TxID()
	if _, _, ok := r.set.Lookup(id); ok {
		// already deferred
		return false
	}
	r.set.Insert(tx)
	r.seen.InsertUnique(id[:])
	return true
}

// ShouldRelay returns false if the transaction has probably been seen this round.
// It may return false for a transaction that hasn't been seen.
func (r *DeferredRound) ShouldRelay(id TransactionID) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return !r.seen.Lookup(id[:])
}

// Apply applies the round's transactions to the open ledger in canonical order.
func (r *DeferredRound) Apply(view *OpenLedger) (*ApplyStats, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return ApplyDeferred(r.set, view.Apply)
}

// Advance starts a new round on top of the given ledger. Transactions still deferred
// are carried over and re-ordered under the new ledger's salt.
func (r *DeferredRound) Advance(ledger LedgerHash) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	carried := r.set.Transactions()
	previous := r.ledger
	r.ledger = ledger
	r.set.Reset(ledger)
	for _, tx := range carried {
		r.set.Insert(tx)
	}
	r.seen = cuckoo.NewFilter(RELAY_FILTER_CAPACITY)
	for _, tx := range carried {
		id := tx.TxID()
		r.seen.InsertUnique(id[:])
	}

	log.Printf("Deferred round advanced to ledger %s, %d transaction(s) carried over\n",
		ledger, len(carried))

	if r.storage == nil {
		return nil
	}
	if err := r.storage.Delete(previous); err != nil {
		return err
	}
	return r.storage.Store(ledger, r.set)
}

// Persist stores the round's current transactions.
func (r *DeferredRound) Persist() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.storage == nil {
		return nil
	}
	return r.storage.Store(r.ledger, r.set)
}

// Transactions returns the round's transactions in canonical order.
func (r *DeferredRound) Transactions() []CanonicalTx {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.set.Transactions()
}

// Ledger returns the hash of the ledger the round builds on.
func (r *DeferredRound) Ledger() LedgerHash {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.ledger
}

// Len returns the number of deferred transactions.
func (r *DeferredRound) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.set.Len()
}
