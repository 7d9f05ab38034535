// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package txset

import (
	"fmt"

	"github.com/google/btree"
)

// Mode selects how a CanonicalTxSet arranges transactions from different accounts.
// Values are: BATCHED or STRIPED.
type Mode int

const (
	// BATCHED keeps all of an account's transactions together.
	BATCHED Mode = iota

	// STRIPED interleaves accounts round-robin:
	// [Alice1, Bob1, Charlie1, Alice2, Bob2, Charlie2, Alice3]
	STRIPED
)

// String implements the Stringer interface.
func (m Mode) String() string {
	switch m {
	case BATCHED:
		return "batched"
	case STRIPED:
		return "striped"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode returns the Mode named by s.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "batched":
		return BATCHED, nil
	case "striped":
		return STRIPED, nil
	}
	return BATCHED, fmt.Errorf("Unknown mode: %s", s)
}

// slotHandle addresses an entry in the set's slot arena. It stays valid while the
// entry is resident no matter how often the entry's key changes.
type slotHandle uint32

type txSlot struct {
	key Key
	tx  CanonicalTx // nil when the slot is free
}

// CanonicalTxSet holds transactions deferred to the next pass of consensus.
// "Canonical" refers to the order in which they're applied: every node holding the
// same transactions under the same salt iterates them in the same order.
//
// It is not safe for concurrent use.
type CanonicalTxSet struct {
	salt  LedgerHash
	mode  Mode
	txMap *btree.BTree                // primaryItem in canonical order
	hints map[AccountKey]*btree.BTree // hintItem per account. STRIPED only
	ids   map[TransactionID]slotHandle
	slots []txSlot
	free  []slotHandle
}

// NewCanonicalTxSet returns a new empty set using the given salt and mode.
func NewCanonicalTxSet(salt LedgerHash, mode Mode) *CanonicalTxSet {
	return &CanonicalTxSet{
		salt:  salt,
		mode:  mode,
		txMap: btree.New(BTREE_DEGREE),
		hints: make(map[AccountKey]*btree.BTree),
		ids:   make(map[TransactionID]slotHandle),
	}
}

// Insert adds a transaction to the set.
// Inserting two different transactions with the same ID is not supported.
func (s *CanonicalTxSet) Insert(tx CanonicalTx) {
	if s.mode == STRIPED {
		s.insertStriped(tx)
	} else {
		s.insertBatched(tx)
	}
}

func (s *CanonicalTxSet) insertBatched(tx CanonicalTx) {
	key := Key{
		account:  saltAccount(tx.AccountID(), s.salt),
		seqProxy: tx.SeqProxy(),
		txID:     tx.TxID(),
	}
	s.insertEntry(key, tx)
}

// Insert a transaction so that it keeps its sequence order within the account while
// being followed by a transaction of a different account, if there are any.
//
//  1. Find the account's transaction that comes right before the new one. The new
//     transaction goes in the bucket after it, or bucket 0 if there's none.
//
//  2. Every transaction of the account that comes after the new one moves back one
//     bucket to make room.
//
//  3. Insert the transaction and a hint pointing at it.
func (s *CanonicalTxSet) insertStriped(tx CanonicalTx) {
	account := saltAccount(tx.AccountID(), s.salt)
	hints, ok := s.hints[account]
	if !ok {
		hints = btree.New(BTREE_DEGREE)
		s.hints[account] = hints
	}

	pivot := newHintItem(tx.SeqProxy(), tx.TxID())

	var bucket uint32
	hints.DescendLessOrEqual(pivot, func(i btree.Item) bool {
		prev := i.(hintItem)
		if !prev.Less(pivot) {
			// same transaction. keep looking
			return true
		}
		bucket = s.slots[prev.handle].key.bucket + 1
		return false
	})

	// collect first. the hint tree mustn't change underneath the iteration
	var following []slotHandle
	hints.AscendGreaterOrEqual(pivot, func(i btree.Item) bool {
		following = append(following, i.(hintItem).handle)
		return true
	})
	for _, handle := range following {
		s.moveToNextBucket(handle)
	}

	key := Key{
		bucket:   bucket,
		account:  account,
		seqProxy: tx.SeqProxy(),
		txID:     tx.TxID(),
	}
	pivot.handle = s.insertEntry(key, tx)
	hints.ReplaceOrInsert(pivot)
}

// moveToNextBucket re-keys a resident entry one bucket higher. The handle is unchanged
// so its hint stays valid.
func (s *CanonicalTxSet) moveToNextBucket(handle slotHandle) {
	slot := &s.slots[handle]
	s.txMap.Delete(primaryItem{key: slot.key})
	slot.key = slot.key.withBucketIncreased()
	s.txMap.ReplaceOrInsert(primaryItem{key: slot.key, handle: handle})
}

// PopAcctTransaction removes and returns the next transaction of tx's account that
// follows tx's sequence proxy in canonical order. Normally called after tx was
// successfully applied so the account's next transaction can be applied without waiting
// for ledger close.
//
// It returns nil when the account has no more transactions.
func (s *CanonicalTxSet) PopAcctTransaction(tx CanonicalTx) CanonicalTx {
	if s.mode == STRIPED {
		return s.popAcctTransactionStriped(tx)
	}
	return s.popAcctTransactionBatched(tx)
}

// Determining the next viable transaction for an account in BATCHED mode:
//
//  1. Transactions with sequences come before transactions with tickets.
//
//  2. Sequences don't need to be consecutive. Creating tickets leaves gaps.
//
//  3. After all transactions with sequences, tickets come lowest ticket first.
//
// The search starts at the zero transaction ID so any transaction sharing tx's
// sequence proxy is found as well.
func (s *CanonicalTxSet) popAcctTransactionBatched(tx CanonicalTx) CanonicalTx {
	account := saltAccount(tx.AccountID(), s.salt)
	after := primaryItem{key: Key{account: account, seqProxy: tx.SeqProxy()}}

	var next *primaryItem
	s.txMap.AscendGreaterOrEqual(after, func(i btree.Item) bool {
		item := i.(primaryItem)
		next = &item
		return false
	})
	if next == nil || next.key.account != account {
		return nil
	}
	return s.removeEntry(next.handle)
}

// Determining the next viable transaction for an account in STRIPED mode:
//
//  1. No hints for the account means it has no transactions in the set.
//
//  2. Take the first hint at or after tx's sequence proxy and ID and remove the
//     transaction from both indexes. Buckets aren't compacted afterwards.
func (s *CanonicalTxSet) popAcctTransactionStriped(tx CanonicalTx) CanonicalTx {
	account := saltAccount(tx.AccountID(), s.salt)
	hints, ok := s.hints[account]
	if !ok {
		return nil
	}

	var next *hintItem
	hints.AscendGreaterOrEqual(newHintItem(tx.SeqProxy(), tx.TxID()), func(i btree.Item) bool {
		item := i.(hintItem)
		next = &item
		return false
	})
	if next == nil {
		return nil
	}
	return s.removeEntry(next.handle)
}

// Reset empties the set and installs a new salt. The mode doesn't change.
func (s *CanonicalTxSet) Reset(salt LedgerHash) {
	s.salt = salt
	s.txMap.Clear(false)
	s.hints = make(map[AccountKey]*btree.BTree)
	s.ids = make(map[TransactionID]slotHandle)
	s.slots = nil
	s.free = nil
}

// Ascend calls iterator for each transaction in canonical order until it returns false.
// The set must not be modified from within iterator.
func (s *CanonicalTxSet) Ascend(iterator func(key Key, tx CanonicalTx) bool) {
	s.txMap.Ascend(func(i btree.Item) bool {
		item := i.(primaryItem)
		return iterator(item.key, s.slots[item.handle].tx)
	})
}

// Transactions returns the set's transactions in canonical order.
func (s *CanonicalTxSet) Transactions() []CanonicalTx {
	txs := make([]CanonicalTx, 0, s.txMap.Len())
	s.Ascend(func(_ Key, tx CanonicalTx) bool {
		txs = append(txs, tx)
		return true
	})
	return txs
}

// Lookup returns the transaction with the given ID and its current key.
func (s *CanonicalTxSet) Lookup(id TransactionID) (Key, CanonicalTx, bool) {
	handle, ok := s.ids[id]
	if !ok {
		return Key{}, nil, false
	}
	slot := s.slots[handle]
	return slot.key, slot.tx, true
}

// Erase removes the transaction at key. Keys are matched by transaction ID.
// The account's hint is removed as well so the indexes stay consistent.
func (s *CanonicalTxSet) Erase(key Key) (CanonicalTx, bool) {
	handle, ok := s.ids[key.txID]
	if !ok {
		return nil, false
	}
	return s.removeEntry(handle), true
}

// Front returns the first transaction in canonical order.
func (s *CanonicalTxSet) Front() (Key, CanonicalTx, bool) {
	first := s.txMap.Min()
	if first == nil {
		return Key{}, nil, false
	}
	item := first.(primaryItem)
	return item.key, s.slots[item.handle].tx, true
}

// PopFront removes and returns the first transaction in canonical order.
func (s *CanonicalTxSet) PopFront() CanonicalTx {
	first := s.txMap.Min()
	if first == nil {
		return nil
	}
	return s.removeEntry(first.(primaryItem).handle)
}

// Len returns the number of transactions in the set.
func (s *CanonicalTxSet) Len() int {
	return s.txMap.Len()
}

// Empty returns true if the set holds no transactions.
func (s *CanonicalTxSet) Empty() bool {
	return s.txMap.Len() == 0
}

// Salt returns the salt currently used to order accounts.
func (s *CanonicalTxSet) Salt() LedgerHash {
	return s.salt
}

// Mode returns the set's mode.
func (s *CanonicalTxSet) Mode() Mode {
	return s.mode
}

func (s *CanonicalTxSet) insertEntry(key Key, tx CanonicalTx) slotHandle {
	handle := s.alloc(key, tx)
	if replaced := s.txMap.ReplaceOrInsert(primaryItem{key: key, handle: handle}); replaced != nil {
		s.release(replaced.(primaryItem).handle)
	}
	s.ids[key.txID] = handle
	return handle
}

// removeEntry removes a resident entry from every index and frees its slot.
func (s *CanonicalTxSet) removeEntry(handle slotHandle) CanonicalTx {
	key := s.slots[handle].key
	s.txMap.Delete(primaryItem{key: key})
	if h, ok := s.ids[key.txID]; ok && h == handle {
		delete(s.ids, key.txID)
	}
	if hints, ok := s.hints[key.account]; ok {
		hints.Delete(newHintItem(key.seqProxy, key.txID))
		if hints.Len() == 0 {
			delete(s.hints, key.account)
		}
	}
	return s.release(handle)
}

func (s *CanonicalTxSet) alloc(key Key, tx CanonicalTx) slotHandle {
	if n := len(s.free); n > 0 {
		handle := s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[handle] = txSlot{key: key, tx: tx}
		return handle
	}
	s.slots = append(s.slots, txSlot{key: key, tx: tx})
	return slotHandle(len(s.slots) - 1)
}

func (s *CanonicalTxSet) release(handle slotHandle) CanonicalTx {
	tx := s.slots[handle].tx
	s.slots[handle] = txSlot{}
	s.free = append(s.free, handle)
	return tx
}

// verifyIndexes checks that the primary index, the hint index, the ID index and the
// slot arena all agree with each other.
func (s *CanonicalTxSet) verifyIndexes() error {
	if live := len(s.slots) - len(s.free); live != s.txMap.Len() {
		return fmt.Errorf("%d live slots for %d entries", live, s.txMap.Len())
	}
	if len(s.ids) != s.txMap.Len() {
		return fmt.Errorf("%d IDs indexed for %d entries", len(s.ids), s.txMap.Len())
	}

	var err error
	s.txMap.Ascend(func(i btree.Item) bool {
		item := i.(primaryItem)
		slot := s.slots[item.handle]
		if slot.tx == nil {
			err = fmt.Errorf("Entry %s points at a free slot", item.key)
			return false
		}
		if slot.key.Compare(item.key) != 0 {
			err = fmt.Errorf("Entry %s points at slot keyed %s", item.key, slot.key)
			return false
		}
		if handle, ok := s.ids[item.key.txID]; !ok || handle != item.handle {
			err = fmt.Errorf("Entry %s missing from the ID index", item.key)
			return false
		}
		if s.mode != STRIPED {
			return true
		}
		hints, ok := s.hints[item.key.account]
		if !ok {
			err = fmt.Errorf("Entry %s has no hints for its account", item.key)
			return false
		}
		hint := hints.Get(newHintItem(item.key.seqProxy, item.key.txID))
		if hint == nil || hint.(hintItem).handle != item.handle {
			err = fmt.Errorf("Entry %s has no matching hint", item.key)
			return false
		}
		return true
	})
	if err != nil {
		return err
	}

	if s.mode != STRIPED {
		if len(s.hints) != 0 {
			return fmt.Errorf("%d hinted accounts in %s mode", len(s.hints), s.mode)
		}
		return nil
	}

	var hinted int
	for account, hints := range s.hints {
		if hints.Len() == 0 {
			return fmt.Errorf("Empty hints for account %s", account)
		}
		hints.Ascend(func(i btree.Item) bool {
			hint := i.(hintItem)
			if slot := s.slots[hint.handle]; slot.tx == nil || slot.key.account != account {
				err = fmt.Errorf("Hint %s for account %s points at the wrong entry", hint.txID, account)
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
		hinted += hints.Len()
	}
	if hinted != s.txMap.Len() {
		return fmt.Errorf("%d hints for %d entries", hinted, s.txMap.Len())
	}
	return nil
}
