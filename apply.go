// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package txset

import (
	"log"
	"time"
)

// ApplyFunc applies a single transaction to an open ledger.
type ApplyFunc func(tx CanonicalTx) (ApplyResult, error)

// ApplyStats summarizes a call to ApplyDeferred.
type ApplyStats struct {
	Applied []TransactionID // in the order they were applied
	Failed  []TransactionID
	Passes  int
}

// ApplyDeferred applies the set's transactions in canonical order. Applied and failed
// transactions are removed from the set. Transactions to retry stay for the next pass,
// and whatever is still in the set afterwards is left for the next round.
//
// After a transaction applies, its account's following transactions are popped and
// applied right away instead of waiting for the next pass.
func ApplyDeferred(set *CanonicalTxSet, apply ApplyFunc) (*ApplyStats, error) {
	stats := new(ApplyStats)
	before := time.Now().UnixNano()

	for stats.Passes < MAX_APPLY_PASSES && !set.Empty() {
		stats.Passes++
		changes := 0

		// snapshot the order first. applying pops and re-inserts entries
		var ids []TransactionID
		set.Ascend(func(key Key, _ CanonicalTx) bool {
			ids = append(ids, key.TxID())
			return true
		})

		for _, id := range ids {
			key, tx, ok := set.Lookup(id)
			if !ok {
				// popped and applied by an earlier transaction of the same account
				continue
			}
			result, err := apply(tx)
			if err != nil {
				return stats, err
			}

			switch result {
			case APPLY_SUCCESS:
				set.Erase(key)
				stats.Applied = append(stats.Applied, id)
				changes++
				n, err := applyAccountSuccessors(set, tx, apply, stats)
				if err != nil {
					return stats, err
				}
				changes += n

			case APPLY_FAIL:
				set.Erase(key)
				stats.Failed = append(stats.Failed, id)
				changes++
			}
		}

		if changes == 0 {
			break
		}
	}

	after := time.Now().UnixNano()
	log.Printf("Applied %d deferred transaction(s), %d failed, %d remain, %d pass(es), took %d ms\n",
		len(stats.Applied), len(stats.Failed), set.Len(), stats.Passes,
		(after-before)/int64(time.Millisecond))
	return stats, nil
}

// Apply the account's transactions following tx until one has to wait.
func applyAccountSuccessors(set *CanonicalTxSet, tx CanonicalTx, apply ApplyFunc, stats *ApplyStats) (
	int, error) {
	changes := 0
	for next := set.PopAcctTransaction(tx); next != nil; next = set.PopAcctTransaction(tx) {
		result, err := apply(next)
		if err != nil {
			// put it back so the caller still sees it
			set.Insert(next)
			return changes, err
		}

		switch result {
		case APPLY_SUCCESS:
			stats.Applied = append(stats.Applied, next.TxID())
			changes++
			tx = next

		case APPLY_FAIL:
			stats.Failed = append(stats.Failed, next.TxID())
			changes++
			tx = next

		case APPLY_RETRY:
			set.Insert(next)
			return changes, nil
		}
	}
	return changes, nil
}
