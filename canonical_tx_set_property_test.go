// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package txset

import (
	"testing"

	"pgregory.net/rapid"
)

func drawSalt(t *rapid.T) LedgerHash {
	var salt LedgerHash
	copy(salt[:], rapid.SliceOfN(rapid.Byte(), len(salt), len(salt)).Draw(t, "salt"))
	return salt
}

// draw transactions with unique IDs from a handful of accounts
func drawTestTxs(t *rapid.T, max int) []*testTx {
	n := rapid.IntRange(0, max).Draw(t, "n")
	txs := make([]*testTx, n)
	for i := range txs {
		account := rapid.ByteRange(1, 5).Draw(t, "account")
		value := rapid.Uint32Range(0, 6).Draw(t, "value")
		seqProxy := NewSequenceProxy(value)
		if rapid.Bool().Draw(t, "ticket") {
			seqProxy = NewTicketProxy(value)
		}
		txs[i] = &testTx{
			account:  AccountID{account},
			seqProxy: seqProxy,
			id:       TransactionID{byte(i >> 8), byte(i)},
		}
	}
	return txs
}

func TestCanonicalOrderIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		salt := drawSalt(t)
		mode := rapid.SampledFrom([]Mode{BATCHED, STRIPED}).Draw(t, "mode")
		txs := drawTestTxs(t, 40)
		shuffled := rapid.Permutation(txs).Draw(t, "shuffled")

		first := NewCanonicalTxSet(salt, mode)
		for _, tx := range txs {
			first.Insert(tx)
		}
		second := NewCanonicalTxSet(salt, mode)
		for _, tx := range shuffled {
			second.Insert(tx)
		}

		expect := txIDs(first.Transactions())
		found := txIDs(second.Transactions())
		if len(expect) != len(txs) || len(found) != len(txs) {
			t.Fatalf("Expected %d transactions, found %d and %d", len(txs), len(expect), len(found))
		}
		for i := range expect {
			if expect[i] != found[i] {
				t.Fatalf("Position %d differs: %s vs %s", i, expect[i], found[i])
			}
		}
	})
}

func TestSaltKeepsAccountOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mode := rapid.SampledFrom([]Mode{BATCHED, STRIPED}).Draw(t, "mode")
		txs := drawTestTxs(t, 30)

		// per account order under two different salts
		perAccount := func(salt LedgerHash) map[AccountID][]TransactionID {
			set := NewCanonicalTxSet(salt, mode)
			for _, tx := range txs {
				set.Insert(tx)
			}
			m := make(map[AccountID][]TransactionID)
			for _, tx := range set.Transactions() {
				m[tx.AccountID()] = append(m[tx.AccountID()], tx.TxID())
			}
			return m
		}
		expect := perAccount(drawSalt(t))
		found := perAccount(drawSalt(t))

		for account, ids := range expect {
			if len(found[account]) != len(ids) {
				t.Fatalf("Account %s has %d transactions, expected %d", account, len(found[account]), len(ids))
			}
			for i := range ids {
				if ids[i] != found[account][i] {
					t.Fatalf("Account %s position %d differs", account, i)
				}
			}
		}
	})
}

func TestStripedRoundRobin(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		txs := drawTestTxs(t, 40)
		set := NewCanonicalTxSet(drawSalt(t), STRIPED)
		for _, tx := range rapid.Permutation(txs).Draw(t, "shuffled") {
			set.Insert(tx)
		}

		// without pops an account's n-th transaction lands in bucket n-1
		// and buckets never decrease along the canonical order
		seen := make(map[AccountID]uint32)
		var last uint32
		set.Ascend(func(key Key, tx CanonicalTx) bool {
			if key.Bucket() != seen[tx.AccountID()] {
				t.Fatalf("Transaction %s in bucket %d, expected %d",
					key.TxID(), key.Bucket(), seen[tx.AccountID()])
			}
			if key.Bucket() < last {
				t.Fatalf("Bucket went backwards at %s", key.TxID())
			}
			seen[tx.AccountID()]++
			last = key.Bucket()
			return true
		})
	})
}

func TestIndexesStayConsistent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mode := rapid.SampledFrom([]Mode{BATCHED, STRIPED}).Draw(t, "mode")
		txs := drawTestTxs(t, 40)
		set := NewCanonicalTxSet(drawSalt(t), mode)

		resident := make(map[TransactionID]*testTx)
		var pending []*testTx
		pending = append(pending, rapid.Permutation(txs).Draw(t, "shuffled")...)

		steps := rapid.IntRange(0, 80).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				if len(pending) == 0 {
					continue
				}
				tx := pending[0]
				pending = pending[1:]
				set.Insert(tx)
				resident[tx.id] = tx

			case 1:
				if len(txs) == 0 {
					continue
				}
				ref := rapid.SampledFrom(txs).Draw(t, "ref")
				if tx := set.PopAcctTransaction(ref); tx != nil {
					if tx.AccountID() != ref.account {
						t.Fatalf("Popped %s for the wrong account", tx.TxID())
					}
					if _, ok := resident[tx.TxID()]; !ok {
						t.Fatalf("Popped %s which isn't resident", tx.TxID())
					}
					delete(resident, tx.TxID())
				}

			case 2:
				if len(txs) == 0 {
					continue
				}
				target := rapid.SampledFrom(txs).Draw(t, "target")
				key, _, ok := set.Lookup(target.id)
				if _, expect := resident[target.id]; ok != expect {
					t.Fatalf("Lookup of %s returned %v", target.id, ok)
				}
				if ok {
					set.Erase(key)
					delete(resident, target.id)
				}

			case 3:
				if tx := set.PopFront(); tx != nil {
					delete(resident, tx.TxID())
				}
			}

			if err := set.verifyIndexes(); err != nil {
				t.Fatal(err)
			}
			if set.Len() != len(resident) {
				t.Fatalf("Set holds %d transactions, expected %d", set.Len(), len(resident))
			}
		}

		// each account's transactions still come out in sequence proxy order
		last := make(map[AccountID]*testTx)
		set.Ascend(func(_ Key, tx CanonicalTx) bool {
			cur := tx.(*testTx)
			if prev, ok := last[cur.account]; ok &&
				newHintItem(cur.seqProxy, cur.id).Less(newHintItem(prev.seqProxy, prev.id)) {
				t.Fatalf("Account %s out of order at %s", cur.account, cur.id)
			}
			last[cur.account] = cur
			return true
		})
	})
}
