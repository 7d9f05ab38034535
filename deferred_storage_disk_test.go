// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package txset

import (
	"path/filepath"
	"testing"
)

func newTestDeferredSet(t *testing.T, salt LedgerHash, mode Mode) *CanonicalTxSet {
	t.Helper()
	alice, bob, carol := newTestKey(t), newTestKey(t), newTestKey(t)
	set := NewCanonicalTxSet(salt, mode)
	set.Insert(newDeferred(t, alice, bob, 10, 1, NewSequenceProxy(1)))
	set.Insert(newDeferred(t, alice, carol, 20, 1, NewSequenceProxy(2)))
	set.Insert(newDeferred(t, alice, carol, 30, 1, NewTicketProxy(7)))
	set.Insert(newDeferred(t, bob, carol, 5, 0, NewSequenceProxy(1)))
	set.Insert(newDeferred(t, carol, alice, 1, 0, NewSequenceProxy(4)))
	return set
}

func TestDeferredStorageDisk(t *testing.T) {
	for _, compress := range []bool{false, true} {
		dbPath := filepath.Join(t.TempDir(), "deferred.db")
		storage, err := NewDeferredStorageDisk(dbPath, false, compress)
		if err != nil {
			t.Fatal(err)
		}

		ledger := LedgerHash{0x01}
		set := newTestDeferredSet(t, ledger, STRIPED)
		if err := storage.Store(ledger, set); err != nil {
			t.Fatal(err)
		}

		info, err := storage.GetInfo(ledger)
		if err != nil {
			t.Fatal(err)
		}
		if info == nil {
			t.Fatal("Expected info for the stored set")
		}
		if info.Ledger != ledger || info.Salt != ledger || info.Mode != STRIPED || info.Count != 5 {
			t.Fatalf("Unexpected info %+v", info)
		}

		loaded, err := storage.Load(ledger)
		if err != nil {
			t.Fatal(err)
		}
		if loaded.Salt() != set.Salt() || loaded.Mode() != set.Mode() {
			t.Fatal("Salt or mode not restored")
		}
		expect := txIDs(set.Transactions())
		found := txIDs(loaded.Transactions())
		if len(found) != len(expect) {
			t.Fatalf("Expected %d transactions, found %d", len(expect), len(found))
		}
		for i := range expect {
			if expect[i] != found[i] {
				t.Fatalf("Position %d differs after loading", i)
			}
		}

		// nothing stored
		missing := LedgerHash{0x02}
		if s, err := storage.Load(missing); err != nil || s != nil {
			t.Fatal("Expected nothing for an unknown ledger")
		}
		if i, err := storage.GetInfo(missing); err != nil || i != nil {
			t.Fatal("Expected no info for an unknown ledger")
		}

		// a second set
		if err := storage.Store(missing, NewCanonicalTxSet(missing, BATCHED)); err != nil {
			t.Fatal(err)
		}
		ledgers, err := storage.Ledgers()
		if err != nil {
			t.Fatal(err)
		}
		if len(ledgers) != 2 || ledgers[0] != ledger || ledgers[1] != missing {
			t.Fatalf("Unexpected ledgers %v", ledgers)
		}
		empty, err := storage.Load(missing)
		if err != nil {
			t.Fatal(err)
		}
		if empty == nil || !empty.Empty() || empty.Mode() != BATCHED {
			t.Fatal("Expected an empty batched set")
		}

		if err := storage.Delete(missing); err != nil {
			t.Fatal(err)
		}
		if s, err := storage.Load(missing); err != nil || s != nil {
			t.Fatal("Expected the set to be deleted")
		}

		if err := storage.Close(); err != nil {
			t.Fatal(err)
		}

		// read-only
		storage, err = NewDeferredStorageDisk(dbPath, true, false)
		if err != nil {
			t.Fatal(err)
		}
		if info, err := storage.GetInfo(ledger); err != nil || info == nil || info.Count != 5 {
			t.Fatal("Expected the stored set in read-only mode")
		}
		if err := storage.Store(ledger, set); err == nil {
			t.Fatal("Expected an error storing in read-only mode")
		}
		if err := storage.Delete(ledger); err == nil {
			t.Fatal("Expected an error deleting in read-only mode")
		}
		if err := storage.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDeferredStorageDiskUnsupported(t *testing.T) {
	storage, err := NewDeferredStorageDisk(filepath.Join(t.TempDir(), "deferred.db"), false, true)
	if err != nil {
		t.Fatal(err)
	}
	defer storage.Close()

	set := NewCanonicalTxSet(LedgerHash{}, BATCHED)
	set.Insert(newTestTx(alice, NewSequenceProxy(1), 0x01))
	if err := storage.Store(LedgerHash{}, set); err == nil {
		t.Fatal("Expected an error storing a transaction without a body")
	}
}
