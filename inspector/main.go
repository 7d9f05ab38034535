// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	. "github.com/cruzbit/txset"
	"github.com/logrusorgru/aurora"
)

// A small tool to inspect stored deferred transaction sets offline
func main() {
	var commands = []string{
		"ledgers", "info", "order", "verify",
	}

	dataDirPtr := flag.String("datadir", "", "Path to a directory containing deferred transaction data")
	ledgerPtr := flag.String("ledger", "", "Hex encoded ledger hash")
	cmdPtr := flag.String("command", "ledgers", "Commands: "+strings.Join(commands, ", "))
	flag.Parse()

	if len(*dataDirPtr) == 0 {
		log.Printf("You must specify a -datadir\n")
		os.Exit(-1)
	}

	var ledger *LedgerHash
	if len(*ledgerPtr) != 0 {
		ledger = new(LedgerHash)
		if err := ledger.SetString(*ledgerPtr); err != nil {
			log.Fatal(err)
		}
	}

	// instantiate deferred storage (read-only)
	storage, err := NewDeferredStorageDisk(
		filepath.Join(*dataDirPtr, "deferred.db"),
		true,  // read-only
		false, // compress (if a set is compressed storage will figure it out)
	)
	if err != nil {
		log.Fatal(err)
	}

	switch *cmdPtr {
	case "ledgers":
		ledgers, err := storage.Ledgers()
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Deferred sets stored for %d ledger(s)\n", aurora.Bold(len(ledgers)))
		for _, l := range ledgers {
			fmt.Println(l)
		}

	case "info":
		if ledger == nil {
			log.Fatal("-ledger required for \"info\" command")
		}
		info, err := storage.GetInfo(*ledger)
		if err != nil {
			log.Fatal(err)
		}
		if info == nil {
			log.Fatalf("No deferred set stored for ledger %s\n", *ledger)
		}
		log.Printf("Ledger %s: %d transaction(s), mode %s, salt %s\n",
			info.Ledger, aurora.Bold(info.Count), aurora.Bold(info.Mode), info.Salt)

	case "order":
		if ledger == nil {
			log.Fatal("-ledger required for \"order\" command")
		}
		set := loadSet(storage, *ledger)
		displayOrder(set)

	case "verify":
		if ledger == nil {
			log.Fatal("-ledger required for \"verify\" command")
		}
		set := loadSet(storage, *ledger)
		verify(set)
	}

	// close storage
	if err := storage.Close(); err != nil {
		log.Println(err)
	}
}

func loadSet(storage DeferredStorage, ledger LedgerHash) *CanonicalTxSet {
	set, err := storage.Load(ledger)
	if err != nil {
		log.Fatal(err)
	}
	if set == nil {
		log.Fatalf("No deferred set stored for ledger %s\n", ledger)
	}
	return set
}

type orderedTx struct {
	Position    int           `json:"position"`
	Bucket      uint32        `json:"bucket"`
	Account     AccountID     `json:"account"`
	SeqProxy    SeqProxy      `json:"seq_proxy"`
	ID          TransactionID `json:"transaction_id"`
	Transaction *Transaction  `json:"transaction,omitempty"`
}

func displayOrder(set *CanonicalTxSet) {
	var txs []orderedTx
	set.Ascend(func(key Key, tx CanonicalTx) bool {
		o := orderedTx{
			Position: len(txs),
			Bucket:   key.Bucket(),
			Account:  tx.AccountID(),
			SeqProxy: key.SeqProxy(),
			ID:       key.TxID(),
		}
		if deferred, ok := tx.(*DeferredTransaction); ok {
			o.Transaction = deferred.Transaction()
		}
		txs = append(txs, o)
		return true
	})

	txsJson, err := json.MarshalIndent(txs, "", "    ")
	if err != nil {
		panic(err)
	}

	fmt.Println(string(txsJson))
}

// Re-insert the stored transactions in reverse into a fresh set and make sure the
// canonical order doesn't depend on insertion order
func verify(set *CanonicalTxSet) {
	txs := set.Transactions()
	check := NewCanonicalTxSet(set.Salt(), set.Mode())
	for i := len(txs) - 1; i >= 0; i-- {
		check.Insert(txs[i])
	}
	found := check.Transactions()

	for i := range txs {
		if txs[i].TxID() != found[i].TxID() {
			log.Fatalf("%s: Position %d holds %s, expected %s\n",
				aurora.Bold(aurora.Red("FAILURE")),
				aurora.Bold(i),
				found[i].TxID(),
				txs[i].TxID())
		}
	}

	log.Printf("%s: %d transaction(s) in the same canonical order\n",
		aurora.Bold(aurora.Green("SUCCESS")),
		aurora.Bold(len(txs)))
}
