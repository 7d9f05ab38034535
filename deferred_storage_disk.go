// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package txset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/buger/jsonparser"
	"github.com/pierrec/lz4"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// DeferredStorageDisk is an on-disk DeferredStorage implementation using LevelDB.
type DeferredStorageDisk struct {
	db       *leveldb.DB
	readOnly bool
	compress bool
}

// NewDeferredStorageDisk returns a new instance of on-disk deferred set storage.
func NewDeferredStorageDisk(dbPath string, readOnly, compress bool) (*DeferredStorageDisk, error) {
	opts := opt.Options{ReadOnly: readOnly}
	db, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, err
	}
	return &DeferredStorageDisk{
		db:       db,
		readOnly: readOnly,
		compress: compress,
	}, nil
}

// leveldb schema: {ledger hash} -> {format byte}{json or lz4 compressed json}

const (
	deferredFormatJSON byte = iota
	deferredFormatLZ4
)

type storedDeferredSet struct {
	Ledger       LedgerHash     `json:"ledger"`
	Salt         LedgerHash     `json:"salt"`
	Mode         string         `json:"mode"`
	Count        int            `json:"count"`
	Transactions []*Transaction `json:"transactions"`
}

// Store saves the set deferred past the given ledger, replacing any previous one.
// Transactions are written in canonical order.
func (d DeferredStorageDisk) Store(ledger LedgerHash, set *CanonicalTxSet) error {
	if d.readOnly {
		return fmt.Errorf("Deferred storage is in read-only mode")
	}

	stored := storedDeferredSet{
		Ledger:       ledger,
		Salt:         set.Salt(),
		Mode:         set.Mode().String(),
		Count:        set.Len(),
		Transactions: make([]*Transaction, 0, set.Len()),
	}
	var err error
	set.Ascend(func(_ Key, tx CanonicalTx) bool {
		deferred, ok := tx.(*DeferredTransaction)
		if !ok {
			err = fmt.Errorf("Unsupported transaction type %T", tx)
			return false
		}
		stored.Transactions = append(stored.Transactions, deferred.Transaction())
		return true
	})
	if err != nil {
		return err
	}

	setJson, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	value := new(bytes.Buffer)
	if d.compress {
		// compress with lz4
		value.WriteByte(deferredFormatLZ4)
		zw := lz4.NewWriter(value)
		if _, err := io.Copy(zw, bytes.NewReader(setJson)); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
	} else {
		value.WriteByte(deferredFormatJSON)
		value.Write(setJson)
	}

	wo := opt.WriteOptions{Sync: true}
	return d.db.Put(ledger[:], value.Bytes(), &wo)
}

// Load returns a new set holding the stored transactions or nil if there's none.
// Transactions are re-inserted under the stored salt and mode.
func (d DeferredStorageDisk) Load(ledger LedgerHash) (*CanonicalTxSet, error) {
	setJson, err := d.getSetJson(ledger)
	if err != nil || setJson == nil {
		return nil, err
	}

	info, err := decodeDeferredInfo(setJson)
	if err != nil {
		return nil, err
	}

	set := NewCanonicalTxSet(info.Salt, info.Mode)
	var txErr error
	_, err = jsonparser.ArrayEach(setJson, func(value []byte, _ jsonparser.ValueType, _ int, err error) {
		if txErr != nil {
			return
		}
		if err != nil {
			txErr = err
			return
		}
		tx := new(Transaction)
		if err := json.Unmarshal(value, tx); err != nil {
			txErr = err
			return
		}
		deferred, err := NewDeferredTransaction(tx)
		if err != nil {
			txErr = err
			return
		}
		set.Insert(deferred)
	}, "transactions")
	if err != nil {
		return nil, err
	}
	if txErr != nil {
		return nil, txErr
	}
	if int64(set.Len()) != info.Count {
		return nil, fmt.Errorf("Deferred set for ledger %s has %d transactions, expected %d",
			ledger, set.Len(), info.Count)
	}
	return set, nil
}

// GetInfo returns a description of the stored set or nil if there's none.
// The transactions themselves are never decoded.
func (d DeferredStorageDisk) GetInfo(ledger LedgerHash) (*DeferredInfo, error) {
	setJson, err := d.getSetJson(ledger)
	if err != nil || setJson == nil {
		return nil, err
	}
	return decodeDeferredInfo(setJson)
}

// Delete removes the set stored for the given ledger.
func (d DeferredStorageDisk) Delete(ledger LedgerHash) error {
	if d.readOnly {
		return fmt.Errorf("Deferred storage is in read-only mode")
	}
	wo := opt.WriteOptions{Sync: true}
	return d.db.Delete(ledger[:], &wo)
}

// Ledgers returns the ledger hashes sets are stored for.
func (d DeferredStorageDisk) Ledgers() ([]LedgerHash, error) {
	var ledgers []LedgerHash
	iter := d.db.NewIterator(nil, nil)
	for iter.Next() {
		if len(iter.Key()) != len(LedgerHash{}) {
			iter.Release()
			return nil, fmt.Errorf("Invalid deferred set key length %d", len(iter.Key()))
		}
		var ledger LedgerHash
		copy(ledger[:], iter.Key())
		ledgers = append(ledgers, ledger)
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return ledgers, nil
}

// Close is called to close any underlying storage.
func (d *DeferredStorageDisk) Close() error {
	return d.db.Close()
}

func (d DeferredStorageDisk) getSetJson(ledger LedgerHash) ([]byte, error) {
	value, err := d.db.Get(ledger[:], nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, fmt.Errorf("Empty deferred set for ledger %s", ledger)
	}

	switch value[0] {
	case deferredFormatJSON:
		return value[1:], nil

	case deferredFormatLZ4:
		// uncompress
		out := new(bytes.Buffer)
		zr := lz4.NewReader(bytes.NewReader(value[1:]))
		if _, err := io.Copy(out, zr); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	}
	return nil, fmt.Errorf("Unknown deferred set format %d for ledger %s", value[0], ledger)
}

// pick the header fields out without unmarshaling the transactions
func decodeDeferredInfo(setJson []byte) (*DeferredInfo, error) {
	info := new(DeferredInfo)

	ledgerHex, err := jsonparser.GetString(setJson, "ledger")
	if err != nil {
		return nil, err
	}
	if err := info.Ledger.SetString(ledgerHex); err != nil {
		return nil, err
	}

	saltHex, err := jsonparser.GetString(setJson, "salt")
	if err != nil {
		return nil, err
	}
	if err := info.Salt.SetString(saltHex); err != nil {
		return nil, err
	}

	modeName, err := jsonparser.GetString(setJson, "mode")
	if err != nil {
		return nil, err
	}
	if info.Mode, err = ParseMode(modeName); err != nil {
		return nil, err
	}

	if info.Count, err = jsonparser.GetInt(setJson, "count"); err != nil {
		return nil, err
	}
	return info, nil
}
