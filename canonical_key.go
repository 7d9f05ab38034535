// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package txset

import (
	"bytes"
	"fmt"

	"github.com/google/btree"
)

// Key is a transaction's position in canonical order.
// Keys compare by bucket, then salted account, then sequence proxy, then transaction ID.
type Key struct {
	bucket   uint32
	account  AccountKey
	seqProxy SeqProxy
	txID     TransactionID
}

// Bucket returns the key's round in STRIPED mode. It is always 0 in BATCHED mode.
func (k Key) Bucket() uint32 {
	return k.bucket
}

// Account returns the salted account.
func (k Key) Account() AccountKey {
	return k.account
}

// SeqProxy returns the transaction's sequence or ticket.
func (k Key) SeqProxy() SeqProxy {
	return k.seqProxy
}

// TxID returns the transaction's ID.
func (k Key) TxID() TransactionID {
	return k.txID
}

// Compare returns -1, 0 or 1 if k sorts before, equal to or after other.
func (k Key) Compare(other Key) int {
	switch {
	case k.bucket < other.bucket:
		return -1
	case k.bucket > other.bucket:
		return 1
	}
	if c := k.account.Compare(other.account); c != 0 {
		return c
	}
	if c := k.seqProxy.Compare(other.seqProxy); c != 0 {
		return c
	}
	return bytes.Compare(k.txID[:], other.txID[:])
}

// Less returns true if k sorts before other.
func (k Key) Less(other Key) bool {
	return k.Compare(other) < 0
}

// Equal returns true if both keys are for the same transaction.
// Only the transaction ID is considered.
func (k Key) Equal(other Key) bool {
	return k.txID == other.txID
}

// String implements the Stringer interface.
func (k Key) String() string {
	return fmt.Sprintf("%d/%s/%s/%s", k.bucket, k.account, k.seqProxy, k.txID)
}

// withBucketIncreased returns a copy of the key moved to the next round.
func (k Key) withBucketIncreased() Key {
	k.bucket++
	return k
}

// primaryItem is an entry in the canonical order index.
type primaryItem struct {
	key    Key
	handle slotHandle
}

// Less implements btree.Item.
func (p primaryItem) Less(than btree.Item) bool {
	return p.key.Less(than.(primaryItem).key)
}

// hintItem is an entry in an account's hint index. It orders by sequence proxy and
// transaction ID only, which makes it independent of the entry's current bucket.
type hintItem struct {
	seqProxy SeqProxy
	txID     TransactionID
	handle   slotHandle
}

func newHintItem(seqProxy SeqProxy, txID TransactionID) hintItem {
	return hintItem{seqProxy: seqProxy, txID: txID}
}

// Less implements btree.Item.
func (h hintItem) Less(than btree.Item) bool {
	other := than.(hintItem)
	if c := h.seqProxy.Compare(other.seqProxy); c != 0 {
		return c < 0
	}
	return bytes.Compare(h.txID[:], other.txID[:]) < 0
}
