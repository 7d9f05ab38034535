// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package txset

// CanonicalTx is the view of a transaction a CanonicalTxSet needs to order it.
// Implementations must be immutable while held by a set.
type CanonicalTx interface {
	// AccountID returns the sending account.
	AccountID() AccountID

	// SeqProxy returns the transaction's sequence or ticket.
	SeqProxy() SeqProxy

	// TxID returns the transaction's unique identifier.
	TxID() TransactionID
}

// DeferredTransaction is a validated transaction held over to a later pass of consensus.
// The ID and account are computed once so ordering never has to rehash.
type DeferredTransaction struct {
	id      TransactionID
	account AccountID
	tx      *Transaction
}

// NewDeferredTransaction wraps a transaction for inclusion in a CanonicalTxSet.
// The transaction must not be modified afterwards.
func NewDeferredTransaction(tx *Transaction) (*DeferredTransaction, error) {
	id, err := tx.ID()
	if err != nil {
		return nil, err
	}
	return &DeferredTransaction{
		id:      id,
		account: tx.AccountID(),
		tx:      tx,
	}, nil
}

// AccountID implements CanonicalTx.
func (d *DeferredTransaction) AccountID() AccountID {
	return d.account
}

// SeqProxy implements CanonicalTx.
func (d *DeferredTransaction) SeqProxy() SeqProxy {
	return d.tx.SeqProxy()
}

// TxID implements CanonicalTx.
func (d *DeferredTransaction) TxID() TransactionID {
	return d.id
}

// Transaction returns the underlying transaction.
func (d *DeferredTransaction) Transaction() *Transaction {
	return d.tx
}
