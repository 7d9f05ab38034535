// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package txset

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"
)

// Transaction represents a ledger transaction. It transfers value from one account to another.
// It is ordered against other transactions from the same account by its sequence or ticket.
type Transaction struct {
	Time           int64             `json:"time"`
	Nonce          int32             `json:"nonce"` // collision prevention. pseudorandom. not used for crypto
	From           ed25519.PublicKey `json:"from"`
	To             ed25519.PublicKey `json:"to"`
	Amount         int64             `json:"amount"`
	Fee            int64             `json:"fee,omitempty"`
	Memo           string            `json:"memo,omitempty"` // max 100 characters
	Sequence       uint32            `json:"sequence,omitempty"`
	TicketSequence uint32            `json:"ticket_sequence,omitempty"` // only used when sequence is 0
	Signature      Signature         `json:"signature,omitempty"`
}

// TransactionID is a transaction's unique identifier.
type TransactionID [32]byte // SHA3-256 hash

// AccountID identifies the account sending a transaction.
type AccountID [20]byte

// Signature is a transaction's signature.
type Signature []byte

// NewTransaction returns a new unsigned transaction.
func NewTransaction(from, to ed25519.PublicKey, amount, fee int64, seqProxy SeqProxy, memo string) *Transaction {
	tx := &Transaction{
		Time:   time.Now().Unix(),
		Nonce:  rand.Int31(),
		From:   from,
		To:     to,
		Amount: amount,
		Fee:    fee,
		Memo:   memo,
	}
	if seqProxy.IsTicket() {
		tx.TicketSequence = seqProxy.Value()
	} else {
		tx.Sequence = seqProxy.Value()
	}
	return tx
}

// ID computes an ID for a given transaction.
func (tx Transaction) ID() (TransactionID, error) {
	// never include the signature in the ID
	// this way we never have to think about signature malleability
	tx.Signature = nil
	txJson, err := json.Marshal(tx)
	if err != nil {
		return TransactionID{}, err
	}
	return sha3.Sum256([]byte(txJson)), nil
}

// Sign is called to sign a transaction.
func (tx *Transaction) Sign(privKey ed25519.PrivateKey) error {
	id, err := tx.ID()
	if err != nil {
		return err
	}
	tx.Signature = ed25519.Sign(privKey, id[:])
	return nil
}

// Verify is called to verify only that the transaction is properly signed.
func (tx Transaction) Verify() (bool, error) {
	id, err := tx.ID()
	if err != nil {
		return false, err
	}
	return ed25519.Verify(tx.From, id[:], tx.Signature), nil
}

// SeqProxy returns the transaction's ticket if it uses one, otherwise its sequence.
func (tx Transaction) SeqProxy() SeqProxy {
	if tx.Sequence == 0 && tx.TicketSequence != 0 {
		return NewTicketProxy(tx.TicketSequence)
	}
	return NewSequenceProxy(tx.Sequence)
}

// AccountID returns the sending account's ID.
func (tx Transaction) AccountID() AccountID {
	return AccountIDFromPublicKey(tx.From)
}

// AccountIDFromPublicKey derives an account ID from a public key.
func AccountIDFromPublicKey(pubKey ed25519.PublicKey) AccountID {
	var id AccountID
	hash := sha3.Sum256(pubKey)
	copy(id[:], hash[:len(id)])
	return id
}

// String implements the Stringer interface.
func (id TransactionID) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalJSON marshals TransactionID as a hex string.
func (id TransactionID) MarshalJSON() ([]byte, error) {
	s := "\"" + id.String() + "\""
	return []byte(s), nil
}

// UnmarshalJSON unmarshals a hex string to TransactionID.
func (id *TransactionID) UnmarshalJSON(b []byte) error {
	if len(b) != 64+2 {
		return fmt.Errorf("Invalid transaction ID")
	}
	idBytes, err := hex.DecodeString(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	copy(id[:], idBytes)
	return nil
}

// String implements the Stringer interface.
func (id AccountID) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalJSON marshals AccountID as a hex string.
func (id AccountID) MarshalJSON() ([]byte, error) {
	return []byte("\"" + id.String() + "\""), nil
}

// UnmarshalJSON unmarshals a hex string to AccountID.
func (id *AccountID) UnmarshalJSON(b []byte) error {
	if len(b) != 40+2 {
		return fmt.Errorf("Invalid account ID")
	}
	idBytes, err := hex.DecodeString(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	copy(id[:], idBytes)
	return nil
}
