// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package txset

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// LedgerHash identifies a ledger. The hash of the ledger a round builds on is used as
// the salt for that round's CanonicalTxSet.
type LedgerHash [32]byte

// AccountKey is an account ID widened to 256 bits and salted.
// It is what accounts are ordered by.
type AccountKey [32]byte

// saltAccount computes the ordering key for an account. The account ID is copied into
// the leading bytes of a zero value and the salt is XORed over the whole thing.
func saltAccount(account AccountID, salt LedgerHash) AccountKey {
	var key AccountKey
	copy(key[:], account[:])
	for i := range key {
		key[i] ^= salt[i]
	}
	return key
}

// Compare returns -1, 0 or 1 if k sorts before, equal to or after other.
func (k AccountKey) Compare(other AccountKey) int {
	return bytes.Compare(k[:], other[:])
}

// String implements the Stringer interface.
func (k AccountKey) String() string {
	return hex.EncodeToString(k[:])
}

// String implements the Stringer interface.
func (h LedgerHash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalJSON marshals LedgerHash as a hex string.
func (h LedgerHash) MarshalJSON() ([]byte, error) {
	return []byte("\"" + h.String() + "\""), nil
}

// UnmarshalJSON unmarshals a hex string to LedgerHash.
func (h *LedgerHash) UnmarshalJSON(b []byte) error {
	if len(b) != 64+2 {
		return fmt.Errorf("Invalid ledger hash")
	}
	return h.SetString(string(b[1 : len(b)-1]))
}

// SetString parses a hex encoded ledger hash.
func (h *LedgerHash) SetString(s string) error {
	if len(s) != 64 {
		return fmt.Errorf("Invalid ledger hash length %d", len(s))
	}
	hashBytes, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	copy(h[:], hashBytes)
	return nil
}
