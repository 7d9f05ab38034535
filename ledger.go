// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package txset

// AccountInfo is the ledger state of an account that deferred transactions depend on.
type AccountInfo struct {
	Balance  int64    `json:"balance"`
	Sequence uint32   `json:"sequence"`          // the next sequence number the account may use
	Tickets  []uint32 `json:"tickets,omitempty"` // tickets created and not yet consumed
}

// AccountState is an interface to the last closed ledger's accounts.
type AccountState interface {
	// GetAccountInfo returns the state of the given account or nil if it doesn't exist.
	GetAccountInfo(id AccountID) (*AccountInfo, error)
}

// ApplyResult indicates the outcome of applying a transaction to an open ledger.
// Values are: APPLY_SUCCESS, APPLY_RETRY or APPLY_FAIL.
type ApplyResult int

const (
	APPLY_SUCCESS ApplyResult = iota
	APPLY_RETRY               // may succeed later in the round
	APPLY_FAIL                // can never succeed against this ledger
)

// String implements the Stringer interface.
func (r ApplyResult) String() string {
	switch r {
	case APPLY_SUCCESS:
		return "success"
	case APPLY_RETRY:
		return "retry"
	case APPLY_FAIL:
		return "fail"
	}
	return "unknown"
}
