// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package txset

import (
	"fmt"
)

// OpenLedger maintains a partial view of the ledger being built from deferred transactions.
// Account state is read from the last closed ledger on first use and updated in memory
// as transactions are applied.
type OpenLedger struct {
	state AccountState
	cache map[AccountID]*AccountInfo
}

// NewOpenLedger returns a new instance of an OpenLedger.
func NewOpenLedger(state AccountState) *OpenLedger {
	o := &OpenLedger{state: state}
	o.Reset()
	return o
}

// Reset discards all applied effects.
func (o *OpenLedger) Reset() {
	o.cache = make(map[AccountID]*AccountInfo)
}

// Apply applies the effect of the transaction to the involved accounts.
// A transaction that comes too early for its account's sequence, uses a ticket that
// doesn't exist yet or can't be paid for yet is left for a later pass.
func (o *OpenLedger) Apply(ctx CanonicalTx) (ApplyResult, error) {
	d, ok := ctx.(*DeferredTransaction)
	if !ok {
		return APPLY_FAIL, fmt.Errorf("Unsupported transaction type %T", ctx)
	}
	tx := d.Transaction()

	if len(tx.Memo) > MAX_MEMO_LENGTH {
		return APPLY_FAIL, nil
	}
	if tx.Amount < 0 || tx.Fee < 0 {
		return APPLY_FAIL, nil
	}

	sender, err := o.info(d.AccountID())
	if err != nil {
		return APPLY_FAIL, err
	}
	if sender == nil {
		// unfunded. someone may still fund it this round
		return APPLY_RETRY, nil
	}

	// check the sequence or ticket
	seqProxy := d.SeqProxy()
	ticketIndex := -1
	if seqProxy.IsSeq() {
		if seqProxy.Value() < sender.Sequence {
			return APPLY_FAIL, nil
		}
		if seqProxy.Value() > sender.Sequence {
			return APPLY_RETRY, nil
		}
	} else {
		for i, ticket := range sender.Tickets {
			if ticket == seqProxy.Value() {
				ticketIndex = i
				break
			}
		}
		if ticketIndex < 0 {
			if seqProxy.Value() < sender.Sequence {
				// already consumed or never created
				return APPLY_FAIL, nil
			}
			return APPLY_RETRY, nil
		}
	}

	// check and debit sender balance
	totalSpent := tx.Amount + tx.Fee
	if totalSpent > sender.Balance {
		return APPLY_RETRY, nil
	}
	recipient, err := o.info(AccountIDFromPublicKey(tx.To))
	if err != nil {
		return APPLY_FAIL, err
	}
	if recipient == nil {
		recipient = &AccountInfo{Sequence: 1}
		o.cache[AccountIDFromPublicKey(tx.To)] = recipient
	}

	sender.Balance -= totalSpent
	if ticketIndex >= 0 {
		sender.Tickets = append(sender.Tickets[:ticketIndex], sender.Tickets[ticketIndex+1:]...)
	} else {
		sender.Sequence++
	}

	// credit recipient balance
	recipient.Balance += tx.Amount
	return APPLY_SUCCESS, nil
}

// Info returns the current view of the given account or nil if it doesn't exist.
func (o *OpenLedger) Info(id AccountID) (*AccountInfo, error) {
	info, err := o.info(id)
	if err != nil || info == nil {
		return nil, err
	}
	c := *info
	c.Tickets = append([]uint32(nil), info.Tickets...)
	return &c, nil
}

func (o *OpenLedger) info(id AccountID) (*AccountInfo, error) {
	if info, ok := o.cache[id]; ok {
		return info, nil
	}
	info, err := o.state.GetAccountInfo(id)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, nil
	}
	// copy so the underlying state is never modified
	c := *info
	c.Tickets = append([]uint32(nil), info.Tickets...)
	o.cache[id] = &c
	return &c, nil
}
