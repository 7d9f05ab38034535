// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package txset

import (
	"fmt"
	"strconv"
	"strings"
)

// SeqProxy stands in for either an account sequence number or a ticket.
// All sequences sort before all tickets. Within a kind values sort ascending.
type SeqProxy struct {
	value    uint32
	isTicket bool
}

// NewSequenceProxy returns a SeqProxy for the given sequence number.
func NewSequenceProxy(seq uint32) SeqProxy {
	return SeqProxy{value: seq}
}

// NewTicketProxy returns a SeqProxy for the given ticket sequence.
func NewTicketProxy(ticket uint32) SeqProxy {
	return SeqProxy{value: ticket, isTicket: true}
}

// IsSeq returns true if this stands for a sequence number.
func (s SeqProxy) IsSeq() bool {
	return !s.isTicket
}

// IsTicket returns true if this stands for a ticket.
func (s SeqProxy) IsTicket() bool {
	return s.isTicket
}

// Value returns the sequence number or ticket sequence.
func (s SeqProxy) Value() uint32 {
	return s.value
}

// Compare returns -1, 0 or 1 if s sorts before, equal to or after other.
func (s SeqProxy) Compare(other SeqProxy) int {
	if s.isTicket != other.isTicket {
		if other.isTicket {
			return -1
		}
		return 1
	}
	switch {
	case s.value < other.value:
		return -1
	case s.value > other.value:
		return 1
	}
	return 0
}

// String implements the Stringer interface.
func (s SeqProxy) String() string {
	if s.isTicket {
		return "ticket:" + strconv.FormatUint(uint64(s.value), 10)
	}
	return "seq:" + strconv.FormatUint(uint64(s.value), 10)
}

// MarshalJSON marshals SeqProxy as its string form.
func (s SeqProxy) MarshalJSON() ([]byte, error) {
	return []byte("\"" + s.String() + "\""), nil
}

// UnmarshalJSON unmarshals a string of the form "seq:N" or "ticket:N".
func (s *SeqProxy) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("Invalid sequence proxy")
	}
	parts := strings.SplitN(string(b[1:len(b)-1]), ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("Invalid sequence proxy")
	}
	value, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return err
	}
	switch parts[0] {
	case "seq":
		*s = NewSequenceProxy(uint32(value))
	case "ticket":
		*s = NewTicketProxy(uint32(value))
	default:
		return fmt.Errorf("Unknown sequence proxy kind: %s", parts[0])
	}
	return nil
}
