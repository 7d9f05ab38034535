// Copyright 2019 cruzbit developers
// Use of this source code is governed by a MIT-style license that can be found in the LICENSE file.

package txset

// degree of the b-trees backing the canonical order and the per-account hints.
// doesn't change the order, only the memory layout
const BTREE_DEGREE = 8

// the below values affect how deferred transactions are applied

const MAX_APPLY_PASSES = 3 // passes over the deferred set per ledger close attempt

const MAX_MEMO_LENGTH = 100 // bytes (ascii/utf8 only)

// the below values only affect local node behavior

const RELAY_FILTER_CAPACITY = 1 << 16 // transactions
