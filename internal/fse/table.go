// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package fse implements Finite State Entropy table construction and
// decoding, the entropy stage used for Zstandard's literal-length,
// match-length, and offset sequence streams.
package fse

import (
	"fmt"
	"math/bits"
)

// Entry is one cell of a decoding table: the symbol it emits, the number
// of additional bits to consume after emitting it, and the baseline added
// to those bits to produce the decoder's next state.
type Entry struct {
	Symbol   uint8
	NumBits  uint8
	Baseline uint32
}

// Table is a complete FSE decoding table of 1<<AccuracyLog entries.
type Table struct {
	Entries     []Entry
	AccuracyLog uint8
}

// Size returns the number of entries in the table.
func (t *Table) Size() int { return len(t.Entries) }

// litLenDefaultDist, matchLenDefaultDist, and offsetDefaultDist are the
// fixed normalized distributions from RFC 8878 3.1.1.3.2.2. A value of -1
// denotes "less than one" probability.
var litLenDefaultDist = []int32{
	4, 3, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 1, 1, 2, 2, 2, 2, 2, 2, 2, 2, 2, 3, 2, 1, 1, 1, 1, 1,
	-1, -1, -1, -1,
}

var matchLenDefaultDist = []int32{
	1, 4, 3, 2, 2, 2, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, -1, -1, -1, -1, -1, -1, -1,
}

var offsetDefaultDist = []int32{
	1, 1, 1, 1, 1, 1, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, -1, -1, -1, -1, -1,
}

// defaultAccuracyLog mirrors the source distribution's derivation of its
// own accuracy log from its length rather than carrying it separately.
func defaultAccuracyLog(distLen int) uint8 {
	return uint8(bits.Len(uint(distLen)))
}

// LiteralLengthDefaultTable returns the predefined LL decoding table
// (accuracy log 6).
func LiteralLengthDefaultTable() (*Table, error) {
	return BuildTable(litLenDefaultDist, defaultAccuracyLog(len(litLenDefaultDist)))
}

// MatchLengthDefaultTable returns the predefined ML decoding table
// (accuracy log 6).
func MatchLengthDefaultTable() (*Table, error) {
	return BuildTable(matchLenDefaultDist, defaultAccuracyLog(len(matchLenDefaultDist)))
}

// OffsetDefaultTable returns the predefined OF decoding table (accuracy
// log 5).
func OffsetDefaultTable() (*Table, error) {
	return BuildTable(offsetDefaultDist, defaultAccuracyLog(len(offsetDefaultDist)))
}

// BuildTable constructs a decoding table from a normalized distribution
// per RFC 8878's symbol-spread algorithm: entries are laid out by placing
// "less than one" (-1) probability symbols at the high end of the table
// and spreading positive-probability symbols with a fixed step, then each
// symbol's occurrences are assigned num_bits/baseline pairs so that state
// transitions cover the full table.
func BuildTable(dist []int32, accuracyLog uint8) (*Table, error) {
	tableSize := 1 << accuracyLog
	symbols := make([]int32, tableSize)
	for i := range symbols {
		symbols[i] = -1
	}

	highIdx := tableSize - 1
	for i, n := range dist {
		if n == -1 {
			if highIdx < 0 {
				return nil, fmt.Errorf("fse: distribution overflows table of size %d", tableSize)
			}
			symbols[highIdx] = int32(i)
			highIdx--
		}
	}

	step := (tableSize >> 1) + (tableSize >> 3) + 3
	mask := tableSize - 1
	position := 0
	for i, n := range dist {
		if n <= 0 {
			continue
		}
		placed := int32(0)
		for placed < n {
			if symbols[position] == -1 {
				symbols[position] = int32(i)
				placed++
			}
			position = (position + step) & mask
		}
	}

	for i, s := range symbols {
		if s == -1 {
			return nil, fmt.Errorf("fse: table cell %d left unassigned, distribution does not sum to table size", i)
		}
	}

	indicesBySymbol := make(map[int32][]int, len(dist))
	for idx, s := range symbols {
		indicesBySymbol[s] = append(indicesBySymbol[s], idx)
	}

	entries := make([]Entry, tableSize)
	for sym, indices := range indicesBySymbol {
		p := len(indices)
		if p == 1 {
			entries[indices[0]] = Entry{Symbol: uint8(sym), NumBits: accuracyLog, Baseline: 0}
			continue
		}
		w := floorLog2(tableSize / p)
		r := (tableSize >> w) - p
		for i, idx := range indices {
			if i < r {
				entries[idx] = Entry{
					Symbol:   uint8(sym),
					NumBits:  uint8(w + 1),
					Baseline: uint32((p-r)*(1<<w) + i*(1<<(w+1))),
				}
			} else {
				entries[idx] = Entry{
					Symbol:   uint8(sym),
					NumBits:  uint8(w),
					Baseline: uint32((i - r) * (1 << w)),
				}
			}
		}
	}

	return &Table{Entries: entries, AccuracyLog: accuracyLog}, nil
}

func floorLog2(n int) int {
	if n <= 0 {
		return 0
	}
	return bits.Len(uint(n)) - 1
}

// RLETable builds a degenerate one-symbol table: every state emits sym
// and consumes zero bits, used for the Sequences section's RLE symbol
// compression mode.
func RLETable(sym uint8) *Table {
	return &Table{
		Entries:     []Entry{{Symbol: sym, NumBits: 0, Baseline: 0}},
		AccuracyLog: 0,
	}
}
