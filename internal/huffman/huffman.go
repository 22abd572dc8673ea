// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package huffman implements the Huffman literal decoder used by
// Zstandard's compressed-literals sections: a weight-per-symbol tree
// description and a canonical, flat decode table built from it.
package huffman

import (
	"fmt"
	"sort"

	"github.com/cosnicolaou/zstdcat/internal/bitstream"
	"github.com/cosnicolaou/zstdcat/internal/fse"
)

// Table is a canonical Huffman decode table: a flat array of 1<<MaxBits
// entries, each reachable by peeking MaxBits bits from the reverse
// bitstream and consuming only CodeLen of them.
type Table struct {
	entries []tableEntry
	MaxBits uint8
}

type tableEntry struct {
	symbol  uint8
	codeLen uint8
}

// ReadTreeDescription parses a Huffman tree description (RFC 8878
// "Huffman_Tree_Description") from buf and returns the decode table plus
// the number of header bytes consumed.
func ReadTreeDescription(buf []byte) (*Table, int, error) {
	if len(buf) == 0 {
		return nil, 0, fmt.Errorf("huffman: empty tree description")
	}
	header := buf[0]
	var weights []uint8
	var consumed int
	if header >= 128 {
		numSymbols := int(header&0x7f) + 1
		nibbleBytes := (numSymbols + 1) / 2
		if 1+nibbleBytes > len(buf) {
			return nil, 0, fmt.Errorf("huffman: direct weights truncated")
		}
		weights = make([]uint8, 0, numSymbols)
		for i := 0; i < numSymbols; i++ {
			b := buf[1+i/2]
			var nibble uint8
			if i%2 == 0 {
				nibble = b >> 4
			} else {
				nibble = b & 0x0f
			}
			weights = append(weights, nibble)
		}
		consumed = 1 + nibbleBytes
	} else {
		compressedSize := int(header)
		if 1+compressedSize > len(buf) {
			return nil, 0, fmt.Errorf("huffman: fse-coded weights truncated")
		}
		payload := buf[1 : 1+compressedSize]
		table1, off1, err := fse.ReadTableDescription(payload, fse.MaxAccuracyLogHuffmanWeights)
		if err != nil {
			return nil, 0, fmt.Errorf("huffman: reading weights fse table: %w", err)
		}
		var err2 error
		weights, err2 = decodeFSEWeights(table1, payload[off1:])
		if err2 != nil {
			return nil, 0, err2
		}
		consumed = 1 + compressedSize
	}
	if len(weights) == 0 || len(weights) > 255 {
		return nil, 0, fmt.Errorf("huffman: invalid symbol count %d", len(weights))
	}
	table, err := buildTable(weights)
	if err != nil {
		return nil, 0, err
	}
	return table, consumed, nil
}

// decodeFSEWeights drives two interleaved FSE decoders over a reverse
// bitstream, per the Huffman weights encoding, producing one weight per
// symbol except the last (which is derived to make the tree complete).
func decodeFSEWeights(table *fse.Table, stream []byte) ([]uint8, error) {
	r, err := bitstream.NewReverseReader(stream)
	if err != nil {
		return nil, fmt.Errorf("huffman: weights bitstream: %w", err)
	}
	s0, err := r.GetBits(uint(table.AccuracyLog))
	if err != nil {
		return nil, fmt.Errorf("huffman: reading weights state 0: %w", err)
	}
	s1, err := r.GetBits(uint(table.AccuracyLog))
	if err != nil {
		return nil, fmt.Errorf("huffman: reading weights state 1: %w", err)
	}
	d0 := fse.NewDecoder(table, uint32(s0))
	d1 := fse.NewDecoder(table, uint32(s1))

	var weights []uint8
	for {
		weights = append(weights, d0.Symbol())
		if r.BitsRemaining() == 0 {
			break
		}
		if err := d0.Advance(r); err != nil {
			return nil, err
		}
		weights = append(weights, d1.Symbol())
		if r.BitsRemaining() == 0 {
			break
		}
		if err := d1.Advance(r); err != nil {
			return nil, err
		}
	}
	return weights, nil
}

// buildTable turns a per-symbol weight list (excluding the implied last
// symbol) into a canonical flat decode table. The final symbol's weight
// is derived so that the sum of 1<<weight across all symbols is a power
// of two.
func buildTable(weights []uint8) (*Table, error) {
	sum := 0
	for _, w := range weights {
		if w > 0 {
			sum += 1 << w
		}
	}
	if sum == 0 {
		return nil, fmt.Errorf("huffman: all explicit weights are zero")
	}
	nextPow2 := 1
	for nextPow2 <= sum {
		nextPow2 <<= 1
	}
	lastWeightValue := nextPow2 - sum
	lastWeight := uint8(0)
	for lastWeightValue > 1 {
		lastWeightValue >>= 1
		lastWeight++
	}
	allWeights := append(append([]uint8{}, weights...), lastWeight)

	maxWeight := uint8(0)
	for _, w := range allWeights {
		if w > maxWeight {
			maxWeight = w
		}
	}
	if maxWeight == 0 {
		return nil, fmt.Errorf("huffman: degenerate tree, no nonzero weights")
	}

	type symLen struct {
		symbol  uint8
		codeLen uint8
	}
	var pairs []symLen
	for sym, w := range allWeights {
		if w == 0 {
			continue
		}
		pairs = append(pairs, symLen{symbol: uint8(sym), codeLen: maxWeight - w + 1})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].codeLen != pairs[j].codeLen {
			return pairs[i].codeLen > pairs[j].codeLen
		}
		return pairs[i].symbol < pairs[j].symbol
	})

	entries := make([]tableEntry, 1<<maxWeight)
	filled := 0
	for _, p := range pairs {
		span := 1 << (maxWeight - p.codeLen)
		for i := 0; i < span; i++ {
			entries[filled+i] = tableEntry{symbol: p.symbol, codeLen: p.codeLen}
		}
		filled += span
	}
	if filled != len(entries) {
		return nil, fmt.Errorf("huffman: weight table does not cover %d entries (covered %d)", len(entries), filled)
	}
	return &Table{entries: entries, MaxBits: maxWeight}, nil
}

// DecodeStream reads exactly n symbols from a reverse bitstream built
// over stream, using the canonical table t.
func DecodeStream(t *Table, stream []byte, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	r, err := bitstream.NewReverseReader(stream)
	if err != nil {
		return nil, fmt.Errorf("huffman: literal bitstream: %w", err)
	}
	for i := 0; i < n; i++ {
		peekWidth := uint(t.MaxBits)
		if rem := r.BitsRemaining(); rem < uint64(peekWidth) {
			peekWidth = uint(rem)
		}
		if peekWidth == 0 {
			return nil, fmt.Errorf("huffman: bitstream exhausted after %d of %d symbols", i, n)
		}
		bits, err := r.GetBits(peekWidth)
		if err != nil {
			return nil, err
		}
		idx := bits << (uint(t.MaxBits) - peekWidth)
		if idx >= uint64(len(t.entries)) {
			return nil, fmt.Errorf("huffman: decoded index %d out of range", idx)
		}
		e := t.entries[idx]
		if uint(e.codeLen) > peekWidth {
			return nil, fmt.Errorf("huffman: truncated code at symbol %d", i)
		}
		// Un-consume the bits beyond the code length: GetBits already
		// advanced the cursor by peekWidth, so rewind the excess.
		excess := peekWidth - uint(e.codeLen)
		if excess > 0 {
			if err := r.Rewind(excess); err != nil {
				return nil, err
			}
		}
		out = append(out, e.symbol)
	}
	return out, nil
}
