// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fse

import (
	"fmt"

	"github.com/cosnicolaou/zstdcat/internal/bitstream"
)

// Decoder drives one FSE-coded symbol stream: a table plus the current
// state index into it.
type Decoder struct {
	table *Table
	state uint32
}

// NewDecoder returns a Decoder over table with its initial state.
func NewDecoder(table *Table, state uint32) *Decoder {
	return &Decoder{table: table, state: state % uint32(len(table.Entries))}
}

// Symbol returns the symbol at the current state without consuming any
// bits.
func (d *Decoder) Symbol() uint8 {
	return d.table.Entries[d.state].Symbol
}

// Advance consumes NumBits from r for the current state and transitions
// to the next state. It must not be called after the final symbol of a
// sequences section has been emitted.
func (d *Decoder) Advance(r *bitstream.ReverseReader) error {
	e := d.table.Entries[d.state]
	if e.NumBits == 0 {
		d.state = uint32(e.Baseline)
		return nil
	}
	bits, err := r.GetBits(uint(e.NumBits))
	if err != nil {
		return fmt.Errorf("fse: advancing state: %w", err)
	}
	d.state = e.Baseline + uint32(bits)
	return nil
}

// MaxAccuracyLog bounds inline accuracy logs per stream kind, per RFC 8878.
const (
	MaxAccuracyLogLL = 9
	MaxAccuracyLogML = 9
	MaxAccuracyLogOF = 8
	MaxAccuracyLogHuffmanWeights = 6
)

// ReadTableDescription parses an inline FSE table description from a
// forward bitstream: a 4-bit accuracy-log offset followed by variable-width
// normalized counts, per RFC 8878's "FSE Table Description". maxAccuracyLog
// bounds the derived accuracy log for the caller's stream kind. It returns
// the built table and the number of whole bytes consumed.
func ReadTableDescription(buf []byte, maxAccuracyLog uint8) (*Table, int, error) {
	r := bitstream.NewForwardReader(buf)
	offsetBits, err := r.GetBits(4)
	if err != nil {
		return nil, 0, fmt.Errorf("fse: reading accuracy log offset: %w", err)
	}
	accuracyLog := uint8(5 + offsetBits)
	if accuracyLog > maxAccuracyLog {
		return nil, 0, fmt.Errorf("fse: accuracy log %d exceeds maximum %d", accuracyLog, maxAccuracyLog)
	}
	tableSize := 1 << accuracyLog
	remaining := tableSize + 1

	var dist []int32
	for remaining > 0 {
		bitsNeeded := bitLen(uint(remaining)) + 1
		threshold := (1 << bitsNeeded) - 1 - remaining
		raw, err := r.GetBits(uint(bitsNeeded - 1))
		if err != nil {
			return nil, 0, fmt.Errorf("fse: reading normalized count: %w", err)
		}
		if int(raw) >= threshold {
			extra, err := r.GetBits(1)
			if err != nil {
				return nil, 0, fmt.Errorf("fse: reading normalized count high bit: %w", err)
			}
			raw = (raw << 1) + extra - uint64(threshold)
		}
		value := int32(raw) - 1
		if value == -1 {
			dist = append(dist, -1)
			remaining--
		} else if value == 0 {
			dist = append(dist, 0)
			for {
				runBits, err := r.GetBits(2)
				if err != nil {
					return nil, 0, fmt.Errorf("fse: reading zero-probability run: %w", err)
				}
				for i := uint64(0); i < runBits; i++ {
					dist = append(dist, 0)
				}
				if runBits != 3 {
					break
				}
			}
		} else {
			dist = append(dist, value)
			remaining -= int(value)
		}
		if remaining < 0 {
			return nil, 0, fmt.Errorf("fse: normalized counts overshoot table size")
		}
	}

	r.ByteAlign()
	consumed := int(r.BitsRemaining())
	consumedBytes := (len(buf)*8 - consumed) / 8
	table, err := BuildTable(dist, accuracyLog)
	if err != nil {
		return nil, 0, err
	}
	return table, consumedBytes, nil
}

func bitLen(n uint) int {
	l := 0
	for n > 0 {
		l++
		n >>= 1
	}
	return l
}
