// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package fse_test

import (
	"testing"

	"github.com/cosnicolaou/zstdcat/internal/fse"
)

func TestBuildTableSymbolCounts(t *testing.T) {
	dist := []int32{2, -1, 1}
	table, err := fse.BuildTable(dist, 2) // tableSize = 4
	if err != nil {
		t.Fatal(err)
	}
	if got, want := table.Size(), 4; got != want {
		t.Fatalf("table size = %d, want %d", got, want)
	}
	counts := map[uint8]int{}
	for _, e := range table.Entries {
		counts[e.Symbol]++
	}
	if counts[0] != 2 {
		t.Errorf("symbol 0 count = %d, want 2", counts[0])
	}
	if counts[1] != 1 {
		t.Errorf("symbol 1 (less-than-one) count = %d, want 1", counts[1])
	}
	if counts[2] != 1 {
		t.Errorf("symbol 2 count = %d, want 1", counts[2])
	}
}

func TestBuildTableRejectsUnderfilledDistribution(t *testing.T) {
	if _, err := fse.BuildTable([]int32{1}, 2); err == nil {
		t.Fatalf("expected error for distribution that does not sum to table size")
	}
}

func TestDefaultTablesBuildAndSizeMatchAccuracyLog(t *testing.T) {
	cases := []struct {
		name        string
		build       func() (*fse.Table, error)
		accuracyLog uint8
	}{
		{"LL", fse.LiteralLengthDefaultTable, 6},
		{"ML", fse.MatchLengthDefaultTable, 6},
		{"OF", fse.OffsetDefaultTable, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			table, err := tc.build()
			if err != nil {
				t.Fatal(err)
			}
			if table.AccuracyLog != tc.accuracyLog {
				t.Errorf("AccuracyLog = %d, want %d", table.AccuracyLog, tc.accuracyLog)
			}
			if got, want := table.Size(), 1<<tc.accuracyLog; got != want {
				t.Errorf("Size() = %d, want %d", got, want)
			}
			for i, e := range table.Entries {
				if e.NumBits > table.AccuracyLog && e.NumBits != 0 {
					t.Errorf("entry %d: NumBits %d exceeds accuracy log %d", i, e.NumBits, table.AccuracyLog)
				}
			}
		})
	}
}

func TestRLETable(t *testing.T) {
	table := fse.RLETable(42)
	if got, want := table.Size(), 1; got != want {
		t.Fatalf("Size() = %d, want %d", got, want)
	}
	if e := table.Entries[0]; e.Symbol != 42 || e.NumBits != 0 {
		t.Errorf("entry = %+v, want symbol 42 with 0 bits", e)
	}
}
