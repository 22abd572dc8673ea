// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package fse_test

import (
	"testing"

	"github.com/cosnicolaou/zstdcat/internal/bitstream"
	"github.com/cosnicolaou/zstdcat/internal/fse"
)

func TestDecoderRLEAlwaysEmitsSameSymbol(t *testing.T) {
	table := fse.RLETable(7)
	d := fse.NewDecoder(table, 0)
	r, err := bitstream.NewReverseReader([]byte{0x80})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if got := d.Symbol(); got != 7 {
			t.Fatalf("iteration %d: Symbol() = %d, want 7", i, got)
		}
		if err := d.Advance(r); err != nil {
			t.Fatalf("iteration %d: Advance: %v", i, err)
		}
	}
}

func TestDecoderStateWrapsModuloTableSize(t *testing.T) {
	table, err := fse.BuildTable([]int32{2, -1, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	d := fse.NewDecoder(table, 10) // 10 % 4 == 2
	if got, want := d.Symbol(), table.Entries[2].Symbol; got != want {
		t.Errorf("Symbol() = %d, want %d", got, want)
	}
}

func TestReadTableDescriptionRejectsOversizedAccuracyLog(t *testing.T) {
	// accuracy_log_offset nibble of 15 -> accuracy_log = 20, far past any
	// maximum.
	if _, _, err := fse.ReadTableDescription([]byte{0xF0}, fse.MaxAccuracyLogOF); err == nil {
		t.Fatalf("expected error for oversized accuracy log")
	}
}
