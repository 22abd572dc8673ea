// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"github.com/cosnicolaou/zstdcat/internal/fse"
	"github.com/cosnicolaou/zstdcat/internal/huffman"
)

// decoderContext carries the per-frame state that must survive block
// boundaries: the output buffer (also the sliding window), the
// repeat-offset cache, and the most recently used Huffman and FSE
// tables, reusable by a Treeless literals section or a Repeat-mode
// sequences section.
type decoderContext struct {
	output []byte

	repeatOffsets [3]uint64

	huffmanTable *huffman.Table
	haveHuffman  bool

	llTable, ofTable, mlTable *fse.Table
}

func newDecoderContext() *decoderContext {
	return &decoderContext{
		repeatOffsets: [3]uint64{1, 4, 8},
	}
}
