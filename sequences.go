// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"github.com/cosnicolaou/zstdcat/internal/bitstream"
	"github.com/cosnicolaou/zstdcat/internal/fse"
)

// symbolCompressionMode is one of the four ways a sequences stream's
// symbol table can be described.
type symbolCompressionMode int

const (
	modePredefined symbolCompressionMode = iota
	modeRLE
	modeFSECompressed
	modeRepeat
)

// sequencesSectionHeader is the parsed header of a sequences section:
// the sequence count and the per-stream compression mode selection.
type sequencesSectionHeader struct {
	NumSequences int
	LLMode       symbolCompressionMode
	OFMode       symbolCompressionMode
	MLMode       symbolCompressionMode
	HeaderLen    int
}

// parseSequencesSectionHeader parses the variable-length sequence count
// and the Symbol_Compression_Modes byte. A count of zero means there is
// no sequences section at all beyond the single zero byte: no mode byte
// follows.
func parseSequencesSectionHeader(b []byte) (*sequencesSectionHeader, error) {
	if len(b) < 1 {
		return nil, truncationErrorf("sequences section header missing")
	}
	b0 := b[0]

	h := &sequencesSectionHeader{}
	var countLen int
	switch {
	case b0 == 0:
		h.NumSequences = 0
		h.HeaderLen = 1
		return h, nil
	case b0 < 128:
		h.NumSequences = int(b0)
		countLen = 1
	case b0 < 255:
		if len(b) < 2 {
			return nil, truncationErrorf("sequences count truncated")
		}
		h.NumSequences = (int(b0-128) << 8) + int(b[1])
		countLen = 2
	default:
		if len(b) < 3 {
			return nil, truncationErrorf("sequences count truncated")
		}
		// RFC 8878's corrected formula; the original source's
		// "(bytes[1] << 8) + bytes[2]" is a Rust operator-precedence bug
		// that actually computes bytes[1] << (8+bytes[2]).
		h.NumSequences = int(b[1]) + (int(b[2]) << 8) + 0x7F00
		countLen = 3
	}

	if len(b) < countLen+1 {
		return nil, truncationErrorf("symbol compression modes byte missing")
	}
	modes := b[countLen]
	if modes&0b11 != 0 {
		return nil, formatErrorf("reserved symbol compression mode bits set: %#08b", modes)
	}
	h.LLMode = symbolCompressionMode((modes >> 6) & 0b11)
	h.OFMode = symbolCompressionMode((modes >> 4) & 0b11)
	h.MLMode = symbolCompressionMode((modes >> 2) & 0b11)
	h.HeaderLen = countLen + 1
	return h, nil
}

// resolveTable returns the FSE table for one of the three sequence
// streams, reading an inline table description from b when the mode
// requires one, and returns the number of bytes of b it consumed.
func resolveTable(mode symbolCompressionMode, b []byte, maxAccuracyLog uint8,
	predefined func() (*fse.Table, error), cached **fse.Table) (*fse.Table, int, error) {

	switch mode {
	case modePredefined:
		t, err := predefined()
		if err != nil {
			return nil, 0, err
		}
		*cached = t
		return t, 0, nil
	case modeRLE:
		if len(b) < 1 {
			return nil, 0, truncationErrorf("rle symbol byte missing")
		}
		t := fse.RLETable(b[0])
		*cached = t
		return t, 1, nil
	case modeFSECompressed:
		t, n, err := fse.ReadTableDescription(b, maxAccuracyLog)
		if err != nil {
			return nil, 0, corruptionErrorf("fse table description: %v", err)
		}
		*cached = t
		return t, n, nil
	case modeRepeat:
		if *cached == nil {
			return nil, 0, corruptionErrorf("repeat mode with no previously used table")
		}
		return *cached, 0, nil
	}
	return nil, 0, formatErrorf("unreachable symbol compression mode %d", mode)
}

// literalsLengthCode and matchLengthCode translate a decoded LL/ML
// symbol code into its extra-bit count and base value, per RFC 8878's
// fixed code tables.
func literalsLengthCode(code uint8) (base uint32, extraBits uint8) {
	if code < 16 {
		return uint32(code), 0
	}
	table := [...]struct {
		base  uint32
		extra uint8
	}{
		{16, 1}, {18, 1}, {20, 1}, {22, 1},
		{24, 2}, {28, 2},
		{32, 3}, {40, 3},
		{48, 4},
		{64, 6},
		{128, 7},
		{256, 8},
		{512, 9},
		{1024, 10},
		{2048, 11},
		{4096, 12},
		{8192, 13},
		{16384, 14},
		{32768, 15},
		{65536, 16},
	}
	e := table[code-16]
	return e.base, e.extra
}

func matchLengthCode(code uint8) (base uint32, extraBits uint8) {
	if code < 32 {
		return uint32(code) + 3, 0
	}
	table := [...]struct {
		base  uint32
		extra uint8
	}{
		{35, 1}, {37, 1}, {39, 1}, {41, 1},
		{43, 2}, {47, 2},
		{51, 3}, {59, 3},
		{67, 4}, {83, 4},
		{99, 5},
		{131, 7},
		{259, 8},
		{515, 9},
		{1027, 10},
		{2051, 11},
		{4099, 12},
		{8195, 13},
		{16387, 14},
		{32771, 15},
		{65539, 16},
	}
	e := table[code-32]
	return e.base, e.extra
}

// getBits reads n bits from r, treating n == 0 as a no-op read of zero: the
// sequences bitstream calls for a width of zero whenever a code carries no
// extra bits (small literal/match lengths) or a table was built in RLE mode
// (accuracy log zero), and the reverse reader itself rejects zero-width
// reads outright.
func getBits(r *bitstream.ReverseReader, n uint) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	return r.GetBits(n)
}

// sequence is a single decoded {literal_length, match_length, offset}
// triple, ready for execution against the output buffer.
type sequence struct {
	literalLength uint32
	matchLength   uint32
	offset        uint64
}

// resolveOffset implements the repeat-offset cache update of RFC 8878
// §3.1.1.5: offsetValue > 3 is a literal offset minus 3; otherwise it
// addresses one of the three cached repeat offsets, with the addressed
// slot depending on whether the literal length preceding this sequence
// was zero.
func resolveOffset(ctx *decoderContext, offsetValue uint64, literalLength uint32) (uint64, error) {
	rep := &ctx.repeatOffsets

	if offsetValue > 3 {
		actual := offsetValue - 3
		rep[2] = rep[1]
		rep[1] = rep[0]
		rep[0] = actual
		return actual, nil
	}

	idx := offsetValue
	if literalLength == 0 {
		idx++
	}

	var actual uint64
	switch idx {
	case 1:
		actual = rep[0]
		// repeat list unchanged
	case 2:
		actual = rep[1]
		rep[1] = rep[0]
		rep[0] = actual
	case 3:
		actual = rep[2]
		rep[2] = rep[1]
		rep[1] = rep[0]
		rep[0] = actual
	case 4:
		if rep[0] == 0 {
			return 0, corruptionErrorf("repeat offset special case r1-1 underflows with r1=0")
		}
		actual = rep[0] - 1
		rep[2] = rep[1]
		rep[1] = rep[0]
		rep[0] = actual
	default:
		return 0, formatErrorf("unreachable repeat offset index %d", idx)
	}
	if actual == 0 {
		return 0, corruptionErrorf("resolved offset is zero")
	}
	return actual, nil
}

// executeSequence appends literalLength bytes of lit followed by a
// matchLength-byte copy from offset bytes behind the current end of
// ctx.output. The copy proceeds byte by byte since offset can be
// smaller than matchLength (a run-length-style expansion), which rules
// out a bulk copy.
func executeSequence(ctx *decoderContext, lit []byte, literalLength uint32, matchLength uint32, offset uint64) error {
	if uint32(len(lit)) < literalLength {
		return corruptionErrorf("sequence literal length %d exceeds remaining literals %d", literalLength, len(lit))
	}
	ctx.output = append(ctx.output, lit[:literalLength]...)

	if matchLength == 0 {
		return nil
	}
	if offset == 0 || offset > uint64(len(ctx.output)) {
		return corruptionErrorf("match offset %d exceeds decoded length %d", offset, len(ctx.output))
	}
	start := len(ctx.output) - int(offset)
	for i := uint32(0); i < matchLength; i++ {
		ctx.output = append(ctx.output, ctx.output[start+int(i)])
	}
	return nil
}

// decodeSequencesSection decodes the sequences section following a
// block's literals section and executes each sequence against
// ctx.output, consuming the literals produced by the literals section
// as it goes.
func decodeSequencesSection(buf []byte, literals []byte, ctx *decoderContext) error {
	h, err := parseSequencesSectionHeader(buf)
	if err != nil {
		return err
	}
	if h.NumSequences == 0 {
		ctx.output = append(ctx.output, literals...)
		return nil
	}

	body := buf[h.HeaderLen:]

	llTable, n, err := resolveTable(h.LLMode, body, fse.MaxAccuracyLogLL, fse.LiteralLengthDefaultTable, &ctx.llTable)
	if err != nil {
		return err
	}
	body = body[n:]
	ofTable, n, err := resolveTable(h.OFMode, body, fse.MaxAccuracyLogOF, fse.OffsetDefaultTable, &ctx.ofTable)
	if err != nil {
		return err
	}
	body = body[n:]
	mlTable, n, err := resolveTable(h.MLMode, body, fse.MaxAccuracyLogML, fse.MatchLengthDefaultTable, &ctx.mlTable)
	if err != nil {
		return err
	}
	body = body[n:]

	r, err := bitstream.NewReverseReader(body)
	if err != nil {
		return corruptionErrorf("sequences bitstream: %v", err)
	}

	readState := func(t *fse.Table, what string) (uint64, error) {
		v, err := getBits(r, uint(t.AccuracyLog))
		if err != nil {
			return 0, corruptionErrorf("%s initial state: %v", what, err)
		}
		return v, nil
	}

	llState, err := readState(llTable, "ll")
	if err != nil {
		return err
	}
	ofState, err := readState(ofTable, "of")
	if err != nil {
		return err
	}
	mlState, err := readState(mlTable, "ml")
	if err != nil {
		return err
	}

	llDec := fse.NewDecoder(llTable, uint32(llState))
	ofDec := fse.NewDecoder(ofTable, uint32(ofState))
	mlDec := fse.NewDecoder(mlTable, uint32(mlState))

	litCursor := 0
	for i := 0; i < h.NumSequences; i++ {
		ofCode := ofDec.Symbol()
		mlCode := mlDec.Symbol()
		llCode := llDec.Symbol()

		if ofCode > 31 {
			return corruptionErrorf("offset code %d out of range", ofCode)
		}
		offBits, err := getBits(r, uint(ofCode))
		if err != nil {
			return corruptionErrorf("offset extra bits: %v", err)
		}
		offsetValue := (uint64(1) << ofCode) + offBits

		mlBase, mlExtra := matchLengthCode(mlCode)
		mlBits, err := getBits(r, uint(mlExtra))
		if err != nil {
			return corruptionErrorf("match length extra bits: %v", err)
		}
		matchLength := mlBase + uint32(mlBits)

		llBase, llExtra := literalsLengthCode(llCode)
		llBits, err := getBits(r, uint(llExtra))
		if err != nil {
			return corruptionErrorf("literal length extra bits: %v", err)
		}
		literalLength := llBase + uint32(llBits)

		offset, err := resolveOffset(ctx, offsetValue, literalLength)
		if err != nil {
			return err
		}

		if litCursor+int(literalLength) > len(literals) {
			return corruptionErrorf("sequence %d consumes more literals than available", i)
		}
		if err := executeSequence(ctx, literals[litCursor:], literalLength, matchLength, offset); err != nil {
			return err
		}
		litCursor += int(literalLength)

		if i < h.NumSequences-1 {
			if err := llDec.Advance(r); err != nil {
				return corruptionErrorf("ll decoder advance: %v", err)
			}
			if err := mlDec.Advance(r); err != nil {
				return corruptionErrorf("ml decoder advance: %v", err)
			}
			if err := ofDec.Advance(r); err != nil {
				return corruptionErrorf("of decoder advance: %v", err)
			}
		}
	}

	if litCursor < len(literals) {
		ctx.output = append(ctx.output, literals[litCursor:]...)
	}
	return nil
}

// decodeCompressedBlock decodes a Compressed-type block body: a
// literals section followed by a sequences section, whose execution
// against ctx.output produces the block's payload.
func decodeCompressedBlock(body []byte, ctx *decoderContext) ([]byte, error) {
	before := len(ctx.output)

	literals, consumed, err := decodeLiteralsSection(body, ctx)
	if err != nil {
		return nil, err
	}

	if err := decodeSequencesSection(body[consumed:], literals, ctx); err != nil {
		return nil, err
	}

	return ctx.output[before:], nil
}
