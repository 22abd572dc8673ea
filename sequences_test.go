// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "testing"

func TestParseSequencesSectionHeaderZero(t *testing.T) {
	h, err := parseSequencesSectionHeader([]byte{0x00})
	if err != nil {
		t.Fatalf("parseSequencesSectionHeader: %v", err)
	}
	if h.NumSequences != 0 || h.HeaderLen != 1 {
		t.Fatalf("h = %+v", h)
	}
}

func TestParseSequencesSectionHeaderOneByteCount(t *testing.T) {
	modes := byte(modeRLE)<<6 | byte(modeFSECompressed)<<4 | byte(modePredefined)<<2
	h, err := parseSequencesSectionHeader([]byte{10, modes})
	if err != nil {
		t.Fatalf("parseSequencesSectionHeader: %v", err)
	}
	if h.NumSequences != 10 || h.LLMode != modeRLE || h.OFMode != modeFSECompressed || h.MLMode != modePredefined {
		t.Fatalf("h = %+v", h)
	}
}

func TestParseSequencesSectionHeaderThreeByteCount(t *testing.T) {
	// byte0=255, bytes[1]=1, bytes[2]=2 -> 1 + (2<<8) + 0x7F00 = 1+512+32512=33025.
	h, err := parseSequencesSectionHeader([]byte{255, 1, 2, 0})
	if err != nil {
		t.Fatalf("parseSequencesSectionHeader: %v", err)
	}
	if h.NumSequences != 33025 {
		t.Fatalf("NumSequences = %d, want 33025", h.NumSequences)
	}
}

func TestParseSequencesSectionHeaderRejectsReservedModeBits(t *testing.T) {
	_, err := parseSequencesSectionHeader([]byte{5, 0x03})
	if err == nil {
		t.Fatal("expected a format error for reserved mode bits")
	}
}

func TestLiteralsLengthCodeTable(t *testing.T) {
	base, extra := literalsLengthCode(0)
	if base != 0 || extra != 0 {
		t.Fatalf("code 0 = (%d, %d), want (0, 0)", base, extra)
	}
	base, extra = literalsLengthCode(16)
	if base != 16 || extra != 1 {
		t.Fatalf("code 16 = (%d, %d), want (16, 1)", base, extra)
	}
	base, extra = literalsLengthCode(35)
	if base != 65536 || extra != 16 {
		t.Fatalf("code 35 = (%d, %d), want (65536, 16)", base, extra)
	}
}

func TestMatchLengthCodeTable(t *testing.T) {
	base, extra := matchLengthCode(0)
	if base != 3 || extra != 0 {
		t.Fatalf("code 0 = (%d, %d), want (3, 0)", base, extra)
	}
	base, extra = matchLengthCode(32)
	if base != 35 || extra != 1 {
		t.Fatalf("code 32 = (%d, %d), want (35, 1)", base, extra)
	}
	base, extra = matchLengthCode(52)
	if base != 65539 || extra != 16 {
		t.Fatalf("code 52 = (%d, %d), want (65539, 16)", base, extra)
	}
}

func TestResolveOffsetLiteralGreaterThanThree(t *testing.T) {
	ctx := newDecoderContext()
	actual, err := resolveOffset(ctx, 7, 3)
	if err != nil {
		t.Fatalf("resolveOffset: %v", err)
	}
	if actual != 4 {
		t.Fatalf("actual = %d, want 4", actual)
	}
	if ctx.repeatOffsets != [3]uint64{4, 1, 4} {
		t.Fatalf("repeatOffsets = %v", ctx.repeatOffsets)
	}
}

func TestResolveOffsetRepeatWithNonzeroLiteralLength(t *testing.T) {
	ctx := newDecoderContext() // [1, 4, 8]
	actual, err := resolveOffset(ctx, 2, 5)
	if err != nil {
		t.Fatalf("resolveOffset: %v", err)
	}
	if actual != 4 {
		t.Fatalf("actual = %d, want 4", actual)
	}
	if ctx.repeatOffsets != [3]uint64{4, 1, 8} {
		t.Fatalf("repeatOffsets = %v", ctx.repeatOffsets)
	}
}

func TestResolveOffsetRepeatWithZeroLiteralLength(t *testing.T) {
	ctx := newDecoderContext() // [1, 4, 8]
	actual, err := resolveOffset(ctx, 1, 0)
	if err != nil {
		t.Fatalf("resolveOffset: %v", err)
	}
	if actual != 4 {
		t.Fatalf("actual = %d, want 4", actual)
	}
	if ctx.repeatOffsets != [3]uint64{4, 1, 8} {
		t.Fatalf("repeatOffsets = %v", ctx.repeatOffsets)
	}
}

func TestResolveOffsetSpecialCaseMinusOneYieldsZeroIsCorrupt(t *testing.T) {
	// offsetValue=3, literalLength=0 selects index 4 (r1-1); with the
	// initial repeat offset r1=1 that resolves to an actual offset of
	// zero, which is never valid.
	ctx := newDecoderContext() // [1, 4, 8]
	_, err := resolveOffset(ctx, 3, 0)
	if err == nil {
		t.Fatal("expected a corruption error for a resolved offset of zero")
	}
	if ze, ok := err.(*Error); !ok || ze.Kind != KindCorruption {
		t.Fatalf("err = %v, want KindCorruption", err)
	}
}

func TestResolveOffsetSpecialCaseMinusOne(t *testing.T) {
	// offsetValue=3, literalLength=0 selects index 4 (r1-1); with r1=5
	// this resolves to a valid actual offset of 4.
	ctx := newDecoderContext()
	ctx.repeatOffsets = [3]uint64{5, 4, 8}
	actual, err := resolveOffset(ctx, 3, 0)
	if err != nil {
		t.Fatalf("resolveOffset: %v", err)
	}
	if actual != 4 {
		t.Fatalf("actual = %d, want 4", actual)
	}
	if ctx.repeatOffsets != [3]uint64{4, 5, 4} {
		t.Fatalf("repeatOffsets = %v", ctx.repeatOffsets)
	}
}

func TestExecuteSequenceOverlapExpansion(t *testing.T) {
	ctx := newDecoderContext()
	if err := executeSequence(ctx, []byte("abc"), 3, 5, 1); err != nil {
		t.Fatalf("executeSequence: %v", err)
	}
	// offset=1 repeats the last literal byte; a match length of 5 adds
	// five more copies of 'c' on top of the one already in the literals.
	if got, want := string(ctx.output), "abcccccc"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestDecodeSequencesSectionRLEStreams(t *testing.T) {
	ctx := newDecoderContext()
	// NumSequences=1; modes byte: LL=RLE, OF=RLE, ML=RLE.
	modes := byte(modeRLE)<<6 | byte(modeRLE)<<4 | byte(modeRLE)<<2
	buf := []byte{
		1, modes,
		3, // LL RLE symbol: code 3 -> literal length 3, no extra bits.
		0, // OF RLE symbol: code 0 -> offset value 1, no extra bits.
		2, // ML RLE symbol: code 2 -> match length 5, no extra bits.
		0x80,
	}
	if err := decodeSequencesSection(buf, []byte("abc"), ctx); err != nil {
		t.Fatalf("decodeSequencesSection: %v", err)
	}
	if got, want := string(ctx.output), "abcccccc"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestDecodeSequencesSectionZeroSequences(t *testing.T) {
	ctx := newDecoderContext()
	if err := decodeSequencesSection([]byte{0}, []byte("literal only"), ctx); err != nil {
		t.Fatalf("decodeSequencesSection: %v", err)
	}
	if string(ctx.output) != "literal only" {
		t.Fatalf("output = %q", ctx.output)
	}
}
