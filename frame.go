// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package zstd implements a decoder for the Zstandard compressed data
// format (RFC 8878): frame and block framing, literals and sequences
// section decoding, and LZ77-style sequence execution against a sliding
// window.
package zstd

import "encoding/binary"

// Magic is the little-endian Zstandard frame magic number.
const Magic = 0xFD2FB528

// skippableMagicLow and skippableMagicHigh bound the range of skippable
// frame magic numbers, 0x184D2A50..0x184D2A5F.
const (
	skippableMagicLow  = 0x184D2A50
	skippableMagicHigh = 0x184D2A5F
)

// FrameHeader carries the parsed fields of a Zstandard frame header.
type FrameHeader struct {
	SingleSegment   bool
	ContentChecksum bool
	DictionaryID    uint32
	FrameContentSz  uint64
	HasContentSize  bool
	windowDescSet   bool
	windowExponent  uint8
	windowMantissa  uint8
	HeaderLen       int
}

// WindowSize derives the addressable back-reference window, per RFC 8878:
// when a window descriptor is present, (1<<(10+exp)) + ((1<<(10+exp))/8)*mantissa;
// otherwise the frame content size. The bool result reports whether a
// window size could be derived at all (false only when neither a window
// descriptor nor a content size is present, which the parser rejects).
func (h *FrameHeader) WindowSize() (uint64, bool) {
	if h.windowDescSet {
		base := uint64(1) << (10 + h.windowExponent)
		return base + (base/8)*uint64(h.windowMantissa), true
	}
	if h.HasContentSize {
		return h.FrameContentSz, true
	}
	return 0, false
}

// parseFrameHeader parses the frame header beginning at buf (immediately
// after the 4-byte magic number) and returns it; the number of bytes
// consumed is recorded in its HeaderLen field.
func parseFrameHeader(buf []byte) (*FrameHeader, error) {
	if len(buf) < 1 {
		return nil, truncationErrorf("frame header descriptor missing")
	}
	descriptor := buf[0]
	fcsFlag := descriptor >> 6
	singleSegment := descriptor&(1<<5) != 0
	unused := descriptor&(1<<4) != 0
	reserved := descriptor&(1<<3) != 0
	checksum := descriptor&(1<<2) != 0
	didFlag := descriptor & 0b11

	if unused || reserved {
		return nil, formatErrorf("reserved or unused frame header descriptor bits set: %#08b", descriptor)
	}

	idx := 1
	h := &FrameHeader{SingleSegment: singleSegment, ContentChecksum: checksum}

	if !singleSegment {
		if len(buf) < idx+1 {
			return nil, truncationErrorf("window descriptor missing")
		}
		wd := buf[idx]
		h.windowDescSet = true
		h.windowExponent = wd >> 3
		h.windowMantissa = wd & 0b111
		idx++
	}

	didSize := [4]int{0, 1, 2, 4}[didFlag]
	if len(buf) < idx+didSize {
		return nil, truncationErrorf("dictionary id field truncated")
	}
	switch didSize {
	case 1:
		h.DictionaryID = uint32(buf[idx])
	case 2:
		h.DictionaryID = uint32(binary.LittleEndian.Uint16(buf[idx:]))
	case 4:
		h.DictionaryID = binary.LittleEndian.Uint32(buf[idx:])
	}
	idx += didSize

	var fcsSize int
	if fcsFlag == 0 {
		if singleSegment {
			fcsSize = 1
		} else {
			fcsSize = 0
		}
	} else {
		fcsSize = 1 << fcsFlag
	}

	if len(buf) < idx+fcsSize {
		return nil, truncationErrorf("frame content size field truncated")
	}
	switch fcsSize {
	case 0:
		h.HasContentSize = false
	case 1:
		h.FrameContentSz = uint64(buf[idx])
		h.HasContentSize = true
	case 2:
		h.FrameContentSz = uint64(binary.LittleEndian.Uint16(buf[idx:])) + 256
		h.HasContentSize = true
	case 4:
		h.FrameContentSz = uint64(binary.LittleEndian.Uint32(buf[idx:]))
		h.HasContentSize = true
	case 8:
		h.FrameContentSz = binary.LittleEndian.Uint64(buf[idx:])
		h.HasContentSize = true
	}
	idx += fcsSize

	h.HeaderLen = idx
	return h, nil
}

// Frame is a fully decoded Zstandard frame: its header, the concatenated
// output of all its blocks, and the trailing checksum if present.
type Frame struct {
	Header          *FrameHeader
	Content         []byte
	Checksum        uint32
	HasChecksum     bool
	Len             int // total bytes consumed from the input, including magic and trailer.
}

// isSkippableMagic reports whether magic falls in the skippable-frame
// range.
func isSkippableMagic(magic uint32) bool {
	return magic >= skippableMagicLow && magic <= skippableMagicHigh
}

// decodeFrame decodes a single frame starting at buf[0] (the magic
// number) and returns it; the number of input bytes it consumed is
// recorded in its Len field.
func decodeFrame(buf []byte) (*Frame, error) {
	if len(buf) < 4 {
		return nil, truncationErrorf("input shorter than a frame magic number")
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])

	if isSkippableMagic(magic) {
		if len(buf) < 8 {
			return nil, truncationErrorf("skippable frame size field missing")
		}
		size := binary.LittleEndian.Uint32(buf[4:8])
		total := 8 + int(size)
		if len(buf) < total {
			return nil, truncationErrorf("skippable frame payload truncated")
		}
		return &Frame{Header: nil, Content: nil, Len: total}, nil
	}

	if magic != Magic {
		return nil, formatErrorf("bad magic number %#08x", magic)
	}

	header, err := parseFrameHeader(buf[4:])
	if err != nil {
		return nil, err
	}

	ctx := newDecoderContext()
	cursor := 4 + header.HeaderLen
	blockIndex := 0
	for {
		if cursor+3 > len(buf) {
			return nil, truncationErrorf("block header truncated at block %d", blockIndex)
		}
		block, consumed, err := decodeBlock(buf[cursor:], ctx)
		if err != nil {
			if ze, ok := err.(*Error); ok {
				ze.BlockIndex = blockIndex
			}
			return nil, err
		}
		cursor += consumed
		blockIndex++
		if block.Header.LastBlock {
			break
		}
	}

	frame := &Frame{Header: header, Content: ctx.output}
	if header.ContentChecksum {
		if cursor+4 > len(buf) {
			return nil, truncationErrorf("content checksum truncated")
		}
		frame.Checksum = binary.LittleEndian.Uint32(buf[cursor : cursor+4])
		frame.HasChecksum = true
		cursor += 4
		if got := ContentChecksum(ctx.output); got != frame.Checksum {
			return nil, &Error{Kind: KindChecksumMismatch, BlockIndex: -1, BitOffset: -1,
				Msg: "computed content checksum does not match frame trailer"}
		}
	}

	frame.Len = cursor
	return frame, nil
}
