// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "github.com/cosnicolaou/zstdcat/internal/huffman"

// LiteralsBlockType identifies one of the four literals section variants.
type LiteralsBlockType int

const (
	LiteralsRaw LiteralsBlockType = iota
	LiteralsRLE
	LiteralsCompressed
	LiteralsTreeless
)

// literalsSectionHeader is the parsed header of a literals section,
// kept as a named intermediate type (rather than inlined into the
// decode function) so tests can assert on it directly.
type literalsSectionHeader struct {
	Type             LiteralsBlockType
	RegeneratedSize  uint32
	CompressedSize   uint32
	HasCompressedSize bool
	FourStreams      bool
	HeaderLen        int
}

func parseLiteralsSectionHeader(b []byte) (*literalsSectionHeader, error) {
	if len(b) < 1 {
		return nil, truncationErrorf("literals section header missing")
	}
	typ := LiteralsBlockType(b[0] & 0b11)
	sizeFormat := (b[0] >> 2) & 0b11

	need := func(n int) error {
		if len(b) < n {
			return truncationErrorf("literals section header truncated: need %d bytes, have %d", n, len(b))
		}
		return nil
	}

	h := &literalsSectionHeader{Type: typ}

	switch typ {
	case LiteralsRaw, LiteralsRLE:
		h.FourStreams = false
		switch sizeFormat {
		case 0b00, 0b10:
			if err := need(1); err != nil {
				return nil, err
			}
			h.RegeneratedSize = uint32(b[0]) >> 3
			h.HeaderLen = 1
		case 0b01:
			if err := need(2); err != nil {
				return nil, err
			}
			h.RegeneratedSize = (uint32(b[0]) >> 4) | (uint32(b[1]) << 4)
			h.HeaderLen = 2
		case 0b11:
			if err := need(3); err != nil {
				return nil, err
			}
			h.RegeneratedSize = (uint32(b[0]) >> 4) | (uint32(b[1]) << 4) | (uint32(b[2]) << 12)
			h.HeaderLen = 3
		}

	case LiteralsCompressed, LiteralsTreeless:
		h.HasCompressedSize = true
		switch sizeFormat {
		case 0b00, 0b01:
			if err := need(3); err != nil {
				return nil, err
			}
			h.RegeneratedSize = (uint32(b[0]) >> 4) | ((uint32(b[1]) & 0b111111) << 4)
			h.CompressedSize = (uint32(b[1]) >> 6) | (uint32(b[2]) << 2)
			h.HeaderLen = 3
			h.FourStreams = sizeFormat == 0b01
		case 0b10:
			if err := need(4); err != nil {
				return nil, err
			}
			h.RegeneratedSize = (uint32(b[0]) >> 4) | (uint32(b[1]) << 4) | ((uint32(b[2]) & 0b11) << 12)
			h.CompressedSize = (uint32(b[2]) >> 2) | (uint32(b[3]) << 6)
			h.HeaderLen = 4
			h.FourStreams = true
		case 0b11:
			if err := need(5); err != nil {
				return nil, err
			}
			h.RegeneratedSize = (uint32(b[0]) >> 4) | (uint32(b[1]) << 4) | ((uint32(b[2]) & 0b111111) << 12)
			h.CompressedSize = (uint32(b[2]) >> 6) | (uint32(b[3]) << 2) | (uint32(b[4]) << 10)
			h.HeaderLen = 5
			h.FourStreams = true
		}
	}
	return h, nil
}

// decodeLiteralsSection decodes the literals section at the start of buf
// and returns the regenerated literal bytes plus the number of input
// bytes consumed.
func decodeLiteralsSection(buf []byte, ctx *decoderContext) ([]byte, int, error) {
	h, err := parseLiteralsSectionHeader(buf)
	if err != nil {
		return nil, 0, err
	}
	body := buf[h.HeaderLen:]

	switch h.Type {
	case LiteralsRaw:
		if uint32(len(body)) < h.RegeneratedSize {
			return nil, 0, truncationErrorf("raw literals truncated: want %d, have %d", h.RegeneratedSize, len(body))
		}
		out := make([]byte, h.RegeneratedSize)
		copy(out, body[:h.RegeneratedSize])
		return out, h.HeaderLen + int(h.RegeneratedSize), nil

	case LiteralsRLE:
		if len(body) < 1 {
			return nil, 0, truncationErrorf("rle literal byte missing")
		}
		out := make([]byte, h.RegeneratedSize)
		for i := range out {
			out[i] = body[0]
		}
		return out, h.HeaderLen + 1, nil

	case LiteralsCompressed, LiteralsTreeless:
		if uint32(len(body)) < h.CompressedSize {
			return nil, 0, truncationErrorf("compressed literals truncated: want %d, have %d", h.CompressedSize, len(body))
		}
		payload := body[:h.CompressedSize]

		var table *huffman.Table
		streamPayload := payload
		if h.Type == LiteralsCompressed {
			t, consumed, err := huffman.ReadTreeDescription(payload)
			if err != nil {
				return nil, 0, corruptionErrorf("huffman tree description: %v", err)
			}
			table = t
			ctx.huffmanTable = t
			ctx.haveHuffman = true
			streamPayload = payload[consumed:]
		} else {
			if !ctx.haveHuffman {
				return nil, 0, corruptionErrorf("treeless literals block with no prior Huffman tree")
			}
			table = ctx.huffmanTable
		}

		var out []byte
		if !h.FourStreams {
			decoded, err := huffman.DecodeStream(table, streamPayload, int(h.RegeneratedSize))
			if err != nil {
				return nil, 0, corruptionErrorf("literal stream: %v", err)
			}
			out = decoded
		} else {
			if len(streamPayload) < 6 {
				return nil, 0, truncationErrorf("four-stream jump table truncated")
			}
			s1 := int(streamPayload[0]) | int(streamPayload[1])<<8
			s2 := int(streamPayload[2]) | int(streamPayload[3])<<8
			s3 := int(streamPayload[4]) | int(streamPayload[5])<<8
			streams := streamPayload[6:]
			if s1+s2+s3 > len(streams) {
				return nil, 0, corruptionErrorf("four-stream jump table sizes %d+%d+%d exceed payload of %d bytes", s1, s2, s3, len(streams))
			}
			s4 := len(streams) - s1 - s2 - s3

			q := (int(h.RegeneratedSize) + 3) / 4
			sizes := [4]int{q, q, q, int(h.RegeneratedSize) - 3*q}
			offsets := [4]int{0, s1, s1 + s2, s1 + s2 + s3}
			lens := [4]int{s1, s2, s3, s4}

			out = make([]byte, 0, h.RegeneratedSize)
			for i := 0; i < 4; i++ {
				stream := streams[offsets[i] : offsets[i]+lens[i]]
				decoded, err := huffman.DecodeStream(table, stream, sizes[i])
				if err != nil {
					return nil, 0, corruptionErrorf("literal stream %d: %v", i+1, err)
				}
				out = append(out, decoded...)
			}
		}
		return out, h.HeaderLen + int(h.CompressedSize), nil
	}
	return nil, 0, formatErrorf("unreachable literals block type %d", h.Type)
}
