// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

// BlockType identifies the coding discipline of a block's payload.
type BlockType int

const (
	BlockRaw BlockType = iota
	BlockRLE
	BlockCompressed
	BlockReserved
)

func (t BlockType) String() string {
	switch t {
	case BlockRaw:
		return "raw"
	case BlockRLE:
		return "rle"
	case BlockCompressed:
		return "compressed"
	default:
		return "reserved"
	}
}

// BlockHeader is the parsed 3-byte block header: {last_block:1,
// block_type:2, block_size:21}.
type BlockHeader struct {
	LastBlock bool
	Type      BlockType
	Size      uint32
}

func parseBlockHeader(b []byte) BlockHeader {
	last := b[0]&1 != 0
	typ := BlockType((b[0] >> 1) & 0b11)
	size := uint32(b[0]>>3) | uint32(b[1])<<5 | uint32(b[2])<<13
	return BlockHeader{LastBlock: last, Type: typ, Size: size}
}

// Block is a single decoded block: its header plus its decompressed
// payload. Payload aliases the relevant slice of the frame's output
// buffer rather than holding an independent copy.
type Block struct {
	Header  BlockHeader
	Payload []byte
}

// decodeBlock parses and decodes the block at the start of buf, appending
// its decompressed payload to ctx.output, and returns it plus the total
// number of input bytes consumed (header + payload). All three block
// types append to ctx.output exactly once here: Raw and RLE append
// directly, while Compressed delegates to decodeCompressedBlock, which
// must append to ctx.output itself since match copies in a later
// sequence can reference bytes decoded earlier in the same block.
func decodeBlock(buf []byte, ctx *decoderContext) (*Block, int, error) {
	header := parseBlockHeader(buf[:3])
	body := buf[3:]
	before := len(ctx.output)

	switch header.Type {
	case BlockRaw:
		if uint32(len(body)) < header.Size {
			return nil, 0, truncationErrorf("raw block payload truncated: want %d, have %d", header.Size, len(body))
		}
		ctx.output = append(ctx.output, body[:header.Size]...)
		return &Block{Header: header, Payload: ctx.output[before:]}, 3 + int(header.Size), nil

	case BlockRLE:
		if len(body) < 1 {
			return nil, 0, truncationErrorf("rle block byte missing")
		}
		for i := uint32(0); i < header.Size; i++ {
			ctx.output = append(ctx.output, body[0])
		}
		return &Block{Header: header, Payload: ctx.output[before:]}, 4, nil

	case BlockCompressed:
		if uint32(len(body)) < header.Size {
			return nil, 0, truncationErrorf("compressed block payload truncated: want %d, have %d", header.Size, len(body))
		}
		payload, err := decodeCompressedBlock(body[:header.Size], ctx)
		if err != nil {
			return nil, 0, err
		}
		return &Block{Header: header, Payload: payload}, 3 + int(header.Size), nil

	default:
		return nil, 0, formatErrorf("reserved block type encountered")
	}
}
