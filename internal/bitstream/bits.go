// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bitstream provides the two bit-level readers that the entropy
// decoders in this module are built on: a forward reader that consumes
// bits MSB-first from the start of a buffer, and a reverse reader that
// consumes bits from the end of a buffer, skipping the single-bit
// initialization marker the encoder appends to byte-align the tail of
// the stream.
//
// The two are deliberately distinct types rather than a single reader
// with a direction flag: forward fields (block headers, literals
// headers, weight headers) are never prefixed with an initialization
// marker, while reverse fields (FSE and Huffman bitstreams) always are,
// and conflating the two leads to silently misaligned reads.
package bitstream

import "fmt"

// ForwardReader reads bits starting at the first byte of a buffer, most
// significant bit first, assembling multi-bit reads big-endian across
// byte boundaries.
type ForwardReader struct {
	buf []byte
	pos uint64 // absolute bit offset from the start of buf.
}

// NewForwardReader returns a ForwardReader over buf.
func NewForwardReader(buf []byte) *ForwardReader {
	return &ForwardReader{buf: buf}
}

// GetBits returns the next n bits, 1 <= n <= 64, advancing the cursor.
func (r *ForwardReader) GetBits(n uint) (uint64, error) {
	if n == 0 || n > 64 {
		return 0, fmt.Errorf("bitstream: invalid forward read width %d", n)
	}
	if r.pos+uint64(n) > uint64(len(r.buf))*8 {
		return 0, fmt.Errorf("bitstream: forward read past end of buffer: %d bits available, %d requested",
			uint64(len(r.buf))*8-r.pos, n)
	}
	var result uint64
	remaining := n
	for remaining > 0 {
		byteIdx := r.pos / 8
		bitIdx := uint(r.pos % 8)
		avail := 8 - bitIdx
		take := avail
		if uint(remaining) < take {
			take = uint(remaining)
		}
		shift := avail - take
		mask := byte((1 << take) - 1)
		bits := (r.buf[byteIdx] >> shift) & mask
		result = (result << take) | uint64(bits)
		r.pos += uint64(take)
		remaining -= take
	}
	return result, nil
}

// BitsRemaining reports how many unread bits remain.
func (r *ForwardReader) BitsRemaining() uint64 {
	return uint64(len(r.buf))*8 - r.pos
}

// ByteAlign advances the cursor to the next byte boundary; a no-op if
// already aligned.
func (r *ForwardReader) ByteAlign() {
	if rem := r.pos % 8; rem != 0 {
		r.pos += 8 - rem
	}
}

// leadingZeros8 counts the number of leading zero bits in b, treating a
// zero byte as having 8.
func leadingZeros8(b byte) int {
	n := 0
	for i := 7; i >= 0; i-- {
		if b&(1<<uint(i)) != 0 {
			break
		}
		n++
	}
	return n
}

// ReverseReader reads bits most-significant-bit first, starting from the
// end of a buffer and moving towards its start, as required by the FSE
// and Huffman bitstreams a Zstandard encoder writes back to front.
//
// Construction locates and skips the stream's one-bit initialization
// marker: the highest set bit of the final byte, plus the zero padding
// above it used to byte-align the end of the stream.
type ReverseReader struct {
	buf       []byte
	consumed  uint64 // bits consumed so far, counted down from the top.
	totalBits uint64
}

// NewReverseReader constructs a ReverseReader over buf and skips its
// initialization marker. buf's last byte must be non-zero.
func NewReverseReader(buf []byte) (*ReverseReader, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("bitstream: empty reverse buffer")
	}
	last := buf[len(buf)-1]
	if last == 0 {
		return nil, fmt.Errorf("bitstream: reverse buffer's last byte is zero, no initialization marker present")
	}
	marker := uint64(leadingZeros8(last)) + 1
	return &ReverseReader{
		buf:       buf,
		consumed:  marker,
		totalBits: uint64(len(buf)) * 8,
	}, nil
}

// GetBits returns the next n bits, 1 <= n <= 64, read from the high end
// of the buffer towards the low end, advancing the cursor.
func (r *ReverseReader) GetBits(n uint) (uint64, error) {
	if n == 0 || n > 64 {
		return 0, fmt.Errorf("bitstream: invalid reverse read width %d", n)
	}
	if r.consumed+uint64(n) > r.totalBits {
		return 0, fmt.Errorf("bitstream: reverse read past end of buffer: %d bits available, %d requested",
			r.totalBits-r.consumed, n)
	}
	var result uint64
	remaining := n
	for remaining > 0 {
		absBit := r.consumed
		byteIdx := len(r.buf) - 1 - int(absBit/8)
		bitIdx := uint(absBit % 8)
		avail := 8 - bitIdx
		take := avail
		if uint(remaining) < take {
			take = uint(remaining)
		}
		shift := avail - take
		mask := byte((1 << take) - 1)
		bits := (r.buf[byteIdx] >> shift) & mask
		result = (result << take) | uint64(bits)
		r.consumed += uint64(take)
		remaining -= take
	}
	return result, nil
}

// BitsRemaining reports how many unread bits remain, excluding the
// marker bits skipped at construction.
func (r *ReverseReader) BitsRemaining() uint64 {
	return r.totalBits - r.consumed
}

// Rewind moves the cursor back n bits, for callers that peek more bits
// than a decoded code actually consumes (the Huffman table lookup does
// this: it reads a full max-width window, then rewinds past the unused
// tail once the code length is known).
func (r *ReverseReader) Rewind(n uint) error {
	if uint64(n) > r.consumed {
		return fmt.Errorf("bitstream: rewind of %d bits exceeds %d consumed", n, r.consumed)
	}
	r.consumed -= uint64(n)
	return nil
}
