// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"context"
	"encoding/binary"
	"io"
)

// Scanner splits a Zstandard stream into its constituent frames without
// decoding any of them, so that a ParallelDecoder can hand each frame's
// raw bytes to a worker. Unlike a bzip2 stream, whose block boundaries
// must be found by searching for a magic bit pattern, every Zstandard
// frame and block carries an explicit length, so the scanner only ever
// reads header fields and skips the byte counts they declare.
type Scanner struct {
	rd    io.Reader
	frame []byte
	err   error
	done  bool
}

// NewScanner returns a new Scanner reading frames from rd.
func NewScanner(rd io.Reader) *Scanner {
	return &Scanner{rd: rd}
}

// Scan reads the next frame's raw bytes, returning false once the stream
// is exhausted or an error has occurred; Err reports which.
func (sc *Scanner) Scan(ctx context.Context) bool {
	if sc.done {
		return false
	}
	select {
	case <-ctx.Done():
		sc.err = ctx.Err()
		sc.done = true
		return false
	default:
	}

	magic := make([]byte, 4)
	if _, err := io.ReadFull(sc.rd, magic); err != nil {
		sc.done = true
		if err != io.EOF {
			sc.err = truncationErrorf("scanner: reading frame magic: %v", err)
		}
		return false
	}

	if isSkippableMagic(binary.LittleEndian.Uint32(magic)) {
		sizeBuf := make([]byte, 4)
		if _, err := io.ReadFull(sc.rd, sizeBuf); err != nil {
			sc.err = truncationErrorf("scanner: reading skippable frame size: %v", err)
			sc.done = true
			return false
		}
		size := binary.LittleEndian.Uint32(sizeBuf)
		payload := make([]byte, size)
		if _, err := io.ReadFull(sc.rd, payload); err != nil {
			sc.err = truncationErrorf("scanner: reading skippable frame payload: %v", err)
			sc.done = true
			return false
		}
		sc.frame = append(append(append([]byte{}, magic...), sizeBuf...), payload...)
		return true
	}

	if binary.LittleEndian.Uint32(magic) != Magic {
		sc.err = formatErrorf("scanner: bad magic number %#08x", binary.LittleEndian.Uint32(magic))
		sc.done = true
		return false
	}

	header, headerBytes, err := sc.scanFrameHeader()
	if err != nil {
		sc.err = err
		sc.done = true
		return false
	}

	frame := append(append([]byte{}, magic...), headerBytes...)

	for {
		blockHeaderBuf := make([]byte, 3)
		if _, err := io.ReadFull(sc.rd, blockHeaderBuf); err != nil {
			sc.err = truncationErrorf("scanner: reading block header: %v", err)
			sc.done = true
			return false
		}
		bh := parseBlockHeader(blockHeaderBuf)
		frame = append(frame, blockHeaderBuf...)

		payloadLen := int(bh.Size)
		if bh.Type == BlockRLE {
			payloadLen = 1
		}
		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(sc.rd, payload); err != nil {
			sc.err = truncationErrorf("scanner: reading block payload: %v", err)
			sc.done = true
			return false
		}
		frame = append(frame, payload...)
		if bh.LastBlock {
			break
		}
	}

	if header.ContentChecksum {
		checksum := make([]byte, 4)
		if _, err := io.ReadFull(sc.rd, checksum); err != nil {
			sc.err = truncationErrorf("scanner: reading content checksum: %v", err)
			sc.done = true
			return false
		}
		frame = append(frame, checksum...)
	}

	sc.frame = frame
	return true
}

// scanFrameHeader reads exactly the frame header's bytes by growing a
// buffer one byte at a time until parseFrameHeader stops reporting
// truncation, reusing the same parser the decoder itself uses rather
// than duplicating its field-width logic.
func (sc *Scanner) scanFrameHeader() (*FrameHeader, []byte, error) {
	var buf []byte
	for {
		b := make([]byte, 1)
		if _, err := io.ReadFull(sc.rd, b); err != nil {
			return nil, nil, truncationErrorf("scanner: reading frame header: %v", err)
		}
		buf = append(buf, b...)
		header, err := parseFrameHeader(buf)
		if err == nil {
			return header, buf[:header.HeaderLen], nil
		}
		if ze, ok := err.(*Error); !ok || ze.Kind != KindTruncation {
			return nil, nil, err
		}
	}
}

// Frame returns the most recently scanned frame's raw bytes.
func (sc *Scanner) Frame() []byte {
	return sc.frame
}

// Err returns the first non-EOF error the scanner encountered.
func (sc *Scanner) Err() error {
	return sc.err
}
