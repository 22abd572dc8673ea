// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "testing"

func rawBlockFrame(content string) []byte {
	return []byte(string([]byte{
		0x28, 0xB5, 0x2F, 0xFD,
		0x20,
		byte(len(content)),
		byte(1) | byte(BlockRaw)<<1 | byte(len(content))<<3,
		byte(len(content) >> 5),
		byte(len(content) >> 13),
	}) + content)
}

func skippableFrame(payload []byte) []byte {
	size := uint32(len(payload))
	b := []byte{0x50, 0x2A, 0x4D, 0x18, byte(size), byte(size >> 8), byte(size >> 16), byte(size >> 24)}
	return append(b, payload...)
}

func TestDecodeSingleFrame(t *testing.T) {
	out, err := Decode(rawBlockFrame("hello"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(out) != "hello" {
		t.Fatalf("out = %q", out)
	}
}

func TestDecodeConcatenatedFrames(t *testing.T) {
	var input []byte
	input = append(input, rawBlockFrame("hello ")...)
	input = append(input, rawBlockFrame("world")...)
	out, err := Decode(input)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(out) != "hello world" {
		t.Fatalf("out = %q", out)
	}
}

func TestDecodeSkippableFrameContributesNoOutput(t *testing.T) {
	var input []byte
	input = append(input, skippableFrame([]byte{0xAA, 0xBB, 0xCC})...)
	input = append(input, rawBlockFrame("payload")...)
	out, err := Decode(input)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(out) != "payload" {
		t.Fatalf("out = %q", out)
	}
}

func TestDecodePropagatesFrameError(t *testing.T) {
	_, err := Decode([]byte{0, 0, 0, 0})
	if err == nil {
		t.Fatal("expected an error for a bad magic number")
	}
}
