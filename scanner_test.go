// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"bytes"
	"context"
	"testing"
)

func TestScannerSingleFrame(t *testing.T) {
	input := rawBlockFrame("hello")
	sc := NewScanner(bytes.NewReader(input))
	if !sc.Scan(context.Background()) {
		t.Fatalf("Scan returned false, err = %v", sc.Err())
	}
	if !bytes.Equal(sc.Frame(), input) {
		t.Fatalf("Frame() = %v, want %v", sc.Frame(), input)
	}
	if sc.Scan(context.Background()) {
		t.Fatal("expected a second Scan to return false at EOF")
	}
	if sc.Err() != nil {
		t.Fatalf("Err() = %v, want nil at clean EOF", sc.Err())
	}
}

func TestScannerMultipleFrames(t *testing.T) {
	var input []byte
	input = append(input, rawBlockFrame("one")...)
	input = append(input, rawBlockFrame("two")...)

	sc := NewScanner(bytes.NewReader(input))
	var frames [][]byte
	for sc.Scan(context.Background()) {
		frames = append(frames, append([]byte{}, sc.Frame()...))
	}
	if sc.Err() != nil {
		t.Fatalf("Err() = %v", sc.Err())
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if !bytes.Equal(frames[0], rawBlockFrame("one")) || !bytes.Equal(frames[1], rawBlockFrame("two")) {
		t.Fatalf("frames = %v", frames)
	}
}

func TestScannerSkippableFrame(t *testing.T) {
	input := skippableFrame([]byte{0x01, 0x02, 0x03})
	sc := NewScanner(bytes.NewReader(input))
	if !sc.Scan(context.Background()) {
		t.Fatalf("Scan returned false, err = %v", sc.Err())
	}
	if !bytes.Equal(sc.Frame(), input) {
		t.Fatalf("Frame() = %v, want %v", sc.Frame(), input)
	}
}

func TestScannerTruncatedBlockPayload(t *testing.T) {
	input := rawBlockFrame("hello")
	truncated := input[:len(input)-2]
	sc := NewScanner(bytes.NewReader(truncated))
	if sc.Scan(context.Background()) {
		t.Fatal("expected Scan to fail on truncated input")
	}
	if sc.Err() == nil {
		t.Fatal("expected a non-nil error")
	}
}

func TestScannerBadMagic(t *testing.T) {
	sc := NewScanner(bytes.NewReader([]byte{0, 0, 0, 0}))
	if sc.Scan(context.Background()) {
		t.Fatal("expected Scan to fail on a bad magic number")
	}
	ze, ok := sc.Err().(*Error)
	if !ok || ze.Kind != KindFormat {
		t.Fatalf("Err() = %v, want KindFormat", sc.Err())
	}
}

func TestScannerContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sc := NewScanner(bytes.NewReader(rawBlockFrame("hello")))
	if sc.Scan(ctx) {
		t.Fatal("expected Scan to return false for a cancelled context")
	}
	if sc.Err() == nil {
		t.Fatal("expected a non-nil error for a cancelled context")
	}
}
