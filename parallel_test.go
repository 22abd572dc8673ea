// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"context"
	"io"
	"testing"
)

func TestParallelDecoderInOrderReassembly(t *testing.T) {
	dc := NewParallelDecoder(context.Background(), WithConcurrency(4))

	frames := [][]byte{
		rawBlockFrame("one "),
		rawBlockFrame("two "),
		rawBlockFrame("three"),
	}
	for _, f := range frames {
		if err := dc.Append(f); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	var out []byte
	readDone := make(chan struct{})
	go func() {
		out, _ = io.ReadAll(dc)
		close(readDone)
	}()

	if err := dc.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	<-readDone

	if got, want := string(out), "one two three"; got != want {
		t.Fatalf("out = %q, want %q", got, want)
	}
}

func TestParallelDecoderPropagatesFrameError(t *testing.T) {
	dc := NewParallelDecoder(context.Background(), WithConcurrency(2))

	if err := dc.Append(rawBlockFrame("ok")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := dc.Append([]byte{0, 0, 0, 0}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	readErrCh := make(chan error, 1)
	go func() {
		_, err := io.ReadAll(dc)
		readErrCh <- err
	}()

	if err := dc.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := <-readErrCh; err == nil {
		t.Fatal("expected a read error from the malformed frame")
	}
}

func TestParallelDecoderClosesProgressChannel(t *testing.T) {
	progressCh := make(chan Progress, 4)
	dc := NewParallelDecoder(context.Background(), WithConcurrency(2), WithProgress(progressCh))

	if err := dc.Append(rawBlockFrame("hello")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	go func() {
		_, _ = io.ReadAll(dc)
	}()
	if err := dc.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	var n int
	for range progressCh {
		n++
	}
	if n != 1 {
		t.Fatalf("received %d progress updates, want 1", n)
	}
}

var _ io.Reader = (*ParallelDecoder)(nil)
