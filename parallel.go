// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"container/heap"
	"context"
	"io"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// decompressorOpts holds ParallelDecoder construction options.
type decompressorOpts struct {
	verbose     bool
	concurrency int
	progressCh  chan<- Progress
}

// DecompressorOption configures a ParallelDecoder.
type DecompressorOption func(*decompressorOpts)

// WithVerbose enables diagnostic logging of per-frame decode timing.
func WithVerbose(v bool) DecompressorOption {
	return func(o *decompressorOpts) { o.verbose = v }
}

// WithConcurrency sets the number of frames decoded concurrently.
func WithConcurrency(n int) DecompressorOption {
	return func(o *decompressorOpts) { o.concurrency = n }
}

// WithProgress sets the channel progress updates are sent to as each
// frame is reassembled into the output stream, in order.
func WithProgress(ch chan<- Progress) DecompressorOption {
	return func(o *decompressorOpts) { o.progressCh = ch }
}

// Progress reports a single frame's decode having been reassembled into
// the output stream.
type Progress struct {
	Duration    time.Duration
	Frame       uint64
	Compressed  int
	Size        int
}

// ParallelDecoder decodes independent Zstandard frames concurrently and
// reassembles their decoded content in the order the frames appeared in
// the input. A single frame's blocks share Huffman and FSE state and so
// are always decoded sequentially within decodeFrame; it is only across
// frame boundaries that concurrency is safe, since each frame starts
// with an empty decoderContext.
type ParallelDecoder struct {
	order uint64 // atomically incremented, must stay first for alignment.

	ctx        context.Context
	workWg     sync.WaitGroup
	doneWg     sync.WaitGroup
	workCh     chan *frameJob
	doneCh     chan *frameJob
	progressCh chan<- Progress
	prd        *io.PipeReader
	pwr        *io.PipeWriter

	heap    *frameHeap
	verbose bool
}

type frameJob struct {
	order uint64
	raw   []byte

	err      error
	data     []byte
	duration time.Duration
}

func (dc *ParallelDecoder) trace(format string, args ...interface{}) {
	if dc.verbose {
		log.Printf(format, args...)
	}
}

func (j *frameJob) decode() {
	start := time.Now()
	frame, err := decodeFrame(j.raw)
	if err != nil {
		j.err = err
	} else {
		j.data = frame.Content
	}
	j.duration = time.Since(start)
}

// NewParallelDecoder creates a new concurrent frame decoder.
func NewParallelDecoder(ctx context.Context, opts ...DecompressorOption) *ParallelDecoder {
	o := decompressorOpts{concurrency: runtime.GOMAXPROCS(-1)}
	for _, fn := range opts {
		fn(&o)
	}
	dc := &ParallelDecoder{
		ctx:        ctx,
		workCh:     make(chan *frameJob, o.concurrency),
		doneCh:     make(chan *frameJob, o.concurrency),
		progressCh: o.progressCh,
		heap:       &frameHeap{},
		verbose:    o.verbose,
	}
	dc.prd, dc.pwr = io.Pipe()
	heap.Init(dc.heap)
	dc.workWg.Add(o.concurrency)
	dc.doneWg.Add(1)
	for i := 0; i < o.concurrency; i++ {
		go func() {
			dc.worker(ctx, dc.workCh, dc.doneCh)
			dc.workWg.Done()
		}()
	}
	go func() {
		dc.assemble(ctx, dc.doneCh)
		dc.doneWg.Done()
	}()
	return dc
}

func (dc *ParallelDecoder) worker(ctx context.Context, in <-chan *frameJob, out chan<- *frameJob) {
	for {
		select {
		case job, ok := <-in:
			if !ok {
				return
			}
			dc.trace("decoding frame %d (%d bytes)", job.order, len(job.raw))
			job.decode()
			select {
			case out <- job:
			case <-ctx.Done():
			}
		case <-ctx.Done():
			return
		}
	}
}

// Append submits one frame's raw bytes, as produced by Scanner.Frame, for
// decoding.
func (dc *ParallelDecoder) Append(raw []byte) error {
	order := atomic.AddUint64(&dc.order, 1)
	select {
	case dc.workCh <- &frameJob{order: order, raw: raw}:
	case <-dc.ctx.Done():
		return dc.ctx.Err()
	}
	return nil
}

// Cancel unblocks any readers of this decoder with err.
func (dc *ParallelDecoder) Cancel(err error) {
	dc.pwr.CloseWithError(err)
}

// Finish waits for all outstanding decode work to complete and for its
// output to be reassembled. It must be called exactly once.
func (dc *ParallelDecoder) Finish() error {
	var err error
	select {
	case <-dc.ctx.Done():
		err = dc.ctx.Err()
	default:
	}
	close(dc.workCh)
	dc.workWg.Wait()
	close(dc.doneCh)
	dc.doneWg.Wait()
	return err
}

type frameHeap []*frameJob

func (h frameHeap) Len() int            { return len(h) }
func (h frameHeap) Less(i, j int) bool  { return h[i].order < h[j].order }
func (h frameHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *frameHeap) Push(x interface{}) { *h = append(*h, x.(*frameJob)) }
func (h *frameHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

func (dc *ParallelDecoder) assemble(ctx context.Context, ch <-chan *frameJob) {
	defer dc.pwr.Close()
	if dc.progressCh != nil {
		defer close(dc.progressCh)
	}
	expected := uint64(1)
	for {
		select {
		case job, ok := <-ch:
			if ok {
				heap.Push(dc.heap, job)
			}
			for len(*dc.heap) > 0 {
				min := (*dc.heap)[0]
				if min.order != expected {
					break
				}
				heap.Remove(dc.heap, 0)
				expected++
				if min.err != nil {
					dc.pwr.CloseWithError(min.err)
					return
				}
				if _, err := dc.pwr.Write(min.data); err != nil {
					dc.pwr.CloseWithError(err)
					return
				}
				if dc.progressCh != nil {
					dc.progressCh <- Progress{
						Duration:   min.duration,
						Frame:      min.order,
						Compressed: len(min.raw),
						Size:       len(min.data),
					}
				}
			}
			if !ok && len(*dc.heap) == 0 {
				return
			}
		case <-ctx.Done():
			dc.pwr.CloseWithError(ctx.Err())
			return
		}
	}
}

// Read implements io.Reader over the reassembled, decoded stream.
func (dc *ParallelDecoder) Read(buf []byte) (int, error) {
	return dc.prd.Read(buf)
}
