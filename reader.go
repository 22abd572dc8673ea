// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"context"
	"io"
	"sync"
)

type readerOpts struct {
	decOpts []DecompressorOption
}

// ReaderOption configures NewReader.
type ReaderOption func(*readerOpts)

// WithDecompressorOptions passes options through to the underlying
// ParallelDecoder created by NewReader.
func WithDecompressorOptions(opts ...DecompressorOption) ReaderOption {
	return func(o *readerOpts) { o.decOpts = append(o.decOpts, opts...) }
}

type reader struct {
	ctx   context.Context
	errCh chan error
	wg    *sync.WaitGroup
	dc    *ParallelDecoder
}

// NewReader returns an io.Reader that scans rd for Zstandard frames and
// decodes them concurrently, reassembling their content in order.
func NewReader(ctx context.Context, rd io.Reader, opts ...ReaderOption) io.Reader {
	rdOpts := &readerOpts{}
	for _, fn := range opts {
		fn(rdOpts)
	}
	sc := NewScanner(rd)
	dc := NewParallelDecoder(ctx, rdOpts.decOpts...)

	errCh := make(chan error, 1)
	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		errCh <- scanAndDecode(ctx, sc, dc)
		close(errCh)
		wg.Done()
	}()
	return &reader{ctx: ctx, errCh: errCh, dc: dc, wg: wg}
}

// scanAndDecode guarantees that Finish will have been called on dc. Any
// non-nil error it returns should be surfaced by the final call to Read.
func scanAndDecode(ctx context.Context, sc *Scanner, dc *ParallelDecoder) error {
	for sc.Scan(ctx) {
		if err := dc.Append(sc.Frame()); err != nil {
			dc.Cancel(err)
			dc.Finish()
			return err
		}
	}
	if err := sc.Err(); err != nil {
		dc.Cancel(err)
		dc.Finish()
		return err
	}
	return dc.Finish()
}

func (rd *reader) handleErrorOrCancel() error {
	select {
	case err := <-rd.errCh:
		return err
	case <-rd.ctx.Done():
		return rd.ctx.Err()
	default:
		return nil
	}
}

// Read implements io.Reader.
func (rd *reader) Read(buf []byte) (int, error) {
	if err := rd.handleErrorOrCancel(); err != nil {
		rd.dc.Cancel(err)
		rd.wg.Wait()
		return 0, err
	}
	n, err := rd.dc.Read(buf)
	if err == nil {
		return n, nil
	}
	rd.wg.Wait()
	select {
	case cerr := <-rd.errCh:
		if err != io.EOF {
			return n, err
		}
		if cerr != nil {
			return n, cerr
		}
	default:
	}
	return n, err
}
