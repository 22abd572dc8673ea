// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"errors"
	"fmt"
)

// ErrEncodeUnsupported is returned by CLI entry points asked to encode:
// this package only implements the decoder side of the format.
var ErrEncodeUnsupported = errors.New("zstd: encode is not supported")

// Kind classifies a decode error so that callers can distinguish them
// programmatically (for example, to choose a CLI exit code or to assert
// on a specific failure mode in a test) without parsing error text.
type Kind int

const (
	// KindFormat covers bad magic numbers, reserved block types, and
	// reserved bits set where the format requires them to be zero.
	KindFormat Kind = iota
	// KindTruncation covers input that ends before a header, table
	// description, or bitstream has been fully consumed.
	KindTruncation
	// KindCorruption covers internally inconsistent but well-formed-looking
	// input: out-of-range FSE state, a Huffman weight sum that isn't one
	// less than a power of two, repeat-offset resolution landing outside
	// the addressable window, and similar.
	KindCorruption
	// KindChecksumMismatch covers a frame whose recorded checksum does not
	// match the computed XXH64-derived value of its decoded content.
	KindChecksumMismatch
)

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindTruncation:
		return "truncation"
	case KindCorruption:
		return "corruption"
	case KindChecksumMismatch:
		return "checksum mismatch"
	default:
		return "unknown"
	}
}

// Error is the error type this package returns for malformed input.
// Context cancellation is reported with the context's own error, and
// encode requests with ErrEncodeUnsupported.
// BlockIndex and BitOffset are diagnostic context, -1 when not
// applicable.
type Error struct {
	Kind       Kind
	Msg        string
	BlockIndex int
	BitOffset  int64
	Err        error
}

func (e *Error) Error() string {
	loc := ""
	if e.BlockIndex >= 0 {
		loc += fmt.Sprintf(" block %d", e.BlockIndex)
	}
	if e.BitOffset >= 0 {
		loc += fmt.Sprintf(" bit offset %d", e.BitOffset)
	}
	if loc != "" {
		loc = " (at" + loc + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("zstd: %s: %s%s: %v", e.Kind, e.Msg, loc, e.Err)
	}
	return fmt.Sprintf("zstd: %s: %s%s", e.Kind, e.Msg, loc)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so that
// errors.Is(err, &zstd.Error{Kind: zstd.KindFormat}) style checks work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, BlockIndex: -1, BitOffset: -1, Err: err}
}

func formatErrorf(format string, args ...interface{}) *Error {
	return newErr(KindFormat, fmt.Sprintf(format, args...), nil)
}

func truncationErrorf(format string, args ...interface{}) *Error {
	return newErr(KindTruncation, fmt.Sprintf(format, args...), nil)
}

func corruptionErrorf(format string, args ...interface{}) *Error {
	return newErr(KindCorruption, fmt.Sprintf(format, args...), nil)
}
