// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

// Decode decodes a complete Zstandard stream: one or more concatenated
// frames (skippable frames contribute no output), returning the
// concatenation of every non-skippable frame's decoded content.
func Decode(buf []byte) ([]byte, error) {
	var out []byte
	cursor := 0
	for cursor < len(buf) {
		frame, err := decodeFrame(buf[cursor:])
		if err != nil {
			return nil, err
		}
		if frame.Header != nil {
			out = append(out, frame.Content...)
		}
		cursor += frame.Len
	}
	return out, nil
}
