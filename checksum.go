// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "github.com/cespare/xxhash/v2"

// ContentChecksum computes the boundary-contract checksum a Zstandard
// frame trailer records: the low 32 bits of the XXH64 digest of the
// decoded frame content.
func ContentChecksum(content []byte) uint32 {
	return uint32(xxhash.Sum64(content))
}
