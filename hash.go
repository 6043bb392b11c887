// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package strmap

import "github.com/cespare/xxhash/v2"

const (
	hashSeed       = 5381
	hashMultiplier = 33
)

// Hash is the default hash function of a Map. It is a member of the DJB2
// family: starting from a fixed seed, each byte of the key is folded in as
// h = h*33 ^ b. It is fast and distributes short textual keys well, but it
// offers no protection against keys chosen to collide.
func Hash(key string) uint64 {
	h := uint64(hashSeed)
	for i := 0; i < len(key); i++ {
		h = (h * hashMultiplier) ^ uint64(key[i])
	}
	return h
}

// XXHash hashes key with xxHash64. It is slower than Hash on very short keys
// and noticeably better mixed on long keys with shared prefixes. Use it via
// WithHash(XXHash).
func XXHash(key string) uint64 {
	return xxhash.Sum64String(key)
}
