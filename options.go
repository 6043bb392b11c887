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

import "go.uber.org/zap"

// Option configures a Map while it is being created.
type Option interface {
	apply(m *Map)
}

type hashOption struct {
	hash func(key string) uint64
}

func (op hashOption) apply(m *Map) {
	m.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a Map. The
// function must be deterministic. The default is Hash.
func WithHash(hash func(key string) uint64) Option {
	return hashOption{hash}
}

// Allocator specifies an interface for allocating and releasing memory used
// by a Map. The default allocator utilizes Go's builtin make() and allows the
// GC to reclaim memory.
//
// Unlike Go's builtin allocation, an Allocator may fail. A failure is
// reported to the caller of Map.Set as ErrAllocation and leaves the Map
// exactly as it was before the call.
//
// If the allocator is manually managing memory and requires that nodes and
// bucket arrays be freed then Map.Close must be called in order to ensure
// FreeNode and FreeBuckets are called.
type Allocator interface {
	// AllocNode should return a slice equivalent to make([]byte, size). The
	// slice holds a node's key followed by its value.
	AllocNode(size int) ([]byte, error)

	// AllocBuckets should return a slice equivalent to make([]*Node, n).
	AllocBuckets(n int) ([]*Node, error)

	// FreeNode can optionally release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by AllocNode.
	FreeNode(v []byte)

	// FreeBuckets can optionally release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by
	// AllocBuckets.
	FreeBuckets(v []*Node)
}

type defaultAllocator struct{}

func (defaultAllocator) AllocNode(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func (defaultAllocator) AllocBuckets(n int) ([]*Node, error) {
	return make([]*Node, n), nil
}

func (defaultAllocator) FreeNode(v []byte) {
}

func (defaultAllocator) FreeBuckets(v []*Node) {
}

type allocatorOption struct {
	allocator Allocator
}

func (op allocatorOption) apply(m *Map) {
	m.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a Map.
func WithAllocator(allocator Allocator) Option {
	return allocatorOption{allocator}
}

type loggerOption struct {
	logger *zap.Logger
}

func (op loggerOption) apply(m *Map) {
	if op.logger != nil {
		m.logger = op.logger
	}
}

// WithLogger is an option to specify the logger a Map reports growth and
// allocation failures to. Everything is logged at debug level. The default
// logger discards all output.
func WithLogger(logger *zap.Logger) Option {
	return loggerOption{logger}
}
