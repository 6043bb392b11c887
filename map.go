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

// Package strmap is a hash map from string keys to opaque byte values using
// separate chaining. See
// https://en.wikipedia.org/wiki/Hash_table#Separate_chaining.
//
// # Layout
//
// A Map is an array of 2^k chain heads (k may be 0, and an empty Map has no
// array at all). A key with hash h lives in the chain at h&(2^k-1). Each
// entry is a Node holding the hash of its key, a single buffer containing
// the key bytes immediately followed by the value bytes, and a link to the
// next Node in the same chain. New nodes are linked at the head of their
// chain.
//
//	buckets
//	+---+
//	| 0 | --> [h|key|value] --> [h|key|value] --> nil
//	+---+
//	| 1 | --> nil
//	+---+
//	| 2 | --> [h|key|value] --> nil
//	+---+
//	| 3 | --> nil
//	+---+
//
// The stored hash is compared before the key so that most mismatches in a
// chain never touch the key bytes. Equal hashes are not trusted on their own:
// the key is always compared in full.
//
// # Growth
//
// The load factor is capped at 1. When inserting a new key into a Map whose
// node count has reached its bucket count, the bucket array is doubled (or
// created with a single bucket) and every node is relinked into the chain
// selected by its cached hash under the new mask. Keys are never rehashed.
// The new array is obtained before any chain is touched, so a failed
// allocation leaves the Map as it was. A Map never shrinks.
//
// # Values
//
// Values are copied into the Map on Set. Overwriting a key with a value of a
// different length reallocates the node's buffer; the key, its hash and the
// node's position in its chain are kept. Get returns a view of the stored
// bytes which remains valid until the next mutation of the Map.
//
// # Iteration
//
// An Iterator walks the buckets in ascending order and each chain from its
// head, so keys that share a bucket are produced most recently inserted
// first. Callers should not rely on the order. Any structural mutation
// (inserting a new key, removing a present key, growing, closing)
// invalidates every outstanding Iterator, which then stops and reports
// ErrStaleIterator from Err.
package strmap

import (
	"fmt"
	"math/bits"
	"strings"

	"go.uber.org/zap"
)

// Node holds a key and value. Nodes are owned by the Map and are only
// exposed so that an Allocator can provide bucket arrays.
type Node struct {
	// hash is the Map's hash of the key. It never changes after the node is
	// created.
	hash uint64
	// data is the key followed by the value.
	data []byte
	// klen is the length of the key prefix of data.
	klen int
	// next is the following node in the same chain.
	next *Node
}

func (n *Node) key() string {
	return string(n.data[:n.klen])
}

func (n *Node) hasKey(key string) bool {
	return string(n.data[:n.klen]) == key
}

// value returns the value bytes, clipped so that appending to the result
// cannot write into memory owned by the node.
func (n *Node) value() []byte {
	return n.data[n.klen:len(n.data):len(n.data)]
}

// Map is a hash map from string keys to byte values with Set, Get, Remove,
// All and Iter operations. By default, a Map hashes keys with Hash, though a
// different hash function can be specified using the WithHash option.
//
// A Map is NOT goroutine-safe.
type Map struct {
	// The hash function applied to every key.
	hash func(key string) uint64
	// The allocator to use for node buffers and the bucket array.
	allocator Allocator
	logger    *zap.Logger
	// The chain heads. The length is always 0 or a power of 2, which allows
	// h%len to be computed as h&(len-1).
	buckets []*Node
	// The number of nodes reachable from buckets (i.e. the number of
	// elements in the map).
	used int
	// version is incremented on every structural mutation and is used to
	// detect stale iterators.
	version uint64
}

// New constructs a new empty Map. The map starts out with zero buckets and
// will grow on the first insert. The zero value for a Map is not usable.
func New(options ...Option) *Map {
	m := &Map{
		hash:      Hash,
		allocator: defaultAllocator{},
		logger:    zap.NewNop(),
	}

	for _, op := range options {
		op.apply(m)
	}
	if m.hash == nil {
		m.hash = Hash
	}
	if m.allocator == nil {
		m.allocator = defaultAllocator{}
	}

	m.checkInvariants()
	return m
}

// Close releases every node and the bucket array back to the configured
// allocator. It is unnecessary to close a map using the default allocator.
// Close is idempotent. A closed map is empty, and it is invalid to use it
// for anything other than Close.
func (m *Map) Close() {
	for i := range m.buckets {
		for n := m.buckets[i]; n != nil; {
			next := n.next
			m.allocator.FreeNode(n.data)
			*n = Node{}
			n = next
		}
		m.buckets[i] = nil
	}
	if m.buckets != nil {
		m.allocator.FreeBuckets(m.buckets)
		m.buckets = nil
	}
	m.used = 0
	m.version++
}

// Set inserts an entry into the map, overwriting the value if an entry with
// the same key already exists. The value is copied. An error marked with
// ErrAllocation is returned if the allocator could not provide memory for
// the entry; the map is then left exactly as it was.
func (m *Map) Set(key string, value []byte) error {
	h := m.hash(key)

	if p := m.find(h, key); p != nil {
		n := *p
		if len(value) != len(n.data)-n.klen {
			return m.replaceValue(n, value)
		}
		copy(n.data[n.klen:], value)
		m.checkInvariants()
		return nil
	}

	n, err := m.newNode(h, key, value)
	if err != nil {
		return err
	}
	if m.used >= len(m.buckets) {
		nbuckets := 1
		if len(m.buckets) > 0 {
			nbuckets = 2 * len(m.buckets)
		}
		if err := m.grow(nbuckets); err != nil {
			m.allocator.FreeNode(n.data)
			return err
		}
	}
	m.addNode(n)
	m.used++
	m.version++
	m.checkInvariants()
	return nil
}

// Get retrieves the value from the map for the specified key, returning
// ok=false if the key is not present. The returned slice aliases the map's
// storage: it must not be modified and is only valid until the next
// mutation of the map.
func (m *Map) Get(key string) (value []byte, ok bool) {
	p := m.find(m.hash(key), key)
	if p == nil {
		return nil, false
	}
	return (*p).value(), true
}

// Remove removes the entry corresponding to the specified key from the map.
// It is a noop to remove a non-existent key.
func (m *Map) Remove(key string) {
	p := m.find(m.hash(key), key)
	if p == nil {
		return
	}
	n := *p
	*p = n.next
	m.allocator.FreeNode(n.data)
	*n = Node{}
	m.used--
	m.version++
	m.checkInvariants()
}

// All calls yield sequentially for each key and value present in the map,
// in the same order as an Iterator. If yield returns false, All stops. If
// yield structurally modifies the map, All stops after that call.
func (m *Map) All(yield func(key string, value []byte) bool) {
	it := m.Iter()
	for key, ok := it.Next(); ok; key, ok = it.Next() {
		if !yield(key, it.Value()) {
			return
		}
	}
}

// Len returns the number of entries in the map.
func (m *Map) Len() int {
	return m.used
}

// bucketCount returns the length of the bucket array.
func (m *Map) bucketCount() int {
	return len(m.buckets)
}

// bucketIndex returns the index of the chain for hash value h. It must only
// be called when the map has at least one bucket.
func (m *Map) bucketIndex(h uint64) int {
	return int(h & uint64(len(m.buckets)-1))
}

// find returns the link pointing at the node for key: either a chain head or
// the next field of the node's predecessor. Returning the link rather than
// the node lets Remove unlink without walking the chain a second time. find
// returns nil if the key is not present.
func (m *Map) find(h uint64, key string) **Node {
	if len(m.buckets) == 0 {
		return nil
	}
	for p := &m.buckets[m.bucketIndex(h)]; *p != nil; p = &(*p).next {
		if n := *p; n.hash == h && n.hasKey(key) {
			return p
		}
	}
	return nil
}

// newNode allocates a node for key and value. The node is not linked into
// any chain.
func (m *Map) newNode(h uint64, key string, value []byte) (*Node, error) {
	size := len(key) + len(value)
	data, err := m.allocator.AllocNode(size)
	if err != nil || len(data) < size {
		m.logAllocFailure("node", size, err)
		return nil, allocationError(err, "allocating %d byte node", size)
	}
	data = data[:size:size]
	copy(data, key)
	copy(data[len(key):], value)
	return &Node{hash: h, data: data, klen: len(key)}, nil
}

// replaceValue swaps the buffer of n for one sized for value. The node keeps
// its key, hash and chain position.
func (m *Map) replaceValue(n *Node, value []byte) error {
	size := n.klen + len(value)
	data, err := m.allocator.AllocNode(size)
	if err != nil || len(data) < size {
		m.logAllocFailure("node", size, err)
		return allocationError(err, "reallocating %d byte node", size)
	}
	data = data[:size:size]
	copy(data, n.data[:n.klen])
	copy(data[n.klen:], value)
	m.allocator.FreeNode(n.data)
	n.data = data
	m.checkInvariants()
	return nil
}

// addNode links n at the head of its chain.
func (m *Map) addNode(n *Node) {
	i := m.bucketIndex(n.hash)
	n.next = m.buckets[i]
	m.buckets[i] = n
}

// grow replaces the bucket array with one of nbuckets chain heads and
// relinks every node using its cached hash. The new array is allocated
// before any chain is modified; if that fails the map is unchanged.
func (m *Map) grow(nbuckets int) error {
	buckets, err := m.allocator.AllocBuckets(nbuckets)
	if err != nil || len(buckets) < nbuckets {
		m.logAllocFailure("buckets", nbuckets, err)
		return allocationError(err, "growing to %d buckets", nbuckets)
	}
	buckets = buckets[:nbuckets:nbuckets]
	clear(buckets)

	// Chain all nodes together.
	var nodes *Node
	for i := len(m.buckets) - 1; i >= 0; i-- {
		for n := m.buckets[i]; n != nil; {
			next := n.next
			n.next = nodes
			nodes = n
			n = next
		}
	}

	old := m.buckets
	m.buckets = buckets
	for n := nodes; n != nil; {
		next := n.next
		m.addNode(n)
		n = next
	}

	if old != nil {
		clear(old)
		m.allocator.FreeBuckets(old)
	}
	m.version++

	if ce := m.logger.Check(zap.DebugLevel, "strmap: grow"); ce != nil {
		ce.Write(
			zap.Int("from", len(old)),
			zap.Int("to", nbuckets),
			zap.Int("nodes", m.used),
		)
	}
	return nil
}

func (m *Map) logAllocFailure(what string, size int, err error) {
	if ce := m.logger.Check(zap.DebugLevel, "strmap: allocation failed"); ce != nil {
		ce.Write(
			zap.String("what", what),
			zap.Int("size", size),
			zap.Error(err),
		)
	}
}

func (m *Map) checkInvariants() {
	if invariants {
		if n := len(m.buckets); n != 0 && bits.OnesCount(uint(n)) != 1 {
			panic(fmt.Sprintf("invariant failed: bucket count %d is not a power of 2", n))
		}

		var used int
		for i := range m.buckets {
			for n := m.buckets[i]; n != nil; n = n.next {
				if h := m.hash(n.key()); h != n.hash {
					panic(fmt.Sprintf("invariant failed: node %q: stored hash %016x != %016x\n%s",
						n.key(), n.hash, h, m.debugString()))
				}
				if j := m.bucketIndex(n.hash); j != i {
					panic(fmt.Sprintf("invariant failed: node %q: found in bucket %d, expected %d\n%s",
						n.key(), i, j, m.debugString()))
				}
				// Lookup must land on this node. Anything else means the key
				// is present twice.
				if p := m.find(n.hash, n.key()); p == nil || *p != n {
					panic(fmt.Sprintf("invariant failed: node %q: lookup found a different node\n%s",
						n.key(), m.debugString()))
				}
				used++
			}
		}

		if used != m.used {
			panic(fmt.Sprintf("invariant failed: found %d nodes, but used count is %d\n%s",
				used, m.used, m.debugString()))
		}
	}
}

func (m *Map) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "buckets=%d  used=%d  version=%d\n", len(m.buckets), m.used, m.version)
	for i := range m.buckets {
		fmt.Fprintf(&buf, "  %4d:", i)
		for n := m.buckets[i]; n != nil; n = n.next {
			fmt.Fprintf(&buf, " %q[h=%016x len=%d]", n.key(), n.hash, len(n.data)-n.klen)
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
