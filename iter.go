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

// Iterator is a cursor over the entries of a Map. It is positioned before the
// first entry when created and is advanced with Next. An Iterator does not
// own anything and cannot be rewound; create a new one with Map.Iter to
// iterate again.
//
// An Iterator is invalidated by any structural mutation of its Map. Overwriting
// the value of a present key is not a structural mutation.
type Iterator struct {
	m *Map
	// bucket is the index of the chain holding node, or -1 before the first
	// call to Next.
	bucket int
	// node is the current entry, or nil.
	node *Node
	// version is the map version the iterator is valid for.
	version uint64
	done    bool
	err     error
}

// Iter returns an Iterator positioned before the first entry of the map.
func (m *Map) Iter() Iterator {
	return Iterator{
		m:       m,
		bucket:  -1,
		version: m.version,
	}
}

// Next advances the iterator and returns the key of the entry it is now
// positioned at. It returns ok=false once every entry has been produced, or
// if the map was structurally modified since the iterator was created, in
// which case Err reports ErrStaleIterator.
func (it *Iterator) Next() (key string, ok bool) {
	if it.done || it.m == nil {
		return "", false
	}
	if it.version != it.m.version {
		it.finish(ErrStaleIterator)
		return "", false
	}

	if it.node != nil {
		it.node = it.node.next
	}
	for it.node == nil {
		it.bucket++
		if it.bucket >= len(it.m.buckets) {
			it.finish(nil)
			return "", false
		}
		it.node = it.m.buckets[it.bucket]
	}
	return it.node.key(), true
}

// Value returns the value of the entry the iterator is positioned at, or nil
// if it is not positioned at an entry. The same aliasing rules as Map.Get
// apply.
func (it *Iterator) Value() []byte {
	if it.node == nil || it.m == nil || it.version != it.m.version {
		return nil
	}
	return it.node.value()
}

// Err returns ErrStaleIterator if iteration stopped because the map was
// structurally modified, and nil otherwise.
func (it *Iterator) Err() error {
	return it.err
}

func (it *Iterator) finish(err error) {
	it.done = true
	it.node = nil
	it.err = err
}
