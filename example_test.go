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

package strmap_test

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/strmap"
)

func Example() {
	m := strmap.New()
	defer m.Close()

	put := func(key string, v uint32) {
		if err := m.Set(key, binary.LittleEndian.AppendUint32(nil, v)); err != nil {
			panic(err)
		}
	}
	put("a", 1)
	put("b", 2)
	put("a", 3)

	if v, ok := m.Get("a"); ok {
		fmt.Println("a =", binary.LittleEndian.Uint32(v))
	}
	m.Remove("b")
	if _, ok := m.Get("b"); !ok {
		fmt.Println("b removed")
	}

	it := m.Iter()
	for key, ok := it.Next(); ok; key, ok = it.Next() {
		fmt.Println("key:", key)
	}
	// Output:
	// a = 3
	// b removed
	// key: a
}

type noMemory struct{}

func (noMemory) AllocNode(size int) ([]byte, error)         { return nil, errors.New("no memory") }
func (noMemory) AllocBuckets(n int) ([]*strmap.Node, error) { return nil, errors.New("no memory") }
func (noMemory) FreeNode([]byte)                            {}
func (noMemory) FreeBuckets([]*strmap.Node)                 {}

func ExampleWithAllocator() {
	m := strmap.New(strmap.WithAllocator(noMemory{}))
	err := m.Set("k", []byte("v"))
	fmt.Println(errors.Is(err, strmap.ErrAllocation), m.Len())
	// Output:
	// true 0
}
