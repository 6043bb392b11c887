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

import "github.com/cockroachdb/errors"

// ErrAllocation is reported by Map.Set when the Allocator fails to provide
// memory for a node or for a larger bucket array. The Map is unchanged when
// it is returned. Test for it with errors.Is.
var ErrAllocation = errors.New("strmap: allocation failed")

// ErrStaleIterator is reported by Iterator.Err when the Map was structurally
// modified after the Iterator was created.
var ErrStaleIterator = errors.New("strmap: map modified during iteration")

// allocationError attaches context to an Allocator failure and marks it so
// that errors.Is(err, ErrAllocation) holds whatever the allocator returned.
func allocationError(err error, format string, args ...interface{}) error {
	if err == nil {
		err = errors.New("allocator returned no memory")
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrAllocation)
}
