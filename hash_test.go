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

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	require.EqualValues(t, 5381, Hash(""))
	require.EqualValues(t, uint64(5381*33)^'a', Hash("a"))
	require.EqualValues(t, (uint64(5381*33)^'a')*33^'b', Hash("ab"))

	// Every byte takes part, including NUL.
	require.NotEqual(t, Hash("a"), Hash("a\x00"))
	require.NotEqual(t, Hash("ab"), Hash("ba"))

	require.Equal(t, xxhash.Sum64String("hello"), XXHash("hello"))
}
