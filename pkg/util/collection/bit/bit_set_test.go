// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package bit

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/robtaylor/karuta/pkg/util/assert"
)

func Test_BitSet_00(t *testing.T) {
	check_BitSet_Insert(t, 5, 10)
}

func Test_BitSet_01(t *testing.T) {
	// Really hammer it.
	for i := 0; i < 1000; i++ {
		check_BitSet_Insert(t, 10, 128)
	}
}

func Test_BitSet_02(t *testing.T) {
	check_BitSet_Insert(t, 100, 256)
}

func Test_BitSet_03(t *testing.T) {
	check_BitSet_Insert(t, 1000, 512)
}

func Test_BitSet_04(t *testing.T) {
	var (
		lhs Set
		rhs Set
	)
	//
	lhs.InsertAll(1, 3, 5)
	rhs.InsertAll(3, 70)
	assert.True(t, lhs.Union(rhs))
	assert.False(t, lhs.Union(rhs))
	assert.Equal(t, "[1, 3, 5, 70]", lhs.String())
	lhs.Remove(3)
	assert.Equal(t, uint(3), lhs.Count())
	assert.False(t, lhs.Contains(3))
}

func Test_BitSet_05(t *testing.T) {
	var set Set
	//
	assert.True(t, set.Insert(64))
	assert.False(t, set.Insert(64))
	//
	clone := set.Clone()
	clone.Insert(0)
	assert.False(t, set.Contains(0))
	assert.True(t, clone.Contains(0))
}

// ===================================================================
// Test Helpers
// ===================================================================

func check_BitSet_Insert(t *testing.T, n uint, m uint) {
	var (
		set   Set
		items = make([]uint, n)
	)
	//
	for i := range items {
		items[i] = rand.UintN(m)
		set.Insert(items[i])
	}
	// Check contents
	for _, item := range items {
		assert.True(t, set.Contains(item))
	}
	// Check iteration order and size
	slices.Sort(items)
	items = slices.Compact(items)
	//
	assert.Equal(t, items, slices.Collect(set.All()))
	assert.Equal(t, uint(len(items)), set.Count())
}
