/*
 * Strata - Persistent Collections over Key-Value Storage
 *
 * Copyright Strata Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package strata

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetNewSet(t *testing.T) {
	ledger := NewMemoryLedger()

	s, err := NewSet[string](ledger, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, uint32(0), s.Len())
	require.True(t, s.IsEmpty())

	found, err := s.Contains("missing")
	require.NoError(t, err)
	require.False(t, found)
}

func TestSetInsertContains(t *testing.T) {
	ledger := NewMemoryLedger()
	s, err := NewSet[string](ledger, []byte("a"))
	require.NoError(t, err)

	inserted, err := s.Insert("a")
	require.NoError(t, err)
	require.True(t, inserted)

	// A duplicate insert is a normal outcome.
	inserted, err = s.Insert("a")
	require.NoError(t, err)
	require.False(t, inserted)
	require.Equal(t, uint32(1), s.Len())

	found, err := s.Contains("a")
	require.NoError(t, err)
	require.True(t, found)
}

func TestSetRemove(t *testing.T) {
	ledger := NewMemoryLedger()
	s, err := NewSet[string](ledger, []byte("a"))
	require.NoError(t, err)

	require.NoError(t, s.Extend([]string{"a", "b", "c"}))

	removed, err := s.Remove("b")
	require.NoError(t, err)
	require.True(t, removed)
	require.Equal(t, uint32(2), s.Len())

	found, err := s.Contains("b")
	require.NoError(t, err)
	require.False(t, found)

	removed, err = s.Remove("b")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestSetClear(t *testing.T) {
	ledger := NewMemoryLedger()
	s, err := NewSet[uint64](ledger, []byte("a"))
	require.NoError(t, err)

	for i := uint64(0); i < 100; i++ {
		_, err := s.Insert(i)
		require.NoError(t, err)
	}
	require.NoError(t, s.Flush())
	require.NoError(t, s.Clear())
	require.NoError(t, s.Flush())

	// Only the elements vector metadata record remains.
	require.Equal(t, 1, ledger.Count())

	reloaded, err := NewSet[uint64](ledger, []byte("a"))
	require.NoError(t, err)
	require.True(t, reloaded.IsEmpty())
}

func TestSetIterate(t *testing.T) {
	ledger := NewMemoryLedger()
	s, err := NewSet[string](ledger, []byte("a"))
	require.NoError(t, err)

	expected := map[string]struct{}{}
	for i := 0; i < 64; i++ {
		element := fmt.Sprintf("element-%d", i)
		_, err := s.Insert(element)
		require.NoError(t, err)
		expected[element] = struct{}{}
	}

	got := map[string]struct{}{}
	err = s.Iterate(func(element string) (bool, error) {
		_, seen := got[element]
		require.False(t, seen)
		got[element] = struct{}{}
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, expected, got)
}

func TestSetFlushReload(t *testing.T) {
	ledger := NewMemoryLedger()
	s, err := NewSet[uint64](ledger, []byte("a"))
	require.NoError(t, err)

	for i := uint64(0); i < 128; i++ {
		_, err := s.Insert(i)
		require.NoError(t, err)
	}
	require.NoError(t, s.Flush())

	reloaded, err := NewSet[uint64](ledger, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, uint32(128), reloaded.Len())
	for i := uint64(0); i < 128; i++ {
		found, err := reloaded.Contains(i)
		require.NoError(t, err)
		require.True(t, found)
	}
}

func newSetOf(t *testing.T, ledger Ledger, prefix string, elements ...uint64) *Set[uint64] {
	t.Helper()
	s, err := NewSet[uint64](ledger, []byte(prefix))
	require.NoError(t, err)
	require.NoError(t, s.Extend(elements))
	return s
}

func TestSetAlgebra(t *testing.T) {
	ledger := NewMemoryLedger()
	a := newSetOf(t, ledger, "a", 1, 2, 3, 4)
	b := newSetOf(t, ledger, "b", 3, 4, 5)

	union, err := a.Union(b)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint64{1, 2, 3, 4, 5}, union)

	intersection, err := a.Intersection(b)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint64{3, 4}, intersection)

	difference, err := a.Difference(b)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint64{1, 2}, difference)

	symmetric, err := a.SymmetricDifference(b)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint64{1, 2, 5}, symmetric)
}

func TestSetRelations(t *testing.T) {
	ledger := NewMemoryLedger()
	a := newSetOf(t, ledger, "a", 1, 2)
	b := newSetOf(t, ledger, "b", 1, 2, 3)
	c := newSetOf(t, ledger, "c", 4, 5)

	subset, err := a.IsSubset(b)
	require.NoError(t, err)
	require.True(t, subset)

	subset, err = b.IsSubset(a)
	require.NoError(t, err)
	require.False(t, subset)

	superset, err := b.IsSuperset(a)
	require.NoError(t, err)
	require.True(t, superset)

	disjoint, err := a.IsDisjoint(c)
	require.NoError(t, err)
	require.True(t, disjoint)

	disjoint, err = a.IsDisjoint(b)
	require.NoError(t, err)
	require.False(t, disjoint)
}

func TestSetRandomOperations(t *testing.T) {
	r := rand.New(rand.NewSource(0x5345))

	ledger := NewMemoryLedger()
	s, err := NewSet[uint64](ledger, []byte("a"))
	require.NoError(t, err)

	oracle := make(map[uint64]struct{})
	for step := 0; step < 3000; step++ {
		element := uint64(r.Intn(400))
		switch r.Intn(3) {
		case 0:
			inserted, err := s.Insert(element)
			require.NoError(t, err)
			_, present := oracle[element]
			require.Equal(t, !present, inserted)
			oracle[element] = struct{}{}
		case 1:
			removed, err := s.Remove(element)
			require.NoError(t, err)
			_, present := oracle[element]
			require.Equal(t, present, removed)
			delete(oracle, element)
		default:
			found, err := s.Contains(element)
			require.NoError(t, err)
			_, present := oracle[element]
			require.Equal(t, present, found)
		}
	}

	require.NoError(t, s.Flush())
	reloaded, err := NewSet[uint64](ledger, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, uint32(len(oracle)), reloaded.Len())

	got := make(map[uint64]struct{})
	err = reloaded.Iterate(func(element uint64) (bool, error) {
		got[element] = struct{}{}
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, oracle, got)
}
