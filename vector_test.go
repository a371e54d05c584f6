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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVectorNewVector(t *testing.T) {
	ledger := NewMemoryLedger()

	v, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, uint32(0), v.Len())
	require.True(t, v.IsEmpty())

	_, found, err := v.Get(0)
	require.NoError(t, err)
	require.False(t, found)
}

func TestVectorPushGet(t *testing.T) {
	const count = 256

	ledger := NewMemoryLedger()
	v, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)

	for i := uint64(0); i < count; i++ {
		require.NoError(t, v.Push(i*i))
	}
	require.Equal(t, uint32(count), v.Len())

	for i := uint64(0); i < count; i++ {
		value, found, err := v.Get(uint32(i))
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, i*i, value)
	}

	_, found, err := v.Get(count)
	require.NoError(t, err)
	require.False(t, found)
}

func TestVectorSet(t *testing.T) {
	ledger := NewMemoryLedger()
	v, err := NewVector[string](ledger, []byte("a"))
	require.NoError(t, err)

	require.NoError(t, v.Extend([]string{"a", "b", "c"}))
	require.NoError(t, v.Set(1, "B"))

	value, found, err := v.Get(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "B", value)

	err = v.Set(3, "d")
	var indexErr *IndexOutOfBoundsError
	require.ErrorAs(t, err, &indexErr)
	require.False(t, indexErr.IsFatal())
}

func TestVectorMutate(t *testing.T) {
	type record struct {
		Count uint64
	}

	ledger := NewMemoryLedger()
	v, err := NewVector[record](ledger, []byte("a"))
	require.NoError(t, err)

	require.NoError(t, v.Push(record{Count: 1}))
	require.NoError(t, v.Mutate(0, func(r *record) {
		r.Count += 41
	}))

	value, found, err := v.Get(0)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(42), value.Count)

	require.NoError(t, v.Flush())

	reloaded, err := NewVector[record](ledger, []byte("a"))
	require.NoError(t, err)
	value, found, err = reloaded.Get(0)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(42), value.Count)
}

func TestVectorPop(t *testing.T) {
	ledger := NewMemoryLedger()
	v, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)

	require.NoError(t, v.Extend([]uint64{10, 20, 30}))

	value, found, err := v.Pop()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(30), value)
	require.Equal(t, uint32(2), v.Len())

	value, found, err = v.Pop()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(20), value)

	value, found, err = v.Pop()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(10), value)

	_, found, err = v.Pop()
	require.NoError(t, err)
	require.False(t, found)
	require.True(t, v.IsEmpty())
}

func TestVectorSwapRemove(t *testing.T) {
	ledger := NewMemoryLedger()
	v, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)

	require.NoError(t, v.Extend([]uint64{10, 20, 30, 40}))

	removed, err := v.SwapRemove(1)
	require.NoError(t, err)
	require.Equal(t, uint64(20), removed)
	require.Equal(t, uint32(3), v.Len())

	// The last element moved into the removed slot.
	value, found, err := v.Get(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(40), value)

	// Removing the last index degenerates to pop.
	removed, err = v.SwapRemove(2)
	require.NoError(t, err)
	require.Equal(t, uint64(30), removed)
	require.Equal(t, uint32(2), v.Len())

	_, err = v.SwapRemove(2)
	var indexErr *IndexOutOfBoundsError
	require.ErrorAs(t, err, &indexErr)
}

func TestVectorReplace(t *testing.T) {
	ledger := NewMemoryLedger()
	v, err := NewVector[string](ledger, []byte("a"))
	require.NoError(t, err)

	require.NoError(t, v.Extend([]string{"a", "b"}))

	old, err := v.Replace(0, "A")
	require.NoError(t, err)
	require.Equal(t, "a", old)

	value, found, err := v.Get(0)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "A", value)

	_, err = v.Replace(2, "c")
	var indexErr *IndexOutOfBoundsError
	require.ErrorAs(t, err, &indexErr)
}

func TestVectorClear(t *testing.T) {
	ledger := NewMemoryLedger()
	v, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)

	for i := uint64(0); i < 64; i++ {
		require.NoError(t, v.Push(i))
	}
	require.NoError(t, v.Flush())
	require.NoError(t, v.Clear())
	require.True(t, v.IsEmpty())
	require.NoError(t, v.Flush())

	// Only the metadata record remains in storage.
	require.Equal(t, 1, ledger.Count())

	reloaded, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)
	require.True(t, reloaded.IsEmpty())
}

func TestVectorIterate(t *testing.T) {
	ledger := NewMemoryLedger()
	v, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)

	expected := []uint64{3, 1, 4, 1, 5, 9, 2, 6}
	require.NoError(t, v.Extend(expected))

	var got []uint64
	err = v.Iterate(func(index uint32, value uint64) (bool, error) {
		require.Equal(t, uint32(len(got)), index)
		got = append(got, value)
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, expected, got)

	// Early termination.
	count := 0
	err = v.Iterate(func(_ uint32, _ uint64) (bool, error) {
		count++
		return count < 3, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestVectorIterateMut(t *testing.T) {
	ledger := NewMemoryLedger()
	v, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)

	require.NoError(t, v.Extend([]uint64{1, 2, 3}))
	err = v.IterateMut(func(_ uint32, value *uint64) (bool, error) {
		*value *= 10
		return true, nil
	})
	require.NoError(t, err)
	require.NoError(t, v.Flush())

	reloaded, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)
	var got []uint64
	err = reloaded.Iterate(func(_ uint32, value uint64) (bool, error) {
		got = append(got, value)
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{10, 20, 30}, got)
}

func TestVectorIterator(t *testing.T) {
	ledger := NewMemoryLedger()
	v, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)

	expected := []uint64{7, 8, 9}
	require.NoError(t, v.Extend(expected))

	it := v.Iterator()
	var got []uint64
	for {
		value, found, err := it.Next()
		require.NoError(t, err)
		if !found {
			break
		}
		got = append(got, value)
	}
	require.Equal(t, expected, got)
}

func TestVectorFlushReload(t *testing.T) {
	ledger := NewMemoryLedger()
	v, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)

	for i := uint64(0); i < 128; i++ {
		require.NoError(t, v.Push(i))
	}

	// Nothing is durable before flush.
	require.Equal(t, 0, ledger.Count())

	require.NoError(t, v.Flush())
	require.Equal(t, 129, ledger.Count()) // 128 slots + metadata

	reloaded, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, uint32(128), reloaded.Len())
	for i := uint64(0); i < 128; i++ {
		value, found, err := reloaded.Get(uint32(i))
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, i, value)
	}
}

func TestVectorFlushIdempotent(t *testing.T) {
	ledger := NewMemoryLedger()
	v, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)

	for i := uint64(0); i < 32; i++ {
		require.NoError(t, v.Push(i))
	}
	require.NoError(t, v.Flush())

	// A second flush with no intervening mutation issues no storage calls.
	ledger.ResetReporter()
	require.NoError(t, v.Flush())
	require.Equal(t, 0, ledger.WriteCount())
	require.Equal(t, 0, ledger.RemoveCount())
}

func TestVectorReadOnce(t *testing.T) {
	ledger := NewMemoryLedger()
	v, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)
	require.NoError(t, v.Push(7))
	require.NoError(t, v.Flush())

	reloaded, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)

	ledger.ResetReporter()
	for i := 0; i < 10; i++ {
		value, found, err := reloaded.Get(0)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, uint64(7), value)
	}
	require.Equal(t, 1, ledger.ReadCount())
}

func TestVectorSiblingIsolation(t *testing.T) {
	ledger := NewMemoryLedger()

	a, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)
	b, err := NewVector[uint64](ledger, []byte("b"))
	require.NoError(t, err)

	require.NoError(t, a.Extend([]uint64{1, 2, 3}))
	require.NoError(t, b.Extend([]uint64{9}))
	require.NoError(t, a.Flush())
	require.NoError(t, b.Flush())

	reloadedA, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)
	reloadedB, err := NewVector[uint64](ledger, []byte("b"))
	require.NoError(t, err)
	require.Equal(t, uint32(3), reloadedA.Len())
	require.Equal(t, uint32(1), reloadedB.Len())
}

func TestVectorRandomOperations(t *testing.T) {
	r := rand.New(rand.NewSource(0x5452))

	ledger := NewMemoryLedger()
	v, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)

	var oracle []uint64
	for step := 0; step < 2000; step++ {
		switch op := r.Intn(4); {
		case op == 0 || len(oracle) == 0:
			value := r.Uint64()
			require.NoError(t, v.Push(value))
			oracle = append(oracle, value)
		case op == 1:
			value, found, err := v.Pop()
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, oracle[len(oracle)-1], value)
			oracle = oracle[:len(oracle)-1]
		case op == 2:
			index := uint32(r.Intn(len(oracle)))
			value := r.Uint64()
			require.NoError(t, v.Set(index, value))
			oracle[index] = value
		default:
			index := uint32(r.Intn(len(oracle)))
			removed, err := v.SwapRemove(index)
			require.NoError(t, err)
			require.Equal(t, oracle[index], removed)
			oracle[index] = oracle[len(oracle)-1]
			oracle = oracle[:len(oracle)-1]
		}
	}

	require.NoError(t, v.Flush())
	reloaded, err := NewVector[uint64](ledger, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, uint32(len(oracle)), reloaded.Len())
	for i, expected := range oracle {
		value, found, err := reloaded.Get(uint32(i))
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, expected, value)
	}
}
