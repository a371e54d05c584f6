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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyIndexAddFind(t *testing.T) {
	ledger := NewMemoryLedger()
	ki, err := newKeyIndex[string](ledger, []byte("a"))
	require.NoError(t, err)

	for i := 0; i < 32; i++ {
		key := fmt.Sprintf("key-%d", i)
		keyBytes, err := encodeElement(key)
		require.NoError(t, err)
		index, err := ki.add(key, keyBytes)
		require.NoError(t, err)
		require.Equal(t, uint32(i), index)
	}

	for i := 0; i < 32; i++ {
		keyBytes, err := encodeElement(fmt.Sprintf("key-%d", i))
		require.NoError(t, err)
		index, found, err := ki.find(keyBytes)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, uint32(i), index)
	}

	missing, err := encodeElement("missing")
	require.NoError(t, err)
	_, found, err := ki.find(missing)
	require.NoError(t, err)
	require.False(t, found)
}

func TestKeyIndexRemoveReindexes(t *testing.T) {
	ledger := NewMemoryLedger()
	ki, err := newKeyIndex[string](ledger, []byte("a"))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		key := fmt.Sprintf("key-%d", i)
		keyBytes, err := encodeElement(key)
		require.NoError(t, err)
		_, err = ki.add(key, keyBytes)
		require.NoError(t, err)
	}

	// Removing key-1 moves key-3 (the last key) into index 1.
	key1Bytes, err := encodeElement("key-1")
	require.NoError(t, err)
	index, found, err := ki.remove(key1Bytes)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint32(1), index)
	require.Equal(t, uint32(3), ki.keys.Len())

	key3Bytes, err := encodeElement("key-3")
	require.NoError(t, err)
	index, found, err = ki.find(key3Bytes)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint32(1), index)

	_, found, err = ki.find(key1Bytes)
	require.NoError(t, err)
	require.False(t, found)
}

func TestKeyIndexSplitBucket(t *testing.T) {
	ledger := NewMemoryLedger()
	ki, err := newKeyIndex[string](ledger, []byte("a"))
	require.NoError(t, err)

	// Fill the keys vector, then split an overfull collision group by hand;
	// a real 64-bit digest collision group of this size cannot be produced
	// deliberately.
	const count = maxBucketEntries + 2
	entries := make([]uint32, 0, count)
	for i := 0; i < count; i++ {
		require.NoError(t, ki.keys.Push(fmt.Sprintf("key-%d", i)))
		entries = append(entries, uint32(i))
	}

	path := []Digest{42}
	require.NoError(t, ki.splitBucket(path, entries))

	parent, err := ki.buckets.load(ki.bucketKey(path))
	require.NoError(t, err)
	require.NotNil(t, parent)
	require.True(t, parent.Split)
	require.Empty(t, parent.Indices)

	// Every entry is reachable in the child bucket addressed by its level-1
	// digest.
	seen := 0
	for i := 0; i < count; i++ {
		_, keyBytes, err := ki.encodedKeyAt(uint32(i))
		require.NoError(t, err)
		d := newDigester(ki.seed, keyBytes)
		digest, err := d.Digest(1)
		require.NoError(t, err)

		child, err := ki.buckets.load(ki.bucketKey(append(append([]Digest{}, path...), digest)))
		require.NoError(t, err)
		require.NotNil(t, child)
		require.False(t, child.Split)
		require.Contains(t, child.Indices, uint32(i))
		seen++
	}
	require.Equal(t, count, seen)
}

func TestKeyIndexClear(t *testing.T) {
	ledger := NewMemoryLedger()
	ki, err := newKeyIndex[string](ledger, []byte("a"))
	require.NoError(t, err)

	for i := 0; i < 16; i++ {
		key := fmt.Sprintf("key-%d", i)
		keyBytes, err := encodeElement(key)
		require.NoError(t, err)
		_, err = ki.add(key, keyBytes)
		require.NoError(t, err)
	}
	require.NoError(t, ki.flush())
	require.NoError(t, ki.clear())
	require.NoError(t, ki.flush())

	// Only the keys vector metadata record remains.
	require.Equal(t, 1, ledger.Count())
	require.Equal(t, uint32(0), ki.keys.Len())
}
