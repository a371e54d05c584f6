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
	"bytes"
	"encoding/binary"
)

// maxBucketEntries is the collision-group size past which a bucket splits
// into children addressed by the next digest level.
const maxBucketEntries = 8

// bucket is one slot of the key-index lookup table. A bucket either holds the
// vector indices of the keys whose digest prefix addresses it, or (once the
// collision group outgrew maxBucketEntries) is split, with entries
// redistributed to child buckets at the next digest level.
type bucket struct {
	Split   bool
	Indices []uint32
}

// keyIndex maps serialized keys to positions in an elements vector, giving
// maps and sets O(1) amortized lookup while the vector keeps them iterable.
// Buckets are addressed by a prefix of the key's digest levels; candidate
// indices within a bucket are confirmed by comparing serialized key bytes
// against the keys vector, so digest collisions never produce false matches.
//
// Invariant: every key present in the lookup table has an entry in the keys
// vector at the recorded index and vice versa. Both sides are updated within
// each insert/remove before control returns to the caller.
type keyIndex[K any] struct {
	seed        uint64
	indexPrefix []byte
	keys        *Vector[K]
	buckets     *lazyCache[bucket]
}

func newKeyIndex[K any](ledger Ledger, prefix []byte) (*keyIndex[K], error) {
	keys, err := NewVector[K](ledger, derivePrefix(prefix, subPrefixKeys))
	if err != nil {
		return nil, err
	}
	return &keyIndex[K]{
		seed:        seedForPrefix(prefix),
		indexPrefix: derivePrefix(prefix, subPrefixIndex),
		keys:        keys,
		buckets:     newLazyCache[bucket](ledger),
	}, nil
}

// bucketKey derives the storage key of the bucket addressed by the given
// digest path.
func (ki *keyIndex[K]) bucketKey(path []Digest) []byte {
	sub := make([]byte, 8*len(path))
	for i, d := range path {
		binary.LittleEndian.PutUint64(sub[8*i:], uint64(d))
	}
	return deriveKey(ki.indexPrefix, sub)
}

// leaf walks the split chain for keyBytes and returns the leaf bucket and its
// digest path. The bucket is nil if no bucket exists on the path.
func (ki *keyIndex[K]) leaf(keyBytes []byte) (*bucket, []Digest, error) {
	d := newDigester(ki.seed, keyBytes)
	path := make([]Digest, 0, digestLevels)
	for level := 0; level < d.Levels(); level++ {
		digest, err := d.Digest(level)
		if err != nil {
			return nil, nil, NewInconsistentStateErrorf("key digest failed: %s", err)
		}
		path = append(path, digest)
		b, err := ki.buckets.load(ki.bucketKey(path))
		if err != nil {
			return nil, nil, err
		}
		if b == nil || !b.Split {
			return b, path, nil
		}
	}
	return nil, nil, NewInconsistentStateError("bucket split chain exceeds digest levels")
}

// encodedKeyAt loads the key at a vector index and returns its serialized
// form, for confirming bucket candidates.
func (ki *keyIndex[K]) encodedKeyAt(index uint32) (K, []byte, error) {
	var zero K
	key, found, err := ki.keys.Get(index)
	if err != nil {
		return zero, nil, err
	}
	if !found {
		return zero, nil, NewInconsistentStateErrorf(
			"lookup table references index %d beyond keys vector", index)
	}
	keyBytes, err := encodeElement(key)
	if err != nil {
		return zero, nil, err
	}
	return key, keyBytes, nil
}

// find returns the vector index of keyBytes, or found=false.
func (ki *keyIndex[K]) find(keyBytes []byte) (uint32, bool, error) {
	b, _, err := ki.leaf(keyBytes)
	if err != nil {
		return 0, false, err
	}
	if b == nil {
		return 0, false, nil
	}
	for _, index := range b.Indices {
		_, candidate, err := ki.encodedKeyAt(index)
		if err != nil {
			return 0, false, err
		}
		if bytes.Equal(candidate, keyBytes) {
			return index, true, nil
		}
	}
	return 0, false, nil
}

// add appends key to the keys vector and records its index in the lookup
// table. The caller must have established that the key is absent.
func (ki *keyIndex[K]) add(key K, keyBytes []byte) (uint32, error) {
	index := ki.keys.Len()
	if err := ki.keys.Push(key); err != nil {
		return 0, err
	}
	if err := ki.addIndexEntry(keyBytes, index); err != nil {
		return 0, err
	}
	return index, nil
}

func (ki *keyIndex[K]) addIndexEntry(keyBytes []byte, index uint32) error {
	b, path, err := ki.leaf(keyBytes)
	if err != nil {
		return err
	}
	var entries []uint32
	if b != nil {
		entries = b.Indices
	}
	entries = append(entries, index)

	if len(entries) <= maxBucketEntries || len(path) == digestLevels {
		ki.buckets.set(ki.bucketKey(path), bucket{Indices: entries})
		return nil
	}
	return ki.splitBucket(path, entries)
}

// splitBucket redistributes an overflowing collision group to child buckets
// addressed by the next digest level.
func (ki *keyIndex[K]) splitBucket(path []Digest, entries []uint32) error {
	level := len(path)
	children := make(map[Digest][]uint32, len(entries))
	order := make([]Digest, 0, len(entries))
	for _, index := range entries {
		_, keyBytes, err := ki.encodedKeyAt(index)
		if err != nil {
			return err
		}
		d := newDigester(ki.seed, keyBytes)
		digest, err := d.Digest(level)
		if err != nil {
			return NewInconsistentStateErrorf("key digest failed: %s", err)
		}
		if _, ok := children[digest]; !ok {
			order = append(order, digest)
		}
		children[digest] = append(children[digest], index)
	}

	for _, digest := range order {
		childPath := append(append([]Digest{}, path...), digest)
		ki.buckets.set(ki.bucketKey(childPath), bucket{Indices: children[digest]})
	}
	ki.buckets.set(ki.bucketKey(path), bucket{Split: true})
	return nil
}

// removeIndexEntry deletes the lookup entry (keyBytes -> index). Empty
// buckets are removed from storage; split markers are left in place.
func (ki *keyIndex[K]) removeIndexEntry(keyBytes []byte, index uint32) error {
	b, path, err := ki.leaf(keyBytes)
	if err != nil {
		return err
	}
	if b == nil {
		return NewInconsistentStateErrorf("lookup entry for index %d is missing", index)
	}
	for i, candidate := range b.Indices {
		if candidate == index {
			entries := append(append([]uint32{}, b.Indices[:i]...), b.Indices[i+1:]...)
			key := ki.bucketKey(path)
			if len(entries) == 0 {
				ki.buckets.remove(key)
			} else {
				ki.buckets.set(key, bucket{Indices: entries})
			}
			return nil
		}
	}
	return NewInconsistentStateErrorf("lookup entry for index %d is missing", index)
}

// reindexEntry rewrites the lookup entry of keyBytes from one vector index to
// another. Used by swap-remove when the last key moves into the removed slot;
// skipping this step would leave the lookup table permanently inconsistent.
func (ki *keyIndex[K]) reindexEntry(keyBytes []byte, from, to uint32) error {
	b, path, err := ki.leaf(keyBytes)
	if err != nil {
		return err
	}
	if b == nil {
		return NewInconsistentStateErrorf("lookup entry for index %d is missing", from)
	}
	for i, candidate := range b.Indices {
		if candidate == from {
			entries := append([]uint32{}, b.Indices...)
			entries[i] = to
			ki.buckets.set(ki.bucketKey(path), bucket{Indices: entries})
			return nil
		}
	}
	return NewInconsistentStateErrorf("lookup entry for index %d is missing", from)
}

// remove deletes key from the lookup table and the keys vector using
// swap-remove. It returns the index the key occupied, or found=false if the
// key was absent.
func (ki *keyIndex[K]) remove(keyBytes []byte) (uint32, bool, error) {
	index, found, err := ki.find(keyBytes)
	if err != nil || !found {
		return 0, false, err
	}

	if err := ki.removeIndexEntry(keyBytes, index); err != nil {
		return 0, false, err
	}

	last := ki.keys.Len() - 1
	if index != last {
		// The last key is about to move into the removed slot; repoint its
		// lookup entry first.
		_, lastKeyBytes, err := ki.encodedKeyAt(last)
		if err != nil {
			return 0, false, err
		}
		if err := ki.reindexEntry(lastKeyBytes, last, index); err != nil {
			return 0, false, err
		}
	}

	if _, err := ki.keys.SwapRemove(index); err != nil {
		return 0, false, err
	}
	return index, true, nil
}

// clear removes every lookup bucket and every key. Bucket keys are collected
// before any deletion so shared split parents cannot orphan their siblings;
// the deletions then go to the ledger immediately, matching vector clear
// semantics.
func (ki *keyIndex[K]) clear() error {
	bucketKeys := make(map[string]struct{})
	for i := uint32(0); i < ki.keys.Len(); i++ {
		_, keyBytes, err := ki.encodedKeyAt(i)
		if err != nil {
			return err
		}
		d := newDigester(ki.seed, keyBytes)
		path := make([]Digest, 0, digestLevels)
		for level := 0; level < d.Levels(); level++ {
			digest, err := d.Digest(level)
			if err != nil {
				return NewInconsistentStateErrorf("key digest failed: %s", err)
			}
			path = append(path, digest)
			key := ki.bucketKey(path)
			bucketKeys[string(key)] = struct{}{}
			b, err := ki.buckets.load(key)
			if err != nil {
				return err
			}
			if b == nil || !b.Split {
				break
			}
		}
	}

	ledger := ki.buckets.ledger
	for key := range bucketKeys {
		if _, err := ledger.RemoveValue([]byte(key)); err != nil {
			return wrapStorageError(err)
		}
		ki.buckets.drop([]byte(key))
	}
	return ki.keys.Clear()
}

func (ki *keyIndex[K]) flush() error {
	if err := ki.keys.Flush(); err != nil {
		return err
	}
	return ki.buckets.flush()
}
