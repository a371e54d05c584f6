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

import "golang.org/x/exp/constraints"

// OrderedMap is a storage-backed associative container whose keys stay
// sorted. It composes a red-black tree over the keys with an unordered map
// holding the values, so point lookups cost one digest-addressed probe while
// ordered queries and in-order iteration go through the tree.
//
// The tree is the authority on membership: mutations update the tree first,
// and the value map follows only when the tree reports a change.
type OrderedMap[K constraints.Ordered, V any] struct {
	keys   *Tree[K]
	values *Map[K, V]
}

// NewOrderedMap attaches to the ordered map stored under prefix, creating an
// empty one if none exists.
func NewOrderedMap[K constraints.Ordered, V any](ledger Ledger, prefix []byte) (*OrderedMap[K, V], error) {
	keys, err := NewTree[K](ledger, derivePrefix(prefix, subPrefixTree))
	if err != nil {
		return nil, err
	}
	values, err := NewMap[K, V](ledger, derivePrefix(prefix, subPrefixMap))
	if err != nil {
		return nil, err
	}
	return &OrderedMap[K, V]{keys: keys, values: values}, nil
}

// Len returns the number of key/value pairs.
func (m *OrderedMap[K, V]) Len() (uint64, error) {
	treeLen := m.keys.Len()
	mapLen, err := m.values.Len()
	if err != nil {
		return 0, err
	}
	if treeLen != uint64(mapLen) {
		return 0, NewInconsistentStateErrorf(
			"key tree has %d entries but value map has %d", treeLen, mapLen)
	}
	return treeLen, nil
}

// IsEmpty returns true if the map contains no pairs.
func (m *OrderedMap[K, V]) IsEmpty() (bool, error) {
	n, err := m.Len()
	return n == 0, err
}

// Get returns the value stored under key, or found=false.
func (m *OrderedMap[K, V]) Get(key K) (V, bool, error) {
	return m.values.Get(key)
}

// ContainsKey returns true if key is present.
func (m *OrderedMap[K, V]) ContainsKey(key K) (bool, error) {
	return m.keys.Has(key)
}

// Insert stores key -> value. If the key was already present its value is
// replaced and the previous value returned with existed=true.
func (m *OrderedMap[K, V]) Insert(key K, value V) (previous V, existed bool, err error) {
	var zero V
	if _, err := m.keys.Add(key); err != nil {
		return zero, false, err
	}
	return m.values.Insert(key, value)
}

// Mutate applies fn to the value stored under key in place, or returns
// found=false if the key is absent.
func (m *OrderedMap[K, V]) Mutate(key K, fn func(*V)) (bool, error) {
	return m.values.Mutate(key, fn)
}

// GetOrInsertWith returns the value stored under key, inserting the value
// produced by orDefault first if the key is absent.
func (m *OrderedMap[K, V]) GetOrInsertWith(key K, orDefault func() V) (V, error) {
	value, found, err := m.Get(key)
	if err != nil {
		return value, err
	}
	if found {
		return value, nil
	}
	value = orDefault()
	if _, _, err := m.Insert(key, value); err != nil {
		var zero V
		return zero, err
	}
	return value, nil
}

// Remove deletes key and returns its value, or found=false if the key was
// absent.
func (m *OrderedMap[K, V]) Remove(key K) (V, bool, error) {
	var zero V
	removed, err := m.keys.Remove(key)
	if err != nil {
		return zero, false, err
	}
	if !removed {
		return zero, false, nil
	}
	value, found, err := m.values.Remove(key)
	if err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, NewInconsistentStateErrorf(
			"key present in tree but missing from value map")
	}
	return value, true, nil
}

// Clear removes every pair. Deletions are issued against the ledger
// immediately.
func (m *OrderedMap[K, V]) Clear() error {
	if err := m.keys.Clear(); err != nil {
		return err
	}
	return m.values.Clear()
}

// Extend inserts every entry of entries.
func (m *OrderedMap[K, V]) Extend(entries []MapEntry[K, V]) error {
	for _, entry := range entries {
		if _, _, err := m.Insert(entry.Key, entry.Value); err != nil {
			return err
		}
	}
	return nil
}

// Min returns the pair with the smallest key, or found=false on an empty
// map.
func (m *OrderedMap[K, V]) Min() (K, V, bool, error) {
	return m.resolve(m.keys.Min())
}

// Max returns the pair with the largest key, or found=false on an empty map.
func (m *OrderedMap[K, V]) Max() (K, V, bool, error) {
	return m.resolve(m.keys.Max())
}

// Above returns the pair with the smallest key strictly greater than key.
func (m *OrderedMap[K, V]) Above(key K) (K, V, bool, error) {
	return m.resolve(m.keys.Above(key))
}

// Below returns the pair with the largest key strictly less than key.
func (m *OrderedMap[K, V]) Below(key K) (K, V, bool, error) {
	return m.resolve(m.keys.Below(key))
}

// Ceil returns the pair with the smallest key greater than or equal to key.
func (m *OrderedMap[K, V]) Ceil(key K) (K, V, bool, error) {
	return m.resolve(m.keys.Ceil(key))
}

// Floor returns the pair with the largest key less than or equal to key.
func (m *OrderedMap[K, V]) Floor(key K) (K, V, bool, error) {
	return m.resolve(m.keys.Floor(key))
}

// resolve turns a tree bound-query result into a full pair.
func (m *OrderedMap[K, V]) resolve(key K, found bool, err error) (K, V, bool, error) {
	var zeroK K
	var zeroV V
	if err != nil || !found {
		return zeroK, zeroV, false, err
	}
	value, present, err := m.values.Get(key)
	if err != nil {
		return zeroK, zeroV, false, err
	}
	if !present {
		return zeroK, zeroV, false, NewInconsistentStateErrorf(
			"key present in tree but missing from value map")
	}
	return key, value, true, nil
}

// Keys returns an iterator over the keys in ascending order.
func (m *OrderedMap[K, V]) Keys() *TreeIterator[K] {
	return m.keys.Iterator()
}

// Iterate calls fn for each pair in ascending key order until fn returns
// resume=false or an error.
func (m *OrderedMap[K, V]) Iterate(fn func(key K, value V) (resume bool, err error)) error {
	return m.keys.Iterate(m.pairFunc(fn))
}

// IterateFrom behaves like Iterate but starts at the smallest key greater
// than or equal to from.
func (m *OrderedMap[K, V]) IterateFrom(from K, fn func(key K, value V) (resume bool, err error)) error {
	return m.keys.IterateFrom(from, m.pairFunc(fn))
}

// IterateRev calls fn for each pair in descending key order.
func (m *OrderedMap[K, V]) IterateRev(fn func(key K, value V) (resume bool, err error)) error {
	return m.keys.IterateRev(m.pairFunc(fn))
}

// IterateRevFrom behaves like IterateRev but starts at the largest key less
// than or equal to from.
func (m *OrderedMap[K, V]) IterateRevFrom(from K, fn func(key K, value V) (resume bool, err error)) error {
	return m.keys.IterateRevFrom(from, m.pairFunc(fn))
}

// IterateRange calls fn for each pair with key in [lo, hi) in ascending key
// order. Returns an InvalidRangeError if lo > hi.
func (m *OrderedMap[K, V]) IterateRange(lo, hi K, fn func(key K, value V) (resume bool, err error)) error {
	return m.keys.IterateRange(lo, hi, m.pairFunc(fn))
}

// pairFunc adapts a pair callback to a key callback by resolving each key
// through the value map.
func (m *OrderedMap[K, V]) pairFunc(fn func(key K, value V) (resume bool, err error)) func(K) (bool, error) {
	return func(key K) (bool, error) {
		value, found, err := m.values.Get(key)
		if err != nil {
			return false, err
		}
		if !found {
			return false, NewInconsistentStateErrorf(
				"key present in tree but missing from value map")
		}
		return fn(key, value)
	}
}

// Iterator returns a fresh iterator over the map's pairs in ascending key
// order.
func (m *OrderedMap[K, V]) Iterator() *OrderedMapIterator[K, V] {
	return &OrderedMapIterator[K, V]{m: m, keys: m.keys.Iterator()}
}

// OrderedMapIterator walks an OrderedMap's pairs in ascending key order.
type OrderedMapIterator[K constraints.Ordered, V any] struct {
	m    *OrderedMap[K, V]
	keys *TreeIterator[K]
}

// Next returns the next pair, or found=false when the iterator is exhausted.
func (i *OrderedMapIterator[K, V]) Next() (key K, value V, found bool, err error) {
	var zeroK K
	var zeroV V
	key, found, err = i.keys.Next()
	if err != nil || !found {
		return zeroK, zeroV, false, err
	}
	value, found, err = i.m.values.Get(key)
	if err != nil {
		return zeroK, zeroV, false, err
	}
	if !found {
		return zeroK, zeroV, false, NewInconsistentStateErrorf(
			"key present in tree but missing from value map")
	}
	return key, value, true, nil
}

// Flush writes all modified tree nodes, keys, values, lookup buckets and
// metadata to the ledger.
func (m *OrderedMap[K, V]) Flush() error {
	if err := m.keys.Flush(); err != nil {
		return err
	}
	return m.values.Flush()
}
