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

// MapEntry is one key/value pair of a Map.
type MapEntry[K, V any] struct {
	Key   K
	Value V
}

// Map is a storage-backed associative container. Keys are matched by their
// deterministic serialized form, located through a digest-addressed lookup
// table, and kept iterable in a keys vector with a parallel values vector.
// Iteration order is insertion order modulo swap-remove reordering, not
// sorted order.
type Map[K, V any] struct {
	index  *keyIndex[K]
	values *Vector[V]
}

// NewMap attaches to the map stored under prefix, creating an empty one if
// none exists.
func NewMap[K, V any](ledger Ledger, prefix []byte) (*Map[K, V], error) {
	index, err := newKeyIndex[K](ledger, prefix)
	if err != nil {
		return nil, err
	}
	values, err := NewVector[V](ledger, derivePrefix(prefix, subPrefixValues))
	if err != nil {
		return nil, err
	}
	return &Map[K, V]{index: index, values: values}, nil
}

// Len returns the number of key/value pairs.
func (m *Map[K, V]) Len() (uint32, error) {
	keysLen := m.index.keys.Len()
	valuesLen := m.values.Len()
	if keysLen != valuesLen {
		return 0, NewInconsistentStateErrorf(
			"keys vector has %d entries but values vector has %d", keysLen, valuesLen)
	}
	return keysLen, nil
}

// IsEmpty returns true if the map contains no pairs.
func (m *Map[K, V]) IsEmpty() (bool, error) {
	n, err := m.Len()
	return n == 0, err
}

// Get returns the value stored under key, or found=false.
func (m *Map[K, V]) Get(key K) (value V, found bool, err error) {
	var zero V
	keyBytes, err := encodeElement(key)
	if err != nil {
		return zero, false, err
	}
	index, found, err := m.index.find(keyBytes)
	if err != nil || !found {
		return zero, false, err
	}
	value, found, err = m.values.Get(index)
	if err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, NewInconsistentStateErrorf(
			"lookup table references index %d beyond values vector", index)
	}
	return value, true, nil
}

// ContainsKey returns true if key is present.
func (m *Map[K, V]) ContainsKey(key K) (bool, error) {
	keyBytes, err := encodeElement(key)
	if err != nil {
		return false, err
	}
	_, found, err := m.index.find(keyBytes)
	return found, err
}

// Insert stores key -> value. If the key was already present its value is
// replaced in place and the previous value returned with existed=true.
func (m *Map[K, V]) Insert(key K, value V) (previous V, existed bool, err error) {
	var zero V
	keyBytes, err := encodeElement(key)
	if err != nil {
		return zero, false, err
	}

	index, found, err := m.index.find(keyBytes)
	if err != nil {
		return zero, false, err
	}
	if found {
		previous, err = m.values.Replace(index, value)
		if err != nil {
			return zero, false, err
		}
		return previous, true, nil
	}

	index, err = m.index.add(key, keyBytes)
	if err != nil {
		return zero, false, err
	}
	if index != m.values.Len() {
		return zero, false, NewInconsistentStateErrorf(
			"new key landed at index %d but values vector has %d entries", index, m.values.Len())
	}
	if err := m.values.Push(value); err != nil {
		return zero, false, err
	}
	return zero, false, nil
}

// Mutate applies fn to the value stored under key in place, or returns
// found=false if the key is absent. The value is marked modified regardless
// of what fn does to it.
func (m *Map[K, V]) Mutate(key K, fn func(*V)) (bool, error) {
	keyBytes, err := encodeElement(key)
	if err != nil {
		return false, err
	}
	index, found, err := m.index.find(keyBytes)
	if err != nil || !found {
		return false, err
	}
	if err := m.values.Mutate(index, fn); err != nil {
		return false, err
	}
	return true, nil
}

// GetOrInsertWith returns the value stored under key, inserting the value
// produced by orDefault first if the key is absent.
func (m *Map[K, V]) GetOrInsertWith(key K, orDefault func() V) (V, error) {
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
// absent. The keys and values vectors shrink by swap-remove, so the pair that
// was last now occupies the removed pair's position.
func (m *Map[K, V]) Remove(key K) (value V, found bool, err error) {
	var zero V
	keyBytes, err := encodeElement(key)
	if err != nil {
		return zero, false, err
	}
	index, found, err := m.index.remove(keyBytes)
	if err != nil || !found {
		return zero, false, err
	}
	value, err = m.values.SwapRemove(index)
	if err != nil {
		return zero, false, err
	}
	return value, true, nil
}

// Clear removes every pair. Deletions are issued against the ledger
// immediately.
func (m *Map[K, V]) Clear() error {
	if err := m.index.clear(); err != nil {
		return err
	}
	return m.values.Clear()
}

// Extend inserts every entry of entries.
func (m *Map[K, V]) Extend(entries []MapEntry[K, V]) error {
	for _, entry := range entries {
		if _, _, err := m.Insert(entry.Key, entry.Value); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns an iterator over the keys in iteration order.
func (m *Map[K, V]) Keys() *VectorIterator[K] {
	return m.index.keys.Iterator()
}

// Values returns an iterator over the values in iteration order.
func (m *Map[K, V]) Values() *VectorIterator[V] {
	return m.values.Iterator()
}

// Iterate calls fn for each pair in iteration order until fn returns
// resume=false or an error.
func (m *Map[K, V]) Iterate(fn func(key K, value V) (resume bool, err error)) error {
	n, err := m.Len()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		key, found, err := m.index.keys.Get(i)
		if err != nil {
			return err
		}
		if !found {
			return NewInconsistentStateErrorf("key index %d vanished during iteration", i)
		}
		value, found, err := m.values.Get(i)
		if err != nil {
			return err
		}
		if !found {
			return NewInconsistentStateErrorf("value index %d vanished during iteration", i)
		}
		resume, err := fn(key, value)
		if err != nil {
			return err
		}
		if !resume {
			return nil
		}
	}
	return nil
}

// Iterator returns a fresh iterator over the map's pairs.
func (m *Map[K, V]) Iterator() *MapIterator[K, V] {
	return &MapIterator[K, V]{m: m}
}

// Flush writes all modified keys, values, lookup buckets and metadata to the
// ledger.
func (m *Map[K, V]) Flush() error {
	if err := m.index.flush(); err != nil {
		return err
	}
	return m.values.Flush()
}
