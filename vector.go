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

import "math"

// MaxVectorLength is the largest number of elements a Vector can hold.
const MaxVectorLength = math.MaxUint32

type vectorMetadata struct {
	Length uint32
}

// Vector is a storage-backed growable array mapping index -> element, one
// storage slot per index. Indices [0, length) are always contiguous: removal
// overwrites the removed slot with the last element and shrinks (swap-remove)
// instead of shifting, trading order preservation for O(1) removal.
//
// All reads and writes go through a lazy write-back cache; call Flush to make
// mutations durable before the owning unit of work ends.
type Vector[T any] struct {
	ledger      Ledger
	prefix      []byte
	entryPrefix []byte
	length      uint32
	metaDirty   bool
	cache       *lazyCache[T]
}

// NewVector attaches to the vector stored under prefix, creating an empty one
// if no metadata record exists. The prefix must be unique among sibling
// collections sharing the ledger.
func NewVector[T any](ledger Ledger, prefix []byte) (*Vector[T], error) {
	v := &Vector[T]{
		ledger:      ledger,
		prefix:      prefix,
		entryPrefix: derivePrefix(prefix, subPrefixEntries),
		cache:       newLazyCache[T](ledger),
	}

	data, err := ledger.GetValue(metadataKey(prefix))
	if err != nil {
		return nil, wrapStorageError(err)
	}
	if data != nil {
		meta, err := decodeElement[vectorMetadata](data)
		if err != nil {
			// err is already categorized by decodeElement.
			return nil, err
		}
		v.length = meta.Length
	}
	return v, nil
}

func (v *Vector[T]) entryKey(index uint32) []byte {
	return deriveIndexKey(v.entryPrefix, index)
}

// Len returns the number of elements in the vector.
func (v *Vector[T]) Len() uint32 {
	return v.length
}

// IsEmpty returns true if the vector contains no elements.
func (v *Vector[T]) IsEmpty() bool {
	return v.length == 0
}

// Get returns the element at index, or found=false if index >= Len().
func (v *Vector[T]) Get(index uint32) (value T, found bool, err error) {
	var zero T
	if index >= v.length {
		return zero, false, nil
	}
	ptr, err := v.cache.load(v.entryKey(index))
	if err != nil {
		return zero, false, err
	}
	if ptr == nil {
		return zero, false, NewInconsistentStateErrorf(
			"vector length is %d but index %d has no stored element", v.length, index)
	}
	return *ptr, true, nil
}

// Set overwrites the element at index.
func (v *Vector[T]) Set(index uint32, value T) error {
	if index >= v.length {
		return NewIndexOutOfBoundsError(index, v.length)
	}
	v.cache.set(v.entryKey(index), value)
	return nil
}

// Mutate applies fn to the element at index in place. The element is marked
// modified regardless of what fn does to it.
func (v *Vector[T]) Mutate(index uint32, fn func(*T)) error {
	if index >= v.length {
		return NewIndexOutOfBoundsError(index, v.length)
	}
	key := v.entryKey(index)
	ptr, err := v.cache.load(key)
	if err != nil {
		return err
	}
	if ptr == nil {
		return NewInconsistentStateErrorf(
			"vector length is %d but index %d has no stored element", v.length, index)
	}
	fn(ptr)
	v.cache.markModified(key)
	return nil
}

// Push appends an element to the back of the vector.
func (v *Vector[T]) Push(value T) error {
	if v.length == MaxVectorLength {
		return NewIndexSpaceExhaustedError(MaxVectorLength)
	}
	v.cache.set(v.entryKey(v.length), value)
	v.length++
	v.metaDirty = true
	return nil
}

// Pop removes the last element and returns it, or found=false if the vector
// is empty.
func (v *Vector[T]) Pop() (value T, found bool, err error) {
	var zero T
	if v.length == 0 {
		return zero, false, nil
	}
	last := v.length - 1
	key := v.entryKey(last)
	ptr, err := v.cache.load(key)
	if err != nil {
		return zero, false, err
	}
	if ptr == nil {
		return zero, false, NewInconsistentStateErrorf(
			"vector length is %d but last index %d has no stored element", v.length, last)
	}
	value = *ptr
	v.cache.remove(key)
	v.length = last
	v.metaDirty = true
	return value, true, nil
}

// SwapRemove removes the element at index and returns it. The removed slot is
// overwritten by the last element, so ordering is not preserved.
func (v *Vector[T]) SwapRemove(index uint32) (T, error) {
	var zero T
	if index >= v.length {
		return zero, NewIndexOutOfBoundsError(index, v.length)
	}
	if index == v.length-1 {
		value, found, err := v.Pop()
		if err != nil {
			return zero, err
		}
		if !found {
			return zero, NewInconsistentStateError("pop of non-empty vector returned nothing")
		}
		return value, nil
	}

	removed, found, err := v.Get(index)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, NewInconsistentStateErrorf("index %d vanished during swap-remove", index)
	}

	last, found, err := v.Pop()
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, NewInconsistentStateError("pop of non-empty vector returned nothing")
	}
	v.cache.set(v.entryKey(index), last)
	return removed, nil
}

// Replace overwrites the element at index and returns the previous element.
func (v *Vector[T]) Replace(index uint32, value T) (T, error) {
	var zero T
	old, found, err := v.Get(index)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, NewIndexOutOfBoundsError(index, v.length)
	}
	v.cache.set(v.entryKey(index), value)
	return old, nil
}

// Clear removes every element. Slot deletions are issued against the ledger
// immediately rather than deferred, since the whole structure is being
// discarded.
func (v *Vector[T]) Clear() error {
	for i := uint32(0); i < v.length; i++ {
		key := v.entryKey(i)
		if _, err := v.ledger.RemoveValue(key); err != nil {
			return wrapStorageError(err)
		}
		v.cache.drop(key)
	}
	v.length = 0
	v.metaDirty = true
	return nil
}

// Extend appends every element of values.
func (v *Vector[T]) Extend(values []T) error {
	for _, value := range values {
		if err := v.Push(value); err != nil {
			return err
		}
	}
	return nil
}

// Iterate calls fn for each element in index order until fn returns
// resume=false or an error.
func (v *Vector[T]) Iterate(fn func(index uint32, value T) (resume bool, err error)) error {
	for i := uint32(0); i < v.length; i++ {
		value, found, err := v.Get(i)
		if err != nil {
			return err
		}
		if !found {
			return NewInconsistentStateErrorf("index %d vanished during iteration", i)
		}
		resume, err := fn(i, value)
		if err != nil {
			return err
		}
		if !resume {
			return nil
		}
	}
	return nil
}

// IterateMut calls fn with a pointer to each element in index order. Every
// visited element is marked modified and will be rewritten on the next flush.
func (v *Vector[T]) IterateMut(fn func(index uint32, value *T) (resume bool, err error)) error {
	for i := uint32(0); i < v.length; i++ {
		key := v.entryKey(i)
		ptr, err := v.cache.load(key)
		if err != nil {
			return err
		}
		if ptr == nil {
			return NewInconsistentStateErrorf("index %d vanished during iteration", i)
		}
		resume, err := fn(i, ptr)
		v.cache.markModified(key)
		if err != nil {
			return err
		}
		if !resume {
			return nil
		}
	}
	return nil
}

// Iterator returns a fresh iterator positioned before the first element.
func (v *Vector[T]) Iterator() *VectorIterator[T] {
	return &VectorIterator[T]{vector: v}
}

// Flush writes every modified element and the vector's metadata record to the
// ledger. Calling Flush twice with no intervening mutation performs no
// additional storage writes.
func (v *Vector[T]) Flush() error {
	if err := v.cache.flush(); err != nil {
		return err
	}
	if v.metaDirty {
		data, err := encodeElement(vectorMetadata{Length: v.length})
		if err != nil {
			return err
		}
		if _, err := v.ledger.SetValue(metadataKey(v.prefix), data); err != nil {
			return wrapStorageError(err)
		}
		v.metaDirty = false
	}
	return nil
}
