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

// Set is a storage-backed collection of distinct elements, matched by their
// deterministic serialized form. Like Map, it pairs a digest-addressed lookup
// table with an elements vector, so membership checks are O(1) amortized and
// the elements stay iterable. Iteration order is insertion order modulo
// swap-remove reordering.
type Set[T any] struct {
	index *keyIndex[T]
}

// NewSet attaches to the set stored under prefix, creating an empty one if
// none exists.
func NewSet[T any](ledger Ledger, prefix []byte) (*Set[T], error) {
	index, err := newKeyIndex[T](ledger, prefix)
	if err != nil {
		return nil, err
	}
	return &Set[T]{index: index}, nil
}

// Len returns the number of elements.
func (s *Set[T]) Len() uint32 {
	return s.index.keys.Len()
}

// IsEmpty returns true if the set contains no elements.
func (s *Set[T]) IsEmpty() bool {
	return s.Len() == 0
}

// Contains returns true if element is present.
func (s *Set[T]) Contains(element T) (bool, error) {
	elementBytes, err := encodeElement(element)
	if err != nil {
		return false, err
	}
	_, found, err := s.index.find(elementBytes)
	return found, err
}

// Insert adds element and returns true if it was newly inserted, false if it
// was already present. A rejected duplicate is a normal outcome, not an
// error.
func (s *Set[T]) Insert(element T) (bool, error) {
	elementBytes, err := encodeElement(element)
	if err != nil {
		return false, err
	}
	_, found, err := s.index.find(elementBytes)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}
	if _, err := s.index.add(element, elementBytes); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes element and returns true if it was present.
func (s *Set[T]) Remove(element T) (bool, error) {
	elementBytes, err := encodeElement(element)
	if err != nil {
		return false, err
	}
	_, found, err := s.index.remove(elementBytes)
	return found, err
}

// Clear removes every element. Deletions are issued against the ledger
// immediately.
func (s *Set[T]) Clear() error {
	return s.index.clear()
}

// Extend inserts every element of elements.
func (s *Set[T]) Extend(elements []T) error {
	for _, element := range elements {
		if _, err := s.Insert(element); err != nil {
			return err
		}
	}
	return nil
}

// Iterate calls fn for each element until fn returns resume=false or an
// error.
func (s *Set[T]) Iterate(fn func(element T) (resume bool, err error)) error {
	return s.index.keys.Iterate(func(_ uint32, element T) (bool, error) {
		return fn(element)
	})
}

// Iterator returns a fresh iterator over the set's elements.
func (s *Set[T]) Iterator() *VectorIterator[T] {
	return s.index.keys.Iterator()
}

// Flush writes all modified elements, lookup buckets and metadata to the
// ledger.
func (s *Set[T]) Flush() error {
	return s.index.flush()
}

// Union returns the elements present in s or other. Elements of s come
// first, in s's iteration order.
func (s *Set[T]) Union(other *Set[T]) ([]T, error) {
	var result []T
	err := s.Iterate(func(element T) (bool, error) {
		result = append(result, element)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	err = other.Iterate(func(element T) (bool, error) {
		present, err := s.Contains(element)
		if err != nil {
			return false, err
		}
		if !present {
			result = append(result, element)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Intersection returns the elements present in both s and other.
func (s *Set[T]) Intersection(other *Set[T]) ([]T, error) {
	var result []T
	err := s.Iterate(func(element T) (bool, error) {
		present, err := other.Contains(element)
		if err != nil {
			return false, err
		}
		if present {
			result = append(result, element)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Difference returns the elements present in s but not in other.
func (s *Set[T]) Difference(other *Set[T]) ([]T, error) {
	var result []T
	err := s.Iterate(func(element T) (bool, error) {
		present, err := other.Contains(element)
		if err != nil {
			return false, err
		}
		if !present {
			result = append(result, element)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SymmetricDifference returns the elements present in exactly one of s and
// other.
func (s *Set[T]) SymmetricDifference(other *Set[T]) ([]T, error) {
	result, err := s.Difference(other)
	if err != nil {
		return nil, err
	}
	rest, err := other.Difference(s)
	if err != nil {
		return nil, err
	}
	return append(result, rest...), nil
}

// IsSubset returns true if every element of s is in other.
func (s *Set[T]) IsSubset(other *Set[T]) (bool, error) {
	subset := true
	err := s.Iterate(func(element T) (bool, error) {
		present, err := other.Contains(element)
		if err != nil {
			return false, err
		}
		if !present {
			subset = false
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return subset, nil
}

// IsSuperset returns true if every element of other is in s.
func (s *Set[T]) IsSuperset(other *Set[T]) (bool, error) {
	return other.IsSubset(s)
}

// IsDisjoint returns true if s and other share no elements.
func (s *Set[T]) IsDisjoint(other *Set[T]) (bool, error) {
	disjoint := true
	err := s.Iterate(func(element T) (bool, error) {
		present, err := other.Contains(element)
		if err != nil {
			return false, err
		}
		if present {
			disjoint = false
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return disjoint, nil
}
