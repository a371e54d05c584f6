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

// VectorIterator walks a Vector in index order. Each call to the owning
// vector's Iterator method returns a fresh iterator; elements touched during
// iteration stay resident in the vector's cache, so a second pass issues no
// further storage reads.
type VectorIterator[T any] struct {
	vector *Vector[T]
	next   uint32
}

// Next returns the next element, or found=false when the iterator is
// exhausted.
func (i *VectorIterator[T]) Next() (value T, found bool, err error) {
	var zero T
	if i.next >= i.vector.Len() {
		return zero, false, nil
	}
	value, found, err = i.vector.Get(i.next)
	if err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, NewInconsistentStateErrorf("index %d vanished during iteration", i.next)
	}
	i.next++
	return value, true, nil
}
