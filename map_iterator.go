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

// MapIterator walks a Map's pairs in iteration order (insertion order modulo
// swap-remove reordering).
type MapIterator[K, V any] struct {
	m    *Map[K, V]
	next uint32
}

// Next returns the next pair, or found=false when the iterator is exhausted.
func (i *MapIterator[K, V]) Next() (key K, value V, found bool, err error) {
	var zeroK K
	var zeroV V

	n, err := i.m.Len()
	if err != nil {
		return zeroK, zeroV, false, err
	}
	if i.next >= n {
		return zeroK, zeroV, false, nil
	}

	key, found, err = i.m.index.keys.Get(i.next)
	if err != nil {
		return zeroK, zeroV, false, err
	}
	if !found {
		return zeroK, zeroV, false, NewInconsistentStateErrorf(
			"key index %d vanished during iteration", i.next)
	}
	value, found, err = i.m.values.Get(i.next)
	if err != nil {
		return zeroK, zeroV, false, err
	}
	if !found {
		return zeroK, zeroV, false, NewInconsistentStateErrorf(
			"value index %d vanished during iteration", i.next)
	}
	i.next++
	return key, value, true, nil
}
