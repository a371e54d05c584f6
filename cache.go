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

import "sort"

type entryState uint8

const (
	// stateCached: the in-memory value matches storage.
	stateCached entryState = iota
	// stateModified: the in-memory value diverges from storage and must be
	// written (value present) or removed (value nil) on the next flush.
	stateModified
)

// cacheEntry wraps an optional decoded value. A nil value marks the key as
// absent; a nil value in stateModified is a pending removal.
type cacheEntry[T any] struct {
	value *T
	state entryState
}

// lazyCache is the write-back overlay between a collection and its ledger.
// The first access to a storage key reads through and decodes once; later
// accesses hit memory. Mutations only mark entries modified. Nothing reaches
// the ledger until flush, which issues at most one write or remove per
// distinct key touched, in sorted key order so commit output is
// deterministic.
//
// Pointers returned by load alias the cache entry itself. Loading the same
// key twice yields the same pointer, which is what makes multi-node tree
// surgery safe: every reference to a logical node observes every mutation.
// Any mutation made through such a pointer must be followed by markModified.
type lazyCache[T any] struct {
	ledger  Ledger
	entries map[string]*cacheEntry[T]
}

func newLazyCache[T any](ledger Ledger) *lazyCache[T] {
	return &lazyCache[T]{
		ledger:  ledger,
		entries: make(map[string]*cacheEntry[T]),
	}
}

// load returns the value stored under key, reading through to the ledger on
// first touch. Returns nil if the key is absent. Absent keys are cached too,
// so repeated misses cost one storage read total.
func (c *lazyCache[T]) load(key []byte) (*T, error) {
	if entry, ok := c.entries[string(key)]; ok {
		return entry.value, nil
	}

	data, err := c.ledger.GetValue(key)
	if err != nil {
		return nil, wrapStorageError(err)
	}

	entry := &cacheEntry[T]{state: stateCached}
	if data != nil {
		v, err := decodeElement[T](data)
		if err != nil {
			// err is already categorized by decodeElement.
			return nil, err
		}
		entry.value = &v
	}
	c.entries[string(key)] = entry
	return entry.value, nil
}

// set replaces the value under key and marks the entry modified. The entry
// need not have been loaded first.
func (c *lazyCache[T]) set(key []byte, v T) {
	c.entries[string(key)] = &cacheEntry[T]{value: &v, state: stateModified}
}

// markModified flags an already-resident entry as diverged from storage.
// Used after mutating a value in place through the pointer load returned.
func (c *lazyCache[T]) markModified(key []byte) {
	if entry, ok := c.entries[string(key)]; ok {
		entry.state = stateModified
	}
}

// remove marks the key as absent; the removal is deferred until flush.
func (c *lazyCache[T]) remove(key []byte) {
	c.entries[string(key)] = &cacheEntry[T]{value: nil, state: stateModified}
}

// drop forgets an entry without flushing it. Used when the caller has
// already deleted the key from the ledger directly.
func (c *lazyCache[T]) drop(key []byte) {
	delete(c.entries, string(key))
}

// flush writes every modified entry to the ledger (or removes it, if the
// value is absent), then re-marks it cached so a second flush with no
// intervening mutation performs zero storage calls.
func (c *lazyCache[T]) flush() error {
	modified := make([]string, 0, len(c.entries))
	for k, entry := range c.entries {
		if entry.state == stateModified {
			modified = append(modified, k)
		}
	}
	sort.Strings(modified)

	for _, k := range modified {
		entry := c.entries[k]
		if entry.value == nil {
			if _, err := c.ledger.RemoveValue([]byte(k)); err != nil {
				return wrapStorageError(err)
			}
		} else {
			data, err := encodeElement(*entry.value)
			if err != nil {
				// err is already categorized by encodeElement.
				return err
			}
			if _, err := c.ledger.SetValue([]byte(k), data); err != nil {
				return wrapStorageError(err)
			}
		}
		entry.state = stateCached
	}
	return nil
}
