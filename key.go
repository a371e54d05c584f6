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

import "encoding/binary"

// Storage keys are derived by concatenating a collection-instance prefix with
// a serialized sub-key. Two logical entries never share a storage key as long
// as the caller chooses distinct prefixes for sibling collections; within one
// collection the sub-key layouts below are mutually collision-free.
//
// Composite collections namespace their parts with a single tag byte appended
// to the instance prefix:
//
//	'e'  element/entry slots (vector indices, tree nodes)
//	'k'  keys vector of a map
//	'v'  values vector of a map
//	'i'  key-index lookup buckets
//	'm'  metadata record of the collection instance
//	't'  key tree of an ordered map
//	'u'  unordered backing map of an ordered map
const (
	subPrefixEntries = 'e'
	subPrefixKeys    = 'k'
	subPrefixValues  = 'v'
	subPrefixIndex   = 'i'
	subPrefixMeta    = 'm'
	subPrefixTree    = 't'
	subPrefixMap     = 'u'
)

// deriveKey concatenates prefix and sub into a storage key.
func deriveKey(prefix, sub []byte) []byte {
	key := make([]byte, 0, len(prefix)+len(sub))
	key = append(key, prefix...)
	key = append(key, sub...)
	return key
}

// derivePrefix extends a collection prefix with a namespace tag.
func derivePrefix(prefix []byte, tag byte) []byte {
	sub := make([]byte, 0, len(prefix)+1)
	sub = append(sub, prefix...)
	sub = append(sub, tag)
	return sub
}

// deriveIndexKey derives the storage key of a vector slot. Indices are
// encoded little-endian, matching the on-disk layout of every other integer
// sub-key in this package.
func deriveIndexKey(prefix []byte, index uint32) []byte {
	key := make([]byte, len(prefix)+4)
	copy(key, prefix)
	binary.LittleEndian.PutUint32(key[len(prefix):], index)
	return key
}

// deriveIDKey derives the storage key of a tree node or lookup bucket
// addressed by a 64-bit identifier.
func deriveIDKey(prefix []byte, id uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.LittleEndian.PutUint64(key[len(prefix):], id)
	return key
}

// metadataKey returns the storage key of a collection's metadata record.
func metadataKey(prefix []byte) []byte {
	return derivePrefix(prefix, subPrefixMeta)
}
