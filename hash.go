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
	"encoding/binary"
	"errors"

	"github.com/fxamacker/circlehash"
	"github.com/zeebo/blake3"
)

// Digest is one 64-bit level of a key digest. Level 0 is a fast seeded hash
// used to address lookup buckets; levels 1-4 are quarters of a BLAKE3-256 sum
// and partition collision groups that outgrow a single bucket.
type Digest uint64

const digestLevels = 5

type digester struct {
	seed uint64
	msg  []byte

	circle         Digest
	circleComputed bool
	blake          [4]Digest
	blakeComputed  bool
}

func newDigester(seed uint64, msg []byte) *digester {
	return &digester{seed: seed, msg: msg}
}

func (d *digester) Levels() int {
	return digestLevels
}

func (d *digester) Digest(level int) (Digest, error) {
	if level < 0 || level >= digestLevels {
		return 0, errors.New("digest level out of bounds")
	}

	if level == 0 {
		if !d.circleComputed {
			d.circle = Digest(circlehash.Hash64(d.msg, d.seed))
			d.circleComputed = true
		}
		return d.circle, nil
	}

	if !d.blakeComputed {
		sum := blake3.Sum256(d.msg)
		d.blake[0] = Digest(binary.BigEndian.Uint64(sum[:]))
		d.blake[1] = Digest(binary.BigEndian.Uint64(sum[8:]))
		d.blake[2] = Digest(binary.BigEndian.Uint64(sum[16:]))
		d.blake[3] = Digest(binary.BigEndian.Uint64(sum[24:]))
		d.blakeComputed = true
	}
	return d.blake[level-1], nil
}

// seedForPrefix derives a per-collection digest seed from the instance
// prefix, so sibling maps bucket identical keys differently.
func seedForPrefix(prefix []byte) uint64 {
	return circlehash.Hash64(prefix, 0x5374726174614b56) // "StrataKV"
}
