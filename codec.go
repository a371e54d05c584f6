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
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// All elements, tree nodes, lookup buckets and metadata records are encoded
// with deterministic CBOR. Determinism matters twice over: map keys are
// matched by their serialized bytes, and flush output must be reproducible
// across executions for hosts that hash state.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("strata: cannot create CBOR encoding mode: %s", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthForbidden,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("strata: cannot create CBOR decoding mode: %s", err))
	}
}

func encodeElement[T any](v T) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, NewEncodingError(err)
	}
	return data, nil
}

func decodeElement[T any](data []byte) (T, error) {
	var v T
	if err := decMode.Unmarshal(data, &v); err != nil {
		return v, NewDecodingError(err)
	}
	return v, nil
}
