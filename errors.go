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

import "fmt"

// Error is the interface implemented by all errors returned by this package.
// Fatal errors indicate a broken collection invariant (storage corruption or
// a bug); they are never expected during correct operation and the caller
// should abort the enclosing unit of work. Non-fatal errors are recoverable
// caller errors such as an out-of-bounds index.
type Error interface {
	// IsFatal returns true if the error indicates an inconsistent state.
	IsFatal() bool
	error
}

// IndexOutOfBoundsError is returned when an operation addresses a vector
// index outside [0, length).
type IndexOutOfBoundsError struct {
	index uint32
	max   uint32
}

// NewIndexOutOfBoundsError constructs an IndexOutOfBoundsError.
func NewIndexOutOfBoundsError(index, max uint32) *IndexOutOfBoundsError {
	return &IndexOutOfBoundsError{index: index, max: max}
}

func (e *IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("index %d is out of bounds (length %d)", e.index, e.max)
}

// IsFatal returns true if the error is fatal.
func (e *IndexOutOfBoundsError) IsFatal() bool {
	return false
}

// IndexSpaceExhaustedError is returned when a vector has reached the maximum
// number of elements its index space can address.
type IndexSpaceExhaustedError struct {
	maxLen uint32
}

// NewIndexSpaceExhaustedError constructs an IndexSpaceExhaustedError.
func NewIndexSpaceExhaustedError(maxLen uint32) *IndexSpaceExhaustedError {
	return &IndexSpaceExhaustedError{maxLen: maxLen}
}

func (e *IndexSpaceExhaustedError) Error() string {
	return fmt.Sprintf("collection has reached its maximum number of elements %d", e.maxLen)
}

// IsFatal returns true if the error is fatal.
func (e *IndexSpaceExhaustedError) IsFatal() bool {
	return false
}

// InvalidRangeError is returned when a range query is given inverted bounds.
type InvalidRangeError struct {
	reason string
}

// NewInvalidRangeError constructs an InvalidRangeError.
func NewInvalidRangeError(reason string) *InvalidRangeError {
	return &InvalidRangeError{reason: reason}
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: %s", e.reason)
}

// IsFatal returns true if the error is fatal.
func (e *InvalidRangeError) IsFatal() bool {
	return false
}

// InconsistentStateError is a fatal error returned when a collection's own
// invariants are violated: a length counter that disagrees with stored
// entries, a lookup table referencing a missing index, or a dangling tree
// node reference. It signals storage corruption or an aborted execution
// whose partial writes were not rolled back.
type InconsistentStateError struct {
	msg string
}

// NewInconsistentStateError constructs an InconsistentStateError.
func NewInconsistentStateError(msg string) *InconsistentStateError {
	return &InconsistentStateError{msg: msg}
}

// NewInconsistentStateErrorf constructs an InconsistentStateError with formatting.
func NewInconsistentStateErrorf(format string, args ...interface{}) *InconsistentStateError {
	return &InconsistentStateError{msg: fmt.Sprintf(format, args...)}
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("collection is in an inconsistent state: %s", e.msg)
}

// IsFatal returns true if the error is fatal.
func (e *InconsistentStateError) IsFatal() bool {
	return true
}

// StorageError is a fatal error returned when the underlying ledger fails.
type StorageError struct {
	err error
}

// NewStorageError constructs a StorageError.
func NewStorageError(err error) *StorageError {
	return &StorageError{err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failed: %s", e.err.Error())
}

// IsFatal returns true if the error is fatal.
func (e *StorageError) IsFatal() bool {
	return true
}

// Unwrap returns the wrapped err.
func (e *StorageError) Unwrap() error {
	return e.err
}

// EncodingError is a fatal error returned when an element cannot be encoded.
type EncodingError struct {
	err error
}

// NewEncodingError constructs an EncodingError.
func NewEncodingError(err error) *EncodingError {
	return &EncodingError{err: err}
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding failed: %s", e.err.Error())
}

// IsFatal returns true if the error is fatal.
func (e *EncodingError) IsFatal() bool {
	return true
}

// Unwrap returns the wrapped err.
func (e *EncodingError) Unwrap() error {
	return e.err
}

// DecodingError is a fatal error returned when stored bytes cannot be decoded
// as the expected element type. Undecodable bytes indicate corruption, not a
// recoverable runtime condition.
type DecodingError struct {
	err error
}

// NewDecodingError constructs a DecodingError.
func NewDecodingError(err error) *DecodingError {
	return &DecodingError{err: err}
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decoding failed: %s", e.err.Error())
}

// IsFatal returns true if the error is fatal.
func (e *DecodingError) IsFatal() bool {
	return true
}

// Unwrap returns the wrapped err.
func (e *DecodingError) Unwrap() error {
	return e.err
}

// NodeNotFoundError is a fatal error returned when a tree node referenced by
// its parent fails to load from storage.
type NodeNotFoundError struct {
	id uint64
}

// NewNodeNotFoundError constructs a NodeNotFoundError.
func NewNodeNotFoundError(id uint64) *NodeNotFoundError {
	return &NodeNotFoundError{id: id}
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("tree node %d not found in storage", e.id)
}

// IsFatal returns true if the error is fatal.
func (e *NodeNotFoundError) IsFatal() bool {
	return true
}

// wrapStorageError categorizes errors coming back from a Ledger. Errors
// already categorized by this package pass through unchanged.
func wrapStorageError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(Error); ok { //nolint:errorlint
		return err
	}
	return NewStorageError(err)
}
