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

// Ledger is the storage substrate all collections are layered on: a byte-key
// to byte-value store with point reads and writes. Implementations are passed
// to collection constructors explicitly; this package never reaches for a
// global backend.
//
// Keys and values are opaque byte sequences. A nil value returned by GetValue
// means the key is absent; implementations must not store empty values for
// absent keys.
type Ledger interface {
	// GetValue returns the value stored under key, or nil if absent.
	GetValue(key []byte) ([]byte, error)

	// SetValue stores value under key and returns the evicted previous
	// value, or nil if the key was absent.
	SetValue(key, value []byte) ([]byte, error)

	// RemoveValue deletes key and returns the evicted value, or nil if the
	// key was absent.
	RemoveValue(key []byte) ([]byte, error)

	// ValueExists returns true if key is present.
	ValueExists(key []byte) (bool, error)
}

// LedgerUsageReporter reports I/O issued against a ledger. Counters are
// cumulative until ResetReporter is called.
type LedgerUsageReporter interface {
	ReadCount() int
	WriteCount() int
	RemoveCount() int
	BytesRetrieved() int
	BytesStored() int
	ResetReporter()
}

// MemoryLedger is an in-memory Ledger used in tests and simulations. It
// tracks operation counts so tests can assert on the exact number of storage
// calls a collection issues.
type MemoryLedger struct {
	values map[string][]byte

	reads          int
	writes         int
	removes        int
	bytesRetrieved int
	bytesStored    int
}

var _ Ledger = &MemoryLedger{}
var _ LedgerUsageReporter = &MemoryLedger{}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{values: make(map[string][]byte)}
}

func (l *MemoryLedger) GetValue(key []byte) ([]byte, error) {
	l.reads++
	v, ok := l.values[string(key)]
	if !ok {
		return nil, nil
	}
	l.bytesRetrieved += len(v)
	return v, nil
}

func (l *MemoryLedger) SetValue(key, value []byte) ([]byte, error) {
	l.writes++
	l.bytesStored += len(value)
	k := string(key)
	evicted := l.values[k]
	stored := make([]byte, len(value))
	copy(stored, value)
	l.values[k] = stored
	return evicted, nil
}

func (l *MemoryLedger) RemoveValue(key []byte) ([]byte, error) {
	l.removes++
	k := string(key)
	evicted, ok := l.values[k]
	if !ok {
		return nil, nil
	}
	delete(l.values, k)
	return evicted, nil
}

func (l *MemoryLedger) ValueExists(key []byte) (bool, error) {
	l.reads++
	_, ok := l.values[string(key)]
	return ok, nil
}

// Count returns the number of keys currently stored.
func (l *MemoryLedger) Count() int {
	return len(l.values)
}

func (l *MemoryLedger) ReadCount() int {
	return l.reads
}

func (l *MemoryLedger) WriteCount() int {
	return l.writes
}

func (l *MemoryLedger) RemoveCount() int {
	return l.removes
}

func (l *MemoryLedger) BytesRetrieved() int {
	return l.bytesRetrieved
}

func (l *MemoryLedger) BytesStored() int {
	return l.bytesStored
}

func (l *MemoryLedger) ResetReporter() {
	l.reads = 0
	l.writes = 0
	l.removes = 0
	l.bytesRetrieved = 0
	l.bytesStored = 0
}
