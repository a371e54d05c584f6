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
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// LevelDBLedger is a durable Ledger backed by a LevelDB instance. It is
// intended for hosts and simulators that persist collection state between
// executions; contract runtimes supply their own Ledger instead.
type LevelDBLedger struct {
	db *leveldb.DB
}

var _ Ledger = &LevelDBLedger{}

// OpenLevelDBLedger opens (or creates) a LevelDB database at path.
func OpenLevelDBLedger(path string) (*LevelDBLedger, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, wrapStorageError(err)
	}
	return &LevelDBLedger{db: db}, nil
}

// NewLevelDBLedger wraps an already opened LevelDB database. The caller
// retains ownership of the database handle.
func NewLevelDBLedger(db *leveldb.DB) *LevelDBLedger {
	return &LevelDBLedger{db: db}
}

// Close closes the underlying database.
func (l *LevelDBLedger) Close() error {
	return l.db.Close()
}

func (l *LevelDBLedger) GetValue(key []byte) ([]byte, error) {
	v, err := l.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, nil
		}
		return nil, wrapStorageError(err)
	}
	return v, nil
}

func (l *LevelDBLedger) SetValue(key, value []byte) ([]byte, error) {
	evicted, err := l.GetValue(key)
	if err != nil {
		return nil, err
	}
	if err := l.db.Put(key, value, nil); err != nil {
		return nil, wrapStorageError(err)
	}
	return evicted, nil
}

func (l *LevelDBLedger) RemoveValue(key []byte) ([]byte, error) {
	evicted, err := l.GetValue(key)
	if err != nil {
		return nil, err
	}
	if evicted == nil {
		return nil, nil
	}
	if err := l.db.Delete(key, nil); err != nil {
		return nil, wrapStorageError(err)
	}
	return evicted, nil
}

func (l *LevelDBLedger) ValueExists(key []byte) (bool, error) {
	ok, err := l.db.Has(key, nil)
	if err != nil {
		return false, wrapStorageError(err)
	}
	return ok, nil
}
