// Package storage persists derived reference data between restarts.
// It uses BoltDB as the underlying storage engine. The aggregated observation
// history is keyed by the fingerprint of the CSV it was computed from, so a
// changed source file is simply a cache miss.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"traffic-predictor/internal/refdata"

	"go.etcd.io/bbolt"
)

const (
	historyBucket = "history" // aggregated observation tables by source fingerprint
	dbFile        = "traffic-cache.db"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Store is a small BoltDB-backed cache.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the cache database under dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(historyBucket)); err != nil {
			return fmt.Errorf("create history bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close is safe to call more than once.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// GetHistory returns the cached history for fingerprint. The boolean is false
// on a miss.
func (s *Store) GetHistory(fingerprint string) (*refdata.History, bool, error) {
	if s.db == nil {
		return nil, false, ErrClosed
	}

	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(historyBucket))
		if v := b.Get([]byte(fingerprint)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}

	var h refdata.History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, false, fmt.Errorf("unmarshal history: %w", err)
	}
	return &h, true, nil
}

// PutHistory stores h under fingerprint and drops every other entry, so the
// cache only ever holds the table for the current source file.
func (s *Store) PutHistory(fingerprint string, h *refdata.History) error {
	if s.db == nil {
		return ErrClosed
	}

	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(historyBucket))

		var stale [][]byte
		if err := b.ForEach(func(k, _ []byte) error {
			if string(k) != fingerprint {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("delete stale history: %w", err)
			}
		}

		return b.Put([]byte(fingerprint), data)
	})
}

// HistoryEntries reports how many histories are cached.
func (s *Store) HistoryEntries() (int, error) {
	if s.db == nil {
		return 0, ErrClosed
	}

	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(historyBucket)).Stats().KeyN
		return nil
	})
	return n, err
}
