// Package localstore is the device-local key-value store: one JSON value per key
// in a single bbolt bucket.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket holds every key of the app.
const Bucket = "ecoeat"

// ErrCorrupt reports a stored value that does not decode.
var ErrCorrupt = errors.New("corrupt value")

// Store is safe for concurrent use.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database file at path, creating parent directories.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("localstore: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("localstore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(Bucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("localstore: init bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the file lock.
func (s *Store) Close() error { return s.db.Close() }

// Get decodes the value under key into v. found is false when the key is absent.
// A value that fails to decode yields ErrCorrupt.
func (s *Store) Get(key string, v any) (found bool, err error) {
	raw, err := s.GetRaw(key)
	if err != nil || raw == nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

// GetRaw returns a copy of the bytes under key, or nil.
func (s *Store) GetRaw(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(Bucket)).Get([]byte(key)); b != nil {
			out = append([]byte{}, b...)
		}
		return nil
	})
	return out, err
}

// Set overwrites key with the JSON encoding of v.
func (s *Store) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("localstore: encode %s: %w", key, err)
	}
	return s.SetRaw(key, raw)
}

// SetRaw overwrites key with raw bytes.
func (s *Store) SetRaw(key string, raw []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(Bucket)).Put([]byte(key), raw)
	})
}

// Remove deletes key. Removing an absent key succeeds.
func (s *Store) Remove(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(Bucket)).Delete([]byte(key))
	})
}
