// Package favorites keeps the device-local set of favorite product ids: a persistent
// store over the local key-value database and an in-memory cache shared by every view.
package favorites

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/ecoeat/internal/errs"
)

// Key is the single local key holding the favorite ids.
const Key = "favorites"

// KV is the local persistence the store needs.
type KV interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
	Remove(key string) error
}

// Store persists the ordered list of favorite ids.
type Store struct {
	kv  KV
	log *zap.Logger
}

// NewStore constructs a Store over kv.
func NewStore(kv KV, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kv, log: log}
}

// Load returns the persisted ids in insertion order. Missing or unreadable data
// yields an empty list and is only logged.
func (s *Store) Load() []string {
	var ids []string
	found, err := s.kv.Get(Key, &ids)
	if err != nil {
		s.log.Warn("favorites: discarding unreadable data", zap.Error(err))
		return []string{}
	}
	if !found {
		return []string{}
	}
	return normalize(ids)
}

// Save overwrites the persisted list.
func (s *Store) Save(ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	if err := s.kv.Set(Key, ids); err != nil {
		return fmt.Errorf("save favorites: %w: %w", errs.ErrWrite, err)
	}
	return nil
}

// Clear removes all persisted favorites.
func (s *Store) Clear() error {
	if err := s.kv.Remove(Key); err != nil {
		return fmt.Errorf("clear favorites: %w: %w", errs.ErrWrite, err)
	}
	return nil
}

// normalize drops blanks and duplicates, keeping first occurrences.
func normalize(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
