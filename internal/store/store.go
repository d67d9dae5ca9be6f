// Package store provides the Badger-backed recommendation cache.
// Cached recommendations are keyed by user and query fingerprint so a
// repeated query is answered without another model round trip.
package store

import (
	"bytes"
	"errors"
	"fmt"
	json "github.com/go-json-experiment/json"
	"log/slog"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	domainerrors "github.com/shelfscout/shelfscout-server/internal/errors"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing recommendation cache")
	}
	return s.db.Close()
}

// Ping verifies the database is still usable.
func (s *Store) Ping() error {
	if s.db.IsClosed() {
		return fmt.Errorf("badger db is closed")
	}
	return nil
}

func recommendationKey(userID, fingerprint string) []byte {
	return []byte("rec:" + userID + ":" + fingerprint)
}

func recommendationPrefix(userID string) []byte {
	return []byte("rec:" + userID + ":")
}

// CreateRecommendation stores a recommendation unless one already exists for
// the same user and fingerprint. The existence check and the write share one
// transaction, so concurrent identical queries produce exactly one winner and
// the losers get ErrAlreadyExists.
func (s *Store) CreateRecommendation(rec *domain.Recommendation) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation: %w", err)
	}

	key := recommendationKey(rec.UserID, rec.Fingerprint)

	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return domainerrors.ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrAlreadyExists) {
			return domainerrors.ErrAlreadyExists
		}
		return fmt.Errorf("failed to store recommendation: %w", err)
	}

	return nil
}

// GetRecommendation retrieves a cached recommendation by user and fingerprint.
// Returns ErrNotFound on a cache miss.
func (s *Store) GetRecommendation(userID, fingerprint string) (*domain.Recommendation, error) {
	var rec domain.Recommendation

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recommendationKey(userID, fingerprint))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domainerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recommendation: %w", err)
	}

	return &rec, nil
}

// ListRecommendations returns the user's recommendations, newest first.
// A limit <= 0 returns everything.
func (s *Store) ListRecommendations(userID string, limit int) ([]*domain.Recommendation, error) {
	var recs []*domain.Recommendation
	prefix := recommendationPrefix(userID)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.Valid(); it.Next() {
			item := it.Item()
			if !bytes.HasPrefix(item.Key(), prefix) {
				break
			}

			var rec domain.Recommendation
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			recs = append(recs, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}

	// Keys sort by fingerprint, not recency.
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})

	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	return recs, nil
}
