package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/mapleapp/maple-server/internal/domain"
	"github.com/mapleapp/maple-server/internal/sse"
)

// Key prefixes for tag storage. A tag is owned by its creator and
// visible to everyone in its grant list, so tags are indexed both by
// the owner's (kind, value) pair and by every grantee.
const (
	tagPrefix        = "tag:"              // tag:{id} → Tag JSON
	tagByOwnerPrefix = "idx:tags:owner:"   // idx:tags:owner:{ownerID}:{kind}:{value} → tagID
	tagGranteePrefix = "idx:tags:grantee:" // idx:tags:grantee:{userID}:{tagID} → empty
)

// Tag errors.
var (
	ErrTagNotFound = errors.New("tag not found")
	ErrTagExists   = errors.New("tag already exists")
)

func tagOwnerKey(ownerID string, kind domain.TagKind, value string) []byte {
	return []byte(tagByOwnerPrefix + ownerID + ":" + string(kind) + ":" + value)
}

func tagGranteeKey(userID, tagID string) []byte {
	return []byte(tagGranteePrefix + userID + ":" + tagID)
}

// CreateTag creates a new tag. The (owner, kind, value) tuple is unique:
// creating a second tag with the same tuple returns ErrTagExists. This
// is the constraint FindOrCreateOwnedTag relies on under concurrency.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		ownerKey := tagOwnerKey(t.OwnerUserID, t.Kind, t.Value)
		if _, err := txn.Get(ownerKey); err == nil {
			return ErrTagExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(tagPrefix+t.ID), data); err != nil {
			return err
		}
		if err := txn.Set(ownerKey, []byte(t.ID)); err != nil {
			return err
		}

		for _, g := range t.Sharing.SharedWith {
			if err := txn.Set(tagGranteeKey(g.UserID, t.ID), []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("tag created",
			"tag_id", t.ID,
			"owner", t.OwnerUserID,
			"kind", t.Kind,
			"value", t.Value,
		)
	}
	s.eventEmitter.Emit(sse.NewTagCreatedEvent(t))

	return nil
}

// GetTagByID retrieves a tag by ID.
func (s *Store) GetTagByID(ctx context.Context, tagID string) (*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var t domain.Tag
	if err := s.get([]byte(tagPrefix+tagID), &t); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return &t, nil
}

// GetTagsByIDs resolves a list of tag IDs, skipping any that no longer
// exist. Order follows the input list.
func (s *Store) GetTagsByIDs(ctx context.Context, tagIDs []string) ([]domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tags := make([]domain.Tag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		t, err := s.GetTagByID(ctx, tagID)
		if errors.Is(err, ErrTagNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		tags = append(tags, *t)
	}
	return tags, nil
}

// FindOwnedTag retrieves the tag a user created with the given kind and
// value, if one exists.
func (s *Store) FindOwnedTag(ctx context.Context, ownerID string, kind domain.TagKind, value string) (*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tagID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tagOwnerKey(ownerID, kind, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTagNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			tagID = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetTagByID(ctx, tagID)
}

// UpdateTag rewrites a tag and its indexes. Changing (kind, value) to a
// tuple the owner already uses returns ErrTagExists.
func (s *Store) UpdateTag(ctx context.Context, t *domain.Tag) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var old domain.Tag
		item, err := txn.Get([]byte(tagPrefix + t.ID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTagNotFound
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &old)
		}); err != nil {
			return err
		}

		oldOwnerKey := tagOwnerKey(old.OwnerUserID, old.Kind, old.Value)
		newOwnerKey := tagOwnerKey(t.OwnerUserID, t.Kind, t.Value)
		if string(oldOwnerKey) != string(newOwnerKey) {
			if _, err := txn.Get(newOwnerKey); err == nil {
				return ErrTagExists
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Delete(oldOwnerKey); err != nil {
				return err
			}
		}

		// Re-point grantee keys at the new grant list.
		for _, g := range old.Sharing.SharedWith {
			if err := txn.Delete(tagGranteeKey(g.UserID, t.ID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		for _, g := range t.Sharing.SharedWith {
			if err := txn.Set(tagGranteeKey(g.UserID, t.ID), []byte{}); err != nil {
				return err
			}
		}

		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(tagPrefix+t.ID), data); err != nil {
			return err
		}
		return txn.Set(newOwnerKey, []byte(t.ID))
	})
	if err != nil {
		return err
	}

	s.eventEmitter.Emit(sse.NewTagUpdatedEvent(t))

	return nil
}

// ListTagsForUser returns every tag on which the user holds a grant,
// sorted by value for stable listings.
func (s *Store) ListTagsForUser(ctx context.Context, userID string) ([]*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := tagGranteePrefix + userID + ":"
	var tagIDs []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().Key())
			tagIDs = append(tagIDs, strings.TrimPrefix(key, prefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tags := make([]*domain.Tag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		t, err := s.GetTagByID(ctx, tagID)
		if err != nil {
			continue // Skip dangling grantee keys.
		}
		tags = append(tags, t)
	}

	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Value != tags[j].Value {
			return tags[i].Value < tags[j].Value
		}
		return tags[i].ID < tags[j].ID
	})

	return tags, nil
}

// FindOrCreateOwnedTag atomically finds the owner's tag matching
// (kind, value) or creates it. Returns (tag, created, error) where
// created is true if a new tag was made. Concurrent first-use races
// resolve to a single tag via the unique owner index.
func (s *Store) FindOrCreateOwnedTag(ctx context.Context, t *domain.Tag) (*domain.Tag, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	// Try to find the existing tag first (optimistic read).
	existing, err := s.FindOwnedTag(ctx, t.OwnerUserID, t.Kind, t.Value)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrTagNotFound) {
		return nil, false, err
	}

	if err := s.CreateTag(ctx, t); err != nil {
		if errors.Is(err, ErrTagExists) {
			// Race: another request created it between read and write.
			existing, err := s.FindOwnedTag(ctx, t.OwnerUserID, t.Kind, t.Value)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	return t, true, nil
}
