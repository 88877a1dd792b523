package store

import (
	"context"
	"encoding/json/v2"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/mapleapp/maple-server/internal/domain"
)

// Snapshot iteration for backup and tooling. Walks every record under a
// prefix in key order, skipping index keys. Callbacks run inside a read
// transaction, so they must not write to the store.

func forEachRecord[T any](ctx context.Context, s *Store, prefix string, fn func(*T) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idxPrefix := prefix + "idx:"

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			if strings.HasPrefix(string(item.Key()), idxPrefix) {
				continue
			}

			var record T
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err != nil {
				return err
			}

			if err := fn(&record); err != nil {
				return err
			}
		}
		return nil
	})
}

// ForEachUser calls fn for every stored user.
func (s *Store) ForEachUser(ctx context.Context, fn func(*domain.User) error) error {
	return forEachRecord(ctx, s, "user:", fn)
}

// ForEachTag calls fn for every stored tag.
func (s *Store) ForEachTag(ctx context.Context, fn func(*domain.Tag) error) error {
	return forEachRecord(ctx, s, tagPrefix, fn)
}

// ForEachPaper calls fn for every stored paper.
func (s *Store) ForEachPaper(ctx context.Context, fn func(*domain.Paper) error) error {
	return forEachRecord(ctx, s, paperPrefix, fn)
}

// ForEachPrompt calls fn for every stored prompt.
func (s *Store) ForEachPrompt(ctx context.Context, fn func(*domain.Prompt) error) error {
	return forEachRecord(ctx, s, promptPrefix, fn)
}

// IsEmpty reports whether the store holds no users, tags, papers, or
// prompts owned by real users. Built-in prompts seeded at startup do not
// count; a restore into a freshly initialized store is still a restore
// into an empty one.
func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	empty := true

	check := func(prefix string) error {
		return s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(prefix)
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			defer it.Close()

			it.Seek([]byte(prefix))
			if it.ValidForPrefix([]byte(prefix)) {
				empty = false
			}
			return nil
		})
	}

	for _, prefix := range []string{"user:", tagPrefix, paperPrefix} {
		if err := check(prefix); err != nil {
			return false, err
		}
		if !empty {
			return false, nil
		}
	}

	err := s.ForEachPrompt(ctx, func(p *domain.Prompt) error {
		if !p.IsBuiltIn {
			empty = false
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return empty, nil
}
