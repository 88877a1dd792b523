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
	"github.com/mapleapp/maple-server/internal/id"
)

// Key prefixes for prompt storage. Trigger words are unique per user,
// enforced through the trigger index.
const (
	promptPrefix          = "prompt:"              // prompt:{id} → Prompt JSON
	promptByTriggerPrefix = "idx:prompts:trigger:" // idx:prompts:trigger:{userID}:{trigger} → promptID
	promptByUserPrefix    = "idx:prompts:user:"    // idx:prompts:user:{userID}:{promptID} → empty
)

// Prompt errors.
var (
	ErrPromptNotFound = errors.New("prompt not found")
	ErrPromptExists   = errors.New("trigger word already exists")
)

func promptTriggerKey(userID, trigger string) []byte {
	return []byte(promptByTriggerPrefix + userID + ":" + trigger)
}

func promptUserKey(userID, promptID string) []byte {
	return []byte(promptByUserPrefix + userID + ":" + promptID)
}

// CreatePrompt persists a new prompt. Returns ErrPromptExists when the
// user already has a prompt with the same trigger word.
func (s *Store) CreatePrompt(ctx context.Context, p *domain.Prompt) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		triggerKey := promptTriggerKey(p.UserID, p.TriggerWord)
		if _, err := txn.Get(triggerKey); err == nil {
			return ErrPromptExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(promptPrefix+p.ID), data); err != nil {
			return err
		}
		if err := txn.Set(triggerKey, []byte(p.ID)); err != nil {
			return err
		}
		return txn.Set(promptUserKey(p.UserID, p.ID), []byte{})
	})
}

// GetPromptByID retrieves a prompt by ID.
func (s *Store) GetPromptByID(ctx context.Context, promptID string) (*domain.Prompt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var p domain.Prompt
	if err := s.get([]byte(promptPrefix+promptID), &p); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, fmt.Errorf("get prompt: %w", err)
	}
	return &p, nil
}

// GetPromptByTrigger retrieves a user's prompt by its normalized
// trigger word.
func (s *Store) GetPromptByTrigger(ctx context.Context, userID, trigger string) (*domain.Prompt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var promptID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(promptTriggerKey(userID, trigger))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPromptNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			promptID = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetPromptByID(ctx, promptID)
}

// UpdatePrompt rewrites a prompt, moving its trigger index when the
// trigger word changed. The new trigger must not collide with another
// of the user's prompts.
func (s *Store) UpdatePrompt(ctx context.Context, p *domain.Prompt) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		var old domain.Prompt
		item, err := txn.Get([]byte(promptPrefix + p.ID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPromptNotFound
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &old)
		}); err != nil {
			return err
		}

		if old.TriggerWord != p.TriggerWord {
			newKey := promptTriggerKey(p.UserID, p.TriggerWord)
			if _, err := txn.Get(newKey); err == nil {
				return ErrPromptExists
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Delete(promptTriggerKey(old.UserID, old.TriggerWord)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(newKey, []byte(p.ID)); err != nil {
				return err
			}
		}

		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return txn.Set([]byte(promptPrefix+p.ID), data)
	})
}

// DeletePrompt removes a prompt and its index keys.
func (s *Store) DeletePrompt(ctx context.Context, promptID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		var p domain.Prompt
		item, err := txn.Get([]byte(promptPrefix + promptID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPromptNotFound
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		}); err != nil {
			return err
		}

		if err := txn.Delete(promptTriggerKey(p.UserID, p.TriggerWord)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Delete(promptUserKey(p.UserID, p.ID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Delete([]byte(promptPrefix + promptID))
	})
}

// ListPromptsForUser returns the user's own prompts, sorted by trigger
// word. System prompts are not included; callers combine the two sets.
func (s *Store) ListPromptsForUser(ctx context.Context, userID string) ([]*domain.Prompt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := promptByUserPrefix + userID + ":"
	var promptIDs []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().Key())
			promptIDs = append(promptIDs, strings.TrimPrefix(key, prefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	prompts := make([]*domain.Prompt, 0, len(promptIDs))
	for _, promptID := range promptIDs {
		p, err := s.GetPromptByID(ctx, promptID)
		if err != nil {
			continue
		}
		prompts = append(prompts, p)
	}

	sort.Slice(prompts, func(i, j int) bool {
		return prompts[i].TriggerWord < prompts[j].TriggerWord
	})

	return prompts, nil
}

// SeedBuiltInPrompts creates any missing built-in prompts for the
// system user. Safe to call on every startup.
func (s *Store) SeedBuiltInPrompts(ctx context.Context) error {
	for _, builtin := range domain.BuiltInPrompts() {
		_, err := s.GetPromptByTrigger(ctx, domain.SystemUserID, builtin.TriggerWord)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrPromptNotFound) {
			return err
		}

		promptID, err := id.Generate("prompt")
		if err != nil {
			return fmt.Errorf("generate prompt ID: %w", err)
		}
		builtin.ID = promptID
		builtin.InitTimestamps()

		if err := s.CreatePrompt(ctx, &builtin); err != nil && !errors.Is(err, ErrPromptExists) {
			return fmt.Errorf("seed prompt %q: %w", builtin.TriggerWord, err)
		}
	}

	if s.logger != nil {
		s.logger.Info("built-in prompts seeded")
	}

	return nil
}
