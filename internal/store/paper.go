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

// Key prefixes for paper storage. Papers are indexed by owner, by each
// tag they carry, and — for recording papers — by the caller-supplied
// recording ID scoped to the owner.
const (
	paperPrefix            = "paper:"               // paper:{id} → Paper JSON
	paperByOwnerPrefix     = "idx:papers:owner:"    // idx:papers:owner:{userID}:{paperID} → empty
	paperByTagPrefix       = "idx:papers:tag:"      // idx:papers:tag:{tagID}:{paperID} → empty
	paperByRecordingPrefix = "idx:papers:recording:" // idx:papers:recording:{ownerID}:{recordingID} → paperID
)

// ErrPaperNotFound is returned when a paper cannot be found.
var ErrPaperNotFound = errors.New("paper not found")

func paperOwnerKey(userID, paperID string) []byte {
	return []byte(paperByOwnerPrefix + userID + ":" + paperID)
}

func paperTagKey(tagID, paperID string) []byte {
	return []byte(paperByTagPrefix + tagID + ":" + paperID)
}

func paperRecordingKey(ownerID, recordingID string) []byte {
	return []byte(paperByRecordingPrefix + ownerID + ":" + recordingID)
}

// recordingIDOf extracts the caller-supplied recording ID from a
// recording paper's payload, or "" when not applicable.
func recordingIDOf(p *domain.Paper) string {
	if p.Type != domain.PaperTypeRecording {
		return ""
	}
	recID, _ := p.Data["recording_id"].(string)
	return recID
}

// CreatePaper persists a new paper and its index keys.
func (s *Store) CreatePaper(ctx context.Context, p *domain.Paper) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(paperPrefix+p.ID), data); err != nil {
			return err
		}
		if err := txn.Set(paperOwnerKey(p.CreatedBy, p.ID), []byte{}); err != nil {
			return err
		}
		for _, tagID := range p.TagIDs {
			if err := txn.Set(paperTagKey(tagID, p.ID), []byte{}); err != nil {
				return err
			}
		}
		if recID := recordingIDOf(p); recID != "" {
			if err := txn.Set(paperRecordingKey(p.CreatedBy, recID), []byte(p.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("paper created",
			"paper_id", p.ID,
			"type", p.Type,
			"created_by", p.CreatedBy,
			"tag_count", len(p.TagIDs),
		)
	}
	s.eventEmitter.Emit(sse.NewPaperCreatedEvent(p, s.paperRecipients(ctx, p)))

	return nil
}

// GetPaperByID retrieves a paper by ID.
func (s *Store) GetPaperByID(ctx context.Context, paperID string) (*domain.Paper, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var p domain.Paper
	if err := s.get([]byte(paperPrefix+paperID), &p); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrPaperNotFound
		}
		return nil, fmt.Errorf("get paper: %w", err)
	}
	return &p, nil
}

// UpdatePaper rewrites a paper in place, re-pointing tag and recording
// index keys at the new state. The owner index never moves because
// CreatedBy is immutable.
func (s *Store) UpdatePaper(ctx context.Context, p *domain.Paper) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var old domain.Paper
		item, err := txn.Get([]byte(paperPrefix + p.ID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPaperNotFound
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &old)
		}); err != nil {
			return err
		}

		for _, tagID := range old.TagIDs {
			if err := txn.Delete(paperTagKey(tagID, p.ID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		for _, tagID := range p.TagIDs {
			if err := txn.Set(paperTagKey(tagID, p.ID), []byte{}); err != nil {
				return err
			}
		}

		if oldRec, newRec := recordingIDOf(&old), recordingIDOf(p); oldRec != newRec {
			if oldRec != "" {
				if err := txn.Delete(paperRecordingKey(old.CreatedBy, oldRec)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
					return err
				}
			}
			if newRec != "" {
				if err := txn.Set(paperRecordingKey(p.CreatedBy, newRec), []byte(p.ID)); err != nil {
					return err
				}
			}
		}

		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return txn.Set([]byte(paperPrefix+p.ID), data)
	})
	if err != nil {
		return err
	}

	s.eventEmitter.Emit(sse.NewPaperUpdatedEvent(p, s.paperRecipients(ctx, p)))

	return nil
}

// DeletePaper removes a paper and all of its index keys.
func (s *Store) DeletePaper(ctx context.Context, paperID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var deleted *domain.Paper
	err := s.db.Update(func(txn *badger.Txn) error {
		var p domain.Paper
		item, err := txn.Get([]byte(paperPrefix + paperID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPaperNotFound
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		}); err != nil {
			return err
		}

		if err := txn.Delete(paperOwnerKey(p.CreatedBy, p.ID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		for _, tagID := range p.TagIDs {
			if err := txn.Delete(paperTagKey(tagID, p.ID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		if recID := recordingIDOf(&p); recID != "" {
			if err := txn.Delete(paperRecordingKey(p.CreatedBy, recID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}

		if err := txn.Delete([]byte(paperPrefix + paperID)); err != nil {
			return err
		}
		deleted = &p
		return nil
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("paper deleted", "paper_id", paperID)
	}
	s.eventEmitter.Emit(sse.NewPaperDeletedEvent(deleted.ID, s.paperRecipients(ctx, deleted)))

	return nil
}

// ListPapersByOwner returns every paper created by the user.
func (s *Store) ListPapersByOwner(ctx context.Context, userID string) ([]*domain.Paper, error) {
	return s.listPapersByIndex(ctx, paperByOwnerPrefix+userID+":")
}

// ListPapersByTag returns every paper carrying the tag, regardless of
// who created it.
func (s *Store) ListPapersByTag(ctx context.Context, tagID string) ([]*domain.Paper, error) {
	return s.listPapersByIndex(ctx, paperByTagPrefix+tagID+":")
}

func (s *Store) listPapersByIndex(ctx context.Context, prefix string) ([]*domain.Paper, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var paperIDs []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().Key())
			paperIDs = append(paperIDs, strings.TrimPrefix(key, prefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(paperIDs))
	for _, paperID := range paperIDs {
		p, err := s.GetPaperByID(ctx, paperID)
		if err != nil {
			continue // Skip dangling index keys.
		}
		papers = append(papers, p)
	}

	// Newest first by creation time for stable listings.
	sort.Slice(papers, func(i, j int) bool {
		if !papers[i].CreatedAt.Equal(papers[j].CreatedAt) {
			return papers[i].CreatedAt.After(papers[j].CreatedAt)
		}
		return papers[i].ID < papers[j].ID
	})

	return papers, nil
}

// FindRecordingPaper locates the owner's recording paper for a
// caller-supplied recording ID.
func (s *Store) FindRecordingPaper(ctx context.Context, ownerID, recordingID string) (*domain.Paper, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var paperID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(paperRecordingKey(ownerID, recordingID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPaperNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			paperID = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetPaperByID(ctx, paperID)
}

// paperRecipients collects the users allowed to see events about a
// paper: its creator plus every grantee on any of its tags. Best effort;
// unresolvable tags just drop out of the list.
func (s *Store) paperRecipients(ctx context.Context, p *domain.Paper) []string {
	seen := map[string]bool{p.CreatedBy: true}
	recipients := []string{p.CreatedBy}

	for _, tagID := range p.TagIDs {
		t, err := s.GetTagByID(ctx, tagID)
		if err != nil {
			continue
		}
		for _, g := range t.Sharing.SharedWith {
			if !seen[g.UserID] {
				seen[g.UserID] = true
				recipients = append(recipients, g.UserID)
			}
		}
	}

	return recipients
}
