package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mapleapp/maple-server/internal/domain"
	domainerrors "github.com/mapleapp/maple-server/internal/errors"
	"github.com/mapleapp/maple-server/internal/id"
	"github.com/mapleapp/maple-server/internal/store"
)

// PaperService is the sole gateway for reading and writing papers.
// Every operation enforces tag-mediated access control before touching
// the store.
type PaperService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewPaperService creates a new paper service.
func NewPaperService(store *store.Store, logger *slog.Logger) *PaperService {
	return &PaperService{
		store:  store,
		logger: logger,
	}
}

// CreatePaperRequest contains the fields for a new paper.
type CreatePaperRequest struct {
	TagIDs []string       `json:"tags"`
	Type   string         `json:"type"`
	Data   map[string]any `json:"data"`
}

// UpdatePaperRequest is a partial paper update. Data is shallow-merged
// into the stored payload; TagIDs replaces the tag list when supplied.
type UpdatePaperRequest struct {
	TagIDs []string       `json:"tags,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// CreatePaper persists a new paper owned by userID.
// The user must hold a write grant on the first tag in the list; that is
// the sole tag-membership check at creation.
func (s *PaperService) CreatePaper(ctx context.Context, userID string, req CreatePaperRequest) (*domain.PaperView, error) {
	if len(req.TagIDs) == 0 {
		return nil, domainerrors.Validation("at least one tag is required")
	}
	if req.Type == "" {
		return nil, domainerrors.Validation("paper type is required")
	}
	if err := validatePaperData(req.Type, req.Data); err != nil {
		return nil, err
	}

	firstTag, err := s.store.GetTagByID(ctx, req.TagIDs[0])
	if err != nil {
		if domainerrors.Is(err, store.ErrTagNotFound) {
			return nil, domainerrors.Forbidden("tag not found or access denied")
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	if !firstTag.HasAccess(userID, domain.AccessWrite) {
		return nil, domainerrors.Forbidden("tag not found or access denied")
	}

	paperID, err := id.Generate("paper")
	if err != nil {
		return nil, fmt.Errorf("generate paper ID: %w", err)
	}

	paper := &domain.Paper{
		TagIDs:    req.TagIDs,
		Type:      req.Type,
		Data:      req.Data,
		CreatedBy: userID,
	}
	paper.ID = paperID
	paper.InitTimestamps()

	if err := s.store.CreatePaper(ctx, paper); err != nil {
		return nil, fmt.Errorf("create paper: %w", err)
	}

	s.logger.Info("paper created",
		"paper_id", paperID,
		"user_id", userID,
		"type", paper.Type,
	)

	return s.toView(ctx, paper)
}

// GetPaper returns the paper if the user owns it or holds any grant on
// any of its tags.
func (s *PaperService) GetPaper(ctx context.Context, paperID, userID string) (*domain.PaperView, error) {
	paper, err := s.store.GetPaperByID(ctx, paperID)
	if err != nil {
		if domainerrors.Is(err, store.ErrPaperNotFound) {
			return nil, domainerrors.NotFound("paper not found")
		}
		return nil, fmt.Errorf("get paper: %w", err)
	}

	ok, err := s.canAccess(ctx, paper, userID, domain.AccessRead)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainerrors.Forbidden("no access to this paper")
	}

	return s.toView(ctx, paper)
}

// ListUserPapers returns the union of papers the user owns and papers
// shared with them through any tag grant, de-duplicated, optionally
// filtered by type.
func (s *PaperService) ListUserPapers(ctx context.Context, userID, typeFilter string) ([]*domain.PaperView, error) {
	owned, err := s.store.ListPapersByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list owned papers: %w", err)
	}

	tags, err := s.store.ListTagsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	seen := make(map[string]*domain.Paper, len(owned))
	for _, p := range owned {
		seen[p.ID] = p
	}
	for _, tag := range tags {
		shared, err := s.store.ListPapersByTag(ctx, tag.ID)
		if err != nil {
			return nil, fmt.Errorf("list papers by tag: %w", err)
		}
		for _, p := range shared {
			if _, dup := seen[p.ID]; !dup {
				seen[p.ID] = p
			}
		}
	}

	papers := make([]*domain.Paper, 0, len(seen))
	for _, p := range seen {
		if typeFilter != "" && p.Type != typeFilter {
			continue
		}
		papers = append(papers, p)
	}
	sortPapersNewestFirst(papers)

	return s.toViews(ctx, papers)
}

// ListPapersByTag returns every paper carrying the tag. The user must
// hold a grant on the tag; ownership of the papers is irrelevant after
// that.
func (s *PaperService) ListPapersByTag(ctx context.Context, userID, tagID, typeFilter string) ([]*domain.PaperView, error) {
	tag, err := s.store.GetTagByID(ctx, tagID)
	if err != nil {
		if domainerrors.Is(err, store.ErrTagNotFound) {
			return nil, domainerrors.NotFound("tag not found")
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	if !tag.HasAccess(userID, domain.AccessRead) {
		return nil, domainerrors.NotFound("tag not found")
	}

	papers, err := s.store.ListPapersByTag(ctx, tagID)
	if err != nil {
		return nil, fmt.Errorf("list papers by tag: %w", err)
	}

	if typeFilter != "" {
		filtered := papers[:0]
		for _, p := range papers {
			if p.Type == typeFilter {
				filtered = append(filtered, p)
			}
		}
		papers = filtered
	}

	return s.toViews(ctx, papers)
}

// UpdatePaper applies a partial update. Requires write access through
// ownership or any tag grant; the access check precedes any mutation.
func (s *PaperService) UpdatePaper(ctx context.Context, paperID, userID string, req UpdatePaperRequest) (*domain.PaperView, error) {
	paper, err := s.store.GetPaperByID(ctx, paperID)
	if err != nil {
		if domainerrors.Is(err, store.ErrPaperNotFound) {
			return nil, domainerrors.NotFound("paper not found")
		}
		return nil, fmt.Errorf("get paper: %w", err)
	}

	ok, err := s.canAccess(ctx, paper, userID, domain.AccessWrite)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainerrors.Forbidden("write access required to update paper")
	}

	if req.TagIDs != nil {
		paper.TagIDs = req.TagIDs
	}
	if req.Data != nil {
		if paper.Data == nil {
			paper.Data = make(map[string]any, len(req.Data))
		}
		for k, v := range req.Data {
			paper.Data[k] = v
		}
	}
	paper.Touch()

	if err := s.store.UpdatePaper(ctx, paper); err != nil {
		return nil, fmt.Errorf("update paper: %w", err)
	}

	s.logger.Info("paper updated",
		"paper_id", paperID,
		"user_id", userID,
	)

	return s.toView(ctx, paper)
}

// DeletePaper removes a paper. Only the creator may delete; a shared
// write grant is not sufficient.
func (s *PaperService) DeletePaper(ctx context.Context, paperID, userID string) error {
	paper, err := s.store.GetPaperByID(ctx, paperID)
	if err != nil {
		if domainerrors.Is(err, store.ErrPaperNotFound) {
			return domainerrors.NotFound("paper not found")
		}
		return fmt.Errorf("get paper: %w", err)
	}

	if paper.CreatedBy != userID {
		return domainerrors.Forbidden("only the creator can delete a paper")
	}

	if err := s.store.DeletePaper(ctx, paperID); err != nil {
		return fmt.Errorf("delete paper: %w", err)
	}

	s.logger.Info("paper deleted",
		"paper_id", paperID,
		"user_id", userID,
	)

	return nil
}

// canAccess implements the access union: ownership, or the required
// grant level on any one of the paper's tags.
func (s *PaperService) canAccess(ctx context.Context, paper *domain.Paper, userID string, required domain.AccessLevel) (bool, error) {
	if paper.CreatedBy == userID {
		return true, nil
	}

	tags, err := s.store.GetTagsByIDs(ctx, paper.TagIDs)
	if err != nil {
		return false, fmt.Errorf("get tags: %w", err)
	}
	for i := range tags {
		if tags[i].HasAccess(userID, required) {
			return true, nil
		}
	}
	return false, nil
}

// toView resolves the paper's tag references to full tag objects.
func (s *PaperService) toView(ctx context.Context, paper *domain.Paper) (*domain.PaperView, error) {
	tags, err := s.store.GetTagsByIDs(ctx, paper.TagIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve tags: %w", err)
	}
	return &domain.PaperView{
		ID:        paper.ID,
		Tags:      tags,
		Type:      paper.Type,
		Data:      paper.Data,
		CreatedBy: paper.CreatedBy,
		CreatedAt: paper.CreatedAt,
		UpdatedAt: paper.UpdatedAt,
	}, nil
}

func (s *PaperService) toViews(ctx context.Context, papers []*domain.Paper) ([]*domain.PaperView, error) {
	views := make([]*domain.PaperView, 0, len(papers))
	for _, p := range papers {
		view, err := s.toView(ctx, p)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func sortPapersNewestFirst(papers []*domain.Paper) {
	sort.Slice(papers, func(i, j int) bool {
		if !papers[i].CreatedAt.Equal(papers[j].CreatedAt) {
			return papers[i].CreatedAt.After(papers[j].CreatedAt)
		}
		return papers[i].ID < papers[j].ID
	})
}

// validatePaperData checks the payload shape for the types clients
// currently store. Unknown types are accepted as-is; the store stays
// schema-free.
func validatePaperData(paperType string, data map[string]any) error {
	switch paperType {
	case domain.PaperTypeRecording:
		if stringField(data, "recording_id") == "" {
			return domainerrors.Validation("recording data requires recording_id")
		}
		if stringField(data, "transcript") == "" {
			return domainerrors.Validation("recording data requires transcript")
		}
	case domain.PaperTypeCollectible:
		if stringField(data, "item_id") == "" {
			return domainerrors.Validation("collectible data requires item_id")
		}
	case domain.PaperTypeNote, domain.PaperTypeDocument:
		if len(data) == 0 {
			return domainerrors.Validationf("%s data cannot be empty", paperType)
		}
	}
	return nil
}

func stringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	s, _ := data[key].(string)
	return s
}
