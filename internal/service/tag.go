package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mapleapp/maple-server/internal/domain"
	domainerrors "github.com/mapleapp/maple-server/internal/errors"
	"github.com/mapleapp/maple-server/internal/id"
	"github.com/mapleapp/maple-server/internal/store"
)

// TagService provides tag lookup, creation, and grant management.
// Tags are the unit of sharing: every access decision about a paper
// reduces to grant checks on its tags.
type TagService struct {
	store           *store.Store
	logger          *slog.Logger
	defaultTagValue string
}

// NewTagService creates a new tag service.
// defaultTagValue names the folder tag created for users who have none.
func NewTagService(store *store.Store, defaultTagValue string, logger *slog.Logger) *TagService {
	return &TagService{
		store:           store,
		logger:          logger,
		defaultTagValue: defaultTagValue,
	}
}

// CreateTagRequest contains the fields for a new tag.
type CreateTagRequest struct {
	Kind  domain.TagKind `json:"kind" validate:"required"`
	Value string         `json:"value" validate:"required,max=200"`
	Label string         `json:"label" validate:"max=200"`
}

// UpdateTagRequest carries the mutable tag fields.
// Sharing is never mutable through this path; use AddUserToTag.
type UpdateTagRequest struct {
	Kind  *domain.TagKind `json:"kind,omitempty"`
	Value *string         `json:"value,omitempty"`
}

// HasAccess reports whether the user holds the required grant level on the tag.
// A missing tag or absent grant both deny.
func (s *TagService) HasAccess(ctx context.Context, tagID, userID string, required domain.AccessLevel) (bool, error) {
	tag, err := s.store.GetTagByID(ctx, tagID)
	if err != nil {
		if domainerrors.Is(err, store.ErrTagNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get tag: %w", err)
	}
	return tag.HasAccess(userID, required), nil
}

// CreateTag creates a tag owned by userID with a sole write grant for the creator.
func (s *TagService) CreateTag(ctx context.Context, userID string, req CreateTagRequest) (*domain.Tag, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if !req.Kind.Valid() {
		return nil, domainerrors.Validationf("unknown tag kind: %s", req.Kind)
	}

	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, fmt.Errorf("generate tag ID: %w", err)
	}

	tag := &domain.Tag{
		OwnerUserID: userID,
		Kind:        req.Kind,
		Value:       req.Value,
		Label:       req.Label,
		Sharing: domain.TagSharing{
			SharedWith: []domain.Grant{
				{UserID: userID, Level: domain.AccessWrite},
			},
		},
	}
	tag.ID = tagID
	tag.InitTimestamps()

	if err := s.store.CreateTag(ctx, tag); err != nil {
		if domainerrors.Is(err, store.ErrTagExists) {
			return nil, domainerrors.Conflictf("tag %s/%s already exists", req.Kind, req.Value)
		}
		return nil, fmt.Errorf("create tag: %w", err)
	}

	s.logger.Info("tag created",
		"tag_id", tagID,
		"user_id", userID,
		"kind", tag.Kind,
		"value", tag.Value,
	)

	return tag, nil
}

// GetTag returns a tag if the user holds any grant on it.
func (s *TagService) GetTag(ctx context.Context, tagID, userID string) (*domain.Tag, error) {
	tag, err := s.store.GetTagByID(ctx, tagID)
	if err != nil {
		if domainerrors.Is(err, store.ErrTagNotFound) {
			return nil, domainerrors.NotFound("tag not found")
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	if !tag.HasAccess(userID, domain.AccessRead) {
		return nil, domainerrors.Forbidden("no access to this tag")
	}
	return tag, nil
}

// UpdateTag applies kind/value changes. Requires a write grant.
func (s *TagService) UpdateTag(ctx context.Context, tagID, userID string, req UpdateTagRequest) (*domain.Tag, error) {
	tag, err := s.store.GetTagByID(ctx, tagID)
	if err != nil {
		if domainerrors.Is(err, store.ErrTagNotFound) {
			return nil, domainerrors.NotFound("tag not found")
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	if !tag.HasAccess(userID, domain.AccessWrite) {
		return nil, domainerrors.Forbidden("write access required to update tag")
	}

	if req.Kind != nil {
		if !req.Kind.Valid() {
			return nil, domainerrors.Validationf("unknown tag kind: %s", *req.Kind)
		}
		tag.Kind = *req.Kind
	}
	if req.Value != nil {
		if *req.Value == "" {
			return nil, domainerrors.Validation("tag value cannot be empty")
		}
		tag.Value = *req.Value
	}
	tag.Touch()

	if err := s.store.UpdateTag(ctx, tag); err != nil {
		if domainerrors.Is(err, store.ErrTagExists) {
			return nil, domainerrors.Conflictf("tag %s/%s already exists", tag.Kind, tag.Value)
		}
		return nil, fmt.Errorf("update tag: %w", err)
	}

	s.logger.Info("tag updated",
		"tag_id", tagID,
		"user_id", userID,
	)

	return tag, nil
}

// AddUserToTag grants targetUserID the given level on the tag.
// The requesting user must hold write. An existing grant for the target
// is rejected with Conflict rather than silently duplicated.
func (s *TagService) AddUserToTag(ctx context.Context, tagID, targetUserID string, level domain.AccessLevel, requestingUserID string) (*domain.Tag, error) {
	tag, err := s.store.GetTagByID(ctx, tagID)
	if err != nil {
		if domainerrors.Is(err, store.ErrTagNotFound) {
			return nil, domainerrors.NotFound("tag not found")
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	if !tag.HasAccess(requestingUserID, domain.AccessWrite) {
		return nil, domainerrors.Forbidden("write access required to share tag")
	}

	if _, exists := tag.GrantFor(targetUserID); exists {
		return nil, domainerrors.Conflict("user already has access to this tag")
	}

	tag.Sharing.SharedWith = append(tag.Sharing.SharedWith, domain.Grant{
		UserID: targetUserID,
		Level:  level,
	})
	tag.Touch()

	if err := s.store.UpdateTag(ctx, tag); err != nil {
		return nil, fmt.Errorf("update tag: %w", err)
	}

	s.logger.Info("tag shared",
		"tag_id", tagID,
		"shared_by", requestingUserID,
		"shared_with", targetUserID,
		"access_level", level.String(),
	)

	return tag, nil
}

// GetOrCreateNamedTag returns the user's tag matching (kind, value),
// creating it with a sole write grant when absent. Safe under concurrent
// first use: the store enforces uniqueness on (owner, kind, value).
func (s *TagService) GetOrCreateNamedTag(ctx context.Context, userID string, kind domain.TagKind, value, label string) (*domain.Tag, error) {
	if !kind.Valid() {
		return nil, domainerrors.Validationf("unknown tag kind: %s", kind)
	}
	if value == "" {
		return nil, domainerrors.Validation("tag value cannot be empty")
	}

	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, fmt.Errorf("generate tag ID: %w", err)
	}

	candidate := &domain.Tag{
		OwnerUserID: userID,
		Kind:        kind,
		Value:       value,
		Label:       label,
		Sharing: domain.TagSharing{
			SharedWith: []domain.Grant{
				{UserID: userID, Level: domain.AccessWrite},
			},
		},
	}
	candidate.ID = tagID
	candidate.InitTimestamps()

	tag, created, err := s.store.FindOrCreateOwnedTag(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("find or create tag: %w", err)
	}
	if created {
		s.logger.Info("named tag created",
			"tag_id", tag.ID,
			"user_id", userID,
			"kind", kind,
			"value", value,
		)
	}

	return tag, nil
}

// ListUserTags returns every tag the user holds a grant on.
// A user with no tags gets a default folder tag so there is always
// somewhere to file papers.
func (s *TagService) ListUserTags(ctx context.Context, userID string) ([]*domain.Tag, error) {
	tags, err := s.store.ListTagsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	if len(tags) > 0 {
		return tags, nil
	}

	tag, err := s.GetOrCreateNamedTag(ctx, userID, domain.TagKindFolder, s.defaultTagValue, "")
	if err != nil {
		return nil, err
	}
	return []*domain.Tag{tag}, nil
}
