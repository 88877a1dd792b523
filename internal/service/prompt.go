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

// Defaults applied when a prompt is created without appearance fields.
const (
	defaultPromptIcon  = "mic"
	defaultPromptColor = "blue"
)

// PromptService manages reformatting prompts: the five built-ins owned
// by the system user plus each user's own.
type PromptService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewPromptService creates a new prompt service.
func NewPromptService(store *store.Store, logger *slog.Logger) *PromptService {
	return &PromptService{
		store:  store,
		logger: logger,
	}
}

// CreatePromptRequest contains the fields for a new prompt.
type CreatePromptRequest struct {
	TriggerWord string `json:"trigger_word" validate:"required,max=100"`
	PromptText  string `json:"prompt_text" validate:"required,max=4000"`
	Icon        string `json:"icon" validate:"max=100"`
	Color       string `json:"color" validate:"max=50"`
}

// UpdatePromptRequest carries the mutable prompt fields.
type UpdatePromptRequest struct {
	TriggerWord *string `json:"trigger_word,omitempty"`
	PromptText  *string `json:"prompt_text,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Color       *string `json:"color,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// CreatePrompt creates a custom prompt for the user. Trigger words are
// normalized to lowercase and must not collide with a built-in or one of
// the user's existing prompts.
func (s *PromptService) CreatePrompt(ctx context.Context, userID string, req CreatePromptRequest) (*domain.Prompt, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	trigger := domain.NormalizeTrigger(req.TriggerWord)
	if trigger == "" {
		return nil, domainerrors.Validation("trigger word cannot be empty")
	}

	if _, err := s.store.GetPromptByTrigger(ctx, domain.SystemUserID, trigger); err == nil {
		return nil, domainerrors.Conflictf("trigger word %q is reserved by a built-in prompt", trigger)
	} else if !domainerrors.Is(err, store.ErrPromptNotFound) {
		return nil, fmt.Errorf("check built-in trigger: %w", err)
	}

	promptID, err := id.Generate("prompt")
	if err != nil {
		return nil, fmt.Errorf("generate prompt ID: %w", err)
	}

	prompt := &domain.Prompt{
		UserID:      userID,
		TriggerWord: trigger,
		PromptText:  req.PromptText,
		Icon:        req.Icon,
		Color:       req.Color,
		IsActive:    true,
	}
	if prompt.Icon == "" {
		prompt.Icon = defaultPromptIcon
	}
	if prompt.Color == "" {
		prompt.Color = defaultPromptColor
	}
	prompt.ID = promptID
	prompt.InitTimestamps()

	if err := s.store.CreatePrompt(ctx, prompt); err != nil {
		if domainerrors.Is(err, store.ErrPromptExists) {
			return nil, domainerrors.Conflictf("a prompt with trigger word %q already exists", trigger)
		}
		return nil, fmt.Errorf("create prompt: %w", err)
	}

	s.logger.Info("prompt created",
		"prompt_id", promptID,
		"user_id", userID,
		"trigger_word", trigger,
	)

	return prompt, nil
}

// ListPrompts returns the built-in prompts followed by the user's own.
func (s *PromptService) ListPrompts(ctx context.Context, userID string) ([]*domain.Prompt, error) {
	system, err := s.store.ListPromptsForUser(ctx, domain.SystemUserID)
	if err != nil {
		return nil, fmt.Errorf("list built-in prompts: %w", err)
	}
	own, err := s.store.ListPromptsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user prompts: %w", err)
	}
	return append(system, own...), nil
}

// UpdatePrompt applies changes to one of the user's own prompts.
// Built-ins are immutable.
func (s *PromptService) UpdatePrompt(ctx context.Context, promptID, userID string, req UpdatePromptRequest) (*domain.Prompt, error) {
	prompt, err := s.getOwnPrompt(ctx, promptID, userID)
	if err != nil {
		return nil, err
	}

	if req.TriggerWord != nil {
		trigger := domain.NormalizeTrigger(*req.TriggerWord)
		if trigger == "" {
			return nil, domainerrors.Validation("trigger word cannot be empty")
		}
		prompt.TriggerWord = trigger
	}
	if req.PromptText != nil {
		if *req.PromptText == "" {
			return nil, domainerrors.Validation("prompt text cannot be empty")
		}
		prompt.PromptText = *req.PromptText
	}
	if req.Icon != nil {
		prompt.Icon = *req.Icon
	}
	if req.Color != nil {
		prompt.Color = *req.Color
	}
	if req.IsActive != nil {
		prompt.IsActive = *req.IsActive
	}
	prompt.Touch()

	if err := s.store.UpdatePrompt(ctx, prompt); err != nil {
		if domainerrors.Is(err, store.ErrPromptExists) {
			return nil, domainerrors.Conflictf("a prompt with trigger word %q already exists", prompt.TriggerWord)
		}
		return nil, fmt.Errorf("update prompt: %w", err)
	}

	s.logger.Info("prompt updated",
		"prompt_id", promptID,
		"user_id", userID,
	)

	return prompt, nil
}

// DeletePrompt removes one of the user's own prompts. Built-ins are
// immutable.
func (s *PromptService) DeletePrompt(ctx context.Context, promptID, userID string) error {
	prompt, err := s.getOwnPrompt(ctx, promptID, userID)
	if err != nil {
		return err
	}

	if err := s.store.DeletePrompt(ctx, prompt.ID); err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}

	s.logger.Info("prompt deleted",
		"prompt_id", promptID,
		"user_id", userID,
	)

	return nil
}

// MatchingSet returns the active prompts consulted during trigger
// matching for the user: built-ins plus their own.
func (s *PromptService) MatchingSet(ctx context.Context, userID string) ([]domain.Prompt, error) {
	all, err := s.ListPrompts(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := make([]domain.Prompt, 0, len(all))
	for _, p := range all {
		if p.IsActive {
			active = append(active, *p)
		}
	}
	return active, nil
}

func (s *PromptService) getOwnPrompt(ctx context.Context, promptID, userID string) (*domain.Prompt, error) {
	prompt, err := s.store.GetPromptByID(ctx, promptID)
	if err != nil {
		if domainerrors.Is(err, store.ErrPromptNotFound) {
			return nil, domainerrors.NotFound("prompt not found")
		}
		return nil, fmt.Errorf("get prompt: %w", err)
	}
	if prompt.IsBuiltIn {
		return nil, domainerrors.Forbidden("built-in prompts cannot be modified")
	}
	if prompt.UserID != userID {
		// Don't reveal other users' prompts.
		return nil, domainerrors.NotFound("prompt not found")
	}
	return prompt, nil
}
