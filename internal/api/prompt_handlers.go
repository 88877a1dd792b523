package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/mapleapp/maple-server/internal/domain"
	"github.com/mapleapp/maple-server/internal/service"
)

func (s *Server) registerPromptRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPrompts",
		Method:      http.MethodGet,
		Path:        "/api/v1/prompts",
		Summary:     "List prompts",
		Description: "Returns built-in prompts followed by the user's custom prompts",
		Tags:        []string{"Prompts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListPrompts)

	huma.Register(s.api, huma.Operation{
		OperationID: "createPrompt",
		Method:      http.MethodPost,
		Path:        "/api/v1/prompts",
		Summary:     "Create prompt",
		Description: "Creates a custom prompt. Trigger words are normalized to lowercase and must be unique per user.",
		Tags:        []string{"Prompts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreatePrompt)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePrompt",
		Method:      http.MethodPatch,
		Path:        "/api/v1/prompts/{id}",
		Summary:     "Update prompt",
		Description: "Updates one of the user's custom prompts. Built-in prompts cannot be modified.",
		Tags:        []string{"Prompts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdatePrompt)

	huma.Register(s.api, huma.Operation{
		OperationID: "deletePrompt",
		Method:      http.MethodDelete,
		Path:        "/api/v1/prompts/{id}",
		Summary:     "Delete prompt",
		Description: "Deletes one of the user's custom prompts. Built-in prompts cannot be deleted.",
		Tags:        []string{"Prompts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeletePrompt)
}

// === DTOs ===

// PromptResponse contains prompt data in API responses.
type PromptResponse struct {
	ID          string    `json:"id" doc:"Prompt ID"`
	TriggerWord string    `json:"trigger_word" doc:"Normalized trigger word"`
	PromptText  string    `json:"prompt_text" doc:"Reformatting instruction"`
	Icon        string    `json:"icon" doc:"Client icon name"`
	Color       string    `json:"color" doc:"Client color name"`
	IsBuiltIn   bool      `json:"is_built_in" doc:"Whether this is a built-in prompt"`
	IsActive    bool      `json:"is_active" doc:"Whether the prompt participates in matching"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt   time.Time `json:"updated_at" doc:"Last update timestamp"`
}

// PromptOutput wraps a single prompt response for Huma.
type PromptOutput struct {
	Body PromptResponse
}

// ListPromptsInput carries the auth header for listing prompts.
type ListPromptsInput struct {
	Authorization string `header:"Authorization"`
}

// ListPromptsResponse contains the prompts available to the user.
type ListPromptsResponse struct {
	Prompts []PromptResponse `json:"prompts" doc:"Built-in and custom prompts"`
}

// ListPromptsOutput wraps the prompt list response for Huma.
type ListPromptsOutput struct {
	Body ListPromptsResponse
}

// CreatePromptRequest is the request body for prompt creation.
type CreatePromptRequest struct {
	TriggerWord string `json:"trigger_word" doc:"Trigger word"`
	PromptText  string `json:"prompt_text" doc:"Reformatting instruction"`
	Icon        string `json:"icon,omitempty" doc:"Client icon name"`
	Color       string `json:"color,omitempty" doc:"Client color name"`
}

// CreatePromptInput wraps the create request for Huma.
type CreatePromptInput struct {
	Authorization string `header:"Authorization"`
	Body          CreatePromptRequest
}

// UpdatePromptRequest is the request body for prompt updates. Omitted
// fields are left unchanged.
type UpdatePromptRequest struct {
	TriggerWord *string `json:"trigger_word,omitempty" doc:"New trigger word"`
	PromptText  *string `json:"prompt_text,omitempty" doc:"New reformatting instruction"`
	Icon        *string `json:"icon,omitempty" doc:"New icon name"`
	Color       *string `json:"color,omitempty" doc:"New color name"`
	IsActive    *bool   `json:"is_active,omitempty" doc:"Enable or disable matching"`
}

// UpdatePromptInput wraps the update request for Huma.
type UpdatePromptInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Prompt ID"`
	Body          UpdatePromptRequest
}

// DeletePromptInput carries the prompt ID path parameter.
type DeletePromptInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Prompt ID"`
}

// === Handlers ===

func (s *Server) handleListPrompts(ctx context.Context, input *ListPromptsInput) (*ListPromptsOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	prompts, err := s.services.Prompt.ListPrompts(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]PromptResponse, len(prompts))
	for i, p := range prompts {
		resp[i] = mapPromptResponse(p)
	}

	return &ListPromptsOutput{Body: ListPromptsResponse{Prompts: resp}}, nil
}

func (s *Server) handleCreatePrompt(ctx context.Context, input *CreatePromptInput) (*PromptOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Prompt.CreatePrompt(ctx, userID, service.CreatePromptRequest{
		TriggerWord: input.Body.TriggerWord,
		PromptText:  input.Body.PromptText,
		Icon:        input.Body.Icon,
		Color:       input.Body.Color,
	})
	if err != nil {
		return nil, err
	}

	return &PromptOutput{Body: mapPromptResponse(p)}, nil
}

func (s *Server) handleUpdatePrompt(ctx context.Context, input *UpdatePromptInput) (*PromptOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Prompt.UpdatePrompt(ctx, input.ID, userID, service.UpdatePromptRequest{
		TriggerWord: input.Body.TriggerWord,
		PromptText:  input.Body.PromptText,
		Icon:        input.Body.Icon,
		Color:       input.Body.Color,
		IsActive:    input.Body.IsActive,
	})
	if err != nil {
		return nil, err
	}

	return &PromptOutput{Body: mapPromptResponse(p)}, nil
}

func (s *Server) handleDeletePrompt(ctx context.Context, input *DeletePromptInput) (*MessageOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Prompt.DeletePrompt(ctx, input.ID, userID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Prompt deleted"}}, nil
}

// === Helpers ===

func mapPromptResponse(p *domain.Prompt) PromptResponse {
	return PromptResponse{
		ID:          p.ID,
		TriggerWord: p.TriggerWord,
		PromptText:  p.PromptText,
		Icon:        p.Icon,
		Color:       p.Color,
		IsBuiltIn:   p.IsBuiltIn,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
