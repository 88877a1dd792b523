package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/mapleapp/maple-server/internal/domain"
	"github.com/mapleapp/maple-server/internal/service"
)

func (s *Server) registerPaperRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createPaper",
		Method:      http.MethodPost,
		Path:        "/api/v1/papers",
		Summary:     "Create paper",
		Description: "Creates a document. Requires a write grant on the first listed tag.",
		Tags:        []string{"Papers"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreatePaper)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPapers",
		Method:      http.MethodGet,
		Path:        "/api/v1/papers",
		Summary:     "List papers",
		Description: "Returns papers the user owns plus papers shared with them through tag grants, newest first",
		Tags:        []string{"Papers"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListPapers)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPaper",
		Method:      http.MethodGet,
		Path:        "/api/v1/papers/{id}",
		Summary:     "Get paper",
		Description: "Returns a single paper if the user owns it or holds a grant on one of its tags",
		Tags:        []string{"Papers"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetPaper)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePaper",
		Method:      http.MethodPatch,
		Path:        "/api/v1/papers/{id}",
		Summary:     "Update paper",
		Description: "Partially updates a paper. Data is merged key by key; tags replace the stored list when supplied.",
		Tags:        []string{"Papers"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdatePaper)

	huma.Register(s.api, huma.Operation{
		OperationID: "deletePaper",
		Method:      http.MethodDelete,
		Path:        "/api/v1/papers/{id}",
		Summary:     "Delete paper",
		Description: "Deletes a paper. Only the creator can delete, regardless of tag grants.",
		Tags:        []string{"Papers"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeletePaper)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPapersByTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}/papers",
		Summary:     "List papers by tag",
		Description: "Returns all papers carrying the tag. Requires a read grant on the tag.",
		Tags:        []string{"Papers"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListPapersByTag)
}

// === DTOs ===

// PaperResponse contains paper data with resolved tags in API responses.
type PaperResponse struct {
	ID        string         `json:"id" doc:"Paper ID"`
	Tags      []TagResponse  `json:"tags" doc:"Resolved tag objects"`
	Type      string         `json:"type" doc:"Paper type discriminator"`
	Data      map[string]any `json:"data" doc:"Opaque document payload"`
	CreatedBy string         `json:"created_by" doc:"Creating user ID"`
	CreatedAt time.Time      `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt time.Time      `json:"updated_at" doc:"Last update timestamp"`
}

// PaperOutput wraps a single paper response for Huma.
type PaperOutput struct {
	Body PaperResponse
}

// ListPapersResponse contains a list of papers.
type ListPapersResponse struct {
	Papers []PaperResponse `json:"papers" doc:"Accessible papers"`
}

// ListPapersOutput wraps the paper list response for Huma.
type ListPapersOutput struct {
	Body ListPapersResponse
}

// CreatePaperRequest is the request body for paper creation.
type CreatePaperRequest struct {
	Tags []string       `json:"tags" doc:"Tag IDs, first tag gates creation"`
	Type string         `json:"type" doc:"Paper type discriminator"`
	Data map[string]any `json:"data" doc:"Opaque document payload"`
}

// CreatePaperInput wraps the create request for Huma.
type CreatePaperInput struct {
	Authorization string `header:"Authorization"`
	Body          CreatePaperRequest
}

// ListPapersInput carries the optional type filter.
type ListPapersInput struct {
	Authorization string `header:"Authorization"`
	Type          string `query:"type" doc:"Filter by paper type"`
}

// GetPaperInput carries the paper ID path parameter.
type GetPaperInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Paper ID"`
}

// UpdatePaperRequest is the request body for paper updates.
type UpdatePaperRequest struct {
	Tags []string       `json:"tags,omitempty" doc:"Replacement tag IDs"`
	Data map[string]any `json:"data,omitempty" doc:"Fields to merge into the payload"`
}

// UpdatePaperInput wraps the update request for Huma.
type UpdatePaperInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Paper ID"`
	Body          UpdatePaperRequest
}

// ListPapersByTagInput carries the tag ID and optional type filter.
type ListPapersByTagInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tag ID"`
	Type          string `query:"type" doc:"Filter by paper type"`
}

// === Handlers ===

func (s *Server) handleCreatePaper(ctx context.Context, input *CreatePaperInput) (*PaperOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	view, err := s.services.Paper.CreatePaper(ctx, userID, service.CreatePaperRequest{
		TagIDs: input.Body.Tags,
		Type:   input.Body.Type,
		Data:   input.Body.Data,
	})
	if err != nil {
		return nil, err
	}

	return &PaperOutput{Body: mapPaperResponse(view)}, nil
}

func (s *Server) handleListPapers(ctx context.Context, input *ListPapersInput) (*ListPapersOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	views, err := s.services.Paper.ListUserPapers(ctx, userID, input.Type)
	if err != nil {
		return nil, err
	}

	return &ListPapersOutput{Body: ListPapersResponse{Papers: mapPaperResponses(views)}}, nil
}

func (s *Server) handleGetPaper(ctx context.Context, input *GetPaperInput) (*PaperOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	view, err := s.services.Paper.GetPaper(ctx, input.ID, userID)
	if err != nil {
		return nil, err
	}

	return &PaperOutput{Body: mapPaperResponse(view)}, nil
}

func (s *Server) handleUpdatePaper(ctx context.Context, input *UpdatePaperInput) (*PaperOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	view, err := s.services.Paper.UpdatePaper(ctx, input.ID, userID, service.UpdatePaperRequest{
		TagIDs: input.Body.Tags,
		Data:   input.Body.Data,
	})
	if err != nil {
		return nil, err
	}

	return &PaperOutput{Body: mapPaperResponse(view)}, nil
}

func (s *Server) handleDeletePaper(ctx context.Context, input *GetPaperInput) (*MessageOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Paper.DeletePaper(ctx, input.ID, userID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Paper deleted"}}, nil
}

func (s *Server) handleListPapersByTag(ctx context.Context, input *ListPapersByTagInput) (*ListPapersOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	views, err := s.services.Paper.ListPapersByTag(ctx, userID, input.ID, input.Type)
	if err != nil {
		return nil, err
	}

	return &ListPapersOutput{Body: ListPapersResponse{Papers: mapPaperResponses(views)}}, nil
}

// === Helpers ===

func mapPaperResponse(view *domain.PaperView) PaperResponse {
	tags := make([]TagResponse, len(view.Tags))
	for i := range view.Tags {
		tags[i] = mapTagResponse(&view.Tags[i])
	}

	return PaperResponse{
		ID:        view.ID,
		Tags:      tags,
		Type:      view.Type,
		Data:      view.Data,
		CreatedBy: view.CreatedBy,
		CreatedAt: view.CreatedAt,
		UpdatedAt: view.UpdatedAt,
	}
}

func mapPaperResponses(views []*domain.PaperView) []PaperResponse {
	resp := make([]PaperResponse, len(views))
	for i, v := range views {
		resp[i] = mapPaperResponse(v)
	}
	return resp
}
