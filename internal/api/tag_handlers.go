package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/mapleapp/maple-server/internal/domain"
	domainerrors "github.com/mapleapp/maple-server/internal/errors"
	"github.com/mapleapp/maple-server/internal/service"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns all tags the user owns or holds a grant on. A default folder tag is created for first-time users.",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "createTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags",
		Summary:     "Create tag",
		Description: "Creates a tag owned by the authenticated user",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Get tag",
		Description: "Returns a single tag if the user holds a read grant",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTag",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Update tag",
		Description: "Updates a tag's kind or value. Requires a write grant.",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "addUserToTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/{id}/users",
		Summary:     "Share tag with user",
		Description: "Grants another user access to the tag. Requires a write grant.",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAddUserToTag)
}

// === DTOs ===

// GrantResponse is a single user grant on a tag.
type GrantResponse struct {
	UserID string `json:"user_id" doc:"Granted user ID"`
	Level  string `json:"access_level" doc:"Access level (read or write)"`
}

// TagResponse contains tag data in API responses.
type TagResponse struct {
	ID          string          `json:"id" doc:"Tag ID"`
	OwnerUserID string          `json:"owner_user_id" doc:"Owning user ID"`
	Kind        string          `json:"kind" doc:"Tag kind (folder, itemType, genre, custom, system)"`
	Value       string          `json:"value" doc:"Tag value"`
	Label       string          `json:"label,omitempty" doc:"Display label"`
	SharedWith  []GrantResponse `json:"shared_with" doc:"Access grants"`
	IsPublic    bool            `json:"is_public" doc:"Public flag (informational only)"`
	CreatedAt   time.Time       `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt   time.Time       `json:"updated_at" doc:"Last update timestamp"`
}

// TagOutput wraps a single tag response for Huma.
type TagOutput struct {
	Body TagResponse
}

// ListTagsInput carries the auth header for listing tags.
type ListTagsInput struct {
	Authorization string `header:"Authorization"`
}

// ListTagsResponse contains the user's tags.
type ListTagsResponse struct {
	Tags []TagResponse `json:"tags" doc:"Tags the user can access"`
}

// ListTagsOutput wraps the tag list response for Huma.
type ListTagsOutput struct {
	Body ListTagsResponse
}

// CreateTagRequest is the request body for tag creation.
type CreateTagRequest struct {
	Kind  string `json:"kind" doc:"Tag kind (folder, itemType, genre, custom, system)"`
	Value string `json:"value" doc:"Tag value"`
	Label string `json:"label,omitempty" doc:"Display label"`
}

// CreateTagInput wraps the create request for Huma.
type CreateTagInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateTagRequest
}

// GetTagInput carries the tag ID path parameter.
type GetTagInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tag ID"`
}

// UpdateTagRequest is the request body for tag updates. Omitted fields
// are left unchanged.
type UpdateTagRequest struct {
	Kind  *string `json:"kind,omitempty" doc:"New tag kind"`
	Value *string `json:"value,omitempty" doc:"New tag value"`
}

// UpdateTagInput wraps the update request for Huma.
type UpdateTagInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tag ID"`
	Body          UpdateTagRequest
}

// AddUserToTagRequest is the request body for sharing a tag.
type AddUserToTagRequest struct {
	UserID string `json:"user_id" doc:"User to grant access to"`
	Level  string `json:"access_level" doc:"Access level (read or write)"`
}

// AddUserToTagInput wraps the share request for Huma.
type AddUserToTagInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tag ID"`
	Body          AddUserToTagRequest
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, input *ListTagsInput) (*ListTagsOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	tags, err := s.services.Tag.ListUserTags(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]TagResponse, len(tags))
	for i, t := range tags {
		resp[i] = mapTagResponse(t)
	}

	return &ListTagsOutput{Body: ListTagsResponse{Tags: resp}}, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	t, err := s.services.Tag.CreateTag(ctx, userID, service.CreateTagRequest{
		Kind:  domain.TagKind(input.Body.Kind),
		Value: input.Body.Value,
		Label: input.Body.Label,
	})
	if err != nil {
		return nil, err
	}

	return &TagOutput{Body: mapTagResponse(t)}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *GetTagInput) (*TagOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	t, err := s.services.Tag.GetTag(ctx, input.ID, userID)
	if err != nil {
		return nil, err
	}

	return &TagOutput{Body: mapTagResponse(t)}, nil
}

func (s *Server) handleUpdateTag(ctx context.Context, input *UpdateTagInput) (*TagOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	req := service.UpdateTagRequest{Value: input.Body.Value}
	if input.Body.Kind != nil {
		kind := domain.TagKind(*input.Body.Kind)
		req.Kind = &kind
	}

	t, err := s.services.Tag.UpdateTag(ctx, input.ID, userID, req)
	if err != nil {
		return nil, err
	}

	return &TagOutput{Body: mapTagResponse(t)}, nil
}

func (s *Server) handleAddUserToTag(ctx context.Context, input *AddUserToTagInput) (*TagOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	level, ok := domain.ParseAccessLevel(input.Body.Level)
	if !ok {
		return nil, domainerrors.Validationf("unknown access level %q", input.Body.Level)
	}

	t, err := s.services.Tag.AddUserToTag(ctx, input.ID, input.Body.UserID, level, userID)
	if err != nil {
		return nil, err
	}

	return &TagOutput{Body: mapTagResponse(t)}, nil
}

// === Helpers ===

func mapTagResponse(t *domain.Tag) TagResponse {
	grants := make([]GrantResponse, len(t.Sharing.SharedWith))
	for i, g := range t.Sharing.SharedWith {
		grants[i] = GrantResponse{UserID: g.UserID, Level: g.Level.String()}
	}

	return TagResponse{
		ID:          t.ID,
		OwnerUserID: t.OwnerUserID,
		Kind:        string(t.Kind),
		Value:       t.Value,
		Label:       t.Label,
		SharedWith:  grants,
		IsPublic:    t.Sharing.IsPublic,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
