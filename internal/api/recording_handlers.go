package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/mapleapp/maple-server/internal/domain"
	"github.com/mapleapp/maple-server/internal/service"
)

func (s *Server) registerRecordingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createRecording",
		Method:      http.MethodPost,
		Path:        "/api/v1/recordings",
		Summary:     "Create recording",
		Description: "Stores a voice memo transcript, runs it through the prompt pipeline, and saves it as a recording paper",
		Tags:        []string{"Recordings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateRecording)

	huma.Register(s.api, huma.Operation{
		OperationID: "listRecordings",
		Method:      http.MethodGet,
		Path:        "/api/v1/recordings",
		Summary:     "List recordings",
		Description: "Returns the user's recordings, newest recording timestamp first",
		Tags:        []string{"Recordings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListRecordings)

	huma.Register(s.api, huma.Operation{
		OperationID: "reprocessRecording",
		Method:      http.MethodPost,
		Path:        "/api/v1/recordings/{id}/reprocess",
		Summary:     "Reprocess recording",
		Description: "Re-runs the prompt pipeline on a recording's transcript and appends the result to its processing history. Only the recording's creator may reprocess.",
		Tags:        []string{"Recordings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReprocessRecording)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateAudioStatus",
		Method:      http.MethodPut,
		Path:        "/api/v1/recordings/{recordingId}/audio-status",
		Summary:     "Update audio sync status",
		Description: "Reports the audio upload pipeline's progress for a recording. Unknown recordings are ignored.",
		Tags:        []string{"Recordings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateAudioStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "uploadRecordingAudio",
		Method:      http.MethodPost,
		Path:        "/api/v1/recordings/{recordingId}/audio",
		Summary:     "Upload recording audio",
		Description: "Stores the audio blob for a recording and marks it uploaded",
		Tags:        []string{"Recordings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUploadRecordingAudio)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecordingAudio",
		Method:      http.MethodGet,
		Path:        "/api/v1/recordings/{recordingId}/audio",
		Summary:     "Download recording audio",
		Description: "Returns the stored audio blob for a recording",
		Tags:        []string{"Recordings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetRecordingAudio)
}

// === DTOs ===

// CreateRecordingRequest is the request body for recording creation.
type CreateRecordingRequest struct {
	RecordingID string    `json:"recording_id,omitempty" doc:"Client-generated recording ID, assigned if omitted"`
	Transcript  string    `json:"transcript" doc:"Raw transcript text"`
	Duration    float64   `json:"duration,omitempty" doc:"Recording length in seconds"`
	Timestamp   time.Time `json:"timestamp,omitempty" doc:"When the memo was recorded, defaults to now"`
	AudioURL    string    `json:"audio_url,omitempty" doc:"Externally hosted audio URL"`
	TriggerWord string    `json:"trigger_word,omitempty" doc:"Explicit trigger, overrides transcript matching"`
}

// CreateRecordingInput wraps the create request for Huma.
type CreateRecordingInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateRecordingRequest
}

// ListRecordingsInput carries the auth header for listing recordings.
type ListRecordingsInput struct {
	Authorization string `header:"Authorization"`
}

// ReprocessRecordingRequest is the request body for reprocessing.
type ReprocessRecordingRequest struct {
	TriggerWord string `json:"trigger_word,omitempty" doc:"Explicit trigger to apply, transcript matching is used if omitted"`
}

// ReprocessRecordingInput wraps the reprocess request for Huma.
type ReprocessRecordingInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Paper ID of the recording"`
	Body          ReprocessRecordingRequest
}

// UpdateAudioStatusRequest is the request body for audio status updates.
type UpdateAudioStatusRequest struct {
	Status   string `json:"status" doc:"Audio sync status (pending, uploaded, failed)"`
	AudioURL string `json:"audio_url,omitempty" doc:"Where the audio landed"`
}

// UpdateAudioStatusInput wraps the status update for Huma.
type UpdateAudioStatusInput struct {
	Authorization string `header:"Authorization"`
	RecordingID   string `path:"recordingId" doc:"Recording ID"`
	Body          UpdateAudioStatusRequest
}

// UploadRecordingAudioInput carries the raw audio blob for Huma.
type UploadRecordingAudioInput struct {
	Authorization string `header:"Authorization"`
	RecordingID   string `path:"recordingId" doc:"Recording ID"`
	RawBody       []byte
}

// RecordingAudioInput carries the recording ID for audio download.
type RecordingAudioInput struct {
	Authorization string `header:"Authorization"`
	RecordingID   string `path:"recordingId" doc:"Recording ID"`
}

// RecordingAudioOutput returns the raw audio blob.
type RecordingAudioOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// === Handlers ===

func (s *Server) handleCreateRecording(ctx context.Context, input *CreateRecordingInput) (*PaperOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	view, err := s.services.Recording.CreateRecording(ctx, userID, service.CreateRecordingRequest{
		RecordingID: input.Body.RecordingID,
		Transcript:  input.Body.Transcript,
		Duration:    input.Body.Duration,
		Timestamp:   input.Body.Timestamp,
		AudioURL:    input.Body.AudioURL,
		TriggerWord: input.Body.TriggerWord,
	})
	if err != nil {
		return nil, err
	}

	return &PaperOutput{Body: mapPaperResponse(view)}, nil
}

func (s *Server) handleListRecordings(ctx context.Context, input *ListRecordingsInput) (*ListPapersOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	views, err := s.services.Recording.ListRecordings(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ListPapersOutput{Body: ListPapersResponse{Papers: mapPaperResponses(views)}}, nil
}

func (s *Server) handleReprocessRecording(ctx context.Context, input *ReprocessRecordingInput) (*PaperOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	view, err := s.services.Recording.ReprocessRecording(ctx, input.ID, userID, input.Body.TriggerWord)
	if err != nil {
		return nil, err
	}

	return &PaperOutput{Body: mapPaperResponse(view)}, nil
}

func (s *Server) handleUpdateAudioStatus(ctx context.Context, input *UpdateAudioStatusInput) (*MessageOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	status := domain.AudioSyncStatus(input.Body.Status)
	if err := s.services.Recording.UpdateAudioStatus(ctx, userID, input.RecordingID, status, input.Body.AudioURL); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Audio status updated"}}, nil
}

func (s *Server) handleUploadRecordingAudio(ctx context.Context, input *UploadRecordingAudioInput) (*MessageOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	if len(input.RawBody) == 0 {
		return nil, huma.Error400BadRequest("Audio body is empty")
	}

	if err := s.services.Recording.UploadAudio(ctx, userID, input.RecordingID, input.RawBody); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Audio uploaded"}}, nil
}

func (s *Server) handleGetRecordingAudio(ctx context.Context, input *RecordingAudioInput) (*RecordingAudioOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	blob, err := s.services.Recording.GetAudio(ctx, userID, input.RecordingID)
	if err != nil {
		return nil, err
	}

	return &RecordingAudioOutput{
		ContentType: "audio/mp4",
		Body:        blob,
	}, nil
}
