package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mapleapp/maple-server/internal/domain"
	domainerrors "github.com/mapleapp/maple-server/internal/errors"
	"github.com/mapleapp/maple-server/internal/media/audio"
	"github.com/mapleapp/maple-server/internal/sse"
	"github.com/mapleapp/maple-server/internal/store"
)

// Well-known tag naming for the per-user recordings folder.
const (
	recordingsTagValue = "recordings"
	recordingsTagLabel = "Recordings"
)

// RecordingService is the recording-on-paper adapter: voice memos are
// stored as papers of type "recording" under a lazily created per-user
// folder tag, with an append-only processing history in the payload.
type RecordingService struct {
	store       *store.Store
	tags        *TagService
	papers      *PaperService
	prompts     *PromptService
	reformatter Reformatter
	audio       *audio.Storage
	emitter     store.EventEmitter
	listLimit   int
	logger      *slog.Logger
}

// NewRecordingService creates a new recording service.
// listLimit caps ListRecordings results.
func NewRecordingService(
	st *store.Store,
	tags *TagService,
	papers *PaperService,
	prompts *PromptService,
	reformatter Reformatter,
	audioStorage *audio.Storage,
	emitter store.EventEmitter,
	listLimit int,
	logger *slog.Logger,
) *RecordingService {
	return &RecordingService{
		store:       st,
		tags:        tags,
		papers:      papers,
		prompts:     prompts,
		reformatter: reformatter,
		audio:       audioStorage,
		emitter:     emitter,
		listLimit:   listLimit,
		logger:      logger,
	}
}

// CreateRecordingRequest contains the fields for a new voice memo.
// RecordingID is caller-supplied when the client generated one offline;
// a UUID is assigned otherwise. TriggerWord overrides trigger matching
// when the transcript itself does not open with one.
type CreateRecordingRequest struct {
	RecordingID string    `json:"recording_id"`
	Transcript  string    `json:"transcript" validate:"required"`
	Duration    float64   `json:"duration" validate:"gte=0"`
	Timestamp   time.Time `json:"timestamp"`
	AudioURL    string    `json:"audio_url"`
	TriggerWord string    `json:"trigger_word"`
}

// CreateRecording processes the transcript through the prompt pipeline
// and stores the result as a recording paper with a single seeded
// processing history entry. The user's recordings folder tag is created
// on first use.
func (s *RecordingService) CreateRecording(ctx context.Context, userID string, req CreateRecordingRequest) (*domain.PaperView, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	recordingID := req.RecordingID
	if recordingID == "" {
		recordingID = uuid.NewString()
	}
	timestamp := req.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	prompts, err := s.prompts.MatchingSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	output, promptUsed, err := ProcessTranscript(ctx, s.reformatter, prompts, req.Transcript, req.TriggerWord)
	if err != nil {
		return nil, fmt.Errorf("process transcript: %w", err)
	}

	tag, err := s.recordingsTag(ctx, userID)
	if err != nil {
		return nil, err
	}

	data := domain.RecordingData{
		RecordingID:     recordingID,
		Transcript:      req.Transcript,
		Duration:        req.Duration,
		Timestamp:       timestamp,
		AudioURL:        req.AudioURL,
		AudioSyncStatus: domain.AudioSyncPending,
		ProcessingHistory: []domain.ProcessingEntry{
			{
				ProcessedAt: time.Now(),
				PromptUsed:  promptUsed,
				Output:      output,
			},
		},
	}
	payload, err := data.ToPayload()
	if err != nil {
		return nil, fmt.Errorf("encode recording payload: %w", err)
	}

	view, err := s.papers.CreatePaper(ctx, userID, CreatePaperRequest{
		TagIDs: []string{tag.ID},
		Type:   domain.PaperTypeRecording,
		Data:   payload,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("recording created",
		"paper_id", view.ID,
		"recording_id", recordingID,
		"user_id", userID,
		"trigger_word", promptUsed.TriggerWord,
	)

	return view, nil
}

// ListRecordings returns the user's recordings, newest timestamp first,
// capped at the configured limit.
func (s *RecordingService) ListRecordings(ctx context.Context, userID string) ([]*domain.PaperView, error) {
	tag, err := s.recordingsTag(ctx, userID)
	if err != nil {
		return nil, err
	}

	views, err := s.papers.ListPapersByTag(ctx, userID, tag.ID, domain.PaperTypeRecording)
	if err != nil {
		return nil, err
	}

	// Order by the recording's own timestamp, not storage time.
	sort.SliceStable(views, func(i, j int) bool {
		return recordingTimestamp(views[i]).After(recordingTimestamp(views[j]))
	})

	if s.listLimit > 0 && len(views) > s.listLimit {
		views = views[:s.listLimit]
	}

	return views, nil
}

// ReprocessRecording reruns the prompt pipeline over a recording's
// transcript and appends the result to its processing history. Only the
// creator may reprocess; shared tag grants are not sufficient.
func (s *RecordingService) ReprocessRecording(ctx context.Context, paperID, userID, triggerWord string) (*domain.PaperView, error) {
	paper, err := s.store.GetPaperByID(ctx, paperID)
	if err != nil {
		if domainerrors.Is(err, store.ErrPaperNotFound) {
			return nil, domainerrors.NotFound("recording not found")
		}
		return nil, fmt.Errorf("get paper: %w", err)
	}
	if paper.Type != domain.PaperTypeRecording {
		return nil, domainerrors.NotFound("recording not found")
	}
	if paper.CreatedBy != userID {
		return nil, domainerrors.Forbidden("only the creator can reprocess a recording")
	}

	data, err := domain.RecordingDataFromPaper(paper)
	if err != nil {
		return nil, fmt.Errorf("decode recording payload: %w", err)
	}

	prompts, err := s.prompts.MatchingSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	output, promptUsed, err := ProcessTranscript(ctx, s.reformatter, prompts, data.Transcript, triggerWord)
	if err != nil {
		return nil, fmt.Errorf("process transcript: %w", err)
	}

	entry := domain.ProcessingEntry{
		ProcessedAt: time.Now(),
		PromptUsed:  promptUsed,
		Output:      output,
	}
	data.ProcessingHistory = append(data.ProcessingHistory, entry)

	payload, err := data.ToPayload()
	if err != nil {
		return nil, fmt.Errorf("encode recording payload: %w", err)
	}
	paper.Data = payload
	paper.Touch()

	if err := s.store.UpdatePaper(ctx, paper); err != nil {
		return nil, fmt.Errorf("update paper: %w", err)
	}

	s.emitter.Emit(sse.NewRecordingProcessedEvent(userID, paper.ID, data.RecordingID, entry))

	s.logger.Info("recording reprocessed",
		"paper_id", paperID,
		"user_id", userID,
		"history_len", len(data.ProcessingHistory),
	)

	return s.papers.toView(ctx, paper)
}

// UpdateAudioStatus sets the audio sync status (and URL when given) on
// the user's recording. A recording that does not exist for this user
// is a silent no-op so upload pipelines can fire and forget.
func (s *RecordingService) UpdateAudioStatus(ctx context.Context, userID, recordingID string, status domain.AudioSyncStatus, audioURL string) error {
	if !status.Valid() {
		return domainerrors.Validationf("unknown audio sync status: %s", status)
	}

	paper, err := s.store.FindRecordingPaper(ctx, userID, recordingID)
	if err != nil {
		if domainerrors.Is(err, store.ErrPaperNotFound) {
			return nil
		}
		return fmt.Errorf("find recording: %w", err)
	}

	data, err := domain.RecordingDataFromPaper(paper)
	if err != nil {
		return fmt.Errorf("decode recording payload: %w", err)
	}
	data.AudioSyncStatus = status
	if audioURL != "" {
		data.AudioURL = audioURL
	}

	payload, err := data.ToPayload()
	if err != nil {
		return fmt.Errorf("encode recording payload: %w", err)
	}
	paper.Data = payload
	paper.Touch()

	if err := s.store.UpdatePaper(ctx, paper); err != nil {
		return fmt.Errorf("update paper: %w", err)
	}

	s.logger.Info("audio status updated",
		"recording_id", recordingID,
		"user_id", userID,
		"status", status,
	)

	return nil
}

// UploadAudio stores an audio blob for the user's recording and marks
// it uploaded. A failed write marks the recording failed instead.
func (s *RecordingService) UploadAudio(ctx context.Context, userID, recordingID string, blob []byte) error {
	if _, err := s.store.FindRecordingPaper(ctx, userID, recordingID); err != nil {
		if domainerrors.Is(err, store.ErrPaperNotFound) {
			return domainerrors.NotFound("recording not found")
		}
		return fmt.Errorf("find recording: %w", err)
	}

	if err := s.audio.Save(recordingID, blob); err != nil {
		if statusErr := s.UpdateAudioStatus(ctx, userID, recordingID, domain.AudioSyncFailed, ""); statusErr != nil {
			s.logger.Warn("failed to mark audio failed",
				"recording_id", recordingID,
				"error", statusErr,
			)
		}
		return fmt.Errorf("save audio: %w", err)
	}

	url := fmt.Sprintf("/api/v1/recordings/%s/audio", recordingID)
	return s.UpdateAudioStatus(ctx, userID, recordingID, domain.AudioSyncUploaded, url)
}

// GetAudio returns the stored audio blob for the user's recording.
func (s *RecordingService) GetAudio(ctx context.Context, userID, recordingID string) ([]byte, error) {
	if _, err := s.store.FindRecordingPaper(ctx, userID, recordingID); err != nil {
		if domainerrors.Is(err, store.ErrPaperNotFound) {
			return nil, domainerrors.NotFound("recording not found")
		}
		return nil, fmt.Errorf("find recording: %w", err)
	}

	blob, err := s.audio.Get(recordingID)
	if err != nil {
		return nil, domainerrors.NotFound("audio not found")
	}
	return blob, nil
}

func (s *RecordingService) recordingsTag(ctx context.Context, userID string) (*domain.Tag, error) {
	return s.tags.GetOrCreateNamedTag(ctx, userID, domain.TagKindFolder, recordingsTagValue, recordingsTagLabel)
}

func recordingTimestamp(view *domain.PaperView) time.Time {
	raw, ok := view.Data["timestamp"].(string)
	if !ok {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}
