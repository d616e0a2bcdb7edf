package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/audioreader/internal/models"
	"github.com/nikhilbhutani/audioreader/internal/speech"
	"github.com/nikhilbhutani/audioreader/internal/store"
)

var (
	ErrNotFound  = store.ErrNotFound
	ErrForbidden = errors.New("document belongs to another user")
	// ErrStaleRun means a newer processing run has replaced the one being executed.
	ErrStaleRun = store.ErrStaleRun
)

type Store interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	StartRun(ctx context.Context, id, ownerID, runID string, fields map[string]string) error
	UpdateRun(ctx context.Context, id, runID string, fields map[string]string) error
}

type Extractor interface {
	Extract(ctx context.Context, fileURL, mimeType string) (string, error)
}

type Cleaner interface {
	Clean(ctx context.Context, raw string) string
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, documentID, voiceID string) (*speech.Result, error)
}

// Dispatcher hands a task to whatever executes it outside the request.
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task) error
}

// ProcessRequest is a caller's request to (re)process a document.
type ProcessRequest struct {
	DocumentID string
	UserID     string
	VoiceID    string
}

// Task is one detached processing run.
type Task struct {
	DocumentID string `json:"document_id"`
	RunID      string `json:"run_id"`
	UserID     string `json:"user_id"`
	VoiceID    string `json:"voice_id"`
}

type Deps struct {
	Store       Store
	Extractor   Extractor
	Cleaner     Cleaner
	Synthesizer Synthesizer
	Events      EventRecorder // optional
}

type Service struct {
	store        Store
	extractor    Extractor
	cleaner      Cleaner
	synth        Synthesizer
	events       EventRecorder
	dispatcher   Dispatcher
	defaultVoice string
	now          func() time.Time
}

func NewService(deps Deps, defaultVoice string) *Service {
	events := deps.Events
	if events == nil {
		events = nopRecorder{}
	}
	if defaultVoice == "" {
		defaultVoice = speech.DefaultVoice
	}
	return &Service{
		store:        deps.Store,
		extractor:    deps.Extractor,
		cleaner:      deps.Cleaner,
		synth:        deps.Synthesizer,
		events:       events,
		defaultVoice: defaultVoice,
		now:          time.Now,
	}
}

// SetDispatcher must be called before Start.
func (s *Service) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

func (s *Service) timestamp() string {
	return models.Timestamp(s.now())
}

// Start checks ownership, marks the document processing under a fresh run id
// and dispatches the run. Any earlier run's outcome is cleared, so ready and
// errored documents can be reprocessed.
func (s *Service) Start(ctx context.Context, req ProcessRequest) error {
	doc, err := s.store.GetDocument(ctx, req.DocumentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("document %s: %w", req.DocumentID, ErrNotFound)
		}
		return fmt.Errorf("get document: %w", err)
	}
	if doc.UserID != req.UserID {
		return fmt.Errorf("document %s: %w", req.DocumentID, ErrForbidden)
	}

	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = s.defaultVoice
	}

	task := Task{
		DocumentID: doc.ID,
		RunID:      uuid.NewString(),
		UserID:     req.UserID,
		VoiceID:    voiceID,
	}

	err = s.store.StartRun(ctx, doc.ID, req.UserID, task.RunID, map[string]string{
		models.FieldStatus:              string(models.DocStatusProcessing),
		models.FieldProcessingStartedAt: s.timestamp(),
		models.FieldVoiceID:             voiceID,
	})
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("document %s: %w", req.DocumentID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	// The document is now processing; a client disconnect must not leave it
	// there without a dispatched run or a persisted error.
	ctx = context.WithoutCancel(ctx)
	s.record(ctx, task, StageStarted, "")

	if err := s.dispatcher.Dispatch(ctx, task); err != nil {
		dispatchErr := fmt.Errorf("dispatch pipeline: %w", err)
		if _, ferr := s.fail(ctx, task, dispatchErr); ferr != nil {
			slog.Error("failed to persist dispatch failure", "document_id", doc.ID, "error", ferr)
		}
		return dispatchErr
	}

	slog.Info("document processing started", "document_id", doc.ID, "run_id", task.RunID, "voice_id", voiceID)
	return nil
}

// Run executes extraction, cleanup and synthesis in order. Stage results
// are carried in memory; store writes only publish progress. Provider
// failures end as a persisted error status rather than a returned error.
func (s *Service) Run(ctx context.Context, task Task) (models.Status, error) {
	log := slog.With("document_id", task.DocumentID, "run_id", task.RunID)

	doc, err := s.store.GetDocument(ctx, task.DocumentID)
	if err != nil {
		return "", fmt.Errorf("load document: %w", err)
	}
	if doc.RunID != task.RunID {
		log.Info("skipping superseded run", "current_run_id", doc.RunID)
		return "", ErrStaleRun
	}

	text, err := s.extractor.Extract(ctx, doc.FileURL, doc.FileType)
	if err != nil {
		log.Warn("extraction failed", "error", err)
		return s.fail(ctx, task, err)
	}
	if err := s.update(ctx, task, map[string]string{
		models.FieldExtractedText: text,
		models.FieldExtractedAt:   s.timestamp(),
	}); err != nil {
		return "", err
	}
	s.record(ctx, task, StageExtracted, "")
	log.Info("text extracted", "chars", len(text))

	cleaned := s.cleaner.Clean(ctx, text)
	if err := s.update(ctx, task, map[string]string{
		models.FieldCleanedText: cleaned,
		models.FieldCleanedAt:   s.timestamp(),
	}); err != nil {
		return "", err
	}
	s.record(ctx, task, StageCleaned, "")
	log.Info("text cleaned", "chars", len(cleaned))

	res, err := s.synth.Synthesize(ctx, cleaned, task.DocumentID, task.VoiceID)
	if err != nil {
		log.Warn("synthesis failed", "error", err)
		return s.fail(ctx, task, err)
	}

	err = s.store.UpdateRun(ctx, task.DocumentID, task.RunID, map[string]string{
		models.FieldAudioURL:    res.AudioURL,
		models.FieldSpeechMarks: models.EncodeSpeechMarks(res.SpeechMarks),
		models.FieldStatus:      string(models.DocStatusReady),
		models.FieldProcessedAt: s.timestamp(),
	})
	if err != nil {
		return "", fmt.Errorf("persist ready: %w", err)
	}
	s.record(ctx, task, StageReady, string(res.Provider))

	log.Info("document ready", "provider", res.Provider, "speech_marks", len(res.SpeechMarks))
	return models.DocStatusReady, nil
}

// update publishes intermediate results. Only a stale run aborts; other
// store errors are logged since the run continues from memory.
func (s *Service) update(ctx context.Context, task Task, fields map[string]string) error {
	err := s.store.UpdateRun(ctx, task.DocumentID, task.RunID, fields)
	if errors.Is(err, store.ErrStaleRun) {
		slog.Info("run superseded mid-flight", "document_id", task.DocumentID, "run_id", task.RunID)
		return ErrStaleRun
	}
	if err != nil {
		slog.Error("failed to persist stage result", "document_id", task.DocumentID, "run_id", task.RunID, "error", err)
	}
	return nil
}

func (s *Service) fail(ctx context.Context, task Task, cause error) (models.Status, error) {
	err := s.store.UpdateRun(ctx, task.DocumentID, task.RunID, map[string]string{
		models.FieldStatus:  string(models.DocStatusError),
		models.FieldError:   cause.Error(),
		models.FieldErrorAt: s.timestamp(),
	})
	if err != nil {
		if errors.Is(err, store.ErrStaleRun) {
			return "", ErrStaleRun
		}
		return models.DocStatusError, fmt.Errorf("persist failure: %w", err)
	}
	s.record(ctx, task, StageFailed, cause.Error())
	return models.DocStatusError, nil
}
