package pipeline

import (
	"context"
	"log/slog"
	"time"
)

type Stage string

const (
	StageStarted   Stage = "started"
	StageExtracted Stage = "extracted"
	StageCleaned   Stage = "cleaned"
	StageReady     Stage = "ready"
	StageFailed    Stage = "failed"
)

// Event is one stage transition of a run.
type Event struct {
	DocumentID string    `json:"documentId"`
	RunID      string    `json:"runId"`
	Stage      Stage     `json:"stage"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}

// EventRecorder keeps the audit trail of runs.
type EventRecorder interface {
	Record(ctx context.Context, e Event) error
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Event) error { return nil }

func (s *Service) record(ctx context.Context, task Task, stage Stage, detail string) {
	err := s.events.Record(ctx, Event{
		DocumentID: task.DocumentID,
		RunID:      task.RunID,
		Stage:      stage,
		Detail:     detail,
		At:         s.now().UTC(),
	})
	if err != nil {
		slog.Warn("failed to record pipeline event", "document_id", task.DocumentID, "stage", stage, "error", err)
	}
}
