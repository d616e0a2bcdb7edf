package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/audioreader/internal/models"
	"github.com/nikhilbhutani/audioreader/internal/pipeline"
)

type Runner interface {
	Run(ctx context.Context, task pipeline.Task) (models.Status, error)
}

// DocumentWorker executes queued pipeline runs.
type DocumentWorker struct {
	runner Runner
}

func NewDocumentWorker(runner Runner) *DocumentWorker {
	return &DocumentWorker{runner: runner}
}

func (w *DocumentWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var task pipeline.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if task.DocumentID == "" || task.RunID == "" {
		return fmt.Errorf("payload missing document or run id: %w", asynq.SkipRetry)
	}

	slog.Info("processing document", "document_id", task.DocumentID, "run_id", task.RunID)

	status, err := w.runner.Run(ctx, task)
	if errors.Is(err, pipeline.ErrStaleRun) || errors.Is(err, pipeline.ErrNotFound) {
		slog.Info("dropping document task", "document_id", task.DocumentID, "reason", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	slog.Info("document processed", "document_id", task.DocumentID, "status", status)
	return nil
}
