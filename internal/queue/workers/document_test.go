package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/audioreader/internal/models"
	"github.com/nikhilbhutani/audioreader/internal/pipeline"
	"github.com/nikhilbhutani/audioreader/internal/queue"
)

type fakeRunner struct {
	got    pipeline.Task
	status models.Status
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, task pipeline.Task) (models.Status, error) {
	f.got = task
	return f.status, f.err
}

func newTask(t *testing.T, task pipeline.Task) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(task)
	require.NoError(t, err)
	return asynq.NewTask(queue.TypeDocumentProcess, data)
}

func TestProcessTask(t *testing.T) {
	task := pipeline.Task{DocumentID: "doc-1", RunID: "run-1", UserID: "user-1", VoiceID: "Joanna"}

	testCases := []struct {
		name    string
		runErr  error
		wantErr bool
	}{
		{"ready", nil, false},
		{"superseded run is dropped", pipeline.ErrStaleRun, false},
		{"deleted document is dropped", pipeline.ErrNotFound, false},
		{"store failure surfaces", errors.New("redis down"), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{status: models.DocStatusReady, err: tc.runErr}
			w := NewDocumentWorker(runner)

			err := w.ProcessTask(context.Background(), newTask(t, task))

			assert.Equal(t, tc.wantErr, err != nil)
			assert.Equal(t, task, runner.got)
		})
	}
}

func TestProcessTaskBadPayload(t *testing.T) {
	w := NewDocumentWorker(&fakeRunner{})

	err := w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeDocumentProcess, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = w.ProcessTask(context.Background(), newTask(t, pipeline.Task{DocumentID: "doc-1"}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
