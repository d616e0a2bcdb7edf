package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/audioreader/internal/pipeline"
)

type execRecorder struct {
	sql  string
	args []any
	err  error
}

func (r *execRecorder) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.sql = sql
	r.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), r.err
}

func (r *execRecorder) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func TestRecord(t *testing.T) {
	db := &execRecorder{}
	svc := NewService(db)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	err := svc.Record(context.Background(), pipeline.Event{
		DocumentID: "doc-1",
		RunID:      "run-1",
		Stage:      pipeline.StageFailed,
		Detail:     "No text could be extracted from the document",
		At:         at,
	})

	require.NoError(t, err)
	assert.Contains(t, db.sql, "INSERT INTO pipeline_events")
	assert.Equal(t, []any{"doc-1", "run-1", "failed", "No text could be extracted from the document", at}, db.args)
}

func TestRecordError(t *testing.T) {
	svc := NewService(&execRecorder{err: errors.New("connection refused")})
	err := svc.Record(context.Background(), pipeline.Event{DocumentID: "doc-1"})
	assert.ErrorContains(t, err, "insert pipeline event")
}

func TestEventsQueryError(t *testing.T) {
	svc := NewService(&execRecorder{})
	_, err := svc.Events(context.Background(), "doc-1", 0)
	assert.ErrorContains(t, err, "query pipeline events")
}
