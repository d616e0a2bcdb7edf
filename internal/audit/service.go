package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nikhilbhutani/audioreader/internal/pipeline"
)

// DB is the subset of *pgxpool.Pool the audit trail uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Service stores pipeline stage events in Postgres.
type Service struct {
	db DB
}

func NewService(db DB) *Service {
	return &Service{db: db}
}

func (s *Service) Record(ctx context.Context, e pipeline.Event) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO pipeline_events (document_id, run_id, stage, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.DocumentID, e.RunID, string(e.Stage), e.Detail, e.At,
	)
	if err != nil {
		return fmt.Errorf("insert pipeline event: %w", err)
	}
	return nil
}

// Events returns a document's events, oldest first, at most limit of them.
func (s *Service) Events(ctx context.Context, documentID string, limit int) ([]pipeline.Event, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(ctx,
		`SELECT document_id, run_id, stage, detail, created_at
		 FROM pipeline_events WHERE document_id = $1
		 ORDER BY created_at ASC, id ASC LIMIT $2`,
		documentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pipeline events: %w", err)
	}
	defer rows.Close()

	events := []pipeline.Event{}
	for rows.Next() {
		var e pipeline.Event
		var stage string
		if err := rows.Scan(&e.DocumentID, &e.RunID, &stage, &e.Detail, &e.At); err != nil {
			return nil, fmt.Errorf("scan pipeline event: %w", err)
		}
		e.Stage = pipeline.Stage(stage)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipeline events: %w", err)
	}
	return events, nil
}
