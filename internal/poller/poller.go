package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/nikhilbhutani/audioreader/internal/models"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 60
)

// StatusFetcher queries the status endpoint for a document.
type StatusFetcher interface {
	Status(ctx context.Context, documentID string) (*models.StatusResponse, error)
}

// TimeoutError means the document was still processing after the last attempt.
type TimeoutError struct {
	DocumentID string
	Attempts   int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Processing timeout: document %s not finished after %d status checks", e.DocumentID, e.Attempts)
}

// FailedError carries the error message the pipeline persisted.
type FailedError struct {
	DocumentID string
	Message    string
}

func (e *FailedError) Error() string {
	return e.Message
}

type Poller struct {
	fetcher     StatusFetcher
	interval    time.Duration
	maxAttempts int
	onProgress  func(progress int)
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

func WithMaxAttempts(n int) Option {
	return func(p *Poller) { p.maxAttempts = n }
}

// WithProgress receives a percentage after every status query.
func WithProgress(fn func(progress int)) Option {
	return func(p *Poller) { p.onProgress = fn }
}

func New(fetcher StatusFetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:     fetcher,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		onProgress:  func(int) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Progress is the estimate shown while a document is still processing:
// it starts at 30 and approaches 90 as attempts run out.
func Progress(attempts, maxAttempts int) int {
	if maxAttempts <= 0 {
		return 90
	}
	return min(30+attempts*60/maxAttempts, 90)
}

// Wait polls until the document is ready or failed. It issues at most
// maxAttempts queries and returns *TimeoutError after the last one.
func (p *Poller) Wait(ctx context.Context, documentID string) (*models.StatusResponse, error) {
	for attempts := 0; attempts < p.maxAttempts; attempts++ {
		status, err := p.fetcher.Status(ctx, documentID)
		if err != nil {
			return nil, fmt.Errorf("poll status: %w", err)
		}

		switch status.Status {
		case models.DocStatusReady:
			p.onProgress(100)
			return status, nil
		case models.DocStatusError:
			msg := status.Error
			if msg == "" {
				msg = "Processing failed"
			}
			return status, &FailedError{DocumentID: documentID, Message: msg}
		}

		p.onProgress(Progress(attempts, p.maxAttempts))

		if attempts+1 == p.maxAttempts {
			break
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, &TimeoutError{DocumentID: documentID, Attempts: p.maxAttempts}
}
