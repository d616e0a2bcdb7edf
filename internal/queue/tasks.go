package queue

import (
	"time"

	"github.com/hibiken/asynq"
)

const TypeDocumentProcess = "document:process"

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// documentProcessOpts: a run is never retried by the queue. A failed run
// has already persisted its error and the user restarts it explicitly.
func documentProcessOpts() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(0),
		asynq.Timeout(10 * time.Minute),
	}
}
