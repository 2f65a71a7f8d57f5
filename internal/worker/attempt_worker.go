package worker

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aitrainer/trainer-backend/internal/config"
	"github.com/aitrainer/trainer-backend/internal/model"
)

// AttemptWriter is the remote user_attempts table.
type AttemptWriter interface {
	InsertBatch(ctx context.Context, batch []*model.PracticeAttempt) error
	Insert(ctx context.Context, a *model.PracticeAttempt) error
}

type attemptSink struct {
	repo AttemptWriter
}

func (s attemptSink) WriteBatch(ctx context.Context, batch []*model.PracticeAttempt) error {
	return s.repo.InsertBatch(ctx, batch)
}

func (s attemptSink) WriteOne(ctx context.Context, a *model.PracticeAttempt) error {
	return s.repo.Insert(ctx, a)
}

// NewAttemptWorker persists queued practice attempts, COPYing them in batches.
func NewAttemptWorker(rdb Popper, repo AttemptWriter, log zerolog.Logger) *BatchWorker[model.PracticeAttempt] {
	return newBatchWorker[model.PracticeAttempt](
		rdb,
		config.WorkerKey.PersistAttemptsQueue,
		attemptSink{repo: repo},
		log.With().Str("component", "attempt_worker").Logger(),
	)
}
