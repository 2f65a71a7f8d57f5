package worker

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aitrainer/trainer-backend/internal/config"
	"github.com/aitrainer/trainer-backend/internal/model"
)

// PracticeSessionWriter is the remote practice_sessions table.
type PracticeSessionWriter interface {
	Upsert(ctx context.Context, rec *model.PracticeRecord) error
	BatchUpsert(ctx context.Context, recs []*model.PracticeRecord) error
}

type practiceSink struct {
	repo PracticeSessionWriter
}

func (s practiceSink) WriteBatch(ctx context.Context, batch []*model.PracticeRecord) error {
	return s.repo.BatchUpsert(ctx, batch)
}

func (s practiceSink) WriteOne(ctx context.Context, rec *model.PracticeRecord) error {
	return s.repo.Upsert(ctx, rec)
}

// NewPracticeSyncWorker mirrors queued practice progress to the remote store.
func NewPracticeSyncWorker(rdb Popper, repo PracticeSessionWriter, log zerolog.Logger) *BatchWorker[model.PracticeRecord] {
	w := newBatchWorker[model.PracticeRecord](
		rdb,
		config.WorkerKey.PersistPracticeQueue,
		practiceSink{repo: repo},
		log.With().Str("component", "practice_sync_worker").Logger(),
	)
	w.coalesce = latestPerSession
	return w
}

// latestPerSession keeps only the last queued record of each
// (user, category), in first-seen order.
func latestPerSession(batch []*model.PracticeRecord) []*model.PracticeRecord {
	type key struct{ user, category string }
	pos := make(map[key]int, len(batch))
	out := make([]*model.PracticeRecord, 0, len(batch))
	for _, rec := range batch {
		k := key{rec.UserID, rec.Category}
		if i, ok := pos[k]; ok {
			out[i] = rec
			continue
		}
		pos[k] = len(out)
		out = append(out, rec)
	}
	return out
}
