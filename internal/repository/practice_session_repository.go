package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aitrainer/trainer-backend/internal/model"
)

const upsertPracticeSQL = `INSERT INTO practice_sessions (user_id, category, current_question_id, status, state, updated_at)
	 VALUES ($1, $2, $3, $4, $5, $6)
	 ON CONFLICT (user_id, category) DO UPDATE SET
	   current_question_id = EXCLUDED.current_question_id,
	   status = EXCLUDED.status,
	   state = EXCLUDED.state,
	   updated_at = EXCLUDED.updated_at`

// PracticeSessionRepository mirrors practice sessions keyed by (user, category).
type PracticeSessionRepository struct {
	pool *pgxpool.Pool
}

// NewPracticeSessionRepository creates a new PracticeSessionRepository.
func NewPracticeSessionRepository(pool *pgxpool.Pool) *PracticeSessionRepository {
	return &PracticeSessionRepository{pool: pool}
}

// Get retrieves the mirrored session.
func (r *PracticeSessionRepository) Get(ctx context.Context, userID, category string) (*model.PracticeRecord, error) {
	rec := &model.PracticeRecord{}
	var state []byte
	err := r.pool.QueryRow(ctx,
		`SELECT user_id::text, category, current_question_id, status, state, updated_at
		 FROM practice_sessions WHERE user_id = $1 AND category = $2`,
		userID, category,
	).Scan(&rec.UserID, &rec.Category, &rec.CurrentQuestionID, &rec.Status, &state, &rec.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if len(state) > 0 && string(state) != "null" {
		rec.State = &model.ProgressState{}
		if err := json.Unmarshal(state, rec.State); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
	}
	return rec, nil
}

func practiceArgs(rec *model.PracticeRecord) ([]any, error) {
	state, err := json.Marshal(rec.State)
	if err != nil {
		return nil, err
	}
	return []any{rec.UserID, rec.Category, rec.CurrentQuestionID, rec.Status, state, rec.UpdatedAt}, nil
}

// Upsert writes one session.
func (r *PracticeSessionRepository) Upsert(ctx context.Context, rec *model.PracticeRecord) error {
	args, err := practiceArgs(rec)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, upsertPracticeSQL, args...)
	return err
}

// BatchUpsert writes sessions in one round trip. Later entries for the same
// key win.
func (r *PracticeSessionRepository) BatchUpsert(ctx context.Context, recs []*model.PracticeRecord) error {
	batch := &pgx.Batch{}
	for _, rec := range recs {
		args, err := practiceArgs(rec)
		if err != nil {
			return err
		}
		batch.Queue(upsertPracticeSQL, args...)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// Delete removes the mirrored session.
func (r *PracticeSessionRepository) Delete(ctx context.Context, userID, category string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM practice_sessions WHERE user_id = $1 AND category = $2`, userID, category)
	return err
}
