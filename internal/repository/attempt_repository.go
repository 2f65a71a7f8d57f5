package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aitrainer/trainer-backend/internal/model"
)

// ModePractice marks user_attempts rows logged from practice sessions.
const ModePractice = "practice"

// AttemptRepository appends practice attempts to user_attempts.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func attemptRow(a *model.PracticeAttempt) ([]any, error) {
	answer, err := json.Marshal(a.Answer)
	if err != nil {
		return nil, err
	}
	return []any{a.UserID, a.QuestionID, ModePractice, a.CategoryKey, answer, a.IsCorrect, a.AttemptedAt}, nil
}

var attemptColumns = []string{"user_id", "question_id", "mode", "category_key", "user_answer", "is_correct", "attempted_at"}

// InsertBatch bulk-copies attempts.
func (r *AttemptRepository) InsertBatch(ctx context.Context, batch []*model.PracticeAttempt) error {
	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"user_attempts"},
		attemptColumns,
		pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
			return attemptRow(batch[i])
		}),
	)
	return err
}

// Insert writes one attempt.
func (r *AttemptRepository) Insert(ctx context.Context, a *model.PracticeAttempt) error {
	row, err := attemptRow(a)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO user_attempts (user_id, question_id, mode, category_key, user_answer, is_correct, attempted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		row...,
	)
	return err
}
