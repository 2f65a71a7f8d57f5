package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aitrainer/trainer-backend/internal/mistake"
	"github.com/aitrainer/trainer-backend/internal/model"
)

// ModeMistakeNotebook marks user_attempts rows that are notebook entries.
const ModeMistakeNotebook = "mistake_notebook"

const mistakeColumns = `id::text, user_id::text, question_id, user_answer, attempted_at, attempt_count,
	reviewed, mistake_type, status, created_at, updated_at`

// MistakeRepository stores notebook entries in user_attempts.
type MistakeRepository struct {
	pool *pgxpool.Pool
}

// NewMistakeRepository creates a new MistakeRepository.
func NewMistakeRepository(pool *pgxpool.Pool) *MistakeRepository {
	return &MistakeRepository{pool: pool}
}

func scanMistake(row pgx.Row) (*model.MistakeRecord, error) {
	m := &model.MistakeRecord{}
	var answer []byte
	err := row.Scan(&m.ID, &m.UserID, &m.QuestionID, &answer, &m.AttemptedAt, &m.AttemptCount,
		&m.Reviewed, &m.MistakeType, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mistake.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(answer, &m.UserAnswer); err != nil {
		return nil, fmt.Errorf("decode answer of %s: %w", m.ID, err)
	}
	return m, nil
}

// FindByQuestion retrieves the entry for a question.
func (r *MistakeRepository) FindByQuestion(ctx context.Context, userID, questionID string) (*model.MistakeRecord, error) {
	return scanMistake(r.pool.QueryRow(ctx,
		`SELECT `+mistakeColumns+` FROM user_attempts
		 WHERE user_id = $1 AND question_id = $2 AND mode = $3`,
		userID, questionID, ModeMistakeNotebook,
	))
}

// FindByID retrieves an entry owned by the user.
func (r *MistakeRepository) FindByID(ctx context.Context, userID, id string) (*model.MistakeRecord, error) {
	return scanMistake(r.pool.QueryRow(ctx,
		`SELECT `+mistakeColumns+` FROM user_attempts
		 WHERE id = $1 AND user_id = $2 AND mode = $3`,
		id, userID, ModeMistakeNotebook,
	))
}

// ListByUser returns a user's entries, most recently attempted first.
func (r *MistakeRepository) ListByUser(ctx context.Context, userID string) ([]*model.MistakeRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+mistakeColumns+` FROM user_attempts
		 WHERE user_id = $1 AND mode = $2
		 ORDER BY attempted_at DESC`,
		userID, ModeMistakeNotebook,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.MistakeRecord
	for rows.Next() {
		m, err := scanMistake(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Upsert writes the entry. The (user, question) pair is the conflict key, so
// a concurrently created entry is updated instead of duplicated.
func (r *MistakeRepository) Upsert(ctx context.Context, m *model.MistakeRecord) error {
	answer, err := json.Marshal(m.UserAnswer)
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO user_attempts (id, user_id, question_id, mode, user_answer, is_correct, attempt_count,
		   reviewed, mistake_type, status, attempted_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (user_id, question_id, mode) WHERE mode = 'mistake_notebook' DO UPDATE SET
		   user_answer = EXCLUDED.user_answer,
		   attempt_count = EXCLUDED.attempt_count,
		   reviewed = EXCLUDED.reviewed,
		   mistake_type = EXCLUDED.mistake_type,
		   status = EXCLUDED.status,
		   attempted_at = EXCLUDED.attempted_at,
		   updated_at = EXCLUDED.updated_at
		 RETURNING id::text, created_at`,
		m.ID, m.UserID, m.QuestionID, ModeMistakeNotebook, answer, m.AttemptCount,
		m.Reviewed, m.MistakeType, m.Status, m.AttemptedAt, m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID, &m.CreatedAt)
}
