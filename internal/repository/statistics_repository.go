package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aitrainer/trainer-backend/internal/model"
)

// StatisticsRepository maintains per-user counters in user_statistics.
type StatisticsRepository struct {
	pool *pgxpool.Pool
}

// NewStatisticsRepository creates a new StatisticsRepository.
func NewStatisticsRepository(pool *pgxpool.Pool) *StatisticsRepository {
	return &StatisticsRepository{pool: pool}
}

// Get returns the user's counters, all zero when none were recorded yet.
func (r *StatisticsRepository) Get(ctx context.Context, userID string) (*model.Statistics, error) {
	s := &model.Statistics{UserID: userID}
	err := r.pool.QueryRow(ctx,
		`SELECT total_questions_attempted, total_questions_correct, mock_exams_taken, last_update_time
		 FROM user_statistics WHERE user_id = $1`, userID,
	).Scan(&s.TotalQuestionsAttempted, &s.TotalQuestionsCorrect, &s.MockExamsTaken, &s.LastUpdateTime)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return s, nil
		}
		return nil, err
	}
	return s, nil
}

// Add increments the counters atomically.
func (r *StatisticsRepository) Add(ctx context.Context, userID string, attempted, correct, exams int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_statistics (user_id, total_questions_attempted, total_questions_correct, mock_exams_taken, last_update_time)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
		   total_questions_attempted = user_statistics.total_questions_attempted + EXCLUDED.total_questions_attempted,
		   total_questions_correct = user_statistics.total_questions_correct + EXCLUDED.total_questions_correct,
		   mock_exams_taken = user_statistics.mock_exams_taken + EXCLUDED.mock_exams_taken,
		   last_update_time = NOW()`,
		userID, attempted, correct, exams,
	)
	return err
}
