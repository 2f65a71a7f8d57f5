package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aitrainer/trainer-backend/internal/model"
)

const examResultColumns = `id::text, user_id::text, exam_date, total_questions, total_score::float8, max_score::float8,
	duration, auto_submitted, question_order, question_results, created_at, updated_at`

// ExamResultRepository stores immutable exam results.
type ExamResultRepository struct {
	pool *pgxpool.Pool
}

// NewExamResultRepository creates a new ExamResultRepository.
func NewExamResultRepository(pool *pgxpool.Pool) *ExamResultRepository {
	return &ExamResultRepository{pool: pool}
}

// Create inserts a result. Results are never updated.
func (r *ExamResultRepository) Create(ctx context.Context, res *model.ExamResult) error {
	order, err := json.Marshal(res.QuestionOrder)
	if err != nil {
		return err
	}
	results, err := json.Marshal(res.QuestionResults)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO exam_results (id, user_id, exam_date, total_questions, total_score, max_score,
		   duration, auto_submitted, question_order, question_results, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		res.ID, res.UserID, res.ExamDate, res.TotalQuestions, res.TotalScore, res.MaxScore,
		res.Duration, res.AutoSubmitted, order, results, res.CreatedAt, res.UpdatedAt,
	)
	return err
}

func scanExamResult(row pgx.Row) (*model.ExamResult, error) {
	res := &model.ExamResult{}
	var order, results []byte
	if err := row.Scan(&res.ID, &res.UserID, &res.ExamDate, &res.TotalQuestions, &res.TotalScore, &res.MaxScore,
		&res.Duration, &res.AutoSubmitted, &order, &results, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal(order, &res.QuestionOrder); err != nil {
		return nil, fmt.Errorf("decode question order: %w", err)
	}
	if err := json.Unmarshal(results, &res.QuestionResults); err != nil {
		return nil, fmt.Errorf("decode question results: %w", err)
	}
	return res, nil
}

// GetByID retrieves a result owned by the user.
func (r *ExamResultRepository) GetByID(ctx context.Context, userID, id string) (*model.ExamResult, error) {
	return scanExamResult(r.pool.QueryRow(ctx,
		`SELECT `+examResultColumns+` FROM exam_results WHERE id = $1 AND user_id = $2`, id, userID))
}

// ListByUser returns a page of results, newest first, and the total count.
func (r *ExamResultRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.ExamResult, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_results WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+examResultColumns+` FROM exam_results WHERE user_id = $1
		 ORDER BY exam_date DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*model.ExamResult
	for rows.Next() {
		res, err := scanExamResult(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, res)
	}
	return out, total, rows.Err()
}
