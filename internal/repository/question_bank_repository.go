package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aitrainer/trainer-backend/internal/bank"
	"github.com/aitrainer/trainer-backend/internal/model"
)

// QuestionBankRepository reads and imports the question_bank relation.
type QuestionBankRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionBankRepository creates a new QuestionBankRepository.
func NewQuestionBankRepository(pool *pgxpool.Pool) *QuestionBankRepository {
	return &QuestionBankRepository{pool: pool}
}

// List returns every row ordered by creation time.
func (r *QuestionBankRepository) List(ctx context.Context) ([]model.QuestionBankRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, type, category, question, options, correct_answer, explanation, created_at
		 FROM question_bank ORDER BY created_at, question_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.QuestionBankRow
	for rows.Next() {
		var row model.QuestionBankRow
		var options []byte
		if err := rows.Scan(&row.QuestionID, &row.Type, &row.Category, &row.Question,
			&options, &row.CorrectAnswer, &row.Explanation, &row.CreatedAt); err != nil {
			return nil, err
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &row.Options); err != nil {
				return nil, fmt.Errorf("decode options of %s: %w", row.QuestionID, err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// FetchTheory returns the rows as raw theory records for the normalizer.
func (r *QuestionBankRepository) FetchTheory(ctx context.Context) ([]bank.RawTheoryRecord, error) {
	rows, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]bank.RawTheoryRecord, len(rows))
	for i, row := range rows {
		out[i] = bank.FromBankRow(row)
	}
	return out, nil
}

// Import upserts rows by question_id. Rows are bulk-copied into a staging
// table and merged in one transaction.
func (r *QuestionBankRepository) Import(ctx context.Context, rows []model.QuestionBankRow) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`CREATE TEMP TABLE question_bank_staging (LIKE question_bank INCLUDING DEFAULTS) ON COMMIT DROP`,
	); err != nil {
		return 0, fmt.Errorf("create staging: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"question_bank_staging"},
		[]string{"question_id", "type", "category", "question", "options", "correct_answer", "explanation"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			row := rows[i]
			options, err := json.Marshal(row.Options)
			if err != nil {
				return nil, err
			}
			return []any{row.QuestionID, row.Type, row.Category, row.Question, string(options), row.CorrectAnswer, row.Explanation}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy rows: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO question_bank (question_id, type, category, question, options, correct_answer, explanation)
		 SELECT DISTINCT ON (question_id) question_id, type, category, question, options, correct_answer, explanation
		 FROM question_bank_staging
		 ON CONFLICT (question_id) DO UPDATE SET
		   type = EXCLUDED.type,
		   category = EXCLUDED.category,
		   question = EXCLUDED.question,
		   options = EXCLUDED.options,
		   correct_answer = EXCLUDED.correct_answer,
		   explanation = EXCLUDED.explanation`)
	if err != nil {
		return 0, fmt.Errorf("merge rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of rows.
func (r *QuestionBankRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM question_bank`).Scan(&n)
	return n, err
}
