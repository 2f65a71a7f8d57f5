package exam

import (
	"time"

	"github.com/google/uuid"

	"github.com/aitrainer/trainer-backend/internal/grading"
	"github.com/aitrainer/trainer-backend/internal/model"
)

// Score grades answers against paper. Unanswered questions score zero.
func Score(paper *Paper, answers map[string]model.Answer) (float64, map[string]model.QuestionResult) {
	total := 0.0
	results := make(map[string]model.QuestionResult, len(paper.Questions))
	for _, q := range paper.Questions {
		a := answers[q.ID]
		correct := !a.IsEmpty() && grading.CheckTheory(q, a)
		if correct {
			total += paper.Blueprint.Points(q.Type)
		}
		results[q.ID] = model.QuestionResult{Answer: a, Correct: correct, QuestionText: q.Text}
	}
	return total, results
}

// grade builds the result. Callers hold s.mu.
func (s *Session) grade(auto bool) *model.ExamResult {
	total, results := Score(s.paper, s.answers)

	now := s.now()
	elapsed := int(now.Sub(s.started) / time.Second)
	limit := int(s.duration / time.Second)
	if elapsed > limit {
		elapsed = limit
	}
	if elapsed < 0 {
		elapsed = 0
	}

	order := make([]string, len(s.paper.Questions))
	for i, q := range s.paper.Questions {
		order[i] = q.ID
	}

	return &model.ExamResult{
		ID:              uuid.New().String(),
		UserID:          s.userID,
		ExamDate:        now,
		TotalQuestions:  len(s.paper.Questions),
		TotalScore:      total,
		MaxScore:        s.paper.Blueprint.MaxScore,
		Duration:        elapsed,
		AutoSubmitted:   auto,
		QuestionOrder:   order,
		QuestionResults: results,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
