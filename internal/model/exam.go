package model

import "time"

// PassPercentage is the pass line for a mock exam.
const PassPercentage = 60.0

// QuestionResult is the graded outcome for one exam question.
type QuestionResult struct {
	Answer       Answer `json:"answer"`
	Correct      bool   `json:"correct"`
	QuestionText string `json:"question_text"`
}

// ExamResult is the immutable outcome of a submitted mock exam.
type ExamResult struct {
	ID              string                    `json:"id"`
	UserID          string                    `json:"user_id"`
	ExamDate        time.Time                 `json:"exam_date"`
	TotalQuestions  int                       `json:"total_questions"`
	TotalScore      float64                   `json:"total_score"`
	MaxScore        float64                   `json:"max_score"`
	Duration        int                       `json:"duration"`
	AutoSubmitted   bool                      `json:"auto_submitted"`
	QuestionOrder   []string                  `json:"question_order"`
	QuestionResults map[string]QuestionResult `json:"question_results"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

// Percentage is the score relative to the maximum, 0 when the maximum is 0.
func (r *ExamResult) Percentage() float64 {
	if r.MaxScore <= 0 {
		return 0
	}
	return r.TotalScore / r.MaxScore * 100
}

// Passed reports whether the result reaches the pass line.
func (r *ExamResult) Passed() bool {
	return r.Percentage() >= PassPercentage
}

// CorrectCount counts correctly answered questions.
func (r *ExamResult) CorrectCount() int {
	n := 0
	for _, qr := range r.QuestionResults {
		if qr.Correct {
			n++
		}
	}
	return n
}

// SubmitExamRequest is the payload for submitting the running exam.
type SubmitExamRequest struct {
	Confirm bool `json:"confirm"`
}
