package mistake

import "github.com/aitrainer/trainer-backend/internal/model"

// ReviewItem is one question shown on the exam review page.
type ReviewItem struct {
	Index      int                  `json:"index"`
	QuestionID string               `json:"question_id"`
	Result     model.QuestionResult `json:"result"`
}

// ExamReview lists the questions of result that were answered and wrong, in
// paper order. Unanswered questions are left to the notebook.
func ExamReview(result *model.ExamResult) []ReviewItem {
	var out []ReviewItem
	for i, id := range result.QuestionOrder {
		qr, ok := result.QuestionResults[id]
		if !ok || qr.Correct || qr.Answer.IsEmpty() {
			continue
		}
		out = append(out, ReviewItem{Index: i, QuestionID: id, Result: qr})
	}
	return out
}
