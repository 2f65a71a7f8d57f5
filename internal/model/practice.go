package model

import "time"

// AnswerStatus is the per-question state shown on answer cards.
type AnswerStatus string

const (
	AnswerStatusUnseen     AnswerStatus = "unseen"
	AnswerStatusUnanswered AnswerStatus = "unanswered"
	AnswerStatusCorrect    AnswerStatus = "correct"
	AnswerStatusIncorrect  AnswerStatus = "incorrect"
	AnswerStatusAnswered   AnswerStatus = "answered"
	AnswerStatusFlagged    AnswerStatus = "flagged"
)

// ProgressState is the persisted state of a practice session for one
// (user, category) pair.
type ProgressState struct {
	UserID                  string                  `json:"user_id"`
	CategoryKey             string                  `json:"category_key"`
	QuestionIDs             []string                `json:"question_ids"`
	CurrentIndex            int                     `json:"current_index"`
	SeenQuestionIDs         []string                `json:"seen_question_ids"`
	QuestionStatusMap       map[string]AnswerStatus `json:"question_status_map"`
	QuestionAnswers         map[string]Answer       `json:"question_answers"`
	QuestionShowExplanation map[string]bool         `json:"question_show_explanation"`
	UpdatedAt               time.Time               `json:"updated_at"`
}

// CurrentQuestionID returns the id under the cursor, or "" for an empty session.
func (p *ProgressState) CurrentQuestionID() string {
	if p.CurrentIndex < 0 || p.CurrentIndex >= len(p.QuestionIDs) {
		return ""
	}
	return p.QuestionIDs[p.CurrentIndex]
}

// PracticeRecord is the remote mirror of a practice session.
type PracticeRecord struct {
	UserID            string         `json:"user_id"`
	Category          string         `json:"category"`
	CurrentQuestionID string         `json:"current_question_id"`
	Status            string         `json:"status"`
	State             *ProgressState `json:"state,omitempty"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// PracticeRecordStatusInProgress is the only status written by the service.
const PracticeRecordStatusInProgress = "in_progress"

// PracticeAttempt is one graded practice submission, queued for persistence.
type PracticeAttempt struct {
	UserID      string    `json:"user_id"`
	QuestionID  string    `json:"question_id"`
	CategoryKey string    `json:"category_key"`
	Answer      Answer    `json:"answer"`
	IsCorrect   bool      `json:"is_correct"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// SubmitAnswerRequest is the payload for answering the current question.
type SubmitAnswerRequest struct {
	Answer Answer `json:"answer"`
}

// JumpRequest is the payload for moving the cursor to an index.
type JumpRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

// CategoryURI binds the practice category key from the path.
type CategoryURI struct {
	Category string `uri:"category" json:"category" binding:"required,slug"`
}

// IDURI binds a UUID resource id from the path.
type IDURI struct {
	ID string `uri:"id" json:"id" binding:"required,uuid"`
}
