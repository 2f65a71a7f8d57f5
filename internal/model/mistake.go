package model

import "time"

// MistakeType distinguishes a wrong answer from a skipped question.
type MistakeType string

const (
	MistakeTypeWrongAnswer MistakeType = "wrongAnswer"
	MistakeTypeUnanswered  MistakeType = "unanswered"
)

// MistakeStatus tracks the review progress of a mistake.
type MistakeStatus string

const (
	MistakeStatusReviewing  MistakeStatus = "reviewing"
	MistakeStatusMastered   MistakeStatus = "mastered"
	MistakeStatusContinued  MistakeStatus = "continued"
	MistakeStatusReinforced MistakeStatus = "reinforced"
)

// MistakeRecord is one notebook entry. At most one exists per (user, question).
type MistakeRecord struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	QuestionID   string        `json:"question_id"`
	UserAnswer   Answer        `json:"user_answer"`
	AttemptedAt  time.Time     `json:"attempted_at"`
	AttemptCount int           `json:"attempt_count"`
	Reviewed     bool          `json:"reviewed"`
	MistakeType  MistakeType   `json:"mistake_type"`
	Status       MistakeStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// MistakeView is a notebook entry joined with its question for display.
type MistakeView struct {
	MistakeRecord
	Question      *QuestionView `json:"question,omitempty"`
	CorrectAnswer string        `json:"correct_answer_display"`
	UserAnswerTxt string        `json:"user_answer_display"`
}

// UpdateMistakeStatusRequest is the payload for an explicit status transition.
type UpdateMistakeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=reviewing mastered continued reinforced"`
}

// MarkReviewedRequest toggles the reviewed flag.
type MarkReviewedRequest struct {
	Reviewed *bool `json:"reviewed" binding:"required"`
}

// StartReinforcementRequest optionally restricts the replay to some mistakes.
type StartReinforcementRequest struct {
	MistakeIDs []string `json:"mistake_ids" binding:"omitempty,dive,required"`
}
