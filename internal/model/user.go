package model

import "time"

// DefaultProfileName is shown when neither a nickname nor an email is known.
const DefaultProfileName = "AI Trainer Student"

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserProfile holds the display data for a user.
type UserProfile struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName picks the nickname, then the email, then the default.
func DisplayName(nickname, email string) string {
	if nickname != "" {
		return nickname
	}
	if email != "" {
		return email
	}
	return DefaultProfileName
}

// Statistics aggregates a user's activity.
type Statistics struct {
	UserID                  string    `json:"user_id"`
	TotalQuestionsAttempted int       `json:"total_questions_attempted"`
	TotalQuestionsCorrect   int       `json:"total_questions_correct"`
	MockExamsTaken          int       `json:"mock_exams_taken"`
	LastUpdateTime          time.Time `json:"last_update_time"`
}

// Accuracy is the share of correct attempts in percent.
func (s *Statistics) Accuracy() float64 {
	if s.TotalQuestionsAttempted == 0 {
		return 0
	}
	return float64(s.TotalQuestionsCorrect) / float64(s.TotalQuestionsAttempted) * 100
}

// SignUpRequest is the payload for registration.
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	Nickname string `json:"nickname" binding:"omitempty,max=64,displayname"`
}

// SignInRequest is the payload for login.
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
