package service

import (
	"context"
	"fmt"
)

// DashboardData is the home screen summary for a user.
type DashboardData struct {
	Name                    string            `json:"name"`
	Email                   string            `json:"email"`
	TotalQuestionsAttempted int               `json:"total_questions_attempted"`
	TotalQuestionsCorrect   int               `json:"total_questions_correct"`
	MockExamsTaken          int               `json:"mock_exams_taken"`
	Accuracy                float64           `json:"accuracy"`
	LastUpdateTime          string            `json:"last_update_time,omitempty"`
	RecentResults           []*ExamResultView `json:"recent_results"`
	Bank                    BankStatus        `json:"bank"`
}

// DashboardService assembles the home dashboard.
type DashboardService struct {
	auth  *AuthService
	stats StatisticsStore
	exams *ExamService
	bank  *BankService
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(auth *AuthService, stats StatisticsStore, exams *ExamService, bankService *BankService) *DashboardService {
	return &DashboardService{auth: auth, stats: stats, exams: exams, bank: bankService}
}

// GetDashboardData gathers profile, statistics and the latest results.
func (s *DashboardService) GetDashboardData(ctx context.Context, userID string) (*DashboardData, error) {
	user, profile, err := s.auth.GetSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	stats, err := s.stats.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get statistics: %w", err)
	}

	recent, _, err := s.exams.Results(ctx, userID, 5, 0)
	if err != nil {
		return nil, err
	}

	data := &DashboardData{
		Name:                    profile.Name,
		Email:                   user.Email,
		TotalQuestionsAttempted: stats.TotalQuestionsAttempted,
		TotalQuestionsCorrect:   stats.TotalQuestionsCorrect,
		MockExamsTaken:          stats.MockExamsTaken,
		Accuracy:                stats.Accuracy(),
		RecentResults:           recent,
		Bank:                    s.bank.Status(),
	}
	if !stats.LastUpdateTime.IsZero() {
		data.LastUpdateTime = stats.LastUpdateTime.UTC().Format("2006-01-02T15:04:05Z")
	}
	return data, nil
}
