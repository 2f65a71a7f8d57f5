package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aitrainer/trainer-backend/internal/mistake"
	"github.com/aitrainer/trainer-backend/internal/model"
)

// ReplayState is the client view of a reinforcement replay.
type ReplayState struct {
	Position int                  `json:"position"`
	Total    int                  `json:"total"`
	Finished bool                 `json:"finished"`
	Mistake  *model.MistakeRecord `json:"mistake,omitempty"`
	Question *model.QuestionView  `json:"question,omitempty"`
}

// MistakeService serves the notebook and one reinforcement replay per user.
type MistakeService struct {
	notebook *mistake.Notebook
	bank     *BankService
	log      zerolog.Logger

	mu      sync.Mutex
	replays map[string]*mistake.Replay
}

// NewMistakeService creates a new MistakeService.
func NewMistakeService(notebook *mistake.Notebook, bankService *BankService, log zerolog.Logger) *MistakeService {
	return &MistakeService{
		notebook: notebook,
		bank:     bankService,
		log:      log.With().Str("component", "mistake_service").Logger(),
		replays:  make(map[string]*mistake.Replay),
	}
}

// List returns the filtered notebook joined with question text and
// formatted answers.
func (s *MistakeService) List(ctx context.Context, userID string, filter mistake.Filter) ([]model.MistakeView, error) {
	recs, err := s.notebook.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]model.MistakeView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, s.view(rec))
	}
	return out, nil
}

func (s *MistakeService) view(rec *model.MistakeRecord) model.MistakeView {
	v := model.MistakeView{MistakeRecord: *rec, UserAnswerTxt: rec.UserAnswer.Display()}
	q, ok := s.bank.Question(rec.QuestionID)
	if !ok {
		return v
	}
	qv := model.NewQuestionView(q, true)
	v.Question = &qv
	switch t := q.(type) {
	case *model.TheoryQuestion:
		v.CorrectAnswer = t.CorrectAnswer.Display()
	case *model.CodeQuestion:
		v.CorrectAnswer = t.CorrectCode
	}
	return v
}

// SetStatus applies an explicit status transition.
func (s *MistakeService) SetStatus(ctx context.Context, userID, id string, status model.MistakeStatus) (model.MistakeView, error) {
	rec, err := s.notebook.SetStatus(ctx, userID, id, status)
	if err != nil {
		return model.MistakeView{}, err
	}
	return s.view(rec), nil
}

// MarkReviewed sets the reviewed flag.
func (s *MistakeService) MarkReviewed(ctx context.Context, userID, id string, reviewed bool) (model.MistakeView, error) {
	rec, err := s.notebook.MarkReviewed(ctx, userID, id, reviewed)
	if err != nil {
		return model.MistakeView{}, err
	}
	return s.view(rec), nil
}

// StartReplay replaces the user's replay with one over ids, or over every
// non-mastered mistake when ids is empty.
func (s *MistakeService) StartReplay(ctx context.Context, userID string, ids []string) (*ReplayState, error) {
	pool, err := s.bank.Pool()
	if err != nil {
		return nil, err
	}
	r, err := s.notebook.StartReplay(ctx, userID, ids, pool)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.replays[userID] = r
	s.mu.Unlock()
	return replayState(r), nil
}

// Replay returns the user's current replay.
func (s *MistakeService) Replay(userID string) (*ReplayState, error) {
	r, err := s.replay(userID)
	if err != nil {
		return nil, err
	}
	return replayState(r), nil
}

// SubmitReplay answers the current replay question.
func (s *MistakeService) SubmitReplay(ctx context.Context, userID string, answer model.Answer) (*mistake.ReplayOutcome, *ReplayState, error) {
	r, err := s.replay(userID)
	if err != nil {
		return nil, nil, err
	}
	out, err := r.Submit(ctx, answer)
	if err != nil {
		return nil, nil, err
	}
	state := replayState(r)
	if state.Finished {
		s.mu.Lock()
		if s.replays[userID] == r {
			delete(s.replays, userID)
		}
		s.mu.Unlock()
	}
	return &out, state, nil
}

// ForgetUser drops the user's replay.
func (s *MistakeService) ForgetUser(userID string) {
	s.mu.Lock()
	delete(s.replays, userID)
	s.mu.Unlock()
}

func (s *MistakeService) replay(userID string) (*mistake.Replay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.replays[userID]
	if !ok {
		return nil, ErrNoActiveReplay
	}
	return r, nil
}

func replayState(r *mistake.Replay) *ReplayState {
	st := &ReplayState{Position: r.Position(), Total: r.Len(), Finished: r.Finished()}
	if rec, q, ok := r.Current(); ok {
		st.Mistake = rec
		qv := model.NewQuestionView(q, false)
		st.Question = &qv
	}
	return st
}
