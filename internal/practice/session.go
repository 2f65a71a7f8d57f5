package practice

import (
	"context"
	"sync"

	"github.com/aitrainer/trainer-backend/internal/grading"
	"github.com/aitrainer/trainer-backend/internal/model"
)

// Session is one user's practice run over one category. It is safe for
// concurrent use.
type Session struct {
	engine    *Engine
	key       Key
	source    Source
	questions map[string]model.Question

	mu    sync.Mutex
	state *model.ProgressState
}

// Outcome is the result of a submission.
type Outcome struct {
	Correct  bool
	Question model.Question
}

// ItemStatus is one answer-card entry.
type ItemStatus struct {
	Index      int                `json:"index"`
	QuestionID string             `json:"question_id"`
	Status     model.AnswerStatus `json:"status"`
}

// View is a read-only rendering of the session for clients.
type View struct {
	CategoryKey     string             `json:"category_key"`
	Index           int                `json:"index"`
	Total           int                `json:"total"`
	Question        model.QuestionView `json:"question"`
	Answer          *model.Answer      `json:"answer,omitempty"`
	ShowExplanation bool               `json:"show_explanation"`
	Correct         *bool              `json:"correct,omitempty"`
	Items           []ItemStatus       `json:"items"`
}

// Key returns the session key.
func (s *Session) Key() Key { return s.key }

// Source reports which resolver produced the starting state.
func (s *Session) Source() Source { return s.source }

// State returns a copy of the current progress state.
func (s *Session) State() *model.ProgressState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.state)
}

// Current returns the question under the cursor.
func (s *Session) Current() model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[s.state.CurrentQuestionID()]
}

// Submit grades answer against the current question. Empty answers and
// questions whose explanation is already showing are rejected without any
// state change.
func (s *Session) Submit(ctx context.Context, answer model.Answer) (Outcome, error) {
	if answer.IsEmpty() {
		return Outcome{}, ErrEmptyAnswer
	}

	s.mu.Lock()
	id := s.state.CurrentQuestionID()
	q := s.questions[id]
	if s.state.QuestionShowExplanation[id] {
		s.mu.Unlock()
		return Outcome{}, ErrAlreadyAnswered
	}

	correct := grading.Check(q, answer)
	status := model.AnswerStatusIncorrect
	if correct {
		status = model.AnswerStatusCorrect
	}
	s.state.QuestionAnswers[id] = answer
	s.state.QuestionStatusMap[id] = status
	s.state.QuestionShowExplanation[id] = true
	s.markSeen()
	s.mu.Unlock()

	if s.engine.recorder != nil {
		s.engine.recorder.RecordAttempt(ctx, s.key, q, answer, correct)
	}
	s.persist(ctx)

	return Outcome{Correct: correct, Question: q}, nil
}

// Next moves to the following question, wrapping to the first after the last.
func (s *Session) Next(ctx context.Context) {
	s.mu.Lock()
	s.state.CurrentIndex = (s.state.CurrentIndex + 1) % len(s.state.QuestionIDs)
	s.mu.Unlock()

	s.persist(ctx)
}

// Jump moves the cursor to index. Out-of-range targets are rejected.
func (s *Session) Jump(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.state.QuestionIDs) {
		s.mu.Unlock()
		return ErrIndexOutOfRange
	}
	s.state.CurrentIndex = index
	s.mu.Unlock()

	s.persist(ctx)
	return nil
}

// Reset clears all progress, including the seen set, removes the stored
// copies and restarts at the first question in the category's natural order.
func (s *Session) Reset(ctx context.Context, questions []model.Question) {
	s.mu.Lock()
	s.state = s.engine.freshState(s.key, questions, false)
	s.mu.Unlock()

	if err := s.engine.local.Delete(ctx, s.key); err != nil {
		s.engine.log.Warn().Err(err).Str("user_id", s.key.UserID).Msg("Local practice delete failed")
	}
	if s.engine.remote != nil {
		if err := s.engine.remote.Delete(ctx, s.key); err != nil {
			s.engine.log.Warn().Err(err).Str("user_id", s.key.UserID).Msg("Remote practice delete failed")
		}
	}

	s.persist(ctx)
}

// Status derives the answer-card status of a question.
func (s *Session) Status(questionID string) model.AnswerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status(questionID)
}

// Statuses returns the answer card in session order.
func (s *Session) Statuses() []ItemStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items()
}

// View renders the session for the client.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.state.CurrentQuestionID()
	shown := s.state.QuestionShowExplanation[id]
	v := View{
		CategoryKey:     s.key.CategoryKey,
		Index:           s.state.CurrentIndex,
		Total:           len(s.state.QuestionIDs),
		Question:        model.NewQuestionView(s.questions[id], shown),
		ShowExplanation: shown,
		Items:           s.items(),
	}
	if ans, ok := s.state.QuestionAnswers[id]; ok {
		v.Answer = &ans
	}
	if shown {
		correct := s.state.QuestionStatusMap[id] == model.AnswerStatusCorrect
		v.Correct = &correct
	}
	return v
}

func (s *Session) status(id string) model.AnswerStatus {
	if st, ok := s.state.QuestionStatusMap[id]; ok && st != model.AnswerStatusUnseen {
		return st
	}
	for _, seen := range s.state.SeenQuestionIDs {
		if seen == id {
			return model.AnswerStatusUnanswered
		}
	}
	return model.AnswerStatusUnseen
}

func (s *Session) items() []ItemStatus {
	out := make([]ItemStatus, len(s.state.QuestionIDs))
	for i, id := range s.state.QuestionIDs {
		out[i] = ItemStatus{Index: i, QuestionID: id, Status: s.status(id)}
	}
	return out
}

// markSeen records the current question as seen. Only a submission marks a
// question seen. Callers hold s.mu.
func (s *Session) markSeen() {
	id := s.state.CurrentQuestionID()
	if id == "" {
		return
	}
	for _, seen := range s.state.SeenQuestionIDs {
		if seen == id {
			return
		}
	}
	s.state.SeenQuestionIDs = append(s.state.SeenQuestionIDs, id)
}

// reconcile validates a stored state against the known questions. Unknown
// ids are dropped and the cursor is clamped; an empty result is a miss.
func (s *Session) reconcile(stored *model.ProgressState) (*model.ProgressState, bool) {
	state := cloneState(stored)
	state.UserID = s.key.UserID
	state.CategoryKey = s.key.CategoryKey

	currentID := stored.CurrentQuestionID()
	ids := state.QuestionIDs[:0]
	for _, id := range stored.QuestionIDs {
		if _, ok := s.questions[id]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, false
	}
	state.QuestionIDs = ids

	state.CurrentIndex = -1
	for i, id := range ids {
		if id == currentID {
			state.CurrentIndex = i
			break
		}
	}
	if state.CurrentIndex < 0 {
		state.CurrentIndex = stored.CurrentIndex
		if state.CurrentIndex >= len(ids) {
			state.CurrentIndex = len(ids) - 1
		}
		if state.CurrentIndex < 0 {
			state.CurrentIndex = 0
		}
	}
	return state, true
}

// persist writes the state locally and mirrors it remotely. Failures are
// logged only.
func (s *Session) persist(ctx context.Context) {
	s.mu.Lock()
	s.state.UpdatedAt = s.engine.now()
	snapshot := cloneState(s.state)
	s.mu.Unlock()

	log := s.engine.log.With().Str("user_id", s.key.UserID).Str("category", s.key.CategoryKey).Logger()

	if err := s.engine.local.Save(ctx, snapshot); err != nil {
		log.Warn().Err(err).Msg("Local practice save failed")
	}
	if s.engine.remote == nil {
		return
	}
	rec := &model.PracticeRecord{
		UserID:            s.key.UserID,
		Category:          s.key.CategoryKey,
		CurrentQuestionID: snapshot.CurrentQuestionID(),
		Status:            model.PracticeRecordStatusInProgress,
		State:             snapshot,
		UpdatedAt:         snapshot.UpdatedAt,
	}
	if err := s.engine.remote.Save(ctx, rec); err != nil {
		log.Warn().Err(err).Msg("Remote practice save failed")
	}
}
