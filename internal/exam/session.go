package exam

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aitrainer/trainer-backend/internal/model"
)

var (
	ErrAlreadySubmitted     = errors.New("exam already submitted")
	ErrConfirmationRequired = errors.New("submission needs confirmation, unanswered questions score zero")
	ErrSectionGatePending   = errors.New("section introduction not acknowledged")
	ErrNoSectionGate        = errors.New("no section introduction to acknowledge")
	ErrIndexOutOfRange      = errors.New("question index out of range")
)

// Phase is the lifecycle state of a session.
type Phase string

const (
	PhaseInProgress Phase = "in_progress"
	PhaseSubmitting Phase = "submitting"
	PhaseSubmitted  Phase = "submitted"
)

// FinalizeFunc receives the result exactly once, after submission.
type FinalizeFunc func(ctx context.Context, s *Session, result *model.ExamResult)

// Options configure a session.
type Options struct {
	Duration   time.Duration
	Now        func() time.Time
	OnFinalize FinalizeFunc
}

// SubmitOptions distinguish manual and automatic submission.
type SubmitOptions struct {
	Auto      bool
	Confirmed bool
}

// Session is one running mock exam. It is safe for concurrent use.
type Session struct {
	id       string
	userID   string
	paper    *Paper
	started  time.Time
	duration time.Duration
	now      func() time.Time
	finalize FinalizeFunc

	mu           sync.Mutex
	phase        Phase
	index        int
	answers      map[string]model.Answer
	draft        *model.Answer
	flagged      map[string]bool
	visited      map[string]bool
	acknowledged map[int]bool
	result       *model.ExamResult
	subscribers  map[int]chan Event
	nextSub      int
}

// NewSession starts the clock on paper.
func NewSession(userID string, paper *Paper, opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Duration <= 0 {
		opts.Duration = 90 * time.Minute
	}
	s := &Session{
		id:           uuid.New().String(),
		userID:       userID,
		paper:        paper,
		started:      opts.Now(),
		duration:     opts.Duration,
		now:          opts.Now,
		finalize:     opts.OnFinalize,
		phase:        PhaseInProgress,
		answers:      map[string]model.Answer{},
		flagged:      map[string]bool{},
		visited:      map[string]bool{},
		acknowledged: map[int]bool{},
		subscribers:  map[int]chan Event{},
	}
	s.visit()
	return s
}

func (s *Session) ID() string           { return s.id }
func (s *Session) UserID() string       { return s.userID }
func (s *Session) Paper() *Paper        { return s.paper }
func (s *Session) StartedAt() time.Time { return s.started }

// Phase returns the lifecycle state.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Result returns the result once submitted, nil before.
func (s *Session) Result() *model.ExamResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// RemainingSeconds is derived from the wall clock, never from tick counts.
func (s *Session) RemainingSeconds() int {
	total := int(s.duration / time.Second)
	elapsed := int(s.now().Sub(s.started) / time.Second)
	if rem := total - elapsed; rem > 0 {
		return rem
	}
	return 0
}

// AcknowledgeSection dismisses the introduction of the current section.
func (s *Session) AcknowledgeSection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	if !s.gatePending() {
		return ErrNoSectionGate
	}
	s.acknowledged[s.paper.SectionAt(s.index)] = true
	return nil
}

// Answer records an answer for the current question. An empty answer
// clears it.
func (s *Session) Answer(a model.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.interactive(); err != nil {
		return err
	}
	s.draft = nil
	s.setAnswer(s.currentID(), a)
	return nil
}

// Draft holds an in-progress edit of the current answer. It is committed on
// navigation or submission.
func (s *Session) Draft(a model.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.interactive(); err != nil {
		return err
	}
	s.draft = &a
	return nil
}

// ClearAnswer removes the current question's answer.
func (s *Session) ClearAnswer() error {
	return s.Answer(model.Answer{})
}

// Next moves forward, stopping at the last question.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.interactive(); err != nil {
		return err
	}
	s.move(s.index + 1)
	return nil
}

// Prev moves back, stopping at the first question.
func (s *Session) Prev() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	s.move(s.index - 1)
	return nil
}

// Jump moves to index.
func (s *Session) Jump(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.paper.Questions) {
		return ErrIndexOutOfRange
	}
	s.move(index)
	return nil
}

// ToggleFlag flips the flag of the current question and reports the new value.
func (s *Session) ToggleFlag() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.interactive(); err != nil {
		return false, err
	}
	id := s.currentID()
	s.flagged[id] = !s.flagged[id]
	if !s.flagged[id] {
		delete(s.flagged, id)
	}
	return s.flagged[id], nil
}

// FlagAndNext flags the current question and advances.
func (s *Session) FlagAndNext() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.interactive(); err != nil {
		return err
	}
	s.flagged[s.currentID()] = true
	s.move(s.index + 1)
	return nil
}

// Submit finalizes the exam. A manual submission with time remaining must be
// confirmed; automatic submission never needs confirmation. Only the first
// successful call produces a result.
func (s *Session) Submit(ctx context.Context, opts SubmitOptions) (*model.ExamResult, error) {
	s.mu.Lock()
	if s.phase != PhaseInProgress {
		s.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}
	if !opts.Auto && !opts.Confirmed && s.RemainingSeconds() > 0 {
		s.mu.Unlock()
		return nil, ErrConfirmationRequired
	}
	s.phase = PhaseSubmitting
	s.commitDraft()

	result := s.grade(opts.Auto)
	s.result = result
	s.phase = PhaseSubmitted
	s.publishFinal(Event{Type: EventSubmitted, Result: result})
	s.mu.Unlock()

	if s.finalize != nil {
		s.finalize(ctx, s, result)
	}
	return result, nil
}

// Tick publishes the remaining time and auto-submits once it reaches zero.
// It reports whether the session is finished.
func (s *Session) Tick(ctx context.Context) bool {
	if s.Phase() != PhaseInProgress {
		return true
	}
	rem := s.RemainingSeconds()
	s.mu.Lock()
	s.publish(Event{Type: EventTick, Remaining: rem})
	s.mu.Unlock()

	if rem > 0 {
		return false
	}
	_, _ = s.Submit(ctx, SubmitOptions{Auto: true})
	return true
}

// Unanswered counts questions without an answer.
func (s *Session) Unanswered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unanswered()
}

func (s *Session) unanswered() int {
	n := 0
	for _, q := range s.paper.Questions {
		if a, ok := s.answers[q.ID]; !ok || a.IsEmpty() {
			n++
		}
	}
	return n
}

func (s *Session) currentID() string {
	return s.paper.Questions[s.index].ID
}

func (s *Session) setAnswer(id string, a model.Answer) {
	if a.IsEmpty() {
		delete(s.answers, id)
		return
	}
	s.answers[id] = a
}

func (s *Session) commitDraft() {
	if s.draft == nil {
		return
	}
	s.setAnswer(s.currentID(), *s.draft)
	s.draft = nil
}

func (s *Session) move(to int) {
	if to < 0 {
		to = 0
	}
	if last := len(s.paper.Questions) - 1; to > last {
		to = last
	}
	s.commitDraft()
	s.index = to
	s.visit()
}

func (s *Session) visit() {
	if len(s.paper.Questions) > 0 {
		s.visited[s.currentID()] = true
	}
}

func (s *Session) gatePending() bool {
	sec := s.paper.SectionAt(s.index)
	return s.paper.Sections[sec].Start == s.index && !s.acknowledged[sec]
}

// writable fails once the exam is no longer running.
func (s *Session) writable() error {
	if s.phase != PhaseInProgress {
		return ErrAlreadySubmitted
	}
	return nil
}

// interactive additionally fails while a section introduction is showing.
func (s *Session) interactive() error {
	if err := s.writable(); err != nil {
		return err
	}
	if s.gatePending() {
		return ErrSectionGatePending
	}
	return nil
}
