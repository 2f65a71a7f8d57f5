package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aitrainer/trainer-backend/internal/metrics"
	"github.com/aitrainer/trainer-backend/internal/model"
	"github.com/aitrainer/trainer-backend/internal/practice"
	"github.com/aitrainer/trainer-backend/internal/repository"
)

// ErrPracticeNotStarted is returned for actions on a session never started.
var ErrPracticeNotStarted = errors.New("practice session not started")

// JobQueue appends a job for a background worker.
type JobQueue interface {
	Push(ctx context.Context, v any) error
}

// PracticeSessionStore reads and deletes mirrored practice sessions.
type PracticeSessionStore interface {
	Get(ctx context.Context, userID, category string) (*model.PracticeRecord, error)
	Delete(ctx context.Context, userID, category string) error
}

// StatisticsStore increments per-user counters.
type StatisticsStore interface {
	Get(ctx context.Context, userID string) (*model.Statistics, error)
	Add(ctx context.Context, userID string, attempted, correct, exams int) error
}

// MistakeRecorder files a mistake.
type MistakeRecorder interface {
	Record(ctx context.Context, userID, questionID string, answer model.Answer) (*model.MistakeRecord, error)
}

// ─── Remote mirror ─────────────────────────────────────────────────────────

// practiceMirror reads sessions directly and writes them through the
// practice sync queue.
type practiceMirror struct {
	store PracticeSessionStore
	queue JobQueue
}

func (m *practiceMirror) Load(ctx context.Context, key practice.Key) (*model.PracticeRecord, bool, error) {
	rec, err := m.store.Get(ctx, key.UserID, key.CategoryKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return rec, true, nil
}

func (m *practiceMirror) Save(ctx context.Context, rec *model.PracticeRecord) error {
	return m.queue.Push(ctx, rec)
}

func (m *practiceMirror) Delete(ctx context.Context, key practice.Key) error {
	return m.store.Delete(ctx, key.UserID, key.CategoryKey)
}

// ─── Attempt recorder ──────────────────────────────────────────────────────

// attemptRecorder updates statistics, files mistakes and queues the attempt
// log for every graded practice submission.
type attemptRecorder struct {
	stats    StatisticsStore
	mistakes MistakeRecorder
	attempts JobQueue
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func (r *attemptRecorder) RecordAttempt(ctx context.Context, key practice.Key, q model.Question, a model.Answer, correct bool) {
	log := r.log.With().Str("user_id", key.UserID).Str("question_id", q.QuestionID()).Logger()
	r.metrics.PracticeAttempt(correct)

	correctN := 0
	if correct {
		correctN = 1
	}
	if err := r.stats.Add(ctx, key.UserID, 1, correctN, 0); err != nil {
		log.Warn().Err(err).Msg("Statistics update failed")
	}

	if !correct {
		rec, err := r.mistakes.Record(ctx, key.UserID, q.QuestionID(), a)
		if err != nil {
			log.Warn().Err(err).Msg("Mistake record failed")
		} else {
			r.metrics.MistakeRecorded(string(rec.MistakeType))
		}
	}

	attempt := &model.PracticeAttempt{
		UserID:      key.UserID,
		QuestionID:  q.QuestionID(),
		CategoryKey: key.CategoryKey,
		Answer:      a,
		IsCorrect:   correct,
		AttemptedAt: time.Now(),
	}
	if err := r.attempts.Push(ctx, attempt); err != nil {
		log.Warn().Err(err).Msg("Attempt enqueue failed")
	}
}

// ─── Service ───────────────────────────────────────────────────────────────

// PracticeStart is the response to starting or resuming a session.
type PracticeStart struct {
	practice.View
	Source practice.Source `json:"source"`
}

// PracticeOutcome is the response to a submission.
type PracticeOutcome struct {
	Correct bool          `json:"correct"`
	View    practice.View `json:"view"`
}

// PracticeService keeps one live practice session per (user, category).
type PracticeService struct {
	engine *practice.Engine
	bank   *BankService
	log    zerolog.Logger

	mu       sync.Mutex
	sessions map[practice.Key]*practice.Session
}

// NewPracticeService wires the engine to its stores.
func NewPracticeService(
	bankService *BankService,
	local practice.LocalStore,
	sessions PracticeSessionStore,
	syncQueue JobQueue,
	stats StatisticsStore,
	mistakes MistakeRecorder,
	attemptQueue JobQueue,
	m *metrics.Metrics,
	log zerolog.Logger,
) *PracticeService {
	log = log.With().Str("component", "practice_service").Logger()
	recorder := &attemptRecorder{stats: stats, mistakes: mistakes, attempts: attemptQueue, metrics: m, log: log}
	mirror := &practiceMirror{store: sessions, queue: syncQueue}
	return &PracticeService{
		engine:   practice.NewEngine(local, mirror, recorder, log),
		bank:     bankService,
		log:      log,
		sessions: make(map[practice.Key]*practice.Session),
	}
}

// Start resumes the live session or starts one through the resolver chain.
func (s *PracticeService) Start(ctx context.Context, userID, categoryKey string) (*PracticeStart, error) {
	key := practice.Key{UserID: userID, CategoryKey: categoryKey}

	s.mu.Lock()
	sess, ok := s.sessions[key]
	s.mu.Unlock()
	if ok {
		return &PracticeStart{View: sess.View(), Source: sess.Source()}, nil
	}

	questions, opts, err := s.bank.PracticeSet(categoryKey)
	if err != nil {
		return nil, err
	}
	sess, err = s.engine.Start(ctx, key, questions, opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.sessions[key]; ok {
		sess = existing
	} else {
		s.sessions[key] = sess
	}
	s.mu.Unlock()

	return &PracticeStart{View: sess.View(), Source: sess.Source()}, nil
}

func (s *PracticeService) session(userID, categoryKey string) (*practice.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[practice.Key{UserID: userID, CategoryKey: categoryKey}]
	if !ok {
		return nil, ErrPracticeNotStarted
	}
	return sess, nil
}

// View renders the live session.
func (s *PracticeService) View(userID, categoryKey string) (practice.View, error) {
	sess, err := s.session(userID, categoryKey)
	if err != nil {
		return practice.View{}, err
	}
	return sess.View(), nil
}

// Submit grades an answer for the current question.
func (s *PracticeService) Submit(ctx context.Context, userID, categoryKey string, answer model.Answer) (*PracticeOutcome, error) {
	sess, err := s.session(userID, categoryKey)
	if err != nil {
		return nil, err
	}
	out, err := sess.Submit(ctx, answer)
	if err != nil {
		return nil, err
	}
	return &PracticeOutcome{Correct: out.Correct, View: sess.View()}, nil
}

// Next advances cyclically.
func (s *PracticeService) Next(ctx context.Context, userID, categoryKey string) (practice.View, error) {
	sess, err := s.session(userID, categoryKey)
	if err != nil {
		return practice.View{}, err
	}
	sess.Next(ctx)
	return sess.View(), nil
}

// Jump moves to index.
func (s *PracticeService) Jump(ctx context.Context, userID, categoryKey string, index int) (practice.View, error) {
	sess, err := s.session(userID, categoryKey)
	if err != nil {
		return practice.View{}, err
	}
	if err := sess.Jump(ctx, index); err != nil {
		return practice.View{}, err
	}
	return sess.View(), nil
}

// Reset clears the session's progress everywhere and restarts it.
func (s *PracticeService) Reset(ctx context.Context, userID, categoryKey string) (practice.View, error) {
	questions, _, err := s.bank.PracticeSet(categoryKey)
	if err != nil {
		return practice.View{}, err
	}
	if len(questions) == 0 {
		return practice.View{}, practice.ErrNoQuestions
	}
	sess, err := s.session(userID, categoryKey)
	if err != nil {
		return practice.View{}, err
	}
	sess.Reset(ctx, questions)
	return sess.View(), nil
}

// ForgetUser drops the user's live sessions from memory. Stored progress is kept.
func (s *PracticeService) ForgetUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.sessions {
		if key.UserID == userID {
			delete(s.sessions, key)
		}
	}
}
