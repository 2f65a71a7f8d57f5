package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aitrainer/trainer-backend/internal/config"
	"github.com/aitrainer/trainer-backend/internal/exam"
	"github.com/aitrainer/trainer-backend/internal/kvstore"
	"github.com/aitrainer/trainer-backend/internal/metrics"
	"github.com/aitrainer/trainer-backend/internal/mistake"
	"github.com/aitrainer/trainer-backend/internal/model"
)

var (
	ErrNoActiveExam   = errors.New("no active exam")
	ErrNoActiveReplay = errors.New("no active reinforcement replay")
)

// ExamResultStore persists immutable results.
type ExamResultStore interface {
	Create(ctx context.Context, res *model.ExamResult) error
	GetByID(ctx context.Context, userID, id string) (*model.ExamResult, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.ExamResult, int, error)
}

// ExamMistakeRecorder files the mistakes of a finished exam.
type ExamMistakeRecorder interface {
	RecordExam(ctx context.Context, result *model.ExamResult) error
}

// ExamAvailability reports whether the bank can fill a paper.
type ExamAvailability struct {
	Ready            bool             `json:"ready"`
	DurationSeconds  int              `json:"duration_seconds"`
	MaxScore         float64          `json:"max_score"`
	PassPercentage   float64          `json:"pass_percentage"`
	Blocks           []exam.Block     `json:"blocks"`
	Supply           []exam.Shortfall `json:"supply"`
	BlueprintWarning string           `json:"blueprint_warning,omitempty"`
}

// ExamResultView adds derived fields to a result.
type ExamResultView struct {
	*model.ExamResult
	Percentage   float64 `json:"percentage"`
	Passed       bool    `json:"passed"`
	CorrectCount int     `json:"correct_count"`
}

// ExamReviewItem is one answered-and-wrong question with its key revealed.
type ExamReviewItem struct {
	mistake.ReviewItem
	Question *model.QuestionView `json:"question,omitempty"`
}

type activeExam struct {
	session *exam.Session
	timer   *exam.Timer
}

// ExamService runs at most one mock exam per user.
type ExamService struct {
	cfg       *config.Config
	blueprint exam.Blueprint
	bank      *BankService
	results   ExamResultStore
	stats     StatisticsStore
	mistakes  ExamMistakeRecorder
	store     kvstore.Store
	metrics   *metrics.Metrics
	log       zerolog.Logger

	// base is the lifetime of exam timers; cancelled on shutdown.
	base context.Context

	mu     sync.Mutex
	active map[string]*activeExam
	rng    *rand.Rand
}

// NewExamService creates a new ExamService. Timers run under base.
func NewExamService(
	base context.Context,
	cfg *config.Config,
	bankService *BankService,
	results ExamResultStore,
	stats StatisticsStore,
	mistakes ExamMistakeRecorder,
	store kvstore.Store,
	m *metrics.Metrics,
	log zerolog.Logger,
) *ExamService {
	log = log.With().Str("component", "exam_service").Logger()
	if err := exam.DefaultBlueprint.Validate(); err != nil {
		log.Warn().Err(err).Msg("Exam blueprint does not add up to its maximum score")
	}
	return &ExamService{
		cfg:       cfg,
		blueprint: exam.DefaultBlueprint,
		bank:      bankService,
		results:   results,
		stats:     stats,
		mistakes:  mistakes,
		store:     store,
		metrics:   m,
		log:       log,
		base:      base,
		active:    make(map[string]*activeExam),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Availability reports the bank's supply against the blueprint.
func (s *ExamService) Availability() (*ExamAvailability, error) {
	pool, err := s.bank.Pool()
	if err != nil {
		return nil, err
	}
	supply := s.blueprint.Availability(pool.Theory())
	av := &ExamAvailability{
		Ready:           true,
		DurationSeconds: int(s.cfg.ExamDuration / time.Second),
		MaxScore:        s.blueprint.MaxScore,
		PassPercentage:  model.PassPercentage,
		Blocks:          s.blueprint.Blocks,
		Supply:          supply,
	}
	for _, sup := range supply {
		if sup.Available < sup.Required {
			av.Ready = false
		}
	}
	if err := s.blueprint.Validate(); err != nil {
		av.BlueprintWarning = err.Error()
	}
	return av, nil
}

// Start returns the user's running exam or generates a new paper. A session
// saved before a restart is resumed when its questions are still in the bank.
func (s *ExamService) Start(ctx context.Context, userID string) (*exam.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.active[userID]; ok {
		return a.session, nil
	}

	pool, err := s.bank.Pool()
	if err != nil {
		return nil, err
	}

	if sess := s.resume(ctx, userID); sess != nil {
		s.track(userID, sess)
		s.metrics.ExamResumed()
		return sess, nil
	}

	paper, err := s.blueprint.Generate(pool.Theory(), s.rng)
	if err != nil {
		return nil, err
	}
	sess := exam.NewSession(userID, paper, exam.Options{
		Duration:   s.cfg.ExamDuration,
		OnFinalize: s.finalize,
	})
	s.track(userID, sess)
	s.metrics.ExamStarted()
	s.Save(ctx, sess)

	s.log.Info().Str("user_id", userID).Str("session_id", sess.ID()).Msg("Exam started")
	return sess, nil
}

// track registers sess and starts its timer. Callers hold s.mu.
func (s *ExamService) track(userID string, sess *exam.Session) {
	s.active[userID] = &activeExam{
		session: sess,
		timer:   exam.StartTimer(s.base, sess, exam.TickInterval),
	}
}

func (s *ExamService) resume(ctx context.Context, userID string) *exam.Session {
	var snap exam.Snapshot
	ok, err := s.store.Get(ctx, config.CacheKey.ActiveExamKey(userID), &snap)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("In-flight exam unreadable")
		return nil
	}
	if !ok {
		return nil
	}

	lookup := func(id string) (*model.TheoryQuestion, bool) {
		q, ok := s.bank.Question(id)
		if !ok {
			return nil, false
		}
		tq, ok := q.(*model.TheoryQuestion)
		return tq, ok
	}
	sess, err := exam.Restore(&snap, lookup, exam.Options{OnFinalize: s.finalize})
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("In-flight exam discarded")
		_ = s.store.Remove(ctx, config.CacheKey.ActiveExamKey(userID))
		return nil
	}
	s.log.Info().Str("user_id", userID).Str("session_id", sess.ID()).Msg("Exam resumed")
	return sess
}

// Active returns the user's running exam.
func (s *ExamService) Active(userID string) (*exam.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.active[userID]
	if !ok {
		return nil, ErrNoActiveExam
	}
	return a.session, nil
}

// Save writes the in-flight snapshot so the exam survives a restart.
// Failures are logged only.
func (s *ExamService) Save(ctx context.Context, sess *exam.Session) {
	if sess.Phase() != exam.PhaseInProgress {
		return
	}
	ttl := time.Duration(sess.RemainingSeconds())*time.Second + time.Minute
	if err := s.store.Set(ctx, config.CacheKey.ActiveExamKey(sess.UserID()), sess.Snapshot(), ttl); err != nil {
		s.log.Warn().Err(err).Str("user_id", sess.UserID()).Msg("In-flight exam save failed")
	}
}

// Submit submits the user's running exam.
func (s *ExamService) Submit(ctx context.Context, userID string, confirmed bool) (*model.ExamResult, error) {
	sess, err := s.Active(userID)
	if err != nil {
		return nil, err
	}
	return sess.Submit(ctx, exam.SubmitOptions{Confirmed: confirmed})
}

// finalize runs exactly once per session, for manual and automatic
// submission alike.
func (s *ExamService) finalize(ctx context.Context, sess *exam.Session, result *model.ExamResult) {
	log := s.log.With().Str("user_id", result.UserID).Str("result_id", result.ID).Logger()

	s.mu.Lock()
	if a, ok := s.active[result.UserID]; ok && a.session == sess {
		a.timer.Stop()
		delete(s.active, result.UserID)
	}
	s.mu.Unlock()

	if err := s.store.Remove(ctx, config.CacheKey.ActiveExamKey(result.UserID)); err != nil {
		log.Warn().Err(err).Msg("In-flight exam cleanup failed")
	}
	if err := s.results.Create(ctx, result); err != nil {
		log.Error().Err(err).Msg("Exam result save failed")
	}
	// Exams count toward mock_exams_taken only; the question counters
	// belong to practice.
	if err := s.stats.Add(ctx, result.UserID, 0, 0, 1); err != nil {
		log.Warn().Err(err).Msg("Statistics update failed")
	}
	if err := s.mistakes.RecordExam(ctx, result); err != nil {
		log.Warn().Err(err).Msg("Exam mistakes record failed")
	}

	s.metrics.ExamSubmitted(result.AutoSubmitted, result.Percentage())
	log.Info().
		Float64("score", result.TotalScore).
		Bool("auto", result.AutoSubmitted).
		Int("duration", result.Duration).
		Msg("Exam submitted")
}

// Abandon stops the user's running exam without producing a result.
func (s *ExamService) Abandon(ctx context.Context, userID string) {
	s.mu.Lock()
	a, ok := s.active[userID]
	delete(s.active, userID)
	s.mu.Unlock()

	if ok {
		a.timer.Stop()
	}
	if err := s.store.Remove(ctx, config.CacheKey.ActiveExamKey(userID)); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("In-flight exam cleanup failed")
	}
}

// ForgetUser stops the user's in-memory exam on sign-out. The saved snapshot
// is kept so the exam resumes on the next sign-in.
func (s *ExamService) ForgetUser(userID string) {
	s.mu.Lock()
	a, ok := s.active[userID]
	delete(s.active, userID)
	s.mu.Unlock()
	if ok {
		a.timer.Stop()
	}
}

// Result returns one of the user's results.
func (s *ExamService) Result(ctx context.Context, userID, id string) (*ExamResultView, error) {
	res, err := s.results.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return NewExamResultView(res), nil
}

// Results returns a page of the user's results, newest first.
func (s *ExamService) Results(ctx context.Context, userID string, limit, offset int) ([]*ExamResultView, int, error) {
	list, total, err := s.results.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list results: %w", err)
	}
	out := make([]*ExamResultView, len(list))
	for i, res := range list {
		out[i] = NewExamResultView(res)
	}
	return out, total, nil
}

// Review lists the answered-and-wrong questions of a result.
func (s *ExamService) Review(ctx context.Context, userID, id string) ([]ExamReviewItem, error) {
	res, err := s.results.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	items := mistake.ExamReview(res)
	out := make([]ExamReviewItem, len(items))
	for i, it := range items {
		out[i] = ExamReviewItem{ReviewItem: it}
		if q, ok := s.bank.Question(it.QuestionID); ok {
			v := model.NewQuestionView(q, true)
			out[i].Question = &v
		}
	}
	return out, nil
}

// Shutdown stops every timer. In-flight snapshots stay in the store.
func (s *ExamService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, a := range s.active {
		a.timer.Stop()
		delete(s.active, userID)
	}
}

// NewExamResultView derives percentage, pass flag and correct count.
func NewExamResultView(res *model.ExamResult) *ExamResultView {
	return &ExamResultView{
		ExamResult:   res,
		Percentage:   res.Percentage(),
		Passed:       res.Passed(),
		CorrectCount: res.CorrectCount(),
	}
}
