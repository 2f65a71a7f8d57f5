package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitrainer/trainer-backend/internal/bank"
	"github.com/aitrainer/trainer-backend/internal/config"
	"github.com/aitrainer/trainer-backend/internal/model"
	"github.com/aitrainer/trainer-backend/internal/practice"
	"github.com/aitrainer/trainer-backend/internal/repository"
)

// ─── Fakes ─────────────────────────────────────────────────────────────────

type fakeLoader struct {
	snap *bank.Snapshot
	err  error
}

func (f *fakeLoader) Load(context.Context) (*bank.Snapshot, bank.Origin, error) {
	return f.snap, bank.OriginAssets, f.err
}

// memKV is an in-memory kvstore.Store that round-trips values through JSON.
type memKV struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func newMemKV() *memKV { return &memKV{docs: map[string][]byte{}} }

func (m *memKV) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.docs[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *memKV) Set(_ context.Context, key string, v any, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *memKV) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.docs, k)
	}
	return nil
}

type memQueue struct {
	jobs []any
}

func (q *memQueue) Push(_ context.Context, v any) error {
	q.jobs = append(q.jobs, v)
	return nil
}

type noSessions struct{ deleted int }

func (s *noSessions) Get(context.Context, string, string) (*model.PracticeRecord, error) {
	return nil, repository.ErrNotFound
}

func (s *noSessions) Delete(context.Context, string, string) error {
	s.deleted++
	return nil
}

type memStats struct {
	attempted, correct, exams int
}

func (s *memStats) Get(_ context.Context, userID string) (*model.Statistics, error) {
	return &model.Statistics{UserID: userID, TotalQuestionsAttempted: s.attempted, TotalQuestionsCorrect: s.correct}, nil
}

func (s *memStats) Add(_ context.Context, _ string, attempted, correct, exams int) error {
	s.attempted += attempted
	s.correct += correct
	s.exams += exams
	return nil
}

type memMistakes struct {
	recorded []string
}

func (m *memMistakes) Record(_ context.Context, userID, questionID string, answer model.Answer) (*model.MistakeRecord, error) {
	m.recorded = append(m.recorded, questionID)
	return &model.MistakeRecord{UserID: userID, QuestionID: questionID, UserAnswer: answer, MistakeType: model.MistakeTypeWrongAnswer}, nil
}

type memResults struct {
	saved []*model.ExamResult
}

func (m *memResults) Create(_ context.Context, res *model.ExamResult) error {
	m.saved = append(m.saved, res)
	return nil
}

func (m *memResults) GetByID(context.Context, string, string) (*model.ExamResult, error) {
	return nil, repository.ErrNotFound
}

func (m *memResults) ListByUser(context.Context, string, int, int) ([]*model.ExamResult, int, error) {
	return m.saved, len(m.saved), nil
}

type memExamMistakes struct {
	results []string
}

func (m *memExamMistakes) RecordExam(_ context.Context, res *model.ExamResult) error {
	m.results = append(m.results, res.ID)
	return nil
}

// sampleSnapshot has one split theory category, one true-false category and
// one operational category.
func sampleSnapshot() *bank.Snapshot {
	theory := []bank.RawTheoryRecord{
		{ID: "s1", Type: "single_choice", Category: "Data Prep", Question: "pick", Options: []string{"a", "b"}, Answer: "A"},
		{ID: "m1", Type: "multiple_choice", Category: "Data Prep", Question: "pick many", Options: []string{"a", "b", "c"}, Answer: "AB"},
		{ID: "t1", Type: "true_false", Category: "Ops", Question: "yes?", Options: []string{"对", "错"}, Answer: "T"},
		{ID: "t2", Type: "true_false", Category: "Ops", Question: "no?", Options: []string{"对", "错"}, Answer: "F"},
	}
	code := []bank.RawCodeRecord{
		{ID: "c1", Category: "Pandas", Question: "read", CorrectKeywords: []string{"read_csv"}},
		{ID: "c2", Category: "Pandas", Question: "drop", CorrectKeywords: []string{"dropna"}},
	}
	return bank.Normalize(theory, code, time.Now())
}

func loadedBank(t *testing.T) *BankService {
	t.Helper()
	svc := NewBankService(&fakeLoader{snap: sampleSnapshot()}, nil, zerolog.Nop())
	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	return svc
}

// ─── Bank ──────────────────────────────────────────────────────────────────

func TestBankServiceBeforeLoad(t *testing.T) {
	svc := NewBankService(&fakeLoader{err: errors.New("all sources failed")}, nil, zerolog.Nop())

	_, err := svc.Categories()
	assert.ErrorIs(t, err, ErrBankNotLoaded)

	_, err = svc.Load(context.Background())
	assert.Error(t, err)
	_, err = svc.Pool()
	assert.ErrorIs(t, err, ErrBankNotLoaded)
}

func TestBankServiceCategoriesBySection(t *testing.T) {
	svc := loadedBank(t)

	groups, err := svc.Categories()
	require.NoError(t, err)

	var theoryIDs []string
	for _, c := range groups.Theoretical {
		theoryIDs = append(theoryIDs, c.ID)
	}
	assert.ElementsMatch(t, []string{"data-prep-single", "data-prep-multiple", "ops"}, theoryIDs)
	require.Len(t, groups.Operational, 1)
	assert.Equal(t, "pandas", groups.Operational[0].ID)
	assert.Equal(t, 2, groups.Operational[0].QuestionCount)

	st := svc.Status()
	assert.Equal(t, bank.OriginAssets, st.Origin)
	assert.Equal(t, 4, st.Theory)
	assert.Equal(t, 2, st.Operational)
}

func TestBankServicePracticeSet(t *testing.T) {
	svc := loadedBank(t)

	qs, opts, err := svc.PracticeSet("ops")
	require.NoError(t, err)
	assert.Len(t, qs, 2)
	assert.False(t, opts.Shuffle)
	assert.False(t, opts.RestoreRemoteState)

	qs, opts, err = svc.PracticeSet(OperationalKeyPrefix + "pandas")
	require.NoError(t, err)
	assert.Len(t, qs, 2)
	assert.True(t, opts.RestoreRemoteState)

	qs, opts, err = svc.PracticeSet(OperationalDrillKey)
	require.NoError(t, err)
	assert.Len(t, qs, 2)
	assert.True(t, opts.Shuffle)

	_, _, err = svc.PracticeSet("nope")
	assert.ErrorIs(t, err, ErrUnknownCategory)
	_, _, err = svc.PracticeSet(OperationalKeyPrefix + "nope")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestBankServiceFailedReloadKeepsPool(t *testing.T) {
	loader := &fakeLoader{snap: sampleSnapshot()}
	svc := NewBankService(loader, nil, zerolog.Nop())
	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	loader.err = errors.New("remote down")
	_, err = svc.Load(context.Background())
	require.Error(t, err)

	_, ok := svc.Question("t1")
	assert.True(t, ok, "previous pool keeps serving")
}

// ─── Practice ──────────────────────────────────────────────────────────────

type practiceRig struct {
	svc      *PracticeService
	kv       *memKV
	sync     *memQueue
	attempts *memQueue
	sessions *noSessions
	stats    *memStats
	mistakes *memMistakes
}

func newPracticeRig(t *testing.T) *practiceRig {
	t.Helper()
	r := &practiceRig{
		kv:       newMemKV(),
		sync:     &memQueue{},
		attempts: &memQueue{},
		sessions: &noSessions{},
		stats:    &memStats{},
		mistakes: &memMistakes{},
	}
	r.svc = NewPracticeService(loadedBank(t), practice.NewKVLocalStore(r.kv), r.sessions, r.sync,
		r.stats, r.mistakes, r.attempts, nil, zerolog.Nop())
	return r
}

func TestPracticeServiceRequiresStart(t *testing.T) {
	r := newPracticeRig(t)

	_, err := r.svc.View("u1", "ops")
	assert.ErrorIs(t, err, ErrPracticeNotStarted)
	_, err = r.svc.Submit(context.Background(), "u1", "ops", model.TextAnswer("对"))
	assert.ErrorIs(t, err, ErrPracticeNotStarted)

	_, err = r.svc.Start(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestPracticeServiceWrongAnswerIsRecorded(t *testing.T) {
	r := newPracticeRig(t)
	ctx := context.Background()

	start, err := r.svc.Start(ctx, "u1", "ops")
	require.NoError(t, err)
	assert.Equal(t, practice.SourceFresh, start.Source)
	assert.Equal(t, 2, start.Total)

	// Answer the opposite of the key.
	wrong := "对"
	if start.Question.ID == "t1" {
		wrong = "错"
	}
	out, err := r.svc.Submit(ctx, "u1", "ops", model.TextAnswer(wrong))
	require.NoError(t, err)
	assert.False(t, out.Correct)
	assert.True(t, out.View.ShowExplanation)

	assert.Equal(t, 1, r.stats.attempted)
	assert.Equal(t, 0, r.stats.correct)
	assert.Equal(t, []string{start.Question.ID}, r.mistakes.recorded)
	require.Len(t, r.attempts.jobs, 1)
	attempt := r.attempts.jobs[0].(*model.PracticeAttempt)
	assert.Equal(t, "ops", attempt.CategoryKey)
	assert.False(t, attempt.IsCorrect)
	assert.NotEmpty(t, r.sync.jobs, "progress is mirrored through the sync queue")

	_, err = r.svc.Submit(ctx, "u1", "ops", model.TextAnswer(wrong))
	assert.ErrorIs(t, err, practice.ErrAlreadyAnswered)
}

func TestPracticeServiceResumesAfterForget(t *testing.T) {
	r := newPracticeRig(t)
	ctx := context.Background()

	_, err := r.svc.Start(ctx, "u1", "ops")
	require.NoError(t, err)
	view, err := r.svc.Next(ctx, "u1", "ops")
	require.NoError(t, err)
	require.Equal(t, 1, view.Index)

	r.svc.ForgetUser("u1")
	_, err = r.svc.View("u1", "ops")
	require.ErrorIs(t, err, ErrPracticeNotStarted)

	start, err := r.svc.Start(ctx, "u1", "ops")
	require.NoError(t, err)
	assert.Equal(t, practice.SourceLocal, start.Source)
	assert.Equal(t, 1, start.Index)

	view, err = r.svc.Reset(ctx, "u1", "ops")
	require.NoError(t, err)
	assert.Equal(t, 0, view.Index)
}

// ─── Exam ──────────────────────────────────────────────────────────────────

func TestExamFinalizeCountsOnlyTheExam(t *testing.T) {
	stats := &memStats{attempted: 4, correct: 3}
	results := &memResults{}
	mistakes := &memExamMistakes{}
	kv := newMemKV()
	ctx := context.Background()

	svc := NewExamService(ctx, &config.Config{ExamDuration: time.Hour}, loadedBank(t),
		results, stats, mistakes, kv, nil, zerolog.Nop())
	require.NoError(t, kv.Set(ctx, config.CacheKey.ActiveExamKey("u1"), map[string]string{"id": "x"}, 0))

	result := &model.ExamResult{
		ID:             "r1",
		UserID:         "u1",
		TotalQuestions: 3,
		TotalScore:     1,
		MaxScore:       100,
		QuestionResults: map[string]model.QuestionResult{
			"t1": {Answer: model.TextAnswer("对"), Correct: true},
			"t2": {Answer: model.TextAnswer("对"), Correct: false},
			"s1": {Correct: false},
		},
	}
	svc.finalize(ctx, nil, result)

	assert.Equal(t, 1, stats.exams)
	assert.Equal(t, 4, stats.attempted, "exam questions stay out of the practice counters")
	assert.Equal(t, 3, stats.correct)
	assert.InDelta(t, 75.0, (&model.Statistics{TotalQuestionsAttempted: stats.attempted, TotalQuestionsCorrect: stats.correct}).Accuracy(), 1e-9)

	require.Len(t, results.saved, 1)
	assert.Equal(t, []string{"r1"}, mistakes.results)
	found, err := kv.Get(ctx, config.CacheKey.ActiveExamKey("u1"), &map[string]string{})
	require.NoError(t, err)
	assert.False(t, found, "in-flight state is cleared")
}

// ─── Auth ──────────────────────────────────────────────────────────────────

func signed(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: "s3cret"}, nil, nil, zerolog.Nop())
	now := time.Now()

	valid := Claims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{
		ID: "jti-1", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}}
	claims, err := svc.ValidateToken(signed(t, "s3cret", valid))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "jti-1", claims.ID)

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	_, err = svc.ValidateToken(signed(t, "s3cret", expired))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = svc.ValidateToken(signed(t, "other", valid))
	assert.Error(t, err)

	anonymous := valid
	anonymous.UserID = ""
	_, err = svc.ValidateToken(signed(t, "s3cret", anonymous))
	assert.Error(t, err)
}

func TestAuthListeners(t *testing.T) {
	svc := NewAuthService(&config.Config{}, nil, nil, zerolog.Nop())

	var got []AuthEvent
	unsubscribe := svc.OnAuthStateChange(func(_ context.Context, ev AuthEvent, userID string) {
		assert.Equal(t, "u1", userID)
		got = append(got, ev)
	})

	svc.emit(context.Background(), AuthEventSignedIn, "u1")
	svc.emit(context.Background(), AuthEventSignedOut, "u1")
	unsubscribe()
	svc.emit(context.Background(), AuthEventSignedIn, "u1")

	assert.Equal(t, []AuthEvent{AuthEventSignedIn, AuthEventSignedOut}, got)
}
