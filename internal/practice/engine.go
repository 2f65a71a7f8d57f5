// Package practice runs untimed practice sessions over a category.
//
// Every mutation is written through to the local store and mirrored to the
// remote store. Remote failures are logged and never reach the caller.
package practice

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aitrainer/trainer-backend/internal/model"
)

var (
	ErrNoQuestions     = errors.New("category has no questions")
	ErrEmptyAnswer     = errors.New("answer is empty")
	ErrAlreadyAnswered = errors.New("question already answered")
	ErrIndexOutOfRange = errors.New("question index out of range")
)

// Key identifies a practice session.
type Key struct {
	UserID      string
	CategoryKey string
}

// LocalStore holds the full progress state on the serving side.
type LocalStore interface {
	Load(ctx context.Context, key Key) (*model.ProgressState, bool, error)
	Save(ctx context.Context, state *model.ProgressState) error
	Delete(ctx context.Context, key Key) error
}

// RemoteStore mirrors the session to the durable store.
type RemoteStore interface {
	Load(ctx context.Context, key Key) (*model.PracticeRecord, bool, error)
	Save(ctx context.Context, rec *model.PracticeRecord) error
	Delete(ctx context.Context, key Key) error
}

// Recorder receives every graded submission (statistics, mistakes).
type Recorder interface {
	RecordAttempt(ctx context.Context, key Key, q model.Question, a model.Answer, correct bool)
}

// Options tune how a session is started.
type Options struct {
	// Shuffle randomizes the order of a fresh session.
	Shuffle bool
	// RestoreRemoteState adopts the full remote state instead of only its
	// current-question pointer.
	RestoreRemoteState bool
}

// Engine creates sessions bound to a set of stores.
type Engine struct {
	local    LocalStore
	remote   RemoteStore
	recorder Recorder
	log      zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewEngine creates an Engine. remote and recorder may be nil.
func NewEngine(local LocalStore, remote RemoteStore, recorder Recorder, log zerolog.Logger) *Engine {
	return &Engine{
		local:    local,
		remote:   remote,
		recorder: recorder,
		log:      log.With().Str("component", "practice_engine").Logger(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// Source names which resolver produced the starting state.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
	SourceFresh  Source = "fresh"
)

type resolver struct {
	source  Source
	resolve func(ctx context.Context) (*model.ProgressState, bool)
}

// Start resumes or creates the session for key over questions. Resolution
// order is remote, then local, then a fresh session; the first hit wins.
func (e *Engine) Start(ctx context.Context, key Key, questions []model.Question, opts Options) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	s := &Session{
		engine:    e,
		key:       key,
		questions: make(map[string]model.Question, len(questions)),
	}
	for _, q := range questions {
		s.questions[q.QuestionID()] = q
	}

	fresh := e.freshState(key, questions, opts.Shuffle)
	chain := []resolver{
		{SourceRemote, func(ctx context.Context) (*model.ProgressState, bool) {
			return e.resolveRemote(ctx, key, s, fresh, opts)
		}},
		{SourceLocal, func(ctx context.Context) (*model.ProgressState, bool) {
			return e.resolveLocal(ctx, key, s)
		}},
		{SourceFresh, func(context.Context) (*model.ProgressState, bool) {
			return fresh, true
		}},
	}

	for _, r := range chain {
		state, ok := r.resolve(ctx)
		if !ok {
			continue
		}
		s.state = state
		s.source = r.source
		break
	}

	s.persist(ctx)
	return s, nil
}

func (e *Engine) resolveRemote(ctx context.Context, key Key, s *Session, fresh *model.ProgressState, opts Options) (*model.ProgressState, bool) {
	if e.remote == nil {
		return nil, false
	}
	rec, ok, err := e.remote.Load(ctx, key)
	if err != nil {
		e.log.Warn().Err(err).Str("user_id", key.UserID).Str("category", key.CategoryKey).Msg("Remote practice load failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	if opts.RestoreRemoteState && rec.State != nil {
		if state, ok := s.reconcile(rec.State); ok {
			return state, true
		}
	}

	state := cloneState(fresh)
	for i, id := range state.QuestionIDs {
		if id == rec.CurrentQuestionID {
			state.CurrentIndex = i
			break
		}
	}
	return state, true
}

func (e *Engine) resolveLocal(ctx context.Context, key Key, s *Session) (*model.ProgressState, bool) {
	state, ok, err := e.local.Load(ctx, key)
	if err != nil {
		e.log.Warn().Err(err).Str("user_id", key.UserID).Str("category", key.CategoryKey).Msg("Local practice load failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return s.reconcile(state)
}

func (e *Engine) freshState(key Key, questions []model.Question, shuffle bool) *model.ProgressState {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.QuestionID()
	}
	if shuffle {
		e.mu.Lock()
		e.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		e.mu.Unlock()
	}
	return &model.ProgressState{
		UserID:                  key.UserID,
		CategoryKey:             key.CategoryKey,
		QuestionIDs:             ids,
		SeenQuestionIDs:         []string{},
		QuestionStatusMap:       map[string]model.AnswerStatus{},
		QuestionAnswers:         map[string]model.Answer{},
		QuestionShowExplanation: map[string]bool{},
	}
}

func cloneState(src *model.ProgressState) *model.ProgressState {
	dst := *src
	dst.QuestionIDs = append([]string(nil), src.QuestionIDs...)
	dst.SeenQuestionIDs = append([]string{}, src.SeenQuestionIDs...)
	dst.QuestionStatusMap = make(map[string]model.AnswerStatus, len(src.QuestionStatusMap))
	for k, v := range src.QuestionStatusMap {
		dst.QuestionStatusMap[k] = v
	}
	dst.QuestionAnswers = make(map[string]model.Answer, len(src.QuestionAnswers))
	for k, v := range src.QuestionAnswers {
		dst.QuestionAnswers[k] = v
	}
	dst.QuestionShowExplanation = make(map[string]bool, len(src.QuestionShowExplanation))
	for k, v := range src.QuestionShowExplanation {
		dst.QuestionShowExplanation[k] = v
	}
	return &dst
}
