package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aitrainer/trainer-backend/internal/bank"
	"github.com/aitrainer/trainer-backend/internal/metrics"
	"github.com/aitrainer/trainer-backend/internal/model"
	"github.com/aitrainer/trainer-backend/internal/practice"
)

var (
	ErrBankNotLoaded   = errors.New("question bank not loaded")
	ErrUnknownCategory = errors.New("unknown category")
)

const (
	// OperationalKeyPrefix scopes practice keys of operational categories.
	OperationalKeyPrefix = "operational:"
	// OperationalDrillKey is the shuffled drill over every operational question.
	OperationalDrillKey = OperationalKeyPrefix + "drill"
)

// BankLoader produces a normalized snapshot.
type BankLoader interface {
	Load(ctx context.Context) (*bank.Snapshot, bank.Origin, error)
}

// BankStatus describes the loaded bank.
type BankStatus struct {
	Origin      bank.Origin `json:"origin"`
	LoadedAt    time.Time   `json:"loaded_at"`
	Categories  int         `json:"categories"`
	Theory      int         `json:"theory_questions"`
	Operational int         `json:"operational_questions"`
}

// CategoryGroups splits the category listing by section.
type CategoryGroups struct {
	Theoretical []model.CategoryListing `json:"theoretical"`
	Operational []model.CategoryListing `json:"operational"`
}

// BankService holds the current question pool and swaps it on reload.
type BankService struct {
	loader  BankLoader
	metrics *metrics.Metrics
	log     zerolog.Logger

	mu     sync.RWMutex
	pool   *bank.Pool
	status BankStatus
}

// NewBankService creates a new BankService. Call Load before serving.
func NewBankService(loader BankLoader, m *metrics.Metrics, log zerolog.Logger) *BankService {
	return &BankService{
		loader:  loader,
		metrics: m,
		log:     log.With().Str("component", "bank_service").Logger(),
	}
}

// Load (re)loads the bank. The previous pool keeps serving if loading fails.
func (s *BankService) Load(ctx context.Context) (BankStatus, error) {
	snap, origin, err := s.loader.Load(ctx)
	if err != nil {
		return BankStatus{}, err
	}

	pool := bank.NewPool(snap)
	status := BankStatus{
		Origin:      origin,
		LoadedAt:    time.Now(),
		Categories:  len(snap.Categories),
		Theory:      len(snap.TheoryQuestions),
		Operational: len(snap.CodeQuestions),
	}

	s.mu.Lock()
	s.pool = pool
	s.status = status
	s.mu.Unlock()

	s.metrics.BankLoaded(string(origin))
	s.log.Info().
		Str("origin", string(origin)).
		Int("categories", status.Categories).
		Int("theory", status.Theory).
		Int("operational", status.Operational).
		Msg("Question bank loaded")
	return status, nil
}

// Pool returns the current pool.
func (s *BankService) Pool() (*bank.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return nil, ErrBankNotLoaded
	}
	return s.pool, nil
}

// Status describes the current pool.
func (s *BankService) Status() BankStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Version identifies the loaded pool; it changes on every successful load.
// Empty until the first load.
func (s *BankService) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return ""
	}
	return strconv.FormatInt(s.status.LoadedAt.UnixNano(), 36)
}

// Categories lists categories grouped by section.
func (s *BankService) Categories() (CategoryGroups, error) {
	pool, err := s.Pool()
	if err != nil {
		return CategoryGroups{}, err
	}
	groups := CategoryGroups{
		Theoretical: []model.CategoryListing{},
		Operational: []model.CategoryListing{},
	}
	for _, l := range pool.Listing() {
		if l.Section == model.SectionOperational {
			groups.Operational = append(groups.Operational, l)
		} else {
			groups.Theoretical = append(groups.Theoretical, l)
		}
	}
	return groups, nil
}

// Question looks a question up in the current pool.
func (s *BankService) Question(id string) (model.Question, bool) {
	pool, err := s.Pool()
	if err != nil {
		return nil, false
	}
	return pool.Question(id)
}

// PracticeSet resolves a practice key to its questions and start options.
// Theory categories use their id as key; operational categories are
// prefixed with "operational:" and OperationalDrillKey covers all of them.
func (s *BankService) PracticeSet(categoryKey string) ([]model.Question, practice.Options, error) {
	pool, err := s.Pool()
	if err != nil {
		return nil, practice.Options{}, err
	}

	if categoryKey == OperationalDrillKey {
		return pool.AllOperational(), practice.Options{Shuffle: true, RestoreRemoteState: true}, nil
	}
	if id, ok := strings.CutPrefix(categoryKey, OperationalKeyPrefix); ok {
		if _, found := pool.Category(id); !found {
			return nil, practice.Options{}, ErrUnknownCategory
		}
		return pool.OperationalQuestions(id), practice.Options{RestoreRemoteState: true}, nil
	}
	if _, found := pool.Category(categoryKey); !found {
		return nil, practice.Options{}, ErrUnknownCategory
	}
	return pool.TheoryQuestions(categoryKey), practice.Options{}, nil
}
