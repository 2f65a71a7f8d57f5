// Package mistake keeps the per-user mistake notebook: one record per
// question the user got wrong or skipped, with a review lifecycle.
package mistake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aitrainer/trainer-backend/internal/model"
)

var (
	ErrNotFound       = errors.New("mistake not found")
	ErrInvalidStatus  = errors.New("invalid mistake status")
	ErrInvalidFilter  = errors.New("invalid mistake filter")
	ErrEmptyAnswer    = errors.New("answer is empty")
	ErrReplayFinished = errors.New("reinforcement replay finished")
)

// Repository persists mistake records. At most one record exists per
// (user, question).
type Repository interface {
	FindByQuestion(ctx context.Context, userID, questionID string) (*model.MistakeRecord, error)
	FindByID(ctx context.Context, userID, id string) (*model.MistakeRecord, error)
	// ListByUser returns the user's records, most recently attempted first.
	ListByUser(ctx context.Context, userID string) ([]*model.MistakeRecord, error)
	Upsert(ctx context.Context, rec *model.MistakeRecord) error
}

// Filter selects notebook entries by mastery.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterUnmastered Filter = "unmastered"
	FilterMastered   Filter = "mastered"
)

// ParseFilter reads a filter, defaulting to FilterAll for the empty string.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterUnmastered, FilterMastered:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
}

func (f Filter) match(rec *model.MistakeRecord) bool {
	switch f {
	case FilterMastered:
		return rec.Status == model.MistakeStatusMastered
	case FilterUnmastered:
		return rec.Status != model.MistakeStatusMastered
	default:
		return true
	}
}

// Notebook records and updates mistakes.
type Notebook struct {
	repo Repository
	log  zerolog.Logger
	now  func() time.Time

	// serializes read-modify-write of a record within this process
	mu sync.Mutex
}

// NewNotebook creates a Notebook.
func NewNotebook(repo Repository, log zerolog.Logger) *Notebook {
	return &Notebook{
		repo: repo,
		log:  log.With().Str("component", "mistake_notebook").Logger(),
		now:  time.Now,
	}
}

// Record creates or refreshes the mistake for questionID. An empty answer is
// recorded as unanswered. The newest answer replaces the stored one, the
// attempt count increments and the review lifecycle starts over.
func (n *Notebook) Record(ctx context.Context, userID, questionID string, answer model.Answer) (*model.MistakeRecord, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	rec, err := n.repo.FindByQuestion(ctx, userID, questionID)
	switch {
	case errors.Is(err, ErrNotFound):
		rec = &model.MistakeRecord{
			ID:         uuid.New().String(),
			UserID:     userID,
			QuestionID: questionID,
			CreatedAt:  now,
		}
	case err != nil:
		return nil, fmt.Errorf("find mistake: %w", err)
	}

	rec.MistakeType = model.MistakeTypeWrongAnswer
	if answer.IsEmpty() {
		rec.MistakeType = model.MistakeTypeUnanswered
		answer = model.Answer{}
	}
	rec.UserAnswer = answer
	rec.AttemptCount++
	rec.AttemptedAt = now
	rec.Reviewed = false
	rec.Status = model.MistakeStatusReviewing
	rec.UpdatedAt = now

	if err := n.repo.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("save mistake: %w", err)
	}
	return rec, nil
}

// RecordExam files every incorrect or unanswered question of an exam result.
func (n *Notebook) RecordExam(ctx context.Context, result *model.ExamResult) error {
	var errs []error
	for _, id := range result.QuestionOrder {
		qr, ok := result.QuestionResults[id]
		if !ok || qr.Correct {
			continue
		}
		if _, err := n.Record(ctx, result.UserID, id, qr.Answer); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetStatus applies an explicit status transition.
func (n *Notebook) SetStatus(ctx context.Context, userID, id string, status model.MistakeStatus) (*model.MistakeRecord, error) {
	switch status {
	case model.MistakeStatusReviewing, model.MistakeStatusMastered,
		model.MistakeStatusContinued, model.MistakeStatusReinforced:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return n.update(ctx, userID, id, func(rec *model.MistakeRecord) {
		rec.Status = status
	})
}

// MarkReviewed sets the reviewed flag. It does not touch the status.
func (n *Notebook) MarkReviewed(ctx context.Context, userID, id string, reviewed bool) (*model.MistakeRecord, error) {
	return n.update(ctx, userID, id, func(rec *model.MistakeRecord) {
		rec.Reviewed = reviewed
	})
}

// List returns the user's mistakes matching f.
func (n *Notebook) List(ctx context.Context, userID string, f Filter) ([]*model.MistakeRecord, error) {
	all, err := n.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list mistakes: %w", err)
	}
	out := make([]*model.MistakeRecord, 0, len(all))
	for _, rec := range all {
		if f.match(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Get returns one mistake.
func (n *Notebook) Get(ctx context.Context, userID, id string) (*model.MistakeRecord, error) {
	return n.repo.FindByID(ctx, userID, id)
}

func (n *Notebook) update(ctx context.Context, userID, id string, apply func(*model.MistakeRecord)) (*model.MistakeRecord, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	rec, err := n.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	apply(rec)
	rec.UpdatedAt = n.now()
	if err := n.repo.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("save mistake: %w", err)
	}
	return rec, nil
}
