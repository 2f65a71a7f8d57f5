package mistake

import (
	"context"
	"fmt"
	"sync"

	"github.com/aitrainer/trainer-backend/internal/grading"
	"github.com/aitrainer/trainer-backend/internal/model"
)

// QuestionLookup resolves question ids against the bank.
type QuestionLookup interface {
	Question(id string) (model.Question, bool)
}

type replayItem struct {
	record   *model.MistakeRecord
	question model.Question
}

// Replay walks a fixed list of mistakes once, in order. Each submission
// reclassifies the current mistake and advances; there is no wraparound.
type Replay struct {
	notebook *Notebook
	userID   string

	mu    sync.Mutex
	items []replayItem
	index int
}

// ReplayOutcome is the result of one replay submission.
type ReplayOutcome struct {
	Correct  bool                 `json:"correct"`
	Record   *model.MistakeRecord `json:"record"`
	Question model.QuestionView   `json:"question"`
	Finished bool                 `json:"finished"`
}

// StartReplay builds a replay over ids, in the given order, or over every
// non-mastered mistake when ids is empty. Mistakes whose question is no longer
// in the bank are skipped.
func (n *Notebook) StartReplay(ctx context.Context, userID string, ids []string, questions QuestionLookup) (*Replay, error) {
	var records []*model.MistakeRecord
	if len(ids) == 0 {
		var err error
		records, err = n.List(ctx, userID, FilterUnmastered)
		if err != nil {
			return nil, err
		}
	} else {
		for _, id := range ids {
			rec, err := n.repo.FindByID(ctx, userID, id)
			if err != nil {
				return nil, fmt.Errorf("mistake %s: %w", id, err)
			}
			records = append(records, rec)
		}
	}

	r := &Replay{notebook: n, userID: userID}
	for _, rec := range records {
		q, ok := questions.Question(rec.QuestionID)
		if !ok {
			n.log.Warn().Str("question_id", rec.QuestionID).Msg("Mistake question missing from bank, skipped")
			continue
		}
		r.items = append(r.items, replayItem{record: rec, question: q})
	}
	return r, nil
}

// Len is the number of mistakes in the replay.
func (r *Replay) Len() int { return len(r.items) }

// Position is the index of the current mistake; it equals Len once finished.
func (r *Replay) Position() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}

// Finished reports whether every mistake has been answered.
func (r *Replay) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index >= len(r.items)
}

// Current returns the mistake and question in view.
func (r *Replay) Current() (*model.MistakeRecord, model.Question, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index >= len(r.items) {
		return nil, nil, false
	}
	it := r.items[r.index]
	return it.record, it.question, true
}

// Submit grades answer for the current mistake, marks it mastered when
// correct and reinforced otherwise, flags it reviewed and moves on.
func (r *Replay) Submit(ctx context.Context, answer model.Answer) (ReplayOutcome, error) {
	if answer.IsEmpty() {
		return ReplayOutcome{}, ErrEmptyAnswer
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index >= len(r.items) {
		return ReplayOutcome{}, ErrReplayFinished
	}
	it := r.items[r.index]

	correct := grading.Check(it.question, answer)
	status := model.MistakeStatusReinforced
	if correct {
		status = model.MistakeStatusMastered
	}
	rec, err := r.notebook.update(ctx, r.userID, it.record.ID, func(rec *model.MistakeRecord) {
		rec.Status = status
		rec.Reviewed = true
	})
	if err != nil {
		return ReplayOutcome{}, err
	}

	r.items[r.index].record = rec
	r.index++
	return ReplayOutcome{
		Correct:  correct,
		Record:   rec,
		Question: model.NewQuestionView(it.question, true),
		Finished: r.index >= len(r.items),
	}, nil
}
