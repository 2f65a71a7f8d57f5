package mistake

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitrainer/trainer-backend/internal/model"
)

type memRepo struct {
	mu   sync.Mutex
	recs map[string]model.MistakeRecord
}

func newMemRepo() *memRepo { return &memRepo{recs: map[string]model.MistakeRecord{}} }

func (m *memRepo) FindByQuestion(_ context.Context, userID, questionID string) (*model.MistakeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.UserID == userID && r.QuestionID == questionID {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) FindByID(_ context.Context, userID, id string) (*model.MistakeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok || r.UserID != userID {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *memRepo) ListByUser(_ context.Context, userID string) ([]*model.MistakeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.MistakeRecord
	for _, r := range m.recs {
		if r.UserID == userID {
			r := r
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptedAt.After(out[j].AttemptedAt) })
	return out, nil
}

func (m *memRepo) Upsert(_ context.Context, rec *model.MistakeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.ID] = *rec
	return nil
}

type lookup map[string]model.Question

func (l lookup) Question(id string) (model.Question, bool) {
	q, ok := l[id]
	return q, ok
}

func newNotebook(repo Repository) *Notebook {
	n := NewNotebook(repo, zerolog.Nop())
	clock := time.Unix(1_700_000_000, 0)
	n.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return n
}

func single(id, key string) *model.TheoryQuestion {
	return &model.TheoryQuestion{
		ID:            id,
		Type:          model.QuestionTypeSingleChoice,
		Options:       []string{"a", "b"},
		CorrectAnswer: model.TextAnswer(key),
	}
}

func TestRecordDeduplicates(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	n := newNotebook(repo)

	first, err := n.Record(ctx, "u1", "q1", model.TextAnswer("a"))
	require.NoError(t, err)
	_, err = n.MarkReviewed(ctx, "u1", first.ID, true)
	require.NoError(t, err)
	_, err = n.SetStatus(ctx, "u1", first.ID, model.MistakeStatusContinued)
	require.NoError(t, err)

	second, err := n.Record(ctx, "u1", "q1", model.TextAnswer("b"))
	require.NoError(t, err)

	assert.Len(t, repo.recs, 1)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.AttemptCount)
	assert.Equal(t, model.TextAnswer("b"), second.UserAnswer)
	assert.Equal(t, model.MistakeTypeWrongAnswer, second.MistakeType)
	assert.Equal(t, model.MistakeStatusReviewing, second.Status)
	assert.False(t, second.Reviewed)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestRecordUnanswered(t *testing.T) {
	n := newNotebook(newMemRepo())

	rec, err := n.Record(context.Background(), "u1", "q1", model.TextAnswer("   "))
	require.NoError(t, err)
	assert.Equal(t, model.MistakeTypeUnanswered, rec.MistakeType)
	assert.False(t, rec.UserAnswer.Present())
}

func TestRecordExam(t *testing.T) {
	n := newNotebook(newMemRepo())
	result := &model.ExamResult{
		UserID:        "u1",
		QuestionOrder: []string{"q1", "q2", "q3"},
		QuestionResults: map[string]model.QuestionResult{
			"q1": {Answer: model.TextAnswer("a"), Correct: true},
			"q2": {Answer: model.TextAnswer("b"), Correct: false},
			"q3": {Correct: false},
		},
	}

	require.NoError(t, n.RecordExam(context.Background(), result))

	recs, err := n.List(context.Background(), "u1", FilterAll)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	types := map[string]model.MistakeType{}
	for _, r := range recs {
		types[r.QuestionID] = r.MistakeType
	}
	assert.Equal(t, model.MistakeTypeWrongAnswer, types["q2"])
	assert.Equal(t, model.MistakeTypeUnanswered, types["q3"])
}

func TestStatusAndFilter(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(newMemRepo())

	a, _ := n.Record(ctx, "u1", "q1", model.TextAnswer("x"))
	_, _ = n.Record(ctx, "u1", "q2", model.TextAnswer("x"))

	_, err := n.SetStatus(ctx, "u1", a.ID, "forgotten")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = n.SetStatus(ctx, "u1", "missing", model.MistakeStatusMastered)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = n.SetStatus(ctx, "u1", a.ID, model.MistakeStatusMastered)
	require.NoError(t, err)

	mastered, _ := n.List(ctx, "u1", FilterMastered)
	unmastered, _ := n.List(ctx, "u1", FilterUnmastered)
	all, _ := n.List(ctx, "u1", FilterAll)
	assert.Len(t, mastered, 1)
	assert.Len(t, unmastered, 1)
	assert.Len(t, all, 2)

	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)
	_, err = ParseFilter("recent")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestReplayDefaultsToUnmasteredInOrder(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(newMemRepo())
	questions := lookup{"q1": single("q1", "a"), "q2": single("q2", "a"), "q3": single("q3", "a")}

	r1, _ := n.Record(ctx, "u1", "q1", model.TextAnswer("b"))
	_, _ = n.Record(ctx, "u1", "q2", model.TextAnswer("b"))
	_, _ = n.Record(ctx, "u1", "q3", model.TextAnswer("b"))
	_, _ = n.Record(ctx, "u1", "gone", model.TextAnswer("b"))
	_, err := n.SetStatus(ctx, "u1", r1.ID, model.MistakeStatusMastered)
	require.NoError(t, err)

	replay, err := n.StartReplay(ctx, "u1", nil, questions)
	require.NoError(t, err)
	require.Equal(t, 2, replay.Len())

	rec, _, ok := replay.Current()
	require.True(t, ok)
	assert.Equal(t, "q3", rec.QuestionID, "most recent first")

	_, err = replay.Submit(ctx, model.Answer{})
	assert.ErrorIs(t, err, ErrEmptyAnswer)

	out, err := replay.Submit(ctx, model.TextAnswer("a"))
	require.NoError(t, err)
	assert.True(t, out.Correct)
	assert.Equal(t, model.MistakeStatusMastered, out.Record.Status)
	assert.True(t, out.Record.Reviewed)
	assert.False(t, out.Finished)

	out, err = replay.Submit(ctx, model.TextAnswer("b"))
	require.NoError(t, err)
	assert.False(t, out.Correct)
	assert.Equal(t, model.MistakeStatusReinforced, out.Record.Status)
	assert.True(t, out.Record.Reviewed)
	assert.True(t, out.Finished)

	assert.True(t, replay.Finished())
	_, err = replay.Submit(ctx, model.TextAnswer("a"))
	assert.ErrorIs(t, err, ErrReplayFinished)
	_, _, ok = replay.Current()
	assert.False(t, ok)
}

func TestReplayHonoursCallerSubset(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(newMemRepo())
	questions := lookup{"q1": single("q1", "a"), "q2": single("q2", "a")}

	r1, _ := n.Record(ctx, "u1", "q1", model.TextAnswer("b"))
	r2, _ := n.Record(ctx, "u1", "q2", model.TextAnswer("b"))

	replay, err := n.StartReplay(ctx, "u1", []string{r1.ID, r2.ID}, questions)
	require.NoError(t, err)
	rec, _, _ := replay.Current()
	assert.Equal(t, "q1", rec.QuestionID)

	_, err = n.StartReplay(ctx, "u2", []string{r1.ID}, questions)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExamReviewSkipsUnanswered(t *testing.T) {
	result := &model.ExamResult{
		QuestionOrder: []string{"q1", "q2", "q3", "q4"},
		QuestionResults: map[string]model.QuestionResult{
			"q1": {Answer: model.TextAnswer("a"), Correct: true},
			"q2": {Answer: model.SelectionAnswer(), Correct: false},
			"q3": {Answer: model.TextAnswer("b"), Correct: false},
			"q4": {Correct: false},
		},
	}

	items := ExamReview(result)
	require.Len(t, items, 1)
	assert.Equal(t, "q3", items[0].QuestionID)
	assert.Equal(t, 2, items[0].Index)
}
