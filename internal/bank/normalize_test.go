package bank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitrainer/trainer-backend/internal/model"
)

func theoryRec(id, typ, category, answer string, options ...string) RawTheoryRecord {
	return RawTheoryRecord{ID: id, Type: typ, Category: category, Question: "Q " + id, Options: options, Answer: answer}.withDefaults()
}

func TestNormalizeSplitsMixedCategory(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	theory := []RawTheoryRecord{
		theoryRec("1", "single_choice", "Machine Learning", "A", "x", "y"),
		theoryRec("2", "multiple_choice", "Machine Learning", "AB", "x", "y", "z"),
		theoryRec("3", "tf", "Machine Learning", "T", "正确", "错误"),
		theoryRec("4", "single_choice", "Ethics", "B", "p", "q"),
	}

	snap := Normalize(theory, nil, now)

	ids := make([]string, 0, len(snap.Categories))
	for _, c := range snap.Categories {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"machine-learning-single", "machine-learning-multiple", "ethics"}, ids)
	assert.Equal(t, "Machine Learning - 单选题", snap.Categories[0].Name)
	assert.Equal(t, "done_all", snap.Categories[1].Icon)
	assert.Equal(t, "book", snap.Categories[2].Icon)

	require.Len(t, snap.TheoryQuestions, 4)
	assert.Equal(t, "machine-learning-single", snap.TheoryQuestions[0].CategoryID)
	assert.Equal(t, "machine-learning-multiple", snap.TheoryQuestions[1].CategoryID)
	assert.Equal(t, "machine-learning", snap.TheoryQuestions[2].CategoryID)
	assert.Equal(t, "ethics", snap.TheoryQuestions[3].CategoryID)

	assert.True(t, model.SelectionAnswer("x", "y").Equal(snap.TheoryQuestions[1].CorrectAnswer))
	assert.Equal(t, now, snap.TheoryQuestions[0].CreatedAt)
}

func TestNormalizeOperationalCategories(t *testing.T) {
	now := time.Now()
	theory := []RawTheoryRecord{theoryRec("1", "single_choice", "Python", "A", "x")}
	code := []RawCodeRecord{
		{ID: "op1", Category: "Python", Question: "fill", CorrectKeywords: []string{"print("}},
		{ID: "op2", Category: "数据处理", Question: "load"},
	}

	snap := Normalize(theory, code, now)

	require.Len(t, snap.Categories, 2)
	assert.Equal(t, "python", snap.Categories[0].ID)
	assert.Equal(t, "cat-19ce1149", snap.Categories[1].ID)
	assert.Equal(t, "code", snap.Categories[1].Icon)

	assert.Equal(t, "python", snap.CodeQuestions[0].CategoryID)
	assert.Equal(t, "cat-19ce1149", snap.CodeQuestions[1].CategoryID)
	assert.Equal(t, []string{}, snap.CodeQuestions[1].CorrectKeywords)
}

func TestTheoryFromMapFallbackKeys(t *testing.T) {
	rec := TheoryFromMap(map[string]any{
		"question_id":    "q9",
		"correct_answer": "B",
		"options":        []any{"a", "b"},
	})

	assert.Equal(t, "q9", rec.ID)
	assert.Equal(t, "General", rec.Category)
	assert.Equal(t, "single_choice", rec.Type)
	assert.Equal(t, "B", rec.Answer)

	code := CodeFromMap(map[string]any{"id": "op1", "title": "Load CSV", "correctKeywords": []any{"read_csv"}})
	assert.Equal(t, "Load CSV", code.Question)
	assert.Equal(t, []string{"read_csv"}, code.CorrectKeywords)
}

func TestToBankRowKeepsArrayAnswers(t *testing.T) {
	rec := TheoryFromMap(map[string]any{
		"id":       "m1",
		"type":     "multiple_choice",
		"category": "Python",
		"question": "Pick two",
		"options":  []any{"alpha", "beta", "gamma"},
		"answer":   []any{"A", "C"},
	})

	row := ToBankRow(rec)
	require.NotNil(t, row.CorrectAnswer)
	assert.Equal(t, `["A","C"]`, *row.CorrectAnswer)
	assert.Nil(t, row.Explanation)

	snap := Normalize([]RawTheoryRecord{FromBankRow(row)}, nil, time.Now())
	require.Len(t, snap.TheoryQuestions, 1)
	assert.True(t, snap.TheoryQuestions[0].CorrectAnswer.Equal(model.SelectionAnswer("alpha", "gamma")))
}
