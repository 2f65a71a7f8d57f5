package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aitrainer/trainer-backend/internal/model"
)

func TestCheckTheory(t *testing.T) {
	single := &model.TheoryQuestion{
		ID:            "q1",
		Type:          model.QuestionTypeSingleChoice,
		Options:       []string{"alpha", "beta", "gamma"},
		CorrectAnswer: model.TextAnswer("beta"),
	}
	multi := &model.TheoryQuestion{
		ID:            "q2",
		Type:          model.QuestionTypeMultipleChoice,
		Options:       []string{"a", "b", "c", "d"},
		CorrectAnswer: model.SelectionAnswer("a", "c"),
	}
	noKey := &model.TheoryQuestion{ID: "q3", Type: model.QuestionTypeTrueFalse}

	tests := []struct {
		name string
		q    *model.TheoryQuestion
		a    model.Answer
		want bool
	}{
		{"single exact", single, model.TextAnswer("beta"), true},
		{"single wrong", single, model.TextAnswer("alpha"), false},
		{"single case sensitive", single, model.TextAnswer("Beta"), false},
		{"single given a selection", single, model.SelectionAnswer("beta"), false},
		{"multi same set any order", multi, model.SelectionAnswer("c", "a"), true},
		{"multi subset", multi, model.SelectionAnswer("a"), false},
		{"multi superset", multi, model.SelectionAnswer("a", "b", "c"), false},
		{"multi given text", multi, model.TextAnswer("a"), false},
		{"absent answer", single, model.Answer{}, false},
		{"absent key", noKey, model.TextAnswer("正确"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckTheory(tt.q, tt.a))
		})
	}
}

func TestCheckCode(t *testing.T) {
	q := &model.CodeQuestion{
		ID:              "op1",
		CorrectKeywords: []string{"import pandas as pd", "pd.read_csv("},
	}

	assert.True(t, Check(q, model.TextAnswer("IMPORT  pandas AS pd\ndf = PD.read_csv ('a.csv')")))
	assert.False(t, Check(q, model.TextAnswer("import pandas as pd")))
	assert.False(t, Check(q, model.SelectionAnswer("import pandas as pd", "pd.read_csv(")))

	empty := &model.CodeQuestion{ID: "op2"}
	assert.True(t, Check(empty, model.TextAnswer("")), "no keywords means any code passes")
}
