// Package grading decides whether an answer is correct for a question.
package grading

import (
	"strings"
	"unicode"

	"github.com/aitrainer/trainer-backend/internal/model"
)

// Check grades a against q. It never fails: malformed or mismatched answers
// are simply incorrect.
func Check(q model.Question, a model.Answer) bool {
	switch t := q.(type) {
	case *model.TheoryQuestion:
		return CheckTheory(t, a)
	case *model.CodeQuestion:
		return CheckCode(t, a)
	default:
		return false
	}
}

// CheckTheory grades a theory question. Multiple choice compares selections
// as sets; the other types compare text exactly.
func CheckTheory(q *model.TheoryQuestion, a model.Answer) bool {
	if !q.CorrectAnswer.Present() || !a.Present() {
		return false
	}

	if q.Type == model.QuestionTypeMultipleChoice {
		if a.Kind != model.AnswerKindSelection || q.CorrectAnswer.Kind != model.AnswerKindSelection {
			return false
		}
		return q.CorrectAnswer.Equal(a)
	}

	if a.Kind != model.AnswerKindText || q.CorrectAnswer.Kind != model.AnswerKindText {
		return false
	}
	return a.Text == q.CorrectAnswer.Text
}

// CheckCode grades a code-completion answer: every keyword must occur in the
// submitted code once both are lower-cased and stripped of whitespace.
func CheckCode(q *model.CodeQuestion, a model.Answer) bool {
	if a.Kind != model.AnswerKindText {
		return false
	}
	code := squash(a.Text)
	for _, kw := range q.CorrectKeywords {
		if !strings.Contains(code, squash(kw)) {
			return false
		}
	}
	return true
}

func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
