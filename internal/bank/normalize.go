package bank

import (
	"time"

	"github.com/aitrainer/trainer-backend/internal/model"
)

const (
	iconSingle      = "check_circle"
	iconMultiple    = "done_all"
	iconTheory      = "book"
	iconOperational = "code"
)

// Snapshot is one consistent view of the question bank.
type Snapshot struct {
	Categories      []model.Category        `json:"categories"`
	TheoryQuestions []*model.TheoryQuestion `json:"theory_questions"`
	CodeQuestions   []*model.CodeQuestion   `json:"code_questions"`
	GeneratedAt     time.Time               `json:"generated_at"`
}

// Normalize builds a Snapshot from raw records.
//
// A theory category holding both single-choice and multiple-choice questions
// is split into "{slug}-single" and "{slug}-multiple"; its true-false
// questions keep the unsplit slug. Operational category names that did not
// produce an unsplit theory category get a category of their own.
func Normalize(theory []RawTheoryRecord, code []RawCodeRecord, now time.Time) *Snapshot {
	snap := &Snapshot{
		Categories:      []model.Category{},
		TheoryQuestions: make([]*model.TheoryQuestion, 0, len(theory)),
		CodeQuestions:   make([]*model.CodeQuestion, 0, len(code)),
		GeneratedAt:     now,
	}

	var names []string
	seen := map[string]bool{}
	hasSingle := map[string]bool{}
	hasMultiple := map[string]bool{}
	for _, r := range theory {
		if !seen[r.Category] {
			seen[r.Category] = true
			names = append(names, r.Category)
		}
		switch MapType(r.Type) {
		case model.QuestionTypeSingleChoice:
			hasSingle[r.Category] = true
		case model.QuestionTypeMultipleChoice:
			hasMultiple[r.Category] = true
		}
	}

	idByName := map[string]string{}
	split := map[string]bool{}
	for _, name := range names {
		base := Slugify(name)
		if hasSingle[name] && hasMultiple[name] {
			split[name] = true
			snap.Categories = append(snap.Categories,
				newCategory(base+"-single", name+" - 单选题", iconSingle, now),
				newCategory(base+"-multiple", name+" - 多选题", iconMultiple, now),
			)
			continue
		}
		idByName[name] = base
		snap.Categories = append(snap.Categories, newCategory(base, name, iconTheory, now))
	}

	for _, r := range theory {
		qt := MapType(r.Type)
		categoryID := Slugify(r.Category)
		if split[r.Category] {
			switch qt {
			case model.QuestionTypeSingleChoice:
				categoryID += "-single"
			case model.QuestionTypeMultipleChoice:
				categoryID += "-multiple"
			}
		}

		created := now
		if r.CreatedAt != nil {
			created = *r.CreatedAt
		}
		options := r.Options
		if options == nil {
			options = []string{}
		}

		snap.TheoryQuestions = append(snap.TheoryQuestions, &model.TheoryQuestion{
			ID:            r.ID,
			CategoryID:    categoryID,
			Type:          qt,
			Text:          r.Question,
			Explanation:   r.Explanation,
			Options:       options,
			CorrectAnswer: ResolveAnswer(r.Answer, options, qt),
			CreatedAt:     created,
			UpdatedAt:     created,
		})
	}

	for _, r := range code {
		id, ok := idByName[r.Category]
		if !ok {
			id = Slugify(r.Category)
			idByName[r.Category] = id
			snap.Categories = append(snap.Categories, newCategory(id, r.Category, iconOperational, now))
		}

		keywords := r.CorrectKeywords
		if keywords == nil {
			keywords = []string{}
		}
		snap.CodeQuestions = append(snap.CodeQuestions, &model.CodeQuestion{
			ID:              r.ID,
			CategoryID:      id,
			Text:            r.Question,
			Explanation:     r.Explanation,
			CodeTemplate:    r.CodeTemplate,
			CorrectKeywords: keywords,
			CorrectCode:     r.CorrectCode,
			DataFiles:       r.DataFiles,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	return snap
}

func newCategory(id, name, icon string, now time.Time) model.Category {
	return model.Category{
		ID:          id,
		Name:        name,
		Description: name,
		Icon:        icon,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
