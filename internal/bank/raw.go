package bank

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aitrainer/trainer-backend/internal/model"
)

const (
	defaultCategory = "General"
	defaultType     = "single_choice"
)

// RawTheoryRecord is a theory question as it arrives from either the remote
// table or the bundled asset, before any interpretation.
type RawTheoryRecord struct {
	ID          string
	Type        string
	Category    string
	Question    string
	Options     []string
	Answer      any
	Explanation string
	CreatedAt   *time.Time
}

// RawCodeRecord is an operational question from the bundled asset.
type RawCodeRecord struct {
	ID              string
	Category        string
	Question        string
	Explanation     string
	CodeTemplate    string
	CorrectKeywords []string
	CorrectCode     string
	DataFiles       []string
}

// FromBankRow converts a question_bank row.
func FromBankRow(row model.QuestionBankRow) RawTheoryRecord {
	rec := RawTheoryRecord{
		ID:          row.QuestionID,
		Type:        deref(row.Type),
		Category:    deref(row.Category),
		Question:    deref(row.Question),
		Options:     row.Options,
		Explanation: deref(row.Explanation),
		CreatedAt:   row.CreatedAt,
	}
	if row.CorrectAnswer != nil {
		rec.Answer = *row.CorrectAnswer
	}
	return rec.withDefaults()
}

// TheoryFromMap decodes one element of the theory asset. Keys used by the
// remote table are accepted as fallbacks.
func TheoryFromMap(m map[string]any) RawTheoryRecord {
	rec := RawTheoryRecord{
		ID:          firstString(m, "id", "question_id"),
		Type:        firstString(m, "type"),
		Category:    firstString(m, "category"),
		Question:    firstString(m, "question"),
		Options:     stringSlice(m["options"]),
		Explanation: firstString(m, "explanation"),
	}
	if v, ok := m["answer"]; ok && v != nil {
		rec.Answer = v
	} else if v, ok := m["correct_answer"]; ok {
		rec.Answer = v
	}
	return rec.withDefaults()
}

// ToBankRow renders rec as a question_bank row. Array answers are stored as
// their JSON text so they survive the text column.
func ToBankRow(rec RawTheoryRecord) model.QuestionBankRow {
	row := model.QuestionBankRow{
		QuestionID: rec.ID,
		Type:       optional(rec.Type),
		Category:   optional(rec.Category),
		Question:   optional(rec.Question),
		Options:    rec.Options,
		CreatedAt:  rec.CreatedAt,
	}
	row.Explanation = optional(rec.Explanation)
	switch a := rec.Answer.(type) {
	case nil:
	case string:
		row.CorrectAnswer = optional(a)
	case []any, []string:
		if raw, err := json.Marshal(a); err == nil {
			row.CorrectAnswer = optional(string(raw))
		}
	default:
		row.CorrectAnswer = optional(fmt.Sprint(a))
	}
	return row
}

// CodeFromMap decodes one element of the operational asset.
func CodeFromMap(m map[string]any) RawCodeRecord {
	rec := RawCodeRecord{
		ID:              firstString(m, "id"),
		Category:        firstString(m, "category"),
		Question:        firstString(m, "question", "title"),
		Explanation:     firstString(m, "explanation"),
		CodeTemplate:    firstString(m, "codeTemplate", "code_template"),
		CorrectKeywords: stringSlice(firstValue(m, "correctKeywords", "correct_keywords")),
		CorrectCode:     firstString(m, "correctCode", "correct_code"),
		DataFiles:       stringSlice(firstValue(m, "dataFiles", "data_files")),
	}
	if rec.Category == "" {
		rec.Category = defaultCategory
	}
	return rec
}

func (r RawTheoryRecord) withDefaults() RawTheoryRecord {
	if r.Category == "" {
		r.Category = defaultCategory
	}
	if r.Type == "" {
		r.Type = defaultType
	}
	return r
}

// MapType maps a source type string onto a theory question type. Unknown
// strings fall back to single choice.
func MapType(s string) model.QuestionType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true_false", "truefalse", "tf":
		return model.QuestionTypeTrueFalse
	case "multiple_choice", "multiple", "mcq":
		return model.QuestionTypeMultipleChoice
	default:
		return model.QuestionTypeSingleChoice
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstValue(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// firstString returns the first key holding a non-empty scalar.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64, bool, int, int64:
			s = fmt.Sprint(t)
		default:
			continue
		}
		if s != "" {
			return s
		}
	}
	return ""
}

func stringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}
