package bank

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aitrainer/trainer-backend/internal/model"
)

// ResolveAnswer turns a stored answer into option texts.
//
// Tokens are interpreted as: T/F for true-false questions (first and second
// option), a single letter A-Z (positional option), an exact option text, or
// otherwise the literal token. Multiple-choice strings are split on commas,
// or per character when there is no comma.
func ResolveAnswer(raw any, options []string, qt model.QuestionType) model.Answer {
	switch v := raw.(type) {
	case nil:
		return model.Answer{}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return model.Answer{}
		}
		if bracketed(s) {
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				if _, isString := parsed.(string); !isString {
					return resolveParsed(parsed, s, options, qt)
				}
			}
		}
		return resolveString(s, options, qt)
	default:
		return resolveParsed(v, "", options, qt)
	}
}

func resolveParsed(v any, literal string, options []string, qt model.QuestionType) model.Answer {
	switch t := v.(type) {
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			items = append(items, fmt.Sprint(item))
		}
		return resolveList(items, options, qt)
	case []string:
		return resolveList(t, options, qt)
	case string:
		return ResolveAnswer(t, options, qt)
	case float64, bool, int, int64:
		return resolveString(fmt.Sprint(t), options, qt)
	default:
		if literal == "" {
			raw, err := json.Marshal(t)
			if err != nil {
				return model.Answer{}
			}
			literal = string(raw)
		}
		return model.TextAnswer(literal)
	}
}

func resolveList(items []string, options []string, qt model.QuestionType) model.Answer {
	mapped := make([]string, 0, len(items))
	for _, item := range items {
		if text, ok := mapToken(item, options, qt); ok && text != "" {
			mapped = append(mapped, text)
		}
	}
	if qt != model.QuestionTypeMultipleChoice && len(mapped) == 1 {
		return model.TextAnswer(mapped[0])
	}
	return model.SelectionAnswer(mapped...)
}

func resolveString(s string, options []string, qt model.QuestionType) model.Answer {
	if qt == model.QuestionTypeMultipleChoice {
		if parts := splitChoices(s); len(parts) > 1 {
			mapped := make([]string, 0, len(parts))
			for _, p := range parts {
				text, ok := mapToken(p, options, qt)
				if !ok {
					text = p
				}
				mapped = append(mapped, text)
			}
			return model.SelectionAnswer(mapped...)
		}
	}

	text, ok := mapToken(s, options, qt)
	if !ok {
		text = s
	}
	if qt == model.QuestionTypeMultipleChoice {
		return model.SelectionAnswer(text)
	}
	return model.TextAnswer(text)
}

// mapToken maps one token to option text. It reports false only for a T/F
// token when there are no options to map it onto.
func mapToken(token string, options []string, qt model.QuestionType) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(token))

	if qt == model.QuestionTypeTrueFalse && (upper == "T" || upper == "F") {
		if len(options) == 0 {
			return "", false
		}
		if upper == "T" || len(options) == 1 {
			return options[0], true
		}
		return options[1], true
	}

	if len(upper) == 1 && upper[0] >= 'A' && upper[0] <= 'Z' {
		if idx := int(upper[0] - 'A'); idx < len(options) {
			return options[idx], true
		}
	}

	trimmed := strings.TrimSpace(token)
	for _, opt := range options {
		if strings.TrimSpace(opt) == trimmed {
			return opt, true
		}
	}
	return token, true
}

func splitChoices(s string) []string {
	var raw []string
	if strings.Contains(s, ",") {
		raw = strings.Split(s, ",")
	} else {
		for _, r := range s {
			raw = append(raw, string(r))
		}
	}
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func bracketed(s string) bool {
	return (strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")) ||
		(strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"))
}
