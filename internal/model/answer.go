package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AnswerKind tags which half of an Answer is meaningful.
type AnswerKind string

const (
	AnswerKindText      AnswerKind = "text"
	AnswerKindSelection AnswerKind = "selection"
)

// Answer is either free text (a single option, or code) or a selection of
// option texts. The zero value means "no answer".
//
// On the wire a text answer is a JSON string, a selection is a JSON array of
// strings, and the zero value is null.
type Answer struct {
	Kind      AnswerKind
	Text      string
	Selection []string
}

// TextAnswer builds a text answer.
func TextAnswer(s string) Answer {
	return Answer{Kind: AnswerKindText, Text: s}
}

// SelectionAnswer builds a selection answer.
func SelectionAnswer(items ...string) Answer {
	sel := make([]string, len(items))
	copy(sel, items)
	return Answer{Kind: AnswerKindSelection, Selection: sel}
}

// Present reports whether the answer carries a value at all.
func (a Answer) Present() bool {
	return a.Kind == AnswerKindText || a.Kind == AnswerKindSelection
}

// IsEmpty reports whether the answer counts as unanswered: absent, blank
// text, or an empty selection.
func (a Answer) IsEmpty() bool {
	switch a.Kind {
	case AnswerKindText:
		return strings.TrimSpace(a.Text) == ""
	case AnswerKindSelection:
		return len(a.Selection) == 0
	default:
		return true
	}
}

// Display renders the answer for humans; selections are joined with "、".
func (a Answer) Display() string {
	switch a.Kind {
	case AnswerKindText:
		return a.Text
	case AnswerKindSelection:
		return strings.Join(a.Selection, "、")
	default:
		return ""
	}
}

// Equal compares two answers. Selections compare as sets.
func (a Answer) Equal(b Answer) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case AnswerKindText:
		return a.Text == b.Text
	case AnswerKindSelection:
		return sameSet(a.Selection, b.Selection)
	default:
		return true
	}
}

func sameSet(a, b []string) bool {
	x := make(map[string]struct{}, len(a))
	for _, v := range a {
		x[v] = struct{}{}
	}
	y := make(map[string]struct{}, len(b))
	for _, v := range b {
		y[v] = struct{}{}
	}
	if len(x) != len(y) {
		return false
	}
	for v := range x {
		if _, ok := y[v]; !ok {
			return false
		}
	}
	return true
}

// MarshalJSON implements json.Marshaler.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerKindText:
		return json.Marshal(a.Text)
	case AnswerKindSelection:
		if a.Selection == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.Selection)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Answer{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
		return nil
	case '[':
		var items []any
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		sel := make([]string, 0, len(items))
		for _, item := range items {
			if item == nil {
				continue
			}
			sel = append(sel, fmt.Sprint(item))
		}
		*a = SelectionAnswer(sel...)
		return nil
	default:
		return fmt.Errorf("answer must be a string, an array of strings or null, got %s", string(data))
	}
}
