package exam

import (
	"fmt"
	"time"

	"github.com/aitrainer/trainer-backend/internal/model"
)

// Snapshot is the serializable in-flight state of a running session.
type Snapshot struct {
	ID           string                  `json:"id"`
	UserID       string                  `json:"user_id"`
	Blueprint    Blueprint               `json:"blueprint"`
	QuestionIDs  []string                `json:"question_ids"`
	StartedAt    time.Time               `json:"started_at"`
	Duration     time.Duration           `json:"duration"`
	Index        int                     `json:"index"`
	Answers      map[string]model.Answer `json:"answers"`
	Draft        *model.Answer           `json:"draft,omitempty"`
	Flagged      []string                `json:"flagged"`
	Visited      []string                `json:"visited"`
	Acknowledged []int                   `json:"acknowledged"`
}

// Snapshot captures the session, including an uncommitted draft.
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		ID:          s.id,
		UserID:      s.userID,
		Blueprint:   s.paper.Blueprint,
		QuestionIDs: make([]string, len(s.paper.Questions)),
		StartedAt:   s.started,
		Duration:    s.duration,
		Index:       s.index,
		Answers:     make(map[string]model.Answer, len(s.answers)),
	}
	for i, q := range s.paper.Questions {
		snap.QuestionIDs[i] = q.ID
	}
	for id, a := range s.answers {
		snap.Answers[id] = a
	}
	if s.draft != nil {
		d := *s.draft
		snap.Draft = &d
	}
	for id := range s.flagged {
		snap.Flagged = append(snap.Flagged, id)
	}
	for id := range s.visited {
		snap.Visited = append(snap.Visited, id)
	}
	for sec := range s.acknowledged {
		snap.Acknowledged = append(snap.Acknowledged, sec)
	}
	return snap
}

// TheoryLookup resolves theory questions by id.
type TheoryLookup func(id string) (*model.TheoryQuestion, bool)

// Restore rebuilds a running session from snap. The clock keeps running from
// the original start time. It fails when a question is no longer in the bank
// or the question list does not fit the blueprint.
func Restore(snap *Snapshot, lookup TheoryLookup, opts Options) (*Session, error) {
	if len(snap.QuestionIDs) != snap.Blueprint.QuestionCount() {
		return nil, fmt.Errorf("snapshot has %d questions, blueprint needs %d", len(snap.QuestionIDs), snap.Blueprint.QuestionCount())
	}

	paper := &Paper{Blueprint: snap.Blueprint, Questions: make([]*model.TheoryQuestion, len(snap.QuestionIDs))}
	for i, id := range snap.QuestionIDs {
		q, ok := lookup(id)
		if !ok {
			return nil, fmt.Errorf("question %s no longer in bank", id)
		}
		paper.Questions[i] = q
	}
	start := 0
	for _, blk := range snap.Blueprint.Blocks {
		paper.Sections = append(paper.Sections, Section{Block: blk, Start: start})
		start += blk.Count
	}

	opts.Duration = snap.Duration
	s := NewSession(snap.UserID, paper, opts)
	s.id = snap.ID
	s.started = snap.StartedAt
	if snap.Index >= 0 && snap.Index < len(paper.Questions) {
		s.index = snap.Index
	}
	for id, a := range snap.Answers {
		s.setAnswer(id, a)
	}
	if snap.Draft != nil {
		d := *snap.Draft
		s.draft = &d
	}
	for _, id := range snap.Flagged {
		s.flagged[id] = true
	}
	for _, id := range snap.Visited {
		s.visited[id] = true
	}
	for _, sec := range snap.Acknowledged {
		s.acknowledged[sec] = true
	}
	s.visit()
	return s, nil
}
