package exam

import "github.com/aitrainer/trainer-backend/internal/model"

// ItemStatus is one answer-card entry.
type ItemStatus struct {
	Index      int                `json:"index"`
	QuestionID string             `json:"question_id"`
	Status     model.AnswerStatus `json:"status"`
}

// SectionView describes the current section.
type SectionView struct {
	Index       int                `json:"index"`
	Type        model.QuestionType `json:"type"`
	Title       string             `json:"title"`
	Count       int                `json:"count"`
	Points      float64            `json:"points"`
	TotalPoints float64            `json:"total_points"`
	GatePending bool               `json:"gate_pending"`
	StartIndex  int                `json:"start_index"`
}

// View is a read-only rendering of the session for clients. It never
// carries answer keys.
type View struct {
	SessionID        string             `json:"session_id"`
	Phase            Phase              `json:"phase"`
	Index            int                `json:"index"`
	Total            int                `json:"total"`
	RemainingSeconds int                `json:"remaining_seconds"`
	Question         model.QuestionView `json:"question"`
	Answer           *model.Answer      `json:"answer,omitempty"`
	Flagged          bool               `json:"flagged"`
	Unanswered       int                `json:"unanswered"`
	Section          SectionView        `json:"section"`
	Items            []ItemStatus       `json:"items"`
}

// View renders the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.currentID()
	secIdx := s.paper.SectionAt(s.index)
	sec := s.paper.Sections[secIdx]

	v := View{
		SessionID:        s.id,
		Phase:            s.phase,
		Index:            s.index,
		Total:            len(s.paper.Questions),
		RemainingSeconds: s.RemainingSeconds(),
		Question:         model.NewQuestionView(s.paper.Questions[s.index], false),
		Flagged:          s.flagged[id],
		Unanswered:       s.unanswered(),
		Section: SectionView{
			Index:       secIdx,
			Type:        sec.Type,
			Title:       sec.Title,
			Count:       sec.Count,
			Points:      sec.Points,
			TotalPoints: sec.Total(),
			GatePending: s.gatePending(),
			StartIndex:  sec.Start,
		},
		Items: s.items(),
	}
	if s.draft != nil {
		d := *s.draft
		v.Answer = &d
	} else if a, ok := s.answers[id]; ok {
		v.Answer = &a
	}
	return v
}

// Items returns the answer card.
func (s *Session) Items() []ItemStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items()
}

// items ranks flagged over answered over visited over unseen.
func (s *Session) items() []ItemStatus {
	out := make([]ItemStatus, len(s.paper.Questions))
	for i, q := range s.paper.Questions {
		st := model.AnswerStatusUnseen
		switch {
		case s.flagged[q.ID]:
			st = model.AnswerStatusFlagged
		case !s.answers[q.ID].IsEmpty():
			st = model.AnswerStatusAnswered
		case s.visited[q.ID]:
			st = model.AnswerStatusUnanswered
		}
		out[i] = ItemStatus{Index: i, QuestionID: q.ID, Status: st}
	}
	return out
}
