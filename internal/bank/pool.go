package bank

import "github.com/aitrainer/trainer-backend/internal/model"

// Pool indexes a Snapshot for lookups. It is read-only once built.
type Pool struct {
	snap        *Snapshot
	byID        map[string]model.Question
	theoryByCat map[string][]model.Question
	codeByCat   map[string][]model.Question
	categories  map[string]model.Category
}

// NewPool indexes snap.
func NewPool(snap *Snapshot) *Pool {
	if snap == nil {
		snap = &Snapshot{}
	}
	p := &Pool{
		snap:        snap,
		byID:        make(map[string]model.Question, len(snap.TheoryQuestions)+len(snap.CodeQuestions)),
		theoryByCat: map[string][]model.Question{},
		codeByCat:   map[string][]model.Question{},
		categories:  make(map[string]model.Category, len(snap.Categories)),
	}
	for _, c := range snap.Categories {
		p.categories[c.ID] = c
	}
	for _, q := range snap.TheoryQuestions {
		p.byID[q.ID] = q
		p.theoryByCat[q.CategoryID] = append(p.theoryByCat[q.CategoryID], q)
	}
	for _, q := range snap.CodeQuestions {
		p.byID[q.ID] = q
		p.codeByCat[q.CategoryID] = append(p.codeByCat[q.CategoryID], q)
	}
	return p
}

// Snapshot returns the underlying snapshot.
func (p *Pool) Snapshot() *Snapshot { return p.snap }

// Question looks a question up by id.
func (p *Pool) Question(id string) (model.Question, bool) {
	q, ok := p.byID[id]
	return q, ok
}

// Category looks a category up by id.
func (p *Pool) Category(id string) (model.Category, bool) {
	c, ok := p.categories[id]
	return c, ok
}

// TheoryQuestions returns the theory questions of a category in bank order.
func (p *Pool) TheoryQuestions(categoryID string) []model.Question {
	return p.theoryByCat[categoryID]
}

// OperationalQuestions returns the code questions of a category in bank order.
func (p *Pool) OperationalQuestions(categoryID string) []model.Question {
	return p.codeByCat[categoryID]
}

// AllOperational returns every code question in bank order.
func (p *Pool) AllOperational() []model.Question {
	out := make([]model.Question, 0, len(p.snap.CodeQuestions))
	for _, q := range p.snap.CodeQuestions {
		out = append(out, q)
	}
	return out
}

// Theory returns every theory question in bank order.
func (p *Pool) Theory() []*model.TheoryQuestion {
	return p.snap.TheoryQuestions
}

// Listing returns every category with its section and question count.
// A category is operational when it only holds code questions.
func (p *Pool) Listing() []model.CategoryListing {
	out := make([]model.CategoryListing, 0, len(p.snap.Categories))
	for _, c := range p.snap.Categories {
		theory := len(p.theoryByCat[c.ID])
		code := len(p.codeByCat[c.ID])
		l := model.CategoryListing{Category: c, Section: model.SectionTheoretical, QuestionCount: theory}
		if theory == 0 && code > 0 {
			l.Section = model.SectionOperational
			l.QuestionCount = code
		}
		out = append(out, l)
	}
	return out
}
