// Package exam runs timed mock exams: paper generation, navigation,
// flags, section gates, countdown and scoring.
package exam

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/aitrainer/trainer-backend/internal/model"
)

// Block is one section of the paper: a question type, how many questions of
// it are drawn, and what each is worth.
type Block struct {
	Type   model.QuestionType `json:"type"`
	Title  string             `json:"title"`
	Count  int                `json:"count"`
	Points float64            `json:"points"`
}

// Total is the block's full score.
func (b Block) Total() float64 { return float64(b.Count) * b.Points }

// Blueprint describes the composition of a paper.
type Blueprint struct {
	Blocks   []Block `json:"blocks"`
	MaxScore float64 `json:"max_score"`
}

// DefaultBlueprint is the standard mock exam: 40 true-false, 140 single
// choice and 10 multiple choice questions for 100 points.
var DefaultBlueprint = Blueprint{
	Blocks: []Block{
		{Type: model.QuestionTypeTrueFalse, Title: "判断题", Count: 40, Points: 0.5},
		{Type: model.QuestionTypeSingleChoice, Title: "单选题", Count: 140, Points: 0.5},
		{Type: model.QuestionTypeMultipleChoice, Title: "多选题", Count: 10, Points: 1},
	},
	MaxScore: 100,
}

// QuestionCount is the number of questions on a paper.
func (b Blueprint) QuestionCount() int {
	n := 0
	for _, blk := range b.Blocks {
		n += blk.Count
	}
	return n
}

// PointSum is the score of a perfect paper.
func (b Blueprint) PointSum() float64 {
	sum := 0.0
	for _, blk := range b.Blocks {
		sum += blk.Total()
	}
	return sum
}

// Validate reports a blueprint whose blocks do not add up to MaxScore.
func (b Blueprint) Validate() error {
	if math.Abs(b.PointSum()-b.MaxScore) > 1e-9 {
		return fmt.Errorf("blueprint points sum to %.1f, expected %.1f", b.PointSum(), b.MaxScore)
	}
	return nil
}

// Points returns the per-question points of a type, 0 when it is not on the paper.
func (b Blueprint) Points(t model.QuestionType) float64 {
	for _, blk := range b.Blocks {
		if blk.Type == t {
			return blk.Points
		}
	}
	return 0
}

// Shortfall is one question type the bank cannot cover.
type Shortfall struct {
	Type      model.QuestionType `json:"type"`
	Title     string             `json:"title"`
	Available int                `json:"available"`
	Required  int                `json:"required"`
}

// InsufficientBankError lists every type the bank is short on.
type InsufficientBankError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientBankError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		parts[i] = fmt.Sprintf("%s: %d/%d", s.Type, s.Available, s.Required)
	}
	return "insufficient question bank (" + strings.Join(parts, ", ") + ")"
}

// Availability is the per-type supply of the bank against the blueprint.
func (b Blueprint) Availability(pool []*model.TheoryQuestion) []Shortfall {
	counts := map[model.QuestionType]int{}
	for _, q := range pool {
		counts[q.Type]++
	}
	out := make([]Shortfall, len(b.Blocks))
	for i, blk := range b.Blocks {
		out[i] = Shortfall{Type: blk.Type, Title: blk.Title, Available: counts[blk.Type], Required: blk.Count}
	}
	return out
}

// Check returns an InsufficientBankError when the pool cannot fill every block.
func (b Blueprint) Check(pool []*model.TheoryQuestion) error {
	var short []Shortfall
	for _, a := range b.Availability(pool) {
		if a.Available < a.Required {
			short = append(short, a)
		}
	}
	if len(short) > 0 {
		return &InsufficientBankError{Shortfalls: short}
	}
	return nil
}

// Section locates a block on a generated paper.
type Section struct {
	Block
	Start int `json:"start"`
}

// Paper is a generated exam: questions in block order.
type Paper struct {
	Blueprint Blueprint               `json:"blueprint"`
	Questions []*model.TheoryQuestion `json:"questions"`
	Sections  []Section               `json:"sections"`
}

// Generate draws a paper from pool, sampling each block without replacement.
func (b Blueprint) Generate(pool []*model.TheoryQuestion, rng *rand.Rand) (*Paper, error) {
	if err := b.Check(pool); err != nil {
		return nil, err
	}

	byType := map[model.QuestionType][]*model.TheoryQuestion{}
	for _, q := range pool {
		byType[q.Type] = append(byType[q.Type], q)
	}

	p := &Paper{Blueprint: b, Questions: make([]*model.TheoryQuestion, 0, b.QuestionCount())}
	for _, blk := range b.Blocks {
		candidates := append([]*model.TheoryQuestion(nil), byType[blk.Type]...)
		rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

		p.Sections = append(p.Sections, Section{Block: blk, Start: len(p.Questions)})
		p.Questions = append(p.Questions, candidates[:blk.Count]...)
	}
	return p, nil
}

// SectionAt returns the index of the section containing question i.
func (p *Paper) SectionAt(i int) int {
	for s := len(p.Sections) - 1; s >= 0; s-- {
		if i >= p.Sections[s].Start {
			return s
		}
	}
	return 0
}
