package model

import "time"

// QuestionType enumerates the kinds of questions in the bank.
type QuestionType string

const (
	QuestionTypeTrueFalse      QuestionType = "trueFalse"
	QuestionTypeSingleChoice   QuestionType = "singleChoice"
	QuestionTypeMultipleChoice QuestionType = "multipleChoice"
	QuestionTypeCodeCompletion QuestionType = "codeCompletion"
)

// Section separates theory questions from operational (code) questions.
type Section string

const (
	SectionTheoretical Section = "theoretical"
	SectionOperational Section = "operational"
)

// Category groups questions for practice.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Question is implemented by TheoryQuestion and CodeQuestion.
type Question interface {
	QuestionID() string
	QuestionCategoryID() string
	QuestionType() QuestionType
	QuestionSection() Section
	QuestionText() string
	QuestionExplanation() string
}

// TheoryQuestion is a true-false, single-choice or multiple-choice question.
// CorrectAnswer is the zero Answer when the source carried no usable answer.
type TheoryQuestion struct {
	ID            string       `json:"id"`
	CategoryID    string       `json:"category_id"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Explanation   string       `json:"explanation"`
	Options       []string     `json:"options"`
	CorrectAnswer Answer       `json:"correct_answer"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (q *TheoryQuestion) QuestionID() string          { return q.ID }
func (q *TheoryQuestion) QuestionCategoryID() string  { return q.CategoryID }
func (q *TheoryQuestion) QuestionType() QuestionType  { return q.Type }
func (q *TheoryQuestion) QuestionSection() Section    { return SectionTheoretical }
func (q *TheoryQuestion) QuestionText() string        { return q.Text }
func (q *TheoryQuestion) QuestionExplanation() string { return q.Explanation }

// CodeQuestion is an operational code-completion question.
type CodeQuestion struct {
	ID              string    `json:"id"`
	CategoryID      string    `json:"category_id"`
	Text            string    `json:"text"`
	Explanation     string    `json:"explanation"`
	CodeTemplate    string    `json:"code_template"`
	CorrectKeywords []string  `json:"correct_keywords"`
	CorrectCode     string    `json:"correct_code"`
	DataFiles       []string  `json:"data_files,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (q *CodeQuestion) QuestionID() string          { return q.ID }
func (q *CodeQuestion) QuestionCategoryID() string  { return q.CategoryID }
func (q *CodeQuestion) QuestionType() QuestionType  { return QuestionTypeCodeCompletion }
func (q *CodeQuestion) QuestionSection() Section    { return SectionOperational }
func (q *CodeQuestion) QuestionText() string        { return q.Text }
func (q *CodeQuestion) QuestionExplanation() string { return q.Explanation }

// QuestionView is the client-facing rendering of a question. Answer keys are
// only filled in once the question has been revealed.
type QuestionView struct {
	ID              string       `json:"id"`
	CategoryID      string       `json:"category_id"`
	Type            QuestionType `json:"type"`
	Section         Section      `json:"section"`
	Text            string       `json:"text"`
	Options         []string     `json:"options,omitempty"`
	CodeTemplate    string       `json:"code_template,omitempty"`
	DataFiles       []string     `json:"data_files,omitempty"`
	Explanation     string       `json:"explanation,omitempty"`
	CorrectAnswer   *Answer      `json:"correct_answer,omitempty"`
	CorrectKeywords []string     `json:"correct_keywords,omitempty"`
	CorrectCode     string       `json:"correct_code,omitempty"`
}

// NewQuestionView renders q. With reveal set, explanation and answer keys are included.
func NewQuestionView(q Question, reveal bool) QuestionView {
	v := QuestionView{
		ID:         q.QuestionID(),
		CategoryID: q.QuestionCategoryID(),
		Type:       q.QuestionType(),
		Section:    q.QuestionSection(),
		Text:       q.QuestionText(),
	}
	switch t := q.(type) {
	case *TheoryQuestion:
		v.Options = t.Options
		if reveal {
			v.Explanation = t.Explanation
			if t.CorrectAnswer.Present() {
				ans := t.CorrectAnswer
				v.CorrectAnswer = &ans
			}
		}
	case *CodeQuestion:
		v.CodeTemplate = t.CodeTemplate
		v.DataFiles = t.DataFiles
		if reveal {
			v.Explanation = t.Explanation
			v.CorrectKeywords = t.CorrectKeywords
			v.CorrectCode = t.CorrectCode
		}
	}
	return v
}

// QuestionBankRow is one row of the remote question_bank relation.
type QuestionBankRow struct {
	QuestionID    string     `json:"question_id"`
	Type          *string    `json:"type"`
	Category      *string    `json:"category"`
	Question      *string    `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer *string    `json:"correct_answer"`
	Explanation   *string    `json:"explanation"`
	CreatedAt     *time.Time `json:"created_at"`
}

// CategoryListing is a category with its question count.
type CategoryListing struct {
	Category
	Section       Section `json:"section"`
	QuestionCount int     `json:"question_count"`
}
