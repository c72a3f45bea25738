// Package formversion holds the shared model of the form versioning engine:
// merged EHC/EXA templates, their questions and constraints, and the answers
// an application stores against them.
package formversion

import (
	"strings"
	"time"
)

// NameAndVersion identifies one template revision. The zero value means
// "no template", which is how an EHC without an EXA is represented.
type NameAndVersion struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// IsZero reports whether no template is referenced.
func (n NameAndVersion) IsZero() bool {
	return strings.TrimSpace(n.Name) == "" && strings.TrimSpace(n.Version) == ""
}

func (n NameAndVersion) String() string {
	if n.IsZero() {
		return "<none>"
	}
	return n.Name + "@" + n.Version
}

// FormVersion is one entry of the version history of an EHC.
type FormVersion struct {
	Version     string     `json:"version" yaml:"version"`
	Status      FormStatus `json:"status" yaml:"status"`
	PrivateCode string     `json:"private_code,omitempty" yaml:"private_code,omitempty"`
}

// MergedForm is the identity of a resolved EHC+EXA pair.
type MergedForm struct {
	EHC         NameAndVersion `json:"ehc" yaml:"ehc"`
	EXA         NameAndVersion `json:"exa" yaml:"exa"`
	EHCStatus   FormStatus     `json:"ehc_status" yaml:"ehc_status"`
	EXAStatus   FormStatus     `json:"exa_status,omitempty" yaml:"exa_status,omitempty"`
	PrivateCode string         `json:"private_code,omitempty" yaml:"private_code,omitempty"`
}

// IsOffline reports whether the EHC of the merged form has been taken offline.
func (m MergedForm) IsOffline() bool {
	return m.EHCStatus == FormStatusOffline
}

// AnswerConstraint is a declarative rule attached to a question. Rule is
// interpreted by the validator selected by Type, Message is for display only.
type AnswerConstraint struct {
	Type    AnswerConstraintType `json:"type" yaml:"type"`
	Rule    string               `json:"rule,omitempty" yaml:"rule,omitempty"`
	Message string               `json:"message,omitempty" yaml:"message,omitempty"`
}

// QuestionOption is a selectable answer. Options can be grouped.
type QuestionOption struct {
	Text    string           `json:"text" yaml:"text"`
	Options []QuestionOption `json:"options,omitempty" yaml:"options,omitempty"`
}

// MergedFormQuestion is a question as it appears in one merged template.
type MergedFormQuestion struct {
	FormName       string             `json:"form_name" yaml:"form_name"`
	QuestionID     int64              `json:"question_id" yaml:"question_id"`
	FormQuestionID int64              `json:"form_question_id" yaml:"form_question_id"`
	QuestionOrder  int                `json:"question_order" yaml:"question_order"`
	PageNumber     int                `json:"page_number" yaml:"page_number"`
	Text           string             `json:"text,omitempty" yaml:"text,omitempty"`
	QuestionScope  QuestionScope      `json:"question_scope,omitempty" yaml:"question_scope,omitempty"`
	Constraints    []AnswerConstraint `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Options        []QuestionOption   `json:"options,omitempty" yaml:"options,omitempty"`
}

// OptionTexts flattens the option tree into a list of texts.
func (q MergedFormQuestion) OptionTexts() []string {
	var out []string
	var walk func([]QuestionOption)
	walk = func(opts []QuestionOption) {
		for _, opt := range opts {
			if opt.Text != "" {
				out = append(out, opt.Text)
			}
			walk(opt.Options)
		}
	}
	walk(q.Options)
	return out
}

// Clone returns a copy that shares no slices with q.
func (q MergedFormQuestion) Clone() MergedFormQuestion {
	cp := q
	if q.Constraints != nil {
		cp.Constraints = append([]AnswerConstraint(nil), q.Constraints...)
	}
	cp.Options = cloneOptions(q.Options)
	return cp
}

func cloneOptions(opts []QuestionOption) []QuestionOption {
	if opts == nil {
		return nil
	}
	out := make([]QuestionOption, len(opts))
	for i, opt := range opts {
		out[i] = QuestionOption{Text: opt.Text, Options: cloneOptions(opt.Options)}
	}
	return out
}

// MergedFormPage is one page of a merged template.
//
// PageOccurrences is zero for a page that cannot repeat, a positive maximum
// for a bounded repeatable page and UnboundedOccurrences otherwise.
type MergedFormPage struct {
	PageNumber      int                  `json:"page_number" yaml:"page_number"`
	Title           string               `json:"title,omitempty" yaml:"title,omitempty"`
	PageOccurrences int                  `json:"page_occurrences,omitempty" yaml:"page_occurrences,omitempty"`
	Questions       []MergedFormQuestion `json:"questions" yaml:"questions"`
}

// UnboundedOccurrences marks a page that may repeat without limit.
const UnboundedOccurrences = -1

// Repeatable reports whether the page may be answered more than once.
func (p MergedFormPage) Repeatable() bool {
	return p.PageOccurrences != 0
}

// Clone returns a deep copy of the page.
func (p MergedFormPage) Clone() MergedFormPage {
	cp := p
	if p.Questions != nil {
		cp.Questions = make([]MergedFormQuestion, len(p.Questions))
		for i, q := range p.Questions {
			cp.Questions[i] = q.Clone()
		}
	}
	return cp
}

// ApplicationFormItem is one stored answer. It is keyed by its Slot within
// FormName; Text, QuestionOrder, PageNumber and QuestionScope are copied from
// the question when the answer is written.
type ApplicationFormItem struct {
	FormName       string        `json:"form_name" yaml:"form_name"`
	QuestionID     int64         `json:"question_id" yaml:"question_id"`
	FormQuestionID int64         `json:"form_question_id" yaml:"form_question_id"`
	PageOccurrence int           `json:"page_occurrence" yaml:"page_occurrence"`
	Answer         *string       `json:"answer" yaml:"answer"`
	Text           string        `json:"text,omitempty" yaml:"text,omitempty"`
	QuestionOrder  int           `json:"question_order" yaml:"question_order"`
	PageNumber     int           `json:"page_number" yaml:"page_number"`
	QuestionScope  QuestionScope `json:"question_scope,omitempty" yaml:"question_scope,omitempty"`
}

// Slot returns the answer slot the item occupies.
func (i ApplicationFormItem) Slot() Slot {
	return Slot{FormQuestionID: i.FormQuestionID, PageOccurrence: i.PageOccurrence}
}

// AnswerValue returns the answer, or "" when it is null.
func (i ApplicationFormItem) AnswerValue() string {
	if i.Answer == nil {
		return ""
	}
	return *i.Answer
}

// Consignment is a certificate level group of answers inside an application.
type Consignment struct {
	ID            string                `json:"id" yaml:"id"`
	ResponseItems []ApplicationFormItem `json:"response_items,omitempty" yaml:"response_items,omitempty"`
}

// Application is the part of an export application the engine reads and rewrites.
type Application struct {
	ID            string                `json:"id" yaml:"id"`
	EHC           NameAndVersion        `json:"ehc" yaml:"ehc"`
	EXA           NameAndVersion        `json:"exa" yaml:"exa"`
	ResponseItems []ApplicationFormItem `json:"response_items,omitempty" yaml:"response_items,omitempty"`
	Consignments  []Consignment         `json:"consignments,omitempty" yaml:"consignments,omitempty"`
	SubmittedAt   *time.Time            `json:"submitted_at,omitempty" yaml:"submitted_at,omitempty"`
}

// Clone returns a copy of the application that shares no slices with a.
func (a Application) Clone() Application {
	cp := a
	cp.ResponseItems = CloneItems(a.ResponseItems)
	if a.Consignments != nil {
		cp.Consignments = make([]Consignment, len(a.Consignments))
		for i, c := range a.Consignments {
			cp.Consignments[i] = Consignment{ID: c.ID, ResponseItems: CloneItems(c.ResponseItems)}
		}
	}
	if a.SubmittedAt != nil {
		at := *a.SubmittedAt
		cp.SubmittedAt = &at
	}
	return cp
}

// ApplicationContext is what validation needs to know about the application.
type ApplicationContext struct {
	ApplicationID string
	SubmittedAt   *time.Time
}

// Context returns the validation view of the application.
func (a Application) Context() ApplicationContext {
	return ApplicationContext{ApplicationID: a.ID, SubmittedAt: a.SubmittedAt}
}

// String is a helper to build a non-null answer.
func String(s string) *string {
	return &s
}
