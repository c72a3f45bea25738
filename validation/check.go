package validation

import (
	formversion "github.com/goliatone/go-formversion"
)

// Violation is one failed constraint.
type Violation struct {
	FormName       string                           `json:"form_name"`
	QuestionID     int64                            `json:"question_id"`
	FormQuestionID int64                            `json:"form_question_id"`
	PageOccurrence int                              `json:"page_occurrence"`
	Type           formversion.AnswerConstraintType `json:"type"`
	Message        string                           `json:"message,omitempty"`
}

// ValidateQuestion evaluates every constraint of q against answer. A failing
// constraint never stops the remaining ones from being checked.
func (v *Validator) ValidateQuestion(
	app formversion.ApplicationContext,
	answer string,
	q formversion.MergedFormQuestion,
) []Violation {
	return v.validateOccurrence(app, answer, q, 0)
}

func (v *Validator) validateOccurrence(
	app formversion.ApplicationContext,
	answer string,
	q formversion.MergedFormQuestion,
	occurrence int,
) []Violation {
	var out []Violation
	for _, c := range q.Constraints {
		if v.IsValid(app, answer, c, q) {
			continue
		}
		out = append(out, Violation{
			FormName:       q.FormName,
			QuestionID:     q.QuestionID,
			FormQuestionID: q.FormQuestionID,
			PageOccurrence: occurrence,
			Type:           c.Type,
			Message:        c.Message,
		})
	}
	return out
}

// ValidateItems checks stored answers against the questions of a form.
// Items are matched by formQuestionId across every page occurrence; a
// question with no stored answer is checked as blank at occurrence 0, so
// REQUIRED constraints fire. Items without a matching question are ignored.
func (v *Validator) ValidateItems(
	app formversion.ApplicationContext,
	items []formversion.ApplicationFormItem,
	questions []formversion.MergedFormQuestion,
) []Violation {
	byQuestion := make(map[int64][]formversion.ApplicationFormItem, len(questions))
	for _, item := range items {
		byQuestion[item.FormQuestionID] = append(byQuestion[item.FormQuestionID], item)
	}

	var out []Violation
	for _, q := range questions {
		answered := byQuestion[q.FormQuestionID]
		if len(answered) == 0 {
			out = append(out, v.validateOccurrence(app, "", q, 0)...)
			continue
		}
		for _, item := range answered {
			out = append(out, v.validateOccurrence(app, item.AnswerValue(), q, item.PageOccurrence)...)
		}
	}
	return out
}
