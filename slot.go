package formversion

import "strconv"

// Slot is the identity of one answer within a form: the question as rendered
// in a specific template revision plus the page occurrence. Saving answers and
// deleting page occurrences both match items by Slot.
type Slot struct {
	FormQuestionID int64
	PageOccurrence int
}

// CarryOverKey is the identity used to move an answer between template
// revisions, where formQuestionId changes but questionId is stable.
func CarryOverKey(questionID int64, pageOccurrence int) string {
	return strconv.FormatInt(questionID, 10) + "-" + strconv.Itoa(pageOccurrence)
}

// ItemsForForm returns the items that belong to formName, in order.
func ItemsForForm(items []ApplicationFormItem, formName string) []ApplicationFormItem {
	out := make([]ApplicationFormItem, 0, len(items))
	for _, item := range items {
		if item.FormName == formName {
			out = append(out, item)
		}
	}
	return out
}

// QuestionsForForm returns the questions that belong to formName, in order.
func QuestionsForForm(questions []MergedFormQuestion, formName string) []MergedFormQuestion {
	out := make([]MergedFormQuestion, 0, len(questions))
	for _, q := range questions {
		if q.FormName == formName {
			out = append(out, q)
		}
	}
	return out
}

// CloneItems copies items, including their answers.
func CloneItems(items []ApplicationFormItem) []ApplicationFormItem {
	if items == nil {
		return nil
	}
	out := make([]ApplicationFormItem, len(items))
	for i, item := range items {
		if item.Answer != nil {
			item.Answer = String(*item.Answer)
		}
		out[i] = item
	}
	return out
}

// NewItem builds the item answering question q at the given occurrence.
func NewItem(q MergedFormQuestion, pageOccurrence int, answer *string) ApplicationFormItem {
	return ApplicationFormItem{
		FormName:       q.FormName,
		QuestionID:     q.QuestionID,
		FormQuestionID: q.FormQuestionID,
		PageOccurrence: pageOccurrence,
		Answer:         answer,
		Text:           q.Text,
		QuestionOrder:  q.QuestionOrder,
		PageNumber:     q.PageNumber,
		QuestionScope:  q.QuestionScope,
	}
}
