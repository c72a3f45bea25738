package continuity

import (
	formversion "github.com/goliatone/go-formversion"
)

// CarryOver reattaches the answers stored for oldFormName to the questions of
// newFormName in the active template. The result replaces the old items of
// that form; it is never merged with them.
//
// Answers are matched on questionId and page occurrence. For every active
// question occurrences are emitted from 0 upwards until the first one without
// an answer, so the output is always gap free. Display fields come from the
// active question.
func CarryOver(
	existing []formversion.ApplicationFormItem,
	active []formversion.MergedFormQuestion,
	oldFormName, newFormName string,
) []formversion.ApplicationFormItem {
	questions := formversion.QuestionsForForm(active, newFormName)
	items := formversion.ItemsForForm(existing, oldFormName)
	ignored := IgnoredQuestionIDs(items, questions)

	answers := make(map[string]string, len(items))
	for _, item := range items {
		if item.Answer == nil {
			continue
		}
		if _, skip := ignored[item.QuestionID]; skip {
			continue
		}
		answers[formversion.CarryOverKey(item.QuestionID, item.PageOccurrence)] = *item.Answer
	}

	out := make([]formversion.ApplicationFormItem, 0, len(answers))
	for _, q := range questions {
		for occurrence := 0; ; occurrence++ {
			answer, ok := answers[formversion.CarryOverKey(q.QuestionID, occurrence)]
			if !ok {
				break
			}
			out = append(out, formversion.NewItem(q, occurrence, formversion.String(answer)))
		}
	}
	return out
}

// IgnoredQuestionIDs returns the questionIds whose answers cannot be carried
// over safely:
//   - ids used by more than one active question, since an old answer could
//     belong to either of them;
//   - ids whose (questionId, pageOccurrence) key is stored more than once,
//     since the two answers cannot be told apart.
//
// An id answered once per occurrence has distinct keys and is kept, so
// repeatable pages carry over occurrence by occurrence.
func IgnoredQuestionIDs(
	items []formversion.ApplicationFormItem,
	questions []formversion.MergedFormQuestion,
) map[int64]struct{} {
	ignored := make(map[int64]struct{})

	perQuestion := make(map[int64]int, len(questions))
	for _, q := range questions {
		perQuestion[q.QuestionID]++
	}
	for id, count := range perQuestion {
		if count > 1 {
			ignored[id] = struct{}{}
		}
	}

	perKey := make(map[string]int, len(items))
	for _, item := range items {
		key := formversion.CarryOverKey(item.QuestionID, item.PageOccurrence)
		perKey[key]++
		if perKey[key] > 1 {
			ignored[item.QuestionID] = struct{}{}
		}
	}
	return ignored
}
