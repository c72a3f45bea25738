package continuity

import (
	"sort"

	formversion "github.com/goliatone/go-formversion"
)

// RemovePageOccurrence deletes the answers given on one occurrence of a
// repeatable page and shifts the later occurrences of that page down by one,
// keeping occurrences dense from 0. Items of other forms or pages are
// returned untouched and in order.
func RemovePageOccurrence(
	items []formversion.ApplicationFormItem,
	formName string,
	pageNumber, occurrence int,
) []formversion.ApplicationFormItem {
	out := make([]formversion.ApplicationFormItem, 0, len(items))
	for _, item := range items {
		if item.FormName != formName || item.PageNumber != pageNumber {
			out = append(out, item)
			continue
		}
		switch {
		case item.PageOccurrence == occurrence:
			continue
		case item.PageOccurrence > occurrence:
			item.PageOccurrence--
		}
		out = append(out, item)
	}
	return out
}

// Occurrences returns how many occurrences of a page hold answers.
func Occurrences(items []formversion.ApplicationFormItem, formName string, pageNumber int) int {
	count := 0
	for _, item := range items {
		if item.FormName == formName && item.PageNumber == pageNumber && item.PageOccurrence+1 > count {
			count = item.PageOccurrence + 1
		}
	}
	return count
}

type pageKey struct {
	formName   string
	pageNumber int
}

// CheckOccurrences verifies the slot invariants of a set of items: a slot is
// used at most once per form and the occurrences of every page run from 0
// without gaps.
func CheckOccurrences(items []formversion.ApplicationFormItem) error {
	type formSlot struct {
		formName string
		slot     formversion.Slot
	}
	slots := make(map[formSlot]struct{}, len(items))
	pages := make(map[pageKey]map[int]struct{})

	for _, item := range items {
		key := formSlot{formName: item.FormName, slot: item.Slot()}
		if _, dup := slots[key]; dup {
			return formversion.NewError(formversion.ErrInvalidApplication, "duplicate answer slot", nil, map[string]any{
				"form_name":        item.FormName,
				"form_question_id": item.FormQuestionID,
				"page_occurrence":  item.PageOccurrence,
			})
		}
		slots[key] = struct{}{}

		pk := pageKey{formName: item.FormName, pageNumber: item.PageNumber}
		if pages[pk] == nil {
			pages[pk] = make(map[int]struct{})
		}
		pages[pk][item.PageOccurrence] = struct{}{}
	}

	for pk, seen := range pages {
		occurrences := make([]int, 0, len(seen))
		for occ := range seen {
			occurrences = append(occurrences, occ)
		}
		sort.Ints(occurrences)
		for i, occ := range occurrences {
			if occ != i {
				return formversion.NewError(formversion.ErrInvalidApplication, "page occurrences are not contiguous", nil, map[string]any{
					"form_name":   pk.formName,
					"page_number": pk.pageNumber,
					"occurrences": occurrences,
				})
			}
		}
	}
	return nil
}
