// Package normalise renumbers merged template pages so page numbers follow
// list order.
package normalise

import formversion "github.com/goliatone/go-formversion"

// Pages returns a deep copy of pages where the page at index i, and every
// question on it, carries page number i+1. The input is never modified so
// resolver results that are shared or cached stay intact.
func Pages(pages []formversion.MergedFormPage) []formversion.MergedFormPage {
	if pages == nil {
		return nil
	}
	out := make([]formversion.MergedFormPage, len(pages))
	for i, page := range pages {
		cp := page.Clone()
		cp.PageNumber = i + 1
		for j := range cp.Questions {
			cp.Questions[j].PageNumber = cp.PageNumber
		}
		out[i] = cp
	}
	return out
}

// Questions normalises pages and flattens their questions in page order.
func Questions(pages []formversion.MergedFormPage) []formversion.MergedFormQuestion {
	normalised := Pages(pages)
	var out []formversion.MergedFormQuestion
	for _, page := range normalised {
		out = append(out, page.Questions...)
	}
	return out
}

// IsNormalised reports whether page numbers already equal list positions.
func IsNormalised(pages []formversion.MergedFormPage) bool {
	for i, page := range pages {
		if page.PageNumber != i+1 {
			return false
		}
		for _, q := range page.Questions {
			if q.PageNumber != page.PageNumber {
				return false
			}
		}
	}
	return true
}
