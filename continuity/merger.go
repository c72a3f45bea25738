package continuity

import formversion "github.com/goliatone/go-formversion"

// MergeResponseItems overlays incoming answers on existing ones. An existing
// item is dropped when an incoming item occupies the same slot
// (formQuestionId, pageOccurrence). Survivors keep their order and are
// followed by every incoming item.
func MergeResponseItems(existing, incoming []formversion.ApplicationFormItem) []formversion.ApplicationFormItem {
	overwritten := make(map[formversion.Slot]struct{}, len(incoming))
	for _, item := range incoming {
		overwritten[item.Slot()] = struct{}{}
	}

	out := make([]formversion.ApplicationFormItem, 0, len(existing)+len(incoming))
	for _, item := range existing {
		if _, ok := overwritten[item.Slot()]; ok {
			continue
		}
		out = append(out, item)
	}
	return append(out, incoming...)
}
