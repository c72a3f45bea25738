package continuity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	formversion "github.com/goliatone/go-formversion"
)

func TestCarryOverBindsOccurrencesToNewQuestion(t *testing.T) {
	existing := []formversion.ApplicationFormItem{
		item("EHC1", 1, 10, 0, ans("A")),
		item("EHC1", 1, 10, 1, ans("B")),
	}
	active := []formversion.MergedFormQuestion{question("EHC1", 1, 99, 3, "Commodity")}

	out := CarryOver(existing, active, "EHC1", "EHC1")

	require.Len(t, out, 2)
	for i, it := range out {
		assert.Equal(t, int64(1), it.QuestionID)
		assert.Equal(t, int64(99), it.FormQuestionID)
		assert.Equal(t, i, it.PageOccurrence)
		assert.Equal(t, "Commodity", it.Text)
		assert.Equal(t, 3, it.QuestionOrder)
		assert.Equal(t, formversion.QuestionScopeApplicant, it.QuestionScope)
	}
	assert.Equal(t, "A", out[0].AnswerValue())
	assert.Equal(t, "B", out[1].AnswerValue())
}

func TestCarryOverDropsQuestionsDuplicatedInActiveTemplate(t *testing.T) {
	existing := []formversion.ApplicationFormItem{
		item("EHC1", 42, 10, 0, ans("x")),
		item("EHC1", 7, 11, 0, ans("kept")),
	}
	active := []formversion.MergedFormQuestion{
		question("EHC1", 42, 100, 1, "first"),
		question("EHC1", 42, 101, 2, "second"),
		question("EHC1", 7, 102, 3, "other"),
	}

	out := CarryOver(existing, active, "EHC1", "EHC1")

	require.Len(t, out, 1)
	assert.Equal(t, int64(7), out[0].QuestionID)
	for _, it := range out {
		assert.NotEqual(t, int64(42), it.QuestionID)
	}
}

func TestCarryOverDropsDuplicatedStoredKeys(t *testing.T) {
	existing := []formversion.ApplicationFormItem{
		item("EHC1", 5, 10, 0, ans("one")),
		item("EHC1", 5, 11, 0, ans("two")),
	}
	active := []formversion.MergedFormQuestion{question("EHC1", 5, 100, 1, "q")}

	assert.Empty(t, CarryOver(existing, active, "EHC1", "EHC1"))
}

func TestCarryOverStopsAtFirstMissingOccurrence(t *testing.T) {
	existing := []formversion.ApplicationFormItem{
		item("EHC1", 1, 10, 0, ans("a")),
		item("EHC1", 1, 10, 2, ans("c")),
		item("EHC1", 2, 11, 0, nil),
		item("EHC1", 2, 11, 1, ans("late")),
	}
	active := []formversion.MergedFormQuestion{
		question("EHC1", 1, 100, 1, "q1"),
		question("EHC1", 2, 101, 2, "q2"),
	}

	out := CarryOver(existing, active, "EHC1", "EHC1")

	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].PageOccurrence)
	assert.Equal(t, "a", out[0].AnswerValue())
}

func TestCarryOverKeepsEmptyStringAnswers(t *testing.T) {
	existing := []formversion.ApplicationFormItem{item("EHC1", 1, 10, 0, ans(""))}
	active := []formversion.MergedFormQuestion{question("EHC1", 1, 100, 1, "q1")}

	out := CarryOver(existing, active, "EHC1", "EHC1")

	require.Len(t, out, 1)
	require.NotNil(t, out[0].Answer)
	assert.Equal(t, "", *out[0].Answer)
}

func TestCarryOverFiltersByFormName(t *testing.T) {
	existing := []formversion.ApplicationFormItem{
		item("EXA-OLD", 1, 10, 0, ans("exporter")),
		item("EHC1", 1, 11, 0, ans("wrong form")),
	}
	active := []formversion.MergedFormQuestion{
		question("EXA-NEW", 1, 100, 1, "Exporter"),
		question("EHC1", 1, 101, 1, "Commodity"),
	}

	out := CarryOver(existing, active, "EXA-OLD", "EXA-NEW")

	require.Len(t, out, 1)
	assert.Equal(t, "EXA-NEW", out[0].FormName)
	assert.Equal(t, int64(100), out[0].FormQuestionID)
	assert.Equal(t, "exporter", out[0].AnswerValue())
}

func TestCarryOverDoesNotShareAnswerPointers(t *testing.T) {
	existing := []formversion.ApplicationFormItem{item("EHC1", 1, 10, 0, ans("a"))}
	active := []formversion.MergedFormQuestion{question("EHC1", 1, 100, 1, "q1")}

	out := CarryOver(existing, active, "EHC1", "EHC1")
	*out[0].Answer = "changed"

	assert.Equal(t, "a", existing[0].AnswerValue())
}

func TestCarryOverOccurrenceDensity(t *testing.T) {
	for n := 1; n <= 6; n++ {
		var existing []formversion.ApplicationFormItem
		for occ := 0; occ < n; occ++ {
			existing = append(existing, item("EHC1", 3, 30, occ, ans("v")))
		}
		active := []formversion.MergedFormQuestion{question("EHC1", 3, 300, 1, "repeat")}

		out := CarryOver(existing, active, "EHC1", "EHC1")

		require.Len(t, out, n)
		for occ, it := range out {
			assert.Equal(t, occ, it.PageOccurrence)
		}
		require.NoError(t, CheckOccurrences(out))
	}
}

func TestIgnoredQuestionIDs(t *testing.T) {
	items := []formversion.ApplicationFormItem{
		item("EHC1", 1, 10, 0, ans("a")),
		item("EHC1", 1, 10, 1, ans("b")),
		item("EHC1", 2, 11, 0, ans("c")),
		item("EHC1", 2, 12, 0, ans("d")),
	}
	questions := []formversion.MergedFormQuestion{
		question("EHC1", 1, 100, 1, ""),
		question("EHC1", 3, 101, 2, ""),
		question("EHC1", 3, 102, 3, ""),
	}

	ignored := IgnoredQuestionIDs(items, questions)

	assert.Len(t, ignored, 2)
	assert.Contains(t, ignored, int64(2))
	assert.Contains(t, ignored, int64(3))
	assert.NotContains(t, ignored, int64(1))
}
