package continuity

import (
	"context"
	"fmt"
	"strings"

	formversion "github.com/goliatone/go-formversion"
)

type fakeResolver struct {
	versions map[string][]formversion.FormVersion
	active   map[string]formversion.MergedForm
	private  map[string]formversion.MergedForm
	pages    map[formversion.NameAndVersion][]formversion.MergedFormPage
	pageErr  error
	calls    []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		versions: make(map[string][]formversion.FormVersion),
		active:   make(map[string]formversion.MergedForm),
		private:  make(map[string]formversion.MergedForm),
		pages:    make(map[formversion.NameAndVersion][]formversion.MergedFormPage),
	}
}

func (r *fakeResolver) GetActiveMergedForm(_ context.Context, ehcName string) (formversion.MergedForm, error) {
	r.calls = append(r.calls, "active:"+ehcName)
	form, ok := r.active[ehcName]
	if !ok {
		return formversion.MergedForm{}, formversion.TemplateNotFound(ehcName, nil)
	}
	return form, nil
}

func (r *fakeResolver) GetPrivateMergedForm(_ context.Context, ehcName, code string) (formversion.MergedForm, error) {
	r.calls = append(r.calls, "private:"+ehcName+":"+code)
	form, ok := r.private[ehcName+":"+code]
	if !ok {
		return formversion.MergedForm{}, formversion.TemplateNotFound(ehcName, map[string]any{"private_code": code})
	}
	return form, nil
}

func (r *fakeResolver) GetAllFormVersions(_ context.Context, ehcName string) ([]formversion.FormVersion, error) {
	r.calls = append(r.calls, "versions:"+ehcName)
	versions, ok := r.versions[ehcName]
	if !ok {
		return nil, formversion.TemplateNotFound(ehcName, nil)
	}
	return versions, nil
}

func (r *fakeResolver) GetMergedForm(_ context.Context, ehc, exa formversion.NameAndVersion) (formversion.MergedForm, error) {
	return formversion.MergedForm{EHC: ehc, EXA: exa, EHCStatus: formversion.FormStatusActive}, nil
}

func (r *fakeResolver) GetMergedFormPages(_ context.Context, q formversion.PageQuery) ([]formversion.MergedFormPage, error) {
	r.calls = append(r.calls, "pages:"+q.EHC.String())
	if r.pageErr != nil {
		return nil, r.pageErr
	}
	pages, ok := r.pages[q.EHC]
	if !ok {
		return nil, formversion.TemplateNotFound(q.EHC.Name, map[string]any{"version": q.EHC.Version})
	}
	return pages, nil
}

func item(form string, qid, fqid int64, occ int, answer *string) formversion.ApplicationFormItem {
	return formversion.ApplicationFormItem{
		FormName:       form,
		QuestionID:     qid,
		FormQuestionID: fqid,
		PageOccurrence: occ,
		Answer:         answer,
	}
}

func question(form string, qid, fqid int64, order int, text string) formversion.MergedFormQuestion {
	return formversion.MergedFormQuestion{
		FormName:       form,
		QuestionID:     qid,
		FormQuestionID: fqid,
		QuestionOrder:  order,
		Text:           text,
		QuestionScope:  formversion.QuestionScopeApplicant,
	}
}

func ans(s string) *string { return formversion.String(s) }

func renderItems(b *strings.Builder, items []formversion.ApplicationFormItem) {
	for _, it := range items {
		fmt.Fprintf(b, "item form=%s q=%d fq=%d page=%d occ=%d order=%d scope=%s answer=%q text=%q\n",
			it.FormName, it.QuestionID, it.FormQuestionID, it.PageNumber, it.PageOccurrence,
			it.QuestionOrder, it.QuestionScope, it.AnswerValue(), it.Text)
	}
}

func renderApplication(app formversion.Application) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "application=%s ehc=%s exa=%s\n", app.ID, app.EHC.String(), app.EXA.String())
	renderItems(&b, app.ResponseItems)
	for _, c := range app.Consignments {
		fmt.Fprintf(&b, "consignment=%s\n", c.ID)
		renderItems(&b, c.ResponseItems)
	}
	return []byte(b.String())
}
