package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	formversion "github.com/goliatone/go-formversion"
)

// templateFixture describes the templates of one EHC for offline runs.
type templateFixture struct {
	Active   formversion.MergedForm    `yaml:"active"`
	Private  []formversion.MergedForm  `yaml:"private,omitempty"`
	Versions []formversion.FormVersion `yaml:"versions,omitempty"`
	Pages    []pageFixture             `yaml:"pages"`
}

type pageFixture struct {
	EHC   formversion.NameAndVersion   `yaml:"ehc"`
	EXA   formversion.NameAndVersion   `yaml:"exa,omitempty"`
	Pages []formversion.MergedFormPage `yaml:"pages"`
}

// fixtureResolver serves a templateFixture as a TemplateResolver.
type fixtureResolver struct {
	fixture templateFixture
}

var _ formversion.TemplateResolver = (*fixtureResolver)(nil)

func (r *fixtureResolver) GetActiveMergedForm(_ context.Context, ehcName string) (formversion.MergedForm, error) {
	if r.fixture.Active.EHC.Name != ehcName {
		return formversion.MergedForm{}, formversion.TemplateNotFound(ehcName, nil)
	}
	return r.fixture.Active, nil
}

func (r *fixtureResolver) GetPrivateMergedForm(_ context.Context, ehcName, privateCode string) (formversion.MergedForm, error) {
	for _, form := range r.fixture.Private {
		if form.EHC.Name == ehcName && form.PrivateCode == privateCode {
			return form, nil
		}
	}
	return formversion.MergedForm{}, formversion.TemplateNotFound(ehcName, map[string]any{"private_code": privateCode})
}

func (r *fixtureResolver) GetAllFormVersions(_ context.Context, ehcName string) ([]formversion.FormVersion, error) {
	if r.fixture.Active.EHC.Name != ehcName {
		return nil, formversion.TemplateNotFound(ehcName, nil)
	}
	return r.fixture.Versions, nil
}

func (r *fixtureResolver) GetMergedForm(_ context.Context, ehc, exa formversion.NameAndVersion) (formversion.MergedForm, error) {
	for _, form := range append([]formversion.MergedForm{r.fixture.Active}, r.fixture.Private...) {
		if form.EHC == ehc && form.EXA == exa {
			return form, nil
		}
	}
	return formversion.MergedForm{}, formversion.TemplateNotFound(ehc.Name, map[string]any{"version": ehc.Version})
}

func (r *fixtureResolver) GetMergedFormPages(_ context.Context, query formversion.PageQuery) ([]formversion.MergedFormPage, error) {
	for _, entry := range r.fixture.Pages {
		if entry.EHC == query.EHC && entry.EXA == query.EXA {
			return entry.Pages, nil
		}
	}
	return nil, formversion.TemplateNotFound(query.EHC.Name, map[string]any{
		"version": query.EHC.Version,
		"exa":     query.EXA.String(),
	})
}

// decodeFile reads a YAML or JSON document into out.
func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
