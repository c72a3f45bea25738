// Package continuity keeps an application's answers aligned with the
// template revision currently in effect for its EHC.
package continuity

import (
	"context"

	"github.com/google/uuid"

	formversion "github.com/goliatone/go-formversion"
	"github.com/goliatone/go-formversion/normalise"
)

// Mapper decides whether an application must move to a newer merged template
// and rewrites its answers when it does.
type Mapper struct {
	resolver formversion.TemplateResolver
	logger   formversion.Logger
	runID    func() string
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the logger. A nil logger falls back to the fmt logger.
func WithLogger(logger formversion.Logger) Option {
	return func(m *Mapper) {
		m.logger = formversion.NormalizeLogger(logger)
	}
}

// WithRunIDGenerator replaces the generator of the id attached to the logs
// of one migration.
func WithRunIDGenerator(fn func() string) Option {
	return func(m *Mapper) {
		if fn != nil {
			m.runID = fn
		}
	}
}

// NewMapper builds a Mapper over resolver.
func NewMapper(resolver formversion.TemplateResolver, opts ...Option) *Mapper {
	m := &Mapper{
		resolver: resolver,
		logger:   formversion.NewFmtLogger(nil),
		runID:    uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// MigrateAnswersToLatestFormVersion returns the application rewritten onto
// the template currently in effect for its EHC. The boolean is false, with a
// nil application, when no migration is necessary: the application is pinned
// to a private version or is already on the target template.
//
// Resolver errors, including not-found, are returned unchanged.
func (m *Mapper) MigrateAnswersToLatestFormVersion(
	ctx context.Context,
	app formversion.Application,
) (*formversion.Application, bool, error) {
	if m.resolver == nil {
		return nil, false, formversion.NewError(formversion.ErrInvalidApplication, "template resolver not configured", nil, nil)
	}
	if app.EHC.Name == "" {
		return nil, false, formversion.NewError(formversion.ErrInvalidApplication, "application has no EHC", nil, map[string]any{
			"application_id": app.ID,
		})
	}

	logger := formversion.WithLoggerFields(m.logger.WithContext(ctx), map[string]any{
		"migration_id":   m.runID(),
		"application_id": app.ID,
		"ehc":            app.EHC.String(),
		"exa":            app.EXA.String(),
	})

	target, ok, err := m.Target(ctx, app)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		logger.Debug("application pinned to private form version, skipping migration")
		return nil, false, nil
	}

	if !NeedsMigration(app, target) {
		logger.Trace("application already on %s", target.EHC.String())
		return nil, false, nil
	}

	pages, err := m.resolver.GetMergedFormPages(ctx, formversion.PageQuery{
		EHC:                 target.EHC,
		EXA:                 target.EXA,
		IgnoreQuestionScope: true,
	})
	if err != nil {
		return nil, false, err
	}

	migrated := Remap(app, target, normalise.Questions(pages))
	logger.Info("migrated application answers to %s (exa %s): %d items, %d consignments",
		target.EHC.String(), target.EXA.String(), len(migrated.ResponseItems), len(migrated.Consignments))
	return &migrated, true, nil
}

// Target resolves the merged template the application should be on. The
// boolean is false when the application's EHC version is private, since
// private versions are never migrated away from.
//
// When the active EHC is offline a private version is preferred if one
// exists; otherwise the offline template is used as is.
func (m *Mapper) Target(ctx context.Context, app formversion.Application) (formversion.MergedForm, bool, error) {
	versions, err := m.resolver.GetAllFormVersions(ctx, app.EHC.Name)
	if err != nil {
		return formversion.MergedForm{}, false, err
	}
	for _, v := range versions {
		if v.Version == app.EHC.Version && v.Status == formversion.FormStatusPrivate {
			return formversion.MergedForm{}, false, nil
		}
	}

	active, err := m.resolver.GetActiveMergedForm(ctx, app.EHC.Name)
	if err != nil {
		return formversion.MergedForm{}, false, err
	}
	if !active.IsOffline() {
		return active, true, nil
	}

	for _, v := range versions {
		if v.Status != formversion.FormStatusPrivate {
			continue
		}
		private, err := m.resolver.GetPrivateMergedForm(ctx, app.EHC.Name, v.PrivateCode)
		if err != nil {
			return formversion.MergedForm{}, false, err
		}
		return private, true, nil
	}
	return active, true, nil
}

// NeedsMigration reports whether either form of the application differs from
// target. The EXA is compared by name and version, because an offline
// template maps onto a different form name; the EHC by version only.
func NeedsMigration(app formversion.Application, target formversion.MergedForm) bool {
	return exaChanged(app, target) || ehcChanged(app, target)
}

func exaChanged(app formversion.Application, target formversion.MergedForm) bool {
	return app.EXA != target.EXA
}

func ehcChanged(app formversion.Application, target formversion.MergedForm) bool {
	return app.EHC.Version != target.EHC.Version
}

// Remap rewrites app onto target given the flattened, normalised questions of
// the target template. Forms that did not change keep their items; changed
// forms and every consignment go through CarryOver. The input is not
// modified.
func Remap(
	app formversion.Application,
	target formversion.MergedForm,
	questions []formversion.MergedFormQuestion,
) formversion.Application {
	var exaItems, ehcItems []formversion.ApplicationFormItem

	if exaChanged(app, target) {
		exaItems = CarryOver(app.ResponseItems, questions, app.EXA.Name, target.EXA.Name)
	} else {
		exaItems = formversion.CloneItems(formversion.ItemsForForm(app.ResponseItems, app.EXA.Name))
	}

	if ehcChanged(app, target) {
		ehcItems = CarryOver(app.ResponseItems, questions, app.EHC.Name, target.EHC.Name)
	} else {
		ehcItems = formversion.CloneItems(formversion.ItemsForForm(app.ResponseItems, app.EHC.Name))
	}

	out := app.Clone()
	out.EHC = target.EHC
	out.EXA = target.EXA
	out.ResponseItems = append(exaItems, ehcItems...)
	for i, consignment := range out.Consignments {
		out.Consignments[i].ResponseItems = CarryOver(consignment.ResponseItems, questions, app.EHC.Name, target.EHC.Name)
	}
	return out
}
