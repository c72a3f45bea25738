package cache

import (
	"context"

	formversion "github.com/goliatone/go-formversion"
)

// Invalidator drops cache entries after a template edit. Every method issues
// at most one DeletePrefix call.
type Invalidator struct {
	store  Store
	lookup formversion.HealthCertificateLookup
	logger formversion.Logger
}

// NewInvalidator builds an invalidator. lookup is only needed by
// InvalidateActiveExaDocument.
func NewInvalidator(store Store, lookup formversion.HealthCertificateLookup, logger formversion.Logger) *Invalidator {
	if store == nil {
		store = NopStore{}
	}
	return &Invalidator{
		store:  store,
		lookup: lookup,
		logger: formversion.NormalizeLogger(logger),
	}
}

// InvalidateActiveHealthCertificate drops the active and private entries of
// one EHC.
func (i *Invalidator) InvalidateActiveHealthCertificate(ctx context.Context, ehcName string) error {
	if ehcName == "" {
		return nil
	}
	i.logger.Debug("invalidating active template cache for ehc %s", ehcName)
	return i.delete(ctx, activePrefixes(ehcName))
}

// InvalidateHealthCertificate drops the merged form and page entries of one
// EHC, for every version and EXA it was combined with.
func (i *Invalidator) InvalidateHealthCertificate(ctx context.Context, exaNumber, ehcName string) error {
	if ehcName == "" {
		return nil
	}
	i.logger.Debug("invalidating merged template cache for ehc %s (exa %s)", ehcName, exaNumber)
	return i.delete(ctx, templatePrefixes(ehcName))
}

// InvalidateActiveExaDocument drops the active and private entries of every
// EHC linked to the EXA. Active keys do not carry the EXA, so the links are
// looked up first.
func (i *Invalidator) InvalidateActiveExaDocument(ctx context.Context, exaNumber string) error {
	if exaNumber == "" {
		return nil
	}
	if i.lookup == nil {
		return formversion.NewError(formversion.ErrInvalidConfig, "health certificate lookup not configured", nil, map[string]any{
			"exa": exaNumber,
		})
	}
	ehcNames, err := i.lookup.FindEhcNumbersByExa(ctx, exaNumber)
	if err != nil {
		return err
	}

	prefixes := make([]string, 0, 2*len(ehcNames))
	for _, name := range ehcNames {
		if name == "" {
			continue
		}
		prefixes = append(prefixes, activePrefixes(name)...)
	}
	if len(prefixes) == 0 {
		return nil
	}
	i.logger.Debug("invalidating active template cache for %d ehcs linked to exa %s", len(ehcNames), exaNumber)
	return i.delete(ctx, prefixes)
}

func (i *Invalidator) delete(ctx context.Context, prefixes []string) error {
	if err := i.store.DeletePrefix(ctx, prefixes...); err != nil {
		return wrapStoreError(err, "delete", prefixes[0])
	}
	return nil
}
