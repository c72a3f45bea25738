package cache

import (
	"context"
	"encoding/json"

	formversion "github.com/goliatone/go-formversion"
)

// DefaultAdminRole is the role whose page requests always bypass the cache.
const DefaultAdminRole = "ADMIN"

// TemplateCache is a read-through TemplateResolver. Store failures are logged
// and never hide a value the wrapped resolver produced.
type TemplateCache struct {
	resolver  formversion.TemplateResolver
	store     Store
	logger    formversion.Logger
	adminRole string
}

var _ formversion.TemplateResolver = (*TemplateCache)(nil)

// Option configures a TemplateCache.
type Option func(*TemplateCache)

// WithLogger sets the logger used for store failures.
func WithLogger(logger formversion.Logger) Option {
	return func(c *TemplateCache) {
		c.logger = formversion.NormalizeLogger(logger)
	}
}

// WithAdminRole sets the role whose page requests are never stored.
func WithAdminRole(role string) Option {
	return func(c *TemplateCache) {
		if role != "" {
			c.adminRole = role
		}
	}
}

// NewTemplateCache wraps resolver. A nil store disables caching.
func NewTemplateCache(resolver formversion.TemplateResolver, store Store, opts ...Option) *TemplateCache {
	if store == nil {
		store = NopStore{}
	}
	c := &TemplateCache{
		resolver:  resolver,
		store:     store,
		logger:    formversion.NewFmtLogger(nil),
		adminRole: DefaultAdminRole,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *TemplateCache) GetActiveMergedForm(ctx context.Context, ehcName string) (formversion.MergedForm, error) {
	return remember(ctx, c, ActiveMergedFormKey(ehcName), storableForm, func() (formversion.MergedForm, error) {
		return c.resolver.GetActiveMergedForm(ctx, ehcName)
	})
}

func (c *TemplateCache) GetPrivateMergedForm(ctx context.Context, ehcName, privateCode string) (formversion.MergedForm, error) {
	return remember(ctx, c, PrivateMergedFormKey(ehcName, privateCode), storableForm, func() (formversion.MergedForm, error) {
		return c.resolver.GetPrivateMergedForm(ctx, ehcName, privateCode)
	})
}

// GetAllFormVersions is not cached.
func (c *TemplateCache) GetAllFormVersions(ctx context.Context, ehcName string) ([]formversion.FormVersion, error) {
	return c.resolver.GetAllFormVersions(ctx, ehcName)
}

func (c *TemplateCache) GetMergedForm(ctx context.Context, ehc, exa formversion.NameAndVersion) (formversion.MergedForm, error) {
	return remember(ctx, c, MergedFormKey(ehc, exa), storableForm, func() (formversion.MergedForm, error) {
		return c.resolver.GetMergedForm(ctx, ehc, exa)
	})
}

// GetMergedFormPages caches the pages unless the requester is an admin.
func (c *TemplateCache) GetMergedFormPages(ctx context.Context, query formversion.PageQuery) ([]formversion.MergedFormPage, error) {
	if query.HasRole(c.adminRole) {
		return c.resolver.GetMergedFormPages(ctx, query)
	}
	return remember(ctx, c, MergedFormPagesKey(query), storablePages, func() ([]formversion.MergedFormPage, error) {
		return c.resolver.GetMergedFormPages(ctx, query)
	})
}

// storableForm keeps drafts out of the cache, they change under edit.
func storableForm(form formversion.MergedForm) bool {
	return form.EHCStatus != formversion.FormStatusDraft
}

func storablePages([]formversion.MergedFormPage) bool {
	return true
}

func remember[T any](
	ctx context.Context,
	c *TemplateCache,
	key string,
	storable func(T) bool,
	compute func() (T, error),
) (T, error) {
	raw, found, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn("template cache get %s failed: %v", key, wrapStoreError(err, "get", key))
	case found:
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		c.logger.Warn("template cache entry %s unreadable, recomputing", key)
	}

	value, err := compute()
	if err != nil {
		return value, err
	}
	if !storable(value) {
		return value, nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("template cache encode %s failed: %v", key, err)
		return value, nil
	}
	if err := c.store.Set(ctx, key, payload); err != nil {
		c.logger.Warn("template cache set %s failed: %v", key, wrapStoreError(err, "set", key))
	}
	return value, nil
}

func wrapStoreError(err error, op, key string) error {
	return formversion.NewError(formversion.ErrCacheStore, "", err, map[string]any{
		"operation": op,
		"key":       key,
	})
}
