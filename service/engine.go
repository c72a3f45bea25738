// Package service wires the engine's components behind one façade.
package service

import (
	"context"
	"time"

	formversion "github.com/goliatone/go-formversion"
	"github.com/goliatone/go-formversion/cache"
	"github.com/goliatone/go-formversion/continuity"
	"github.com/goliatone/go-formversion/cron"
	"github.com/goliatone/go-formversion/normalise"
	"github.com/goliatone/go-formversion/validation"
)

// Engine exposes migration, merging, validation and cache invalidation over
// one cached TemplateResolver.
type Engine struct {
	resolver    formversion.TemplateResolver
	lookup      formversion.HealthCertificateLookup
	store       cache.Store
	mapper      *continuity.Mapper
	validator   *validation.Validator
	invalidator *cache.Invalidator
	logger      formversion.Logger

	adminRole        string
	location         *time.Location
	validatorOptions []validation.Option
	mapperOptions    []continuity.Option

	redisClient cache.RedisClient
	redisTTL    time.Duration
	useRedis    bool

	sweepStore      cache.Sweepable
	sweepExpression string
	scheduler       *cron.Scheduler
	sweeper         *cache.Sweeper
	closers         []func() error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger shared by every component.
func WithLogger(logger formversion.Logger) Option {
	return func(e *Engine) {
		e.logger = formversion.NormalizeLogger(logger)
	}
}

// WithStore sets the template cache store. Without one nothing is cached.
func WithStore(store cache.Store) Option {
	return func(e *Engine) {
		if store != nil {
			e.store = store
		}
	}
}

// WithRedisClient supplies the client of the redis cache backend.
func WithRedisClient(client cache.RedisClient) Option {
	return func(e *Engine) {
		e.redisClient = client
	}
}

// withRedisStore selects the redis backend. The store is built in New once
// the client option has been applied.
func withRedisStore(ttl time.Duration) Option {
	return func(e *Engine) {
		e.useRedis = true
		e.redisTTL = ttl
	}
}

// WithAdminRole sets the role whose page requests bypass the cache.
func WithAdminRole(role string) Option {
	return func(e *Engine) {
		if role != "" {
			e.adminRole = role
		}
	}
}

// WithLocation sets the zone submission dates are read in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithValidatorOptions passes extra options to the validator.
func WithValidatorOptions(opts ...validation.Option) Option {
	return func(e *Engine) {
		e.validatorOptions = append(e.validatorOptions, opts...)
	}
}

// WithMapperOptions passes extra options to the migration mapper.
func WithMapperOptions(opts ...continuity.Option) Option {
	return func(e *Engine) {
		e.mapperOptions = append(e.mapperOptions, opts...)
	}
}

// WithSweeper drops expired cache entries on expression once Start is called.
func WithSweeper(store cache.Sweepable, expression string) Option {
	return func(e *Engine) {
		e.sweepStore = store
		e.sweepExpression = expression
	}
}

// withCloser registers a release function run by Close.
func withCloser(fn func() error) Option {
	return func(e *Engine) {
		if fn != nil {
			e.closers = append(e.closers, fn)
		}
	}
}

// New builds an engine over resolver. lookup may be nil when neither
// CheckStatus nor InvalidateActiveExaDocument is used.
func New(resolver formversion.TemplateResolver, lookup formversion.HealthCertificateLookup, opts ...Option) *Engine {
	e := &Engine{
		lookup:    lookup,
		store:     cache.NopStore{},
		logger:    formversion.NewFmtLogger(nil),
		adminRole: cache.DefaultAdminRole,
		location:  time.UTC,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	if e.useRedis && e.redisClient != nil {
		e.store = cache.NewRedisStore(e.redisClient, e.redisTTL)
	}

	e.resolver = cache.NewTemplateCache(resolver, e.store,
		cache.WithLogger(e.logger),
		cache.WithAdminRole(e.adminRole),
	)
	e.invalidator = cache.NewInvalidator(e.store, lookup, e.logger)
	e.mapper = continuity.NewMapper(e.resolver,
		append([]continuity.Option{continuity.WithLogger(e.logger)}, e.mapperOptions...)...,
	)
	e.validator = validation.NewValidator(
		append([]validation.Option{
			validation.WithLogger(e.logger),
			validation.WithLocation(e.location),
		}, e.validatorOptions...)...,
	)
	if e.sweepStore != nil {
		e.scheduler = cron.NewScheduler(cron.WithLogger(e.logger), cron.WithLocation(e.location))
		e.sweeper = cache.NewSweeper(e.sweepStore, e.scheduler, e.sweepExpression, e.logger)
	}
	return e
}

// Resolver returns the cached resolver the engine reads templates through.
func (e *Engine) Resolver() formversion.TemplateResolver {
	return e.resolver
}

// Validator returns the constraint validator.
func (e *Engine) Validator() *validation.Validator {
	return e.validator
}

// Start begins background cache maintenance, if configured.
func (e *Engine) Start(ctx context.Context) error {
	if e.sweeper == nil {
		return nil
	}
	if err := e.sweeper.Start(); err != nil {
		return err
	}
	return e.scheduler.Start(ctx)
}

// Close stops background work and releases the cache store.
func (e *Engine) Close(ctx context.Context) error {
	var firstErr error
	if e.scheduler != nil {
		if err := e.scheduler.Stop(ctx); err != nil {
			firstErr = err
		}
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.closers = nil
	return firstErr
}

// MigrateAnswersToLatestFormVersion moves app onto the template in effect for
// its EHC. It returns false when no migration was necessary.
func (e *Engine) MigrateAnswersToLatestFormVersion(
	ctx context.Context,
	app formversion.Application,
) (*formversion.Application, bool, error) {
	return e.mapper.MigrateAnswersToLatestFormVersion(ctx, app)
}

// IsValid checks one answer against one constraint.
func (e *Engine) IsValid(
	app formversion.ApplicationContext,
	answer string,
	c formversion.AnswerConstraint,
	q formversion.MergedFormQuestion,
) bool {
	return e.validator.IsValid(app, answer, c, q)
}

// ValidateItems checks stored answers against questions.
func (e *Engine) ValidateItems(
	app formversion.ApplicationContext,
	items []formversion.ApplicationFormItem,
	questions []formversion.MergedFormQuestion,
) []validation.Violation {
	return e.validator.ValidateItems(app, items, questions)
}

// ValidateApplication checks the application's answers against every
// question of its current template.
func (e *Engine) ValidateApplication(ctx context.Context, app formversion.Application) ([]validation.Violation, error) {
	pages, err := e.resolver.GetMergedFormPages(ctx, formversion.PageQuery{
		EHC:                 app.EHC,
		EXA:                 app.EXA,
		IgnoreQuestionScope: true,
	})
	if err != nil {
		return nil, err
	}
	return e.validator.ValidateItems(app.Context(), app.ResponseItems, normalise.Questions(pages)), nil
}

// MergeResponseItems overlays incoming answers on existing ones.
func (e *Engine) MergeResponseItems(existing, incoming []formversion.ApplicationFormItem) []formversion.ApplicationFormItem {
	return continuity.MergeResponseItems(existing, incoming)
}

// NormalisePages sets page numbers to list order. Question order is kept.
func (e *Engine) NormalisePages(pages []formversion.MergedFormPage) []formversion.MergedFormPage {
	return normalise.Pages(pages)
}

// RemovePageOccurrence drops one occurrence of a repeatable page.
func (e *Engine) RemovePageOccurrence(
	items []formversion.ApplicationFormItem,
	formName string,
	pageNumber, occurrence int,
) []formversion.ApplicationFormItem {
	return continuity.RemovePageOccurrence(items, formName, pageNumber, occurrence)
}

func (e *Engine) InvalidateActiveHealthCertificate(ctx context.Context, ehcName string) error {
	return e.invalidator.InvalidateActiveHealthCertificate(ctx, ehcName)
}

func (e *Engine) InvalidateHealthCertificate(ctx context.Context, exaNumber, ehcName string) error {
	return e.invalidator.InvalidateHealthCertificate(ctx, exaNumber, ehcName)
}

func (e *Engine) InvalidateActiveExaDocument(ctx context.Context, exaNumber string) error {
	return e.invalidator.InvalidateActiveExaDocument(ctx, exaNumber)
}
