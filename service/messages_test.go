package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	formversion "github.com/goliatone/go-formversion"
	"github.com/goliatone/go-formversion/cache"
	"github.com/goliatone/go-formversion/dispatcher"
	"github.com/goliatone/go-formversion/validation"
)

func TestMigrateApplicationHandler(t *testing.T) {
	engine := New(fixture(), nil, WithLogger(quiet()))
	handler := engine.MigrateApplicationHandler()

	result, err := handler.Query(context.Background(), MigrateApplication{Application: oldApplication()})
	require.NoError(t, err)
	assert.True(t, result.Migrated)
	require.NotNil(t, result.Application)
	assert.Equal(t, "2.0", result.Application.EHC.Version)

	_, err = handler.Query(context.Background(), MigrateApplication{})
	require.Error(t, err)
	assert.Equal(t, formversion.ErrCodeInvalidMessage, formversion.ErrorCode(err))
}

func TestValidateAnswerHandler(t *testing.T) {
	engine := New(fixture(), nil, WithLogger(quiet()))
	handler := engine.ValidateAnswerHandler()
	q := fixture().pages[0].Questions[0]

	violations, err := handler.Query(context.Background(), ValidateAnswer{Answer: "  ", Question: q})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "required", violations[0].Message)

	violations, err = handler.Query(context.Background(), ValidateAnswer{Answer: "yes", Question: q})
	require.NoError(t, err)
	assert.Empty(t, violations)

	_, err = handler.Query(context.Background(), ValidateAnswer{Answer: "yes"})
	assert.Error(t, err)
}

func TestInvalidateTemplateHandler(t *testing.T) {
	store := cache.NewMemoryStore(0)
	lookup := stubLookup{links: map[string][]string{"EXA1": {"8293"}}}
	engine := New(fixture(), lookup, WithLogger(quiet()), WithStore(store))
	ctx := context.Background()
	handler := engine.InvalidateTemplateHandler()

	warm := func() {
		_, err := engine.Resolver().GetActiveMergedForm(ctx, "8293")
		require.NoError(t, err)
		_, err = engine.Resolver().GetMergedFormPages(ctx, formversion.PageQuery{EHC: fixture().active.EHC})
		require.NoError(t, err)
	}

	warm()
	require.NoError(t, handler.Execute(ctx, InvalidateTemplate{Scope: ScopeActiveExaDocument, EXA: "EXA1"}))
	assert.NotContains(t, store.Keys(), cache.ActiveMergedFormKey("8293"))
	assert.Len(t, store.Keys(), 1)

	warm()
	require.NoError(t, handler.Execute(ctx, InvalidateTemplate{Scope: ScopeHealthCertificate, EHC: "8293", EXA: "EXA1"}))
	assert.Equal(t, []string{cache.ActiveMergedFormKey("8293")}, store.Keys())

	require.NoError(t, handler.Execute(ctx, InvalidateTemplate{Scope: ScopeActiveHealthCertificate, EHC: "8293"}))
	assert.Empty(t, store.Keys())

	for _, msg := range []InvalidateTemplate{
		{Scope: "everything"},
		{Scope: ScopeActiveHealthCertificate},
		{Scope: ScopeActiveExaDocument, EHC: "8293"},
	} {
		err := handler.Execute(ctx, msg)
		require.Error(t, err)
		assert.Equal(t, formversion.ErrCodeInvalidMessage, formversion.ErrorCode(err))
	}
}

type flakyStore struct {
	*cache.MemoryStore
	failures int
	deletes  int
}

func (s *flakyStore) DeletePrefix(ctx context.Context, prefixes ...string) error {
	s.deletes++
	if s.deletes <= s.failures {
		return errors.New("store down")
	}
	return s.MemoryStore.DeletePrefix(ctx, prefixes...)
}

func TestSubscribeRoutesMessages(t *testing.T) {
	store := &flakyStore{MemoryStore: cache.NewMemoryStore(0)}
	engine := New(fixture(), nil, WithLogger(quiet()), WithStore(store))
	d := dispatcher.New(dispatcher.WithLogger(quiet()))
	subs := engine.Subscribe(d)
	require.Len(t, subs, 3)
	ctx := context.Background()

	result, err := dispatcher.Query[MigrateApplication, MigrationResult](ctx, d, MigrateApplication{Application: oldApplication()})
	require.NoError(t, err)
	assert.True(t, result.Migrated)

	violations, err := dispatcher.Query[ValidateAnswer, []validation.Violation](ctx, d, ValidateAnswer{
		Answer:   "",
		Question: fixture().pages[0].Questions[0],
	})
	require.NoError(t, err)
	assert.Len(t, violations, 1)

	require.NotEmpty(t, store.Keys())
	require.NoError(t, dispatcher.Dispatch(ctx, d, InvalidateTemplate{Scope: ScopeActiveHealthCertificate, EHC: "8293"}))
	assert.Equal(t, 1, store.deletes)
	assert.NotContains(t, store.Keys(), cache.ActiveMergedFormKey("8293"))

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	_, err = dispatcher.Query[MigrateApplication, MigrationResult](ctx, d, MigrateApplication{Application: oldApplication()})
	assert.Equal(t, formversion.ErrCodeNoHandler, formversion.ErrorCode(err))
}

func TestSubscribedInvalidationIssuesOneDelete(t *testing.T) {
	store := &flakyStore{MemoryStore: cache.NewMemoryStore(0), failures: 10}
	engine := New(fixture(), nil, WithLogger(quiet()), WithStore(store))
	d := dispatcher.New(dispatcher.WithLogger(quiet()))
	engine.Subscribe(d)

	err := dispatcher.Dispatch(context.Background(), d, InvalidateTemplate{Scope: ScopeActiveHealthCertificate, EHC: "8293"})
	require.Error(t, err)
	assert.Equal(t, formversion.ErrCodeCacheStore, formversion.ErrorCode(err))
	assert.Equal(t, 1, store.deletes)
}
