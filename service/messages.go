package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	formversion "github.com/goliatone/go-formversion"
	"github.com/goliatone/go-formversion/dispatcher"
	"github.com/goliatone/go-formversion/validation"
)

// MigrateApplication asks for an application to be moved onto the template
// currently in effect.
type MigrateApplication struct {
	Application formversion.Application
}

func (MigrateApplication) Type() string { return "formversion.migrate_application" }

func (m MigrateApplication) Validate() error {
	if strings.TrimSpace(m.Application.ID) == "" {
		return errors.New("application id required")
	}
	if strings.TrimSpace(m.Application.EHC.Name) == "" {
		return errors.New("application ehc required")
	}
	return nil
}

// MigrationResult is the answer to MigrateApplication. Application is nil
// when Migrated is false.
type MigrationResult struct {
	Application *formversion.Application
	Migrated    bool
}

// ValidateAnswer asks for one answer to be checked against every constraint
// of its question.
type ValidateAnswer struct {
	Context  formversion.ApplicationContext
	Answer   string
	Question formversion.MergedFormQuestion
}

func (ValidateAnswer) Type() string { return "formversion.validate_answer" }

func (m ValidateAnswer) Validate() error {
	if strings.TrimSpace(m.Question.FormName) == "" {
		return errors.New("question form name required")
	}
	return nil
}

// InvalidationScope selects which cache entries InvalidateTemplate drops.
type InvalidationScope string

const (
	ScopeActiveHealthCertificate InvalidationScope = "active_ehc"
	ScopeHealthCertificate       InvalidationScope = "ehc"
	ScopeActiveExaDocument       InvalidationScope = "active_exa"
)

// InvalidateTemplate is sent after a template edit.
type InvalidateTemplate struct {
	Scope InvalidationScope
	EHC   string
	EXA   string
}

func (InvalidateTemplate) Type() string { return "formversion.invalidate_template" }

func (m InvalidateTemplate) Validate() error {
	switch m.Scope {
	case ScopeActiveHealthCertificate, ScopeHealthCertificate:
		if strings.TrimSpace(m.EHC) == "" {
			return fmt.Errorf("scope %s requires an ehc", m.Scope)
		}
	case ScopeActiveExaDocument:
		if strings.TrimSpace(m.EXA) == "" {
			return fmt.Errorf("scope %s requires an exa", m.Scope)
		}
	default:
		return fmt.Errorf("unknown invalidation scope %q", m.Scope)
	}
	return nil
}

// MigrateApplicationHandler answers MigrateApplication messages.
func (e *Engine) MigrateApplicationHandler() formversion.Querier[MigrateApplication, MigrationResult] {
	return formversion.QueryFunc[MigrateApplication, MigrationResult](
		func(ctx context.Context, msg MigrateApplication) (MigrationResult, error) {
			if err := formversion.ValidateMessage(msg); err != nil {
				return MigrationResult{}, err
			}
			app, migrated, err := e.MigrateAnswersToLatestFormVersion(ctx, msg.Application)
			if err != nil {
				return MigrationResult{}, err
			}
			return MigrationResult{Application: app, Migrated: migrated}, nil
		},
	)
}

// ValidateAnswerHandler answers ValidateAnswer messages with the failed
// constraints.
func (e *Engine) ValidateAnswerHandler() formversion.Querier[ValidateAnswer, []validation.Violation] {
	return formversion.QueryFunc[ValidateAnswer, []validation.Violation](
		func(_ context.Context, msg ValidateAnswer) ([]validation.Violation, error) {
			if err := formversion.ValidateMessage(msg); err != nil {
				return nil, err
			}
			return e.validator.ValidateQuestion(msg.Context, msg.Answer, msg.Question), nil
		},
	)
}

// InvalidateTemplateHandler executes InvalidateTemplate messages.
func (e *Engine) InvalidateTemplateHandler() formversion.Commander[InvalidateTemplate] {
	return formversion.CommandFunc[InvalidateTemplate](
		func(ctx context.Context, msg InvalidateTemplate) error {
			if err := formversion.ValidateMessage(msg); err != nil {
				return err
			}
			switch msg.Scope {
			case ScopeActiveHealthCertificate:
				return e.InvalidateActiveHealthCertificate(ctx, msg.EHC)
			case ScopeHealthCertificate:
				return e.InvalidateHealthCertificate(ctx, msg.EXA, msg.EHC)
			default:
				return e.InvalidateActiveExaDocument(ctx, msg.EXA)
			}
		},
	)
}

// Subscribe registers the engine's handlers on d. Invalidation commands run
// once: a failed batch delete is returned to the caller, never retried.
func (e *Engine) Subscribe(d *dispatcher.Dispatcher) []dispatcher.Subscription {
	return []dispatcher.Subscription{
		dispatcher.SubscribeQuery[MigrateApplication, MigrationResult](d, e.MigrateApplicationHandler()),
		dispatcher.SubscribeQuery[ValidateAnswer, []validation.Violation](d, e.ValidateAnswerHandler()),
		dispatcher.SubscribeCommand[InvalidateTemplate](d, e.InvalidateTemplateHandler()),
	}
}
