// Package validation checks answers against the declarative constraints of
// a merged form question.
package validation

import (
	"time"

	formversion "github.com/goliatone/go-formversion"
)

// RuleFunc validates an answer against the opaque rule of a constraint.
// A non-nil error means the rule itself is unusable.
type RuleFunc func(answer, rule string) (bool, error)

// QuestionFunc validates an answer against the question it belongs to.
type QuestionFunc func(answer string, q formversion.MergedFormQuestion) (bool, error)

// DateFunc validates an answer relative to the application's submission date.
type DateFunc func(answer, rule string, submitted time.Time) (bool, error)

func defaultRules(patterns *patternCache) map[formversion.AnswerConstraintType]RuleFunc {
	return map[formversion.AnswerConstraintType]RuleFunc{
		formversion.ConstraintRequired:                   required,
		formversion.ConstraintMaxSize:                    maxSize,
		formversion.ConstraintMinSize:                    minSize,
		formversion.ConstraintMaxValue:                   maxValue,
		formversion.ConstraintMinValue:                   minValue,
		formversion.ConstraintWholeNumber:                patterns.wholeNumber,
		formversion.ConstraintDecimalNumber:              patterns.decimalNumber,
		formversion.ConstraintDecimalNumberUpTo6Decimals: patterns.decimalNumberUpTo6Decimals,
		formversion.ConstraintMaxCarriageReturn:          maxCarriageReturn,
		formversion.ConstraintDate:                       date,
	}
}

func defaultQuestionRules() map[formversion.AnswerConstraintType]QuestionFunc {
	return map[formversion.AnswerConstraintType]QuestionFunc{
		formversion.ConstraintSelectOne:       selectOne,
		formversion.ConstraintSelectOneOrMany: selectOneOrMany,
	}
}

func defaultDateRules() map[formversion.AnswerConstraintType]DateFunc {
	return map[formversion.AnswerConstraintType]DateFunc{
		formversion.ConstraintLowerDateBoundary: lowerDateBoundary,
		formversion.ConstraintUpperDateBoundary: upperDateBoundary,
	}
}

// Validator dispatches a constraint to its predicate. The dispatch tables are
// fixed once NewValidator returns.
type Validator struct {
	rules     map[formversion.AnswerConstraintType]RuleFunc
	questions map[formversion.AnswerConstraintType]QuestionFunc
	dates     map[formversion.AnswerConstraintType]DateFunc
	patterns  *patternCache
	logger    formversion.Logger
	now       func() time.Time
	location  *time.Location
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger used to report unusable constraints.
func WithLogger(logger formversion.Logger) Option {
	return func(v *Validator) {
		v.logger = formversion.NormalizeLogger(logger)
	}
}

// WithClock sets the clock used when an application has not been submitted.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithLocation sets the zone in which "today" and submission dates are read.
func WithLocation(loc *time.Location) Option {
	return func(v *Validator) {
		if loc != nil {
			v.location = loc
		}
	}
}

// WithRule adds or replaces the predicate of a rule based constraint type.
func WithRule(t formversion.AnswerConstraintType, fn RuleFunc) Option {
	return func(v *Validator) {
		if fn == nil {
			return
		}
		delete(v.questions, t)
		delete(v.dates, t)
		v.rules[t] = fn
	}
}

// WithQuestionRule adds or replaces a predicate that needs the question.
func WithQuestionRule(t formversion.AnswerConstraintType, fn QuestionFunc) Option {
	return func(v *Validator) {
		if fn == nil {
			return
		}
		delete(v.rules, t)
		delete(v.dates, t)
		v.questions[t] = fn
	}
}

// WithoutConstraint removes a constraint type from the dispatch tables.
func WithoutConstraint(t formversion.AnswerConstraintType) Option {
	return func(v *Validator) {
		delete(v.rules, t)
		delete(v.questions, t)
		delete(v.dates, t)
	}
}

// NewValidator builds a validator with the default constraint table.
func NewValidator(opts ...Option) *Validator {
	patterns := newPatternCache()
	v := &Validator{
		rules:     defaultRules(patterns),
		questions: defaultQuestionRules(),
		dates:     defaultDateRules(),
		patterns:  patterns,
		logger:    formversion.NewFmtLogger(nil),
		now:       time.Now,
		location:  time.UTC,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Supports reports whether a predicate is mapped for t.
func (v *Validator) Supports(t formversion.AnswerConstraintType) bool {
	if _, ok := v.dates[t]; ok {
		return true
	}
	if _, ok := v.questions[t]; ok {
		return true
	}
	_, ok := v.rules[t]
	return ok
}

// SubmittedDate is the reference date for date boundaries: the submission
// date of the application, or today when it has not been submitted. The
// result is midnight UTC of that calendar day.
func (v *Validator) SubmittedDate(app formversion.ApplicationContext) time.Time {
	at := v.now()
	if app.SubmittedAt != nil {
		at = *app.SubmittedAt
	}
	y, m, d := at.In(v.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsValid reports whether answer satisfies constraint c of question q.
// Unmapped constraint types and unusable rules are logged and fail.
func (v *Validator) IsValid(
	app formversion.ApplicationContext,
	answer string,
	c formversion.AnswerConstraint,
	q formversion.MergedFormQuestion,
) bool {
	var (
		ok  bool
		err error
	)

	if fn, found := v.dates[c.Type]; found {
		ok, err = fn(answer, c.Rule, v.SubmittedDate(app))
	} else if fn, found := v.questions[c.Type]; found {
		ok, err = fn(answer, q)
	} else if fn, found := v.rules[c.Type]; found {
		ok, err = fn(answer, c.Rule)
	} else {
		v.logger.Error("no validator mapped for constraint type %q (question %d, form question %d)",
			c.Type, q.QuestionID, q.FormQuestionID)
		return false
	}

	if err != nil {
		v.logger.Error("constraint %s on form question %d is unusable: %v", c.Type, q.FormQuestionID, err)
		return false
	}
	return ok
}
