package formversion

import "strings"

// FormStatus is the lifecycle status of a template revision.
type FormStatus string

const (
	FormStatusActive   FormStatus = "ACTIVE"
	FormStatusDraft    FormStatus = "DRAFT"
	FormStatusPrivate  FormStatus = "PRIVATE"
	FormStatusOffline  FormStatus = "OFFLINE"
	FormStatusInactive FormStatus = "INACTIVE"
)

// QuestionScope says who may answer a question.
type QuestionScope string

const (
	QuestionScopeApplicant  QuestionScope = "APPLICANT"
	QuestionScopeCaseworker QuestionScope = "CASEWORKER"
	QuestionScopeBoth       QuestionScope = "BOTH"
)

// AnswerConstraintType selects the validator for an AnswerConstraint.
type AnswerConstraintType string

const (
	ConstraintRequired                   AnswerConstraintType = "REQUIRED"
	ConstraintMaxSize                    AnswerConstraintType = "MAX_SIZE"
	ConstraintMinSize                    AnswerConstraintType = "MIN_SIZE"
	ConstraintMaxValue                   AnswerConstraintType = "MAX_VALUE"
	ConstraintMinValue                   AnswerConstraintType = "MIN_VALUE"
	ConstraintWholeNumber                AnswerConstraintType = "WHOLE_NUMBER"
	ConstraintDecimalNumber              AnswerConstraintType = "DECIMAL_NUMBER"
	ConstraintDecimalNumberUpTo6Decimals AnswerConstraintType = "DECIMAL_NUMBER_UPTO_6_DECIMALS"
	ConstraintMaxCarriageReturn          AnswerConstraintType = "MAX_CARRIAGE_RETURN"
	ConstraintDate                       AnswerConstraintType = "DATE"
	ConstraintLowerDateBoundary          AnswerConstraintType = "LOWER_DATE_BOUNDARY"
	ConstraintUpperDateBoundary          AnswerConstraintType = "UPPER_DATE_BOUNDARY"
	ConstraintSelectOne                  AnswerConstraintType = "SELECT_ONE"
	ConstraintSelectOneOrMany            AnswerConstraintType = "SELECT_ONE_OR_MANY"
)

// ParseFormStatus maps a case insensitive status name to a FormStatus.
func ParseFormStatus(s string) (FormStatus, bool) {
	status := FormStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case FormStatusActive, FormStatusDraft, FormStatusPrivate, FormStatusOffline, FormStatusInactive:
		return status, true
	default:
		return "", false
	}
}
