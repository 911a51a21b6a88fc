// Package apperr defines the typed domain errors returned by the ledger engine.
//
// Every error carries a stable Code that clients can switch on, a human
// readable Message and, where it applies, the offending input Field.
// Storage failures are never converted into an Error; they stay wrapped
// Go errors and surface as internal failures.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable, client-visible error code.
type Code string

// Validation codes.
const (
	CodeValidation                Code = "VALIDATION_ERROR"
	CodeInvalidSplitTotal         Code = "INVALID_SPLIT_TOTAL"
	CodeInvalidSplitPercent       Code = "INVALID_SPLIT_PERCENT"
	CodeInvalidSplitShare         Code = "INVALID_SPLIT_SHARE"
	CodeDuplicateSplitParticipant Code = "DUPLICATE_SPLIT_PARTICIPANT"
	CodePayerNotInSplits          Code = "PAYER_NOT_IN_SPLITS"
	CodePayerRequired             Code = "PAYER_REQUIRED"
	CodeSplitsRequired            Code = "SPLITS_REQUIRED"
)

// Conflict codes.
const (
	CodeCategoryExists         Code = "CATEGORY_EXISTS"
	CodeParticipantEmailExists Code = "PARTICIPANT_EMAIL_EXISTS"
	CodeExpenseVersionConflict Code = "EXPENSE_VERSION_CONFLICT"
)

// Not found codes.
const (
	CodeExpenseNotFound     Code = "EXPENSE_NOT_FOUND"
	CodeCategoryNotFound    Code = "CATEGORY_NOT_FOUND"
	CodeGroupNotFound       Code = "GROUP_NOT_FOUND"
	CodeParticipantNotFound Code = "PARTICIPANT_NOT_FOUND"
	CodeUserNotFound        Code = "USER_NOT_FOUND"
)

// Business rule codes.
const (
	CodeCannotRemoveSelf     Code = "CANNOT_REMOVE_SELF"
	CodeCategoryInUse        Code = "CATEGORY_IN_USE"
	CodeInvalidParticipants  Code = "INVALID_PARTICIPANTS"
	CodeParticipantOwnsGroup Code = "PARTICIPANT_OWNS_GROUP"
)

// Kind groups codes by how a caller should react to them.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindBusinessRule
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindBusinessRule:
		return "business_rule"
	default:
		return "unknown"
	}
}

var kinds = map[Code]Kind{
	CodeValidation:                KindValidation,
	CodeInvalidSplitTotal:         KindValidation,
	CodeInvalidSplitPercent:       KindValidation,
	CodeInvalidSplitShare:         KindValidation,
	CodeDuplicateSplitParticipant: KindValidation,
	CodePayerNotInSplits:          KindValidation,
	CodePayerRequired:             KindValidation,
	CodeSplitsRequired:            KindValidation,

	CodeCategoryExists:         KindConflict,
	CodeParticipantEmailExists: KindConflict,
	CodeExpenseVersionConflict: KindConflict,

	CodeExpenseNotFound:     KindNotFound,
	CodeCategoryNotFound:    KindNotFound,
	CodeGroupNotFound:       KindNotFound,
	CodeParticipantNotFound: KindNotFound,
	CodeUserNotFound:        KindNotFound,

	CodeCannotRemoveSelf:     KindBusinessRule,
	CodeCategoryInUse:        KindBusinessRule,
	CodeInvalidParticipants:  KindBusinessRule,
	CodeParticipantOwnsGroup: KindBusinessRule,
}

// Error is a domain error.
type Error struct {
	Code    Code
	Message string
	Field   string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Kind returns the category of the error's code.
func (e *Error) Kind() Kind {
	return kinds[e.Code]
}

// Is matches any *Error with the same code, so errors.Is(err, apperr.New(code, ""))
// works without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New returns an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf returns an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithField returns a copy of e pointing at the offending input field.
func (e *Error) WithField(field string) *Error {
	c := *e
	c.Field = field
	return &c
}

// Validation returns a VALIDATION_ERROR for field.
func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Field: field}
}

// As extracts the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of the domain error in err's chain, or "" if there is none.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
