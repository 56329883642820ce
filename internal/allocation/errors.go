package allocation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind classifies a failed command.  Callers branch on the kind, never
// on message text.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindInsufficientArea
	KindAlreadyDeactivated
	KindContractInactive
	KindInvalidInput
	KindConcurrencyConflict
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindNotFound:
		return "NotFound"
	case KindInsufficientArea:
		return "InsufficientArea"
	case KindAlreadyDeactivated:
		return "AlreadyDeactivated"
	case KindContractInactive:
		return "ContractInactive"
	case KindInvalidInput:
		return "InvalidInput"
	case KindConcurrencyConflict:
		return "ConcurrencyConflict"
	default:
		return "Unexpected"
	}
}

// Error codes reported to API clients.
const (
	CodeFacilityNotFound    = "Facility.NotFound"
	CodeEquipmentNotFound   = "Equipment.NotFound"
	CodeContractNotFound    = "Contract.NotFound"
	CodeInsufficientArea    = "Facility.InsufficientArea"
	CodeAlreadyDeactivated  = "Contract.AlreadyDeactivated"
	CodeContractInactive    = "Contract.Inactive"
	CodeInvalidInput        = "Validation.InvalidInput"
	CodeConcurrencyConflict = "General.ConcurrencyConflict"
	CodeUnexpected          = "General.UnexpectedError"
)

// Error is the outcome of a rejected command.  RequiredArea and
// AvailableArea are only set for KindInsufficientArea, Fields only for
// KindInvalidInput.
type Error struct {
	Kind          Kind
	Code          string
	Message       string
	FacilityCode  string
	RequiredArea  decimal.Decimal
	AvailableArea decimal.Decimal
	Fields        []FieldError
	Err           error
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindUnexpected {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind.  A target carrying a code must also
// match the code, so errors.Is(err, ErrNotFound) holds for every
// not-found error while a fully built target narrows it further.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is checks by kind.
var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInsufficientArea    = &Error{Kind: KindInsufficientArea}
	ErrAlreadyDeactivated  = &Error{Kind: KindAlreadyDeactivated}
	ErrContractInactive    = &Error{Kind: KindContractInactive}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrConcurrencyConflict = &Error{Kind: KindConcurrencyConflict}
	ErrUnexpected          = &Error{Kind: KindUnexpected}
)

// KindOf reports the kind of err.  nil yields KindNone and errors that
// did not come from this package are KindUnexpected.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

func facilityNotFound(code string) *Error {
	return &Error{
		Kind:         KindNotFound,
		Code:         CodeFacilityNotFound,
		Message:      fmt.Sprintf("Facility with code '%s' was not found", code),
		FacilityCode: code,
	}
}

func equipmentNotFound(code string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeEquipmentNotFound,
		Message: fmt.Sprintf("Equipment type with code '%s' was not found", code),
	}
}

func contractNotFound(id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeContractNotFound,
		Message: fmt.Sprintf("Contract with id '%s' was not found", id),
	}
}

func insufficientArea(facilityCode string, required, available decimal.Decimal) *Error {
	return &Error{
		Kind: KindInsufficientArea,
		Code: CodeInsufficientArea,
		Message: fmt.Sprintf("Insufficient area in facility %s. Required: %s m², Available: %s m²",
			facilityCode, required.String(), available.String()),
		FacilityCode:  facilityCode,
		RequiredArea:  required,
		AvailableArea: available,
	}
}

func alreadyDeactivated(id string) *Error {
	return &Error{
		Kind:    KindAlreadyDeactivated,
		Code:    CodeAlreadyDeactivated,
		Message: fmt.Sprintf("Contract '%s' is already deactivated", id),
	}
}

func contractInactive(id string) *Error {
	return &Error{
		Kind:    KindContractInactive,
		Code:    CodeContractInactive,
		Message: fmt.Sprintf("Contract '%s' is inactive and cannot be modified", id),
	}
}

func invalidInput(msg string, fields ...FieldError) *Error {
	return &Error{Kind: KindInvalidInput, Code: CodeInvalidInput, Message: msg, Fields: fields}
}

func concurrencyConflict(err error) *Error {
	return &Error{
		Kind:    KindConcurrencyConflict,
		Code:    CodeConcurrencyConflict,
		Message: "The facility was modified concurrently; retry the command",
		Err:     err,
	}
}

func unexpected(err error) *Error {
	return &Error{
		Kind:    KindUnexpected,
		Code:    CodeUnexpected,
		Message: "An unexpected error occurred",
		Err:     err,
	}
}
