package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the calculation and reconciliation engine.
// Callers branch on them with errors.Is; the concrete value is usually a *CalcError.
var (
	// ErrInvalidInput is a malformed or out-of-range numeric input. Local to one calculation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrQuantityExceeded means a return would exceed the quantity still returnable.
	ErrQuantityExceeded = errors.New("quantity exceeded")

	// ErrInsufficientStock means a stock adjustment would drive stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrEmptyReturn means no return line carries a positive quantity.
	ErrEmptyReturn = errors.New("empty return")

	// ErrRefundDetailsMissing means the refund method needs a reference that was not supplied.
	ErrRefundDetailsMissing = errors.New("refund details missing")

	// ErrRoundingMismatch signals that tax components disagree with the line tax by more
	// than MoneyTolerance. It indicates a calculator bug and is never corrected silently.
	ErrRoundingMismatch = errors.New("rounding mismatch")
)

// CalcError wraps a sentinel with the offending field and human-readable details.
type CalcError struct {
	Err     error
	Field   string
	Details string
}

func (e *CalcError) Error() string {
	switch {
	case e.Field != "" && e.Details != "":
		return fmt.Sprintf("%s: %s: %s", e.Err.Error(), e.Field, e.Details)
	case e.Details != "":
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Field)
	}
	return e.Err.Error()
}

func (e *CalcError) Unwrap() error {
	return e.Err
}

func invalidInput(field, format string, args ...any) error {
	return &CalcError{Err: ErrInvalidInput, Field: field, Details: fmt.Sprintf(format, args...)}
}

func quantityExceeded(field, format string, args ...any) error {
	return &CalcError{Err: ErrQuantityExceeded, Field: field, Details: fmt.Sprintf(format, args...)}
}

func insufficientStock(field, format string, args ...any) error {
	return &CalcError{Err: ErrInsufficientStock, Field: field, Details: fmt.Sprintf(format, args...)}
}

func refundDetailsMissing(field, details string) error {
	return &CalcError{Err: ErrRefundDetailsMissing, Field: field, Details: details}
}
