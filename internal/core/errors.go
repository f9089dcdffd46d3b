package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds surfaced by the calculation and journal engines.
// Every detailed error below unwraps to one of these, so callers can branch with errors.Is.
var (
	// ErrInvalidLineInput marks malformed document line data (negative quantity, price, discount).
	ErrInvalidLineInput = errors.New("invalid line input")

	// ErrUnbalancedEntry is returned when total debits and credits differ by more than the tolerance.
	ErrUnbalancedEntry = errors.New("unbalanced journal entry")

	// ErrIncompleteLine is returned when a journal line is missing an account or an amount.
	ErrIncompleteLine = errors.New("incomplete journal line")

	// ErrInvalidTransition is returned when a lifecycle event is not allowed from the entry's state.
	ErrInvalidTransition = errors.New("invalid journal entry transition")

	// ErrImmutableEntry is returned on any attempt to change the lines of a non-draft entry.
	ErrImmutableEntry = errors.New("journal entry is immutable")

	// ErrEntryNotFound is returned by stores when no entry exists for an ID.
	ErrEntryNotFound = errors.New("journal entry not found")

	// ErrDuplicateEntry is returned by stores when an idempotency key has already been used.
	ErrDuplicateEntry = errors.New("duplicate journal entry")
)

// ErrTooFewLines is an IncompleteLine failure: two lines are the minimum that can balance.
var ErrTooFewLines = fmt.Errorf("%w: journal entry needs at least 2 lines", ErrIncompleteLine)

// LineInputError reports which field of which document line was rejected.
type LineInputError struct {
	Index int // -1 when the error is not tied to a specific line
	Field string
	Value string
}

func (e *LineInputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s %s", ErrInvalidLineInput, e.Field, e.Value)
	}
	return fmt.Sprintf("%s: line %d: %s %s", ErrInvalidLineInput, e.Index+1, e.Field, e.Value)
}

func (e *LineInputError) Unwrap() error { return ErrInvalidLineInput }

// UnbalancedEntryError carries the signed difference (debits minus credits)
// so the user can locate the missing amount.
type UnbalancedEntryError struct {
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Difference  decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("%s: debits %s != credits %s (difference %s)",
		ErrUnbalancedEntry, e.TotalDebit.StringFixed(2), e.TotalCredit.StringFixed(2), e.Difference.StringFixed(2))
}

func (e *UnbalancedEntryError) Unwrap() error { return ErrUnbalancedEntry }

// IncompleteLineError identifies the offending journal line (zero-based Index) and field.
// AccountLabel is filled in when a chart of accounts was available during validation.
type IncompleteLineError struct {
	Index        int
	Field        string
	Reason       string
	AccountLabel string
}

func (e *IncompleteLineError) Error() string {
	msg := fmt.Sprintf("%s: line %d: %s %s", ErrIncompleteLine, e.Index+1, e.Field, e.Reason)
	if e.AccountLabel != "" {
		msg += fmt.Sprintf(" (account %s)", e.AccountLabel)
	}
	return msg
}

func (e *IncompleteLineError) Unwrap() error { return ErrIncompleteLine }

// TransitionError reports a rejected lifecycle event.
type TransitionError struct {
	EntryID int
	From    EntryState
	Event   EntryEvent
	Cause   error // ErrInvalidTransition or ErrImmutableEntry
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s entry %d in state %s", e.Cause, e.Event, e.EntryID, e.From)
}

func (e *TransitionError) Unwrap() error { return e.Cause }
