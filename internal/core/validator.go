package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

// DefaultBalanceTolerance is one minor currency unit.
var DefaultBalanceTolerance = decimal.New(1, -2)

// AmountPlaces is the number of decimal places journal amounts are kept at.
const AmountPlaces = 2

// RoundLines returns a copy of lines with both sides rounded half-up to AmountPlaces.
// Entries hold, and stores persist, exactly these amounts.
func RoundLines(lines []JournalLine) []JournalLine {
	if lines == nil {
		return nil
	}
	out := make([]JournalLine, len(lines))
	for i, l := range lines {
		l.Debit = l.Debit.Round(AmountPlaces)
		l.Credit = l.Credit.Round(AmountPlaces)
		out[i] = l
	}
	return out
}

// ValidationResult reports the outcome of checking a proposed set of journal lines.
// Difference is debits minus credits.
type ValidationResult struct {
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Difference  decimal.Decimal `json:"difference"`
	Errors      []error         `json:"-"`
}

// Valid reports whether the lines may be submitted.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err joins every failure into one error, or returns nil when the lines are valid.
func (r ValidationResult) Err() error {
	return errors.Join(r.Errors...)
}

// Messages returns the failures as strings, for surfaces that cannot carry errors.
func (r ValidationResult) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		out = append(out, err.Error())
	}
	return out
}

// Validator checks the double-entry identity. It never changes its input to force balance.
type Validator struct {
	Tolerance decimal.Decimal
	Accounts  AccountDirectory // optional; enables unknown-account checks and labelled errors
}

// NewValidator returns a Validator with the given tolerance; a zero or negative tolerance
// falls back to DefaultBalanceTolerance.
func NewValidator(tolerance decimal.Decimal, accounts AccountDirectory) Validator {
	if !tolerance.IsPositive() {
		tolerance = DefaultBalanceTolerance
	}
	return Validator{Tolerance: tolerance, Accounts: accounts}
}

// ValidateJournal checks lines with the default tolerance and no chart of accounts.
func ValidateJournal(lines []JournalLine) ValidationResult {
	return NewValidator(DefaultBalanceTolerance, nil).Validate(lines)
}

// Validate works on the lines as rounded by RoundLines and enforces, in order of reporting:
//   - at least two lines
//   - every line references an account (and, with a directory, a known one)
//   - every line carries exactly one non-negative, non-zero side
//   - total debits equal total credits within the tolerance
func (v Validator) Validate(lines []JournalLine) ValidationResult {
	tolerance := v.Tolerance
	if !tolerance.IsPositive() {
		tolerance = DefaultBalanceTolerance
	}

	res := ValidationResult{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}

	if len(lines) < 2 {
		res.Errors = append(res.Errors, ErrTooFewLines)
	}

	for i, line := range RoundLines(lines) {
		if err := v.checkLine(i, line); err != nil {
			res.Errors = append(res.Errors, err)
		}
		res.TotalDebit = res.TotalDebit.Add(line.Debit)
		res.TotalCredit = res.TotalCredit.Add(line.Credit)
	}

	res.Difference = res.TotalDebit.Sub(res.TotalCredit)
	if res.Difference.Abs().GreaterThan(tolerance) {
		res.Errors = append(res.Errors, &UnbalancedEntryError{
			TotalDebit:  res.TotalDebit,
			TotalCredit: res.TotalCredit,
			Difference:  res.Difference,
		})
	}
	return res
}

func (v Validator) checkLine(i int, line JournalLine) error {
	label := ""
	if line.AccountID <= 0 {
		return &IncompleteLineError{Index: i, Field: "account_id", Reason: "is missing"}
	}
	if v.Accounts != nil {
		acct, ok := v.Accounts.AccountByID(line.AccountID)
		if !ok {
			return &IncompleteLineError{Index: i, Field: "account_id", Reason: "does not match any account"}
		}
		label = acct.Label()
	}

	switch {
	case line.Debit.IsNegative():
		return &IncompleteLineError{Index: i, Field: "debit_amount", Reason: "must not be negative", AccountLabel: label}
	case line.Credit.IsNegative():
		return &IncompleteLineError{Index: i, Field: "credit_amount", Reason: "must not be negative", AccountLabel: label}
	case line.Debit.IsZero() && line.Credit.IsZero():
		return &IncompleteLineError{Index: i, Field: "amount", Reason: "needs a debit or a credit", AccountLabel: label}
	case !line.Debit.IsZero() && !line.Credit.IsZero():
		return &IncompleteLineError{Index: i, Field: "amount", Reason: "cannot carry both a debit and a credit", AccountLabel: label}
	}
	return nil
}
