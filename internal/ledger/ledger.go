// Package ledger persists journal entries and serves the company's chart of
// accounts and VAT types to the calculation and journal engines.
package ledger

import (
	"context"
	"fmt"
	"time"

	"accounting-core/internal/core"

	"github.com/shopspring/decimal"
)

// Book is everything the application needs from a company ledger.
type Book interface {
	core.JournalStore
	Company() core.Company
	Accounts(ctx context.Context) (*core.Chart, error)
	VATTypes(ctx context.Context) (*core.VATTable, error)
	TrialBalance(ctx context.Context) ([]AccountBalance, error)
}

// AccountBalance is one row of the trial balance. Balance is debit minus credit.
type AccountBalance struct {
	Code    string           `json:"code"`
	Name    string           `json:"name"`
	Type    core.AccountType `json:"type"`
	Debit   decimal.Decimal  `json:"debit"`
	Credit  decimal.Decimal  `json:"credit"`
	Balance decimal.Decimal  `json:"balance"`
}

// formatEntryNumber renders the gapless per-year sequence, e.g. JE-2026-00001.
func formatEntryNumber(year int, n int64) string {
	return fmt.Sprintf("JE-%d-%05d", year, n)
}

func invalidTransition(id int, state core.EntryState, event core.EntryEvent) error {
	return fmt.Errorf("%w: entry %d is %s, cannot %s", core.ErrInvalidTransition, id, state, event)
}

func unknownAccount(index, accountID int, companyCode string) error {
	return fmt.Errorf("line %d: account %d not found for company %s", index+1, accountID, companyCode)
}

func notFound(id int) error {
	return fmt.Errorf("%w: %d", core.ErrEntryNotFound, id)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
