package app

import (
	"time"

	"accounting-core/internal/core"
	"accounting-core/internal/ledger"

	"github.com/shopspring/decimal"
)

// CalculationResult is returned by CalculateDocument.
type CalculationResult struct {
	Method   core.CalculationMethod `json:"method"`
	Lines    []core.LineResult      `json:"lines"`
	Totals   core.DocumentTotals    `json:"totals"`
	Buckets  []core.VATBucket       `json:"buckets"`
	Warnings []string               `json:"warnings,omitempty"`
}

// ValidationReport is returned by ValidateJournal.
type ValidationReport struct {
	Valid       bool            `json:"valid"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Difference  decimal.Decimal `json:"difference"`
	Errors      []string        `json:"errors,omitempty"`
}

// EntryLineView is a journal line with its account resolved for display.
type EntryLineView struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// EntryResult is returned by journal lifecycle operations.
type EntryResult struct {
	ID              int             `json:"id"`
	EntryNumber     string          `json:"entry_number"`
	State           core.EntryState `json:"state"`
	TransactionDate string          `json:"transaction_date"`
	Description     string          `json:"description"`
	ReversalOfID    *int            `json:"reversal_of_id,omitempty"`
	ReversedByID    *int            `json:"reversed_by_id,omitempty"`
	PostedAt        *time.Time      `json:"posted_at,omitempty"`
	Lines           []EntryLineView `json:"lines"`
	TotalDebit      decimal.Decimal `json:"total_debit"`
	TotalCredit     decimal.Decimal `json:"total_credit"`
}

// ReversalResult is returned by ReverseJournalEntry.
type ReversalResult struct {
	Original *EntryResult `json:"original"`
	Reversal *EntryResult `json:"reversal"`
}

// TrialBalanceResult is returned by GetTrialBalance.
type TrialBalanceResult struct {
	CompanyCode string                  `json:"company_code"`
	CompanyName string                  `json:"company_name"`
	Currency    string                  `json:"currency"`
	Accounts    []ledger.AccountBalance `json:"accounts"`
	TotalDebit  decimal.Decimal         `json:"total_debit"`
	TotalCredit decimal.Decimal         `json:"total_credit"`
}

// AIResult is returned by DraftJournal.
type AIResult struct {
	Proposal             *core.Proposal    `json:"proposal,omitempty"`
	Validation           *ValidationReport `json:"validation,omitempty"`
	ClarificationMessage string            `json:"clarification_message,omitempty"`
	IsClarification      bool              `json:"is_clarification"`
}
