package app

import (
	"accounting-core/internal/core"

	"github.com/shopspring/decimal"
)

// CalculateDocumentRequest is the input for CalculateDocument.
type CalculateDocumentRequest struct {
	Method string              `json:"method"` // inclusive or exclusive; empty means the configured default
	Lines  []core.DocumentLine `json:"lines"`
}

// JournalRequest is the input for creating or validating a journal entry.
// Accounts are referenced by code.
type JournalRequest struct {
	TransactionDate string             `json:"transaction_date"` // YYYY-MM-DD; empty means today
	Description     string             `json:"description"`
	IdempotencyKey  string             `json:"idempotency_key"`
	Lines           []JournalLineInput `json:"lines"`
}

// JournalLineInput is a single line within a JournalRequest.
type JournalLineInput struct {
	AccountCode string          `json:"account_code"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}
