package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	Asset     AccountType = "asset"
	Liability AccountType = "liability"
	Equity    AccountType = "equity"
	Revenue   AccountType = "revenue"
	Expense   AccountType = "expense"
)

type Account struct {
	ID        int         `json:"id"`
	CompanyID int         `json:"company_id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
}

// Label is the human-readable form used in validation messages.
func (a Account) Label() string {
	return fmt.Sprintf("%s %s", a.Code, a.Name)
}

type Company struct {
	ID           int    `json:"id"`
	CompanyCode  string `json:"company_code"`
	Name         string `json:"name"`
	BaseCurrency string `json:"base_currency"`
}

// VATType is a company-scoped tax category. It is read-only to the engines.
type VATType struct {
	ID          int             `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Rate        decimal.Decimal `json:"rate"` // percent, e.g. 15 for 15%
	IsZeroRated bool            `json:"is_zero_rated"`
}

// ZeroRated reports whether no VAT can be derived from this type.
// The rate is authoritative: a type flagged zero-rated with a non-zero rate is inconsistent data,
// and the calculator follows the rate.
func (v VATType) ZeroRated() bool {
	return v.Rate.IsZero()
}

// CalculationMethod decides whether entered line amounts already contain VAT.
// It is chosen once per document and applied to every non-zero-rated line.
type CalculationMethod string

const (
	Inclusive CalculationMethod = "inclusive"
	Exclusive CalculationMethod = "exclusive"
)

// ParseCalculationMethod accepts "inclusive" or "exclusive" in any case.
func ParseCalculationMethod(s string) (CalculationMethod, error) {
	switch CalculationMethod(strings.ToLower(strings.TrimSpace(s))) {
	case Inclusive:
		return Inclusive, nil
	case Exclusive:
		return Exclusive, nil
	}
	return "", &LineInputError{Index: -1, Field: "calculation method", Value: fmt.Sprintf("%q is not inclusive or exclusive", s)}
}

func (m CalculationMethod) Valid() bool {
	return m == Inclusive || m == Exclusive
}

func (m *CalculationMethod) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCalculationMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// LineInput is one document line as entered on an invoice, bill or estimate.
type LineInput struct {
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	VATType   VATType         `json:"vat_type"`
}

// LineResult is derived from a LineInput and the document's method; it is never stored on its own.
// Rate is carried so the aggregator can bucket VAT without the originating input.
type LineResult struct {
	LineAmount  decimal.Decimal `json:"line_amount"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	VATAmount   decimal.Decimal `json:"vat_amount"`
	GrossAmount decimal.Decimal `json:"gross_amount"`
	Rate        decimal.Decimal `json:"rate"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// DocumentTotals summarises a full set of line results.
// VATByBucket is keyed by the rate label, e.g. "15%".
type DocumentTotals struct {
	Subtotal    decimal.Decimal            `json:"subtotal"`
	VATAmount   decimal.Decimal            `json:"vat_amount"`
	Total       decimal.Decimal            `json:"total"`
	VATByBucket map[string]decimal.Decimal `json:"vat_by_bucket"`
}

// JournalLine is one side of a double-entry posting. Exactly one of Debit and Credit is non-zero.
type JournalLine struct {
	AccountID   int             `json:"account_id"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit_amount"`
	Credit      decimal.Decimal `json:"credit_amount"`
}

// IsDebit reports whether the line posts to the debit side.
func (l JournalLine) IsDebit() bool {
	return l.Debit.IsPositive()
}

// EntryRecord is the flat, persistable form of a journal entry.
// Stores read and write records; the typed Entry variants are built from them with RestoreEntry.
type EntryRecord struct {
	ID              int           `json:"id"`
	EntryNumber     string        `json:"entry_number,omitempty"`
	TransactionDate time.Time     `json:"transaction_date"`
	Description     string        `json:"description"`
	IdempotencyKey  string        `json:"idempotency_key,omitempty"`
	State           EntryState    `json:"state"`
	ReversalOfID    *int          `json:"reversal_of_id,omitempty"`
	ReversedByID    *int          `json:"reversed_by_id,omitempty"`
	PostedAt        *time.Time    `json:"posted_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	Lines           []JournalLine `json:"lines"`
}
