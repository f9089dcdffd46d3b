package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProposalLine is one debit or credit line of a drafted journal entry, with the
// account given by code and the amount as text.
type ProposalLine struct {
	AccountCode string `json:"account_code" jsonschema_description:"The exact account code from the provided Chart of Accounts"`
	IsDebit     bool   `json:"is_debit" jsonschema_description:"True if this line is a debit, false for credit"`
	Amount      string `json:"amount" jsonschema_description:"The exact monetary amount of this line (always positive) as a string with two decimals"`
	Description string `json:"description" jsonschema_description:"Short description of this line"`
}

// Proposal is a drafted journal entry that has not yet been turned into a DraftInput.
type Proposal struct {
	Summary         string         `json:"summary" jsonschema_description:"A brief summary of the business event, used as the entry description"`
	TransactionDate string         `json:"transaction_date" jsonschema_description:"The transaction date in YYYY-MM-DD format. Use today's date if unspecified."`
	Confidence      float64        `json:"confidence" jsonschema_description:"Confidence score between 0.0 and 1.0"`
	Reasoning       string         `json:"reasoning" jsonschema_description:"Explanation for the proposed journal entry"`
	Lines           []ProposalLine `json:"lines" jsonschema_description:"List of debit and credit lines; total debits must equal total credits"`
}

// ClarificationRequest is returned by the drafting assistant when the input is ambiguous.
type ClarificationRequest struct {
	Message string `json:"message" jsonschema_description:"A message asking the user for the missing details"`
}

// AgentResponse holds exactly one of a Proposal or a ClarificationRequest.
type AgentResponse struct {
	IsClarificationRequest bool                  `json:"is_clarification_request" jsonschema_description:"Set to true ONLY if you lack enough information to create a confident proposal."`
	Clarification          *ClarificationRequest `json:"clarification,omitempty" jsonschema_description:"Required if is_clarification_request is true."`
	Proposal               *Proposal             `json:"proposal,omitempty" jsonschema_description:"Required if is_clarification_request is false."`
}

// Normalize cleans up free-form input before conversion.
func (p *Proposal) Normalize() {
	p.Summary = strings.TrimSpace(p.Summary)
	p.TransactionDate = strings.TrimSpace(p.TransactionDate)

	for i := range p.Lines {
		line := &p.Lines[i]
		line.AccountCode = strings.TrimSpace(line.AccountCode)
		line.Description = strings.TrimSpace(line.Description)

		amt := strings.TrimSpace(line.Amount)
		if amt == "" || strings.EqualFold(amt, "null") {
			amt = "0.00"
		}
		line.Amount = strings.ReplaceAll(amt, ",", "")
	}
}

// ToDraftInput resolves account codes and parses amounts. It does not check balance;
// the resulting lines go through the Validator like any other submission.
// An empty transaction date falls back to today.
func (p *Proposal) ToDraftInput(accounts AccountDirectory, today time.Time) (DraftInput, error) {
	if accounts == nil {
		return DraftInput{}, errors.New("a chart of accounts is required to resolve account codes")
	}

	date := today
	if p.TransactionDate != "" {
		parsed, err := time.Parse("2006-01-02", p.TransactionDate)
		if err != nil {
			return DraftInput{}, fmt.Errorf("invalid transaction date format: %w", err)
		}
		date = parsed
	}

	lines := make([]JournalLine, 0, len(p.Lines))
	for i, pl := range p.Lines {
		acct, ok := accounts.AccountByCode(pl.AccountCode)
		if !ok {
			return DraftInput{}, &IncompleteLineError{Index: i, Field: "account_code", Reason: fmt.Sprintf("%q does not match any account", pl.AccountCode)}
		}
		amt, err := decimal.NewFromString(pl.Amount)
		if err != nil {
			return DraftInput{}, &IncompleteLineError{Index: i, Field: "amount", Reason: fmt.Sprintf("%q is not a number", pl.Amount), AccountLabel: acct.Label()}
		}

		line := JournalLine{AccountID: acct.ID, Description: pl.Description, Debit: decimal.Zero, Credit: decimal.Zero}
		if pl.IsDebit {
			line.Debit = amt
		} else {
			line.Credit = amt
		}
		lines = append(lines, line)
	}

	return DraftInput{
		TransactionDate: date,
		Description:     p.Summary,
		Lines:           lines,
	}, nil
}
