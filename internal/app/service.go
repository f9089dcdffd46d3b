package app

import (
	"context"

	"accounting-core/internal/core"
)

// ApplicationService is the single interface the CLI adapter calls.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
type ApplicationService interface {
	// Company returns the company the service is scoped to.
	Company() core.Company

	// CalculateDocument recomputes every line and the document totals for an
	// invoice, bill or estimate. An empty method uses the configured default.
	CalculateDocument(ctx context.Context, req CalculateDocumentRequest) (*CalculationResult, error)

	// ValidateJournal checks proposed lines without persisting anything. Balance and
	// line failures are reported in the result; only unresolvable input is an error.
	ValidateJournal(ctx context.Context, req JournalRequest) (*ValidationReport, error)

	// CreateJournalEntry validates the lines and persists them as a DRAFT entry.
	CreateJournalEntry(ctx context.Context, req JournalRequest) (*EntryResult, error)

	// EditJournalLines replaces the lines of a DRAFT entry.
	EditJournalLines(ctx context.Context, id int, lines []JournalLineInput) (*EntryResult, error)

	// PostJournalEntry finalizes a DRAFT entry and applies it to account balances.
	PostJournalEntry(ctx context.Context, id int) (*EntryResult, error)

	// ReverseJournalEntry cancels a POSTED entry by posting its mirror image.
	ReverseJournalEntry(ctx context.Context, id int, reason string) (*ReversalResult, error)

	// GetJournalEntry loads one entry in whatever state it is in.
	GetJournalEntry(ctx context.Context, id int) (*EntryResult, error)

	// GetTrialBalance returns running balances for every account of the company.
	GetTrialBalance(ctx context.Context) (*TrialBalanceResult, error)

	// DraftJournal asks the AI assistant to propose an entry for a described event.
	// The proposal is validated but never persisted.
	DraftJournal(ctx context.Context, event string) (*AIResult, error)

	// CommitProposal creates a DRAFT entry from a proposal. Must only be called
	// after explicit user approval.
	CommitProposal(ctx context.Context, proposal core.Proposal, idempotencyKey string) (*EntryResult, error)
}
