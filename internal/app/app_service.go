package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"accounting-core/internal/ai"
	"accounting-core/internal/core"
	"accounting-core/internal/ledger"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Options carries the per-company calculation settings.
type Options struct {
	Method    core.CalculationMethod
	Tolerance decimal.Decimal
}

type appService struct {
	book    ledger.Book
	drafter ai.Drafter
	opts    Options
	log     zerolog.Logger
	now     func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
// drafter may be nil when no AI key is configured.
func NewAppService(book ledger.Book, drafter ai.Drafter, opts Options, log zerolog.Logger) ApplicationService {
	if !opts.Method.Valid() {
		opts.Method = core.Exclusive
	}
	return &appService{
		book:    book,
		drafter: drafter,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

func (s *appService) Company() core.Company {
	return s.book.Company()
}

// CalculateDocument resolves VAT types from the company's table and recomputes the document.
func (s *appService) CalculateDocument(ctx context.Context, req CalculateDocumentRequest) (*CalculationResult, error) {
	method := s.opts.Method
	if strings.TrimSpace(req.Method) != "" {
		parsed, err := core.ParseCalculationMethod(req.Method)
		if err != nil {
			return nil, err
		}
		method = parsed
	}

	vatTypes, err := s.book.VATTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load VAT types: %w", err)
	}

	calc := core.NewCalculator(vatTypes, s.log)
	doc, err := calc.Recompute(req.Lines, method)
	if err != nil {
		return nil, err
	}
	return &CalculationResult{
		Method:   doc.Method,
		Lines:    doc.Lines,
		Totals:   doc.Totals,
		Buckets:  doc.Totals.Buckets(),
		Warnings: doc.Warnings,
	}, nil
}

func (s *appService) ValidateJournal(ctx context.Context, req JournalRequest) (*ValidationReport, error) {
	journal, chart, err := s.journal(ctx)
	if err != nil {
		return nil, err
	}
	lines, err := resolveLines(chart, req.Lines)
	if err != nil {
		return nil, err
	}
	return newValidationReport(journal.Validator().Validate(lines)), nil
}

func (s *appService) CreateJournalEntry(ctx context.Context, req JournalRequest) (*EntryResult, error) {
	journal, chart, err := s.journal(ctx)
	if err != nil {
		return nil, err
	}
	in, err := s.draftInput(chart, req)
	if err != nil {
		return nil, err
	}
	draft, err := journal.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return newEntryResult(draft, chart), nil
}

func (s *appService) EditJournalLines(ctx context.Context, id int, lines []JournalLineInput) (*EntryResult, error) {
	journal, chart, err := s.journal(ctx)
	if err != nil {
		return nil, err
	}
	resolved, err := resolveLines(chart, lines)
	if err != nil {
		return nil, err
	}
	entry, err := journal.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	edited, err := journal.EditLines(ctx, entry, resolved)
	if err != nil {
		return nil, err
	}
	return newEntryResult(edited, chart), nil
}

func (s *appService) PostJournalEntry(ctx context.Context, id int) (*EntryResult, error) {
	journal, chart, err := s.journal(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := journal.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	posted, err := journal.Post(ctx, entry)
	if err != nil {
		return nil, err
	}
	return newEntryResult(posted, chart), nil
}

func (s *appService) ReverseJournalEntry(ctx context.Context, id int, reason string) (*ReversalResult, error) {
	journal, chart, err := s.journal(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := journal.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	original, reversal, err := journal.Reverse(ctx, entry, reason)
	if err != nil {
		return nil, err
	}
	return &ReversalResult{
		Original: newEntryResult(original, chart),
		Reversal: newEntryResult(reversal, chart),
	}, nil
}

func (s *appService) GetJournalEntry(ctx context.Context, id int) (*EntryResult, error) {
	journal, chart, err := s.journal(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := journal.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return newEntryResult(entry, chart), nil
}

func (s *appService) GetTrialBalance(ctx context.Context) (*TrialBalanceResult, error) {
	balances, err := s.book.TrialBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trial balance: %w", err)
	}
	company := s.book.Company()
	result := &TrialBalanceResult{
		CompanyCode: company.CompanyCode,
		CompanyName: company.Name,
		Currency:    company.BaseCurrency,
		Accounts:    balances,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for _, b := range balances {
		result.TotalDebit = result.TotalDebit.Add(b.Debit)
		result.TotalCredit = result.TotalCredit.Add(b.Credit)
	}
	return result, nil
}

func (s *appService) DraftJournal(ctx context.Context, event string) (*AIResult, error) {
	if s.drafter == nil {
		return nil, errors.New("AI drafting is not configured: set OPENAI_API_KEY")
	}
	journal, chart, err := s.journal(ctx)
	if err != nil {
		return nil, err
	}

	response, err := s.drafter.DraftJournal(ctx, event, chart, s.now())
	if err != nil {
		return nil, err
	}
	if response.IsClarificationRequest {
		return &AIResult{
			IsClarification:      true,
			ClarificationMessage: response.Clarification.Message,
		}, nil
	}

	result := &AIResult{Proposal: response.Proposal}
	in, err := response.Proposal.ToDraftInput(chart, s.now())
	if err != nil {
		result.Validation = &ValidationReport{Valid: false, Errors: []string{err.Error()}}
		return result, nil
	}
	result.Validation = newValidationReport(journal.Validator().Validate(in.Lines))
	return result, nil
}

func (s *appService) CommitProposal(ctx context.Context, proposal core.Proposal, idempotencyKey string) (*EntryResult, error) {
	journal, chart, err := s.journal(ctx)
	if err != nil {
		return nil, err
	}
	proposal.Normalize()
	in, err := proposal.ToDraftInput(chart, s.now())
	if err != nil {
		return nil, err
	}
	in.IdempotencyKey = idempotencyKey
	draft, err := journal.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return newEntryResult(draft, chart), nil
}

// ── private helpers ───────────────────────────────────────────────────────────

// journal builds a JournalService over the current chart of accounts.
func (s *appService) journal(ctx context.Context) (*core.JournalService, *core.Chart, error) {
	chart, err := s.book.Accounts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load chart of accounts: %w", err)
	}
	validator := core.NewValidator(s.opts.Tolerance, chart)
	return core.NewJournalService(s.book, validator, s.log), chart, nil
}

func (s *appService) draftInput(chart *core.Chart, req JournalRequest) (core.DraftInput, error) {
	date := s.now()
	if d := strings.TrimSpace(req.TransactionDate); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			return core.DraftInput{}, fmt.Errorf("invalid transaction date %q, expected YYYY-MM-DD: %w", d, err)
		}
		date = parsed
	}
	lines, err := resolveLines(chart, req.Lines)
	if err != nil {
		return core.DraftInput{}, err
	}
	return core.DraftInput{
		TransactionDate: date,
		Description:     strings.TrimSpace(req.Description),
		IdempotencyKey:  strings.TrimSpace(req.IdempotencyKey),
		Lines:           lines,
	}, nil
}

// resolveLines maps account codes to IDs. An unknown code is an incomplete line.
func resolveLines(chart *core.Chart, in []JournalLineInput) ([]core.JournalLine, error) {
	lines := make([]core.JournalLine, 0, len(in))
	for i, l := range in {
		code := strings.TrimSpace(l.AccountCode)
		if code == "" {
			return nil, &core.IncompleteLineError{Index: i, Field: "account_code", Reason: "is missing"}
		}
		acc, ok := chart.AccountByCode(code)
		if !ok {
			return nil, &core.IncompleteLineError{Index: i, Field: "account_code", Reason: fmt.Sprintf("%q does not match any account", code)}
		}
		lines = append(lines, core.JournalLine{
			AccountID:   acc.ID,
			Description: strings.TrimSpace(l.Description),
			Debit:       l.Debit,
			Credit:      l.Credit,
		})
	}
	return lines, nil
}

func newValidationReport(res core.ValidationResult) *ValidationReport {
	return &ValidationReport{
		Valid:       res.Valid(),
		TotalDebit:  res.TotalDebit,
		TotalCredit: res.TotalCredit,
		Difference:  res.Difference,
		Errors:      res.Messages(),
	}
}

func newEntryResult(e core.Entry, chart *core.Chart) *EntryResult {
	rec := e.Record()
	result := &EntryResult{
		ID:              rec.ID,
		EntryNumber:     rec.EntryNumber,
		State:           rec.State,
		TransactionDate: rec.TransactionDate.Format("2006-01-02"),
		Description:     rec.Description,
		ReversalOfID:    rec.ReversalOfID,
		ReversedByID:    rec.ReversedByID,
		PostedAt:        rec.PostedAt,
		Lines:           make([]EntryLineView, 0, len(rec.Lines)),
		TotalDebit:      decimal.Zero,
		TotalCredit:     decimal.Zero,
	}
	for _, l := range rec.Lines {
		view := EntryLineView{Description: l.Description, Debit: l.Debit, Credit: l.Credit}
		if acc, ok := chart.AccountByID(l.AccountID); ok {
			view.AccountCode, view.AccountName = acc.Code, acc.Name
		}
		result.Lines = append(result.Lines, view)
		result.TotalDebit = result.TotalDebit.Add(l.Debit)
		result.TotalCredit = result.TotalCredit.Add(l.Credit)
	}
	return result
}
