package ledger_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"accounting-core/internal/core"
	"accounting-core/internal/db"
	"accounting-core/internal/ledger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database so the live ledger is never truncated.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	if err := db.Migrate(dbURL); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE account_balances, entry_sequences, journal_lines, journal_entries, vat_types, accounts, companies RESTART IDENTITY CASCADE;

		INSERT INTO companies (id, company_code, name, base_currency) VALUES
		(1, '1000', 'Test Company', 'USD'),
		(2, '2000', 'Other Company', 'USD');

		INSERT INTO accounts (company_id, code, name, type) VALUES
		(1, '1000', 'Cash', 'asset'),
		(1, '4000', 'Sales', 'revenue'),
		(2, '1000', 'Other Cash', 'asset');

		INSERT INTO vat_types (company_id, code, name, rate) VALUES
		(1, 'STD', 'Standard', 15),
		(1, 'ZERO', 'Zero rated', 0);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}
	return pool
}

func newPostgresJournal(t *testing.T, pool *pgxpool.Pool, companyCode string) (*ledger.PostgresStore, *core.JournalService, *core.Chart) {
	t.Helper()
	ctx := context.Background()
	store, err := ledger.NewPostgresStore(ctx, pool, companyCode)
	if err != nil {
		t.Fatalf("NewPostgresStore failed: %v", err)
	}
	chart, err := store.Accounts(ctx)
	if err != nil {
		t.Fatalf("Accounts failed: %v", err)
	}
	svc := core.NewJournalService(store, core.NewValidator(core.DefaultBalanceTolerance, chart), zerolog.Nop())
	return store, svc, chart
}

func chartLines(t *testing.T, chart *core.Chart, total string) []core.JournalLine {
	t.Helper()
	cash, ok := chart.AccountByCode("1000")
	if !ok {
		t.Fatal("cash account missing")
	}
	sales, ok := chart.AccountByCode("4000")
	if !ok {
		t.Fatal("sales account missing")
	}
	return []core.JournalLine{
		{AccountID: cash.ID, Debit: amount(total)},
		{AccountID: sales.ID, Credit: amount(total)},
	}
}

func TestPostgresStore_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store, svc, chart := newPostgresJournal(t, pool, "1000")

	draft, err := svc.Create(ctx, core.DraftInput{TransactionDate: txDate, Description: "Cash sale", Lines: chartLines(t, chart, "150.00")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if draft.EntryNumber() != "JE-2026-00001" {
		t.Errorf("expected JE-2026-00001, got %s", draft.EntryNumber())
	}

	edited, err := svc.EditLines(ctx, draft, chartLines(t, chart, "175.00"))
	if err != nil {
		t.Fatalf("EditLines failed: %v", err)
	}

	posted, err := svc.Post(ctx, edited)
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if !posted.Lines()[0].Debit.Equal(amount("175")) {
		t.Errorf("expected edited amount to be posted, got %s", posted.Lines()[0].Debit)
	}
	if cash := balanceOf(t, store, "1000"); !cash.Balance.Equal(amount("175")) {
		t.Errorf("expected cash balance 175, got %s", cash.Balance)
	}

	original, reversal, err := svc.Reverse(ctx, posted, "customer refund")
	if err != nil {
		t.Fatalf("Reverse failed: %v", err)
	}
	if original.ReversedByID() != reversal.ID() {
		t.Errorf("original not linked to reversal: %d vs %d", original.ReversedByID(), reversal.ID())
	}
	if reversal.EntryNumber() != "JE-2026-00002" {
		t.Errorf("expected JE-2026-00002, got %s", reversal.EntryNumber())
	}
	if !reversal.Lines()[0].Credit.Equal(amount("175")) {
		t.Errorf("reversal did not swap sides: %+v", reversal.Lines())
	}
	for _, code := range []string{"1000", "4000"} {
		if b := balanceOf(t, store, code); !b.Balance.IsZero() {
			t.Errorf("account %s should net to zero after reversal, got %s", code, b.Balance)
		}
	}

	if _, _, err := svc.Reverse(ctx, posted, "again"); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on second reversal, got %v", err)
	}
	if _, err := store.UpdateLines(ctx, posted.ID(), chartLines(t, chart, "1")); !errors.Is(err, core.ErrImmutableEntry) {
		t.Errorf("expected ErrImmutableEntry editing a posted entry, got %v", err)
	}
}

func TestPostgresStore_Idempotency(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	_, svc, chart := newPostgresJournal(t, pool, "1000")

	in := core.DraftInput{TransactionDate: txDate, IdempotencyKey: "import-row-7", Lines: chartLines(t, chart, "12.50")}
	if _, err := svc.Create(ctx, in); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if _, err := svc.Create(ctx, in); !errors.Is(err, core.ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}

	// The rolled-back duplicate must not consume a number.
	next, err := svc.Create(ctx, core.DraftInput{TransactionDate: txDate, Lines: chartLines(t, chart, "1.00")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if next.EntryNumber() != "JE-2026-00002" {
		t.Errorf("expected gapless JE-2026-00002, got %s", next.EntryNumber())
	}
}

func TestPostgresStore_ConcurrentPostFirstWins(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store, svc, chart := newPostgresJournal(t, pool, "1000")

	draft, err := svc.Create(ctx, core.DraftInput{TransactionDate: txDate, Lines: chartLines(t, chart, "300.00")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const sessions = 5
	var wg sync.WaitGroup
	errs := make(chan error, sessions)
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Post(ctx, draft)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, core.ErrInvalidTransition) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful post, got %d", succeeded)
	}
	if cash := balanceOf(t, store, "1000"); !cash.Debit.Equal(amount("300")) {
		t.Errorf("balance applied more than once: %s", cash.Debit)
	}
}

func TestPostgresStore_CompanyScoping(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store, svc, chart := newPostgresJournal(t, pool, "1000")
	sales, _ := chart.AccountByCode("4000")

	draft, err := svc.Create(ctx, core.DraftInput{TransactionDate: txDate, Lines: chartLines(t, chart, "10.00")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	other, err := ledger.NewPostgresStore(ctx, pool, "2000")
	if err != nil {
		t.Fatalf("NewPostgresStore failed: %v", err)
	}
	if _, err := other.Get(ctx, draft.ID()); !errors.Is(err, core.ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound across companies, got %v", err)
	}
	if _, err := other.Post(ctx, draft.ID()); !errors.Is(err, core.ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound posting across companies, got %v", err)
	}

	// Account 3 is seeded for company 2000 only.
	_, err = store.Create(ctx, core.EntryRecord{
		TransactionDate: txDate,
		State:           core.StateDraft,
		Lines: []core.JournalLine{
			{AccountID: 3, Debit: amount("10.00")},
			{AccountID: sales.ID, Credit: amount("10.00")},
		},
	})
	if err == nil || !strings.Contains(err.Error(), "account 3 not found for company 1000") {
		t.Errorf("expected a cross-company account to be rejected, got %v", err)
	}
	if _, err := store.UpdateLines(ctx, draft.ID(), []core.JournalLine{
		{AccountID: 3, Debit: amount("10.00")},
		{AccountID: sales.ID, Credit: amount("10.00")},
	}); err == nil {
		t.Error("expected UpdateLines to reject a cross-company account")
	}

	if _, err := ledger.NewPostgresStore(ctx, pool, "9999"); err == nil {
		t.Error("expected error for unknown company code")
	}
}

func TestPostgresStore_PersistsValidatedAmounts(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store, svc, chart := newPostgresJournal(t, pool, "1000")

	draft, err := svc.Create(ctx, core.DraftInput{TransactionDate: txDate, Lines: chartLines(t, chart, "50.005")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	rec, err := store.Get(ctx, draft.ID())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	for i, line := range draft.Lines() {
		stored := rec.Lines[i]
		if !stored.Debit.Equal(line.Debit) || !stored.Credit.Equal(line.Credit) {
			t.Errorf("line %d stored as %s/%s, validated as %s/%s", i+1, stored.Debit, stored.Credit, line.Debit, line.Credit)
		}
	}

	posted, err := svc.Post(ctx, draft)
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	reloaded, err := svc.Get(ctx, posted.ID())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, _, err := svc.Reverse(ctx, reloaded, "rounding check"); err != nil {
		t.Errorf("Reverse of reloaded entry failed: %v", err)
	}
}

func TestPostgresStore_VATTypes(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store, _, _ := newPostgresJournal(t, pool, "1000")

	table, err := store.VATTypes(ctx)
	if err != nil {
		t.Fatalf("VATTypes failed: %v", err)
	}
	all := table.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 VAT types, got %d", len(all))
	}
	if !all[0].Rate.Equal(amount("15")) || all[0].IsZeroRated {
		t.Errorf("unexpected standard type: %+v", all[0])
	}
	if !all[1].IsZeroRated {
		t.Errorf("expected zero-rated flag on %s", all[1].Code)
	}
}
