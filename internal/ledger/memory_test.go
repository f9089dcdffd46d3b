package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"accounting-core/internal/core"
	"accounting-core/internal/ledger"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testCompany  = core.Company{ID: 1, CompanyCode: "1000", Name: "Test Company", BaseCurrency: "USD"}
	testAccounts = []core.Account{
		{ID: 1, CompanyID: 1, Code: "1000", Name: "Cash", Type: core.Asset},
		{ID: 2, CompanyID: 1, Code: "4000", Name: "Sales", Type: core.Revenue},
		{ID: 3, CompanyID: 1, Code: "2100", Name: "VAT Payable", Type: core.Liability},
	}
	testVATTypes = []core.VATType{
		{ID: 1, Code: "STD", Name: "Standard", Rate: decimal.NewFromInt(15)},
		{ID: 2, Code: "ZERO", Name: "Zero rated", Rate: decimal.Zero, IsZeroRated: true},
	}
	txDate = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func saleLines(total string) []core.JournalLine {
	return []core.JournalLine{
		{AccountID: 1, Description: "Cash received", Debit: amount(total)},
		{AccountID: 2, Description: "Sale", Credit: amount(total)},
	}
}

func newMemoryJournal(t *testing.T) (*ledger.MemoryStore, *core.JournalService) {
	t.Helper()
	store := ledger.NewMemoryStore(testCompany, testAccounts, testVATTypes)
	chart, err := store.Accounts(context.Background())
	require.NoError(t, err)
	svc := core.NewJournalService(store, core.NewValidator(core.DefaultBalanceTolerance, chart), zerolog.Nop())
	return store, svc
}

func balanceOf(t *testing.T, store ledger.Book, code string) ledger.AccountBalance {
	t.Helper()
	rows, err := store.TrialBalance(context.Background())
	require.NoError(t, err)
	for _, r := range rows {
		if r.Code == code {
			return r
		}
	}
	t.Fatalf("account %s missing from trial balance", code)
	return ledger.AccountBalance{}
}

func TestMemoryStore_GaplessNumbering(t *testing.T) {
	ctx := context.Background()
	_, svc := newMemoryJournal(t)

	first, err := svc.Create(ctx, core.DraftInput{TransactionDate: txDate, Lines: saleLines("10")})
	require.NoError(t, err)
	second, err := svc.Create(ctx, core.DraftInput{TransactionDate: txDate, Lines: saleLines("20")})
	require.NoError(t, err)
	nextYear, err := svc.Create(ctx, core.DraftInput{TransactionDate: txDate.AddDate(1, 0, 0), Lines: saleLines("30")})
	require.NoError(t, err)

	assert.Equal(t, "JE-2026-00001", first.EntryNumber())
	assert.Equal(t, "JE-2026-00002", second.EntryNumber())
	assert.Equal(t, "JE-2027-00001", nextYear.EntryNumber())
}

func TestMemoryStore_DuplicateIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	_, svc := newMemoryJournal(t)

	in := core.DraftInput{TransactionDate: txDate, IdempotencyKey: "bank-import-42", Lines: saleLines("99.99")}
	_, err := svc.Create(ctx, in)
	require.NoError(t, err)

	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, core.ErrDuplicateEntry)
}

func TestMemoryStore_PostAndReverseBalances(t *testing.T) {
	ctx := context.Background()
	store, svc := newMemoryJournal(t)

	draft, err := svc.Create(ctx, core.DraftInput{TransactionDate: txDate, Description: "Cash sale", Lines: saleLines("250.00")})
	require.NoError(t, err)

	// Drafts do not touch running balances.
	assert.True(t, balanceOf(t, store, "1000").Debit.IsZero())

	posted, err := svc.Post(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, core.StatePosted, posted.State())
	assert.False(t, posted.PostedAt().IsZero())

	cash := balanceOf(t, store, "1000")
	assert.True(t, cash.Debit.Equal(amount("250")), "cash debit = %s", cash.Debit)
	assert.True(t, cash.Balance.Equal(amount("250")))

	original, reversal, err := svc.Reverse(ctx, posted, "entered twice")
	require.NoError(t, err)
	assert.Equal(t, core.StateReversed, original.State())
	assert.Equal(t, reversal.ID(), original.ReversedByID())
	assert.Equal(t, "JE-2026-00002", reversal.EntryNumber())
	assert.Contains(t, reversal.Description(), "entered twice")

	// The original plus its mirror net every account to zero.
	for _, code := range []string{"1000", "4000"} {
		b := balanceOf(t, store, code)
		assert.True(t, b.Balance.IsZero(), "account %s balance = %s", code, b.Balance)
		assert.True(t, b.Debit.Equal(amount("250")), "account %s debit = %s", code, b.Debit)
	}

	stored, err := svc.Get(ctx, posted.ID())
	require.NoError(t, err)
	assert.Equal(t, core.StateReversed, stored.State())
}

func TestMemoryStore_RejectsInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	store, svc := newMemoryJournal(t)

	draft, err := svc.Create(ctx, core.DraftInput{TransactionDate: txDate, Lines: saleLines("5")})
	require.NoError(t, err)

	_, _, err = store.Reverse(ctx, draft.ID(), core.EntryRecord{TransactionDate: txDate, Lines: saleLines("5")})
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	posted, err := svc.Post(ctx, draft)
	require.NoError(t, err)

	_, err = store.Post(ctx, posted.ID())
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	_, err = store.UpdateLines(ctx, posted.ID(), saleLines("6"))
	assert.ErrorIs(t, err, core.ErrImmutableEntry)

	_, err = store.Get(ctx, 404)
	assert.ErrorIs(t, err, core.ErrEntryNotFound)
}

func TestMemoryStore_ConcurrentReverseFirstWins(t *testing.T) {
	ctx := context.Background()
	store, svc := newMemoryJournal(t)

	draft, err := svc.Create(ctx, core.DraftInput{TransactionDate: txDate, Lines: saleLines("40")})
	require.NoError(t, err)
	posted, err := svc.Post(ctx, draft)
	require.NoError(t, err)

	const sessions = 8
	var wg sync.WaitGroup
	errs := make(chan error, sessions)
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Reverse(ctx, posted, "race")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, core.ErrInvalidTransition)
	}
	assert.Equal(t, 1, succeeded)
	assert.True(t, balanceOf(t, store, "1000").Balance.IsZero())
}

func TestMemoryStore_RejectsUnknownAccount(t *testing.T) {
	store := ledger.NewMemoryStore(testCompany, testAccounts, testVATTypes)
	_, err := store.Create(context.Background(), core.EntryRecord{
		TransactionDate: txDate,
		State:           core.StateDraft,
		Lines: []core.JournalLine{
			{AccountID: 77, Debit: amount("1")},
			{AccountID: 2, Credit: amount("1")},
		},
	})
	assert.Error(t, err)

	draft, err := store.Create(context.Background(), core.EntryRecord{
		TransactionDate: txDate,
		State:           core.StateDraft,
		Lines:           saleLines("1.00"),
	})
	require.NoError(t, err)
	_, err = store.UpdateLines(context.Background(), draft.ID, []core.JournalLine{
		{AccountID: 77, Debit: amount("1")},
		{AccountID: 2, Credit: amount("1")},
	})
	assert.ErrorContains(t, err, "account 77 not found")
}

func TestMemoryStore_PersistsRoundedAmounts(t *testing.T) {
	ctx := context.Background()
	store, svc := newMemoryJournal(t)

	rec, err := store.Create(ctx, core.EntryRecord{
		TransactionDate: txDate,
		State:           core.StateDraft,
		Lines:           saleLines("50.005"),
	})
	require.NoError(t, err)
	assert.Equal(t, "50.01", rec.Lines[0].Debit.String())
	assert.Equal(t, "50.01", rec.Lines[1].Credit.String())

	draft, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	posted, err := svc.Post(ctx, draft)
	require.NoError(t, err)
	_, _, err = svc.Reverse(ctx, posted, "rounding check")
	require.NoError(t, err)
	assert.True(t, balanceOf(t, store, "1000").Balance.IsZero())
}
