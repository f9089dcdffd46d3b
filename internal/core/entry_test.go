package core_test

import (
	"errors"
	"testing"
	"time"

	"accounting-core/internal/core"

	"github.com/shopspring/decimal"
)

var txDate = time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

func newDraft(t *testing.T, lines ...core.JournalLine) *core.DraftEntry {
	t.Helper()
	d, err := core.NewDraftEntry(core.DraftInput{
		TransactionDate: txDate,
		Description:     "Office rent",
		Lines:           lines,
	}, core.NewValidator(decimal.Zero, nil))
	if err != nil {
		t.Fatalf("NewDraftEntry failed: %v", err)
	}
	return d
}

func TestNextState(t *testing.T) {
	tests := []struct {
		from    core.EntryState
		event   core.EntryEvent
		want    core.EntryState
		wantErr error
	}{
		{core.StateDraft, core.EventPost, core.StatePosted, nil},
		{core.StateDraft, core.EventEdit, core.StateDraft, nil},
		{core.StateDraft, core.EventReverse, core.StateDraft, core.ErrInvalidTransition},
		{core.StatePosted, core.EventReverse, core.StateReversed, nil},
		{core.StatePosted, core.EventPost, core.StatePosted, core.ErrInvalidTransition},
		{core.StatePosted, core.EventEdit, core.StatePosted, core.ErrImmutableEntry},
		{core.StateReversed, core.EventReverse, core.StateReversed, core.ErrInvalidTransition},
		{core.StateReversed, core.EventPost, core.StateReversed, core.ErrInvalidTransition},
		{core.StateReversed, core.EventEdit, core.StateReversed, core.ErrImmutableEntry},
	}

	for _, tt := range tests {
		got, err := core.NextState(tt.from, tt.event)
		if got != tt.want || !errors.Is(err, tt.wantErr) {
			t.Errorf("NextState(%s, %s) = %s, %v; want %s, %v", tt.from, tt.event, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestNewDraftEntry_RejectsUnbalanced(t *testing.T) {
	_, err := core.NewDraftEntry(core.DraftInput{
		TransactionDate: txDate,
		Lines:           []core.JournalLine{debit(1, "500"), credit(2, "499")},
	}, core.NewValidator(decimal.Zero, nil))
	if !errors.Is(err, core.ErrUnbalancedEntry) {
		t.Fatalf("expected ErrUnbalancedEntry, got %v", err)
	}
}

func TestEntry_LinesAreCopies(t *testing.T) {
	d := newDraft(t, debit(1, "500"), credit(2, "500"))

	lines := d.Lines()
	lines[0].Debit = dec("1")
	if !d.Lines()[0].Debit.Equal(dec("500")) {
		t.Error("mutating Lines() output changed the entry")
	}

	rec := d.Record()
	rec.Lines[0].Debit = dec("1")
	if !d.Lines()[0].Debit.Equal(dec("500")) {
		t.Error("mutating Record() output changed the entry")
	}
}

func TestEntry_PostAndReverse(t *testing.T) {
	d := newDraft(t, debit(1, "500"), credit(2, "500"))
	postedAt := txDate.Add(time.Hour)
	posted := d.Post(postedAt)

	if d.State() != core.StateDraft {
		t.Errorf("Post must not change the draft value, got %s", d.State())
	}
	if posted.State() != core.StatePosted || !posted.PostedAt().Equal(postedAt) {
		t.Errorf("unexpected posted entry: %+v", posted.Record())
	}
	if err := core.CheckTransition(posted, core.EventEdit); !errors.Is(err, core.ErrImmutableEntry) {
		t.Errorf("expected ErrImmutableEntry editing a posted entry, got %v", err)
	}

	mirror, err := posted.BuildReversal("correction", postedAt, core.NewValidator(decimal.Zero, nil))
	if err != nil {
		t.Fatalf("BuildReversal failed: %v", err)
	}
	if mirror.State() != core.StatePosted {
		t.Errorf("reversal must be created posted, got %s", mirror.State())
	}
	lines := mirror.Lines()
	if !lines[0].Debit.IsZero() || !lines[0].Credit.Equal(dec("500")) {
		t.Errorf("line 1 not swapped: %+v", lines[0])
	}
	if !lines[1].Debit.Equal(dec("500")) || !lines[1].Credit.IsZero() {
		t.Errorf("line 2 not swapped: %+v", lines[1])
	}
	if lines[0].Description != "correction" {
		t.Errorf("expected reason on line description, got %q", lines[0].Description)
	}

	reversed := posted.MarkReversed(42)
	if reversed.State() != core.StateReversed || reversed.ReversedByID() != 42 {
		t.Errorf("unexpected reversed entry: %+v", reversed.Record())
	}
	if err := core.CheckTransition(reversed, core.EventReverse); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition reversing twice, got %v", err)
	}
}

func TestBuildReversal_NegatesEveryAccount(t *testing.T) {
	d := newDraft(t,
		debit(1, "115.00"),
		credit(2, "100.00"),
		credit(3, "15.00"),
		debit(2, "20.00"),
		credit(1, "20.00"),
	)
	posted := d.Post(txDate)
	mirror, err := posted.BuildReversal("wrong customer", txDate, core.NewValidator(decimal.Zero, nil))
	if err != nil {
		t.Fatalf("BuildReversal failed: %v", err)
	}

	if res := core.ValidateJournal(mirror.Lines()); !res.Valid() {
		t.Fatalf("reversal is not balanced: %v", res.Err())
	}

	net := func(lines []core.JournalLine) map[int]decimal.Decimal {
		out := map[int]decimal.Decimal{}
		for _, l := range lines {
			out[l.AccountID] = out[l.AccountID].Add(l.Debit).Sub(l.Credit)
		}
		return out
	}
	orig, rev := net(posted.Lines()), net(mirror.Lines())
	for account, amount := range orig {
		if !rev[account].Equal(amount.Neg()) {
			t.Errorf("account %d: reversal net %s is not the negation of %s", account, rev[account], amount)
		}
	}
}

func TestRestoreEntry(t *testing.T) {
	for _, state := range []core.EntryState{core.StateDraft, core.StatePosted, core.StateReversed} {
		e, err := core.RestoreEntry(core.EntryRecord{ID: 7, State: state})
		if err != nil {
			t.Fatalf("%s: %v", state, err)
		}
		if e.State() != state {
			t.Errorf("restored %s as %s", state, e.State())
		}
	}

	e, _ := core.RestoreEntry(core.EntryRecord{ID: 7, State: core.StateDraft})
	if _, ok := e.(*core.DraftEntry); !ok {
		t.Errorf("expected *DraftEntry, got %T", e)
	}

	if _, err := core.RestoreEntry(core.EntryRecord{ID: 7, State: "VOID"}); err == nil {
		t.Error("expected an error for an unknown state")
	}
}
