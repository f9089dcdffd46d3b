package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"accounting-core/internal/core"

	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process Book with the same transition rules as PostgresStore.
// It backs tests and offline CLI runs.
type MemoryStore struct {
	mu       sync.Mutex
	company  core.Company
	chart    *core.Chart
	vatTypes *core.VATTable
	entries  map[int]core.EntryRecord
	keys     map[string]int
	seq      map[int]int64 // year -> last number
	balances map[int]*AccountBalance
	nextID   int
	now      func() time.Time
}

func NewMemoryStore(company core.Company, accounts []core.Account, vatTypes []core.VATType) *MemoryStore {
	return &MemoryStore{
		company:  company,
		chart:    core.NewChart(accounts...),
		vatTypes: core.NewVATTable(vatTypes...),
		entries:  make(map[int]core.EntryRecord),
		keys:     make(map[string]int),
		seq:      make(map[int]int64),
		balances: make(map[int]*AccountBalance),
		now:      time.Now,
	}
}

func (m *MemoryStore) Company() core.Company {
	return m.company
}

func (m *MemoryStore) Create(_ context.Context, rec core.EntryRecord) (core.EntryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.insert(rec)
	if err != nil {
		return core.EntryRecord{}, err
	}
	return m.get(id)
}

func (m *MemoryStore) UpdateLines(_ context.Context, id int, lines []core.JournalLine) (core.EntryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.entries[id]
	if !ok {
		return core.EntryRecord{}, notFound(id)
	}
	if rec.State != core.StateDraft {
		return core.EntryRecord{}, fmt.Errorf("%w: entry %d is %s", core.ErrImmutableEntry, id, rec.State)
	}
	if err := m.checkAccounts(lines); err != nil {
		return core.EntryRecord{}, err
	}
	rec.Lines = core.RoundLines(lines)
	m.entries[id] = rec
	return m.get(id)
}

func (m *MemoryStore) Post(_ context.Context, id int) (core.EntryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.entries[id]
	if !ok {
		return core.EntryRecord{}, notFound(id)
	}
	if rec.State != core.StateDraft {
		return core.EntryRecord{}, invalidTransition(id, rec.State, core.EventPost)
	}
	now := m.now()
	rec.State = core.StatePosted
	rec.PostedAt = &now
	m.entries[id] = rec
	m.applyBalances(rec.Lines)
	return m.get(id)
}

func (m *MemoryStore) Reverse(_ context.Context, id int, mirror core.EntryRecord) (core.EntryRecord, core.EntryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.entries[id]
	if !ok {
		return core.EntryRecord{}, core.EntryRecord{}, notFound(id)
	}
	if rec.State != core.StatePosted {
		return core.EntryRecord{}, core.EntryRecord{}, invalidTransition(id, rec.State, core.EventReverse)
	}

	mirror.State = core.StatePosted
	mirror.ReversalOfID = &id
	if mirror.PostedAt == nil {
		now := m.now()
		mirror.PostedAt = &now
	}
	mirrorID, err := m.insert(mirror)
	if err != nil {
		return core.EntryRecord{}, core.EntryRecord{}, err
	}
	m.applyBalances(mirror.Lines)

	rec.State = core.StateReversed
	rec.ReversedByID = &mirrorID
	m.entries[id] = rec

	original, _ := m.get(id)
	reversal, _ := m.get(mirrorID)
	return original, reversal, nil
}

func (m *MemoryStore) Get(_ context.Context, id int) (core.EntryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *MemoryStore) Accounts(context.Context) (*core.Chart, error) {
	return m.chart, nil
}

func (m *MemoryStore) VATTypes(context.Context) (*core.VATTable, error) {
	return m.vatTypes, nil
}

func (m *MemoryStore) TrialBalance(context.Context) ([]AccountBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := m.chart.Accounts()
	out := make([]AccountBalance, 0, len(accounts))
	for _, a := range accounts {
		b := AccountBalance{Code: a.Code, Name: a.Name, Type: a.Type, Debit: decimal.Zero, Credit: decimal.Zero}
		if running, ok := m.balances[a.ID]; ok {
			b.Debit, b.Credit = running.Debit, running.Credit
		}
		b.Balance = b.Debit.Sub(b.Credit)
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *MemoryStore) checkAccounts(lines []core.JournalLine) error {
	for i, l := range lines {
		if _, ok := m.chart.AccountByID(l.AccountID); !ok {
			return unknownAccount(i, l.AccountID, m.company.CompanyCode)
		}
	}
	return nil
}

func (m *MemoryStore) insert(rec core.EntryRecord) (int, error) {
	if rec.IdempotencyKey != "" {
		if _, dup := m.keys[rec.IdempotencyKey]; dup {
			return 0, fmt.Errorf("%w: idempotency key %s already exists", core.ErrDuplicateEntry, rec.IdempotencyKey)
		}
	}
	if err := m.checkAccounts(rec.Lines); err != nil {
		return 0, err
	}

	date := dateOnly(rec.TransactionDate)
	m.seq[date.Year()]++
	m.nextID++

	rec.ID = m.nextID
	rec.TransactionDate = date
	rec.EntryNumber = formatEntryNumber(date.Year(), m.seq[date.Year()])
	rec.CreatedAt = m.now()
	rec.Lines = core.RoundLines(rec.Lines)
	m.entries[rec.ID] = rec
	if rec.IdempotencyKey != "" {
		m.keys[rec.IdempotencyKey] = rec.ID
	}
	return rec.ID, nil
}

func (m *MemoryStore) applyBalances(lines []core.JournalLine) {
	for _, l := range lines {
		b, ok := m.balances[l.AccountID]
		if !ok {
			b = &AccountBalance{Debit: decimal.Zero, Credit: decimal.Zero}
			m.balances[l.AccountID] = b
		}
		b.Debit = b.Debit.Add(l.Debit)
		b.Credit = b.Credit.Add(l.Credit)
	}
}

func (m *MemoryStore) get(id int) (core.EntryRecord, error) {
	rec, ok := m.entries[id]
	if !ok {
		return core.EntryRecord{}, notFound(id)
	}
	rec.Lines = append([]core.JournalLine(nil), rec.Lines...)
	return rec, nil
}

var _ Book = (*MemoryStore)(nil)
