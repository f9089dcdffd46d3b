package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"accounting-core/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a company-scoped Book backed by Postgres.
// Post and Reverse lock the entry row and re-check its state inside the
// transaction, so of two concurrent transitions only the first to commit succeeds.
type PostgresStore struct {
	pool    *pgxpool.Pool
	company core.Company
}

// NewPostgresStore resolves the company by code and scopes the store to it.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, companyCode string) (*PostgresStore, error) {
	var c core.Company
	err := pool.QueryRow(ctx,
		"SELECT id, company_code, name, base_currency FROM companies WHERE company_code = $1", companyCode,
	).Scan(&c.ID, &c.CompanyCode, &c.Name, &c.BaseCurrency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("company code %s not found", companyCode)
		}
		return nil, fmt.Errorf("failed to fetch company: %w", err)
	}
	return &PostgresStore{pool: pool, company: c}, nil
}

func (s *PostgresStore) Company() core.Company {
	return s.company
}

func (s *PostgresStore) Create(ctx context.Context, rec core.EntryRecord) (core.EntryRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return core.EntryRecord{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	id, err := s.insertEntry(ctx, tx, rec)
	if err != nil {
		return core.EntryRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return core.EntryRecord{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) UpdateLines(ctx context.Context, id int, lines []core.JournalLine) (core.EntryRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return core.EntryRecord{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	state, err := s.lockEntry(ctx, tx, id)
	if err != nil {
		return core.EntryRecord{}, err
	}
	if state != core.StateDraft {
		return core.EntryRecord{}, fmt.Errorf("%w: entry %d is %s", core.ErrImmutableEntry, id, state)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM journal_lines WHERE entry_id = $1", id); err != nil {
		return core.EntryRecord{}, fmt.Errorf("failed to delete lines of entry %d: %w", id, err)
	}
	if err := s.insertLines(ctx, tx, id, lines); err != nil {
		return core.EntryRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return core.EntryRecord{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) Post(ctx context.Context, id int) (core.EntryRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return core.EntryRecord{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	state, err := s.lockEntry(ctx, tx, id)
	if err != nil {
		return core.EntryRecord{}, err
	}
	if state != core.StateDraft {
		return core.EntryRecord{}, invalidTransition(id, state, core.EventPost)
	}

	_, err = tx.Exec(ctx, `
		UPDATE journal_entries
		SET state = $1, posted_at = NOW()
		WHERE id = $2
	`, string(core.StatePosted), id)
	if err != nil {
		return core.EntryRecord{}, fmt.Errorf("failed to post entry %d: %w", id, err)
	}

	if err := applyBalances(ctx, tx, id); err != nil {
		return core.EntryRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return core.EntryRecord{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) Reverse(ctx context.Context, id int, mirror core.EntryRecord) (core.EntryRecord, core.EntryRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return core.EntryRecord{}, core.EntryRecord{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	state, err := s.lockEntry(ctx, tx, id)
	if err != nil {
		return core.EntryRecord{}, core.EntryRecord{}, err
	}
	if state != core.StatePosted {
		return core.EntryRecord{}, core.EntryRecord{}, invalidTransition(id, state, core.EventReverse)
	}

	mirror.State = core.StatePosted
	mirror.ReversalOfID = &id
	mirrorID, err := s.insertEntry(ctx, tx, mirror)
	if err != nil {
		return core.EntryRecord{}, core.EntryRecord{}, err
	}
	if err := applyBalances(ctx, tx, mirrorID); err != nil {
		return core.EntryRecord{}, core.EntryRecord{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE journal_entries
		SET state = $1, reversed_by_id = $2
		WHERE id = $3
	`, string(core.StateReversed), mirrorID, id)
	if err != nil {
		return core.EntryRecord{}, core.EntryRecord{}, fmt.Errorf("failed to mark entry %d reversed: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return core.EntryRecord{}, core.EntryRecord{}, fmt.Errorf("failed to commit reversal: %w", err)
	}

	original, err := s.Get(ctx, id)
	if err != nil {
		return core.EntryRecord{}, core.EntryRecord{}, err
	}
	reversal, err := s.Get(ctx, mirrorID)
	if err != nil {
		return core.EntryRecord{}, core.EntryRecord{}, err
	}
	return original, reversal, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int) (core.EntryRecord, error) {
	return s.getEntry(ctx, s.pool, id)
}

// lockEntry takes the row lock for a transition and returns the committed state.
func (s *PostgresStore) lockEntry(ctx context.Context, tx pgx.Tx, id int) (core.EntryState, error) {
	var state string
	err := tx.QueryRow(ctx, `
		SELECT state
		FROM journal_entries
		WHERE id = $1 AND company_id = $2
		FOR UPDATE
	`, id, s.company.ID).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", notFound(id)
		}
		return "", fmt.Errorf("failed to lock entry %d: %w", id, err)
	}
	return core.EntryState(state), nil
}

// insertEntry assigns the next gapless entry number for the transaction year and
// writes the header and lines. The sequence row is part of tx, so a rollback
// returns the number.
func (s *PostgresStore) insertEntry(ctx context.Context, tx pgx.Tx, rec core.EntryRecord) (int, error) {
	date := dateOnly(rec.TransactionDate)

	var lastNumber int64
	err := tx.QueryRow(ctx, `
		INSERT INTO entry_sequences (company_id, year, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (company_id, year)
		DO UPDATE SET last_number = entry_sequences.last_number + 1
		RETURNING last_number
	`, s.company.ID, date.Year()).Scan(&lastNumber)
	if err != nil {
		return 0, fmt.Errorf("failed to generate entry number: %w", err)
	}

	var postedAt *time.Time
	if rec.State == core.StatePosted {
		now := time.Now()
		if rec.PostedAt != nil {
			now = *rec.PostedAt
		}
		postedAt = &now
	}

	var entryID int
	err = tx.QueryRow(ctx, `
		INSERT INTO journal_entries (company_id, entry_number, transaction_date, description, idempotency_key, state, reversal_of_id, posted_at, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, NOW())
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id
	`, s.company.ID, formatEntryNumber(date.Year(), lastNumber), date, rec.Description,
		rec.IdempotencyKey, string(rec.State), rec.ReversalOfID, postedAt).Scan(&entryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: idempotency key %s already exists", core.ErrDuplicateEntry, rec.IdempotencyKey)
		}
		return 0, fmt.Errorf("failed to insert journal entry: %w", err)
	}

	if err := s.insertLines(ctx, tx, entryID, rec.Lines); err != nil {
		return 0, err
	}
	return entryID, nil
}

// insertLines writes lines rounded to core.AmountPlaces. Every account must belong
// to the store's company; the foreign key alone only proves it exists.
func (s *PostgresStore) insertLines(ctx context.Context, tx pgx.Tx, entryID int, lines []core.JournalLine) error {
	for i, line := range core.RoundLines(lines) {
		var owned bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1 AND company_id = $2)
		`, line.AccountID, s.company.ID).Scan(&owned)
		if err != nil {
			return fmt.Errorf("failed to check account of journal line %d: %w", i+1, err)
		}
		if !owned {
			return unknownAccount(i, line.AccountID, s.company.CompanyCode)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO journal_lines (entry_id, line_no, account_id, description, debit_amount, credit_amount)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, entryID, i+1, line.AccountID, line.Description, line.Debit.StringFixed(core.AmountPlaces), line.Credit.StringFixed(core.AmountPlaces))
		if err != nil {
			return fmt.Errorf("failed to insert journal line %d: %w", i+1, err)
		}
	}
	return nil
}

// applyBalances adds an entry's lines to the running account balances.
func applyBalances(ctx context.Context, tx pgx.Tx, entryID int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO account_balances (account_id, debit_total, credit_total, updated_at)
		SELECT account_id, SUM(debit_amount), SUM(credit_amount), NOW()
		FROM journal_lines
		WHERE entry_id = $1
		GROUP BY account_id
		ON CONFLICT (account_id) DO UPDATE
		SET debit_total  = account_balances.debit_total + EXCLUDED.debit_total,
		    credit_total = account_balances.credit_total + EXCLUDED.credit_total,
		    updated_at   = NOW()
	`, entryID)
	if err != nil {
		return fmt.Errorf("failed to update account balances for entry %d: %w", entryID, err)
	}
	return nil
}

func (s *PostgresStore) getEntry(ctx context.Context, q querier, id int) (core.EntryRecord, error) {
	var rec core.EntryRecord
	var state string
	var idemKey *string
	err := q.QueryRow(ctx, `
		SELECT id, entry_number, transaction_date, description, idempotency_key, state,
		       reversal_of_id, reversed_by_id, posted_at, created_at
		FROM journal_entries
		WHERE id = $1 AND company_id = $2
	`, id, s.company.ID).Scan(
		&rec.ID, &rec.EntryNumber, &rec.TransactionDate, &rec.Description, &idemKey, &state,
		&rec.ReversalOfID, &rec.ReversedByID, &rec.PostedAt, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.EntryRecord{}, notFound(id)
		}
		return core.EntryRecord{}, fmt.Errorf("failed to fetch entry %d: %w", id, err)
	}
	rec.State = core.EntryState(state)
	if idemKey != nil {
		rec.IdempotencyKey = *idemKey
	}

	rows, err := q.Query(ctx, `
		SELECT account_id, description, debit_amount, credit_amount
		FROM journal_lines
		WHERE entry_id = $1
		ORDER BY line_no
	`, id)
	if err != nil {
		return core.EntryRecord{}, fmt.Errorf("failed to fetch lines for entry %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var l core.JournalLine
		if err := rows.Scan(&l.AccountID, &l.Description, &l.Debit, &l.Credit); err != nil {
			return core.EntryRecord{}, fmt.Errorf("failed to scan line: %w", err)
		}
		rec.Lines = append(rec.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return core.EntryRecord{}, fmt.Errorf("error iterating lines: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Accounts(ctx context.Context) (*core.Chart, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, type
		FROM accounts
		WHERE company_id = $1
		ORDER BY code
	`, s.company.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		var typ string
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.Type = core.AccountType(typ)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return core.NewChart(accounts...), nil
}

func (s *PostgresStore) VATTypes(ctx context.Context) (*core.VATTable, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, name, rate, is_zero_rated
		FROM vat_types
		WHERE company_id = $1
		ORDER BY id
	`, s.company.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch VAT types: %w", err)
	}
	defer rows.Close()

	var types []core.VATType
	for rows.Next() {
		var vt core.VATType
		if err := rows.Scan(&vt.ID, &vt.Code, &vt.Name, &vt.Rate, &vt.IsZeroRated); err != nil {
			return nil, fmt.Errorf("failed to scan VAT type: %w", err)
		}
		types = append(types, vt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating VAT types: %w", err)
	}
	return core.NewVATTable(types...), nil
}

func (s *PostgresStore) TrialBalance(ctx context.Context) ([]AccountBalance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.code, a.name, a.type,
		       COALESCE(b.debit_total, 0), COALESCE(b.credit_total, 0)
		FROM accounts a
		LEFT JOIN account_balances b ON b.account_id = a.id
		WHERE a.company_id = $1
		ORDER BY a.code
	`, s.company.ID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		var typ string
		if err := rows.Scan(&b.Code, &b.Name, &typ, &b.Debit, &b.Credit); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		b.Type = core.AccountType(typ)
		b.Balance = b.Debit.Sub(b.Credit)
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balances: %w", err)
	}
	return balances, nil
}

var _ Book = (*PostgresStore)(nil)
