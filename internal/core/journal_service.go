package core

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// JournalStore persists journal entries. Each call is one round-trip and is the
// authority on state: Post and Reverse must reject a transition that another
// session has already committed (first valid transition wins).
type JournalStore interface {
	// Create persists a draft and returns it with ID, entry number and timestamps assigned.
	Create(ctx context.Context, rec EntryRecord) (EntryRecord, error)
	// UpdateLines replaces the lines of a draft entry.
	UpdateLines(ctx context.Context, id int, lines []JournalLine) (EntryRecord, error)
	// Post moves a draft to POSTED and applies its lines to account running balances.
	Post(ctx context.Context, id int) (EntryRecord, error)
	// Reverse persists the mirror entry in POSTED state and moves the original to REVERSED,
	// atomically. It returns the updated original and the stored mirror.
	Reverse(ctx context.Context, id int, mirror EntryRecord) (original EntryRecord, reversal EntryRecord, err error)
	// Get loads one entry.
	Get(ctx context.Context, id int) (EntryRecord, error)
}

// JournalService drives the journal lifecycle over a JournalStore. A transition is
// reflected in the returned entry only after the store confirms it; store failures
// are returned to the caller unchanged in kind.
type JournalService struct {
	store     JournalStore
	validator Validator
	log       zerolog.Logger
	now       func() time.Time
}

func NewJournalService(store JournalStore, validator Validator, log zerolog.Logger) *JournalService {
	return &JournalService{store: store, validator: validator, log: log, now: time.Now}
}

// Validator exposes the validator used for create, edit and reversal.
func (s *JournalService) Validator() Validator {
	return s.validator
}

// Create validates the proposed entry and persists it as a draft.
// An empty idempotency key is replaced with a random one.
func (s *JournalService) Create(ctx context.Context, in DraftInput) (*DraftEntry, error) {
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = uuid.NewString()
	}
	draft, err := NewDraftEntry(in, s.validator)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Create(ctx, draft.Record())
	if err != nil {
		return nil, fmt.Errorf("failed to create journal entry: %w", err)
	}
	stored, err := restoreAs[*DraftEntry](rec)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("entry_id", stored.ID()).Str("entry_number", stored.EntryNumber()).Msg("journal entry created")
	return stored, nil
}

// EditLines replaces the lines of a draft. Posted and reversed entries are rejected
// with ErrImmutableEntry before any round-trip.
func (s *JournalService) EditLines(ctx context.Context, e Entry, lines []JournalLine) (*DraftEntry, error) {
	if err := CheckTransition(e, EventEdit); err != nil {
		return nil, err
	}
	draft := e.(*DraftEntry)
	edited, err := draft.WithLines(lines, s.validator)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.UpdateLines(ctx, draft.ID(), edited.Lines())
	if err != nil {
		return nil, fmt.Errorf("failed to update lines of entry %d: %w", draft.ID(), err)
	}
	return restoreAs[*DraftEntry](rec)
}

// Post finalizes a draft. On a store failure the caller still holds the unchanged draft.
func (s *JournalService) Post(ctx context.Context, e Entry) (*PostedEntry, error) {
	if err := CheckTransition(e, EventPost); err != nil {
		return nil, err
	}
	rec, err := s.store.Post(ctx, e.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to post entry %d: %w", e.ID(), err)
	}
	posted, err := restoreAs[*PostedEntry](rec)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("entry_id", posted.ID()).Msg("journal entry posted")
	return posted, nil
}

// Reverse cancels a posted entry by appending a mirror entry. It returns the
// original in REVERSED state and the new, already posted, mirror.
func (s *JournalService) Reverse(ctx context.Context, e Entry, reason string) (*ReversedEntry, *PostedEntry, error) {
	if err := CheckTransition(e, EventReverse); err != nil {
		return nil, nil, err
	}
	posted := e.(*PostedEntry)
	mirror, err := posted.BuildReversal(reason, s.now(), s.validator)
	if err != nil {
		return nil, nil, err
	}
	mirrorRec := mirror.Record()
	mirrorRec.IdempotencyKey = reversalKey(posted)

	origRec, revRec, err := s.store.Reverse(ctx, posted.ID(), mirrorRec)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reverse entry %d: %w", posted.ID(), err)
	}
	original, err := restoreAs[*ReversedEntry](origRec)
	if err != nil {
		return nil, nil, err
	}
	reversal, err := restoreAs[*PostedEntry](revRec)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info().Int("entry_id", original.ID()).Int("reversal_id", reversal.ID()).Str("reason", reason).Msg("journal entry reversed")
	return original, reversal, nil
}

// Get loads an entry in whatever state the store holds it.
func (s *JournalService) Get(ctx context.Context, id int) (Entry, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return RestoreEntry(rec)
}

// reversalKey is stable per original entry, so a retried reversal cannot create a second mirror.
func reversalKey(p *PostedEntry) string {
	seed := p.IdempotencyKey()
	if seed == "" {
		seed = strconv.Itoa(p.ID())
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("reversal:"+seed)).String()
}

func restoreAs[T Entry](rec EntryRecord) (T, error) {
	var zero T
	e, err := RestoreEntry(rec)
	if err != nil {
		return zero, err
	}
	typed, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("store returned entry %d in unexpected state %s", rec.ID, rec.State)
	}
	return typed, nil
}
