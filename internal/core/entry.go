package core

import (
	"fmt"
	"strings"
	"time"
)

// EntryState is the lifecycle tag of a journal entry.
type EntryState string

const (
	StateDraft    EntryState = "DRAFT"
	StatePosted   EntryState = "POSTED"
	StateReversed EntryState = "REVERSED"
)

// EntryEvent is an operator action on a journal entry.
type EntryEvent string

const (
	EventPost    EntryEvent = "post"
	EventReverse EntryEvent = "reverse"
	EventEdit    EntryEvent = "edit"
)

// transitions is the complete lifecycle table. Anything not listed is rejected.
var transitions = map[EntryState]map[EntryEvent]EntryState{
	StateDraft: {
		EventEdit: StateDraft,
		EventPost: StatePosted,
	},
	StatePosted: {
		EventReverse: StateReversed,
	},
}

// NextState looks up the transition table. Editing a non-draft entry fails with
// ErrImmutableEntry; any other missing transition fails with ErrInvalidTransition.
func NextState(from EntryState, event EntryEvent) (EntryState, error) {
	if to, ok := transitions[from][event]; ok {
		return to, nil
	}
	if event == EventEdit {
		return from, ErrImmutableEntry
	}
	return from, ErrInvalidTransition
}

// Entry is a journal entry in one of its three states: *DraftEntry, *PostedEntry or *ReversedEntry.
// Only *DraftEntry exposes a way to change lines.
type Entry interface {
	ID() int
	EntryNumber() string
	TransactionDate() time.Time
	Description() string
	IdempotencyKey() string
	State() EntryState
	Lines() []JournalLine
	ReversalOfID() *int
	Record() EntryRecord
	isEntry()
}

// CheckTransition is the fast local check against an entry's cached state.
// The store performs the authoritative check when the transition is persisted.
// A nil entry, typed or not, fails with ErrEntryNotFound.
func CheckTransition(e Entry, event EntryEvent) error {
	if isNilEntry(e) {
		return fmt.Errorf("%w: cannot %s a nil entry", ErrEntryNotFound, event)
	}
	if _, err := NextState(e.State(), event); err != nil {
		return &TransitionError{EntryID: e.ID(), From: e.State(), Event: event, Cause: err}
	}
	return nil
}

func isNilEntry(e Entry) bool {
	switch v := e.(type) {
	case nil:
		return true
	case *DraftEntry:
		return v == nil
	case *PostedEntry:
		return v == nil
	case *ReversedEntry:
		return v == nil
	}
	return false
}

type entryBase struct {
	rec EntryRecord
}

func (b entryBase) ID() int                    { return b.rec.ID }
func (b entryBase) EntryNumber() string        { return b.rec.EntryNumber }
func (b entryBase) TransactionDate() time.Time { return b.rec.TransactionDate }
func (b entryBase) Description() string        { return b.rec.Description }
func (b entryBase) IdempotencyKey() string     { return b.rec.IdempotencyKey }
func (b entryBase) State() EntryState          { return b.rec.State }

func (b entryBase) ReversalOfID() *int {
	return copyIntPtr(b.rec.ReversalOfID)
}

// Lines returns a copy; callers cannot reach the entry's own slice.
func (b entryBase) Lines() []JournalLine {
	return copyLines(b.rec.Lines)
}

// Record returns a detached copy of the entry for persistence or display.
func (b entryBase) Record() EntryRecord {
	rec := b.rec
	rec.Lines = copyLines(b.rec.Lines)
	rec.ReversalOfID = copyIntPtr(b.rec.ReversalOfID)
	rec.ReversedByID = copyIntPtr(b.rec.ReversedByID)
	if b.rec.PostedAt != nil {
		t := *b.rec.PostedAt
		rec.PostedAt = &t
	}
	return rec
}

func (entryBase) isEntry() {}

// DraftEntry is a balanced entry that has not yet been posted.
type DraftEntry struct{ entryBase }

// PostedEntry is final for reporting. Its lines can never change.
type PostedEntry struct{ entryBase }

// ReversedEntry is a posted entry that has been cancelled by a mirror entry.
type ReversedEntry struct{ entryBase }

func (p *PostedEntry) PostedAt() time.Time {
	if p.rec.PostedAt == nil {
		return time.Time{}
	}
	return *p.rec.PostedAt
}

// ReversedByID is the ID of the mirror entry.
func (r *ReversedEntry) ReversedByID() int {
	if r.rec.ReversedByID == nil {
		return 0
	}
	return *r.rec.ReversedByID
}

// DraftInput is what an editing surface submits to create an entry.
type DraftInput struct {
	TransactionDate time.Time     `json:"transaction_date"`
	Description     string        `json:"description"`
	IdempotencyKey  string        `json:"idempotency_key,omitempty"`
	Lines           []JournalLine `json:"lines"`
}

// NewDraftEntry builds an unsaved draft. The lines must pass v; the entry gets
// its ID and number from the store.
func NewDraftEntry(in DraftInput, v Validator) (*DraftEntry, error) {
	if res := v.Validate(in.Lines); !res.Valid() {
		return nil, res.Err()
	}
	return &DraftEntry{entryBase{rec: EntryRecord{
		TransactionDate: in.TransactionDate,
		Description:     strings.TrimSpace(in.Description),
		IdempotencyKey:  in.IdempotencyKey,
		State:           StateDraft,
		Lines:           RoundLines(in.Lines),
	}}}, nil
}

// WithLines returns a copy of the draft carrying new lines. The draft itself is not modified.
func (d *DraftEntry) WithLines(lines []JournalLine, v Validator) (*DraftEntry, error) {
	if res := v.Validate(lines); !res.Valid() {
		return nil, res.Err()
	}
	rec := d.Record()
	rec.Lines = RoundLines(lines)
	return &DraftEntry{entryBase{rec: rec}}, nil
}

// Post is the pure Draft -> Posted transition. Callers persisting entries must
// only apply it once the store has confirmed the post.
func (d *DraftEntry) Post(at time.Time) *PostedEntry {
	rec := d.Record()
	rec.State = StatePosted
	rec.PostedAt = &at
	return &PostedEntry{entryBase{rec: rec}}
}

// MarkReversed is the pure Posted -> Reversed transition.
func (p *PostedEntry) MarkReversed(reversalID int) *ReversedEntry {
	rec := p.Record()
	rec.State = StateReversed
	rec.ReversedByID = &reversalID
	return &ReversedEntry{entryBase{rec: rec}}
}

// BuildReversal synthesizes the mirror entry for p: same accounts, debit and credit
// swapped, the reason appended to every description. The mirror is posted from the
// start and links back through ReversalOfID. It is re-validated even though swapping
// sides of a balanced set cannot unbalance it.
func (p *PostedEntry) BuildReversal(reason string, at time.Time, v Validator) (*PostedEntry, error) {
	reason = strings.TrimSpace(reason)
	lines := make([]JournalLine, 0, len(p.rec.Lines))
	for _, l := range p.rec.Lines {
		lines = append(lines, JournalLine{
			AccountID:   l.AccountID,
			Description: appendReason(l.Description, reason),
			Debit:       l.Credit,
			Credit:      l.Debit,
		})
	}
	if res := v.Validate(lines); !res.Valid() {
		return nil, fmt.Errorf("reversal of entry %d failed validation: %w", p.rec.ID, res.Err())
	}

	ref := p.rec.EntryNumber
	if ref == "" {
		ref = fmt.Sprintf("entry %d", p.rec.ID)
	}
	originalID := p.rec.ID
	return &PostedEntry{entryBase{rec: EntryRecord{
		TransactionDate: p.rec.TransactionDate,
		Description:     appendReason("Reversal of "+ref+": "+p.rec.Description, reason),
		State:           StatePosted,
		ReversalOfID:    &originalID,
		PostedAt:        &at,
		Lines:           lines,
	}}}, nil
}

func appendReason(desc, reason string) string {
	if reason == "" {
		return desc
	}
	if desc == "" {
		return reason
	}
	return desc + " (" + reason + ")"
}

// RestoreEntry rebuilds the typed entry for a persisted record.
func RestoreEntry(rec EntryRecord) (Entry, error) {
	rec.Lines = copyLines(rec.Lines)
	base := entryBase{rec: rec}
	switch rec.State {
	case StateDraft:
		return &DraftEntry{base}, nil
	case StatePosted:
		return &PostedEntry{base}, nil
	case StateReversed:
		return &ReversedEntry{base}, nil
	}
	return nil, fmt.Errorf("entry %d has unknown state %q", rec.ID, rec.State)
}

func copyLines(lines []JournalLine) []JournalLine {
	if lines == nil {
		return nil
	}
	out := make([]JournalLine, len(lines))
	copy(out, lines)
	return out
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
