// Package recorder contains the confirmation state machine: the orchestrator
// that sequences speech capture, remote parsing, user confirmation and
// persistence. It exclusively owns the status lifecycle and the in-progress
// draft; rendering collaborators see read projections and a fixed set of
// actions only.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/domain"
	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/gateway"
	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/speech"
	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/store"
)

var (
	// ErrBusy means a parse request or draft cycle is already in progress.
	ErrBusy = errors.New("another request is in progress")
	// ErrNoDraft means there is no draft to act on.
	ErrNoDraft = errors.New("no draft transaction")
	// ErrLastItem guards against removing the sole remaining item.
	ErrLastItem = errors.New("a transaction needs at least one item")
	// ErrEmptyDescription blocks confirmation while any item lacks one.
	ErrEmptyDescription = errors.New("every item needs a description")
	// ErrItemIndex means an edit referenced a nonexistent item.
	ErrItemIndex = errors.New("item index out of range")
)

// defaultSavedDelay is how long the saved state is shown before the machine
// returns to idle.
const defaultSavedDelay = 1500 * time.Millisecond

// ParseService is the gateway the recorder submits text through.
type ParseService interface {
	Submit(ctx context.Context, text, userID, timestamp string) (gateway.Outcome, error)
}

// SnapshotStore persists the confirmed state across sessions.
type SnapshotStore interface {
	Save(store.Snapshot) error
	Load() (store.Snapshot, error)
}

// NoticeKind styles a user-visible notification.
type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeCommand NoticeKind = "command"
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a transient, non-blocking notification.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Notifier receives notices. Presentation decides how to render them.
type Notifier func(Notice)

// Config assembles a Recorder. Parser is required; everything else has a
// usable zero value.
type Config struct {
	Parser     ParseService
	Capture    *speech.Capture
	Snapshots  SnapshotStore
	Notify     Notifier
	OnSaved    func()
	Log        zerolog.Logger
	UserID     string
	SavedDelay time.Duration
	Now        func() time.Time
}

// Recorder is the long-running state machine. It cycles continuously and has
// no terminal state.
type Recorder struct {
	mu           sync.Mutex
	status       domain.Status
	draft        *domain.ParsedTransaction
	transactions []domain.ParsedTransaction
	localEntries []domain.LedgerEntry
	gen          uint64

	parser    ParseService
	capture   *speech.Capture
	snapshots SnapshotStore
	notify    Notifier
	onSaved   func()
	log       zerolog.Logger
	userID    string

	savedDelay time.Duration
	now        func() time.Time
	schedule   func(time.Duration, func())
}

// New builds a Recorder, hydrating persisted state when a snapshot store is
// configured.
func New(cfg Config) (*Recorder, error) {
	if cfg.Parser == nil {
		return nil, fmt.Errorf("parse service is required")
	}

	r := &Recorder{
		status:     domain.StatusIdle,
		parser:     cfg.Parser,
		capture:    cfg.Capture,
		snapshots:  cfg.Snapshots,
		notify:     cfg.Notify,
		onSaved:    cfg.OnSaved,
		log:        cfg.Log,
		userID:     cfg.UserID,
		savedDelay: cfg.SavedDelay,
		now:        cfg.Now,
	}
	if r.userID == "" {
		r.userID = domain.AnonymousUser
	}
	if r.savedDelay == 0 {
		r.savedDelay = defaultSavedDelay
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.schedule = func(d time.Duration, f func()) { time.AfterFunc(d, f) }

	if r.snapshots != nil {
		snap, err := r.snapshots.Load()
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		r.transactions, r.localEntries = snap.Hydrate()
	}

	if r.capture != nil {
		r.capture.OnFinal = func(text string) {
			if err := r.Submit(context.Background(), text); err != nil {
				r.log.Warn().Err(err).Msg("voice submit rejected")
			}
		}
	}

	return r, nil
}

// Status returns the current machine status.
func (r *Recorder) Status() domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Draft returns a copy of the in-progress draft, or nil.
func (r *Recorder) Draft() *domain.ParsedTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyDraft(r.draft)
}

// Transactions returns the confirmed history, newest first.
func (r *Recorder) Transactions() []domain.ParsedTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ParsedTransaction, len(r.transactions))
	copy(out, r.transactions)
	return out
}

// LocalEntries returns the locally-persisted ledger cache, newest first.
func (r *Recorder) LocalEntries() []domain.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.LedgerEntry, len(r.localEntries))
	copy(out, r.localEntries)
	return out
}

// StartListening begins speech capture. It is a no-op when no engine is
// available, and refuses to start while a request or draft is in flight.
func (r *Recorder) StartListening(lang string) error {
	if r.capture == nil || !r.capture.Supported() {
		return nil
	}

	r.mu.Lock()
	switch r.status {
	case domain.StatusProcessing, domain.StatusConfirming, domain.StatusSaved, domain.StatusListening:
		r.mu.Unlock()
		return ErrBusy
	}
	r.status = domain.StatusListening
	r.mu.Unlock()

	if err := r.capture.Start(lang); err != nil {
		r.mu.Lock()
		r.status = domain.StatusError
		r.mu.Unlock()
		return err
	}
	r.log.Debug().Str("lang", lang).Msg("listening")
	return nil
}

// StopListening ends capture; the accumulated transcript funnels into Submit
// through the capture's OnFinal hook. Stopping with an empty transcript
// returns the machine to idle.
func (r *Recorder) StopListening() {
	if r.capture == nil || !r.capture.Supported() {
		return
	}
	empty := r.capture.Transcript() == ""
	r.capture.Stop()

	if empty {
		r.mu.Lock()
		if r.status == domain.StatusListening {
			r.status = domain.StatusIdle
		}
		r.mu.Unlock()
	}
}

// Submit sends text through the parse gateway and routes the outcome. Every
// path out of here resolves the status to confirming, idle, or error;
// processing can never stick. Empty text returns to idle without a network
// call.
func (r *Recorder) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	r.mu.Lock()
	switch r.status {
	case domain.StatusProcessing, domain.StatusConfirming, domain.StatusSaved:
		r.mu.Unlock()
		return ErrBusy
	}
	if text == "" {
		r.status = domain.StatusIdle
		r.mu.Unlock()
		return nil
	}
	r.status = domain.StatusProcessing
	gen := r.gen
	timestamp := r.now().UTC().Format(time.RFC3339)
	r.mu.Unlock()

	r.log.Info().Str("text", text).Msg("processing")
	outcome, err := r.parser.Submit(ctx, text, r.userID, timestamp)

	r.mu.Lock()
	if r.gen != gen || r.status != domain.StatusProcessing {
		// The machine was reset while the request was in flight; the stale
		// response must be ignored, not applied.
		r.mu.Unlock()
		r.log.Debug().Msg("discarding stale parse response")
		return nil
	}

	if err != nil {
		r.status = domain.StatusError
		r.mu.Unlock()
		r.emit(Notice{Kind: NoticeError, Text: "something went wrong, please try again"})
		return err
	}

	var notice *Notice
	switch outcome.Kind {
	case gateway.OutcomeParsed:
		r.draft = outcome.Transaction
		r.status = domain.StatusConfirming
	case gateway.OutcomeCommand:
		r.status = domain.StatusIdle
		notice = &Notice{Kind: NoticeCommand, Text: outcome.Message}
	case gateway.OutcomeClarification:
		r.status = domain.StatusIdle
		notice = &Notice{Kind: NoticeInfo, Text: outcome.Question}
	default:
		r.status = domain.StatusError
		notice = &Notice{Kind: NoticeError, Text: "something went wrong, please try again"}
	}
	status := r.status
	r.mu.Unlock()

	r.log.Info().Str("outcome", string(outcome.Kind)).Str("status", string(status)).Msg("outcome routed")
	if notice != nil {
		r.emit(*notice)
	}
	return nil
}

// UpdateItem replaces one item of the draft. Editing touches only the local
// draft copy, never the committed caches.
func (r *Recorder) UpdateItem(index int, item domain.ExpenseItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != domain.StatusConfirming || r.draft == nil {
		return ErrNoDraft
	}
	if index < 0 || index >= len(r.draft.Items) {
		return ErrItemIndex
	}
	r.draft.Items[index] = item
	return nil
}

// AddItem appends a blank item to the draft.
func (r *Recorder) AddItem() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != domain.StatusConfirming || r.draft == nil {
		return ErrNoDraft
	}
	r.draft.Items = append(r.draft.Items, domain.ExpenseItem{Category: domain.CategoryOther})
	return nil
}

// RemoveItem deletes one item from the draft. Removing the sole remaining
// item is disallowed; the count never reaches zero while the form is open.
func (r *Recorder) RemoveItem(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != domain.StatusConfirming || r.draft == nil {
		return ErrNoDraft
	}
	if index < 0 || index >= len(r.draft.Items) {
		return ErrItemIndex
	}
	if len(r.draft.Items) == 1 {
		return ErrLastItem
	}
	r.draft.Items = append(r.draft.Items[:index], r.draft.Items[index+1:]...)
	return nil
}

// SetDraft replaces the draft wholesale with an edited copy, preserving the
// original utterance and metadata. Used by presentation layers that edit a
// projection instead of issuing per-field updates.
func (r *Recorder) SetDraft(items []domain.ExpenseItem, txType domain.TransactionType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != domain.StatusConfirming || r.draft == nil {
		return ErrNoDraft
	}
	if len(items) == 0 {
		return ErrLastItem
	}
	r.draft.Items = items
	if txType != "" {
		r.draft.Type = txType
	}
	return nil
}

// CanConfirm reports whether the draft is valid: at least one item, none with
// an empty description.
func (r *Recorder) CanConfirm() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft != nil && draftValid(r.draft)
}

func draftValid(draft *domain.ParsedTransaction) bool {
	if len(draft.Items) == 0 {
		return false
	}
	for _, item := range draft.Items {
		if strings.TrimSpace(item.Description) == "" {
			return false
		}
	}
	return true
}

// Confirm commits the draft: it expands into exactly len(items) ledger
// entries, prepends them to the history and local cache, persists the
// snapshot, and shows the saved state before automatically returning to
// idle.
func (r *Recorder) Confirm() error {
	r.mu.Lock()
	if r.status != domain.StatusConfirming || r.draft == nil {
		r.mu.Unlock()
		return ErrNoDraft
	}
	if !draftValid(r.draft) {
		r.mu.Unlock()
		return ErrEmptyDescription
	}

	draft := *r.draft
	entries := expand(draft, r.now())
	r.transactions = append([]domain.ParsedTransaction{draft}, r.transactions...)
	r.localEntries = append(append([]domain.LedgerEntry{}, entries...), r.localEntries...)
	r.draft = nil
	r.status = domain.StatusSaved
	gen := r.gen
	snap := store.Project(r.transactions, r.localEntries)
	r.mu.Unlock()

	if r.capture != nil {
		r.capture.Reset()
	}
	if r.snapshots != nil {
		if err := r.snapshots.Save(snap); err != nil {
			r.log.Warn().Err(err).Msg("snapshot save failed")
		}
	}

	count := len(entries)
	r.log.Info().Int("items", count).Msg("transaction saved")
	r.emit(Notice{Kind: NoticeSuccess, Text: fmt.Sprintf("saved %d item(s)", count)})

	r.schedule(r.savedDelay, func() {
		r.mu.Lock()
		stale := r.gen != gen
		if !stale && r.status == domain.StatusSaved {
			r.status = domain.StatusIdle
		}
		onSaved := r.onSaved
		r.mu.Unlock()
		if !stale && onSaved != nil {
			onSaved()
		}
	})
	return nil
}

// Cancel discards the draft and returns to idle.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	r.draft = nil
	r.status = domain.StatusIdle
	r.mu.Unlock()
	if r.capture != nil {
		r.capture.Reset()
	}
}

// Reset returns the machine to idle from any state, clearing the draft and
// both capture buffers. The generation bump makes any in-flight response
// inert when it eventually arrives.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.gen++
	r.draft = nil
	r.status = domain.StatusIdle
	r.mu.Unlock()
	if r.capture != nil {
		r.capture.Reset()
	}
}

func (r *Recorder) emit(n Notice) {
	if r.notify != nil {
		r.notify(n)
	}
}

// expand flattens a confirmed transaction into one ledger entry per item.
// Each entry carries the parent's timestamp and type; ids combine a
// time-based prefix with the item index.
func expand(tx domain.ParsedTransaction, now time.Time) []domain.LedgerEntry {
	entries := make([]domain.LedgerEntry, 0, len(tx.Items))
	prefix := now.UnixMilli()
	for i, item := range tx.Items {
		category := item.Category
		if category == "" {
			category = domain.CategoryOther
		}
		note := ""
		if item.Merchant != nil {
			note = *item.Merchant
		}
		entries = append(entries, domain.LedgerEntry{
			ID:          fmt.Sprintf("local_%d_%d", prefix, i),
			Date:        tx.Timestamp,
			Type:        tx.Type,
			Description: item.Description,
			Category:    category,
			Amount:      item.Amount,
			Note:        note,
		})
	}
	return entries
}

func copyDraft(draft *domain.ParsedTransaction) *domain.ParsedTransaction {
	if draft == nil {
		return nil
	}
	out := *draft
	out.Items = make([]domain.ExpenseItem, len(draft.Items))
	copy(out.Items, draft.Items)
	return &out
}
