package recorder

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/domain"
	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/gateway"
	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/speech"
	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/store"
)

// fakeParser replays queued outcomes and can block to simulate a slow remote.
type fakeParser struct {
	outcome gateway.Outcome
	err     error
	calls   int
	block   chan struct{}
}

func (f *fakeParser) Submit(ctx context.Context, text, userID, timestamp string) (gateway.Outcome, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	if f.outcome.Kind == gateway.OutcomeParsed && f.outcome.Transaction != nil {
		tx := *f.outcome.Transaction
		tx.OriginalText = text
		tx.Timestamp = timestamp
		tx.UserID = userID
		return gateway.Outcome{Kind: gateway.OutcomeParsed, Transaction: &tx}, f.err
	}
	return f.outcome, f.err
}

// memStore is an in-memory SnapshotStore.
type memStore struct {
	snap  store.Snapshot
	saves int
}

func (m *memStore) Save(s store.Snapshot) error   { m.snap = s; m.saves++; return nil }
func (m *memStore) Load() (store.Snapshot, error) { return m.snap, nil }

func amount(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func twoItemOutcome() gateway.Outcome {
	return gateway.Outcome{
		Kind: gateway.OutcomeParsed,
		Transaction: &domain.ParsedTransaction{
			Type: domain.TypeExpense,
			Items: []domain.ExpenseItem{
				{Description: "ก๋วยเตี๋ยว", Category: "food", Amount: amount(50)},
				{Description: "กาแฟ", Category: "drink", Amount: amount(40)},
			},
		},
	}
}

func newTestRecorder(t *testing.T, parser ParseService, opts ...func(*Config)) (*Recorder, *memStore, *[]Notice) {
	t.Helper()
	snapshots := &memStore{}
	var notices []Notice
	cfg := Config{
		Parser:    parser,
		Snapshots: snapshots,
		Notify:    func(n Notice) { notices = append(notices, n) },
		Log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	r, err := New(cfg)
	require.NoError(t, err)
	r.schedule = func(d time.Duration, f func()) { f() }
	return r, snapshots, &notices
}

func TestSubmitParsesTwoItemUtterance(t *testing.T) {
	parser := &fakeParser{outcome: twoItemOutcome()}
	r, _, _ := newTestRecorder(t, parser)

	require.NoError(t, r.Submit(context.Background(), "กินก๋วยเตี๋ยว 50 กาแฟ 40"))
	assert.Equal(t, domain.StatusConfirming, r.Status())

	draft := r.Draft()
	require.NotNil(t, draft)
	require.Len(t, draft.Items, 2)
	assert.Equal(t, "90", draft.Total().String())
	assert.Equal(t, "กินก๋วยเตี๋ยว 50 กาแฟ 40", draft.OriginalText)
}

func TestSubmitEmptyTextReturnsToIdle(t *testing.T) {
	parser := &fakeParser{}
	r, _, _ := newTestRecorder(t, parser)

	require.NoError(t, r.Submit(context.Background(), "   \n "))
	assert.Equal(t, domain.StatusIdle, r.Status())
	assert.Zero(t, parser.calls, "no request for empty input")
}

func TestSubmitClarificationNeeded(t *testing.T) {
	parser := &fakeParser{outcome: gateway.Outcome{Kind: gateway.OutcomeClarification, Question: "อะไรนะ?"}}
	r, _, notices := newTestRecorder(t, parser)

	require.NoError(t, r.Submit(context.Background(), "เอ่อ"))

	assert.Equal(t, domain.StatusIdle, r.Status())
	assert.Nil(t, r.Draft())
	require.Len(t, *notices, 1)
	assert.Equal(t, NoticeInfo, (*notices)[0].Kind)
	assert.Equal(t, "อะไรนะ?", (*notices)[0].Text)
}

func TestSubmitCommandAcknowledged(t *testing.T) {
	parser := &fakeParser{outcome: gateway.Outcome{Kind: gateway.OutcomeCommand, Message: "วันนี้ใช้ไป 90 บาท"}}
	r, _, notices := newTestRecorder(t, parser)

	require.NoError(t, r.Submit(context.Background(), "สรุปวันนี้"))

	assert.Equal(t, domain.StatusIdle, r.Status())
	assert.Nil(t, r.Draft())
	require.Len(t, *notices, 1)
	assert.Equal(t, NoticeCommand, (*notices)[0].Kind)
}

func TestSubmitFailureEntersErrorState(t *testing.T) {
	parser := &fakeParser{outcome: gateway.Outcome{Kind: gateway.OutcomeFailed, Reason: "webhook status 500"}}
	r, _, notices := newTestRecorder(t, parser)

	require.NoError(t, r.Submit(context.Background(), "กาแฟ 40"))

	assert.Equal(t, domain.StatusError, r.Status())
	require.Len(t, *notices, 1)
	assert.Equal(t, NoticeError, (*notices)[0].Kind)

	// Error recovers via reset.
	r.Reset()
	assert.Equal(t, domain.StatusIdle, r.Status())
}

func TestSubmitGuardWhileBusy(t *testing.T) {
	parser := &fakeParser{outcome: twoItemOutcome()}
	r, _, _ := newTestRecorder(t, parser)

	require.NoError(t, r.Submit(context.Background(), "กาแฟ 40"))
	require.Equal(t, domain.StatusConfirming, r.Status())

	// A second submission is disabled until the draft cycle completes.
	assert.ErrorIs(t, r.Submit(context.Background(), "ชาเย็น 25"), ErrBusy)
	assert.Equal(t, 1, parser.calls)
}

func TestConfirmExpandsDraft(t *testing.T) {
	parser := &fakeParser{outcome: twoItemOutcome()}
	r, snapshots, notices := newTestRecorder(t, parser)

	require.NoError(t, r.Submit(context.Background(), "กินก๋วยเตี๋ยว 50 กาแฟ 40"))
	draft := r.Draft()

	statuses := []domain.Status{}
	r.schedule = func(d time.Duration, f func()) {
		statuses = append(statuses, r.Status())
		f()
	}

	require.NoError(t, r.Confirm())

	// saved was shown, then the machine returned to idle on its own.
	assert.Equal(t, []domain.Status{domain.StatusSaved}, statuses)
	assert.Equal(t, domain.StatusIdle, r.Status())
	assert.Nil(t, r.Draft())

	entries := r.LocalEntries()
	require.Len(t, entries, len(draft.Items), "exactly one entry per item")
	for i, e := range entries {
		assert.True(t, strings.HasPrefix(e.ID, "local_"), "synthesized id")
		assert.True(t, strings.HasSuffix(e.ID, fmt.Sprintf("_%d", i)))
		assert.Equal(t, draft.Timestamp, e.Date, "entry carries the parent timestamp")
		assert.Equal(t, draft.Type, e.Type, "entry carries the parent type")
	}
	assert.Equal(t, "ก๋วยเตี๋ยว", entries[0].Description)
	assert.Equal(t, "40", entries[1].Amount.String())

	require.Len(t, r.Transactions(), 1)
	assert.Equal(t, 1, snapshots.saves, "confirm persists the snapshot")

	var saved []Notice
	for _, n := range *notices {
		if n.Kind == NoticeSuccess {
			saved = append(saved, n)
		}
	}
	require.Len(t, saved, 1)
	assert.Contains(t, saved[0].Text, "2")
}

func TestConfirmGating(t *testing.T) {
	parser := &fakeParser{outcome: twoItemOutcome()}
	r, _, _ := newTestRecorder(t, parser)

	t.Run("no draft", func(t *testing.T) {
		assert.ErrorIs(t, r.Confirm(), ErrNoDraft)
	})

	require.NoError(t, r.Submit(context.Background(), "กินก๋วยเตี๋ยว 50 กาแฟ 40"))

	t.Run("empty description blocks confirm", func(t *testing.T) {
		require.NoError(t, r.UpdateItem(0, domain.ExpenseItem{Description: "  ", Category: "food", Amount: amount(50)}))
		assert.False(t, r.CanConfirm())
		assert.ErrorIs(t, r.Confirm(), ErrEmptyDescription)
		assert.Equal(t, domain.StatusConfirming, r.Status(), "the form keeps blocking until valid")
	})

	t.Run("valid again after edit", func(t *testing.T) {
		require.NoError(t, r.UpdateItem(0, domain.ExpenseItem{Description: "ก๋วยเตี๋ยว", Category: "food", Amount: amount(50)}))
		assert.True(t, r.CanConfirm())
	})
}

func TestDraftEditing(t *testing.T) {
	parser := &fakeParser{outcome: twoItemOutcome()}
	r, _, _ := newTestRecorder(t, parser)
	require.NoError(t, r.Submit(context.Background(), "กินก๋วยเตี๋ยว 50 กาแฟ 40"))

	t.Run("add item", func(t *testing.T) {
		require.NoError(t, r.AddItem())
		draft := r.Draft()
		require.Len(t, draft.Items, 3)
		assert.Equal(t, domain.CategoryOther, draft.Items[2].Category)
	})

	t.Run("remove item", func(t *testing.T) {
		require.NoError(t, r.RemoveItem(2))
		require.NoError(t, r.RemoveItem(1))
		require.Len(t, r.Draft().Items, 1)
	})

	t.Run("cannot remove last item", func(t *testing.T) {
		assert.ErrorIs(t, r.RemoveItem(0), ErrLastItem)
		assert.Len(t, r.Draft().Items, 1)
	})

	t.Run("index out of range", func(t *testing.T) {
		assert.ErrorIs(t, r.UpdateItem(9, domain.ExpenseItem{}), ErrItemIndex)
		assert.ErrorIs(t, r.RemoveItem(-1), ErrItemIndex)
	})

	t.Run("edits never touch committed caches", func(t *testing.T) {
		assert.Empty(t, r.LocalEntries())
		assert.Empty(t, r.Transactions())
	})
}

func TestCancelDiscardsDraft(t *testing.T) {
	parser := &fakeParser{outcome: twoItemOutcome()}
	r, snapshots, _ := newTestRecorder(t, parser)
	require.NoError(t, r.Submit(context.Background(), "กาแฟ 40"))

	r.Cancel()

	assert.Equal(t, domain.StatusIdle, r.Status())
	assert.Nil(t, r.Draft())
	assert.Zero(t, snapshots.saves)
}

func TestResetIgnoresStaleResponse(t *testing.T) {
	parser := &fakeParser{outcome: twoItemOutcome(), block: make(chan struct{})}
	r, _, _ := newTestRecorder(t, parser)

	done := make(chan error, 1)
	go func() { done <- r.Submit(context.Background(), "กาแฟ 40") }()

	// Wait for the machine to enter processing, then reset underneath the
	// in-flight request.
	require.Eventually(t, func() bool { return r.Status() == domain.StatusProcessing },
		time.Second, time.Millisecond)
	r.Reset()
	close(parser.block)

	require.NoError(t, <-done)
	assert.Equal(t, domain.StatusIdle, r.Status(), "stale response is ignored, not applied")
	assert.Nil(t, r.Draft())
}

func TestResetFromEveryState(t *testing.T) {
	parser := &fakeParser{outcome: twoItemOutcome()}
	r, _, _ := newTestRecorder(t, parser)

	r.Reset()
	assert.Equal(t, domain.StatusIdle, r.Status())

	require.NoError(t, r.Submit(context.Background(), "กาแฟ 40"))
	require.Equal(t, domain.StatusConfirming, r.Status())
	r.Reset()
	assert.Equal(t, domain.StatusIdle, r.Status())
	assert.Nil(t, r.Draft())
}

func TestSpeechPathFeedsSubmit(t *testing.T) {
	parser := &fakeParser{outcome: twoItemOutcome()}

	engine := speech.NewScriptEngine(nil, speech.ScriptResult{Final: "กินก๋วยเตี๋ยว 50 กาแฟ 40"})
	capture := speech.NewCapture(engine)
	engine.Bind(capture)

	r, _, _ := newTestRecorder(t, parser, func(cfg *Config) { cfg.Capture = capture })

	require.NoError(t, r.StartListening("th-TH"))
	assert.Equal(t, domain.StatusListening, r.Status())

	// Stopping hands the accumulated transcript straight to the parser.
	r.StopListening()

	assert.Equal(t, domain.StatusConfirming, r.Status())
	assert.Equal(t, 1, parser.calls)
	require.NotNil(t, r.Draft())
}

func TestStopListeningWithEmptyTranscript(t *testing.T) {
	parser := &fakeParser{outcome: twoItemOutcome()}

	engine := speech.NewScriptEngine(nil)
	capture := speech.NewCapture(engine)
	engine.Bind(capture)

	r, _, _ := newTestRecorder(t, parser, func(cfg *Config) { cfg.Capture = capture })

	require.NoError(t, r.StartListening("en-US"))
	r.StopListening()

	assert.Equal(t, domain.StatusIdle, r.Status())
	assert.Zero(t, parser.calls)
}

func TestHydratesPersistedState(t *testing.T) {
	snapshots := &memStore{snap: store.Snapshot{
		Transactions: []domain.ParsedTransaction{{
			Type:      domain.TypeExpense,
			Items:     []domain.ExpenseItem{{Description: "กาแฟ", Category: "drink", Amount: amount(40)}},
			Timestamp: "2026-08-28T09:00:00Z",
			UserID:    domain.AnonymousUser,
		}},
		LocalEntries: []domain.LedgerEntry{{
			ID: "local_1_0", Date: "2026-08-28T09:00:00Z", Type: domain.TypeExpense,
			Description: "กาแฟ", Category: "drink", Amount: amount(40),
		}},
	}}

	r, err := New(Config{Parser: &fakeParser{}, Snapshots: snapshots, Log: zerolog.Nop()})
	require.NoError(t, err)

	assert.Len(t, r.Transactions(), 1)
	assert.Len(t, r.LocalEntries(), 1)
	assert.Equal(t, domain.StatusIdle, r.Status())
}
