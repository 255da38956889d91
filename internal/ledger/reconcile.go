// Package ledger decides what the user sees: it merges the remote ledger
// with the local fallback and derives every summary aggregate from entries
// alone. The remote and local sides generate ids independently, so no
// cross-source de-duplication is attempted; one source always wins wholesale.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/domain"
)

// Fetcher retrieves the remote ledger.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.LedgerEntry, error)
}

// Reconciler owns the remote-fetched cache. The remote ledger is an external
// system of record; entries may appear or disappear between operations.
type Reconciler struct {
	mu      sync.Mutex
	fetcher Fetcher
	remote  []domain.LedgerEntry
	loading bool
	log     zerolog.Logger
}

// NewReconciler creates a reconciler over the given fetcher.
func NewReconciler(fetcher Fetcher, log zerolog.Logger) *Reconciler {
	return &Reconciler{fetcher: fetcher, log: log}
}

// Refresh fetches the remote ledger and replaces the cache. A fetch failure
// degrades to an empty cache; the display must never hard-fail on a ledger
// fetch, so no error propagates upward.
func (r *Reconciler) Refresh(ctx context.Context) {
	r.mu.Lock()
	r.loading = true
	r.mu.Unlock()

	entries, err := r.fetcher.Fetch(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("ledger fetch failed, falling back to local data")
		entries = nil
	}

	r.mu.Lock()
	r.remote = entries
	r.loading = false
	r.mu.Unlock()
}

// Remote returns the current remote cache.
func (r *Reconciler) Remote() []domain.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remote
}

// Loading reports whether a refresh is in flight.
func (r *Reconciler) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Display resolves the entries to show alongside the is-local flag, using
// the current remote cache and the given local fallbacks.
func (r *Reconciler) Display(localEntries []domain.LedgerEntry, history []domain.ParsedTransaction) ([]domain.LedgerEntry, bool) {
	return DisplayEntries(r.Remote(), localEntries, history)
}

// DisplayEntries returns the remote cache when non-empty; otherwise the
// persisted local cache; otherwise a flattening of the in-session history
// (migration path for storage shapes that predate the local cache). The
// boolean is true exactly when the remote cache is empty and a local
// fallback is non-empty.
func DisplayEntries(remote, local []domain.LedgerEntry, history []domain.ParsedTransaction) ([]domain.LedgerEntry, bool) {
	if len(remote) > 0 {
		return remote, false
	}
	fallback := local
	if len(fallback) == 0 {
		fallback = FlattenHistory(history)
	}
	return fallback, len(fallback) > 0
}

// FlattenHistory expands confirmed transactions into display entries with
// positional ids. Pure.
func FlattenHistory(history []domain.ParsedTransaction) []domain.LedgerEntry {
	var entries []domain.LedgerEntry
	for txIdx, tx := range history {
		for itemIdx, item := range tx.Items {
			category := item.Category
			if category == "" {
				category = domain.CategoryOther
			}
			note := ""
			if item.Merchant != nil {
				note = *item.Merchant
			}
			entries = append(entries, domain.LedgerEntry{
				ID:          fmt.Sprintf("local_%d_%d", txIdx, itemIdx),
				Date:        tx.Timestamp,
				Type:        tx.Type,
				Description: item.Description,
				Category:    category,
				Amount:      item.Amount,
				Note:        note,
			})
		}
	}
	return entries
}

// Summarize sums amounts grouped by type. Balance is income minus expense,
// for empty and non-empty sets alike. Pure.
func Summarize(entries []domain.LedgerEntry) domain.Summary {
	summary := domain.Summary{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, e := range entries {
		switch e.Type {
		case domain.TypeIncome:
			summary.TotalIncome = summary.TotalIncome.Add(e.Amount)
		case domain.TypeExpense:
			summary.TotalExpense = summary.TotalExpense.Add(e.Amount)
		}
	}
	summary.Balance = summary.TotalIncome.Sub(summary.TotalExpense)
	return summary
}
