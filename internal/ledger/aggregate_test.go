package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/domain"
)

func datedEntry(id, date, category string, txType domain.TransactionType, amount int64) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:          id,
		Date:        date,
		Type:        txType,
		Description: "entry " + id,
		Category:    category,
		Amount:      decimal.NewFromInt(amount),
	}
}

func TestFilterPeriod(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) // a Saturday
	entries := []domain.LedgerEntry{
		datedEntry("today", "2026-08-29T08:00:00Z", "food", domain.TypeExpense, 50),
		datedEntry("monday", "2026-08-24", "transport", domain.TypeExpense, 20),
		datedEntry("last-week", "2026-08-20T10:00:00Z", "food", domain.TypeExpense, 80),
		datedEntry("last-month", "31/07/2026", "shopping", domain.TypeExpense, 900),
		datedEntry("undated", "", "food", domain.TypeExpense, 10),
	}

	t.Run("today", func(t *testing.T) {
		got := FilterPeriod(entries, PeriodToday, now)
		require.Len(t, got, 1)
		assert.Equal(t, "today", got[0].ID)
	})

	t.Run("week starts on Monday", func(t *testing.T) {
		got := FilterPeriod(entries, PeriodWeek, now)
		require.Len(t, got, 2)
		assert.Equal(t, "today", got[0].ID)
		assert.Equal(t, "monday", got[1].ID)
	})

	t.Run("month", func(t *testing.T) {
		got := FilterPeriod(entries, PeriodMonth, now)
		assert.Len(t, got, 3)
	})

	t.Run("all keeps everything", func(t *testing.T) {
		assert.Len(t, FilterPeriod(entries, PeriodAll, now), 5)
	})
}

func TestCategoryBreakdown(t *testing.T) {
	entries := []domain.LedgerEntry{
		datedEntry("a", "2026-08-29", "food", domain.TypeExpense, 50),
		datedEntry("b", "2026-08-29", "drink", domain.TypeExpense, 40),
		datedEntry("c", "2026-08-28", "food", domain.TypeExpense, 60),
		datedEntry("d", "2026-08-28", "salary", domain.TypeIncome, 15000),
		datedEntry("e", "2026-08-28", "", domain.TypeExpense, 5),
	}

	breakdown := CategoryBreakdown(entries)
	require.Len(t, breakdown, 3, "income entries are excluded")

	assert.Equal(t, "food", breakdown[0].Category)
	assert.Equal(t, "110", breakdown[0].Amount.String())
	assert.Equal(t, "drink", breakdown[1].Category)
	assert.Equal(t, domain.CategoryOther, breakdown[2].Category, "blank category defaults")
}

func TestTrendDayBuckets(t *testing.T) {
	entries := []domain.LedgerEntry{
		datedEntry("a", "2026-08-28T09:00:00Z", "food", domain.TypeExpense, 50),
		datedEntry("b", "2026-08-28T18:00:00Z", "drink", domain.TypeExpense, 40),
		datedEntry("c", "2026-08-29T08:00:00Z", "salary", domain.TypeIncome, 15000),
	}

	points := Trend(entries, BucketDay)
	require.Len(t, points, 2)

	assert.Equal(t, "28/08", points[0].Label)
	assert.Equal(t, "90", points[0].Expense.String())
	assert.True(t, points[0].Income.IsZero())

	assert.Equal(t, "29/08", points[1].Label)
	assert.Equal(t, "15000", points[1].Income.String())
}

func TestTrendDayWindow(t *testing.T) {
	var entries []domain.LedgerEntry
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		entries = append(entries, datedEntry(
			"e", day.AddDate(0, 0, i).Format("2006-01-02"), "food", domain.TypeExpense, 10))
	}

	points := Trend(entries, BucketDay)
	require.Len(t, points, 14, "day trend keeps the trailing window")
	assert.Equal(t, "07/08", points[0].Label)
	assert.Equal(t, "20/08", points[13].Label)
}

func TestTrendMonthBuckets(t *testing.T) {
	entries := []domain.LedgerEntry{
		datedEntry("a", "2026-07-15", "food", domain.TypeExpense, 100),
		datedEntry("b", "2026-08-02", "food", domain.TypeExpense, 30),
		datedEntry("c", "2026-08-20", "food", domain.TypeExpense, 20),
	}

	points := Trend(entries, BucketMonth)
	require.Len(t, points, 2)
	assert.Equal(t, "07/2026", points[0].Label)
	assert.Equal(t, "100", points[0].Expense.String())
	assert.Equal(t, "08/2026", points[1].Label)
	assert.Equal(t, "50", points[1].Expense.String())
}

func TestTopItems(t *testing.T) {
	entries := []domain.LedgerEntry{
		datedEntry("small", "2026-08-29", "food", domain.TypeExpense, 10),
		datedEntry("big", "2026-08-29", "shopping", domain.TypeExpense, 900),
		datedEntry("income", "2026-08-29", "salary", domain.TypeIncome, 15000),
		datedEntry("mid", "2026-08-29", "food", domain.TypeExpense, 50),
	}

	top := TopItems(entries, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "big", top[0].ID)
	assert.Equal(t, "mid", top[1].ID)
}
