package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/domain"
)

// Period bounds a filtered view of the ledger.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// Bucket selects the calendar grouping for trend points.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

// trendWindow caps how many day buckets a trend returns.
const trendWindow = 14

// CategoryAmount is one slice of the expense breakdown.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// TrendPoint is expense and income summed over one calendar bucket.
type TrendPoint struct {
	Label   string          `json:"label"`
	Expense decimal.Decimal `json:"expense"`
	Income  decimal.Decimal `json:"income"`
}

// entryDates tolerates the two date layouts the remote is known to emit.
var entryDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"02/01/2006",
}

func parseEntryDate(s string) (time.Time, bool) {
	for _, layout := range entryDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FilterPeriod keeps entries whose date falls inside the period relative to
// now. Entries with unparseable dates only survive the "all" period. Pure.
func FilterPeriod(entries []domain.LedgerEntry, period Period, now time.Time) []domain.LedgerEntry {
	if period == PeriodAll || period == "" {
		return entries
	}

	var filtered []domain.LedgerEntry
	for _, e := range entries {
		date, ok := parseEntryDate(e.Date)
		if !ok {
			continue
		}
		if inPeriod(date, period, now) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func inPeriod(date time.Time, period Period, now time.Time) bool {
	switch period {
	case PeriodToday:
		y1, m1, d1 := date.Date()
		y2, m2, d2 := now.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case PeriodWeek:
		start := startOfWeek(now)
		return !date.Before(start) && date.Before(start.AddDate(0, 0, 7))
	case PeriodMonth:
		return date.Year() == now.Year() && date.Month() == now.Month()
	default:
		return true
	}
}

// startOfWeek returns midnight on the Monday of now's week.
func startOfWeek(now time.Time) time.Time {
	day := now.Truncate(0)
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	weekday := int(midnight.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the preceding Monday-started week
	}
	return midnight.AddDate(0, 0, -(weekday - 1))
}

// CategoryBreakdown sums expense amounts grouped by category, largest first.
// Income entries are excluded. Pure.
func CategoryBreakdown(entries []domain.LedgerEntry) []CategoryAmount {
	totals := make(map[string]decimal.Decimal)
	for _, e := range entries {
		if e.Type != domain.TypeExpense {
			continue
		}
		category := e.Category
		if category == "" {
			category = domain.CategoryOther
		}
		totals[category] = totals[category].Add(e.Amount)
	}

	breakdown := make([]CategoryAmount, 0, len(totals))
	for category, amount := range totals {
		breakdown = append(breakdown, CategoryAmount{Category: category, Amount: amount})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if !breakdown[i].Amount.Equal(breakdown[j].Amount) {
			return breakdown[i].Amount.GreaterThan(breakdown[j].Amount)
		}
		return breakdown[i].Category < breakdown[j].Category
	})
	return breakdown
}

// Trend groups entries into calendar buckets in chronological order. The day
// bucket keeps only the trailing window. Pure.
func Trend(entries []domain.LedgerEntry, bucket Bucket) []TrendPoint {
	type keyed struct {
		sort  time.Time
		point TrendPoint
	}
	buckets := make(map[string]*keyed)

	for _, e := range entries {
		date, ok := parseEntryDate(e.Date)
		if !ok {
			continue
		}
		label, sortKey := bucketKey(date, bucket)
		k, exists := buckets[label]
		if !exists {
			k = &keyed{sort: sortKey, point: TrendPoint{Label: label, Expense: decimal.Zero, Income: decimal.Zero}}
			buckets[label] = k
		}
		switch e.Type {
		case domain.TypeExpense:
			k.point.Expense = k.point.Expense.Add(e.Amount)
		case domain.TypeIncome:
			k.point.Income = k.point.Income.Add(e.Amount)
		}
	}

	ordered := make([]keyed, 0, len(buckets))
	for _, k := range buckets {
		ordered = append(ordered, *k)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].sort.Before(ordered[j].sort) })

	points := make([]TrendPoint, 0, len(ordered))
	for _, k := range ordered {
		points = append(points, k.point)
	}
	if bucket == BucketDay && len(points) > trendWindow {
		points = points[len(points)-trendWindow:]
	}
	return points
}

func bucketKey(date time.Time, bucket Bucket) (string, time.Time) {
	switch bucket {
	case BucketWeek:
		start := startOfWeek(date)
		return start.Format("02/01"), start
	case BucketMonth:
		start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
		return start.Format("01/2006"), start
	default:
		day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
		return day.Format("02/01"), day
	}
}

// TopItems returns the n largest expense entries. Pure.
func TopItems(entries []domain.LedgerEntry, n int) []domain.LedgerEntry {
	var expenses []domain.LedgerEntry
	for _, e := range entries {
		if e.Type == domain.TypeExpense {
			expenses = append(expenses, e)
		}
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Amount.GreaterThan(expenses[j].Amount)
	})
	if len(expenses) > n {
		expenses = expenses[:n]
	}
	return expenses
}
