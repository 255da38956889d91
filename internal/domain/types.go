package domain

import "github.com/shopspring/decimal"

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

const (
	TypeExpense TransactionType = "expense"
	TypeIncome  TransactionType = "income"
)

// Status is the single source of truth for which UI affordances are enabled.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusListening  Status = "listening"
	StatusProcessing Status = "processing"
	StatusConfirming Status = "confirming"
	StatusSaved      Status = "saved"
	StatusError      Status = "error"
)

// CategoryOther is the fallback when the parser supplies no category.
const CategoryOther = "other"

// Categories is the fixed set offered in the confirmation form.
var Categories = []string{
	"food",
	"drink",
	"transport",
	"shopping",
	"entertainment",
	"health",
	"education",
	"utilities",
	"salary",
	"other-income",
	CategoryOther,
}

// AnonymousUser is the sentinel user id used when no identity system exists.
const AnonymousUser = "anonymous"

// ExpenseItem is one line within a transaction. Items carry no identity of
// their own; position within the parent transaction identifies them until
// they are persisted.
type ExpenseItem struct {
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Merchant    *string         `json:"merchant"`
}

// ParsedTransaction is a draft or confirmed transaction produced from one
// utterance. A confirmed transaction always has at least one item with a
// non-empty description.
type ParsedTransaction struct {
	Type         TransactionType `json:"type"`
	Items        []ExpenseItem   `json:"items"`
	OriginalText string          `json:"originalText"`
	Timestamp    string          `json:"timestamp"`
	UserID       string          `json:"userId"`
}

// Total sums the amounts of all items.
func (t ParsedTransaction) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range t.Items {
		total = total.Add(item.Amount)
	}
	return total
}

// LedgerEntry is a persisted, flattened record. One confirmed transaction
// expands into exactly len(items) entries. Entries are never mutated, only
// created on confirm and removed by explicit delete.
type LedgerEntry struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Note        string          `json:"note,omitempty"`
}

// Summary holds aggregate totals for a set of ledger entries.
type Summary struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Balance      decimal.Decimal `json:"balance"`
}
