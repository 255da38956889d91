package gateway

import "github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/domain"

// OutcomeKind enumerates the closed set of results a parse request can have.
// The wire protocol has three differently-shaped success/failure bodies; this
// is the only package that understands them. Everything downstream switches
// on Kind.
type OutcomeKind string

const (
	// OutcomeParsed means the service understood the text as a transaction.
	OutcomeParsed OutcomeKind = "parsed"
	// OutcomeCommand means the text was an instruction, not a transaction.
	OutcomeCommand OutcomeKind = "command"
	// OutcomeClarification means the service needs more information.
	OutcomeClarification OutcomeKind = "clarification"
	// OutcomeFailed covers transport failures, non-2xx statuses and
	// unrecognizable response shapes.
	OutcomeFailed OutcomeKind = "failed"
)

// Outcome is the normalized result of one parse request.
type Outcome struct {
	Kind OutcomeKind

	// Transaction is set for OutcomeParsed; its Items slice is never empty.
	Transaction *domain.ParsedTransaction
	// Message is set for OutcomeCommand.
	Message string
	// Question is set for OutcomeClarification.
	Question string
	// Reason is set for OutcomeFailed.
	Reason string
}
