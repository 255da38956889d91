// Package gateway holds the HTTP clients for the remote parsing and ledger
// services. It is the only place that understands the wire shapes; all
// consumers work with normalized results.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/domain"
)

// ErrEmptyText is returned when the input is empty or whitespace-only. No
// network call is made in that case.
var ErrEmptyText = errors.New("text is empty")

const defaultTimeout = 30 * time.Second

// ParseClient sends captured or typed text to the remote parsing webhook.
type ParseClient struct {
	url    string
	secret string
	client *http.Client
}

// NewParseClient creates a client for the given webhook URL. The URL falls
// back to the WEBHOOK_URL environment variable; the shared secret, when set
// via WEBHOOK_SECRET, is sent as the X-Webhook-Secret header.
func NewParseClient(url string) (*ParseClient, error) {
	if url == "" {
		url = os.Getenv("WEBHOOK_URL")
	}
	if url == "" {
		return nil, fmt.Errorf("webhook URL not set (WEBHOOK_URL)")
	}
	return &ParseClient{
		url:    url,
		secret: os.Getenv("WEBHOOK_SECRET"),
		client: &http.Client{Timeout: defaultTimeout},
	}, nil
}

type parseRequest struct {
	Text      string `json:"text"`
	UserID    string `json:"user_id"`
	Timestamp string `json:"timestamp"`
}

// parseResponse covers all three documented response shapes in one struct;
// normalization below decides which one actually arrived.
type parseResponse struct {
	Success              bool            `json:"success"`
	Data                 json.RawMessage `json:"data"`
	Message              string          `json:"message"`
	IsCommand            bool            `json:"isCommand"`
	RequiresConfirmation bool            `json:"requiresConfirmation"`
	Question             string          `json:"question"`
}

// rawTransaction tolerates payloads that carry top-level description/amount
// fields instead of an items array.
type rawTransaction struct {
	Type        domain.TransactionType `json:"type"`
	Items       []domain.ExpenseItem   `json:"items"`
	Description string                 `json:"description"`
	Amount      decimal.Decimal        `json:"amount"`
	Category    string                 `json:"category"`
	Merchant    *string                `json:"merchant"`
}

// Submit sends the text plus metadata to the remote parsing endpoint and
// normalizes the reply into exactly one Outcome. Empty or whitespace-only
// text short-circuits locally with ErrEmptyText.
func (c *ParseClient) Submit(ctx context.Context, text, userID, timestamp string) (Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{}, ErrEmptyText
	}
	if userID == "" {
		userID = domain.AnonymousUser
	}

	body, err := json.Marshal(parseRequest{Text: text, UserID: userID, Timestamp: timestamp})
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("X-Webhook-Secret", c.secret)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Reason: fmt.Sprintf("request failed: %v", err)}, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Reason: fmt.Sprintf("read response: %v", err)}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{Kind: OutcomeFailed, Reason: fmt.Sprintf("webhook status %d", resp.StatusCode)}, nil
	}

	return normalize(raw, text, userID, timestamp), nil
}

// normalize maps the three documented wire shapes onto the closed Outcome
// set. Anything unrecognizable becomes OutcomeFailed.
func normalize(raw []byte, text, userID, timestamp string) Outcome {
	var resp parseResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Outcome{Kind: OutcomeFailed, Reason: fmt.Sprintf("malformed response: %v", err)}
	}

	switch {
	case resp.Success && len(resp.Data) > 0 && string(resp.Data) != "null":
		var rt rawTransaction
		if err := json.Unmarshal(resp.Data, &rt); err != nil {
			return Outcome{Kind: OutcomeFailed, Reason: fmt.Sprintf("malformed transaction: %v", err)}
		}
		tx := buildTransaction(rt, text, userID, timestamp)
		return Outcome{Kind: OutcomeParsed, Transaction: &tx}

	case resp.IsCommand:
		msg := resp.Message
		if msg == "" {
			msg = "command executed"
		}
		return Outcome{Kind: OutcomeCommand, Message: msg}

	case resp.RequiresConfirmation:
		q := resp.Question
		if q == "" {
			q = "please provide more detail"
		}
		return Outcome{Kind: OutcomeClarification, Question: q}

	default:
		reason := resp.Message
		if reason == "" {
			reason = "unrecognized response"
		}
		return Outcome{Kind: OutcomeFailed, Reason: reason}
	}
}

// buildTransaction guarantees a non-empty items slice: when the payload has
// none, a single item is synthesized from the top-level fields, with the
// category defaulting to "other" and the amount to zero.
func buildTransaction(rt rawTransaction, text, userID, timestamp string) domain.ParsedTransaction {
	items := rt.Items
	if len(items) == 0 {
		desc := rt.Description
		if desc == "" {
			desc = text
		}
		category := rt.Category
		if category == "" {
			category = domain.CategoryOther
		}
		items = []domain.ExpenseItem{{
			Description: desc,
			Category:    category,
			Amount:      rt.Amount,
			Merchant:    rt.Merchant,
		}}
	}
	for i := range items {
		if items[i].Category == "" {
			items[i].Category = domain.CategoryOther
		}
	}

	txType := rt.Type
	if txType != domain.TypeIncome {
		txType = domain.TypeExpense
	}

	return domain.ParsedTransaction{
		Type:         txType,
		Items:        items,
		OriginalText: text,
		Timestamp:    timestamp,
		UserID:       userID,
	}
}
