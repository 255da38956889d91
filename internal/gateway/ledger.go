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

	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/domain"
)

// ErrEmptyID is returned by Delete before any network call when no id is
// given.
var ErrEmptyID = errors.New("entry id is empty")

// LedgerClient talks to the remote ledger: fetching the persisted entries and
// issuing deletes. The remote is an external system of record; this client
// never assumes exclusive write access to it.
type LedgerClient struct {
	url    string
	secret string
	client *http.Client
}

// NewLedgerClient creates a client for the given ledger endpoint, falling
// back to the LEDGER_URL environment variable.
func NewLedgerClient(url string) (*LedgerClient, error) {
	if url == "" {
		url = os.Getenv("LEDGER_URL")
	}
	if url == "" {
		return nil, fmt.Errorf("ledger URL not set (LEDGER_URL)")
	}
	return &LedgerClient{
		url:    url,
		secret: os.Getenv("WEBHOOK_SECRET"),
		client: &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Fetch retrieves the remote ledger. The response is tolerated in three
// forms: a bare JSON array, a {success, data} wrapper, or a JSON string
// containing either of those (double-encoding, unwrapped once). An empty or
// unparseable body yields an empty list, not an error; only transport
// failures and non-2xx statuses are reported.
func (c *LedgerClient) Fetch(ctx context.Context) ([]domain.LedgerEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.secret != "" {
		req.Header.Set("X-Webhook-Secret", c.secret)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ledger: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("ledger status %d", resp.StatusCode)
	}

	return decodeEntries(body), nil
}

// decodeEntries unwraps the tolerated body shapes into a list of entries.
func decodeEntries(body []byte) []domain.LedgerEntry {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	// Double-encoded: a JSON string whose content is the real JSON.
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil
		}
		trimmed = bytes.TrimSpace([]byte(inner))
		if len(trimmed) == 0 {
			return nil
		}
	}

	var entries []domain.LedgerEntry
	if err := json.Unmarshal(trimmed, &entries); err == nil {
		return entries
	}

	var wrapped struct {
		Success bool                 `json:"success"`
		Data    []domain.LedgerEntry `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err == nil {
		return wrapped.Data
	}

	return nil
}

type deleteRequest struct {
	ID string `json:"id"`
}

// Delete removes one entry from the remote ledger. The id is validated
// locally first; a non-2xx status is an error the caller surfaces as
// retryable, and the entry stays visible until a refresh after success.
func (c *LedgerClient) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}

	body, err := json.Marshal(deleteRequest{ID: id})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("X-Webhook-Secret", c.secret)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("delete status %d", resp.StatusCode)
	}
	return nil
}
