// Package api exposes the orchestrator as an embedded JSON surface.
// Handlers are read projections and dispatchable actions over the recorder
// and reconciler; no rendering state lives here.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/domain"
	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/ledger"
	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/logger"
	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/recorder"
)

// Deleter issues remote ledger deletes.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// Server handles HTTP requests for the expense recording API
type Server struct {
	rec     *recorder.Recorder
	recon   *ledger.Reconciler
	deleter Deleter
	addr    string
	log     zerolog.Logger

	mu         sync.Mutex
	lastNotice *recorder.Notice
}

// New creates a new API server
func New(rec *recorder.Recorder, recon *ledger.Reconciler, deleter Deleter, addr string, log zerolog.Logger) *Server {
	return &Server{rec: rec, recon: recon, deleter: deleter, addr: addr, log: log}
}

// Notify records the most recent notice so clients can render it as a toast.
func (s *Server) Notify(n recorder.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastNotice = &n
}

func (s *Server) takeNotice() *recorder.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.lastNotice
	s.lastNotice = nil
	return n
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/expense", s.submitExpense)
	mux.HandleFunc("POST /api/expense/confirm", s.confirmExpense)
	mux.HandleFunc("POST /api/expense/cancel", s.cancelExpense)
	mux.HandleFunc("POST /api/expense/reset", s.resetExpense)

	mux.HandleFunc("GET /api/ledger", s.getLedger)
	mux.HandleFunc("DELETE /api/ledger/{id}", s.deleteEntry)

	mux.HandleFunc("GET /api/summary", s.getSummary)
	mux.HandleFunc("GET /api/status", s.getStatus)

	mux.HandleFunc("GET /health", s.health)

	return withCORS(s.withRequestLog(mux))
}

// Run starts the HTTP server
func (s *Server) Run() error {
	s.log.Info().Str("addr", s.addr).Msg("starting server")
	return http.ListenAndServe(s.addr, s.Handler())
}

// withRequestLog attaches a request-scoped logger with a correlation id.
func (s *Server) withRequestLog(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLog := s.log.With().
			Str("request_id", uuid.NewString()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		reqLog.Debug().Msg("request")
		h.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), reqLog)))
	})
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SubmitRequest is the request body for submitting text.
type SubmitRequest struct {
	Text string `json:"text"`
}

// StateResponse reports the machine state after an action.
type StateResponse struct {
	Status domain.Status             `json:"status"`
	Draft  *domain.ParsedTransaction `json:"draft,omitempty"`
	Notice *recorder.Notice          `json:"notice,omitempty"`
}

func (s *Server) state() StateResponse {
	return StateResponse{
		Status: s.rec.Status(),
		Draft:  s.rec.Draft(),
		Notice: s.takeNotice(),
	}
}

func (s *Server) submitExpense(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.rec.Submit(r.Context(), req.Text); err != nil {
		switch err {
		case recorder.ErrBusy:
			writeError(w, http.StatusConflict, err.Error())
		default:
			log := logger.FromContext(r.Context())
			log.Error().Err(err).Msg("submit failed")
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, s.state())
}

// ConfirmRequest optionally replaces the draft with the user's edits before
// committing.
type ConfirmRequest struct {
	Type  domain.TransactionType `json:"type,omitempty"`
	Items []domain.ExpenseItem   `json:"items,omitempty"`
}

func (s *Server) confirmExpense(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if len(req.Items) > 0 {
		if err := s.rec.SetDraft(req.Items, req.Type); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
	}

	if err := s.rec.Confirm(); err != nil {
		switch err {
		case recorder.ErrNoDraft:
			writeError(w, http.StatusConflict, err.Error())
		case recorder.ErrEmptyDescription:
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) cancelExpense(w http.ResponseWriter, r *http.Request) {
	s.rec.Cancel()
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) resetExpense(w http.ResponseWriter, r *http.Request) {
	s.rec.Reset()
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

// LedgerResponse is the display projection: the winning entry source plus the
// derived summary.
type LedgerResponse struct {
	Entries   []domain.LedgerEntry `json:"entries"`
	IsLocal   bool                 `json:"isLocal"`
	IsLoading bool                 `json:"isLoading"`
	Summary   domain.Summary       `json:"summary"`
}

func (s *Server) getLedger(w http.ResponseWriter, r *http.Request) {
	s.recon.Refresh(r.Context())

	entries, isLocal := s.recon.Display(s.rec.LocalEntries(), s.rec.Transactions())
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}

	writeJSON(w, http.StatusOK, LedgerResponse{
		Entries:   entries,
		IsLocal:   isLocal,
		IsLoading: s.recon.Loading(),
		Summary:   ledger.Summarize(entries),
	})
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "entry id is required")
		return
	}

	if err := s.deleter.Delete(r.Context(), id); err != nil {
		// Retryable: the entry stays in the displayed list until a delete
		// succeeds and the next refresh drops it.
		log := logger.FromContext(r.Context())
		log.Warn().Err(err).Str("id", id).Msg("delete failed")
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":     "delete failed, please retry",
			"retryable": true,
		})
		return
	}

	s.recon.Refresh(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SummaryResponse carries the dashboard aggregates for one period.
type SummaryResponse struct {
	Period    ledger.Period           `json:"period"`
	Summary   domain.Summary          `json:"summary"`
	Breakdown []ledger.CategoryAmount `json:"breakdown"`
	Trend     []ledger.TrendPoint     `json:"trend"`
	TopItems  []domain.LedgerEntry    `json:"topItems"`
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	period := ledger.Period(r.URL.Query().Get("period"))
	switch period {
	case ledger.PeriodToday, ledger.PeriodWeek, ledger.PeriodMonth, ledger.PeriodAll:
	case "":
		period = ledger.PeriodMonth
	default:
		writeError(w, http.StatusBadRequest, "period must be today, week, month or all")
		return
	}

	entries, _ := s.recon.Display(s.rec.LocalEntries(), s.rec.Transactions())
	filtered := ledger.FilterPeriod(entries, period, time.Now())

	breakdown := ledger.CategoryBreakdown(filtered)
	if breakdown == nil {
		breakdown = []ledger.CategoryAmount{}
	}
	trend := ledger.Trend(filtered, ledger.BucketDay)
	if trend == nil {
		trend = []ledger.TrendPoint{}
	}
	top := ledger.TopItems(filtered, 5)
	if top == nil {
		top = []domain.LedgerEntry{}
	}

	writeJSON(w, http.StatusOK, SummaryResponse{
		Period:    period,
		Summary:   ledger.Summarize(filtered),
		Breakdown: breakdown,
		Trend:     trend,
		TopItems:  top,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
