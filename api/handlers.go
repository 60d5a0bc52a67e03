/*
handlers.go - HTTP API handlers for the affiliate transaction service

PURPOSE:
  Exposes the reconciliation engine and aggregation views via REST.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Partner:
    POST   /inrdeals/callback          Transaction callback ingestion
    POST   /inrdeals/reports/sync      Bulk report reconciliation
    GET    /inrdeals/coupons           Coupon feed pass-through
    GET    /inrdeals/stores            Store listing pass-through

  Client:
    GET    /api/transactions/{userId}          Ledger listing
    GET    /api/transactions/stats/{userId}    Per-user aggregate
    GET    /api/transactions/summary/{userId}  Per-store aggregate

  Mail:
    POST   /send-email                 Mail delivery pass-through

ERROR HANDLING:
  Every response carries the {success: bool} envelope:
  - 400: Missing required input (terminal; partner retry won't help)
  - 500: Storage or upstream failure (retryable; caller redelivers)
  No failure is fatal to the process; requests are isolated.

SECURITY NOTE:
  No authentication. The callback endpoint trusts the partner's
  delivery; partner tokens are server-held and never accepted from
  clients.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shoppiness/affiliate-engine/gateway"
	"github.com/shoppiness/affiliate-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine     *ledger.Engine
	Aggregator *ledger.Aggregator
	Store      ledger.Store
	Feed       *gateway.FeedClient
	Mailer     gateway.Mailer
	Log        *zap.Logger
}

// NewHandler creates a handler with the given dependencies.
func NewHandler(store ledger.Store, feed *gateway.FeedClient, mailer gateway.Mailer, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Engine:     ledger.NewEngine(store, log),
		Aggregator: ledger.NewAggregator(store),
		Store:      store,
		Feed:       feed,
		Mailer:     mailer,
		Log:        log,
	}
}

// =============================================================================
// PARTNER CALLBACK
// =============================================================================

// HandleCallback ingests one partner transaction event.
// POST /inrdeals/callback
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.SubID1 == "" {
		// Reject before any storage access; the partner's retry would
		// carry the same unattributable payload.
		writeError(w, http.StatusBadRequest, "Missing user ID (sub_id1)", nil)
		return
	}

	ev := ledger.Event{
		TransactionID: req.TransactionID,
		SaleAmount:    req.SaleAmount,
		Status:        ledger.Status(strings.ToLower(strings.TrimSpace(req.Status))),
		StoreName:     req.StoreName,
		SaleDate:      parseSaleDate(req.SaleDate),
		UserID:        req.SubID1,
	}

	outcome, err := h.Engine.Apply(r.Context(), ev)
	if err != nil {
		if ledger.IsClientError(err) {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		h.Log.Error("callback processing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	message := "Transaction updated"
	if outcome.Created {
		message = "Transaction created"
	}
	writeSuccess(w, http.StatusOK, map[string]any{"message": message})
}

// HandleReportSync reconciles the partner's full report for a date range.
// POST /inrdeals/reports/sync?startdate=YYYY-MM-DD&enddate=YYYY-MM-DD
func (h *Handler) HandleReportSync(w http.ResponseWriter, r *http.Request) {
	startDate := r.URL.Query().Get("startdate")
	endDate := r.URL.Query().Get("enddate")
	if startDate == "" || endDate == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters", nil)
		return
	}

	rows, err := h.Feed.Reports(r.Context(), startDate, endDate)
	if err != nil {
		writeUpstreamError(w, "Failed to fetch report", err)
		return
	}

	events := make([]ledger.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, reportEvent(row))
	}

	summary, err := h.Engine.SyncReport(r.Context(), events)
	if err != nil {
		h.Log.Error("report sync failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"message": "Transactions processed",
		"summary": summary,
	})
}

// =============================================================================
// CLIENT READ VIEWS
// =============================================================================

// ListTransactions returns a user's ledger, newest sale first.
// GET /api/transactions/{userId}
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required", nil)
		return
	}

	records, err := h.Store.ListByUser(r.Context(), userID)
	if err != nil {
		h.Log.Error("failed to list transactions", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"transactions": toTransactionDTOs(records),
	})
}

// GetStats returns the per-user aggregate.
// GET /api/transactions/stats/{userId}
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required", nil)
		return
	}

	stats, err := h.Aggregator.UserStats(r.Context(), userID)
	if err != nil {
		h.Log.Error("failed to compute stats", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"stats": toStatsDTO(stats)})
}

// GetStoreSummary returns the per-store aggregate.
// GET /api/transactions/summary/{userId}
func (h *Handler) GetStoreSummary(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required", nil)
		return
	}

	summary, err := h.Aggregator.StoreSummary(r.Context(), userID)
	if err != nil {
		h.Log.Error("failed to compute summary", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"storesSummary": toSummaryDTO(summary)})
}

// =============================================================================
// FEED PASS-THROUGH
// =============================================================================

// GetCoupons forwards the partner coupon feed.
// GET /inrdeals/coupons
func (h *Handler) GetCoupons(w http.ResponseWriter, r *http.Request) {
	data, err := h.Feed.Coupons(r.Context())
	if err != nil {
		writeUpstreamError(w, "Failed to fetch coupons", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"data": json.RawMessage(data)})
}

// GetStores forwards the partner store listing.
// GET /inrdeals/stores
func (h *Handler) GetStores(w http.ResponseWriter, r *http.Request) {
	data, err := h.Feed.Stores(r.Context())
	if err != nil {
		writeUpstreamError(w, "Failed to fetch stores", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"data": json.RawMessage(data)})
}

// =============================================================================
// MAIL PASS-THROUGH
// =============================================================================

// SendEmail forwards a mail request to the transport provider.
// POST /send-email
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req SendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "Recipient email is required", nil)
		return
	}
	if h.Mailer == nil {
		writeError(w, http.StatusInternalServerError, "Mail transport not configured", nil)
		return
	}

	result, err := h.Mailer.Send(r.Context(), req.Email, req.Title, req.Body)
	if err != nil {
		writeUpstreamError(w, "Failed to send email", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"result": result})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess wraps the payload in the {success: true} envelope.
func writeSuccess(w http.ResponseWriter, status int, payload map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeError wraps the failure in the {success: false} envelope.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]any{"success": false, "message": message}
	if err != nil {
		body["error"] = err.Error()
	}
	writeJSON(w, status, body)
}

// writeUpstreamError forwards the upstream payload for diagnostics.
func writeUpstreamError(w http.ResponseWriter, message string, err error) {
	writeError(w, http.StatusInternalServerError, message, err)
}

// parseSaleDate accepts the partner's date formats; a missing or
// unparseable date falls back to receipt time.
func parseSaleDate(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func reportEvent(row gateway.ReportTransaction) ledger.Event {
	return ledger.Event{
		TransactionID: row.TransactionID,
		SaleAmount:    parseAmount(row.SaleAmount),
		Commission:    parseAmount(row.UserCommission),
		HasCommission: true,
		Status:        ledger.Status(strings.ToLower(strings.TrimSpace(row.Status))),
		StoreName:     row.StoreName,
		SaleDate:      parseSaleDate(row.SaleDate),
		UserID:        row.SubID1,
	}
}

func parseAmount(n json.Number) decimal.Decimal {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
