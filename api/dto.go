/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Inbound partner
  payloads use the feed's snake_case field names; outbound client-facing
  documents keep the ledger's camelCase field names.

ENVELOPE:
  Every response is wrapped in {success: bool, ...}. Errors are
  {success: false, message, [error]}.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Domain model these map from
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shoppiness/affiliate-engine/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CallbackRequest is the partner's transaction callback payload.
// decimal.Decimal unmarshals sale_amount whether it arrives quoted or not.
type CallbackRequest struct {
	TransactionID string          `json:"transaction_id"`
	SaleAmount    decimal.Decimal `json:"sale_amount"`
	Status        string          `json:"status"`
	StoreName     string          `json:"store_name"`
	SaleDate      string          `json:"sale_date"`
	SubID1        string          `json:"sub_id1"`
}

// SendEmailRequest is the mail pass-through payload.
type SendEmailRequest struct {
	Email string `json:"email"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// TransactionDTO is a ledger record in client responses.
type TransactionDTO struct {
	ID            string  `json:"id"`
	UserID        string  `json:"userId"`
	StoreID       string  `json:"storeId"`
	StoreName     string  `json:"storeName"`
	SaleAmount    float64 `json:"saleAmount"`
	Commission    float64 `json:"commission,omitempty"`
	Status        string  `json:"status"`
	TransactionID string  `json:"transactionId,omitempty"`
	SaleDate      string  `json:"saleDate"`
	LastUpdated   string  `json:"lastUpdated"`
}

// StatsDTO is the per-user aggregate view.
type StatsDTO struct {
	TotalTransactions int     `json:"totalTransactions"`
	PendingAmount     float64 `json:"pendingAmount"`
	ConfirmedAmount   float64 `json:"confirmedAmount"`
	CancelledAmount   float64 `json:"cancelledAmount"`
	TotalCommission   float64 `json:"totalCommission"`
}

// StoreSummaryDTO is one store's slice of the per-store view.
type StoreSummaryDTO struct {
	TotalTransactions int     `json:"totalTransactions"`
	PendingAmount     float64 `json:"pendingAmount"`
	ConfirmedAmount   float64 `json:"confirmedAmount"`
	TotalCommission   float64 `json:"totalCommission"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTransactionDTO(rec ledger.TransactionRecord) TransactionDTO {
	return TransactionDTO{
		ID:            rec.ID,
		UserID:        rec.UserID,
		StoreID:       rec.StoreID,
		StoreName:     rec.StoreName,
		SaleAmount:    rec.SaleAmount.InexactFloat64(),
		Commission:    rec.Commission.InexactFloat64(),
		Status:        string(rec.Status),
		TransactionID: rec.TransactionID,
		SaleDate:      rec.SaleDate.UTC().Format(time.RFC3339),
		LastUpdated:   rec.LastUpdated.UTC().Format(time.RFC3339),
	}
}

func toTransactionDTOs(recs []ledger.TransactionRecord) []TransactionDTO {
	dtos := make([]TransactionDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toTransactionDTO(rec)
	}
	return dtos
}

func toStatsDTO(stats ledger.UserStats) StatsDTO {
	return StatsDTO{
		TotalTransactions: stats.TotalTransactions,
		PendingAmount:     stats.PendingAmount.InexactFloat64(),
		ConfirmedAmount:   stats.ConfirmedAmount.InexactFloat64(),
		CancelledAmount:   stats.CancelledAmount.InexactFloat64(),
		TotalCommission:   stats.TotalCommission.InexactFloat64(),
	}
}

func toSummaryDTO(summary map[string]ledger.StoreStats) map[string]StoreSummaryDTO {
	out := make(map[string]StoreSummaryDTO, len(summary))
	for store, s := range summary {
		out[store] = StoreSummaryDTO{
			TotalTransactions: s.TotalTransactions,
			PendingAmount:     s.PendingAmount.InexactFloat64(),
			ConfirmedAmount:   s.ConfirmedAmount.InexactFloat64(),
			TotalCommission:   s.TotalCommission.InexactFloat64(),
		}
	}
	return out
}
