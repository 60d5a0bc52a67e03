/*
Package gateway holds the thin pass-through clients for external
collaborators: the INRDeals partner feed and the mail transport.

No business logic lives here. Upstream failures carry the upstream
payload so the API layer can forward it for diagnostics.
*/
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// CONFIG
// =============================================================================

// FeedConfig configures the INRDeals feed client. Tokens are server-held;
// clients of this service never supply them.
type FeedConfig struct {
	BaseURL     string
	Username    string
	CouponToken string
	StoreToken  string
	ReportToken string
	Timeout     time.Duration
}

// FeedConfigFromEnv reads the partner credentials from the environment.
func FeedConfigFromEnv() FeedConfig {
	base := strings.TrimSpace(os.Getenv("INRDEALS_BASE_URL"))
	if base == "" {
		base = "https://inrdeals.com"
	}
	return FeedConfig{
		BaseURL:     strings.TrimRight(base, "/"),
		Username:    strings.TrimSpace(os.Getenv("INRDEALS_USERNAME")),
		CouponToken: strings.TrimSpace(os.Getenv("INRDEALS_COUPON_TOKEN")),
		StoreToken:  strings.TrimSpace(os.Getenv("INRDEALS_STORE_TOKEN")),
		ReportToken: strings.TrimSpace(os.Getenv("INRDEALS_REPORT_TOKEN")),
		Timeout:     30 * time.Second,
	}
}

// =============================================================================
// UPSTREAM ERROR
// =============================================================================

// UpstreamError is a non-2xx response (or transport failure) from the
// partner feed. Body holds the upstream payload verbatim.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 2000 {
		body = body[:2000] + "..."
	}
	return fmt.Sprintf("inrdeals %s: http %d: %s", e.Op, e.StatusCode, body)
}

// =============================================================================
// FEED CLIENT
// =============================================================================

// FeedClient fetches the partner's coupon, store, and report feeds.
type FeedClient struct {
	cfg        FeedConfig
	httpClient *http.Client
	log        *zap.Logger
}

// NewFeedClient creates a feed client with the given config.
func NewFeedClient(cfg FeedConfig, log *zap.Logger) *FeedClient {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &FeedClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// Coupons fetches the coupon feed and returns the payload verbatim.
func (c *FeedClient) Coupons(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "coupons", "/api/v1/coupon-feed", url.Values{
		"token": {c.cfg.CouponToken},
		"id":    {c.cfg.Username},
	})
}

// Stores fetches the store listing and returns the payload verbatim.
func (c *FeedClient) Stores(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "stores", "/fetch/stores", url.Values{
		"token": {c.cfg.StoreToken},
		"id":    {c.cfg.Username},
	})
}

// ReportTransaction is one row of the partner's transaction report.
// Amounts arrive as strings or numbers depending on the feed version;
// json.Number handles both.
type ReportTransaction struct {
	TransactionID  string      `json:"transaction_id"`
	SaleAmount     json.Number `json:"sale_amount"`
	UserCommission json.Number `json:"user_commission"`
	Status         string      `json:"status"`
	StoreName      string      `json:"store_name"`
	SaleDate       string      `json:"sale_date"`
	SubID1         string      `json:"sub_id1"`
}

type reportResponse struct {
	Result struct {
		Data []ReportTransaction `json:"data"`
	} `json:"result"`
}

// Reports fetches the transaction report for the given date range
// (YYYY-MM-DD).
func (c *FeedClient) Reports(ctx context.Context, startDate, endDate string) ([]ReportTransaction, error) {
	raw, err := c.get(ctx, "reports", "/fetch/reports", url.Values{
		"token":     {c.cfg.ReportToken},
		"id":        {c.cfg.Username},
		"startdate": {startDate},
		"enddate":   {endDate},
	})
	if err != nil {
		return nil, err
	}

	var resp reportResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("inrdeals reports: invalid response: %w", err)
	}
	return resp.Result.Data, nil
}

func (c *FeedClient) get(ctx context.Context, op, path string, params url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("feed request failed", zap.String("op", op), zap.Error(err))
		return nil, &UpstreamError{Op: op, Body: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("feed returned error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return raw, nil
}
