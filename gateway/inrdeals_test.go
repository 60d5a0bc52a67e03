package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoppiness/affiliate-engine/gateway"
)

func newFeed(t *testing.T, handler http.HandlerFunc) *gateway.FeedClient {
	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	return gateway.NewFeedClient(gateway.FeedConfig{
		BaseURL:     upstream.URL,
		Username:    "shoppiness",
		CouponToken: "tok-coupon",
		StoreToken:  "tok-store",
		ReportToken: "tok-report",
	}, nil)
}

func TestCoupons_PassesCredentialsAndReturnsPayloadVerbatim(t *testing.T) {
	feed := newFeed(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/coupon-feed", r.URL.Path)
		assert.Equal(t, "tok-coupon", r.URL.Query().Get("token"))
		assert.Equal(t, "shoppiness", r.URL.Query().Get("id"))
		w.Write([]byte(`{"coupons":[]}`))
	})

	raw, err := feed.Coupons(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"coupons":[]}`, string(raw))
}

func TestStores_Non2xxBecomesUpstreamError(t *testing.T) {
	feed := newFeed(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"maintenance"}`))
	})

	_, err := feed.Stores(context.Background())
	require.Error(t, err)

	var upErr *gateway.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "stores", upErr.Op)
	assert.Equal(t, http.StatusServiceUnavailable, upErr.StatusCode)
	assert.Contains(t, upErr.Body, "maintenance")
}

func TestReports_ParsesRowsAndMixedAmountTypes(t *testing.T) {
	feed := newFeed(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fetch/reports", r.URL.Path)
		assert.Equal(t, "tok-report", r.URL.Query().Get("token"))
		assert.Equal(t, "2026-01-01", r.URL.Query().Get("startdate"))
		assert.Equal(t, "2026-01-31", r.URL.Query().Get("enddate"))
		w.Write([]byte(`{"result":{"data":[
			{"transaction_id":"txn-1","sale_amount":"120.50","user_commission":"6.00",
			 "status":"confirmed","store_name":"Amazon","sale_date":"2026-01-10","sub_id1":"user-1"},
			{"transaction_id":"txn-2","sale_amount":80,"user_commission":0,
			 "status":"pending","store_name":"Flipkart","sale_date":"2026-01-12","sub_id1":"user-2"}
		]}}`))
	})

	rows, err := feed.Reports(context.Background(), "2026-01-01", "2026-01-31")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "txn-1", rows[0].TransactionID)
	assert.Equal(t, json.Number("120.50"), rows[0].SaleAmount)
	assert.Equal(t, "user-1", rows[0].SubID1)
	assert.Equal(t, json.Number("80"), rows[1].SaleAmount)
}

func TestReports_MalformedResponseIsAnError(t *testing.T) {
	feed := newFeed(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := feed.Reports(context.Background(), "2026-01-01", "2026-01-31")
	assert.Error(t, err)
}

func TestSendGridMailer_RequiresAPIKey(t *testing.T) {
	_, err := gateway.NewSendGridMailer(gateway.MailConfig{}, nil)
	assert.Error(t, err)
}

func TestSendGridMailer_SendsWirePayload(t *testing.T) {
	var got struct {
		Personalizations []struct {
			To []struct {
				Email string `json:"email"`
			} `json:"to"`
		} `json:"personalizations"`
		Subject string `json:"subject"`
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
	}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("X-Message-Id", "msg-42")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer upstream.Close()

	mailer, err := gateway.NewSendGridMailer(gateway.MailConfig{
		APIKey:    "key-1",
		BaseURL:   upstream.URL,
		FromEmail: "no-reply@shoppiness.example",
	}, nil)
	require.NoError(t, err)

	result, err := mailer.Send(context.Background(), "user@example.com", "Cashback confirmed", "<p>hi</p>")
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, result.StatusCode)
	assert.Equal(t, "msg-42", result.MessageID)

	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "user@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "Cashback confirmed", got.Subject)
	require.Len(t, got.Content, 1)
	assert.Equal(t, "text/html", got.Content[0].Type)
}

func TestSendGridMailer_ProviderRejectionBecomesUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer upstream.Close()

	mailer, err := gateway.NewSendGridMailer(gateway.MailConfig{
		APIKey:  "stale",
		BaseURL: upstream.URL,
	}, nil)
	require.NoError(t, err)

	_, err = mailer.Send(context.Background(), "user@example.com", "s", "b")
	require.Error(t, err)

	var upErr *gateway.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusUnauthorized, upErr.StatusCode)
	assert.Contains(t, upErr.Body, "bad key")
}
