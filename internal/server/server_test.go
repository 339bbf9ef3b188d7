package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamashdown/whalewatch/internal/monitor"
	"github.com/liamashdown/whalewatch/internal/whale"
)

type fakeService struct {
	report     *monitor.Report
	checkErr   error
	quotes     []monitor.PriceQuote
	thresholds map[whale.Asset]decimal.Decimal
	setErr     error
	setCalls   int
}

func (f *fakeService) Check(context.Context) (*monitor.Report, error) {
	return f.report, f.checkErr
}

func (f *fakeService) Prices(context.Context) []monitor.PriceQuote { return f.quotes }

func (f *fakeService) Stats() monitor.Stats {
	return monitor.Stats{
		Running:    true,
		Thresholds: f.thresholds,
		Sources:    []string{"btc_block", "coinbase:BTC-USD"},
		Cycles:     4,
		AlertsSent: 2,
		LastCycle:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeService) SetThreshold(_ context.Context, asset whale.Asset, usd decimal.Decimal) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.thresholds[asset] = usd
	return nil
}

func newFakeService() *fakeService {
	return &fakeService{thresholds: map[whale.Asset]decimal.Decimal{
		whale.AssetBTC: decimal.NewFromInt(1_000_000),
		whale.AssetETH: decimal.NewFromInt(500_000),
	}}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(svc Service, db Pinger, token string) http.Handler {
	log, _ := test.NewNullLogger()
	return New(svc, db, token, log).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthAndReady(t *testing.T) {
	h := newTestServer(newFakeService(), nil, "")

	rec := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyReportsDatabaseFailure(t *testing.T) {
	h := newTestServer(newFakeService(), fakePinger{err: errors.New("connection refused")}, "")

	rec := do(t, h, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCheck(t *testing.T) {
	svc := newFakeService()
	svc.report = &monitor.Report{
		CheckedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Activity: []monitor.AssetActivity{
			{Asset: whale.AssetBTC, PriceUSD: decimal.NewFromInt(50_000), Confirmed: 2, Pending: 1, Orders: 1},
			{Asset: whale.AssetETH, PriceUSD: decimal.NewFromInt(2_500)},
		},
		TopTransfers: []*whale.Transfer{{
			Asset:           whale.AssetBTC,
			Hash:            "f4184fc596403b9d638783cf57adfe4c75c605f6356fbc91338530e9831e9e16",
			Amount:          decimal.NewFromInt(30),
			USD:             decimal.NewFromInt(1_500_000),
			TransactionType: whale.TypeExchangeWithdrawal,
			Pattern:         whale.PatternSimpleTransfer,
			Confirmed:       true,
			FromAddresses: []whale.ClassifiedAddress{
				{Address: "3M219KBk7ZjsPUe7UpzPcTg1z5y7R25Acz", Category: whale.CategoryExchange, Entity: "Coinbase"},
			},
			ToAddresses: []whale.ClassifiedAddress{
				{Address: "bc1qnew", Category: whale.CategoryWallet, ValueMoved: decimal.NewNullDecimal(decimal.NewFromInt(30))},
			},
			InputCount:  1,
			OutputCount: 1,
		}},
		TopOrders: []*whale.Order{{
			Exchange: "coinbase",
			Symbol:   "BTC-USD",
			Asset:    whale.AssetBTC,
			Side:     whale.SideBuy,
			Price:    decimal.NewFromInt(50_000),
			Quantity: decimal.NewFromInt(25),
			USD:      decimal.NewFromInt(1_250_000),
		}},
	}
	h := newTestServer(svc, nil, "")

	rec := do(t, h, http.MethodGet, "/whales/check", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got reportView
	decode(t, rec, &got)
	require.Len(t, got.Activity, 2)
	assert.Equal(t, "50000.00", got.Activity[0].PriceUSD)
	assert.Equal(t, 2, got.Activity[0].Confirmed)
	assert.Equal(t, 1, got.Activity[0].Pending)
	assert.Equal(t, 1, got.Activity[0].Orders)

	require.Len(t, got.TopTransfers, 1)
	transfer := got.TopTransfers[0]
	assert.Equal(t, "exchange_withdrawal", transfer.Type)
	assert.Equal(t, "1500000.00", transfer.USD)
	assert.Equal(t, "Coinbase", transfer.From[0].Entity)
	assert.Equal(t, "30", transfer.To[0].Value)
	assert.Contains(t, transfer.Message, "Bitcoin Whale Alert")

	require.Len(t, got.TopOrders, 1)
	assert.Equal(t, "buy", got.TopOrders[0].Side)
	assert.Empty(t, got.FailedSources)
}

func TestCheckFailure(t *testing.T) {
	svc := newFakeService()
	svc.checkErr = context.DeadlineExceeded
	h := newTestServer(svc, nil, "")

	rec := do(t, h, http.MethodGet, "/whales/check", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPrices(t *testing.T) {
	svc := newFakeService()
	svc.quotes = []monitor.PriceQuote{{
		Asset:           whale.AssetBTC,
		PriceUSD:        decimal.NewFromInt(50_000),
		ThresholdUSD:    decimal.NewFromInt(1_000_000),
		ThresholdNative: decimal.NewFromInt(20),
	}}
	h := newTestServer(svc, nil, "")

	rec := do(t, h, http.MethodGet, "/whales/prices", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"asset":"BTC","price_usd":"50000.00","threshold_usd":"1000000.00","threshold_native":"20.0000"}]`, rec.Body.String())
}

func TestStats(t *testing.T) {
	h := newTestServer(newFakeService(), nil, "")

	rec := do(t, h, http.MethodGet, "/whales/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got statsView
	decode(t, rec, &got)
	assert.True(t, got.Running)
	assert.Equal(t, "1000000.00", got.Thresholds["BTC"])
	assert.Equal(t, []string{"btc_block", "coinbase:BTC-USD"}, got.Sources)
	assert.Equal(t, 2, got.AlertsSent)
	require.NotNil(t, got.LastCycle)
}

func TestSetConfig(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBTC    string
		wantETH    string
		wantCalls  int
	}{
		{
			name:       "number",
			body:       `{"btc_threshold_usd": 750000}`,
			wantStatus: http.StatusOK,
			wantBTC:    "750000.00",
			wantETH:    "500000.00",
			wantCalls:  1,
		},
		{
			name:       "strings with commas",
			body:       `{"btc_threshold_usd": "2,000,000", "eth_threshold_usd": "250,000"}`,
			wantStatus: http.StatusOK,
			wantBTC:    "2000000.00",
			wantETH:    "250000.00",
			wantCalls:  2,
		},
		{
			name:       "negative rejects whole request",
			body:       `{"btc_threshold_usd": 750000, "eth_threshold_usd": -1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty request",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not a number",
			body:       `{"btc_threshold_usd": "lots"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"doge_threshold_usd": 1}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			h := newTestServer(svc, nil, "")

			rec := do(t, h, http.MethodPost, "/whales/config", tt.body, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalls, svc.setCalls)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var got configView
			decode(t, rec, &got)
			assert.Equal(t, tt.wantBTC, got.Thresholds["BTC"])
			assert.Equal(t, tt.wantETH, got.Thresholds["ETH"])
		})
	}
}

func TestSetConfigServiceErrors(t *testing.T) {
	svc := newFakeService()
	svc.setErr = whale.ErrUnknownAsset
	h := newTestServer(svc, nil, "")

	rec := do(t, h, http.MethodPost, "/whales/config", `{"btc_threshold_usd": 1}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.setErr = errors.New("boom")
	rec = do(t, h, http.MethodPost, "/whales/config", `{"btc_threshold_usd": 1}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSetConfigRequiresToken(t *testing.T) {
	svc := newFakeService()
	h := newTestServer(svc, nil, "s3cret")

	rec := do(t, h, http.MethodPost, "/whales/config", `{"btc_threshold_usd": 1}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/whales/config", `{"btc_threshold_usd": 1}`, http.Header{"Authorization": {"Bearer wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, svc.setCalls)

	rec = do(t, h, http.MethodPost, "/whales/config", `{"btc_threshold_usd": 1}`, http.Header{"Authorization": {"Bearer s3cret"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	// reads stay open
	rec = do(t, h, http.MethodGet, "/whales/config", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
