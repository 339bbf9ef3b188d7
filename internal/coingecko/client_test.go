package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamashdown/whalewatch/internal/whale"
)

func TestPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		assert.ElementsMatch(t, []string{"bitcoin", "ethereum"}, ids)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		_, _ = w.Write([]byte(`{"bitcoin": {"usd": 67123.45}, "ethereum": {"usd": 3501.2}}`))
	}))
	defer server.Close()

	prices, err := NewClient(server.URL, time.Second, nil).Prices(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("67123.45").Equal(prices[whale.AssetBTC]))
	assert.True(t, decimal.RequireFromString("3501.2").Equal(prices[whale.AssetETH]))
}

func TestPricesPartial(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin": {"usd": 0}, "ethereum": {"eur": 3000}}`))
	}))
	defer server.Close()

	prices, err := NewClient(server.URL, time.Second, nil).Prices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestPricesRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error_code":429}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second, nil).Prices(context.Background())
	assert.ErrorContains(t, err, "429")
}
