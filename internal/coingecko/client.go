package coingecko

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liamashdown/whalewatch/internal/apiclient"
	"github.com/liamashdown/whalewatch/internal/ratelimit"
	"github.com/liamashdown/whalewatch/internal/whale"
)

var coinIDs = map[whale.Asset]string{
	whale.AssetBTC: "bitcoin",
	whale.AssetETH: "ethereum",
}

// Client fetches spot prices from CoinGecko
type Client struct {
	api *apiclient.Client
}

// NewClient creates a CoinGecko client
func NewClient(baseURL string, timeout time.Duration, limiter *ratelimit.Limiter) *Client {
	return &Client{api: apiclient.New("coingecko", baseURL, timeout, limiter)}
}

// Prices returns the USD price of every tracked asset CoinGecko quoted.
// Assets missing from the response are omitted from the map.
func (c *Client) Prices(ctx context.Context) (map[whale.Asset]decimal.Decimal, error) {
	ids := make([]string, 0, len(coinIDs))
	for _, id := range coinIDs {
		ids = append(ids, id)
	}

	q := url.Values{
		"ids":           {strings.Join(ids, ",")},
		"vs_currencies": {"usd"},
	}
	var resp map[string]map[string]decimal.Decimal
	if err := c.api.GetJSON(ctx, "simple_price", "/simple/price", q, &resp); err != nil {
		return nil, fmt.Errorf("get prices: %w", err)
	}

	prices := make(map[whale.Asset]decimal.Decimal, len(coinIDs))
	for asset, id := range coinIDs {
		quote, ok := resp[id]
		if !ok {
			continue
		}
		usd, ok := quote["usd"]
		if !ok || !usd.IsPositive() {
			continue
		}
		prices[asset] = usd
	}
	return prices, nil
}
