package orderbook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/liamashdown/whalewatch/internal/apiclient"
	"github.com/liamashdown/whalewatch/internal/ratelimit"
	"github.com/liamashdown/whalewatch/internal/whale"
)

// Supported exchanges
const (
	Coinbase = "coinbase"
	Kraken   = "kraken"
	Gemini   = "gemini"
	Binance  = "binance"
)

// APIError is an error payload returned with a 200 status
type APIError struct {
	Exchange string
	Messages []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s", e.Exchange, strings.Join(e.Messages, "; "))
}

// rawBook is the common envelope of the supported depth endpoints; levels are
// either arrays or objects and are normalized by whale.NormalizeLevels.
type rawBook struct {
	Bids []json.RawMessage `json:"bids"`
	Asks []json.RawMessage `json:"asks"`
}

type krakenResponse struct {
	Error  []string           `json:"error"`
	Result map[string]rawBook `json:"result"`
}

type fetchFunc func(ctx context.Context, api *apiclient.Client, symbol string) (*rawBook, error)

// Client fetches order book snapshots from one exchange
type Client struct {
	exchange string
	api      *apiclient.Client
	fetch    fetchFunc
}

// NewClient creates a client for a supported exchange
func NewClient(exchange, baseURL string, timeout time.Duration, limiter *ratelimit.Limiter) (*Client, error) {
	var fetch fetchFunc
	switch exchange {
	case Coinbase:
		fetch = fetchCoinbase
	case Kraken:
		fetch = fetchKraken
	case Gemini:
		fetch = fetchGemini
	case Binance:
		fetch = fetchBinance
	default:
		return nil, fmt.Errorf("unsupported exchange %q", exchange)
	}
	return &Client{
		exchange: exchange,
		api:      apiclient.New(exchange, baseURL, timeout, limiter),
		fetch:    fetch,
	}, nil
}

// Exchange returns the exchange name
func (c *Client) Exchange() string {
	return c.exchange
}

// Book returns the normalized bid and ask levels for symbol
func (c *Client) Book(ctx context.Context, symbol string) (bids, asks []whale.Level, err error) {
	book, err := c.fetch(ctx, c.api, symbol)
	if err != nil {
		return nil, nil, fmt.Errorf("get %s %s book: %w", c.exchange, symbol, err)
	}
	return whale.NormalizeLevels(book.Bids), whale.NormalizeLevels(book.Asks), nil
}

func fetchCoinbase(ctx context.Context, api *apiclient.Client, symbol string) (*rawBook, error) {
	var book rawBook
	path := "/products/" + url.PathEscape(symbol) + "/book"
	if err := api.GetJSON(ctx, "book", path, url.Values{"level": {"2"}}, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func fetchKraken(ctx context.Context, api *apiclient.Client, symbol string) (*rawBook, error) {
	var resp krakenResponse
	q := url.Values{"pair": {symbol}, "count": {"100"}}
	if err := api.GetJSON(ctx, "depth", "/0/public/Depth", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Error) > 0 {
		return nil, &APIError{Exchange: Kraken, Messages: resp.Error}
	}
	// the result is keyed by Kraken's canonical pair name (XBTUSD -> XXBTZUSD)
	for _, book := range resp.Result {
		return &book, nil
	}
	return &rawBook{}, nil
}

func fetchGemini(ctx context.Context, api *apiclient.Client, symbol string) (*rawBook, error) {
	var book rawBook
	if err := api.GetJSON(ctx, "book", "/v1/book/"+url.PathEscape(symbol), nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func fetchBinance(ctx context.Context, api *apiclient.Client, symbol string) (*rawBook, error) {
	var book rawBook
	q := url.Values{"symbol": {strings.ToUpper(symbol)}, "limit": {"100"}}
	if err := api.GetJSON(ctx, "depth", "/api/v3/depth", q, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// Source watches one market of one exchange
type Source struct {
	client *Client
	symbol string
}

// NewSource creates an order book source
func NewSource(client *Client, symbol string) *Source {
	return &Source{client: client, symbol: symbol}
}

func (s *Source) Name() string { return s.client.exchange + ":" + s.symbol }

// Fetch returns the current snapshot. Failures are reported on the batch.
func (s *Source) Fetch(ctx context.Context) whale.OrderBookBatch {
	batch := whale.OrderBookBatch{Exchange: s.client.exchange, Symbol: s.symbol}
	bids, asks, err := s.client.Book(ctx, s.symbol)
	if err != nil {
		batch.Err = err
		return batch
	}
	batch.Bids = bids
	batch.Asks = asks
	return batch
}
