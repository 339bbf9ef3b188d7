package etherscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liamashdown/whalewatch/internal/apiclient"
	"github.com/liamashdown/whalewatch/internal/ratelimit"
)

// ErrMissingAPIKey is returned when no Etherscan API key is configured
var ErrMissingAPIKey = errors.New("etherscan API key not configured")

// Client calls the Etherscan JSON-RPC proxy module
type Client struct {
	api    *apiclient.Client
	apiKey string
}

// NewClient creates an Etherscan client
func NewClient(baseURL, apiKey string, timeout time.Duration, limiter *ratelimit.Limiter) *Client {
	return &Client{
		api:    apiclient.New("etherscan", baseURL, timeout, limiter),
		apiKey: apiKey,
	}
}

// proxyResponse wraps every proxy call. On failure Etherscan answers with
// {"status":"0","message":"NOTOK","result":"<reason>"}.
type proxyResponse struct {
	Result  json.RawMessage `json:"result"`
	Message string          `json:"message"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Block is an Ethereum block with full transaction objects
type Block struct {
	Number       string        `json:"number"`
	Timestamp    string        `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
}

// Transaction is an Ethereum transaction; quantities are hex strings
type Transaction struct {
	Hash  string `json:"hash"`
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

func (c *Client) proxy(ctx context.Context, action string, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("module", "proxy")
	q.Set("action", action)
	q.Set("apikey", c.apiKey)

	var resp proxyResponse
	if err := c.api.GetJSON(ctx, action, "", q, &resp); err != nil {
		return err
	}
	if resp.Message == "NOTOK" {
		return fmt.Errorf("%s: %s", action, strings.Trim(string(resp.Result), `"`))
	}
	if resp.Error != nil {
		return fmt.Errorf("%s: rpc error %d: %s", action, resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return fmt.Errorf("%s: empty result", action)
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", action, err)
	}
	return nil
}

// BlockNumber returns the latest block number
func (c *Client) BlockNumber(ctx context.Context) (int64, error) {
	var hex string
	if err := c.proxy(ctx, "eth_blockNumber", nil, &hex); err != nil {
		return 0, fmt.Errorf("get block number: %w", err)
	}
	n, err := ParseHexInt(hex)
	if err != nil {
		return 0, fmt.Errorf("get block number: %w", err)
	}
	return n, nil
}

// BlockByNumber returns a block with its transactions
func (c *Client) BlockByNumber(ctx context.Context, number int64) (*Block, error) {
	params := url.Values{
		"tag":     {fmt.Sprintf("0x%x", number)},
		"boolean": {"true"},
	}
	var block Block
	if err := c.proxy(ctx, "eth_getBlockByNumber", params, &block); err != nil {
		return nil, fmt.Errorf("get block %d: %w", number, err)
	}
	return &block, nil
}

// ParseHexQuantity parses a 0x-prefixed hex quantity of any size
func ParseHexQuantity(s string) (decimal.Decimal, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if digits == "" {
		return decimal.Zero, fmt.Errorf("invalid hex quantity %q", s)
	}
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid hex quantity %q", s)
	}
	return decimal.NewFromBigInt(n, 0), nil
}

// ParseHexInt parses a 0x-prefixed hex quantity that fits in an int64
func ParseHexInt(s string) (int64, error) {
	d, err := ParseHexQuantity(s)
	if err != nil {
		return 0, err
	}
	return d.IntPart(), nil
}
