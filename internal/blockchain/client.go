package blockchain

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/liamashdown/whalewatch/internal/apiclient"
	"github.com/liamashdown/whalewatch/internal/ratelimit"
	"github.com/liamashdown/whalewatch/internal/whale"
)

// Client talks to the blockchain.info explorer API
type Client struct {
	api *apiclient.Client
}

// NewClient creates a blockchain.info client
func NewClient(baseURL string, timeout time.Duration, limiter *ratelimit.Limiter) *Client {
	return &Client{api: apiclient.New("blockchain", baseURL, timeout, limiter)}
}

// LatestBlock returns the chain tip
func (c *Client) LatestBlock(ctx context.Context) (*LatestBlock, error) {
	var out LatestBlock
	if err := c.api.GetJSON(ctx, "latestblock", "/latestblock", nil, &out); err != nil {
		return nil, fmt.Errorf("get latest block: %w", err)
	}
	if out.Hash == "" {
		return nil, fmt.Errorf("get latest block: empty hash")
	}
	return &out, nil
}

// RawBlock returns a block with all its transactions
func (c *Client) RawBlock(ctx context.Context, hash string) (*Block, error) {
	var out Block
	if err := c.api.GetJSON(ctx, "rawblock", "/rawblock/"+url.PathEscape(hash), nil, &out); err != nil {
		return nil, fmt.Errorf("get block %s: %w", hash, err)
	}
	return &out, nil
}

// UnconfirmedTransactions returns the current mempool sample
func (c *Client) UnconfirmedTransactions(ctx context.Context) ([]Transaction, error) {
	var out unconfirmedResponse
	q := url.Values{"format": {"json"}}
	if err := c.api.GetJSON(ctx, "unconfirmed", "/unconfirmed-transactions", q, &out); err != nil {
		return nil, fmt.Errorf("get unconfirmed transactions: %w", err)
	}
	return out.Txs, nil
}

// ToRaw converts an explorer transaction to the pipeline's input shape.
// Inputs without a previous output keep an empty address so counts stay exact.
func ToRaw(tx Transaction) whale.RawTransaction {
	raw := whale.RawTransaction{
		Hash:        tx.Hash,
		Timestamp:   tx.Time,
		BlockHeight: tx.BlockHeight,
		Inputs:      make([]whale.AddressValue, 0, len(tx.Inputs)),
		Outputs:     make([]whale.AddressValue, 0, len(tx.Out)),
	}
	for _, in := range tx.Inputs {
		var av whale.AddressValue
		if in.PrevOut != nil {
			av = whale.AddressValue{Address: in.PrevOut.Addr, Value: in.PrevOut.Value}
		}
		raw.Inputs = append(raw.Inputs, av)
	}
	for _, out := range tx.Out {
		raw.Outputs = append(raw.Outputs, whale.AddressValue{Address: out.Addr, Value: out.Value})
	}
	return raw
}
