package etherscan

import (
	"context"

	"github.com/liamashdown/whalewatch/internal/whale"
)

// BlockScanSource yields value transfers from the most recent blocks
type BlockScanSource struct {
	client   *Client
	lookback int
}

// NewBlockScanSource scans the latest lookback blocks per fetch
func NewBlockScanSource(client *Client, lookback int) *BlockScanSource {
	if lookback <= 0 {
		lookback = 1
	}
	return &BlockScanSource{client: client, lookback: lookback}
}

func (s *BlockScanSource) Name() string { return "eth_blocks" }

// Fetch returns every non-zero value transfer of the scanned blocks, newest
// block first. Any failed call fails the whole batch.
func (s *BlockScanSource) Fetch(ctx context.Context) whale.TransactionBatch {
	batch := whale.TransactionBatch{Source: s.Name(), Asset: whale.AssetETH, Confirmed: true}

	latest, err := s.client.BlockNumber(ctx)
	if err != nil {
		batch.Err = err
		return batch
	}
	batch.BlockHeight = latest

	var txs []whale.RawTransaction
	for offset := 0; offset < s.lookback && latest-int64(offset) >= 0; offset++ {
		number := latest - int64(offset)
		block, err := s.client.BlockByNumber(ctx, number)
		if err != nil {
			batch.Err = err
			return batch
		}

		var ts int64
		if block.Timestamp != "" {
			ts, _ = ParseHexInt(block.Timestamp)
		}
		for _, tx := range block.Transactions {
			raw, ok := toRaw(tx, number, ts)
			if ok {
				txs = append(txs, raw)
			}
		}
	}

	batch.Transactions = txs
	return batch
}

// toRaw maps a transfer to one input (sender) and one output (recipient).
// Zero-value and unparseable transactions are dropped.
func toRaw(tx Transaction, blockNumber, timestamp int64) (whale.RawTransaction, bool) {
	if tx.Hash == "" || tx.Value == "" {
		return whale.RawTransaction{}, false
	}
	wei, err := ParseHexQuantity(tx.Value)
	if err != nil || wei.IsZero() {
		return whale.RawTransaction{}, false
	}
	return whale.RawTransaction{
		Hash:        tx.Hash,
		Inputs:      []whale.AddressValue{{Address: tx.From, Value: wei}},
		Outputs:     []whale.AddressValue{{Address: tx.To, Value: wei}},
		Timestamp:   timestamp,
		BlockHeight: blockNumber,
	}, true
}
