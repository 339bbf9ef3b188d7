package blockchain

import (
	"context"

	"github.com/liamashdown/whalewatch/internal/whale"
)

// BlockSource yields the transactions of the latest confirmed block
type BlockSource struct {
	client *Client
}

// NewBlockSource creates a latest-block source
func NewBlockSource(client *Client) *BlockSource {
	return &BlockSource{client: client}
}

func (s *BlockSource) Name() string { return "btc_block" }

// Fetch returns the latest block as a confirmed batch. Failures are reported
// on the batch rather than returned.
func (s *BlockSource) Fetch(ctx context.Context) whale.TransactionBatch {
	batch := whale.TransactionBatch{Source: s.Name(), Asset: whale.AssetBTC, Confirmed: true}

	latest, err := s.client.LatestBlock(ctx)
	if err != nil {
		batch.Err = err
		return batch
	}
	block, err := s.client.RawBlock(ctx, latest.Hash)
	if err != nil {
		batch.Err = err
		return batch
	}

	batch.BlockHeight = latest.Height
	batch.Transactions = make([]whale.RawTransaction, 0, len(block.Tx))
	for _, tx := range block.Tx {
		batch.Transactions = append(batch.Transactions, ToRaw(tx))
	}
	return batch
}

// MempoolSource yields the first unconfirmed transactions of the mempool sample
type MempoolSource struct {
	client *Client
	limit  int
}

// NewMempoolSource creates a mempool source scanning at most limit transactions (0 = all)
func NewMempoolSource(client *Client, limit int) *MempoolSource {
	return &MempoolSource{client: client, limit: limit}
}

func (s *MempoolSource) Name() string { return "btc_mempool" }

// Fetch returns the mempool sample as an unconfirmed batch
func (s *MempoolSource) Fetch(ctx context.Context) whale.TransactionBatch {
	batch := whale.TransactionBatch{Source: s.Name(), Asset: whale.AssetBTC}

	txs, err := s.client.UnconfirmedTransactions(ctx)
	if err != nil {
		batch.Err = err
		return batch
	}
	if s.limit > 0 && len(txs) > s.limit {
		txs = txs[:s.limit]
	}

	batch.Transactions = make([]whale.RawTransaction, 0, len(txs))
	for _, tx := range txs {
		batch.Transactions = append(batch.Transactions, ToRaw(tx))
	}
	return batch
}
