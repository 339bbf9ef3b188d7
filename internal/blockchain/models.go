package blockchain

import "github.com/shopspring/decimal"

// LatestBlock is the /latestblock response
type LatestBlock struct {
	Hash   string `json:"hash"`
	Height int64  `json:"height"`
	Time   int64  `json:"time"`
}

// Block is the /rawblock/{hash} response
type Block struct {
	Hash   string        `json:"hash"`
	Height int64         `json:"height"`
	Time   int64         `json:"time"`
	Tx     []Transaction `json:"tx"`
}

// Transaction is a bitcoin transaction as returned by blockchain.info.
// Values are in satoshi.
type Transaction struct {
	Hash        string   `json:"hash"`
	Time        int64    `json:"time"`
	BlockHeight int64    `json:"block_height"`
	Inputs      []Input  `json:"inputs"`
	Out         []Output `json:"out"`
}

// Input spends a previous output
type Input struct {
	PrevOut *Output `json:"prev_out"`
}

// Output is a transaction output
type Output struct {
	Addr  string          `json:"addr"`
	Value decimal.Decimal `json:"value"`
}

type unconfirmedResponse struct {
	Txs []Transaction `json:"txs"`
}
