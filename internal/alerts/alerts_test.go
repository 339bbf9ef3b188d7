package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamashdown/whalewatch/internal/whale"
)

func testTransfer() *whale.Transfer {
	return &whale.Transfer{
		Asset:           whale.AssetBTC,
		Amount:          decimal.NewFromInt(30),
		USD:             decimal.NewFromInt(1_800_000),
		Hash:            "abcdef0123456789abcdef",
		Pattern:         whale.PatternWalletTransfer,
		TransactionType: whale.TypeExchangeWithdrawal,
		FromAddresses: []whale.ClassifiedAddress{
			{Address: "3M219KBk7ZjsPUe7UpzPcTg1z5y7R25Acz", Category: whale.CategoryExchange, Entity: "Coinbase"},
		},
		ToAddresses: []whale.ClassifiedAddress{
			{
				Address:    "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
				Category:   whale.CategoryWallet,
				Entity:     "Legacy Wallet",
				ValueMoved: decimal.NewNullDecimal(decimal.NewFromInt(30)),
			},
		},
		InputCount:  1,
		OutputCount: 2,
		Confirmed:   true,
	}
}

func testOrder() *whale.Order {
	return &whale.Order{
		Exchange: "coinbase",
		Symbol:   "BTC-USD",
		Asset:    whale.AssetBTC,
		Side:     whale.SideSell,
		Price:    decimal.NewFromInt(70_000),
		Quantity: decimal.NewFromInt(20),
		USD:      decimal.NewFromInt(1_400_000),
	}
}

func TestPayloadTitle(t *testing.T) {
	tests := []struct {
		name string
		ev   whale.Event
		want string
	}{
		{"transfer", testTransfer(), "🏦➡️💼 Large BTC Exchange Withdrawal Detected"},
		{"sell order", testOrder(), "📉 Large BTC-USD Sell Order on Coinbase"},
		{"nil event", nil, "🐋 Whale Activity Detected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPayload(tt.ev, "test").Title())
		})
	}
}

func TestDiscordSender(t *testing.T) {
	var got webhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	s := NewDiscordSender(server.URL)
	payload := NewPayload(testTransfer(), "test")
	require.NoError(t, s.Send(context.Background(), payload))

	require.Len(t, got.Embeds, 1)
	e := got.Embeds[0]
	assert.Equal(t, "🏦➡️💼 Large BTC Exchange Withdrawal Detected", e.Title)
	assert.Equal(t, payload.Message, e.Description)
	assert.Equal(t, colorGreen, e.Color)

	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Pattern", "Type", "Status", "From (1 inputs)", "To (2 outputs)"}, names)
	assert.Equal(t, "Wallet Transfer", e.Fields[0].Value)
	assert.Equal(t, "Exchange Withdrawal", e.Fields[1].Value)
	assert.Contains(t, e.Fields[4].Value, "Legacy Wallet (30.0000)")
}

func TestDiscordSenderOrderEmbed(t *testing.T) {
	e := buildEmbed(NewPayload(testOrder(), "test"))
	assert.Equal(t, colorRed, e.Color)
	assert.Equal(t, "📉 Large BTC-USD Sell Order on Coinbase", e.Title)
	require.Len(t, e.Fields, 3)
	assert.Equal(t, "20.0000 BTC", e.Fields[1].Value)
}

func TestDiscordSenderErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"message": "You are being rate limited."}`)
	}))
	defer server.Close()

	err := NewDiscordSender(server.URL).Send(context.Background(), NewPayload(testOrder(), "test"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestSMTPSender(t *testing.T) {
	s := NewSMTPSender("mail.test", 587, "user", "pass", "whales@test", []string{"a@test", "b@test"})

	var gotAddr string
	var gotTo []string
	var gotMsg string
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotTo = to
		gotMsg = string(msg)
		assert.NotNil(t, a)
		assert.Equal(t, "whales@test", from)
		return nil
	}

	payload := NewPayload(testTransfer(), "prod")
	payload.Timestamp = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Send(context.Background(), payload))

	assert.Equal(t, "mail.test:587", gotAddr)
	assert.Equal(t, []string{"a@test", "b@test"}, gotTo)
	assert.Contains(t, gotMsg, "To: a@test, b@test\r\n")
	assert.Contains(t, gotMsg, "Subject: [Whale Alert] 🏦➡️💼 Large BTC Exchange Withdrawal Detected $1,800,000.00\r\n")
	assert.Contains(t, gotMsg, "Type:           Exchange Withdrawal\n")
	assert.Contains(t, gotMsg, "From:           3M219KBk7ZjsPUe7UpzPcTg1z5y7R25Acz (Coinbase)\n")
	assert.Contains(t, gotMsg, "Generated: 2024-03-01T12:00:00Z")
	assert.NotContains(t, gotMsg, "**")
}

func TestSMTPSenderError(t *testing.T) {
	s := NewSMTPSender("mail.test", 25, "", "", "whales@test", []string{"a@test"})
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		assert.Nil(t, a)
		return errors.New("connection refused")
	}
	err := s.Send(context.Background(), NewPayload(testOrder(), "test"))
	assert.ErrorContains(t, err, "connection refused")

	empty := NewSMTPSender("mail.test", 25, "", "", "whales@test", nil)
	assert.Error(t, empty.Send(context.Background(), NewPayload(testOrder(), "test")))
}

func TestLogSender(t *testing.T) {
	log, hook := test.NewNullLogger()
	s := NewLogSender(log)

	require.NoError(t, s.Send(context.Background(), NewPayload(testOrder(), "test")))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Whale alert", entry.Message)
	assert.Equal(t, "coinbase", entry.Data["exchange"])
	assert.Equal(t, "1400000.00", entry.Data["usd_value"])
}

type fakeSender struct {
	calls int
	err   error
}

func (f *fakeSender) Send(ctx context.Context, payload *Payload) error {
	f.calls++
	return f.err
}

func TestMultiSender(t *testing.T) {
	ok := &fakeSender{}
	failing := &fakeSender{err: errors.New("boom")}
	also := &fakeSender{}

	err := NewMultiSender(ok, failing, also).Send(context.Background(), NewPayload(testOrder(), "test"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "sender 1: boom"))
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, also.calls, "later senders still run after a failure")

	assert.NoError(t, NewMultiSender(ok).Send(context.Background(), NewPayload(testOrder(), "test")))
}
