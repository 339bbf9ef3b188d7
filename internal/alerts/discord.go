package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/liamashdown/whalewatch/internal/whale"
)

const (
	colorBlue   = 0x0099FF
	colorGreen  = 0x00C853
	colorRed    = 0xFF0000
	colorOrange = 0xFFA500
	colorPurple = 0x8E24AA
)

// DiscordSender sends alerts to Discord via webhook
type DiscordSender struct {
	webhookURL string
	httpClient *http.Client
}

// NewDiscordSender creates a new Discord sender
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookMessage struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      embedFooter  `json:"footer"`
	Timestamp   string       `json:"timestamp"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

// Send posts the alert to the webhook
func (s *DiscordSender) Send(ctx context.Context, payload *Payload) error {
	body, err := json.Marshal(webhookMessage{Embeds: []embed{buildEmbed(payload)}})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return nil
}

func buildEmbed(payload *Payload) embed {
	e := embed{
		Title:       "🚨 WHALE ALERT 🚨",
		Description: payload.Message,
		Color:       colorBlue,
		Footer: embedFooter{
			Text: fmt.Sprintf("Whale Watch • %s • %s", payload.Environment, payload.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC")),
		},
		Timestamp: payload.Timestamp.Format(time.RFC3339),
	}

	switch ev := payload.Event.(type) {
	case *whale.Transfer:
		e.Title = whale.Title(ev)
		e.Color = transferColor(ev.TransactionType)
		e.Fields = transferFields(ev)
	case *whale.Order:
		e.Title = payload.Title()
		e.Color = colorRed
		if ev.Side == whale.SideBuy {
			e.Color = colorGreen
		}
		e.Fields = []embedField{
			{Name: "Exchange", Value: whale.Label(ev.Exchange), Inline: true},
			{Name: "Quantity", Value: ev.Quantity.StringFixed(4) + " " + string(ev.Asset), Inline: true},
			{Name: "Price", Value: whale.FormatUSD(ev.Price), Inline: true},
		}
	}

	return e
}

func transferColor(t whale.TransactionType) int {
	switch t {
	case whale.TypeExchangeWithdrawal:
		return colorGreen
	case whale.TypeExchangeDeposit:
		return colorRed
	case whale.TypePrivacyTransaction:
		return colorPurple
	case whale.TypeExchangeTransfer:
		return colorOrange
	default:
		return colorBlue
	}
}

func transferFields(t *whale.Transfer) []embedField {
	status := "⏳ Pending"
	if t.Confirmed {
		status = "✅ Confirmed"
	}
	fields := []embedField{
		{Name: "Pattern", Value: whale.Label(string(t.Pattern)), Inline: true},
		{Name: "Type", Value: whale.Label(string(t.TransactionType)), Inline: true},
		{Name: "Status", Value: status, Inline: true},
	}
	if len(t.FromAddresses) > 0 {
		fields = append(fields, embedField{Name: fmt.Sprintf("From (%d inputs)", t.InputCount), Value: addressList(t.FromAddresses)})
	}
	if len(t.ToAddresses) > 0 {
		fields = append(fields, embedField{Name: fmt.Sprintf("To (%d outputs)", t.OutputCount), Value: addressList(t.ToAddresses)})
	}
	return fields
}

func addressList(addrs []whale.ClassifiedAddress) string {
	lines := make([]string, 0, len(addrs))
	for _, a := range addrs {
		line := fmt.Sprintf("`%s` %s", truncate(a.Address, 20), a.Entity)
		if a.ValueMoved.Valid {
			line += " (" + a.ValueMoved.Decimal.StringFixed(4) + ")"
		}
		lines = append(lines, line)
	}
	return truncate(strings.Join(lines, "\n"), 1000)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
