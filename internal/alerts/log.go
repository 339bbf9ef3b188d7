package alerts

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/liamashdown/whalewatch/internal/whale"
)

// LogSender sends alerts to the logger
type LogSender struct {
	log *logrus.Logger
}

// NewLogSender creates a new log sender
func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the alert
func (s *LogSender) Send(ctx context.Context, payload *Payload) error {
	fields := logrus.Fields{
		"title":   payload.Title(),
		"message": payload.Message,
	}
	if payload.Event != nil {
		fields["kind"] = payload.Event.Kind()
		fields["usd_value"] = payload.Event.USDValue().StringFixed(2)
	}
	switch ev := payload.Event.(type) {
	case *whale.Transfer:
		fields["asset"] = ev.Asset
		fields["hash"] = ev.Hash
		fields["type"] = ev.TransactionType
		fields["pattern"] = ev.Pattern
	case *whale.Order:
		fields["exchange"] = ev.Exchange
		fields["symbol"] = ev.Symbol
		fields["side"] = ev.Side
	}
	s.log.WithFields(fields).Info("Whale alert")
	return nil
}
