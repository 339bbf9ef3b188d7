package alerts

import (
	"context"
	"time"

	"github.com/liamashdown/whalewatch/internal/whale"
)

// Payload contains all information for an alert
type Payload struct {
	Event       whale.Event
	Message     string // whale.Format output
	Timestamp   time.Time
	Environment string
}

// NewPayload renders ev into an alert payload
func NewPayload(ev whale.Event, environment string) *Payload {
	return &Payload{
		Event:       ev,
		Message:     whale.Format(ev),
		Timestamp:   time.Now(),
		Environment: environment,
	}
}

// Title returns the headline of the alert
func (p *Payload) Title() string {
	switch e := p.Event.(type) {
	case *whale.Transfer:
		return whale.Title(e)
	case *whale.Order:
		if e.Side == whale.SideBuy {
			return "📈 Large " + e.Symbol + " Buy Order on " + whale.Label(e.Exchange)
		}
		return "📉 Large " + e.Symbol + " Sell Order on " + whale.Label(e.Exchange)
	default:
		return "🐋 Whale Activity Detected"
	}
}

// Sender defines the interface for alert senders
type Sender interface {
	Send(ctx context.Context, payload *Payload) error
}
