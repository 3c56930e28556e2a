package refill

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	qstashx "github.com/tanpawarit/agentic-pharmacy/pkg/qstash"
)

var _ contractx.Notifier = (*QStashNotifier)(nil)

type publisher interface {
	PublishJSON(ctx context.Context, destination string, payload any) (*qstashx.PublishResponse, error)
}

// QStashNotifier publishes one message per scan to a QStash destination.
type QStashNotifier struct {
	client      publisher
	destination string
}

type alertBatch struct {
	Alerts []contractx.RefillAlertRow `json:"alerts"`
}

func NewQStashNotifier(client *qstashx.Client, destination string) (*QStashNotifier, error) {
	if client == nil {
		return nil, errors.New("qstash client is required")
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, errors.New("qstash destination is required")
	}
	return &QStashNotifier{client: client, destination: destination}, nil
}

func (n *QStashNotifier) NotifyRefillAlerts(ctx context.Context, alerts []contractx.RefillAlertRow) error {
	if len(alerts) == 0 {
		return nil
	}
	resp, err := n.client.PublishJSON(ctx, n.destination, alertBatch{Alerts: alerts})
	if err != nil {
		return err
	}
	log.Debug().Str("message_id", resp.MessageID).Int("alerts", len(alerts)).Msg("refill alerts published")
	return nil
}
