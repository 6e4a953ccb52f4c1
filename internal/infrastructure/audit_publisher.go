package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/audit"
	"github.com/shakilmiahcse/social-org-finance/internal/logger"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPAuditPublisher publishes audit events to a topic exchange with routing
// key audit.<entity>.<action>. Publishing failures are logged and dropped.
type AMQPAuditPublisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
}

var _ audit.Recorder = (*AMQPAuditPublisher)(nil)

func NewAMQPAuditPublisher(url, exchange string) (*AMQPAuditPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPAuditPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func routingKey(event audit.Event) string {
	return fmt.Sprintf("audit.%s.%s", event.Entity, event.Action)
}

func (p *AMQPAuditPublisher) Record(ctx context.Context, event audit.Event) {
	body, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("entity", event.Entity).Msg("audit event encode failed")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey(event), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    pkg.GenerateULID(),
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		logger.Error().
			Err(err).
			Str("entity", event.Entity).
			Str("entity_id", event.EntityId.String()).
			Msg("audit event publish failed")
	}
}

func (p *AMQPAuditPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.Close(); err != nil {
		logger.Warn().Err(err).Msg("rabbitmq channel close failed")
	}
	return p.conn.Close()
}
