package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/ventures-access/internal/lib/sl"
	"github.com/magabrotheeeer/ventures-access/internal/metrics"
	"github.com/magabrotheeeer/ventures-access/internal/models"
)

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EventPublisher публикует события доступа в обменник AccessExchange.
// amqp.Channel не допускает параллельной публикации, поэтому вызовы сериализуются.
type EventPublisher struct {
	mu  sync.Mutex
	ch  *amqp.Channel
	log *slog.Logger
}

// NewEventPublisher создаёт издателя событий.
func NewEventPublisher(ch *amqp.Channel, log *slog.Logger) *EventPublisher {
	return &EventPublisher{ch: ch, log: log}
}

// Publish публикует событие с ключом маршрутизации, равным его типу.
func (p *EventPublisher) Publish(ctx context.Context, event models.AccessEvent) error {
	const op = "rabbitmq.EventPublisher.Publish"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	err := PublishMessage(p.ch, AccessExchange, event.Type, event)
	p.mu.Unlock()

	if err != nil {
		metrics.EventsPublished.WithLabelValues(event.Type, "error").Inc()
		p.log.Error("failed to publish access event", sl.Err(err), slog.String("event", event.Type))
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.EventsPublished.WithLabelValues(event.Type, "ok").Inc()
	return nil
}

// NopPublisher отбрасывает события. Используется, когда RabbitMQ не настроен.
type NopPublisher struct {
	Log *slog.Logger
}

// Publish реализует публикацию без отправки.
func (p NopPublisher) Publish(_ context.Context, event models.AccessEvent) error {
	if p.Log != nil {
		p.Log.Debug("access event dropped: rabbitmq disabled", slog.String("event", event.Type))
	}
	metrics.EventsPublished.WithLabelValues(event.Type, "dropped").Inc()
	return nil
}
