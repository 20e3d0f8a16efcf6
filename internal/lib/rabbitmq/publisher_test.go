package rabbitmq

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/ventures-access/internal/models"
	"github.com/magabrotheeeer/ventures-access/internal/tiers"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestPublishMessage(t *testing.T) {
	ctx := context.Background()
	amqpURI := amqpURIForTest(ctx, t)

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close connection: %v", err)
		}
	}()

	ch, err := conn.Channel()
	require.NoError(t, err)

	queueName := "publish-test"
	_, err = ch.QueueDeclare(queueName, false, false, false, false, nil)
	require.NoError(t, err)

	type TestMsg struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	t.Run("success publish and consume", func(t *testing.T) {
		msg := TestMsg{ID: 1, Name: "Hello"}
		require.NoError(t, PublishMessage(ch, "", queueName, msg))

		deliveries, err := ch.Consume(queueName, "test-consumer", true, false, false, false, nil)
		require.NoError(t, err)

		select {
		case d := <-deliveries:
			var got TestMsg
			require.NoError(t, json.Unmarshal(d.Body, &got))
			assert.Equal(t, msg, got)
			assert.Equal(t, "application/json", d.ContentType)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for message")
		}
	})

	t.Run("marshal error", func(t *testing.T) {
		badMsg := struct {
			Ch chan int `json:"ch"`
		}{
			Ch: make(chan int),
		}

		err := PublishMessage(ch, "", queueName, badMsg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rabbitmq.PublishMessage")
	})
}

func TestEventPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	amqpURI := amqpURIForTest(ctx, t)

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	ch, err := SetupChannel(conn, AccessEventQueues())
	require.NoError(t, err)

	consumeCh, err := conn.Channel()
	require.NoError(t, err)
	deliveries, err := consumeCh.Consume("access.upgraded", "test-consumer", true, false, false, false, nil)
	require.NoError(t, err)

	amount := 222.0
	event := models.AccessEvent{
		Type:          RoutingUpgraded,
		UserUID:       "8a4c5f0e-7b1f-4a59-9a54-0d3c1b9d2f11",
		WalletAddress: "0xabc",
		Tier:          tiers.ClientStarter,
		AmountUSD:     &amount,
		OccurredAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	publisher := NewEventPublisher(ch, newNoopLogger())
	require.NoError(t, publisher.Publish(ctx, event))

	select {
	case d := <-deliveries:
		var got models.AccessEvent
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.Equal(t, event, got)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for access event")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, publisher.Publish(cancelled, event))
}

func TestNopPublisher(t *testing.T) {
	p := NopPublisher{Log: newNoopLogger()}
	assert.NoError(t, p.Publish(context.Background(), models.AccessEvent{Type: RoutingTrialStarted}))
}
