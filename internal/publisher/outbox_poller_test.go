package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/samantaanjo/go_storefront/internal/repository"
)

type MockOutbox struct {
	m            sync.Mutex
	Events       []*repository.OutboxEvent
	ProcessedIDs []int64
}

func (m *MockOutbox) GetUnprocessedEvents(_ context.Context, _ int) ([]*repository.OutboxEvent, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if len(m.Events) > 0 {
		ev := []*repository.OutboxEvent{m.Events[0]} // Return first event once
		m.Events = m.Events[1:]
		return ev, nil
	}
	return nil, nil
}

func (m *MockOutbox) MarkEventAsProcessed(_ context.Context, id int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.ProcessedIDs = append(m.ProcessedIDs, id)
	return nil
}

func (m *MockOutbox) processed() []int64 {
	m.m.Lock()
	defer m.m.Unlock()
	return append([]int64(nil), m.ProcessedIDs...)
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestOutboxPoller_PublishesCommittedOrders(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	brokerAddr, cleanup := setupKafka(t)
	defer cleanup()

	createTopic(t, brokerAddr, committedOrdersTopic)
	time.Sleep(5 * time.Second)

	payload := json.RawMessage(`{"order_id":"a2b6e6a5-1111-4f0e-9c5e-8d1caa000001","buyer":"user:42","total":"29.97"}`)
	mockRepo := &MockOutbox{
		Events: []*repository.OutboxEvent{
			{
				ID:          1,
				AggregateID: "a2b6e6a5-1111-4f0e-9c5e-8d1caa000001",
				EventType:   "order-committed",
				Payload:     payload,
				CreatedAt:   time.Now(),
			},
		},
	}

	writer := &kafkaGo.Writer{
		Addr:         kafkaGo.TCP(brokerAddr),
		Topic:        committedOrdersTopic,
		Balancer:     &kafkaGo.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	defer writer.Close()

	poller := &OutboxPoller{
		tick:      time.Second,
		batchSize: 100,
		repo:      mockRepo,
		writer:    writer,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	go poller.Run(ctx)

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:  []string{brokerAddr},
		Topic:    committedOrdersTopic,
		GroupID:  "test-consumer",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)

	assert.Equal(t, "a2b6e6a5-1111-4f0e-9c5e-8d1caa000001", string(msg.Key))
	assert.JSONEq(t, string(payload), string(msg.Value))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "order-committed", string(msg.Headers[0].Value))

	// The row is marked processed only after the broker accepted it.
	require.Eventually(t, func() bool {
		ids := mockRepo.processed()
		return len(ids) == 1 && ids[0] == 1
	}, 10*time.Second, 100*time.Millisecond)
}
