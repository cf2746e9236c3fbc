package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestNewOrderEvent(t *testing.T) {
	order := &models.Order{ID: 7, CustomerID: 1, RestaurantID: 2, Status: models.StatusConfirmed}
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	event := NewOrderEvent(TypeFor(order.Status), order, models.Actor{ID: 9, Role: models.RoleOwner}, at)

	_, err := uuid.Parse(event.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderConfirmed, event.Type)
	assert.Equal(t, int64(9), event.ActorID)
	assert.Equal(t, time.UTC, event.OccurredAt.Location())
}

func TestTypeFor(t *testing.T) {
	assert.Equal(t, OrderSent, TypeFor(models.StatusSent))
	assert.Equal(t, OrderDelivered, TypeFor(models.StatusDelivered))
	assert.Equal(t, OrderUpdated, TypeFor(models.StatusPending))
}

func TestKafkaPublisher_Publish(t *testing.T) {
	writer := &recordingWriter{}
	publisher := &KafkaPublisher{writer: writer}
	event := NewOrderEvent(OrderCreated, &models.Order{ID: 12, Status: models.StatusPending}, models.Actor{ID: 1}, time.Now())

	require.NoError(t, publisher.Publish(context.Background(), event))
	require.Len(t, writer.msgs, 1)
	assert.Equal(t, "12", string(writer.msgs[0].Key))

	var decoded OrderEvent
	require.NoError(t, json.Unmarshal(writer.msgs[0].Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, OrderCreated, decoded.Type)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	publisher := &KafkaPublisher{writer: &recordingWriter{err: errors.New("broker down")}}

	err := publisher.Publish(context.Background(), NewOrderEvent(OrderDeleted, &models.Order{ID: 1}, models.Actor{}, time.Now()))
	assert.ErrorContains(t, err, "broker down")
}

func TestNewKafkaPublisher_Brokers(t *testing.T) {
	publisher := NewKafkaPublisher(" kafka-1:9092, ,kafka-2:9092", "orders")
	writer, ok := publisher.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "orders", writer.Topic)
	assert.NotNil(t, writer.Addr)
	// single synchronous writes must not wait out the default one second batch
	assert.Equal(t, 10*time.Millisecond, writer.BatchTimeout)
}
