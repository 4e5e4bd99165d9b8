package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railway/internal/domain/models"
)

func TestOrderPublisher_KeyedByOrderID(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != DefaultTopic {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "42" {
			return errors.New("wrong key " + string(key))
		}
		raw, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var evt models.OrderEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			return err
		}
		if evt.Type != models.OrderCreatedEvent || evt.TotalPrice != models.Yuan(553) {
			return errors.New("unexpected payload " + string(raw))
		}
		return nil
	})

	p := NewOrderPublisherWithProducer(producer, "")
	err := p.PublishOrderEvent(context.Background(), models.OrderEvent{
		ID: "e1", Type: models.OrderCreatedEvent, OrderID: 42, UserID: 7,
		TrainNo: "G27", Status: models.OrderPending, TotalPrice: models.Yuan(553), At: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestOrderPublisher_BrokerError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewOrderPublisherWithProducer(producer, "orders")
	err := p.PublishOrderEvent(context.Background(), models.OrderEvent{OrderID: 1, Type: models.OrderPaidEvent})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}
