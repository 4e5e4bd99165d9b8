package events

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/IBM/sarama"

	"railway/internal/domain/models"
)

const DefaultTopic = "order-events"

// OrderPublisher writes order events to kafka keyed by order id, so every
// event of one order lands on the same partition.
type OrderPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewOrderPublisher(brokers []string, topic string) (*OrderPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return NewOrderPublisherWithProducer(p, topic), nil
}

func NewOrderPublisherWithProducer(p sarama.SyncProducer, topic string) *OrderPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &OrderPublisher{producer: p, topic: topic}
}

func (p *OrderPublisher) PublishOrderEvent(ctx context.Context, evt models.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(evt.OrderID, 10)),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(evt.Type)},
		},
	}
	_, _, err = p.producer.SendMessage(msg)
	return err
}

func (p *OrderPublisher) Close() error {
	return p.producer.Close()
}

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) PublishOrderEvent(context.Context, models.OrderEvent) error { return nil }
