package events

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
	"github.com/tasteline/kitchen-dashboard/pkg/models"
)

const (
	OrderStatusChangedTopic = "order.status_changed"
)

// OrderStatusChangedEvent is published on every kitchen-originated transition.
// Downstream consumers (rider app, reporting) key off the order id.
type OrderStatusChangedEvent struct {
	OrderID          string        `json:"order_id"`
	RestaurantID     string        `json:"restaurant_id"`
	Status           models.Status `json:"status"`
	PrepTimeMinutes  int           `json:"prep_time_minutes,omitempty"`
	VerificationCode string        `json:"verification_code,omitempty"`
	RejectionReason  string        `json:"rejection_reason,omitempty"`
	EventTime        time.Time     `json:"event_time"`
}

type KafkaProducer struct {
	producer sarama.SyncProducer
	logger   *logrus.Logger
}

func NewKafkaProducer(brokers string, logger *logrus.Logger) (*KafkaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer([]string{brokers}, config)
	if err != nil {
		return nil, err
	}

	return &KafkaProducer{
		producer: producer,
		logger:   logger,
	}, nil
}

func (p *KafkaProducer) PublishStatusChanged(event OrderStatusChangedEvent) error {
	event.EventTime = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: OrderStatusChangedTopic,
		Key:   sarama.StringEncoder(event.OrderID),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).Error("Failed to send message to Kafka")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"topic":     OrderStatusChangedTopic,
		"partition": partition,
		"offset":    offset,
		"order_id":  event.OrderID,
		"status":    event.Status,
	}).Info("Event published to Kafka")

	return nil
}

func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}
