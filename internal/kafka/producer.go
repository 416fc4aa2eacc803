package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Granipouss/mtg-collection-pipe/internal/models"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	EventRunImported = "collection.imported"
	EventCardAdded   = "collection.card"

	eventSource  = "mtg-collection-pipe"
	eventVersion = "v1"
)

type Producer struct {
	producer *kafka.Producer
	logger   *logrus.Logger
	topics   map[string]string
}

type ProducerConfig struct {
	Brokers    string
	RunsTopic  string
	CardsTopic string
	Logger     *logrus.Logger
}

func NewProducer(config ProducerConfig) (*Producer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": config.Brokers,
		"client.id":         eventSource,
		"acks":              "all",
		"retries":           10,
		"retry.backoff.ms":  100,
		"compression.type":  "snappy",
		"linger.ms":         10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	producer := &Producer{
		producer: p,
		logger:   config.Logger,
		topics: map[string]string{
			"runs":  config.RunsTopic,
			"cards": config.CardsTopic,
		},
	}

	go producer.handleDeliveryReports()

	return producer, nil
}

func (p *Producer) handleDeliveryReports() {
	for e := range p.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				p.logger.Errorf("Delivery failed: %v", ev.TopicPartition.Error)
			} else {
				p.logger.Debugf("Delivered message to %v", ev.TopicPartition)
			}
		}
	}
}

// NewRunEvent builds the event announcing a finished import run
func NewRunEvent(summary models.RunSummary) models.RunEvent {
	return models.RunEvent{
		KafkaEvent: newKafkaEvent(EventRunImported),
		Run:        summary,
	}
}

// NewCardEvent builds the event for one card added by a run
func NewCardEvent(runID string, row models.ImportRow) models.CardEvent {
	return models.CardEvent{
		KafkaEvent: newKafkaEvent(EventCardAdded),
		RunID:      runID,
		Card:       row,
	}
}

func newKafkaEvent(eventType string) models.KafkaEvent {
	return models.KafkaEvent{
		EventType: eventType,
		EventID:   uuid.New().String(),
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
	}
}

// PublishRun publishes the run event, then one event per imported card
func (p *Producer) PublishRun(summary models.RunSummary) error {
	event := NewRunEvent(summary)
	if err := p.produce("runs", summary.RunID, event.EventType, event); err != nil {
		return fmt.Errorf("failed to produce run message: %w", err)
	}

	for _, row := range summary.Rows {
		if err := p.PublishCard(summary.RunID, row); err != nil {
			p.logger.Errorf("Failed to publish card %s: %v", row.Name, err)
		}
	}

	return nil
}

// PublishCard publishes a single card event keyed by card name
func (p *Producer) PublishCard(runID string, row models.ImportRow) error {
	event := NewCardEvent(runID, row)
	if err := p.produce("cards", row.Name, event.EventType, event); err != nil {
		return fmt.Errorf("failed to produce card message: %w", err)
	}
	return nil
}

func (p *Producer) produce(topicKey, key, eventType string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	topic := p.topics[topicKey]
	return p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          data,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "source", Value: []byte(eventSource)},
		},
	}, nil)
}

// Flush waits for all messages to be delivered
func (p *Producer) Flush(timeoutMs int) int {
	return p.producer.Flush(timeoutMs)
}

// Close closes the producer
func (p *Producer) Close() {
	p.producer.Close()
}
