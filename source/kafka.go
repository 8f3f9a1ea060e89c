// Package source feeds inbound messages into the grouping coordinator. The
// Telegram bridge publishes raw message events to Kafka; RSS feeds are polled
// and synthesized into standalone messages.
package source

import (
	"context"
	"encoding/json"
	"log"

	"github.com/IBM/sarama"

	"echopost/types"
)

// MessageSink receives every decoded inbound message. Implemented by
// grouping.Coordinator.OnMessage.
type MessageSink func(msg *types.RawMessage)

// KafkaConfig holds the consumer-group configuration for the message topic.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// KafkaSource consumes raw message events from the bridge topic and forwards
// them to the sink. Messages are always marked: the coordinator owns dedup and
// at-most-once semantics, so replaying a malformed or failed event has no value.
type KafkaSource struct {
	group sarama.ConsumerGroup
	sink  MessageSink
	topic string
	ready chan bool
}

// NewKafkaSource creates the consumer group.
func NewKafkaSource(cfg KafkaConfig, sink MessageSink) (*KafkaSource, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}

	return &KafkaSource{
		group: group,
		sink:  sink,
		topic: cfg.Topic,
		ready: make(chan bool),
	}, nil
}

// Start begins consuming and returns once the first session is established.
func (s *KafkaSource) Start(ctx context.Context) error {
	handler := &messageEventHandler{sink: s.sink, ready: s.ready}

	go func() {
		for {
			if err := s.group.Consume(ctx, []string{s.topic}, handler); err != nil {
				if err == context.Canceled {
					log.Println("Kafka consumer context canceled")
					return
				}
				log.Printf("Error from Kafka consumer: %v", err)
			}
			if ctx.Err() != nil {
				return
			}
			handler.ready = make(chan bool)
		}
	}()

	<-s.ready
	log.Printf("✅ Kafka message source started (topic: %s)", s.topic)

	go func() {
		for err := range s.group.Errors() {
			log.Printf("❌ Kafka consumer error: %v", err)
		}
	}()

	return nil
}

// Close shuts down the consumer group.
func (s *KafkaSource) Close() error {
	log.Println("Closing Kafka message source...")
	return s.group.Close()
}

// messageEventHandler implements sarama.ConsumerGroupHandler for raw message
// events.
type messageEventHandler struct {
	sink  MessageSink
	ready chan bool
}

func (h *messageEventHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

func (h *messageEventHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *messageEventHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			log.Printf("📥 Received message event: partition=%d, offset=%d", message.Partition, message.Offset)

			var msg types.RawMessage
			if err := json.Unmarshal(message.Value, &msg); err != nil {
				log.Printf("❌ Failed to unmarshal message event: %v", err)
			} else if msg.ID == 0 {
				log.Printf("Skipping message event without an id (offset=%d)", message.Offset)
			} else {
				h.sink(&msg)
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
