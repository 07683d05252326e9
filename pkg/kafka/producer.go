package kafka

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	defaultConnAttempts = 10
	defaultConnTimeout  = time.Second
	defaultWriteTimeout = 10 * time.Second
)

// Producer publishes messages keyed by aggregate id. The hash balancer
// routes every message with the same key to the same partition, which is
// what preserves per-order event ordering on a topic.
type Producer struct {
	brokers []string
	writer  *kafka.Writer
}

func NewProducer(ctx context.Context, brokers []string) (*Producer, error) {
	p := &Producer{
		brokers: brokers,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			WriteTimeout:           defaultWriteTimeout,
			AllowAutoTopicCreation: true,
		},
	}

	var err error
	for attempts := defaultConnAttempts; attempts > 0; attempts-- {
		err = p.ping(ctx)
		if err == nil {
			break
		}
		log.Printf("Kafka producer is trying to connect, attempts left: %d", attempts-1)
		time.Sleep(defaultConnTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("kafka producer: connection attempts exhausted: %w", err)
	}

	return p, nil
}

// Publish sends one message to the topic. The write deadline comes from the
// writer's bounded WriteTimeout, so a dead broker surfaces as a retryable
// error instead of a hang.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

func (p *Producer) ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("kafka producer: dial: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		return fmt.Errorf("kafka producer: brokers: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
