package kafka

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler processes one raw broker message. Errors are retried in place;
// the consumer never commits past a message whose side effects have not
// been applied.
type Handler func(ctx context.Context, key, value []byte) error

const (
	handlerRetryBase = 500 * time.Millisecond
	handlerRetryCap  = 30 * time.Second
)

// Consumer runs a consumer-group reader for one topic. Partition assignment
// within the group is what serializes events per aggregate.
type Consumer struct {
	reader    *kafka.Reader
	handler   Handler
	retryBase time.Duration
	retryCap  time.Duration
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewConsumer(brokers []string, groupID, topic string, handler Handler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		handler:   handler,
		retryBase: handlerRetryBase,
		retryCap:  handlerRetryCap,
	}
}

// Start begins the fetch loop. It returns immediately; the loop runs until
// Stop is called or the context is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		log.Printf("Kafka consumer started for topic %q", c.reader.Config().Topic)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					log.Printf("Kafka consumer for topic %q shutting down", c.reader.Config().Topic)
					return
				}
				log.Printf("ERROR: could not fetch message: %v, retrying", err)
				time.Sleep(time.Second)
				continue
			}

			// FetchMessage already advanced the reader's position past this
			// message, so a later commit on the partition would mark it
			// consumed. The message must land before the loop moves on; a
			// stuck message blocks only its own partition.
			if err := retryHandler(ctx, c.handler, msg.Key, msg.Value, c.retryBase, c.retryCap); err != nil {
				log.Printf("Kafka consumer for topic %q shutting down mid-retry: %v", c.reader.Config().Topic, err)
				return
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				log.Printf("ERROR: failed to commit offset: %v", err)
			}
		}
	}()
}

// retryHandler applies the handler to one message, retrying with
// exponential backoff until it succeeds or the context ends.
func retryHandler(ctx context.Context, handler Handler, key, value []byte, base, maxDelay time.Duration) error {
	delay := base
	for attempt := 1; ; attempt++ {
		err := handler(ctx, key, value)
		if err == nil {
			return nil
		}
		log.Printf("ERROR: handler failed (attempt %d): %v, retrying in %s", attempt, err, delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// Stop cancels the loop, closes the reader and waits for the drain.
func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.reader.Close()
	c.wg.Wait()
}
