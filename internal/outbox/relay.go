package outbox

import (
	"context"
	"time"

	"orderflow/internal/events"
	"orderflow/internal/repository"
	"orderflow/pkg/logger"
)

// Publisher abstracts the broker producer so the relay can be tested
// without a running cluster.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// aggregateTopics routes outbox records to broker topics by the aggregate
// type stamped on the record.
var aggregateTopics = map[string]string{
	events.AggregateTypeOrder:     events.TopicOrderEvents,
	events.AggregateTypeInventory: events.TopicInventoryEvents,
	events.AggregateTypePayment:   events.TopicPaymentEvents,
}

const (
	backoffBase = 500 * time.Millisecond
	backoffCap  = 30 * time.Second
	maxShift    = 6
)

// RetentionFromDays converts the configured retention in days into the
// duration the sweeper works with.
func RetentionFromDays(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// Relay polls the outbox table and publishes unpublished records to the
// broker in creation order. Each record is marked published in its own
// transaction only after a successful publish, so a crash between the two
// steps means re-publish, never loss. Broker outages trigger exponential
// backoff of the whole loop.
type Relay struct {
	repo      repository.OutboxRepository
	publisher Publisher
	interval  time.Duration
	batchSize int
	log       *logger.Logger

	consecutiveFailures int
	nextAllowedRun      time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRelay(repo repository.OutboxRepository, publisher Publisher, interval time.Duration, batchSize int, log *logger.Logger) *Relay {
	return &Relay{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

// Start launches the polling loop. Call Stop to shut it down.
func (r *Relay) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()
}

func (r *Relay) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

// RunOnce drains one batch. It is a no-op while the backoff window from a
// previous failure is still open.
func (r *Relay) RunOnce(ctx context.Context) {
	if time.Now().Before(r.nextAllowedRun) {
		return
	}

	records, err := r.repo.GetUnpublished(ctx, r.batchSize)
	if err != nil {
		r.log.Errorf("outbox fetch failed: %v", err)
		r.recordFailure()
		return
	}
	if len(records) == 0 {
		r.recordSuccess()
		return
	}

	for _, rec := range records {
		topic, ok := aggregateTopics[rec.AggregateType]
		if !ok {
			// Unroutable records would wedge the batch forever; skip and warn.
			r.log.Warnf("outbox record %s has unknown aggregate type %q, skipping", rec.ID, rec.AggregateType)
			if err := r.repo.MarkPublished(ctx, rec.ID); err != nil {
				r.log.Errorf("outbox mark published failed for %s: %v", rec.ID, err)
				r.recordFailure()
				return
			}
			continue
		}

		key := []byte(rec.AggregateID.String())
		if err := r.publisher.Publish(ctx, topic, key, rec.Payload); err != nil {
			// Stop at the first failure so later records of the same
			// aggregate cannot overtake this one.
			r.log.Errorf("outbox publish failed for %s (type=%s): %v", rec.ID, rec.EventType, err)
			r.recordFailure()
			return
		}
		if err := r.repo.MarkPublished(ctx, rec.ID); err != nil {
			r.log.Errorf("outbox mark published failed for %s: %v", rec.ID, err)
			r.recordFailure()
			return
		}
	}

	r.log.Infof("outbox relay published %d events", len(records))
	r.recordSuccess()
}

func (r *Relay) recordSuccess() {
	r.consecutiveFailures = 0
	r.nextAllowedRun = time.Time{}
}

func (r *Relay) recordFailure() {
	shift := r.consecutiveFailures
	if shift > maxShift {
		shift = maxShift
	}
	delay := backoffBase << shift
	if delay > backoffCap {
		delay = backoffCap
	}
	r.consecutiveFailures++
	r.nextAllowedRun = time.Now().Add(delay)
	r.log.Warnf("outbox relay backing off %s after %d consecutive failures", delay, r.consecutiveFailures)
}

// Sweeper deletes published outbox records older than the retention window.
// Sweep failures only log; the relay is never blocked by retention.
type Sweeper struct {
	repo      repository.OutboxRepository
	retention time.Duration
	interval  time.Duration
	log       *logger.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(repo repository.OutboxRepository, retention, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		repo:      repo,
		retention: retention,
		interval:  interval,
		log:       log,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Sweeper) RunOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.retention)
	deleted, err := s.repo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		s.log.Errorf("outbox sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		s.log.Infof("outbox sweep deleted %d published events", deleted)
	}
}
