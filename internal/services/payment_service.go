package services

import (
	"context"
	"hash/fnv"

	"github.com/google/uuid"

	"orderflow/internal/domain/payment"
	"orderflow/internal/events"
	"orderflow/internal/repository"
	"orderflow/pkg/logger"
)

const (
	ForceOutcomeSuccess = "success"
	ForceOutcomeFail    = "fail"

	declineReason = "Payment declined by provider"
)

// PaymentService charges reserved orders. There is no real provider behind
// it; the outcome is a deterministic function of the order id and the
// configured success rate, so the same order always resolves the same way.
type PaymentService struct {
	tx           repository.TxManager
	payments     repository.PaymentRepository
	outbox       repository.OutboxRepository
	processed    repository.ProcessedEventRepository
	successRate  float64
	forceOutcome string
	log          *logger.Logger
}

func NewPaymentService(
	tx repository.TxManager,
	payments repository.PaymentRepository,
	outboxRepo repository.OutboxRepository,
	processed repository.ProcessedEventRepository,
	successRate float64,
	forceOutcome string,
	log *logger.Logger,
) *PaymentService {
	return &PaymentService{
		tx:           tx,
		payments:     payments,
		outbox:       outboxRepo,
		processed:    processed,
		successRate:  successRate,
		forceOutcome: forceOutcome,
		log:          log,
	}
}

// HandleStockReserved records the payment attempt and emits the outcome
// event, all within one transaction guarded by the processed-event ledger.
func (s *PaymentService) HandleStockReserved(ctx context.Context, env events.Envelope, p *events.StockReserved) error {
	return s.tx.WithinTx(ctx, func(tx repository.DBTX) error {
		alreadyProcessed, err := s.processed.Exists(ctx, tx, env.EventID)
		if err != nil {
			return err
		}
		if alreadyProcessed {
			s.log.Infof("event %s already processed, skipping", env.EventID)
			return nil
		}

		succeeded := s.decide(p.OrderID)

		status := payment.StatusFailed
		if succeeded {
			status = payment.StatusSucceeded
		}
		pay := payment.New(p.OrderID, p.TotalAmount, status)
		if err := s.payments.Create(ctx, tx, pay); err != nil {
			return err
		}

		var outcome events.Envelope
		if succeeded {
			outcome, err = events.WrapCaused(events.EventTypePaymentSucceeded,
				events.PaymentSucceeded{OrderID: p.OrderID, PaymentID: pay.ID, Amount: p.TotalAmount},
				env.CorrelationID, env.EventID)
		} else {
			outcome, err = events.WrapCaused(events.EventTypePaymentFailed,
				events.PaymentFailed{OrderID: p.OrderID, Amount: p.TotalAmount, Reason: declineReason},
				env.CorrelationID, env.EventID)
		}
		if err != nil {
			return err
		}
		if err := saveOutboxEvent(ctx, s.outbox, tx, events.AggregateTypePayment, p.OrderID, outcome); err != nil {
			return err
		}

		s.log.Infof("order %s payment %s (amount=%d)", p.OrderID, status, p.TotalAmount)
		return s.processed.Create(ctx, tx, env.EventID)
	})
}

func (s *PaymentService) decide(orderID uuid.UUID) bool {
	switch s.forceOutcome {
	case ForceOutcomeSuccess:
		return true
	case ForceOutcomeFail:
		return false
	}
	h := fnv.New32a()
	h.Write([]byte(orderID.String()))
	return int(h.Sum32()%100) < int(s.successRate*100)
}
