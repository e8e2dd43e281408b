package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/cubecart/core/internal/logger"
	"github.com/cubecart/core/internal/metrics"
)

// ReservationExpirer is the slice of the catalog store the sweep needs.
// Expire reports whether this call actually released the reservation:
// false with a nil error means it had already settled.
type ReservationExpirer interface {
	Expire(ctx context.Context, reservationID string) (bool, error)
}

// Processor consumes delayed expiry messages and returns reserved stock
// for reservations that were never committed.
type Processor struct {
	reservations ReservationExpirer
	metrics      *metrics.Emitter
	log          *logger.Logger
}

// NewProcessor creates a worker processor.
func NewProcessor(reservations ReservationExpirer, em *metrics.Emitter, log *logger.Logger) *Processor {
	return &Processor{reservations: reservations, metrics: em, log: log}
}

// Handle receives an SQS batch event and processes each message. A failed
// message fails the batch: Lambda retries, and repeated failures land in
// the DLQ.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.Error("expiry sweep failed", "message_id", rec.MessageId, "error", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg ExpiryMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body %q: %w", rec.Body, err)
	}
	if msg.ReservationID == "" {
		return fmt.Errorf("message %s has no reservation id", rec.MessageId)
	}

	released, err := p.reservations.Expire(ctx, msg.ReservationID)
	if err != nil {
		return fmt.Errorf("expire reservation %s: %w", msg.ReservationID, err)
	}
	if !released {
		// Committed, released, or swept by a competing worker. Duplicate
		// delivery is expected with SQS, so this is not an error.
		p.log.Debug("reservation already settled", "reservation_id", msg.ReservationID)
		return nil
	}

	p.metrics.Count(ctx, metrics.MetricReservationExpired)
	p.log.Info("reservation expired, stock returned", "reservation_id", msg.ReservationID)
	return nil
}
