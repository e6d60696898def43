package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/rmatassie/motormarche-backend/pkg/enums"
	"github.com/rmatassie/motormarche-backend/pkg/logger"
	"github.com/rmatassie/motormarche-backend/pkg/mail"
	"github.com/rmatassie/motormarche-backend/pkg/metrics"
	"github.com/rmatassie/motormarche-backend/pkg/outbox"
	"github.com/rmatassie/motormarche-backend/pkg/outbox/idempotency"
	"github.com/rmatassie/motormarche-backend/pkg/outbox/payloads"
)

const mailerConsumer = "mailer-worker"

// Consumer drains mail intents from Pub/Sub and delivers them through the
// configured sender. Failed deliveries are nacked so Pub/Sub redelivers.
type Consumer struct {
	sender       mail.Sender
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	metrics      *metrics.WorkerMetrics
	logg         *logger.Logger
}

func NewConsumer(sender mail.Sender, subscription *pubsub.Subscriber, manager *idempotency.Manager, workerMetrics *metrics.WorkerMetrics, logg *logger.Logger) (*Consumer, error) {
	if sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("mail subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		sender:       sender,
		subscription: subscription,
		idempotency:  manager,
		metrics:      workerMetrics,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if !enums.OutboxEventType(eventType).IsValid() {
		c.logg.Info(logCtx, "skipping unknown event type")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, mailerConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	message, err := buildMessage(enums.OutboxEventType(eventType), envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to build mail message", err)
		_ = c.idempotency.Delete(ctx, mailerConsumer, eventID)
		return processResult{ack: true}
	}

	start := time.Now()
	if err := c.sender.Send(ctx, message); err != nil {
		c.logg.Error(logCtx, "mail delivery failed", err)
		c.metrics.IncDelivered(eventType, "failure")
		_ = c.idempotency.Delete(ctx, mailerConsumer, eventID)
		return processResult{nack: true}
	}
	c.metrics.IncDelivered(eventType, "success")
	c.metrics.ObserveDelivery(eventType, time.Since(start))

	c.logg.Info(c.logg.WithField(logCtx, "to", message.ToEmail), "mail delivered")
	return processResult{ack: true}
}

// buildMessage maps an outbox event onto its rendered email. Malformed
// payloads are a permanent failure, redelivery cannot fix them.
func buildMessage(eventType enums.OutboxEventType, data json.RawMessage) (mail.Message, error) {
	switch eventType {
	case enums.EventInvoiceEmailRequested:
		var payload payloads.InvoiceEmailEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return mail.Message{}, fmt.Errorf("decode invoice payload: %w", err)
		}
		return invoiceMessage(payload), nil
	case enums.EventPurchaseEmailRequested:
		var payload payloads.PurchaseEmailEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return mail.Message{}, fmt.Errorf("decode purchase payload: %w", err)
		}
		return purchaseConfirmationMessage(payload), nil
	case enums.EventSaleNoticeEmailRequested:
		var payload payloads.SaleNoticeEmailEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return mail.Message{}, fmt.Errorf("decode sale notice payload: %w", err)
		}
		return saleNoticeMessage(payload), nil
	default:
		return mail.Message{}, fmt.Errorf("unsupported event type %q", eventType)
	}
}
