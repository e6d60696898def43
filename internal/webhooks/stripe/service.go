package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/rmatassie/motormarche-backend/internal/cars"
	"github.com/rmatassie/motormarche-backend/internal/payments"
	"github.com/rmatassie/motormarche-backend/internal/purchases"
	"github.com/rmatassie/motormarche-backend/pkg/db"
	"github.com/rmatassie/motormarche-backend/pkg/db/models"
	"github.com/rmatassie/motormarche-backend/pkg/enums"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
	"github.com/rmatassie/motormarche-backend/pkg/logger"
	"github.com/rmatassie/motormarche-backend/pkg/metrics"
	"github.com/rmatassie/motormarche-backend/pkg/outbox"
	"github.com/rmatassie/motormarche-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	PaymentRepo       *payments.Repository
	CarRepo           *cars.Repository
	PurchaseRepo      *purchases.Repository
	Outbox            *outbox.Service
	TransactionRunner txRunner
	Logger            *logger.Logger

	// Metrics is optional; a nil collector records nothing.
	Metrics *metrics.WebhookMetrics
}

// Service settles payments from Stripe checkout session events. Completed
// sessions are fulfilled in a single transaction; expired sessions mark the
// payment failed without ever demoting a settled one.
type Service struct {
	paymentRepo  *payments.Repository
	carRepo      *cars.Repository
	purchaseRepo *purchases.Repository
	outbox       *outbox.Service
	txRunner     txRunner
	logg         *logger.Logger
	metrics      *metrics.WebhookMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.PaymentRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment repo required")
	}
	if params.CarRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "car repo required")
	}
	if params.PurchaseRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "purchase repo required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox service required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		paymentRepo:  params.PaymentRepo,
		carRepo:      params.CarRepo,
		purchaseRepo: params.PurchaseRepo,
		outbox:       params.Outbox,
		txRunner:     params.TransactionRunner,
		logg:         params.Logger,
		metrics:      params.Metrics,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	start := time.Now()
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			s.metrics.IncEvent(string(event.Type), "decode_error")
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		err := s.fulfill(ctx, &session)
		s.recordOutcome(string(event.Type), start, err)
		if err == nil {
			s.metrics.IncFulfillment("success")
		} else {
			s.metrics.IncFulfillment("failure")
		}
		return err
	case stripe.EventTypeCheckoutSessionExpired:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			s.metrics.IncEvent(string(event.Type), "decode_error")
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		err := s.expire(ctx, &session)
		s.recordOutcome(string(event.Type), start, err)
		return err
	default:
		s.metrics.IncEvent(string(event.Type), "ignored")
		return nil
	}
}

func (s *Service) recordOutcome(eventType string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.metrics.IncEvent(eventType, outcome)
	s.metrics.ObserveDuration(eventType, time.Since(start))
}

// fulfill resolves the payment behind the completed session and settles it:
// status moves to completed, the purchase record is written, the car comes
// off the public listing, and the mail intents go into the outbox. Runs in
// one transaction so a crash mid-way leaves nothing half-applied.
func (s *Service) fulfill(ctx context.Context, session *stripe.CheckoutSession) error {
	if session == nil || session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id required")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		payment, err := paymentRepo.FindByStripeID(ctx, session.ID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment not found for checkout session")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}

		if payment.Status == enums.PaymentStatusCompleted {
			return nil
		}
		if err := paymentRepo.Transition(ctx, payment, enums.PaymentStatusCompleted); err != nil {
			return err
		}

		if payment.Buyer == nil || payment.Car == nil || payment.Car.Seller == nil {
			logCtx := s.logg.WithPaymentID(ctx, payment.ID.String())
			s.logg.Warn(logCtx, "webhook.fulfill.associations_missing")
			return nil
		}

		purchase := &models.Purchase{
			ID:          uuid.New(),
			BuyerID:     payment.UserID,
			CarID:       payment.CarID,
			PaymentID:   payment.ID,
			AmountCents: payment.AmountCents,
			Status:      enums.PurchaseStatusCompleted,
			PurchasedAt: time.Now(),
		}
		if err := s.purchaseRepo.WithTx(tx).Create(ctx, purchase); err != nil {
			if !db.IsUniqueViolation(err, "ux_purchases_payment_id") {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase")
			}
		}

		if err := s.carRepo.WithTx(tx).Unpublish(ctx, payment.CarID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unpublish car")
		}

		if err := s.queueFulfillmentMail(ctx, tx, payment, purchase.PurchasedAt); err != nil {
			return err
		}

		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_id": payment.ID.String(),
			"car_id":     payment.CarID.String(),
			"buyer_id":   payment.UserID.String(),
		})
		s.logg.Info(logCtx, "webhook.fulfill.settled")
		return nil
	})
}

// queueFulfillmentMail emits the invoice, confirmation, and sale notice
// intents, each gated on the contact fields its template needs. The
// confirmation only goes out together with an invoice.
func (s *Service) queueFulfillmentMail(ctx context.Context, tx *gorm.DB, payment *models.Payment, purchasedAt time.Time) error {
	buyer := payment.Buyer
	car := payment.Car

	var sellerName, sellerEmail string
	if car.Seller != nil {
		sellerName = car.Seller.Name
		sellerEmail = car.Seller.Email
	}

	if buyer.Email != "" && buyer.Name != "" && sellerName != "" {
		invoice := payloads.InvoiceEmailEvent{
			PaymentID:     payment.ID,
			InvoiceNumber: invoiceNumber(payment.ID),
			BuyerName:     buyer.Name,
			BuyerEmail:    buyer.Email,
			CarTitle:      car.Title,
			AmountCents:   payment.AmountCents,
			PurchasedAt:   purchasedAt,
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoiceEmailRequested,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data:          invoice,
			Version:       1,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue invoice email")
		}

		if sellerEmail != "" {
			confirmation := payloads.PurchaseEmailEvent{
				PaymentID:   payment.ID,
				BuyerName:   buyer.Name,
				BuyerEmail:  buyer.Email,
				CarTitle:    car.Title,
				CarBrand:    car.Brand,
				CarModel:    car.Model,
				CarYear:     car.Year,
				AmountCents: payment.AmountCents,
				SellerName:  sellerName,
				SellerEmail: sellerEmail,
			}
			if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPurchaseEmailRequested,
				AggregateType: enums.AggregatePayment,
				AggregateID:   payment.ID,
				Data:          confirmation,
				Version:       1,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue purchase email")
			}
		}
	} else {
		logCtx := s.logg.WithPaymentID(ctx, payment.ID.String())
		s.logg.Warn(logCtx, "webhook.fulfill.invoice_skipped")
	}

	if sellerEmail != "" && sellerName != "" && buyer.Email != "" && buyer.Name != "" {
		notice := payloads.SaleNoticeEmailEvent{
			PaymentID:   payment.ID,
			SellerName:  sellerName,
			SellerEmail: sellerEmail,
			BuyerName:   buyer.Name,
			BuyerEmail:  buyer.Email,
			CarTitle:    car.Title,
			AmountCents: payment.AmountCents,
			FeeCents:    payment.FeeCents,
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSaleNoticeEmailRequested,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data:          notice,
			Version:       1,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue sale notice email")
		}
	}

	return nil
}

// expire marks the payment behind an abandoned session failed. Sessions with
// no payment row and payments that already settled are acknowledged as is.
func (s *Service) expire(ctx context.Context, session *stripe.CheckoutSession) error {
	if session == nil || session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id required")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		payment, err := paymentRepo.FindByStripeID(ctx, session.ID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				s.logg.Warn(ctx, "webhook.expire.payment_missing")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}

		if payment.Status == enums.PaymentStatusCompleted {
			logCtx := s.logg.WithPaymentID(ctx, payment.ID.String())
			s.logg.Warn(logCtx, "webhook.expire.already_settled")
			return nil
		}
		if payment.Status == enums.PaymentStatusFailed {
			return nil
		}
		if err := paymentRepo.Transition(ctx, payment, enums.PaymentStatusFailed); err != nil {
			return err
		}

		logCtx := s.logg.WithPaymentID(ctx, payment.ID.String())
		s.logg.Info(logCtx, "webhook.expire.marked_failed")
		return nil
	})
}

// invoiceNumber derives a human readable invoice reference from the payment.
func invoiceNumber(paymentID uuid.UUID) string {
	id := paymentID.String()
	suffix := id
	if len(id) > 6 {
		suffix = id[len(id)-6:]
	}
	return fmt.Sprintf("INV-%d-%s", time.Now().UnixMilli(), strings.ToUpper(suffix))
}
