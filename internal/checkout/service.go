package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/rmatassie/motormarche-backend/internal/cars"
	"github.com/rmatassie/motormarche-backend/internal/payments"
	"github.com/rmatassie/motormarche-backend/pkg/config"
	"github.com/rmatassie/motormarche-backend/pkg/db/models"
	"github.com/rmatassie/motormarche-backend/pkg/enums"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
	"github.com/rmatassie/motormarche-backend/pkg/logger"
)

// Marketplace commission applied on top of the sale amount.
const feePercent = 5

// SessionDTO is the payload returned to the storefront to start payment.
type SessionDTO struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CreateSessionInput carries the validated checkout request.
type CreateSessionInput struct {
	CarID uuid.UUID
}

// Service creates Stripe Checkout Sessions for car purchases.
type Service interface {
	CreateSession(ctx context.Context, buyerID uuid.UUID, input CreateSessionInput) (*SessionDTO, error)
}

// ServiceParams packages the checkout service dependencies.
type ServiceParams struct {
	CarRepo     *cars.Repository
	PaymentRepo *payments.Repository
	Stripe      StripeCheckoutClient
	Checkout    config.CheckoutConfig
	Logger      *logger.Logger
}

type service struct {
	carRepo     *cars.Repository
	paymentRepo *payments.Repository
	stripe      StripeCheckoutClient
	checkoutCfg config.CheckoutConfig
	logg        *logger.Logger
}

// NewService constructs a checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.CarRepo == nil {
		return nil, fmt.Errorf("car repository required")
	}
	if params.PaymentRepo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if params.Stripe == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &service{
		carRepo:     params.CarRepo,
		paymentRepo: params.PaymentRepo,
		stripe:      params.Stripe,
		checkoutCfg: params.Checkout,
		logg:        params.Logger,
	}, nil
}

func (s *service) CreateSession(ctx context.Context, buyerID uuid.UUID, input CreateSessionInput) (*SessionDTO, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}

	car, err := s.carRepo.FindByID(ctx, input.CarID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "car not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load car")
	}
	if !car.Published {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "car is no longer available")
	}
	if car.UserID == buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot buy your own car")
	}

	session, err := s.stripe.CreateSession(ctx, s.sessionParams(car, buyerID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	feeCents := car.PriceCents * feePercent / 100
	payment := &models.Payment{
		ID:          uuid.New(),
		StripeID:    session.ID,
		AmountCents: car.PriceCents,
		FeeCents:    feeCents,
		Status:      enums.PaymentStatusPending,
		UserID:      buyerID,
		CarID:       car.ID,
	}
	if _, err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record pending payment")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_id": payment.ID.String(),
			"car_id":     car.ID.String(),
			"session_id": session.ID,
		})
		s.logg.Info(logCtx, "checkout.session.created")
	}

	return &SessionDTO{SessionID: session.ID, URL: session.URL}, nil
}

func (s *service) sessionParams(car *models.Car, buyerID uuid.UUID) *stripe.CheckoutSessionParams {
	base := strings.TrimRight(s.checkoutCfg.BaseURL, "/")
	name := fmt.Sprintf("%s %s %s (%d)", car.Brand, car.Model, car.Title, car.Year)

	return &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(base + s.checkoutCfg.SuccessURL),
		CancelURL:          stripe.String(base + s.checkoutCfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyEUR)),
					UnitAmount: stripe.Int64(car.PriceCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
			},
		},
		Metadata: map[string]string{
			"car_id":   car.ID.String(),
			"buyer_id": buyerID.String(),
		},
	}
}
