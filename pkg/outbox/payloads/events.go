package payloads

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceEmailEvent asks the mailer to send the buyer their invoice.
type InvoiceEmailEvent struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	InvoiceNumber string    `json:"invoice_number"`
	BuyerName     string    `json:"buyer_name"`
	BuyerEmail    string    `json:"buyer_email"`
	CarTitle      string    `json:"car_title"`
	AmountCents   int64     `json:"amount_cents"`
	PurchasedAt   time.Time `json:"purchased_at"`
}

// PurchaseEmailEvent asks the mailer to confirm the purchase to the buyer.
type PurchaseEmailEvent struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	BuyerName   string    `json:"buyer_name"`
	BuyerEmail  string    `json:"buyer_email"`
	CarTitle    string    `json:"car_title"`
	CarBrand    string    `json:"car_brand"`
	CarModel    string    `json:"car_model"`
	CarYear     int       `json:"car_year"`
	AmountCents int64     `json:"amount_cents"`
	SellerName  string    `json:"seller_name"`
	SellerEmail string    `json:"seller_email"`
}

// SaleNoticeEmailEvent asks the mailer to notify the seller of a sale.
type SaleNoticeEmailEvent struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	SellerName  string    `json:"seller_name"`
	SellerEmail string    `json:"seller_email"`
	BuyerName   string    `json:"buyer_name"`
	BuyerEmail  string    `json:"buyer_email"`
	CarTitle    string    `json:"car_title"`
	AmountCents int64     `json:"amount_cents"`
	FeeCents    int64     `json:"fee_cents"`
}
