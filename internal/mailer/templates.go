package mailer

import (
	"fmt"
	"time"

	"github.com/rmatassie/motormarche-backend/pkg/mail"
	"github.com/rmatassie/motormarche-backend/pkg/outbox/payloads"
)

// euros renders a cent amount as a user facing euro string.
func euros(cents int64) string {
	return fmt.Sprintf("%.2f €", float64(cents)/100)
}

func invoiceMessage(p payloads.InvoiceEmailEvent) mail.Message {
	date := p.PurchasedAt.Format("02/01/2006")
	if p.PurchasedAt.IsZero() {
		date = time.Now().Format("02/01/2006")
	}
	amount := euros(p.AmountCents)
	html := fmt.Sprintf(
		`<div style="font-family: Arial, sans-serif; max-width: 700px; margin: 0 auto; border: 1px solid #ddd;">
  <div style="background-color: #007bff; color: white; padding: 20px; text-align: center;">
    <h1 style="margin: 0;">INVOICE</h1>
    <p style="margin: 5px 0 0 0;">Number: %s</p>
  </div>
  <div style="padding: 20px;">
    <h3 style="color: #333;">Billed to:</h3>
    <p style="margin: 5px 0;"><strong>%s</strong></p>
    <p style="margin: 5px 0;">%s</p>
    <p style="margin: 5px 0;"><strong>Date:</strong> %s</p>
    <table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
      <thead>
        <tr style="background-color: #f8f9fa;">
          <th style="border: 1px solid #ddd; padding: 12px; text-align: left;">Description</th>
          <th style="border: 1px solid #ddd; padding: 12px; text-align: center;">Quantity</th>
          <th style="border: 1px solid #ddd; padding: 12px; text-align: right;">Total</th>
        </tr>
      </thead>
      <tbody>
        <tr>
          <td style="border: 1px solid #ddd; padding: 12px;"><strong>%s</strong></td>
          <td style="border: 1px solid #ddd; padding: 12px; text-align: center;">1</td>
          <td style="border: 1px solid #ddd; padding: 12px; text-align: right;"><strong>%s</strong></td>
        </tr>
      </tbody>
    </table>
    <div style="text-align: right;">
      <p><strong>TOTAL: %s</strong> (VAT 0%%)</p>
    </div>
    <div style="background-color: #d4edda; border: 1px solid #c3e6cb; color: #155724; padding: 15px; border-radius: 5px; margin: 20px 0; text-align: center;">
      <strong>PAYMENT CONFIRMED</strong><br>
      <small>Your payment was processed successfully</small>
    </div>
    <p style="color: #666; font-size: 14px;">The seller has been notified of your purchase and their contact details follow in a separate email.</p>
  </div>
</div>`,
		p.InvoiceNumber, p.BuyerName, p.BuyerEmail, date, p.CarTitle, amount, amount,
	)
	return mail.Message{
		ToName:    p.BuyerName,
		ToEmail:   p.BuyerEmail,
		Subject:   fmt.Sprintf("Invoice #%s - Purchase confirmed", p.InvoiceNumber),
		HTML:      html,
		PlainText: fmt.Sprintf("Invoice %s. %s, total %s. Payment confirmed.", p.InvoiceNumber, p.CarTitle, amount),
	}
}

func purchaseConfirmationMessage(p payloads.PurchaseEmailEvent) mail.Message {
	amount := euros(p.AmountCents)
	html := fmt.Sprintf(
		`<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #333; text-align: center;">Congratulations %s!</h1>
  <div style="background-color: #d4edda; border: 1px solid #c3e6cb; color: #155724; padding: 15px; border-radius: 5px; margin: 20px 0; text-align: center;">
    <strong>Your purchase has been confirmed</strong>
  </div>
  <h3 style="color: #333;">Purchased vehicle:</h3>
  <div style="background-color: #f5f5f5; padding: 15px; border-radius: 8px; margin: 15px 0;">
    <p style="margin: 5px 0;"><strong>Title:</strong> %s</p>
    <p style="margin: 5px 0;"><strong>Brand:</strong> %s</p>
    <p style="margin: 5px 0;"><strong>Model:</strong> %s</p>
    <p style="margin: 5px 0;"><strong>Year:</strong> %d</p>
    <p style="margin: 5px 0;"><strong>Price:</strong> %s</p>
  </div>
  <h3 style="color: #333;">Seller contact:</h3>
  <div style="background-color: #e3f2fd; padding: 15px; border-radius: 8px; margin: 15px 0;">
    <p style="margin: 5px 0;"><strong>Name:</strong> %s</p>
    <p style="margin: 5px 0;"><strong>Email:</strong> <a href="mailto:%s">%s</a></p>
  </div>
  <p>You can now contact the seller directly to arrange the handover of the vehicle.</p>
</body>`,
		p.BuyerName, p.CarTitle, p.CarBrand, p.CarModel, p.CarYear, amount,
		p.SellerName, p.SellerEmail, p.SellerEmail,
	)
	return mail.Message{
		ToName:    p.BuyerName,
		ToEmail:   p.BuyerEmail,
		Subject:   "Purchase confirmed - Seller contact details",
		HTML:      html,
		PlainText: fmt.Sprintf("Purchase of %s confirmed. Seller: %s <%s>.", p.CarTitle, p.SellerName, p.SellerEmail),
	}
}

func saleNoticeMessage(p payloads.SaleNoticeEmailEvent) mail.Message {
	amount := euros(p.AmountCents)
	html := fmt.Sprintf(
		`<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #333; text-align: center;">Congratulations %s!</h1>
  <div style="background-color: #d4edda; border: 1px solid #c3e6cb; color: #155724; padding: 15px; border-radius: 5px; margin: 20px 0; text-align: center;">
    <strong>Your vehicle has been sold</strong>
  </div>
  <h3 style="color: #333;">Sold vehicle:</h3>
  <div style="background-color: #f5f5f5; padding: 15px; border-radius: 8px; margin: 15px 0;">
    <p style="margin: 5px 0;"><strong>Title:</strong> %s</p>
    <p style="margin: 5px 0;"><strong>Sale price:</strong> %s</p>
    <p style="margin: 5px 0;"><strong>Marketplace fee:</strong> %s</p>
  </div>
  <h3 style="color: #333;">Buyer contact:</h3>
  <div style="background-color: #e8f5e8; padding: 15px; border-radius: 8px; margin: 15px 0;">
    <p style="margin: 5px 0;"><strong>Name:</strong> %s</p>
    <p style="margin: 5px 0;"><strong>Email:</strong> <a href="mailto:%s">%s</a></p>
  </div>
  <p>The buyer will likely contact you to arrange the handover of the vehicle.</p>
</body>`,
		p.SellerName, p.CarTitle, amount, euros(p.FeeCents),
		p.BuyerName, p.BuyerEmail, p.BuyerEmail,
	)
	return mail.Message{
		ToName:    p.SellerName,
		ToEmail:   p.SellerEmail,
		Subject:   "Sale confirmed - Buyer contact details",
		HTML:      html,
		PlainText: fmt.Sprintf("%s sold for %s. Buyer: %s <%s>.", p.CarTitle, amount, p.BuyerName, p.BuyerEmail),
	}
}
