package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/rmatassie/motormarche-backend/pkg/config"
	"github.com/rmatassie/motormarche-backend/pkg/logger"
)

var errAPIKeyRequired = errors.New("sendgrid api key is required")

// Message is a single outbound email.
type Message struct {
	ToName    string
	ToEmail   string
	Subject   string
	HTML      string
	PlainText string
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client wraps the SendGrid v3 mail API.
type Client struct {
	sg   *sendgrid.Client
	from *sgmail.Email
}

// NewClient builds a SendGrid-backed sender using the configured key and from address.
func NewClient(ctx context.Context, cfg config.SendgridConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, errors.New("sendgrid from email is required")
	}

	if logg != nil {
		logg.Info(ctx, "sendgrid client initialized")
	}

	return &Client{
		sg:   sendgrid.NewSendClient(apiKey),
		from: sgmail.NewEmail(cfg.FromName, cfg.DefaultFrom),
	}, nil
}

// Send delivers one message, failing on any non-2xx SendGrid response.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return errors.New("recipient email is required")
	}

	to := sgmail.NewEmail(msg.ToName, msg.ToEmail)
	plain := msg.PlainText
	if plain == "" {
		plain = msg.Subject
	}
	email := sgmail.NewSingleEmail(c.from, msg.Subject, to, plain, msg.HTML)

	resp, err := c.sg.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
