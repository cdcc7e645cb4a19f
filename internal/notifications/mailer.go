// Package notifications sends transactional email through the Sendgrid
// REST API. Every send is best effort: callers fire after commit and
// swallow failures.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mercaline/tienda-backend/pkg/config"
	"github.com/mercaline/tienda-backend/pkg/db/models"
	"github.com/mercaline/tienda-backend/pkg/logger"
)

const defaultBaseURL = "https://api.sendgrid.com"

// Mailer talks to the Sendgrid v3 mail send endpoint.
type Mailer struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       string
	logg       *logger.Logger
}

// NewMailer builds the Sendgrid mailer.
func NewMailer(cfg config.SendgridConfig, logg *logger.Logger) (*Mailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, fmt.Errorf("sendgrid from address is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Mailer{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     cfg.APIKey,
		from:       cfg.DefaultFrom,
		logg:       logg,
	}, nil
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type personalization struct {
	To []mailAddress `json:"to"`
}

type mailPayload struct {
	Personalizations []personalization `json:"personalizations"`
	From             mailAddress       `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
}

// SendOrderConfirmation emails the order summary to the shipping
// address contact. Orders without an email are skipped silently.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	if order.ShippingAddress == nil || strings.TrimSpace(order.ShippingAddress.Email) == "" {
		m.logg.Info(m.logg.WithOrderID(ctx, order.ID), "order has no email, skipping confirmation")
		return nil
	}

	payload := mailPayload{
		Personalizations: []personalization{{
			To: []mailAddress{{
				Email: order.ShippingAddress.Email,
				Name:  order.ShippingAddress.FullName,
			}},
		}},
		From:    mailAddress{Email: m.from},
		Subject: fmt.Sprintf("Confirmacion de pedido #%d", order.ID),
		Content: []mailContent{{
			Type:  "text/plain",
			Value: confirmationBody(order),
		}},
	}

	return m.send(ctx, payload)
}

func (m *Mailer) send(ctx context.Context, payload mailPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

func confirmationBody(order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\n", order.ShippingAddress.FullName)
	fmt.Fprintf(&b, "Recibimos tu pedido #%d. Resumen:\n\n", order.ID)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "  %d x %s - $%s\n", item.Quantity, item.Name, item.Price.StringFixed(0))
	}
	fmt.Fprintf(&b, "\nEnvio: $%s\n", order.DeliveryCost.StringFixed(0))
	fmt.Fprintf(&b, "Total: $%s\n\n", order.Total.StringFixed(0))
	b.WriteString("Te avisaremos cuando tu pedido sea despachado.\n")
	return b.String()
}

// NoopMailer satisfies the confirmation interface when email transport
// is not configured.
type NoopMailer struct {
	logg *logger.Logger
}

// NewNoopMailer builds a mailer that only logs.
func NewNoopMailer(logg *logger.Logger) *NoopMailer {
	return &NoopMailer{logg: logg}
}

func (n *NoopMailer) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	if n.logg != nil && order != nil {
		n.logg.Info(n.logg.WithOrderID(ctx, order.ID), "email transport disabled, confirmation not sent")
	}
	return nil
}
