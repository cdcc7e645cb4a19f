package dropi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mercaline/tienda-backend/pkg/config"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
	"github.com/mercaline/tienda-backend/pkg/logger"
)

var (
	errBaseURLRequired = errors.New("dropi base url is required")
	errAPIKeyRequired  = errors.New("dropi api key is required")
	errLoggerRequired  = errors.New("dropi logger is required")
)

// ErrNotFound marks a catalog entry the supplier does not know.
var ErrNotFound = errors.New("dropi: not found")

// Client wraps the supplier REST API with centralized auth, logging,
// retries, and error mapping.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	webhookSecret string
	maxRetries    int
	logger        *logger.Logger
}

// NewClient initializes the supplier API wrapper and validates credentials.
func NewClient(ctx context.Context, cfg config.DropiConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		apiKey:        apiKey,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		maxRetries:    cfg.MaxRetries,
		logger:        logg,
	}

	logg.Info(ctx, "dropi client initialized")
	return c, nil
}

// SigningSecret returns the webhook shared secret, empty when HMAC
// verification is disabled for the deployment.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// CreateOrder dispatches one shipment payload to the supplier. Transient
// failures (network errors, 5xx) are retried with exponential backoff up to
// the configured attempt budget; 4xx responses are returned immediately.
func (c *Client) CreateOrder(ctx context.Context, payload OrderPayload) (*OrderResponse, error) {
	c.log(ctx, "request", "create_order", map[string]any{
		"id_order": payload.IDOrder,
		"items":    len(payload.Items),
	})

	var result OrderResponse
	backoff := retry.WithMaxRetries(uint64(c.retries()), retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		status, body, err := c.do(ctx, http.MethodPost, "/api/orders", payload)
		if err != nil {
			return retry.RetryableError(err)
		}
		if status >= 500 {
			return retry.RetryableError(fmt.Errorf("supplier responded %d: %s", status, truncate(body)))
		}
		if status >= 400 {
			return fmt.Errorf("supplier rejected order: %d: %s", status, truncate(body))
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("decode order response: %w", err)
		}
		return nil
	})
	if err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"id_order": payload.IDOrder, "error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dispatch order to supplier")
	}

	c.log(ctx, "response", "create_order", map[string]any{
		"id_order":          payload.IDOrder,
		"supplier_order_id": result.OrderID,
		"status":            result.Status,
	})
	return &result, nil
}

// GetProduct fetches one supplier catalog entry by its external id.
func (c *Client) GetProduct(ctx context.Context, externalID string) (*Product, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier product id is required")
	}

	status, body, err := c.do(ctx, http.MethodGet, "/api/products/"+externalID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch supplier product")
	}
	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if status >= 400 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("supplier responded %d: %s", status, truncate(body)),
			"fetch supplier product")
	}

	var product Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode supplier product")
	}
	return &product, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Dropi-Integration-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, payload, nil
}

func (c *Client) retries() int {
	if c.maxRetries < 0 {
		return 0
	}
	return c.maxRetries
}

func (c *Client) log(ctx context.Context, phase, operation string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	enriched := map[string]any{"dropi_phase": phase, "dropi_op": operation}
	for k, v := range fields {
		enriched[k] = v
	}
	ctx = c.logger.WithFields(ctx, enriched)
	c.logger.Info(ctx, fmt.Sprintf("dropi.%s", operation))
}

func truncate(body []byte) string {
	const max = 512
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
