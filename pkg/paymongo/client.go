package paymongo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kmdeleon/tahanan-backend/pkg/config"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
	"github.com/kmdeleon/tahanan-backend/pkg/logger"
)

const checkoutSessionsPath = "/v1/checkout_sessions"

var (
	errSecretKeyRequired = errors.New("paymongo secret key is required")
	errLoggerRequired    = errors.New("paymongo logger is required")
)

// Client wraps the PayMongo REST API with centralized auth, logging, and
// error mapping. Only the hosted checkout-session surface is exposed.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	webhookKey string
	logger     *logger.Logger
}

// NewClient initializes the PayMongo wrapper and validates the credentials.
func NewClient(cfg config.PayMongoConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.paymongo.com"
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		secretKey:  secretKey,
		webhookKey: strings.TrimSpace(cfg.WebhookSecret),
		logger:     logg,
	}, nil
}

// SigningSecret returns the configured webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookKey
}

// CheckoutSession is the provider-side session the customer is redirected to.
type CheckoutSession struct {
	ID          string
	CheckoutURL string
}

// CreateCheckoutSession opens a hosted checkout session and returns its id
// and redirect URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(params.toRequest())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode checkout session request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+checkoutSessionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build checkout session request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+basicAuth(c.secretKey))

	c.log(ctx, "request", "create_checkout_session", map[string]any{
		"line_items": len(params.LineItems),
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call paymongo")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read paymongo response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log(ctx, "error", "create_checkout_session", map[string]any{
			"status": resp.StatusCode,
		})
		return nil, apiError(resp.StatusCode, payload)
	}

	var decoded checkoutSessionResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paymongo response")
	}
	if decoded.Data.ID == "" || decoded.Data.Attributes.CheckoutURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paymongo response missing session id or checkout url")
	}

	c.log(ctx, "response", "create_checkout_session", map[string]any{
		"session_id": decoded.Data.ID,
	})
	return &CheckoutSession{
		ID:          decoded.Data.ID,
		CheckoutURL: decoded.Data.Attributes.CheckoutURL,
	}, nil
}

type checkoutSessionResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			CheckoutURL string `json:"checkout_url"`
		} `json:"attributes"`
	} `json:"data"`
}

func apiError(status int, payload []byte) error {
	var decoded struct {
		Errors []struct {
			Code   string `json:"code"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	detail := ""
	if err := json.Unmarshal(payload, &decoded); err == nil && len(decoded.Errors) > 0 {
		detail = decoded.Errors[0].Detail
	}
	msg := fmt.Sprintf("paymongo returned status %d", status)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	return pkgerrors.New(pkgerrors.CodeDependency, msg)
}

func basicAuth(secretKey string) string {
	return base64.StdEncoding.EncodeToString([]byte(secretKey + ":"))
}

func (c *Client) log(ctx context.Context, phase, operation string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	merged := map[string]any{"provider": "paymongo", "operation": operation}
	for k, v := range fields {
		merged[k] = v
	}
	c.logger.Info(c.logger.WithFields(ctx, merged), "paymongo."+phase)
}
