package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kmdeleon/tahanan-backend/pkg/config"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
	"github.com/kmdeleon/tahanan-backend/pkg/logger"
)

const (
	tokenPath  = "/v1/oauth2/token"
	ordersPath = "/v2/checkout/orders"

	// tokenExpiryMargin is shaved off the advertised token lifetime so a
	// token is never used right at its expiry boundary.
	tokenExpiryMargin = 30 * time.Second
)

// Client talks to the PayPal Orders API using client-credentials OAuth.
// Access tokens are cached until shortly before expiry.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	logger       *logger.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg config.PayPalConfig, logg *logger.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("paypal client id and secret are required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("paypal base url is required")
	}
	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      baseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		logger:       logg,
	}, nil
}

// Order is a created PayPal order with the buyer approval link extracted
// from the HATEOAS links.
type Order struct {
	ID         string
	ApproveURL string
}

// CreateOrder creates a CAPTURE-intent order and returns the approval URL
// the buyer must be redirected to.
func (c *Client) CreateOrder(ctx context.Context, params OrderParams) (*Order, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(params.toRequest())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode paypal order")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ordersPath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paypal order request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call paypal orders api")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read paypal order response")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error(ctx, "paypal create order failed", fmt.Errorf("status=%d body=%s", resp.StatusCode, payload))
		return nil, apiError(resp.StatusCode, payload)
	}

	var decoded orderResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paypal order response")
	}
	if decoded.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paypal order response missing id")
	}

	approveURL := ""
	for _, link := range decoded.Links {
		if link.Rel == "approve" {
			approveURL = link.Href
			break
		}
	}
	if approveURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paypal order response missing approve link")
	}

	c.logger.Info(c.logger.WithFields(ctx, map[string]any{
		"order_id": decoded.ID,
		"status":   decoded.Status,
	}), "paypal order created")

	return &Order{ID: decoded.ID, ApproveURL: approveURL}, nil
}

// token returns a cached access token, fetching a fresh one when the cache
// is empty or close to expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paypal token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call paypal token endpoint")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read paypal token response")
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error(ctx, "paypal oauth token request failed", fmt.Errorf("status=%d body=%s", resp.StatusCode, payload))
		return "", apiError(resp.StatusCode, payload)
	}

	var decoded struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paypal token response")
	}
	if decoded.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "paypal token response missing access_token")
	}

	c.accessToken = decoded.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(decoded.ExpiresIn)*time.Second - tokenExpiryMargin)
	return c.accessToken, nil
}

func apiError(status int, payload []byte) error {
	var decoded struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(payload, &decoded)
	if decoded.Name != "" {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paypal: %s: %s", decoded.Name, decoded.Message))
	}
	return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paypal: unexpected status %d", status))
}
