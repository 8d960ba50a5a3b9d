package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "aizeeno/internal/errors"
)

const lookupTimeout = 10 * time.Second

// CheckoutSession is the expanded view of a checkout session returned by a
// direct provider lookup.
type CheckoutSession struct {
	ID             string `json:"id"`
	CustomerID     string `json:"customer"`
	SubscriptionID string `json:"subscription"`
	PaymentStatus  string `json:"payment_status"`
}

// Paid reports whether the session settled.
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == "paid"
}

// Subscription is the provider-side subscription state.
type Subscription struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
}

// Client looks up checkout sessions and subscriptions at the provider.
// Lookups are bounded by a timeout; a timeout surfaces as
// ErrProviderLookupFailed, never as a silent success.
type Client interface {
	RetrieveCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	RetrieveSubscription(ctx context.Context, id string) (*Subscription, error)
}

// HTTPClient is a bearer-authenticated REST client for the provider API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a provider client against the given API base URL.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: lookupTimeout},
	}
}

// RetrieveCheckoutSession fetches a checkout session with the subscription
// expanded, so a stable subscription id is available to the caller.
func (c *HTTPClient) RetrieveCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	endpoint := fmt.Sprintf("%s/v1/checkout/sessions/%s?%s",
		c.baseURL, url.PathEscape(id), url.Values{"expand[]": {"subscription"}}.Encode())

	var raw struct {
		ID            string          `json:"id"`
		Customer      string          `json:"customer"`
		Subscription  json.RawMessage `json:"subscription"`
		PaymentStatus string          `json:"payment_status"`
	}
	if err := c.get(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	session := &CheckoutSession{
		ID:            raw.ID,
		CustomerID:    raw.Customer,
		PaymentStatus: raw.PaymentStatus,
	}
	// Expanded responses carry the subscription as an object, plain ones as
	// a string id.
	if len(raw.Subscription) > 0 {
		var subID string
		if err := json.Unmarshal(raw.Subscription, &subID); err == nil {
			session.SubscriptionID = subID
		} else {
			var sub Subscription
			if err := json.Unmarshal(raw.Subscription, &sub); err == nil {
				session.SubscriptionID = sub.ID
			}
		}
	}
	return session, nil
}

// RetrieveSubscription fetches the provider-side subscription state.
func (c *HTTPClient) RetrieveSubscription(ctx context.Context, id string) (*Subscription, error) {
	endpoint := fmt.Sprintf("%s/v1/subscriptions/%s", c.baseURL, url.PathEscape(id))
	var sub Subscription
	if err := c.get(ctx, endpoint, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *HTTPClient) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrProviderLookupFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrProviderLookupFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", apperrors.ErrProviderLookupFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: provider returned status %d", apperrors.ErrProviderLookupFailed, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", apperrors.ErrProviderLookupFailed, err)
	}
	return nil
}
