// Package provider speaks to the external payment provider: it verifies
// pushed webhook events and looks up checkout sessions and subscriptions.
package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "aizeeno/internal/errors"
)

// Event types the reconciler reacts to. Any other type is ignored.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// signatureTolerance bounds how old a signed timestamp may be before the
// delivery is rejected as a possible replay.
const signatureTolerance = 5 * time.Minute

// Event is a provider-pushed notification.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutObject is the checkout session payload carried by a
// checkout.session.completed event. In webhook payloads customer and
// subscription are plain identifiers, not expanded objects.
type CheckoutObject struct {
	ID                string            `json:"id"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	PaymentStatus     string            `json:"payment_status"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

// SubscriptionObject is the subscription payload carried by a
// customer.subscription.deleted event.
type SubscriptionObject struct {
	ID       string            `json:"id"`
	Customer string            `json:"customer"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

// Checkout decodes the event payload as a checkout session object.
func (e *Event) Checkout() (*CheckoutObject, error) {
	var obj CheckoutObject
	if err := json.Unmarshal(e.Data.Object, &obj); err != nil {
		return nil, fmt.Errorf("%w: decode checkout object: %v", apperrors.ErrEventUnparsable, err)
	}
	return &obj, nil
}

// Subscription decodes the event payload as a subscription object.
func (e *Event) Subscription() (*SubscriptionObject, error) {
	var obj SubscriptionObject
	if err := json.Unmarshal(e.Data.Object, &obj); err != nil {
		return nil, fmt.Errorf("%w: decode subscription object: %v", apperrors.ErrEventUnparsable, err)
	}
	return &obj, nil
}

// Username extracts the bound username from checkout metadata, falling back
// to the client reference id set at session creation. Empty means the event
// is an orphan.
func (o *CheckoutObject) Username() string {
	if u := o.Metadata["username"]; u != "" {
		return u
	}
	return o.ClientReferenceID
}

// ConstructEvent verifies the event's authenticity against the signature
// header and parses it. The header carries a signed timestamp and one or more
// HMAC-SHA256 signatures over "<timestamp>.<payload>":
//
//	t=1492774577,v1=5257a869e7...
//
// A missing, malformed, expired, or non-matching signature yields
// ErrSignatureInvalid.
func ConstructEvent(payload []byte, sigHeader, secret string) (*Event, error) {
	if err := verifySignature(payload, sigHeader, secret, time.Now()); err != nil {
		return nil, err
	}
	return ParseEvent(payload)
}

// ParseEvent parses an event without signature verification. Only used when
// no webhook secret is configured.
func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEventUnparsable, err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("%w: missing type", apperrors.ErrEventUnparsable)
	}
	return &event, nil
}

func verifySignature(payload []byte, sigHeader, secret string, now time.Time) error {
	if sigHeader == "" {
		return fmt.Errorf("%w: missing signature header", apperrors.ErrSignatureInvalid)
	}

	var ts int64 = -1
	var candidates []string
	for _, part := range strings.Split(sigHeader, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: malformed timestamp", apperrors.ErrSignatureInvalid)
			}
			ts = parsed
		case "v1":
			candidates = append(candidates, v)
		}
	}
	if ts < 0 || len(candidates) == 0 {
		return fmt.Errorf("%w: malformed signature header", apperrors.ErrSignatureInvalid)
	}
	if now.Sub(time.Unix(ts, 0)) > signatureTolerance {
		return fmt.Errorf("%w: signed timestamp outside tolerance", apperrors.ErrSignatureInvalid)
	}

	expected := ComputeSignature(payload, ts, secret)
	for _, candidate := range candidates {
		if hmac.Equal([]byte(candidate), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching v1 signature", apperrors.ErrSignatureInvalid)
}

// ComputeSignature returns the hex HMAC-SHA256 signature of the payload under
// the given signed timestamp and secret.
func ComputeSignature(payload []byte, ts int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
