package provider

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "aizeeno/internal/errors"
)

const testSecret = "whsec_test"

func signedHeader(payload []byte, secret string) string {
	ts := time.Now().Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, ComputeSignature(payload, ts, secret))
}

func TestConstructEventValidSignature(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"customer": "cus_1",
			"subscription": "sub_1",
			"payment_status": "paid",
			"metadata": {"username": "alice", "plan": "pro"}
		}}
	}`)

	event, err := ConstructEvent(payload, signedHeader(payload, testSecret), testSecret)
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutCompleted, event.Type)

	obj, err := event.Checkout()
	require.NoError(t, err)
	assert.Equal(t, "alice", obj.Username())
	assert.Equal(t, "sub_1", obj.Subscription)
	assert.Equal(t, "pro", obj.Metadata["plan"])
}

func TestConstructEventWrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)

	_, err := ConstructEvent(payload, signedHeader(payload, "whsec_other"), testSecret)
	assert.ErrorIs(t, err, apperrors.ErrSignatureInvalid)
}

func TestConstructEventTamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)
	header := signedHeader(payload, testSecret)

	tampered := []byte(`{"id":"evt_2","type":"checkout.session.completed","data":{"object":{}}}`)
	_, err := ConstructEvent(tampered, header, testSecret)
	assert.ErrorIs(t, err, apperrors.ErrSignatureInvalid)
}

func TestConstructEventMissingHeader(t *testing.T) {
	_, err := ConstructEvent([]byte(`{}`), "", testSecret)
	assert.ErrorIs(t, err, apperrors.ErrSignatureInvalid)
}

func TestConstructEventStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)
	ts := time.Now().Add(-time.Hour).Unix()
	header := fmt.Sprintf("t=%d,v1=%s", ts, ComputeSignature(payload, ts, testSecret))

	_, err := ConstructEvent(payload, header, testSecret)
	assert.ErrorIs(t, err, apperrors.ErrSignatureInvalid)
}

func TestConstructEventMalformedHeader(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"x","data":{"object":{}}}`)
	_, err := ConstructEvent(payload, "v1=deadbeef", testSecret)
	assert.ErrorIs(t, err, apperrors.ErrSignatureInvalid)
}

func TestParseEventRejectsGarbage(t *testing.T) {
	_, err := ParseEvent([]byte("not json"))
	assert.ErrorIs(t, err, apperrors.ErrEventUnparsable)

	_, err = ParseEvent([]byte(`{"id":"evt_1"}`))
	assert.ErrorIs(t, err, apperrors.ErrEventUnparsable)
}

func TestCheckoutUsernameFallsBackToClientReference(t *testing.T) {
	obj := &CheckoutObject{ClientReferenceID: "bob"}
	assert.Equal(t, "bob", obj.Username())

	obj.Metadata = map[string]string{"username": "alice"}
	assert.Equal(t, "alice", obj.Username())
}
