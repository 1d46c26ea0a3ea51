package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshops/api/internal/model"
)

func TestWebhookSubscribed(t *testing.T) {
	w := &model.Webhook{Events: model.StringList{"route.dispatched", "order.delayed"}}
	assert.True(t, w.Subscribed("route.dispatched"))
	assert.True(t, w.Subscribed("order.delayed"))
	assert.False(t, w.Subscribed("order.approved"))

	all := &model.Webhook{Events: model.StringList{"all"}}
	assert.True(t, all.Subscribed("route.dispatched"))
	assert.True(t, all.Subscribed("order.approved"))
}

func TestComputeAndVerifySignature(t *testing.T) {
	body := []byte(`{"event_type":"route.dispatched"}`)
	sig := computeSignature("my-secret", "1756500000", body)

	assert.Len(t, sig, 64) // hex SHA-256
	assert.True(t, VerifySignature("my-secret", "1756500000", body, sig))
	assert.False(t, VerifySignature("wrong-secret", "1756500000", body, sig))
	assert.False(t, VerifySignature("my-secret", "1756500001", body, sig))
	assert.False(t, VerifySignature("my-secret", "1756500000", []byte(`{}`), sig))
}

func TestSendWebhookSignsRequest(t *testing.T) {
	var gotSignature, gotTimestamp string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Webhook-Signature")
		gotTimestamp = r.Header.Get("X-Webhook-Timestamp")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"received":true}`))
	}))
	defer srv.Close()

	svc := NewWebhookService(nil)
	webhook := &model.Webhook{
		URL:     srv.URL,
		Secret:  "my-secret",
		Timeout: 5,
	}
	body, err := json.Marshal(map[string]string{"event_type": "order.approved"})
	require.NoError(t, err)

	status, respBody, duration, err := svc.sendWebhook(webhook, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"received":true}`, respBody)
	assert.GreaterOrEqual(t, duration, 0)
	assert.NotEmpty(t, gotTimestamp)
	assert.True(t, VerifySignature("my-secret", gotTimestamp, gotBody, gotSignature))
}

func TestSendWebhookNoSecretOmitsSignature(t *testing.T) {
	var gotSignature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Webhook-Signature")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	svc := NewWebhookService(nil)
	webhook := &model.Webhook{URL: srv.URL, Timeout: 5}

	status, _, _, err := svc.sendWebhook(webhook, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, gotSignature)
}

func TestIsKnownEventType(t *testing.T) {
	assert.True(t, isKnownEventType("route.dispatched"))
	assert.True(t, isKnownEventType("order.approved"))
	assert.True(t, isKnownEventType("order.delayed"))
	assert.True(t, isKnownEventType("all"))
	assert.False(t, isKnownEventType("device.online"))
	assert.False(t, isKnownEventType(""))
}
