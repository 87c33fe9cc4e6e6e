package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kmdeleon/tahanan-backend/internal/reconcile"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
	"github.com/kmdeleon/tahanan-backend/pkg/paymongo"
)

type stubReconciler struct {
	payload []byte
	outcome *reconcile.Outcome
	err     error
}

func (s *stubReconciler) ProcessPayMongoEvent(ctx context.Context, payload []byte) (*reconcile.Outcome, error) {
	s.payload = payload
	if s.err != nil {
		return nil, s.err
	}
	return s.outcome, nil
}

type stubSecretSource string

func (s stubSecretSource) SigningSecret() string { return string(s) }

func signEvent(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s", timestamp, payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPayMongoWebhookDeliversPayload(t *testing.T) {
	svc := &stubReconciler{outcome: &reconcile.Outcome{Status: reconcile.OutcomeSuccess, Processed: 2}}
	payload := `{"data":{"id":"evt_1"}}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paymongo", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	PayMongoWebhook(svc, nil, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if string(svc.payload) != payload {
		t.Fatalf("payload not forwarded verbatim")
	}

	var envelope struct {
		Data reconcile.Outcome `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Processed != 2 {
		t.Fatalf("expected outcome echoed, got %+v", envelope.Data)
	}
}

func TestPayMongoWebhookVerifiesSignature(t *testing.T) {
	svc := &stubReconciler{outcome: &reconcile.Outcome{Status: reconcile.OutcomeSuccess}}
	secret := "whsk_test"
	payload := []byte(`{"data":{"id":"evt_2"}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paymongo", strings.NewReader(string(payload)))
	req.Header.Set(paymongo.SignatureHeader, "t=1700000000,te="+signEvent(secret, "1700000000", payload))
	rec := httptest.NewRecorder()
	PayMongoWebhook(svc, stubSecretSource(secret), nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPayMongoWebhookRejectsBadSignature(t *testing.T) {
	svc := &stubReconciler{outcome: &reconcile.Outcome{Status: reconcile.OutcomeSuccess}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paymongo", strings.NewReader(`{}`))
	req.Header.Set(paymongo.SignatureHeader, "t=1,te=deadbeef")
	rec := httptest.NewRecorder()
	PayMongoWebhook(svc, stubSecretSource("whsk_test"), nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.payload != nil {
		t.Fatalf("reconciler should not run on bad signature")
	}
}

func TestPayMongoWebhookPropagatesValidationError(t *testing.T) {
	svc := &stubReconciler{err: pkgerrors.New(pkgerrors.CodeValidation, "decode webhook payload")}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paymongo", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	PayMongoWebhook(svc, nil, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
