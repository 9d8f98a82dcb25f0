package webhooks

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/gateway"
)

type fakeWebhookService struct {
	payload   []byte
	signature string
	err       error
}

func (f *fakeWebhookService) HandleWebhook(_ context.Context, payload []byte, signature string) error {
	f.payload = payload
	f.signature = signature
	return f.err
}

func TestGatewayWebhookPassesRawBody(t *testing.T) {
	svc := &fakeWebhookService{}
	payload := []byte(`{"event":"charge.completed","data":{"id":1,"tx_ref":"PAY-1","status":"successful"}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gateway", bytes.NewReader(payload))
	req.Header.Set(gateway.SignatureHeader, "abc123")
	rec := httptest.NewRecorder()
	GatewayWebhook(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, payload, svc.payload)
	assert.Equal(t, "abc123", svc.signature)
}

func TestGatewayWebhookMissingSignature(t *testing.T) {
	svc := &fakeWebhookService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gateway", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	GatewayWebhook(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, svc.payload)
}

func TestGatewayWebhookFailureIsRetryable(t *testing.T) {
	svc := &fakeWebhookService{err: pkgerrors.New(pkgerrors.CodeUpstream, "gateway unavailable")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gateway", bytes.NewReader([]byte(`{}`)))
	req.Header.Set(gateway.SignatureHeader, "sig")
	rec := httptest.NewRecorder()
	GatewayWebhook(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
