package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/haulmart-backend/api/responses"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/gateway"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
)

const maxWebhookBody = 1 << 20

// GatewayWebhookService applies an authenticated gateway notification.
type GatewayWebhookService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// GatewayWebhook hands the raw body and signature header to the webhook
// service; the signature covers the exact bytes received.
func GatewayWebhook(svc GatewayWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(gateway.SignatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature missing"))
			return
		}

		if err := svc.HandleWebhook(ctx, payload, signature); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
