package controllers

import (
	"net/http"

	"github.com/angelmondragon/haulmart-backend/api/controllers/payments"
	"github.com/angelmondragon/haulmart-backend/api/controllers/payouts"
	"github.com/angelmondragon/haulmart-backend/api/middleware"
	"github.com/angelmondragon/haulmart-backend/api/responses"
	"github.com/angelmondragon/haulmart-backend/api/validators"
	internalpayments "github.com/angelmondragon/haulmart-backend/internal/payments"
	internalpayouts "github.com/angelmondragon/haulmart-backend/internal/payouts"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
)

const maxAdminNoteLength = 1000

type reviewRequest struct {
	Action string `json:"action" validate:"required,oneof=APPROVE REJECT"`
	Notes  string `json:"notes,omitempty"`
}

// AdminProcessPayout approves (and transfers) or rejects a pending payout.
func AdminProcessPayout(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payoutID, err := validators.ParseUUIDParam(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req, err := svc.ProcessPayoutRequest(r.Context(), internalpayouts.ProcessPayoutInput{
			RequestID: payoutID,
			Action:    enums.ReviewAction(payload.Action),
			Actor:     actor,
			Notes:     validators.SanitizeString(payload.Notes, maxAdminNoteLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payouts.NewPayoutResponse(req))
	}
}

// AdminProcessRefund approves (and refunds through the gateway) or rejects a
// pending refund.
func AdminProcessRefund(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refundID, err := validators.ParseUUIDParam(r, "refundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund, err := svc.ProcessRefund(r.Context(), internalpayments.ProcessRefundInput{
			RefundID: refundID,
			Action:   enums.ReviewAction(payload.Action),
			Actor:    actor,
			Notes:    validators.SanitizeString(payload.Notes, maxAdminNoteLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payments.NewRefundResponse(refund))
	}
}
