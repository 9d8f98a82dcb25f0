package payouts

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/haulmart-backend/api/middleware"
	"github.com/angelmondragon/haulmart-backend/api/responses"
	"github.com/angelmondragon/haulmart-backend/api/validators"
	internalpayouts "github.com/angelmondragon/haulmart-backend/internal/payouts"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

type payoutRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"money"`
}

// Request withdraws part of the caller's unpaid earnings. The payee is the
// vendor or driver account named by the token.
func Request(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payeeType enums.PayeeType
		switch actor.Role {
		case enums.ActorRoleVendor:
			payeeType = enums.PayeeTypeVendor
		case enums.ActorRoleDriver:
			payeeType = enums.PayeeTypeDriver
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only vendors and drivers request payouts"))
			return
		}

		var payload payoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req, err := svc.RequestPayout(r.Context(), internalpayouts.RequestPayoutInput{
			PayeeID:     actor.UserID,
			PayeeType:   payeeType,
			AmountCents: payload.AmountCents,
			Actor:       actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, NewPayoutResponse(req))
	}
}

// PayoutResponse is the wire form of a payout request.
type PayoutResponse struct {
	ID                uuid.UUID              `json:"id"`
	PayeeID           uuid.UUID              `json:"payee_id"`
	PayeeType         enums.PayeeType        `json:"payee_type"`
	AmountCents       int64                  `json:"amount_cents"`
	Currency          enums.Currency         `json:"currency"`
	Status            enums.PayoutStatus     `json:"status"`
	BankDetails       types.BankDetails      `json:"bank_details"`
	RequestedEarnings types.EarningsSnapshot `json:"requested_earnings"`
	TransactionID     *uuid.UUID             `json:"transaction_id,omitempty"`
	AdminNotes        *string                `json:"admin_notes,omitempty"`
	RejectionReason   *string                `json:"rejection_reason,omitempty"`
	ProcessedAt       *time.Time             `json:"processed_at,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
}

func NewPayoutResponse(req *models.PayoutRequest) PayoutResponse {
	return PayoutResponse{
		ID:                req.ID,
		PayeeID:           req.PayeeID,
		PayeeType:         req.PayeeType,
		AmountCents:       req.AmountCents,
		Currency:          req.Currency,
		Status:            req.Status,
		BankDetails:       req.BankDetails,
		RequestedEarnings: req.RequestedEarnings,
		TransactionID:     req.TransactionID,
		AdminNotes:        req.AdminNotes,
		RejectionReason:   req.RejectionReason,
		ProcessedAt:       req.ProcessedAt,
		CreatedAt:         req.CreatedAt,
	}
}
