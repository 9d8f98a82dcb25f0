package payments

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/haulmart-backend/api/middleware"
	"github.com/angelmondragon/haulmart-backend/api/responses"
	"github.com/angelmondragon/haulmart-backend/api/validators"
	internalpayments "github.com/angelmondragon/haulmart-backend/internal/payments"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
)

const maxReasonLength = 500

type initializeRequest struct {
	OrderID       uuid.UUID `json:"order_id" validate:"required"`
	AmountCents   int64     `json:"amount_cents,omitempty" validate:"gte=0"`
	PaymentMethod string    `json:"payment_method,omitempty" validate:"omitempty,oneof=CARD BANK_TRANSFER USSD"`
	Reference     string    `json:"reference,omitempty" validate:"omitempty,reference"`
	RedirectURL   string    `json:"redirect_url,omitempty" validate:"omitempty,url"`
}

type verifyRequest struct {
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	Reference     string     `json:"reference,omitempty"`
}

type refundRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"money"`
	Reason      string `json:"reason" validate:"required,max=500"`
}

// Initialize opens a gateway checkout for one of the caller's orders.
func Initialize(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload initializeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.InitializePayment(r.Context(), internalpayments.InitializePaymentInput{
			OrderID:     payload.OrderID,
			AmountCents: payload.AmountCents,
			Method:      enums.PaymentMethod(payload.PaymentMethod),
			Reference:   strings.TrimSpace(payload.Reference),
			RedirectURL: payload.RedirectURL,
			Actor:       actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Reused {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, initializeResponse{
			Transaction: NewTransactionResponse(result.Transaction),
			CheckoutURL: result.CheckoutURL,
			Reused:      result.Reused,
		})
	}
}

// Verify asks the gateway for the outcome of a payment and applies it.
func Verify(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload verifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := internalpayments.VerifyPaymentInput{
			Reference: strings.TrimSpace(payload.Reference),
			Actor:     actor,
		}
		if payload.TransactionID != nil {
			input.TransactionID = *payload.TransactionID
		}
		if input.TransactionID == uuid.Nil && input.Reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "transaction_id or reference is required"))
			return
		}

		txn, err := svc.VerifyPayment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewTransactionResponse(txn))
	}
}

// RequestRefund files a refund against a paid order.
func RequestRefund(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
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
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund, err := svc.RequestRefund(r.Context(), internalpayments.RequestRefundInput{
			OrderID:     orderID,
			AmountCents: payload.AmountCents,
			Reason:      validators.SanitizeString(payload.Reason, maxReasonLength),
			Actor:       actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, NewRefundResponse(refund))
	}
}

type initializeResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	CheckoutURL string              `json:"checkout_url"`
	Reused      bool                `json:"reused"`
}

// TransactionResponse is the wire form of a payment transaction.
type TransactionResponse struct {
	ID               uuid.UUID               `json:"id"`
	Reference        string                  `json:"reference"`
	Type             enums.TransactionType   `json:"type"`
	Status           enums.TransactionStatus `json:"status"`
	AmountCents      int64                   `json:"amount_cents"`
	Currency         enums.Currency          `json:"currency"`
	GatewayReference *string                 `json:"gateway_reference,omitempty"`
	OrderID          *uuid.UUID              `json:"order_id,omitempty"`
	FailureReason    string                  `json:"failure_reason,omitempty"`
	CompletedAt      *time.Time              `json:"completed_at,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

func NewTransactionResponse(txn *models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:               txn.ID,
		Reference:        txn.Reference,
		Type:             txn.Type,
		Status:           txn.Status,
		AmountCents:      txn.AmountCents,
		Currency:         txn.Currency,
		GatewayReference: txn.GatewayReference,
		OrderID:          txn.OrderID,
		FailureReason:    txn.Metadata.FailureReason,
		CompletedAt:      txn.CompletedAt,
		CreatedAt:        txn.CreatedAt,
	}
}

// RefundResponse is the wire form of a refund.
type RefundResponse struct {
	ID               uuid.UUID          `json:"id"`
	OrderID          uuid.UUID          `json:"order_id"`
	AmountCents      int64              `json:"amount_cents"`
	Reason           string             `json:"reason"`
	Status           enums.RefundStatus `json:"status"`
	GatewayReference *string            `json:"gateway_reference,omitempty"`
	AdminNotes       *string            `json:"admin_notes,omitempty"`
	FailureReason    *string            `json:"failure_reason,omitempty"`
	ProcessedAt      *time.Time         `json:"processed_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

func NewRefundResponse(refund *models.Refund) RefundResponse {
	return RefundResponse{
		ID:               refund.ID,
		OrderID:          refund.OrderID,
		AmountCents:      refund.AmountCents,
		Reason:           refund.Reason,
		Status:           refund.Status,
		GatewayReference: refund.GatewayReference,
		AdminNotes:       refund.AdminNotes,
		FailureReason:    refund.FailureReason,
		ProcessedAt:      refund.ProcessedAt,
		CreatedAt:        refund.CreatedAt,
	}
}
