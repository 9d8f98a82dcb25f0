package payments

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/haulmart-backend/pkg/auth"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

// InitializePaymentInput opens a gateway checkout for an order. A zero
// AmountCents means the order total.
type InitializePaymentInput struct {
	OrderID     uuid.UUID
	AmountCents int64
	Method      enums.PaymentMethod
	Reference   string
	RedirectURL string
	Actor       auth.Actor
}

// InitializeResult is the pending transaction and where to send the payer.
type InitializeResult struct {
	Transaction *models.Transaction
	CheckoutURL string
	Reused      bool
}

// VerifyPaymentInput identifies a payment by id or by reference.
type VerifyPaymentInput struct {
	TransactionID uuid.UUID
	Reference     string
	Actor         auth.Actor
}

// RequestRefundInput asks for part or all of an order total back.
type RequestRefundInput struct {
	OrderID     uuid.UUID
	AmountCents int64
	Reason      string
	Actor       auth.Actor
}

// ProcessRefundInput is an admin decision on a pending refund.
type ProcessRefundInput struct {
	RefundID uuid.UUID
	Action   enums.ReviewAction
	Actor    auth.Actor
	Notes    string
}
