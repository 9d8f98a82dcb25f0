package payouts

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/haulmart-backend/pkg/auth"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	"github.com/angelmondragon/haulmart-backend/pkg/gateway"
)

// RequestPayoutInput withdraws part of a vendor or driver's unpaid earnings.
type RequestPayoutInput struct {
	PayeeID     uuid.UUID
	PayeeType   enums.PayeeType
	AmountCents int64
	Actor       auth.Actor
}

// ProcessPayoutInput is an admin decision on a pending payout request.
type ProcessPayoutInput struct {
	RequestID uuid.UUID
	Action    enums.ReviewAction
	Actor     auth.Actor
	Notes     string
}

// TransferEvent is a gateway report on a payout transfer.
type TransferEvent struct {
	Reference        string
	GatewayReference string
	Status           gateway.Status
	RawStatus        string
}
