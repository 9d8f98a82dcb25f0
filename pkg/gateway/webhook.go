package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Gateway-Signature"

// EventType names a webhook event.
type EventType string

const (
	EventChargeCompleted   EventType = "charge.completed"
	EventTransferCompleted EventType = "transfer.completed"
)

// Event is a decoded webhook delivery.
type Event struct {
	Type EventType `json:"event"`
	Data EventData `json:"data"`
}

// EventData is the subset of the event body used for reconciliation. Charges
// carry our reference in tx_ref, transfers in reference.
type EventData struct {
	ID        int64           `json:"id"`
	TxRef     string          `json:"tx_ref"`
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// Sign returns the signature a sender with secret would attach to payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares signature with the expected HMAC in constant time.
func VerifySignature(payload []byte, secret, signature string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" || secret == "" {
		return false
	}
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// ParseEvent decodes a webhook body.
func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook event")
	}
	if strings.TrimSpace(string(event.Type)) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event type missing")
	}
	return &event, nil
}

// Reference returns the transaction reference the event refers to.
func (e Event) Reference() string {
	if e.Type == EventTransferCompleted {
		return firstNonEmpty(e.Data.Reference, e.Data.TxRef)
	}
	return firstNonEmpty(e.Data.TxRef, e.Data.Reference)
}

// Outcome normalizes the event status.
func (e Event) Outcome() Status {
	return NormalizeStatus(e.Data.Status)
}

// AmountCents is the event amount in minor units.
func (e Event) AmountCents() int64 {
	return toMinor(e.Data.Amount)
}
