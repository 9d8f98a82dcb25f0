package types

import (
	"strings"
	"time"
)

// BankDetails is the payout destination of a vendor or driver. Payout requests
// keep a copy so later edits do not change an in-flight request.
type BankDetails struct {
	BankCode      string `json:"bank_code"`
	BankName      string `json:"bank_name,omitempty"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// IsComplete reports whether a transfer could be addressed with these details.
func (b BankDetails) IsComplete() bool {
	return strings.TrimSpace(b.BankCode) != "" &&
		strings.TrimSpace(b.AccountNumber) != "" &&
		strings.TrimSpace(b.AccountName) != ""
}

// EarningsSnapshot captures the account balances at payout request time.
type EarningsSnapshot struct {
	TotalEarningsCents int64     `json:"total_earnings_cents"`
	TotalPaidOutCents  int64     `json:"total_paid_out_cents"`
	UnpaidCents        int64     `json:"unpaid_cents"`
	RequestedCents     int64     `json:"requested_cents"`
	CapturedAt         time.Time `json:"captured_at"`
}

// TransactionMetadata holds gateway-side facts recorded against a transaction.
type TransactionMetadata struct {
	CheckoutURL        string       `json:"checkout_url,omitempty"`
	RedirectURL        string       `json:"redirect_url,omitempty"`
	PaymentMethod      string       `json:"payment_method,omitempty"`
	GatewayStatus      string       `json:"gateway_status,omitempty"`
	GatewayAmountCents *int64       `json:"gateway_amount_cents,omitempty"`
	AmountMismatch     bool         `json:"amount_mismatch,omitempty"`
	FailureReason      string       `json:"failure_reason,omitempty"`
	Destination        *BankDetails `json:"destination,omitempty"`
	VerifiedAt         *time.Time   `json:"verified_at,omitempty"`
}

// AuditDetails is the structured body of an audit log entry.
type AuditDetails struct {
	FromStatus  string `json:"from_status,omitempty"`
	ToStatus    string `json:"to_status,omitempty"`
	AmountCents *int64 `json:"amount_cents,omitempty"`
	Reference   string `json:"reference,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Note        string `json:"note,omitempty"`
}
