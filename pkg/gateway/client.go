package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

const (
	defaultBaseURL              = "https://api.flutterwave.com/v3"
	defaultTimeout              = 15 * time.Second
	responseBodyReadLimit int64 = 1024
)

var errSecretKeyRequired = errors.New("gateway secret key is required")

// Status is the normalized outcome of a gateway operation.
type Status string

const (
	StatusSuccessful Status = "SUCCESSFUL"
	StatusPending    Status = "PENDING"
	StatusFailed     Status = "FAILED"
)

// Client talks to the hosted-checkout and transfer REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 && c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds a gateway client authenticated with secretKey.
func NewClient(secretKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(secretKey)
	if trimmedKey == "" {
		return nil, errSecretKeyRequired
	}

	client := &Client{
		secretKey:  trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return client, nil
}

// CheckoutRequest opens a hosted payment page for a transaction reference.
type CheckoutRequest struct {
	Reference     string
	AmountCents   int64
	Currency      string
	RedirectURL   string
	PaymentMethod string
	CustomerEmail string
	CustomerName  string
}

// CheckoutSession is the hosted payment page the customer is sent to.
type CheckoutSession struct {
	Reference   string
	CheckoutURL string
}

// Verification is the gateway's view of a charge.
type Verification struct {
	Reference        string
	GatewayReference string
	Status           Status
	RawStatus        string
	AmountCents      int64
	Currency         string
}

// TransferRequest sends money to a bank account.
type TransferRequest struct {
	Reference   string
	AmountCents int64
	Currency    string
	Destination types.BankDetails
	Narration   string
}

// TransferResult reports the initial state of a transfer. Pending transfers
// settle later through a transfer webhook.
type TransferResult struct {
	Reference        string
	GatewayReference string
	Status           Status
	RawStatus        string
}

// RefundRequest returns part or all of a settled charge.
type RefundRequest struct {
	GatewayReference string
	AmountCents      int64
}

// RefundResult reports the gateway refund outcome.
type RefundResult struct {
	GatewayReference string
	Status           Status
	RawStatus        string
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeCheckout creates a hosted checkout session.
func (c *Client) InitializeCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway client not configured")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	body := map[string]any{
		"tx_ref":       req.Reference,
		"amount":       toMajor(req.AmountCents),
		"currency":     req.Currency,
		"redirect_url": req.RedirectURL,
		"customer": map[string]string{
			"email": req.CustomerEmail,
			"name":  req.CustomerName,
		},
	}
	if req.PaymentMethod != "" {
		body["payment_options"] = strings.ToLower(req.PaymentMethod)
	}

	var data struct {
		Link string `json:"link"`
	}
	if err := c.do(ctx, http.MethodPost, "payments", body, &data); err != nil {
		return nil, err
	}
	if data.Link == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "gateway returned no checkout link")
	}
	return &CheckoutSession{Reference: req.Reference, CheckoutURL: data.Link}, nil
}

// VerifyByReference looks up a charge by the reference we generated.
func (c *Client) VerifyByReference(ctx context.Context, reference string) (*Verification, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway client not configured")
	}
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	var data struct {
		ID       int64           `json:"id"`
		TxRef    string          `json:"tx_ref"`
		Status   string          `json:"status"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	path := "transactions/verify_by_reference?tx_ref=" + url.QueryEscape(trimmed)
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}

	return &Verification{
		Reference:        firstNonEmpty(data.TxRef, trimmed),
		GatewayReference: formatID(data.ID),
		Status:           NormalizeStatus(data.Status),
		RawStatus:        data.Status,
		AmountCents:      toMinor(data.Amount),
		Currency:         data.Currency,
	}, nil
}

// Transfer starts a bank transfer.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway client not configured")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer reference is required")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer amount must be positive")
	}
	if !req.Destination.IsComplete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer destination is incomplete")
	}

	body := map[string]any{
		"account_bank":     req.Destination.BankCode,
		"account_number":   req.Destination.AccountNumber,
		"beneficiary_name": req.Destination.AccountName,
		"amount":           toMajor(req.AmountCents),
		"currency":         req.Currency,
		"narration":        req.Narration,
		"reference":        req.Reference,
	}

	var data struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "transfers", body, &data); err != nil {
		return nil, err
	}

	return &TransferResult{
		Reference:        firstNonEmpty(data.Reference, req.Reference),
		GatewayReference: formatID(data.ID),
		Status:           NormalizeStatus(data.Status),
		RawStatus:        data.Status,
	}, nil
}

// Refund refunds amount against a settled charge.
func (c *Client) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway client not configured")
	}
	trimmed := strings.TrimSpace(req.GatewayReference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway reference is required for refunds")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	var data struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	path := fmt.Sprintf("transactions/%s/refund", url.PathEscape(trimmed))
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"amount": toMajor(req.AmountCents)}, &data); err != nil {
		return nil, err
	}

	return &RefundResult{
		GatewayReference: formatID(data.ID),
		Status:           NormalizeStatus(data.Status),
		RawStatus:        data.Status,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal gateway request")
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "execute gateway request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "gateway request failed")
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode gateway response")
	}
	if !strings.EqualFold(env.Status, "success") {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, fmt.Errorf("gateway status %q: %s", env.Status, env.Message), "gateway rejected request")
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode gateway data")
	}
	return nil
}

// NormalizeStatus maps provider status strings onto Status. Anything not
// clearly settled is treated as pending.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "successful", "success", "completed", "succeeded":
		return StatusSuccessful
	case "failed", "failure", "cancelled", "canceled", "error", "reversed":
		return StatusFailed
	default:
		return StatusPending
	}
}

func toMajor(cents int64) json.Number {
	return json.Number(decimal.New(cents, -2).StringFixed(2))
}

func toMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
