package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// constraintHints names the settlement rule behind a database constraint so a
// failed write reads as a domain fact in the logs.
var constraintHints = map[string]string{
	"orders_total_balances":            "order total does not balance its components",
	"orders_order_number_key":          "order number already taken",
	"transactions_reference_key":       "transaction reference already recorded",
	"ux_payout_requests_one_pending":   "payee already has a pending payout",
	"vendors_paid_out_within_earnings": "vendor payout would exceed earnings",
	"drivers_paid_out_within_earnings": "driver payout would exceed earnings",
	"vendors_commission_range":         "vendor commission outside 0-100",
	"deliveries_order_id_key":          "order already has a delivery",
	"parts_stock_quantity_check":       "stock would go negative",
}

// ConstraintHint returns the settlement rule a constraint enforces, if known.
func ConstraintHint(constraint string) string {
	return constraintHints[constraint]
}

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`
	Retryable  bool   `json:"retryable"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
	Hint         string `json:"hint,omitempty"`
}

// Dump flattens err for logging: the typed code, the unwrap chain and any
// Postgres error found along it, from either pgx or lib/pq.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error(), Code: CodeInternal}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	d.Retryable = MetadataFor(d.Code).Retryable

	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case stdErrors.As(err, &pgxErr):
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
	case stdErrors.As(err, &pqErr):
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGColumn = pqErr.Column
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
	}
	d.Hint = ConstraintHint(d.PGConstraint)
	return d
}

// Fields returns the non-empty parts of the dump as log fields.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
		"retryable":   d.Retryable,
	}
	optional := map[string]string{
		"pg_code":         d.PGCode,
		"pg_constraint":   d.PGConstraint,
		"pg_table":        d.PGTable,
		"pg_column":       d.PGColumn,
		"pg_detail":       d.PGDetail,
		"pg_message":      d.PGMessage,
		"constraint_hint": d.Hint,
	}
	for k, v := range optional {
		if v != "" {
			fields[k] = v
		}
	}
	return fields
}
