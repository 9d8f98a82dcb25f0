// Package dbtest opens isolated in-memory SQLite databases carrying the
// settlement schema, for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/haulmart-backend/pkg/db"
)

// Open returns a client backed by a fresh named in-memory database. The pool
// is capped at one connection so transactions serialize the way row locks
// would on Postgres; code under test must only use the tx handle inside WithTx.
func Open(t testing.TB) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return db.Wrap(conn)
}

// Create inserts every value, failing the test on the first error.
func Create(t testing.TB, client *db.Client, values ...any) {
	t.Helper()
	for _, v := range values {
		require.NoError(t, client.DB().Create(v).Error)
	}
}

var schema = []string{`
CREATE TABLE customers (
  id TEXT PRIMARY KEY,
  full_name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  phone TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE addresses (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  line1 TEXT NOT NULL,
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  latitude REAL,
  longitude REAL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE vendors (
  id TEXT PRIMARY KEY,
  business_name TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  commission_percent TEXT,
  latitude REAL,
  longitude REAL,
  total_earnings_cents INTEGER NOT NULL DEFAULT 0,
  total_paid_out_cents INTEGER NOT NULL DEFAULT 0,
  bank_details TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  CHECK (total_paid_out_cents <= total_earnings_cents)
);`, `
CREATE TABLE drivers (
  id TEXT PRIMARY KEY,
  full_name TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  total_earnings_cents INTEGER NOT NULL DEFAULT 0,
  total_paid_out_cents INTEGER NOT NULL DEFAULT 0,
  bank_details TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  CHECK (total_paid_out_cents <= total_earnings_cents)
);`, `
CREATE TABLE parts (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sku TEXT,
  price_cents INTEGER NOT NULL,
  discounted_price_cents INTEGER,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  low_stock_threshold INTEGER,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  CHECK (stock_quantity >= 0)
);`, `
CREATE TABLE promotions (
  id TEXT PRIMARY KEY,
  vendor_id TEXT,
  code TEXT NOT NULL,
  type TEXT NOT NULL,
  percent_off TEXT,
  amount_off_cents INTEGER,
  max_discount_cents INTEGER,
  minimum_order_cents INTEGER,
  starts_at DATETIME,
  ends_at DATETIME,
  is_active INTEGER NOT NULL DEFAULT 1,
  usage_limit INTEGER,
  usage_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  address_id TEXT,
  order_type TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  commission_percent TEXT NOT NULL,
  commission_cents INTEGER NOT NULL,
  vendor_earning_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'NGN',
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'PENDING',
  status TEXT NOT NULL DEFAULT 'RECEIVED',
  is_cancelled INTEGER NOT NULL DEFAULT 0,
  cancellation_reason TEXT,
  promotion_id TEXT,
  distance_km REAL,
  notes TEXT NOT NULL DEFAULT '',
  paid_at DATETIME,
  cancelled_at DATETIME,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  CHECK (total_cents = subtotal_cents + delivery_fee_cents + tax_cents - discount_cents)
);`, `
CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  part_id TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  unit_price_cents INTEGER NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE deliveries (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  driver_id TEXT,
  status TEXT NOT NULL DEFAULT 'PENDING',
  picked_up_at DATETIME,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE payout_requests (
  id TEXT PRIMARY KEY,
  payee_id TEXT NOT NULL,
  payee_type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'NGN',
  status TEXT NOT NULL DEFAULT 'PENDING',
  bank_details TEXT NOT NULL,
  requested_earnings TEXT NOT NULL,
  transaction_id TEXT,
  processed_by TEXT,
  processed_at DATETIME,
  admin_notes TEXT,
  rejection_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE UNIQUE INDEX ux_payout_requests_one_pending ON payout_requests (payee_id, payee_type) WHERE status = 'PENDING';`, `
CREATE TABLE transactions (
  id TEXT PRIMARY KEY,
  reference TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  fee_cents INTEGER NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'NGN',
  status TEXT NOT NULL DEFAULT 'PENDING',
  gateway_reference TEXT,
  order_id TEXT,
  customer_id TEXT,
  vendor_id TEXT,
  driver_id TEXT,
  payout_request_id TEXT,
  metadata TEXT,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE refunds (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  transaction_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  reason TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  requested_by TEXT NOT NULL,
  processed_by TEXT,
  processed_at DATETIME,
  gateway_reference TEXT,
  admin_notes TEXT,
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE audit_logs (
  id TEXT PRIMARY KEY,
  action TEXT NOT NULL,
  entity_type TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  performed_by TEXT,
  actor_role TEXT,
  details TEXT,
  created_at DATETIME
);`, `
CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`, `
CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`,
}
