package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/haulmart-backend/pkg/config"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
)

type ledgerRow struct {
	ID          int
	AmountCents int64
}

func openClient(t *testing.T) *Client {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&ledgerRow{}))
	client := Wrap(conn)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func countRows(t *testing.T, client *Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, client.DB().Model(&ledgerRow{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	client := openClient(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&ledgerRow{AmountCents: 500}).Error
	}))
	assert.Equal(t, int64(1), countRows(t, client))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&ledgerRow{AmountCents: 900}).Error; err != nil {
			return err
		}
		return errors.New("credit rejected")
	})
	require.EqualError(t, err, "credit rejected")
	assert.Equal(t, int64(1), countRows(t, client))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	client := openClient(t)

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&ledgerRow{AmountCents: 100})
			panic("boom")
		})
	})
	assert.Equal(t, int64(0), countRows(t, client))
}

func TestPing(t *testing.T) {
	client := openClient(t)
	require.NoError(t, client.Ping(context.Background()))
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, nil)
	require.Error(t, err)

	_, err = New(context.Background(), config.DBConfig{DSN: "file:x", Driver: "mysql"}, nil)
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestQueryLoggerLogsSlowAndFailedOnly(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: &buf})
	ql := newQueryLogger(logg, 50*time.Millisecond)
	sql := func() (string, int64) { return "SELECT * FROM vendors WHERE id = $1", 1 }
	ctx := context.Background()

	ql.Trace(ctx, time.Now(), sql, nil)
	ql.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	ql.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "slow query")

	buf.Reset()
	ql.Trace(ctx, time.Now(), sql, errors.New("connection reset"))
	assert.Contains(t, buf.String(), "query failed")
	assert.Contains(t, buf.String(), "connection reset")
}

func TestQueryLoggerWithoutLoggerDiscards(t *testing.T) {
	assert.Equal(t, gormlogger.Discard, newQueryLogger(nil, time.Second))
}
