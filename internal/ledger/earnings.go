package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

// Account addresses the earnings counters of a vendor or driver.
type Account struct {
	Type enums.PayeeType
	ID   uuid.UUID
}

// VendorAccount is shorthand for a vendor earnings account.
func VendorAccount(id uuid.UUID) Account {
	return Account{Type: enums.PayeeTypeVendor, ID: id}
}

// DriverAccount is shorthand for a driver earnings account.
func DriverAccount(id uuid.UUID) Account {
	return Account{Type: enums.PayeeTypeDriver, ID: id}
}

func (a Account) table() (string, error) {
	switch a.Type {
	case enums.PayeeTypeVendor:
		return "vendors", nil
	case enums.PayeeTypeDriver:
		return "drivers", nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payee type %q", a.Type))
	}
}

// Balance is a read of an account's counters and payout destination.
type Balance struct {
	TotalEarningsCents int64              `gorm:"column:total_earnings_cents"`
	TotalPaidOutCents  int64              `gorm:"column:total_paid_out_cents"`
	BankDetails        *types.BankDetails `gorm:"column:bank_details;serializer:json"`
}

// UnpaidCents is the amount still available for withdrawal.
func (b Balance) UnpaidCents() int64 {
	return b.TotalEarningsCents - b.TotalPaidOutCents
}

// Earnings mutates the monotonic earnings counters. Every change is a
// server-side increment; callers never write a computed total back.
type Earnings interface {
	Credit(ctx context.Context, tx *gorm.DB, acct Account, amountCents int64) error
	RecordPayout(ctx context.Context, tx *gorm.DB, acct Account, amountCents int64) error
	Lock(ctx context.Context, tx *gorm.DB, acct Account) (*Balance, error)
}

type earnings struct{}

// NewEarnings returns the SQL backed earnings counters.
func NewEarnings() Earnings {
	return earnings{}
}

func (earnings) Credit(ctx context.Context, tx *gorm.DB, acct Account, amountCents int64) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for earnings credit")
	}
	if amountCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit amount must not be negative")
	}
	table, err := acct.table()
	if err != nil {
		return err
	}

	res := tx.WithContext(ctx).Exec(
		"UPDATE "+table+" SET total_earnings_cents = total_earnings_cents + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		amountCents, acct.ID,
	)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "credit earnings")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s account not found", acct.Type))
	}
	return nil
}

// RecordPayout moves amountCents into total_paid_out only while the unpaid
// balance still covers it.
func (earnings) RecordPayout(ctx context.Context, tx *gorm.DB, acct Account, amountCents int64) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for payout debit")
	}
	if amountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be positive")
	}
	table, err := acct.table()
	if err != nil {
		return err
	}

	res := tx.WithContext(ctx).Exec(
		"UPDATE "+table+" SET total_paid_out_cents = total_paid_out_cents + ?, updated_at = CURRENT_TIMESTAMP "+
			"WHERE id = ? AND total_earnings_cents - total_paid_out_cents >= ?",
		amountCents, acct.ID, amountCents,
	)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "record payout")
	}
	if res.RowsAffected == 1 {
		return nil
	}

	if _, err := readBalance(ctx, tx, table, acct); err != nil {
		return err
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "payout exceeds unpaid earnings")
}

// Lock takes the account row lock with a no-op write, then reads the
// counters so the caller's checks cannot race a concurrent payout.
func (earnings) Lock(ctx context.Context, tx *gorm.DB, acct Account) (*Balance, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for account lock")
	}
	table, err := acct.table()
	if err != nil {
		return nil, err
	}

	res := tx.WithContext(ctx).Exec("UPDATE "+table+" SET updated_at = CURRENT_TIMESTAMP WHERE id = ?", acct.ID)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "lock account")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s account not found", acct.Type))
	}
	return readBalance(ctx, tx, table, acct)
}

func readBalance(ctx context.Context, tx *gorm.DB, table string, acct Account) (*Balance, error) {
	var bal Balance
	err := tx.WithContext(ctx).
		Table(table).
		Select("total_earnings_cents", "total_paid_out_cents", "bank_details").
		Where("id = ?", acct.ID).
		Take(&bal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s account not found", acct.Type))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read balance")
	}
	return &bal, nil
}
