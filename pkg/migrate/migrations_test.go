package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/haulmart-backend/pkg/config"
	"github.com/angelmondragon/haulmart-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected exactly one %s migration", suffix)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirectoryIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestEmbeddedMatchesDisk(t *testing.T) {
	embedded, err := migrate.EmbeddedFiles()
	require.NoError(t, err)

	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	require.Len(t, embedded, len(onDisk))
}

func TestPartsMigrationGuardsStock(t *testing.T) {
	content := readMigration(t, "create_parts_and_promotions")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS parts",
		"CHECK (stock_quantity >= 0)",
		"DROP TABLE IF EXISTS parts",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestSettlementMigrationEnforcesOnePendingPayout(t *testing.T) {
	content := readMigration(t, "create_settlement")
	assert.Contains(t, content, "CONSTRAINT transactions_reference_key UNIQUE (reference)")
	assert.True(t, strings.Contains(content, "ux_payout_requests_one_pending") &&
		strings.Contains(content, "WHERE status = 'PENDING'"))
}

func TestOrdersMigrationBalancesTotal(t *testing.T) {
	content := readMigration(t, "create_orders")
	assert.Contains(t, content, "total_cents = subtotal_cents + delivery_fee_cents + tax_cents - discount_cents")
	assert.Contains(t, content, "CONSTRAINT orders_order_number_key UNIQUE (order_number)")
}

func TestEmbeddedSetIsValidAndOrdered(t *testing.T) {
	require.NoError(t, migrate.ValidateFS(migrate.Embedded, "migrations"))

	versions, err := migrate.Versions()
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	assert.True(t, sort.StringsAreSorted(versions))
}

func TestCreateSQLMigrationProducesValidFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 2, 8, 30, 0, 0, time.UTC)

	path, err := migrate.CreateSQLMigration(dir, "Add payout Batch!", now)
	require.NoError(t, err)
	assert.Equal(t, "20261002083000_add_payout_batch.sql", filepath.Base(path))
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "add payout batch", now)
	require.Error(t, err, "same version and name must not overwrite")

	_, err = migrate.CreateSQLMigration(dir, "!!!", now)
	require.Error(t, err)
}

func TestValidateDirRejectsBrokenFiles(t *testing.T) {
	cases := map[string]struct {
		file string
		body string
	}{
		"bad name":       {"create_things.sql", "-- +goose Up\n-- +goose Down\n"},
		"missing down":   {"20261002083000_things.sql", "-- +goose Up\nSELECT 1;\n"},
		"down before up": {"20261002083000_things.sql", "-- +goose Down\n-- +goose Up\n"},
		"open statement": {"20261002083000_things.sql", "-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, tc.file), []byte(tc.body), 0o644))
			require.Error(t, migrate.ValidateDir(dir))
		})
	}
}

func TestMaybeRunDevSkipsOutsideDev(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: config.AppEnvProd}}
	cfg.FeatureFlags.AutoMigrate = true
	require.NoError(t, migrate.MaybeRunDev(context.Background(), cfg, nil, nil))

	cfg.App.Env = config.AppEnvDev
	cfg.FeatureFlags.AutoMigrate = false
	require.NoError(t, migrate.MaybeRunDev(context.Background(), cfg, nil, nil))

	cfg.FeatureFlags.AutoMigrate = true
	require.Error(t, migrate.MaybeRunDev(context.Background(), cfg, nil, nil))
}
