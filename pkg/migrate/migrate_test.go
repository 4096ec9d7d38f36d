package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestShippedMigrationsCreateWorkflowTables(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	require.NoError(t, err)

	var all strings.Builder
	for _, e := range entries {
		b, err := os.ReadFile(filepath.Join("migrations", e.Name()))
		require.NoError(t, err)
		all.Write(b)
	}
	sql := all.String()

	for _, table := range []string{"vendors", "products", "delivery_profiles", "orders", "order_line_items", "deliveries", "delivery_rejections", "outbox_events", "outbox_dlq"} {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
	assert.Contains(t, sql, "CHECK (stock_qty >= 0)")
	assert.Contains(t, sql, "ux_delivery_rejections_partner UNIQUE (delivery_id, partner_id)")
}

func TestValidateDirRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, ValidateDir(dir), "empty dir")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.ErrorContains(t, ValidateDir(dir), "invalid migration filename")

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_b.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.ErrorContains(t, ValidateDir(dir), "duplicate migration version")

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), []byte("-- +goose Up\n"), 0o644))
	assert.ErrorContains(t, ValidateDir(dir), "missing")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateSQLMigration(dir, "Add Partner Zones!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_partner_zones.sql"))
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
	_, err = CreateSQLMigration("", "x")
	assert.Error(t, err)
}

func TestTablesFollowMigrationOrder(t *testing.T) {
	tables, err := Tables("migrations")
	require.NoError(t, err)

	index := map[string]int{}
	for i, name := range tables {
		index[name] = i
	}
	assert.Less(t, index["vendors"], index["products"])
	assert.Less(t, index["orders"], index["order_line_items"])
	assert.Less(t, index["orders"], index["deliveries"])
}

func TestValidateDirRejectsMisorderedSections(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), []byte("-- +goose Down\n-- +goose Up\n"), 0o644))
	assert.ErrorContains(t, ValidateDir(dir), "Down before Up")

	dir = t.TempDir()
	body := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), []byte(body), 0o644))
	assert.ErrorContains(t, ValidateDir(dir), "unbalanced")
}

func TestCreateScaffoldsTableAfterNewestVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20300101000000_seed.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	path, err := createAt(dir, "create partner_zones", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "20300101000001_create_partner_zones.sql", filepath.Base(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "CREATE TABLE IF NOT EXISTS partner_zones (")
	assert.Contains(t, string(b), "DROP TABLE IF EXISTS partner_zones;")

	tables, err := Tables(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"partner_zones"}, tables)
}
