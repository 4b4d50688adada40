package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/storefront/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add coupons table", "add_coupons_table"},
		{"Add-Coupons-Table", "add_coupons_table"},
		{"add__coupons__table", "add_coupons_table"},
		{"Add Index 123", "add_index_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_NumbersAfterExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000007_orders.up.sql"), []byte("--"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000007_orders.down.sql"), []byte("--"), 0o644))

	mf, err := CreateMigration(dir, "Add gift cards", "gift card balances")
	require.NoError(t, err)
	assert.Equal(t, uint(8), mf.Version)
	assert.Equal(t, filepath.Join(dir, "000008_add_gift_cards.up.sql"), mf.UpPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "gift card balances")
	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "rollback add_gift_cards")
}

func TestCreateMigration_EmptyDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "init", "")
	require.NoError(t, err)
	assert.Equal(t, uint(1), mf.Version)

	_, err = CreateMigration(dir, "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_orders.up.sql":              {Data: []byte("--")},
		"000002_orders.down.sql":            {Data: []byte("--")},
		"000001_catalog.up.sql":             {Data: []byte("--")},
		"000001_catalog.down.sql":           {Data: []byte("--")},
		"README.md":                         {Data: []byte("notes")},
		"not_numbered_migration.up.sql":     {Data: []byte("--")},
		"000003_nested/ignored_file.up.sql": {Data: []byte("--")},
	}

	list, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []Info{{Version: 1, Name: "catalog"}, {Version: 2, Name: "orders"}}, list)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	list, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	for i, m := range list {
		assert.Equal(t, uint(i+1), m.Version, "versions are contiguous")
		_, err := fs.Stat(migrations.FS, fmt.Sprintf("%06d_%s.down.sql", m.Version, m.Name))
		assert.NoError(t, err, "missing down migration for %s", m.Name)
	}
}
