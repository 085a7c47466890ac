package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/erp/ledger/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add pending credits", "add_pending_credits"},
		{"Add-Credit-Index", "add_credit_index"},
		{"ADD__SOURCE__TX", "add_source_tx"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"trailing_", "trailing"},
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
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_create_ledger_tables.up.sql"), []byte("--"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_create_ledger_tables.down.sql"), []byte("--"), 0o644))

	mf, err := CreateMigration(dir, "Add credit notes")
	require.NoError(t, err)

	assert.Equal(t, uint(2), mf.Version)
	assert.Equal(t, filepath.Join(dir, "000002_add_credit_notes.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000002_add_credit_notes.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add_credit_notes")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "-- Rollback: add_credit_notes")
}

func TestCreateMigration_EmptyDirectoryStartsAtOne(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	mf, err := CreateMigration(dir, "init")
	require.NoError(t, err)
	assert.Equal(t, uint(1), mf.Version)
	assert.FileExists(t, mf.UpPath)
	assert.FileExists(t, mf.DownPath)
}

func TestCreateMigration_RejectsUnusableName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_add_index.up.sql":  {Data: []byte("--")},
		"000001_init.up.sql":       {Data: []byte("--")},
		"000001_init.down.sql":     {Data: []byte("--")},
		"README.md":                {Data: []byte("notes")},
		"notaversion_thing.up.sql": {Data: []byte("--")},
		"subdir/000003_x.up.sql":   {Data: []byte("--")},
	}

	got, err := ListMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, MigrationInfo{Version: 1, Name: "init", HasDown: true}, got[0])
	assert.Equal(t, MigrationInfo{Version: 2, Name: "add_index", HasDown: false}, got[1])
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	got, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmbeddedSchemaIsPaired(t *testing.T) {
	got, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, uint(1), got[0].Version)
	for _, m := range got {
		assert.True(t, m.HasDown, "migration %06d_%s has no down file", m.Version, m.Name)
	}
}
