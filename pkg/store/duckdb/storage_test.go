package duckdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_BootsSourceTables(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "duckdb-test-*")
	require.NoError(t, err)

	defer func() {
		err := os.RemoveAll(tmpDir)
		if err != nil {
			t.Errorf("failed to cleanup test directory: %v", err)
		}
	}()

	db, err := NewDB(Settings{
		DbPath: filepath.Join(tmpDir, "test.db"),
	})
	require.NoError(t, err)
	require.NotNil(t, db)

	defer func() {
		err := db.Close()
		if err != nil {
			t.Errorf("failed to close database connection: %v", err)
		}
	}()

	_, err = db.Exec(
		`INSERT INTO ncsoconcession (vmpp, date, drug, price_pence) VALUES (?, ?, ?, ?)`,
		"1191111000001100", "2021-01-01", "Amlodipine 5mg tablets", 195.0,
	)
	require.NoError(t, err)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM ncsoconcession WHERE vmpp = ?", "1191111000001100").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	for _, table := range []string{"tariffprice", "vmpp", "normalised_prescribing"} {
		err = db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		require.NoError(t, err, table)
		assert.Equal(t, 0, count, table)
	}
}

func TestNewDB_ViewsOverExtracts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "tariffprice.csv"),
		[]byte("vmpp,date,price_pence\n111,2021-01-01,120\n111,2021-02-01,130\n"),
		0o600,
	))

	db, err := NewDB(Settings{DbPath: ":memory:", ExtractDir: dir})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	var total float64
	err = db.QueryRow("SELECT SUM(price_pence) FROM tariffprice").Scan(&total)
	require.NoError(t, err)
	assert.Equal(t, 250.0, total)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM vmpp").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
