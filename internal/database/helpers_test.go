package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(Config{Path: filepath.Join(t.TempDir(), "tourvision_test.db")}, zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}
