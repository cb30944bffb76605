package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrator_RunIsIdempotent(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "m.db")})
	require.NoError(t, err)
	defer db.Close()

	m := NewMigrator(db.Conn(), zap.NewNop())

	applied, err := m.Run()
	require.NoError(t, err)
	assert.Equal(t, 3, applied)

	applied, err = m.Run()
	require.NoError(t, err)
	assert.Zero(t, applied)

	for _, table := range []string{"tours", "clips", "api_usage"} {
		var name string
		err := db.Conn().QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestMigrator_Status(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "m.db")})
	require.NoError(t, err)
	defer db.Close()

	m := NewMigrator(db.Conn(), zap.NewNop())

	statuses, err := m.Status()
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	for _, s := range statuses {
		assert.False(t, s.Applied, s.Name)
	}
	assert.Equal(t, "001", statuses[0].Version)
	assert.Equal(t, "003_create_api_usage.sql", statuses[2].Name)

	_, err = m.Run()
	require.NoError(t, err)

	statuses, err = m.Status()
	require.NoError(t, err)
	for _, s := range statuses {
		assert.True(t, s.Applied, s.Name)
		assert.NotNil(t, s.AppliedAt)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}
