package db

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err)
	defer database.Close()
	database.SetMaxOpenConns(1)

	require.NoError(t, RunMigrations(database.DB))
	// Second run is a no-op
	require.NoError(t, RunMigrations(database.DB))

	var tables []string
	err = database.Select(&tables, "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	require.NoError(t, err)
	for _, want := range []string{"users", "sessions", "events", "divisions", "fields", "time_slots", "teams", "referees", "matches"} {
		assert.Contains(t, tables, want)
	}

	var guests int
	require.NoError(t, database.Get(&guests, "SELECT COUNT(*) FROM users WHERE id = '00000000-0000-0000-0000-000000000001'"))
	assert.Equal(t, 1, guests)
}

func TestInitDB(t *testing.T) {
	database, err := InitDB(t.TempDir() + "/matchday.db")
	require.NoError(t, err)
	defer database.Close()

	var fk int
	require.NoError(t, database.Get(&fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)
}
