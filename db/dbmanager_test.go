package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNowUsesFixedOffsetAndLayout(t *testing.T) {
	stamp := Now()

	parsed, err := time.ParseInLocation(timeLayout, stamp, pkt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().In(pkt), parsed, 5*time.Second)

	_, offset := time.Now().In(pkt).Zone()
	assert.Equal(t, 5*60*60, offset)
}

func TestNewDBConnectionRunsMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	manager, err := NewDBConnection(dbPath, "file://../migrations")
	require.NoError(t, err)
	defer manager.DB.Close()

	for _, table := range []string{"users", "mood_logs", "chat_sessions", "chat_messages"} {
		var count int
		err := manager.DB.Get(&count, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=$1", table)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "missing table %s", table)
	}

	// Reopening against an already-migrated database is not an error.
	manager2, err := NewDBConnection(dbPath, "file://../migrations")
	require.NoError(t, err)
	manager2.DB.Close()
}
