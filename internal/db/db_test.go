package db

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"finsense/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "finsense.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSessionRoundTrip(t *testing.T) {
	d := openTestDB(t)
	now := time.Now().Unix()

	id, err := CreateSession(d, now, "guest")
	require.NoError(t, err)
	require.NotZero(t, id)

	require.NoError(t, InsertMessage(d, id, models.RoleUser, "find me tech stocks", now))
	require.NoError(t, UpdateSessionOnUser(d, id, now, "backend-abc", "find me tech stocks"))
	require.NoError(t, InsertMessage(d, id, models.RoleBot, "What is your risk tolerance?", now+1))
	require.NoError(t, TouchSession(d, id, now+1))

	msgs, err := GetSessionMessages(d, id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "find me tech stocks", msgs[0].Content)
	assert.Equal(t, models.RoleBot, msgs[1].Role)

	count, sessions, err := GetRecentSessions(d, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].ID)
	assert.Equal(t, "backend-abc", sessions[0].BackendID)
	assert.Equal(t, "guest", sessions[0].AuthMode)
	assert.Equal(t, "find me tech stocks", sessions[0].LastUserPrompt)
}

func TestRecentSessionsOrderAndPaging(t *testing.T) {
	d := openTestDB(t)
	base := time.Now().Unix()

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := CreateSession(d, base+int64(i), "disabled")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	count, page, err := GetRecentSessions(d, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.Len(t, page, 2)
	// Most recently updated first.
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	_, page2, err := GetRecentSessions(d, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, ids[0], page2[0].ID)
}

func TestGetSessionMessagesEmpty(t *testing.T) {
	d := openTestDB(t)
	msgs, err := GetSessionMessages(d, 999)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
