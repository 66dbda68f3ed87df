package db

import (
	"database/sql"
	"os"
	"path/filepath"

	"finsense/internal/models"
	_ "modernc.org/sqlite"
)

// OpenFinsenseDB opens the transcript database under the user config dir.
func OpenFinsenseDB() (*sql.DB, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return nil, err
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dbDir := filepath.Join(configDir, "finsense")
	if err := os.MkdirAll(dbDir, 0o700); err != nil {
		return nil, err
	}

	return Open(filepath.Join(dbDir, "finsense.db"))
}

// Open opens (and migrates) the transcript database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			backend_id TEXT NOT NULL DEFAULT '',
			auth_mode TEXT NOT NULL DEFAULT '',
			last_user_prompt TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id, id);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return db, nil
}

func CreateSession(db *sql.DB, nowUnix int64, authMode string) (int64, error) {
	res, err := db.Exec(
		"INSERT INTO sessions(created_at, updated_at, auth_mode, backend_id, last_user_prompt) VALUES(?, ?, ?, '', '')",
		nowUnix,
		nowUnix,
		authMode,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func InsertMessage(db *sql.DB, sessionID int64, role, content string, nowUnix int64) error {
	_, err := db.Exec(
		"INSERT INTO messages(session_id, role, content, created_at) VALUES(?, ?, ?, ?)",
		sessionID,
		role,
		content,
		nowUnix,
	)
	return err
}

// UpdateSessionOnUser refreshes the session row after a user turn: bumps
// updated_at, records the backend session id once known, and keeps the
// latest prompt for the history browser.
func UpdateSessionOnUser(db *sql.DB, sessionID int64, nowUnix int64, backendID, lastUserPrompt string) error {
	_, err := db.Exec(
		"UPDATE sessions SET updated_at = ?, backend_id = ?, last_user_prompt = ? WHERE id = ?",
		nowUnix,
		backendID,
		lastUserPrompt,
		sessionID,
	)
	return err
}

func TouchSession(db *sql.DB, sessionID int64, nowUnix int64) error {
	_, err := db.Exec(
		"UPDATE sessions SET updated_at = ? WHERE id = ?",
		nowUnix,
		sessionID,
	)
	return err
}

func GetRecentSessions(db *sql.DB, limit, offset int) (int, []models.SessionListItem, error) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		return 0, nil, err
	}

	rows, err := db.Query(
		"SELECT id, updated_at, last_user_prompt, backend_id, auth_mode FROM sessions ORDER BY updated_at DESC LIMIT ? OFFSET ?",
		limit,
		offset,
	)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	items := make([]models.SessionListItem, 0, limit)
	for rows.Next() {
		var it models.SessionListItem
		if err := rows.Scan(&it.ID, &it.UpdatedAtUnix, &it.LastUserPrompt, &it.BackendID, &it.AuthMode); err != nil {
			return 0, nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	return count, items, nil
}

func GetSessionMessages(db *sql.DB, sessionID int64) ([]models.DBMessage, error) {
	rows, err := db.Query(
		"SELECT role, content FROM messages WHERE session_id = ? ORDER BY id ASC",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []models.DBMessage{}
	for rows.Next() {
		var m models.DBMessage
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}
