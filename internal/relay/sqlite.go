package relay

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nexus-FayazKhan/Wattnest/chatsession"
)

// SQLiteHistory is a HistoryStore backed by SQLite, so room history
// survives relay restarts. Enabled by setting HISTORY_DB.
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory opens (creating if needed) the database at dbPath.
func NewSQLiteHistory(ctx context.Context, dbPath string) (*SQLiteHistory, error) {
	if dbPath == "" {
		dbPath = "./data/wattnest.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteHistory{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteHistory) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		sender_name TEXT DEFAULT '',
		body TEXT NOT NULL,
		sender_role TEXT DEFAULT '',
		ts INTEGER NOT NULL,
		nonce TEXT DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_messages_room_ts ON messages(room_id, ts);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Append stores a message.
func (s *SQLiteHistory) Append(ctx context.Context, msg chatsession.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO messages (id, room_id, sender_id, sender_name, body, sender_role, ts, nonce)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.RoomID, msg.SenderID, msg.SenderName, msg.Body, string(msg.SenderRole), msg.Timestamp, msg.Nonce)
	return err
}

// Room returns up to limit most recent messages for a room, oldest first.
func (s *SQLiteHistory) Room(ctx context.Context, roomID string, limit int) ([]chatsession.Message, error) {
	if limit <= 0 {
		limit = 500
	}

	// Newest-first page, reversed into chronological order below.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, sender_id, sender_name, body, sender_role, ts, nonce
		FROM messages WHERE room_id = ?
		ORDER BY ts DESC, id DESC LIMIT ?
	`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chatsession.Message
	for rows.Next() {
		var msg chatsession.Message
		var role string
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.SenderName,
			&msg.Body, &role, &msg.Timestamp, &msg.Nonce); err != nil {
			return nil, err
		}
		msg.SenderRole = chatsession.Role(role)
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if msgs == nil {
		msgs = []chatsession.Message{}
	}
	return msgs, nil
}

// Ping checks the database connection.
func (s *SQLiteHistory) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}
