package archive

import (
	"fmt"
	"strings"
	"time"
)

// Record stores a message and bumps its room summary in one transaction.
// Re-recording the same msg_id is a no-op.
func (db *DB) Record(m *Message) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	if _, err := tx.Exec(`
		INSERT INTO rooms (id, last_message_at, last_message_preview, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_message_at = MAX(rooms.last_message_at, excluded.last_message_at),
			last_message_preview = CASE WHEN excluded.last_message_at >= rooms.last_message_at
				THEN excluded.last_message_preview ELSE rooms.last_message_preview END,
			updated_at = excluded.updated_at`,
		m.RoomID, m.CreatedAt, preview(m.Body, 100), now); err != nil {
		return fmt.Errorf("upsert room %q: %w", m.RoomID, err)
	}
	if _, err := tx.Exec(`
		INSERT INTO messages (room_id, msg_id, sender, body, status, created_at, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(msg_id) DO NOTHING`,
		m.RoomID, m.MsgID, m.Sender, m.Body, m.Status, m.CreatedAt, now); err != nil {
		return fmt.Errorf("insert message %q: %w", m.MsgID, err)
	}
	return tx.Commit()
}

// ListMessages returns a room's messages older than beforeMs, newest first.
func (db *DB) ListMessages(roomID string, beforeMs int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeMs <= 0 {
		beforeMs = time.Now().UnixMilli() + 1
	}
	rows, err := db.Query(`
		SELECT id, room_id, msg_id, sender, body, status, created_at
		FROM messages
		WHERE room_id = ? AND created_at < ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, roomID, beforeMs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.MsgID, &m.Sender, &m.Body, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Search returns messages whose body contains query (case-insensitive),
// optionally restricted to one room, newest first.
func (db *DB) Search(query, roomID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `
		SELECT id, room_id, msg_id, sender, body, status, created_at
		FROM messages
		WHERE body LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(query) + "%"}
	if roomID != "" {
		q += " AND room_id = ?"
		args = append(args, roomID)
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.MsgID, &m.Sender, &m.Body, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ListRooms returns archived rooms, most recently active first.
func (db *DB) ListRooms() ([]Room, error) {
	rows, err := db.Query(`
		SELECT r.id, r.last_message_at, r.last_message_preview, COUNT(m.id)
		FROM rooms r
		LEFT JOIN messages m ON m.room_id = r.id
		GROUP BY r.id
		ORDER BY r.last_message_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rooms []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.LastMessageAt, &r.LastMessagePreview, &r.MessageCount); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// MessageCount returns the total number of archived messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func preview(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
