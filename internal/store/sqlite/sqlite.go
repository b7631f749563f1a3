package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/consultwire/consult-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_rooms (
	id                     TEXT PRIMARY KEY,
	status                 TEXT NOT NULL DEFAULT 'open',
	user_id                TEXT NOT NULL,
	user_first_name        TEXT NOT NULL DEFAULT '',
	user_profile_pic       TEXT NOT NULL DEFAULT '',
	user_push_token        TEXT NOT NULL DEFAULT '',
	specialist_id          TEXT NOT NULL,
	specialist_first_name  TEXT NOT NULL DEFAULT '',
	specialist_profile_pic TEXT NOT NULL DEFAULT '',
	specialist_push_token  TEXT NOT NULL DEFAULT '',
	consultation_title     TEXT NOT NULL DEFAULT '',
	consultation_details   TEXT NOT NULL DEFAULT '',
	user_unread            BOOLEAN NOT NULL DEFAULT 0,
	specialist_unread      BOOLEAN NOT NULL DEFAULT 0,
	created_at             DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_chat_rooms_user ON chat_rooms(user_id, status);
CREATE INDEX IF NOT EXISTS idx_chat_rooms_specialist ON chat_rooms(specialist_id, status);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	room_id    TEXT NOT NULL,
	sender_id  TEXT NOT NULL,
	body       TEXT NOT NULL DEFAULT '',
	media_url  TEXT NOT NULL DEFAULT '',
	media_type TEXT NOT NULL DEFAULT '',
	timestamp  DATETIME NOT NULL,
	status     TEXT NOT NULL DEFAULT 'unread'
);

CREATE INDEX IF NOT EXISTS idx_messages_room_ts ON messages(room_id, timestamp);

CREATE TABLE IF NOT EXISTS payment_links (
	room_id               TEXT NOT NULL,
	user_id               TEXT NOT NULL,
	specialist_id         TEXT NOT NULL,
	link                  TEXT NOT NULL,
	consultation_title    TEXT NOT NULL DEFAULT '',
	specialist_first_name TEXT NOT NULL DEFAULT '',
	specialist_last_name  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (room_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_payment_links_user ON payment_links(user_id);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function after the
// schema is applied. Useful for tests that need seeded data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}

	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== RoomStore implementation ====

// CreateRoom persists a new room, overwriting any record with the same ID.
func (s *SQLiteStore) CreateRoom(ctx context.Context, room *store.Room) error {
	query := `
		INSERT OR REPLACE INTO chat_rooms (
			id, status,
			user_id, user_first_name, user_profile_pic, user_push_token,
			specialist_id, specialist_first_name, specialist_profile_pic, specialist_push_token,
			consultation_title, consultation_details,
			user_unread, specialist_unread, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	createdAt := room.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		room.ID, room.Status,
		room.UserID, room.UserFirstName, room.UserProfilePic, room.UserPushToken,
		room.SpecialistID, room.SpecialistFirstName, room.SpecialistProfilePic, room.SpecialistPushToken,
		room.ConsultationTitle, room.ConsultationDetails,
		room.UserUnread, room.SpecialistUnread, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

// GetRoom retrieves a room by ID.
func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	query := `
		SELECT id, status,
			user_id, user_first_name, user_profile_pic, user_push_token,
			specialist_id, specialist_first_name, specialist_profile_pic, specialist_push_token,
			consultation_title, consultation_details,
			user_unread, specialist_unread, created_at
		FROM chat_rooms
		WHERE id = ?
	`
	room, err := scanRoom(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("select room: %w", err)
	}
	return room, nil
}

// UpdateRoomStatus sets the room status and returns the resulting status.
func (s *SQLiteStore) UpdateRoomStatus(ctx context.Context, id string, status store.RoomStatus) (store.RoomStatus, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE chat_rooms SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return "", fmt.Errorf("update room status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return "", store.ErrNotFound
	}
	return status, nil
}

// SetUnreadFlag sets one of the two unread flags.
func (s *SQLiteStore) SetUnreadFlag(ctx context.Context, id string, field store.UnreadField, value bool) error {
	if !field.Valid() {
		return fmt.Errorf("unknown unread field %q", field)
	}

	// field is one of two known column names, validated above.
	query := fmt.Sprintf(`UPDATE chat_rooms SET %s = ? WHERE id = ?`, field)
	result, err := s.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("set unread flag: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RoomsByParticipant lists rooms for one side of a consultation. A specialist
// may also book consultations as a user, so the specialist query covers both
// columns.
func (s *SQLiteStore) RoomsByParticipant(ctx context.Context, role store.ParticipantRole, id string) ([]*store.Room, error) {
	var query string
	args := []any{id}

	base := `
		SELECT id, status,
			user_id, user_first_name, user_profile_pic, user_push_token,
			specialist_id, specialist_first_name, specialist_profile_pic, specialist_push_token,
			consultation_title, consultation_details,
			user_unread, specialist_unread, created_at
		FROM chat_rooms
	`

	if role == store.RoleSpecialist {
		query = base + `WHERE specialist_id = ? OR user_id = ? ORDER BY created_at DESC`
		args = append(args, id)
	} else {
		query = base + `WHERE user_id = ? ORDER BY created_at DESC`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return rooms, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*store.Room, error) {
	var room store.Room
	err := row.Scan(
		&room.ID, &room.Status,
		&room.UserID, &room.UserFirstName, &room.UserProfilePic, &room.UserPushToken,
		&room.SpecialistID, &room.SpecialistFirstName, &room.SpecialistProfilePic, &room.SpecialistPushToken,
		&room.ConsultationTitle, &room.ConsultationDetails,
		&room.UserUnread, &room.SpecialistUnread, &room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a message.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (id, room_id, sender_id, body, media_url, media_type, timestamp, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	status := msg.Status
	if status == "" {
		status = store.MessageStatusUnread
	}

	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.RoomID, msg.SenderID, msg.Body, msg.MediaURL, msg.MediaType,
		msg.Timestamp.UTC(), status,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages retrieves all messages of a room, ascending by timestamp.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomID string) ([]*store.Message, error) {
	query := `
		SELECT id, room_id, sender_id, body, media_url, media_type, timestamp, status
		FROM messages
		WHERE room_id = ?
		ORDER BY timestamp ASC
	`
	return s.queryMessages(ctx, query, roomID)
}

// ListMessagesSince retrieves messages at or after the given timestamp.
func (s *SQLiteStore) ListMessagesSince(ctx context.Context, roomID string, since time.Time) ([]*store.Message, error) {
	query := `
		SELECT id, room_id, sender_id, body, media_url, media_type, timestamp, status
		FROM messages
		WHERE room_id = ? AND timestamp >= ?
		ORDER BY timestamp ASC
	`
	return s.queryMessages(ctx, query, roomID, since.UTC())
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(
			&msg.ID, &msg.RoomID, &msg.SenderID, &msg.Body,
			&msg.MediaURL, &msg.MediaType, &msg.Timestamp, &msg.Status,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// ==== PaymentLinkStore implementation ====

// SavePaymentLink stores a pending checkout link, overwriting any previous
// link for the same (room, user) pair.
func (s *SQLiteStore) SavePaymentLink(ctx context.Context, link *store.PaymentLink) error {
	query := `
		INSERT OR REPLACE INTO payment_links (
			room_id, user_id, specialist_id, link,
			consultation_title, specialist_first_name, specialist_last_name
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		link.RoomID, link.UserID, link.SpecialistID, link.Link,
		link.ConsultationTitle, link.SpecialistFirstName, link.SpecialistLastName,
	)
	if err != nil {
		return fmt.Errorf("insert payment link: %w", err)
	}
	return nil
}

// ListPaymentLinks lists pending checkout links for a user.
func (s *SQLiteStore) ListPaymentLinks(ctx context.Context, userID string) ([]*store.PaymentLink, error) {
	query := `
		SELECT room_id, user_id, specialist_id, link,
			consultation_title, specialist_first_name, specialist_last_name
		FROM payment_links
		WHERE user_id = ?
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query payment links: %w", err)
	}
	defer rows.Close()

	var links []*store.PaymentLink
	for rows.Next() {
		var link store.PaymentLink
		if err := rows.Scan(
			&link.RoomID, &link.UserID, &link.SpecialistID, &link.Link,
			&link.ConsultationTitle, &link.SpecialistFirstName, &link.SpecialistLastName,
		); err != nil {
			return nil, fmt.Errorf("scan payment link: %w", err)
		}
		links = append(links, &link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment links: %w", err)
	}
	return links, nil
}

// DeletePaymentLink removes a consumed checkout link.
func (s *SQLiteStore) DeletePaymentLink(ctx context.Context, roomID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM payment_links WHERE room_id = ? AND user_id = ?`, roomID, userID)
	if err != nil {
		return fmt.Errorf("delete payment link: %w", err)
	}
	return nil
}
