package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "modernc.org/sqlite"

	"chickiegpt/internal/domain"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository. Schema creation is
// idempotent, so opening an existing database is safe.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id INTEGER NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('system','user','assistant')),
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id);

	CREATE TABLE IF NOT EXISTS user_facts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateConversation inserts a conversation and returns its id.
func (s *SQLiteStore) CreateConversation(ctx context.Context, title string) (int64, error) {
	var t interface{}
	if title != "" {
		t = title
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (title, created_at) VALUES (?, ?)`,
		t, time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("create conversation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("conversation insert id: %w", err)
	}
	return id, nil
}

// GetConversation returns the conversation or nil when it does not exist.
func (s *SQLiteStore) GetConversation(ctx context.Context, id int64) (*domain.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at FROM conversations WHERE id = ?`, id)

	var conv domain.Conversation
	var title sql.NullString
	var createdAt int64

	err := row.Scan(&conv.ID, &title, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation row: %w", err)
	}

	conv.Title = title.String
	conv.CreatedAt = time.Unix(createdAt, 0)
	return &conv, nil
}

// SetTitleIfEmpty fills the title only when it is still NULL or empty. The
// single conditional UPDATE keeps first-writer-wins semantics under
// concurrent submissions to the same conversation.
func (s *SQLiteStore) SetTitleIfEmpty(ctx context.Context, id int64, title string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ? WHERE id = ? AND (title IS NULL OR title = '')`,
		title, id,
	)
	if err != nil {
		return fmt.Errorf("set conversation title: %w", err)
	}
	return nil
}

// ListConversations returns conversations newest-id-first.
func (s *SQLiteStore) ListConversations(ctx context.Context, limit int) ([]domain.Conversation, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at FROM conversations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		var title sql.NullString
		var createdAt int64

		if err := rows.Scan(&conv.ID, &title, &createdAt); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		conv.Title = title.String
		conv.CreatedAt = time.Unix(createdAt, 0)
		convs = append(convs, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return convs, nil
}

// InsertMessage appends a message row. The role CHECK constraint rejects
// anything outside system/user/assistant.
func (s *SQLiteStore) InsertMessage(ctx context.Context, conversationID int64, role, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		conversationID, role, content, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages fetches messages for a conversation. Without BeforeID it
// returns the oldest Limit messages in ascending id order; with BeforeID it
// returns older messages fetched newest-first and reversed when Ascending.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID int64, q MessageQuery) ([]domain.Message, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 500
	}

	if q.BeforeID > 0 {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, conversation_id, role, content, created_at
			FROM messages
			WHERE conversation_id = ? AND id < ?
			ORDER BY id DESC
			LIMIT ?`,
			conversationID, q.BeforeID, limit)
		if err != nil {
			return nil, fmt.Errorf("query messages: %w", err)
		}
		msgs, err := scanMessages(rows)
		if err != nil {
			return nil, err
		}
		if q.Ascending {
			slices.Reverse(msgs)
		}
		return msgs, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY id ASC
		LIMIT ?`,
		conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var msg domain.Message
		var createdAt int64

		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.CreatedAt = time.Unix(createdAt, 0)
		msgs = append(msgs, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// UpsertFact stores a fact with last-writer-wins semantics for the key. The
// UNIQUE index plus ON CONFLICT makes concurrent upserts of the same key
// converge on a single row.
func (s *SQLiteStore) UpsertFact(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_facts (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert fact: %w", err)
	}
	return nil
}

// DeleteFact removes a fact by key; no-op when absent.
func (s *SQLiteStore) DeleteFact(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_facts WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete fact: %w", err)
	}
	return nil
}

// ListFacts returns all facts ordered by key ascending.
func (s *SQLiteStore) ListFacts(ctx context.Context) ([]domain.Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, value, updated_at FROM user_facts ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	var facts []domain.Fact
	for rows.Next() {
		var fact domain.Fact
		var updatedAt int64

		if err := rows.Scan(&fact.ID, &fact.Key, &fact.Value, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan fact row: %w", err)
		}
		fact.UpdatedAt = time.Unix(updatedAt, 0)
		facts = append(facts, fact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return facts, nil
}

// AllFacts projects ListFacts into a key to value mapping for prompting.
func (s *SQLiteStore) AllFacts(ctx context.Context) (map[string]string, error) {
	facts, err := s.ListFacts(ctx)
	if err != nil {
		return nil, err
	}

	m := make(map[string]string, len(facts))
	for _, f := range facts {
		m[f.Key] = f.Value
	}
	return m, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
