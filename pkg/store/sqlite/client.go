// Package sqlite provides the SQLite implementation of store.Store.
//
// SQLite is a lightweight, file-based database suitable for local development
// and single-host deployments. Tags are stored as JSON strings in TEXT fields.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/recollect-ai/recollect-go/pkg/core"
	"github.com/recollect-ai/recollect-go/pkg/store"
)

// Client implements store.Store using SQLite as the backend.
type Client struct {
	db *sql.DB
}

// Config contains configuration for creating a SQLite store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// NewClient creates a new SQLite store client.
//
// Parameters:
//   - cfg: Configuration containing the database path
//
// Returns:
//   - *Client: The SQLite client instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{db: db}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	memories := `
		CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY,
			profile_id TEXT NOT NULL,
			content TEXT NOT NULL,
			memory_type TEXT NOT NULL,
			importance_score REAL NOT NULL DEFAULT 0,
			tags TEXT,
			mention_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := c.db.ExecContext(ctx, memories); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	messages := `
		CREATE TABLE IF NOT EXISTS chat_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			profile_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := c.db.ExecContext(ctx, messages); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_memories_profile ON memories(profile_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON chat_messages(session_id, id)`,
	}
	for _, q := range indexes {
		if _, err := c.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("initTables: %w", err)
		}
	}

	return nil
}

// CreateMemory inserts a memory into the SQLite database.
func (c *Client) CreateMemory(ctx context.Context, memory *core.Memory) error {
	tagsJSON, err := json.Marshal(memory.Tags)
	if err != nil {
		return fmt.Errorf("CreateMemory: %w", err)
	}

	now := time.Now()
	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = now
	}
	memory.UpdatedAt = now

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO memories
		(id, profile_id, content, memory_type, importance_score, tags, mention_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		memory.ID,
		memory.ProfileID,
		memory.Content,
		string(memory.Type),
		memory.ImportanceScore,
		string(tagsJSON),
		memory.MentionCount,
		memory.CreatedAt,
		memory.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("CreateMemory: %w", err)
	}

	return nil
}

// GetMemory retrieves a memory by ID within the given profile.
func (c *Client) GetMemory(ctx context.Context, profileID string, id int64) (*core.Memory, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, profile_id, content, memory_type, importance_score, tags, mention_count, created_at, updated_at
		FROM memories
		WHERE id = ? AND profile_id = ?
	`, id, profileID)

	memory, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("GetMemory: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetMemory: %w", err)
	}

	return memory, nil
}

// UpdateMemory replaces a memory's content, importance score, and tags.
func (c *Client) UpdateMemory(ctx context.Context, profileID string, id int64, content string, importance float64, tags []string) (*core.Memory, error) {
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("UpdateMemory: %w", err)
	}

	result, err := c.db.ExecContext(ctx, `
		UPDATE memories
		SET content = ?, importance_score = ?, tags = ?, updated_at = ?
		WHERE id = ? AND profile_id = ?
	`, content, importance, string(tagsJSON), time.Now(), id, profileID)
	if err != nil {
		return nil, fmt.Errorf("UpdateMemory: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("UpdateMemory: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("UpdateMemory: %w", core.ErrNotFound)
	}

	return c.GetMemory(ctx, profileID, id)
}

// IncrementMention atomically increments a memory's mention count.
//
// The increment happens inside a single UPDATE statement so concurrent turns
// racing on the same memory never lose updates.
func (c *Client) IncrementMention(ctx context.Context, profileID string, id int64) error {
	result, err := c.db.ExecContext(ctx, `
		UPDATE memories
		SET mention_count = mention_count + 1, updated_at = ?
		WHERE id = ? AND profile_id = ?
	`, time.Now(), id, profileID)
	if err != nil {
		return fmt.Errorf("IncrementMention: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("IncrementMention: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("IncrementMention: %w", core.ErrNotFound)
	}

	return nil
}

// ListMemories retrieves memories for a profile, newest first.
func (c *Client) ListMemories(ctx context.Context, profileID string, opts *store.ListOptions) ([]*core.Memory, error) {
	if opts == nil {
		opts = &store.ListOptions{}
	}

	query := `
		SELECT id, profile_id, content, memory_type, importance_score, tags, mention_count, created_at, updated_at
		FROM memories
		WHERE profile_id = ?
	`
	args := []interface{}{profileID}

	if !opts.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, opts.Since)
	}
	if len(opts.Types) > 0 {
		query += " AND memory_type IN (?" + repeatPlaceholder(len(opts.Types)-1) + ")"
		for _, t := range opts.Types {
			args = append(args, string(t))
		}
	}

	query += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 200
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, opts.Offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListMemories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*core.Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("ListMemories: %w", err)
		}
		memories = append(memories, memory)
	}

	return memories, rows.Err()
}

// DeleteMemory deletes a memory by ID within the given profile.
func (c *Client) DeleteMemory(ctx context.Context, profileID string, id int64) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ? AND profile_id = ?`, id, profileID)
	if err != nil {
		return fmt.Errorf("DeleteMemory: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteMemory: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("DeleteMemory: %w", core.ErrNotFound)
	}

	return nil
}

// AppendMessage appends a chat message to a session.
func (c *Client) AppendMessage(ctx context.Context, message *core.ChatMessage) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	result, err := c.db.ExecContext(ctx, `
		INSERT INTO chat_messages (session_id, profile_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, message.SessionID, message.ProfileID, message.Role, message.Content, message.CreatedAt)
	if err != nil {
		return fmt.Errorf("AppendMessage: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		message.ID = id
	}

	return nil
}

// RecentMessages returns the most recent messages of a session in
// chronological order.
func (c *Client) RecentMessages(ctx context.Context, sessionID string, limit int) ([]*core.ChatMessage, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, session_id, profile_id, role, content, created_at
		FROM chat_messages
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentMessages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*core.ChatMessage
	for rows.Next() {
		var msg core.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.ProfileID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("RecentMessages: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// CountMessages returns the number of messages appended to a session.
func (c *Client) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_messages WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountMessages: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// scanMemory scans a memory from a database row or rows.
func scanMemory(scanner interface{ Scan(...interface{}) error }) (*core.Memory, error) {
	var memory core.Memory
	var memoryType string
	var tagsStr sql.NullString

	err := scanner.Scan(
		&memory.ID,
		&memory.ProfileID,
		&memory.Content,
		&memoryType,
		&memory.ImportanceScore,
		&tagsStr,
		&memory.MentionCount,
		&memory.CreatedAt,
		&memory.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	memory.Type = core.MemoryType(memoryType)
	if tagsStr.Valid && tagsStr.String != "" {
		if err := json.Unmarshal([]byte(tagsStr.String), &memory.Tags); err != nil {
			return nil, fmt.Errorf("parse tags: %w", err)
		}
	}

	return &memory, nil
}

// repeatPlaceholder returns n copies of ", ?" for IN clauses.
func repeatPlaceholder(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ", ?"
	}
	return s
}

var _ store.Store = (*Client)(nil)
