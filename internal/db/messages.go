package db

import (
	"context"
	"fmt"
	"time"

	"lifeos/internal/models"
)

// InsertMessage stores one chat message and returns it with its assigned id
// and timestamp.
func (c *Client) InsertMessage(ctx context.Context, role models.Role, content string) (models.Message, error) {
	const query = `
		INSERT INTO messages (role, content)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	var (
		id        string
		createdAt time.Time
	)
	if err := c.pool.QueryRow(ctx, query, string(role), content).Scan(&id, &createdAt); err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}

	return models.Message{
		ID:        id,
		Role:      role,
		Content:   content,
		CreatedAt: createdAt,
		State:     models.StateConfirmed,
	}, nil
}

// ListMessages returns one page of messages, newest first. Pages are 1-based.
func (c *Client) ListMessages(ctx context.Context, page, limit int) ([]models.Message, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	const query = `
		SELECT id, role, content, created_at
		FROM messages
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := c.pool.Query(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]models.Message, 0, limit)
	for rows.Next() {
		var (
			m    models.Message
			role string
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = models.Role(role)
		m.State = models.StateConfirmed
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return msgs, nil
}

// CountMessages returns the number of stored (non-deleted) messages.
func (c *Client) CountMessages(ctx context.Context) (int, error) {
	var total int
	if err := c.pool.QueryRow(ctx, `SELECT count(*) FROM messages WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return total, nil
}
