package repository

import (
	"context"
	"fmt"

	"bistro/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// messageRepository implements the MessageRepository interface using PostgreSQL.
type messageRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewMessageRepository creates a new PostgreSQL-backed message repository.
func NewMessageRepository(pool *pgxpool.Pool, logger zerolog.Logger) MessageRepository {
	return &messageRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "message").Logger(),
	}
}

// Create appends a message to an order's conversation.
func (r *messageRepository) Create(ctx context.Context, m *model.OrderMessage) error {
	query := `
		INSERT INTO order_messages (id, order_id, sender_id, sender_role, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query, m.ID, m.OrderID, m.SenderID, m.SenderRole, m.Message, m.CreatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", m.OrderID.String()).
			Msg("failed to create message")
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// ListByOrder retrieves the messages of an order, oldest first.
func (r *messageRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.OrderMessage, error) {
	query := `
		SELECT id, order_id, sender_id, sender_role, message, created_at
		FROM order_messages
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query messages")
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []model.OrderMessage{}
	for rows.Next() {
		var m model.OrderMessage
		if err := rows.Scan(&m.ID, &m.OrderID, &m.SenderID, &m.SenderRole, &m.Message, &m.CreatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan message row")
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating message rows")
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}
