package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bistro/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const uniqueViolation = "23505"

// assignmentRepository implements the AssignmentRepository interface using PostgreSQL.
type assignmentRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAssignmentRepository creates a new PostgreSQL-backed assignment repository.
func NewAssignmentRepository(pool *pgxpool.Pool, logger zerolog.Logger) AssignmentRepository {
	return &assignmentRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "assignment").Logger(),
	}
}

// Assign claims the driver, inserts the assignment and moves the order to
// delivering inside one transaction.
func (r *assignmentRepository) Assign(ctx context.Context, a *model.DeliveryAssignment, orderFrom model.OrderStatus) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	// Compare-and-set on the driver serialises concurrent assignments.
	tag, err := tx.Exec(ctx,
		`UPDATE drivers SET status = 'delivering' WHERE id = $1 AND status = 'available'`,
		a.DriverID,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("driver_id", a.DriverID).Msg("failed to claim driver")
		return fmt.Errorf("failed to claim driver: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn().Str("driver_id", a.DriverID).Msg("driver no longer available")
		return model.ErrDriverUnavailable
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO delivery_assignments (id, order_id, driver_id, driver_name, status, assigned_at, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.OrderID, a.DriverID, a.DriverName, a.Status, a.AssignedAt, a.DeliveredAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			r.logger.Warn().
				Str("order_id", a.OrderID.String()).
				Str("constraint", pgErr.ConstraintName).
				Msg("assignment already exists")
			return model.ErrAssignmentExists
		}
		r.logger.Error().Err(err).Str("order_id", a.OrderID.String()).Msg("failed to insert assignment")
		return fmt.Errorf("failed to insert assignment: %w", err)
	}

	tag, err = tx.Exec(ctx,
		`UPDATE orders SET status = 'delivering', updated_at = $3 WHERE id = $1 AND status = $2`,
		a.OrderID, orderFrom, a.AssignedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", a.OrderID.String()).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn().Str("order_id", a.OrderID.String()).Msg("order status changed concurrently")
		return model.ErrInvalidTransition
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("order_id", a.OrderID.String()).Msg("failed to commit transaction")
		return fmt.Errorf("failed to assign driver: %w", err)
	}

	r.logger.Debug().
		Str("assignment_id", a.ID.String()).
		Str("order_id", a.OrderID.String()).
		Str("driver_id", a.DriverID).
		Msg("driver assigned")

	return nil
}

// GetByOrderID retrieves the assignment of an order.
func (r *assignmentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.DeliveryAssignment, error) {
	query := `
		SELECT id, order_id, driver_id, driver_name, status, assigned_at, delivered_at
		FROM delivery_assignments
		WHERE order_id = $1
	`

	var a model.DeliveryAssignment
	err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&a.ID,
		&a.OrderID,
		&a.DriverID,
		&a.DriverName,
		&a.Status,
		&a.AssignedAt,
		&a.DeliveredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", orderID.String()).Msg("assignment not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query assignment")
		return nil, fmt.Errorf("failed to query assignment: %w", err)
	}

	return &a, nil
}

// Advance moves the assignment forward; delivery also completes the order
// and frees the driver inside the same transaction.
func (r *assignmentRepository) Advance(ctx context.Context, id uuid.UUID, from, to model.AssignmentStatus, at time.Time) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	var deliveredAt *time.Time
	if to == model.AssignmentStatusDelivered {
		deliveredAt = &at
	}

	// Locking the order serialises with a concurrent cancel; the delivery
	// only moves while the order is out for delivery.
	var orderStatus model.OrderStatus
	err = tx.QueryRow(ctx, `
		SELECT o.status FROM orders o
		JOIN delivery_assignments a ON a.order_id = o.id
		WHERE a.id = $1
		FOR UPDATE OF o`,
		id,
	).Scan(&orderStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn().Str("assignment_id", id.String()).Msg("assignment not found")
			err = model.ErrInvalidTransition
			return err
		}
		r.logger.Error().Err(err).Str("assignment_id", id.String()).Msg("failed to lock order")
		return fmt.Errorf("failed to lock order: %w", err)
	}
	if orderStatus != model.OrderStatusDelivering {
		r.logger.Warn().
			Str("assignment_id", id.String()).
			Str("order_status", string(orderStatus)).
			Msg("order is no longer out for delivery")
		err = model.ErrInvalidTransition
		return err
	}

	var orderID uuid.UUID
	var driverID string
	err = tx.QueryRow(ctx, `
		UPDATE delivery_assignments SET status = $3, delivered_at = $4
		WHERE id = $1 AND status = $2
		RETURNING order_id, driver_id`,
		id, from, to, deliveredAt,
	).Scan(&orderID, &driverID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn().Str("assignment_id", id.String()).Msg("assignment status changed concurrently")
			err = model.ErrInvalidTransition
			return err
		}
		r.logger.Error().Err(err).Str("assignment_id", id.String()).Msg("failed to update assignment")
		return fmt.Errorf("failed to update assignment: %w", err)
	}

	if to == model.AssignmentStatusDelivered {
		tag, err := tx.Exec(ctx,
			`UPDATE orders SET status = 'delivered', updated_at = $2 WHERE id = $1 AND status = 'delivering'`,
			orderID, at,
		)
		if err != nil {
			r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to complete order")
			return fmt.Errorf("failed to complete order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			r.logger.Warn().Str("order_id", orderID.String()).Msg("order is no longer out for delivery")
			return model.ErrInvalidTransition
		}

		_, err = tx.Exec(ctx,
			`UPDATE drivers SET status = 'available' WHERE id = $1 AND status = 'delivering'`,
			driverID,
		)
		if err != nil {
			r.logger.Error().Err(err).Str("driver_id", driverID).Msg("failed to release driver")
			return fmt.Errorf("failed to release driver: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("assignment_id", id.String()).Msg("failed to commit transaction")
		return fmt.Errorf("failed to update assignment: %w", err)
	}

	r.logger.Debug().
		Str("assignment_id", id.String()).
		Str("status", string(to)).
		Msg("assignment advanced")

	return nil
}
