package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"bistro/internal/model"
	"bistro/internal/realtime"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// persistenceError marks a store failure. Domain errors raised by the store
// pass through unchanged.
func persistenceError(err error) error {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrPersistence, err)
}

// validationError turns validator output into a single validation failure.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return model.ValidationError(err.Error())
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.TrimPrefix(fe.Namespace(), "OrderDraft.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must contain at least %s entries", field, fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return model.ValidationError(strings.Join(msgs, "; "))
}

// publish emits a change event. The write it describes has already been
// committed, so failures are logged and not returned.
func publish(ctx context.Context, p realtime.Publisher, logger zerolog.Logger, table string, eventType realtime.EventType, recordID, orderID uuid.UUID, record any) {
	event, err := realtime.NewEvent(table, eventType, recordID, orderID, record)
	if err != nil {
		logger.Error().Err(err).Str("table", table).Msg("failed to encode change event")
		return
	}
	if err := p.Publish(context.WithoutCancel(ctx), event); err != nil {
		logger.Warn().
			Err(err).
			Str("table", table).
			Str("record_id", recordID.String()).
			Msg("failed to publish change event")
	}
}
