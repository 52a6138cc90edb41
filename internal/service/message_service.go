package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"bistro/internal/model"
	"bistro/internal/realtime"
	"bistro/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxMessageLength is the longest message text accepted, in characters.
const MaxMessageLength = 2000

const streamBuffer = 32

// messageService implements MessageService.
type messageService struct {
	orders     repository.OrderRepository
	messages   repository.MessageRepository
	publisher  realtime.Publisher
	subscriber realtime.Subscriber
	logger     zerolog.Logger
	now        func() time.Time
}

// NewMessageService creates a new message service. Live updates for Stream
// are read from subscriber.
func NewMessageService(
	orders repository.OrderRepository,
	messages repository.MessageRepository,
	publisher realtime.Publisher,
	subscriber realtime.Subscriber,
	logger zerolog.Logger,
) MessageService {
	return &messageService{
		orders:     orders,
		messages:   messages,
		publisher:  publisher,
		subscriber: subscriber,
		logger:     logger.With().Str("service", "message").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SendMessage appends a message to an order's conversation.
func (s *messageService) SendMessage(ctx context.Context, orderID, senderID uuid.UUID, role model.Role, text string) (*model.OrderMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, model.ValidationError(fmt.Sprintf("message must be at most %d characters", MaxMessageLength))
	}
	if senderID == uuid.Nil {
		return nil, model.ValidationError("sender is required")
	}
	if !role.IsValid() {
		return nil, model.ValidationError(fmt.Sprintf("unknown sender role %q", role))
	}

	if err := s.ensureOrder(ctx, orderID); err != nil {
		return nil, err
	}

	msg := &model.OrderMessage{
		ID:         uuid.New(),
		OrderID:    orderID,
		SenderID:   senderID,
		SenderRole: role,
		Message:    text,
		CreatedAt:  s.now(),
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to send message")
		return nil, persistenceError(err)
	}

	s.logger.Debug().
		Str("order_id", orderID.String()).
		Str("message_id", msg.ID.String()).
		Str("sender_role", string(role)).
		Msg("message sent")

	publish(ctx, s.publisher, s.logger, realtime.TableMessages, realtime.EventInsert, msg.ID, orderID, msg)

	return msg, nil
}

// GetMessages retrieves the conversation of an order, oldest first.
func (s *messageService) GetMessages(ctx context.Context, orderID uuid.UUID) ([]model.OrderMessage, error) {
	if err := s.ensureOrder(ctx, orderID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByOrder(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get messages")
		return nil, persistenceError(err)
	}
	return messages, nil
}

// Stream subscribes to new messages before reading the history so nothing
// written in between is lost; the Feed drops the overlap. When the
// subscription overflows, the stored conversation is re-read and merged.
func (s *messageService) Stream(ctx context.Context, orderID uuid.UUID, emit func([]model.OrderMessage) error) error {
	if err := s.ensureOrder(ctx, orderID); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	live := make(chan model.OrderMessage, streamBuffer)
	sub := s.subscriber.Subscribe(realtime.Filter{
		Table:   realtime.TableMessages,
		Types:   []realtime.EventType{realtime.EventInsert},
		OrderID: orderID,
	}, func(e realtime.Event) {
		var msg model.OrderMessage
		if err := json.Unmarshal(e.Record, &msg); err != nil {
			s.logger.Warn().Err(err).Str("record_id", e.RecordID.String()).Msg("dropping malformed message event")
			return
		}
		select {
		case live <- msg:
		case <-ctx.Done():
		}
	})
	defer s.subscriber.Unsubscribe(sub)

	history, err := s.messages.ListByOrder(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get messages")
		return persistenceError(err)
	}

	feed := NewFeed()
	if err := emit(feed.Merge(history...)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-live:
			added := feed.Merge(msg)
			if len(added) == 0 {
				continue
			}
			if err := emit(added); err != nil {
				return err
			}
		case <-sub.Missed():
			// Live events were dropped; the stored conversation fills the gap.
			s.logger.Warn().Str("order_id", orderID.String()).Msg("stream fell behind, resynchronising")
			stored, err := s.messages.ListByOrder(ctx, orderID)
			if err != nil {
				s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get messages")
				return persistenceError(err)
			}
			added := feed.Merge(stored...)
			if len(added) == 0 {
				continue
			}
			if err := emit(added); err != nil {
				return err
			}
		}
	}
}

func (s *messageService) ensureOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order")
		return persistenceError(err)
	}
	if order == nil {
		return model.ErrOrderNotFound
	}
	return nil
}
