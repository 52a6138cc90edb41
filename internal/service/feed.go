package service

import (
	"sort"
	"sync"

	"bistro/internal/model"

	"github.com/google/uuid"
)

// Feed is the ordered, deduplicated view of an order's conversation. It
// only grows: merging a message that is already present is a no-op.
type Feed struct {
	mu       sync.Mutex
	seen     map[uuid.UUID]struct{}
	messages []model.OrderMessage
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{seen: make(map[uuid.UUID]struct{})}
}

func messageBefore(a, b model.OrderMessage) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// Merge adds the messages not seen before and returns them in feed order.
func (f *Feed) Merge(messages ...model.OrderMessage) []model.OrderMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	added := make([]model.OrderMessage, 0, len(messages))
	for _, m := range messages {
		if _, ok := f.seen[m.ID]; ok {
			continue
		}
		f.seen[m.ID] = struct{}{}
		added = append(added, m)

		i := sort.Search(len(f.messages), func(i int) bool {
			return messageBefore(m, f.messages[i])
		})
		f.messages = append(f.messages, model.OrderMessage{})
		copy(f.messages[i+1:], f.messages[i:])
		f.messages[i] = m
	}

	sort.Slice(added, func(i, j int) bool { return messageBefore(added[i], added[j]) })
	return added
}

// Messages returns a copy of the feed in order.
func (f *Feed) Messages() []model.OrderMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.OrderMessage{}, f.messages...)
}

// Len returns the number of messages in the feed.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}
