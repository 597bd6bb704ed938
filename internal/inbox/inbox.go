// Package inbox persists in-app web notifications.
package inbox

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"theftalert/internal/domain"
	"theftalert/internal/store"
)

// namespace scopes web notification IDs derived from idempotency keys.
var namespace = uuid.MustParse("4f5d0c0e-7a53-4b8e-9a77-1f3c2b6d9e10")

// NotificationID derives a stable notification ID from key, so redelivered
// intents map onto the same row.
func NotificationID(key domain.Key) string {
	return uuid.NewSHA1(namespace, []byte(key.String())).String()
}

// Build converts a web intent into its persisted record.
func Build(intent domain.NotificationIntent, now time.Time) domain.WebNotification {
	notificationType := intent.Payload.Type
	if notificationType == "" {
		notificationType = domain.WebNotificationType
	}
	return domain.WebNotification{
		ID:        NotificationID(intent.Key()),
		UserID:    intent.UserID,
		ReportID:  intent.ReportID,
		Type:      notificationType,
		Title:     intent.Payload.Title,
		Message:   intent.Payload.Body,
		Link:      intent.Payload.Link,
		CreatedAt: now.UTC(),
	}
}

// Inbox writes notifications to the engine database.
type Inbox struct {
	store *store.Store
	now   func() time.Time
}

// New returns an Inbox over st.
func New(st *store.Store) *Inbox {
	return &Inbox{store: st, now: time.Now}
}

// Deliver stores the web notification for intent. It reports whether a new
// row was written; false means an earlier delivery already stored it.
func (i *Inbox) Deliver(ctx context.Context, intent domain.NotificationIntent) (bool, error) {
	if intent.Channel != domain.ChannelWeb {
		return false, fmt.Errorf("inbox deliver: channel %s is not web", intent.Channel)
	}
	return i.store.InsertWebNotification(ctx, Build(intent, i.now()))
}

// List returns a user's notifications, newest first.
func (i *Inbox) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.WebNotification, error) {
	return i.store.ListWebNotifications(ctx, store.NotificationFilter{UserID: userID, UnreadOnly: unreadOnly, Limit: limit})
}

// MarkRead flags one notification as read.
func (i *Inbox) MarkRead(ctx context.Context, id string) (bool, error) {
	return i.store.MarkWebNotificationRead(ctx, id)
}

// Memory keeps notifications in process. Dry runs and tests use it.
type Memory struct {
	mu    sync.Mutex
	items map[string]domain.WebNotification
}

// NewMemory returns an empty in-process inbox.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]domain.WebNotification)}
}

func (m *Memory) Deliver(_ context.Context, intent domain.NotificationIntent) (bool, error) {
	if intent.Channel != domain.ChannelWeb {
		return false, fmt.Errorf("inbox deliver: channel %s is not web", intent.Channel)
	}
	n := Build(intent, time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[n.ID]; ok {
		return false, nil
	}
	m.items[n.ID] = n
	return true, nil
}

// All returns stored notifications ordered by user then report.
func (m *Memory) All() []domain.WebNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.WebNotification, 0, len(m.items))
	for _, n := range m.items {
		out = append(out, n)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].UserID != out[b].UserID {
			return out[a].UserID < out[b].UserID
		}
		return out[a].ReportID < out[b].ReportID
	})
	return out
}
