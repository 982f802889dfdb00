// Package notify raises transient operator alerts and forwards them to
// out-of-process channels: a Telegram push bot and a NATS event subject.
package notify

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind is the severity of a notification.
type Kind string

const (
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindAlert   Kind = "alert"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 5 * time.Second

// Notification is a transient alert. It is never persisted.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Kind      Kind      `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// Publisher fans notifications out to other processes.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(n *Notifier) {
		if ttl > 0 {
			n.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// WithPublisher attaches an event fan-out.
func WithPublisher(p Publisher) Option {
	return func(n *Notifier) { n.publisher = p }
}

// Notifier holds the live notification set. Entries expire TTL after
// creation and are pruned whenever the set is read or written.
type Notifier struct {
	ttl       time.Duration
	now       func() time.Time
	publisher Publisher
	logger    *zap.Logger

	mu    sync.Mutex
	items []Notification
}

// New creates a Notifier.
func New(logger *zap.Logger, opts ...Option) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify raises a notification. Publishing is best effort; failures are
// logged and do not affect the local set.
func (n *Notifier) Notify(ctx context.Context, title, message string, kind Kind) Notification {
	now := n.now()
	note := Notification{
		ID:        strconv.FormatInt(now.UnixMilli(), 10) + "-" + uuid.NewString()[:8],
		Title:     title,
		Message:   message,
		Kind:      kind,
		CreatedAt: now,
	}

	n.mu.Lock()
	n.prune(now)
	n.items = append(n.items, note)
	n.mu.Unlock()

	NotificationsTotal.WithLabelValues(string(kind)).Inc()
	n.logger.Debug("notification raised",
		zap.String("notification.kind", string(kind)),
		zap.String("notification.title", title))

	if n.publisher != nil {
		if err := n.publisher.Publish(ctx, note); err != nil {
			n.logger.Warn("failed to publish notification", zap.String("notification.id", note.ID), zap.Error(err))
		}
	}
	return note
}

// List returns live notifications, oldest first.
func (n *Notifier) List() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prune(n.now())
	return append([]Notification(nil), n.items...)
}

// Dismiss removes a notification before it expires. It reports whether
// the id was live.
func (n *Notifier) Dismiss(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prune(n.now())
	for i, item := range n.items {
		if item.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}

// prune drops expired entries. Caller holds mu.
func (n *Notifier) prune(now time.Time) {
	live := n.items[:0]
	for _, item := range n.items {
		if now.Sub(item.CreatedAt) < n.ttl {
			live = append(live, item)
		}
	}
	for i := len(live); i < len(n.items); i++ {
		n.items[i] = Notification{}
	}
	n.items = live
}
