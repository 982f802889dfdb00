package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/managerd/internal/kvstore"
)

// PushChannel sends best-effort messages to the single configured
// recipient. The recipient id is persisted; when unset, sends are
// silently suppressed.
type PushChannel struct {
	pusher Pusher
	kv     kvstore.Store
	logger *zap.Logger

	mu        sync.RWMutex
	recipient string
}

// NewPushChannel creates a channel over pusher with the recipient kept in kv.
func NewPushChannel(pusher Pusher, kv kvstore.Store, logger *zap.Logger) *PushChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushChannel{pusher: pusher, kv: kv, logger: logger}
}

// Load restores the persisted recipient.
func (p *PushChannel) Load(ctx context.Context) error {
	var recipient string
	if _, err := kvstore.LoadJSON(ctx, p.kv, kvstore.KeyPushRecipient, &recipient); err != nil {
		return fmt.Errorf("load push recipient: %w", err)
	}
	p.mu.Lock()
	p.recipient = recipient
	p.mu.Unlock()
	return nil
}

// Recipient returns the configured recipient id, or "".
func (p *PushChannel) Recipient() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.recipient
}

// SetRecipient persists a new recipient id. An empty id disables pushes.
func (p *PushChannel) SetRecipient(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := kvstore.SaveJSON(ctx, p.kv, kvstore.KeyPushRecipient, id); err != nil {
		return fmt.Errorf("persist push recipient: %w", err)
	}
	p.recipient = id
	return nil
}

// Push sends text to the recipient. Failures are logged and swallowed;
// the return value reports whether a message went out.
func (p *PushChannel) Push(ctx context.Context, text string) bool {
	recipient := p.Recipient()
	if recipient == "" || p.pusher == nil {
		PushTotal.WithLabelValues("suppressed").Inc()
		return false
	}
	if err := p.pusher.Send(ctx, recipient, text); err != nil {
		PushTotal.WithLabelValues("error").Inc()
		p.logger.Warn("push message failed", zap.Error(err))
		return false
	}
	PushTotal.WithLabelValues("sent").Inc()
	return true
}
