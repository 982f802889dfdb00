// Package session implements the passphrase gate in front of the manager.
//
// The gate owns the persisted authenticated flag and the lifetime of the
// deadline monitor: a successful login starts it and logout stops it.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/managerd/internal/kvstore"
	"github.com/fyrsmithlabs/managerd/internal/notify"
	"github.com/fyrsmithlabs/managerd/internal/schedule"
)

// DefaultPassphrase is used when none is configured.
const DefaultPassphrase = "Nikto forever"

var (
	// ErrAccessDenied is returned for a wrong passphrase.
	ErrAccessDenied = errors.New("access denied: invalid security clearance")

	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Credential reports whether the provider can be called.
type Credential interface {
	Ready() error
}

// Monitor is the background job tied to the session.
type Monitor interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
}

// Alerter raises in-process notifications.
type Alerter interface {
	Notify(ctx context.Context, title, message string, kind notify.Kind) notify.Notification
}

// Config holds the collaborators of a Gate. Monitor and Logger may be nil.
type Config struct {
	Passphrase string
	Store      kvstore.Store
	Credential Credential
	Monitor    Monitor
	Alerter    Alerter
	Logger     *zap.Logger
}

// Gate guards the manager behind a static passphrase.
type Gate struct {
	passphrase []byte
	kv         kvstore.Store
	credential Credential
	monitor    Monitor
	alerter    Alerter
	logger     *zap.Logger

	mu            sync.RWMutex
	authenticated bool
	id            string
}

// NewGate creates a logged-out gate. Call Load to restore a persisted
// session.
func NewGate(cfg Config) (*Gate, error) {
	if cfg.Store == nil {
		return nil, errors.New("key-value store is required")
	}
	if cfg.Credential == nil {
		return nil, errors.New("credential check is required")
	}
	if cfg.Alerter == nil {
		return nil, errors.New("alerter is required")
	}
	if cfg.Passphrase == "" {
		cfg.Passphrase = DefaultPassphrase
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Gate{
		passphrase: []byte(cfg.Passphrase),
		kv:         cfg.Store,
		credential: cfg.Credential,
		monitor:    cfg.Monitor,
		alerter:    cfg.Alerter,
		logger:     cfg.Logger,
	}, nil
}

// Load restores the persisted flag and resumes the monitor for a live
// session.
func (g *Gate) Load(ctx context.Context) error {
	var authed bool
	if _, err := kvstore.LoadJSON(ctx, g.kv, kvstore.KeyAuthenticated, &authed); err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.authenticated = authed
	if authed {
		g.id = uuid.NewString()
		g.startMonitor(ctx)
	}
	return nil
}

// Authenticated reports whether a session is active.
func (g *Gate) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.authenticated
}

// SessionID identifies the current session for log correlation. It is
// regenerated on every login and restore, and empty while locked.
func (g *Gate) SessionID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.id
}

// Login opens a session. A missing provider credential blocks login
// before the passphrase is checked.
func (g *Gate) Login(ctx context.Context, passphrase string) error {
	if err := g.credential.Ready(); err != nil {
		g.logger.Warn("login blocked by system configuration", zap.Error(err))
		return fmt.Errorf("cannot login: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(passphrase), g.passphrase) != 1 {
		g.logger.Warn("login rejected")
		return ErrAccessDenied
	}

	g.mu.Lock()
	if err := kvstore.SaveJSON(ctx, g.kv, kvstore.KeyAuthenticated, true); err != nil {
		g.mu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	g.authenticated = true
	g.id = uuid.NewString()
	id := g.id
	g.startMonitor(ctx)
	g.mu.Unlock()

	g.logger.Info("session opened", zap.String("session.id", id))
	g.alerter.Notify(ctx, "System Access", "Welcome back, Commander.", notify.KindInfo)
	return nil
}

// Logout closes the session and stops the monitor. Calls already in
// flight are not cancelled.
func (g *Gate) Logout(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.kv.Delete(ctx, kvstore.KeyAuthenticated); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return fmt.Errorf("clear session: %w", err)
	}
	id := g.id
	g.authenticated = false
	g.id = ""
	if g.monitor != nil {
		g.monitor.Stop()
	}
	g.logger.Info("session closed", zap.String("session.id", id))
	return nil
}

// startMonitor must be called with mu held.
func (g *Gate) startMonitor(ctx context.Context) {
	if g.monitor == nil {
		return
	}
	if err := g.monitor.Start(ctx); err != nil && !errors.Is(err, schedule.ErrAlreadyRunning) {
		g.logger.Error("failed to start deadline monitor", zap.Error(err))
	}
}
