package monitor

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/managerd/internal/client"
	"github.com/fyrsmithlabs/managerd/internal/dashboard"
	"github.com/fyrsmithlabs/managerd/internal/notify"
)

// Snapshot is one poll of the daemon.
type Snapshot struct {
	Authenticated bool
	Agency        string
	Provider      string
	ProviderReady bool
	Monitoring    bool

	Stats    dashboard.Stats
	Overdue  int
	Upcoming int

	Totals       dashboard.Totals
	Transactions int

	Notifications []notify.Notification
}

// Open is the number of tasks not yet completed.
func (s Snapshot) Open() int {
	return s.Stats.Total - s.Stats.Completed
}

// Source produces snapshots.
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	Describe() string
}

// ClientSource polls a managerd daemon over its HTTP API.
type ClientSource struct {
	c *client.Client
}

// NewClientSource wraps an API client.
func NewClientSource(c *client.Client) *ClientSource {
	return &ClientSource{c: c}
}

// Describe returns the daemon address.
func (s *ClientSource) Describe() string {
	return s.c.BaseURL()
}

// Snapshot reads session, task, ledger and notification state. A closed
// session yields a snapshot with only the session fields set.
func (s *ClientSource) Snapshot(ctx context.Context) (Snapshot, error) {
	sess, err := s.c.Session(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("session: %w", err)
	}
	snap := Snapshot{
		Authenticated: sess.Authenticated,
		Agency:        sess.Agency,
		Provider:      sess.Provider,
		ProviderReady: sess.ProviderReady,
		Monitoring:    sess.Monitoring,
	}
	if !sess.Authenticated {
		return snap, nil
	}

	all, err := s.c.Tasks(ctx, dashboard.Filter{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("tasks: %w", err)
	}
	snap.Stats = all.Stats

	overdue, err := s.c.Tasks(ctx, dashboard.Filter{Bucket: dashboard.BucketOverdue})
	if err != nil {
		return Snapshot{}, fmt.Errorf("overdue tasks: %w", err)
	}
	snap.Overdue = overdue.Stats.Total

	upcoming, err := s.c.Tasks(ctx, dashboard.Filter{Bucket: dashboard.BucketUpcoming})
	if err != nil {
		return Snapshot{}, fmt.Errorf("upcoming tasks: %w", err)
	}
	snap.Upcoming = upcoming.Stats.Total

	ledger, err := s.c.Ledger(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("ledger: %w", err)
	}
	snap.Totals = ledger.Totals
	snap.Transactions = len(ledger.Transactions)

	snap.Notifications, err = s.c.Notifications(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("notifications: %w", err)
	}
	return snap, nil
}
