// Package deadline watches open tasks and warns once per task when its
// deadline comes within the warning window.
package deadline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/managerd/internal/entity"
	"github.com/fyrsmithlabs/managerd/internal/logging"
	"github.com/fyrsmithlabs/managerd/internal/notify"
	"github.com/fyrsmithlabs/managerd/internal/schedule"
)

const (
	DefaultInterval = 60 * time.Second
	DefaultWindow   = 24 * time.Hour
)

// WarningsTotal counts deadline warnings fired.
var WarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "managerd",
	Subsystem: "deadline",
	Name:      "warnings_total",
	Help:      "Total number of deadline warnings fired",
})

// TaskStore is the slice of the entity store the monitor needs.
type TaskStore interface {
	Tasks() []entity.Task
	MarkNotified(ctx context.Context, id string) error
}

// Alerter raises an in-process notification.
type Alerter interface {
	Notify(ctx context.Context, title, message string, kind notify.Kind) notify.Notification
}

// Pusher sends a best-effort out-of-process message.
type Pusher interface {
	Push(ctx context.Context, text string) bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the tick interval. Defaults to DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithWindow sets how far ahead a deadline triggers a warning.
func WithWindow(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithLocation sets the zone for deadlines without an offset.
func WithLocation(loc *time.Location) Option {
	return func(m *Monitor) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// Monitor scans tasks on every tick. A task is eligible while it is a
// task, has a parseable deadline, is not completed, and has not been
// warned. It fires when 0 < deadline-now < window and is then marked
// notified for good. Tasks that pass their deadline without a tick
// landing inside the window are never warned.
type Monitor struct {
	store    TaskStore
	alerter  Alerter
	pusher   Pusher
	logger   *zap.Logger
	interval time.Duration
	window   time.Duration
	loc      *time.Location

	job *schedule.Job
}

// NewMonitor creates a stopped monitor. pusher may be nil.
func NewMonitor(store TaskStore, alerter Alerter, pusher Pusher, logger *zap.Logger, opts ...Option) (*Monitor, error) {
	if store == nil {
		return nil, errors.New("task store is required")
	}
	if alerter == nil {
		return nil, errors.New("alerter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Monitor{
		store:    store,
		alerter:  alerter,
		pusher:   pusher,
		logger:   logger,
		interval: DefaultInterval,
		window:   DefaultWindow,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(m)
	}

	job, err := schedule.NewJob("deadline-monitor", m.interval, func(ctx context.Context, now time.Time) {
		m.Check(ctx, now)
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create deadline job: %w", err)
	}
	m.job = job
	return m, nil
}

// Start begins periodic checks.
func (m *Monitor) Start(ctx context.Context) error {
	return m.job.Start(ctx)
}

// Stop halts periodic checks. No check runs after Stop returns.
func (m *Monitor) Stop() {
	m.job.Stop()
}

// Running reports whether periodic checks are active.
func (m *Monitor) Running() bool {
	return m.job.Running()
}

// Check runs one scan at now and returns the tasks it warned about.
func (m *Monitor) Check(ctx context.Context, now time.Time) []entity.Task {
	ctx = logging.WithChannel(ctx, logging.ChannelMonitor)
	var fired []entity.Task
	for _, task := range m.store.Tasks() {
		if !m.eligible(task) {
			continue
		}
		due, err := entity.ParseDeadline(task.Deadline, m.loc)
		if err != nil {
			continue
		}
		until := due.Sub(now)
		if until <= 0 || until >= m.window {
			continue
		}

		// Flip the flag first so a failed write cannot cause a repeat
		// warning on the next tick.
		if err := m.store.MarkNotified(ctx, task.ID); err != nil {
			m.logger.Error("failed to mark task notified",
				append(logging.ContextFields(ctx), zap.String("task.id", task.ID), zap.Error(err))...)
			continue
		}

		m.alerter.Notify(ctx, "Deadline Approaching", fmt.Sprintf(`Task "%s" is due soon!`, task.TaskName), notify.KindWarning)
		if m.pusher != nil {
			m.pusher.Push(ctx, notify.DeadlineWarningText(task.TaskName))
		}
		WarningsTotal.Inc()

		m.logger.Info("deadline warning fired",
			append(logging.ContextFields(ctx), zap.String("task.id", task.ID), zap.Duration("until", until))...)

		task.Notified = true
		fired = append(fired, task)
	}
	return fired
}

func (m *Monitor) eligible(t entity.Task) bool {
	return t.IsTask && t.Deadline != "" && !t.Notified && t.Status != entity.StatusCompleted
}
