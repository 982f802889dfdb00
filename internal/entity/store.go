// Package entity owns the task collection and the transaction ledger.
//
// Every mutation builds the next collection, persists it wholesale through
// the key-value port, and only then publishes it in memory. A failed write
// therefore leaves the in-memory state untouched.
package entity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/managerd/internal/intent"
	"github.com/fyrsmithlabs/managerd/internal/kvstore"
)

const instrumentationName = "github.com/fyrsmithlabs/managerd/internal/entity"

var (
	// ErrTaskNotFound is returned by single-task operations on an unknown id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNotTask is returned when AddTask is handed a non-task result.
	ErrNotTask = errors.New("intent result is not a task")

	// ErrInvalidValue is returned for a status, priority or transaction
	// type outside its enumeration.
	ErrInvalidValue = errors.New("invalid value")
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store holds tasks and transactions, newest first.
type Store struct {
	kv     kvstore.Store
	logger *zap.Logger
	now    func() time.Time

	created metric.Int64Counter

	mu           sync.RWMutex
	tasks        []Task
	transactions []Transaction
}

// NewStore creates an empty store backed by kv. Call Load to restore
// persisted collections.
func NewStore(kv kvstore.Store, logger *zap.Logger, opts ...Option) (*Store, error) {
	if kv == nil {
		return nil, errors.New("key-value store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		kv:     kv,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	s.created, err = otel.Meter(instrumentationName).Int64Counter(
		"managerd.entity.created_total",
		metric.WithDescription("Entities created, by type"),
		metric.WithUnit("{entity}"),
	)
	if err != nil {
		s.logger.Warn("failed to create entity counter", zap.Error(err))
	}
	return s, nil
}

// Load replaces the in-memory collections with the persisted ones.
// Missing keys load as empty collections.
func (s *Store) Load(ctx context.Context) error {
	var tasks []Task
	if _, err := kvstore.LoadJSON(ctx, s.kv, kvstore.KeyTasks, &tasks); err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	var txs []Transaction
	if _, err := kvstore.LoadJSON(ctx, s.kv, kvstore.KeyTransactions, &txs); err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	s.mu.Lock()
	s.tasks = tasks
	s.transactions = txs
	s.mu.Unlock()

	s.logger.Info("entity store loaded",
		zap.Int("tasks", len(tasks)),
		zap.Int("transactions", len(txs)))
	return nil
}

// Tasks returns a snapshot of all tasks, newest first.
func (s *Store) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Task(nil), s.tasks...)
}

// Transactions returns a snapshot of all transactions in insertion order,
// newest first.
func (s *Store) Transactions() []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Transaction(nil), s.transactions...)
}

// Task looks up a single task.
func (s *Store) Task(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// AddTask registers a task classified from chat.
func (s *Store) AddTask(ctx context.Context, r intent.Result) (Task, error) {
	if !r.IsTask {
		return Task{}, ErrNotTask
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	task := Task{
		Result:    r,
		ID:        s.newID(now, func(id string) bool { return s.hasTask(id) }),
		CreatedAt: now,
		Status:    StatusPending,
	}

	next := make([]Task, 0, len(s.tasks)+1)
	next = append(next, task)
	next = append(next, s.tasks...)
	if err := s.saveTasks(ctx, next); err != nil {
		return Task{}, err
	}
	s.tasks = next
	s.count(ctx, "task")

	s.logger.Debug("task added",
		zap.String("task.id", task.ID),
		zap.String("task.priority", string(task.Priority)))
	return task, nil
}

// UpdateTaskStatus sets the status of one task.
func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidValue, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.taskIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	next := append([]Task(nil), s.tasks...)
	next[idx].Status = status
	if err := s.saveTasks(ctx, next); err != nil {
		return err
	}
	s.tasks = next
	return nil
}

// BulkUpdate applies patch to every task whose id is in ids. Unknown ids
// are ignored. The whole batch is published at once, so readers never see
// a partially applied patch. Applying the same patch twice is idempotent.
func (s *Store) BulkUpdate(ctx context.Context, ids []string, patch Patch) error {
	if patch.Status != nil && !patch.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidValue, *patch.Status)
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidValue, *patch.Priority)
	}

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append([]Task(nil), s.tasks...)
	for i := range next {
		if _, ok := want[next[i].ID]; ok {
			patch.apply(&next[i])
		}
	}
	if err := s.saveTasks(ctx, next); err != nil {
		return err
	}
	s.tasks = next
	return nil
}

// MarkNotified flips the deadline-warning flag of a task. It never clears it.
func (s *Store) MarkNotified(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.taskIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if s.tasks[idx].Notified {
		return nil
	}
	next := append([]Task(nil), s.tasks...)
	next[idx].Notified = true
	if err := s.saveTasks(ctx, next); err != nil {
		return err
	}
	s.tasks = next
	return nil
}

// AddTransaction records a ledger entry dated now. Amount and description
// checks belong to the form layer; the store accepts what it is given.
func (s *Store) AddTransaction(ctx context.Context, in TransactionInput) (Transaction, error) {
	if !in.Kind.Valid() {
		return Transaction{}, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidValue, in.Kind)
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "General"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	tx := Transaction{
		ID:          s.newID(now, func(id string) bool { return s.hasTransaction(id) }),
		Date:        now,
		Amount:      in.Amount,
		Kind:        in.Kind,
		Category:    category,
		Description: in.Description,
	}

	next := make([]Transaction, 0, len(s.transactions)+1)
	next = append(next, tx)
	next = append(next, s.transactions...)
	if err := s.saveTransactions(ctx, next); err != nil {
		return Transaction{}, err
	}
	s.transactions = next
	s.count(ctx, "transaction")
	return tx, nil
}

// DeleteTransaction removes exactly the transaction with id. Unknown ids
// are a no-op.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		if tx.ID != id {
			next = append(next, tx)
		}
	}
	if len(next) == len(s.transactions) {
		return nil
	}
	if err := s.saveTransactions(ctx, next); err != nil {
		return err
	}
	s.transactions = next
	return nil
}

// newID derives an id from the creation millisecond. Two creations in the
// same millisecond would collide, so a short random suffix is appended
// when the id is already taken.
func (s *Store) newID(now time.Time, taken func(string) bool) string {
	id := strconv.FormatInt(now.UnixMilli(), 10)
	if !taken(id) {
		return id
	}
	return id + "-" + uuid.NewString()[:8]
}

func (s *Store) hasTask(id string) bool {
	return s.taskIndex(id) >= 0
}

func (s *Store) hasTransaction(id string) bool {
	for _, tx := range s.transactions {
		if tx.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) taskIndex(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) saveTasks(ctx context.Context, tasks []Task) error {
	if err := kvstore.SaveJSON(ctx, s.kv, kvstore.KeyTasks, tasks); err != nil {
		s.logger.Error("failed to persist tasks", zap.Error(err))
		return fmt.Errorf("persist tasks: %w", err)
	}
	return nil
}

func (s *Store) saveTransactions(ctx context.Context, txs []Transaction) error {
	if err := kvstore.SaveJSON(ctx, s.kv, kvstore.KeyTransactions, txs); err != nil {
		s.logger.Error("failed to persist transactions", zap.Error(err))
		return fmt.Errorf("persist transactions: %w", err)
	}
	return nil
}

func (s *Store) count(ctx context.Context, kind string) {
	if s.created != nil {
		s.created.Add(ctx, 1, metric.WithAttributes(attribute.String("entity", kind)))
	}
}
