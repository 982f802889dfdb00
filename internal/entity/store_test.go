package entity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/managerd/internal/intent"
	"github.com/fyrsmithlabs/managerd/internal/kvstore"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func newTestStore(t *testing.T, kv kvstore.Store) (*Store, *fixedClock) {
	t.Helper()
	clock := &fixedClock{t: time.Date(2025, 12, 17, 12, 0, 0, 0, time.UTC)}
	s, err := NewStore(kv, nil, WithClock(clock.now))
	require.NoError(t, err)
	return s, clock
}

func taskResult(name string, p intent.Priority) intent.Result {
	return intent.Result{IsTask: true, TaskName: name, Priority: p}
}

// failingKV rejects every write.
type failingKV struct{ kvstore.Store }

func (failingKV) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestNewStore_RequiresKV(t *testing.T) {
	_, err := NewStore(nil, nil)
	assert.Error(t, err)
}

func TestAddTask_PrependsAndPersists(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	s, clock := newTestStore(t, kv)

	first, err := s.AddTask(ctx, taskResult("first", intent.PriorityLow))
	require.NoError(t, err)
	clock.t = clock.t.Add(time.Second)
	second, err := s.AddTask(ctx, taskResult("second", intent.PriorityHigh))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, first.Status)
	assert.False(t, first.Notified)
	assert.Equal(t, "1765972800000", first.ID)

	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID, "newest first")

	var persisted []Task
	found, err := kvstore.LoadJSON(ctx, kv, kvstore.KeyTasks, &persisted)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, persisted, 2)
	assert.Equal(t, "second", persisted[0].TaskName)
}

func TestAddTask_RejectsNonTask(t *testing.T) {
	s, _ := newTestStore(t, kvstore.NewMemory())
	_, err := s.AddTask(context.Background(), intent.Result{TaskName: "just an answer"})
	assert.ErrorIs(t, err, ErrNotTask)
	assert.Empty(t, s.Tasks())
}

func TestAddTask_SameMillisecondGetsUniqueID(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, kvstore.NewMemory())

	a, err := s.AddTask(ctx, taskResult("a", intent.PriorityLow))
	require.NoError(t, err)
	b, err := s.AddTask(ctx, taskResult("b", intent.PriorityLow))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Contains(t, b.ID, a.ID+"-")
}

func TestUpdateTaskStatus(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, kvstore.NewMemory())
	task, err := s.AddTask(ctx, taskResult("a", intent.PriorityLow))
	require.NoError(t, err)

	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, StatusInProgress))
	got, ok := s.Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, StatusInProgress, got.Status)

	assert.ErrorIs(t, s.UpdateTaskStatus(ctx, "missing", StatusCompleted), ErrTaskNotFound)
	assert.Error(t, s.UpdateTaskStatus(ctx, task.ID, Status("Archived")))
}

func TestBulkUpdate_IgnoresUnknownAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, kvstore.NewMemory())

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		task, err := s.AddTask(ctx, taskResult(name, intent.PriorityLow))
		require.NoError(t, err)
		ids = append(ids, task.ID)
		clock.t = clock.t.Add(time.Millisecond)
	}

	high := intent.PriorityHigh
	patch := Patch{Priority: &high}
	target := []string{ids[0], ids[2], "does-not-exist"}

	require.NoError(t, s.BulkUpdate(ctx, target, patch))
	once := s.Tasks()
	require.NoError(t, s.BulkUpdate(ctx, target, patch))
	assert.Equal(t, once, s.Tasks())

	for _, task := range once {
		if task.ID == ids[1] {
			assert.Equal(t, intent.PriorityLow, task.Priority)
		} else {
			assert.Equal(t, intent.PriorityHigh, task.Priority)
		}
	}
}

func TestBulkUpdate_RejectsInvalidValues(t *testing.T) {
	s, _ := newTestStore(t, kvstore.NewMemory())
	bad := intent.Priority("Urgent")
	assert.Error(t, s.BulkUpdate(context.Background(), []string{"1"}, Patch{Priority: &bad}))
}

func TestMarkNotified_IsMonotonic(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, kvstore.NewMemory())
	task, err := s.AddTask(ctx, taskResult("a", intent.PriorityLow))
	require.NoError(t, err)

	require.NoError(t, s.MarkNotified(ctx, task.ID))
	require.NoError(t, s.MarkNotified(ctx, task.ID))
	got, _ := s.Task(task.ID)
	assert.True(t, got.Notified)

	assert.ErrorIs(t, s.MarkNotified(ctx, "missing"), ErrTaskNotFound)
}

func TestTransactions_AddAndDelete(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, kvstore.NewMemory())

	hosting, err := s.AddTransaction(ctx, TransactionInput{Amount: 50, Kind: intent.Expense, Category: "Software/Tools", Description: "Hosting"})
	require.NoError(t, err)
	clock.t = clock.t.Add(time.Second)
	fee, err := s.AddTransaction(ctx, TransactionInput{Amount: 1200, Kind: intent.Income, Description: "Client fee"})
	require.NoError(t, err)

	assert.Equal(t, "General", fee.Category)
	assert.Equal(t, clock.t, fee.Date)

	// Unknown id is a no-op.
	require.NoError(t, s.DeleteTransaction(ctx, "nope"))
	assert.Len(t, s.Transactions(), 2)

	require.NoError(t, s.DeleteTransaction(ctx, hosting.ID))
	remaining := s.Transactions()
	require.Len(t, remaining, 1)
	assert.Equal(t, fee.ID, remaining[0].ID)

	_, err = s.AddTransaction(ctx, TransactionInput{Amount: 1, Kind: "refund"})
	assert.Error(t, err)
}

func TestFailedWriteLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, failingKV{kvstore.NewMemory()})

	_, err := s.AddTask(ctx, taskResult("a", intent.PriorityLow))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist tasks")
	assert.Empty(t, s.Tasks())

	_, err = s.AddTransaction(ctx, TransactionInput{Amount: 5, Kind: intent.Income})
	require.Error(t, err)
	assert.Empty(t, s.Transactions())
}

func TestLoad_RestoresCollections(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()

	first, _ := newTestStore(t, kv)
	task, err := first.AddTask(ctx, intent.Result{
		IsTask:   true,
		TaskName: "Ship release",
		Deadline: "2025-12-18T10:00:00",
		Tags:     []string{"ops"},
	})
	require.NoError(t, err)
	_, err = first.AddTransaction(ctx, TransactionInput{Amount: 50, Kind: intent.Expense, Description: "Hosting"})
	require.NoError(t, err)

	second, _ := newTestStore(t, kv)
	require.NoError(t, second.Load(ctx))

	got, ok := second.Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, "Ship release", got.TaskName)
	assert.Equal(t, []string{"ops"}, got.Tags)
	assert.True(t, got.CreatedAt.Equal(task.CreatedAt))
	assert.Len(t, second.Transactions(), 1)
}

func TestParseDeadline(t *testing.T) {
	loc := time.FixedZone("BDT", 6*3600)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-12-18T10:00:00", time.Date(2025, 12, 18, 10, 0, 0, 0, loc)},
		{"2025-12-18T10:00", time.Date(2025, 12, 18, 10, 0, 0, 0, loc)},
		{"2025-12-18 17:00", time.Date(2025, 12, 18, 17, 0, 0, 0, loc)},
		{"2025-12-18", time.Date(2025, 12, 18, 0, 0, 0, 0, loc)},
		{"2025-12-18T10:00:00Z", time.Date(2025, 12, 18, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDeadline(tt.in, loc)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %v want %v", tt.in, got, tt.want)
	}

	for _, bad := range []string{"", "  ", "next Friday", "18/12/2025"} {
		_, err := ParseDeadline(bad, loc)
		assert.ErrorIs(t, err, ErrInvalidDeadline, bad)
	}
}

func TestPatchField(t *testing.T) {
	status := StatusCompleted
	assignee := "Ana"
	assert.Equal(t, "status", Patch{Status: &status}.Field())
	assert.Equal(t, "assignee", Patch{Assignee: &assignee}.Field())
	assert.Equal(t, "", Patch{Status: &status, Assignee: &assignee}.Field())
	assert.True(t, Patch{}.Empty())
}
