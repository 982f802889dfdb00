package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/managerd/internal/entity"
	"github.com/fyrsmithlabs/managerd/internal/intent"
	"github.com/fyrsmithlabs/managerd/internal/kvstore"
	"github.com/fyrsmithlabs/managerd/internal/notify"
)

var now = time.Date(2025, 12, 17, 12, 0, 0, 0, time.UTC)

func task(id, name string, prio intent.Priority, deadline string, status entity.Status) entity.Task {
	return entity.Task{
		Result: intent.Result{IsTask: true, TaskName: name, Priority: prio, Deadline: deadline},
		ID:     id,
		Status: status,
	}
}

func ids(tasks []entity.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestBucketOf(t *testing.T) {
	tests := []struct {
		deadline string
		want     Bucket
	}{
		{"", BucketNoDeadline},
		{"  ", BucketNoDeadline},
		{"next friday-ish", BucketInvalid},
		{"2025-12-16T09:00:00", BucketOverdue},
		{"2025-12-18T09:00:00", BucketUpcoming},
		{"2025-12-17T11:59:00Z", BucketOverdue},
	}
	for _, tt := range tests {
		t.Run(tt.deadline, func(t *testing.T) {
			got := BucketOf(task("1", "x", intent.PriorityLow, tt.deadline, entity.StatusPending), now, time.UTC)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBucket(t *testing.T) {
	for in, want := range map[string]Bucket{
		"":            "",
		"All":         "",
		"No Deadline": BucketNoDeadline,
		"no_deadline": BucketNoDeadline,
		"OVERDUE":     BucketOverdue,
		"upcoming":    BucketUpcoming,
		"invalid":     BucketInvalid,
	} {
		got, err := ParseBucket(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseBucket("someday")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("high", "All", "Overdue", "server")
	require.NoError(t, err)
	assert.Equal(t, Filter{Priority: intent.PriorityHigh, Bucket: BucketOverdue, Query: "server"}, f)

	f, err = ParseFilter("", " Ana ", "", "")
	require.NoError(t, err)
	assert.Equal(t, Filter{Assignee: "Ana"}, f)

	_, err = ParseFilter("urgent", "", "", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = ParseFilter("", "", "later", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestApply(t *testing.T) {
	ana := task("1", "Fix server", intent.PriorityHigh, "2025-12-16T09:00:00", entity.StatusPending)
	ana.Assignee = "Ana"
	done := task("2", "Invoice client", intent.PriorityHigh, "2025-12-10T09:00:00", entity.StatusCompleted)
	later := task("3", "Plan launch", intent.PriorityMedium, "2025-12-20T09:00:00", entity.StatusInProgress)
	later.Description = "Server migration plan"
	loose := task("4", "Tidy desk", intent.PriorityLow, "", entity.StatusPending)
	answer := entity.Task{Result: intent.Result{TaskName: "Just an answer"}, ID: "5"}
	all := []entity.Task{ana, done, later, loose, answer}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter keeps tasks only", Filter{}, []string{"1", "2", "3", "4"}},
		{"priority", Filter{Priority: intent.PriorityHigh}, []string{"1", "2"}},
		{"assignee", Filter{Assignee: "Ana"}, []string{"1"}},
		{"overdue hides completed", Filter{Bucket: BucketOverdue}, []string{"1"}},
		{"upcoming", Filter{Bucket: BucketUpcoming}, []string{"3"}},
		{"no deadline", Filter{Bucket: BucketNoDeadline}, []string{"4"}},
		{"query matches name or description", Filter{Query: "SERVER"}, []string{"1", "3"}},
		{"filters combine", Filter{Priority: intent.PriorityHigh, Query: "invoice"}, []string{"2"}},
		{"nothing matches", Filter{Assignee: "Bob"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(all, tt.filter, now, time.UTC)))
		})
	}
}

func TestComputeStats(t *testing.T) {
	assert.Equal(t, Stats{}, ComputeStats(nil))

	tasks := []entity.Task{
		task("1", "a", intent.PriorityHigh, "", entity.StatusCompleted),
		task("2", "b", intent.PriorityMedium, "", entity.StatusInProgress),
		task("3", "c", intent.PriorityLow, "", entity.StatusPending),
	}
	s := ComputeStats(tasks)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.High)
	assert.Equal(t, 1, s.Medium)
	assert.Equal(t, 1, s.Low)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 1, s.InProgress)
	assert.Equal(t, 33, s.CompletionRate)

	tasks = append(tasks[:1], task("4", "d", intent.PriorityLow, "", entity.StatusPending))
	assert.Equal(t, 50, ComputeStats(tasks).CompletionRate)
}

func TestAssignees(t *testing.T) {
	a := task("1", "a", intent.PriorityLow, "", entity.StatusPending)
	a.Assignee = "Ana"
	b := task("2", "b", intent.PriorityLow, "", entity.StatusPending)
	b.Assignee = "Bob"
	c := task("3", "c", intent.PriorityLow, "", entity.StatusPending)
	c.Assignee = "Ana"
	d := task("4", "d", intent.PriorityLow, "", entity.StatusPending)

	assert.Equal(t, []string{"Ana", "Bob"}, Assignees([]entity.Task{a, b, c, d}))
	assert.Empty(t, Assignees(nil))
}

func TestSelection_ToggleAllOnlyTouchesVisible(t *testing.T) {
	sel := NewSelection()
	hidden := task("9", "hidden", intent.PriorityLow, "", entity.StatusPending)
	sel.Toggle(hidden.ID)

	visible := []entity.Task{
		task("1", "a", intent.PriorityLow, "", entity.StatusPending),
		task("2", "b", intent.PriorityLow, "", entity.StatusPending),
	}
	sel.Toggle("1")
	assert.False(t, sel.AllSelected(visible))

	sel.ToggleAll(visible)
	assert.True(t, sel.AllSelected(visible))
	assert.Equal(t, []string{"1", "2", "9"}, sel.IDs())

	sel.ToggleAll(visible)
	assert.Equal(t, []string{"9"}, sel.IDs())
	assert.True(t, sel.Contains("9"))

	assert.False(t, sel.AllSelected(nil))
	sel.Clear()
	assert.Zero(t, sel.Len())
}

type failingUpdater struct{}

func (failingUpdater) BulkUpdate(context.Context, []string, entity.Patch) error {
	return errors.New("disk full")
}

func newStore(t *testing.T, tasks ...intent.Result) *entity.Store {
	t.Helper()
	store, err := entity.NewStore(kvstore.NewMemory(), nil)
	require.NoError(t, err)
	for _, r := range tasks {
		_, err := store.AddTask(context.Background(), r)
		require.NoError(t, err)
	}
	return store
}

func TestBulkEdit(t *testing.T) {
	ctx := context.Background()
	store := newStore(t,
		intent.Result{IsTask: true, TaskName: "one", Priority: intent.PriorityLow},
		intent.Result{IsTask: true, TaskName: "two", Priority: intent.PriorityLow},
	)
	notifier := notify.New(nil, notify.WithTTL(time.Hour))
	sel := NewSelection()
	sel.ToggleAll(store.Tasks())

	status := entity.StatusCompleted
	n, err := BulkEdit(ctx, store, notifier, sel, entity.Patch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, sel.Len())

	for _, tk := range store.Tasks() {
		assert.Equal(t, entity.StatusCompleted, tk.Status)
		assert.Equal(t, intent.PriorityLow, tk.Priority)
	}

	notes := notifier.List()
	require.Len(t, notes, 1)
	assert.Equal(t, "Bulk Update", notes[0].Title)
	assert.Equal(t, "Updated 2 tasks (status)", notes[0].Message)
}

func TestBulkEdit_EmptySelectionIsNoop(t *testing.T) {
	notifier := notify.New(nil)
	prio := intent.PriorityHigh
	n, err := BulkEdit(context.Background(), failingUpdater{}, notifier, NewSelection(), entity.Patch{Priority: &prio})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, notifier.List())
}

func TestBulkEdit_RejectsMultiFieldPatch(t *testing.T) {
	sel := NewSelection()
	sel.Toggle("1")
	prio := intent.PriorityHigh
	who := "Ana"

	_, err := BulkEdit(context.Background(), failingUpdater{}, notify.New(nil), sel, entity.Patch{Priority: &prio, Assignee: &who})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = BulkEdit(context.Background(), failingUpdater{}, notify.New(nil), sel, entity.Patch{})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 1, sel.Len())
}

func TestBulkEdit_FailureKeepsSelection(t *testing.T) {
	sel := NewSelection()
	sel.Toggle("1")
	notifier := notify.New(nil)
	who := "Ana"

	_, err := BulkEdit(context.Background(), failingUpdater{}, notifier, sel, entity.Patch{Assignee: &who})
	assert.Error(t, err)
	assert.Equal(t, 1, sel.Len())
	assert.Empty(t, notifier.List())
}

func TestSummarize(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 12, d, 10, 0, 0, 0, time.UTC) }
	txs := []entity.Transaction{
		{ID: "a", Date: day(1), Amount: 1000, Kind: intent.Income, Category: "Project Fee"},
		{ID: "b", Date: day(15), Amount: 50, Kind: intent.Expense, Category: "Software/Tools"},
		{ID: "c", Date: day(10), Amount: 200, Kind: intent.Expense, Category: "Office"},
	}

	l := Summarize(txs)
	assert.Equal(t, []string{"b", "c", "a"}, []string{l.Transactions[0].ID, l.Transactions[1].ID, l.Transactions[2].ID})
	assert.Equal(t, Totals{Income: 1000, Expense: 250, Balance: 750}, l.Totals)
	assert.Equal(t, "a", txs[0].ID, "input must not be reordered")
	assert.Contains(t, l.Categories, "General")

	empty := Summarize(nil)
	assert.Empty(t, empty.Transactions)
	assert.Equal(t, Totals{}, empty.Totals)
}

func TestValidateTransactionInput(t *testing.T) {
	ok := entity.TransactionInput{Amount: 10, Kind: intent.Expense, Description: "Coffee"}
	assert.NoError(t, ValidateTransactionInput(ok))

	bad := []entity.TransactionInput{
		{Amount: 0, Kind: intent.Expense, Description: "Coffee"},
		{Amount: -5, Kind: intent.Income, Description: "Refund"},
		{Amount: 10, Kind: intent.Expense, Description: "   "},
		{Amount: 10, Kind: "gift", Description: "Coffee"},
	}
	for _, in := range bad {
		assert.ErrorIs(t, ValidateTransactionInput(in), ErrValidation)
	}
}

func TestRecordTransaction(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	notifier := notify.New(nil, notify.WithTTL(time.Hour))

	tx, err := RecordTransaction(ctx, store, notifier, entity.TransactionInput{
		Amount: 1200.5, Kind: intent.Income, Description: "Website build",
	})
	require.NoError(t, err)
	assert.Equal(t, "General", tx.Category)
	assert.Len(t, store.Transactions(), 1)

	notes := notifier.List()
	require.Len(t, notes, 1)
	assert.Equal(t, "Transaction Added", notes[0].Title)
	assert.Equal(t, "$1200.5 income", notes[0].Message)

	_, err = RecordTransaction(ctx, store, notifier, entity.TransactionInput{Amount: 0, Kind: intent.Income, Description: "x"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Len(t, store.Transactions(), 1)
	assert.Len(t, notifier.List(), 1)
}
