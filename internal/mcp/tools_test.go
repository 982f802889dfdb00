package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/managerd/internal/chat"
	"github.com/fyrsmithlabs/managerd/internal/dashboard"
	"github.com/fyrsmithlabs/managerd/internal/entity"
	"github.com/fyrsmithlabs/managerd/internal/intent"
	"github.com/fyrsmithlabs/managerd/internal/logging"
)

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func (e *testEnv) addTask(t *testing.T, name string, p intent.Priority, assignee string) entity.Task {
	t.Helper()
	task, err := e.reg.Entities().AddTask(context.Background(), intent.Result{
		IsTask:   true,
		TaskName: name,
		Priority: p,
		Assignee: assignee,
	})
	require.NoError(t, err)
	return task
}

func TestHandleSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("task utterance creates a task", func(t *testing.T) {
		env := setupTestServer(t)
		env.provider.completion = `{"IsTask": true, "TaskName": "Call the bank", "Priority": "Medium", "Assignee": "Ann"}`

		res, out, err := env.server.handleSubmit(ctx, nil, submitInput{Message: "Ann should call the bank"})
		require.NoError(t, err)
		assert.Equal(t, "Call the bank", resultText(t, res))
		assert.Equal(t, string(chat.KindTaskCard), out.Kind)
		require.NotNil(t, out.Task)
		assert.Equal(t, "Ann", out.Task.Assignee)
		assert.Equal(t, string(entity.StatusPending), out.Task.Status)
		assert.Len(t, env.reg.Entities().Tasks(), 1)
	})

	t.Run("transaction utterance records a ledger entry", func(t *testing.T) {
		env := setupTestServer(t)
		env.provider.completion = `{"IsTask": false, "TaskName": "Logged", "TransactionData": {"amount": 250, "type": "expense", "category": "Office", "description": "Chairs"}}`

		_, out, err := env.server.handleSubmit(ctx, nil, submitInput{Message: "spent 250 on chairs"})
		require.NoError(t, err)
		require.NotNil(t, out.Transaction)
		assert.Equal(t, "expense", out.Transaction.Type)
		assert.Equal(t, 250.0, out.Transaction.Amount)
	})

	t.Run("search utterance cites sources", func(t *testing.T) {
		env := setupTestServer(t)
		_, out, err := env.server.handleSubmit(ctx, nil, submitInput{Message: "search for mortgage rates"})
		require.NoError(t, err)
		assert.Equal(t, "Rates are up.", out.Reply)
		assert.Equal(t, []string{"https://example.com/rates"}, out.Sources)
	})

	t.Run("blank message", func(t *testing.T) {
		env := setupTestServer(t)
		_, _, err := env.server.handleSubmit(ctx, nil, submitInput{Message: "   "})
		assert.ErrorIs(t, err, chat.ErrEmptyUtterance)
	})
}

func TestHandleTasks(t *testing.T) {
	ctx := context.Background()
	env := setupTestServer(t)
	env.addTask(t, "Quarterly report", intent.PriorityHigh, "Ann")
	env.addTask(t, "Order toner", intent.PriorityLow, "Bob")
	done := env.addTask(t, "Renew domain", intent.PriorityHigh, "Bob")
	require.NoError(t, env.reg.Entities().UpdateTaskStatus(ctx, done.ID, entity.StatusCompleted))

	res, out, err := env.server.handleTasks(ctx, nil, tasksInput{})
	require.NoError(t, err)
	assert.Len(t, out.Tasks, 3)
	assert.Equal(t, 2, out.Stats.High)
	assert.Equal(t, 33, out.Stats.CompletionRate)
	assert.Equal(t, []string{"Bob", "Ann"}, out.Assignees, "first seen over newest-first tasks")
	assert.Equal(t, "Found 3 tasks (2 high priority, 33% completed)", resultText(t, res))

	_, out, err = env.server.handleTasks(ctx, nil, tasksInput{Priority: "high", Assignee: "Bob"})
	require.NoError(t, err)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, "Renew domain", out.Tasks[0].Name)

	_, out, err = env.server.handleTasks(ctx, nil, tasksInput{Query: "TONER"})
	require.NoError(t, err)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, []string{"Bob", "Ann"}, out.Assignees, "assignees ignore the filter")

	_, _, err = env.server.handleTasks(ctx, nil, tasksInput{Priority: "urgent"})
	assert.ErrorIs(t, err, dashboard.ErrValidation)
}

func TestHandleSetStatus(t *testing.T) {
	ctx := context.Background()
	env := setupTestServer(t)
	task := env.addTask(t, "Quarterly report", intent.PriorityMedium, "")

	res, out, err := env.server.handleSetStatus(ctx, nil, setStatusInput{ID: task.ID, Status: "In Progress"})
	require.NoError(t, err)
	assert.Equal(t, "In Progress", out.Task.Status)
	assert.Equal(t, `Task "Quarterly report" is now In Progress`, resultText(t, res))

	_, _, err = env.server.handleSetStatus(ctx, nil, setStatusInput{ID: "missing", Status: "Completed"})
	assert.ErrorIs(t, err, entity.ErrTaskNotFound)

	_, _, err = env.server.handleSetStatus(ctx, nil, setStatusInput{ID: task.ID, Status: "Done"})
	assert.ErrorIs(t, err, entity.ErrInvalidValue)
}

func TestHandleBulkUpdate(t *testing.T) {
	ctx := context.Background()
	env := setupTestServer(t)
	a := env.addTask(t, "A", intent.PriorityLow, "")
	b := env.addTask(t, "B", intent.PriorityLow, "")
	c := env.addTask(t, "C", intent.PriorityLow, "")

	assignee := "Dana"
	_, out, err := env.server.handleBulkUpdate(ctx, nil, bulkUpdateInput{IDs: []string{a.ID, c.ID, a.ID}, Assignee: &assignee})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Updated)
	assert.Equal(t, "assignee", out.Field)

	got, _ := env.reg.Entities().Task(a.ID)
	assert.Equal(t, "Dana", got.Assignee)
	got, _ = env.reg.Entities().Task(b.ID)
	assert.Empty(t, got.Assignee)

	_, _, err = env.server.handleBulkUpdate(ctx, nil, bulkUpdateInput{IDs: []string{a.ID}, Status: "Completed", Priority: "High"})
	assert.ErrorIs(t, err, dashboard.ErrValidation, "only one field may change at a time")
}

func TestHandleLedger(t *testing.T) {
	ctx := context.Background()
	env := setupTestServer(t)

	_, _, err := env.server.handleAddTransaction(ctx, nil, addTransactionInput{Amount: 1000, Type: "income", Description: "Retainer"})
	require.NoError(t, err)
	res, added, err := env.server.handleAddTransaction(ctx, nil, addTransactionInput{Amount: 250.5, Type: " Expense ", Category: "Office", Description: "Chairs"})
	require.NoError(t, err)
	assert.Equal(t, "expense", added.Transaction.Type)
	assert.Equal(t, "Recorded expense of $250.50 (Office)", resultText(t, res))

	res, out, err := env.server.handleLedger(ctx, nil, ledgerInput{})
	require.NoError(t, err)
	assert.InDelta(t, 1000, out.Totals.Income, 1e-9)
	assert.InDelta(t, 250.5, out.Totals.Expense, 1e-9)
	assert.InDelta(t, 749.5, out.Totals.Balance, 1e-9)
	assert.Len(t, out.Transactions, 2)
	assert.NotEmpty(t, out.Categories)
	assert.Contains(t, resultText(t, res), "balance $749.50")

	_, out, err = env.server.handleLedger(ctx, nil, ledgerInput{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, out.Transactions, 1)

	var titles []string
	for _, n := range env.reg.Notifier().List() {
		titles = append(titles, n.Title)
	}
	assert.Contains(t, titles, "Transaction Added")
}

func TestHandleAddTransaction_Validation(t *testing.T) {
	ctx := context.Background()
	env := setupTestServer(t)

	tests := []struct {
		name  string
		input addTransactionInput
	}{
		{"zero amount", addTransactionInput{Amount: 0, Type: "income", Description: "x"}},
		{"negative amount", addTransactionInput{Amount: -5, Type: "income", Description: "x"}},
		{"blank description", addTransactionInput{Amount: 5, Type: "income", Description: "  "}},
		{"unknown type", addTransactionInput{Amount: 5, Type: "refund", Description: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.server.handleAddTransaction(ctx, nil, tt.input)
			assert.ErrorIs(t, err, dashboard.ErrValidation)
		})
	}
	assert.Empty(t, env.reg.Entities().Transactions())
}

func TestHandleToolSearch(t *testing.T) {
	ctx := context.Background()
	env := setupTestServer(t)

	res, out, err := env.server.handleToolSearch(ctx, nil, toolSearchInput{Query: "manager_ledger"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)
	assert.Equal(t, toolLedger, out.Results[0].Name)
	assert.Equal(t, 3, out.Results[0].Score)
	assert.Equal(t, 8, out.TotalTools)
	assert.Contains(t, resultText(t, res), toolLedger)

	_, out, err = env.server.handleToolSearch(ctx, nil, toolSearchInput{Query: "finance", Category: "ledger"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)

	_, out, err = env.server.handleToolSearch(ctx, nil, toolSearchInput{Query: "manager", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)

	res, out, err = env.server.handleToolSearch(ctx, nil, toolSearchInput{Query: "zzz"})
	require.NoError(t, err)
	assert.Zero(t, out.Count)
	assert.Equal(t, "No tools found matching: zzz", resultText(t, res))

	_, _, err = env.server.handleToolSearch(ctx, nil, toolSearchInput{Query: " "})
	assert.Error(t, err)
}

func TestHandleToolList(t *testing.T) {
	ctx := context.Background()
	env := setupTestServer(t)

	_, out, err := env.server.handleToolList(ctx, nil, toolListInput{})
	require.NoError(t, err)
	assert.Equal(t, 8, out.Count)

	_, out, err = env.server.handleToolList(ctx, nil, toolListInput{Category: "tasks"})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Count)

	_, out, err = env.server.handleToolList(ctx, nil, toolListInput{DeferredOnly: true})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, toolBulkUpdate, out.Tools[0].Name)
}

func TestToolFailureLogsChannel(t *testing.T) {
	env := setupTestServer(t)
	logs := logging.NewTestLogger()
	server, err := NewServer(&Config{Name: "managerd-test", Version: "test", Logger: logs.Underlying()}, env.reg)
	require.NoError(t, err)

	_, _, err = server.handleTasks(context.Background(), nil, tasksInput{Priority: "urgent"})
	require.Error(t, err)
	logs.AssertField(t, "mcp tool failed", "channel", "mcp")
	logs.AssertField(t, "mcp tool failed", "tool", toolTasks)
}
