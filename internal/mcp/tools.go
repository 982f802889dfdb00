package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/managerd/internal/dashboard"
	"github.com/fyrsmithlabs/managerd/internal/entity"
	"github.com/fyrsmithlabs/managerd/internal/intent"
	"github.com/fyrsmithlabs/managerd/internal/logging"
)

const (
	toolSubmit         = "manager_submit"
	toolTasks          = "manager_tasks"
	toolSetStatus      = "manager_set_status"
	toolBulkUpdate     = "manager_bulk_update"
	toolLedger         = "manager_ledger"
	toolAddTransaction = "manager_add_transaction"
	toolSearch         = "tool_search"
	toolList           = "tool_list"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	s.registerChatTools()
	s.registerTaskTools()
	s.registerLedgerTools()
	s.registerSearchTools()
}

// track records the invocation metrics of one tool call. The returned
// func must be called exactly once with the call's error.
func (s *Server) track(ctx context.Context, name string) func(error) {
	start := time.Now()
	s.metrics.IncrementActive(ctx, name)
	return func(err error) {
		s.metrics.DecrementActive(ctx, name)
		s.metrics.RecordInvocation(ctx, name, time.Since(start), err)
		if err != nil {
			fields := logging.ContextFields(logging.WithChannel(ctx, logging.ChannelMCP))
			s.logger.Debug("mcp tool failed", append(fields, zap.String("tool", name), zap.Error(err))...)
		}
	}
}

func text(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

// taskView is the tool-facing shape of a task.
type taskView struct {
	ID          string   `json:"id" jsonschema:"Task ID"`
	Name        string   `json:"name" jsonschema:"Task name"`
	Description string   `json:"description,omitempty" jsonschema:"Task description"`
	Deadline    string   `json:"deadline,omitempty" jsonschema:"Deadline as entered"`
	Priority    string   `json:"priority,omitempty" jsonschema:"High, Medium or Low"`
	Assignee    string   `json:"assignee,omitempty" jsonschema:"Assigned person"`
	Status      string   `json:"status" jsonschema:"Pending, In Progress or Completed"`
	Tags        []string `json:"tags,omitempty" jsonschema:"Tags"`
	Notified    bool     `json:"notified" jsonschema:"Whether the deadline warning fired"`
	CreatedAt   string   `json:"created_at" jsonschema:"Creation time (RFC 3339)"`
}

func viewTask(t entity.Task) taskView {
	return taskView{
		ID:          t.ID,
		Name:        t.TaskName,
		Description: t.Description,
		Deadline:    t.Deadline,
		Priority:    string(t.Priority),
		Assignee:    t.Assignee,
		Status:      string(t.Status),
		Tags:        t.Tags,
		Notified:    t.Notified,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

func viewTasks(tasks []entity.Task) []taskView {
	out := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, viewTask(t))
	}
	return out
}

// transactionView is the tool-facing shape of a ledger entry.
type transactionView struct {
	ID          string  `json:"id" jsonschema:"Transaction ID"`
	Date        string  `json:"date" jsonschema:"Creation time (RFC 3339)"`
	Amount      float64 `json:"amount" jsonschema:"Amount"`
	Type        string  `json:"type" jsonschema:"income or expense"`
	Category    string  `json:"category" jsonschema:"Category"`
	Description string  `json:"description" jsonschema:"Description"`
}

func viewTransaction(tx entity.Transaction) transactionView {
	return transactionView{
		ID:          tx.ID,
		Date:        tx.Date.Format(time.RFC3339),
		Amount:      tx.Amount,
		Type:        string(tx.Kind),
		Category:    tx.Category,
		Description: tx.Description,
	}
}

// ===== CHAT TOOLS =====

type submitInput struct {
	Message string `json:"message" jsonschema:"required,What the operator says to the assistant"`
}

type submitOutput struct {
	Reply       string           `json:"reply" jsonschema:"Assistant reply text"`
	Kind        string           `json:"type" jsonschema:"Reply kind"`
	Task        *taskView        `json:"task,omitempty" jsonschema:"Task created by this turn"`
	Transaction *transactionView `json:"transaction,omitempty" jsonschema:"Transaction created by this turn"`
	Sources     []string         `json:"sources,omitempty" jsonschema:"Web sources cited by a search reply"`
}

func (s *Server) registerChatTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolSubmit,
		Description: "Send one message to the business assistant. Tasks, documents and ledger entries it describes are recorded automatically.",
	}, s.handleSubmit)
}

func (s *Server) handleSubmit(ctx context.Context, req *mcp.CallToolRequest, args submitInput) (result *mcp.CallToolResult, out submitOutput, toolErr error) {
	done := s.track(ctx, toolSubmit)
	defer func() { done(toolErr) }()

	turn, err := s.reg.Chat().Submit(ctx, args.Message)
	if err != nil {
		return nil, submitOutput{}, fmt.Errorf("submit failed: %w", err)
	}

	out = submitOutput{
		Reply: turn.Reply.Content,
		Kind:  string(turn.Reply.Kind),
	}
	if turn.Task != nil {
		v := viewTask(*turn.Task)
		out.Task = &v
	}
	if turn.Transaction != nil {
		v := viewTransaction(*turn.Transaction)
		out.Transaction = &v
	}
	for _, src := range turn.Reply.Sources {
		out.Sources = append(out.Sources, src.URI)
	}
	return text("%s", turn.Reply.Content), out, nil
}

// ===== TASK TOOLS =====

type tasksInput struct {
	Priority string `json:"priority,omitempty" jsonschema:"Only tasks of this priority (High, Medium, Low)"`
	Assignee string `json:"assignee,omitempty" jsonschema:"Only tasks assigned to this person"`
	Bucket   string `json:"bucket,omitempty" jsonschema:"Deadline bucket (overdue, upcoming, no_deadline, invalid)"`
	Query    string `json:"query,omitempty" jsonschema:"Case-insensitive text matched against name and description"`
}

type tasksOutput struct {
	Tasks     []taskView      `json:"tasks" jsonschema:"Matching tasks in creation order"`
	Stats     dashboard.Stats `json:"stats" jsonschema:"Aggregates over the matching tasks"`
	Assignees []string        `json:"assignees" jsonschema:"Every known assignee"`
}

type setStatusInput struct {
	ID     string `json:"id" jsonschema:"required,Task ID"`
	Status string `json:"status" jsonschema:"required,New status (Pending, In Progress, Completed)"`
}

type setStatusOutput struct {
	Task taskView `json:"task" jsonschema:"Updated task"`
}

type bulkUpdateInput struct {
	IDs      []string `json:"ids" jsonschema:"required,Task IDs to update"`
	Status   string   `json:"status,omitempty" jsonschema:"New status"`
	Priority string   `json:"priority,omitempty" jsonschema:"New priority"`
	Assignee *string  `json:"assignee,omitempty" jsonschema:"New assignee"`
}

type bulkUpdateOutput struct {
	Updated int    `json:"updated" jsonschema:"Number of tasks the change was applied to"`
	Field   string `json:"field" jsonschema:"Field that changed"`
}

func (s *Server) registerTaskTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolTasks,
		Description: "List tasks with optional priority, assignee, deadline bucket and text filters, plus dashboard statistics",
	}, s.handleTasks)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolSetStatus,
		Description: "Change the status of one task",
	}, s.handleSetStatus)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolBulkUpdate,
		Description: "Apply exactly one of status, priority or assignee to several tasks",
	}, s.handleBulkUpdate)
}

func (s *Server) handleTasks(ctx context.Context, req *mcp.CallToolRequest, args tasksInput) (result *mcp.CallToolResult, out tasksOutput, toolErr error) {
	done := s.track(ctx, toolTasks)
	defer func() { done(toolErr) }()

	f, err := dashboard.ParseFilter(args.Priority, args.Assignee, args.Bucket, args.Query)
	if err != nil {
		return nil, tasksOutput{}, err
	}
	all := s.reg.Entities().Tasks()
	tasks := dashboard.Apply(all, f, s.now(), s.reg.Location())
	out = tasksOutput{
		Tasks:     viewTasks(tasks),
		Stats:     dashboard.ComputeStats(tasks),
		Assignees: dashboard.Assignees(all),
	}
	return text("Found %d tasks (%d high priority, %d%% completed)",
		out.Stats.Total, out.Stats.High, out.Stats.CompletionRate), out, nil
}

func (s *Server) handleSetStatus(ctx context.Context, req *mcp.CallToolRequest, args setStatusInput) (result *mcp.CallToolResult, out setStatusOutput, toolErr error) {
	done := s.track(ctx, toolSetStatus)
	defer func() { done(toolErr) }()

	if err := s.reg.Entities().UpdateTaskStatus(ctx, args.ID, entity.Status(args.Status)); err != nil {
		return nil, setStatusOutput{}, err
	}
	task, _ := s.reg.Entities().Task(args.ID)
	return text("Task %q is now %s", task.TaskName, task.Status), setStatusOutput{Task: viewTask(task)}, nil
}

func (s *Server) handleBulkUpdate(ctx context.Context, req *mcp.CallToolRequest, args bulkUpdateInput) (result *mcp.CallToolResult, out bulkUpdateOutput, toolErr error) {
	done := s.track(ctx, toolBulkUpdate)
	defer func() { done(toolErr) }()

	var patch entity.Patch
	if args.Status != "" {
		st := entity.Status(args.Status)
		patch.Status = &st
	}
	if args.Priority != "" {
		p := intent.Priority(args.Priority)
		patch.Priority = &p
	}
	patch.Assignee = args.Assignee

	sel := dashboard.NewSelection()
	for _, id := range args.IDs {
		if !sel.Contains(id) {
			sel.Toggle(id)
		}
	}
	n, err := dashboard.BulkEdit(ctx, s.reg.Entities(), s.reg.Notifier(), sel, patch)
	if err != nil {
		return nil, bulkUpdateOutput{}, err
	}
	out = bulkUpdateOutput{Updated: n, Field: patch.Field()}
	return text("Updated %d tasks (%s)", n, out.Field), out, nil
}

// ===== LEDGER TOOLS =====

type ledgerInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum transactions to return, newest first (default: all)"`
}

type ledgerOutput struct {
	Totals       dashboard.Totals  `json:"totals" jsonschema:"Income, expense and balance"`
	Transactions []transactionView `json:"transactions" jsonschema:"Transactions sorted by date descending"`
	Categories   []string          `json:"categories" jsonschema:"Suggested categories"`
}

type addTransactionInput struct {
	Amount      float64 `json:"amount" jsonschema:"required,Positive amount"`
	Type        string  `json:"type" jsonschema:"required,income or expense"`
	Category    string  `json:"category,omitempty" jsonschema:"Category (default: General)"`
	Description string  `json:"description" jsonschema:"required,What the entry is for"`
}

type addTransactionOutput struct {
	Transaction transactionView `json:"transaction" jsonschema:"Stored transaction"`
}

func (s *Server) registerLedgerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolLedger,
		Description: "Show ledger totals and transactions, newest first",
	}, s.handleLedger)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolAddTransaction,
		Description: "Record an income or expense entry in the ledger",
	}, s.handleAddTransaction)
}

func (s *Server) handleLedger(ctx context.Context, req *mcp.CallToolRequest, args ledgerInput) (result *mcp.CallToolResult, out ledgerOutput, toolErr error) {
	done := s.track(ctx, toolLedger)
	defer func() { done(toolErr) }()

	l := dashboard.Summarize(s.reg.Entities().Transactions())
	txs := l.Transactions
	if args.Limit > 0 && len(txs) > args.Limit {
		txs = txs[:args.Limit]
	}
	out = ledgerOutput{Totals: l.Totals, Categories: l.Categories}
	out.Transactions = make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		out.Transactions = append(out.Transactions, viewTransaction(tx))
	}
	return text("Income $%.2f, expense $%.2f, balance $%.2f across %d transactions",
		l.Totals.Income, l.Totals.Expense, l.Totals.Balance, len(l.Transactions)), out, nil
}

func (s *Server) handleAddTransaction(ctx context.Context, req *mcp.CallToolRequest, args addTransactionInput) (result *mcp.CallToolResult, out addTransactionOutput, toolErr error) {
	done := s.track(ctx, toolAddTransaction)
	defer func() { done(toolErr) }()

	tx, err := dashboard.RecordTransaction(ctx, s.reg.Entities(), s.reg.Notifier(), entity.TransactionInput{
		Amount:      args.Amount,
		Kind:        intent.TxKind(strings.ToLower(strings.TrimSpace(args.Type))),
		Category:    args.Category,
		Description: args.Description,
	})
	if err != nil {
		return nil, addTransactionOutput{}, err
	}
	return text("Recorded %s of $%.2f (%s)", tx.Kind, tx.Amount, tx.Category),
		addTransactionOutput{Transaction: viewTransaction(tx)}, nil
}
