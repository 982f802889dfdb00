package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/fyrsmithlabs/managerd/internal/chat"
	"github.com/fyrsmithlabs/managerd/internal/client"
	"github.com/fyrsmithlabs/managerd/internal/dashboard"
	"github.com/fyrsmithlabs/managerd/internal/entity"
	api "github.com/fyrsmithlabs/managerd/internal/http"
	"github.com/fyrsmithlabs/managerd/internal/intent"
	"github.com/fyrsmithlabs/managerd/internal/monitor"
	"github.com/fyrsmithlabs/managerd/internal/notify"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("46"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226"))

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	headerCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCellStyle
			}
			return cellStyle
		})
}

func priorityStyle(p intent.Priority) lipgloss.Style {
	switch p {
	case intent.PriorityHigh:
		return alertStyle
	case intent.PriorityMedium:
		return warnStyle
	}
	return okStyle
}

func printSession(w io.Writer, s api.SessionResponse) {
	state := warnStyle.Render("locked")
	if s.Authenticated {
		state = okStyle.Render("open")
	}
	fmt.Fprintf(w, "Session:    %s\n", state)
	if s.Agency != "" {
		fmt.Fprintf(w, "Agency:     %s\n", s.Agency)
	}
	provider := s.Provider
	if !s.ProviderReady {
		provider += " " + alertStyle.Render("(no credential)")
	}
	fmt.Fprintf(w, "Provider:   %s\n", provider)
	fmt.Fprintf(w, "Monitoring: %t\n", s.Monitoring)
	if c := s.Counts; c != nil {
		fmt.Fprintf(w, "Messages: %d  Tasks: %d  Transactions: %d  Notifications: %d\n",
			c.Messages, c.Tasks, c.Transactions, c.Notifications)
	}
}

func printMessage(w io.Writer, m chat.Message) {
	who := titleStyle.Render("assistant")
	if m.Role == chat.RoleUser {
		who = okStyle.Render("you")
	}
	fmt.Fprintf(w, "%s %s\n%s\n", who, dimStyle.Render(m.Timestamp.Local().Format("Jan 2 15:04")), m.Content)
	for _, src := range m.Sources {
		title := src.Title
		if title == "" {
			title = src.URI
		}
		fmt.Fprintf(w, "  %s %s\n", dimStyle.Render("source:"), title+" <"+src.URI+">")
	}
}

func printTurn(w io.Writer, t chat.Turn) {
	printMessage(w, t.Reply)
	if t.Task != nil {
		fmt.Fprintf(w, "%s %s [%s] %s\n", okStyle.Render("task created:"), t.Task.TaskName,
			priorityStyle(t.Task.Priority).Render(string(t.Task.Priority)), dimStyle.Render(t.Task.ID))
	}
	if t.Transaction != nil {
		fmt.Fprintf(w, "%s %s %s %s\n", okStyle.Render("transaction recorded:"),
			string(t.Transaction.Kind), monitor.FormatMoney(t.Transaction.Amount), dimStyle.Render(t.Transaction.ID))
	}
}

func printTasks(w io.Writer, resp api.TaskListResponse) {
	s := resp.Stats
	fmt.Fprintf(w, "%s  %s  %s  %s\n",
		titleStyle.Render(fmt.Sprintf("%d tasks", s.Total)),
		alertStyle.Render(fmt.Sprintf("%d high", s.High)),
		warnStyle.Render(fmt.Sprintf("%d in progress", s.InProgress)),
		okStyle.Render(fmt.Sprintf("%s completed", monitor.FormatPercentage(s.CompletionRate))))
	if len(resp.Tasks) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No tasks match."))
		return
	}

	t := newTable("ID", "TASK", "PRIORITY", "ASSIGNEE", "DEADLINE", "STATUS")
	for _, task := range resp.Tasks {
		t.Row(task.ID, task.TaskName, string(task.Priority), task.Assignee, task.Deadline, string(task.Status))
	}
	fmt.Fprintln(w, t.String())
}

func printLedger(w io.Writer, l dashboard.Ledger) {
	fmt.Fprintf(w, "%s %s  %s %s  %s %s\n",
		dimStyle.Render("Income"), okStyle.Render(monitor.FormatMoney(l.Totals.Income)),
		dimStyle.Render("Expense"), alertStyle.Render(monitor.FormatMoney(l.Totals.Expense)),
		dimStyle.Render("Balance"), titleStyle.Render(monitor.FormatMoney(l.Totals.Balance)))
	if len(l.Transactions) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No transactions."))
		return
	}

	t := newTable("ID", "DATE", "TYPE", "AMOUNT", "CATEGORY", "DESCRIPTION")
	for _, tx := range l.Transactions {
		amount := monitor.FormatMoney(tx.Amount)
		if tx.Kind == intent.Expense {
			amount = "-" + amount
		}
		t.Row(tx.ID, tx.Date.Local().Format("2006-01-02"), string(tx.Kind), amount, tx.Category, tx.Description)
	}
	fmt.Fprintln(w, t.String())
}

func printTransaction(w io.Writer, tx entity.Transaction) {
	fmt.Fprintf(w, "Recorded %s of %s (%s) %s\n", tx.Kind, monitor.FormatMoney(tx.Amount), tx.Category, dimStyle.Render(tx.ID))
}

func printNotifications(w io.Writer, notes []notify.Notification, now time.Time) {
	if len(notes) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No notifications."))
		return
	}
	for _, n := range notes {
		style := dimStyle
		switch n.Kind {
		case notify.KindAlert:
			style = alertStyle
		case notify.KindWarning:
			style = warnStyle
		case notify.KindInfo:
			style = okStyle
		}
		fmt.Fprintf(w, "%s %s: %s %s\n", dimStyle.Render(n.ID), style.Render(n.Title), n.Message,
			dimStyle.Render(monitor.FormatAge(n.CreatedAt, now)))
	}
}

// saveAttachment writes a download to path, or to its server-provided
// filename in the working directory when path is empty.
func saveAttachment(w io.Writer, a client.Attachment, path string) error {
	if path == "" {
		path = filepath.Base(a.Filename)
		if path == "" || path == "." || path == "/" {
			return fmt.Errorf("server did not name the file; pass --output")
		}
	}
	if err := os.WriteFile(path, a.Data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(w, "Saved %s (%d bytes)\n", path, len(a.Data))
	return nil
}

// parseStatus accepts a status name in any case, with spaces, dashes or
// underscores between words.
func parseStatus(s string) (entity.Status, error) {
	norm := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range []entity.Status{entity.StatusPending, entity.StatusInProgress, entity.StatusCompleted} {
		if strings.ReplaceAll(strings.ToLower(string(st)), " ", "") == norm {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q (want pending, in-progress or completed)", s)
}
