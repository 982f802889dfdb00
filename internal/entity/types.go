package entity

import (
	"time"

	"github.com/fyrsmithlabs/managerd/internal/intent"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Categories are the suggested transaction categories. Any free-text
// category is accepted.
var Categories = []string{"General", "Project Fee", "Salary", "Software/Tools", "Marketing", "Office"}

// Task is a classified task plus bookkeeping. Notified only ever moves
// from false to true.
type Task struct {
	intent.Result

	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Notified  bool      `json:"notified"`
	Status    Status    `json:"status"`
}

// Transaction is one ledger entry. Date is set at creation and never edited.
type Transaction struct {
	ID          string        `json:"id"`
	Date        time.Time     `json:"date"`
	Amount      float64       `json:"amount"`
	Kind        intent.TxKind `json:"type"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
}

// TransactionInput carries the caller-supplied fields of a new transaction.
type TransactionInput struct {
	Amount      float64       `json:"amount"`
	Kind        intent.TxKind `json:"type"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
}

// FromIntent converts the ledger payload of a classification.
func FromIntent(td intent.TransactionData) TransactionInput {
	return TransactionInput{
		Amount:      td.Amount,
		Kind:        td.Kind,
		Category:    td.Category,
		Description: td.Description,
	}
}

// Patch is a partial task update. Nil fields are left untouched.
type Patch struct {
	Status   *Status          `json:"status,omitempty"`
	Priority *intent.Priority `json:"priority,omitempty"`
	Assignee *string          `json:"assignee,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Status == nil && p.Priority == nil && p.Assignee == nil
}

// Field names the single field a patch touches, or "" when it touches
// none or several.
func (p Patch) Field() string {
	var fields []string
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	if p.Assignee != nil {
		fields = append(fields, "assignee")
	}
	if len(fields) != 1 {
		return ""
	}
	return fields[0]
}

func (p Patch) apply(t *Task) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
}
