// Package intent defines the structured result of classifying one operator
// utterance, and the boundary decoding that turns loosely typed provider
// output into it.
package intent

// Priority of a task.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Valid reports whether p is one of the three known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// TxKind is the direction of a ledger entry.
type TxKind string

const (
	Income  TxKind = "income"
	Expense TxKind = "expense"
)

// Valid reports whether k is income or expense.
func (k TxKind) Valid() bool {
	return k == Income || k == Expense
}

// TransactionData is the ledger payload of a Result.
type TransactionData struct {
	Amount      float64 `json:"amount"`
	Kind        TxKind  `json:"type"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
}

// Result is the classification of one utterance. IsTask and TaskName are
// always present; when IsTask is false TaskName carries the answer text.
// JSON keys match the provider wire schema.
type Result struct {
	IsTask          bool             `json:"IsTask"`
	TaskName        string           `json:"TaskName"`
	Deadline        string           `json:"Deadline,omitempty"`
	Priority        Priority         `json:"Priority,omitempty"`
	Assignee        string           `json:"Assignee,omitempty"`
	Description     string           `json:"Description,omitempty"`
	Tags            []string         `json:"Tags,omitempty"`
	DocumentTitle   string           `json:"DocumentTitle,omitempty"`
	DocumentContent string           `json:"DocumentContent,omitempty"`
	TransactionData *TransactionData `json:"TransactionData,omitempty"`
}

// Kind is the primary payload of a Result.
type Kind int

const (
	KindAnswer Kind = iota
	KindTask
	KindDocument
	KindTransaction
)

func (k Kind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindDocument:
		return "document"
	case KindTransaction:
		return "transaction"
	default:
		return "answer"
	}
}

// Classify picks the primary payload using the fixed precedence
// task, document, transaction, answer.
func Classify(r Result) Kind {
	switch {
	case r.IsTask:
		return KindTask
	case r.DocumentContent != "":
		return KindDocument
	case r.TransactionData != nil:
		return KindTransaction
	default:
		return KindAnswer
	}
}

// Degraded returns the answer-shaped result used when classification fails,
// so callers always have something renderable.
func Degraded(err error) Result {
	return Result{
		IsTask:      false,
		TaskName:    "Error: " + err.Error(),
		Description: err.Error(),
	}
}
