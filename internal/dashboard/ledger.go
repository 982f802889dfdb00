package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/managerd/internal/entity"
	"github.com/fyrsmithlabs/managerd/internal/intent"
	"github.com/fyrsmithlabs/managerd/internal/notify"
)

// Totals of a ledger.
type Totals struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
}

// Ledger is the account view: entries newest first plus totals.
type Ledger struct {
	Transactions []entity.Transaction `json:"transactions"`
	Totals       Totals               `json:"totals"`
	Categories   []string             `json:"categories"`
}

// Summarize sorts transactions by date descending and totals them.
func Summarize(txs []entity.Transaction) Ledger {
	sorted := append([]entity.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	var totals Totals
	for _, tx := range sorted {
		switch tx.Kind {
		case intent.Income:
			totals.Income += tx.Amount
		case intent.Expense:
			totals.Expense += tx.Amount
		}
	}
	totals.Balance = totals.Income - totals.Expense

	return Ledger{
		Transactions: sorted,
		Totals:       totals,
		Categories:   entity.Categories,
	}
}

// ValidateTransactionInput applies the form rules: a positive amount, a
// description, and a known type.
func ValidateTransactionInput(in entity.TransactionInput) error {
	if in.Amount <= 0 {
		return fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if !in.Kind.Valid() {
		return fmt.Errorf("%w: type must be income or expense", ErrValidation)
	}
	return nil
}

// TransactionAdder records ledger entries.
type TransactionAdder interface {
	AddTransaction(ctx context.Context, in entity.TransactionInput) (entity.Transaction, error)
}

// RecordTransaction validates a manual ledger entry, stores it, and
// announces it the same way a chat-created entry is announced.
func RecordTransaction(ctx context.Context, store TransactionAdder, alerter Alerter, in entity.TransactionInput) (entity.Transaction, error) {
	if err := ValidateTransactionInput(in); err != nil {
		return entity.Transaction{}, err
	}
	tx, err := store.AddTransaction(ctx, in)
	if err != nil {
		return entity.Transaction{}, err
	}
	amount := strconv.FormatFloat(tx.Amount, 'f', -1, 64)
	alerter.Notify(ctx, "Transaction Added", fmt.Sprintf("$%s %s", amount, tx.Kind), notify.KindInfo)
	return tx, nil
}
