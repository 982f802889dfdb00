package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/managerd/internal/entity"
	"github.com/fyrsmithlabs/managerd/internal/intent"
)

func newLedgerCmd() *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "View and edit the income/expense ledger",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show totals and transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			l, err := apiClient().Ledger(ctx)
			if err != nil {
				return err
			}
			printLedger(cmd.OutOrStdout(), l)
			return nil
		},
	}

	var (
		kind        string
		amount      float64
		category    string
		description string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Long: `Record an income or expense entry. The date is set by the server.

Suggested categories: ` + strings.Join(entity.Categories, ", ") + `

Examples:
  mgrctl ledger add --type income --amount 1200 --description "Acme website"
  mgrctl ledger add --type expense --amount 49.99 --category Software/Tools --description "Figma"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k := intent.TxKind(strings.ToLower(strings.TrimSpace(kind)))
			if !k.Valid() {
				return fmt.Errorf("type must be income or expense, got %q", kind)
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			tx, err := apiClient().AddTransaction(ctx, entity.TransactionInput{
				Amount:      amount,
				Kind:        k,
				Category:    category,
				Description: description,
			})
			if err != nil {
				return err
			}
			printTransaction(cmd.OutOrStdout(), tx)
			return nil
		},
	}
	addCmd.Flags().StringVar(&kind, "type", "", "income or expense")
	addCmd.Flags().Float64Var(&amount, "amount", 0, "positive amount")
	addCmd.Flags().StringVar(&category, "category", "General", "category")
	addCmd.Flags().StringVar(&description, "description", "", "what it was for")
	_ = addCmd.MarkFlagRequired("type")
	_ = addCmd.MarkFlagRequired("amount")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirm(cmd, fmt.Sprintf("Delete transaction %s?", args[0]))
			if err != nil || !ok {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			if err := apiClient().DeleteTransaction(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted transaction %s\n", args[0])
			return nil
		},
	}

	ledgerCmd.AddCommand(listCmd, addCmd, deleteCmd)
	return ledgerCmd
}
