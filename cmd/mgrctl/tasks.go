package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/managerd/internal/dashboard"
	"github.com/fyrsmithlabs/managerd/internal/entity"
)

func newTasksCmd() *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "View and edit tasks",
	}

	var priority, assignee, bucket, query string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks with optional filters",
		Long: `List tasks with stats. Filters combine with AND.

Examples:
  # Everything overdue
  mgrctl tasks list --bucket overdue

  # High priority tasks for Ann mentioning "invoice"
  mgrctl tasks list --priority high --assignee Ann --query invoice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := dashboard.ParseFilter(priority, assignee, bucket, query)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			resp, err := apiClient().Tasks(ctx, f)
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	listCmd.Flags().StringVar(&priority, "priority", "", "high, medium or low")
	listCmd.Flags().StringVar(&assignee, "assignee", "", "exact assignee name")
	listCmd.Flags().StringVar(&bucket, "bucket", "", "overdue, upcoming, no-deadline or invalid")
	listCmd.Flags().StringVarP(&query, "query", "q", "", "text searched in name, description and tags")

	statusCmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set a task's status (pending, in-progress, completed)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			task, err := apiClient().SetStatus(ctx, args[0], st)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %q is now %s\n", task.TaskName, task.Status)
			return nil
		},
	}

	var bulkStatus, bulkPriority, bulkAssignee string
	bulkCmd := &cobra.Command{
		Use:   "bulk <id>...",
		Short: "Change one field on several tasks",
		Long: `Apply a single field change to several tasks at once. Exactly one of
--status, --priority or --assignee must be given.

Examples:
  mgrctl tasks bulk 1700000000000 1700000000001 --status completed
  mgrctl tasks bulk 1700000000000 --assignee Bo`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch entity.Patch
			if cmd.Flags().Changed("status") {
				st, err := parseStatus(bulkStatus)
				if err != nil {
					return err
				}
				patch.Status = &st
			}
			if cmd.Flags().Changed("priority") {
				p, err := dashboard.ParsePriority(bulkPriority)
				if err != nil {
					return err
				}
				if p == "" {
					return fmt.Errorf("priority must be high, medium or low")
				}
				patch.Priority = &p
			}
			if cmd.Flags().Changed("assignee") {
				a := strings.TrimSpace(bulkAssignee)
				patch.Assignee = &a
			}
			if patch.Field() == "" {
				return fmt.Errorf("exactly one of --status, --priority or --assignee is required")
			}

			ctx, cancel := requestContext(cmd)
			defer cancel()
			resp, err := apiClient().Bulk(ctx, args, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d tasks (%s)\n", resp.Updated, resp.Field)
			return nil
		},
	}
	bulkCmd.Flags().StringVar(&bulkStatus, "status", "", "new status")
	bulkCmd.Flags().StringVar(&bulkPriority, "priority", "", "new priority")
	bulkCmd.Flags().StringVar(&bulkAssignee, "assignee", "", "new assignee (empty clears it)")

	tasksCmd.AddCommand(listCmd, statusCmd, bulkCmd)
	return tasksCmd
}
