package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant",
		Long: `Send utterances to the assistant and manage the conversation.

Each utterance is classified: tasks and ledger entries are created
automatically, "search ..." runs a grounded web search, and anything else
gets an answer.

Examples:
  # Create a task
  mgrctl chat send "Call the accountant tomorrow at 10, high priority"

  # Record income
  mgrctl chat send "Received 1200 from Acme for the website"

  # Read the conversation
  mgrctl chat history`,
	}

	sendCmd := &cobra.Command{
		Use:   "send [text...]",
		Short: "Send one utterance (reads stdin without arguments)",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readArgOrStdin(cmd, args)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			turn, err := apiClient().Submit(ctx, text)
			if err != nil {
				return err
			}
			printTurn(cmd.OutOrStdout(), turn)
			return nil
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Print the conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			msgs, err := apiClient().History(ctx)
			if err != nil {
				return err
			}
			for i, m := range msgs {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				printMessage(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Reset the conversation to the greeting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirm(cmd, "Clear the whole conversation?")
			if err != nil || !ok {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			msgs, err := apiClient().ClearHistory(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Conversation cleared (%d message).\n", len(msgs))
			return nil
		},
	}

	var output string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Download the conversation as a PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			a, err := apiClient().ExportChat(ctx)
			if err != nil {
				return err
			}
			return saveAttachment(cmd.OutOrStdout(), a, output)
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: server-provided name)")

	chatCmd.AddCommand(sendCmd, historyCmd, clearCmd, exportCmd)
	return chatCmd
}
