// Package main implements mgrctl, the command-line client for a running
// managerd daemon.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/managerd/internal/client"
)

var (
	// serverURL is the base URL of the managerd daemon
	serverURL string
	// assumeYes skips confirmation prompts
	assumeYes bool
	// version information
	version = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mgrctl",
		Short: "CLI for the managerd business assistant",
		Long: `mgrctl talks to a running managerd daemon over its HTTP API.

It covers the operator session, the chat assistant, the task dashboard,
the ledger, notifications, and the media and document tools.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", client.DefaultServer, "managerd server URL")
	root.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "skip confirmation prompts")

	root.AddCommand(
		newHealthCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newSessionCmd(),
		newChatCmd(),
		newTasksCmd(),
		newLedgerCmd(),
		newNotificationsCmd(),
		newPushRecipientCmd(),
		newImageCmd(),
		newTranscribeCmd(),
		newSearchCmd(),
		newDocCmd(),
		newWatchCmd(),
	)
	return root
}

// apiClient returns a client for --server.
func apiClient() *client.Client {
	return client.New(serverURL)
}

// requestContext bounds one CLI call. Provider-backed calls get the
// client's own timeout.
func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, 3*time.Minute)
}

// confirm asks a y/N question on the command's input and reports "Aborted."
// on anything but yes. --yes answers yes.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	if assumeYes {
		return true, nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "y" || answer == "yes" {
		return true, nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
	return false, nil
}

// readArgOrStdin joins args, or reads stdin when args is empty or "-".
func readArgOrStdin(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check managerd server health",
		Long: `Check the health status of the managerd daemon.

Examples:
  # Check health
  mgrctl health

  # Check health on a different server
  mgrctl health --server http://localhost:9292`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			health, err := apiClient().Health(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Server Status: %s\n", health.Status)
			fmt.Fprintf(out, "Server URL: %s\n", serverURL)
			return nil
		},
	}
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [passphrase]",
		Short: "Open the operator session",
		Long: `Open the operator session with the shared passphrase. Without an
argument the passphrase is read from stdin.

Opening the session starts the deadline monitor.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := readArgOrStdin(cmd, args)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			status, err := apiClient().Login(ctx, pass)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Close the operator session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirm(cmd, "Log out and stop the deadline monitor?")
			if err != nil || !ok {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			status, err := apiClient().Logout(ctx)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			status, err := apiClient().Session(ctx)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), status)
			return nil
		},
	}
}
