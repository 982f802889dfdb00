package main

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/managerd/internal/gateway"
)

func newNotificationsCmd() *cobra.Command {
	notesCmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notes"},
		Short:   "List or dismiss notifications",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			notes, err := apiClient().Notifications(ctx)
			if err != nil {
				return err
			}
			printNotifications(cmd.OutOrStdout(), notes, time.Now())
			return nil
		},
	}

	dismissCmd := &cobra.Command{
		Use:   "dismiss <id>",
		Short: "Dismiss a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			if err := apiClient().Dismiss(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dismissed %s\n", args[0])
			return nil
		},
	}

	notesCmd.AddCommand(dismissCmd)
	return notesCmd
}

func newPushRecipientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push-recipient [chat-id]",
		Short: "Show or set the Telegram chat that receives alerts",
		Long: `Without an argument, print the Telegram chat id that receives
high-priority and deadline alerts. With one, store it. An empty string
disables push.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			c := apiClient()
			var (
				id  string
				err error
			)
			if len(args) == 1 {
				id, err = c.SetPushRecipient(ctx, strings.TrimSpace(args[0]))
			} else {
				id, err = c.PushRecipient(ctx)
			}
			if err != nil {
				return err
			}
			if id == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Push recipient: (not set)")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Push recipient: %s\n", id)
			return nil
		},
	}
}

// writeImage decodes a data URL image to path.
func writeImage(cmd *cobra.Command, img gateway.Image, path string) error {
	data, err := base64.StdEncoding.DecodeString(img.Base64())
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", path, len(data))
	return nil
}

// readDataURL loads a file as a data URL typed by its extension. Types
// outside fallback's top-level media type are replaced by fallback.
func readDataURL(path, fallback string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	major, _, _ := strings.Cut(fallback, "/")
	if !strings.HasPrefix(ct, major+"/") {
		ct = fallback
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func newImageCmd() *cobra.Command {
	imageCmd := &cobra.Command{
		Use:   "image",
		Short: "Generate or edit images",
	}

	var (
		aspect string
		size   string
		output string
	)
	generateCmd := &cobra.Command{
		Use:   "generate <prompt...>",
		Short: "Generate an image from a prompt",
		Long: `Generate a PNG from a text prompt.

Examples:
  mgrctl image generate --aspect 16:9 --size 2K -o banner.png "Minimal logo for a coffee shop"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := gateway.ImageOptions{
				AspectRatio: gateway.AspectRatio(aspect),
				Size:        gateway.ImageSize(strings.ToUpper(size)),
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			img, err := apiClient().GenerateImage(ctx, strings.Join(args, " "), opts)
			if err != nil {
				return err
			}
			return writeImage(cmd, img, output)
		},
	}
	generateCmd.Flags().StringVar(&aspect, "aspect", "1:1", "aspect ratio (1:1, 16:9, 9:16, 4:3, 3:4)")
	generateCmd.Flags().StringVar(&size, "size", "1K", "resolution tier (1K, 2K, 4K)")
	generateCmd.Flags().StringVarP(&output, "output", "o", "image.png", "output file")

	var editOutput string
	editCmd := &cobra.Command{
		Use:   "edit <image-file> <prompt...>",
		Short: "Apply a prompt to an existing image",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readDataURL(args[0], "image/png")
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			img, err := apiClient().EditImage(ctx, gateway.Image(src), strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return writeImage(cmd, img, editOutput)
		},
	}
	editCmd.Flags().StringVarP(&editOutput, "output", "o", "edited.png", "output file")

	imageCmd.AddCommand(generateCmd, editCmd)
	return imageCmd
}

func newTranscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio recording to text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audio, err := readDataURL(args[0], "audio/webm")
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			text, err := apiClient().Transcribe(ctx, audio)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "Run a grounded web search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			res, err := apiClient().Search(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Text)
			for i, src := range res.Sources {
				fmt.Fprintf(out, "  [%d] %s %s\n", i+1, src.Title, dimStyle.Render(src.URI))
			}
			return nil
		},
	}
}

func newDocCmd() *cobra.Command {
	var (
		title  string
		format string
		output string
	)
	docCmd := &cobra.Command{
		Use:   "doc [content...]",
		Short: "Render text as a PDF or Word document",
		Long: `Render text as a downloadable document. Content is read from stdin
when no arguments are given.

Examples:
  mgrctl doc --title "Q3 Plan" --format pdf "Grow revenue by 20%"
  cat notes.txt | mgrctl doc --title Notes --format doc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readArgOrStdin(cmd, args)
			if err != nil {
				return err
			}
			format = strings.ToLower(format)
			if format != "pdf" && format != "doc" {
				return fmt.Errorf("format must be pdf or doc, got %q", format)
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			a, err := apiClient().ExportDocument(ctx, title, content, format)
			if err != nil {
				return err
			}
			return saveAttachment(cmd.OutOrStdout(), a, output)
		},
	}
	docCmd.Flags().StringVar(&title, "title", "Document", "document title")
	docCmd.Flags().StringVar(&format, "format", "pdf", "pdf or doc")
	docCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: derived from title)")
	return docCmd
}
