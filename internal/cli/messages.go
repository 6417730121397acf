package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/gmail-cli/internal/codec"
	"github.com/joshsymonds/gmail-cli/internal/gmail"
)

func newListCommand(app *App) *cobra.Command {
	var (
		maxResults int
		query      string
		labels     []string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := gmail.ListOptions{
				Query:      gmail.Query{Raw: query},
				MaxResults: app.maxResults(cmd, maxResults),
				LabelIDs:   toLabelIDs(labels),
			}
			return app.listMessages(cmd.Context(), opts, true, "No messages found.")
		},
	}
	cmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "maximum number of messages (default from config)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Gmail search query")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "only messages carrying this label id (repeatable)")
	return cmd
}

func newSearchCommand(app *App) *cobra.Command {
	var maxResults int
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search messages using Gmail search syntax",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := gmail.ListOptions{
				Query:      gmail.Query{Raw: args[0]},
				MaxResults: app.maxResults(cmd, maxResults),
			}
			return app.listMessages(cmd.Context(), opts, false, "No messages found matching your search.")
		},
	}
	cmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "maximum number of results (default from config)")
	return cmd
}

func (a *App) maxResults(cmd *cobra.Command, n int) int {
	if cmd.Flags().Changed("max-results") && n > 0 {
		return n
	}
	return a.cfg.MaxResults
}

// listMessages fetches each listed message in remote order and prints one
// row per message.
func (a *App) listMessages(ctx context.Context, opts gmail.ListOptions, withLabels bool, empty string) error {
	client, err := a.mailbox(ctx)
	if err != nil {
		return err
	}
	page, err := client.ListMessages(ctx, opts)
	if err != nil {
		return err
	}
	if len(page.Messages) == 0 {
		a.printf("%s\n", empty)
		return nil
	}
	headers := []string{"ID", "FROM", "SUBJECT", "DATE"}
	if withLabels {
		headers = append(headers, "LABELS")
	}
	tw := newTable(a.Out, headers...)
	for _, stub := range page.Messages {
		msg, err := client.GetMessage(ctx, stub.ID)
		if err != nil {
			return err
		}
		rec, err := codec.Decode(msg)
		if err != nil {
			return fmt.Errorf("decode message %s: %w", stub.ID, err)
		}
		cells := []string{string(stub.ID), rec.From.Or(unknown), truncate(subjectOf(rec), subjectWidth), shortDate(rec.Date)}
		if withLabels {
			cells = append(cells, labelSummary(rec.Labels))
		}
		row(tw, cells...)
	}
	return tw.Flush()
}

func newReadCommand(app *App) *cobra.Command {
	var markRead bool
	cmd := &cobra.Command{
		Use:   "read MESSAGE_ID",
		Short: "Print a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			id := gmail.MessageID(args[0])
			msg, err := client.GetMessage(ctx, id)
			if err != nil {
				return err
			}
			rec, err := codec.Decode(msg)
			if err != nil {
				return fmt.Errorf("decode message %s: %w", id, err)
			}
			writeRecord(app.Out, rec)
			if markRead && hasLabel(rec.Labels, gmail.LabelUnread) {
				if err := client.ModifyMessage(ctx, id, gmail.ModifyOps{RemoveLabels: []gmail.LabelID{gmail.LabelUnread}}); err != nil {
					return err
				}
				app.printf("\nMessage marked as read.\n")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&markRead, "mark-read", false, "remove the UNREAD label after printing")
	return cmd
}

func hasLabel(ids []gmail.LabelID, want gmail.LabelID) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}

// composeFlags are shared by send and the draft commands.
type composeFlags struct {
	to, subject, body, cc, bcc string
	attach                     []string
}

func (f *composeFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.to, "to", "t", "", "recipient address")
	fl.StringVarP(&f.subject, "subject", "s", "", "subject line")
	fl.StringVarP(&f.body, "body", "b", "", "message body (read from stdin when omitted)")
	fl.StringVar(&f.cc, "cc", "", "Cc recipients, comma separated")
	fl.StringVar(&f.bcc, "bcc", "", "Bcc recipients, comma separated")
	fl.StringSliceVarP(&f.attach, "attach", "a", nil, "file to attach (repeatable)")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("subject")
}

// encode builds the wire envelope, reading the body from stdin when the
// flag was not given.
func (a *App) encode(cmd *cobra.Command, f *composeFlags) (codec.Encoded, error) {
	body := f.body
	if !cmd.Flags().Changed("body") {
		var err error
		if body, err = a.readBody(); err != nil {
			return codec.Encoded{}, err
		}
	}
	enc, err := codec.Encode(codec.Request{
		To:          f.to,
		Subject:     f.subject,
		Body:        body,
		Cc:          f.cc,
		Bcc:         f.bcc,
		Attachments: f.attach,
	}, codec.Options{Logger: a.logger, Now: a.Now})
	if err != nil {
		return codec.Encoded{}, fmt.Errorf("compose message: %w", err)
	}
	return enc, nil
}

func newSendCommand(app *App) *cobra.Command {
	f := &composeFlags{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc, err := app.encode(cmd, f)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			sent, err := client.SendMessage(ctx, enc.Raw)
			if err != nil {
				return err
			}
			app.printf("Message sent (id %s).\n", sent.ID)
			for _, p := range enc.Skipped {
				app.printf("Skipped missing attachment: %s\n", p)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newMarkCommand(app *App) *cobra.Command {
	var unread bool
	cmd := &cobra.Command{
		Use:   "mark MESSAGE_ID",
		Short: "Mark a message as read or unread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			ops := gmail.ModifyOps{RemoveLabels: []gmail.LabelID{gmail.LabelUnread}}
			status := "read"
			if unread {
				ops = gmail.ModifyOps{AddLabels: []gmail.LabelID{gmail.LabelUnread}}
				status = "unread"
			}
			if err := client.ModifyMessage(ctx, gmail.MessageID(args[0]), ops); err != nil {
				return err
			}
			app.printf("Message marked as %s.\n", status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "mark as unread instead of read")
	return cmd
}

func newDeleteCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete MESSAGE_ID",
		Short: "Permanently delete a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.approve(yes, fmt.Sprintf("Permanently delete message %s?", args[0]))
			if err != nil || !ok {
				return err
			}
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			if err := client.DeleteMessage(ctx, gmail.MessageID(args[0])); err != nil {
				return err
			}
			app.printf("Message deleted.\n")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newTrashCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "trash MESSAGE_ID",
		Short: "Move a message to the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			if err := client.TrashMessage(ctx, gmail.MessageID(args[0])); err != nil {
				return err
			}
			app.printf("Message moved to trash.\n")
			return nil
		},
	}
}

func newUntrashCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "untrash MESSAGE_ID",
		Short: "Restore a message from the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			if err := client.UntrashMessage(ctx, gmail.MessageID(args[0])); err != nil {
				return err
			}
			app.printf("Message restored.\n")
			return nil
		},
	}
}

func newDownloadCommand(app *App) *cobra.Command {
	var filename string
	cmd := &cobra.Command{
		Use:   "download MESSAGE_ID ATTACHMENT_ID",
		Short: "Save a message attachment to disk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			attID := gmail.AttachmentID(args[1])
			data, err := client.GetAttachment(ctx, gmail.MessageID(args[0]), attID)
			if err != nil {
				return err
			}
			path := filename
			if path == "" {
				path = "attachment_" + string(attID)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write attachment %s: %w", path, err)
			}
			app.printf("Saved %s to %s.\n", humanSize(int64(len(data))), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&filename, "filename", "f", "", "output path (default attachment_<attachment id>)")
	return cmd
}

func toLabelIDs(ss []string) []gmail.LabelID {
	if len(ss) == 0 {
		return nil
	}
	out := make([]gmail.LabelID, len(ss))
	for i, s := range ss {
		out[i] = gmail.LabelID(s)
	}
	return out
}
