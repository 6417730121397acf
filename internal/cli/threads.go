package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/gmail-cli/internal/codec"
	"github.com/joshsymonds/gmail-cli/internal/gmail"
)

func newThreadsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "Manage conversation threads",
	}
	cmd.AddCommand(
		newThreadsListCommand(app),
		newThreadsReadCommand(app),
		newThreadsTrashCommand(app),
		newThreadsDeleteCommand(app),
	)
	return cmd
}

func newThreadsListCommand(app *App) *cobra.Command {
	var (
		maxResults int
		query      string
		labels     []string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			page, err := client.ListThreads(ctx, gmail.ListOptions{
				Query:      gmail.Query{Raw: query},
				MaxResults: app.maxResults(cmd, maxResults),
				LabelIDs:   toLabelIDs(labels),
			})
			if err != nil {
				return err
			}
			if len(page.Threads) == 0 {
				app.printf("No threads found.\n")
				return nil
			}
			tw := newTable(app.Out, "ID", "SUBJECT", "MESSAGES", "LABELS")
			for _, stub := range page.Threads {
				th, err := client.GetThread(ctx, stub.ID)
				if err != nil {
					return err
				}
				subject, labelCol := noSubject, ""
				if len(th.Messages) > 0 {
					rec, err := codec.Decode(th.Messages[0])
					if err != nil {
						return fmt.Errorf("decode thread %s: %w", th.ID, err)
					}
					subject = subjectOf(rec)
					labelCol = labelSummary(threadLabels(th))
				}
				row(tw, string(th.ID), truncate(subject, subjectWidth), strconv.Itoa(len(th.Messages)), labelCol)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "maximum number of threads (default from config)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Gmail search query")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "only threads carrying this label id (repeatable)")
	return cmd
}

// threadLabels is the union of message labels in first-seen order.
func threadLabels(th gmail.Thread) []gmail.LabelID {
	seen := map[gmail.LabelID]bool{}
	var out []gmail.LabelID
	for _, m := range th.Messages {
		for _, id := range m.LabelIDs {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func newThreadsReadCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "read THREAD_ID",
		Short: "Print every message in a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			th, err := client.GetThread(ctx, gmail.ThreadID(args[0]))
			if err != nil {
				return err
			}
			app.printf("Thread:   %s\n", th.ID)
			app.printf("Messages: %d\n", len(th.Messages))
			app.printf("Labels:   %s\n", joinLabels(threadLabels(th)))
			for i, m := range th.Messages {
				rec, err := codec.Decode(m)
				if err != nil {
					return fmt.Errorf("decode message %s: %w", m.ID, err)
				}
				app.printf("\n--- Message %d ---\n", i+1)
				writeRecord(app.Out, rec)
			}
			return nil
		},
	}
}

func newThreadsTrashCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "trash THREAD_ID",
		Short: "Move a thread to the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			if err := client.TrashThread(ctx, gmail.ThreadID(args[0])); err != nil {
				return err
			}
			app.printf("Thread moved to trash.\n")
			return nil
		},
	}
}

func newThreadsDeleteCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete THREAD_ID",
		Short: "Permanently delete a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.approve(yes, fmt.Sprintf("Permanently delete thread %s?", args[0]))
			if err != nil || !ok {
				return err
			}
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			if err := client.DeleteThread(ctx, gmail.ThreadID(args[0])); err != nil {
				return err
			}
			app.printf("Thread deleted.\n")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
