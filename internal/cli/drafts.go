package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/gmail-cli/internal/codec"
	"github.com/joshsymonds/gmail-cli/internal/gmail"
)

func newDraftsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Manage draft messages",
	}
	cmd.AddCommand(
		newDraftsListCommand(app),
		newDraftsCreateCommand(app),
		newDraftsUpdateCommand(app),
		newDraftsReadCommand(app),
		newDraftsSendCommand(app),
		newDraftsDeleteCommand(app),
	)
	return cmd
}

func newDraftsListCommand(app *App) *cobra.Command {
	var maxResults int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			page, err := client.ListDrafts(ctx, app.maxResults(cmd, maxResults), "")
			if err != nil {
				return err
			}
			if len(page.Drafts) == 0 {
				app.printf("No drafts found.\n")
				return nil
			}
			tw := newTable(app.Out, "ID", "SUBJECT", "TO", "DATE")
			for _, stub := range page.Drafts {
				d, err := client.GetDraft(ctx, stub.ID)
				if err != nil {
					return err
				}
				rec, err := codec.Decode(d.Message)
				if err != nil {
					return fmt.Errorf("decode draft %s: %w", d.ID, err)
				}
				row(tw, string(d.ID), truncate(subjectOf(rec), subjectWidth), rec.To.Or(unknown), shortDate(rec.Date))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "maximum number of drafts (default from config)")
	return cmd
}

func newDraftsCreateCommand(app *App) *cobra.Command {
	f := &composeFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft",
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
			d, err := client.CreateDraft(ctx, enc.Raw)
			if err != nil {
				return err
			}
			app.printf("Draft created (id %s).\n", d.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newDraftsUpdateCommand(app *App) *cobra.Command {
	f := &composeFlags{}
	cmd := &cobra.Command{
		Use:   "update DRAFT_ID",
		Short: "Replace the content of a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := app.encode(cmd, f)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			d, err := client.UpdateDraft(ctx, gmail.DraftID(args[0]), enc.Raw)
			if err != nil {
				return err
			}
			app.printf("Draft updated (id %s).\n", d.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newDraftsReadCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "read DRAFT_ID",
		Short: "Print a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			d, err := client.GetDraft(ctx, gmail.DraftID(args[0]))
			if err != nil {
				return err
			}
			rec, err := codec.Decode(d.Message)
			if err != nil {
				return fmt.Errorf("decode draft %s: %w", d.ID, err)
			}
			app.printf("Draft:   %s\n", d.ID)
			writeRecord(app.Out, rec)
			return nil
		},
	}
}

func newDraftsSendCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "send DRAFT_ID",
		Short: "Send a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			sent, err := client.SendDraft(ctx, gmail.DraftID(args[0]))
			if err != nil {
				return err
			}
			app.printf("Draft sent (message id %s).\n", sent.ID)
			return nil
		},
	}
}

func newDraftsDeleteCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete DRAFT_ID",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.approve(yes, fmt.Sprintf("Delete draft %s?", args[0]))
			if err != nil || !ok {
				return err
			}
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			if err := client.DeleteDraft(ctx, gmail.DraftID(args[0])); err != nil {
				return err
			}
			app.printf("Draft deleted.\n")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
