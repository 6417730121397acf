package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/gmail-cli/internal/gmail"
)

func newLabelsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			labels, err := client.ListLabels(ctx)
			if err != nil {
				return err
			}
			if len(labels) == 0 {
				app.printf("No labels found.\n")
				return nil
			}
			tw := newTable(app.Out, "NAME", "ID", "TYPE", "MESSAGES", "UNREAD")
			for _, l := range labels {
				row(tw, l.Name, string(l.ID), orUnknown(l.Type),
					strconv.FormatInt(l.MessagesTotal, 10), strconv.FormatInt(l.MessagesUnread, 10))
			}
			return tw.Flush()
		},
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

func newLabelCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "label",
		Short: "Create, rename or delete labels",
	}
	cmd.AddCommand(
		newLabelCreateCommand(app),
		newLabelRenameCommand(app),
		newLabelDeleteCommand(app),
	)
	return cmd
}

func validVisibility(flag, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("--%s %q: must be one of %v", flag, value, allowed)
}

func newLabelCreateCommand(app *App) *cobra.Command {
	var labelVis, messageVis string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validVisibility("label-visibility", labelVis, "labelShow", "labelShowIfUnread", "labelHide"); err != nil {
				return err
			}
			if err := validVisibility("message-visibility", messageVis, "show", "hide"); err != nil {
				return err
			}
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			l, err := client.CreateLabel(ctx, gmail.Label{
				Name:                  args[0],
				LabelListVisibility:   labelVis,
				MessageListVisibility: messageVis,
			})
			if err != nil {
				return err
			}
			app.printf("Label %q created (id %s).\n", l.Name, l.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&labelVis, "label-visibility", "labelShow", "label list visibility: labelShow, labelShowIfUnread or labelHide")
	cmd.Flags().StringVar(&messageVis, "message-visibility", "show", "message list visibility: show or hide")
	return cmd
}

func newLabelRenameCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename LABEL_ID NAME",
		Short: "Rename a label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			current, err := client.GetLabel(ctx, gmail.LabelID(args[0]))
			if err != nil {
				return err
			}
			current.Name = args[1]
			updated, err := client.UpdateLabel(ctx, current)
			if err != nil {
				return err
			}
			app.printf("Label %s renamed to %q.\n", updated.ID, updated.Name)
			return nil
		},
	}
}

func newLabelDeleteCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete LABEL_ID",
		Short: "Delete a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.approve(yes, fmt.Sprintf("Delete label %s?", args[0]))
			if err != nil || !ok {
				return err
			}
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			if err := client.DeleteLabel(ctx, gmail.LabelID(args[0])); err != nil {
				return err
			}
			app.printf("Label deleted.\n")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
