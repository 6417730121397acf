package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/gmail-cli/internal/gmail"
	"github.com/joshsymonds/gmail-cli/internal/gmailctl"
)

func newSettingsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage mailbox settings",
	}
	cmd.AddCommand(
		newFiltersCommand(app),
		newForwardingCommand(app),
		newSendAsCommand(app),
		newVacationCommand(app),
		newDelegatesCommand(app),
	)
	return cmd
}

func newFiltersCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Manage filters",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List filters",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := cmd.Context()
				client, err := app.mailbox(ctx)
				if err != nil {
					return err
				}
				filters, err := client.ListFilters(ctx)
				if err != nil {
					return err
				}
				if len(filters) == 0 {
					app.printf("No filters found.\n")
					return nil
				}
				tw := newTable(app.Out, "ID", "CRITERIA", "ACTION")
				for _, f := range filters {
					row(tw, orUnknown(f.ID), describeCriteria(f.Criteria), describeAction(f.Action))
				}
				return tw.Flush()
			},
		},
		newFiltersImportCommand(app),
		newFiltersDeleteCommand(app),
	)
	return cmd
}

// newFiltersImportCommand compiles the gmailctl configuration and creates
// each resulting filter. Labels the filters need are created first.
func newFiltersImportCommand(app *App) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create filters compiled by gmailctl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			export, err := app.NewCompiler(app.cfg, app.logger).Compile(ctx)
			if err != nil {
				return fmt.Errorf("compile gmailctl config: %w", err)
			}
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			labels, err := client.ListLabels(ctx)
			if err != nil {
				return err
			}
			plan := gmailctl.BuildPlan(export, labels)
			if dryRun {
				for _, name := range plan.MissingLabels {
					app.printf("would create label %q\n", name)
				}
				for _, f := range plan.Filters {
					app.printf("would create filter %s -> %s\n", describeCriteria(f.Criteria), describeAction(f.Action))
				}
				app.printf("%d filters resolvable now; %d labels missing.\n", len(plan.Filters), len(plan.MissingLabels))
				return nil
			}
			if len(plan.MissingLabels) > 0 {
				for _, name := range plan.MissingLabels {
					l, err := client.CreateLabel(ctx, gmail.Label{Name: name, LabelListVisibility: "labelShow", MessageListVisibility: "show"})
					if err != nil {
						return err
					}
					app.printf("Label %q created (id %s).\n", l.Name, l.ID)
					labels = append(labels, l)
				}
				plan = gmailctl.BuildPlan(export, labels)
			}
			for i, f := range plan.Filters {
				created, err := client.CreateFilter(ctx, f)
				if err != nil {
					return fmt.Errorf("filter %d of %d: %w", i+1, len(plan.Filters), err)
				}
				app.logger.InfoContext(ctx, "filter created", "id", created.ID)
			}
			app.printf("Created %d filters.\n", len(plan.Filters))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be created without changing the mailbox")
	return cmd
}

func newFiltersDeleteCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete FILTER_ID",
		Short: "Delete a filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.approve(yes, fmt.Sprintf("Delete filter %s?", args[0]))
			if err != nil || !ok {
				return err
			}
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			if err := client.DeleteFilter(ctx, args[0]); err != nil {
				return err
			}
			app.printf("Filter deleted.\n")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newForwardingCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forwarding",
		Short: "Manage forwarding addresses",
	}
	var yes bool
	remove := &cobra.Command{
		Use:   "remove EMAIL",
		Short: "Remove a forwarding address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.approve(yes, fmt.Sprintf("Remove forwarding address %s?", args[0]))
			if err != nil || !ok {
				return err
			}
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			if err := client.DeleteForwardingAddress(ctx, args[0]); err != nil {
				return err
			}
			app.printf("Forwarding address removed.\n")
			return nil
		},
	}
	remove.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List forwarding addresses",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := cmd.Context()
				client, err := app.mailbox(ctx)
				if err != nil {
					return err
				}
				addrs, err := client.ListForwardingAddresses(ctx)
				if err != nil {
					return err
				}
				if len(addrs) == 0 {
					app.printf("No forwarding addresses found.\n")
					return nil
				}
				tw := newTable(app.Out, "EMAIL", "VERIFICATION STATUS")
				for _, a := range addrs {
					row(tw, orUnknown(a.Email), orUnknown(a.VerificationStatus))
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "add EMAIL",
			Short: "Add a forwarding address; Gmail sends a verification message to it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				client, err := app.mailbox(ctx)
				if err != nil {
					return err
				}
				a, err := client.CreateForwardingAddress(ctx, args[0])
				if err != nil {
					return err
				}
				app.printf("Forwarding address %s added (%s).\n", a.Email, orUnknown(a.VerificationStatus))
				return nil
			},
		},
		remove,
	)
	return cmd
}

func newSendAsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sendas",
		Short: "Inspect send-as aliases",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List send-as aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			aliases, err := client.ListSendAs(ctx)
			if err != nil {
				return err
			}
			if len(aliases) == 0 {
				app.printf("No send-as aliases found.\n")
				return nil
			}
			tw := newTable(app.Out, "EMAIL", "DISPLAY NAME", "PRIMARY", "DEFAULT", "VERIFICATION")
			for _, s := range aliases {
				row(tw, orUnknown(s.Email), orNone(s.DisplayName), yesNo(s.IsPrimary), yesNo(s.IsDefault), orUnknown(s.VerificationStatus))
			}
			return tw.Flush()
		},
	})
	return cmd
}

const dateLayout = "2006-01-02"

func formatMoment(t time.Time) string {
	if t.IsZero() {
		return "None"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func newVacationCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vacation",
		Short: "Manage the vacation responder",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the vacation responder",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := cmd.Context()
				client, err := app.mailbox(ctx)
				if err != nil {
					return err
				}
				v, err := client.GetVacation(ctx)
				if err != nil {
					return err
				}
				app.printf("Enabled:    %t\n", v.Enabled)
				app.printf("Subject:    %s\n", orNone(v.Subject))
				app.printf("Message:    %s\n", orNone(v.BodyPlainText))
				app.printf("Start Time: %s\n", formatMoment(v.Start))
				app.printf("End Time:   %s\n", formatMoment(v.End))
				if v.RestrictToContacts || v.RestrictToDomain {
					app.printf("Restricted: contacts=%t domain=%t\n", v.RestrictToContacts, v.RestrictToDomain)
				}
				return nil
			},
		},
		newVacationEnableCommand(app),
		&cobra.Command{
			Use:   "disable",
			Short: "Turn the vacation responder off",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := cmd.Context()
				client, err := app.mailbox(ctx)
				if err != nil {
					return err
				}
				v, err := client.GetVacation(ctx)
				if err != nil {
					return err
				}
				v.Enabled = false
				if _, err := client.UpdateVacation(ctx, v); err != nil {
					return err
				}
				app.printf("Vacation responder disabled.\n")
				return nil
			},
		},
	)
	return cmd
}

func newVacationEnableCommand(app *App) *cobra.Command {
	var (
		subject, message, start, end string
		contactsOnly                 bool
	)
	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Turn the vacation responder on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := gmail.Vacation{
				Enabled:            true,
				Subject:            subject,
				BodyPlainText:      message,
				RestrictToContacts: contactsOnly,
			}
			var err error
			if v.Start, err = parseDay("start", start); err != nil {
				return err
			}
			if v.End, err = parseDay("end", end); err != nil {
				return err
			}
			if !v.End.IsZero() {
				// the responder stays on through the whole end day
				v.End = v.End.AddDate(0, 0, 1).Add(-time.Millisecond)
			}
			if !v.Start.IsZero() && !v.End.IsZero() && v.End.Before(v.Start) {
				return fmt.Errorf("--end %s is before --start %s", end, start)
			}
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			if _, err := client.UpdateVacation(ctx, v); err != nil {
				return err
			}
			app.printf("Vacation responder enabled.\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "auto-reply subject")
	cmd.Flags().StringVar(&message, "message", "", "auto-reply plain text body")
	cmd.Flags().StringVar(&start, "start", "", "first day, "+dateLayout)
	cmd.Flags().StringVar(&end, "end", "", "last day, "+dateLayout)
	cmd.Flags().BoolVar(&contactsOnly, "contacts-only", false, "reply only to people in your contacts")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func parseDay(flag, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s %q: want %s", flag, s, dateLayout)
	}
	return t, nil
}

func newDelegatesCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delegates",
		Short: "Manage mailbox delegates",
	}
	var yes bool
	remove := &cobra.Command{
		Use:   "remove EMAIL",
		Short: "Remove a delegate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.approve(yes, fmt.Sprintf("Remove delegate %s?", args[0]))
			if err != nil || !ok {
				return err
			}
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			if err := client.DeleteDelegate(ctx, args[0]); err != nil {
				return err
			}
			app.printf("Delegate removed.\n")
			return nil
		},
	}
	remove.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List delegates",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := cmd.Context()
				client, err := app.mailbox(ctx)
				if err != nil {
					return err
				}
				delegates, err := client.ListDelegates(ctx)
				if err != nil {
					return err
				}
				if len(delegates) == 0 {
					app.printf("No delegates found.\n")
					return nil
				}
				tw := newTable(app.Out, "EMAIL", "VERIFICATION STATUS")
				for _, d := range delegates {
					row(tw, orUnknown(d.Email), orUnknown(d.VerificationStatus))
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "add EMAIL",
			Short: "Grant a delegate access to this mailbox",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				client, err := app.mailbox(ctx)
				if err != nil {
					return err
				}
				d, err := client.CreateDelegate(ctx, args[0])
				if err != nil {
					return err
				}
				app.printf("Delegate %s added (%s).\n", d.Email, orUnknown(d.VerificationStatus))
				return nil
			},
		},
		remove,
	)
	return cmd
}
