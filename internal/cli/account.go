package cli

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/gmail-cli/internal/gmail"
)

// ErrNothingToRevoke reports a revoke with no stored credential.
var ErrNothingToRevoke = errors.New("no stored credential to revoke")

func newAuthCommand(app *App) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize gmail-cli, or show the stored credential with --status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			au, err := app.authenticator()
			if err != nil {
				return err
			}
			if statusOnly {
				st := au.Status()
				if !st.Stored {
					app.printf("No stored credential. Run `gmail auth` to authorize.\n")
					return nil
				}
				app.printf("Stored:      yes\n")
				app.printf("Valid:       %s\n", yesNo(st.Valid))
				app.printf("Refreshable: %s\n", yesNo(st.Refreshable))
				app.printf("Expiry:      %s\n", formatMoment(st.Expiry))
				app.printf("Scopes:      %s\n", strings.Join(st.Scopes, " "))
				return nil
			}
			c, err := au.Authenticate(cmd.Context())
			if err != nil {
				return err
			}
			app.printf("Authentication successful.\n")
			if !c.Expiry.IsZero() {
				app.printf("Access token valid until %s.\n", formatMoment(c.Expiry))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "report the stored credential without contacting Google")
	return cmd
}

func newRevokeCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke and delete the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ok, err := app.approve(yes, "Revoke stored credentials?")
			if err != nil || !ok {
				return err
			}
			au, err := app.authenticator()
			if err != nil {
				return err
			}
			res, err := au.Revoke(cmd.Context())
			if err != nil {
				return err
			}
			if !res.Removed {
				return ErrNothingToRevoke
			}
			if res.RemoteErr != nil {
				app.printf("Warning: server-side revocation failed; the local credential was removed anyway.\n")
			}
			app.printf("Credentials revoked.\n")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newHistoryCommand(app *App) *cobra.Command {
	var (
		since      uint64
		maxResults int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List mailbox changes since a history id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("since") {
				p, err := client.GetProfile(ctx)
				if err != nil {
					return err
				}
				app.printf("Current history id: %d (pass --since to list changes after it).\n", p.HistoryID)
				return nil
			}
			page, err := client.ListHistory(ctx, since, app.maxResults(cmd, maxResults))
			if err != nil {
				return err
			}
			if len(page.Records) == 0 {
				app.printf("No changes since %d.\n", since)
			} else {
				tw := newTable(app.Out, "HISTORY ID", "ADDED", "DELETED", "LABELED", "UNLABELED")
				for _, r := range page.Records {
					row(tw, strconv.FormatUint(r.ID, 10), stubIDs(r.MessagesAdded), stubIDs(r.Deleted),
						stubIDs(r.LabelsAdded), stubIDs(r.LabelsRemoved))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			app.printf("Latest history id: %d\n", page.HistoryID)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&since, "since", 0, "history id to start after")
	cmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "maximum number of records (default from config)")
	return cmd
}

func stubIDs(stubs []gmail.MessageStub) string {
	if len(stubs) == 0 {
		return "-"
	}
	ids := make([]string, len(stubs))
	for i, s := range stubs {
		ids[i] = string(s.ID)
	}
	return strings.Join(ids, ",")
}

func newProfileCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the authenticated mailbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.mailbox(ctx)
			if err != nil {
				return err
			}
			p, err := client.GetProfile(ctx)
			if err != nil {
				return err
			}
			app.printf("Email:      %s\n", p.Email)
			app.printf("Messages:   %d\n", p.MessagesTotal)
			app.printf("Threads:    %d\n", p.ThreadsTotal)
			app.printf("History ID: %d\n", p.HistoryID)
			return nil
		},
	}
}
