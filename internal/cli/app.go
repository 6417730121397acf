// Package cli is the gmail command tree. Commands authenticate lazily, talk
// to the mailbox through gmail.Client and render plain text.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/joshsymonds/gmail-cli/internal/auth"
	"github.com/joshsymonds/gmail-cli/internal/config"
	"github.com/joshsymonds/gmail-cli/internal/gmail"
	"github.com/joshsymonds/gmail-cli/internal/gmailctl"
	"github.com/joshsymonds/gmail-cli/internal/rate"
	"github.com/joshsymonds/gmail-cli/internal/runtime"
)

// Authenticator is the slice of *auth.Authenticator the commands use.
type Authenticator interface {
	Authenticate(ctx context.Context) (*auth.Credential, error)
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
	Revoke(ctx context.Context) (auth.RevokeResult, error)
	Status() auth.Status
}

// FilterCompiler produces compiled gmailctl filters.
type FilterCompiler interface {
	Compile(ctx context.Context) (gmailctl.Export, error)
}

// App carries the collaborators for one invocation. The factory fields are
// replaced in tests.
type App struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	LoadConfig  func(config.Options) (config.Config, error)
	NewLogger   func(level slog.Level) *slog.Logger
	NewAuth     func(cfg config.Config, logger *slog.Logger) (Authenticator, error)
	Connect     func(ctx context.Context, cfg config.Config, a Authenticator, logger *slog.Logger) (gmail.Client, func(), error)
	NewCompiler func(cfg config.Config, logger *slog.Logger) FilterCompiler
	Now         func() time.Time

	cfg     config.Config
	logger  *slog.Logger
	auth    Authenticator
	client  gmail.Client
	release func()
	input   *bufio.Reader
}

// NewApp returns an App wired to the real config, keyring, OAuth and Gmail
// implementations.
func NewApp() *App {
	return &App{
		In:         os.Stdin,
		Out:        os.Stdout,
		Err:        os.Stderr,
		LoadConfig: config.Load,
		NewLogger:  runtime.DefaultLogger,
		NewAuth: func(cfg config.Config, logger *slog.Logger) (Authenticator, error) {
			return runtime.NewAuthenticator(cfg, logger)
		},
		Connect: func(ctx context.Context, cfg config.Config, a Authenticator, logger *slog.Logger) (gmail.Client, func(), error) {
			limiter, stop := rate.New(cfg.RPS)
			client, err := runtime.NewGmailClient(ctx, a, limiter, logger)
			if err != nil {
				stop()
				return nil, nil, err
			}
			return client, stop, nil
		},
		NewCompiler: func(cfg config.Config, logger *slog.Logger) FilterCompiler {
			return gmailctl.Runner{Binary: cfg.GmailctlBinary, ConfigDir: cfg.GmailctlConfig, Logger: logger}
		},
		Now: time.Now,
	}
}

type globalFlags struct {
	configPath  string
	credentials string
	token       string
	tokenStore  string
	rps         int
	verbose     bool
	noBrowser   bool
}

func (a *App) setup(cmd *cobra.Command, g *globalFlags) error {
	cfg, err := a.LoadConfig(config.Options{Path: g.configPath})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("credentials") {
		cfg.CredentialsPath = config.ExpandHome(g.credentials)
	}
	if flags.Changed("token") {
		cfg.TokenPath = config.ExpandHome(g.token)
	}
	if flags.Changed("token-store") {
		cfg.TokenStore = g.tokenStore
	}
	if flags.Changed("rps") {
		cfg.RPS = g.rps
	}
	if g.verbose {
		cfg.LogLevel = "debug"
	}
	if g.noBrowser {
		cfg.OpenBrowser = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg
	a.logger = a.NewLogger(cfg.Level())
	if a.Now == nil {
		a.Now = time.Now
	}
	return nil
}

func (a *App) authenticator() (Authenticator, error) {
	if a.auth != nil {
		return a.auth, nil
	}
	au, err := a.NewAuth(a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("set up credentials: %w", err)
	}
	a.auth = au
	return au, nil
}

// mailbox authenticates on first use and returns the shared client.
func (a *App) mailbox(ctx context.Context) (gmail.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	au, err := a.authenticator()
	if err != nil {
		return nil, err
	}
	client, release, err := a.Connect(ctx, a.cfg, au, a.logger)
	if err != nil {
		return nil, err
	}
	a.client, a.release = client, release
	return client, nil
}

func (a *App) close() {
	if a.release != nil {
		a.release()
		a.release = nil
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.Out, format, args...)
}

func (a *App) reader() *bufio.Reader {
	if a.input == nil {
		a.input = bufio.NewReader(a.In)
	}
	return a.input
}

// confirm asks a yes/no question on Err and reads the answer from In.
func (a *App) confirm(question string) (bool, error) {
	fmt.Fprintf(a.Err, "%s [y/N]: ", question)
	line, err := a.reader().ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// approve returns true when the destructive action may go ahead.
func (a *App) approve(yes bool, question string) (bool, error) {
	if yes {
		return true, nil
	}
	ok, err := a.confirm(question)
	if err != nil {
		return false, err
	}
	if !ok {
		a.printf("Operation cancelled.\n")
	}
	return ok, nil
}

// readBody returns the message body from stdin, dropping the single
// newline a terminal adds when the input is finished.
func (a *App) readBody() (string, error) {
	fmt.Fprintln(a.Err, "Enter message body, end with Ctrl-D:")
	data, err := io.ReadAll(a.reader())
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "gmail",
		Short:         "Read, send and manage Gmail from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd, g)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "config file (default $GMAIL_CLI_CONFIG or ~/.gmail-cli/config.yaml)")
	pf.StringVar(&g.credentials, "credentials", "", "OAuth application secret file")
	pf.StringVar(&g.token, "token", "", "stored credential file")
	pf.StringVar(&g.tokenStore, "token-store", "", "credential backend: file or keyring")
	pf.IntVar(&g.rps, "rps", 0, "max requests per second, 0 disables limiting")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&g.noBrowser, "no-browser", false, "print the authorization URL instead of opening a browser")

	root.AddCommand(
		newListCommand(app),
		newReadCommand(app),
		newSearchCommand(app),
		newSendCommand(app),
		newMarkCommand(app),
		newDeleteCommand(app),
		newTrashCommand(app),
		newUntrashCommand(app),
		newDownloadCommand(app),
		newAuthCommand(app),
		newRevokeCommand(app),
		newDraftsCommand(app),
		newThreadsCommand(app),
		newLabelsCommand(app),
		newLabelCommand(app),
		newSettingsCommand(app),
		newHistoryCommand(app),
		newProfileCommand(app),
	)
	return root
}

// Execute runs the command line in args and prints a remediation hint for
// setup failures.
func Execute(ctx context.Context, app *App, args []string) error {
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.Err)
	err := root.ExecuteContext(ctx)
	app.close()
	var missing *auth.ArtifactMissingError
	if errors.As(err, &missing) {
		fmt.Fprintln(app.Err, missing.Hint())
	}
	return err
}
