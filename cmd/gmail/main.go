package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joshsymonds/gmail-cli/internal/cli"
	"github.com/joshsymonds/gmail-cli/internal/gmail"
	"github.com/joshsymonds/gmail-cli/internal/runtime"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		runtime.DefaultLogger(slog.LevelInfo).Error("gmail failed", "kind", gmail.Kind(err), "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return cli.Execute(ctx, cli.NewApp(), args)
}
