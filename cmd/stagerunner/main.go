package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/stagerunner/cmd/stagerunner/commands"
	"git.home.luguber.info/inful/stagerunner/internal/foundation/errors"
	"git.home.luguber.info/inful/stagerunner/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("stagerunner"),
		kong.Description("Run one CI stage of the manager repository: fetch sibling repositories, install, test or lint."),
		kong.Vars{"version": version.String()},
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.UsageOnError(),
	)

	err := parser.Run()
	stop()

	adapter := errors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
	os.Exit(adapter.Report(err))
}
