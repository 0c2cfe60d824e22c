package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pubgate/cmd/pubgate/commands"
	"git.home.luguber.info/inful/pubgate/internal/config"
	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/version"
)

func main() {
	// .env must be loaded before kong resolves env-bound flags.
	if _, err := config.LoadEnvFiles("."); err != nil {
		slog.Warn("Failed to load .env", "error", err)
	}

	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("pubgate"),
		kong.Description("Decide which documents of a Hugo-style site are published, and act on it."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Out: os.Stdout}, cli)
	if err != nil {
		adapter := errors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		os.Exit(adapter.Handle(err))
	}
}
