// Package commands implements the pubgate subcommands.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pubgate/internal/config"
	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/ledger"
	"git.home.luguber.info/inful/pubgate/internal/logfields"
	"git.home.luguber.info/inful/pubgate/internal/notify"
	"git.home.luguber.info/inful/pubgate/internal/publish"
	"git.home.luguber.info/inful/pubgate/internal/runner"
)

// Global is shared state passed to every command.
type Global struct {
	Out io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Site    string           `short:"s" help:"Site directory" default:"." type:"path"`
	Config  string           `short:"c" help:"Site configuration file (default: first of hugo.* / config.* in the site directory)" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Check   CheckCmd   `cmd:"" help:"Print the publication decision for every document"`
	Build   BuildCmd   `cmd:"" help:"Evaluate, record and announce changes, and render the publish set"`
	Daemon  DaemonCmd  `cmd:"" help:"Keep the publish set current as content changes and time passes"`
	History HistoryCmd `cmd:"" help:"List builds recorded in the ledger"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if loaded, err := config.LoadEnvFiles(c.Site); err != nil {
		return err
	} else if len(loaded) > 0 {
		slog.Debug("Loaded environment files", "files", loaded)
	}
	return nil
}

// GateFlags mirror Hugo's -D/-F/-E. They can only switch an override on.
type GateFlags struct {
	BuildDrafts  bool `short:"D" name:"build-drafts" help:"Include documents marked as draft"`
	BuildFuture  bool `short:"F" name:"build-future" help:"Include documents with a publish date in the future"`
	BuildExpired bool `short:"E" name:"build-expired" help:"Include expired documents"`
}

// BuildConfig returns the flags as overrides.
func (g GateFlags) BuildConfig() publish.BuildConfig {
	return publish.BuildConfig{
		BuildDrafts:  g.BuildDrafts,
		BuildFuture:  g.BuildFuture,
		BuildExpired: g.BuildExpired,
	}
}

// SinkFlags select where a run's decisions and transitions go.
type SinkFlags struct {
	Ledger     string `help:"SQLite ledger recording every build" env:"PUBGATE_LEDGER" type:"path"`
	NATS       string `name:"nats" help:"NATS server URL for transition events" env:"PUBGATE_NATS_URL"`
	NATSBucket string `name:"nats-bucket" help:"JetStream key-value bucket holding the latest build summary" env:"PUBGATE_NATS_BUCKET" default:"pubgate-state"`
}

func runnerOptions(root *CLI, gates GateFlags) runner.Options {
	return runner.Options{
		SiteDir:    root.Site,
		ConfigFile: root.Config,
		Overrides:  gates.BuildConfig(),
		LookupEnv:  os.LookupEnv,
	}
}

// parseNow parses an RFC3339 evaluation time; empty means the wall clock.
func parseNow(s string) (func() time.Time, error) {
	if s == "" {
		return time.Now, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, errors.ValidationError("--now must be an RFC3339 timestamp").
			WithCause(err).
			WithContext("value", s).
			Build()
	}
	return func() time.Time { return t }, nil
}

func openLedger(path string) (*ledger.Store, error) {
	if path == "" {
		return nil, nil
	}
	store, err := ledger.Open(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("Ledger opened", logfields.Path(path))
	return store, nil
}

func openPublisher(ctx context.Context, sinks SinkFlags) (notify.Publisher, error) {
	if sinks.NATS == "" {
		return notify.NoopPublisher{}, nil
	}
	return notify.NewNATSPublisher(ctx, notify.NATSConfig{URL: sinks.NATS, Bucket: sinks.NATSBucket})
}

// attach wires the optional ledger and publisher into r and returns a
// function releasing them.
func attach(ctx context.Context, r *runner.Runner, sinks SinkFlags) (func(), error) {
	store, err := openLedger(sinks.Ledger)
	if err != nil {
		return nil, err
	}
	pub, err := openPublisher(ctx, sinks)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	if store != nil {
		r.WithLedger(store)
	}
	r.WithPublisher(pub)

	return func() {
		if err := pub.Close(); err != nil {
			slog.Warn("Failed to close publisher", logfields.Error(err))
		}
		if store != nil {
			if err := store.Close(); err != nil {
				slog.Warn("Failed to close ledger", logfields.Error(err))
			}
		}
	}, nil
}

func logWarnings(rep *runner.Report) {
	for _, w := range rep.Warnings {
		slog.Warn("Run completed with warning",
			slog.String("stage", w.Stage),
			slog.String("message", w.Message),
			slog.Bool("retryable", w.Retryable))
	}
}
