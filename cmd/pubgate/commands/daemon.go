package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/pubgate/internal/daemon"
	"git.home.luguber.info/inful/pubgate/internal/metrics"
	"git.home.luguber.info/inful/pubgate/internal/runner"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	GateFlags `embed:""`
	SinkFlags `embed:""`

	Output      string        `short:"o" help:"Output directory (default: the site's publishDir)" type:"path"`
	NoRender    bool          `name:"no-render" help:"Evaluate and record without writing HTML"`
	Interval    time.Duration `help:"Re-run at this interval (0 disables)" default:"0s"`
	Cron        string        `help:"Re-run on this cron schedule"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve /metrics, /healthz and /status on this address" env:"PUBGATE_METRICS_ADDR"`
	NoWatch     bool          `name:"no-watch" help:"Do not watch content and configuration for changes"`
	Debounce    time.Duration `help:"Quiet period after a change before re-running" default:"2s"`
}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := runnerOptions(root, d.GateFlags)
	opts.OutputDir = d.Output
	opts.Render = !d.NoRender

	r := runner.New(opts).WithRecorder(metrics.NewPrometheusRecorder(reg))
	release, err := attach(ctx, r, d.SinkFlags)
	if err != nil {
		return err
	}
	defer release()

	dmn, err := daemon.New(daemon.Config{
		SiteDir:     root.Site,
		ConfigFile:  root.Config,
		Interval:    d.Interval,
		Cron:        d.Cron,
		Debounce:    d.Debounce,
		Watch:       !d.NoWatch,
		MetricsAddr: d.MetricsAddr,
		Gatherer:    reg,
	}, r)
	if err != nil {
		return err
	}

	if err := dmn.Run(ctx); err != nil {
		return err
	}
	slog.Info("Daemon stopped")
	return nil
}
