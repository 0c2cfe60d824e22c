// Package daemon keeps a site's publish set current without anyone running
// builds by hand. It re-runs on content or configuration changes, on a
// fixed schedule, and exactly when the next scheduled publication or expiry
// falls due.
package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/pubgate/internal/config"
	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/logfields"
	"git.home.luguber.info/inful/pubgate/internal/runner"
)

// Trigger reasons passed to the runner.
const (
	TriggerStartup    = "startup"
	TriggerSchedule   = "schedule"
	TriggerTransition = "transition"
	TriggerContent    = "content"
	TriggerConfig     = "config"
)

// Runner performs one evaluation run.
type Runner interface {
	Run(ctx context.Context, trigger string) (*runner.Report, error)
}

// Config configures a Daemon.
type Config struct {
	// SiteDir and ConfigFile are watched before the first run, so a site that
	// fails to load is still picked up once it is fixed.
	SiteDir     string
	ConfigFile  string
	Interval    time.Duration // periodic re-run; zero disables
	Cron        string        // cron expression re-run; empty disables
	Debounce    time.Duration
	Watch       bool
	MetricsAddr string // empty disables the HTTP server
	Gatherer    prom.Gatherer
}

// Daemon serializes runs triggered by the watcher, the scheduler and the
// next-transition timer.
type Daemon struct {
	cfg       Config
	runner    Runner
	scheduler *Scheduler
	watcher   *Watcher
	server    *http.Server

	triggers chan string

	mu           sync.RWMutex
	last         *runner.Report
	lastErr      error
	lastRunAt    time.Time
	runs         int
	periodicIDs  []string
	transitionID string
	transitionAt time.Time
}

// New creates a daemon around r.
func New(cfg Config, r Runner) (*Daemon, error) {
	if r == nil {
		return nil, errors.ValidationError("runner is required").Build()
	}
	s, err := NewScheduler()
	if err != nil {
		return nil, errors.DaemonError("failed to create scheduler").WithCause(err).Build()
	}
	d := &Daemon{
		cfg:       cfg,
		runner:    r,
		scheduler: s,
		triggers:  make(chan string, 1),
	}
	if cfg.Watch {
		if d.watcher, err = NewWatcher(cfg.Debounce, d.Trigger); err != nil {
			_ = s.Stop(context.Background())
			return nil, err
		}
	}
	return d, nil
}

// Trigger requests a run. Requests arriving while one is pending collapse
// into it.
func (d *Daemon) Trigger(reason string) {
	select {
	case d.triggers <- reason:
	default:
		slog.Debug("Run already pending", logfields.Trigger(reason))
	}
}

// Run starts the daemon and blocks until ctx is canceled. The first run
// happens immediately.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.start(ctx); err != nil {
		if stopErr := d.shutdown(); stopErr != nil {
			slog.Warn("Cleanup after failed start", logfields.Error(stopErr))
		}
		return err
	}

	slog.Info("Daemon started",
		slog.Duration("interval", d.cfg.Interval),
		slog.String("cron", d.cfg.Cron),
		slog.Bool("watch", d.cfg.Watch),
		slog.String("metrics_addr", d.cfg.MetricsAddr))

	d.Trigger(TriggerStartup)
	for {
		select {
		case <-ctx.Done():
			return d.shutdown()
		case reason := <-d.triggers:
			d.runOnce(ctx, reason)
		}
	}
}

func (d *Daemon) start(ctx context.Context) error {
	var ids []string
	if d.cfg.Interval > 0 {
		id, err := d.scheduler.ScheduleEvery("periodic-run", d.cfg.Interval, func() { d.Trigger(TriggerSchedule) })
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if d.cfg.Cron != "" {
		id, err := d.scheduler.ScheduleCron("cron-run", d.cfg.Cron, func() { d.Trigger(TriggerSchedule) })
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	d.mu.Lock()
	d.periodicIDs = ids
	d.mu.Unlock()
	d.scheduler.Start(ctx)

	if d.watcher != nil {
		dir := d.cfg.SiteDir
		if dir == "" {
			dir = "."
		}
		loader := config.Loader{Dir: dir, File: d.cfg.ConfigFile}
		d.watch(filepath.Join(dir, config.DefaultContentDir), configTarget(dir, loader.ConfigPath()))
		d.watcher.Start(ctx)
	}
	return d.startHTTP()
}

// configTarget is the config file to watch; without one, the first name the
// site lookup tries, so creating any site config is noticed.
func configTarget(dir, file string) string {
	if file != "" {
		return file
	}
	return filepath.Join(dir, config.SiteConfigNames[0])
}

func (d *Daemon) watch(contentDir, configFile string) {
	if err := d.watcher.Watch(contentDir, configFile); err != nil {
		slog.Warn("Failed to update watches", logfields.Error(err))
	}
}

func (d *Daemon) runOnce(ctx context.Context, reason string) {
	rep, err := d.runner.Run(ctx, reason)

	d.mu.Lock()
	d.lastRunAt = time.Now()
	d.runs++
	d.lastErr = err
	if rep != nil {
		d.last = rep
	}
	d.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		slog.Error("Scheduled run failed", logfields.Trigger(reason), logfields.Error(err))
	}
	// A failed render still carries the decisions and the next transition.
	if rep == nil {
		return
	}

	if d.watcher != nil && rep.Site != nil {
		d.watch(rep.Site.ContentDir, configTarget(rep.Site.Dir, rep.Site.File))
	}
	d.scheduleTransition(rep)
}

// scheduleTransition keeps exactly one one-time job pending for the report's
// next transition.
func (d *Daemon) scheduleTransition(rep *runner.Report) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !rep.HasNext {
		d.scheduler.Remove(d.transitionID)
		d.transitionID, d.transitionAt = "", time.Time{}
		return
	}
	if d.transitionID != "" && d.transitionAt.Equal(rep.NextTransition) {
		return
	}
	d.scheduler.Remove(d.transitionID)
	d.transitionID, d.transitionAt = "", time.Time{}

	id, err := d.scheduler.ScheduleAt("next-transition", rep.NextTransition, func() { d.Trigger(TriggerTransition) })
	if err != nil {
		// The instant passed while the run was in flight.
		slog.Debug("Next transition already due", logfields.Error(err))
		d.Trigger(TriggerTransition)
		return
	}
	d.transitionID, d.transitionAt = id, rep.NextTransition
	slog.Info("Next publication change scheduled",
		slog.Time("at", rep.NextTransition),
		logfields.JobID(id))
}

func (d *Daemon) shutdown() error {
	slog.Info("Stopping daemon")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var firstErr error
	if d.server != nil {
		if err := d.server.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := d.scheduler.Stop(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Status is a snapshot of the daemon's state.
type Status struct {
	Runs           int             `json:"runs"`
	LastRunAt      *time.Time      `json:"last_run_at,omitempty"`
	LastError      string          `json:"last_error,omitempty"`
	NextTransition *time.Time      `json:"next_transition,omitempty"`
	NextScheduled  *time.Time      `json:"next_scheduled_run,omitempty"`
	Last           *runner.Summary `json:"last,omitempty"`
}

// Status returns the daemon's current state.
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Status{Runs: d.runs}
	if !d.lastRunAt.IsZero() {
		at := d.lastRunAt
		s.LastRunAt = &at
	}
	if d.lastErr != nil {
		s.LastError = d.lastErr.Error()
	}
	if !d.transitionAt.IsZero() {
		at := d.transitionAt
		s.NextTransition = &at
	}
	for _, id := range d.periodicIDs {
		if next, ok := d.scheduler.NextRun(id); ok && (s.NextScheduled == nil || next.Before(*s.NextScheduled)) {
			s.NextScheduled = &next
		}
	}
	if d.last != nil {
		sum := d.last.Summary()
		s.Last = &sum
	}
	return s
}
