// Package runner performs one complete evaluation run: load the site, scan
// its content, decide what is published, record and announce what changed,
// and render the result.
package runner

import (
	"context"
	stderrors "errors"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/pubgate/internal/catalog"
	"git.home.luguber.info/inful/pubgate/internal/config"
	"git.home.luguber.info/inful/pubgate/internal/content"
	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/git"
	"git.home.luguber.info/inful/pubgate/internal/ledger"
	"git.home.luguber.info/inful/pubgate/internal/logfields"
	"git.home.luguber.info/inful/pubgate/internal/metrics"
	"git.home.luguber.info/inful/pubgate/internal/notify"
	"git.home.luguber.info/inful/pubgate/internal/publish"
	"git.home.luguber.info/inful/pubgate/internal/render"
	"git.home.luguber.info/inful/pubgate/internal/scan"
)

// Options configures a Runner.
type Options struct {
	SiteDir    string
	ConfigFile string
	// Overrides can only switch gates' overrides on; they are merged with the
	// site configuration.
	Overrides publish.BuildConfig
	// OutputDir replaces the site's publishDir when set.
	OutputDir string
	Render    bool
	Workers   int
	// Now is the clock; nil means time.Now.
	Now func() time.Time
	// LookupEnv resolves PUBGATE_* overrides; nil ignores the environment.
	LookupEnv func(string) (string, bool)
}

// Ledger is the subset of the ledger store a run needs.
type Ledger interface {
	LatestBuild(ctx context.Context) (ledger.Build, error)
	Entries(ctx context.Context, buildID string) ([]ledger.Entry, error)
	RecordBuild(ctx context.Context, b ledger.Build, entries []ledger.Entry) (ledger.Build, error)
}

// Runner executes runs one at a time.
type Runner struct {
	opts      Options
	filter    *publish.Filter
	ledger    Ledger
	publisher notify.Publisher
	recorder  metrics.Recorder

	mu   sync.Mutex
	last []ledger.Entry // previous run's entries when no ledger is attached
	ran  bool
}

// New creates a runner with the default gates and no side effects attached.
func New(opts Options) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.SiteDir == "" {
		opts.SiteDir = "."
	}
	return &Runner{
		opts:      opts,
		filter:    publish.NewFilter(),
		publisher: notify.NoopPublisher{},
		recorder:  metrics.NoopRecorder{},
	}
}

// WithFilter replaces the gate set.
func (r *Runner) WithFilter(f *publish.Filter) *Runner {
	r.filter = f
	return r
}

// WithLedger records every run and diffs against the latest recorded build.
func (r *Runner) WithLedger(l Ledger) *Runner {
	r.ledger = l
	return r
}

// WithPublisher announces transitions.
func (r *Runner) WithPublisher(p notify.Publisher) *Runner {
	r.publisher = p
	return r
}

// WithRecorder reports run metrics.
func (r *Runner) WithRecorder(rec metrics.Recorder) *Runner {
	r.recorder = rec
	return r
}

// Run performs one evaluation. Configuration and scan failures abort the run
// and are returned. Problem documents, ledger and notification failures are
// reported on the Report instead. A render failure returns both the report and
// the error.
func (r *Runner) Run(ctx context.Context, trigger string) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := time.Now()
	rep, err := r.run(ctx, trigger)
	elapsed := time.Since(started)

	r.recorder.ObserveRunDuration(elapsed)
	outcome := outcomeOf(rep, err)
	r.recorder.IncRunOutcome(outcome)

	if rep != nil {
		rep.Duration = elapsed
	}
	if err != nil {
		slog.Error("Run failed", logfields.Trigger(trigger), logfields.Duration(elapsed), logfields.Error(err))
		return rep, err
	}

	slog.Info("Run complete",
		logfields.BuildID(rep.BuildID),
		logfields.Trigger(trigger),
		slog.Int("published", rep.Published()),
		slog.Int("skipped", len(rep.Decisions)-rep.Published()),
		slog.Int("problems", len(rep.Problems)),
		slog.Int("transitions", len(rep.Transitions)),
		logfields.Duration(elapsed),
		slog.String("outcome", string(outcome)))
	return rep, nil
}

func outcomeOf(rep *Report, err error) metrics.RunOutcome {
	switch {
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	case err != nil:
		return metrics.OutcomeFailed
	case rep != nil && (len(rep.Problems) > 0 || len(rep.Warnings) > 0):
		return metrics.OutcomeWarning
	default:
		return metrics.OutcomeSuccess
	}
}

func (r *Runner) run(ctx context.Context, trigger string) (*Report, error) {
	site, err := config.Loader{Dir: r.opts.SiteDir, File: r.opts.ConfigFile, LookupEnv: r.opts.LookupEnv}.Load()
	if err != nil {
		return nil, err
	}
	cfg := site.Build.Merge(r.opts.Overrides)
	now := r.opts.Now()

	rep := &Report{
		BuildID:   uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now(),
		EvalTime:  now,
		Site:      site,
		Config:    cfg,
	}

	stage := time.Now()
	scanned, err := scan.Dir(ctx, site.ContentDir, scan.Options{Parse: content.ParseOptions{Location: site.Location}})
	if err != nil {
		return nil, err
	}
	r.recorder.ObserveStageDuration(metrics.StageScan, time.Since(stage))
	rep.Documents = scanned.Documents
	rep.Problems = scanned.Problems

	stage = time.Now()
	rep.Decisions, err = r.filter.EvaluateAll(ctx, scanned.Documents, cfg, now, r.opts.Workers)
	if err != nil {
		return nil, err
	}
	r.recorder.ObserveStageDuration(metrics.StageEvaluate, time.Since(stage))
	rep.NextTransition, rep.HasNext = publish.NextTransition(scanned.Documents, cfg, now)

	published := make([]*content.Document, 0, len(rep.Decisions))
	for i, d := range rep.Decisions {
		r.recorder.IncDecision(d.Publishable)
		for _, g := range d.Blocked {
			r.recorder.IncBlocked(string(g))
		}
		if d.Publishable {
			published = append(published, scanned.Documents[i])
		}
		slog.Debug("Decision", logfields.Document(d.Path), logfields.Decision(d.Publishable), slog.Any("blocked", d.Blocked))
	}
	r.recorder.SetPublished(len(published))
	if rep.HasNext {
		r.recorder.SetNextTransition(rep.NextTransition)
	} else {
		r.recorder.SetNextTransition(time.Time{})
	}
	rep.Catalog = catalog.New(published)

	rep.Revision = r.revision(site)

	r.record(ctx, rep)
	for _, t := range rep.Transitions {
		r.recorder.IncTransition(string(t.Kind))
	}
	r.announce(ctx, rep)

	if r.opts.Render {
		stage = time.Now()
		out := site.PublishDir
		if r.opts.OutputDir != "" {
			out = r.opts.OutputDir
		}
		renderer, err := render.New(render.Options{
			OutputDir: out,
			Title:     site.Title,
			BaseURL:   site.BaseURL,
			LayoutDir: filepath.Join(site.Dir, "layouts"),
			StaticDir: filepath.Join(site.Dir, "static"),
		})
		if err != nil {
			return rep, err
		}
		if rep.Rendered, err = renderer.Render(ctx, rep.Catalog); err != nil {
			return rep, err
		}
		r.recorder.ObserveStageDuration(metrics.StageRender, time.Since(stage))
	}
	return rep, nil
}

func (r *Runner) revision(site *config.Site) git.Revision {
	rev, err := git.HeadRevisionOf(site.Dir, site.ContentDir)
	switch {
	case err == nil:
		slog.Debug("Resolved site revision", logfields.Revision(rev.Short()))
	case stderrors.Is(err, git.ErrNotRepository), stderrors.Is(err, git.ErrNoCommits):
		slog.Debug("Site is not versioned", logfields.Path(site.Dir))
	default:
		slog.Warn("Failed to resolve site revision", logfields.Path(site.Dir), logfields.Error(err))
	}
	return rev
}

// record diffs against the previous run and stores this one.
func (r *Runner) record(ctx context.Context, rep *Report) {
	entries := Entries(rep.Documents, rep.Decisions)

	if r.ledger == nil {
		if r.ran {
			rep.Transitions = ledger.Diff(r.last, entries)
		} else {
			rep.Transitions = ledger.Diff(nil, entries)
		}
		r.last, r.ran = entries, true
		return
	}

	stage := time.Now()
	defer func() { r.recorder.ObserveStageDuration(metrics.StageLedger, time.Since(stage)) }()

	var prev []ledger.Entry
	latest, err := r.ledger.LatestBuild(ctx)
	switch {
	case err == nil:
		if prev, err = r.ledger.Entries(ctx, latest.ID); err != nil {
			rep.warn("ledger", err)
			return
		}
	case stderrors.Is(err, ledger.ErrNoBuilds):
	default:
		rep.warn("ledger", err)
		return
	}
	rep.Transitions = ledger.Diff(prev, entries)

	_, err = r.ledger.RecordBuild(ctx, ledger.Build{
		ID:        rep.BuildID,
		StartedAt: rep.StartedAt,
		EvalTime:  rep.EvalTime,
		Trigger:   rep.Trigger,
		Revision:  rep.Revision.Hash,
		Config:    rep.Config,
		Problems:  len(rep.Problems),
	}, entries)
	if err != nil {
		rep.warn("ledger", err)
	}
}

func (r *Runner) announce(ctx context.Context, rep *Report) {
	if len(rep.Transitions) == 0 {
		return
	}
	stage := time.Now()
	events := notify.EventsFrom(rep.BuildID, rep.Revision.Hash, rep.EvalTime, rep.Transitions)
	if err := r.publisher.Publish(ctx, events); err != nil {
		rep.warn("notify", err)
	}
	r.recorder.ObserveStageDuration(metrics.StageNotify, time.Since(stage))
	for _, t := range rep.Transitions {
		slog.Info("Publication changed", logfields.Transition(string(t.Kind)), logfields.Document(t.Path), logfields.BuildID(rep.BuildID))
	}
}

// Entries pairs decisions with their documents for the ledger. The slices
// must be index-aligned, as EvaluateAll returns them.
func Entries(docs []*content.Document, decisions []publish.Decision) []ledger.Entry {
	entries := make([]ledger.Entry, len(decisions))
	for i, d := range decisions {
		entries[i] = ledger.Entry{
			Path:        d.Path,
			Title:       docs[i].Title,
			Publishable: d.Publishable,
			Blocked:     d.Blocked,
			Fingerprint: docs[i].Fingerprint,
		}
	}
	return entries
}

// warn records a failed side effect on the report.
func (rep *Report) warn(stage string, err error) {
	slog.Warn("Run stage failed", slog.String("stage", stage), logfields.Error(err))
	rep.Warnings = append(rep.Warnings, Warning{Stage: stage, Message: err.Error(), Retryable: canRetry(err)})
}

func canRetry(err error) bool {
	if ce, ok := errors.AsClassified(err); ok {
		return ce.CanRetry()
	}
	return false
}
