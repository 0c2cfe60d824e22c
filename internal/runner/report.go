package runner

import (
	"time"

	"git.home.luguber.info/inful/pubgate/internal/catalog"
	"git.home.luguber.info/inful/pubgate/internal/config"
	"git.home.luguber.info/inful/pubgate/internal/content"
	"git.home.luguber.info/inful/pubgate/internal/git"
	"git.home.luguber.info/inful/pubgate/internal/ledger"
	"git.home.luguber.info/inful/pubgate/internal/publish"
	"git.home.luguber.info/inful/pubgate/internal/render"
	"git.home.luguber.info/inful/pubgate/internal/scan"
)

// Warning is a failed side effect that did not abort the run.
type Warning struct {
	Stage     string `json:"stage"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Report is everything a run decided and did.
type Report struct {
	BuildID   string
	Trigger   string
	StartedAt time.Time
	EvalTime  time.Time
	Duration  time.Duration

	Site   *config.Site
	Config publish.BuildConfig

	Documents   []*content.Document
	Decisions   []publish.Decision // index-aligned with Documents
	Problems    []scan.Problem
	Catalog     *catalog.Catalog
	Transitions []ledger.Transition

	NextTransition time.Time
	HasNext        bool

	Revision git.Revision
	Rendered *render.Result
	Warnings []Warning
}

// Published is the number of documents in the publish set.
func (rep *Report) Published() int {
	n := 0
	for _, d := range rep.Decisions {
		if d.Publishable {
			n++
		}
	}
	return n
}

// Summary is the serializable form of a report.
type Summary struct {
	BuildID        string              `json:"build_id"`
	Trigger        string              `json:"trigger,omitempty"`
	EvalTime       time.Time           `json:"eval_time"`
	Config         publish.BuildConfig `json:"config"`
	Revision       string              `json:"revision,omitempty"`
	Decisions      []publish.Decision  `json:"decisions"`
	Problems       []ProblemSummary    `json:"problems,omitempty"`
	Transitions    []ledger.Transition `json:"transitions,omitempty"`
	NextTransition *time.Time          `json:"next_transition,omitempty"`
	Published      int                 `json:"published"`
	Skipped        int                 `json:"skipped"`
	Warnings       []Warning           `json:"warnings,omitempty"`
}

// ProblemSummary is a problem document with its error text.
type ProblemSummary struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Summary flattens the report for JSON output.
func (rep *Report) Summary() Summary {
	s := Summary{
		BuildID:     rep.BuildID,
		Trigger:     rep.Trigger,
		EvalTime:    rep.EvalTime,
		Config:      rep.Config,
		Revision:    rep.Revision.Hash,
		Decisions:   rep.Decisions,
		Transitions: rep.Transitions,
		Published:   rep.Published(),
		Skipped:     len(rep.Decisions) - rep.Published(),
		Warnings:    rep.Warnings,
	}
	if s.Decisions == nil {
		s.Decisions = []publish.Decision{}
	}
	for _, p := range rep.Problems {
		s.Problems = append(s.Problems, ProblemSummary{Path: p.Path, Error: p.Message()})
	}
	if rep.HasNext {
		next := rep.NextTransition
		s.NextTransition = &next
	}
	return s
}
