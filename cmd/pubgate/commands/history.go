package commands

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/ledger"
	"git.home.luguber.info/inful/pubgate/internal/logfields"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Ledger string `help:"SQLite ledger to read" env:"PUBGATE_LEDGER" type:"path" required:""`
	Limit  int    `short:"n" help:"Number of builds to list" default:"20"`
	Format string `help:"Output format" enum:"text,json" default:"text"`
	Prune  int    `help:"Delete all but the newest N builds first (0 keeps all)" default:"0"`
	Build  string `arg:"" optional:"" help:"Show the decisions recorded for this build ID"`
}

func (h *HistoryCmd) Run(g *Global, _ *CLI) error {
	store, err := ledger.Open(h.Ledger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if h.Prune > 0 {
		removed, err := store.Prune(ctx, h.Prune)
		if err != nil {
			return err
		}
		slog.Info("Pruned ledger", logfields.Count(removed), slog.Int("kept", h.Prune))
	}
	if h.Build != "" {
		return h.showBuild(ctx, g, store)
	}

	builds, err := store.ListBuilds(ctx, h.Limit)
	if err != nil {
		return err
	}
	if h.Format == "json" {
		return writeJSON(g.Out, builds)
	}
	if len(builds) == 0 {
		_, _ = fmt.Fprintln(g.Out, "No builds recorded")
		return nil
	}

	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTARTED\tTRIGGER\tREVISION\tPUBLISHED\tSKIPPED\tPROBLEMS")
	for _, b := range builds {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			b.ID, b.StartedAt.Format(time.RFC3339), dash(b.Trigger), dash(shortRev(b.Revision)),
			b.Published, b.Skipped, b.Problems)
	}
	return flush(tw)
}

func (h *HistoryCmd) showBuild(ctx context.Context, g *Global, store *ledger.Store) error {
	b, err := store.GetBuild(ctx, h.Build)
	if err != nil {
		return err
	}
	entries, err := store.Entries(ctx, b.ID)
	if err != nil {
		return err
	}
	if h.Format == "json" {
		return writeJSON(g.Out, struct {
			ledger.Build
			Entries []ledger.Entry `json:"entries"`
		}{b, entries})
	}

	_, _ = fmt.Fprintf(g.Out, "Build %s (%s, evaluated at %s)\n\n",
		b.ID, dash(b.Trigger), b.EvalTime.Format(time.RFC3339))
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STATUS\tPATH\tTITLE\tBLOCKED BY")
	for _, e := range entries {
		status := "published"
		if !e.Publishable {
			status = "skipped"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", status, e.Path, e.Title, gateList(e.Blocked))
	}
	return flush(tw)
}

func flush(tw *tabwriter.Writer) error {
	if err := tw.Flush(); err != nil {
		return errors.FileSystemError("failed to write output").WithCause(err).Build()
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortRev(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
