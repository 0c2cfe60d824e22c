package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/pubgate/internal/ledger"
	"git.home.luguber.info/inful/pubgate/internal/runner"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	GateFlags `embed:""`
	SinkFlags `embed:""`

	Output   string `short:"o" help:"Output directory (default: the site's publishDir)" type:"path"`
	NoRender bool   `name:"no-render" help:"Evaluate and record without writing HTML"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := runnerOptions(root, b.GateFlags)
	opts.OutputDir = b.Output
	opts.Render = !b.NoRender

	r := runner.New(opts)
	release, err := attach(ctx, r, b.SinkFlags)
	if err != nil {
		return err
	}
	defer release()

	rep, err := r.Run(ctx, "build")
	if rep != nil {
		logWarnings(rep)
	}
	if err != nil {
		return err
	}

	published := rep.Published()
	changes := ledger.Count(rep.Transitions)
	_, _ = fmt.Fprintf(g.Out, "Build %s: %d published, %d skipped, %d problems\n",
		rep.BuildID, published, len(rep.Decisions)-published, len(rep.Problems))
	_, _ = fmt.Fprintf(g.Out, "Changes: %d newly published, %d withdrawn, %d changed\n",
		changes[ledger.TransitionPublished], changes[ledger.TransitionWithdrawn], changes[ledger.TransitionChanged])
	if rep.Rendered != nil {
		out := rep.Site.PublishDir
		if b.Output != "" {
			out = b.Output
		}
		_, _ = fmt.Fprintf(g.Out, "Rendered %d pages to %s\n", rep.Rendered.Pages, out)
	}
	return nil
}
