package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/publish"
	"git.home.luguber.info/inful/pubgate/internal/runner"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	GateFlags `embed:""`

	Format string `help:"Output format" enum:"text,json" default:"text"`
	Now    string `help:"Evaluate as of this RFC3339 time instead of now"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	now, err := parseNow(c.Now)
	if err != nil {
		return err
	}
	opts := runnerOptions(root, c.GateFlags)
	opts.Now = now

	rep, err := runner.New(opts).Run(context.Background(), "check")
	if err != nil {
		return err
	}
	if c.Format == "json" {
		return writeJSON(g.Out, rep.Summary())
	}
	return writeDecisions(g.Out, rep)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.InternalError("failed to encode output").WithCause(err).Build()
	}
	return nil
}

func writeDecisions(w io.Writer, rep *runner.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STATUS\tPATH\tTITLE\tBLOCKED BY")
	for i, d := range rep.Decisions {
		status := "published"
		if !d.Publishable {
			status = "skipped"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", status, d.Path, rep.Documents[i].Title, gateList(d.Blocked))
	}
	for _, p := range rep.Problems {
		_, _ = fmt.Fprintf(tw, "problem\t%s\t\t%s\n", p.Path, p.Message())
	}
	if err := flush(tw); err != nil {
		return err
	}

	published := rep.Published()
	_, _ = fmt.Fprintf(w, "\n%d published, %d skipped, %d problems (as of %s)\n",
		published, len(rep.Decisions)-published, len(rep.Problems), rep.EvalTime.Format(time.RFC3339))
	if rep.HasNext {
		_, _ = fmt.Fprintf(w, "Next change: %s\n", rep.NextTransition.Format(time.RFC3339))
	}
	return nil
}

func gateList(gates []publish.GateName) string {
	if len(gates) == 0 {
		return "-"
	}
	names := make([]string, len(gates))
	for i, g := range gates {
		names[i] = string(g)
	}
	return strings.Join(names, ",")
}
