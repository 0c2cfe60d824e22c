package publish

import (
	"context"
	"runtime"
	"sync"
	"time"

	"git.home.luguber.info/inful/pubgate/internal/content"
)

// Decision is the outcome for one document.
type Decision struct {
	Path        string     `json:"path"`
	Publishable bool       `json:"publishable"`
	Blocked     []GateName `json:"blocked,omitempty"`
}

// Filter evaluates documents against an ordered list of gates.
type Filter struct {
	gates []Gate
}

// NewFilter creates a filter. Without arguments it uses DefaultGates.
func NewFilter(gates ...Gate) *Filter {
	if len(gates) == 0 {
		gates = DefaultGates()
	}
	return &Filter{gates: append([]Gate(nil), gates...)}
}

// Gates returns a copy of the filter's gates.
func (f *Filter) Gates() []Gate {
	return append([]Gate(nil), f.gates...)
}

// Evaluate runs every gate, so the decision names all reasons for exclusion.
func (f *Filter) Evaluate(doc *content.Document, cfg BuildConfig, now time.Time) Decision {
	d := Decision{Path: doc.Path, Publishable: true}
	for _, g := range f.gates {
		if !g.Allows(doc, cfg, now) {
			d.Publishable = false
			d.Blocked = append(d.Blocked, g.Name)
		}
	}
	return d
}

// EvaluateAll evaluates docs on up to workers goroutines (GOMAXPROCS when
// workers <= 0). Decisions are returned in input order.
func (f *Filter) EvaluateAll(ctx context.Context, docs []*content.Document, cfg BuildConfig, now time.Time, workers int) ([]Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(docs))

	out := make([]Decision, len(docs))
	if workers <= 1 {
		for i, doc := range docs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i] = f.Evaluate(doc, cfg, now)
		}
		return out, nil
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				out[i] = f.Evaluate(docs[i], cfg, now)
			}
		}()
	}

	var err error
feed:
	for i := range docs {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case idx <- i:
		}
	}
	close(idx)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	return out, nil
}
