package ledger

import "sort"

// TransitionKind classifies how a document's publication changed between two
// builds.
type TransitionKind string

const (
	// TransitionPublished: the document entered the publish set.
	TransitionPublished TransitionKind = "published"
	// TransitionWithdrawn: the document left the publish set, including when
	// its file was removed.
	TransitionWithdrawn TransitionKind = "withdrawn"
	// TransitionChanged: the document stayed published but its content changed.
	TransitionChanged TransitionKind = "changed"
)

// Transition is a single document's change between two builds.
type Transition struct {
	Path        string         `json:"path"`
	Kind        TransitionKind `json:"kind"`
	Title       string         `json:"title,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Previous    string         `json:"previous_fingerprint,omitempty"`
}

// Diff compares the entries of two builds and returns transitions sorted by
// path. A nil prev means there was no earlier build: every publishable entry
// is then a publication.
func Diff(prev, cur []Entry) []Transition {
	before := make(map[string]Entry, len(prev))
	for _, e := range prev {
		before[e.Path] = e
	}

	var out []Transition
	seen := make(map[string]bool, len(cur))
	for _, e := range cur {
		seen[e.Path] = true
		old, existed := before[e.Path]
		wasPublished := existed && old.Publishable

		switch {
		case e.Publishable && !wasPublished:
			out = append(out, Transition{Path: e.Path, Kind: TransitionPublished, Title: e.Title, Fingerprint: e.Fingerprint})
		case !e.Publishable && wasPublished:
			out = append(out, Transition{Path: e.Path, Kind: TransitionWithdrawn, Title: e.Title, Previous: old.Fingerprint})
		case e.Publishable && wasPublished && e.Fingerprint != old.Fingerprint:
			out = append(out, Transition{
				Path: e.Path, Kind: TransitionChanged, Title: e.Title,
				Fingerprint: e.Fingerprint, Previous: old.Fingerprint,
			})
		}
	}
	for _, old := range prev {
		if !seen[old.Path] && old.Publishable {
			out = append(out, Transition{Path: old.Path, Kind: TransitionWithdrawn, Title: old.Title, Previous: old.Fingerprint})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Count tallies transitions by kind.
func Count(ts []Transition) map[TransitionKind]int {
	counts := map[TransitionKind]int{}
	for _, t := range ts {
		counts[t.Kind]++
	}
	return counts
}
