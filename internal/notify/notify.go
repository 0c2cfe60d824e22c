// Package notify announces publication transitions to other systems.
package notify

import (
	"context"
	"sync"
	"time"

	"git.home.luguber.info/inful/pubgate/internal/ledger"
)

// SubjectPrefix is the root of every subject events are published on.
const SubjectPrefix = "pubgate.documents"

// Event describes one document's transition in a build.
type Event struct {
	Kind        ledger.TransitionKind `json:"kind"`
	Path        string                `json:"path"`
	Title       string                `json:"title,omitempty"`
	Fingerprint string                `json:"fingerprint,omitempty"`
	BuildID     string                `json:"build_id"`
	Revision    string                `json:"revision,omitempty"`
	Timestamp   time.Time             `json:"timestamp"`
}

// Subject is the subject the event is published on.
func (e Event) Subject() string { return SubjectPrefix + "." + string(e.Kind) }

// EventsFrom turns a build's transitions into events.
func EventsFrom(buildID, revision string, at time.Time, ts []ledger.Transition) []Event {
	events := make([]Event, 0, len(ts))
	for _, t := range ts {
		events = append(events, Event{
			Kind:        t.Kind,
			Path:        t.Path,
			Title:       t.Title,
			Fingerprint: t.Fingerprint,
			BuildID:     buildID,
			Revision:    revision,
			Timestamp:   at,
		})
	}
	return events
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, events []Event) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, []Event) error { return nil }
func (NoopPublisher) Close() error                           { return nil }

// MemoryPublisher keeps events in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (m *MemoryPublisher) Publish(_ context.Context, events []Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MemoryPublisher) Close() error { return nil }

// Events returns a copy of everything published so far.
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
