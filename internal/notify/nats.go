package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/logfields"
)

// Defaults for NATSConfig.
const (
	DefaultStream  = "PUBGATE"
	DefaultBucket  = "pubgate-state"
	DefaultTimeout = 5 * time.Second
	// LatestKey holds the newest build summary in the state bucket.
	LatestKey = "latest"
)

// NATSConfig configures a NATSPublisher.
type NATSConfig struct {
	URL     string
	Stream  string
	Bucket  string // defaults to DefaultBucket
	NoState bool   // skip the state bucket entirely
	Timeout time.Duration
}

func (c NATSConfig) withDefaults() NATSConfig {
	if c.Stream == "" {
		c.Stream = DefaultStream
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	switch {
	case c.NoState:
		c.Bucket = ""
	case c.Bucket == "":
		c.Bucket = DefaultBucket
	}
	return c
}

// Summary is stored under LatestKey after each publish.
type Summary struct {
	BuildID   string         `json:"build_id"`
	Revision  string         `json:"revision,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Counts    map[string]int `json:"counts"`
}

type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

type keyValue interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// NATSPublisher publishes events to a JetStream stream and keeps the last
// build's summary in a key-value bucket.
type NATSPublisher struct {
	conn    *nats.Conn
	js      streamPublisher
	kv      keyValue
	timeout time.Duration
}

// NewNATSPublisher connects to NATS and makes sure the stream (and bucket)
// exist.
func NewNATSPublisher(ctx context.Context, cfg NATSConfig) (*NATSPublisher, error) {
	cfg = cfg.withDefaults()

	conn, err := nats.Connect(cfg.URL, nats.Name("pubgate"), nats.Timeout(cfg.Timeout))
	if err != nil {
		return nil, errors.NotifyError("failed to connect to NATS").
			WithCategory(errors.CategoryNetwork).
			WithCause(err).
			WithContext("url", cfg.URL).
			Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.NotifyError("failed to create JetStream context").WithCause(err).Build()
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "Document publication transitions",
		Subjects:    []string{SubjectPrefix + ".>"},
		MaxAge:      30 * 24 * time.Hour,
	}); err != nil {
		conn.Close()
		return nil, errors.NotifyError("failed to ensure stream").
			WithCause(err).
			WithContext("stream", cfg.Stream).
			Build()
	}

	p := &NATSPublisher{conn: conn, js: js, timeout: cfg.Timeout}

	if cfg.Bucket != "" {
		kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      cfg.Bucket,
			Description: "Latest pubgate build",
			History:     1,
		})
		if err != nil {
			conn.Close()
			return nil, errors.NotifyError("failed to ensure state bucket").
				WithCause(err).
				WithContext("bucket", cfg.Bucket).
				Build()
		}
		p.kv = kv
	}

	slog.Info("NATS publisher initialized",
		slog.String("url", cfg.URL),
		slog.String("stream", cfg.Stream),
		slog.String("bucket", cfg.Bucket))
	return p, nil
}

// Publish sends each event on its kind's subject, then updates the summary.
// The first failure aborts the batch.
func (p *NATSPublisher) Publish(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	counts := map[string]int{}
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return errors.NotifyError("failed to marshal event").WithCause(err).WithContext("document", e.Path).Build()
		}
		if _, err := p.js.Publish(ctx, e.Subject(), data, jetstream.WithMsgID(e.BuildID+":"+e.Path)); err != nil {
			return errors.NotifyError("failed to publish event").
				WithCause(err).
				WithContext("subject", e.Subject()).
				WithContext("document", e.Path).
				Build()
		}
		counts[string(e.Kind)]++
		slog.Debug("Published transition event",
			logfields.Transition(string(e.Kind)),
			logfields.Document(e.Path),
			logfields.BuildID(e.BuildID))
	}

	if p.kv == nil {
		return nil
	}
	last := events[len(events)-1]
	data, err := json.Marshal(Summary{BuildID: last.BuildID, Revision: last.Revision, Timestamp: last.Timestamp, Counts: counts})
	if err != nil {
		return errors.NotifyError("failed to marshal summary").WithCause(err).Build()
	}
	if _, err := p.kv.Put(ctx, LatestKey, data); err != nil {
		return errors.NotifyError("failed to store build summary").WithCause(err).Build()
	}
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
