package publish

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/pubgate/internal/content"
)

var now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func allConfigs() []BuildConfig {
	var out []BuildConfig
	for _, d := range []bool{false, true} {
		for _, f := range []bool{false, true} {
			for _, e := range []bool{false, true} {
				out = append(out, BuildConfig{BuildDrafts: d, BuildFuture: f, BuildExpired: e})
			}
		}
	}
	return out
}

func TestIsPublishable_Scenarios(t *testing.T) {
	past := day("2023-06-01")

	tests := []struct {
		name string
		doc  content.Document
		cfg  BuildConfig
		want bool
	}{
		{"A: draft excluded by default", content.Document{Draft: true, Date: past}, BuildConfig{}, false},
		{"B: draft included with buildDrafts", content.Document{Draft: true, Date: past}, BuildConfig{BuildDrafts: true}, true},
		{"C: future excluded", content.Document{Date: day("2099-01-01")}, BuildConfig{}, false},
		{"D: plain past document", content.Document{Date: past}, BuildConfig{}, true},
		{"future included with buildFuture", content.Document{Date: day("2099-01-01")}, BuildConfig{BuildFuture: true}, true},
		{"date equal to now is not future", content.Document{Date: now}, BuildConfig{}, true},
		{"no date passes", content.Document{}, BuildConfig{}, true},
		{"publishDate overrides date", content.Document{Date: past, PublishDate: day("2030-01-01")}, BuildConfig{}, false},
		{"expired excluded", content.Document{Date: past, ExpiryDate: day("2023-12-31")}, BuildConfig{}, false},
		{"expiry equal to now is expired", content.Document{Date: past, ExpiryDate: now}, BuildConfig{}, false},
		{"expiry in future passes", content.Document{Date: past, ExpiryDate: day("2024-01-02")}, BuildConfig{}, true},
		{"expired included with buildExpired", content.Document{Date: past, ExpiryDate: day("2023-12-31")}, BuildConfig{BuildExpired: true}, true},
		{"all gates closed, all switches on", content.Document{Draft: true, Date: day("2099-01-01"), ExpiryDate: day("2000-01-01")}, BuildConfig{BuildDrafts: true, BuildFuture: true, BuildExpired: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := tt.doc
			assert.Equal(t, tt.want, IsPublishable(&doc, tt.cfg, now))
		})
	}
}

func TestDraftGate_Properties(t *testing.T) {
	for _, cfg := range allConfigs() {
		notDraft := &content.Document{Date: day("2023-01-01")}
		assert.True(t, DraftGate.Allows(notDraft, cfg, now), "non-draft passes draft gate with %+v", cfg)

		draft := &content.Document{Draft: true, Date: day("2023-01-01")}
		if !cfg.BuildDrafts {
			assert.False(t, IsPublishable(draft, cfg, now), "draft excluded with %+v", cfg)
		}

		future := &content.Document{Date: now.Add(time.Nanosecond)}
		if !cfg.BuildFuture {
			assert.False(t, IsPublishable(future, cfg, now), "future excluded with %+v", cfg)
		}
	}
}

func TestIsPublishable_Idempotent(t *testing.T) {
	doc := &content.Document{Draft: true, Date: day("2030-01-01"), ExpiryDate: day("2031-01-01")}
	for _, cfg := range allConfigs() {
		first := IsPublishable(doc, cfg, now)
		assert.Equal(t, first, IsPublishable(doc, cfg, now))
	}
}

func TestBuildConfig_Merge(t *testing.T) {
	got := BuildConfig{BuildDrafts: true}.Merge(BuildConfig{BuildExpired: true})
	assert.Equal(t, BuildConfig{BuildDrafts: true, BuildExpired: true}, got)
	assert.Equal(t, BuildConfig{BuildFuture: true}, BuildConfig{BuildFuture: true}.Merge(BuildConfig{}))
}
