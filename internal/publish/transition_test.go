package publish

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/pubgate/internal/content"
)

func TestNextTransition(t *testing.T) {
	docs := []*content.Document{
		{Path: "live.md", Date: day("2023-01-01")},
		{Path: "soon.md", Date: day("2024-03-01")},
		{Path: "expiring.md", Date: day("2023-01-01"), ExpiryDate: day("2024-02-01")},
		{Path: "draft.md", Draft: true, Date: day("2024-01-15")},
	}

	next, ok := NextTransition(docs, BuildConfig{}, now)
	assert.True(t, ok)
	assert.Equal(t, day("2024-02-01"), next)

	next, ok = NextTransition(docs, BuildConfig{BuildExpired: true}, now)
	assert.True(t, ok)
	assert.Equal(t, day("2024-03-01"), next)

	next, ok = NextTransition(docs, BuildConfig{BuildDrafts: true}, now)
	assert.True(t, ok)
	assert.Equal(t, day("2024-01-15"), next)

	_, ok = NextTransition(docs, BuildConfig{BuildFuture: true, BuildExpired: true}, now)
	assert.False(t, ok)
}

func TestNextTransition_IgnoresPastAndNow(t *testing.T) {
	docs := []*content.Document{
		{Date: now},
		{Date: now.Add(-time.Hour), ExpiryDate: now},
	}
	_, ok := NextTransition(docs, BuildConfig{}, now)
	assert.False(t, ok)
}

func TestNextTransition_FlipsDecision(t *testing.T) {
	doc := &content.Document{Date: day("2024-01-10")}
	next, ok := NextTransition([]*content.Document{doc}, BuildConfig{}, now)
	assert.True(t, ok)

	assert.False(t, IsPublishable(doc, BuildConfig{}, next.Add(-time.Nanosecond)))
	assert.True(t, IsPublishable(doc, BuildConfig{}, next))
}

func TestNextTransition_SkipsInstantsAnotherGateBlocks(t *testing.T) {
	t.Run("effective date after expiry", func(t *testing.T) {
		doc := &content.Document{PublishDate: day("2024-06-01"), ExpiryDate: day("2023-06-01")}
		_, ok := NextTransition([]*content.Document{doc}, BuildConfig{}, now)
		assert.False(t, ok)
	})

	t.Run("expiry while still scheduled", func(t *testing.T) {
		doc := &content.Document{Date: day("2024-06-01"), ExpiryDate: day("2024-03-01")}
		_, ok := NextTransition([]*content.Document{doc}, BuildConfig{}, now)
		assert.False(t, ok)
	})

	t.Run("later document still counts", func(t *testing.T) {
		docs := []*content.Document{
			{PublishDate: day("2024-02-01"), ExpiryDate: day("2023-06-01")},
			{Date: day("2024-04-01")},
		}
		next, ok := NextTransition(docs, BuildConfig{}, now)
		assert.True(t, ok)
		assert.Equal(t, day("2024-04-01"), next)
	})

	t.Run("expired gate relaxed", func(t *testing.T) {
		doc := &content.Document{PublishDate: day("2024-06-01"), ExpiryDate: day("2023-06-01")}
		next, ok := NextTransition([]*content.Document{doc}, BuildConfig{BuildExpired: true}, now)
		assert.True(t, ok)
		assert.Equal(t, day("2024-06-01"), next)
	})
}
