package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStringHelpers(t *testing.T) {
	cases := []struct {
		attr slog.Attr
		key  string
		val  string
	}{
		{BuildID("b1"), KeyBuildID, "b1"},
		{Document("posts/a.md"), KeyDocument, "posts/a.md"},
		{Gate("draft"), KeyGate, "draft"},
		{Revision("abc123"), KeyRevision, "abc123"},
		{Path("/site"), KeyPath, "/site"},
		{Trigger("schedule"), KeyTrigger, "schedule"},
		{Transition("published"), KeyTransition, "published"},
		{JobID("j1"), KeyJobID, "j1"},
		{Decision(true), KeyDecision, "publish"},
		{Decision(false), KeyDecision, "skip"},
		{Error(errors.New("boom")), KeyError, "boom"},
		{Error(nil), KeyError, ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.key, c.attr.Key)
		assert.Equal(t, c.val, c.attr.Value.String())
	}
}

func TestNumericHelpers(t *testing.T) {
	d := Duration(1500 * time.Millisecond)
	assert.Equal(t, KeyDurationMS, d.Key)
	assert.Equal(t, int64(1500), d.Value.Int64())

	n := Count(7)
	assert.Equal(t, KeyCount, n.Key)
	assert.Equal(t, int64(7), n.Value.Int64())
}
