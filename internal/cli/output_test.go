package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/plank/internal/schema"
)

func TestMatchTags(t *testing.T) {
	tags := []string{"team/web", "bug/ui/button"}

	tests := []struct {
		patterns []string
		want     bool
	}{
		{nil, true},
		{[]string{"team/*"}, true},
		{[]string{"bug/**"}, true},
		{[]string{"bug/*"}, false},
		{[]string{"team/*", "bug/**"}, true},
		{[]string{"team/*", "ops"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchTags(tags, tt.patterns), "%v", tt.patterns)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ääääääa...", truncate("ääääääaaaaaa", 10), "counts runes, not bytes")
}

func TestPrinterFit_NonTerminal(t *testing.T) {
	p := &printer{out: &bytes.Buffer{}, width: defaultWidth}
	long := string(bytes.Repeat([]byte("x"), 200))
	assert.Len(t, p.fit(long, 20), 100)
	assert.Len(t, p.fit(long, 500), 10, "never narrower than ten columns")
	assert.Equal(t, "done", p.badge("done"), "no color off a terminal")
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2026-07-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("2026-07-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC), d)
	assert.Equal(t, time.UTC, d.Location())

	_, err = parseDate("next week")
	assert.Error(t, err)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "-", formatDate(nil))
	d := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-01-02", formatDate(&d))
	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "a,b", joinOrDash([]string{"a", "b"}))
	assert.Equal(t, "-", joinOrDash(nil))
}

func TestDescribeActivity(t *testing.T) {
	tests := []struct {
		meta string
		want string
	}{
		{`{"fields":["status"],"status":"done","previousStatus":"todo"}`, "todo -> done"},
		{`{"fields":["status","name"],"status":"completed"}`, "status completed"},
		{`{"fields":["title","tags"],"projectId":"p-1"}`, "changed title, tags"},
		{`{"tasks":3}`, "3 tasks removed"},
		{`{"projectId":"p-1"}`, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		act := schema.Activity{Metadata: json.RawMessage(tt.meta)}
		assert.Equal(t, tt.want, describeActivity(act), tt.meta)
	}
}
