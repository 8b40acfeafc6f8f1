package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/illarion/upm/internal/record"
)

func TestOutcomeString(t *testing.T) {
	for _, o := range []Outcome{InSync, UploadedLocal, AdoptedRemote} {
		parsed, ok := ParseOutcome(o.String())
		assert.True(t, ok)
		assert.Equal(t, o, parsed)
	}
	assert.Equal(t, "unknown", Outcome(42).String())

	_, ok := ParseOutcome("merged")
	assert.False(t, ok)
}

func TestDue(t *testing.T) {
	remote := record.Options{RemoteLocation: "http://host/"}
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		opts     record.Options
		lastSync time.Time
		interval time.Duration
		want     bool
	}{
		{name: "no remote", opts: record.Options{}, want: false},
		{name: "never synced", opts: remote, want: true},
		{name: "fresh", opts: remote, lastSync: now.Add(-time.Minute), want: false},
		{name: "exactly five minutes", opts: remote, lastSync: now.Add(-5 * time.Minute), want: false},
		{name: "stale", opts: remote, lastSync: now.Add(-6 * time.Minute), want: true},
		{name: "custom interval", opts: remote, lastSync: now.Add(-2 * time.Minute), interval: time.Minute, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Due(tt.opts, tt.lastSync, now, tt.interval))
		})
	}
}
