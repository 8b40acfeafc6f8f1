package syncer

import (
	"time"

	"github.com/illarion/upm/internal/record"
)

// Outcome is what a sync did
type Outcome int

const (
	InSync Outcome = iota
	UploadedLocal
	AdoptedRemote
)

func (o Outcome) String() string {
	switch o {
	case InSync:
		return "in-sync"
	case UploadedLocal:
		return "uploaded-local"
	case AdoptedRemote:
		return "adopted-remote"
	default:
		return "unknown"
	}
}

// ParseOutcome is the inverse of Outcome.String
func ParseOutcome(s string) (Outcome, bool) {
	for _, o := range []Outcome{InSync, UploadedLocal, AdoptedRemote} {
		if o.String() == s {
			return o, true
		}
	}
	return InSync, false
}

// DefaultInterval is how long a sync stays fresh
const DefaultInterval = 5 * time.Minute

// Due reports whether a store with opts should be synced: a remote is set
// and the last sync is unknown or more than interval ago. A non-positive
// interval means DefaultInterval.
func Due(opts record.Options, lastSync, now time.Time, interval time.Duration) bool {
	if !opts.SyncEnabled() {
		return false
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return lastSync.IsZero() || now.Sub(lastSync) > interval
}
