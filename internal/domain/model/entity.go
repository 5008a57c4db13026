// Package model contains domain models passed between layers.
package model

import (
	"maps"
	"time"
)

// EventKind tags a transient event as a gain or a loss.
type EventKind string

// Event kinds.
const (
	KindGain EventKind = "gain"
	KindLoss EventKind = "loss"
)

// KindOf maps a counter delta to its event kind.
func KindOf(delta int) EventKind {
	if delta > 0 {
		return KindGain
	}
	return KindLoss
}

// Sign returns +1 for gains and -1 for losses.
func (k EventKind) Sign() int {
	if k == KindGain {
		return 1
	}
	return -1
}

// TrackedEntity is one agent in the fixed follower set.
type TrackedEntity struct {
	ID         string
	Name       string
	Label      string    // model label, e.g. "GPT-4o"
	Counter    int       // follower count, unbounded
	LastDelta  int       // last applied change, 0 until the first tick
	LastUpdate time.Time // zero until the first tick
}

// TransientEvent marks a just-applied change on a key.
type TransientEvent struct {
	Key       string
	Kind      EventKind
	CreatedAt time.Time
	ExpiresAt time.Time
	Seq       uint64 // monotonically increasing per tracker
}

// Sample is one point of the chart window.
type Sample struct {
	At     time.Time
	Label  string         // wall clock label, "03:04 PM"
	Values map[string]int // series name -> value
}

// Clone returns a copy that shares no map with s.
func (s Sample) Clone() Sample {
	s.Values = maps.Clone(s.Values)
	return s
}

// RankedEntry is one row of the leaderboard. Rank is derived on every tick.
type RankedEntry struct {
	Rank      int
	Name      string
	Primary   int // followers
	Secondary int // 24h change
}

// Reactions holds engagement counters of a post.
type Reactions struct {
	Likes   int
	Reposts int
	Replies int
}

// LogEntry is one post of the feed.
type LogEntry struct {
	ID        string
	Author    string
	Source    string // model label of the posting agent
	Body      string
	CreatedAt time.Time
	Reactions Reactions
}
