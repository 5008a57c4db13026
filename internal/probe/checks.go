package probe

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/okian/kolarena/internal/domain/types"
)

// Check names as they appear in the report.
const (
	CheckAgentSet     = "agents.fixed_set"
	CheckFollowerStep = "followers.single_step"
	CheckChartWindow  = "chart.window"
	CheckLeaderboard  = "leaderboard.ranked"
	CheckFeed         = "feed.capped_newest_first"
	CheckStreamOrder  = "stream.sequence"
	CheckStreamUnique = "stream.unique"
	CheckBlipExpiry   = "blips.expire"
)

// ErrViolation wraps every failed property.
var ErrViolation = errors.New("property violated")

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrViolation, fmt.Sprintf(format, args...))
}

// checkAgentSet verifies the tracked set keeps its identity and order.
func checkAgentSet(prev, cur []types.Agent) error {
	if len(cur) == 0 {
		return violation("no agents")
	}
	if prev == nil {
		return nil
	}
	if len(prev) != len(cur) {
		return violation("agent count changed from %d to %d", len(prev), len(cur))
	}
	for i := range cur {
		if prev[i].ID != cur[i].ID {
			return violation("agent %d changed from %q to %q", i, prev[i].ID, cur[i].ID)
		}
	}
	return nil
}

// checkFollowerStep verifies an agent update moved its counter by exactly
// one, in the direction it reports.
func checkFollowerStep(before int, a types.Agent) error {
	d := a.Followers - before
	if d != 1 && d != -1 {
		return violation("agent %q moved by %d", a.ID, d)
	}
	if d != a.LastDelta {
		return violation("agent %q moved by %d but reports %d", a.ID, d, a.LastDelta)
	}
	return nil
}

// checkChartWindow verifies the window length is constant and sample times
// never go backwards.
func checkChartWindow(prev *types.Chart, cur types.Chart) error {
	n := len(cur.Samples)
	if n == 0 {
		return violation("empty chart window")
	}
	for i := 1; i < n; i++ {
		if cur.Samples[i].Time.Before(cur.Samples[i-1].Time) {
			return violation("sample %d at %s precedes sample %d", i, cur.Samples[i].Time.Format(time.RFC3339), i-1)
		}
	}
	if prev == nil || len(prev.Samples) == 0 {
		return nil
	}
	if len(prev.Samples) != n {
		return violation("window length changed from %d to %d", len(prev.Samples), n)
	}
	if cur.Samples[n-1].Time.Before(prev.Samples[n-1].Time) {
		return violation("newest sample went back in time")
	}
	return nil
}

// checkLeaderboard verifies descending order and contiguous ranks.
func checkLeaderboard(entries []types.RankEntry) error {
	for i, e := range entries {
		if e.Rank != i+1 {
			return violation("row %d has rank %d", i, e.Rank)
		}
		if i > 0 && e.Followers > entries[i-1].Followers {
			return violation("%q (%d) ranked below %q (%d)", e.Name, e.Followers, entries[i-1].Name, entries[i-1].Followers)
		}
	}
	return nil
}

// checkFeed verifies the cap, newest-first order and that a full log never
// shrinks.
func checkFeed(prev, cur []types.Post, capacity int) error {
	if capacity > 0 && len(cur) > capacity {
		return violation("feed holds %d entries, cap is %d", len(cur), capacity)
	}
	for i := 1; i < len(cur); i++ {
		if cur[i].CreatedAt.After(cur[i-1].CreatedAt) {
			return violation("entry %d is newer than entry %d", i, i-1)
		}
	}
	if len(cur) < len(prev) {
		return violation("feed shrank from %d to %d", len(prev), len(cur))
	}
	if len(prev) > 0 && len(cur) > 0 && cur[0].CreatedAt.Before(prev[0].CreatedAt) {
		return violation("head entry went back in time")
	}
	// The previous head is either still there or was pushed past the cap.
	if len(prev) > 0 && !slices.ContainsFunc(cur, func(p types.Post) bool { return p.ID == prev[0].ID }) &&
		(capacity == 0 || len(cur) < capacity) {
		return violation("previous head %q vanished", prev[0].ID)
	}
	return nil
}
