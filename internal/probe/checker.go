package probe

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/okian/kolarena/internal/domain/dedupe"
	"github.com/okian/kolarena/internal/domain/types"
	"github.com/okian/kolarena/pkg/logger"
)

// seenWindow bounds how many sequence numbers are remembered for duplicate
// detection.
const seenWindow = 1 << 16

// Result is the tally of one property.
type Result struct {
	Name   string `json:"name"`
	Passed int    `json:"passed"`
	Failed int    `json:"failed"`
	Last   string `json:"last_failure,omitempty"`
}

// wireUpdate is an Update with the payload left encoded.
type wireUpdate struct {
	Topic   string          `json:"topic"`
	Seq     uint64          `json:"seq"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// Checker accumulates property results from snapshots and stream updates.
// Safe for concurrent use.
type Checker struct {
	mu       sync.Mutex
	results  map[string]*Result
	capacity int
	slack    time.Duration
	verbose  bool
	logger   logger.Logger

	prev      *Snapshot
	snapshots int

	seen      dedupe.Deduper
	lastSeq   map[string]uint64
	followers map[string]int
	pending   map[string]types.Blip
	created   map[string]bool
	topics    map[string]int
}

// NewChecker creates a checker. capacity bounds the feed length when
// positive; slack is the grace period for blip expiry.
func NewChecker(capacity int, slack time.Duration, verbose bool, l logger.Logger) *Checker {
	if l == nil {
		l = logger.Get().Named("probe")
	}
	c := &Checker{
		results:   make(map[string]*Result),
		capacity:  capacity,
		slack:     slack,
		verbose:   verbose,
		logger:    l,
		seen:      dedupe.New(dedupe.WithMaxSize(seenWindow)),
		lastSeq:   make(map[string]uint64),
		followers: make(map[string]int),
		pending:   make(map[string]types.Blip),
		created:   make(map[string]bool),
		topics:    make(map[string]int),
	}
	for _, name := range []string{
		CheckAgentSet, CheckFollowerStep, CheckChartWindow, CheckLeaderboard,
		CheckFeed, CheckStreamOrder, CheckStreamUnique, CheckBlipExpiry,
	} {
		c.results[name] = &Result{Name: name}
	}
	return c
}

func (c *Checker) record(name string, err error) {
	r := c.results[name]
	if err == nil {
		r.Passed++
		return
	}
	r.Failed++
	r.Last = err.Error()
	if c.verbose {
		c.logger.Warn(context.Background(), "property violated", logger.String("check", name), logger.Error(err))
	}
}

// ObserveSnapshot checks one polled snapshot against the previous one.
func (c *Checker) ObserveSnapshot(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var prevAgents []types.Agent
	var prevChart *types.Chart
	var prevFeed []types.Post
	if c.prev != nil {
		prevAgents, prevChart, prevFeed = c.prev.Agents, &c.prev.Chart, c.prev.Feed
	}
	c.record(CheckAgentSet, checkAgentSet(prevAgents, s.Agents))
	c.record(CheckChartWindow, checkChartWindow(prevChart, s.Chart))
	c.record(CheckLeaderboard, checkLeaderboard(s.Board))
	c.record(CheckFeed, checkFeed(prevFeed, s.Feed, c.capacity))
	c.prev = &s
	c.snapshots++
}

// ObserveUpdate checks one streamed update.
func (c *Checker) ObserveUpdate(ctx context.Context, u wireUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.topics[u.Topic]++
	dup := c.seen.SeenAndRecord(ctx, strconv.FormatUint(u.Seq, 10))
	if dup {
		c.record(CheckStreamUnique, violation("sequence %d delivered twice", u.Seq))
	} else {
		c.record(CheckStreamUnique, nil)
	}
	if last, ok := c.lastSeq[u.Topic]; ok && u.Seq <= last {
		c.record(CheckStreamOrder, violation("%s sequence %d after %d", u.Topic, u.Seq, last))
	} else {
		c.record(CheckStreamOrder, nil)
		c.lastSeq[u.Topic] = u.Seq
	}
	if dup {
		return
	}

	switch u.Topic {
	case types.TopicAgent:
		var a types.Agent
		if json.Unmarshal(u.Payload, &a) != nil {
			return
		}
		if before, ok := c.followers[a.ID]; ok {
			c.record(CheckFollowerStep, checkFollowerStep(before, a))
		}
		c.followers[a.ID] = a.Followers
	case types.TopicBlipCreated:
		var b types.Blip
		if json.Unmarshal(u.Payload, &b) == nil {
			c.pending[b.Key] = b
			c.created[b.Key] = true
		}
	case types.TopicBlipExpired:
		var b types.Blip
		if json.Unmarshal(u.Payload, &b) != nil {
			return
		}
		// Blips created before the stream connected expire unseen.
		if !c.created[b.Key] {
			return
		}
		if p, ok := c.pending[b.Key]; ok && p.Seq == b.Seq {
			delete(c.pending, b.Key)
			c.record(CheckBlipExpiry, nil)
		} else {
			c.record(CheckBlipExpiry, violation("expiry for %q seq %d does not match the active event", b.Key, b.Seq))
		}
	}
}

// Finish flags blips that should have expired by now.
func (c *Checker) Finish(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.pending))
	for k := range c.pending {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b := c.pending[k]
		if now.After(b.ExpiresAt.Add(c.slack)) {
			c.record(CheckBlipExpiry, violation("blip for %q (seq %d) never expired", k, b.Seq))
			delete(c.pending, k)
		}
	}
}

// Results returns the tallies in report order.
func (c *Checker) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, 0, len(c.results))
	for _, r := range c.results {
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b Result) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// Topics returns how many updates were seen per topic.
func (c *Checker) Topics() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.topics))
	for k, v := range c.topics {
		out[k] = v
	}
	return out
}

// Snapshots returns how many snapshots were checked.
func (c *Checker) Snapshots() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshots
}
