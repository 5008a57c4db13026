package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/kolarena/internal/adapters/broadcast"
	"github.com/okian/kolarena/internal/domain/blip"
	"github.com/okian/kolarena/internal/domain/model"
	"github.com/okian/kolarena/internal/domain/timeline"
	"github.com/okian/kolarena/internal/domain/types"
	"github.com/okian/kolarena/pkg/metrics"
)

// Agents returns every agent in roster order with its active blip.
func (s *Service) Agents(_ context.Context) []types.Agent {
	snap := s.followers.Snapshot()
	out := make([]types.Agent, len(snap))
	for i, e := range snap {
		out[i] = s.agent(e)
	}
	return out
}

// Agent returns one agent by id.
func (s *Service) Agent(_ context.Context, id string) (types.Agent, error) {
	e, err := s.followers.Get(id)
	if err != nil {
		return types.Agent{}, err
	}
	return s.agent(e), nil
}

func (s *Service) agent(e model.TrackedEntity) types.Agent {
	a := types.FromEntity(e)
	if ev, ok := s.tracker.Get(e.ID); ok {
		b := types.FromEvent(ev, s.choreo.Name)
		a.Blip = &b
	}
	return a
}

// Chart returns the chart window, oldest sample first.
func (s *Service) Chart(_ context.Context) types.Chart {
	snap := s.chart.Snapshot()
	out := types.Chart{Series: s.chart.Names(), Samples: make([]types.Sample, len(snap))}
	for i, sample := range snap {
		out.Samples[i] = types.FromSample(sample)
	}
	return out
}

// Leaderboard returns at most limit rows. limit <= 0 returns all.
func (s *Service) Leaderboard(_ context.Context, limit int) []types.RankEntry {
	return rankEntries(s.board.Top(limit))
}

// LeaderboardEntry returns the row called name.
func (s *Service) LeaderboardEntry(_ context.Context, name string) (types.RankEntry, error) {
	e, err := s.board.Lookup(name)
	if err != nil {
		return types.RankEntry{}, err
	}
	return types.FromRanked(e), nil
}

func rankEntries(in []model.RankedEntry) []types.RankEntry {
	out := make([]types.RankEntry, len(in))
	for i, e := range in {
		out[i] = types.FromRanked(e)
	}
	return out
}

// Feed returns at most limit posts, newest first. limit <= 0 returns all.
func (s *Service) Feed(_ context.Context, limit int) []types.Post {
	now := s.clock.Now()
	entries := s.feed.Latest(limit)
	out := make([]types.Post, len(entries))
	for i, e := range entries {
		out[i] = types.FromLogEntry(e, timeline.Age(now, e.CreatedAt))
	}
	return out
}

// Blips returns the active transient events in creation order.
func (s *Service) Blips(_ context.Context) []types.Blip {
	active := s.tracker.Active()
	out := make([]types.Blip, len(active))
	for i, ev := range active {
		out[i] = types.FromEvent(ev, s.choreo.Name)
	}
	return out
}

// Movers returns at most limit trending agents.
func (s *Service) Movers(_ context.Context, limit int) []types.Mover {
	top := s.movers.Top(limit)
	out := make([]types.Mover, len(top))
	for i, m := range top {
		name := m.ID
		if e, err := s.followers.Get(m.ID); err == nil {
			name = e.Name
		}
		out[i] = types.Mover{ID: m.ID, Name: name, Events: m.Events, Gains: m.Gains, Losses: m.Losses, Net: m.Net()}
	}
	return out
}

// Choreography returns the active presentation preset.
func (s *Service) Choreography() blip.Choreography { return s.choreo }

// Subscribe registers for change notifications.
func (s *Service) Subscribe(topics ...string) (*broadcast.Subscription, error) {
	sub, err := s.hub.Subscribe(topics...)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return sub, nil
}

// Latest returns the most recent update of every replayable topic.
func (s *Service) Latest(ctx context.Context) []types.Update {
	return s.latest.All(ctx)
}

// Heartbeat returns the keep-alive period for push streams.
func (s *Service) Heartbeat() time.Duration { return s.cfg.Stream.Heartbeat() }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.Stats {
	s.mu.RLock()
	started, startedAt := s.started, s.startedAt
	s.mu.RUnlock()

	stats := types.Stats{
		Started:      started,
		Ticks:        s.group.Ticks(),
		Agents:       s.followers.Len(),
		TickErrors:   make(map[string]uint64),
		ActiveBlips:  len(s.tracker.Active()),
		Removals:     s.tracker.Pending(),
		WindowLength: s.chart.Len(),
		LogLength:    s.feed.Len(),
		Subscribers:  s.hub.Len(),
		Published:    s.hub.Published(),
		Dropped:      s.hub.Dropped(),
		Choreography: s.choreo.Name,
	}
	for _, r := range s.group.Runners() {
		stats.TickErrors[r.Name()] = r.Errors()
	}
	if started {
		stats.Uptime = s.clock.Now().Sub(startedAt).Truncate(time.Second).String()
	}

	metrics.UpdateSubscribers(stats.Subscribers)
	metrics.UpdateBlipsActive(stats.ActiveBlips)
	metrics.UpdateWindowLength(stats.WindowLength)
	metrics.UpdateLogLength(stats.LogLength)
	return stats
}
