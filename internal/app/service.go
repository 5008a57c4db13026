// Package service composes the simulators, the transient event tracker and
// the change hub behind one lifecycle, and serves read-only snapshots to the
// HTTP API and the terminal dashboard.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/kolarena/internal/adapters/broadcast"
	"github.com/okian/kolarena/internal/adapters/loop"
	"github.com/okian/kolarena/internal/adapters/repository"
	"github.com/okian/kolarena/internal/config"
	"github.com/okian/kolarena/internal/domain/blip"
	"github.com/okian/kolarena/internal/domain/followers"
	"github.com/okian/kolarena/internal/domain/model"
	"github.com/okian/kolarena/internal/domain/movers"
	"github.com/okian/kolarena/internal/domain/ranking"
	"github.com/okian/kolarena/internal/domain/rng"
	"github.com/okian/kolarena/internal/domain/series"
	"github.com/okian/kolarena/internal/domain/timeline"
	"github.com/okian/kolarena/internal/domain/types"
	"github.com/okian/kolarena/pkg/logger"
)

// Simulator names, also used as runner names and metric labels.
const (
	SimFollowers   = "followers"
	SimChart       = "chart"
	SimLeaderboard = "leaderboard"
	SimFeed        = "feed"
)

// ErrUnknownSimulator is returned by Advance for an unknown name.
var ErrUnknownSimulator = errors.New("unknown simulator")

// Service owns every simulator.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	tracker   *blip.Tracker
	choreo    blip.Choreography
	followers *followers.Feed
	chart     *series.Window
	board     *ranking.Board
	feed      *timeline.Log
	movers    *movers.Board
	hub       *broadcast.Hub
	latest    repository.Store
	group     *loop.Group
	ticks     map[string]loop.TickFunc

	// Injected sources
	followerSource followers.Source
	seriesSource   series.Source
	rankingSource  ranking.Source
	feedSource     timeline.Source
	pool           []timeline.Template
	clock          blip.Clock

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration. Defaults come from config.New.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFollowerSource replaces the random follower source.
func WithFollowerSource(src followers.Source) Option {
	return func(s *Service) { s.followerSource = src }
}

// WithSeriesSource replaces the random chart source.
func WithSeriesSource(src series.Source) Option {
	return func(s *Service) { s.seriesSource = src }
}

// WithRankingSource replaces the random leaderboard source.
func WithRankingSource(src ranking.Source) Option {
	return func(s *Service) { s.rankingSource = src }
}

// WithFeedSource replaces the random post source.
func WithFeedSource(src timeline.Source) Option {
	return func(s *Service) { s.feedSource = src }
}

// WithPool replaces the post templates.
func WithPool(pool []timeline.Template) Option {
	return func(s *Service) { s.pool = pool }
}

// WithClock replaces the wall clock for every component.
func WithClock(c blip.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// New builds and seeds every component. Nothing ticks until Start.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		cfg:   config.New(),
		clock: blip.SystemClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) build() error {
	cfg := s.cfg
	now := s.clock.Now

	choreo, err := blip.Select(cfg.Blip.Choreography, cfg.Blip.EventDisplay())
	if err != nil {
		return err
	}
	s.choreo = choreo

	s.hub = broadcast.NewHub(broadcast.WithBufferSize(cfg.Stream.BufferSize), broadcast.WithNow(now))
	s.latest = repository.NewMemoryStore(repository.WithSkipTopics(types.TopicBlipCreated, types.TopicBlipExpired))
	s.movers = movers.New(movers.WithK(cfg.Movers.K), movers.WithWindowTicks(cfg.Movers.WindowTicks))
	s.tracker = blip.NewTracker(
		blip.WithDisplay(cfg.Blip.EventDisplay()),
		blip.WithClock(s.clock),
		blip.WithObserver(s.onBlip),
	)

	entities := make([]model.TrackedEntity, 0, len(cfg.Followers.Agents))
	for _, a := range cfg.Followers.Agents {
		entities = append(entities, model.TrackedEntity{ID: a.ID, Name: a.Name, Label: a.Label, Counter: a.Followers})
	}
	if s.followerSource == nil {
		s.followerSource = followers.NewRandomSource(rng.Derive(cfg.Seed, SimFollowers), cfg.Followers.GainProbability)
	}
	if s.followers, err = followers.New(entities,
		followers.WithSource(s.followerSource),
		followers.WithSink(s.tracker),
		followers.WithNow(now),
	); err != nil {
		return fmt.Errorf("followers: %w", err)
	}

	specs := make([]series.Spec, 0, len(cfg.Chart.Series))
	for _, c := range cfg.Chart.Series {
		specs = append(specs, series.Spec{Name: c.Name, Base: c.Base, Jitter: c.Jitter})
	}
	if s.seriesSource == nil {
		s.seriesSource = series.NewRandomSource(rng.Derive(cfg.Seed, SimChart))
	}
	if s.chart, err = series.New(specs,
		series.WithSize(cfg.Chart.WindowSize),
		series.WithSpacing(cfg.Chart.Spacing()),
		series.WithSource(s.seriesSource),
		series.WithNow(now),
	); err != nil {
		return fmt.Errorf("chart: %w", err)
	}

	seeds := make([]ranking.Seed, 0, len(cfg.Leaderboard.Entries))
	for _, e := range cfg.Leaderboard.Entries {
		seeds = append(seeds, ranking.Seed{Name: e.Name, Primary: e.Primary, Secondary: e.Secondary})
	}
	if s.rankingSource == nil {
		s.rankingSource = ranking.NewRandomSource(rng.Derive(cfg.Seed, SimLeaderboard))
	}
	if s.board, err = ranking.New(seeds, ranking.WithSource(s.rankingSource)); err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	if s.pool == nil {
		s.pool = timeline.DefaultPool()
		if cfg.Feed.PoolFile != "" {
			if s.pool, err = timeline.LoadPool(cfg.Feed.PoolFile); err != nil {
				return fmt.Errorf("feed: %w", err)
			}
		}
	}
	if s.feedSource == nil {
		s.feedSource = timeline.NewRandomSource(rng.Derive(cfg.Seed, SimFeed))
	}
	if s.feed, err = timeline.New(s.pool,
		timeline.WithCapacity(cfg.Feed.MaxLogEntries),
		timeline.WithSeedSpacing(cfg.Feed.SeedSpacing()),
		timeline.WithSource(s.feedSource),
		timeline.WithNow(now),
	); err != nil {
		return fmt.Errorf("feed: %w", err)
	}

	return s.buildRunners()
}

func (s *Service) buildRunners() error {
	cfg := s.cfg
	s.ticks = map[string]loop.TickFunc{
		SimFollowers:   s.tickFollowers,
		SimChart:       s.tickChart,
		SimLeaderboard: s.tickLeaderboard,
		SimFeed:        s.tickFeed,
	}
	intervals := []struct {
		name     string
		interval time.Duration
		opts     []loop.Option
	}{
		{SimFollowers, cfg.Followers.TickInterval(), []loop.Option{loop.WithOnStop(s.tracker.Stop)}},
		{SimChart, cfg.Chart.TickInterval(), nil},
		{SimLeaderboard, cfg.Leaderboard.TickInterval(), nil},
		{SimFeed, cfg.Feed.TickInterval(), nil},
	}
	s.group = loop.NewGroup()
	for _, it := range intervals {
		r, err := loop.New(it.name, it.interval, s.ticks[it.name], it.opts...)
		if err != nil {
			return err
		}
		s.group.Add(r)
	}
	return nil
}

// Start launches every simulator loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting arena service...")
	if err := s.group.Start(ctx); err != nil {
		return fmt.Errorf("start simulators: %w", err)
	}
	s.started = true
	s.startedAt = s.clock.Now()
	s.logger.Info(ctx, "arena service started",
		logger.Int("agents", s.followers.Len()),
		logger.Int("window", s.chart.Size()),
		logger.Int("feed_capacity", s.feed.Capacity()),
		logger.String("choreography", s.choreo.Name),
	)
	return nil
}

// Stop halts every loop and cancels pending transient event removals.
// The service can be started again.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping arena service...")
	s.group.Stop()
	s.started = false
	s.logger.Info(context.Background(), "arena service stopped")
}

// Shutdown stops every loop, giving up on loops still ticking when ctx
// expires, then releases pending removals and every subscriber.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	var err error
	if s.started {
		s.logger.Info(ctx, "shutting down arena service...")
		err = s.group.Shutdown(ctx)
		s.started = false
	}
	s.mu.Unlock()
	s.tracker.Stop()
	return errors.Join(err, s.hub.Close())
}

// Close stops the service and releases every subscriber.
func (s *Service) Close() error {
	s.Stop()
	s.tracker.Stop()
	return s.hub.Close()
}

// Started reports whether the loops are running.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Advance runs one tick of the named simulator immediately.
func (s *Service) Advance(ctx context.Context, sim string) error {
	tick, ok := s.ticks[sim]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSimulator, sim)
	}
	return tick(ctx)
}

func (s *Service) tickFollowers(ctx context.Context) error {
	e, err := s.followers.Tick(ctx)
	if err != nil {
		return err
	}
	s.movers.Advance(1)
	s.publish(ctx, types.TopicAgent, s.agent(e))
	return nil
}

func (s *Service) tickChart(ctx context.Context) error {
	s.publish(ctx, types.TopicChart, types.FromSample(s.chart.Tick(ctx)))
	return nil
}

func (s *Service) tickLeaderboard(ctx context.Context) error {
	s.publish(ctx, types.TopicLeaderboard, rankEntries(s.board.Tick(ctx)))
	return nil
}

func (s *Service) tickFeed(ctx context.Context) error {
	e := s.feed.Tick(ctx)
	s.publish(ctx, types.TopicFeed, types.FromLogEntry(e, timeline.Age(s.clock.Now(), e.CreatedAt)))
	return nil
}

// onBlip runs for every tracker lifecycle change.
func (s *Service) onBlip(change blip.Change, ev model.TransientEvent) {
	ctx := context.Background()
	switch change {
	case blip.Created:
		s.movers.Observe(ev.Key, ev.Kind)
		s.publish(ctx, types.TopicBlipCreated, types.FromEvent(ev, s.choreo.Name))
	case blip.Expired:
		s.publish(ctx, types.TopicBlipExpired, types.FromEvent(ev, s.choreo.Name))
	}
}

func (s *Service) publish(ctx context.Context, topic string, payload any) {
	u := s.hub.Publish(topic, payload)
	s.latest.Put(ctx, u)
}
