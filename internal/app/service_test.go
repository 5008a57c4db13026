package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	service "github.com/okian/kolarena/internal/app"
	"github.com/okian/kolarena/internal/config"
	"github.com/okian/kolarena/internal/domain/blip"
	"github.com/okian/kolarena/internal/domain/followers"
	"github.com/okian/kolarena/internal/domain/model"
	"github.com/okian/kolarena/internal/domain/ranking"
	"github.com/okian/kolarena/internal/domain/types"
	"github.com/okian/kolarena/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// testClock only fires timers when advanced.
type testClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*testTimer
}

type testTimer struct {
	c       *testClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 4, 1, 14, 30, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) AfterFunc(d time.Duration, f func()) blip.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &testTimer{c: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*testTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (t *testTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// pick always moves the same agent by the same amount.
func pick(id string, amount int) followers.Source {
	return followers.SourceFunc(func([]string) followers.Delta {
		return followers.Delta{ID: id, Amount: amount}
	})
}

func drain(ch <-chan types.Update) []types.Update {
	var out []types.Update
	for {
		select {
		case u := <-ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

func topics(us []types.Update) []string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = u.Topic
	}
	return out
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc, err := service.New()
		So(err, ShouldBeNil)
		defer svc.Close()
		ctx := context.Background()

		Convey("Then every widget is seeded before any tick", func() {
			So(svc.Agents(ctx), ShouldHaveLength, 4)
			So(svc.Chart(ctx).Samples, ShouldHaveLength, 21)
			So(svc.Chart(ctx).Series, ShouldResemble, []string{"CryptoGPT", "GeminiCrypto", "QwenCoin", "GrokCrypto"})
			So(svc.Feed(ctx, 0), ShouldHaveLength, 4)
			So(svc.Blips(ctx), ShouldBeEmpty)
			So(svc.Started(), ShouldBeFalse)

			board := svc.Leaderboard(ctx, 0)
			So(board, ShouldHaveLength, 4)
			So(board[0].Name, ShouldEqual, "QwenCoin")
			So(board[0].Rank, ShouldEqual, 1)
		})

		Convey("And the default choreography is graceful", func() {
			So(svc.Choreography().Name, ShouldEqual, "graceful")
			So(svc.GetStats().Choreography, ShouldEqual, "graceful")
		})
	})

	Convey("Given a config whose choreography outlasts the display delay", t, func() {
		cfg := config.New()
		cfg.Blip.EventDisplayMS = 500

		Convey("Then construction fails", func() {
			_, err := service.New(service.WithConfig(cfg))
			So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
		})
	})

	Convey("Given a pool file that does not exist", t, func() {
		cfg := config.New()
		cfg.Feed.PoolFile = "/nonexistent/pool.yaml"
		_, err := service.New(service.WithConfig(cfg))
		So(err, ShouldNotBeNil)
	})
}

func TestService_FollowerTick(t *testing.T) {
	Convey("Given a service on a manual clock that always adds to agent 3", t, func() {
		clock := newTestClock()
		svc, err := service.New(service.WithClock(clock), service.WithFollowerSource(pick("3", 1)))
		So(err, ShouldBeNil)
		defer svc.Close()
		ctx := context.Background()
		sub, err := svc.Subscribe()
		So(err, ShouldBeNil)

		Convey("When the followers simulator ticks", func() {
			So(svc.Advance(ctx, service.SimFollowers), ShouldBeNil)

			Convey("Then the agent gains a follower and shows a gain blip", func() {
				a, err := svc.Agent(ctx, "3")
				So(err, ShouldBeNil)
				So(a.Followers, ShouldEqual, 1568)
				So(a.LastDelta, ShouldEqual, 1)
				So(a.Blip, ShouldNotBeNil)
				So(a.Blip.Kind, ShouldEqual, "gain")
				So(a.Blip.Glyph, ShouldEqual, "+1")
				So(svc.Blips(ctx), ShouldHaveLength, 1)
			})

			Convey("And subscribers hear about the blip and the agent", func() {
				So(topics(drain(sub.C)), ShouldResemble, []string{types.TopicBlipCreated, types.TopicAgent})
			})

			Convey("And the agent shows up as a mover", func() {
				m := svc.Movers(ctx, 0)
				So(m, ShouldHaveLength, 1)
				So(m[0].Name, ShouldEqual, "QwenCoin")
				So(m[0].Gains, ShouldEqual, 1)
			})

			Convey("When the display delay elapses", func() {
				drain(sub.C)
				clock.Advance(1500 * time.Millisecond)

				Convey("Then the blip expires and the expiry is published", func() {
					So(svc.Blips(ctx), ShouldBeEmpty)
					got := drain(sub.C)
					So(topics(got), ShouldResemble, []string{types.TopicBlipExpired})
				})
			})

			Convey("When the service shuts down with the blip still showing", func() {
				drain(sub.C)
				So(svc.Shutdown(ctx), ShouldBeNil)

				Convey("Then subscribers hear the blip expire before the stream ends", func() {
					var got []types.Update
					for u := range sub.C {
						got = append(got, u)
					}
					So(topics(got), ShouldResemble, []string{types.TopicBlipExpired})
					So(svc.Blips(ctx), ShouldBeEmpty)
				})
			})
		})

		Convey("When the same agent ticks again inside the display window", func() {
			So(svc.Advance(ctx, service.SimFollowers), ShouldBeNil)
			clock.Advance(time.Second)
			So(svc.Advance(ctx, service.SimFollowers), ShouldBeNil)
			clock.Advance(500 * time.Millisecond)

			Convey("Then the first removal timer dismisses the second blip early", func() {
				a, _ := svc.Agent(ctx, "3")
				So(a.Blip, ShouldBeNil)
				So(a.Followers, ShouldEqual, 1569)
			})
		})
	})
}

func TestService_Widgets(t *testing.T) {
	Convey("Given a service with a still leaderboard", t, func() {
		clock := newTestClock()
		still := ranking.SourceFunc(func(string) ranking.Increment { return ranking.Increment{} })
		svc, err := service.New(service.WithClock(clock), service.WithRankingSource(still))
		So(err, ShouldBeNil)
		defer svc.Close()
		ctx := context.Background()

		Convey("When chart, leaderboard and feed tick", func() {
			before := svc.Chart(ctx).Samples
			So(svc.Advance(ctx, service.SimChart), ShouldBeNil)
			So(svc.Advance(ctx, service.SimLeaderboard), ShouldBeNil)
			clock.Advance(12 * time.Second)
			So(svc.Advance(ctx, service.SimFeed), ShouldBeNil)

			Convey("Then each widget keeps its shape", func() {
				after := svc.Chart(ctx).Samples
				So(after, ShouldHaveLength, len(before))
				So(after[0].Time, ShouldEqual, before[1].Time)

				So(svc.Leaderboard(ctx, 2), ShouldHaveLength, 2)
				e, err := svc.LeaderboardEntry(ctx, "GrokCrypto")
				So(err, ShouldBeNil)
				So(e.Rank, ShouldEqual, 4)

				feed := svc.Feed(ctx, 0)
				So(feed, ShouldHaveLength, 5)
				So(feed[0].Age, ShouldEqual, "0s")
				So(svc.Feed(ctx, 2), ShouldHaveLength, 2)
			})

			Convey("And the latest update of each topic is replayable", func() {
				got := topics(svc.Latest(ctx))
				So(got, ShouldResemble, []string{types.TopicChart, types.TopicLeaderboard, types.TopicFeed})
			})
		})

		Convey("When looking up unknown names", func() {
			_, err := svc.Agent(ctx, "99")
			So(errors.Is(err, model.ErrUnknownEntity), ShouldBeTrue)
			_, err = svc.LeaderboardEntry(ctx, "nobody")
			So(errors.Is(err, model.ErrUnknownEntity), ShouldBeTrue)
			err = svc.Advance(ctx, "weather")
			So(errors.Is(err, service.ErrUnknownSimulator), ShouldBeTrue)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service with fast tick intervals", t, func() {
		cfg := config.New()
		cfg.Followers.TickIntervalMS = 5
		cfg.Chart.TickIntervalMS = 5
		cfg.Leaderboard.TickIntervalMS = 5
		cfg.Feed.TickIntervalMS = 5
		cfg.Blip.EventDisplayMS = 60_000
		svc, err := service.New(service.WithConfig(cfg))
		So(err, ShouldBeNil)
		defer svc.Close()
		ctx := context.Background()

		Convey("When started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then every simulator ticks", func() {
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) {
					ticks := svc.GetStats().Ticks
					if ticks[service.SimFollowers] > 0 && ticks[service.SimChart] > 0 &&
						ticks[service.SimLeaderboard] > 0 && ticks[service.SimFeed] > 0 {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				stats := svc.GetStats()
				So(stats.Started, ShouldBeTrue)
				So(stats.Ticks[service.SimFollowers], ShouldBeGreaterThan, 0)
				So(stats.Ticks[service.SimFeed], ShouldBeGreaterThan, 0)
				So(stats.LogLength, ShouldBeLessThanOrEqualTo, 10)
				So(stats.WindowLength, ShouldEqual, 21)
				So(stats.TickErrors, ShouldContainKey, service.SimChart)
				So(stats.TickErrors[service.SimChart], ShouldEqual, 0)
				So(stats.Removals, ShouldBeGreaterThanOrEqualTo, stats.ActiveBlips)
			})

			Convey("And stopping cancels pending blips and allows a restart", func() {
				time.Sleep(30 * time.Millisecond)
				svc.Stop()
				So(svc.Started(), ShouldBeFalse)
				So(svc.Blips(ctx), ShouldBeEmpty)

				So(svc.Start(ctx), ShouldBeNil)
				So(svc.Started(), ShouldBeTrue)
				svc.Stop()
			})

			Convey("And shutting down releases subscribers", func() {
				sub, err := svc.Subscribe()
				So(err, ShouldBeNil)
				sctx, cancel := context.WithTimeout(ctx, time.Second)
				defer cancel()

				So(svc.Shutdown(sctx), ShouldBeNil)
				So(svc.Started(), ShouldBeFalse)
				So(svc.Blips(ctx), ShouldBeEmpty)
				for range sub.C {
				}
				So(svc.GetStats().Subscribers, ShouldEqual, 0)
			})
		})
	})
}
