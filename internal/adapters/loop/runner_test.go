package loop_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/kolarena/internal/adapters/loop"
	logging "github.com/okian/kolarena/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logging.Init(); err != nil {
		panic(err)
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return false
}

func TestRunner(t *testing.T) {
	convey.Convey("Given a runner with a short interval", t, func() {
		var calls atomic.Int64
		var stopped atomic.Int64
		r, err := loop.New("followers", 5*time.Millisecond, func(context.Context) error {
			calls.Add(1)
			return nil
		}, loop.WithOnStop(func() { stopped.Add(1) }))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When it is started", func() {
			convey.So(r.Start(context.Background()), convey.ShouldBeNil)
			defer r.Stop()

			convey.Convey("Then it ticks until stopped", func() {
				convey.So(waitFor(func() bool { return calls.Load() >= 3 }), convey.ShouldBeTrue)
				convey.So(r.Running(), convey.ShouldBeTrue)

				r.Stop()
				convey.So(r.Running(), convey.ShouldBeFalse)
				convey.So(stopped.Load(), convey.ShouldEqual, 1)
				after := calls.Load()
				time.Sleep(20 * time.Millisecond)
				convey.So(calls.Load(), convey.ShouldEqual, after)
				convey.So(r.Ticks(), convey.ShouldEqual, uint64(after))
			})

			convey.Convey("And a second start is rejected", func() {
				err := r.Start(context.Background())
				convey.So(errors.Is(err, loop.ErrAlreadyRunning), convey.ShouldBeTrue)
			})

			convey.Convey("And it can be restarted after stopping", func() {
				r.Stop()
				before := calls.Load()
				convey.So(r.Start(context.Background()), convey.ShouldBeNil)
				convey.So(waitFor(func() bool { return calls.Load() > before }), convey.ShouldBeTrue)
				r.Stop()
				convey.So(stopped.Load(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When its context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			convey.So(r.Start(ctx), convey.ShouldBeNil)
			cancel()

			convey.Convey("Then the loop exits on its own", func() {
				convey.So(waitFor(func() bool { return !r.Running() }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When it was never started", func() {
			convey.So(func() { r.Stop() }, convey.ShouldNotPanic)
			convey.So(r.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a tick that fails", t, func() {
		r, err := loop.New("chart", 5*time.Millisecond, func(context.Context) error {
			return errors.New("boom")
		})
		convey.So(err, convey.ShouldBeNil)
		convey.So(r.Start(context.Background()), convey.ShouldBeNil)
		defer r.Stop()

		convey.Convey("Then the loop keeps going and counts errors", func() {
			convey.So(waitFor(func() bool { return r.Errors() >= 2 }), convey.ShouldBeTrue)
			convey.So(r.Running(), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a non-positive interval", t, func() {
		_, err := loop.New("bad", 0, func(context.Context) error { return nil })
		convey.So(errors.Is(err, loop.ErrBadInterval), convey.ShouldBeTrue)
	})
}

func TestRunnerShutdownTimeout(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	r, err := loop.New("slow", time.Millisecond, func(context.Context) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := r.Shutdown(ctx); err == nil {
		t.Fatal("expected shutdown to time out while a tick is blocked")
	}
	close(release)
	r.Stop()
}

func TestGroup(t *testing.T) {
	convey.Convey("Given a group of two runners", t, func() {
		var a, b atomic.Int64
		ra, _ := loop.New("a", 5*time.Millisecond, func(context.Context) error { a.Add(1); return nil })
		rb, _ := loop.New("b", 5*time.Millisecond, func(context.Context) error { b.Add(1); return nil })
		g := loop.NewGroup(ra)
		g.Add(rb)

		convey.Convey("When started and stopped together", func() {
			convey.So(g.Start(context.Background()), convey.ShouldBeNil)
			convey.So(waitFor(func() bool { return a.Load() > 0 && b.Load() > 0 }), convey.ShouldBeTrue)
			g.Stop()

			convey.Convey("Then both are stopped and tick counts are reported", func() {
				convey.So(ra.Running() || rb.Running(), convey.ShouldBeFalse)
				ticks := g.Ticks()
				convey.So(ticks["a"], convey.ShouldBeGreaterThan, 0)
				convey.So(ticks["b"], convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When one runner is already running", func() {
			convey.So(rb.Start(context.Background()), convey.ShouldBeNil)
			err := g.Start(context.Background())

			convey.Convey("Then the group start fails and rolls back", func() {
				convey.So(errors.Is(err, loop.ErrAlreadyRunning), convey.ShouldBeTrue)
				convey.So(ra.Running(), convey.ShouldBeFalse)
				rb.Stop()
			})
		})

		convey.Convey("When shut down with a deadline", func() {
			convey.So(g.Start(context.Background()), convey.ShouldBeNil)
			convey.So(waitFor(func() bool { return a.Load() > 0 && b.Load() > 0 }), convey.ShouldBeTrue)
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			convey.Convey("Then every runner exits in time", func() {
				convey.So(g.Shutdown(ctx), convey.ShouldBeNil)
				convey.So(ra.Running() || rb.Running(), convey.ShouldBeFalse)
			})
		})
	})
}
