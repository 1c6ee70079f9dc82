package inflight_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/okian/cohort/internal/domain/inflight"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

func exerciseGuard(g inflight.Guard) {
	ctx := context.Background()

	Convey("When a semester is acquired", func() {
		ok, err := g.Acquire(ctx, "fall", "run-1")
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)
		So(g.Size(), ShouldEqual, 1)

		Convey("Then a second run for it is refused", func() {
			ok, err := g.Acquire(ctx, "fall", "run-2")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("Then another semester is independent", func() {
			ok, err := g.Acquire(ctx, "spring", "run-3")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(g.Size(), ShouldEqual, 2)
		})

		Convey("Then only the holder can release it", func() {
			So(errors.Is(g.Release(ctx, "fall", "run-2"), inflight.ErrNotHolder), ShouldBeTrue)
			So(g.Release(ctx, "fall", "run-1"), ShouldBeNil)
			So(g.Size(), ShouldEqual, 0)

			ok, err := g.Acquire(ctx, "fall", "run-2")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})
	})

	Convey("When the holder refreshes its key", func() {
		ok, err := g.Acquire(ctx, "autumn", "run-1")
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		Convey("Then the holder may and others may not", func() {
			So(g.Refresh(ctx, "autumn", "run-1"), ShouldBeNil)
			So(errors.Is(g.Refresh(ctx, "autumn", "run-2"), inflight.ErrNotHolder), ShouldBeTrue)
		})
	})

	Convey("When releasing a key nobody holds", func() {
		So(g.Release(ctx, "summer", "run-9"), ShouldBeNil)
	})
}

func TestMemoryGuard(t *testing.T) {
	Convey("Given a memory guard", t, func() {
		exerciseGuard(inflight.NewMemoryGuard())
	})

	Convey("Given many runs racing for one semester", t, func() {
		g := inflight.NewMemoryGuard()
		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := g.Acquire(context.Background(), "fall", "run"); ok {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one wins", func() {
			So(winners, ShouldEqual, 1)
		})
	})
}

func TestRedisGuard(t *testing.T) {
	Convey("Given a redis guard", t, func() {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		g := inflight.NewRedisGuard(client, inflight.WithTTL(time.Minute), inflight.WithKeyPrefix("test:"))
		exerciseGuard(g)

		Convey("When the holder disappears", func() {
			ok, err := g.Acquire(context.Background(), "winter", "run-1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(mr.Exists("test:winter"), ShouldBeTrue)

			mr.FastForward(2 * time.Minute)

			Convey("Then the key expires and can be taken again", func() {
				ok, err := g.Acquire(context.Background(), "winter", "run-2")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})
		})
	})

	Convey("Given a redis guard whose run outlives the ttl", t, func() {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		g := inflight.NewRedisGuard(client, inflight.WithTTL(time.Minute), inflight.WithKeyPrefix("test:"))
		ctx := context.Background()

		ok, err := g.Acquire(ctx, "fall", "run-1")
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		Convey("When the run starts near the end of the ttl and refreshes", func() {
			mr.FastForward(50 * time.Second)
			So(g.Refresh(ctx, "fall", "run-1"), ShouldBeNil)
			mr.FastForward(50 * time.Second)

			Convey("Then the key is still held", func() {
				So(mr.Exists("test:fall"), ShouldBeTrue)
				ok, err := g.Acquire(ctx, "fall", "run-2")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the key already lapsed before the refresh", func() {
			mr.FastForward(2 * time.Minute)
			So(mr.Exists("test:fall"), ShouldBeFalse)
			So(g.Refresh(ctx, "fall", "run-1"), ShouldBeNil)

			Convey("Then the holder owns it again", func() {
				v, err := mr.Get("test:fall")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, "run-1")
				So(mr.TTL("test:fall"), ShouldEqual, time.Minute)
			})
		})
	})

	Convey("Given an unreachable redis", t, func() {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
		defer client.Close()
		g := inflight.NewRedisGuard(client)

		Convey("Then acquire reports the error", func() {
			_, err := g.Acquire(context.Background(), "fall", "run-1")
			So(err, ShouldNotBeNil)
		})
	})
}
