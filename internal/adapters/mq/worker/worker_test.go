package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/cohort/internal/adapters/mq/queue"
	worker "github.com/okian/cohort/internal/adapters/mq/worker"
	model "github.com/okian/cohort/internal/domain/model"
	logging "github.com/okian/cohort/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	ch chan model.RunRequest
}

func newMockQueue() *mockQueue {
	return &mockQueue{ch: make(chan model.RunRequest, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan model.RunRequest { return mq.ch }

func (mq *mockQueue) Close() error {
	close(mq.ch)
	return nil
}

type mockRunner struct {
	mu       sync.Mutex
	executed []string
	aborted  map[string]error
	fail     map[string]error
	panics   map[string]bool
	gates    map[string]chan struct{}
	calls    chan string
}

func newMockRunner() *mockRunner {
	return &mockRunner{
		aborted: make(map[string]error),
		fail:    make(map[string]error),
		panics:  make(map[string]bool),
		gates:   make(map[string]chan struct{}),
		calls:   make(chan string, 10),
	}
}

func (m *mockRunner) Execute(_ context.Context, r model.RunRequest) error {
	defer func() { m.calls <- r.RunID }()
	m.mu.Lock()
	m.executed = append(m.executed, r.RunID)
	err, shouldPanic, gate := m.fail[r.RunID], m.panics[r.RunID], m.gates[r.RunID]
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if shouldPanic {
		panic("solver exploded")
	}
	return err
}

func (m *mockRunner) Abort(_ context.Context, r model.RunRequest, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborted[r.RunID] = err
}

func (m *mockRunner) started(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.executed {
		if e == id {
			return true
		}
	}
	return false
}

func (m *mockRunner) abortErr(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aborted[id]
}

func waitCall(m *mockRunner) string {
	select {
	case id := <-m.calls:
		return id
	case <-time.After(2 * time.Second):
		return ""
	}
}

func TestWorker(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a worker over a queue", t, func() {
		q := newMockQueue()
		runner := newMockRunner()
		w := worker.NewInMemoryWorker(q, runner, worker.WithName("test"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a request succeeds", func() {
			q.ch <- model.RunRequest{RunID: "ok"}
			convey.So(waitCall(runner), convey.ShouldEqual, "ok")

			convey.Convey("Then nothing is aborted", func() {
				time.Sleep(10 * time.Millisecond)
				convey.So(runner.abortErr("ok"), convey.ShouldBeNil)
			})
		})

		convey.Convey("When a request returns an error", func() {
			runner.fail["bad"] = errors.New("no source")
			q.ch <- model.RunRequest{RunID: "bad"}
			convey.So(waitCall(runner), convey.ShouldEqual, "bad")

			convey.Convey("Then the runner is told to abort it", func() {
				convey.So(eventually(func() bool { return runner.abortErr("bad") != nil }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a request panics", func() {
			runner.panics["boom"] = true
			q.ch <- model.RunRequest{RunID: "boom"}
			q.ch <- model.RunRequest{RunID: "after"}
			convey.So(waitCall(runner), convey.ShouldEqual, "boom")

			convey.Convey("Then the panic is recovered and the worker keeps going", func() {
				convey.So(waitCall(runner), convey.ShouldEqual, "after")
				convey.So(eventually(func() bool { return errors.Is(runner.abortErr("boom"), worker.ErrPanic) }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the worker is shut down", func() {
			err := w.Shutdown(context.Background())
			convey.So(err, convey.ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a pool of workers", t, func() {
		q := newMockQueue()
		runner := newMockRunner()
		pool := worker.NewPool(3, q, runner)
		convey.So(pool.Size(), convey.ShouldEqual, 3)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When requests are queued", func() {
			for _, id := range []string{"a", "b", "c", "d"} {
				q.ch <- model.RunRequest{RunID: id}
			}
			seen := map[string]bool{}
			for i := 0; i < 4; i++ {
				seen[waitCall(runner)] = true
			}

			convey.Convey("Then each is executed once", func() {
				convey.So(len(seen), convey.ShouldEqual, 4)
				convey.So(seen[""], convey.ShouldBeFalse)
			})

			convey.Convey("Then the pool shuts down cleanly", func() {
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a pool of two over an in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		runner := newMockRunner()
		gate := make(chan struct{})
		runner.gates["slow"] = gate
		pool := worker.NewPool(2, q, runner)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.So(q.Enqueue(ctx, model.RunRequest{RunID: "slow"}), convey.ShouldBeNil)
		convey.So(eventually(func() bool { return runner.started("slow") }), convey.ShouldBeTrue)

		convey.Convey("When more runs arrive while one worker is busy", func() {
			for _, id := range []string{"b", "c", "d"} {
				convey.So(q.Enqueue(ctx, model.RunRequest{RunID: id}), convey.ShouldBeNil)
			}

			convey.Convey("Then the idle worker runs all of them without waiting", func() {
				seen := map[string]bool{}
				deadline := time.After(500 * time.Millisecond)
			collect:
				for len(seen) < 3 {
					select {
					case id := <-runner.calls:
						seen[id] = true
					case <-deadline:
						break collect
					}
				}
				convey.So(seen, convey.ShouldResemble, map[string]bool{"b": true, "c": true, "d": true})

				close(gate)
				convey.So(waitCall(runner), convey.ShouldEqual, "slow")
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		pool := worker.NewPool(0, newMockQueue(), newMockRunner())
		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
	})
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
