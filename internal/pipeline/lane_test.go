package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pagemill/internal/pipeline"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLaneRunsTasksInSubmissionOrder(t *testing.T) {
	lane := pipeline.NewLane("recognition", 1, nil)

	var mu sync.Mutex
	var order []string
	for _, id := range []string{"a", "b", "c"} {
		id := id // per-iteration copy: go directive is below 1.22
		lane.Submit(id, func(ctx context.Context) error {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return nil
		})
	}
	lane.Wait()

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("tasks ran out of order: %v", order)
	}
}

func TestLaneBoundsConcurrency(t *testing.T) {
	lane := pipeline.NewLane("recognition", 2, nil)

	var current, peak int32
	release := make(chan struct{})
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		lane.Submit(id, func(ctx context.Context) error {
			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			<-release
			atomic.AddInt32(&current, -1)
			return nil
		})
	}

	waitFor(t, "two running tasks", func() bool {
		return lane.Stats().Running == 2
	})
	close(release)
	lane.Wait()

	if got := atomic.LoadInt32(&peak); got != 2 {
		t.Fatalf("peak concurrency %d, want 2", got)
	}
}

func TestLaneCancelThenReplaceKeepsSingleHandle(t *testing.T) {
	lane := pipeline.NewLane("recognition", 1, nil)

	firstStarted := make(chan struct{})
	firstDone := make(chan error, 1)
	lane.Submit("page", func(ctx context.Context) error {
		close(firstStarted)
		<-ctx.Done()
		firstDone <- ctx.Err()
		return ctx.Err()
	})
	<-firstStarted

	var replacementRan atomic.Bool
	lane.Submit("page", func(ctx context.Context) error {
		replacementRan.Store(true)
		return nil
	})

	// The replacement supersedes the running task immediately.
	if stats := lane.Stats(); stats.Effective != 1 {
		t.Fatalf("effective size %d after replace, want 1", stats.Effective)
	}
	select {
	case err := <-firstDone:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("superseded task saw %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("superseded task was not cancelled")
	}

	lane.Wait()
	if !replacementRan.Load() {
		t.Fatal("replacement task never ran")
	}
	if stats := lane.Stats(); stats.Effective != 0 {
		t.Fatalf("effective size %d after drain, want 0", stats.Effective)
	}
}

func TestLaneSkipsTaskCancelledBeforeStart(t *testing.T) {
	lane := pipeline.NewLane("recognition", 1, nil)

	release := make(chan struct{})
	lane.Submit("blocker", func(ctx context.Context) error {
		<-release
		return nil
	})

	var ran atomic.Bool
	lane.Submit("victim", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	if !lane.Cancel("victim") {
		t.Fatal("expected a live handle to cancel")
	}

	close(release)
	lane.Wait()
	if ran.Load() {
		t.Fatal("cancelled pending task must not run its body")
	}
}

func TestLaneDoubleSubmitWhilePendingRunsOnce(t *testing.T) {
	lane := pipeline.NewLane("recognition", 1, nil)

	release := make(chan struct{})
	lane.Submit("blocker", func(ctx context.Context) error {
		<-release
		return nil
	})

	var runs atomic.Int32
	task := func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}
	lane.Submit("page", task)
	lane.Submit("page", task)

	if stats := lane.Stats(); stats.Effective != 2 {
		t.Fatalf("effective size %d, want 2 (blocker plus one live handle)", stats.Effective)
	}

	close(release)
	lane.Wait()
	if got := runs.Load(); got != 1 {
		t.Fatalf("task body ran %d times, want 1", got)
	}
}

func TestLaneClearDropsPendingWork(t *testing.T) {
	lane := pipeline.NewLane("generation", 1, nil)

	started := make(chan struct{})
	lane.Submit("running", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	var ran atomic.Bool
	lane.Submit("pending", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	lane.Clear()
	lane.Wait()

	if ran.Load() {
		t.Fatal("cleared pending task must not run")
	}
	if stats := lane.Stats(); stats.Effective != 0 || stats.Pending != 0 {
		t.Fatalf("lane not empty after clear: %+v", stats)
	}
}

func TestLanePauseHoldsPendingUntilResume(t *testing.T) {
	lane := pipeline.NewLane("generation", 1, nil)
	lane.Pause()

	var ran atomic.Bool
	lane.Submit("page", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	time.Sleep(50 * time.Millisecond)
	if ran.Load() {
		t.Fatal("paused lane must not start tasks")
	}
	if stats := lane.Stats(); !stats.Paused || stats.Pending != 1 {
		t.Fatalf("unexpected paused stats: %+v", stats)
	}

	lane.Resume()
	lane.Wait()
	if !ran.Load() {
		t.Fatal("resume must admit held tasks")
	}
}

func TestLaneContinuesAfterTaskFailure(t *testing.T) {
	lane := pipeline.NewLane("recognition", 1, nil)

	lane.Submit("bad", func(ctx context.Context) error {
		return errors.New("engine exploded")
	})
	var ran atomic.Bool
	lane.Submit("good", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	lane.Wait()

	if !ran.Load() {
		t.Fatal("a failed task must not wedge the lane")
	}
}
