package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"pagemill/internal/logging"
	"pagemill/internal/services"
)

// Task is one unit of lane work. The context is cancelled when the task is
// superseded, cancelled explicitly, or the lane shuts down.
type Task func(ctx context.Context) error

// LaneStats is a point-in-time snapshot of lane occupancy. Effective counts
// live cancellation tokens, which is the number of pages the lane currently
// has a handle for (pending or running).
type LaneStats struct {
	Name      string
	Effective int
	Pending   int
	Running   int
	Paused    bool
}

// laneToken tracks the live task handle for one page. Generations
// disambiguate rapid cancel-then-replace cycles: a completing task only
// untracks the token it was started with.
type laneToken struct {
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
}

type queuedTask struct {
	pageID string
	token  *laneToken
	run    Task
}

// Lane runs tasks with bounded concurrency, admitting pending work in FIFO
// order as running slots free up.
type Lane struct {
	name   string
	limit  int
	logger *slog.Logger

	mu         sync.Mutex
	tokens     map[string]*laneToken
	pending    []*queuedTask
	running    int
	paused     bool
	generation uint64
	wg         sync.WaitGroup
}

// NewLane constructs a lane with the given concurrency limit.
func NewLane(name string, limit int, logger *slog.Logger) *Lane {
	if limit < 1 {
		limit = 1
	}
	return &Lane{
		name:   name,
		limit:  limit,
		logger: logging.NewComponentLogger(logger, "lane").With(logging.String(logging.FieldLane, name)),
		tokens: make(map[string]*laneToken),
	}
}

// Submit enqueues a task for the page. Any live task for the same page is
// cancelled first, then the replacement is tracked and queued; the page never
// holds more than one live handle in this lane.
func (l *Lane) Submit(pageID string, run Task) {
	ctx, cancel := context.WithCancel(context.Background())

	l.mu.Lock()
	if prev, ok := l.tokens[pageID]; ok {
		prev.cancel()
	}
	l.generation++
	token := &laneToken{generation: l.generation, ctx: ctx, cancel: cancel}
	l.tokens[pageID] = token
	l.pending = append(l.pending, &queuedTask{pageID: pageID, token: token, run: run})
	l.wg.Add(1)
	l.dispatchLocked()
	l.mu.Unlock()
}

// Cancel cancels the live task for a page, if any. The task body observes
// cancellation through its context; a pending task that has not started yet
// is skipped at start.
func (l *Lane) Cancel(pageID string) bool {
	l.mu.Lock()
	token, ok := l.tokens[pageID]
	if ok {
		delete(l.tokens, pageID)
	}
	l.mu.Unlock()

	if !ok {
		return false
	}
	token.cancel()
	return true
}

// Clear cancels every live task and drops all pending work.
func (l *Lane) Clear() {
	l.mu.Lock()
	for pageID, token := range l.tokens {
		token.cancel()
		delete(l.tokens, pageID)
	}
	dropped := l.pending
	l.pending = nil
	l.mu.Unlock()

	for range dropped {
		l.wg.Done()
	}
}

// Pause stops admitting pending tasks. Running tasks are unaffected.
func (l *Lane) Pause() {
	l.mu.Lock()
	l.paused = true
	l.mu.Unlock()
}

// Resume restarts admission and immediately fills free slots.
func (l *Lane) Resume() {
	l.mu.Lock()
	l.paused = false
	l.dispatchLocked()
	l.mu.Unlock()
}

// Stats returns a snapshot of lane occupancy.
func (l *Lane) Stats() LaneStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LaneStats{
		Name:      l.name,
		Effective: len(l.tokens),
		Pending:   len(l.pending),
		Running:   l.running,
		Paused:    l.paused,
	}
}

// Wait blocks until every submitted task has finished or been dropped.
func (l *Lane) Wait() {
	l.wg.Wait()
}

// dispatchLocked starts pending tasks while free slots remain. Callers must
// hold l.mu.
func (l *Lane) dispatchLocked() {
	for !l.paused && l.running < l.limit && len(l.pending) > 0 {
		next := l.pending[0]
		l.pending = l.pending[1:]
		l.running++
		go l.execute(next)
	}
}

func (l *Lane) execute(task *queuedTask) {
	defer l.wg.Done()
	err := l.invoke(task)

	l.mu.Lock()
	// Only untrack the token this task was started with; a replacement
	// submitted mid-run owns the slot now.
	if current, ok := l.tokens[task.pageID]; ok && current == task.token {
		delete(l.tokens, task.pageID)
	}
	l.running--
	l.dispatchLocked()
	l.mu.Unlock()

	switch {
	case err == nil:
	case services.IsCancellation(err):
		l.logger.Info("task cancelled",
			logging.String(logging.FieldPageID, task.pageID),
			logging.String(logging.FieldEventType, "task_cancelled"),
		)
	default:
		l.logger.Error("task failed",
			logging.String(logging.FieldPageID, task.pageID),
			logging.String(logging.FieldEventType, "task_failed"),
			logging.Error(err),
		)
	}
}

func (l *Lane) invoke(task *queuedTask) error {
	// A task cancelled while still pending is skipped without running its
	// body.
	if err := task.token.ctx.Err(); err != nil {
		return err
	}
	defer task.token.cancel()
	return task.run(task.token.ctx)
}
