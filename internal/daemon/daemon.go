package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"pagemill/internal/config"
	"pagemill/internal/logging"
	"pagemill/internal/pipeline"
	"pagemill/internal/store"
)

// Daemon coordinates background page processing and enforces
// single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	manager *pipeline.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Lanes        pipeline.Stats
	DatabasePath string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, manager *pipeline.Manager) (*Daemon, error) {
	if cfg == nil || st == nil || manager == nil {
		return nil, errors.New("daemon requires config, store, and pipeline manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "pagemill.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		manager:  manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and resumes queued work.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another pagemill instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)

	resumed, err := d.manager.ResumeQueue(runCtx)
	if err != nil {
		d.logger.Warn("resume queued pages failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "resume_failed"),
			logging.String(logging.FieldErrorHint, "check database access"),
		)
	}

	d.logger.Info("pagemill daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("resumed", resumed),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop cancels in-flight work and releases the daemon lock. Durable queue
// entries survive for the next start.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("pagemill daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"),
	)
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime information for the status command.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		Lanes:        d.manager.Stats(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
}
