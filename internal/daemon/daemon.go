package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"shortcast/internal/config"
	"shortcast/internal/jobs"
	"shortcast/internal/logging"
	"shortcast/internal/uploadqueue"
	"shortcast/internal/workflow"
)

// Daemon coordinates background processing and enforces single-instance
// execution through a file lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	queue    *uploadqueue.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workflow     workflow.Status
	JobDBPath    string
	QueuePath    string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, queue *uploadqueue.Store, wf *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || queue == nil || wf == nil || logger == nil {
		return nil, errors.New("daemon requires config, stores, workflow manager, and logger")
	}
	lockPath := filepath.Join(cfg.Paths.DataDir, "shortcastd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		queue:    queue,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shortcast daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start workflow: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("shortcast daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("shortcast daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime state for the CLI status command.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	wfStatus, err := d.workflow.Snapshot(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:      d.running.Load(),
		Workflow:     wfStatus,
		JobDBPath:    d.store.Path(),
		QueuePath:    d.queue.Path(),
		LockFilePath: d.lockPath,
	}, nil
}
