package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"shortcast/internal/config"
	"shortcast/internal/generation"
	"shortcast/internal/jobs"
	"shortcast/internal/logging"
	"shortcast/internal/notify"
	"shortcast/internal/publish"
	"shortcast/internal/retrypolicy"
	"shortcast/internal/uploadqueue"
)

// Manager runs the job pipeline and the background sweeps. A single worker
// goroutine processes jobs serially; cron entries drive the publish, retry,
// and retention sweeps on their own schedules.
type Manager struct {
	cfg       *config.Config
	store     *jobs.Store
	queue     *uploadqueue.Store
	generator generation.Service
	publisher publish.Service
	notifier  notify.Service
	policy    retrypolicy.Policy
	logger    *slog.Logger

	pollInterval time.Duration
	errorRetry   time.Duration
	interval     time.Duration
	tolerance    time.Duration

	cron *cron.Cron

	mu         sync.RWMutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	lastErr    error
	currentJob string
}

// NewManager constructs a workflow manager. The notifier may be a noop
// implementation; the other collaborators are required.
func NewManager(
	cfg *config.Config,
	store *jobs.Store,
	queue *uploadqueue.Store,
	generator generation.Service,
	publisher publish.Service,
	notifier notify.Service,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		cfg:          cfg,
		store:        store,
		queue:        queue,
		generator:    generator,
		publisher:    publisher,
		notifier:     notifier,
		policy:       retrypolicy.FromConfig(cfg.Workflow),
		logger:       logging.WithComponent(logger, "workflow"),
		pollInterval: time.Duration(cfg.Workflow.JobPollInterval) * time.Second,
		errorRetry:   time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		interval:     time.Duration(cfg.Scheduling.IntervalHours * float64(time.Hour)),
		tolerance:    time.Duration(cfg.Workflow.PublishToleranceMinutes) * time.Minute,
	}
}

// Start begins the worker loop and the sweep schedule.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.cron = cron.New()
	if err := m.registerSweeps(runCtx); err != nil {
		m.running = false
		m.cancel = nil
		m.mu.Unlock()
		cancel()
		return err
	}

	m.wg.Add(1)
	m.mu.Unlock()

	m.cron.Start()
	go m.runJobLoop(runCtx)
	return nil
}

// Stop terminates background processing and waits for in-flight work.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	cronRunner := m.cron
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	if cronRunner != nil {
		<-cronRunner.Stop().Done()
	}
	m.wg.Wait()
}

// Running reports whether the manager has been started and not stopped.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Status reports a point-in-time view of the manager.
type Status struct {
	Running    bool
	CurrentJob string
	LastError  string
	JobStats   map[jobs.Status]int
	QueueStats map[uploadqueue.Status]int
}

// Snapshot returns the manager status plus store statistics.
func (m *Manager) Snapshot(ctx context.Context) (Status, error) {
	m.mu.RLock()
	status := Status{
		Running:    m.running,
		CurrentJob: m.currentJob,
	}
	if m.lastErr != nil {
		status.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()

	jobStats, err := m.store.Stats(ctx)
	if err != nil {
		return status, err
	}
	status.JobStats = jobStats
	status.QueueStats = m.queue.Stats()
	return status, nil
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setCurrentJob(id string) {
	m.mu.Lock()
	m.currentJob = id
	m.mu.Unlock()
}
