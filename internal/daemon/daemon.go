package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"clipforge/internal/config"
	"clipforge/internal/library"
	"clipforge/internal/logging"
	"clipforge/internal/notify"
	"clipforge/internal/transcode"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *library.Store
	hub       *notify.Hub
	scheduler *transcode.Scheduler
	api       *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	LibraryDBPath string
	LockFilePath  string
	QueueDepth    int
	ItemCounts    library.HealthSummary
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *library.Store, hub *notify.Hub, scheduler *transcode.Scheduler, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || hub == nil || scheduler == nil {
		return nil, errors.New("daemon requires config, store, hub, and scheduler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "clipforged.lock")
	d := &Daemon{
		cfg:       cfg,
		logger:    logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:     store,
		hub:       hub,
		scheduler: scheduler,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock, launches the scheduler, re-admits items
// interrupted by a previous shutdown, and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipforge daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.scheduler.Start(runCtx); err != nil {
		d.releaseLock()
		cancel()
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := d.reconcile(runCtx); err != nil {
		d.logger.Warn("startup reconciliation incomplete", logging.Error(err))
	}
	if err := d.api.start(runCtx); err != nil {
		d.scheduler.Stop()
		d.releaseLock()
		cancel()
		return err
	}

	d.running.Store(true)
	d.logger.Info("clipforge daemon started", logging.String("lock", d.lockPath))
	return nil
}

// reconcile resets items left in the processing state by an earlier crash
// back to pending and queues them again.
func (d *Daemon) reconcile(ctx context.Context) error {
	ids, err := d.store.ResetStuckProcessing(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := d.scheduler.Enqueue(id); err != nil {
			d.logger.Warn("unable to re-admit interrupted item",
				logging.String(logging.FieldItemID, id),
				logging.Error(err))
			continue
		}
		d.logger.Info("re-admitted interrupted item", logging.String(logging.FieldItemID, id))
	}
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
	// Closing the hub first unblocks any connected event subscribers so the
	// HTTP server can drain promptly.
	d.hub.Close()
	d.api.stop()
	d.scheduler.Stop()
	d.releaseLock()
	d.running.Store(false)
	d.logger.Info("clipforge daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// APIAddr reports the bound API listener address, useful when the
// configuration asked for an ephemeral port.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status reports runtime information for the API and CLI.
func (d *Daemon) Status(ctx context.Context) Status {
	counts, err := d.store.Health(ctx)
	if err != nil {
		d.logger.Warn("library health query failed", logging.Error(err))
	}
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		LibraryDBPath: d.store.Path(),
		LockFilePath:  d.lockPath,
		QueueDepth:    d.scheduler.Depth(),
		ItemCounts:    counts,
	}
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}
