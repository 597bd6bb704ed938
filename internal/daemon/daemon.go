package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"theftalert/internal/config"
	"theftalert/internal/ingest"
	"theftalert/internal/logging"
)

// Dependencies are the collaborators the daemon exposes over its ingress.
type Dependencies struct {
	Processor ingest.Processor
	// Health backs GET /healthz. Nil reports healthy.
	Health func(ctx context.Context) error
	// Metrics backs GET /metrics. Nil disables the route.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Daemon runs the ingress adapters and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	deps   Dependencies
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	mu       sync.Mutex
	server   *ingest.Server
	consumer *ingest.Consumer
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool   `json:"running"`
	HTTPAddr     string `json:"httpAddr,omitempty"`
	AMQPEnabled  bool   `json:"amqpEnabled"`
	LockFilePath string `json:"lockFilePath"`
	DatabasePath string `json:"databasePath"`
}

// New constructs a daemon. It does not acquire the lock until Start.
func New(cfg *config.Config, deps Dependencies) (*Daemon, error) {
	if cfg == nil || deps.Processor == nil {
		return nil, errors.New("daemon requires config and report processor")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		deps:     deps,
		logger:   logging.NewComponentLogger(deps.Logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the ingress adapters.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another theftalert daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	router := ingest.NewRouter(ingest.RouterOptions{
		Processor: d.deps.Processor,
		Metrics:   d.deps.Metrics,
		Health:    d.deps.Health,
		Logger:    d.deps.Logger,
	})
	server := ingest.NewServer(d.cfg.Ingest.HTTPBind, router, d.deps.Logger)
	if err := server.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start http ingress: %w", err)
	}
	d.server = server
	d.cancel = cancel

	if url := strings.TrimSpace(d.cfg.Ingest.AMQPURL); url != "" {
		d.consumer = ingest.NewConsumer(ingest.ConsumerOptions{
			URL:          url,
			Queue:        d.cfg.Ingest.AMQPQueue,
			Prefetch:     d.cfg.Ingest.AMQPPrefetch,
			EventTimeout: d.cfg.InvocationTimeout(),
		}, d.deps.Processor, d.deps.Logger)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.consumer.Run(runCtx); err != nil {
				d.logger.Error("amqp consumer stopped", logging.Error(err))
			}
		}()
	}

	d.running.Store(true)
	d.logger.Info("theftalert daemon started",
		logging.String("lock", d.lockPath),
		logging.String("http_addr", server.Addr()),
		logging.Bool("amqp", d.consumer != nil),
	)
	return nil
}

// Stop stops the ingress adapters and releases the daemon lock. In-flight
// HTTP requests are allowed to finish.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.server != nil {
		d.server.Stop()
	}
	d.wg.Wait()
	d.consumer = nil
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the stale lock file before restarting"),
		)
	}
	d.running.Store(false)
	d.logger.Info("theftalert daemon stopped")
}

// Status reports runtime information.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	status := Status{
		Running:      d.running.Load(),
		AMQPEnabled:  d.consumer != nil,
		LockFilePath: d.lockPath,
		DatabasePath: d.cfg.DatabasePath(),
	}
	if status.Running && d.server != nil {
		status.HTTPAddr = d.server.Addr()
	}
	return status
}
