package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/servibot/quoteflow/internal/api"
	"github.com/servibot/quoteflow/internal/app/quotation"
	"github.com/servibot/quoteflow/internal/health"
	"github.com/servibot/quoteflow/internal/infra/metrics"
	"github.com/servibot/quoteflow/internal/infra/notify"
	"github.com/servibot/quoteflow/internal/infra/odoo"
	"github.com/servibot/quoteflow/internal/infra/retry"
	"github.com/servibot/quoteflow/internal/infra/sqlite"
	"github.com/servibot/quoteflow/internal/infra/tracker"
)

// Daemon is the QuoteFlow runtime. It wires together all services.
type Daemon struct {
	Config   Config
	Logger   *slog.Logger
	DB       *sqlite.DB
	Tasks    *tracker.Registry
	Executor *quotation.Executor
	Server   *api.Server
	Health   *health.Checker

	crmMu  sync.Mutex
	crm    *odoo.Client // nil until the first workflow connects
	cancel context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	logger := newLogger(cfg.Logging)

	db, err := sqlite.Open(Home())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	tasks := tracker.New()
	notifier := notify.NewTwilio(notify.Config{
		AccountSID: cfg.Notify.AccountSID,
		AuthToken:  cfg.Notify.AuthToken,
		From:       cfg.Notify.From,
		DefaultTo:  cfg.Notify.DefaultTo,
	}, logger.With("component", "notify"))

	d := &Daemon{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Tasks:  tasks,
	}

	d.Executor = quotation.NewExecutor(quotation.ExecutorConfig{
		Connect:  d.connectCRM,
		Tasks:    tasks,
		Notifier: notifier,
		Audit:    db,
		Retry:    retry.DefaultConfig(),
		Sales: quotation.SalesConfig{
			TeamIDs:          cfg.Sales.TeamIDs,
			ActiveStageIDs:   cfg.Sales.ActiveStageIDs,
			QualifiedStageID: cfg.Sales.QualifiedStageID,
			PricelistID:      cfg.Sales.PricelistID,
		},
		Logger: logger.With("component", "quotation"),
	})

	srv := api.NewServer(tasks, d.Executor, logger.With("component", "api"))
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	d.Server = srv

	d.Health = health.NewChecker(db, crmPing{d})
	srv.SetHealthChecker(d.Health)

	return d, nil
}

// crmPing probes the CRM once a connection exists. Before the first
// workflow dials, there is nothing to check and the probe passes.
type crmPing struct{ d *Daemon }

func (p crmPing) Ping() error {
	p.d.crmMu.Lock()
	client := p.d.crm
	p.d.crmMu.Unlock()
	if client == nil {
		return nil
	}
	return client.Ping()
}

// connectCRM dials Odoo lazily and reuses the authenticated client.
// A failed dial is returned to the retry layer, so transient outages
// at startup do not wedge the daemon.
func (d *Daemon) connectCRM() (quotation.CRM, error) {
	d.crmMu.Lock()
	defer d.crmMu.Unlock()
	if d.crm != nil {
		return d.crm, nil
	}
	client, err := odoo.Dial(odoo.Config{
		URL:      d.Config.Odoo.URL,
		Database: d.Config.Odoo.Database,
		Login:    d.Config.Odoo.Login,
		APIKey:   d.Config.Odoo.APIKey,
	})
	if err != nil {
		return nil, err
	}
	d.crm = client
	return client, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)
	go d.cleanupLoop(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	d.Logger.Info("quoteflow serving", "addr", addr)
	if d.Config.Telemetry.Prometheus {
		d.Logger.Info("metrics enabled", "url", fmt.Sprintf("http://%s/metrics", addr))
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// cleanupLoop periodically drops aged terminal task records and prunes
// the audit trail.
func (d *Daemon) cleanupLoop(ctx context.Context) {
	interval := time.Duration(d.Config.Tasks.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	maxAge := time.Duration(d.Config.Tasks.CleanupMaxAgeHours) * time.Hour
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	retention := time.Duration(d.Config.Tasks.AuditRetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := d.Tasks.Cleanup(maxAge)
			if removed > 0 {
				metrics.TasksCleaned.Add(float64(removed))
				d.Logger.Info("task cleanup", "removed", removed)
			}
			if retention > 0 {
				if purged, err := d.DB.PurgeAudits(retention); err != nil {
					d.Logger.Warn("audit purge failed", "error", err)
				} else if purged > 0 {
					d.Logger.Info("audit purge", "removed", purged)
				}
			}
		}
	}
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.crm != nil {
		_ = d.crm.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}

// newLogger builds the slog handler from logging config.
func newLogger(cfg LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := os.Stderr
	if cfg.File != "" {
		if f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			out = f
		}
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}
