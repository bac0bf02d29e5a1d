package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/CrazyWorldPL/IVshop/internal/database"
	"github.com/CrazyWorldPL/IVshop/internal/metrics"
)

// StatusRefresher periodically copies status API data onto every server.
// It runs detached from request handling; failures are logged and skipped.
type StatusRefresher struct {
	servers  *database.ServerRepository
	status   StatusChecker
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewStatusRefresher creates a refresher running on schedule (cron spec or @every).
func NewStatusRefresher(servers *database.ServerRepository, status StatusChecker, schedule string, logger *slog.Logger) *StatusRefresher {
	cronLogger := cronLogger{logger: logger}
	return &StatusRefresher{
		servers:  servers,
		status:   status,
		schedule: schedule,
		timeout:  2 * time.Minute,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger: logger,
	}
}

// Start schedules the job and runs a first refresh in the background.
func (r *StatusRefresher) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.run); err != nil {
		return fmt.Errorf("invalid status refresh schedule %q: %w", r.schedule, err)
	}

	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("Status refresh panicked", "panic", p)
			}
		}()
		r.run()
	}()

	r.cron.Start()
	r.logger.Info("Status refresher started", "schedule", r.schedule)
	return nil
}

// Stop waits for a running refresh to finish.
func (r *StatusRefresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("Status refresher stopped")
}

func (r *StatusRefresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	r.RefreshAll(ctx)
}

// RefreshAll refreshes every server once and returns how many succeeded.
func (r *StatusRefresher) RefreshAll(ctx context.Context) int {
	servers, err := r.servers.FindAll(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to load servers for status refresh", "error", err)
		return 0
	}

	refreshed := 0
	for _, server := range servers {
		if ctx.Err() != nil {
			break
		}
		status, err := r.status.Status(ctx, server.IP)
		if err != nil {
			r.logger.WarnContext(ctx, "Status lookup failed", "server_id", server.ID, "ip", server.IP, "error", err)
			metrics.RecordStatusRefresh(metrics.ResultError)
			continue
		}
		if err := r.servers.UpdateStatus(ctx, server.ID, *status); err != nil {
			r.logger.ErrorContext(ctx, "Failed to store server status", "server_id", server.ID, "error", err)
			metrics.RecordStatusRefresh(metrics.ResultError)
			continue
		}
		metrics.RecordStatusRefresh(metrics.ResultSuccess)
		refreshed++
	}

	r.logger.DebugContext(ctx, "Status refresh finished", "servers", len(servers), "refreshed", refreshed)
	return refreshed
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
