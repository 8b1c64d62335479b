package bootstrap

import (
	"context"
	"log/slog"

	"feedline/internal/config"
	"feedline/internal/middleware"
	"feedline/internal/observability"
	"feedline/internal/scheduler"
)

// RedeliveryJobName names the cron job that retries failed fanouts.
const RedeliveryJobName = "fanout-redelivery"

// InitTracing configures OpenTelemetry for the named process.
func InitTracing(cfg *config.Config, serviceName string) (func(context.Context) error, error) {
	return observability.InitTracing(observability.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
}

// RedeliveryJob runs one redelivery pass and logs its outcome.
func (rt *Runtime) RedeliveryJob() scheduler.Job {
	return func(ctx context.Context) error {
		stats, err := rt.RedeliveryService.RedeliverPending(ctx)
		if err != nil {
			return err
		}
		if stats.Resolved+stats.Retried+stats.Abandoned+stats.Dropped > 0 {
			middleware.Logger.InfoContext(ctx, "fanout redelivery pass",
				slog.Int("resolved", stats.Resolved),
				slog.Int("retried", stats.Retried),
				slog.Int("abandoned", stats.Abandoned),
				slog.Int("dropped", stats.Dropped),
			)
		}
		return nil
	}
}

// StartRedelivery schedules RedeliveryJob on FANOUT_REDELIVERY_SCHEDULE and
// starts the scheduler. Callers stop it on shutdown.
func (rt *Runtime) StartRedelivery() (*scheduler.Scheduler, error) {
	sched, err := scheduler.New(rt.Config.SchedulerTimezone)
	if err != nil {
		return nil, err
	}
	if err := sched.AddJob(RedeliveryJobName, rt.Config.FanoutRedeliverySchedule, rt.RedeliveryJob()); err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}
