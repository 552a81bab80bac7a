package worker

// retry_cron.go
// Background goroutine that periodically re-enqueues settlement-report jobs
// for days that are closed but whose report never went out (worker crash,
// relay outage longer than the in-job retries). Uses the Circuit Breaker to
// avoid hammering a downed SMTP relay.

import (
	"context"
	"time"

	"tillpoint/internal/infra"
	"tillpoint/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = time.Minute
	retryBatchSize    = 10
	// retryMinAge keeps the cron from racing the just-enqueued job for a
	// freshly closed day.
	retryMinAge = 5 * time.Minute
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	DayRepo    repository.DayRepository
	Dispatcher *Dispatcher
	CB         *infra.CircuitBreaker
}

// StartRetryCron launches a background goroutine that ticks every minute,
// queries unreported closed days, and re-enqueues their report jobs.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	// If CB is open, skip entirely — don't hammer a downed relay
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	days, err := cfg.DayRepo.ListClosedUnreported(ctx, time.Now().Add(-retryMinAge), retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query unreported days")
		return
	}
	if len(days) == 0 {
		return
	}

	log.Info().Int("count", len(days)).Msg("retry_cron: re-enqueueing settlement reports")
	for i := range days {
		if err := cfg.Dispatcher.EnqueueDayReport(ctx, days[i].ID); err != nil {
			log.Error().Err(err).Str("day_id", days[i].ID.String()).Msg("retry_cron: enqueue failed")
		}
	}
}
