package worker

// day_report_worker.go
// Processes settlement-report jobs from QueueDayReport: renders the day's
// settlement snapshot as a PDF and mails it to the supervisors through the
// SMTP circuit breaker. Max 3 attempts, then the job moves to the DLQ.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tillpoint/internal/dto"
	"tillpoint/internal/infra"
	"tillpoint/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const maxReportAttempts = 3

// DayReportWorker renders and delivers day-close settlement reports.
type DayReportWorker struct {
	dayRepo     repository.DayRepository
	mailer      *infra.Mailer
	cb          *infra.CircuitBreaker
	rdb         *redis.Client
	recipients  []string
	storagePath string
}

func NewDayReportWorker(
	dayRepo repository.DayRepository,
	mailer *infra.Mailer,
	cb *infra.CircuitBreaker,
	rdb *redis.Client,
	recipients []string,
	storagePath string,
) *DayReportWorker {
	return &DayReportWorker{
		dayRepo:     dayRepo,
		mailer:      mailer,
		cb:          cb,
		rdb:         rdb,
		recipients:  recipients,
		storagePath: storagePath,
	}
}

// Process handles a single day_report job:
//  1. Load the closed DayRecord and its frozen settlement snapshot
//  2. Render the PDF
//  3. Send the email through the circuit breaker (max 3 attempts, backoff)
//  4. Stamp report_sent_at; exhausted jobs land in the DLQ
func (w *DayReportWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload DayReportPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("day_report_worker: invalid payload")
		return
	}
	dayID, err := uuid.Parse(payload.DayID)
	if err != nil {
		log.Error().Str("day_id", payload.DayID).Msg("day_report_worker: invalid day_id")
		return
	}

	day, err := w.dayRepo.FindByID(ctx, dayID)
	if err != nil {
		log.Error().Err(err).Str("day_id", payload.DayID).Msg("day_report_worker: day not found")
		return
	}
	if day.ReportSentAt != nil {
		// Already delivered — duplicate job (retry cron overlap), nothing to do.
		return
	}

	var summary dto.SettlementSummary
	if err := json.Unmarshal(day.SettlementSnapshot, &summary); err != nil {
		log.Error().Err(err).Str("day_id", payload.DayID).Msg("day_report_worker: corrupt settlement snapshot")
		return
	}

	pdfPath, err := infra.GenerateSettlementPDF(&summary, w.storagePath)
	if err != nil {
		log.Error().Err(err).Str("day_id", payload.DayID).Msg("day_report_worker: PDF generation failed")
		return
	}

	if len(w.recipients) == 0 {
		log.Warn().Str("day_id", payload.DayID).Msg("day_report_worker: no recipients configured — skipping email")
		return
	}

	subject := fmt.Sprintf("Settlement report %s — %s", summary.BusinessDate, summary.LocationID)
	body := fmt.Sprintf("Day close for %s on %s.\nNet variance: %s over %d session(s).",
		summary.LocationID, summary.BusinessDate,
		summary.Totals.Variance.StringFixed(2), len(summary.Sessions))

	var lastErr error
	for attempt := 1; attempt <= maxReportAttempts; attempt++ {
		lastErr = w.cb.Execute(func() error {
			return w.mailer.SendDayReport(w.recipients, subject, body, pdfPath)
		})
		if lastErr == nil {
			if err := w.dayRepo.MarkReportSent(ctx, dayID, time.Now()); err != nil {
				log.Error().Err(err).Str("day_id", payload.DayID).Msg("day_report_worker: mark report sent failed")
			}
			log.Info().Str("day_id", payload.DayID).Msg("day_report_worker: settlement report delivered")
			return
		}
		log.Warn().Err(lastErr).Int("attempt", attempt).Str("day_id", payload.DayID).
			Msg("day_report_worker: delivery failed")
		// Exponential backoff: 2s, 4s
		if attempt < maxReportAttempts {
			time.Sleep(time.Duration(1<<attempt) * time.Second)
		}
	}

	SendToDLQ(ctx, w.rdb, QueueDayReport, "day_report", raw, lastErr.Error(), maxReportAttempts)
}
