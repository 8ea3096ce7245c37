package app

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/dyt-client/internal/domain"
	"github.com/yourusername/dyt-client/pkg/logger"
)

// BatchSink receives the side effects of a playlist run
type BatchSink interface {
	// EntrySink returns the flow sink for one entry
	EntrySink(batchID string, index, total, successCount int, entry domain.PlaylistEntry) FlowSink

	// EntryFailed reports a skipped entry
	EntryFailed(index int, entry domain.PlaylistEntry, err error)

	// EntrySaved reports the automatic save of a finished entry
	EntrySaved(entry domain.PlaylistEntry, file *domain.SavedFile, err error)
}

// BatchRunner downloads playlist entries one after another
type BatchRunner struct {
	orchestrator *Orchestrator
	saver        domain.FileSaver
	config       domain.SessionConfig
	logger       *zap.Logger
	multiLogger  *logger.MultiLogger
}

// NewBatchRunner creates a new batch runner
func NewBatchRunner(
	orchestrator *Orchestrator,
	saver domain.FileSaver,
	config domain.SessionConfig,
	zapLogger *zap.Logger,
	multiLogger *logger.MultiLogger,
) *BatchRunner {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &BatchRunner{
		orchestrator: orchestrator,
		saver:        saver,
		config:       config,
		logger:       zapLogger,
		multiLogger:  multiLogger,
	}
}

// Run downloads every entry in order with the batch quality and no trim.
// Failed entries are skipped after a pause. A non-nil error means the run
// was canceled before the last entry; the report then covers what ran.
func (br *BatchRunner) Run(ctx context.Context, entries []domain.PlaylistEntry, format domain.FormatType, sink BatchSink) (BatchReport, error) {
	report := BatchReport{
		BatchID:    uuid.New().String(),
		TotalCount: len(entries),
	}

	quality := br.config.BatchQuality
	if quality == "" {
		quality = domain.DefaultQuality
	}

	br.logEvent("batch_started",
		zap.String("batch_id", report.BatchID),
		zap.Int("entries", len(entries)),
		zap.String("format", string(format)))

	for i, entry := range entries {
		req := domain.DownloadRequest{
			URL:        entry.URL,
			FormatType: format,
			Quality:    quality,
		}

		entrySink := sink.EntrySink(report.BatchID, i+1, len(entries), report.SuccessCount, entry)
		state, err := br.orchestrator.Run(ctx, req, entry.Title, report.BatchID, entrySink)
		if stopped(ctx, err) {
			return br.cancel(report, err)
		}

		if err == nil {
			report.SuccessCount++
			br.save(ctx, entry, state.TaskID, sink)
			if err := sleep(ctx, br.config.PlaylistSaveDelay); err != nil {
				return br.cancel(report, err)
			}
			continue
		}

		if !domain.IsItemFailure(err) {
			br.logger.Error("Unexpected playlist entry failure",
				zap.String("batch_id", report.BatchID),
				zap.String("url", entry.URL),
				zap.Error(err))
		}
		report.Failures = append(report.Failures, BatchFailure{Entry: entry, Message: domain.UserMessage(err)})
		sink.EntryFailed(i+1, entry, err)
		br.logEvent("batch_entry_failed",
			zap.String("batch_id", report.BatchID),
			zap.Int("index", i+1),
			zap.String("url", entry.URL),
			zap.String("error", domain.UserMessage(err)))

		if err := sleep(ctx, br.config.PlaylistErrorPause); err != nil {
			return br.cancel(report, err)
		}
	}

	br.logEvent("batch_completed",
		zap.String("batch_id", report.BatchID),
		zap.Int("success", report.SuccessCount),
		zap.Int("total", report.TotalCount))
	return report, nil
}

// save exports a finished entry unless the host already stored it
func (br *BatchRunner) save(ctx context.Context, entry domain.PlaylistEntry, taskID string, sink BatchSink) {
	if br.config.NativeHost || br.saver == nil {
		return
	}
	file, err := br.saver.Save(ctx, taskID)
	if err != nil {
		br.logger.Warn("Failed to save playlist entry", zap.String("task_id", taskID), zap.Error(err))
	}
	sink.EntrySaved(entry, file, err)
}

func (br *BatchRunner) cancel(report BatchReport, err error) (BatchReport, error) {
	report.Canceled = true
	br.logEvent("batch_canceled",
		zap.String("batch_id", report.BatchID),
		zap.Int("success", report.SuccessCount),
		zap.Int("total", report.TotalCount))
	return report, err
}

func (br *BatchRunner) logEvent(event string, fields ...zap.Field) {
	if br.multiLogger != nil {
		br.multiLogger.LogSessionEvent(event, fields...)
	}
}

// stopped reports whether err ends the whole run rather than one entry
func stopped(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, domain.ErrSuperseded)
}
