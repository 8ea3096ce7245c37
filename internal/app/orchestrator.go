package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/dyt-client/internal/domain"
	"github.com/yourusername/dyt-client/pkg/logger"
)

// FlowSink receives the side effects of one download flow. Every method
// returns domain.ErrSuperseded, or drops the call, once the flow is stale.
type FlowSink interface {
	// TaskStarted records the task id the service assigned
	TaskStarted(taskID string) error

	// Attach takes ownership of the progress channel
	Attach(ch domain.ProgressChannel) error

	// Release closes ch if it is still owned by this flow
	Release(ch domain.ProgressChannel)

	// Publish shows the current flow state
	Publish(state domain.FlowState)
}

// Orchestrator drives one download from request to terminal state
type Orchestrator struct {
	service     domain.VideoService
	dialer      domain.ProgressDialer
	records     domain.TaskRepository
	logger      *zap.Logger
	multiLogger *logger.MultiLogger
}

// NewOrchestrator creates a new orchestrator. records and multiLogger may
// be nil.
func NewOrchestrator(
	service domain.VideoService,
	dialer domain.ProgressDialer,
	records domain.TaskRepository,
	zapLogger *zap.Logger,
	multiLogger *logger.MultiLogger,
) *Orchestrator {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &Orchestrator{
		service:     service,
		dialer:      dialer,
		records:     records,
		logger:      zapLogger,
		multiLogger: multiLogger,
	}
}

// Run starts the download and streams its progress until a terminal event,
// a channel failure or ctx cancellation. The returned error is nil only
// for a completed flow.
func (o *Orchestrator) Run(ctx context.Context, req domain.DownloadRequest, title, batchID string, sink FlowSink) (domain.FlowState, error) {
	state := domain.NewFlowState(req.FormatType, title)

	if !domain.ValidateFormatType(req.FormatType) {
		err := &domain.ValidationError{Field: "format", Message: fmt.Sprintf("unsupported format %q", req.FormatType)}
		state.MarkFailed(err)
		sink.Publish(state)
		return state, err
	}

	record := domain.NewTaskRecord(req, title, batchID)
	o.createRecord(record)

	taskID, err := o.service.StartDownload(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return o.abandon(state, record, ctx.Err())
		}
		return o.fail(state, record, sink, err)
	}

	if err := sink.TaskStarted(taskID); err != nil {
		return o.abandon(state, record, err)
	}
	if err := state.MarkStarting(taskID); err != nil {
		return state, err
	}
	record.MarkStreaming(taskID)
	o.updateRecord(record)
	o.logEvent("download_started",
		zap.String("task_id", taskID),
		zap.String("url", req.URL),
		zap.String("format", string(req.FormatType)),
		zap.String("quality", req.Quality),
		zap.String("batch_id", batchID))
	sink.Publish(state)

	ch, err := o.dialer.Dial(ctx, taskID)
	if err != nil {
		if ctx.Err() != nil {
			return o.abandon(state, record, ctx.Err())
		}
		return o.fail(state, record, sink, err)
	}
	if err := sink.Attach(ch); err != nil {
		return o.abandon(state, record, err)
	}
	defer sink.Release(ch)

	for {
		event, err := ch.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return o.abandon(state, record, ctx.Err())
			}
			var unknown *domain.UnknownStatusError
			if errors.As(err, &unknown) {
				o.logger.Warn("Ignoring progress message",
					zap.String("task_id", taskID),
					zap.String("status", unknown.Status))
				continue
			}
			sink.Release(ch)
			return o.fail(state, record, sink, err)
		}

		if err := state.Apply(event); err != nil {
			o.logger.Warn("Dropping progress event", zap.String("task_id", taskID), zap.Error(err))
			continue
		}
		sink.Publish(state)

		if !state.Phase.IsTerminal() {
			continue
		}

		sink.Release(ch)
		if state.Phase == domain.PhaseError {
			record.MarkFailed(state.Err)
			o.updateRecord(record)
			o.logEvent("download_failed", zap.String("task_id", taskID), zap.String("error", domain.UserMessage(state.Err)))
			return state, state.Err
		}

		record.MarkCompleted(state.Filename)
		o.updateRecord(record)
		o.logEvent("download_completed", zap.String("task_id", taskID), zap.String("filename", state.Filename))
		return state, nil
	}
}

// fail moves the flow to the error phase outside of a channel event
func (o *Orchestrator) fail(state domain.FlowState, record *domain.TaskRecord, sink FlowSink, err error) (domain.FlowState, error) {
	state.MarkFailed(err)
	sink.Publish(state)

	record.MarkFailed(err)
	o.updateRecord(record)

	o.logger.Warn("Download failed",
		zap.String("task_id", state.TaskID),
		zap.String("url", record.URL),
		zap.Error(err))
	o.logEvent("download_failed", zap.String("task_id", state.TaskID), zap.String("error", domain.UserMessage(err)))
	return state, err
}

// abandon records a flow that stopped because it was replaced or canceled
func (o *Orchestrator) abandon(state domain.FlowState, record *domain.TaskRecord, err error) (domain.FlowState, error) {
	record.MarkFailed(fmt.Errorf("abandoned: %w", err))
	o.updateRecord(record)
	o.logger.Debug("Download flow abandoned", zap.String("task_id", state.TaskID), zap.Error(err))
	return state, err
}

func (o *Orchestrator) createRecord(record *domain.TaskRecord) {
	if o.records == nil {
		return
	}
	if err := o.records.Create(record); err != nil {
		o.logger.Error("Failed to create task record", zap.String("url", record.URL), zap.Error(err))
	}
}

func (o *Orchestrator) updateRecord(record *domain.TaskRecord) {
	if o.records == nil {
		return
	}
	if err := o.records.Update(record); err != nil {
		o.logger.Error("Failed to update task record", zap.String("id", record.ID), zap.Error(err))
	}
}

func (o *Orchestrator) logEvent(event string, fields ...zap.Field) {
	if o.multiLogger != nil {
		o.multiLogger.LogSessionEvent(event, fields...)
	}
}
