package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/dyt-client/internal/domain"
	"github.com/yourusername/dyt-client/pkg/logger"
)

// ErrControllerClosed is returned by entry points called after Close
var ErrControllerClosed = errors.New("controller closed")

type view int

const (
	viewIdle view = iota
	viewSearch
	viewVideo
	viewPlaylist
	viewDownload
	viewBatch
	viewBatchComplete
)

// ControllerDeps groups the collaborators of a Controller. Records,
// Notifier and MultiLogger are optional.
type ControllerDeps struct {
	Service     domain.VideoService
	Dialer      domain.ProgressDialer
	Saver       domain.FileSaver
	Records     domain.TaskRepository
	Presenter   Presenter
	Notifier    Notifier
	Config      domain.SessionConfig
	Logger      *zap.Logger
	MultiLogger *logger.MultiLogger
}

// Controller owns the session and turns user actions into flows. Entry
// points are expected to be called from one goroutine; download flows run
// on their own goroutines and mutate the session under mu.
type Controller struct {
	mu           sync.Mutex
	session      *domain.Session
	trim         *domain.TrimController
	metadata     *MetadataFlow
	orchestrator *Orchestrator
	batch        *BatchRunner
	saver        domain.FileSaver
	records      domain.TaskRepository
	presenter    Presenter
	notifier     Notifier
	scheduler    *Scheduler
	config       domain.SessionConfig
	logger       *zap.Logger
	multiLogger  *logger.MultiLogger

	ctx        context.Context
	cancel     context.CancelFunc
	flowGen    uint64
	flowCancel context.CancelFunc
	flowWg     sync.WaitGroup
	closed     bool

	view     view
	video    *domain.VideoMetadata
	playlist *domain.PlaylistMetadata
	flow     domain.FlowState
}

// NewController creates a controller with a fresh session
func NewController(deps ControllerDeps) *Controller {
	zapLogger := deps.Logger
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}

	orchestrator := NewOrchestrator(deps.Service, deps.Dialer, deps.Records, zapLogger, deps.MultiLogger)
	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		session:      domain.NewSession(),
		trim:         domain.NewTrimController(),
		metadata:     NewMetadataFlow(deps.Service, zapLogger),
		orchestrator: orchestrator,
		batch:        NewBatchRunner(orchestrator, deps.Saver, deps.Config, zapLogger, deps.MultiLogger),
		saver:        deps.Saver,
		records:      deps.Records,
		presenter:    deps.Presenter,
		notifier:     deps.Notifier,
		scheduler:    NewScheduler(),
		config:       deps.Config,
		logger:       zapLogger,
		multiLogger:  deps.MultiLogger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// SessionState is a read-only snapshot of the session
type SessionState struct {
	ActiveTaskID          string
	SelectedQuality       string
	TargetURL             string
	IsPlaylist            bool
	IsBatchDownloadActive bool
	HasOpenChannel        bool
	HasCachedResults      bool
	CachedSearchQuery     string
	Formats               []domain.FormatOption
	Trim                  TrimView
	Flow                  domain.FlowState
}

// State returns a snapshot of the session
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SessionState{
		ActiveTaskID:          c.session.ActiveTaskID,
		SelectedQuality:       c.session.SelectedQuality,
		TargetURL:             c.session.TargetURL,
		IsPlaylist:            c.session.IsPlaylist(),
		IsBatchDownloadActive: c.session.IsBatchDownloadActive,
		HasOpenChannel:        c.session.HasOpenChannel(),
		HasCachedResults:      c.session.HasCachedResults(),
		CachedSearchQuery:     c.session.CachedSearchQuery,
		Formats:               append([]domain.FormatOption(nil), c.session.AvailableFormats...),
		Trim:                  trimView(c.trim),
		Flow:                  c.flow,
	}
}

// OnInputChanged reacts to every edit of the input. Empty input hides the
// views; a direct video reference is analyzed immediately.
func (c *Controller) OnInputChanged(text string) error {
	kind := domain.Classify(text)
	switch {
	case kind == domain.InputEmpty:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return ErrControllerClosed
		}
		c.view = viewIdle
		c.presenter.ShowIdle()
		return nil
	case kind.IsDirect():
		return c.analyze(strings.TrimSpace(text))
	default:
		return nil
	}
}

// OnAnalyzeRequested analyzes a direct reference or searches for a query
func (c *Controller) OnAnalyzeRequested(text string) error {
	text = strings.TrimSpace(text)
	switch kind := domain.Classify(text); {
	case kind == domain.InputEmpty:
		return nil
	case kind == domain.InputTooShort:
		_, err := c.metadata.Resolve(c.ctx, text)
		c.toast(ToastInfo, domain.UserMessage(err))
		return err
	case kind.IsDirect():
		return c.analyze(text)
	default:
		return c.search(text)
	}
}

// OnSearchResultSelected analyzes one of the cached search results
func (c *Controller) OnSearchResultSelected(index int) error {
	c.mu.Lock()
	results := c.session.CachedSearchResults
	if index < 0 || index >= len(results) {
		c.mu.Unlock()
		return &domain.ValidationError{Field: "result", Message: fmt.Sprintf("no search result #%d", index+1)}
	}
	url := results[index].URL
	c.mu.Unlock()

	return c.analyze(url)
}

// OnBackToResults shows the cached search results again
func (c *Controller) OnBackToResults() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrControllerClosed
	}
	if !c.session.HasCachedResults() {
		return &domain.ValidationError{Message: "there are no search results to go back to"}
	}
	if c.flow.Phase.IsActive() || c.session.IsBatchDownloadActive {
		c.supersedeFlowLocked()
	}

	c.view = viewSearch
	c.presenter.ShowSearchResults(SearchView{
		Query:   c.session.CachedSearchQuery,
		Results: c.session.CachedSearchResults,
	})
	return nil
}

// OnQualitySelected changes the quality used by the next download
func (c *Controller) OnQualitySelected(quality string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.session.SelectQuality(quality); err != nil {
		c.presenter.Toast(ToastWarning, domain.UserMessage(err))
		return err
	}
	if c.view == viewVideo {
		c.presenter.ShowVideoInfo(c.videoViewLocked())
	}
	return nil
}

// OnTrimToggled enables or disables trimming of the next download
func (c *Controller) OnTrimToggled(enabled bool) error {
	return c.editTrim(func(tc *domain.TrimController) { tc.SetEnabled(enabled) })
}

// OnTrimBoundChanged moves a trim slider
func (c *Controller) OnTrimBoundChanged(which domain.TrimBound, seconds int) error {
	return c.editTrim(func(tc *domain.TrimController) { tc.Move(which, seconds) })
}

// OnTrimTextChanged applies an edited trim time label
func (c *Controller) OnTrimTextChanged(which domain.TrimBound, text string) error {
	return c.editTrim(func(tc *domain.TrimController) { tc.SetFromText(which, text) })
}

func (c *Controller) editTrim(edit func(tc *domain.TrimController)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.session.Target.(domain.SingleVideo); !ok {
		return domain.ErrNoTarget
	}
	edit(c.trim)
	c.presenter.ShowTrim(trimView(c.trim))
	return nil
}

// OnDownloadRequested starts a download of the current target. A playlist
// starts a batch run. The flow runs in the background; Wait blocks until
// it ends.
func (c *Controller) OnDownloadRequested(format domain.FormatType) error {
	if !domain.ValidateFormatType(format) {
		return &domain.ValidationError{Field: "format", Message: fmt.Sprintf("unsupported format %q", format)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrControllerClosed
	}
	if c.session.Target == nil {
		c.presenter.Toast(ToastWarning, "Analyze a video first")
		return domain.ErrNoTarget
	}

	c.supersedeFlowLocked()
	c.scheduler.CancelAll()
	c.session.ActiveTaskID = ""

	ctx, cancel := context.WithCancel(c.ctx)
	c.flowCancel = cancel
	gen := c.flowGen

	if playlist, ok := c.session.Target.(domain.Playlist); ok {
		c.session.IsBatchDownloadActive = true
		c.view = viewBatch
		c.flow = domain.FlowState{}
		c.flowWg.Add(1)
		go c.runBatch(ctx, gen, playlist.Entries, format)
		return nil
	}

	req := domain.DownloadRequest{
		URL:        c.session.TargetURL,
		FormatType: format,
		Quality:    c.session.SelectedQuality,
	}
	if start, end, ok := c.trim.Bounds(); ok {
		req.TrimStart = start
		req.TrimEnd = end
	}

	title := ""
	if c.video != nil {
		title = c.video.Title
	}

	c.view = viewDownload
	c.flow = domain.NewFlowState(format, title)
	c.flowWg.Add(1)
	go c.runSingle(ctx, gen, req, title)
	return nil
}

// OnSaveRequested exports the file of the finished download
func (c *Controller) OnSaveRequested() error {
	c.mu.Lock()

	if c.session.ActiveTaskID == "" {
		c.mu.Unlock()
		return domain.ErrNoActiveTask
	}
	if c.config.NativeHost {
		c.presenter.Toast(ToastSuccess, "The file was already stored in your downloads folder")
		c.mu.Unlock()
		return nil
	}
	if c.view != viewDownload || c.flow.Phase != domain.PhaseComplete {
		c.mu.Unlock()
		return domain.ErrSaveSuppressed
	}
	taskID := c.session.ActiveTaskID
	ctx := c.ctx
	c.mu.Unlock()

	return c.saveTask(ctx, taskID)
}

// OnReset stops any flow and returns to a fresh session
func (c *Controller) OnReset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.supersedeFlowLocked()
	c.scheduler.CancelAll()
	c.resetLocked()
	c.logEvent("session_reset")
}

// History returns the download attempts of this session, newest first
func (c *Controller) History() ([]*domain.TaskRecord, error) {
	if c.records == nil {
		return []*domain.TaskRecord{}, nil
	}
	return c.records.FindAll(nil)
}

// Wait blocks until the running flow and its scheduled saves have ended
func (c *Controller) Wait() {
	c.flowWg.Wait()
	c.scheduler.Wait()
}

// Close stops every flow and pending action. The controller cannot be
// used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.supersedeFlowLocked()
	c.scheduler.Close()
	c.cancel()
	c.mu.Unlock()

	c.flowWg.Wait()
}

func (c *Controller) analyze(urlOrID string) error {
	ctx, gen, err := c.beginLookup("Analyzing")
	if err != nil {
		return err
	}

	analysis, err := c.metadata.Analyze(ctx, urlOrID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.flowGen {
		return domain.ErrSuperseded
	}
	if err != nil {
		c.failLookupLocked(err)
		return err
	}

	if analysis.IsPlaylist() {
		c.session.ApplyPlaylist(urlOrID, analysis.Playlist)
		c.video = nil
		c.playlist = analysis.Playlist
		c.trim.Initialize(0)
		c.view = viewPlaylist
		c.presenter.ShowPlaylistInfo(PlaylistView{
			URL:       urlOrID,
			Playlist:  analysis.Playlist,
			CanGoBack: c.session.HasCachedResults(),
		})
		c.logEvent("playlist_analyzed", zap.String("url", urlOrID), zap.Int("entries", len(analysis.Playlist.Entries)))
		return nil
	}

	c.session.ApplyVideo(urlOrID, analysis.Video)
	c.video = analysis.Video
	c.playlist = nil
	c.trim.Initialize(analysis.Video.DurationSeconds)
	c.view = viewVideo
	c.presenter.ShowVideoInfo(c.videoViewLocked())
	c.logEvent("video_analyzed", zap.String("url", urlOrID), zap.Int("formats", len(analysis.Video.Formats)))
	return nil
}

func (c *Controller) search(query string) error {
	ctx, gen, err := c.beginLookup("Searching")
	if err != nil {
		return err
	}

	results, err := c.metadata.Search(ctx, query)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.flowGen {
		return domain.ErrSuperseded
	}
	if err != nil {
		c.failLookupLocked(err)
		return err
	}

	c.session.CacheSearch(query, results)
	c.view = viewSearch
	c.presenter.ShowSearchResults(SearchView{Query: query, Results: c.session.CachedSearchResults})
	c.logEvent("search_completed", zap.String("query", query), zap.Int("results", len(results)))
	return nil
}

// beginLookup stops the current flow before a metadata request
func (c *Controller) beginLookup(message string) (context.Context, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, 0, ErrControllerClosed
	}
	c.supersedeFlowLocked()
	c.scheduler.CancelAll()
	c.presenter.ShowLoading(message)
	return c.ctx, c.flowGen, nil
}

func (c *Controller) failLookupLocked(err error) {
	c.presenter.Toast(ToastError, domain.UserMessage(err))
	if c.multiLogger != nil {
		c.multiLogger.LogAppError("Metadata lookup failed", zap.Error(err))
	}
	c.resetLocked()
}

func (c *Controller) runSingle(ctx context.Context, gen uint64, req domain.DownloadRequest, title string) {
	defer c.flowWg.Done()

	state, err := c.orchestrator.Run(ctx, req, title, "", &flowHandle{c: c, gen: gen})
	if stopped(ctx, err) {
		return
	}

	c.mu.Lock()
	if gen != c.flowGen {
		c.mu.Unlock()
		return
	}
	c.endFlowLocked()

	if err != nil {
		c.presenter.Toast(ToastError, "Error: "+domain.UserMessage(err))
		c.mu.Unlock()
		if c.notifier != nil {
			c.notifier.NotifyDownloadFailed(title, err)
		}
		return
	}

	if c.config.NativeHost {
		c.presenter.Toast(ToastSuccess, "Saved directly to your downloads folder")
	} else {
		c.presenter.Toast(ToastSuccess, "Download ready")
		c.scheduler.After(c.config.AutoSaveDelay, func() { c.autoSave(gen) })
	}
	c.mu.Unlock()

	if c.notifier != nil {
		c.notifier.NotifyDownloadCompleted(title, state.Filename)
	}
}

func (c *Controller) autoSave(gen uint64) {
	c.mu.Lock()
	if gen != c.flowGen || c.closed || c.session.ActiveTaskID == "" {
		c.mu.Unlock()
		return
	}
	taskID := c.session.ActiveTaskID
	ctx := c.ctx
	c.mu.Unlock()

	_ = c.saveTask(ctx, taskID)
}

func (c *Controller) runBatch(ctx context.Context, gen uint64, entries []domain.PlaylistEntry, format domain.FormatType) {
	defer c.flowWg.Done()

	report, err := c.batch.Run(ctx, entries, format, &batchHandle{c: c, gen: gen})
	if err != nil {
		return
	}

	c.mu.Lock()
	if gen != c.flowGen {
		c.mu.Unlock()
		return
	}
	c.endFlowLocked()
	c.session.IsBatchDownloadActive = false
	c.view = viewBatchComplete
	c.presenter.ShowBatchComplete(report)
	c.mu.Unlock()

	if c.notifier != nil {
		c.notifier.NotifyBatchCompleted(report.SuccessCount, report.TotalCount)
	}
}

func (c *Controller) saveTask(ctx context.Context, taskID string) error {
	if c.saver == nil {
		return fmt.Errorf("no file saver configured")
	}

	file, err := c.saver.Save(ctx, taskID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.presenter.Toast(ToastError, "Could not save the file: "+domain.UserMessage(err))
		if c.multiLogger != nil {
			c.multiLogger.LogAppError("Failed to save file", zap.String("task_id", taskID), zap.Error(err))
		}
		return err
	}

	c.markSaved(taskID, file)
	c.presenter.ShowSaved(file)
	c.presenter.Toast(ToastSuccess, "File sent to downloads")
	return nil
}

func (c *Controller) markSaved(taskID string, file *domain.SavedFile) {
	c.logEvent("file_saved", zap.String("task_id", taskID), zap.String("path", file.Path), zap.Int64("size", file.Size))
	if c.records == nil {
		return
	}
	record, err := c.records.FindByTaskID(taskID)
	if err != nil || record == nil {
		c.logger.Warn("No task record for saved file", zap.String("task_id", taskID), zap.Error(err))
		return
	}
	record.MarkSaved(file.Path)
	if err := c.records.Update(record); err != nil {
		c.logger.Error("Failed to update task record", zap.String("id", record.ID), zap.Error(err))
	}
}

// supersedeFlowLocked stops the running flow and closes its channel.
// Calls from the stale flow are dropped from here on.
func (c *Controller) supersedeFlowLocked() {
	if c.flowCancel != nil {
		c.flowCancel()
		c.flowCancel = nil
	}
	c.flowGen++
	c.session.CloseChannel()
	c.session.IsBatchDownloadActive = false
}

// endFlowLocked releases the context of a flow that ended on its own
func (c *Controller) endFlowLocked() {
	if c.flowCancel != nil {
		c.flowCancel()
		c.flowCancel = nil
	}
}

func (c *Controller) resetLocked() {
	c.session.Reset()
	c.trim = domain.NewTrimController()
	c.video = nil
	c.playlist = nil
	c.flow = domain.FlowState{}
	c.view = viewIdle
	c.presenter.ShowIdle()
}

func (c *Controller) videoViewLocked() VideoView {
	return VideoView{
		URL:             c.session.TargetURL,
		Video:           c.video,
		SelectedQuality: c.session.SelectedQuality,
		Trim:            trimView(c.trim),
		CanGoBack:       c.session.HasCachedResults(),
	}
}

func (c *Controller) toast(level ToastLevel, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presenter.Toast(level, message)
}

func (c *Controller) logEvent(event string, fields ...zap.Field) {
	if c.multiLogger != nil {
		c.multiLogger.LogSessionEvent(event, fields...)
	}
}

// flowHandle binds one flow to the controller; it goes stale as soon as
// another flow supersedes it
type flowHandle struct {
	c   *Controller
	gen uint64
}

func (h *flowHandle) staleLocked() bool {
	return h.c.closed || h.gen != h.c.flowGen
}

func (h *flowHandle) TaskStarted(taskID string) error {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.staleLocked() {
		return domain.ErrSuperseded
	}
	h.c.session.ActiveTaskID = taskID
	return nil
}

func (h *flowHandle) Attach(ch domain.ProgressChannel) error {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.staleLocked() {
		_ = ch.Close()
		return domain.ErrSuperseded
	}
	h.c.session.AttachChannel(ch)
	return nil
}

func (h *flowHandle) Release(ch domain.ProgressChannel) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	h.c.session.ReleaseChannel(ch)
}

func (h *flowHandle) Publish(state domain.FlowState) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.staleLocked() {
		return
	}
	h.c.flow = state
	h.c.presenter.ShowDownload(DownloadView{
		Flow:    state,
		CanSave: state.Phase == domain.PhaseComplete && !h.c.config.NativeHost,
	})
}

// batchHandle adapts a playlist run to the controller
type batchHandle struct {
	c   *Controller
	gen uint64
}

func (h *batchHandle) EntrySink(batchID string, index, total, successCount int, entry domain.PlaylistEntry) FlowSink {
	return &batchEntryHandle{
		flowHandle: flowHandle{c: h.c, gen: h.gen},
		progress: BatchProgress{
			BatchID:      batchID,
			Index:        index,
			Total:        total,
			Entry:        entry,
			SuccessCount: successCount,
		},
	}
}

func (h *batchHandle) EntryFailed(index int, entry domain.PlaylistEntry, err error) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.gen != h.c.flowGen {
		return
	}
	h.c.presenter.Toast(ToastError, fmt.Sprintf("Error on video %d: %s", index, domain.UserMessage(err)))
}

func (h *batchHandle) EntrySaved(entry domain.PlaylistEntry, file *domain.SavedFile, err error) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.gen != h.c.flowGen {
		return
	}
	if err != nil {
		h.c.presenter.Toast(ToastWarning, fmt.Sprintf("Could not save %s: %s", entry.Title, domain.UserMessage(err)))
		return
	}
	h.c.markSaved(h.c.session.ActiveTaskID, file)
	h.c.presenter.ShowSaved(file)
}

// batchEntryHandle publishes entry states as batch progress
type batchEntryHandle struct {
	flowHandle
	progress BatchProgress
}

func (h *batchEntryHandle) Publish(state domain.FlowState) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.staleLocked() {
		return
	}
	h.c.flow = state
	p := h.progress
	p.Flow = state
	h.c.presenter.ShowBatchProgress(p)
}
