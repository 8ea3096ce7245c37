package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/dyt-client/internal/domain"
)

// fakeService implements domain.VideoService for testing
type fakeService struct {
	mu        sync.Mutex
	searches  []string
	analyses  []string
	downloads []domain.DownloadRequest
	started   []time.Time

	searchFn   func(query string) ([]domain.SearchResult, error)
	analyzeFn  func(url string) (*domain.AnalysisResult, error)
	downloadFn func(req domain.DownloadRequest) (string, error)
}

func (f *fakeService) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	f.mu.Lock()
	f.searches = append(f.searches, query)
	fn := f.searchFn
	f.mu.Unlock()
	if fn == nil {
		return []domain.SearchResult{}, nil
	}
	return fn(query)
}

func (f *fakeService) Analyze(ctx context.Context, url string) (*domain.AnalysisResult, error) {
	f.mu.Lock()
	f.analyses = append(f.analyses, url)
	fn := f.analyzeFn
	f.mu.Unlock()
	if fn == nil {
		return &domain.AnalysisResult{Video: &domain.VideoMetadata{Title: url, DurationSeconds: 60}}, nil
	}
	return fn(url)
}

func (f *fakeService) StartDownload(ctx context.Context, req domain.DownloadRequest) (string, error) {
	f.mu.Lock()
	f.downloads = append(f.downloads, req)
	f.started = append(f.started, time.Now())
	fn := f.downloadFn
	n := len(f.downloads)
	f.mu.Unlock()
	if fn == nil {
		return fmt.Sprintf("task-%d", n), nil
	}
	return fn(req)
}

func (f *fakeService) calls() (searches, analyses int, downloads []domain.DownloadRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches), len(f.analyses), append([]domain.DownloadRequest(nil), f.downloads...)
}

func (f *fakeService) startTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.started...)
}

type channelItem struct {
	event domain.ProgressEvent
	err   error
}

// fakeChannel implements domain.ProgressChannel for testing
type fakeChannel struct {
	taskID string
	items  chan channelItem
	done   chan struct{}

	mu     sync.Mutex
	closes int
}

func newFakeChannel(taskID string, items ...channelItem) *fakeChannel {
	ch := &fakeChannel{
		taskID: taskID,
		items:  make(chan channelItem, len(items)+16),
		done:   make(chan struct{}),
	}
	for _, it := range items {
		ch.items <- it
	}
	return ch
}

func (f *fakeChannel) send(ev domain.ProgressEvent) {
	f.items <- channelItem{event: ev}
}

func (f *fakeChannel) Next(ctx context.Context) (domain.ProgressEvent, error) {
	select {
	case it := <-f.items:
		return it.event, it.err
	case <-f.done:
		return nil, &domain.TransportError{Op: "read", Err: io.ErrClosedPipe}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closes == 0 {
		close(f.done)
	}
	f.closes++
	return nil
}

func (f *fakeChannel) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// fakeDialer implements domain.ProgressDialer for testing
type fakeDialer struct {
	mu       sync.Mutex
	channels map[string]*fakeChannel
	order    []string
	script   func(taskID string) []channelItem
	err      error
}

func newFakeDialer(script func(taskID string) []channelItem) *fakeDialer {
	return &fakeDialer{channels: make(map[string]*fakeChannel), script: script}
}

func (d *fakeDialer) Dial(ctx context.Context, taskID string) (domain.ProgressChannel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	var items []channelItem
	if d.script != nil {
		items = d.script(taskID)
	}
	ch := newFakeChannel(taskID, items...)
	d.channels[taskID] = ch
	d.order = append(d.order, taskID)
	return ch, nil
}

func (d *fakeDialer) channel(taskID string) *fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channels[taskID]
}

func (d *fakeDialer) dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.order...)
}

func completes(filename string) func(string) []channelItem {
	return func(string) []channelItem {
		return []channelItem{
			{event: domain.Downloading{Percent: 40, Speed: "1 MB/s", ETA: "3s"}},
			{event: domain.Processing{}},
			{event: domain.Completed{Filename: filename}},
		}
	}
}

// fakeSaver implements domain.FileSaver for testing
type fakeSaver struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (s *fakeSaver) Save(ctx context.Context, taskID string) (*domain.SavedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, taskID)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.SavedFile{Path: "/tmp/" + taskID + ".mp3", Size: 42}, nil
}

func (s *fakeSaver) savedTasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.saved...)
}

// fakeRepo implements domain.TaskRepository for testing
type fakeRepo struct {
	mu      sync.Mutex
	records map[string]*domain.TaskRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]*domain.TaskRecord)}
}

func (r *fakeRepo) Create(record *domain.TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *record
	r.records[record.ID] = &clone
	return nil
}

func (r *fakeRepo) Update(record *domain.TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.ID]; !ok {
		return errors.New("record not found")
	}
	clone := *record
	r.records[record.ID] = &clone
	return nil
}

func (r *fakeRepo) FindByID(id string) (*domain.TaskRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		clone := *rec
		return &clone, nil
	}
	return nil, errors.New("record not found")
}

func (r *fakeRepo) FindByTaskID(taskID string) (*domain.TaskRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.TaskID == taskID {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, errors.New("record not found")
}

func (r *fakeRepo) FindByBatch(batchID string) ([]*domain.TaskRecord, error) {
	all, _ := r.FindAll(nil)
	var out []*domain.TaskRecord
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].BatchID == batchID {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (r *fakeRepo) FindAll(filters map[string]interface{}) ([]*domain.TaskRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.TaskRecord, 0, len(r.records))
	for _, rec := range r.records {
		clone := *rec
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRepo) GetStats() (*domain.TaskStats, error) {
	all, _ := r.FindAll(nil)
	stats := &domain.TaskStats{Total: int64(len(all))}
	for _, rec := range all {
		switch rec.Status {
		case domain.TaskPending:
			stats.Pending++
		case domain.TaskStreaming:
			stats.Streaming++
		case domain.TaskCompleted:
			stats.Completed++
		case domain.TaskFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

type toast struct {
	level   ToastLevel
	message string
}

// recordingPresenter implements Presenter for testing
type recordingPresenter struct {
	mu            sync.Mutex
	idle          int
	loading       []string
	videos        []VideoView
	playlists     []PlaylistView
	searches      []SearchView
	trims         []TrimView
	downloads     []DownloadView
	batchProgress []BatchProgress
	batchReports  []BatchReport
	saved         []*domain.SavedFile
	toasts        []toast
}

func (p *recordingPresenter) ShowIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle++
}

func (p *recordingPresenter) ShowLoading(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = append(p.loading, message)
}

func (p *recordingPresenter) ShowVideoInfo(view VideoView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.videos = append(p.videos, view)
}

func (p *recordingPresenter) ShowPlaylistInfo(view PlaylistView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playlists = append(p.playlists, view)
}

func (p *recordingPresenter) ShowSearchResults(view SearchView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searches = append(p.searches, view)
}

func (p *recordingPresenter) ShowTrim(view TrimView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trims = append(p.trims, view)
}

func (p *recordingPresenter) ShowDownload(view DownloadView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downloads = append(p.downloads, view)
}

func (p *recordingPresenter) ShowBatchProgress(progress BatchProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batchProgress = append(p.batchProgress, progress)
}

func (p *recordingPresenter) ShowBatchComplete(report BatchReport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batchReports = append(p.batchReports, report)
}

func (p *recordingPresenter) ShowSaved(file *domain.SavedFile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, file)
}

func (p *recordingPresenter) Toast(level ToastLevel, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toasts = append(p.toasts, toast{level: level, message: message})
}

func (p *recordingPresenter) lastDownload() (DownloadView, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.downloads) == 0 {
		return DownloadView{}, false
	}
	return p.downloads[len(p.downloads)-1], true
}

func (p *recordingPresenter) toastsAt(level ToastLevel) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, t := range p.toasts {
		if t.level == level {
			out = append(out, t.message)
		}
	}
	return out
}

// recordingSink implements FlowSink on top of a bare session
type recordingSink struct {
	mu      sync.Mutex
	session *domain.Session
	states  []domain.FlowState
	stale   bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{session: domain.NewSession()}
}

func (s *recordingSink) TaskStarted(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale {
		return domain.ErrSuperseded
	}
	s.session.ActiveTaskID = taskID
	return nil
}

func (s *recordingSink) Attach(ch domain.ProgressChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale {
		_ = ch.Close()
		return domain.ErrSuperseded
	}
	s.session.AttachChannel(ch)
	return nil
}

func (s *recordingSink) Release(ch domain.ProgressChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.ReleaseChannel(ch)
}

func (s *recordingSink) Publish(state domain.FlowState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}

func (s *recordingSink) phases() []domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Phase, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st.Phase)
	}
	return out
}
