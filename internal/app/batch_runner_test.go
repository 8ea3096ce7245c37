package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/dyt-client/internal/domain"
)

// recordingBatchSink implements BatchSink for testing
type recordingBatchSink struct {
	mu       sync.Mutex
	sinks    []*recordingSink
	indexes  []int
	failures []int
	saved    []*domain.SavedFile
	failedAt []time.Time
}

func (s *recordingBatchSink) EntrySink(batchID string, index, total, successCount int, entry domain.PlaylistEntry) FlowSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	sink := newRecordingSink()
	s.sinks = append(s.sinks, sink)
	s.indexes = append(s.indexes, index)
	return sink
}

func (s *recordingBatchSink) EntryFailed(index int, entry domain.PlaylistEntry, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, index)
	s.failedAt = append(s.failedAt, time.Now())
}

func (s *recordingBatchSink) EntrySaved(entry domain.PlaylistEntry, file *domain.SavedFile, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, file)
}

func playlistEntries() []domain.PlaylistEntry {
	return []domain.PlaylistEntry{
		{URL: "https://youtu.be/aaaaaaaaaaa", Title: "First"},
		{URL: "https://youtu.be/bbbbbbbbbbb", Title: "Second"},
		{URL: "https://youtu.be/ccccccccccc", Title: "Third"},
	}
}

func batchConfig() domain.SessionConfig {
	return domain.SessionConfig{
		PlaylistSaveDelay:  5 * time.Millisecond,
		PlaylistErrorPause: 60 * time.Millisecond,
		BatchQuality:       domain.DefaultQuality,
	}
}

func TestBatchRunner_SkipsFailedEntry(t *testing.T) {
	service := &fakeService{}
	dialer := newFakeDialer(func(taskID string) []channelItem {
		if taskID == "task-2" {
			return []channelItem{{event: domain.Failed{Message: "video unavailable"}}}
		}
		return completes(taskID + ".mp3")(taskID)
	})
	saver := &fakeSaver{}
	repo := newFakeRepo()
	orch := NewOrchestrator(service, dialer, repo, nil, nil)
	runner := NewBatchRunner(orch, saver, batchConfig(), nil, nil)
	sink := &recordingBatchSink{}

	report, err := runner.Run(context.Background(), playlistEntries(), domain.FormatAudio, sink)
	require.NoError(t, err)

	assert.Equal(t, 2, report.SuccessCount)
	assert.Equal(t, 3, report.TotalCount)
	assert.False(t, report.Canceled)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "Second", report.Failures[0].Entry.Title)
	assert.Equal(t, "video unavailable", report.Failures[0].Message)
	assert.NotEmpty(t, report.BatchID)

	_, _, downloads := service.calls()
	require.Len(t, downloads, 3)
	for i, entry := range playlistEntries() {
		assert.Equal(t, entry.URL, downloads[i].URL, "entries run in order")
		assert.Equal(t, domain.DefaultQuality, downloads[i].Quality)
		assert.Empty(t, downloads[i].TrimStart)
		assert.Empty(t, downloads[i].TrimEnd)
	}

	assert.Equal(t, []int{1, 2, 3}, sink.indexes)
	assert.Equal(t, []int{2}, sink.failures)
	assert.Equal(t, []string{"task-1", "task-3"}, saver.savedTasks())

	starts := service.startTimes()
	require.Len(t, sink.failedAt, 1)
	assert.GreaterOrEqual(t, starts[2].Sub(sink.failedAt[0]), batchConfig().PlaylistErrorPause,
		"the next entry waits for the error pause")

	batch, _ := repo.FindByBatch(report.BatchID)
	assert.Len(t, batch, 3)
}

func TestBatchRunner_StrictSequencing(t *testing.T) {
	service := &fakeService{}
	dialer := newFakeDialer(completes("x.mp3"))
	orch := NewOrchestrator(service, dialer, nil, nil, nil)
	runner := NewBatchRunner(orch, &fakeSaver{}, batchConfig(), nil, nil)
	sink := &recordingBatchSink{}

	_, err := runner.Run(context.Background(), playlistEntries(), domain.FormatVideo, sink)
	require.NoError(t, err)

	// each entry's channel is released before the next download starts
	for _, s := range sink.sinks {
		assert.False(t, s.session.HasOpenChannel())
	}
	for _, id := range dialer.dialed() {
		assert.Equal(t, 1, dialer.channel(id).closeCount())
	}
}

func TestBatchRunner_NativeHostSkipsSave(t *testing.T) {
	config := batchConfig()
	config.NativeHost = true
	saver := &fakeSaver{}
	orch := NewOrchestrator(&fakeService{}, newFakeDialer(completes("x.mp3")), nil, nil, nil)
	runner := NewBatchRunner(orch, saver, config, nil, nil)

	report, err := runner.Run(context.Background(), playlistEntries(), domain.FormatAudio, &recordingBatchSink{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.SuccessCount)
	assert.Empty(t, saver.savedTasks())
}

func TestBatchRunner_StartFailureCountsAsItemFailure(t *testing.T) {
	service := &fakeService{downloadFn: func(req domain.DownloadRequest) (string, error) {
		return "", &domain.ServiceError{Status: 500, Detail: "busy"}
	}}
	config := batchConfig()
	config.PlaylistErrorPause = time.Millisecond
	orch := NewOrchestrator(service, newFakeDialer(nil), nil, nil, nil)
	runner := NewBatchRunner(orch, &fakeSaver{}, config, nil, nil)

	report, err := runner.Run(context.Background(), playlistEntries(), domain.FormatAudio, &recordingBatchSink{})
	require.NoError(t, err)

	assert.Equal(t, 0, report.SuccessCount)
	assert.Len(t, report.Failures, 3)
}

func TestBatchRunner_CancelDuringPause(t *testing.T) {
	config := batchConfig()
	config.PlaylistSaveDelay = time.Hour
	service := &fakeService{}
	orch := NewOrchestrator(service, newFakeDialer(completes("x.mp3")), nil, nil, nil)
	runner := NewBatchRunner(orch, &fakeSaver{}, config, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		assert.Eventually(t, func() bool {
			_, _, downloads := service.calls()
			return len(downloads) == 1
		}, time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	report, err := runner.Run(ctx, playlistEntries(), domain.FormatAudio, &recordingBatchSink{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, report.Canceled)
	assert.Equal(t, 1, report.SuccessCount)
	_, _, downloads := service.calls()
	assert.Len(t, downloads, 1)
}

func TestBatchRunner_EmptyPlaylist(t *testing.T) {
	orch := NewOrchestrator(&fakeService{}, newFakeDialer(nil), nil, nil, nil)
	runner := NewBatchRunner(orch, &fakeSaver{}, batchConfig(), nil, nil)

	report, err := runner.Run(context.Background(), nil, domain.FormatAudio, &recordingBatchSink{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalCount)
	assert.Equal(t, 0, report.SuccessCount)
}
