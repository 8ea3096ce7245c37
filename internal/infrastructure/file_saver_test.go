package infrastructure

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/dyt-client/internal/domain"
	"go.uber.org/zap"
)

// finishTask starts a download and follows its channel to the end
func finishTask(t *testing.T, config *domain.ServiceConfig, format domain.FormatType) string {
	t.Helper()
	service := NewHTTPVideoService(config, zap.NewNop())
	dialer, err := NewWebSocketDialer(config, zap.NewNop())
	require.NoError(t, err)

	taskID, err := service.StartDownload(context.Background(), domain.DownloadRequest{URL: songURL, FormatType: format, Quality: "best"})
	require.NoError(t, err)

	ch, err := dialer.Dial(context.Background(), taskID)
	require.NoError(t, err)
	defer ch.Close()

	events := collect(t, ch, 5)
	require.IsType(t, domain.Completed{}, events[4])
	return taskID
}

func TestHTTPFileSaver_SavesAudioWithTags(t *testing.T) {
	_, config := startStub(t)
	dir := t.TempDir()
	saver := NewHTTPFileSaver(config, &domain.DownloadConfig{SaveDir: dir, InspectTags: true}, zap.NewNop())

	taskID := finishTask(t, config, domain.FormatAudio)

	saved, err := saver.Save(context.Background(), taskID)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Never Gonna Give You Up.mp3"), saved.Path)
	assert.Equal(t, "Never Gonna Give You Up", saved.Title)
	assert.Equal(t, "Rick Astley", saved.Artist)

	info, err := os.Stat(saved.Path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), saved.Size)

	again, err := saver.Save(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Never Gonna Give You Up (1).mp3"), again.Path)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".dyt-*.part"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestHTTPFileSaver_VideoWithoutTagInspection(t *testing.T) {
	_, config := startStub(t)
	dir := filepath.Join(t.TempDir(), "nested", "downloads")
	saver := NewHTTPFileSaver(config, &domain.DownloadConfig{SaveDir: dir}, zap.NewNop())

	taskID := finishTask(t, config, domain.FormatVideo)

	saved, err := saver.Save(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Never Gonna Give You Up.mp4"), saved.Path)
	assert.Empty(t, saved.Title)

	data, err := os.ReadFile(saved.Path)
	require.NoError(t, err)
	assert.Equal(t, "stub media payload", string(data))
}

func TestHTTPFileSaver_Errors(t *testing.T) {
	_, config := startStub(t)
	saver := NewHTTPFileSaver(config, &domain.DownloadConfig{SaveDir: t.TempDir()}, zap.NewNop())
	service := NewHTTPVideoService(config, zap.NewNop())

	t.Run("not finished", func(t *testing.T) {
		taskID, err := service.StartDownload(context.Background(), domain.DownloadRequest{URL: songURL, FormatType: domain.FormatAudio})
		require.NoError(t, err)

		_, err = saver.Save(context.Background(), taskID)
		var serviceErr *domain.ServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, http.StatusBadRequest, serviceErr.Status)
		assert.Equal(t, "the download has not finished yet", serviceErr.Detail)
	})

	t.Run("unknown task", func(t *testing.T) {
		_, err := saver.Save(context.Background(), "missing")
		var serviceErr *domain.ServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, http.StatusNotFound, serviceErr.Status)
	})

	t.Run("unreachable", func(t *testing.T) {
		offline := NewHTTPFileSaver(&domain.ServiceConfig{BaseURL: "http://127.0.0.1:1"}, &domain.DownloadConfig{SaveDir: t.TempDir()}, zap.NewNop())
		_, err := offline.Save(context.Background(), "t1")
		var transportErr *domain.TransportError
		assert.ErrorAs(t, err, &transportErr)
	})
}

func TestAttachmentName(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		want        string
	}{
		{name: "quoted", disposition: `attachment; filename="song.mp3"`, want: "song.mp3"},
		{name: "spaces", disposition: `attachment; filename="My Song (live).mp3"`, want: "My Song (live).mp3"},
		{name: "path stripped", disposition: `attachment; filename="../../etc/passwd"`, want: "passwd"},
		{name: "no filename", disposition: `attachment`, want: "task-1"},
		{name: "empty", disposition: "", want: "task-1"},
		{name: "garbage", disposition: `;;;`, want: "task-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, attachmentName(tt.disposition, "task-1"))
		})
	}
}

func TestFreePath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "a.mp3"), freePath(dir, "a.mp3"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp3"), nil, 0644))
	assert.Equal(t, filepath.Join(dir, "a (1).mp3"), freePath(dir, "a.mp3"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a (1).mp3"), nil, 0644))
	assert.Equal(t, filepath.Join(dir, "a (2).mp3"), freePath(dir, "a.mp3"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "noext"), nil, 0644))
	assert.Equal(t, filepath.Join(dir, "noext (1)"), freePath(dir, "noext"))
}
