package infrastructure

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yourusername/dyt-client/internal/domain"
	"github.com/yourusername/dyt-client/internal/stubservice"
)

const (
	songURL     = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	playlistURL = "https://www.youtube.com/playlist?list=PL123"
)

// startStub runs the stub service with a small catalog
func startStub(t *testing.T) (*stubservice.Server, *domain.ServiceConfig) {
	t.Helper()

	stub := stubservice.New(time.Millisecond, nil)
	stub.AddVideo(songURL, stubservice.Video{
		Title:           "Never Gonna Give You Up",
		Uploader:        "Rick Astley",
		DurationSeconds: 212.6,
		ViewCount:       1500000000,
		Qualities:       []string{"1080p", "720p"},
	})
	stub.AddVideo("https://youtu.be/bbbbbbbbbbb", stubservice.Video{Title: "Second Song", Qualities: []string{"480p"}})
	stub.AddPlaylist(playlistURL, stubservice.Playlist{
		Title: "Mix",
		Entries: []domain.PlaylistEntry{
			{URL: songURL, Title: "Never Gonna Give You Up"},
			{URL: "https://youtu.be/bbbbbbbbbbb", Title: "Second Song"},
		},
	})

	server := httptest.NewServer(stub.Handler())
	t.Cleanup(server.Close)

	return stub, &domain.ServiceConfig{BaseURL: server.URL, RequestTimeout: 5 * time.Second}
}
