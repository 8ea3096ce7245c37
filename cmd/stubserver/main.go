// Command stubserver runs the in-process stand-in for the download service
// so the client can be tried without the real backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/dyt-client/internal/domain"
	"github.com/yourusername/dyt-client/internal/stubservice"
	"github.com/yourusername/dyt-client/pkg/logger"
)

var (
	addr      = flag.String("addr", "127.0.0.1:8000", "Listen address")
	stepDelay = flag.Duration("step-delay", 700*time.Millisecond, "Delay between progress messages")
	logLevel  = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	log, err := logger.New(logger.Config{Level: *logLevel, Format: "console", OutputPath: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	stub := stubservice.New(*stepDelay, log)
	seed(stub)

	server := &http.Server{
		Addr:    *addr,
		Handler: stub.Handler(),
	}

	go func() {
		log.Info("Stub service listening", zap.String("addr", *addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down stub service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Stub service exited")
}

// seed registers a small catalog: two videos, one failing video and a
// playlist containing all three
func seed(stub *stubservice.Server) {
	const (
		first   = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
		second  = "https://www.youtube.com/watch?v=9bZkp7q19f0"
		private = "https://www.youtube.com/watch?v=xxxxxxxxxxx"
	)

	stub.AddVideo(first, stubservice.Video{
		Title:           "Never Gonna Give You Up",
		Uploader:        "Rick Astley",
		DurationSeconds: 212.6,
		ViewCount:       1500000000,
		Qualities:       []string{"1080p", "720p", "360p"},
	})
	stub.AddVideo(second, stubservice.Video{
		Title:           "Gangnam Style",
		Uploader:        "officialpsy",
		DurationSeconds: 252,
		ViewCount:       5000000000,
		Qualities:       []string{"720p", "480p"},
	})
	stub.AddVideo(private, stubservice.Video{
		Title:           "Private video",
		Uploader:        "unknown",
		DurationSeconds: 60,
		Qualities:       []string{"360p"},
	})
	stub.FailDownload(private, "private video")

	stub.AddPlaylist("https://www.youtube.com/playlist?list=PLstub", stubservice.Playlist{
		Title: "Stub mix",
		Entries: []domain.PlaylistEntry{
			{URL: first, Title: "Never Gonna Give You Up"},
			{URL: private, Title: "Private video"},
			{URL: second, Title: "Gangnam Style"},
		},
	})
}
