package domain

import (
	"context"
)

// DownloadRequest asks the service to produce a file
type DownloadRequest struct {
	URL        string     `json:"url"`
	FormatType FormatType `json:"format_type"`
	Quality    string     `json:"quality"`
	TrimStart  string     `json:"trim_start,omitempty"`
	TrimEnd    string     `json:"trim_end,omitempty"`
}

// VideoService is the request/response part of the download service
type VideoService interface {
	// Search runs a free-text search
	Search(ctx context.Context, query string) ([]SearchResult, error)

	// Analyze looks up a video or playlist
	Analyze(ctx context.Context, urlOrID string) (*AnalysisResult, error)

	// StartDownload starts a task and returns its id
	StartDownload(ctx context.Context, req DownloadRequest) (string, error)
}

// ProgressChannel is a live stream of status events for one task
type ProgressChannel interface {
	// Next blocks until the next event arrives
	Next(ctx context.Context) (ProgressEvent, error)

	// Close releases the connection; closing twice is a no-op
	Close() error
}

// ProgressDialer opens progress channels
type ProgressDialer interface {
	Dial(ctx context.Context, taskID string) (ProgressChannel, error)
}

// SavedFile describes a file exported to local storage
type SavedFile struct {
	Path   string
	Size   int64
	Title  string
	Artist string
	Album  string
}

// FileSaver exports the produced file of a finished task
type FileSaver interface {
	Save(ctx context.Context, taskID string) (*SavedFile, error)
}
