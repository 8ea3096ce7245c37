package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/yourusername/dyt-client/internal/domain"
	"go.uber.org/zap"
)

// HTTPVideoService implements domain.VideoService against the service's
// JSON API
type HTTPVideoService struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPVideoService creates a new service client
func NewHTTPVideoService(config *domain.ServiceConfig, logger *zap.Logger) *HTTPVideoService {
	return &HTTPVideoService{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client:  &http.Client{Timeout: config.RequestTimeout},
		logger:  logger,
	}
}

type lookupRequest struct {
	URL string `json:"url"`
}

type searchResponse struct {
	Results []domain.SearchResult `json:"results"`
}

type infoResponse struct {
	IsPlaylist      bool                   `json:"is_playlist"`
	Title           string                 `json:"title"`
	Uploader        string                 `json:"uploader"`
	Thumbnail       string                 `json:"thumbnail"`
	Duration        string                 `json:"duration"`
	DurationSeconds float64                `json:"duration_seconds"`
	ViewCount       float64                `json:"view_count"`
	VideoFormats    []domain.FormatOption  `json:"video_formats"`
	Entries         []domain.PlaylistEntry `json:"entries"`
	VideoCount      int                    `json:"video_count"`
}

type downloadResponse struct {
	TaskID string `json:"task_id"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// Search runs a free-text search
func (s *HTTPVideoService) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	var resp searchResponse
	if err := s.post(ctx, "/api/search", lookupRequest{URL: query}, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		resp.Results = []domain.SearchResult{}
	}
	return resp.Results, nil
}

// Analyze looks up a video or playlist
func (s *HTTPVideoService) Analyze(ctx context.Context, urlOrID string) (*domain.AnalysisResult, error) {
	var resp infoResponse
	if err := s.post(ctx, "/api/info", lookupRequest{URL: urlOrID}, &resp); err != nil {
		return nil, err
	}

	if resp.IsPlaylist {
		count := resp.VideoCount
		if count == 0 {
			count = len(resp.Entries)
		}
		return &domain.AnalysisResult{Playlist: &domain.PlaylistMetadata{
			Title:      resp.Title,
			Uploader:   resp.Uploader,
			Thumbnail:  resp.Thumbnail,
			Entries:    resp.Entries,
			VideoCount: count,
		}}, nil
	}

	return &domain.AnalysisResult{Video: &domain.VideoMetadata{
		Title:           resp.Title,
		Uploader:        resp.Uploader,
		Thumbnail:       resp.Thumbnail,
		DurationLabel:   resp.Duration,
		DurationSeconds: int(math.Round(resp.DurationSeconds)),
		ViewCount:       int64(resp.ViewCount),
		Formats:         resp.VideoFormats,
	}}, nil
}

// StartDownload starts a task and returns its id
func (s *HTTPVideoService) StartDownload(ctx context.Context, req domain.DownloadRequest) (string, error) {
	var resp downloadResponse
	if err := s.post(ctx, "/api/download", req, &resp); err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		return "", &domain.ServiceError{Status: http.StatusOK, Detail: "the service did not return a task id"}
	}

	s.logger.Debug("Download task started",
		zap.String("task_id", resp.TaskID),
		zap.String("url", req.URL),
		zap.String("format", string(req.FormatType)))

	return resp.TaskID, nil
}

func (s *HTTPVideoService) post(ctx context.Context, path string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &domain.TransportError{Op: "POST " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.TransportError{Op: "POST " + path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serviceErr := decodeServiceError(resp.StatusCode, body)
		s.logger.Warn("Service returned an error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", serviceErr.Detail))
		return serviceErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &domain.ServiceError{Status: resp.StatusCode, Detail: fmt.Sprintf("unreadable response from %s", path)}
	}
	return nil
}

// decodeServiceError extracts the detail of an error answer. The detail
// is a string for handled errors and a list for request validation errors.
func decodeServiceError(status int, body []byte) *domain.ServiceError {
	fallback := fmt.Sprintf("service error (%d %s)", status, http.StatusText(status))

	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Detail) == 0 {
		return &domain.ServiceError{Status: status, Detail: fallback}
	}

	var detail string
	if err := json.Unmarshal(resp.Detail, &detail); err == nil && detail != "" {
		return &domain.ServiceError{Status: status, Detail: detail}
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(resp.Detail, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
		return &domain.ServiceError{Status: status, Detail: items[0].Msg}
	}

	return &domain.ServiceError{Status: status, Detail: fallback}
}
