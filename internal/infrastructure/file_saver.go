package infrastructure

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/yourusername/dyt-client/internal/domain"
	"go.uber.org/zap"
)

// HTTPFileSaver implements domain.FileSaver by fetching the produced file
// from GET /api/download/{task_id} into the save directory
type HTTPFileSaver struct {
	baseURL     string
	client      *http.Client
	saveDir     string
	inspectTags bool
	logger      *zap.Logger
}

// NewHTTPFileSaver creates a new file saver. File transfers are not bound
// by the request timeout; cancel the context to abort one.
func NewHTTPFileSaver(service *domain.ServiceConfig, download *domain.DownloadConfig, logger *zap.Logger) *HTTPFileSaver {
	return &HTTPFileSaver{
		baseURL:     strings.TrimRight(service.BaseURL, "/"),
		client:      &http.Client{},
		saveDir:     download.SaveDir,
		inspectTags: download.InspectTags,
		logger:      logger,
	}
}

// Save downloads the file of a finished task
func (s *HTTPFileSaver) Save(ctx context.Context, taskID string) (*domain.SavedFile, error) {
	endpoint := s.baseURL + "/api/download/" + url.PathEscape(taskID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &domain.TransportError{Op: "GET /api/download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, decodeServiceError(resp.StatusCode, body)
	}

	if err := os.MkdirAll(s.saveDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}

	name := attachmentName(resp.Header.Get("Content-Disposition"), taskID)
	path, err := s.write(resp.Body, name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat saved file: %w", err)
	}

	saved := &domain.SavedFile{Path: path, Size: info.Size()}
	if s.inspectTags {
		s.readTags(saved)
	}

	s.logger.Info("File saved",
		zap.String("task_id", taskID),
		zap.String("path", path),
		zap.Int64("size", saved.Size))

	return saved, nil
}

// write streams body into a temporary file and moves it to a free name
func (s *HTTPFileSaver) write(body io.Reader, name string) (string, error) {
	tmp, err := os.CreateTemp(s.saveDir, ".dyt-*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", &domain.TransportError{Op: "receive file", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	path := freePath(s.saveDir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}
	return path, nil
}

func (s *HTTPFileSaver) readTags(saved *domain.SavedFile) {
	file, err := os.Open(saved.Path)
	if err != nil {
		return
	}
	defer func() { _ = file.Close() }()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		if err != tag.ErrNoTagsFound {
			s.logger.Debug("No readable tags", zap.String("path", saved.Path), zap.Error(err))
		}
		return
	}

	saved.Title = metadata.Title()
	saved.Artist = metadata.Artist()
	saved.Album = metadata.Album()
}

// attachmentName returns the file name announced by the service, reduced
// to its base name
func attachmentName(disposition, fallback string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := filepath.Base(params["filename"]); name != "." && name != "/" && name != "" {
				return name
			}
		}
	}
	return fallback
}

// freePath returns dir/name, or dir/name (n).ext when that file exists
func freePath(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
