// Package stubservice is an in-process stand-in for the video-download
// service. It speaks the same HTTP and websocket protocol and replays a
// scripted progress sequence for every task.
package stubservice

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yourusername/dyt-client/internal/domain"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Video is a canned single video
type Video struct {
	Title           string
	Uploader        string
	DurationSeconds float64
	ViewCount       int64
	Qualities       []string
}

// Playlist is a canned playlist
type Playlist struct {
	Title   string
	Entries []domain.PlaylistEntry
}

type taskState struct {
	id       string
	req      domain.DownloadRequest
	title    string
	artist   string
	status   string
	filename string
	failure  string
}

// Server holds the canned catalog and the started tasks
type Server struct {
	mu        sync.Mutex
	videos    map[string]Video
	playlists map[string]Playlist
	failures  map[string]string
	tasks     map[string]*taskState
	requests  []domain.DownloadRequest
	stepDelay time.Duration
	logger    *zap.Logger
	router    *gin.Engine
}

// New creates a stub service. stepDelay separates progress messages.
func New(stepDelay time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		videos:    make(map[string]Video),
		playlists: make(map[string]Playlist),
		failures:  make(map[string]string),
		tasks:     make(map[string]*taskState),
		stepDelay: stepDelay,
		logger:    logger,
	}

	router := gin.New()
	router.Use(requestLogger(logger))
	router.Use(recovery(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := router.Group("/api")
	{
		api.POST("/search", s.search)
		api.POST("/info", s.info)
		api.POST("/download", s.startDownload)
		api.GET("/download/:task_id", s.downloadFile)
	}
	router.GET("/ws/:task_id", s.progress)

	s.router = router
	return s
}

// Handler returns the HTTP handler of the service
func (s *Server) Handler() http.Handler {
	return s.router
}

// AddVideo registers a video under url
func (s *Server) AddVideo(url string, video Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[url] = video
}

// AddPlaylist registers a playlist under url
func (s *Server) AddPlaylist(url string, playlist Playlist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlists[url] = playlist
}

// FailDownload makes every task for url end with an error status
func (s *Server) FailDownload(url, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[url] = message
}

// Requests returns the accepted download requests in order
func (s *Server) Requests() []domain.DownloadRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.DownloadRequest(nil), s.requests...)
}

type lookupRequest struct {
	URL string `json:"url"`
}

func detail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"detail": message})
}

func (s *Server) search(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		detail(c, http.StatusBadRequest, "search query cannot be empty")
		return
	}
	query := strings.ToLower(req.URL)

	s.mu.Lock()
	defer s.mu.Unlock()

	results := []gin.H{}
	for url, v := range s.videos {
		if !strings.Contains(strings.ToLower(v.Title), query) {
			continue
		}
		results = append(results, gin.H{
			"title":      v.Title,
			"url":        url,
			"thumbnail":  nil,
			"duration":   domain.SecondsToLabelF(v.DurationSeconds),
			"uploader":   v.Uploader,
			"view_count": v.ViewCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) info(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.playlists[req.URL]; ok {
		entries := make([]gin.H, 0, len(p.Entries))
		for _, e := range p.Entries {
			entries = append(entries, gin.H{"url": e.URL, "title": e.Title})
		}
		c.JSON(http.StatusOK, gin.H{
			"is_playlist": true,
			"title":       p.Title,
			"uploader":    "stub",
			"thumbnail":   "",
			"entries":     entries,
			"video_count": len(p.Entries),
		})
		return
	}

	v, ok := s.lookupVideo(req.URL)
	if !ok {
		detail(c, http.StatusBadRequest, "could not fetch video information")
		return
	}

	formats := make([]gin.H, 0, len(v.Qualities))
	for _, q := range v.Qualities {
		formats = append(formats, gin.H{"quality": q, "filesize": "N/A"})
	}
	c.JSON(http.StatusOK, gin.H{
		"title":            v.Title,
		"uploader":         v.Uploader,
		"thumbnail":        "",
		"duration":         domain.SecondsToLabelF(v.DurationSeconds),
		"duration_seconds": v.DurationSeconds,
		"view_count":       v.ViewCount,
		"video_formats":    formats,
	})
}

// lookupVideo finds a video by url, or by the bare id at the end of a url
func (s *Server) lookupVideo(ref string) (Video, bool) {
	if v, ok := s.videos[ref]; ok {
		return v, true
	}
	for url, v := range s.videos {
		if strings.HasSuffix(url, "/"+ref) || strings.HasSuffix(url, "="+ref) {
			return v, true
		}
	}
	return Video{}, false
}

func (s *Server) startDownload(c *gin.Context) {
	var req domain.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		detail(c, http.StatusBadRequest, "invalid download request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := &taskState{id: uuid.New().String(), req: req, status: domain.WireStatusPending}
	if v, ok := s.lookupVideo(req.URL); ok {
		task.title, task.artist = v.Title, v.Uploader
	} else {
		task.title = "video"
	}
	task.failure = s.failures[req.URL]

	s.tasks[task.id] = task
	s.requests = append(s.requests, req)

	c.JSON(http.StatusOK, gin.H{"task_id": task.id})
}

// script returns the progress messages replayed for a task
func (t *taskState) script() []gin.H {
	messages := []gin.H{
		{"status": domain.WireStatusPending, "progress": 0},
		{"status": domain.WireStatusDownloading, "progress": 33.3, "speed": "1.2 MB/s", "eta": "4s"},
	}
	if t.failure != "" {
		return append(messages, gin.H{"status": domain.WireStatusError, "progress": 33.3, "error": t.failure})
	}
	return append(messages,
		gin.H{"status": domain.WireStatusDownloading, "progress": 66.7, "speed": "1.4 MB/s", "eta": "2s"},
		gin.H{"status": domain.WireStatusProcessing, "progress": 100},
		gin.H{"status": domain.WireStatusCompleted, "progress": 100, "filename": t.fileName()},
	)
}

func (t *taskState) fileName() string {
	if t.req.FormatType == domain.FormatAudio {
		return t.title + ".mp3"
	}
	return t.title + ".mp4"
}

func (s *Server) progress(c *gin.Context) {
	taskID := c.Param("task_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	s.mu.Lock()
	task, ok := s.tasks[taskID]
	var script []gin.H
	if ok {
		script = task.script()
	}
	s.mu.Unlock()

	if !ok {
		_ = conn.WriteJSON(gin.H{"error": "task not found"})
		return
	}

	for _, msg := range script {
		if s.stepDelay > 0 {
			time.Sleep(s.stepDelay)
		}

		s.mu.Lock()
		task.status = msg["status"].(string)
		if name, ok := msg["filename"].(string); ok {
			task.filename = name
		}
		s.mu.Unlock()

		if err := conn.WriteJSON(msg); err != nil {
			s.logger.Debug("Progress client went away", zap.String("task_id", taskID), zap.Error(err))
			return
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

func (s *Server) downloadFile(c *gin.Context) {
	s.mu.Lock()
	task, ok := s.tasks[c.Param("task_id")]
	var status, filename, title, artist string
	var format domain.FormatType
	if ok {
		status, filename, title, artist, format = task.status, task.filename, task.title, task.artist, task.req.FormatType
	}
	s.mu.Unlock()

	if !ok {
		detail(c, http.StatusNotFound, "task not found")
		return
	}
	if status != domain.WireStatusCompleted {
		detail(c, http.StatusBadRequest, "the download has not finished yet")
		return
	}

	body := []byte("stub media payload")
	if format == domain.FormatAudio {
		body = append(id3Tag(title, artist), body...)
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/octet-stream", body)
}

// id3Tag builds a minimal ID3v2.3 tag with title and artist frames
func id3Tag(title, artist string) []byte {
	var frames bytes.Buffer
	writeFrame := func(id, text string) {
		data := append([]byte{0}, text...)
		frames.WriteString(id)
		_ = binary.Write(&frames, binary.BigEndian, uint32(len(data)))
		frames.Write([]byte{0, 0})
		frames.Write(data)
	}
	writeFrame("TIT2", title)
	writeFrame("TPE1", artist)

	size := frames.Len()
	header := []byte{'I', 'D', '3', 3, 0, 0,
		byte(size >> 21 & 0x7f), byte(size >> 14 & 0x7f), byte(size >> 7 & 0x7f), byte(size & 0x7f)}
	return append(header, frames.Bytes()...)
}
