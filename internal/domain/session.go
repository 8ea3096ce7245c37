package domain

// DefaultQuality selects the best format the service can produce
const DefaultQuality = "best"

// FormatOption is one selectable video quality
type FormatOption struct {
	Quality        string `json:"quality"`
	ApproxFilesize string `json:"filesize"`
}

// SearchResult is one hit of a free-text search
type SearchResult struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	ThumbnailURL  string `json:"thumbnail"`
	DurationLabel string `json:"duration"`
	Uploader      string `json:"uploader"`
	ViewCount     int64  `json:"view_count"`
}

// PlaylistEntry is one video of a playlist
type PlaylistEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// VideoMetadata describes a single analyzed video
type VideoMetadata struct {
	Title           string
	Uploader        string
	Thumbnail       string
	DurationLabel   string
	DurationSeconds int
	ViewCount       int64
	Formats         []FormatOption
}

// PlaylistMetadata describes an analyzed playlist
type PlaylistMetadata struct {
	Title      string
	Uploader   string
	Thumbnail  string
	Entries    []PlaylistEntry
	VideoCount int
}

// AnalysisResult is the outcome of a metadata lookup; exactly one field is set
type AnalysisResult struct {
	Video    *VideoMetadata
	Playlist *PlaylistMetadata
}

// IsPlaylist reports whether the lookup resolved to a playlist
func (r *AnalysisResult) IsPlaylist() bool {
	return r.Playlist != nil
}

// Target is the thing currently analyzed: SingleVideo or Playlist
type Target interface {
	isTarget()
}

// SingleVideo is an analyzed single video
type SingleVideo struct {
	DurationSeconds int
}

// Playlist is an analyzed playlist
type Playlist struct {
	Entries []PlaylistEntry
}

func (SingleVideo) isTarget() {}
func (Playlist) isTarget()    {}

// Session is the mutable state of one user session. It owns the progress
// channel: at most one is attached at any time.
type Session struct {
	SelectedQuality       string
	AvailableFormats      []FormatOption
	ActiveTaskID          string
	CachedSearchResults   []SearchResult
	CachedSearchQuery     string
	Target                Target
	TargetURL             string
	IsBatchDownloadActive bool

	progressChannel ProgressChannel
}

// NewSession creates a session with default values
func NewSession() *Session {
	return &Session{SelectedQuality: DefaultQuality}
}

// Reset closes any open channel and returns the session to its defaults
func (s *Session) Reset() {
	s.CloseChannel()
	*s = *NewSession()
}

// ApplyVideo replaces the target with an analyzed video and selects its
// first format
func (s *Session) ApplyVideo(url string, meta *VideoMetadata) {
	s.TargetURL = url
	s.Target = SingleVideo{DurationSeconds: meta.DurationSeconds}
	s.AvailableFormats = append([]FormatOption(nil), meta.Formats...)
	s.SelectedQuality = DefaultQuality
	if len(s.AvailableFormats) > 0 {
		s.SelectedQuality = s.AvailableFormats[0].Quality
	}
}

// ApplyPlaylist replaces the target with an analyzed playlist
func (s *Session) ApplyPlaylist(url string, meta *PlaylistMetadata) {
	s.TargetURL = url
	s.Target = Playlist{Entries: append([]PlaylistEntry(nil), meta.Entries...)}
	s.AvailableFormats = nil
	s.SelectedQuality = DefaultQuality
}

// CacheSearch remembers search results for back-navigation
func (s *Session) CacheSearch(query string, results []SearchResult) {
	s.CachedSearchQuery = query
	s.CachedSearchResults = append([]SearchResult{}, results...)
}

// HasCachedResults reports whether back-navigation to results is possible
func (s *Session) HasCachedResults() bool {
	return s.CachedSearchResults != nil
}

// SelectQuality changes the selected format; it must be one of the
// available formats
func (s *Session) SelectQuality(quality string) error {
	for _, f := range s.AvailableFormats {
		if f.Quality == quality {
			s.SelectedQuality = quality
			return nil
		}
	}
	return &ValidationError{Field: "quality", Message: "quality " + quality + " is not available"}
}

// IsPlaylist reports whether the current target is a playlist
func (s *Session) IsPlaylist() bool {
	_, ok := s.Target.(Playlist)
	return ok
}

// AttachChannel makes ch the session's progress channel, closing the
// previous one first
func (s *Session) AttachChannel(ch ProgressChannel) {
	if s.progressChannel == ch {
		return
	}
	s.CloseChannel()
	s.progressChannel = ch
}

// ReleaseChannel closes ch if it is still the attached channel
func (s *Session) ReleaseChannel(ch ProgressChannel) {
	if s.progressChannel != nil && s.progressChannel == ch {
		s.CloseChannel()
	}
}

// CloseChannel closes the attached channel, if any
func (s *Session) CloseChannel() {
	if s.progressChannel == nil {
		return
	}
	_ = s.progressChannel.Close()
	s.progressChannel = nil
}

// HasOpenChannel reports whether a progress channel is attached
func (s *Session) HasOpenChannel() bool {
	return s.progressChannel != nil
}
