package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingChannel struct {
	closes int
}

func (c *countingChannel) Next(ctx context.Context) (ProgressEvent, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *countingChannel) Close() error {
	c.closes++
	return nil
}

func TestNewSession(t *testing.T) {
	s := NewSession()

	assert.Equal(t, DefaultQuality, s.SelectedQuality)
	assert.Empty(t, s.ActiveTaskID)
	assert.Nil(t, s.Target)
	assert.False(t, s.HasCachedResults())
	assert.False(t, s.HasOpenChannel())
}

func TestSession_ApplyVideoSelectsFirstFormat(t *testing.T) {
	s := NewSession()
	s.ApplyVideo("dQw4w9WgXcQ", &VideoMetadata{
		DurationSeconds: 212,
		Formats: []FormatOption{
			{Quality: "1080p", ApproxFilesize: "80.1 MB"},
			{Quality: "720p", ApproxFilesize: "40.0 MB"},
		},
	})

	assert.Equal(t, "1080p", s.SelectedQuality)
	assert.Equal(t, SingleVideo{DurationSeconds: 212}, s.Target)
	assert.Equal(t, "dQw4w9WgXcQ", s.TargetURL)
	assert.Len(t, s.AvailableFormats, 2)
	assert.False(t, s.IsPlaylist())
}

func TestSession_ApplyVideoWithoutFormats(t *testing.T) {
	s := NewSession()
	s.SelectedQuality = "720p"
	s.ApplyVideo("x", &VideoMetadata{})

	assert.Equal(t, DefaultQuality, s.SelectedQuality)
	assert.Empty(t, s.AvailableFormats)
}

func TestSession_ApplyPlaylistReplacesFormats(t *testing.T) {
	s := NewSession()
	s.ApplyVideo("x", &VideoMetadata{Formats: []FormatOption{{Quality: "480p"}}})
	s.ApplyPlaylist("list", &PlaylistMetadata{Entries: []PlaylistEntry{{URL: "a", Title: "A"}}})

	assert.True(t, s.IsPlaylist())
	assert.Nil(t, s.AvailableFormats)
	assert.Equal(t, DefaultQuality, s.SelectedQuality)
	assert.Equal(t, Playlist{Entries: []PlaylistEntry{{URL: "a", Title: "A"}}}, s.Target)
}

func TestSession_SelectQuality(t *testing.T) {
	s := NewSession()
	s.ApplyVideo("x", &VideoMetadata{Formats: []FormatOption{{Quality: "1080p"}, {Quality: "360p"}}})

	require.NoError(t, s.SelectQuality("360p"))
	assert.Equal(t, "360p", s.SelectedQuality)

	err := s.SelectQuality("4320p")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "360p", s.SelectedQuality)
}

func TestSession_AttachChannelClosesPrevious(t *testing.T) {
	s := NewSession()
	first := &countingChannel{}
	second := &countingChannel{}

	s.AttachChannel(first)
	s.AttachChannel(first)
	assert.Equal(t, 0, first.closes)

	s.AttachChannel(second)
	assert.Equal(t, 1, first.closes)
	assert.Equal(t, 0, second.closes)
	assert.True(t, s.HasOpenChannel())
}

func TestSession_ReleaseChannelOnlyClosesOwnChannel(t *testing.T) {
	s := NewSession()
	stale := &countingChannel{}
	current := &countingChannel{}
	s.AttachChannel(stale)
	s.AttachChannel(current)

	s.ReleaseChannel(stale)
	assert.Equal(t, 1, stale.closes)
	assert.True(t, s.HasOpenChannel())

	s.ReleaseChannel(current)
	s.ReleaseChannel(current)
	assert.Equal(t, 1, current.closes)
	assert.False(t, s.HasOpenChannel())
}

func TestSession_ResetClearsEverything(t *testing.T) {
	s := NewSession()
	ch := &countingChannel{}
	s.CacheSearch("lofi", []SearchResult{{URL: "u"}})
	s.ApplyVideo("x", &VideoMetadata{Formats: []FormatOption{{Quality: "720p"}}})
	s.ActiveTaskID = "task-1"
	s.IsBatchDownloadActive = true
	s.AttachChannel(ch)

	s.Reset()

	assert.Equal(t, 1, ch.closes)
	assert.Equal(t, NewSession(), s)
}

func TestSession_CacheSearchKeepsEmptyResults(t *testing.T) {
	s := NewSession()
	s.CacheSearch("nothing", nil)

	assert.True(t, s.HasCachedResults())
	assert.Empty(t, s.CachedSearchResults)
	assert.Equal(t, "nothing", s.CachedSearchQuery)
}
