package app

import (
	"github.com/yourusername/dyt-client/internal/domain"
)

// ToastLevel is the severity of a transient notice
type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

// TrimView is the displayed state of the trim controls
type TrimView struct {
	Enabled       bool
	Range         domain.TrimRange
	StartText     string
	EndText       string
	DurationLabel string
	Visual        domain.VisualRange
}

// VideoView is the detail view of an analyzed video
type VideoView struct {
	URL             string
	Video           *domain.VideoMetadata
	SelectedQuality string
	Trim            TrimView
	CanGoBack       bool
}

// PlaylistView is the detail view of an analyzed playlist
type PlaylistView struct {
	URL       string
	Playlist  *domain.PlaylistMetadata
	CanGoBack bool
}

// SearchView lists the results of a query
type SearchView struct {
	Query   string
	Results []domain.SearchResult
}

// DownloadView is the progress view of a single download
type DownloadView struct {
	Flow    domain.FlowState
	CanSave bool
}

// BatchProgress is the progress view of a playlist run
type BatchProgress struct {
	BatchID      string
	Index        int // 1-based
	Total        int
	Entry        domain.PlaylistEntry
	Flow         domain.FlowState
	SuccessCount int
}

// BatchFailure is one skipped playlist entry
type BatchFailure struct {
	Entry   domain.PlaylistEntry
	Message string
}

// BatchReport summarizes a finished playlist run
type BatchReport struct {
	BatchID      string
	SuccessCount int
	TotalCount   int
	Failures     []BatchFailure
	Canceled     bool
}

// Presenter renders controller output. Methods are called from the
// controller's goroutines and must not call back into the controller.
type Presenter interface {
	ShowIdle()
	ShowLoading(message string)
	ShowVideoInfo(view VideoView)
	ShowPlaylistInfo(view PlaylistView)
	ShowSearchResults(view SearchView)
	ShowTrim(view TrimView)
	ShowDownload(view DownloadView)
	ShowBatchProgress(progress BatchProgress)
	ShowBatchComplete(report BatchReport)
	ShowSaved(file *domain.SavedFile)
	Toast(level ToastLevel, message string)
}

// Notifier mirrors notices outside the presenter, e.g. to the desktop
type Notifier interface {
	NotifyDownloadCompleted(title, filename string)
	NotifyDownloadFailed(title string, err error)
	NotifyBatchCompleted(successCount, totalCount int)
}

func trimView(tc *domain.TrimController) TrimView {
	return TrimView{
		Enabled:       tc.Enabled(),
		Range:         tc.Range(),
		StartText:     tc.StartText(),
		EndText:       tc.EndText(),
		DurationLabel: tc.DurationLabel(),
		Visual:        tc.VisualRange(),
	}
}
