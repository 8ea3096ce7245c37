package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/yourusername/dyt-client/internal/app"
	"github.com/yourusername/dyt-client/internal/domain"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	selectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// terminalPresenter prints controller output line by line
type terminalPresenter struct {
	mu      sync.Mutex
	out     io.Writer
	bar     progress.Model
	quiet   bool
	lastBar string

	// outcome of the last flow, read by the download command after Wait
	failure error
	saved   []*domain.SavedFile
	report  *app.BatchReport
}

func newTerminalPresenter(out io.Writer, quiet bool) *terminalPresenter {
	return &terminalPresenter{
		out:   out,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40), progress.WithoutPercentage()),
		quiet: quiet,
	}
}

func (p *terminalPresenter) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endBarLocked()
	fmt.Fprintf(p.out, format, args...)
}

// endBarLocked moves past an in-place progress line
func (p *terminalPresenter) endBarLocked() {
	if p.lastBar != "" {
		fmt.Fprintln(p.out)
		p.lastBar = ""
	}
}

func (p *terminalPresenter) ShowIdle() {}

func (p *terminalPresenter) ShowLoading(message string) {
	if p.quiet {
		return
	}
	p.printf("%s\n", dimStyle.Render(message+"..."))
}

func (p *terminalPresenter) ShowVideoInfo(view app.VideoView) {
	v := view.Video
	if v == nil {
		return
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(v.Title) + "\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Uploader:"), v.Uploader)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Duration:"), v.DurationLabel)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Views:   "), formatCount(v.ViewCount))
	if len(v.Formats) > 0 {
		b.WriteString(labelStyle.Render("Qualities:") + "\n")
		for _, f := range v.Formats {
			line := fmt.Sprintf("  %-8s %s", f.Quality, f.ApproxFilesize)
			if f.Quality == view.SelectedQuality {
				line = selectStyle.Render("> " + strings.TrimPrefix(line, "  "))
			}
			b.WriteString(line + "\n")
		}
	}
	if view.Trim.Enabled {
		fmt.Fprintf(&b, "%s %s - %s of %s\n", labelStyle.Render("Trim:"),
			view.Trim.StartText, view.Trim.EndText, view.Trim.DurationLabel)
	}
	p.printf("%s", b.String())
}

func (p *terminalPresenter) ShowPlaylistInfo(view app.PlaylistView) {
	pl := view.Playlist
	if pl == nil {
		return
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(pl.Title) + "\n")
	fmt.Fprintf(&b, "%s %d videos\n", labelStyle.Render("Playlist:"), pl.VideoCount)
	for i, e := range pl.Entries {
		fmt.Fprintf(&b, "  %2d. %s\n", i+1, e.Title)
	}
	p.printf("%s", b.String())
}

func (p *terminalPresenter) ShowSearchResults(view app.SearchView) {
	if len(view.Results) == 0 {
		p.printf("No results for %q\n", view.Query)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleStyle.Render(fmt.Sprintf("Results for %q", view.Query)))
	for i, r := range view.Results {
		fmt.Fprintf(&b, "  %2d. %s %s\n      %s\n", i+1, r.Title,
			dimStyle.Render("("+r.DurationLabel+", "+r.Uploader+")"), dimStyle.Render(r.URL))
	}
	p.printf("%s", b.String())
}

func (p *terminalPresenter) ShowTrim(view app.TrimView) {
	if p.quiet {
		return
	}
	if !view.Enabled {
		p.printf("%s\n", dimStyle.Render("Trim off"))
		return
	}
	p.printf("%s %s - %s\n", labelStyle.Render("Trim:"), view.StartText, view.EndText)
}

func (p *terminalPresenter) ShowDownload(view app.DownloadView) {
	p.renderFlow("", view.Flow)
}

func (p *terminalPresenter) ShowBatchProgress(bp app.BatchProgress) {
	prefix := fmt.Sprintf("[%d/%d] ", bp.Index, bp.Total)
	p.renderFlow(prefix, bp.Flow)
}

// renderFlow redraws the progress line in place while streaming
func (p *terminalPresenter) renderFlow(prefix string, flow domain.FlowState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var line string
	switch flow.Phase {
	case domain.PhaseStarting:
		p.endBarLocked()
		fmt.Fprintf(p.out, "%s%s\n", prefix, dimStyle.Render("Starting "+describe(flow)))
		return
	case domain.PhaseStreaming:
		line = fmt.Sprintf("%s%s %3d%%", prefix, p.bar.ViewAs(float64(flow.Percent)/100), flow.Percent)
		if flow.Speed != "" {
			line += dimStyle.Render("  " + flow.Speed)
		}
		if flow.ETA != "" {
			line += dimStyle.Render("  ETA " + flow.ETA)
		}
	case domain.PhaseFinishing:
		line = fmt.Sprintf("%s%s %3d%% %s", prefix, p.bar.ViewAs(float64(flow.Percent)/100), flow.Percent, dimStyle.Render("processing"))
	case domain.PhaseComplete:
		p.endBarLocked()
		fmt.Fprintf(p.out, "%s%s %s\n", prefix, successStyle.Render("Done:"), flow.Filename)
		return
	case domain.PhaseError:
		if prefix == "" {
			p.failure = flow.Err
		}
		p.endBarLocked()
		fmt.Fprintf(p.out, "%s%s %s\n", prefix, errorStyle.Render("Failed:"), domain.UserMessage(flow.Err))
		return
	default:
		return
	}

	if line == p.lastBar {
		return
	}
	fmt.Fprintf(p.out, "\r%s\033[K", line)
	p.lastBar = line
}

func (p *terminalPresenter) ShowBatchComplete(report app.BatchReport) {
	p.mu.Lock()
	p.report = &report
	p.mu.Unlock()

	var b strings.Builder
	style := successStyle
	if report.SuccessCount < report.TotalCount {
		style = warningStyle
	}
	b.WriteString(style.Render(fmt.Sprintf("%d of %d videos downloaded", report.SuccessCount, report.TotalCount)) + "\n")
	for _, f := range report.Failures {
		fmt.Fprintf(&b, "  %s %s: %s\n", errorStyle.Render("x"), f.Entry.Title, f.Message)
	}
	p.printf("%s", b.String())
}

func (p *terminalPresenter) ShowSaved(file *domain.SavedFile) {
	if file == nil {
		return
	}
	p.mu.Lock()
	p.saved = append(p.saved, file)
	p.mu.Unlock()

	line := fmt.Sprintf("%s %s (%s)", successStyle.Render("Saved"), file.Path, formatBytes(file.Size))
	if file.Title != "" {
		line += dimStyle.Render(" " + file.Title)
		if file.Artist != "" {
			line += dimStyle.Render(" by " + file.Artist)
		}
	}
	p.printf("%s\n", line)
}

func (p *terminalPresenter) Toast(level app.ToastLevel, message string) {
	switch level {
	case app.ToastError:
		p.printf("%s\n", errorStyle.Render(message))
	case app.ToastWarning:
		p.printf("%s\n", warningStyle.Render(message))
	case app.ToastSuccess:
		if !p.quiet {
			p.printf("%s\n", successStyle.Render(message))
		}
	default:
		if !p.quiet {
			p.printf("%s\n", message)
		}
	}
}

// outcome reports how the last download ended
func (p *terminalPresenter) outcome() (failure error, saved []*domain.SavedFile, report *app.BatchReport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failure, append([]*domain.SavedFile(nil), p.saved...), p.report
}

func describe(flow domain.FlowState) string {
	kind := "video"
	if flow.Format == domain.FormatAudio {
		kind = "audio"
	}
	if flow.Title == "" {
		return kind + " download"
	}
	return kind + " download of " + flow.Title
}

func formatCount(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
