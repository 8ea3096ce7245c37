package domain

// TrimBound selects one end of a trim range
type TrimBound string

const (
	TrimStart TrimBound = "start"
	TrimEnd   TrimBound = "end"
)

// TrimRange is a [Start, End] selection in whole seconds within [0, Total]
type TrimRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Total int `json:"total"`
}

// VisualRange is the highlighted part of the trim bar, in percent
type VisualRange struct {
	LeftPercent  float64 `json:"left_percent"`
	WidthPercent float64 `json:"width_percent"`
}

// TrimController keeps the numeric range and its two text fields in sync.
// After Initialize with a positive duration, 0 <= Start < End <= Total holds
// after every edit.
type TrimController struct {
	rng       TrimRange
	startText string
	endText   string
	enabled   bool
}

// NewTrimController returns a controller with an empty range
func NewTrimController() *TrimController {
	t := &TrimController{}
	t.Initialize(0)
	return t
}

// Initialize selects the full duration and disables trimming
func (t *TrimController) Initialize(totalDuration int) {
	if totalDuration < 0 {
		totalDuration = 0
	}
	t.rng = TrimRange{Start: 0, End: totalDuration, Total: totalDuration}
	t.enabled = false
	t.syncText()
}

// MoveStart applies a slider move of the start bound
func (t *TrimController) MoveStart(candidate int) {
	if t.degenerate() {
		return
	}
	candidate = clamp(candidate, 0, t.rng.Total)
	if candidate >= t.rng.End {
		candidate = t.rng.End - 1
	}
	t.rng.Start = candidate
	t.startText = SecondsToLabel(candidate)
}

// MoveEnd applies a slider move of the end bound
func (t *TrimController) MoveEnd(candidate int) {
	if t.degenerate() {
		return
	}
	candidate = clamp(candidate, 0, t.rng.Total)
	if candidate <= t.rng.Start {
		candidate = t.rng.Start + 1
	}
	t.rng.End = candidate
	t.endText = SecondsToLabel(candidate)
}

// Move dispatches a slider move to the given bound
func (t *TrimController) Move(which TrimBound, candidate int) {
	switch which {
	case TrimStart:
		t.MoveStart(candidate)
	case TrimEnd:
		t.MoveEnd(candidate)
	}
}

// SetStartFromText parses a typed start time and applies it
func (t *TrimController) SetStartFromText(text string) {
	if t.degenerate() {
		return
	}
	t.MoveStart(clamp(LabelToSeconds(text), 0, t.rng.End-1))
}

// SetEndFromText parses a typed end time and applies it
func (t *TrimController) SetEndFromText(text string) {
	if t.degenerate() {
		return
	}
	t.MoveEnd(clamp(LabelToSeconds(text), t.rng.Start+1, t.rng.Total))
}

// SetFromText dispatches a typed time to the given bound
func (t *TrimController) SetFromText(which TrimBound, text string) {
	switch which {
	case TrimStart:
		t.SetStartFromText(text)
	case TrimEnd:
		t.SetEndFromText(text)
	}
}

// SetEnabled toggles whether the range is sent with a download.
// A zero-length video cannot be trimmed.
func (t *TrimController) SetEnabled(enabled bool) {
	t.enabled = enabled && !t.degenerate()
}

// Enabled reports whether trimming is on
func (t *TrimController) Enabled() bool {
	return t.enabled
}

// Range returns the current selection
func (t *TrimController) Range() TrimRange {
	return t.rng
}

// StartText returns the start text field
func (t *TrimController) StartText() string {
	return t.startText
}

// EndText returns the end text field
func (t *TrimController) EndText() string {
	return t.endText
}

// DurationLabel returns the length of the selection as a time code
func (t *TrimController) DurationLabel() string {
	return SecondsToLabel(t.rng.End - t.rng.Start)
}

// VisualRange returns the bar geometry of the selection
func (t *TrimController) VisualRange() VisualRange {
	total := float64(t.rng.Total)
	if total == 0 {
		total = 1
	}
	return VisualRange{
		LeftPercent:  float64(t.rng.Start) / total * 100,
		WidthPercent: float64(t.rng.End-t.rng.Start) / total * 100,
	}
}

// Bounds returns the time codes to send with a download request.
// ok is false when trimming is disabled; start is empty when it is the
// beginning of the video.
func (t *TrimController) Bounds() (start, end string, ok bool) {
	if !t.enabled {
		return "", "", false
	}
	if t.rng.Start != 0 && t.startText != ZeroLabel {
		start = t.startText
	}
	return start, t.endText, true
}

func (t *TrimController) degenerate() bool {
	return t.rng.Total <= 0
}

func (t *TrimController) syncText() {
	t.startText = SecondsToLabel(t.rng.Start)
	t.endText = SecondsToLabel(t.rng.End)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
