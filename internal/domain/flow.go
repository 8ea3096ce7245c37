package domain

import (
	"errors"
	"fmt"
)

// Phase is the state of a single-item download flow
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseStarting  Phase = "starting"
	PhaseStreaming Phase = "streaming"
	PhaseFinishing Phase = "finishing"
	PhaseComplete  Phase = "complete"
	PhaseError     Phase = "error"
)

// ProcessingPercent is the fixed progress shown while post-processing
const ProcessingPercent = 95

// IsTerminal reports whether the flow has ended
func (p Phase) IsTerminal() bool {
	return p == PhaseComplete || p == PhaseError
}

// IsActive reports whether the flow is waiting on the service
func (p Phase) IsActive() bool {
	return p == PhaseStarting || p == PhaseStreaming || p == PhaseFinishing
}

// ErrFlowEnded is returned when an event arrives after a terminal phase
var ErrFlowEnded = errors.New("download flow already ended")

// FormatType is the kind of file requested from the service
type FormatType string

const (
	FormatAudio FormatType = "mp3"
	FormatVideo FormatType = "video"
)

// ValidateFormatType checks if a format type is valid
func ValidateFormatType(f FormatType) bool {
	return f == FormatAudio || f == FormatVideo
}

// FlowState is the observable state of one download flow
type FlowState struct {
	Phase    Phase
	TaskID   string
	Format   FormatType
	Title    string
	Percent  int
	Speed    string
	ETA      string
	Filename string
	Err      error
}

// NewFlowState returns an idle flow for the given format
func NewFlowState(format FormatType, title string) FlowState {
	return FlowState{Phase: PhaseIdle, Format: format, Title: title}
}

// MarkStarting records the accepted task id
func (s *FlowState) MarkStarting(taskID string) error {
	if s.Phase != PhaseIdle {
		return fmt.Errorf("cannot start a flow in phase %s", s.Phase)
	}
	s.Phase = PhaseStarting
	s.TaskID = taskID
	s.Percent = 0
	return nil
}

// MarkFailed moves the flow to the error phase
func (s *FlowState) MarkFailed(err error) {
	if s.Phase.IsTerminal() {
		return
	}
	s.Phase = PhaseError
	s.Err = err
}

// Apply advances the flow with one progress event. Percent values are
// taken as-is; the display is last-write-wins.
func (s *FlowState) Apply(event ProgressEvent) error {
	if s.Phase.IsTerminal() {
		return ErrFlowEnded
	}
	if s.Phase == PhaseIdle {
		return fmt.Errorf("progress event before the task started")
	}

	switch ev := event.(type) {
	case Pending:
		// nothing reported yet
	case Downloading:
		s.Phase = PhaseStreaming
		s.Percent = ev.Percent
		s.Speed = ev.Speed
		s.ETA = ev.ETA
	case Processing:
		s.Phase = PhaseFinishing
		s.Percent = ProcessingPercent
	case Completed:
		s.Phase = PhaseComplete
		s.Percent = 100
		s.Filename = ev.Filename
	case Failed:
		s.Phase = PhaseError
		s.Err = &TaskError{TaskID: s.TaskID, Message: ev.Message}
	default:
		return fmt.Errorf("unhandled progress event %T", event)
	}
	return nil
}
