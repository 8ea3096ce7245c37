package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// ProgressEvent is one status message of a progress channel. The concrete
// types are Pending, Downloading, Processing, Completed and Failed.
type ProgressEvent interface {
	progressEvent()
}

// Pending means the task is accepted but no progress was reported yet
type Pending struct{}

// Downloading carries a progress sample
type Downloading struct {
	Percent int
	Speed   string
	ETA     string
}

// Processing means the media is being post-processed
type Processing struct{}

// Completed means the file is ready
type Completed struct {
	Filename string
}

// Failed means the task ended with an error
type Failed struct {
	Message string
}

func (Pending) progressEvent()     {}
func (Downloading) progressEvent() {}
func (Processing) progressEvent()  {}
func (Completed) progressEvent()   {}
func (Failed) progressEvent()      {}

// Wire status values
const (
	WireStatusPending     = "pending"
	WireStatusDownloading = "downloading"
	WireStatusProcessing  = "processing"
	WireStatusCompleted   = "completed"
	WireStatusError       = "error"
)

// ProgressMessage is the JSON shape of a progress channel message
type ProgressMessage struct {
	Status   string   `json:"status"`
	Progress *float64 `json:"progress,omitempty"`
	Speed    string   `json:"speed,omitempty"`
	ETA      string   `json:"eta,omitempty"`
	Filename string   `json:"filename,omitempty"`
	Error    *string  `json:"error,omitempty"`
}

// UnknownStatusError is returned for a status this client does not know
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown progress status %q", e.Status)
}

// ParseProgressMessage decodes one channel message into an event
func ParseProgressMessage(data []byte) (ProgressEvent, error) {
	var msg ProgressMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode progress message: %w", err)
	}
	return msg.Event()
}

// Event converts the wire message into a typed event
func (m ProgressMessage) Event() (ProgressEvent, error) {
	switch m.Status {
	case WireStatusPending:
		return Pending{}, nil
	case WireStatusDownloading:
		ev := Downloading{Speed: m.Speed, ETA: m.ETA}
		if m.Progress != nil {
			ev.Percent = clamp(int(math.Round(*m.Progress)), 0, 100)
		}
		return ev, nil
	case WireStatusProcessing:
		return Processing{}, nil
	case WireStatusCompleted:
		return Completed{Filename: m.Filename}, nil
	case WireStatusError:
		return Failed{Message: m.errorText()}, nil
	case "":
		// the service answers an unknown task id with a bare error object
		if m.Error != nil {
			return Failed{Message: m.errorText()}, nil
		}
		return nil, &UnknownStatusError{Status: m.Status}
	default:
		return nil, &UnknownStatusError{Status: m.Status}
	}
}

func (m ProgressMessage) errorText() string {
	if m.Error == nil || *m.Error == "" {
		return "download failed"
	}
	return *m.Error
}
