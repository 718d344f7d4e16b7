package live

import (
	"encoding/json"
	"fmt"

	"github.com/dropkit-go/dropkit/pkg/dropzone"
)

// Client event types.
const (
	EventDrop   = "drop"
	EventBrowse = "browse"
	EventRemove = "remove"
	EventClear  = "clear"
	EventSubmit = "submit"
)

// Event is one client frame. Files is set for drop and browse, Index
// for remove.
type Event struct {
	Type  string      `json:"type"`
	Files []EventFile `json:"files,omitempty"`
	Index int         `json:"index,omitempty"`
}

// EventFile describes one offered file in a drop or browse event.
type EventFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type,omitempty"`
	Ref  string `json:"ref"`
}

// DecodeEvent parses and validates a client frame.
func DecodeEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}

	switch ev.Type {
	case EventDrop, EventBrowse, EventRemove, EventClear, EventSubmit:
		return &ev, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// candidates converts the event's files for the control.
func (e *Event) candidates() []dropzone.Candidate {
	if len(e.Files) == 0 {
		return nil
	}
	out := make([]dropzone.Candidate, len(e.Files))
	for i, f := range e.Files {
		out[i] = dropzone.Candidate{Name: f.Name, Size: f.Size, Type: f.Type, Ref: f.Ref}
	}
	return out
}

// State is the snapshot pushed to the client after every change.
type State struct {
	Type       string      `json:"type"`
	Files      []StateFile `json:"files"`
	Progress   float64     `json:"progress"`
	Processing bool        `json:"processing"`
	Error      string      `json:"error,omitempty"`
	MaxFiles   int         `json:"max_files"`
	Multiple   bool        `json:"multiple"`
	Full       bool        `json:"full"`
	CanAddMore bool        `json:"can_add_more"`
	Accept     string      `json:"accept"`
}

// StateFile is one staged entry in a snapshot.
type StateFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}
