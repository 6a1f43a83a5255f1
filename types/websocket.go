package types

import "time"

// Topics every client can subscribe to besides a job id
const (
	TopicAll    = "all"
	TopicEvents = "events"
)

// ProgressMessage represents a WebSocket progress update message
type ProgressMessage struct {
	JobID       string    `json:"jobId"`
	Type        string    `json:"type"`        // "progress", "status", "complete", "error"
	Progress    float64   `json:"progress"`    // 0-100 percentage
	Status      string    `json:"status"`      // current job status
	CurrentFile string    `json:"currentFile"` // file currently being read
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Event is an application event pushed to the UI, e.g. "single-instance"
type Event struct {
	Name      string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is what the hub routes; exactly one of Progress and Event is set
type Message struct {
	Topic    string
	Progress *ProgressMessage
	Event    *Event
}

// Body returns the value written to the socket
func (m Message) Body() any {
	if m.Event != nil {
		return m.Event
	}
	return m.Progress
}
