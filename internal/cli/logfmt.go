package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Paintersrp/cmdlaunch/internal/engine"
)

type eventRecord struct {
	Timestamp time.Time `json:"ts"`
	Type      string    `json:"type"`
	Name      string    `json:"name,omitempty"`
	PID       int       `json:"pid,omitempty"`
	Count     int       `json:"count"`
	Message   string    `json:"msg,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func newEventRecord(event engine.Event) eventRecord {
	record := eventRecord{
		Timestamp: event.Timestamp,
		Type:      string(event.Type),
		Name:      event.Name,
		PID:       event.PID,
		Count:     event.Count,
		Message:   event.Message,
	}
	if event.Err != nil {
		record.Error = event.Err.Error()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	return record
}

func encodeEvent(enc *json.Encoder, stderr io.Writer, event engine.Event) {
	if enc == nil {
		return
	}
	record := newEventRecord(event)
	if err := enc.Encode(&record); err != nil {
		fmt.Fprintf(stderr, "error: encode event: %v\n", err)
	}
}

// describeEvent renders an event for terminal output. Count events become
// the ready status line.
func describeEvent(event engine.Event) string {
	if event.Type == engine.EventTypeCount {
		return engine.ReadyStatus(event.Count)
	}
	return event.Describe()
}
