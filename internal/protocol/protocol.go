package protocol

import (
	"encoding/json"
	"fmt"
)

// Event names carried on the wire. Inbound binary frames are implicit
// audio_chunk events; every other event travels as a JSON text frame.
const (
	EventAudioChunk     = "audio_chunk"
	EventAudioStreamEnd = "audio_stream_end"
	EventChunkReceived  = "chunk_received"
	EventAudioResponse  = "audio_response"
	EventError          = "error"
	EventBusy           = "busy"
)

// ControlEvent represents a JSON control frame in either direction.
// Fields are optional depending on the event: audio_stream_end may carry
// a language preference, chunk_received carries a status, error and busy
// carry a message.
type ControlEvent struct {
	Event    string `json:"event"`
	Language string `json:"language,omitempty"`
	Status   string `json:"status,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ParseControlEvent decodes and validates an inbound JSON control frame
func ParseControlEvent(data []byte) (*ControlEvent, error) {
	var ev ControlEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("malformed control event: %w", err)
	}

	if ev.Event == "" {
		return nil, fmt.Errorf("control event missing 'event' field")
	}

	switch ev.Event {
	case EventAudioStreamEnd:
		return &ev, nil
	default:
		return nil, fmt.Errorf("unexpected inbound event '%s'", ev.Event)
	}
}

// Encode serializes a control event for transmission
func (e *ControlEvent) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", e.Event, err)
	}
	return data, nil
}

// ChunkReceivedEvent builds the acknowledgment for an inbound audio chunk
func ChunkReceivedEvent() *ControlEvent {
	return &ControlEvent{
		Event:  EventChunkReceived,
		Status: "received",
	}
}

// ErrorEvent builds a terminal error event with a stage-identifying message
func ErrorEvent(message string) *ControlEvent {
	return &ControlEvent{
		Event:   EventError,
		Message: message,
	}
}

// BusyEvent builds the rejection event for an end-of-stream that arrived
// while a turn was already in flight
func BusyEvent() *ControlEvent {
	return &ControlEvent{
		Event:   EventBusy,
		Message: "a turn is already being processed, try again",
	}
}
