// Package agui defines the event protocol spoken between the agent chat
// endpoint and the assistant stream orchestrator. Events travel as
// Server-Sent-Event records ("data: <JSON>" terminated by a blank line)
// and are discriminated by the Type field.
package agui

import "encoding/json"

type EventType string

const (
	EventRunStart           EventType = "RUN_START"
	EventTextMessageContent EventType = "TEXT_MESSAGE_CONTENT"
	EventToolCallStart      EventType = "TOOL_CALL_START"
	EventToolCallResult     EventType = "TOOL_CALL_RESULT"
	EventStateDelta         EventType = "STATE_DELTA"
	EventRunComplete        EventType = "RUN_COMPLETE"
	EventError              EventType = "ERROR"
)

// Event carries one protocol event. Only the fields relevant to the
// event's Type are populated; the rest stay at their zero value.
type Event struct {
	Type EventType `json:"type"`

	// RUN_START / RUN_COMPLETE
	RunID string `json:"runId,omitempty"`

	// TEXT_MESSAGE_CONTENT. A nil Content on a non-delta event means
	// "use whatever has been accumulated so far".
	Content *string `json:"content,omitempty"`
	Delta   bool    `json:"delta,omitempty"`

	// TOOL_CALL_START / TOOL_CALL_RESULT
	CallID   string          `json:"callId,omitempty"`
	ToolName string          `json:"toolName,omitempty"`
	Args     map[string]any  `json:"args,omitempty"`
	Success  bool            `json:"success,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`

	// STATE_DELTA
	State map[string]any `json:"state,omitempty"`

	// ERROR, and the failure message of an unsuccessful TOOL_CALL_RESULT
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// ParseEvent decodes one SSE record payload. An unknown Type is not an
// error here; the reducer decides what to do with it.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Known reports whether the event type belongs to the protocol.
func (t EventType) Known() bool {
	switch t {
	case EventRunStart, EventTextMessageContent, EventToolCallStart,
		EventToolCallResult, EventStateDelta, EventRunComplete, EventError:
		return true
	}
	return false
}

func TextDelta(chunk string) Event {
	return Event{Type: EventTextMessageContent, Content: &chunk, Delta: true}
}

func TextFull(content string) Event {
	return Event{Type: EventTextMessageContent, Content: &content}
}
