// Package assistant implements the client core of the exam-prep chat
// assistant: chat state, the stream reducer applying agent events, hidden
// context-message synthesis from tool results, the stream orchestrator
// owning the request lifecycle, and the tool-call presentation view models
// consumed by the browser relay.
package assistant

import (
	"encoding/json"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type MessageType string

const (
	MessageText       MessageType = "text"
	MessageSuggestion MessageType = "suggestion"
	MessageQuizHelp   MessageType = "quiz_help"
	MessageError      MessageType = "error"
)

type ToolStatus string

const (
	ToolPending  ToolStatus = "pending"
	ToolComplete ToolStatus = "complete"
	ToolError    ToolStatus = "error"
)

// ToolClass groups tool names into the categories the synthesizer and the
// presentation layer care about.
type ToolClass string

const (
	ClassQuizHistory   ToolClass = "quiz_history"
	ClassAttemptDetail ToolClass = "attempt_detail"
	ClassWriting       ToolClass = "writing"
	ClassSpeaking      ToolClass = "speaking"
	ClassOther         ToolClass = "other"
)

// ClassifyTool maps a tool identifier to its class. Unknown names fall
// into ClassOther and only show up in the generic tool-call list.
func ClassifyTool(name string) ToolClass {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "history"):
		return ClassQuizHistory
	case strings.Contains(n, "attempt") || strings.Contains(n, "detail"):
		return ClassAttemptDetail
	case strings.Contains(n, "writing"):
		return ClassWriting
	case strings.Contains(n, "speaking"):
		return ClassSpeaking
	}
	return ClassOther
}

// ToolCall tracks one tool invocation. The copy embedded in the owning
// message is the source of truth; the reducer's correlation store only
// holds a handle to it while the call is in flight.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Args      map[string]any  `json:"args,omitempty"`
	Status    ToolStatus      `json:"status"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time,omitzero"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (c *ToolCall) Terminal() bool {
	return c.Status == ToolComplete || c.Status == ToolError
}

func (c *ToolCall) Class() ToolClass {
	return ClassifyTool(c.Name)
}

type MessageMetadata struct {
	Confidence float64 `json:"confidence"`
}

// ChatMessage is one logical turn. The assistant placeholder for a turn
// is created before any event of that turn is processed and keeps its ID
// for the turn's lifetime.
type ChatMessage struct {
	ID        string           `json:"id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Type      MessageType      `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Hidden    bool             `json:"hidden,omitempty"`
	ToolCalls []*ToolCall      `json:"tool_calls,omitempty"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}
