package assistant

import (
	"time"

	"github.com/google/uuid"
)

// Visible strings of the assistant turn lifecycle. The product speaks
// Vietnamese; tests assert against these constants.
const (
	WelcomeContent       = "Xin chào! Mình là trợ lý luyện thi VSTEP. Bạn cần hỗ trợ gì?"
	PlaceholderContent   = "Đang xử lý..."
	FallbackPanelContent = "Mình đã tải dữ liệu, bạn xem chi tiết ở bảng bên nhé."
	RetryContent         = "Có lỗi xảy ra, bạn vui lòng gửi lại tin nhắn nhé."

	errorContentPrefix = "Lỗi: "
)

const (
	welcomeMessageID = "welcome"

	// SharedState key set by the agent when the visible answer lives
	// entirely in a detail panel.
	suppressTextKey = "suppressAssistantText"

	defaultMaxMessages = 100
)

// ChatState is the session-scoped conversation state. It is mutated only
// by the reducer and the orchestrator, under the orchestrator's lock.
type ChatState struct {
	Messages       []*ChatMessage
	IsStreaming    bool
	CurrentContext Topic
	SharedState    map[string]any
	Err            string

	maxMessages int
}

func NewChatState(maxMessages int) *ChatState {
	if maxMessages <= 1 {
		maxMessages = defaultMaxMessages
	}
	s := &ChatState{
		CurrentContext: TopicGeneral,
		SharedState:    make(map[string]any),
		maxMessages:    maxMessages,
	}
	s.Messages = append(s.Messages, &ChatMessage{
		ID:        welcomeMessageID,
		Role:      RoleAssistant,
		Content:   WelcomeContent,
		Type:      MessageText,
		Timestamp: time.Now(),
	})
	return s
}

// Append adds a message and enforces the capacity invariant: the welcome
// message stays pinned at index 0 and the total length never exceeds the
// configured ceiling (oldest non-welcome messages are dropped).
func (s *ChatState) Append(m *ChatMessage) {
	s.Messages = append(s.Messages, m)
	for len(s.Messages) > s.maxMessages {
		s.Messages = append(s.Messages[:1], s.Messages[2:]...)
	}
}

func (s *ChatState) MessageByID(id string) *ChatMessage {
	for _, m := range s.Messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *ChatState) SuppressAssistantText() bool {
	v, ok := s.SharedState[suppressTextKey].(bool)
	return ok && v
}

// AllToolCalls returns every tool call across all messages, in message
// then start order.
func (s *ChatState) AllToolCalls() []*ToolCall {
	var calls []*ToolCall
	for _, m := range s.Messages {
		calls = append(calls, m.ToolCalls...)
	}
	return calls
}

func newMessageID() string {
	return uuid.New().String()
}
