package assistant

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatStateStartsWithWelcome(t *testing.T) {
	s := NewChatState(10)

	require.Len(t, s.Messages, 1)
	assert.Equal(t, welcomeMessageID, s.Messages[0].ID)
	assert.Equal(t, WelcomeContent, s.Messages[0].Content)
	assert.Equal(t, RoleAssistant, s.Messages[0].Role)
	assert.Equal(t, TopicGeneral, s.CurrentContext)
	assert.False(t, s.IsStreaming)
}

func TestAppendKeepsWelcomePinned(t *testing.T) {
	s := NewChatState(4)

	for i := 0; i < 10; i++ {
		s.Append(&ChatMessage{
			ID:        fmt.Sprintf("m%d", i),
			Role:      RoleUser,
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: time.Now(),
		})
	}

	require.Len(t, s.Messages, 4)
	assert.Equal(t, welcomeMessageID, s.Messages[0].ID)
	// The oldest non-welcome messages were dropped.
	assert.Equal(t, "m7", s.Messages[1].ID)
	assert.Equal(t, "m9", s.Messages[3].ID)
}

func TestMessageByID(t *testing.T) {
	s := NewChatState(10)
	s.Append(&ChatMessage{ID: "a", Content: "one"})

	require.NotNil(t, s.MessageByID("a"))
	assert.Equal(t, "one", s.MessageByID("a").Content)
	assert.Nil(t, s.MessageByID("missing"))
}

func TestSuppressAssistantText(t *testing.T) {
	s := NewChatState(10)
	assert.False(t, s.SuppressAssistantText())

	s.SharedState[suppressTextKey] = true
	assert.True(t, s.SuppressAssistantText())

	// Non-bool values never suppress.
	s.SharedState[suppressTextKey] = "true"
	assert.False(t, s.SuppressAssistantText())
}

func TestAllToolCalls(t *testing.T) {
	s := NewChatState(10)
	s.Append(&ChatMessage{ID: "a", ToolCalls: []*ToolCall{{ID: "c1"}, {ID: "c2"}}})
	s.Append(&ChatMessage{ID: "b", ToolCalls: []*ToolCall{{ID: "c3"}}})

	calls := s.AllToolCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, "c1", calls[0].ID)
	assert.Equal(t, "c3", calls[2].ID)
}
