package agent

import (
	"context"
	"encoding/json"

	"vstep-prep-backend/dao"
	"vstep-prep-backend/model"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"gorm.io/gorm"
)

const (
	tableName = "chat_message"
	limit     = 200
)

// MySQLChatMessageHistory persists the conversation and replays it as
// agent memory. Summaries, when present, stand in for full content.
type MySQLChatMessageHistory struct {
	DB        *gorm.DB
	TableName string
	Session   string
	Limit     int

	// Row ids of the current turn
	AgentMessageID uint
	UserMessageID  uint
}

var _ schema.ChatMessageHistory = &MySQLChatMessageHistory{}

func NewMySQLChatMessageHistory(session string) *MySQLChatMessageHistory {
	return &MySQLChatMessageHistory{
		DB:        dao.DB,
		TableName: tableName,
		Session:   session,
		Limit:     limit,
	}
}

func (h *MySQLChatMessageHistory) Messages(ctx context.Context) ([]llms.ChatMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var messages []struct {
		Content string
		Summary string
		Role    string
	}

	result := h.DB.WithContext(ctx).
		Table(h.TableName).
		Select("content, summary, role").
		Where("session_id = ?", h.Session).
		Order("created_at ASC").
		Limit(h.Limit).
		Find(&messages)

	if result.Error != nil {
		return nil, result.Error
	}

	var msgs []llms.ChatMessage
	for _, msg := range messages {
		var content string
		if msg.Summary != "" {
			content = msg.Summary
		} else {
			content = msg.Content
		}

		switch msg.Role {
		case string(llms.ChatMessageTypeAI):
			msgs = append(msgs, llms.AIChatMessage{Content: content})
		case string(llms.ChatMessageTypeHuman):
			msgs = append(msgs, llms.HumanChatMessage{Content: content})
		case string(llms.ChatMessageTypeSystem):
			msgs = append(msgs, llms.SystemChatMessage{Content: content})
		}
	}

	return msgs, nil
}

func (h *MySQLChatMessageHistory) AddMessage(ctx context.Context, message llms.ChatMessage) error {
	return h.addMessage(ctx, message.GetContent(), message.GetType(), false)
}

func (h *MySQLChatMessageHistory) AddAIMessage(ctx context.Context, text string) error {
	return h.addMessage(ctx, text, llms.ChatMessageTypeAI, false)
}

func (h *MySQLChatMessageHistory) AddUserMessage(ctx context.Context, text string) error {
	return h.addMessage(ctx, text, llms.ChatMessageTypeHuman, false)
}

// AddHiddenSystemMessage stores a synthesized context turn that is
// replayed to the model but never shown in the session transcript.
func (h *MySQLChatMessageHistory) AddHiddenSystemMessage(ctx context.Context, text string) error {
	return h.addMessage(ctx, text, llms.ChatMessageTypeSystem, true)
}

func (h *MySQLChatMessageHistory) addMessage(ctx context.Context, text string, role llms.ChatMessageType, hidden bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	msg := model.Message{
		SessionID: h.Session,
		Role:      string(role),
		Content:   text,
		Hidden:    hidden,
	}

	result := h.DB.WithContext(ctx).
		Table(h.TableName).
		Create(&msg)

	if result.Error != nil {
		return result.Error
	}

	switch role {
	case llms.ChatMessageTypeAI:
		h.AgentMessageID = msg.ID
	case llms.ChatMessageTypeHuman:
		h.UserMessageID = msg.ID
	}

	return nil
}

func (h *MySQLChatMessageHistory) Clear(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	result := h.DB.WithContext(ctx).
		Table(h.TableName).
		Where("session_id = ?", h.Session).
		Delete(nil)

	return result.Error
}

func (h *MySQLChatMessageHistory) SetMessages(ctx context.Context, messages []llms.ChatMessage) error {
	if ctx == nil {
		ctx = context.Background()
	}

	return h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Table(h.TableName).
			Where("session_id = ?", h.Session).
			Delete(nil).Error; err != nil {
			return err
		}

		var values []map[string]any
		for _, msg := range messages {
			values = append(values, map[string]any{
				"session_id": h.Session,
				"content":    msg.GetContent(),
				"role":       msg.GetType(),
			})
		}

		if len(values) > 0 {
			if err := tx.WithContext(ctx).
				Table(h.TableName).
				CreateInBatches(values, 100).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// SetToolCalls attaches the turn's tool calls to the agent message row.
func (h *MySQLChatMessageHistory) SetToolCalls(ctx context.Context, calls []ToolCallRecord) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if h.AgentMessageID == 0 || len(calls) == 0 {
		return nil
	}

	callsJSON, err := json.Marshal(calls)
	if err != nil {
		return err
	}

	result := h.DB.WithContext(ctx).
		Table(h.TableName).
		Where("id = ?", h.AgentMessageID).
		Update("tool_calls", callsJSON)

	return result.Error
}
