package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"vstep-prep-backend/assistant"
	"vstep-prep-backend/config"
	"vstep-prep-backend/middleware"
	"vstep-prep-backend/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var relayUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser origin is enforced by the CORS layer already
	CheckOrigin: func(r *http.Request) bool { return true },
}

type relayCommand struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type relayPush struct {
	Type  string                   `json:"type"`
	State *assistant.StateSnapshot `json:"state,omitempty"`
	Panel *assistant.ToolCall      `json:"panel,omitempty"`
	Error string                   `json:"error,omitempty"`
}

// AssistantRelay hosts the chat assistant over a websocket: commands in,
// state snapshots and panel-open pushes out. One orchestrator per
// connection.
func AssistantRelay(c *gin.Context) {
	token := c.Query("token")
	claims, err := middleware.ParseToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Response{
			Msg: "invalid token",
		})
		return
	}

	conn, err := relayUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error(ErrRelayUpgrade.Error(), "err", err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	push := func(p relayPush) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(p); err != nil {
			slog.Warn("relay write failed", "err", err)
		}
	}

	session := assistant.NewSession(token, map[string]any{
		"email": claims.Email,
	})
	tracker := assistant.NewAutoOpenTracker()

	var orch *assistant.Orchestrator
	orch = assistant.NewOrchestrator(config.Cfg.Assistant.ChatEndpoint, session, assistant.Options{
		ContextDetection: config.Cfg.Assistant.ContextDetection,
		MaxMessages:      config.Cfg.Assistant.MaxMessages,
		IdleTimeout:      time.Duration(config.Cfg.Assistant.IdleTimeoutSeconds) * time.Second,
		OnUnauthorized: func() {
			push(relayPush{Type: "unauthorized"})
		},
		OnToolComplete: func(call assistant.ToolCall) {
			snap := orch.Snapshot()
			var calls []*assistant.ToolCall
			for _, m := range snap.Messages {
				calls = append(calls, m.ToolCalls...)
			}
			if next := tracker.Next(calls); next != nil {
				push(relayPush{Type: "open_panel", Panel: next})
			}
			push(relayPush{Type: "state", State: &snap})
		},
	})

	snap := orch.Snapshot()
	push(relayPush{Type: "state", State: &snap})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	defer orch.CancelStream()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd relayCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			push(relayPush{Type: "error", Error: "malformed command"})
			continue
		}

		switch cmd.Type {
		case "send_message":
			go func(text string) {
				if err := orch.SendMessage(ctx, text); err != nil {
					slog.Warn("assistant turn failed", "err", err)
				}
				snap := orch.Snapshot()
				push(relayPush{Type: "state", State: &snap})
			}(cmd.Text)
		case "cancel":
			orch.CancelStream()
			snap := orch.Snapshot()
			push(relayPush{Type: "state", State: &snap})
		case "clear":
			orch.ClearConversation()
			snap := orch.Snapshot()
			push(relayPush{Type: "state", State: &snap})
		default:
			push(relayPush{Type: "error", Error: "unknown command: " + cmd.Type})
		}
	}
}
