package controller

import (
	"context"
	"log/slog"

	"vstep-prep-backend/agui"
	"vstep-prep-backend/request"
	"vstep-prep-backend/service/agent"
	"vstep-prep-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AgentChat streams one assistant run as AG-UI events over SSE.
func AgentChat(c *gin.Context) {
	utils.SetSSEHeaders(c)
	runID := uuid.NewString()

	var req request.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		sendRunError(c, runID, ErrParseRequest.Error(), "bad_request")
		return
	}

	email := c.GetString("email")
	ag, err := agent.NewAgent(c, req, email, runID)
	if err != nil {
		slog.Error(ErrCreateAgent.Error(), "err", err)
		sendRunError(c, runID, ErrCreateAgent.Error(), "agent_init")
		return
	}
	defer ag.Close()

	ag.Emitter.Begin()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Stop the run as soon as the client goes away
	go func() {
		<-c.Done()
		cancel()
	}()

	result, err := ag.Call(ctx, req)
	if err != nil {
		slog.Error(ErrCallAgent.Error(), "err", err)
		ag.Emitter.Fail(ErrCallAgent, "agent_error")
		return
	}

	ag.Emitter.Finish(result, false)

	if err := ag.SaveToolCalls(context.Background()); err != nil {
		slog.Error("failed to save tool calls", "err", err)
	}
}

func sendRunError(c *gin.Context, runID, msg, code string) {
	_ = utils.SendSSEData(c, agui.Event{Type: agui.EventRunStart, RunID: runID})
	_ = utils.SendSSEData(c, agui.Event{Type: agui.EventError, Error: msg, Code: code})
	_ = utils.SendSSEData(c, agui.Event{Type: agui.EventRunComplete, RunID: runID})
}
